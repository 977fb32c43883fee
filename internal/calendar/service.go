package calendar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/clinic-booking-assistant/internal/clock"
	"github.com/wolfman30/clinic-booking-assistant/internal/datetime"
	"github.com/wolfman30/clinic-booking-assistant/internal/treatments"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// Event is a raw calendar entry.
type Event struct {
	ID          string
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	AllDay      bool
	Link        string
}

// Events is the storage a Service books against. Google Calendar and an
// in-memory map both implement it.
type Events interface {
	List(ctx context.Context, from, to time.Time) ([]Event, error)
	Get(ctx context.Context, id string) (Event, error)
	Insert(ctx context.Context, ev Event) (Event, error)
	Update(ctx context.Context, ev Event) (Event, error)
	Delete(ctx context.Context, id string) error
}

// Service implements Gateway on top of an Events store and a Policy.
type Service struct {
	events Events
	policy Policy
	clock  clock.Clock
	logger *logging.Logger
}

// NewService wires a Service. A nil clock means wall time.
func NewService(events Events, policy Policy, clk clock.Clock, logger *logging.Logger) *Service {
	if events == nil {
		panic("calendar: events store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		events: events,
		policy: policy,
		clock:  clock.OrSystem(clk),
		logger: logger,
	}
}

// Policy returns the scheduling rules in force.
func (s *Service) Policy() Policy { return s.policy }

func (s *Service) IsHoliday(date string) bool {
	return s.policy.IsHoliday(date)
}

func (s *Service) AvailableSlots(ctx context.Context, date string, treatment treatments.Code) ([]string, error) {
	starts, err := s.freeStarts(ctx, date, treatment, "")
	if err != nil {
		return nil, err
	}
	return displayTimes(starts, s.policy.Location), nil
}

// freeStarts validates the date and returns open start times, ignoring the
// event named by skipID so an appointment can move within its own window.
func (s *Service) freeStarts(ctx context.Context, date string, treatment treatments.Code, skipID string) ([]time.Time, error) {
	day, err := s.policy.ParseDay(date)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if err := s.policy.ValidateDate(day, now); err != nil {
		return nil, err
	}
	if !treatment.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTreatment, treatment)
	}
	open, closing, _ := s.policy.Window(day)

	evs, err := s.events.List(ctx, open, closing)
	if err != nil {
		return nil, &GatewayError{Op: "list events", Err: err}
	}
	busy := make([]Interval, 0, len(evs))
	for _, ev := range evs {
		if ev.ID == skipID && skipID != "" {
			continue
		}
		busy = append(busy, Interval{Start: ev.Start, End: ev.End})
	}
	return s.policy.Slots(day, treatment, busy, now)
}

func (s *Service) Book(ctx context.Context, req BookingRequest) (*Booking, error) {
	if strings.TrimSpace(req.CustomerID) == "" {
		return nil, fmt.Errorf("%w: customer number required", ErrInvalidInput)
	}
	existing, err := s.ListAppointments(ctx, req.CustomerID, true)
	if err != nil {
		return nil, err
	}
	if s.policy.MaxActive > 0 && len(existing) >= s.policy.MaxActive {
		s.logger.Info("calendar: capacity reached", "customer", logging.MaskPhone(req.CustomerID), "active", len(existing))
		return nil, ErrCapacity
	}

	start, err := s.instant(req.Date, req.Time)
	if err != nil {
		return nil, err
	}
	if s.policy.IsHoliday(req.Date) {
		return nil, ErrHoliday
	}
	if start.Before(s.clock.Now()) {
		return nil, ErrPastDate
	}

	free, err := s.freeStarts(ctx, req.Date, req.Treatment, "")
	if err != nil {
		return nil, err
	}
	if !containsInstant(free, start) {
		return nil, &SlotUnavailableError{
			Requested:    displayTime(start, s.policy.Location),
			Alternatives: displayTimes(free, s.policy.Location),
		}
	}

	length, _ := req.Treatment.Duration()
	ev, err := s.events.Insert(ctx, Event{
		Summary:     eventSummary(req.Treatment, req.Name),
		Description: eventDescription(req.Treatment, req.Name, req.CustomerID),
		Start:       start,
		End:         start.Add(length),
	})
	if err != nil {
		return nil, &GatewayError{Op: "insert event", Err: err}
	}
	s.logger.Info("calendar: appointment booked",
		"id", ev.ID,
		"customer", logging.MaskPhone(req.CustomerID),
		"treatment", req.Treatment,
		"start", start.Format(time.RFC3339),
	)
	return &Booking{
		ID:        ev.ID,
		Treatment: req.Treatment,
		Date:      req.Date,
		Time:      displayTime(start, s.policy.Location),
		Duration:  length,
		Start:     start,
		Link:      ev.Link,
	}, nil
}

func (s *Service) Cancel(ctx context.Context, id string) error {
	if err := s.events.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return &GatewayError{Op: "delete event", Err: err}
	}
	s.logger.Info("calendar: appointment cancelled", "id", id)
	return nil
}

func (s *Service) Reschedule(ctx context.Context, id, newDate, newTime string) (*Booking, error) {
	ev, err := s.events.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, &GatewayError{Op: "get event", Err: err}
	}
	treatment := treatmentFromSummary(ev.Summary)

	start, err := s.instant(newDate, newTime)
	if err != nil {
		return nil, err
	}
	free, err := s.freeStarts(ctx, newDate, treatment, id)
	if err != nil {
		return nil, err
	}
	if !containsInstant(free, start) {
		return nil, &SlotUnavailableError{
			Requested:    displayTime(start, s.policy.Location),
			Alternatives: displayTimes(free, s.policy.Location),
		}
	}

	length, _ := treatment.Duration()
	ev.Start = start
	ev.End = start.Add(length)
	ev.AllDay = false
	updated, err := s.events.Update(ctx, ev)
	if err != nil {
		return nil, &GatewayError{Op: "update event", Err: err}
	}
	s.logger.Info("calendar: appointment rescheduled", "id", id, "start", start.Format(time.RFC3339))
	return &Booking{
		ID:        updated.ID,
		Treatment: treatment,
		Date:      newDate,
		Time:      displayTime(start, s.policy.Location),
		Duration:  length,
		Start:     start,
		Link:      updated.Link,
	}, nil
}

func (s *Service) ListAppointments(ctx context.Context, customerID string, futureOnly bool) ([]Appointment, error) {
	var from time.Time
	if futureOnly {
		from = s.clock.Now()
	}
	evs, err := s.events.List(ctx, from, time.Time{})
	if err != nil {
		return nil, &GatewayError{Op: "list events", Err: err}
	}
	var out []Appointment
	for _, ev := range evs {
		if phoneFromDescription(ev.Description) != customerID {
			continue
		}
		out = append(out, s.toAppointment(ev))
	}
	return out, nil
}

func (s *Service) toAppointment(ev Event) Appointment {
	local := ev.Start.In(s.policy.Location)
	return Appointment{
		ID:             ev.ID,
		Treatment:      treatmentFromSummary(ev.Summary),
		Date:           datetime.ISODate(local),
		Time:           displayTime(local, s.policy.Location),
		Duration:       ev.End.Sub(ev.Start),
		CustomerName:   nameFromSummary(ev.Summary),
		CustomerNumber: phoneFromDescription(ev.Description),
		Start:          ev.Start,
	}
}

func (s *Service) instant(date, clockText string) (time.Time, error) {
	start, err := datetime.Combine(date, clockText, s.policy.Location)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return start, nil
}

const summaryPrefix = "Appointment: "

func eventSummary(code treatments.Code, name string) string {
	return fmt.Sprintf("%s%s - %s", summaryPrefix, code.Display(), name)
}

func eventDescription(code treatments.Code, name, phone string) string {
	return fmt.Sprintf("Treatment: %s\nCustomer: %s\nPhone: %s", code, name, phone)
}

// treatmentFromSummary reads "Appointment: <Treatment> - <Name>", falling
// back to the keyword tables for hand-entered titles.
func treatmentFromSummary(summary string) treatments.Code {
	part := summary
	if _, after, ok := strings.Cut(summary, ":"); ok {
		part = after
	}
	if before, _, ok := strings.Cut(part, " - "); ok {
		part = before
	}
	return treatments.Normalize(strings.TrimSpace(part))
}

func nameFromSummary(summary string) string {
	if _, after, ok := strings.Cut(summary, " - "); ok {
		return strings.TrimSpace(after)
	}
	return ""
}

func phoneFromDescription(desc string) string {
	for _, line := range strings.Split(desc, "\n") {
		if after, ok := strings.CutPrefix(strings.TrimSpace(line), "Phone:"); ok {
			return strings.TrimSpace(after)
		}
	}
	return ""
}

func containsInstant(list []time.Time, t time.Time) bool {
	for _, c := range list {
		if c.Equal(t) {
			return true
		}
	}
	return false
}

func displayTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("3:04 PM")
}

func displayTimes(ts []time.Time, loc *time.Location) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, displayTime(t, loc))
	}
	return out
}
