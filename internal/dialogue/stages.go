package dialogue

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/wolfman30/clinic-booking-assistant/internal/calendar"
	"github.com/wolfman30/clinic-booking-assistant/internal/datetime"
	"github.com/wolfman30/clinic-booking-assistant/internal/intent"
	"github.com/wolfman30/clinic-booking-assistant/internal/messaging/templates"
	"github.com/wolfman30/clinic-booking-assistant/internal/session"
	"github.com/wolfman30/clinic-booking-assistant/internal/treatments"
)

// dateFromMessage prefers the extractor's date and falls back to reading
// the whole message as a date.
func (t *turn) dateFromMessage() string {
	if t.ex.Slots.Date != "" {
		return t.ex.Slots.Date
	}
	if d, ok := datetime.ParseDate(t.text, t.today); ok {
		return datetime.ISODate(d)
	}
	return ""
}

// timeFromMessage returns the display time in the message, accepting a bare
// reply like "14:30" or "3".
func (t *turn) timeFromMessage() string {
	if t.ex.Slots.Time != "" {
		return t.ex.Slots.Time
	}
	norm, err := datetime.NormalizeTime(t.text)
	if err != nil {
		return ""
	}
	return datetime.DisplayTime(norm)
}

func (t *turn) onDate() (Response, error) {
	iso := t.dateFromMessage()
	if iso == "" {
		return t.rephrase(templates.DateFormatError, nil)
	}
	t.st.Slots.Date = iso
	t.st.Slots = t.st.Slots.Merge(intent.Slots{Time: t.ex.Slots.Time, Name: t.ex.Slots.Name})
	return t.advance()
}

func (t *turn) onTime() (Response, error) {
	tm := t.timeFromMessage()
	if tm == "" {
		if t.ex.Slots.Date != "" {
			// a new date instead of a time: list that day's slots
			t.st.Slots.Date = t.ex.Slots.Date
			return t.advance()
		}
		return t.rephrase(templates.TimeFormatError, nil)
	}
	t.st.Slots.Time = tm
	if t.st.Slots.Name == "" {
		t.st.Slots.Name = t.ex.Slots.Name
	}
	return t.advance()
}

func (t *turn) onName() (Response, error) {
	name := t.ex.Slots.Name
	if name == "" {
		name = t.text
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return t.rephrase(templates.AskName, nil)
	}
	t.st.Slots.Name = name
	return t.confirm()
}

func (t *turn) onTreatment() (Response, error) {
	code := t.ex.Slots.Treatment
	if code == treatments.None {
		code, _ = treatments.Parse(t.text)
	}
	if code == treatments.None {
		return t.rephrase(templates.UnknownTreatment, nil)
	}
	t.st.Slots.Treatment = code
	t.st.Slots = t.st.Slots.Merge(t.ex.Slots)
	return t.advance()
}

func (t *turn) confirm() (Response, error) {
	params := t.slotParams()
	params["Name"] = t.customerName()
	params["Number"] = t.customerID
	return t.enter(session.StageAwaitingConfirmation, templates.BookingConfirmation, params)
}

func (t *turn) customerName() string {
	if t.st.Slots.Name != "" {
		return t.st.Slots.Name
	}
	return t.e.defaultName
}

// onConfirmation ignores anything that is not a clear yes or no; the
// customer may still be reading the summary. A reply naming a different
// treatment, date or time is a change request, never a yes.
func (t *turn) onConfirmation() (Response, error) {
	answer := intent.ParseAnswer(t.text)
	if t.revisesBooking() {
		answer = intent.Unclear
	}
	switch answer {
	case intent.Yes:
		return t.commit()
	case intent.No:
		t.log.Info("dialogue booking declined")
		return t.finish(templates.BookingCanceled, nil)
	}
	t.st.Touch(t.now)
	if err := t.e.states.Set(t.ctx, t.st); err != nil {
		return Response{}, fmt.Errorf("dialogue: failed to save state: %w", err)
	}
	return Response{Outcome: OutcomeSilent, Stage: t.stage()}, nil
}

// revisesBooking reports whether the message names a treatment, date or time
// other than the one awaiting confirmation. The name is not compared.
func (t *turn) revisesBooking() bool {
	got, held := t.ex.Slots, t.st.Slots
	return got.Treatment != treatments.None && got.Treatment != held.Treatment ||
		got.Date != "" && got.Date != held.Date ||
		got.Time != "" && got.Time != held.Time
}

func (t *turn) commit() (Response, error) {
	s := t.st.Slots
	booking, err := t.e.gateway.Book(t.ctx, calendar.BookingRequest{
		Name:       t.customerName(),
		CustomerID: t.customerID,
		Date:       s.Date,
		Time:       s.Time,
		Treatment:  s.Treatment,
	})
	if err != nil {
		return t.bookingFailed(err)
	}

	t.log.Info("dialogue booking confirmed", "appointment_id", booking.ID, "treatment", booking.Treatment, "date", booking.Date)
	if t.e.observer != nil {
		t.e.observer.AppointmentBooked(t.ctx, t.customerID, *booking)
	}
	return t.finish(templates.BookingSuccess, templates.Params{
		"Treatment": booking.Treatment.Display(),
		"Date":      datetime.DisplayDate(booking.Date),
		"Time":      booking.Time,
		"Duration":  displayDuration(booking.Duration),
	})
}

// bookingFailed clears the dialogue, except when the slot was taken in the
// meantime: then the customer picks another time for the same day.
func (t *turn) bookingFailed(err error) (Response, error) {
	var taken *calendar.SlotUnavailableError
	switch {
	case errors.As(err, &taken):
		return t.offerAlternatives(taken, session.StageWaitingForTime, session.StageWaitingForDate)
	case errors.Is(err, calendar.ErrCapacity):
		t.log.Info("dialogue booking refused at capacity")
		return t.finish(templates.CapacityReached, templates.Params{"Max": t.e.policy.MaxActive})
	case calendar.IsRuleViolation(err):
		return t.finish(ruleKey(err), t.ruleParams())
	}
	t.log.Error("dialogue booking failed", "error", err)
	return t.finish(templates.BookingError, templates.Params{"Error": humanize(err)})
}

// offerAlternatives handles a taken slot. With alternatives left the time is
// re-asked in timeStage; otherwise the date is re-asked in dateStage.
func (t *turn) offerAlternatives(taken *calendar.SlotUnavailableError, timeStage, dateStage session.Stage) (Response, error) {
	date := t.st.Slots.Date
	t.st.Slots.Time = ""
	if len(taken.Alternatives) == 0 {
		t.st.Slots.Date = ""
		return t.enter(dateStage, templates.NoAvailableSlots, templates.Params{"Date": datetime.DisplayDate(date)})
	}
	requested := taken.Requested
	if requested == "" {
		requested = t.ex.Slots.Time
	}
	return t.enter(timeStage, templates.AlternativeTimes, templates.Params{
		"Time":  requested,
		"Date":  datetime.DisplayDate(date),
		"Slots": formatSlots(taken.Alternatives),
	})
}

// SelectionError is a reply that does not pick one of the listed
// appointments.
type SelectionError struct {
	Input string
	Count int
	// NotNumber is set when the reply was not a number at all.
	NotNumber bool
}

func (e *SelectionError) Error() string {
	if e.NotNumber {
		return fmt.Sprintf("dialogue: %q is not an appointment number", e.Input)
	}
	return fmt.Sprintf("dialogue: %q is not between 1 and %d", e.Input, e.Count)
}

func (e *SelectionError) Unwrap() error { return ErrSelection }

// parseSelection reads a 1-based appointment number and returns its index.
func parseSelection(text string, count int) (int, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), "#"))
	raw = strings.TrimRight(raw, ".!")
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &SelectionError{Input: text, Count: count, NotNumber: true}
	}
	if n < 1 || n > count {
		return 0, &SelectionError{Input: text, Count: count}
	}
	return n - 1, nil
}

// maxSelectionErrors is how many unusable picks end a selection.
const maxSelectionErrors = 3

func (t *turn) onSelection() (Response, error) {
	pending := t.st.PendingAppointments
	idx, err := parseSelection(t.text, len(pending))
	if err != nil {
		t.st.SelectionErrors++
		if t.st.SelectionErrors >= maxSelectionErrors {
			t.log.Info("dialogue selection abandoned", "stage", t.st.Stage, "attempts", t.st.SelectionErrors)
			return t.finish(templates.SelectionAbandoned, nil)
		}
		var sel *SelectionError
		if errors.As(err, &sel) && sel.NotNumber {
			return t.rephrase(templates.EnterValidNumber, nil)
		}
		return t.rephrase(templates.InvalidAppointmentIndex, templates.Params{"Count": len(pending)})
	}
	appt := pending[idx]
	if t.st.Stage == session.StageSelectingCancel {
		return t.cancelAppointment(appt)
	}
	t.st.SelectedAppointment = &appt
	t.st.Slots = intent.Slots{}
	return t.enter(session.StageWaitingForRescheduleDate, templates.SelectedToReschedule, appointmentParams(appt))
}

func (t *turn) selected() (*calendar.Appointment, treatments.Code) {
	appt := t.st.SelectedAppointment
	if appt == nil {
		return nil, treatments.None
	}
	code := appt.Treatment
	if !code.Valid() {
		code = treatments.Normalize(string(code))
	}
	return appt, code
}

func (t *turn) onRescheduleDate() (Response, error) {
	appt, code := t.selected()
	if appt == nil {
		return t.lostSelection()
	}
	iso := t.dateFromMessage()
	if iso == "" {
		return t.rephrase(templates.ProvideRescheduleDate, nil)
	}
	if key, bad := t.dateRejection(iso); bad {
		return t.rephrase(key, t.ruleParams())
	}

	slots, err := t.e.gateway.AvailableSlots(t.ctx, iso, code)
	if err != nil {
		if calendar.IsRuleViolation(err) {
			return t.rephrase(ruleKey(err), t.ruleParams())
		}
		return t.gatewayFailure(err, templates.AvailabilityCheckError)
	}
	if len(slots) == 0 {
		return t.rephrase(templates.NoAvailableSlots, templates.Params{"Date": datetime.DisplayDate(iso)})
	}

	t.st.Slots.Date = iso
	if tm := t.ex.Slots.Time; tm != "" {
		t.st.Slots.Time = tm
		return t.reschedule()
	}
	return t.enter(session.StageWaitingForRescheduleTime, templates.AvailableSlots, templates.Params{
		"Treatment": code.Display(),
		"Date":      datetime.DisplayDate(iso),
		"Times":     formatSlots(slots),
	})
}

func (t *turn) onRescheduleTime() (Response, error) {
	if appt, _ := t.selected(); appt == nil {
		return t.lostSelection()
	}
	tm := t.timeFromMessage()
	if tm == "" {
		if t.ex.Slots.Date != "" {
			return t.onRescheduleDate()
		}
		return t.rephrase(templates.TimeFormatError, nil)
	}
	t.st.Slots.Time = tm
	return t.reschedule()
}

func (t *turn) reschedule() (Response, error) {
	appt, _ := t.selected()
	s := t.st.Slots
	booking, err := t.e.gateway.Reschedule(t.ctx, appt.ID, s.Date, s.Time)
	if err != nil {
		var taken *calendar.SlotUnavailableError
		switch {
		case errors.As(err, &taken):
			return t.offerAlternatives(taken, session.StageWaitingForRescheduleTime, session.StageWaitingForRescheduleDate)
		case calendar.IsRuleViolation(err):
			t.st.Slots = intent.Slots{}
			return t.enter(session.StageWaitingForRescheduleDate, ruleKey(err), t.ruleParams())
		}
		t.log.Error("dialogue reschedule failed", "appointment_id", appt.ID, "error", err)
		return t.finish(templates.RescheduleError, templates.Params{"Error": humanize(err)})
	}

	t.log.Info("dialogue appointment rescheduled", "appointment_id", booking.ID, "date", booking.Date)
	if t.e.observer != nil {
		t.e.observer.AppointmentRescheduled(t.ctx, t.customerID, *booking)
	}
	return t.finish(templates.RescheduleSuccess, templates.Params{
		"Date": datetime.DisplayDate(booking.Date),
		"Time": booking.Time,
	})
}

// lostSelection recovers from a reschedule state without an appointment,
// which only a corrupted store can produce.
func (t *turn) lostSelection() (Response, error) {
	t.log.Warn("dialogue reschedule state has no selected appointment")
	return t.finish(templates.NoAppointmentsToResched, nil)
}

func (t *turn) viewAppointments() (Response, error) {
	if err := t.clear(); err != nil {
		return Response{}, err
	}
	appts, err := t.e.gateway.ListAppointments(t.ctx, t.customerID, true)
	if err != nil {
		return t.gatewayFailure(err, templates.GenericError)
	}
	if len(appts) == 0 {
		return t.reply(templates.NoAppointments, nil)
	}
	return t.reply(templates.ViewAppointments, templates.Params{"AppointmentList": formatAppointments(appts)})
}

// resolveReference acts on "cancel N" / "reschedule N" against the live
// appointment list.
func (t *turn) resolveReference(action intent.Action, n int) (Response, error) {
	appts, err := t.e.gateway.ListAppointments(t.ctx, t.customerID, true)
	if err != nil {
		return t.gatewayFailure(err, templates.GenericError)
	}
	if len(appts) == 0 {
		if action == intent.ActionCancel {
			return t.reply(templates.NoAppointmentsToCancel, nil)
		}
		return t.reply(templates.NoAppointmentsToResched, nil)
	}
	if n < 1 || n > len(appts) {
		return t.reply(templates.InvalidAppointmentIndex, templates.Params{"Count": len(appts)})
	}
	appt := appts[n-1]
	if action == intent.ActionCancel {
		return t.cancelAppointment(appt)
	}
	t.st = session.New(t.customerID, session.StageNone, t.now)
	t.st.PendingAppointments = appts
	t.st.SelectedAppointment = &appt
	return t.enter(session.StageWaitingForRescheduleDate, templates.SelectedToReschedule, appointmentParams(appt))
}

func (t *turn) cancelAppointment(appt calendar.Appointment) (Response, error) {
	if err := t.e.gateway.Cancel(t.ctx, appt.ID); err != nil {
		return t.gatewayFailure(err, templates.GenericError)
	}
	t.log.Info("dialogue appointment cancelled", "appointment_id", appt.ID)
	if t.e.observer != nil {
		t.e.observer.AppointmentCancelled(t.ctx, t.customerID, appt.ID)
	}
	return t.finish(templates.CancelSuccess, appointmentParams(appt))
}

func (t *turn) startSelection(stage session.Stage) (Response, error) {
	appts, err := t.e.gateway.ListAppointments(t.ctx, t.customerID, true)
	if err != nil {
		return t.gatewayFailure(err, templates.GenericError)
	}
	if len(appts) == 0 {
		if stage == session.StageSelectingCancel {
			return t.reply(templates.NoAppointmentsToCancel, nil)
		}
		return t.reply(templates.NoAppointmentsToResched, nil)
	}
	t.st = session.New(t.customerID, session.StageNone, t.now)
	t.st.PendingAppointments = appts
	key := templates.WhichToReschedule
	if stage == session.StageSelectingCancel {
		key = templates.WhichToCancel
	}
	return t.enter(stage, key, templates.Params{"AppointmentList": formatAppointments(appts)})
}
