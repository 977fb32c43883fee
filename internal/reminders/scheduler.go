package reminders

import (
	"context"
	"time"

	"github.com/wolfman30/clinic-booking-assistant/internal/calendar"
	"github.com/wolfman30/clinic-booking-assistant/internal/clock"
	"github.com/wolfman30/clinic-booking-assistant/internal/dialogue"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

const DefaultLeadTime = time.Hour

// Scheduler keeps reminders in step with bookings made through the chat.
type Scheduler struct {
	store  *Store
	lead   time.Duration
	clock  clock.Clock
	logger *logging.Logger
}

var _ dialogue.BookingObserver = (*Scheduler)(nil)

func NewScheduler(store *Store, clk clock.Clock, logger *logging.Logger) *Scheduler {
	if store == nil {
		panic("reminders: store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Scheduler{store: store, lead: DefaultLeadTime, clock: clock.OrSystem(clk), logger: logger}
}

// WithLeadTime sets how long before the appointment the reminder goes out.
func (s *Scheduler) WithLeadTime(d time.Duration) *Scheduler {
	if d > 0 {
		s.lead = d
	}
	return s
}

// AppointmentBooked schedules a reminder unless its send time has already
// passed.
func (s *Scheduler) AppointmentBooked(ctx context.Context, customerID string, booking calendar.Booking) {
	log := s.logger.WithCustomer(customerID)
	remindAt := booking.Start.Add(-s.lead)
	if !remindAt.After(s.clock.Now()) {
		log.Info("reminder skipped, appointment too soon", "appointment_id", booking.ID)
		return
	}
	r := reminderFor(customerID, booking, remindAt)
	if err := s.store.Upsert(ctx, r); err != nil {
		log.Error("failed to schedule reminder", "appointment_id", booking.ID, "error", err)
		return
	}
	log.Info("reminder scheduled", "id", r.ID, "appointment_id", booking.ID, "remind_at", remindAt.Format(time.RFC3339))
}

// AppointmentRescheduled moves the reminder to the new time. A reminder that
// would now be late is cancelled instead.
func (s *Scheduler) AppointmentRescheduled(ctx context.Context, customerID string, booking calendar.Booking) {
	remindAt := booking.Start.Add(-s.lead)
	if remindAt.After(s.clock.Now()) {
		s.AppointmentBooked(ctx, customerID, booking)
		return
	}
	s.AppointmentCancelled(ctx, customerID, booking.ID)
}

func (s *Scheduler) AppointmentCancelled(ctx context.Context, customerID, appointmentID string) {
	log := s.logger.WithCustomer(customerID)
	n, err := s.store.CancelByAppointment(ctx, appointmentID)
	if err != nil {
		log.Error("failed to cancel reminder", "appointment_id", appointmentID, "error", err)
		return
	}
	if n > 0 {
		log.Info("reminder cancelled", "appointment_id", appointmentID)
	}
}

func reminderFor(customerID string, b calendar.Booking, remindAt time.Time) *Reminder {
	return &Reminder{
		AppointmentID:   b.ID,
		CustomerID:      customerID,
		Treatment:       b.Treatment,
		AppointmentDate: b.Date,
		AppointmentTime: b.Time,
		StartsAt:        b.Start,
		RemindAt:        remindAt,
	}
}
