package reminders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-booking-assistant/internal/calendar"
	"github.com/wolfman30/clinic-booking-assistant/internal/clock"
	"github.com/wolfman30/clinic-booking-assistant/internal/treatments"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

func booking(id string, start time.Time) calendar.Booking {
	return calendar.Booking{
		ID:        id,
		Treatment: treatments.Botox,
		Date:      start.Format("2006-01-02"),
		Time:      "3:00 PM",
		Duration:  30 * time.Minute,
		Start:     start,
	}
}

func TestSchedulerBookedSchedulesLeadTimeBefore(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2025, 6, 2, 9, 0, 0, 0, sgt)
	s := NewScheduler(store, clock.NewFake(now), logging.Discard())
	start := time.Date(2025, 6, 3, 15, 0, 0, 0, sgt)

	mock.ExpectQuery("INSERT INTO appointment_reminders").
		WithArgs(pgxmock.AnyArg(), "evt-1", "6591234567", "botox", "2025-06-03", "3:00 PM",
			start, start.Add(-time.Hour), "pending", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(uuid.New()))

	s.AppointmentBooked(context.Background(), "6591234567", booking("evt-1", start))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSchedulerCustomLeadTime(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2025, 6, 2, 9, 0, 0, 0, sgt)
	s := NewScheduler(store, clock.NewFake(now), logging.Discard()).WithLeadTime(24 * time.Hour)
	start := time.Date(2025, 6, 4, 11, 0, 0, 0, sgt)

	mock.ExpectQuery("INSERT INTO appointment_reminders").
		WithArgs(pgxmock.AnyArg(), "evt-1", "6591234567", "botox", "2025-06-04", "3:00 PM",
			start, start.Add(-24*time.Hour), "pending", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(uuid.New()))

	s.AppointmentBooked(context.Background(), "6591234567", booking("evt-1", start))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSchedulerSkipsAppointmentsWithinLeadTime(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2025, 6, 2, 14, 30, 0, 0, sgt)
	s := NewScheduler(store, clock.NewFake(now), logging.Discard())

	s.AppointmentBooked(context.Background(), "6591234567", booking("evt-1", now.Add(45*time.Minute)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSchedulerRescheduleMovesReminder(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2025, 6, 2, 9, 0, 0, 0, sgt)
	s := NewScheduler(store, clock.NewFake(now), logging.Discard())
	start := time.Date(2025, 6, 5, 16, 0, 0, 0, sgt)

	mock.ExpectQuery("ON CONFLICT \\(appointment_id\\) DO UPDATE").
		WithArgs(pgxmock.AnyArg(), "evt-1", "6591234567", "botox", "2025-06-05", "3:00 PM",
			start, start.Add(-time.Hour), "pending", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(uuid.New()))

	s.AppointmentRescheduled(context.Background(), "6591234567", booking("evt-1", start))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSchedulerRescheduleTooSoonCancels(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2025, 6, 2, 14, 30, 0, 0, sgt)
	s := NewScheduler(store, clock.NewFake(now), logging.Discard())

	mock.ExpectExec("UPDATE appointment_reminders SET status = 'cancelled'").
		WithArgs(pgxmock.AnyArg(), "evt-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	s.AppointmentRescheduled(context.Background(), "6591234567", booking("evt-1", now.Add(30*time.Minute)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSchedulerCancelled(t *testing.T) {
	store, mock := newMockStore(t)
	s := NewScheduler(store, nil, logging.Discard())

	mock.ExpectExec("UPDATE appointment_reminders SET status = 'cancelled'").
		WithArgs(pgxmock.AnyArg(), "evt-9").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	s.AppointmentCancelled(context.Background(), "6591234567", "evt-9")
	require.NoError(t, mock.ExpectationsWereMet())
}
