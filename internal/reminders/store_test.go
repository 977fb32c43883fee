package reminders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-booking-assistant/internal/treatments"
)

var sgt = time.FixedZone("SGT", 8*3600)

var reminderCols = []string{
	"id", "appointment_id", "customer_id", "treatment", "appointment_date", "appointment_time",
	"starts_at", "remind_at", "status", "sent_at", "created_at", "updated_at",
}

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewStore(mock), mock
}

func reminderRow(rows *pgxmock.Rows, id uuid.UUID, appointmentID string, startsAt time.Time, status Status, sentAt *time.Time) *pgxmock.Rows {
	created := startsAt.Add(-48 * time.Hour)
	return rows.AddRow(
		id, appointmentID, "6591234567", "botox", startsAt.Format("2006-01-02"), "3:00 PM",
		startsAt, startsAt.Add(-time.Hour), string(status), sentAt, created, created,
	)
}

func TestStoreUpsert(t *testing.T) {
	store, mock := newMockStore(t)
	start := time.Date(2025, 6, 3, 15, 0, 0, 0, sgt)
	existing := uuid.New()

	r := &Reminder{
		AppointmentID:   "evt-1",
		CustomerID:      "6591234567",
		Treatment:       treatments.Botox,
		AppointmentDate: "2025-06-03",
		AppointmentTime: "3:00 PM",
		StartsAt:        start,
		RemindAt:        start.Add(-time.Hour),
	}
	mock.ExpectQuery("INSERT INTO appointment_reminders").
		WithArgs(pgxmock.AnyArg(), "evt-1", "6591234567", "botox", "2025-06-03", "3:00 PM",
			start, start.Add(-time.Hour), "pending", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(existing))

	require.NoError(t, store.Upsert(context.Background(), r))
	assert.Equal(t, existing, r.ID)
	assert.Equal(t, StatusPending, r.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreUpsertError(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("INSERT INTO appointment_reminders").WillReturnError(errors.New("connection reset"))

	err := store.Upsert(context.Background(), &Reminder{AppointmentID: "evt-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reminders: upsert reminder")
}

func TestStoreListDue(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2025, 6, 3, 14, 0, 0, 0, sgt)
	id := uuid.New()

	rows := reminderRow(pgxmock.NewRows(reminderCols), id, "evt-1", now.Add(time.Hour), StatusPending, (*time.Time)(nil))
	mock.ExpectQuery("FROM appointment_reminders").WithArgs(now, 100).WillReturnRows(rows)

	due, err := store.ListDue(context.Background(), now, 0)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, id, due[0].ID)
	assert.Equal(t, treatments.Botox, due[0].Treatment)
	assert.Equal(t, StatusPending, due[0].Status)
	assert.Nil(t, due[0].SentAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreListByCustomer(t *testing.T) {
	store, mock := newMockStore(t)
	start := time.Date(2025, 6, 3, 15, 0, 0, 0, sgt)
	sentAt := start.Add(-time.Hour)

	rows := pgxmock.NewRows(reminderCols)
	reminderRow(rows, uuid.New(), "evt-2", start, StatusSent, &sentAt)
	reminderRow(rows, uuid.New(), "evt-1", start.Add(-24*time.Hour), StatusCancelled, (*time.Time)(nil))
	mock.ExpectQuery("WHERE customer_id = \\$1").WithArgs("6591234567", 50).WillReturnRows(rows)

	list, err := store.ListByCustomer(context.Background(), "6591234567", 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, StatusSent, list[0].Status)
	require.NotNil(t, list[0].SentAt)
	assert.True(t, list[0].SentAt.Equal(sentAt))
	assert.Equal(t, StatusCancelled, list[1].Status)
}

func TestStoreMarkSent(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectExec("UPDATE appointment_reminders SET status = 'sent'").
		WithArgs(pgxmock.AnyArg(), id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, store.MarkSent(context.Background(), id))

	mock.ExpectExec("UPDATE appointment_reminders SET status = 'sent'").
		WithArgs(pgxmock.AnyArg(), id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	err := store.MarkSent(context.Background(), id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no pending reminder")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreCancelByAppointment(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("UPDATE appointment_reminders SET status = 'cancelled'").
		WithArgs(pgxmock.AnyArg(), "evt-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	n, err := store.CancelByAppointment(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreStats(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("FROM appointment_reminders").
		WillReturnRows(pgxmock.NewRows([]string{"pending", "sent", "failed", "cancelled"}).AddRow(int64(3), int64(10), int64(1), int64(2)))

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Pending: 3, Sent: 10, Failed: 1, Cancelled: 2}, *stats)
}
