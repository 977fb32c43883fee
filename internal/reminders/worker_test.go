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

	"github.com/wolfman30/clinic-booking-assistant/internal/clock"
	"github.com/wolfman30/clinic-booking-assistant/internal/messaging/templates"
	"github.com/wolfman30/clinic-booking-assistant/internal/messaging/whatsapp"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

type recordingSender struct {
	to   []string
	body []string
	err  error
}

func (s *recordingSender) SendText(_ context.Context, to, body string) (*whatsapp.SendResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.to = append(s.to, to)
	s.body = append(s.body, body)
	return &whatsapp.SendResult{MessageID: "wamid.reminder"}, nil
}

type statusCounter map[string]int

func (c statusCounter) ObserveReminder(status string) { c[status]++ }

func newTestWorker(t *testing.T, now time.Time, sender Sender) (*Worker, pgxmock.PgxPoolIface, statusCounter) {
	t.Helper()
	store, mock := newMockStore(t)
	counts := statusCounter{}
	w := NewWorker(store, sender, templates.NewProvider(nil, nil), logging.Discard()).
		WithClock(clock.NewFake(now)).
		WithRecorder(counts)
	return w, mock, counts
}

func TestWorkerSendsDueReminders(t *testing.T) {
	now := time.Date(2025, 6, 3, 14, 0, 0, 0, sgt)
	sender := &recordingSender{}
	w, mock, counts := newTestWorker(t, now, sender)
	id := uuid.New()

	rows := reminderRow(pgxmock.NewRows(reminderCols), id, "evt-1", now.Add(time.Hour), StatusPending, (*time.Time)(nil))
	mock.ExpectQuery("FROM appointment_reminders").WithArgs(now, 100).WillReturnRows(rows)
	mock.ExpectExec("UPDATE appointment_reminders SET status = 'sent'").
		WithArgs(pgxmock.AnyArg(), id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	n, err := w.ProcessDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, sender.body, 1)
	assert.Equal(t, "6591234567", sender.to[0])
	assert.Contains(t, sender.body[0], "Botox")
	assert.Contains(t, sender.body[0], "03/06/2025")
	assert.Contains(t, sender.body[0], "3:00 PM")
	assert.Equal(t, 1, counts["sent"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkerNothingDue(t *testing.T) {
	now := time.Date(2025, 6, 3, 14, 0, 0, 0, sgt)
	sender := &recordingSender{}
	w, mock, _ := newTestWorker(t, now, sender)

	mock.ExpectQuery("FROM appointment_reminders").WithArgs(now, 100).WillReturnRows(pgxmock.NewRows(reminderCols))

	n, err := w.ProcessDue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, sender.body)
}

func TestWorkerExpiresStartedAppointments(t *testing.T) {
	now := time.Date(2025, 6, 3, 16, 0, 0, 0, sgt)
	sender := &recordingSender{}
	w, mock, counts := newTestWorker(t, now, sender)
	id := uuid.New()

	rows := reminderRow(pgxmock.NewRows(reminderCols), id, "evt-1", now.Add(-time.Hour), StatusPending, (*time.Time)(nil))
	mock.ExpectQuery("FROM appointment_reminders").WithArgs(now, 100).WillReturnRows(rows)
	mock.ExpectExec("UPDATE appointment_reminders SET status = 'failed'").
		WithArgs(pgxmock.AnyArg(), id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	n, err := w.ProcessDue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, sender.body)
	assert.Equal(t, 1, counts["expired"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkerSendFailureMarksFailed(t *testing.T) {
	now := time.Date(2025, 6, 3, 14, 0, 0, 0, sgt)
	sender := &recordingSender{err: errors.New("graph api down")}
	w, mock, counts := newTestWorker(t, now, sender)
	id := uuid.New()

	rows := reminderRow(pgxmock.NewRows(reminderCols), id, "evt-1", now.Add(time.Hour), StatusPending, (*time.Time)(nil))
	mock.ExpectQuery("FROM appointment_reminders").WithArgs(now, 100).WillReturnRows(rows)
	mock.ExpectExec("UPDATE appointment_reminders SET status = 'failed'").
		WithArgs(pgxmock.AnyArg(), id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	n, err := w.ProcessDue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, counts["failed"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkerListError(t *testing.T) {
	now := time.Date(2025, 6, 3, 14, 0, 0, 0, sgt)
	w, mock, _ := newTestWorker(t, now, &recordingSender{})
	mock.ExpectQuery("FROM appointment_reminders").WillReturnError(errors.New("connection refused"))

	_, err := w.ProcessDue(context.Background())
	require.Error(t, err)
}

func TestWorkerRunStopsOnCancel(t *testing.T) {
	now := time.Date(2025, 6, 3, 14, 0, 0, 0, sgt)
	w, mock, _ := newTestWorker(t, now, &recordingSender{})
	mock.ExpectQuery("FROM appointment_reminders").WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).WillReturnRows(pgxmock.NewRows(reminderCols))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.WithInterval(time.Hour).Run(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool { return mock.ExpectationsWereMet() == nil }, time.Second, 10*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
