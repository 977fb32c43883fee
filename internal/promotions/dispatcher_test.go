package promotions

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-booking-assistant/internal/clock"
	"github.com/wolfman30/clinic-booking-assistant/internal/messaging/compliance"
	"github.com/wolfman30/clinic-booking-assistant/internal/messaging/whatsapp"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

type templateLog struct {
	mu      sync.Mutex
	to      []string
	sent    []whatsapp.Template
	failFor string
}

func (l *templateLog) SendTemplate(_ context.Context, to string, tmpl whatsapp.Template) (*whatsapp.SendResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if to == l.failFor {
		return nil, errors.New("recipient not on whatsapp")
	}
	l.to = append(l.to, to)
	l.sent = append(l.sent, tmpl)
	return &whatsapp.SendResult{MessageID: "wamid.promo"}, nil
}

type promoCounter map[string]int

func (c promoCounter) ObservePromotion(status string) { c[status]++ }

func mondayPromotion(t *testing.T) Promotion {
	t.Helper()
	p, err := NewPromotion(time.Monday, "10:00 AM", "weekly_special_offer", TemplateParams{
		Body:        []string{NamePlaceholder, "20% off all facial treatments"},
		HeaderType:  "image",
		HeaderValue: "https://example.com/promo.jpg",
	})
	require.NoError(t, err)
	return *p
}

func newTestDispatcher(t *testing.T, now time.Time, sender TemplateSender) (*Dispatcher, pgxmock.PgxPoolIface, promoCounter) {
	t.Helper()
	store, mock := newMockStore(t)
	counts := promoCounter{}
	d := NewDispatcher(store, sender, sgt, logging.Discard()).
		WithClock(clock.NewFake(now)).
		WithRate(0).
		WithRecorder(counts)
	return d, mock, counts
}

func TestDispatchSendsDuePromotion(t *testing.T) {
	occ := time.Date(2025, 6, 2, 10, 0, 0, 0, sgt)
	sender := &templateLog{failFor: "6500000000"}
	d, mock, counts := newTestDispatcher(t, occ.Add(2*time.Minute), sender)
	p := mondayPromotion(t)
	created := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM weekly_promotions").WillReturnRows(promotionRow(pgxmock.NewRows(promotionCols), p))
	mock.ExpectExec("INSERT INTO promotion_sends").
		WithArgs(p.ID, p.TemplateName, occ.UTC(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("FROM promotion_recipients").WillReturnRows(pgxmock.NewRows(recipientCols).
		AddRow("6512345678", "John Doe", true, []string{"all"}, created, created).
		AddRow("6587654321", "", true, []string{"all"}, created, created).
		AddRow("6500000000", "Gone", true, []string{"all"}, created, created))
	mock.ExpectExec("UPDATE promotion_sends").
		WithArgs(2, 1, pgxmock.AnyArg(), p.ID, occ.UTC()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	n, err := d.Dispatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"6512345678", "6587654321"}, sender.to)
	assert.Equal(t, []string{"John Doe", "20% off all facial treatments"}, sender.sent[0].Body)
	assert.Equal(t, "Valued Customer", sender.sent[1].Body[0])
	assert.Equal(t, "image", sender.sent[0].HeaderType)
	assert.Equal(t, "en_US", sender.sent[0].Language)
	assert.Equal(t, 2, counts["sent"])
	assert.Equal(t, 1, counts["failed"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDispatchSkipsClaimedOccurrence(t *testing.T) {
	occ := time.Date(2025, 6, 2, 10, 0, 0, 0, sgt)
	sender := &templateLog{}
	d, mock, _ := newTestDispatcher(t, occ.Add(time.Minute), sender)
	p := mondayPromotion(t)

	mock.ExpectQuery("FROM weekly_promotions").WillReturnRows(promotionRow(pgxmock.NewRows(promotionCols), p))
	mock.ExpectExec("INSERT INTO promotion_sends").WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).WillReturnResult(pgxmock.NewResult("INSERT", 0))

	n, err := d.Dispatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, sender.to)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDispatchIgnoresStaleOccurrence(t *testing.T) {
	occ := time.Date(2025, 6, 2, 10, 0, 0, 0, sgt)
	sender := &templateLog{}
	d, mock, _ := newTestDispatcher(t, occ.Add(2*time.Hour), sender)

	mock.ExpectQuery("FROM weekly_promotions").WillReturnRows(promotionRow(pgxmock.NewRows(promotionCols), mondayPromotion(t)))

	n, err := d.Dispatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDispatchHoldsDuringQuietHours(t *testing.T) {
	occ := time.Date(2025, 6, 2, 10, 0, 0, 0, sgt)
	sender := &templateLog{}
	d, mock, _ := newTestDispatcher(t, occ.Add(time.Minute), sender)
	quiet, err := compliance.ParseQuietHours("21:00", "10:30", sgt)
	require.NoError(t, err)
	d.WithQuietHours(quiet)

	mock.ExpectQuery("FROM weekly_promotions").WillReturnRows(promotionRow(pgxmock.NewRows(promotionCols), mondayPromotion(t)))

	n, err := d.Dispatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, sender.to)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDispatchScheduleError(t *testing.T) {
	d, mock, _ := newTestDispatcher(t, time.Now(), &templateLog{})
	mock.ExpectQuery("FROM weekly_promotions").WillReturnError(errors.New("relation does not exist"))

	_, err := d.Dispatch(context.Background())
	require.Error(t, err)
}
