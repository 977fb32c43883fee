package promotions

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

func newTestRouter(t *testing.T) (http.Handler, pgxmock.PgxPoolIface) {
	t.Helper()
	store, mock := newMockStore(t)
	r := chi.NewRouter()
	r.Route("/promotions", NewHandler(store, logging.Discard()).RegisterRoutes)
	return r, mock
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerCreatePromotion(t *testing.T) {
	router, mock := newTestRouter(t)
	mock.ExpectExec("INSERT INTO weekly_promotions").
		WithArgs(pgxmock.AnyArg(), int(time.Monday), "10:00", "weekly_special_offer", pgxmock.AnyArg(), true, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	rec := serve(router, http.MethodPost, "/promotions/", `{
		"day": "monday",
		"time": "10:00 AM",
		"template_name": "weekly_special_offer",
		"template_parameters": {"body_parameters": ["{{name}}", "20% off"], "header_type": "text", "header_parameters": "This week"}
	}`)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var p Promotion
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, "10:00", p.Time)
	assert.Equal(t, time.Monday, p.Weekday)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandlerCreatePromotionValidation(t *testing.T) {
	router, _ := newTestRouter(t)
	tests := []string{
		`{"day":"funday","time":"10:00","template_name":"x"}`,
		`{"day":"monday","time":"whenever","template_name":"x"}`,
		`{"day":"monday","time":"10:00"}`,
		`not json`,
	}
	for _, body := range tests {
		rec := serve(router, http.MethodPost, "/promotions/", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestHandlerUpsertRecipientDefaultsToOptIn(t *testing.T) {
	router, mock := newTestRouter(t)
	mock.ExpectExec("INSERT INTO promotion_recipients").
		WithArgs("6512345678", "John Doe", true, []string{"facial"}, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	rec := serve(router, http.MethodPost, "/promotions/recipients", `{"phone_number":"+6512345678","name":"John Doe","categories":["facial"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, mock.ExpectationsWereMet())

	rec = serve(router, http.MethodPost, "/promotions/recipients", `{"name":"No Phone"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerDeactivate(t *testing.T) {
	router, mock := newTestRouter(t)
	id := uuid.New()
	mock.ExpectExec("UPDATE weekly_promotions").WithArgs(id).WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	rec := serve(router, http.MethodDelete, "/promotions/"+id.String(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(router, http.MethodDelete, "/promotions/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerListSends(t *testing.T) {
	router, mock := newTestRouter(t)
	occ := time.Date(2025, 6, 2, 2, 0, 0, 0, time.UTC)
	done := occ.Add(time.Minute)
	mock.ExpectQuery("FROM promotion_sends").WithArgs(50).WillReturnRows(
		pgxmock.NewRows([]string{"promotion_id", "template_name", "occurrence", "delivered", "failed", "completed_at"}).
			AddRow(uuid.New(), "weekly_special_offer", occ, 12, 1, &done))

	rec := serve(router, http.MethodGet, "/promotions/sends", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Sends []Send `json:"sends"`
		Count int    `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, 12, body.Sends[0].Delivered)
}
