package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

const inboundText = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "contacts": [{"wa_id": "6591234567", "profile": {"name": "Jane"}}],
        "messages": [{
          "id": "wamid.in",
          "from": "6591234567",
          "timestamp": "1748826000",
          "type": "text",
          "text": {"body": "cancel 2"}
        }]
      }
    }]
  }]
}`

type stubProcessor struct {
	res   Result
	err   error
	calls []string
}

func (s *stubProcessor) Process(_ context.Context, customerID, text string) (Result, error) {
	s.calls = append(s.calls, customerID+": "+text)
	return s.res, s.err
}

type latencyLog struct {
	statuses []string
}

func (l *latencyLog) ObserveWebhookLatency(status string, seconds float64) {
	l.statuses = append(l.statuses, status)
}

func postWebhook(t *testing.T, h *Handler, body string) (int, webhookResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Webhook(rec, req)

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var resp webhookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func TestWebhookProcessesText(t *testing.T) {
	proc := &stubProcessor{res: Result{Source: SourceDialogue, Sent: true}}
	lat := &latencyLog{}
	h := NewHandler(proc, lat, logging.Discard())

	code, resp := postWebhook(t, h, inboundText)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, []string{"6591234567: cancel 2"}, proc.calls)
	assert.Equal(t, []string{"success"}, lat.statuses)
}

func TestWebhookIgnoresStatusUpdates(t *testing.T) {
	proc := &stubProcessor{}
	lat := &latencyLog{}
	h := NewHandler(proc, lat, logging.Discard())

	body := `{"object":"whatsapp_business_account","entry":[{"changes":[{"value":{"statuses":[{"id":"wamid.out","status":"delivered"}]}}]}]}`
	code, resp := postWebhook(t, h, body)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ignored", resp.Status)
	assert.Empty(t, proc.calls)
	assert.Equal(t, []string{"ignored"}, lat.statuses)
}

func TestWebhookIgnoresOtherObjects(t *testing.T) {
	proc := &stubProcessor{}
	h := NewHandler(proc, nil, logging.Discard())

	code, resp := postWebhook(t, h, `{"object":"instagram","entry":[]}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ignored", resp.Status)
	assert.Empty(t, proc.calls)
}

func TestWebhookInvalidJSON(t *testing.T) {
	proc := &stubProcessor{}
	lat := &latencyLog{}
	h := NewHandler(proc, lat, logging.Discard())

	code, resp := postWebhook(t, h, `{"object":`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "Invalid JSON", resp.Message)
	assert.Equal(t, []string{"error"}, lat.statuses)
}

func TestWebhookRateLimited(t *testing.T) {
	proc := &stubProcessor{res: Result{Source: SourceRateLimit, Sent: true}}
	lat := &latencyLog{}
	h := NewHandler(proc, lat, logging.Discard())

	code, resp := postWebhook(t, h, inboundText)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "Rate limit exceeded", resp.Message)
	assert.Equal(t, []string{"rate_limited"}, lat.statuses)
}

func TestWebhookProcessError(t *testing.T) {
	proc := &stubProcessor{err: errors.New("messaging: failed to send reply: graph api down")}
	h := NewHandler(proc, nil, logging.Discard())

	code, resp := postWebhook(t, h, inboundText)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "error", resp.Status)
	assert.Contains(t, resp.Message, "graph api down")
}

func TestNewHandlerRequiresProcessor(t *testing.T) {
	assert.Panics(t, func() { NewHandler(nil, nil, nil) })
}
