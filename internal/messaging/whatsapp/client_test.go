package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

func newTestClient(t *testing.T, url string, retries int) *Client {
	t.Helper()
	c, err := New(Config{
		BaseURL:       url,
		PhoneNumberID: "1234567890",
		APIToken:      "token",
		MaxRetries:    retries,
		Backoff:       time.Millisecond,
		Logger:        logging.Discard(),
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return c
}

func TestSendText(t *testing.T) {
	var got sendRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/1234567890/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer token" {
			t.Errorf("unexpected auth header %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode req: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"messaging_product": "whatsapp",
			"contacts":          []map[string]any{{"input": "6591234567", "wa_id": "6591234567"}},
			"messages":          []map[string]any{{"id": "wamid.abc"}},
		})
	}))
	defer ts.Close()

	res, err := newTestClient(t, ts.URL, 0).SendText(context.Background(), "+6591234567", "hello")
	if err != nil {
		t.Fatalf("SendText error: %v", err)
	}
	if res.MessageID != "wamid.abc" || res.WaID != "6591234567" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if got.MessagingProduct != "whatsapp" || got.Type != "text" || got.To != "6591234567" || got.Text.Body != "hello" {
		t.Fatalf("unexpected request body: %+v", got)
	}
}

func TestSendTextValidates(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1", 0)
	if _, err := c.SendText(context.Background(), "", "hi"); err == nil {
		t.Fatal("expected error for empty recipient")
	}
	if _, err := c.SendText(context.Background(), "6591234567", "  "); err == nil {
		t.Fatal("expected error for empty body")
	}
}

func TestSendTextRetriesServerErrors(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"messages": []map[string]any{{"id": "wamid.retry"}}})
	}))
	defer ts.Close()

	res, err := newTestClient(t, ts.URL, 2).SendText(context.Background(), "6591234567", "hello")
	if err != nil {
		t.Fatalf("SendText error: %v", err)
	}
	if res.MessageID != "wamid.retry" {
		t.Fatalf("unexpected message id %q", res.MessageID)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("expected 2 calls, got %d", n)
	}
}

func TestSendTextAPIError(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "Invalid parameter", "type": "OAuthException", "code": 100, "fbtrace_id": "trace"},
		})
	}))
	defer ts.Close()

	_, err := newTestClient(t, ts.URL, 3).SendText(context.Background(), "6591234567", "hello")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Code != 100 || apiErr.Message != "Invalid parameter" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("client errors must not be retried, got %d calls", n)
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	if _, err := New(Config{PhoneNumberID: "1"}); err == nil {
		t.Fatal("expected error without token")
	}
	if _, err := New(Config{APIToken: "t"}); err == nil {
		t.Fatal("expected error without phone number id")
	}
}
