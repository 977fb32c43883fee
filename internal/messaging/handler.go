package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/clinic-booking-assistant/internal/messaging/whatsapp"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

const maxWebhookBody = 1 << 20

var webhookTracer = otel.Tracer("clinic.internal.messaging.webhook")

// MessageProcessor is the pipeline behind the webhook.
type MessageProcessor interface {
	Process(ctx context.Context, customerID, text string) (Result, error)
}

// LatencyRecorder observes webhook handling time.
type LatencyRecorder interface {
	ObserveWebhookLatency(status string, seconds float64)
}

// Handler serves the WhatsApp webhook.
type Handler struct {
	processor MessageProcessor
	latency   LatencyRecorder
	logger    *logging.Logger
}

func NewHandler(processor MessageProcessor, latency LatencyRecorder, logger *logging.Logger) *Handler {
	if processor == nil {
		panic("messaging: processor cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{processor: processor, latency: latency, logger: logger}
}

type webhookResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Webhook handles POST /webhook. Messages are processed before answering.
// Anything WhatsApp should not redeliver is acknowledged with 200, including
// payloads without a customer text.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := webhookTracer.Start(r.Context(), "messaging.whatsapp.webhook")
	defer span.End()

	status := "success"
	defer func() {
		if h.latency != nil {
			h.latency.ObserveWebhookLatency(status, time.Since(start).Seconds())
		}
	}()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		status = "error"
		h.logger.Error("failed to read webhook body", "error", err)
		writeJSON(w, http.StatusBadRequest, webhookResponse{Status: status, Message: "Invalid body"})
		return
	}

	msg, err := whatsapp.ParseInbound(body)
	switch {
	case errors.Is(err, whatsapp.ErrNotWhatsApp), errors.Is(err, whatsapp.ErrNoMessage):
		status = "ignored"
		h.logger.Debug("webhook without customer text ignored", "reason", err)
		writeJSON(w, http.StatusOK, webhookResponse{Status: status})
		return
	case err != nil:
		status = "error"
		span.RecordError(err)
		h.logger.Warn("invalid webhook payload", "error", err)
		writeJSON(w, http.StatusBadRequest, webhookResponse{Status: status, Message: "Invalid JSON"})
		return
	}
	span.SetAttributes(attribute.String("whatsapp.message_id", msg.ID))
	h.logger.WithCustomer(msg.From).Info("whatsapp message received", "message_id", msg.ID, "length", len(msg.Body))

	res, err := h.processor.Process(ctx, msg.From, msg.Body)
	if err != nil {
		status = "error"
		span.RecordError(err)
		writeJSON(w, http.StatusOK, webhookResponse{Status: status, Message: err.Error()})
		return
	}
	if res.Source == SourceRateLimit {
		status = "rate_limited"
		writeJSON(w, http.StatusOK, webhookResponse{Status: "error", Message: "Rate limit exceeded"})
		return
	}
	writeJSON(w, http.StatusOK, webhookResponse{Status: status})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
