// Package assistant answers the messages the booking dialogue does not
// recognize by handing them, with recent conversation history, to a
// generative model.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/clinic-booking-assistant/internal/messaging/compliance"
	"github.com/wolfman30/clinic-booking-assistant/internal/session"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// ErrEmptyReply is returned when the model answered with no text.
var ErrEmptyReply = errors.New("assistant: model returned an empty reply")

const (
	defaultHistoryTurns = 10
	defaultMaxTokens    = 800
	defaultTemperature  = 0.7
)

// Assistant keeps per-customer history and asks the model for replies.
type Assistant struct {
	llm         LLMClient
	history     session.HistoryStore
	system      string
	turns       int
	maxTokens   int32
	temperature float32
	logger      *logging.Logger
	tracer      trace.Tracer
}

type Option func(*Assistant)

// WithHistoryTurns sets how many stored turns are sent with each request.
func WithHistoryTurns(n int) Option {
	return func(a *Assistant) {
		if n > 0 {
			a.turns = n
		}
	}
}

func WithMaxTokens(n int32) Option {
	return func(a *Assistant) {
		if n > 0 {
			a.maxTokens = n
		}
	}
}

func WithTemperature(t float32) Option {
	return func(a *Assistant) {
		if t > 0 {
			a.temperature = t
		}
	}
}

func New(llm LLMClient, history session.HistoryStore, clinic Clinic, logger *logging.Logger, opts ...Option) (*Assistant, error) {
	if llm == nil {
		return nil, errors.New("assistant: llm client cannot be nil")
	}
	if history == nil {
		return nil, errors.New("assistant: history store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	system, err := SystemPrompt(clinic)
	if err != nil {
		return nil, err
	}
	a := &Assistant{
		llm:         llm,
		history:     history,
		system:      system,
		turns:       defaultHistoryTurns,
		maxTokens:   defaultMaxTokens,
		temperature: defaultTemperature,
		logger:      logger,
		tracer:      otel.Tracer("clinic.internal.assistant"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Reply records the customer's message, asks the model with the most recent
// turns and records the answer. Card numbers are masked before the message is
// stored or sent to the model. On error nothing but the customer's message
// is stored; the caller decides what apology to send and may Record it.
func (a *Assistant) Reply(ctx context.Context, customerID, text string) (string, error) {
	ctx, span := a.tracer.Start(ctx, "assistant.reply")
	defer span.End()

	if redacted, ok := compliance.RedactCards(text); ok {
		a.logger.WithCustomer(customerID).Warn("card number redacted from message")
		text = redacted
	}

	if err := a.history.Append(ctx, customerID, session.Message{Role: session.RoleUser, Content: text}); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("assistant: failed to store message: %w", err)
	}
	recent, err := a.history.Recent(ctx, customerID, a.turns)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("assistant: failed to load history: %w", err)
	}

	req := LLMRequest{
		System:      []string{a.system},
		Messages:    make([]ChatMessage, 0, len(recent)),
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
	}
	for _, m := range recent {
		role := RoleUser
		if m.Role == session.RoleAssistant {
			role = RoleAssistant
		}
		req.Messages = append(req.Messages, ChatMessage{Role: role, Content: m.Content})
	}
	span.SetAttributes(attribute.Int("assistant.history_turns", len(req.Messages)))

	resp, err := a.llm.Complete(ctx, req)
	if err != nil {
		span.RecordError(err)
		a.logger.WithCustomer(customerID).Error("assistant completion failed", "error", err)
		return "", err
	}
	reply := strings.TrimSpace(resp.Text)
	if reply == "" {
		span.RecordError(ErrEmptyReply)
		return "", ErrEmptyReply
	}
	span.SetAttributes(attribute.Int("assistant.output_tokens", int(resp.Usage.OutputTokens)))

	if err := a.Record(ctx, customerID, reply); err != nil {
		return "", err
	}
	return reply, nil
}

// Record appends an assistant turn, e.g. an apology sent instead of a
// model reply.
func (a *Assistant) Record(ctx context.Context, customerID, text string) error {
	if err := a.history.Append(ctx, customerID, session.Message{Role: session.RoleAssistant, Content: text}); err != nil {
		return fmt.Errorf("assistant: failed to store reply: %w", err)
	}
	return nil
}
