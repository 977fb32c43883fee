// Package messaging runs the inbound message pipeline: rate limit, booking
// dialogue, generative fallback and the outbound WhatsApp send.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/clinic-booking-assistant/internal/dialogue"
	"github.com/wolfman30/clinic-booking-assistant/internal/messaging/compliance"
	"github.com/wolfman30/clinic-booking-assistant/internal/messaging/templates"
	"github.com/wolfman30/clinic-booking-assistant/internal/messaging/whatsapp"
	"github.com/wolfman30/clinic-booking-assistant/internal/ratelimit"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// Engine is the booking dialogue.
type Engine interface {
	Handle(ctx context.Context, customerID, text string) (dialogue.Response, error)
}

// Fallback answers what the dialogue does not recognize.
type Fallback interface {
	Reply(ctx context.Context, customerID, text string) (string, error)
	Record(ctx context.Context, customerID, text string) error
}

// Sender delivers a text to a customer.
type Sender interface {
	SendText(ctx context.Context, to, body string) (*whatsapp.SendResult, error)
}

// Subscriptions toggles a customer's promotion opt-in. found is false when
// the customer is not on the list.
type Subscriptions interface {
	SetOptIn(ctx context.Context, phone string, optIn bool) (found bool, err error)
}

// Recorder receives pipeline telemetry.
type Recorder interface {
	ObserveRateLimited()
	ObserveReply(source, status string)
	ObserveOutbound(status string)
}

// Reply sources.
const (
	SourceDialogue   = "dialogue"
	SourceAssistant  = "assistant"
	SourceRateLimit  = "rate_limit"
	SourceCompliance = "compliance"
	SourceError      = "error"
)

// Result describes what the pipeline did with one message.
type Result struct {
	Source string
	Reply  string
	// Sent is false when nothing went out, e.g. an unclear confirmation.
	Sent      bool
	MessageID string
	Stage     string
}

// Processor handles one customer message end to end.
type Processor struct {
	limiter  ratelimit.Limiter
	engine   Engine
	fallback Fallback
	sender   Sender
	renderer dialogue.Renderer
	optOut   *compliance.Detector
	subs     Subscriptions
	recorder Recorder
	logger   *logging.Logger
	tracer   trace.Tracer
}

type ProcessorOption func(*Processor)

// WithFallback sets the generative responder. Without one, unrecognized
// messages get the general_fallback template.
func WithFallback(f Fallback) ProcessorOption {
	return func(p *Processor) { p.fallback = f }
}

// WithOptOut answers promotion unsubscribe and subscribe keywords before
// the dialogue sees them.
func WithOptOut(detector *compliance.Detector, subs Subscriptions) ProcessorOption {
	return func(p *Processor) {
		if detector != nil && subs != nil {
			p.optOut = detector
			p.subs = subs
		}
	}
}

func WithRecorder(r Recorder) ProcessorOption {
	return func(p *Processor) {
		if r != nil {
			p.recorder = r
		}
	}
}

func NewProcessor(limiter ratelimit.Limiter, engine Engine, sender Sender, renderer dialogue.Renderer, logger *logging.Logger, opts ...ProcessorOption) *Processor {
	if limiter == nil {
		panic("messaging: rate limiter cannot be nil")
	}
	if engine == nil {
		panic("messaging: dialogue engine cannot be nil")
	}
	if sender == nil {
		panic("messaging: sender cannot be nil")
	}
	if renderer == nil {
		panic("messaging: renderer cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	p := &Processor{
		limiter:  limiter,
		engine:   engine,
		sender:   sender,
		renderer: renderer,
		recorder: noopRecorder{},
		logger:   logger,
		tracer:   otel.Tracer("clinic.internal.messaging"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs one inbound message through the pipeline. Only a failed
// send is returned as an error; every other failure is answered with an
// apology.
func (p *Processor) Process(ctx context.Context, customerID, text string) (Result, error) {
	ctx, span := p.tracer.Start(ctx, "messaging.process")
	defer span.End()

	customerID = strings.TrimSpace(customerID)
	if customerID == "" || strings.TrimSpace(text) == "" {
		return Result{}, errors.New("messaging: customer and text required")
	}
	log := p.logger.WithCustomer(customerID)

	res := p.respond(ctx, log, customerID, text)
	span.SetAttributes(attribute.String("messaging.source", res.Source), attribute.String("dialogue.stage", res.Stage))
	if res.Reply == "" {
		return res, nil
	}

	sent, err := p.sender.SendText(ctx, customerID, res.Reply)
	if err != nil {
		p.recorder.ObserveOutbound("failed")
		span.RecordError(err)
		log.Error("failed to send reply", "source", res.Source, "error", err)
		return res, fmt.Errorf("messaging: failed to send reply: %w", err)
	}
	p.recorder.ObserveOutbound("sent")
	res.Sent = true
	res.MessageID = sent.MessageID
	log.Info("reply sent", "source", res.Source, "stage", res.Stage, "message_id", sent.MessageID)
	return res, nil
}

func (p *Processor) respond(ctx context.Context, log *logging.Logger, customerID, text string) Result {
	allowed, err := p.limiter.Allow(ctx, customerID)
	if err != nil {
		// fail open while the limiter backend is down
		log.Warn("rate limiter unavailable, allowing message", "error", err)
		allowed = true
	}
	if !allowed {
		p.recorder.ObserveRateLimited()
		log.Warn("rate limit exceeded")
		return p.templated(log, SourceRateLimit, templates.RateLimitExceeded)
	}

	if res, ok := p.subscription(ctx, log, customerID, text); ok {
		return res
	}

	resp, err := p.engine.Handle(ctx, customerID, text)
	if err != nil {
		log.Error("dialogue failed", "error", err)
		p.recorder.ObserveReply(SourceDialogue, "error")
		return p.templated(log, SourceError, templates.APIErrorFallback)
	}

	switch resp.Outcome {
	case dialogue.OutcomeReply:
		p.recorder.ObserveReply(SourceDialogue, "ok")
		return Result{Source: SourceDialogue, Reply: resp.Text, Stage: string(resp.Stage)}
	case dialogue.OutcomeSilent:
		p.recorder.ObserveReply(SourceDialogue, "silent")
		return Result{Source: SourceDialogue, Stage: string(resp.Stage)}
	}
	return p.fallbackReply(ctx, log, customerID, text)
}

func (p *Processor) subscription(ctx context.Context, log *logging.Logger, customerID, text string) (Result, bool) {
	if p.optOut == nil {
		return Result{}, false
	}
	var (
		optIn bool
		key   templates.Key
	)
	switch {
	case p.optOut.IsOptOut(text):
		key = templates.PromotionsOptOut
	case p.optOut.IsOptIn(text):
		optIn, key = true, templates.PromotionsOptIn
	default:
		return Result{}, false
	}

	found, err := p.subs.SetOptIn(ctx, customerID, optIn)
	if err != nil {
		log.Error("failed to update promotion opt-in", "opt_in", optIn, "error", err)
		p.recorder.ObserveReply(SourceCompliance, "error")
		return p.templated(log, SourceError, templates.APIErrorFallback), true
	}
	log.Info("promotion opt-in updated", "opt_in", optIn, "on_list", found)
	p.recorder.ObserveReply(SourceCompliance, "ok")
	return p.templated(log, SourceCompliance, key), true
}

func (p *Processor) fallbackReply(ctx context.Context, log *logging.Logger, customerID, text string) Result {
	if p.fallback == nil {
		p.recorder.ObserveReply(SourceAssistant, "disabled")
		return p.templated(log, SourceAssistant, templates.GeneralFallback)
	}
	reply, err := p.fallback.Reply(ctx, customerID, text)
	if err == nil {
		p.recorder.ObserveReply(SourceAssistant, "ok")
		return Result{Source: SourceAssistant, Reply: reply}
	}

	log.Error("generative fallback failed", "error", err)
	p.recorder.ObserveReply(SourceAssistant, "error")
	res := p.templated(log, SourceError, templates.APIErrorFallback)
	if res.Reply != "" {
		if err := p.fallback.Record(ctx, customerID, res.Reply); err != nil {
			log.Warn("failed to record apology in history", "error", err)
		}
	}
	return res
}

func (p *Processor) templated(log *logging.Logger, source string, key templates.Key) Result {
	text, err := p.renderer.Render(key, nil)
	if err != nil {
		log.Error("failed to render reply", "key", key, "error", err)
		return Result{Source: source}
	}
	return Result{Source: source, Reply: text}
}

type noopRecorder struct{}

func (noopRecorder) ObserveRateLimited()         {}
func (noopRecorder) ObserveReply(string, string) {}
func (noopRecorder) ObserveOutbound(string)      {}
