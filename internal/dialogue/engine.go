// Package dialogue runs the booking conversation: it turns one inbound
// customer message plus the stored dialogue state into a reply and the next
// state.
package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/clinic-booking-assistant/internal/calendar"
	"github.com/wolfman30/clinic-booking-assistant/internal/clock"
	"github.com/wolfman30/clinic-booking-assistant/internal/datetime"
	"github.com/wolfman30/clinic-booking-assistant/internal/intent"
	"github.com/wolfman30/clinic-booking-assistant/internal/messaging/templates"
	"github.com/wolfman30/clinic-booking-assistant/internal/session"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// Outcome tells the caller what to do with a Response.
type Outcome string

const (
	// OutcomeReply means Text should be sent to the customer.
	OutcomeReply Outcome = "reply"
	// OutcomeSilent means the message was consumed and nothing is sent.
	OutcomeSilent Outcome = "silent"
	// OutcomeNoMatch means the engine did not recognize the message; the
	// caller should hand it to the generative assistant.
	OutcomeNoMatch Outcome = "no_match"
)

// Response is the result of handling one message.
type Response struct {
	Outcome Outcome
	Key     templates.Key
	Text    string
	Stage   session.Stage
	Intent  intent.Intent
}

// ErrSelection marks a reply that does not pick a listed appointment.
var ErrSelection = errors.New("dialogue: invalid appointment selection")

// Renderer turns a message key into customer-facing text.
type Renderer interface {
	Render(key templates.Key, params templates.Params) (string, error)
}

// BookingObserver is told about calendar changes made through the chat.
// Implementations must not block for long and handle their own errors.
type BookingObserver interface {
	AppointmentBooked(ctx context.Context, customerID string, booking calendar.Booking)
	AppointmentRescheduled(ctx context.Context, customerID string, booking calendar.Booking)
	AppointmentCancelled(ctx context.Context, customerID, appointmentID string)
}

// Recorder receives per-message telemetry.
type Recorder interface {
	ObserveMessage(in intent.Intent, outcome Outcome)
	ObserveTransition(from, to session.Stage)
}

const (
	defaultSessionTimeout = 15 * time.Minute
	defaultCustomerName   = "Guest"
)

// Engine is the booking dialogue state machine. It is safe for concurrent
// use; messages from the same customer are serialized by the Locker.
type Engine struct {
	states   session.StateStore
	gateway  calendar.Gateway
	policy   calendar.Policy
	renderer Renderer
	logger   *logging.Logger

	locker      session.Locker
	clock       clock.Clock
	observer    BookingObserver
	recorder    Recorder
	timeout     time.Duration
	defaultName string
	tracer      trace.Tracer
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock injects the time source.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithLocker replaces the in-process per-customer lock, e.g. with a redis
// lock when several API instances share one state store.
func WithLocker(l session.Locker) Option {
	return func(e *Engine) {
		if l != nil {
			e.locker = l
		}
	}
}

// WithSessionTimeout sets how long a dialogue may sit idle.
func WithSessionTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

func WithObserver(o BookingObserver) Option {
	return func(e *Engine) { e.observer = o }
}

func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// WithDefaultName sets the name booked when the customer never gave one.
func WithDefaultName(name string) Option {
	return func(e *Engine) {
		if name = strings.TrimSpace(name); name != "" {
			e.defaultName = name
		}
	}
}

func NewEngine(states session.StateStore, gateway calendar.Gateway, policy calendar.Policy, renderer Renderer, logger *logging.Logger, opts ...Option) *Engine {
	if states == nil {
		panic("dialogue: state store cannot be nil")
	}
	if gateway == nil {
		panic("dialogue: calendar gateway cannot be nil")
	}
	if renderer == nil {
		panic("dialogue: renderer cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	e := &Engine{
		states:      states,
		gateway:     gateway,
		policy:      policy,
		renderer:    renderer,
		logger:      logger,
		locker:      session.NewLocalLocker(),
		clock:       clock.System(),
		recorder:    noopRecorder{},
		timeout:     defaultSessionTimeout,
		defaultName: defaultCustomerName,
		tracer:      otel.Tracer("clinic.internal.dialogue"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Handle processes one inbound message from customerID. An error is only
// returned when state could not be loaded or saved; every dialogue path,
// including calendar failures, produces a Response.
func (e *Engine) Handle(ctx context.Context, customerID, text string) (Response, error) {
	ctx, span := e.tracer.Start(ctx, "dialogue.handle")
	defer span.End()

	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return Response{}, errors.New("dialogue: customer id required")
	}

	unlock, err := e.locker.Lock(ctx, customerID)
	if err != nil {
		span.RecordError(err)
		return Response{}, fmt.Errorf("dialogue: failed to lock customer: %w", err)
	}
	defer unlock()

	st, err := e.states.Get(ctx, customerID)
	if err != nil {
		span.RecordError(err)
		return Response{}, fmt.Errorf("dialogue: failed to load state: %w", err)
	}

	now := e.clock.Now()
	t := &turn{
		e:          e,
		ctx:        ctx,
		customerID: customerID,
		text:       strings.TrimSpace(text),
		now:        now,
		today:      datetime.StartOfDay(now.In(e.location())),
		st:         st,
		log:        e.logger.WithCustomer(customerID),
	}
	from := t.stage()

	resp, err := t.run()
	if err != nil {
		span.RecordError(err)
		return Response{}, err
	}
	if resp.Intent = t.ex.Intent; resp.Intent == "" {
		resp.Intent = intent.None
	}

	span.SetAttributes(
		attribute.String("dialogue.intent", string(resp.Intent)),
		attribute.String("dialogue.outcome", string(resp.Outcome)),
		attribute.String("dialogue.stage", string(resp.Stage)),
	)
	e.recorder.ObserveMessage(resp.Intent, resp.Outcome)
	if from != resp.Stage {
		e.recorder.ObserveTransition(from, resp.Stage)
		t.log.Debug("dialogue transition", "from", from, "to", resp.Stage, "key", resp.Key)
	}
	return resp, nil
}

func (e *Engine) location() *time.Location {
	if e.policy.Location != nil {
		return e.policy.Location
	}
	return time.UTC
}

type noopRecorder struct{}

func (noopRecorder) ObserveMessage(intent.Intent, Outcome)          {}
func (noopRecorder) ObserveTransition(session.Stage, session.Stage) {}
