package promotions

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/wolfman30/clinic-booking-assistant/internal/clock"
	"github.com/wolfman30/clinic-booking-assistant/internal/messaging/compliance"
	"github.com/wolfman30/clinic-booking-assistant/internal/messaging/whatsapp"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// TemplateSender delivers an approved WhatsApp template.
type TemplateSender interface {
	SendTemplate(ctx context.Context, to string, tmpl whatsapp.Template) (*whatsapp.SendResult, error)
}

// Recorder counts promotion messages by status.
type Recorder interface {
	ObservePromotion(status string)
}

// Dispatcher sends each weekly promotion once per occurrence.
type Dispatcher struct {
	store    *Store
	sender   TemplateSender
	limiter  *rate.Limiter
	quiet    compliance.QuietHours
	location *time.Location
	clock    clock.Clock
	recorder Recorder
	logger   *logging.Logger
	interval time.Duration
	catchUp  time.Duration
	language string
}

func NewDispatcher(store *Store, sender TemplateSender, loc *time.Location, logger *logging.Logger) *Dispatcher {
	if store == nil || sender == nil {
		panic("promotions: store and sender are required")
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{
		store:    store,
		sender:   sender,
		limiter:  rate.NewLimiter(rate.Limit(10), 1),
		location: loc,
		clock:    clock.System(),
		logger:   logger,
		interval: time.Minute,
		catchUp:  30 * time.Minute,
		language: "en_US",
	}
}

// WithRate paces outbound template sends to perSecond messages.
func (d *Dispatcher) WithRate(perSecond float64) *Dispatcher {
	if perSecond > 0 {
		d.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	} else {
		d.limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return d
}

// WithQuietHours holds broadcasts while the clinic's quiet window is open.
func (d *Dispatcher) WithQuietHours(q compliance.QuietHours) *Dispatcher {
	d.quiet = q
	return d
}

func (d *Dispatcher) WithClock(c clock.Clock) *Dispatcher {
	d.clock = clock.OrSystem(c)
	return d
}

func (d *Dispatcher) WithRecorder(r Recorder) *Dispatcher {
	d.recorder = r
	return d
}

func (d *Dispatcher) WithInterval(i time.Duration) *Dispatcher {
	if i > 0 {
		d.interval = i
	}
	return d
}

// WithCatchUp sets how late an occurrence may still be sent, e.g. after a
// restart or while quiet hours were in effect.
func (d *Dispatcher) WithCatchUp(c time.Duration) *Dispatcher {
	if c > 0 {
		d.catchUp = c
	}
	return d
}

func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	d.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

func (d *Dispatcher) tick(ctx context.Context) {
	if _, err := d.Dispatch(ctx); err != nil {
		d.logger.Error("promotion dispatcher: dispatch failed", "error", err)
	}
}

// Dispatch sends every promotion whose latest occurrence is due and not yet
// sent. It returns the number of messages delivered.
func (d *Dispatcher) Dispatch(ctx context.Context) (int, error) {
	now := d.clock.Now().In(d.location)
	promos, err := d.store.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("promotions: load schedule: %w", err)
	}

	delivered := 0
	for _, p := range promos {
		occ := p.LastOccurrence(now, d.location)
		if occ.IsZero() || now.Sub(occ) > d.catchUp {
			continue
		}
		if d.quiet.Suppress(now, compliance.PurposeMarketing) {
			d.logger.Info("promotion held for quiet hours", "promotion_id", p.ID, "quiet_hours", d.quiet.String())
			continue
		}
		claimed, err := d.store.ClaimOccurrence(ctx, p, occ)
		if err != nil {
			return delivered, err
		}
		if !claimed {
			continue
		}
		n, err := d.broadcast(ctx, p, occ)
		delivered += n
		if err != nil {
			return delivered, err
		}
	}
	return delivered, nil
}

func (d *Dispatcher) broadcast(ctx context.Context, p Promotion, occ time.Time) (int, error) {
	recipients, err := d.store.ListSubscribers(ctx)
	if err != nil {
		return 0, fmt.Errorf("promotions: load recipients: %w", err)
	}
	d.logger.Info("sending promotion", "promotion_id", p.ID, "template", p.TemplateName, "recipients", len(recipients))

	sent, failed := 0, 0
	for _, r := range recipients {
		if err := d.limiter.Wait(ctx); err != nil {
			return sent, fmt.Errorf("promotions: pacing: %w", err)
		}
		_, err := d.sender.SendTemplate(ctx, r.Phone, whatsapp.Template{
			Name:        p.TemplateName,
			Language:    d.language,
			Body:        p.Params.Personalize(r.Name),
			HeaderType:  p.Params.HeaderType,
			HeaderValue: p.Params.HeaderValue,
		})
		if err != nil {
			failed++
			d.observe("failed")
			d.logger.WithCustomer(r.Phone).Warn("failed to send promotion", "promotion_id", p.ID, "error", err)
			continue
		}
		sent++
		d.observe("sent")
	}

	if err := d.store.CompleteOccurrence(ctx, p.ID, occ, sent, failed); err != nil {
		return sent, err
	}
	d.logger.Info("promotion sent", "promotion_id", p.ID, "delivered", sent, "failed", failed)
	return sent, nil
}

func (d *Dispatcher) observe(status string) {
	if d.recorder != nil {
		d.recorder.ObservePromotion(status)
	}
}
