package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfman30/clinic-booking-assistant/internal/clock"
	"github.com/wolfman30/clinic-booking-assistant/internal/datetime"
	"github.com/wolfman30/clinic-booking-assistant/internal/messaging/templates"
	"github.com/wolfman30/clinic-booking-assistant/internal/messaging/whatsapp"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// Sender delivers a WhatsApp text.
type Sender interface {
	SendText(ctx context.Context, to, body string) (*whatsapp.SendResult, error)
}

type Renderer interface {
	Render(key templates.Key, params templates.Params) (string, error)
}

// Recorder counts processed reminders by status.
type Recorder interface {
	ObserveReminder(status string)
}

// Worker sends due reminders.
type Worker struct {
	store    *Store
	sender   Sender
	renderer Renderer
	recorder Recorder
	clock    clock.Clock
	logger   *logging.Logger
	interval time.Duration
	batch    int
}

func NewWorker(store *Store, sender Sender, renderer Renderer, logger *logging.Logger) *Worker {
	if store == nil || sender == nil || renderer == nil {
		panic("reminders: store, sender and renderer are required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Worker{
		store:    store,
		sender:   sender,
		renderer: renderer,
		clock:    clock.System(),
		logger:   logger,
		interval: time.Minute,
		batch:    100,
	}
}

func (w *Worker) WithInterval(d time.Duration) *Worker {
	if d > 0 {
		w.interval = d
	}
	return w
}

func (w *Worker) WithClock(c clock.Clock) *Worker {
	w.clock = clock.OrSystem(c)
	return w
}

func (w *Worker) WithRecorder(r Recorder) *Worker {
	w.recorder = r
	return w
}

// Run polls for due reminders until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	w.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	if _, err := w.ProcessDue(ctx); err != nil {
		w.logger.Error("reminder worker: poll failed", "error", err)
	}
}

// ProcessDue sends every due reminder and returns how many went out.
// Reminders for appointments that have already started are dropped.
func (w *Worker) ProcessDue(ctx context.Context) (int, error) {
	now := w.clock.Now()
	due, err := w.store.ListDue(ctx, now, w.batch)
	if err != nil {
		return 0, fmt.Errorf("reminders: list due: %w", err)
	}
	if len(due) == 0 {
		return 0, nil
	}
	w.logger.Info("reminder worker: processing due reminders", "count", len(due))

	sent := 0
	for i := range due {
		r := &due[i]
		if !r.StartsAt.After(now) {
			w.observe("expired")
			if err := w.store.MarkFailed(ctx, r.ID); err != nil {
				w.logger.Error("reminder worker: failed to expire reminder", "id", r.ID, "error", err)
			}
			continue
		}
		if err := w.send(ctx, r); err != nil {
			w.observe("failed")
			w.logger.WithCustomer(r.CustomerID).Error("reminder worker: failed to send reminder", "id", r.ID, "error", err)
			if err := w.store.MarkFailed(ctx, r.ID); err != nil {
				w.logger.Error("reminder worker: failed to mark reminder failed", "id", r.ID, "error", err)
			}
			continue
		}
		w.observe("sent")
		sent++
	}
	return sent, nil
}

func (w *Worker) send(ctx context.Context, r *Reminder) error {
	body, err := w.renderer.Render(templates.AppointmentReminder, templates.Params{
		"Treatment": r.Treatment.Display(),
		"Date":      datetime.DisplayDate(r.AppointmentDate),
		"Time":      r.AppointmentTime,
	})
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	res, err := w.sender.SendText(ctx, r.CustomerID, body)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	if err := w.store.MarkSent(ctx, r.ID); err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	w.logger.WithCustomer(r.CustomerID).Info("reminder worker: reminder sent", "id", r.ID, "message_id", res.MessageID)
	return nil
}

func (w *Worker) observe(status string) {
	if w.recorder != nil {
		w.recorder.ObserveReminder(status)
	}
}
