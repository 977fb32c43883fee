package session

import (
	"context"
	"time"

	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// Sweeper periodically drops expired conversation history.
type Sweeper struct {
	history  HistoryStore
	logger   *logging.Logger
	interval time.Duration
}

func NewSweeper(history HistoryStore, logger *logging.Logger) *Sweeper {
	if logger == nil {
		logger = logging.Default()
	}
	return &Sweeper{
		history:  history,
		logger:   logger,
		interval: 10 * time.Minute,
	}
}

func (s *Sweeper) WithInterval(d time.Duration) *Sweeper {
	if d > 0 {
		s.interval = d
	}
	return s
}

func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if s.history == nil {
		return
	}
	removed, err := s.history.Sweep(ctx)
	if err != nil {
		s.logger.Error("history sweep failed", "error", err)
		return
	}
	if removed > 0 {
		s.logger.Info("cleaned up expired conversations", "count", removed)
	}
}
