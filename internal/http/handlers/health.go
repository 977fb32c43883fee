package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// Check pings one dependency, e.g. Redis or Postgres.
type Check func(ctx context.Context) error

// HealthHandler reports service health. Without checks it always answers
// healthy.
type HealthHandler struct {
	checks  map[string]Check
	timeout time.Duration
	logger  *logging.Logger
}

func NewHealthHandler(logger *logging.Logger) *HealthHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &HealthHandler{checks: map[string]Check{}, timeout: 2 * time.Second, logger: logger}
}

// WithCheck registers a named dependency check.
func (h *HealthHandler) WithCheck(name string, check Check) *HealthHandler {
	if check != nil {
		h.checks[name] = check
	}
	return h
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health handles GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := healthResponse{Status: "healthy"}
	status := http.StatusOK
	if len(names) > 0 {
		resp.Checks = make(map[string]string, len(names))
	}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			h.logger.Warn("health check failed", "check", name, "error", err)
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	writeJSON(w, status, resp)
}
