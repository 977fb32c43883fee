package reminders

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// Handler exposes reminder status for clinic staff.
type Handler struct {
	store  *Store
	logger *logging.Logger
}

func NewHandler(store *Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

// RegisterRoutes mounts the reminder endpoints, e.g. under /reminders.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listReminders)
	r.Get("/stats", h.getStats)
}

func (h *Handler) listReminders(w http.ResponseWriter, r *http.Request) {
	customer := strings.TrimSpace(r.URL.Query().Get("customer"))
	if customer == "" {
		http.Error(w, "missing customer", http.StatusBadRequest)
		return
	}
	list, err := h.store.ListByCustomer(r.Context(), customer, 50)
	if err != nil {
		h.logger.Error("reminders handler: list reminders", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []Reminder{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"reminders": list,
		"count":     len(list),
	})
}

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		h.logger.Error("reminders handler: stats", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(stats)
}
