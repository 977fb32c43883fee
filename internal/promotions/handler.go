package promotions

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// Handler manages the weekly schedule and recipient list.
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

// RegisterRoutes mounts the promotion endpoints, e.g. under /promotions.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listPromotions)
	r.Post("/", h.createPromotion)
	r.Delete("/{id}", h.deactivatePromotion)
	r.Post("/recipients", h.upsertRecipient)
	r.Get("/sends", h.listSends)
}

type createPromotionRequest struct {
	Day          string         `json:"day"`
	Time         string         `json:"time"`
	TemplateName string         `json:"template_name"`
	Params       TemplateParams `json:"template_parameters"`
}

type recipientRequest struct {
	Phone      string   `json:"phone_number"`
	Name       string   `json:"name"`
	OptIn      *bool    `json:"opt_in"`
	Categories []string `json:"categories"`
}

func (h *Handler) listPromotions(w http.ResponseWriter, r *http.Request) {
	promos, err := h.store.ListActive(r.Context())
	if err != nil {
		h.logger.Error("promotions handler: list", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if promos == nil {
		promos = []Promotion{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"promotions": promos, "count": len(promos)})
}

func (h *Handler) createPromotion(w http.ResponseWriter, r *http.Request) {
	var req createPromotionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	day, err := ParseWeekday(req.Day)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	promo, err := NewPromotion(day, req.Time, req.TemplateName, req.Params)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.store.CreatePromotion(r.Context(), promo); err != nil {
		h.logger.Error("promotions handler: create", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.logger.Info("weekly promotion scheduled", "id", promo.ID, "weekday", promo.Weekday.String(), "time", promo.Time, "template", promo.TemplateName)
	writeJSON(w, http.StatusCreated, promo)
}

func (h *Handler) deactivatePromotion(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid promotion id", http.StatusBadRequest)
		return
	}
	found, err := h.store.Deactivate(r.Context(), id)
	if err != nil {
		h.logger.Error("promotions handler: deactivate", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "promotion not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) upsertRecipient(w http.ResponseWriter, r *http.Request) {
	var req recipientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	rec := &Recipient{Phone: req.Phone, Name: req.Name, OptIn: true, Categories: req.Categories}
	if req.OptIn != nil {
		rec.OptIn = *req.OptIn
	}
	if err := h.store.UpsertRecipient(r.Context(), rec); err != nil {
		if errors.Is(err, ErrInvalidRecipient) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("promotions handler: upsert recipient", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) listSends(w http.ResponseWriter, r *http.Request) {
	sends, err := h.store.ListSends(r.Context(), 50)
	if err != nil {
		h.logger.Error("promotions handler: list sends", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if sends == nil {
		sends = []Send{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sends": sends, "count": len(sends)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
