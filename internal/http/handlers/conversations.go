package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/clinic-booking-assistant/internal/session"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// ConversationsHandler lets staff inspect and reset customer conversations.
type ConversationsHandler struct {
	history session.HistoryStore
	states  session.StateStore
	logger  *logging.Logger
}

func NewConversationsHandler(history session.HistoryStore, states session.StateStore, logger *logging.Logger) *ConversationsHandler {
	if history == nil || states == nil {
		panic("handlers: history and state stores are required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ConversationsHandler{history: history, states: states, logger: logger}
}

type conversationsResponse struct {
	Conversations []session.ConversationStats `json:"conversations"`
	Total         int                         `json:"total"`
	ActiveStates  int                         `json:"active_dialogues"`
}

// ListConversations handles GET /conversations.
func (h *ConversationsHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	stats, err := h.history.Stats(r.Context())
	if err != nil {
		h.logger.Error("failed to load conversation stats", "error", err)
		jsonError(w, "failed to load conversations", http.StatusInternalServerError)
		return
	}
	active, err := h.states.Count(r.Context())
	if err != nil {
		h.logger.Error("failed to count dialogue states", "error", err)
		jsonError(w, "failed to load conversations", http.StatusInternalServerError)
		return
	}
	if stats == nil {
		stats = []session.ConversationStats{}
	}
	writeJSON(w, http.StatusOK, conversationsResponse{
		Conversations: stats,
		Total:         len(stats),
		ActiveStates:  active,
	})
}

// ResetConversation handles POST /reset/{phone}. It clears both the
// generative history and any in-progress booking dialogue.
func (h *ConversationsHandler) ResetConversation(w http.ResponseWriter, r *http.Request) {
	phone := normalizePhoneDigits(chi.URLParam(r, "phone"))
	if phone == "" {
		jsonError(w, "phone number required", http.StatusBadRequest)
		return
	}
	log := h.logger.WithCustomer(phone)

	hadHistory, err := h.history.Reset(r.Context(), phone)
	if err != nil {
		log.Error("failed to reset history", "error", err)
		jsonError(w, "failed to reset conversation", http.StatusInternalServerError)
		return
	}
	state, err := h.states.Get(r.Context(), phone)
	if err != nil {
		log.Error("failed to load dialogue state", "error", err)
		jsonError(w, "failed to reset conversation", http.StatusInternalServerError)
		return
	}
	if state != nil {
		if err := h.states.Delete(r.Context(), phone); err != nil {
			log.Error("failed to delete dialogue state", "error", err)
			jsonError(w, "failed to reset conversation", http.StatusInternalServerError)
			return
		}
	}

	if !hadHistory && state == nil {
		jsonError(w, "no conversation found", http.StatusNotFound)
		return
	}
	log.Info("conversation reset", "history", hadHistory, "dialogue", state != nil)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "reset",
		"customer_id":    phone,
		"history_reset":  hadHistory,
		"dialogue_reset": state != nil,
	})
}
