package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/clinic-booking-assistant/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/clinic-booking-assistant/internal/http/middleware"
	"github.com/wolfman30/clinic-booking-assistant/internal/messaging"
	"github.com/wolfman30/clinic-booking-assistant/internal/promotions"
	"github.com/wolfman30/clinic-booking-assistant/internal/reminders"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger         *logging.Logger
	Health         *handlers.HealthHandler
	Webhook        *messaging.Handler
	MetricsHandler http.Handler

	// WebhookLimiter throttles the webhook per source address (optional).
	WebhookLimiter *httpmiddleware.IPLimiter

	// Staff endpoints. With an empty StaffJWTSecret they are served without
	// authentication.
	Conversations  *handlers.ConversationsHandler
	Reminders      *reminders.Handler
	Promotions     *promotions.Handler
	StaffJWTSecret string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))

	health := cfg.Health
	if health == nil {
		health = handlers.NewHealthHandler(cfg.Logger)
	}

	// Public endpoints (webhook, health checks)
	r.Group(func(public chi.Router) {
		public.Get("/health", health.Health)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.Webhook != nil {
			webhook := public.With()
			if cfg.WebhookLimiter != nil {
				webhook = public.With(httpmiddleware.RateLimit(cfg.WebhookLimiter))
			}
			webhook.Post("/webhook", cfg.Webhook.Webhook)
		}
	})

	r.Group(func(staff chi.Router) {
		if cfg.StaffJWTSecret != "" {
			staff.Use(httpmiddleware.StaffJWT(cfg.StaffJWTSecret, cfg.Logger))
		}
		if cfg.Conversations != nil {
			staff.Get("/conversations", cfg.Conversations.ListConversations)
			staff.Post("/reset/{phone}", cfg.Conversations.ResetConversation)
		}
		if cfg.Reminders != nil {
			staff.Route("/reminders", cfg.Reminders.RegisterRoutes)
		}
		if cfg.Promotions != nil {
			staff.Route("/promotions", cfg.Promotions.RegisterRoutes)
		}
	})

	return r
}
