package bootstrap

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/wolfman30/clinic-booking-assistant/internal/assistant"
	"github.com/wolfman30/clinic-booking-assistant/internal/calendar"
	appconfig "github.com/wolfman30/clinic-booking-assistant/internal/config"
	"github.com/wolfman30/clinic-booking-assistant/internal/messaging/whatsapp"
	"github.com/wolfman30/clinic-booking-assistant/internal/session"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// BuildCalendar returns the availability gateway. Without Google credentials
// bookings live in memory, which is only suitable for development.
func BuildCalendar(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*calendar.Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	loc := cfg.Location()
	policy := calendar.NewPolicy(loc, cfg.PublicHolidays)
	if cfg.MaxActiveAppointments > 0 {
		policy.MaxActive = cfg.MaxActiveAppointments
	}

	creds, err := loadCredentials(cfg.GoogleCalendarCredentials)
	if err != nil {
		return nil, err
	}
	var events calendar.Events
	if len(creds) == 0 {
		logger.Warn("google calendar not configured, bookings are kept in memory")
		events = calendar.NewMemoryEvents()
	} else {
		g, err := calendar.NewGoogleEvents(ctx, creds, cfg.CalendarID, loc)
		if err != nil {
			return nil, err
		}
		logger.Info("google calendar enabled", "calendar_id", cfg.CalendarID)
		events = g
	}
	return calendar.NewService(events, policy, nil, logger.WithComponent("calendar")), nil
}

// loadCredentials accepts either inline service-account JSON or a path to it.
func loadCredentials(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if strings.HasPrefix(raw, "{") {
		return []byte(raw), nil
	}
	data, err := os.ReadFile(raw)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: read calendar credentials: %w", err)
	}
	return data, nil
}

// BuildAssistant wires the Gemini fallback. It returns nil when no API key
// is configured; unrecognized messages then get the general fallback reply.
func BuildAssistant(ctx context.Context, cfg *appconfig.Config, history session.HistoryStore, logger *logging.Logger) (*assistant.Assistant, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
		logger.Warn("GEMINI_API_KEY not set, generative fallback disabled")
		return nil, nil
	}
	llm, err := assistant.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
	if err != nil {
		return nil, err
	}
	clinic := assistant.Clinic{
		Name:    cfg.ClinicName,
		Address: cfg.ClinicAddress,
		Phone:   cfg.ClinicPhone,
	}
	logger.Info("generative fallback enabled", "model", cfg.GeminiModelID)
	return assistant.New(llm, history, clinic, logger.WithComponent("assistant"))
}

// BuildWhatsAppClient returns the Cloud API client used for every outbound
// message.
func BuildWhatsAppClient(cfg *appconfig.Config, logger *logging.Logger) (*whatsapp.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	return whatsapp.New(whatsapp.Config{
		BaseURL:       cfg.WhatsAppAPIBaseURL,
		PhoneNumberID: cfg.WhatsAppPhoneNumberID,
		APIToken:      cfg.WhatsAppAPIToken,
		Logger:        logger,
	})
}
