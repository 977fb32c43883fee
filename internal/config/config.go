package config

import (
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // clinic timezone on images without zoneinfo
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	DatabaseURL   string

	WhatsAppPhoneNumberID string
	WhatsAppAPIToken      string
	WhatsAppAPIBaseURL    string

	GeminiAPIKey  string
	GeminiModelID string

	GoogleCalendarCredentials string
	CalendarID                string

	ClinicName     string
	ClinicAddress  string
	ClinicPhone    string
	ClinicTimezone string
	PublicHolidays []string

	SessionTimeout        time.Duration
	ConversationTimeout   time.Duration
	HistorySweepInterval  time.Duration
	RateLimitWindow       time.Duration
	RateLimitMax          int
	MaxActiveAppointments int

	ReminderPollInterval  time.Duration
	ReminderLeadTime      time.Duration
	PromotionPollInterval time.Duration
	PromotionSendRate     float64
	PromotionQuietStart   string
	PromotionQuietEnd     string

	StaffJWTSecret    string
	WebhookRatePerSec float64
	WebhookRateBurst  int
	ShutdownTimeout   time.Duration
}

// Load reads the configuration from the environment.
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		// WhatsApp Cloud API
		WhatsAppPhoneNumberID: getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),
		WhatsAppAPIToken:      getEnv("WHATSAPP_API_TOKEN", ""),
		WhatsAppAPIBaseURL:    getEnv("WHATSAPP_API_BASE_URL", ""),

		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModelID: getEnv("GEMINI_MODEL_ID", "gemini-1.5-flash"),

		GoogleCalendarCredentials: getEnv("GOOGLE_CALENDAR_CREDENTIALS", ""),
		CalendarID:                getEnv("CALENDAR_ID", "primary"),

		ClinicName:     getEnv("CLINIC_NAME", ""),
		ClinicAddress:  getEnv("CLINIC_ADDRESS", ""),
		ClinicPhone:    getEnv("CLINIC_PHONE", "87713358"),
		ClinicTimezone: getEnv("CLINIC_TIMEZONE", "Asia/Singapore"),
		PublicHolidays: getEnvAsList("PUBLIC_HOLIDAYS"),

		SessionTimeout:        getEnvAsDuration("SESSION_TIMEOUT", 15*time.Minute),
		ConversationTimeout:   getEnvAsDuration("CONVERSATION_TIMEOUT", 24*time.Hour),
		HistorySweepInterval:  getEnvAsDuration("HISTORY_SWEEP_INTERVAL", 10*time.Minute),
		RateLimitWindow:       getEnvAsDuration("RATE_LIMIT_WINDOW", 60*time.Second),
		RateLimitMax:          getEnvAsInt("RATE_LIMIT_MAX", 5),
		MaxActiveAppointments: getEnvAsInt("MAX_ACTIVE_APPOINTMENTS", 3),

		ReminderPollInterval:  getEnvAsDuration("REMINDER_POLL_INTERVAL", time.Minute),
		ReminderLeadTime:      getEnvAsDuration("REMINDER_LEAD_TIME", time.Hour),
		PromotionPollInterval: getEnvAsDuration("PROMOTION_POLL_INTERVAL", time.Minute),
		PromotionSendRate:     getEnvAsFloat("PROMOTION_SEND_RATE", 10),
		PromotionQuietStart:   getEnv("PROMOTION_QUIET_START", "21:00"),
		PromotionQuietEnd:     getEnv("PROMOTION_QUIET_END", "09:00"),

		StaffJWTSecret:    getEnv("STAFF_JWT_SECRET", ""),
		WebhookRatePerSec: getEnvAsFloat("WEBHOOK_RATE_PER_SEC", 20),
		WebhookRateBurst:  getEnvAsInt("WEBHOOK_RATE_BURST", 40),
		ShutdownTimeout:   getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

// Location resolves ClinicTimezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ClinicTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
