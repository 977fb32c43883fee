package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "LOG_LEVEL", "SESSION_TIMEOUT", "RATE_LIMIT_MAX", "PUBLIC_HOLIDAYS", "CLINIC_TIMEZONE", "PROMOTION_SEND_RATE"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.SessionTimeout != 15*time.Minute {
		t.Fatalf("expected 15m session timeout, got %s", cfg.SessionTimeout)
	}
	if cfg.RateLimitWindow != time.Minute || cfg.RateLimitMax != 5 {
		t.Fatalf("unexpected rate limit defaults %s/%d", cfg.RateLimitWindow, cfg.RateLimitMax)
	}
	if cfg.MaxActiveAppointments != 3 {
		t.Fatalf("expected capacity 3, got %d", cfg.MaxActiveAppointments)
	}
	if cfg.ReminderLeadTime != time.Hour {
		t.Fatalf("expected 1h reminder lead, got %s", cfg.ReminderLeadTime)
	}
	if cfg.PromotionSendRate != 10 {
		t.Fatalf("expected promotion rate 10, got %v", cfg.PromotionSendRate)
	}
	if cfg.PublicHolidays != nil {
		t.Fatalf("expected no holidays, got %v", cfg.PublicHolidays)
	}
	if cfg.Location().String() != "Asia/Singapore" {
		t.Fatalf("expected clinic timezone Asia/Singapore, got %s", cfg.Location())
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("SESSION_TIMEOUT", "30m")
	t.Setenv("RATE_LIMIT_MAX", "10")
	t.Setenv("PUBLIC_HOLIDAYS", "2025-08-09, 2025-12-25,,")
	t.Setenv("PROMOTION_SEND_RATE", "2.5")
	t.Setenv("REDIS_TLS", "true")
	cfg := Load()
	if cfg.Port != "9090" || cfg.Env != "production" {
		t.Fatalf("unexpected overrides %s/%s", cfg.Port, cfg.Env)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if cfg.SessionTimeout != 30*time.Minute || cfg.RateLimitMax != 10 {
		t.Fatalf("unexpected session/rate overrides %s/%d", cfg.SessionTimeout, cfg.RateLimitMax)
	}
	if len(cfg.PublicHolidays) != 2 || cfg.PublicHolidays[1] != "2025-12-25" {
		t.Fatalf("unexpected holidays %v", cfg.PublicHolidays)
	}
	if cfg.PromotionSendRate != 2.5 || !cfg.RedisTLS {
		t.Fatalf("unexpected promotion rate %v or redis tls %v", cfg.PromotionSendRate, cfg.RedisTLS)
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("RATE_LIMIT_WINDOW", "soon")
	t.Setenv("MAX_ACTIVE_APPOINTMENTS", "many")
	t.Setenv("CLINIC_TIMEZONE", "Mars/Olympus")
	cfg := Load()
	if cfg.RateLimitWindow != time.Minute {
		t.Fatalf("expected default window, got %s", cfg.RateLimitWindow)
	}
	if cfg.MaxActiveAppointments != 3 {
		t.Fatalf("expected default capacity, got %d", cfg.MaxActiveAppointments)
	}
	if cfg.Location() != time.UTC {
		t.Fatalf("expected UTC fallback, got %s", cfg.Location())
	}
}
