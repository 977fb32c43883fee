package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	appconfig "github.com/wolfman30/clinic-booking-assistant/internal/config"
	"github.com/wolfman30/clinic-booking-assistant/internal/ratelimit"
	"github.com/wolfman30/clinic-booking-assistant/internal/session"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

func testConfig() *appconfig.Config {
	return &appconfig.Config{
		ClinicTimezone:        "Asia/Singapore",
		SessionTimeout:        15 * time.Minute,
		ConversationTimeout:   24 * time.Hour,
		RateLimitWindow:       time.Minute,
		RateLimitMax:          5,
		MaxActiveAppointments: 2,
		PublicHolidays:        []string{"2025-08-09"},
	}
}

func TestBuildRedisClientDisabled(t *testing.T) {
	if client := BuildRedisClient(context.Background(), &appconfig.Config{}, logging.Discard(), true); client != nil {
		t.Fatalf("expected nil client without REDIS_ADDR")
	}
}

func TestBuildRedisClientVerify(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &appconfig.Config{RedisAddr: mr.Addr()}

	client := BuildRedisClient(context.Background(), cfg, logging.Discard(), true)
	if client == nil {
		t.Fatalf("expected client for reachable redis")
	}
	defer client.Close()

	mr.Close()
	if dead := BuildRedisClient(context.Background(), cfg, logging.Discard(), true); dead != nil {
		t.Fatalf("expected nil client when ping fails")
	}
}

func TestBuildSessionStoresMemory(t *testing.T) {
	stores := BuildSessionStores(testConfig(), nil)
	if stores.Backend != "memory" {
		t.Fatalf("expected memory backend, got %s", stores.Backend)
	}
	if _, ok := stores.States.(*session.MemoryStateStore); !ok {
		t.Fatalf("unexpected state store %T", stores.States)
	}
	if _, ok := stores.Limiter.(*ratelimit.Window); !ok {
		t.Fatalf("unexpected limiter %T", stores.Limiter)
	}
}

func TestBuildSessionStoresRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, logging.Discard(), false)
	defer client.Close()

	stores := BuildSessionStores(testConfig(), client)
	if stores.Backend != "redis" {
		t.Fatalf("expected redis backend, got %s", stores.Backend)
	}
	if _, ok := stores.History.(*session.RedisHistoryStore); !ok {
		t.Fatalf("unexpected history store %T", stores.History)
	}
	if _, ok := stores.Locker.(*session.RedisLocker); !ok {
		t.Fatalf("unexpected locker %T", stores.Locker)
	}
}

func TestBuildPostgresPoolDisabled(t *testing.T) {
	pool, err := BuildPostgresPool(context.Background(), &appconfig.Config{})
	if err != nil || pool != nil {
		t.Fatalf("expected no pool without DATABASE_URL, got %v %v", pool, err)
	}
}

func TestBuildCalendarInMemory(t *testing.T) {
	svc, err := BuildCalendar(context.Background(), testConfig(), logging.Discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	policy := svc.Policy()
	if policy.MaxActive != 2 {
		t.Fatalf("expected capacity from config, got %d", policy.MaxActive)
	}
	if !policy.IsHoliday("2025-08-09") {
		t.Fatalf("expected configured holiday")
	}
	if policy.Location.String() != "Asia/Singapore" {
		t.Fatalf("unexpected location %s", policy.Location)
	}
}

func TestLoadCredentials(t *testing.T) {
	inline, err := loadCredentials(` {"type":"service_account"} `)
	if err != nil || string(inline) != `{"type":"service_account"}` {
		t.Fatalf("unexpected inline credentials %q %v", inline, err)
	}

	path := filepath.Join(t.TempDir(), "creds.json")
	if err := os.WriteFile(path, []byte(`{"type":"file"}`), 0o600); err != nil {
		t.Fatalf("write creds: %v", err)
	}
	fromFile, err := loadCredentials(path)
	if err != nil || string(fromFile) != `{"type":"file"}` {
		t.Fatalf("unexpected file credentials %q %v", fromFile, err)
	}

	if _, err := loadCredentials(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing credentials file")
	}
}

func TestBuildAssistantDisabledWithoutKey(t *testing.T) {
	a, err := BuildAssistant(context.Background(), testConfig(), session.NewMemoryHistoryStore(time.Hour, nil), logging.Discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != nil {
		t.Fatalf("expected nil assistant without GEMINI_API_KEY")
	}
}

func TestBuildWhatsAppClientRequiresCredentials(t *testing.T) {
	if _, err := BuildWhatsAppClient(testConfig(), logging.Discard()); err == nil {
		t.Fatalf("expected error without WhatsApp credentials")
	}
	cfg := testConfig()
	cfg.WhatsAppAPIToken = "token"
	cfg.WhatsAppPhoneNumberID = "1234567890"
	if _, err := BuildWhatsAppClient(cfg, logging.Discard()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
