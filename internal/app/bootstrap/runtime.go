// Package bootstrap builds the runtime dependencies of the API process from
// configuration, choosing redis/postgres/Google backends when configured and
// in-memory ones otherwise.
package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/clinic-booking-assistant/internal/config"
	"github.com/wolfman30/clinic-booking-assistant/internal/ratelimit"
	"github.com/wolfman30/clinic-booking-assistant/internal/session"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available, using in-memory stores", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildPostgresPool connects to DATABASE_URL. It returns (nil, nil) when no
// database is configured; reminders and promotions are then disabled.
func BuildPostgresPool(ctx context.Context, cfg *appconfig.Config) (*pgxpool.Pool, error) {
	if cfg == nil || strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, nil
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}
	return pool, nil
}

// SessionStores bundles the per-customer stores shared by the dialogue, the
// assistant and the rate limiter.
type SessionStores struct {
	States  session.StateStore
	History session.HistoryStore
	Locker  session.Locker
	Limiter ratelimit.Limiter
	Backend string
}

// BuildSessionStores uses redis when a client is given so several API
// instances share state, and process memory otherwise.
func BuildSessionStores(cfg *appconfig.Config, redisClient *redis.Client) SessionStores {
	limits := ratelimit.Config{Window: cfg.RateLimitWindow, Max: cfg.RateLimitMax}
	if redisClient == nil {
		return SessionStores{
			States:  session.NewMemoryStateStore(),
			History: session.NewMemoryHistoryStore(cfg.ConversationTimeout, nil),
			Locker:  session.NewLocalLocker(),
			Limiter: ratelimit.NewWindow(limits, nil),
			Backend: "memory",
		}
	}
	return SessionStores{
		// dialogue state outlives the idle timeout so the timeout reply can
		// still be sent; redis drops it well after that
		States:  session.NewRedisStateStore(redisClient, 4*cfg.SessionTimeout),
		History: session.NewRedisHistoryStore(redisClient, cfg.ConversationTimeout),
		Locker:  session.NewRedisLocker(redisClient, 0),
		Limiter: ratelimit.NewRedisWindow(redisClient, limits, nil),
		Backend: "redis",
	}
}
