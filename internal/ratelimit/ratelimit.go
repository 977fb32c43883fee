// Package ratelimit throttles inbound messages per customer with a sliding
// window. A message is only recorded when it is allowed, so rejected
// messages never extend the window.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/clinic-booking-assistant/internal/clock"
)

// Limiter decides whether a customer may send another message right now.
type Limiter interface {
	Allow(ctx context.Context, customerID string) (bool, error)
}

// Config sets the window length and how many messages fit in it.
type Config struct {
	Window time.Duration
	Max    int
}

// DefaultConfig allows 5 messages per minute.
func DefaultConfig() Config {
	return Config{Window: time.Minute, Max: 5}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Window <= 0 {
		c.Window = def.Window
	}
	if c.Max <= 0 {
		c.Max = def.Max
	}
	return c
}

// Window is an in-process sliding window limiter.
type Window struct {
	mu     sync.Mutex
	cfg    Config
	clock  clock.Clock
	events map[string][]time.Time
}

func NewWindow(cfg Config, clk clock.Clock) *Window {
	return &Window{
		cfg:    cfg.withDefaults(),
		clock:  clock.OrSystem(clk),
		events: make(map[string][]time.Time),
	}
}

func (w *Window) Allow(_ context.Context, customerID string) (bool, error) {
	now := w.clock.Now()
	cutoff := now.Add(-w.cfg.Window)

	w.mu.Lock()
	defer w.mu.Unlock()

	kept := w.events[customerID][:0]
	for _, ts := range w.events[customerID] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= w.cfg.Max {
		w.events[customerID] = kept
		return false, nil
	}
	w.events[customerID] = append(kept, now)
	return true, nil
}

// Prune forgets customers with no messages inside the window.
func (w *Window) Prune() int {
	cutoff := w.clock.Now().Add(-w.cfg.Window)
	w.mu.Lock()
	defer w.mu.Unlock()

	removed := 0
	for id, stamps := range w.events {
		if len(stamps) == 0 || !stamps[len(stamps)-1].After(cutoff) {
			delete(w.events, id)
			removed++
		}
	}
	return removed
}

const keyPrefix = "ratelimit:"

// slidingWindowScript trims the window, then records the message only when
// there is room. Scores are unix milliseconds.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local max = tonumber(ARGV[3])
redis.call("ZREMRANGEBYSCORE", key, "-inf", now - window)
if redis.call("ZCARD", key) >= max then
	return 0
end
redis.call("ZADD", key, now, ARGV[4])
redis.call("PEXPIRE", key, window)
return 1
`)

// RedisWindow keeps each customer's window in a sorted set so every API
// instance shares the same limit.
type RedisWindow struct {
	redis  *redis.Client
	cfg    Config
	clock  clock.Clock
	tracer trace.Tracer
}

func NewRedisWindow(client *redis.Client, cfg Config, clk clock.Clock) *RedisWindow {
	if client == nil {
		panic("ratelimit: redis client cannot be nil")
	}
	return &RedisWindow{
		redis:  client,
		cfg:    cfg.withDefaults(),
		clock:  clock.OrSystem(clk),
		tracer: otel.Tracer("clinic.internal.ratelimit"),
	}
}

func (r *RedisWindow) Allow(ctx context.Context, customerID string) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "ratelimit.allow")
	defer span.End()

	now := r.clock.Now().UnixMilli()
	res, err := slidingWindowScript.Run(ctx, r.redis,
		[]string{keyPrefix + customerID},
		now, r.cfg.Window.Milliseconds(), r.cfg.Max, uuid.NewString(),
	).Int()
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("ratelimit: failed to check window: %w", err)
	}
	return res == 1, nil
}
