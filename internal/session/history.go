package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/clinic-booking-assistant/internal/clock"
)

// Message is one turn of conversation history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	// maxStoredTurns caps how much history is retained per customer.
	maxStoredTurns = 50
)

// HistoryStore keeps the conversation used by the generative fallback.
type HistoryStore interface {
	Append(ctx context.Context, customerID string, msgs ...Message) error
	Recent(ctx context.Context, customerID string, max int) ([]Message, error)
	Reset(ctx context.Context, customerID string) (bool, error)
	Sweep(ctx context.Context) (int, error)
	Count(ctx context.Context) (int, error)
	Stats(ctx context.Context) ([]ConversationStats, error)
}

// ConversationStats summarizes one stored conversation.
type ConversationStats struct {
	CustomerID   string    `json:"customer_id"`
	MessageCount int       `json:"message_count"`
	LastUpdated  time.Time `json:"last_updated"`
	Expired      bool      `json:"expired"`
}

type conversation struct {
	turns       []Message
	lastUpdated time.Time
}

// MemoryHistoryStore expires conversations lazily on read and in Sweep.
type MemoryHistoryStore struct {
	mu      sync.Mutex
	convs   map[string]*conversation
	timeout time.Duration
	clock   clock.Clock
}

func NewMemoryHistoryStore(timeout time.Duration, clk clock.Clock) *MemoryHistoryStore {
	return &MemoryHistoryStore{
		convs:   make(map[string]*conversation),
		timeout: timeout,
		clock:   clock.OrSystem(clk),
	}
}

func (m *MemoryHistoryStore) expired(c *conversation, now time.Time) bool {
	return m.timeout > 0 && now.Sub(c.lastUpdated) > m.timeout
}

func (m *MemoryHistoryStore) Append(_ context.Context, customerID string, msgs ...Message) error {
	now := m.clock.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.convs[customerID]
	if !ok || m.expired(c, now) {
		c = &conversation{}
		m.convs[customerID] = c
	}
	c.turns = append(c.turns, msgs...)
	if len(c.turns) > maxStoredTurns {
		c.turns = append([]Message(nil), c.turns[len(c.turns)-maxStoredTurns:]...)
	}
	c.lastUpdated = now
	return nil
}

func (m *MemoryHistoryStore) Recent(_ context.Context, customerID string, max int) ([]Message, error) {
	now := m.clock.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.convs[customerID]
	if !ok {
		return nil, nil
	}
	if m.expired(c, now) {
		delete(m.convs, customerID)
		return nil, nil
	}
	turns := c.turns
	if max > 0 && len(turns) > max {
		turns = turns[len(turns)-max:]
	}
	return append([]Message(nil), turns...), nil
}

// Reset forgets a conversation and reports whether one existed.
func (m *MemoryHistoryStore) Reset(_ context.Context, customerID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.convs[customerID]
	delete(m.convs, customerID)
	return ok, nil
}

// Sweep drops expired conversations and returns how many were removed.
func (m *MemoryHistoryStore) Sweep(context.Context) (int, error) {
	now := m.clock.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, c := range m.convs {
		if m.expired(c, now) {
			delete(m.convs, id)
			removed++
		}
	}
	return removed, nil
}

func (m *MemoryHistoryStore) Count(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.convs), nil
}

func (m *MemoryHistoryStore) Stats(context.Context) ([]ConversationStats, error) {
	now := m.clock.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]ConversationStats, 0, len(m.convs))
	for id, c := range m.convs {
		out = append(out, ConversationStats{
			CustomerID:   id,
			MessageCount: len(c.turns),
			LastUpdated:  c.lastUpdated,
			Expired:      m.expired(c, now),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CustomerID < out[j].CustomerID })
	return out, nil
}

const historyKeyPrefix = "dialogue:history:"

// RedisHistoryStore keeps each conversation in a list whose TTL is the
// conversation timeout, refreshed on every append.
type RedisHistoryStore struct {
	redis   *redis.Client
	timeout time.Duration
	tracer  trace.Tracer
}

func NewRedisHistoryStore(client *redis.Client, timeout time.Duration) *RedisHistoryStore {
	if client == nil {
		panic("session: redis client cannot be nil")
	}
	return &RedisHistoryStore{
		redis:   client,
		timeout: timeout,
		tracer:  otel.Tracer("clinic.internal.session.history"),
	}
}

func (s *RedisHistoryStore) Append(ctx context.Context, customerID string, msgs ...Message) error {
	ctx, span := s.tracer.Start(ctx, "session.append_history")
	defer span.End()

	if len(msgs) == 0 {
		return nil
	}
	values := make([]any, 0, len(msgs))
	for _, msg := range msgs {
		data, err := json.Marshal(msg)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("session: failed to marshal message: %w", err)
		}
		values = append(values, data)
	}

	key := historyKey(customerID)
	pipe := s.redis.TxPipeline()
	pipe.RPush(ctx, key, values...)
	pipe.LTrim(ctx, key, -maxStoredTurns, -1)
	if s.timeout > 0 {
		pipe.Expire(ctx, key, s.timeout)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to append history: %w", err)
	}
	return nil
}

func (s *RedisHistoryStore) Recent(ctx context.Context, customerID string, max int) ([]Message, error) {
	ctx, span := s.tracer.Start(ctx, "session.load_history")
	defer span.End()

	start := int64(0)
	if max > 0 {
		start = int64(-max)
	}
	raw, err := s.redis.LRange(ctx, historyKey(customerID), start, -1).Result()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("session: failed to load history: %w", err)
	}
	out := make([]Message, 0, len(raw))
	for _, item := range raw {
		var msg Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("session: failed to decode history: %w", err)
		}
		out = append(out, msg)
	}
	return out, nil
}

func (s *RedisHistoryStore) Reset(ctx context.Context, customerID string) (bool, error) {
	n, err := s.redis.Del(ctx, historyKey(customerID)).Result()
	if err != nil {
		return false, fmt.Errorf("session: failed to reset history: %w", err)
	}
	return n > 0, nil
}

// Sweep is a no-op: redis expires conversations through key TTLs.
func (s *RedisHistoryStore) Sweep(context.Context) (int, error) {
	return 0, nil
}

func (s *RedisHistoryStore) Count(ctx context.Context) (int, error) {
	return countKeys(ctx, s.redis, historyKeyPrefix+"*")
}

// Stats derives each conversation's last update from its remaining TTL.
func (s *RedisHistoryStore) Stats(ctx context.Context) ([]ConversationStats, error) {
	ctx, span := s.tracer.Start(ctx, "session.history_stats")
	defer span.End()

	now := time.Now()
	var out []ConversationStats
	iter := s.redis.Scan(ctx, 0, historyKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		n, err := s.redis.LLen(ctx, key).Result()
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("session: failed to read history length: %w", err)
		}
		stat := ConversationStats{
			CustomerID:   strings.TrimPrefix(key, historyKeyPrefix),
			MessageCount: int(n),
		}
		if ttl, err := s.redis.TTL(ctx, key).Result(); err == nil && ttl > 0 && s.timeout > 0 {
			stat.LastUpdated = now.Add(ttl - s.timeout)
		}
		out = append(out, stat)
	}
	if err := iter.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("session: failed to scan history: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CustomerID < out[j].CustomerID })
	return out, nil
}

func historyKey(customerID string) string {
	return historyKeyPrefix + customerID
}
