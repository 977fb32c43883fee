package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const stateKeyPrefix = "dialogue:state:"

// RedisStateStore persists state as JSON blobs. The key TTL only bounds
// garbage; expiry of the dialogue itself is decided from State.Timestamp.
type RedisStateStore struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

// NewRedisStateStore keeps keys for ttl after their last write.
func NewRedisStateStore(client *redis.Client, ttl time.Duration) *RedisStateStore {
	if client == nil {
		panic("session: redis client cannot be nil")
	}
	return &RedisStateStore{
		redis:  client,
		ttl:    ttl,
		tracer: otel.Tracer("clinic.internal.session.state"),
	}
}

func (s *RedisStateStore) Get(ctx context.Context, customerID string) (*State, error) {
	ctx, span := s.tracer.Start(ctx, "session.get_state")
	defer span.End()

	data, err := s.redis.Get(ctx, stateKey(customerID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("session: failed to load state: %w", err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("session: failed to decode state: %w", err)
	}
	return &st, nil
}

func (s *RedisStateStore) Set(ctx context.Context, state *State) error {
	ctx, span := s.tracer.Start(ctx, "session.save_state")
	defer span.End()

	if state == nil || state.CustomerID == "" {
		return errors.New("session: state requires a customer id")
	}
	data, err := json.Marshal(state)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to marshal state: %w", err)
	}
	if err := s.redis.Set(ctx, stateKey(state.CustomerID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to persist state: %w", err)
	}
	return nil
}

func (s *RedisStateStore) Delete(ctx context.Context, customerID string) error {
	ctx, span := s.tracer.Start(ctx, "session.delete_state")
	defer span.End()

	if err := s.redis.Del(ctx, stateKey(customerID)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to delete state: %w", err)
	}
	return nil
}

func (s *RedisStateStore) Count(ctx context.Context) (int, error) {
	return countKeys(ctx, s.redis, stateKeyPrefix+"*")
}

func stateKey(customerID string) string {
	return stateKeyPrefix + customerID
}

func countKeys(ctx context.Context, client *redis.Client, pattern string) (int, error) {
	n := 0
	iter := client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("session: failed to scan keys: %w", err)
	}
	return n, nil
}
