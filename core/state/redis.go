package state

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore keeps conversation state in Redis. Each Set starts a fresh TTL;
// reads leave the expiry alone.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore builds a RedisStore. Keys are "<prefix>:<userID>".
func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "state"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(userID int64) string {
	return s.prefix + ":" + strconv.FormatInt(userID, 10)
}

func (s *RedisStore) Get(ctx context.Context, userID int64) (State, error) {
	val, err := s.client.Get(ctx, s.key(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return StateIdle, nil
	}
	if err != nil {
		return StateIdle, fmt.Errorf("state get: %w", err)
	}
	if val == "" {
		return StateIdle, nil
	}
	return State(val), nil
}

func (s *RedisStore) Set(ctx context.Context, userID int64, st State) error {
	if !Active(st) {
		return s.Clear(ctx, userID)
	}
	ttl := s.ttl
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, s.key(userID), string(st), ttl).Err(); err != nil {
		return fmt.Errorf("state set: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("state clear: %w", err)
	}
	return nil
}

// Ping checks connectivity to the backing Redis.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
