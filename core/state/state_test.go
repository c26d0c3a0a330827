package state

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const awaitingQuery State = "search_query"

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Minute)

	st, err := s.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, st)

	require.NoError(t, s.Set(ctx, 1, awaitingQuery))
	st, err = s.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, awaitingQuery, st)

	other, err := s.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, other, "state must not bleed across users")

	require.NoError(t, s.Clear(ctx, 1))
	st, err = s.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, st)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, 7, awaitingQuery))
	now = now.Add(59 * time.Second)
	st, _ := s.Get(ctx, 7)
	assert.Equal(t, awaitingQuery, st)

	now = now.Add(2 * time.Second)
	st, _ = s.Get(ctx, 7)
	assert.Equal(t, StateIdle, st)
	assert.Equal(t, 0, s.Len())
}

func TestMemoryStoreSetIdleClears(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	require.NoError(t, s.Set(ctx, 3, awaitingQuery))
	require.NoError(t, s.Set(ctx, 3, StateIdle))
	assert.Equal(t, 0, s.Len())
}

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, "test:state", ttl), mr
}

func TestRedisStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, 10*time.Minute)

	st, err := s.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, st)

	require.NoError(t, s.Set(ctx, 42, awaitingQuery))
	assert.True(t, mr.Exists("test:state:42"))
	assert.Equal(t, 10*time.Minute, mr.TTL("test:state:42"))

	st, err = s.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, awaitingQuery, st)

	require.NoError(t, s.Clear(ctx, 42))
	assert.False(t, mr.Exists("test:state:42"))
	require.NoError(t, s.Ping(ctx))
}

func TestRedisStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, time.Minute)

	require.NoError(t, s.Set(ctx, 5, awaitingQuery))
	mr.FastForward(2 * time.Minute)

	st, err := s.Get(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, st)
}

func TestRedisStoreGetKeepsExpiry(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, time.Minute)

	require.NoError(t, s.Set(ctx, 6, awaitingQuery))
	mr.FastForward(40 * time.Second)
	st, err := s.Get(ctx, 6)
	require.NoError(t, err)
	assert.Equal(t, awaitingQuery, st)
	assert.Equal(t, 20*time.Second, mr.TTL(s.key(6)))

	mr.FastForward(30 * time.Second)
	st, err = s.Get(ctx, 6)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, st)
}

func TestRedisStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, time.Minute)
	mr.Close()

	_, err := s.Get(ctx, 1)
	assert.Error(t, err)
	assert.Error(t, s.Set(ctx, 1, awaitingQuery))
}
