package persist

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := NewRedisStore("redis://"+mr.Addr(), "tikiti", ttl)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func TestRedisStore_RoundTrip(t *testing.T) {
	s, _ := newRedisStore(t, 0)

	ctx := context.Background()
	require.NoError(t, s.Save(ctx, "auth-storage", payload{Name: "session", Count: 1}))

	var got payload
	found, err := s.Load(ctx, "auth-storage", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, payload{Name: "session", Count: 1}, got)
}

func TestRedisStore_MissingKeyIsAbsent(t *testing.T) {
	s, _ := newRedisStore(t, 0)

	var got payload
	found, err := s.Load(context.Background(), "event-storage", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisStore_KeysArePrefixed(t *testing.T) {
	s, mr := newRedisStore(t, 0)

	require.NoError(t, s.Save(context.Background(), "auth-storage", payload{}))
	assert.True(t, mr.Exists("tikiti:auth-storage"))
}

func TestRedisStore_TTLExpires(t *testing.T) {
	s, mr := newRedisStore(t, time.Minute)

	ctx := context.Background()
	require.NoError(t, s.Save(ctx, "event-storage", payload{Count: 5}))

	mr.FastForward(2 * time.Minute)

	var got payload
	found, err := s.Load(ctx, "event-storage", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisStore_Delete(t *testing.T) {
	s, _ := newRedisStore(t, 0)

	ctx := context.Background()
	require.NoError(t, s.Save(ctx, "auth-storage", payload{}))
	require.NoError(t, s.Delete(ctx, "auth-storage"))

	var got payload
	found, err := s.Load(ctx, "auth-storage", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisStore_CorruptValueIsAbsent(t *testing.T) {
	s, mr := newRedisStore(t, 0)

	mr.Set("tikiti:auth-storage", "{nope")

	var got payload
	found, err := s.Load(context.Background(), "auth-storage", &got)
	require.NoError(t, err)
	assert.False(t, found)
}
