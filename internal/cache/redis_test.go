package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/anonchat/internal/cache"
	"github.com/oggyb/anonchat/internal/config"
	"github.com/oggyb/anonchat/internal/matchmaking"
)

func setupCache(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	cfg := &config.Config{}
	cfg.Redis.Addr = mr.Addr()
	cfg.Redis.StatsTTL = 2 * time.Second

	c := cache.NewRedisCache(cfg)
	t.Cleanup(func() { _ = c.Close() })
	require.NoError(t, c.Ping(context.Background()))
	return c, mr
}

func TestStatsRoundTripAndExpiry(t *testing.T) {
	c, mr := setupCache(t)
	ctx := context.Background()

	_, ok, err := c.GetStats(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "empty cache is a miss")

	want := matchmaking.Stats{Searching: 4, Pairings: 2}
	require.NoError(t, c.SetStats(ctx, want))

	got, ok, err := c.GetStats(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	mr.FastForward(3 * time.Second)
	_, ok, err = c.GetStats(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "snapshot expires after StatsTTL")
}

func TestGetStatsCorrupt(t *testing.T) {
	c, mr := setupCache(t)
	require.NoError(t, mr.Set(c.KeyForStats(), "{not json"))

	_, _, err := c.GetStats(context.Background())
	assert.Error(t, err)
}

func TestLockAcquireRelease(t *testing.T) {
	c, mr := setupCache(t)
	ctx := context.Background()
	key := c.KeyForUserLock(42)
	assert.Equal(t, "lock:user:42", key)

	require.NoError(t, c.AcquireLock(ctx, key, "owner-a", time.Second))
	assert.ErrorIs(t, c.AcquireLock(ctx, key, "owner-b", time.Second), cache.ErrLockHeld)

	// wrong token leaves the lock alone
	released, err := c.ReleaseLock(ctx, key, "owner-b")
	require.NoError(t, err)
	assert.False(t, released)
	assert.True(t, mr.Exists(key))

	released, err = c.ReleaseLock(ctx, key, "owner-a")
	require.NoError(t, err)
	assert.True(t, released)
	assert.False(t, mr.Exists(key))

	require.NoError(t, c.AcquireLock(ctx, key, "owner-b", time.Second))
}

func TestLockExpires(t *testing.T) {
	c, mr := setupCache(t)
	ctx := context.Background()
	key := c.KeyForUserLock(1)

	require.NoError(t, c.AcquireLock(ctx, key, "a", time.Second))
	mr.FastForward(2 * time.Second)

	require.NoError(t, c.AcquireLock(ctx, key, "b", time.Second))
	released, err := c.ReleaseLock(ctx, key, "a")
	require.NoError(t, err)
	assert.False(t, released, "stale owner cannot release the new holder's lock")
}
