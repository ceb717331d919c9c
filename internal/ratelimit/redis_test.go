package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisLimiter(t *testing.T, interval time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisWithClient(rdb, interval), mr
}

func TestRedisAllowsFirstAttempt(t *testing.T) {
	l, _ := newRedisLimiter(t, 3*time.Second)

	ok, err := l.Allow(context.Background(), "42")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLimitsWithinInterval(t *testing.T) {
	l, mr := newRedisLimiter(t, 3*time.Second)
	ctx := context.Background()

	ok, err := l.Allow(ctx, "42")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = l.Allow(ctx, "42")
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(4 * time.Second)
	ok, err = l.Allow(ctx, "42")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisSlidingWindow(t *testing.T) {
	l, mr := newRedisLimiter(t, 3*time.Second)
	ctx := context.Background()

	ok, err := l.Allow(ctx, "42")
	require.NoError(t, err)
	require.True(t, ok)

	// The refused attempt refreshes the TTL, so two seconds later the key
	// is still live.
	mr.FastForward(2 * time.Second)
	ok, err = l.Allow(ctx, "42")
	require.NoError(t, err)
	require.False(t, ok)

	mr.FastForward(2 * time.Second)
	ok, err = l.Allow(ctx, "42")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisPlayersIndependent(t *testing.T) {
	l, _ := newRedisLimiter(t, 3*time.Second)
	ctx := context.Background()

	ok, _ := l.Allow(ctx, "42")
	require.True(t, ok)
	ok, err := l.Allow(ctx, "43")
	require.NoError(t, err)
	assert.True(t, ok)
}
