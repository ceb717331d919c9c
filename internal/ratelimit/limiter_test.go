package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAllowsFirstAttempt(t *testing.T) {
	l := NewMemory(3 * time.Second)

	ok, err := l.Allow(context.Background(), "42")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryLimitsWithinInterval(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	current := base
	l := NewMemory(3 * time.Second)
	l.now = func() time.Time { return current }

	ok, _ := l.Allow(context.Background(), "42")
	require.True(t, ok)

	current = base.Add(time.Second)
	ok, _ = l.Allow(context.Background(), "42")
	assert.False(t, ok)

	current = base.Add(4 * time.Second)
	ok, _ = l.Allow(context.Background(), "42")
	assert.True(t, ok)
}

func TestMemorySlidingWindow(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	current := base
	l := NewMemory(3 * time.Second)
	l.now = func() time.Time { return current }

	ok, _ := l.Allow(context.Background(), "42")
	require.True(t, ok)

	// Each refused attempt restarts the window, so hammering every two
	// seconds never gets through.
	for i := 1; i <= 5; i++ {
		current = base.Add(time.Duration(2*i) * time.Second)
		ok, _ = l.Allow(context.Background(), "42")
		assert.False(t, ok, "attempt %d", i)
	}

	current = current.Add(3 * time.Second)
	ok, _ = l.Allow(context.Background(), "42")
	assert.True(t, ok)
}

func TestMemoryPlayersIndependent(t *testing.T) {
	l := NewMemory(3 * time.Second)

	ok, _ := l.Allow(context.Background(), "42")
	require.True(t, ok)
	ok, _ = l.Allow(context.Background(), "43")
	assert.True(t, ok)
}
