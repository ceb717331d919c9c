// Package ratelimit throttles per-player score resubmission.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter decides whether a player may submit right now. The window is
// sliding: a refused attempt still counts as the latest attempt, so
// rapid-fire spam never gets a timer reset.
type Limiter interface {
	Allow(ctx context.Context, playerID string) (bool, error)
}

// Memory is an in-process Limiter. One entry per distinct player seen by
// the running process; state is lost on restart, which only weakens
// throttling, never correctness.
type Memory struct {
	interval time.Duration
	now      func() time.Time

	mu       sync.Mutex
	lastSeen map[string]time.Time
}

// NewMemory creates a Memory limiter with the given minimum interval.
func NewMemory(interval time.Duration) *Memory {
	return NewMemoryWithClock(interval, time.Now)
}

// NewMemoryWithClock creates a Memory limiter with an injected clock
// (for testing).
func NewMemoryWithClock(interval time.Duration, now func() time.Time) *Memory {
	return &Memory{
		interval: interval,
		now:      now,
		lastSeen: make(map[string]time.Time),
	}
}

var _ Limiter = (*Memory)(nil)

// Allow records the attempt and reports whether it falls outside the
// minimum interval since the previous one.
func (m *Memory) Allow(_ context.Context, playerID string) (bool, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	last, seen := m.lastSeen[playerID]
	m.lastSeen[playerID] = now
	if seen && now.Sub(last) < m.interval {
		return false, nil
	}
	return true, nil
}
