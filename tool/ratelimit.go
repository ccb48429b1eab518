package tool

import (
	"sync"
	"time"
)

// RateLimiter enforces a per-tool-name quota over a trailing window.
// Timestamps older than the window are evicted lazily on each check; the
// check-then-record step is atomic with respect to concurrent dispatches of
// the same tool name, so the quota cannot be over-admitted. State is owned
// by the enclosing Dispatcher instance, never package-level.
type RateLimiter struct {
	limit  int
	window time.Duration

	mu    sync.Mutex
	calls map[string][]time.Time
	now   func() time.Time // overridable in tests
}

// NewRateLimiter creates a limiter admitting limit calls per tool name
// within the trailing window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:  limit,
		window: window,
		calls:  make(map[string][]time.Time),
		now:    time.Now,
	}
}

// Allow reports whether another call to name is admitted right now, and if
// so records it.
func (rl *RateLimiter) Allow(name string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.window)

	kept := rl.calls[name][:0]
	for _, ts := range rl.calls[name] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= rl.limit {
		rl.calls[name] = kept
		return false
	}

	rl.calls[name] = append(kept, now)

	return true
}
