package gateway

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// PlayerLimiter keeps one token bucket per player id.
type PlayerLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rps      float64
	burst    int
}

// NewPlayerLimiter allows rps submissions per second per player with the given burst.
// A non-positive rps disables limiting.
func NewPlayerLimiter(rps float64, burst int) *PlayerLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &PlayerLimiter{
		limiters: make(map[string]*limiterEntry),
		rps:      rps,
		burst:    burst,
	}
}

// Allow reports whether key may act now.
func (l *PlayerLimiter) Allow(key string) bool {
	if l == nil || l.rps <= 0 {
		return true
	}

	l.mu.Lock()
	entry, ok := l.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(l.rps), l.burst)}
		l.limiters[key] = entry
	}
	entry.lastAccess = time.Now()
	l.mu.Unlock()

	return entry.limiter.Allow()
}

// Cleanup forgets players idle for longer than maxIdle and returns how many were removed.
func (l *PlayerLimiter) Cleanup(maxIdle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	cutoff := time.Now().Add(-maxIdle)
	for key, entry := range l.limiters {
		if entry.lastAccess.Before(cutoff) {
			delete(l.limiters, key)
			removed++
		}
	}
	return removed
}

// Size returns the number of tracked players.
func (l *PlayerLimiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}
