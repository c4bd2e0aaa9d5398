package services

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lexhaven/lexhaven-engine/pkg/apperrors"
)

// RateLimiter enforces a fixed-window per-account query rate, independent of
// credit balance. It gates requests before validation and pricing, so a
// rate-limited caller is never charged.
type RateLimiter struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	buckets   map[uuid.UUID]*rateBucket
	lastSweep time.Time
	now       func() time.Time
}

type rateBucket struct {
	windowStart time.Time
	count       int
}

// NewRateLimiter creates a limiter allowing `limit` queries per minute per
// account. A non-positive limit disables limiting.
func NewRateLimiter(limit int) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  time.Minute,
		buckets: make(map[uuid.UUID]*rateBucket),
		now:     time.Now,
	}
}

// Allow records one request for the account, returning a RateLimitError when
// the current window is exhausted.
func (l *RateLimiter) Allow(accountID uuid.UUID) error {
	if l.limit <= 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	// At most one pass per window, drop buckets for accounts that stopped
	// querying; without this the map grows with every one-shot account.
	if now.Sub(l.lastSweep) >= l.window {
		for id, b := range l.buckets {
			if now.Sub(b.windowStart) >= l.window {
				delete(l.buckets, id)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[accountID]
	if !ok || now.Sub(b.windowStart) >= l.window {
		l.buckets[accountID] = &rateBucket{windowStart: now, count: 1}
		return nil
	}

	if b.count >= l.limit {
		return &apperrors.RateLimitError{
			Limit:      l.limit,
			RetryAfter: b.windowStart.Add(l.window).Sub(now),
		}
	}

	b.count++
	return nil
}
