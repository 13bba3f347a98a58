// Package httpapi is the chi-routed HTTP edge from spec.md §6: the fetch
// surface (/v1/browse, /v1/fetch, /v1/batch), domain intelligence,
// discovery, workflow, and prediction routes, fronted by bearer-token
// auth and per-token rate limiting.
package httpapi

import (
	"sync"
	"time"
)

// rateLimiter is a fixed-window per-key limiter: each key gets a bucket
// that resets every window. Adapted from the itsneelabh-gomind example's
// InMemoryRateLimiter (sync.Map of per-key buckets, each behind its own
// mutex, periodic sweep of expired buckets) since no teacher file
// addresses inbound HTTP quota at all.
type rateLimiter struct {
	limit  int
	window time.Duration

	mu          sync.Mutex
	buckets     map[string]*rateBucket
	lastCleanup time.Time
}

type rateBucket struct {
	count     int
	resetAt   time.Time
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	return &rateLimiter{
		limit:       limit,
		window:      window,
		buckets:     make(map[string]*rateBucket),
		lastCleanup: time.Now(),
	}
}

// result is what a rate-limit check reports, enough to populate the
// X-RateLimit-* headers spec.md §6 names.
type result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Allow checks and consumes one request's quota for key.
func (l *rateLimiter) Allow(key string) result {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.cleanupLocked(now)

	b, ok := l.buckets[key]
	if !ok || now.After(b.resetAt) {
		b = &rateBucket{count: 0, resetAt: now.Add(l.window)}
		l.buckets[key] = b
	}

	if b.count >= l.limit {
		return result{Allowed: false, Limit: l.limit, Remaining: 0, ResetAt: b.resetAt, RetryAfter: b.resetAt.Sub(now)}
	}

	b.count++
	return result{Allowed: true, Limit: l.limit, Remaining: l.limit - b.count, ResetAt: b.resetAt}
}

func (l *rateLimiter) cleanupLocked(now time.Time) {
	if now.Sub(l.lastCleanup) < 5*l.window {
		return
	}
	l.lastCleanup = now
	for k, b := range l.buckets {
		if now.After(b.resetAt.Add(l.window)) {
			delete(l.buckets, k)
		}
	}
}
