// Package ratelimit provides keyed token-bucket rate limiting for the API.
//
// Each key (typically principal plus workspace plus operation class) owns an
// independent bucket. Tokens accrue lazily on access, so idle buckets cost
// nothing between requests, and buckets that have been full for a while are
// dropped by Prune.
package ratelimit

import (
	"math"
	"sync"
	"time"
)

// Limit describes one bucket class: sustained refill rate and burst capacity.
type Limit struct {
	// PerMinute is the sustained refill rate in tokens per minute.
	PerMinute int
	// Burst is the bucket capacity.
	Burst int
}

// Decision reports the outcome of one Allow call, with the header fields the
// API middleware exposes to callers.
type Decision struct {
	// Allowed reports whether the request may proceed.
	Allowed bool
	// Limit is the bucket capacity.
	Limit int
	// Remaining is the whole number of tokens left after this request.
	Remaining int
	// Reset is when the bucket refills to full.
	Reset time.Time
	// RetryAfter is how long to wait before one token is available.
	// Zero when Allowed.
	RetryAfter time.Duration
}

type bucket struct {
	tokens float64
	last   time.Time
}

// Limiter is a keyed token-bucket rate limiter.
type Limiter struct {
	limit Limit
	clock func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

// NewLimiter creates a limiter with the given bucket class.
// Non-positive rate or burst values fall back to a permissive default.
func NewLimiter(limit Limit) *Limiter {
	if limit.PerMinute <= 0 {
		limit.PerMinute = 60
	}
	if limit.Burst <= 0 {
		limit.Burst = limit.PerMinute
	}
	return &Limiter{
		limit:   limit,
		clock:   time.Now,
		buckets: make(map[string]*bucket),
	}
}

// SetClock overrides the limiter clock. Intended for tests.
func (l *Limiter) SetClock(clock func() time.Time) {
	if l == nil || clock == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.clock = clock
}

// Allow consumes one token from the bucket for key and reports the decision.
func (l *Limiter) Allow(key string) Decision {
	if l == nil {
		return Decision{Allowed: true}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(l.limit.Burst), last: now}
		l.buckets[key] = b
	}

	l.advance(b, now)

	perSecond := float64(l.limit.PerMinute) / 60.0
	decision := Decision{Limit: l.limit.Burst}

	if b.tokens >= 1 {
		b.tokens--
		decision.Allowed = true
	} else {
		deficit := 1 - b.tokens
		decision.RetryAfter = time.Duration(math.Ceil(deficit/perSecond)) * time.Second
	}

	decision.Remaining = int(b.tokens)
	missing := float64(l.limit.Burst) - b.tokens
	decision.Reset = now.Add(time.Duration(math.Ceil(missing/perSecond)) * time.Second)
	return decision
}

// advance accrues tokens for the time elapsed since the last access.
// advance requires that l.mu is held.
func (l *Limiter) advance(b *bucket, now time.Time) {
	last := b.last
	if now.Before(last) {
		last = now
	}
	elapsed := now.Sub(last)
	b.tokens += elapsed.Seconds() * float64(l.limit.PerMinute) / 60.0
	if burst := float64(l.limit.Burst); b.tokens > burst {
		b.tokens = burst
	}
	b.last = now
}

// Prune drops buckets that have been idle for at least age.
// Returns the number of buckets removed.
func (l *Limiter) Prune(age time.Duration) int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	removed := 0
	for key, b := range l.buckets {
		if now.Sub(b.last) >= age {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}
