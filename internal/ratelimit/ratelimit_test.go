package ratelimit

import (
	"testing"
	"time"
)

func fixedClock(at *time.Time) func() time.Time {
	return func() time.Time { return *at }
}

func TestAllowConsumesBurst(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	limiter := NewLimiter(Limit{PerMinute: 60, Burst: 3})
	limiter.SetClock(fixedClock(&now))

	for i := 0; i < 3; i++ {
		decision := limiter.Allow("user-1:ws-1")
		if !decision.Allowed {
			t.Fatalf("request %d: expected allowed", i)
		}
		if decision.Limit != 3 {
			t.Fatalf("limit = %d, want 3", decision.Limit)
		}
		if decision.Remaining != 2-i {
			t.Fatalf("request %d: remaining = %d, want %d", i, decision.Remaining, 2-i)
		}
	}

	decision := limiter.Allow("user-1:ws-1")
	if decision.Allowed {
		t.Fatal("expected bucket exhaustion")
	}
	if decision.RetryAfter <= 0 {
		t.Fatalf("retry after = %s, want positive", decision.RetryAfter)
	}
	if !decision.Reset.After(now) {
		t.Fatalf("reset = %s, want after now", decision.Reset)
	}
}

func TestAllowRefillsOverTime(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	limiter := NewLimiter(Limit{PerMinute: 60, Burst: 2})
	limiter.SetClock(fixedClock(&now))

	limiter.Allow("key")
	limiter.Allow("key")
	if limiter.Allow("key").Allowed {
		t.Fatal("expected exhaustion")
	}

	// 60/min refills one token per second.
	now = now.Add(2 * time.Second)
	decision := limiter.Allow("key")
	if !decision.Allowed {
		t.Fatal("expected refill after 2s")
	}

	// Refill never exceeds burst.
	now = now.Add(time.Hour)
	decision = limiter.Allow("key")
	if !decision.Allowed {
		t.Fatal("expected allowed after long idle")
	}
	if decision.Remaining != 1 {
		t.Fatalf("remaining = %d, want burst-1", decision.Remaining)
	}
}

func TestAllowKeysAreIndependent(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	limiter := NewLimiter(Limit{PerMinute: 30, Burst: 1})
	limiter.SetClock(fixedClock(&now))

	if !limiter.Allow("alice:ws-1").Allowed {
		t.Fatal("expected first alice request allowed")
	}
	if limiter.Allow("alice:ws-1").Allowed {
		t.Fatal("expected second alice request blocked")
	}
	if !limiter.Allow("bob:ws-1").Allowed {
		t.Fatal("expected bob unaffected by alice's bucket")
	}
	if !limiter.Allow("alice:ws-2").Allowed {
		t.Fatal("expected alice's other workspace unaffected")
	}
}

func TestPruneDropsIdleBuckets(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	limiter := NewLimiter(Limit{PerMinute: 60, Burst: 5})
	limiter.SetClock(fixedClock(&now))

	limiter.Allow("stale")
	now = now.Add(30 * time.Minute)
	limiter.Allow("fresh")

	removed := limiter.Prune(10 * time.Minute)
	if removed != 1 {
		t.Fatalf("pruned %d buckets, want 1", removed)
	}
	if removed = limiter.Prune(10 * time.Minute); removed != 0 {
		t.Fatalf("second prune removed %d, want 0", removed)
	}
}

func TestNewLimiterDefaults(t *testing.T) {
	limiter := NewLimiter(Limit{})
	decision := limiter.Allow("key")
	if !decision.Allowed {
		t.Fatal("expected permissive defaults to allow")
	}
	if decision.Limit != 60 {
		t.Fatalf("default limit = %d, want 60", decision.Limit)
	}
}

func TestNilLimiterAllows(t *testing.T) {
	var limiter *Limiter
	if !limiter.Allow("key").Allowed {
		t.Fatal("nil limiter must not block requests")
	}
}
