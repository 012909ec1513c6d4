package server

import (
	"testing"
	"time"
)

// TestFixedWindowLimiterBlocksOverLimit checks that the limiter refuses the
// request after the window count is exhausted.
func TestFixedWindowLimiterBlocksOverLimit(t *testing.T) {
	limiter := newFixedWindowLimiter(time.Minute, 2)

	if ok, _ := limiter.Allow("1.2.3.4"); !ok {
		t.Fatal("expected first request allowed")
	}
	if ok, _ := limiter.Allow("1.2.3.4"); !ok {
		t.Fatal("expected second request allowed")
	}

	ok, retryAfter := limiter.Allow("1.2.3.4")
	if ok {
		t.Fatal("expected third request blocked")
	}
	if retryAfter <= 0 || retryAfter > time.Minute {
		t.Fatalf("unexpected retry-after %v", retryAfter)
	}
}

// TestFixedWindowLimiterResets checks that a new window clears the count.
func TestFixedWindowLimiterResets(t *testing.T) {
	limiter := newFixedWindowLimiter(time.Minute, 1)

	base := time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return base }

	if ok, _ := limiter.Allow("1.2.3.4"); !ok {
		t.Fatal("expected first request allowed")
	}
	if ok, _ := limiter.Allow("1.2.3.4"); ok {
		t.Fatal("expected second request blocked")
	}

	limiter.now = func() time.Time { return base.Add(61 * time.Second) }
	if ok, _ := limiter.Allow("1.2.3.4"); !ok {
		t.Fatal("expected request allowed in new window")
	}
}

// TestFixedWindowLimiterPerKey checks that keys do not share budgets.
func TestFixedWindowLimiterPerKey(t *testing.T) {
	limiter := newFixedWindowLimiter(time.Minute, 1)

	if ok, _ := limiter.Allow("1.2.3.4"); !ok {
		t.Fatal("expected first key allowed")
	}
	if ok, _ := limiter.Allow("5.6.7.8"); !ok {
		t.Fatal("expected second key allowed")
	}
}
