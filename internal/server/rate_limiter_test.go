package server

import (
	"testing"
	"time"
)

// TestRateLimiterBurst verifies that a full bucket allows exactly capacity events.
func TestRateLimiterBurst(t *testing.T) {
	rl := newRateLimiter(5, time.Hour)

	for i := 0; i < 5; i++ {
		if !rl.allow() {
			t.Fatalf("event %d rejected inside the burst", i)
		}
	}
	if rl.allow() {
		t.Error("event accepted past the burst")
	}
}

// TestRateLimiterRefill verifies that tokens come back over time.
func TestRateLimiterRefill(t *testing.T) {
	rl := newRateLimiter(2, 100*time.Millisecond)

	rl.allow()
	rl.allow()
	if rl.allow() {
		t.Fatal("bucket should be empty")
	}

	time.Sleep(120 * time.Millisecond)
	if !rl.allow() {
		t.Error("bucket did not refill")
	}
}

// TestRateLimiterDefaults verifies that invalid settings still yield a usable limiter.
func TestRateLimiterDefaults(t *testing.T) {
	rl := newRateLimiter(0, 0)
	if !rl.allow() {
		t.Error("default limiter rejected its first event")
	}
}
