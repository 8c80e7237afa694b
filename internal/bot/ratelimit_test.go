package bot

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiterWindow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	now := time.Unix(1_700_000_000, 0)
	rl := NewRateLimiter(ctx, 2, time.Minute)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("Expected first two calls to pass")
	}
	if rl.Allow("a") {
		t.Error("Expected third call within the window to be rejected")
	}
	if !rl.Allow("b") {
		t.Error("Expected other senders to be unaffected")
	}

	now = now.Add(61 * time.Second)
	if !rl.Allow("a") {
		t.Error("Expected call after the window to pass")
	}

	now = now.Add(2 * time.Minute)
	rl.evict()
	rl.mu.Lock()
	n := len(rl.requests)
	rl.mu.Unlock()
	if n != 0 {
		t.Errorf("Expected all senders evicted, got %d", n)
	}
}
