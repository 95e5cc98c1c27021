package resilience

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(3)

	for i := 0; i < 3; i++ {
		if !rl.Allow() {
			t.Fatalf("call %d rejected within capacity", i)
		}
	}
	if rl.Allow() {
		t.Error("call beyond capacity allowed")
	}
}

func TestRateLimiterRefillBoundary(t *testing.T) {
	rl := NewRateLimiter(2)

	base := time.Now()
	now := base
	rl.now = func() time.Time { return now }
	rl.lastRefill = base

	rl.Allow()
	rl.Allow()
	if rl.Allow() {
		t.Fatal("third call allowed before refill")
	}

	// Mid-second: still exhausted.
	now = base.Add(500 * time.Millisecond)
	if rl.Allow() {
		t.Error("call allowed mid-second with empty bucket")
	}

	// Past the boundary the bucket resets to capacity, not +1.
	now = base.Add(1100 * time.Millisecond)
	if rl.Available() != 2 {
		t.Errorf("available after refill = %d, want 2", rl.Available())
	}
}

func TestRateLimiterWaitSpacing(t *testing.T) {
	if testing.Short() {
		t.Skip("timing test")
	}

	rl := NewRateLimiter(2)

	const calls = 5
	start := time.Now()
	done := make([]time.Duration, calls)

	var wg sync.WaitGroup
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := rl.Wait(context.Background()); err != nil {
				t.Errorf("Wait: %v", err)
				return
			}
			done[i] = time.Since(start)
		}(i)
	}
	wg.Wait()

	var first, later int
	for _, d := range done {
		if d < 900*time.Millisecond {
			first++
		} else {
			later++
		}
	}

	if first != 2 {
		t.Errorf("%d calls completed within the first second, want 2 (timings: %v)", first, done)
	}
	if later != 3 {
		t.Errorf("%d calls delayed to later seconds, want 3 (timings: %v)", later, done)
	}
}

func TestRateLimiterWaitCancel(t *testing.T) {
	rl := NewRateLimiter(1)
	rl.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := rl.Wait(ctx); err == nil {
		t.Error("Wait returned nil on cancelled context with empty bucket")
	}
}
