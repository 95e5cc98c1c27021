// Package resilience provides the retry, rate-limiting, and circuit
// breaking primitives shared by the RPC gateway.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrRateLimitExceeded is returned by Allow when no token is available
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// RateLimiter is a token bucket with discrete per-second refills: the
// bucket holds up to capacity tokens and is refilled to capacity once per
// second, so at most capacity calls pass within any one-second window.
type RateLimiter struct {
	capacity   int
	tokens     int
	lastRefill time.Time
	mu         sync.Mutex
	now        func() time.Time
}

// NewRateLimiter creates a limiter allowing perSecond calls per second.
func NewRateLimiter(perSecond int) *RateLimiter {
	if perSecond <= 0 {
		perSecond = 10
	}

	return &RateLimiter{
		capacity:   perSecond,
		tokens:     perSecond,
		lastRefill: time.Now(),
		now:        time.Now,
	}
}

// Allow consumes a token if one is available without blocking.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()

	if rl.tokens > 0 {
		rl.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available or the context is cancelled.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		if rl.Allow() {
			return nil
		}

		select {
		case <-time.After(rl.untilRefill()):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// refill resets the bucket at whole-second boundaries (caller holds lock).
func (rl *RateLimiter) refill() {
	elapsed := rl.now().Sub(rl.lastRefill)
	if elapsed < time.Second {
		return
	}

	rl.tokens = rl.capacity
	// Advance by whole seconds so refill boundaries stay aligned.
	rl.lastRefill = rl.lastRefill.Add(elapsed.Truncate(time.Second))
}

// untilRefill returns the wait until the next refill boundary.
func (rl *RateLimiter) untilRefill() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	wait := rl.lastRefill.Add(time.Second).Sub(rl.now())
	if wait < 5*time.Millisecond {
		wait = 5 * time.Millisecond
	}
	return wait
}

// Capacity returns the configured per-second budget.
func (rl *RateLimiter) Capacity() int {
	return rl.capacity
}

// Available returns the current token count.
func (rl *RateLimiter) Available() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()
	return rl.tokens
}
