package resilience

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Policy is a shared retry policy: max attempts, exponential backoff with
// jitter, and a classifier deciding which errors are worth retrying. Call
// sites supply only the classifier; backoff shape is uniform.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      float64 // 0.0 to 1.0
	Retryable   func(error) bool
}

// DefaultPolicy returns the standard retry policy with no classifier
// (every error retries).
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    30 * time.Second,
		Jitter:      0.2,
	}
}

// Do executes fn under the policy.
func (p Policy) Do(ctx context.Context, fn func(context.Context) error) error {
	_, err := DoWithResult(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoWithResult executes fn under the policy and returns its result.
// Standalone function because Go does not support generic methods.
func DoWithResult[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 500 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 30 * time.Second
	}

	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		res, err := fn(ctx)
		if err == nil {
			return res, nil
		}
		lastErr = err

		if p.Retryable != nil && !p.Retryable(err) {
			return zero, fmt.Errorf("non-retryable error: %w", err)
		}

		if ctx.Err() != nil {
			return zero, fmt.Errorf("retry cancelled: %w", ctx.Err())
		}

		if attempt == p.MaxAttempts-1 {
			break
		}

		select {
		case <-time.After(backoffDelay(attempt, p.BaseDelay, p.MaxDelay, p.Jitter)):
		case <-ctx.Done():
			return zero, fmt.Errorf("retry cancelled during backoff: %w", ctx.Err())
		}
	}

	return zero, fmt.Errorf("max retry attempts reached: %w", lastErr)
}

// backoffDelay computes baseDelay * 2^attempt capped at maxDelay, with
// +/- jitter percent randomization.
func backoffDelay(attempt int, baseDelay, maxDelay time.Duration, jitter float64) time.Duration {
	delay := float64(baseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(maxDelay) {
		delay = float64(maxDelay)
	}

	if jitter > 0 {
		amount := delay * jitter
		delay = delay - amount + rand.Float64()*amount*2
	}

	return time.Duration(delay)
}
