package core

// Retry policy shared by the blob transport and transaction engine
// collaborators (spec.md §4.5/§4.7). Grounded on connection_pool.go's
// reaper ticker-driven loop in the teacher repo for the retry-with-jitter
// shape; bounded by golang.org/x/time/rate for the accompanying limiter.

import (
	"context"
	"math/rand"
	"time"
)

// RetryPolicy controls exponential backoff with jitter.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy matches spec.md §4.5's default transport retry
// schedule.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 5,
	BaseDelay:   200 * time.Millisecond,
	MaxDelay:    10 * time.Second,
}

// delay returns the backoff duration before attempt n (1-indexed),
// full jitter in [0, cap].
func (p RetryPolicy) delay(attempt int) time.Duration {
	exp := p.BaseDelay << uint(attempt-1)
	if exp <= 0 || exp > p.MaxDelay {
		exp = p.MaxDelay
	}
	return time.Duration(rand.Int63n(int64(exp) + 1))
}

// Do runs fn up to MaxAttempts times, retrying only while err is a
// retryable *Error (spec.md §7's Retryable()) and ctx is not done.
func (p RetryPolicy) Do(ctx context.Context, fn func(attempt int) error) error {
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return ErrCancelled
		}
		err := fn(attempt)
		if err == nil {
			return nil
		}
		lastErr = err
		ce, ok := AsCoreError(err)
		if !ok || !ce.Retryable() {
			return err
		}
		if attempt == p.MaxAttempts {
			break
		}
		select {
		case <-time.After(p.delay(attempt)):
		case <-ctx.Done():
			return ErrCancelled
		}
	}
	return lastErr
}
