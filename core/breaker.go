package core

// Circuit breaker guarding the remote blob/ledger collaborators from
// hammering a failing endpoint (spec.md §4.5 "circuit breaker"). Grounded
// on connection_pool.go's Stats/reaper health-tracking idiom in the
// teacher repo; uses golang.org/x/time/rate to cap retry traffic while
// the breaker is half-open, the same limiter the pack uses elsewhere for
// request shaping.

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// defaultBreakerCooldown is how long a tripped breaker stays open before
// allowing a half-open probe (spec.md §4.5's default circuit breaker
// cooldown).
const defaultBreakerCooldown = 30 * time.Second

// BreakerState is the circuit breaker's current disposition.
type BreakerState uint8

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// Breaker trips open after FailureThreshold consecutive failures, cools
// down for OpenDuration, then allows a single probe through in
// half-open state before fully closing.
type Breaker struct {
	FailureThreshold int
	OpenDuration     time.Duration

	mu          sync.Mutex
	state       BreakerState
	failures    int
	openedAt    time.Time
	probeLimiter *rate.Limiter
}

// NewBreaker constructs a breaker with the given thresholds.
func NewBreaker(failureThreshold int, openDuration time.Duration) *Breaker {
	return &Breaker{
		FailureThreshold: failureThreshold,
		OpenDuration:     openDuration,
		state:            BreakerClosed,
		probeLimiter:     rate.NewLimiter(rate.Every(openDuration), 1),
	}
}

// Allow reports whether a call should proceed, transitioning Open to
// HalfOpen once OpenDuration has elapsed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case BreakerClosed:
		return true
	case BreakerOpen:
		if time.Since(b.openedAt) >= b.OpenDuration {
			b.state = BreakerHalfOpen
			return b.probeLimiter.Allow()
		}
		return false
	case BreakerHalfOpen:
		return b.probeLimiter.Allow()
	default:
		return true
	}
}

// RecordSuccess closes the breaker and resets its failure count.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = BreakerClosed
	b.failures = 0
}

// RecordFailure increments the failure count, tripping the breaker open
// once FailureThreshold consecutive failures are seen.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerHalfOpen {
		b.state = BreakerOpen
		b.openedAt = time.Now()
		return
	}
	b.failures++
	if b.failures >= b.FailureThreshold {
		b.state = BreakerOpen
		b.openedAt = time.Now()
	}
}

// State returns the current breaker state, for metrics/status reporting.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
