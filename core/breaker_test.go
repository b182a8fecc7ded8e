package core

import (
	"testing"
	"time"
)

func TestBreakerTripsAfterThreshold(t *testing.T) {
	b := NewBreaker(3, 20*time.Millisecond)
	for i := 0; i < 3; i++ {
		if !b.Allow() {
			t.Fatalf("breaker should allow calls while closed")
		}
		b.RecordFailure()
	}
	if b.State() != BreakerOpen {
		t.Fatalf("expected breaker open after %d consecutive failures, got %s", 3, b.State())
	}
	if b.Allow() {
		t.Fatalf("breaker should reject calls while open and within cooldown")
	}
}

func TestBreakerHalfOpenThenCloses(t *testing.T) {
	b := NewBreaker(1, 10*time.Millisecond)
	b.RecordFailure()
	if b.State() != BreakerOpen {
		t.Fatalf("expected open after a single failure with threshold 1")
	}
	time.Sleep(15 * time.Millisecond)
	if !b.Allow() {
		t.Fatalf("expected a half-open probe to be allowed after cooldown")
	}
	if b.State() != BreakerHalfOpen {
		t.Fatalf("expected half-open state, got %s", b.State())
	}
	b.RecordSuccess()
	if b.State() != BreakerClosed {
		t.Fatalf("expected breaker to close after a successful probe")
	}
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b := NewBreaker(1, 10*time.Millisecond)
	b.RecordFailure()
	time.Sleep(15 * time.Millisecond)
	b.Allow() // transition to half-open
	b.RecordFailure()
	if b.State() != BreakerOpen {
		t.Fatalf("a failed probe should reopen the breaker, got %s", b.State())
	}
}
