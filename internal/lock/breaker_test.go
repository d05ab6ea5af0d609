package lock

import (
	"errors"
	"testing"
	"time"
)

func TestBreakerStartsClosed(t *testing.T) {
	b := newRedisBreaker(3, 100*time.Millisecond)
	if b.currentState() != breakerClosed {
		t.Errorf("expected closed, got %v", b.currentState())
	}
}

func TestBreakerOpensAfterConsecutiveRedisFailures(t *testing.T) {
	b := newRedisBreaker(3, 100*time.Millisecond)
	errFail := errors.New("dial tcp: connection refused")

	for i := 0; i < 3; i++ {
		if err := b.run(func() error { return errFail }); err != errFail {
			t.Fatalf("expected errFail, got %v", err)
		}
	}
	if b.currentState() != breakerOpen {
		t.Errorf("expected open after 3 failures, got %v", b.currentState())
	}

	if err := b.run(func() error { return nil }); err != errBreakerOpen {
		t.Errorf("expected errBreakerOpen while open, got %v", err)
	}
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	b := newRedisBreaker(2, 50*time.Millisecond)
	errFail := errors.New("dial tcp: connection refused")

	for i := 0; i < 2; i++ {
		b.run(func() error { return errFail })
	}
	if b.currentState() != breakerOpen {
		t.Fatal("expected open")
	}

	time.Sleep(60 * time.Millisecond)

	if err := b.run(func() error { return nil }); err != nil {
		t.Fatalf("expected the probe to succeed, got %v", err)
	}
	if b.currentState() != breakerClosed {
		t.Errorf("expected closed after a successful probe, got %v", b.currentState())
	}
}

func TestBreakerHalfOpenProbeFailureReopens(t *testing.T) {
	b := newRedisBreaker(2, 50*time.Millisecond)
	errFail := errors.New("dial tcp: connection refused")

	for i := 0; i < 2; i++ {
		b.run(func() error { return errFail })
	}
	time.Sleep(60 * time.Millisecond)
	b.run(func() error { return errFail })

	if b.currentState() != breakerOpen {
		t.Errorf("expected open after a failed probe, got %v", b.currentState())
	}
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := newRedisBreaker(3, 100*time.Millisecond)
	errFail := errors.New("dial tcp: connection refused")

	b.run(func() error { return errFail })
	b.run(func() error { return errFail })
	b.run(func() error { return nil }) // resets the counter

	b.run(func() error { return errFail })
	b.run(func() error { return errFail })

	if b.currentState() != breakerClosed {
		t.Errorf("expected closed since the counter reset before these two failures, got %v", b.currentState())
	}
}

func TestBreakerLockContentionIsNotAFailure(t *testing.T) {
	// A lock call that returns a normal "already held" outcome reports
	// success to the breaker — SetNX responding false is Redis working,
	// not Redis failing.
	b := newRedisBreaker(1, 50*time.Millisecond)
	if err := b.run(func() error { return nil }); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if b.currentState() != breakerClosed {
		t.Errorf("expected closed, got %v", b.currentState())
	}
}

func TestBreakerOnStateChangeCallback(t *testing.T) {
	var transitions []breakerState
	b := newRedisBreaker(1, 50*time.Millisecond)
	b.onStateChange = func(from, to breakerState) {
		transitions = append(transitions, to)
	}

	b.run(func() error { return errors.New("dial tcp: connection refused") })
	if len(transitions) != 1 || transitions[0] != breakerOpen {
		t.Errorf("expected [open], got %v", transitions)
	}

	time.Sleep(60 * time.Millisecond)
	b.run(func() error { return nil })

	if len(transitions) != 3 {
		t.Fatalf("expected 3 transitions, got %d: %v", len(transitions), transitions)
	}
	if transitions[1] != breakerHalfOpen || transitions[2] != breakerClosed {
		t.Errorf("expected [open, half-open, closed], got %v", transitions)
	}
}
