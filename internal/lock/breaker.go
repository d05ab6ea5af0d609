package lock

import (
	"errors"
	"sync"
	"time"
)

// breakerState tracks whether Redis calls made while acquiring,
// releasing, or extending a lock are currently allowed through.
type breakerState int

const (
	breakerClosed   breakerState = 0 // lock calls go straight to Redis
	breakerOpen     breakerState = 1 // Redis looks down; fail lock calls fast
	breakerHalfOpen breakerState = 2 // probing with the next lock call
)

func (s breakerState) String() string {
	switch s {
	case breakerClosed:
		return "closed"
	case breakerOpen:
		return "open"
	case breakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// redisBreaker guards the SetNX/Eval calls Acquire, Release, and Extend
// make against a Redis outage taking down every worker at once: after
// maxFailures consecutive Redis errors it opens and fails lock calls
// immediately for resetTimeout, then lets one call probe the connection
// before deciding whether to close again or stay open. A failed SetNX
// or Eval (a real Redis error) counts as a failure; a lock that is
// simply already held by another worker does not, since that is Redis
// working correctly and telling us so.
type redisBreaker struct {
	mu           sync.Mutex
	state        breakerState
	failures     int
	maxFailures  int
	resetTimeout time.Duration
	lastFailure  time.Time

	onStateChange func(from, to breakerState) // set by tests
}

func newRedisBreaker(maxFailures int, resetTimeout time.Duration) *redisBreaker {
	return &redisBreaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		state:        breakerClosed,
	}
}

// errBreakerOpen is returned when the breaker is open and rejecting
// lock calls without attempting them.
var errBreakerOpen = errors.New("lock: redis circuit open")

// run executes fn — one Redis call made on behalf of Acquire, Release,
// or Extend — through the breaker.
func (b *redisBreaker) run(fn func() error) error {
	b.mu.Lock()
	switch b.state {
	case breakerOpen:
		if time.Since(b.lastFailure) > b.resetTimeout {
			b.transition(breakerHalfOpen)
		} else {
			b.mu.Unlock()
			return errBreakerOpen
		}
	case breakerHalfOpen:
		// one probe call allowed through, serialized by mu
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.failures++
		b.lastFailure = time.Now()
		if b.state == breakerHalfOpen || b.failures >= b.maxFailures {
			b.transition(breakerOpen)
		}
		return err
	}

	if b.state == breakerHalfOpen {
		b.transition(breakerClosed)
	}
	b.failures = 0
	return nil
}

func (b *redisBreaker) currentState() breakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *redisBreaker) transition(to breakerState) {
	from := b.state
	b.state = to
	if to == breakerClosed {
		b.failures = 0
	}
	if b.onStateChange != nil {
		b.onStateChange(from, to)
	}
}
