// Package lock implements a Redis distributed lock so at most one
// worker processes a given (contract, day) at a time.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

// ErrHeld is returned when the lock is already held by another worker.
var ErrHeld = errors.New("lock: already held")

// Lock guards one (contract, day) run with a Redis SET NX PX key,
// wrapped in a circuit breaker so a flaky Redis doesn't wedge every
// worker open at once.
type Lock struct {
	client *goredis.Client
	cb     *redisBreaker
	ttl    time.Duration
}

// New builds a Lock over an existing Redis client with the given TTL.
func New(client *goredis.Client, ttl time.Duration) *Lock {
	return &Lock{
		client: client,
		cb:     newRedisBreaker(5, 10*time.Second),
		ttl:    ttl,
	}
}

func key(contract, tradeDate string) string {
	return fmt.Sprintf("scsync:lock:%s:%s", contract, tradeDate)
}

// Acquire attempts to take the lock, returning ErrHeld if another worker
// already holds it.
func (l *Lock) Acquire(ctx context.Context, contract, tradeDate, owner string) error {
	var acquired bool
	err := l.cb.run(func() error {
		ok, err := l.client.SetNX(ctx, key(contract, tradeDate), owner, l.ttl).Result()
		if err != nil {
			return err
		}
		acquired = ok
		return nil
	})
	if err != nil {
		return fmt.Errorf("lock: acquire: %w", err)
	}
	if !acquired {
		return ErrHeld
	}
	return nil
}

// Release drops the lock only if owner still holds it, via a small Lua
// script for compare-and-delete atomicity.
func (l *Lock) Release(ctx context.Context, contract, tradeDate, owner string) error {
	const script = `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		end
		return 0
	`
	return l.cb.run(func() error {
		return l.client.Eval(ctx, script, []string{key(contract, tradeDate)}, owner).Err()
	})
}

// Extend refreshes the lock's TTL, used by long-running workers to hold
// the lock past the initial TTL without releasing it.
func (l *Lock) Extend(ctx context.Context, contract, tradeDate, owner string) error {
	const script = `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("PEXPIRE", KEYS[1], ARGV[2])
		end
		return 0
	`
	return l.cb.run(func() error {
		return l.client.Eval(ctx, script, []string{key(contract, tradeDate)}, owner, l.ttl.Milliseconds()).Err()
	})
}
