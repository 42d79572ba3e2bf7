package infra

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/rs/zerolog/log"
)

// ErrLockHeld is returned when another request holds the same key.
var ErrLockHeld = errors.New("lock held by another request")

// obtainer is the part of *redislock.Client the locker uses.
type obtainer interface {
	Obtain(ctx context.Context, key string, ttl time.Duration, opt *redislock.Options) (*redislock.Lock, error)
}

// Locker is a best-effort single-flight guard backed by Redis. Contention
// returns ErrLockHeld; any Redis fault fails open because the database
// constraints stay authoritative.
type Locker struct {
	client obtainer
	ttl    time.Duration
	cb     *CircuitBreaker
}

func NewLocker(client *redislock.Client, ttl time.Duration, cb *CircuitBreaker) *Locker {
	if client == nil {
		return newLocker(nil, ttl, cb)
	}
	return newLocker(client, ttl, cb)
}

func newLocker(client obtainer, ttl time.Duration, cb *CircuitBreaker) *Locker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &Locker{client: client, ttl: ttl, cb: cb}
}

// LockBreaker counts Redis faults but not contention.
func LockBreaker() *CircuitBreaker {
	return NewCircuitBreaker(CircuitBreakerConfig{
		Name:             "redis-lock",
		FailureThreshold: 3,
		OpenTimeout:      30 * time.Second,
		IsFailure: func(err error) bool {
			return err != nil && !errors.Is(err, redislock.ErrNotObtained)
		},
	})
}

func (l *Locker) Acquire(ctx context.Context, key string) (func(), error) {
	noop := func() {}
	if l == nil || l.client == nil {
		return noop, nil
	}

	var lock *redislock.Lock
	err := l.cb.Execute(func() error {
		var err error
		lock, err = l.client.Obtain(ctx, key, l.ttl, nil)
		return err
	})
	switch {
	case err == nil:
		return func() {
			// Release with a fresh context: the request context may already be done.
			rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := lock.Release(rctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				log.Warn().Err(err).Str("key", key).Msg("lock release failed")
			}
		}, nil
	case errors.Is(err, redislock.ErrNotObtained):
		return nil, ErrLockHeld
	default:
		log.Warn().Err(err).Str("key", key).Msg("lock backend unavailable, continuing without lock")
		return noop, nil
	}
}
