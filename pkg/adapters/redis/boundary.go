package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/warp/pkg/ports"
)

// LockBoundary is a TransactionBoundary that serializes executions across replicas
// by holding a distributed lock for the duration of the work.
// There is nothing to roll back: a failing execution only releases the lock.
type LockBoundary struct {
	locker ports.DistributedLocker
	key    string
	ttl    time.Duration
}

var _ ports.TransactionBoundary = (*LockBoundary)(nil)

// NewLockBoundary creates a boundary guarding key.
func NewLockBoundary(locker ports.DistributedLocker, key string, ttl time.Duration) *LockBoundary {
	return &LockBoundary{locker: locker, key: key, ttl: ttl}
}

// Do runs fn while holding the lock.
func (b *LockBoundary) Do(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	unlock, err := b.locker.Lock(ctx, b.key, b.ttl)
	if err != nil {
		return fmt.Errorf("lock %s: %w", b.key, err)
	}
	defer func() {
		// Unlock must run even if ctx was canceled while working.
		if uerr := unlock(context.WithoutCancel(ctx)); uerr != nil {
			err = errors.Join(err, uerr)
		}
	}()
	return fn(ctx)
}

// LockProvider resolves a fresh LockBoundary for every execution.
func LockProvider(locker ports.DistributedLocker, key string, ttl time.Duration) ports.TransactionProvider {
	return func() (ports.TransactionBoundary, error) {
		if locker == nil {
			return nil, errors.New("lock provider: nil locker")
		}
		return NewLockBoundary(locker, key, ttl), nil
	}
}

// LockHook decorates a boundary so that it runs while holding the lock.
// The lock is taken before the inner boundary starts and released after it finishes.
func LockHook(locker ports.DistributedLocker, key string, ttl time.Duration) ports.BoundaryHook {
	return func(inner ports.TransactionBoundary) ports.TransactionBoundary {
		lock := NewLockBoundary(locker, key, ttl)
		return ports.TransactionFunc(func(ctx context.Context, fn func(context.Context) error) error {
			return lock.Do(ctx, func(ctx context.Context) error {
				return inner.Do(ctx, fn)
			})
		})
	}
}
