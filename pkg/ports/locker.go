package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock obtained from a DistributedLocker.
// It returns an error when the lock was already lost or released.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes executions that share a key, usually a pipeline name.
// Redis backs it across replicas; an in-process implementation serves single instances.
type DistributedLocker interface {
	// Lock blocks until key is held or ctx is done. ttl bounds how long a crashed
	// holder can keep the lock; in-process implementations may ignore it.
	// The returned UnlockFunc must be called exactly once.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
