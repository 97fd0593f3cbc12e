package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aretw0/warp/pkg/ports"
)

// ErrNotHeld is returned when an UnlockFunc is called twice.
var ErrNotHeld = errors.New("lock is not held")

// lockEntry holds the semaphore and the reference count.
type lockEntry struct {
	sem  chan struct{}
	refs int
}

// Locker implements ports.DistributedLocker inside a single process.
// It serializes executions of one instance when no Redis is configured.
// Unused keys are garbage collected by reference counting. The TTL is ignored.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

// NewLocker creates an empty in-process locker.
func NewLocker() *Locker {
	return &Locker{locks: make(map[string]*lockEntry)}
}

var _ ports.DistributedLocker = (*Locker)(nil)

// Lock blocks until key is free or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string, _ time.Duration) (ports.UnlockFunc, error) {
	entry := l.acquire(key)

	select {
	case entry.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(key)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func(context.Context) error {
		err := ErrNotHeld
		once.Do(func() {
			<-entry.sem
			l.release(key)
			err = nil
		})
		return err
	}, nil
}

// acquire gets or creates the entry of key and increments its reference count.
func (l *Locker) acquire(key string) *lockEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, exists := l.locks[key]
	if !exists {
		entry = &lockEntry{sem: make(chan struct{}, 1)}
		l.locks[key] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry when it reaches zero.
func (l *Locker) release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, exists := l.locks[key]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(l.locks, key)
	}
}

// active reports the number of keys with holders or waiters.
func (l *Locker) active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
