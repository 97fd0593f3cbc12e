package redis_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/warp/pkg/adapters/redis"
	"github.com/aretw0/warp/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisLocker_LockUnlock(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "resource1", 5*time.Second)
	require.NoError(t, err)
	require.NotNil(t, unlock)

	assert.True(t, mr.Exists("test:lock:resource1"), "Lock key should be set in Redis")
	assert.Greater(t, mr.TTL("test:lock:resource1"), time.Duration(0))

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("test:lock:resource1"), "Lock key should be removed after unlock")
}

func TestRedisLocker_Contention(t *testing.T) {
	mr, client := newClient(t)
	locker1 := redis.NewLocker(client, "test:")
	locker2 := redis.NewLocker(client, "test:", redis.WithPollInterval(20*time.Millisecond))
	ctx := context.Background()

	unlock1, err := locker1.Lock(ctx, "shared", 5*time.Second)
	require.NoError(t, err)

	ctxTimeout, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = locker2.Lock(ctxTimeout, "shared", 5*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.WithinDuration(t, start.Add(300*time.Millisecond), time.Now(), 150*time.Millisecond, "Should block until timeout")

	require.NoError(t, unlock1(ctx))

	unlock2, err := locker2.Lock(ctx, "shared", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:lock:shared"))
	require.NoError(t, unlock2(ctx))
}

func TestRedisLocker_UnlockAfterTakeover(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "job", time.Second)
	require.NoError(t, err)

	// Another holder took the key after ours expired.
	mr.FastForward(2 * time.Second)
	require.NoError(t, mr.Set("test:lock:job", "someone-else"))

	err = unlock(ctx)
	assert.ErrorIs(t, err, redis.ErrLockLost)
	got, _ := mr.Get("test:lock:job")
	assert.Equal(t, "someone-else", got, "a foreign lock is never released")
}

func TestLockBoundary(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "warp:")
	boundary := redis.NewLockBoundary(locker, "checkout", 5*time.Second)
	ctx := context.Background()

	err := boundary.Do(ctx, func(ctx context.Context) error {
		assert.True(t, mr.Exists("warp:lock:checkout"), "work runs while the lock is held")
		return nil
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists("warp:lock:checkout"))

	boom := errors.New("boom")
	err = boundary.Do(ctx, func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("warp:lock:checkout"), "the lock is released on failure")
}

func TestLockProvider(t *testing.T) {
	_, client := newClient(t)

	b, err := redis.LockProvider(redis.NewLocker(client, "warp:"), "k", time.Second)()
	require.NoError(t, err)
	assert.NotNil(t, b)

	_, err = redis.LockProvider(nil, "k", time.Second)()
	assert.Error(t, err)
}

func TestLockHook(t *testing.T) {
	mr, client := newClient(t)
	hook := redis.LockHook(redis.NewLocker(client, "warp:"), "orders", 5*time.Second)

	var order []string
	inner := ports.TransactionFunc(func(ctx context.Context, fn func(context.Context) error) error {
		order = append(order, "inner")
		assert.True(t, mr.Exists("warp:lock:orders"), "the lock is held around the inner boundary")
		return fn(ctx)
	})

	err := hook(inner).Do(context.Background(), func(context.Context) error {
		order = append(order, "work")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"inner", "work"}, order)
	assert.False(t, mr.Exists("warp:lock:orders"))
}
