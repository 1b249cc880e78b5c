package redisclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSlotKey = "Dr. Emily Chen|2025-09-02|09:00"

func newTestLocker(t *testing.T) (Locker, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisSlotLocker(client, time.Second), mr
}

func TestWithSlotLockRunsFn(t *testing.T) {
	locker, mr := newTestLocker(t)

	ran := false
	err := locker.WithSlotLock(context.Background(), testSlotKey, func(ctx context.Context) error {
		ran = true
		assert.True(t, mr.Exists("lock:slot:"+testSlotKey))
		return nil
	})

	require.NoError(t, err)
	assert.True(t, ran)
	assert.False(t, mr.Exists("lock:slot:"+testSlotKey), "lock must be released afterwards")
}

func TestWithSlotLockPropagatesFnError(t *testing.T) {
	locker, mr := newTestLocker(t)

	sentinel := errors.New("commit failed")
	err := locker.WithSlotLock(context.Background(), testSlotKey, func(ctx context.Context) error {
		return sentinel
	})

	assert.ErrorIs(t, err, sentinel)
	assert.False(t, mr.Exists("lock:slot:"+testSlotKey), "lock is released even on failure")
}

func TestWithSlotLockContention(t *testing.T) {
	locker, _ := newTestLocker(t)

	err := locker.WithSlotLock(context.Background(), testSlotKey, func(ctx context.Context) error {
		// A second acquisition of the same slot while held must fail fast.
		inner := locker.WithSlotLock(ctx, testSlotKey, func(context.Context) error {
			t.Fatal("critical section entered twice")
			return nil
		})
		assert.ErrorIs(t, inner, ErrLockNotAcquired)

		// A different slot is not blocked.
		return locker.WithSlotLock(ctx, "Dr. David Rodriguez|2025-09-02|09:00", func(context.Context) error {
			return nil
		})
	})

	require.NoError(t, err)
}

func TestWithSlotLockReacquireAfterRelease(t *testing.T) {
	locker, _ := newTestLocker(t)
	ctx := context.Background()

	require.NoError(t, locker.WithSlotLock(ctx, testSlotKey, func(context.Context) error { return nil }))
	require.NoError(t, locker.WithSlotLock(ctx, testSlotKey, func(context.Context) error { return nil }))
}

func TestLocalLocker(t *testing.T) {
	locker := NewLocalLocker()

	calls := 0
	err := locker.WithSlotLock(context.Background(), testSlotKey, func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
