package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestLockSerializesReadModifyWrite(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		balance := rapid.Int64Range(0, 100000).Draw(t, "balance")
		deltas := rapid.SliceOfN(rapid.Int64Range(-500, 500), 2, 20).Draw(t, "deltas")
		userID := rapid.Int64Range(1, 1000000).Draw(t, "user")

		want := balance
		for _, d := range deltas {
			want += d
		}

		ul := NewUserLock()
		var wg sync.WaitGroup
		for _, d := range deltas {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = ul.WithLock(userID, func() error {
					cur := balance
					time.Sleep(time.Microsecond)
					balance = cur + d
					return nil
				})
			}()
		}
		wg.Wait()

		if balance != want {
			t.Fatalf("balance = %d, want %d", balance, want)
		}
		if ul.IsLocked(userID) {
			t.Fatalf("lock still held")
		}
	})
}

func TestTryLock(t *testing.T) {
	ul := NewUserLock()
	require.True(t, ul.TryLock(1))
	assert.True(t, ul.IsLocked(1))
	assert.False(t, ul.TryLock(1))
	assert.True(t, ul.TryLock(2), "users lock independently")

	ul.Unlock(1)
	assert.False(t, ul.IsLocked(1))
	assert.True(t, ul.TryLock(1))
}

func TestEntriesAreFreed(t *testing.T) {
	ul := NewUserLock()
	ul.Lock(7)
	assert.False(t, ul.TryLock(7))
	ul.Unlock(7)

	ul.mu.Lock()
	n := len(ul.locks)
	ul.mu.Unlock()
	assert.Zero(t, n)
}

func TestUnlockWithoutLockIsNoop(t *testing.T) {
	ul := NewUserLock()
	ul.Unlock(3)
	assert.True(t, ul.TryLock(3))
}

func TestWithLockTimeout(t *testing.T) {
	ul := NewUserLock()
	ul.Lock(1)

	called := false
	err := ul.WithLockTimeout(context.Background(), 1, 20*time.Millisecond, func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.False(t, called)

	ul.Unlock(1)
	err = ul.WithLockTimeout(context.Background(), 1, 20*time.Millisecond, func() error {
		called = true
		return errors.New("boom")
	})
	assert.EqualError(t, err, "boom")
	assert.True(t, called)
	assert.False(t, ul.IsLocked(1))
}

func TestLockContextCancelled(t *testing.T) {
	ul := NewUserLock()
	ul.Lock(1)
	defer ul.Unlock(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, ul.LockContext(ctx, 1), context.Canceled)
	assert.ErrorIs(t, ul.WithLockTimeout(ctx, 1, time.Second, func() error { return nil }), context.Canceled)
}
