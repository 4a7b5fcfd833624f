// Package lock serializes wallet-changing commands per user, so a purchase
// or an instant game reads and spends a balance without another command
// from the same user interleaving.
package lock

import (
	"context"
	"sync"
	"time"
)

// userMutex is a one-slot semaphore, which lets waiters give up on a
// context instead of blocking forever.
type userMutex struct {
	sem  chan struct{}
	refs int // holders plus waiters, guarded by UserLock.mu
}

// UserLock hands out one lock per user id. Entries are freed once nobody
// holds or waits for them.
type UserLock struct {
	mu    sync.Mutex
	locks map[int64]*userMutex
}

// NewUserLock creates a new UserLock instance.
func NewUserLock() *UserLock {
	return &UserLock{locks: make(map[int64]*userMutex)}
}

func (ul *UserLock) ref(userID int64) *userMutex {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	m, ok := ul.locks[userID]
	if !ok {
		m = &userMutex{sem: make(chan struct{}, 1)}
		ul.locks[userID] = m
	}
	m.refs++
	return m
}

func (ul *UserLock) unref(userID int64, m *userMutex) {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	m.refs--
	if m.refs == 0 {
		delete(ul.locks, userID)
	}
}

// Lock blocks until the user's lock is held.
func (ul *UserLock) Lock(userID int64) {
	m := ul.ref(userID)
	m.sem <- struct{}{}
}

// LockContext is Lock giving up when ctx is done.
func (ul *UserLock) LockContext(ctx context.Context, userID int64) error {
	m := ul.ref(userID)
	select {
	case m.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		ul.unref(userID, m)
		return ctx.Err()
	}
}

// TryLock takes the lock only if it is free.
func (ul *UserLock) TryLock(userID int64) bool {
	m := ul.ref(userID)
	select {
	case m.sem <- struct{}{}:
		return true
	default:
		ul.unref(userID, m)
		return false
	}
}

// Unlock releases a lock taken by Lock, LockContext or a successful TryLock.
func (ul *UserLock) Unlock(userID int64) {
	ul.mu.Lock()
	m, ok := ul.locks[userID]
	ul.mu.Unlock()
	if !ok {
		return
	}
	select {
	case <-m.sem:
		ul.unref(userID, m)
	default:
	}
}

// IsLocked reports whether someone holds the user's lock right now.
func (ul *UserLock) IsLocked(userID int64) bool {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	m, ok := ul.locks[userID]
	return ok && len(m.sem) == 1
}

// WithLock runs fn holding the user's lock.
func (ul *UserLock) WithLock(userID int64, fn func() error) error {
	ul.Lock(userID)
	defer ul.Unlock(userID)
	return fn()
}

// WithLockTimeout runs fn holding the user's lock, failing with
// ErrLockTimeout when the lock is not free within timeout.
func (ul *UserLock) WithLockTimeout(ctx context.Context, userID int64, timeout time.Duration, fn func() error) error {
	lockCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := ul.LockContext(lockCtx, userID); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrLockTimeout
	}
	defer ul.Unlock(userID)
	return fn()
}
