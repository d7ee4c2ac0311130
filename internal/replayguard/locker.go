package replayguard

import (
	"context"
	"sync"
	"time"
)

// Locker is the cross-process mutex behind the guard. Acquire is a
// SETNX-style claim: it returns false, nil when another owner holds the key.
// Release must be owner-checked: only the holder may drop the claim, so an
// expired lock reclaimed by someone else is never released out from under
// them.
type Locker interface {
	Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, owner string) error
}

type memoryLock struct {
	owner     string
	expiresAt time.Time
}

// MemoryLocker is a single-node Locker for tests and DSN-less development.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]memoryLock
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]memoryLock)}
}

func (l *MemoryLocker) Acquire(_ context.Context, key, owner string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if held, ok := l.locks[key]; ok && now.Before(held.expiresAt) {
		return false, nil
	}
	l.locks[key] = memoryLock{owner: owner, expiresAt: now.Add(ttl)}
	return true, nil
}

func (l *MemoryLocker) Release(_ context.Context, key, owner string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if held, ok := l.locks[key]; ok && held.owner == owner {
		delete(l.locks, key)
	}
	return nil
}
