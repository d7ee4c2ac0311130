package replayguard

import (
	"context"
	"sync"
	"time"
)

// SlotStore holds published outcomes for losers to poll. Entries expire on
// their own; a loser that finds nothing simply keeps polling until its
// budget runs out.
// PutIfAbsent only writes when the key holds no live outcome, reporting
// whether it wrote; failure outcomes use it so a late duplicate cannot mask
// a success that stragglers are still polling for.
type SlotStore interface {
	Put(ctx context.Context, key string, outcome Outcome, ttl time.Duration) error
	PutIfAbsent(ctx context.Context, key string, outcome Outcome, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (Outcome, bool, error)
}

type memorySlot struct {
	outcome   Outcome
	expiresAt time.Time
}

// MemorySlots is a single-node SlotStore for tests and DSN-less development.
type MemorySlots struct {
	mu    sync.RWMutex
	slots map[string]memorySlot
}

func NewMemorySlots() *MemorySlots {
	return &MemorySlots{slots: make(map[string]memorySlot)}
}

func (s *MemorySlots) Put(_ context.Context, key string, outcome Outcome, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[key] = memorySlot{outcome: outcome, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *MemorySlots) PutIfAbsent(_ context.Context, key string, outcome Outcome, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slot, ok := s.slots[key]; ok && time.Now().Before(slot.expiresAt) {
		return false, nil
	}
	s.slots[key] = memorySlot{outcome: outcome, expiresAt: time.Now().Add(ttl)}
	return true, nil
}

func (s *MemorySlots) Get(_ context.Context, key string) (Outcome, bool, error) {
	s.mu.RLock()
	slot, ok := s.slots[key]
	s.mu.RUnlock()

	if !ok || time.Now().After(slot.expiresAt) {
		return Outcome{}, false, nil
	}
	return slot.outcome, true, nil
}
