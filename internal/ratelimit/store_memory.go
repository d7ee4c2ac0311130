package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a sliding-window counter for single-process deployments and
// tests. The sliding window avoids the burst-at-the-boundary problem a fixed
// window has.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string][]time.Time
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		buckets: make(map[string][]time.Time),
		now:     time.Now,
	}
}

func (s *MemoryStore) Allow(_ context.Context, key string, limit int, window time.Duration) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cutoff := now.Add(-window)

	kept := s.buckets[key][:0]
	for _, ts := range s.buckets[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= limit {
		s.buckets[key] = kept
		return Result{
			Allowed: false,
			Limit:   limit,
			ResetAt: kept[0].Add(window),
		}, nil
	}

	kept = append(kept, now)
	s.buckets[key] = kept
	return Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - len(kept),
		ResetAt:   kept[0].Add(window),
	}, nil
}

func (s *MemoryStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buckets, key)
	return nil
}
