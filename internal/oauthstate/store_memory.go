package oauthstate

import (
	"context"
	"sync"
	"time"

	"atrium/pkg/platform/sentinel"
)

// MemoryStore keeps states in a map guarded by one mutex, which makes the
// consume claim trivially atomic. Used in tests and DSN-less development.
type MemoryStore struct {
	mu     sync.Mutex
	states map[string]State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]State)}
}

func (s *MemoryStore) Create(_ context.Context, state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.states[state.Token]; exists {
		return sentinel.ErrConflict
	}
	s.states[state.Token] = state
	return nil
}

func (s *MemoryStore) Consume(_ context.Context, token string, now time.Time) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[token]
	if !ok {
		return State{}, sentinel.ErrNotFound
	}
	if state.Expired(now) {
		return State{}, sentinel.ErrExpired
	}
	if state.ConsumedAt != nil {
		return State{}, sentinel.ErrAlreadyUsed
	}

	consumed := now
	state.ConsumedAt = &consumed
	s.states[token] = state
	return state, nil
}

func (s *MemoryStore) Release(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[token]
	if !ok {
		return sentinel.ErrNotFound
	}
	state.ConsumedAt = nil
	s.states[token] = state
	return nil
}

func (s *MemoryStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for token, state := range s.states {
		if state.Expired(now) {
			delete(s.states, token)
			deleted++
		}
	}
	return deleted, nil
}
