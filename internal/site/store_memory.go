package site

import (
	"context"
	"sync"

	id "atrium/pkg/domain"
	"atrium/pkg/platform/sentinel"
)

// MemoryStore keeps sites in a map. Used in tests and DSN-less development.
type MemoryStore struct {
	mu    sync.RWMutex
	sites map[id.SiteKey]Site
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sites: make(map[id.SiteKey]Site)}
}

func (s *MemoryStore) List(_ context.Context) ([]Site, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Site, 0, len(s.sites))
	for _, site := range s.sites {
		out = append(out, site)
	}
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, key id.SiteKey) (Site, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	site, ok := s.sites[key]
	if !ok {
		return Site{}, sentinel.ErrNotFound
	}
	return site, nil
}

func (s *MemoryStore) Upsert(_ context.Context, site Site) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sites[site.Key] = site
	return nil
}
