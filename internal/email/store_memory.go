package email

import (
	"context"
	"sync"

	id "atrium/pkg/domain"
	"atrium/pkg/platform/sentinel"
)

type templateKey struct {
	key    string
	site   id.SiteKey
	locale string
}

// MemoryStore keeps templates in a map. Used in tests and DSN-less
// development.
type MemoryStore struct {
	mu        sync.RWMutex
	templates map[templateKey]Template
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{templates: make(map[templateKey]Template)}
}

func (s *MemoryStore) Get(_ context.Context, key string, siteKey id.SiteKey, locale string) (Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[templateKey{key: key, site: siteKey, locale: locale}]
	if !ok {
		return Template{}, sentinel.ErrNotFound
	}
	return t, nil
}

func (s *MemoryStore) Upsert(_ context.Context, t Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[templateKey{key: t.Key, site: t.SiteKey, locale: t.Locale}] = t
	return nil
}

func (s *MemoryStore) List(_ context.Context, siteKey id.SiteKey) ([]Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Template
	for _, t := range s.templates {
		if t.SiteKey == siteKey {
			out = append(out, t)
		}
	}
	return out, nil
}
