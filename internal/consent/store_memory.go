package consent

import (
	"context"
	"sort"
	"sync"

	id "atrium/pkg/domain"
)

type recordKey struct {
	subject  string
	siteKey  id.SiteKey
	category Category
}

// MemoryStore is the in-memory Store used by tests and cacheless setups.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[recordKey]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[recordKey]Record)}
}

func (s *MemoryStore) Put(_ context.Context, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		s.records[recordKey{r.Subject, r.SiteKey, r.Category}] = r
	}
	return nil
}

func (s *MemoryStore) List(_ context.Context, subject string, siteKey id.SiteKey) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Record
	for k, r := range s.records {
		if k.subject == subject && k.siteKey == siteKey {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, subject string, siteKey id.SiteKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.records {
		if k.subject == subject && k.siteKey == siteKey {
			delete(s.records, k)
		}
	}
	return nil
}
