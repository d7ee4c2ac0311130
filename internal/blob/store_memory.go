package blob

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"atrium/pkg/platform/sentinel"
)

// MemoryStore keeps blobs in process memory. Tests and the migrate/audit
// unit paths run against it.
type MemoryStore struct {
	mu         sync.RWMutex
	containers map[string]map[string]memoryBlob
	now        func() time.Time
}

type memoryBlob struct {
	data     []byte
	modified time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		containers: make(map[string]map[string]memoryBlob),
		now:        time.Now,
	}
}

func (s *MemoryStore) EnsureContainer(_ context.Context, container string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.containers[container]; !ok {
		s.containers[container] = make(map[string]memoryBlob)
	}
	return nil
}

func (s *MemoryStore) Upload(_ context.Context, container, name string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	blobs, ok := s.containers[container]
	if !ok {
		return sentinel.ErrNotFound
	}
	blobs[name] = memoryBlob{data: data, modified: s.now()}
	return nil
}

func (s *MemoryStore) Download(_ context.Context, container, name string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.containers[container][name]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b.data)), nil
}

func (s *MemoryStore) Delete(_ context.Context, container, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.containers[container][name]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.containers[container], name)
	return nil
}

func (s *MemoryStore) List(_ context.Context, container, prefix string) ([]Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	blobs, ok := s.containers[container]
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	var out []Object
	for name, b := range blobs {
		if strings.HasPrefix(name, prefix) {
			out = append(out, Object{Name: name, Size: int64(len(b.data)), LastModified: b.modified})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) Exists(_ context.Context, container, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.containers[container][name]
	return ok, nil
}
