package audit

import (
	"context"
	"sync"
)

// Publisher is the sink side of the audit trail.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// MemoryPublisher appends events to a slice. It backs tests and the admin
// CLI's event listing.
type MemoryPublisher struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(_ context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// Events returns a copy of everything published so far.
func (p *MemoryPublisher) Events() []Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Event{}, p.events...)
}

// ByKind filters published events.
func (p *MemoryPublisher) ByKind(kind Kind) []Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []Event
	for _, e := range p.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Fanout publishes every event to all wrapped publishers, keeping going past
// individual failures and returning the first error.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, event Event) error {
	var firstErr error
	for _, p := range f {
		if err := p.Publish(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
