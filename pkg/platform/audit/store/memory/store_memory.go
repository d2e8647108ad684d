// Package memory is the audit store used when no database is configured.
// It keeps a bounded window of recent events.
package memory

import (
	"context"
	"sync"

	audit "penny/pkg/platform/audit"
)

const DefaultCapacity = 10_000

type InMemoryStore struct {
	mu       sync.RWMutex
	events   []audit.Event
	capacity int
}

type Option func(*InMemoryStore)

// WithCapacity bounds how many events are retained; the oldest are dropped.
func WithCapacity(n int) Option {
	return func(s *InMemoryStore) {
		if n > 0 {
			s.capacity = n
		}
	}
}

func NewInMemoryStore(opts ...Option) *InMemoryStore {
	s := &InMemoryStore{capacity: DefaultCapacity}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) >= s.capacity {
		n := copy(s.events, s.events[len(s.events)-s.capacity+1:])
		s.events = s.events[:n]
	}
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) ListBySubject(_ context.Context, subject string) ([]audit.Event, error) {
	return s.filter(func(e audit.Event) bool { return e.Subject == subject }), nil
}

// ListByAttempt returns every event of one verification attempt in order.
func (s *InMemoryStore) ListByAttempt(_ context.Context, attemptID string) ([]audit.Event, error) {
	return s.filter(func(e audit.Event) bool { return e.AttemptID == attemptID }), nil
}

// ListRecent returns up to limit of the most recently appended events, oldest first.
func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := max(len(s.events)-limit, 0)
	return append([]audit.Event{}, s.events[start:]...), nil
}

func (s *InMemoryStore) filter(keep func(audit.Event) bool) []audit.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []audit.Event
	for _, e := range s.events {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
