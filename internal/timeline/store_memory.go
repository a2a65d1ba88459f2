package timeline

import (
	"context"
	"sync"

	id "sampletrack/pkg/domain"
	"sampletrack/pkg/platform/sentinel"
)

// InMemoryStore keeps each sample's events in a slice indexed by sequence-1.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[id.SampleID][]Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[id.SampleID][]Event)}
}

func (s *InMemoryStore) Append(_ context.Context, ev *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.events[ev.SampleID]
	next := int64(len(cur)) + 1
	switch {
	case ev.Sequence < next:
		return sentinel.ErrConflict
	case ev.Sequence > next:
		return sentinel.ErrInvalidState
	}
	s.events[ev.SampleID] = append(cur, *ev)
	return nil
}

func (s *InMemoryStore) LastSequence(_ context.Context, sampleID id.SampleID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.events[sampleID])), nil
}

func (s *InMemoryStore) ListSince(_ context.Context, sampleID id.SampleID, after int64, limit int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cur := s.events[sampleID]
	if after < 0 {
		after = 0
	}
	if after >= int64(len(cur)) {
		return nil, nil
	}
	end := len(cur)
	if limit > 0 && int(after)+limit < end {
		end = int(after) + limit
	}
	return append([]Event(nil), cur[after:end]...), nil
}
