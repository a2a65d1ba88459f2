package telemetry

import (
	"context"
	"sync"

	id "sampletrack/pkg/domain"
	"sampletrack/pkg/platform/sentinel"
)

// InMemoryStore keeps readings per sample in arrival order.
type InMemoryStore struct {
	mu       sync.RWMutex
	readings map[id.SampleID][]Reading
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{readings: make(map[id.SampleID][]Reading)}
}

func (s *InMemoryStore) Append(_ context.Context, r *Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readings[r.SampleID] = append(s.readings[r.SampleID], copyReading(r))
	return nil
}

// Latest returns the most recently recorded reading of typ.
func (s *InMemoryStore) Latest(_ context.Context, sampleID id.SampleID, typ Type) (*Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rs := s.readings[sampleID]
	for i := len(rs) - 1; i >= 0; i-- {
		if rs[i].Type == typ {
			r := copyReading(&rs[i])
			return &r, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// LatestLocation returns the most recent reading of any type that carried a
// position.
func (s *InMemoryStore) LatestLocation(_ context.Context, sampleID id.SampleID) (*Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rs := s.readings[sampleID]
	for i := len(rs) - 1; i >= 0; i-- {
		if rs[i].Location != nil {
			r := copyReading(&rs[i])
			return &r, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// ListBySample returns up to limit readings, newest first. limit <= 0 means all.
func (s *InMemoryStore) ListBySample(_ context.Context, sampleID id.SampleID, limit int) ([]*Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rs := s.readings[sampleID]
	out := make([]*Reading, 0, len(rs))
	for i := len(rs) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		r := copyReading(&rs[i])
		out = append(out, &r)
	}
	return out, nil
}

func copyReading(r *Reading) Reading {
	c := *r
	if r.Location != nil {
		loc := *r.Location
		c.Location = &loc
	}
	return c
}
