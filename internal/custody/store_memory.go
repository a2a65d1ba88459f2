package custody

import (
	"context"
	"sync"

	id "sampletrack/pkg/domain"
	"sampletrack/pkg/platform/sentinel"
)

// InMemoryStore keeps each sample's chain as a slice in index order.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[id.SampleID][]Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[id.SampleID][]Record)}
}

func (s *InMemoryStore) Append(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	chain := s.records[rec.SampleID]
	if rec.Index != len(chain) {
		return sentinel.ErrConflict
	}
	s.records[rec.SampleID] = append(chain, *rec)
	return nil
}

func (s *InMemoryStore) ListBySample(_ context.Context, sampleID id.SampleID) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chain := s.records[sampleID]
	out := make([]*Record, len(chain))
	for i := range chain {
		rec := chain[i]
		out[i] = &rec
	}
	return out, nil
}
