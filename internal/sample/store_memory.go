package sample

import (
	"context"
	"sync"

	id "sampletrack/pkg/domain"
	"sampletrack/pkg/platform/sentinel"
)

// InMemoryStore keeps samples in a map. Returned samples are copies.
type InMemoryStore struct {
	mu      sync.RWMutex
	samples map[id.SampleID]*Sample
	numbers map[string]id.SampleID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		samples: make(map[id.SampleID]*Sample),
		numbers: make(map[string]id.SampleID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, smp *Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.samples[smp.ID]; ok {
		return sentinel.ErrConflict
	}
	if _, ok := s.numbers[smp.SampleNumber]; ok {
		return sentinel.ErrConflict
	}
	s.samples[smp.ID] = smp.Clone()
	s.numbers[smp.SampleNumber] = smp.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, sampleID id.SampleID) (*Sample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	smp, ok := s.samples[sampleID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return smp.Clone(), nil
}

// Update replaces the stored sample if its version still equals expectedVersion.
func (s *InMemoryStore) Update(_ context.Context, smp *Sample, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.samples[smp.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if cur.Version != expectedVersion {
		return sentinel.ErrConflict
	}
	s.samples[smp.ID] = smp.Clone()
	return nil
}
