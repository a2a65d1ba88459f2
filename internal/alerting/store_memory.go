package alerting

import (
	"context"
	"sync"

	id "sampletrack/pkg/domain"
	"sampletrack/pkg/platform/sentinel"
)

// InMemoryStore keeps alerts per sample in raise order plus thresholds.
type InMemoryStore struct {
	mu         sync.RWMutex
	alerts     map[id.SampleID][]*Alert
	thresholds map[id.SampleID]Thresholds
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		alerts:     make(map[id.SampleID][]*Alert),
		thresholds: make(map[id.SampleID]Thresholds),
	}
}

func (s *InMemoryStore) Create(_ context.Context, a *Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.alerts[a.SampleID] {
		if existing.ID == a.ID {
			return sentinel.ErrConflict
		}
	}
	s.alerts[a.SampleID] = append(s.alerts[a.SampleID], a.Clone())
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, a *Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.alerts[a.SampleID] {
		if existing.ID == a.ID {
			s.alerts[a.SampleID][i] = a.Clone()
			return nil
		}
	}
	return sentinel.ErrNotFound
}

func (s *InMemoryStore) FindByID(_ context.Context, sampleID id.SampleID, alertID id.AlertID) (*Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.alerts[sampleID] {
		if a.ID == alertID {
			return a.Clone(), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) ListBySample(_ context.Context, sampleID id.SampleID, openOnly bool) ([]*Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.alerts[sampleID]
	out := make([]*Alert, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if openOnly && !all[i].IsOpen() {
			continue
		}
		out = append(out, all[i].Clone())
	}
	return out, nil
}

func (s *InMemoryStore) GetThresholds(_ context.Context, sampleID id.SampleID) (*Thresholds, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.thresholds[sampleID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &t, nil
}

func (s *InMemoryStore) PutThresholds(_ context.Context, sampleID id.SampleID, t Thresholds) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.thresholds[sampleID] = t
	return nil
}
