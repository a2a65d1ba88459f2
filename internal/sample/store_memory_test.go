package sample

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "sampletrack/pkg/domain"
	"sampletrack/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.ctx = context.Background()
}

func (s *InMemoryStoreSuite) newSample(number string) *Sample {
	smp, err := NewSample(id.NewSampleID(), number, TypeProduction, PriorityNormal, "Ceramic tile", Quantity{Value: 2, Unit: "pcs"}, time.Now())
	s.Require().NoError(err)
	return smp
}

func (s *InMemoryStoreSuite) TestCreate() {
	s.Run("duplicate id conflicts", func() {
		smp := s.newSample("SMP-A")
		s.Require().NoError(s.store.Create(s.ctx, smp))
		s.ErrorIs(s.store.Create(s.ctx, smp), sentinel.ErrConflict)
	})

	s.Run("duplicate sample number conflicts", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.newSample("SMP-B")))
		s.ErrorIs(s.store.Create(s.ctx, s.newSample("SMP-B")), sentinel.ErrConflict)
	})
}

func (s *InMemoryStoreSuite) TestFindByID() {
	s.Run("missing sample", func() {
		_, err := s.store.FindByID(s.ctx, id.NewSampleID())
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returned copy does not alias stored state", func() {
		smp := s.newSample("SMP-C")
		s.Require().NoError(s.store.Create(s.ctx, smp))

		got, err := s.store.FindByID(s.ctx, smp.ID)
		s.Require().NoError(err)
		got.Status = StatusDisposed

		again, err := s.store.FindByID(s.ctx, smp.ID)
		s.Require().NoError(err)
		s.Equal(StatusRequested, again.Status)
	})
}

func (s *InMemoryStoreSuite) TestUpdate() {
	smp := s.newSample("SMP-D")
	s.Require().NoError(s.store.Create(s.ctx, smp))

	s.Run("matching version succeeds", func() {
		next := smp.Clone()
		next.Status = StatusApproved
		next.Version = 2
		s.Require().NoError(s.store.Update(s.ctx, next, 1))

		got, err := s.store.FindByID(s.ctx, smp.ID)
		s.Require().NoError(err)
		s.Equal(int64(2), got.Version)
	})

	s.Run("stale version conflicts", func() {
		stale := smp.Clone()
		stale.Version = 2
		s.ErrorIs(s.store.Update(s.ctx, stale, 1), sentinel.ErrConflict)
	})

	s.Run("unknown sample not found", func() {
		s.ErrorIs(s.store.Update(s.ctx, s.newSample("SMP-E"), 1), sentinel.ErrNotFound)
	})
}
