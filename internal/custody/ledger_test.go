package custody

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"sampletrack/internal/timeline"
	id "sampletrack/pkg/domain"
	dErrors "sampletrack/pkg/domain-errors"
)

type LedgerSuite struct {
	suite.Suite
	ctx      context.Context
	store    *InMemoryStore
	events   *timeline.Timeline
	ledger   *Ledger
	sampleID id.SampleID
	now      time.Time
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemoryStore()
	s.events = timeline.New(timeline.NewInMemoryStore())
	s.ledger = NewLedger(s.store, s.events)
	s.sampleID = id.NewSampleID()
	s.now = time.Date(2026, 4, 1, 10, 0, 0, 123456789, time.UTC)
}

func (s *LedgerSuite) request(from, to string) TransferRequest {
	return TransferRequest{
		From:          Party{ID: from},
		To:            Party{ID: to},
		Location:      "Dock 4",
		Purpose:       PurposeHandoff,
		Conditions:    "refrigerated",
		WitnessedBy:   "guard-1",
		Authorization: Authorization{AuthorizedBy: "qa-lead"},
	}
}

func (s *LedgerSuite) transfer(from, to string) *Record {
	rec, err := s.ledger.Transfer(s.ctx, s.sampleID, s.request(from, to), "actor-1", s.now)
	s.Require().NoError(err)
	return rec
}

func (s *LedgerSuite) eventTypes() []timeline.EventType {
	var types []timeline.EventType
	for ev, err := range s.events.StreamSince(s.ctx, s.sampleID, 0) {
		s.Require().NoError(err)
		types = append(types, ev.Type)
	}
	return types
}

func (s *LedgerSuite) TestTransferLinksRecords() {
	first := s.transfer("supplier-a", "carrier-b")
	s.Equal(0, first.Index)
	s.Equal(Seed(s.sampleID), first.PreviousHash)
	s.Equal("qa-lead", first.AuthorizedBy)
	s.Equal(s.now.Truncate(time.Microsecond), first.TransferredAt)

	second := s.transfer("carrier-b", "lab-c")
	s.Equal(1, second.Index)
	s.Equal(first.IntegrityHash, second.PreviousHash)
	s.NotEqual(first.IntegrityHash, second.IntegrityHash)

	v, err := s.ledger.Verify(s.ctx, s.sampleID)
	s.Require().NoError(err)
	s.Equal(Verification{Intact: true, BrokenIndex: -1, Length: 2}, v)

	s.Equal([]timeline.EventType{timeline.EventCustodyTransfer, timeline.EventCustodyTransfer}, s.eventTypes())

	cur, err := s.ledger.Current(s.ctx, s.sampleID)
	s.Require().NoError(err)
	s.Equal("lab-c", cur.To.ID)
}

func (s *LedgerSuite) TestTransferFromWrongPartyIsUnauthorized() {
	s.transfer("party-a", "party-c")

	_, err := s.ledger.Transfer(s.ctx, s.sampleID, s.request("party-b", "party-d"), "actor-1", s.now)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorizedTransfer))

	history, err := s.ledger.History(s.ctx, s.sampleID)
	s.Require().NoError(err)
	s.Len(history, 1, "rejected transfers leave the chain untouched")
	s.Len(s.eventTypes(), 1)
}

func (s *LedgerSuite) TestTransferRequiresAuthorization() {
	req := s.request("a", "b")
	req.Authorization = Authorization{}
	_, err := s.ledger.Transfer(s.ctx, s.sampleID, req, "actor-1", s.now)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorizedTransfer))

	expired := s.now.Add(-time.Minute)
	req.Authorization = Authorization{AuthorizedBy: "qa-lead", ExpiresAt: &expired}
	_, err = s.ledger.Transfer(s.ctx, s.sampleID, req, "actor-1", s.now)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorizedTransfer))
	s.Empty(s.eventTypes())
}

func (s *LedgerSuite) TestTransferValidation() {
	cases := map[string]func(*TransferRequest){
		"missing from":    func(r *TransferRequest) { r.From.ID = " " },
		"missing to":      func(r *TransferRequest) { r.To.ID = "" },
		"same party":      func(r *TransferRequest) { r.To.ID = r.From.ID },
		"missing place":   func(r *TransferRequest) { r.Location = "" },
		"unknown purpose": func(r *TransferRequest) { r.Purpose = "teleport" },
	}
	for name, mutate := range cases {
		s.Run(name, func() {
			req := s.request("a", "b")
			mutate(&req)
			_, err := s.ledger.Transfer(s.ctx, s.sampleID, req, "actor-1", s.now)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}
}

func (s *LedgerSuite) TestTamperedChainIsReportedAndNotRepaired() {
	s.transfer("a", "b")
	s.transfer("b", "c")
	s.transfer("c", "d")

	s.store.mu.Lock()
	s.store.records[s.sampleID][1].Location = "Somewhere else"
	s.store.mu.Unlock()

	v, err := s.ledger.Verify(s.ctx, s.sampleID)
	s.Require().NoError(err)
	s.False(v.Intact)
	s.Equal(1, v.BrokenIndex)
	s.Equal(3, v.Length)

	_, err = s.ledger.Transfer(s.ctx, s.sampleID, s.request("d", "e"), "actor-1", s.now)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeChainBroken))

	history, err := s.ledger.History(s.ctx, s.sampleID)
	s.Require().NoError(err)
	s.Len(history, 3)

	types := s.eventTypes()
	s.Equal(timeline.EventChainBroken, types[len(types)-1])
}
