package custody

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"sampletrack/internal/timeline"
	id "sampletrack/pkg/domain"
	dErrors "sampletrack/pkg/domain-errors"
	"sampletrack/pkg/platform/sentinel"
)

// Store persists custody records. Append must reject a second record at an
// index that is already taken with sentinel.ErrConflict.
type Store interface {
	Append(ctx context.Context, rec *Record) error
	ListBySample(ctx context.Context, sampleID id.SampleID) ([]*Record, error)
}

// EventAppender is the slice of the timeline the ledger writes to.
type EventAppender interface {
	Append(ctx context.Context, ev timeline.Event) (timeline.Event, error)
}

// Ledger owns custody-record append order. Callers serialize Transfer per
// sample.
type Ledger struct {
	store      Store
	events     EventAppender
	authorizer Authorizer
	logger     *slog.Logger
}

type Option func(*Ledger)

func WithAuthorizer(a Authorizer) Option {
	return func(l *Ledger) {
		l.authorizer = a
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

func NewLedger(store Store, events EventAppender, opts ...Option) *Ledger {
	l := &Ledger{
		store:      store,
		events:     events,
		authorizer: StaticAuthorizer{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Transfer authorizes req, verifies the existing chain, and appends a new
// record linked to the last one. A chain that fails verification is reported
// with CodeChainBroken and a chain_broken event; it is never repaired.
func (l *Ledger) Transfer(ctx context.Context, sampleID id.SampleID, req TransferRequest, actorID string, now time.Time) (*Record, error) {
	req = normalizeRequest(req)
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	authorizedBy, err := l.authorizer.Authorize(ctx, sampleID, req.Authorization, now)
	if err != nil {
		l.logger.WarnContext(ctx, "custody transfer rejected",
			"sample_id", sampleID.String(),
			"reason", dErrors.Message(err),
		)
		return nil, err
	}

	records, err := l.store.ListBySample(ctx, sampleID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load custody chain")
	}

	v := VerifyChain(sampleID, records)
	if !v.Intact {
		return nil, l.chainBroken(ctx, sampleID, v, actorID, now)
	}

	prevHash := Seed(sampleID)
	if n := len(records); n > 0 {
		last := records[n-1]
		if last.To.ID != req.From.ID {
			l.logger.WarnContext(ctx, "custody transfer rejected",
				"sample_id", sampleID.String(),
				"reason", "non-contiguous custody",
				"current_custodian", last.To.ID,
				"claimed_from", req.From.ID,
			)
			return nil, dErrors.Newf(dErrors.CodeUnauthorizedTransfer,
				"transfer from %q but current custodian is %q", req.From.ID, last.To.ID)
		}
		prevHash = last.IntegrityHash
	}

	rec := &Record{
		ID:            id.NewCustodyRecordID(),
		SampleID:      sampleID,
		Index:         len(records),
		From:          req.From,
		To:            req.To,
		Location:      req.Location,
		Purpose:       req.Purpose,
		Conditions:    req.Conditions,
		WitnessedBy:   req.WitnessedBy,
		AuthorizedBy:  authorizedBy,
		TransferredAt: now.UTC().Truncate(time.Microsecond),
		PreviousHash:  prevHash,
	}
	rec.IntegrityHash, err = ComputeHash(rec)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash custody record")
	}

	if err := l.store.Append(ctx, rec); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeInvariantViolation, "concurrent custody writer detected")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to append custody record")
	}

	recordID := rec.ID
	if _, err := l.events.Append(ctx, timeline.Event{
		SampleID:        sampleID,
		Type:            timeline.EventCustodyTransfer,
		Impact:          timeline.ImpactLow,
		OccurredAt:      rec.TransferredAt,
		ActorID:         actorID,
		Description:     fmt.Sprintf("custody transferred from %s to %s (%s) at %s", rec.From.ID, rec.To.ID, rec.Purpose, rec.Location),
		CustodyRecordID: &recordID,
	}); err != nil {
		return nil, err
	}

	l.logger.InfoContext(ctx, "custody transferred",
		"sample_id", sampleID.String(),
		"record_id", rec.ID.String(),
		"index", rec.Index,
		"from", rec.From.ID,
		"to", rec.To.ID,
		"purpose", string(rec.Purpose),
		"authorized_by", authorizedBy,
	)
	return rec, nil
}

func (l *Ledger) chainBroken(ctx context.Context, sampleID id.SampleID, v Verification, actorID string, now time.Time) error {
	l.logger.ErrorContext(ctx, "custody chain integrity failure",
		"sample_id", sampleID.String(),
		"broken_index", v.BrokenIndex,
		"length", v.Length,
		"reason", v.Reason,
	)
	desc := fmt.Sprintf("custody chain broken at index %d: %s", v.BrokenIndex, v.Reason)
	if _, err := l.events.Append(ctx, timeline.Event{
		SampleID:    sampleID,
		Type:        timeline.EventChainBroken,
		Impact:      timeline.ImpactCritical,
		OccurredAt:  now,
		ActorID:     actorID,
		Description: desc,
	}); err != nil {
		return err
	}
	return dErrors.New(dErrors.CodeChainBroken, desc)
}

// Verify recomputes the chain for sampleID.
func (l *Ledger) Verify(ctx context.Context, sampleID id.SampleID) (Verification, error) {
	records, err := l.store.ListBySample(ctx, sampleID)
	if err != nil {
		return Verification{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load custody chain")
	}
	return VerifyChain(sampleID, records), nil
}

// History returns the chain in index order.
func (l *Ledger) History(ctx context.Context, sampleID id.SampleID) ([]*Record, error) {
	records, err := l.store.ListBySample(ctx, sampleID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load custody chain")
	}
	return records, nil
}

// Current returns the latest record, or nil when the sample has never moved.
func (l *Ledger) Current(ctx context.Context, sampleID id.SampleID) (*Record, error) {
	records, err := l.History(ctx, sampleID)
	if err != nil || len(records) == 0 {
		return nil, err
	}
	return records[len(records)-1], nil
}

func normalizeRequest(req TransferRequest) TransferRequest {
	req.From = normalizeParty(req.From)
	req.To = normalizeParty(req.To)
	req.Location = strings.TrimSpace(req.Location)
	req.Conditions = strings.TrimSpace(req.Conditions)
	req.WitnessedBy = strings.TrimSpace(req.WitnessedBy)
	return req
}

func normalizeParty(p Party) Party {
	return Party{
		ID:           strings.TrimSpace(p.ID),
		Name:         strings.TrimSpace(p.Name),
		Organization: strings.TrimSpace(p.Organization),
	}
}

func validateRequest(req TransferRequest) error {
	switch {
	case req.From.ID == "":
		return dErrors.New(dErrors.CodeValidation, "from.id is required")
	case req.To.ID == "":
		return dErrors.New(dErrors.CodeValidation, "to.id is required")
	case req.From.ID == req.To.ID:
		return dErrors.New(dErrors.CodeValidation, "from and to must be different parties")
	case req.Location == "":
		return dErrors.New(dErrors.CodeValidation, "location is required")
	}
	if _, err := ParsePurpose(string(req.Purpose)); err != nil {
		return err
	}
	return nil
}
