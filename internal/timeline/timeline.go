package timeline

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"sync"
	"time"

	id "sampletrack/pkg/domain"
	dErrors "sampletrack/pkg/domain-errors"
	"sampletrack/pkg/platform/sentinel"
)

// DefaultPageSize bounds each store round-trip made by StreamSince.
const DefaultPageSize = 100

// Store persists events. Append must reject a (sample, sequence) pair that
// already exists with sentinel.ErrConflict.
type Store interface {
	Append(ctx context.Context, ev *Event) error
	LastSequence(ctx context.Context, sampleID id.SampleID) (int64, error)
	ListSince(ctx context.Context, sampleID id.SampleID, after int64, limit int) ([]Event, error)
}

// Publisher receives every event after it is durably appended, which for a
// batched append means after its unit of work committed. Publish must not
// block.
type Publisher interface {
	Publish(ev Event)
}

// Batch holds events appended inside a unit of work. They reach the
// publisher only through Timeline.Publish, once the unit has committed.
type Batch struct {
	mu     sync.Mutex
	events []Event
}

func (b *Batch) add(ev Event) {
	b.mu.Lock()
	b.events = append(b.events, ev)
	b.mu.Unlock()
}

// Len reports how many events are waiting.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

type batchKey struct{}

// WithBatch makes Append collect events into b instead of publishing them.
func WithBatch(ctx context.Context, b *Batch) context.Context {
	return context.WithValue(ctx, batchKey{}, b)
}

// BatchFrom returns the batch collecting appends in ctx, if any.
func BatchFrom(ctx context.Context) (*Batch, bool) {
	b, ok := ctx.Value(batchKey{}).(*Batch)
	return b, ok
}

// Timeline assigns per-sample sequence numbers and stores events. Callers
// guarantee a single writer per sample; the store's uniqueness check is the
// backstop if that is ever violated.
type Timeline struct {
	store     Store
	publisher Publisher
	logger    *slog.Logger
	pageSize  int
	now       func() time.Time
}

type Option func(*Timeline)

func WithPublisher(p Publisher) Option {
	return func(t *Timeline) {
		t.publisher = p
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(t *Timeline) {
		t.logger = logger
	}
}

func WithPageSize(n int) Option {
	return func(t *Timeline) {
		if n > 0 {
			t.pageSize = n
		}
	}
}

// WithClock overrides the clock used for RecordedAt.
func WithClock(now func() time.Time) Option {
	return func(t *Timeline) {
		t.now = now
	}
}

func New(store Store, opts ...Option) *Timeline {
	t := &Timeline{
		store:    store,
		logger:   slog.Default(),
		pageSize: DefaultPageSize,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Append stores ev as the next event for its sample and returns the stored
// copy. Once Append returns nil the event is never edited or removed.
func (t *Timeline) Append(ctx context.Context, ev Event) (Event, error) {
	if ev.SampleID.IsNil() {
		return Event{}, dErrors.New(dErrors.CodeInvariantViolation, "event requires a sample id")
	}
	if ev.Type == "" {
		return Event{}, dErrors.New(dErrors.CodeInvariantViolation, "event requires a type")
	}
	last, err := t.store.LastSequence(ctx, ev.SampleID)
	if err != nil {
		return Event{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read last sequence")
	}

	ev.ID = id.NewEventID()
	ev.Sequence = last + 1
	ev.RecordedAt = t.now().UTC()
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = ev.RecordedAt
	}
	if ev.Impact == "" {
		ev.Impact = ImpactNone
	}

	if err := t.store.Append(ctx, &ev); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			t.logger.ErrorContext(ctx, "timeline sequence collision",
				"sample_id", ev.SampleID.String(),
				"sequence", ev.Sequence,
			)
			return Event{}, dErrors.Wrap(err, dErrors.CodeInvariantViolation, "concurrent timeline writer detected")
		}
		return Event{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to append event")
	}

	if b, ok := BatchFrom(ctx); ok {
		b.add(ev)
		return ev, nil
	}
	if t.publisher != nil {
		t.publisher.Publish(ev)
	}
	return ev, nil
}

// Publish hands the batch's events to the publisher in append order and
// empties it. Call it only after the unit of work that filled b committed.
func (t *Timeline) Publish(b *Batch) {
	b.mu.Lock()
	events := b.events
	b.events = nil
	b.mu.Unlock()
	if t.publisher == nil {
		return
	}
	for _, ev := range events {
		t.publisher.Publish(ev)
	}
}

// Page returns up to limit events with sequence > after, ascending.
func (t *Timeline) Page(ctx context.Context, sampleID id.SampleID, after int64, limit int) ([]Event, error) {
	if after < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "since must not be negative")
	}
	if limit <= 0 || limit > t.pageSize*10 {
		limit = t.pageSize
	}
	events, err := t.store.ListSince(ctx, sampleID, after, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list events")
	}
	return events, nil
}

// StreamSince yields every event with sequence > after in ascending order,
// fetching lazily one page at a time. The sequence is finite: it ends at the
// last event present when the final page is read. Ranging over it again
// restarts from after.
func (t *Timeline) StreamSince(ctx context.Context, sampleID id.SampleID, after int64) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		cursor := after
		for {
			page, err := t.Page(ctx, sampleID, cursor, t.pageSize)
			if err != nil {
				yield(Event{}, err)
				return
			}
			for _, ev := range page {
				if !yield(ev, nil) {
					return
				}
				cursor = ev.Sequence
			}
			if len(page) < t.pageSize {
				return
			}
		}
	}
}

// LastSequence reports the highest sequence stored for sampleID, or 0.
func (t *Timeline) LastSequence(ctx context.Context, sampleID id.SampleID) (int64, error) {
	seq, err := t.store.LastSequence(ctx, sampleID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read last sequence")
	}
	return seq, nil
}
