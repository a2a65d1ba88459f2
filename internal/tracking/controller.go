package tracking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"sampletrack/internal/alerting"
	"sampletrack/internal/custody"
	"sampletrack/internal/notify"
	"sampletrack/internal/sample"
	"sampletrack/internal/telemetry"
	"sampletrack/internal/timeline"
	"sampletrack/internal/tracking/metrics"
	id "sampletrack/pkg/domain"
	dErrors "sampletrack/pkg/domain-errors"
	"sampletrack/pkg/platform/sentinel"
	"sampletrack/pkg/platform/tx"
	"sampletrack/pkg/requestcontext"
)

// SampleStore persists samples. Update is a compare-and-set on version.
type SampleStore interface {
	Create(ctx context.Context, smp *sample.Sample) error
	FindByID(ctx context.Context, sampleID id.SampleID) (*sample.Sample, error)
	Update(ctx context.Context, smp *sample.Sample, expectedVersion int64) error
}

type ReadingStore interface {
	Append(ctx context.Context, r *telemetry.Reading) error
	Latest(ctx context.Context, sampleID id.SampleID, typ telemetry.Type) (*telemetry.Reading, error)
	LatestLocation(ctx context.Context, sampleID id.SampleID) (*telemetry.Reading, error)
	ListBySample(ctx context.Context, sampleID id.SampleID, limit int) ([]*telemetry.Reading, error)
}

// Subscriber hands out live event feeds.
type Subscriber interface {
	Subscribe(sampleID id.SampleID) *notify.Subscription
}

// Controller coordinates the lifecycle state machine with the custody ledger,
// the alerting engine and the timeline.
type Controller struct {
	samples  SampleStore
	readings ReadingStore
	ledger   *custody.Ledger
	alerts   *alerting.Engine
	events   *timeline.Timeline
	notifier Subscriber
	lanes    *Serializer
	tx       tx.Runner

	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

type Option func(*Controller)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

func WithSerializer(s *Serializer) Option {
	return func(c *Controller) {
		c.lanes = s
	}
}

// WithTxRunner makes each sample update commit together with its timeline
// event.
func WithTxRunner(r tx.Runner) Option {
	return func(c *Controller) {
		c.tx = r
	}
}

func WithSubscriber(s Subscriber) Option {
	return func(c *Controller) {
		c.notifier = s
	}
}

func NewController(
	samples SampleStore,
	readings ReadingStore,
	ledger *custody.Ledger,
	alerts *alerting.Engine,
	events *timeline.Timeline,
	opts ...Option,
) *Controller {
	c := &Controller{
		samples:  samples,
		readings: readings,
		ledger:   ledger,
		alerts:   alerts,
		events:   events,
		tx:       tx.NoopRunner{},
		logger:   slog.Default(),
		tracer:   otel.Tracer("sampletrack/internal/tracking"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.lanes == nil {
		c.lanes = NewSerializer(DefaultQueueDepth, DefaultEnqueueTimeout, DefaultLaneIdle)
	}
	return c
}

func (c *Controller) startSpan(ctx context.Context, op string, sampleID id.SampleID) (context.Context, trace.Span, time.Time) {
	ctx, span := c.tracer.Start(ctx, "tracking."+op,
		trace.WithAttributes(attribute.String("sample.id", sampleID.String())),
	)
	return ctx, span, time.Now()
}

func (c *Controller) endSpan(span trace.Span, op string, start time.Time, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.GetCode(err)))
		if dErrors.HasCode(err, dErrors.CodeBackpressure) {
			c.metrics.IncBackpressure()
		}
	}
	span.End()
	c.metrics.ObserveOperation(op, time.Since(start))
}

// Register creates a sample in REQUESTED at version 1.
func (c *Controller) Register(ctx context.Context, cmd RegisterCommand) (smp *sample.Sample, err error) {
	sampleID := id.NewSampleID()
	ctx, span, start := c.startSpan(ctx, "Register", sampleID)
	defer func() { c.endSpan(span, "register", start, err) }()

	now := requestcontext.Now(ctx)
	actorID := requestcontext.ActorID(ctx)

	smp, err = sample.NewSample(sampleID, cmd.SampleNumber, cmd.Type, cmd.Priority, cmd.ProductDescription, cmd.Quantity, now)
	if err != nil {
		return nil, err
	}
	smp.Packaging = cmd.Packaging
	smp.Labeling = cmd.Labeling
	smp.SupplierID = cmd.SupplierID
	smp.BuyerID = cmd.BuyerID
	smp.CustomFields = cmd.CustomFields
	smp.RequestedBy = actorID

	return Do(ctx, c.lanes, sampleID, func() (*sample.Sample, error) {
		err := c.inUnit(ctx, func(ctx context.Context) error {
			if err := c.samples.Create(ctx, smp); err != nil {
				if errors.Is(err, sentinel.ErrConflict) {
					return dErrors.Newf(dErrors.CodeConflict, "sample number %q already exists", smp.SampleNumber)
				}
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create sample")
			}
			_, err := c.events.Append(ctx, timeline.Event{
				SampleID:    sampleID,
				Type:        timeline.EventSampleCreated,
				Impact:      timeline.ImpactLow,
				OccurredAt:  now,
				ActorID:     actorID,
				Description: fmt.Sprintf("sample %s requested: %s", smp.SampleNumber, smp.ProductDescription),
			})
			return err
		})
		if err != nil {
			return nil, err
		}
		c.logger.InfoContext(ctx, "sample registered",
			"sample_id", sampleID.String(),
			"sample_number", smp.SampleNumber,
			"request_id", requestcontext.RequestID(ctx),
			"actor_id", actorID,
		)
		return smp, nil
	})
}

func (c *Controller) Get(ctx context.Context, sampleID id.SampleID) (*sample.Sample, error) {
	return c.load(ctx, sampleID)
}

func (c *Controller) load(ctx context.Context, sampleID id.SampleID) (*sample.Sample, error) {
	smp, err := c.samples.FindByID(ctx, sampleID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "sample %s not found", sampleID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load sample")
	}
	return smp, nil
}

// Transition moves a sample to target if expectedVersion is current, the
// sample is not on hold, and target is one edge away in the lifecycle graph.
func (c *Controller) Transition(ctx context.Context, sampleID id.SampleID, target sample.Status, expectedVersion int64) (out *sample.Sample, err error) {
	ctx, span, start := c.startSpan(ctx, "Transition", sampleID)
	defer func() { c.endSpan(span, "transition", start, err) }()
	span.SetAttributes(attribute.String("sample.target_status", string(target)))

	return Do(ctx, c.lanes, sampleID, func() (*sample.Sample, error) {
		smp, err := c.load(ctx, sampleID)
		if err != nil {
			return nil, err
		}
		if err := c.checkTransition(ctx, smp, target, expectedVersion); err != nil {
			return nil, err
		}
		return c.applyTransition(ctx, smp, target, "")
	})
}

func (c *Controller) checkTransition(ctx context.Context, smp *sample.Sample, target sample.Status, expectedVersion int64) error {
	var err error
	switch {
	case smp.Version != expectedVersion:
		err = dErrors.Newf(dErrors.CodeVersionConflict,
			"sample is at version %d, not %d", smp.Version, expectedVersion)
	case smp.OnHold():
		err = dErrors.Newf(dErrors.CodeInvalidTransition,
			"sample is on hold: %s", smp.Hold.Reason)
	case !sample.CanTransition(smp.Status, target):
		err = dErrors.Newf(dErrors.CodeInvalidTransition,
			"cannot move from %s to %s", smp.Status, target)
	}
	if err != nil {
		c.logger.WarnContext(ctx, "status transition rejected",
			"sample_id", smp.ID.String(),
			"from", string(smp.Status),
			"to", string(target),
			"reason", dErrors.Message(err),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return err
}

// applyTransition must run on the sample's lane. cause, when set, names the
// custody purpose that implied the move.
func (c *Controller) applyTransition(ctx context.Context, smp *sample.Sample, target sample.Status, cause custody.Purpose) (*sample.Sample, error) {
	now := requestcontext.Now(ctx)
	actorID := requestcontext.ActorID(ctx)

	next := smp.Clone()
	next.Status = target
	next.Version = smp.Version + 1
	next.UpdatedAt = now

	desc := fmt.Sprintf("status changed from %s to %s", smp.Status, target)
	if cause != "" {
		desc = fmt.Sprintf("%s by custody %s", desc, cause)
	}
	err := c.updateWithEvent(ctx, next, smp.Version, timeline.Event{
		SampleID:    smp.ID,
		Type:        timeline.EventStatusChange,
		Impact:      statusImpact(target),
		OccurredAt:  now,
		ActorID:     actorID,
		Description: desc,
		StatusChange: &timeline.StatusChange{
			From:    string(smp.Status),
			To:      string(target),
			Version: next.Version,
		},
	})
	if err != nil {
		return nil, err
	}

	if prev, level := alerting.LevelFor(smp.Status), alerting.LevelFor(target); prev != level {
		c.logger.InfoContext(ctx, "monitoring level changed",
			"sample_id", smp.ID.String(),
			"from", string(prev),
			"to", string(level),
		)
	}

	c.metrics.IncTransition(string(target))
	c.logger.InfoContext(ctx, "sample status changed",
		"sample_id", smp.ID.String(),
		"from", string(smp.Status),
		"to", string(target),
		"version", next.Version,
		"request_id", requestcontext.RequestID(ctx),
		"actor_id", actorID,
	)
	return next, nil
}

// inUnit runs fn through the tx runner. Events fn appends are published only
// after the runner returns nil, so subscribers and sinks never see an event a
// failed commit discarded. A nested call joins the outer unit's batch.
func (c *Controller) inUnit(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := timeline.BatchFrom(ctx); ok {
		return c.tx.RunInTx(ctx, fn)
	}
	batch := &timeline.Batch{}
	if err := c.tx.RunInTx(timeline.WithBatch(ctx, batch), fn); err != nil {
		return err
	}
	c.events.Publish(batch)
	return nil
}

// updateWithEvent stores next and appends ev as one unit of work.
func (c *Controller) updateWithEvent(ctx context.Context, next *sample.Sample, expectedVersion int64, ev timeline.Event) error {
	return c.inUnit(ctx, func(ctx context.Context) error {
		if err := c.update(ctx, next, expectedVersion); err != nil {
			return err
		}
		_, err := c.events.Append(ctx, ev)
		return err
	})
}

func (c *Controller) update(ctx context.Context, next *sample.Sample, expectedVersion int64) error {
	if err := c.samples.Update(ctx, next, expectedVersion); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrConflict):
			return dErrors.Wrap(err, dErrors.CodeVersionConflict, "sample was modified concurrently")
		case errors.Is(err, sentinel.ErrNotFound):
			return dErrors.Newf(dErrors.CodeNotFound, "sample %s not found", next.ID)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update sample")
	}
	return nil
}

func statusImpact(s sample.Status) timeline.Impact {
	switch s {
	case sample.StatusRejected, sample.StatusReturned:
		return timeline.ImpactHigh
	case sample.StatusApprovedForUse, sample.StatusDisposed, sample.StatusResultsAvailable:
		return timeline.ImpactMedium
	}
	return timeline.ImpactLow
}

// placeHold freezes the sample. It must run on the sample's lane.
func (c *Controller) placeHold(ctx context.Context, smp *sample.Sample, reason string) (*sample.Sample, error) {
	if smp.OnHold() {
		return smp, nil
	}
	now := requestcontext.Now(ctx)
	actorID := requestcontext.ActorID(ctx)

	next := smp.Clone()
	next.Hold = &sample.Hold{Reason: reason, PlacedAt: now, PlacedBy: actorID}
	next.Version = smp.Version + 1
	next.UpdatedAt = now
	err := c.updateWithEvent(ctx, next, smp.Version, timeline.Event{
		SampleID:    smp.ID,
		Type:        timeline.EventHoldPlaced,
		Impact:      timeline.ImpactCritical,
		OccurredAt:  now,
		ActorID:     actorID,
		Description: "sample placed on hold: " + reason,
	})
	if err != nil {
		return nil, err
	}
	c.logger.WarnContext(ctx, "sample placed on hold",
		"sample_id", smp.ID.String(),
		"reason", reason,
		"version", next.Version,
		"request_id", requestcontext.RequestID(ctx),
	)
	return next, nil
}

// ReleaseHold clears a hold after investigation.
func (c *Controller) ReleaseHold(ctx context.Context, sampleID id.SampleID, note string) (out *sample.Sample, err error) {
	ctx, span, start := c.startSpan(ctx, "ReleaseHold", sampleID)
	defer func() { c.endSpan(span, "release_hold", start, err) }()

	return Do(ctx, c.lanes, sampleID, func() (*sample.Sample, error) {
		smp, err := c.load(ctx, sampleID)
		if err != nil {
			return nil, err
		}
		if !smp.OnHold() {
			return nil, dErrors.New(dErrors.CodeConflict, "sample is not on hold")
		}
		now := requestcontext.Now(ctx)
		actorID := requestcontext.ActorID(ctx)

		next := smp.Clone()
		next.Hold = nil
		next.Version = smp.Version + 1
		next.UpdatedAt = now
		desc := "hold released"
		if note != "" {
			desc += ": " + note
		}
		err = c.updateWithEvent(ctx, next, smp.Version, timeline.Event{
			SampleID:    sampleID,
			Type:        timeline.EventHoldReleased,
			Impact:      timeline.ImpactMedium,
			OccurredAt:  now,
			ActorID:     actorID,
			Description: desc,
		})
		if err != nil {
			return nil, err
		}
		c.logger.InfoContext(ctx, "sample hold released",
			"sample_id", sampleID.String(),
			"released_by", actorID,
			"previous_reason", smp.Hold.Reason,
			"request_id", requestcontext.RequestID(ctx),
		)
		return next, nil
	})
}
