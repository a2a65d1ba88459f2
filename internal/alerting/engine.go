package alerting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"sampletrack/internal/telemetry"
	"sampletrack/internal/timeline"
	id "sampletrack/pkg/domain"
	dErrors "sampletrack/pkg/domain-errors"
	"sampletrack/pkg/platform/sentinel"
)

// Store persists alerts and per-sample thresholds.
type Store interface {
	Create(ctx context.Context, a *Alert) error
	Update(ctx context.Context, a *Alert) error
	FindByID(ctx context.Context, sampleID id.SampleID, alertID id.AlertID) (*Alert, error)
	ListBySample(ctx context.Context, sampleID id.SampleID, openOnly bool) ([]*Alert, error)
	GetThresholds(ctx context.Context, sampleID id.SampleID) (*Thresholds, error)
	PutThresholds(ctx context.Context, sampleID id.SampleID, t Thresholds) error
}

// EventAppender is the slice of the timeline the engine writes to.
type EventAppender interface {
	Append(ctx context.Context, ev timeline.Event) (timeline.Event, error)
}

// Outcome reports what a reading did to the sample's alerts. Raised is nil
// when nothing new was raised; Existing is set when an open alert already
// covers the condition.
type Outcome struct {
	Raised   *Alert
	Existing *Alert
	Resolved []*Alert
}

// Engine owns alert lifecycle. Callers serialize calls per sample.
type Engine struct {
	store  Store
	events EventAppender
	logger *slog.Logger
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func NewEngine(store Store, events EventAppender, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		events: events,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Thresholds returns the sample's thresholds, or the defaults.
func (e *Engine) Thresholds(ctx context.Context, sampleID id.SampleID) (Thresholds, error) {
	t, err := e.store.GetThresholds(ctx, sampleID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return DefaultThresholds(), nil
	}
	if err != nil {
		return Thresholds{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load thresholds")
	}
	return *t, nil
}

func (e *Engine) SetThresholds(ctx context.Context, sampleID id.SampleID, t Thresholds) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if err := e.store.PutThresholds(ctx, sampleID, t); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save thresholds")
	}
	e.logger.InfoContext(ctx, "thresholds updated",
		"sample_id", sampleID.String(),
		"temperature_normal", fmt.Sprintf("[%g, %g]", t.Temperature.Normal.Min, t.Temperature.Normal.Max),
		"humidity_normal", fmt.Sprintf("[%g, %g]", t.Humidity.Normal.Min, t.Humidity.Normal.Max),
	)
	return nil
}

// Assess grades r against the sample's thresholds without side effects.
func (e *Engine) Assess(ctx context.Context, r *telemetry.Reading) (Assessment, error) {
	t, err := e.Thresholds(ctx, r.SampleID)
	if err != nil {
		return Assessment{}, err
	}
	return Assess(t, r), nil
}

// Process applies an assessment: an in-range reading resolves the open
// alerts of its parameter; an out-of-range reading raises an alert unless
// one with the same type and severity is already open, or level is relaxed
// and the excursion is only a warning. level comes from the sample's stored
// status, so the engine keeps no per-sample state.
func (e *Engine) Process(ctx context.Context, r *telemetry.Reading, a Assessment, level Level, actorID string) (Outcome, error) {
	open, err := e.store.ListBySample(ctx, r.SampleID, true)
	if err != nil {
		return Outcome{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load open alerts")
	}

	if a.WithinRange {
		return e.autoResolve(ctx, r, open, actorID)
	}

	for _, existing := range open {
		if existing.Type == a.AlertType && existing.Severity == a.Severity {
			return Outcome{Existing: existing}, nil
		}
	}

	if a.Severity == SeverityWarning && level == LevelRelaxed {
		e.logger.DebugContext(ctx, "warning excursion under relaxed monitoring",
			"sample_id", r.SampleID.String(),
			"type", string(a.AlertType),
		)
		return Outcome{}, nil
	}

	value := r.Value
	readingID := r.ID
	alert := &Alert{
		ID:              id.NewAlertID(),
		SampleID:        r.SampleID,
		Type:            a.AlertType,
		Severity:        a.Severity,
		Message:         a.Message,
		Value:           &value,
		Unit:            r.Unit,
		ReadingID:       &readingID,
		RequiredActions: []string{ActionNotifyQualityTeam, ActionInvestigate},
		RaisedAt:        r.ReceivedAt,
	}
	if err := e.raise(ctx, alert, actorID); err != nil {
		return Outcome{}, err
	}
	return Outcome{Raised: alert}, nil
}

// RaiseIntegrity raises a critical custody_integrity alert. These are never
// deduplicated: every detected break is its own incident.
func (e *Engine) RaiseIntegrity(ctx context.Context, sampleID id.SampleID, message, actorID string, now time.Time) (*Alert, error) {
	alert := &Alert{
		ID:              id.NewAlertID(),
		SampleID:        sampleID,
		Type:            TypeCustodyIntegrity,
		Severity:        SeverityCritical,
		Message:         message,
		RequiredActions: []string{ActionNotifyQualityTeam, ActionInvestigate, ActionAuditCustodyChain},
		RaisedAt:        now,
	}
	if err := e.raise(ctx, alert, actorID); err != nil {
		return nil, err
	}
	return alert, nil
}

func (e *Engine) raise(ctx context.Context, alert *Alert, actorID string) error {
	if err := e.store.Create(ctx, alert); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store alert")
	}
	alertID := alert.ID
	if _, err := e.events.Append(ctx, timeline.Event{
		SampleID:    alert.SampleID,
		Type:        timeline.EventAlertRaised,
		Impact:      impactFor(alert),
		OccurredAt:  alert.RaisedAt,
		ActorID:     actorID,
		Description: fmt.Sprintf("%s %s alert: %s", alert.Severity, alert.Type, alert.Message),
		AlertID:     &alertID,
	}); err != nil {
		return err
	}
	e.logger.InfoContext(ctx, "alert raised",
		"sample_id", alert.SampleID.String(),
		"alert_id", alert.ID.String(),
		"type", string(alert.Type),
		"severity", string(alert.Severity),
	)
	return nil
}

func (e *Engine) autoResolve(ctx context.Context, r *telemetry.Reading, open []*Alert, actorID string) (Outcome, error) {
	types := parameterTypes(r.Type)
	var out Outcome
	for _, a := range open {
		if !containsType(types, a.Type) {
			continue
		}
		if err := e.close(ctx, a, ResolvedBySystem, "reading returned within range", r.ReceivedAt, actorID); err != nil {
			return out, err
		}
		out.Resolved = append(out.Resolved, a)
	}
	return out, nil
}

// Acknowledge marks an open alert as seen by an operator.
func (e *Engine) Acknowledge(ctx context.Context, sampleID id.SampleID, alertID id.AlertID, actor, note string, now time.Time) (*Alert, error) {
	a, err := e.find(ctx, sampleID, alertID)
	if err != nil {
		return nil, err
	}
	if a.Resolved {
		return nil, dErrors.New(dErrors.CodeConflict, "alert is already resolved")
	}
	if a.Acknowledged {
		return nil, dErrors.New(dErrors.CodeConflict, "alert is already acknowledged")
	}
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "actor is required")
	}

	at := now
	a.Acknowledged = true
	a.AcknowledgedAt = &at
	a.AcknowledgedBy = actor
	if err := e.store.Update(ctx, a); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update alert")
	}

	desc := fmt.Sprintf("%s alert acknowledged by %s", a.Type, actor)
	if note = strings.TrimSpace(note); note != "" {
		desc += ": " + note
	}
	if _, err := e.events.Append(ctx, timeline.Event{
		SampleID:    sampleID,
		Type:        timeline.EventAlertAcknowledged,
		Impact:      timeline.ImpactLow,
		OccurredAt:  now,
		ActorID:     actor,
		Description: desc,
		AlertID:     &alertID,
	}); err != nil {
		return nil, err
	}
	e.logger.InfoContext(ctx, "alert acknowledged",
		"sample_id", sampleID.String(),
		"alert_id", alertID.String(),
		"actor_id", actor,
	)
	return a, nil
}

// Resolve closes an alert on operator request.
func (e *Engine) Resolve(ctx context.Context, sampleID id.SampleID, alertID id.AlertID, actor, note string, now time.Time) (*Alert, error) {
	a, err := e.find(ctx, sampleID, alertID)
	if err != nil {
		return nil, err
	}
	if a.Resolved {
		return nil, dErrors.New(dErrors.CodeConflict, "alert is already resolved")
	}
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "actor is required")
	}
	if err := e.close(ctx, a, actor, strings.TrimSpace(note), now, actor); err != nil {
		return nil, err
	}
	return a, nil
}

func (e *Engine) close(ctx context.Context, a *Alert, resolvedBy, note string, now time.Time, actorID string) error {
	at := now
	a.Resolved = true
	a.ResolvedAt = &at
	a.ResolvedBy = resolvedBy
	a.ResolutionNote = note
	if err := e.store.Update(ctx, a); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update alert")
	}

	desc := fmt.Sprintf("%s alert resolved by %s", a.Type, resolvedBy)
	if note != "" {
		desc += ": " + note
	}
	alertID := a.ID
	if _, err := e.events.Append(ctx, timeline.Event{
		SampleID:    a.SampleID,
		Type:        timeline.EventAlertResolved,
		Impact:      timeline.ImpactLow,
		OccurredAt:  now,
		ActorID:     actorID,
		Description: desc,
		AlertID:     &alertID,
	}); err != nil {
		return err
	}
	e.logger.InfoContext(ctx, "alert resolved",
		"sample_id", a.SampleID.String(),
		"alert_id", a.ID.String(),
		"resolved_by", resolvedBy,
	)
	return nil
}

func (e *Engine) find(ctx context.Context, sampleID id.SampleID, alertID id.AlertID) (*Alert, error) {
	a, err := e.store.FindByID(ctx, sampleID, alertID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "alert not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load alert")
	}
	return a, nil
}

// List returns the sample's alerts, newest first.
func (e *Engine) List(ctx context.Context, sampleID id.SampleID, openOnly bool) ([]*Alert, error) {
	alerts, err := e.store.ListBySample(ctx, sampleID, openOnly)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list alerts")
	}
	return alerts, nil
}

func impactFor(a *Alert) timeline.Impact {
	switch {
	case a.Type == TypeCustodyIntegrity:
		return timeline.ImpactCritical
	case a.Severity == SeverityCritical:
		return timeline.ImpactHigh
	default:
		return timeline.ImpactMedium
	}
}

func containsType(types []Type, t Type) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}
