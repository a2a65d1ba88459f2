package tracking

import (
	"context"
	"errors"

	"sampletrack/internal/alerting"
	"sampletrack/internal/notify"
	"sampletrack/internal/telemetry"
	"sampletrack/internal/timeline"
	id "sampletrack/pkg/domain"
	dErrors "sampletrack/pkg/domain-errors"
	"sampletrack/pkg/platform/sentinel"
	"sampletrack/pkg/requestcontext"
)

// Tracking builds the current snapshot. It reads without taking the sample's
// lane, so it may trail an in-flight write.
func (c *Controller) Tracking(ctx context.Context, sampleID id.SampleID) (*Snapshot, error) {
	smp, err := c.load(ctx, sampleID)
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{
		Sample:     smp,
		Monitoring: alerting.LevelFor(smp.Status),
	}

	if snap.LastLocation, err = c.lastLocation(ctx, sampleID); err != nil {
		return nil, err
	}
	if snap.LastTemperature, err = c.latest(ctx, sampleID, telemetry.TypeTemperature); err != nil {
		return nil, err
	}
	if snap.LastHumidity, err = c.latest(ctx, sampleID, telemetry.TypeHumidity); err != nil {
		return nil, err
	}

	if snap.OpenAlerts, err = c.alerts.List(ctx, sampleID, true); err != nil {
		return nil, err
	}

	records, err := c.ledger.History(ctx, sampleID)
	if err != nil {
		return nil, err
	}
	snap.CustodyLength = len(records)
	if n := len(records); n > 0 {
		to := records[n-1].To
		snap.CurrentCustodian = &to
	}

	if snap.LastSequence, err = c.events.LastSequence(ctx, sampleID); err != nil {
		return nil, err
	}
	return snap, nil
}

func (c *Controller) latest(ctx context.Context, sampleID id.SampleID, typ telemetry.Type) (*telemetry.Reading, error) {
	r, err := c.readings.Latest(ctx, sampleID, typ)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load latest reading")
	}
	return r, nil
}

// lastLocation is the newest reading with a position, whether a location
// reading or a temperature or humidity reading a device tagged with one.
func (c *Controller) lastLocation(ctx context.Context, sampleID id.SampleID) (*telemetry.Reading, error) {
	r, err := c.readings.LatestLocation(ctx, sampleID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load latest location")
	}
	return r, nil
}

// Events returns up to limit events with sequence greater than since.
func (c *Controller) Events(ctx context.Context, sampleID id.SampleID, since int64, limit int) ([]timeline.Event, error) {
	if _, err := c.load(ctx, sampleID); err != nil {
		return nil, err
	}
	return c.events.Page(ctx, sampleID, since, limit)
}

// Subscribe opens a live feed. Callers fill any gap with Events using the
// last sequence they saw.
func (c *Controller) Subscribe(ctx context.Context, sampleID id.SampleID) (*notify.Subscription, error) {
	if _, err := c.load(ctx, sampleID); err != nil {
		return nil, err
	}
	if c.notifier == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "live notifications are not configured")
	}
	return c.notifier.Subscribe(sampleID), nil
}

func (c *Controller) Alerts(ctx context.Context, sampleID id.SampleID, openOnly bool) ([]*alerting.Alert, error) {
	if _, err := c.load(ctx, sampleID); err != nil {
		return nil, err
	}
	return c.alerts.List(ctx, sampleID, openOnly)
}

func (c *Controller) AcknowledgeAlert(ctx context.Context, sampleID id.SampleID, alertID id.AlertID, note string) (out *alerting.Alert, err error) {
	ctx, span, start := c.startSpan(ctx, "AcknowledgeAlert", sampleID)
	defer func() { c.endSpan(span, "acknowledge_alert", start, err) }()

	return Do(ctx, c.lanes, sampleID, func() (*alerting.Alert, error) {
		if _, err := c.load(ctx, sampleID); err != nil {
			return nil, err
		}
		return c.alerts.Acknowledge(ctx, sampleID, alertID, requestcontext.ActorID(ctx), note, requestcontext.Now(ctx))
	})
}

func (c *Controller) ResolveAlert(ctx context.Context, sampleID id.SampleID, alertID id.AlertID, note string) (out *alerting.Alert, err error) {
	ctx, span, start := c.startSpan(ctx, "ResolveAlert", sampleID)
	defer func() { c.endSpan(span, "resolve_alert", start, err) }()

	return Do(ctx, c.lanes, sampleID, func() (*alerting.Alert, error) {
		if _, err := c.load(ctx, sampleID); err != nil {
			return nil, err
		}
		return c.alerts.Resolve(ctx, sampleID, alertID, requestcontext.ActorID(ctx), note, requestcontext.Now(ctx))
	})
}

func (c *Controller) Thresholds(ctx context.Context, sampleID id.SampleID) (alerting.Thresholds, error) {
	if _, err := c.load(ctx, sampleID); err != nil {
		return alerting.Thresholds{}, err
	}
	return c.alerts.Thresholds(ctx, sampleID)
}

// SetThresholds takes the lane so a concurrent reading is assessed against
// either the old or the new thresholds, never a mix.
func (c *Controller) SetThresholds(ctx context.Context, sampleID id.SampleID, t alerting.Thresholds) (alerting.Thresholds, error) {
	return Do(ctx, c.lanes, sampleID, func() (alerting.Thresholds, error) {
		if _, err := c.load(ctx, sampleID); err != nil {
			return alerting.Thresholds{}, err
		}
		if err := c.alerts.SetThresholds(ctx, sampleID, t); err != nil {
			return alerting.Thresholds{}, err
		}
		return t, nil
	})
}
