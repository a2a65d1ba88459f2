package tracking

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"sampletrack/internal/alerting"
	"sampletrack/internal/telemetry"
	"sampletrack/internal/timeline"
	id "sampletrack/pkg/domain"
	dErrors "sampletrack/pkg/domain-errors"
	"sampletrack/pkg/requestcontext"
)

// IngestTelemetry records a reading and applies its alert consequences before
// returning. Malformed readings are rejected before anything is written.
func (c *Controller) IngestTelemetry(ctx context.Context, sampleID id.SampleID, raw telemetry.Raw) (res *IngestResult, err error) {
	ctx, span, start := c.startSpan(ctx, "IngestTelemetry", sampleID)
	defer func() { c.endSpan(span, "ingest_telemetry", start, err) }()
	span.SetAttributes(attribute.String("telemetry.type", string(raw.Type)))

	reading, err := telemetry.Normalize(sampleID, raw, requestcontext.Now(ctx))
	if err != nil {
		c.logger.WarnContext(ctx, "telemetry rejected",
			"sample_id", sampleID.String(),
			"reason", dErrors.Message(err),
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, err
	}

	return Do(ctx, c.lanes, sampleID, func() (*IngestResult, error) {
		smp, err := c.load(ctx, sampleID)
		if err != nil {
			return nil, err
		}
		level := alerting.LevelFor(smp.Status)

		assessment, err := c.alerts.Assess(ctx, reading)
		if err != nil {
			return nil, err
		}
		reading.WithinRange = assessment.WithinRange

		impact := timeline.ImpactNone
		if !reading.WithinRange {
			impact = timeline.ImpactLow
		}
		err = c.inUnit(ctx, func(ctx context.Context) error {
			if err := c.readings.Append(ctx, reading); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store reading")
			}
			_, err := c.events.Append(ctx, timeline.Event{
				SampleID:    sampleID,
				Type:        timeline.EventTelemetryRecorded,
				Impact:      impact,
				OccurredAt:  reading.MeasuredAt,
				ActorID:     requestcontext.ActorID(ctx),
				Description: describeReading(reading),
				Reading: &timeline.ReadingRef{
					ID:          reading.ID,
					Type:        string(reading.Type),
					Value:       reading.Value,
					Unit:        reading.Unit,
					WithinRange: reading.WithinRange,
				},
			})
			return err
		})
		if err != nil {
			return nil, err
		}
		c.metrics.IncReading(string(reading.Type), reading.WithinRange)

		outcome, err := c.alerts.Process(ctx, reading, assessment, level, requestcontext.ActorID(ctx))
		if err != nil {
			return nil, err
		}

		res := &IngestResult{
			Reading:         reading,
			WithinRange:     reading.WithinRange,
			MonitoringLevel: level,
		}
		if outcome.Raised != nil {
			alertID := outcome.Raised.ID
			res.AlertID = &alertID
			c.metrics.IncAlertRaised(string(outcome.Raised.Type), string(outcome.Raised.Severity))
		}
		if outcome.Existing != nil {
			alertID := outcome.Existing.ID
			res.OpenAlertID = &alertID
		}
		for _, a := range outcome.Resolved {
			res.ResolvedAlerts = append(res.ResolvedAlerts, a.ID)
		}
		return res, nil
	})
}

func describeReading(r *telemetry.Reading) string {
	if r.Type == telemetry.TypeLocation && r.Location != nil {
		if r.Location.Address != "" {
			return fmt.Sprintf("location %s (%.5f, %.5f)", r.Location.Address, r.Location.Lat, r.Location.Lng)
		}
		return fmt.Sprintf("location (%.5f, %.5f)", r.Location.Lat, r.Location.Lng)
	}
	state := "within range"
	if !r.WithinRange {
		state = "out of range"
	}
	return fmt.Sprintf("%s %.2f%s %s", r.Type, r.Value, r.Unit, state)
}

// Readings lists the newest readings first.
func (c *Controller) Readings(ctx context.Context, sampleID id.SampleID, limit int) ([]*telemetry.Reading, error) {
	if _, err := c.load(ctx, sampleID); err != nil {
		return nil, err
	}
	readings, err := c.readings.ListBySample(ctx, sampleID, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list readings")
	}
	return readings, nil
}
