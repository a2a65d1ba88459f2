package tracking

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"sampletrack/internal/custody"
	"sampletrack/internal/sample"
	id "sampletrack/pkg/domain"
	dErrors "sampletrack/pkg/domain-errors"
	"sampletrack/pkg/requestcontext"
)

// TransferCustody appends a custody record and applies any status change the
// transfer implies, in one serialized step. A broken chain puts the sample on
// hold and raises a custody_integrity alert; the ChainBroken error is still
// returned to the caller.
func (c *Controller) TransferCustody(ctx context.Context, sampleID id.SampleID, req custody.TransferRequest) (res *TransferResult, err error) {
	ctx, span, start := c.startSpan(ctx, "TransferCustody", sampleID)
	defer func() { c.endSpan(span, "transfer_custody", start, err) }()
	span.SetAttributes(attribute.String("custody.purpose", string(req.Purpose)))

	return Do(ctx, c.lanes, sampleID, func() (*TransferResult, error) {
		smp, err := c.load(ctx, sampleID)
		if err != nil {
			return nil, err
		}
		if smp.OnHold() {
			return nil, dErrors.Newf(dErrors.CodeUnauthorizedTransfer,
				"sample is on hold: %s", smp.Hold.Reason)
		}

		now := requestcontext.Now(ctx)
		actorID := requestcontext.ActorID(ctx)
		rec, err := c.ledger.Transfer(ctx, sampleID, req, actorID, now)
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeChainBroken) {
				c.onChainBroken(ctx, smp, dErrors.Message(err))
			}
			return nil, err
		}
		c.metrics.IncCustodyTransfer(string(rec.Purpose))

		res := &TransferResult{Record: rec, Sample: smp}
		if target, ok := impliedStatus(rec.Purpose, smp.Status); ok && sample.CanTransition(smp.Status, target) {
			next, err := c.applyTransition(ctx, smp, target, rec.Purpose)
			if err != nil {
				// The custody record is already durable; report the failed
				// status change without failing the transfer.
				c.logger.ErrorContext(ctx, "implied status change failed",
					"sample_id", sampleID.String(),
					"record_id", rec.ID.String(),
					"to", string(target),
					"error", err,
				)
				return res, nil
			}
			res.Sample = next
		}
		return res, nil
	})
}

// onChainBroken runs on the sample's lane. Failures here are logged: the
// caller already gets ChainBroken and the timeline holds the chain_broken
// event.
func (c *Controller) onChainBroken(ctx context.Context, smp *sample.Sample, reason string) {
	c.metrics.IncChainFailure()
	if _, err := c.placeHold(ctx, smp, reason); err != nil {
		c.logger.ErrorContext(ctx, "failed to place hold after chain failure",
			"sample_id", smp.ID.String(),
			"error", err,
		)
	}
	alert, err := c.alerts.RaiseIntegrity(ctx, smp.ID, reason, requestcontext.ActorID(ctx), requestcontext.Now(ctx))
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to raise custody integrity alert",
			"sample_id", smp.ID.String(),
			"error", err,
		)
		return
	}
	c.metrics.IncAlertRaised(string(alert.Type), string(alert.Severity))
}

func (c *Controller) CustodyHistory(ctx context.Context, sampleID id.SampleID) ([]*custody.Record, error) {
	if _, err := c.load(ctx, sampleID); err != nil {
		return nil, err
	}
	return c.ledger.History(ctx, sampleID)
}

// VerifyCustody recomputes the chain. It only reports; holds are placed when
// a transfer runs into the break.
func (c *Controller) VerifyCustody(ctx context.Context, sampleID id.SampleID) (v custody.Verification, err error) {
	ctx, span, start := c.startSpan(ctx, "VerifyCustody", sampleID)
	defer func() { c.endSpan(span, "verify_custody", start, err) }()

	if _, err := c.load(ctx, sampleID); err != nil {
		return custody.Verification{}, err
	}
	v, err = c.ledger.Verify(ctx, sampleID)
	if err != nil {
		return custody.Verification{}, err
	}
	if !v.Intact {
		c.metrics.IncChainFailure()
		c.logger.WarnContext(ctx, "custody chain verification failed",
			"sample_id", sampleID.String(),
			"broken_index", v.BrokenIndex,
			"reason", v.Reason,
		)
	}
	span.SetAttributes(attribute.Bool("custody.intact", v.Intact))
	return v, nil
}
