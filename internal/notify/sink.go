package notify

import (
	"context"
	"log/slog"

	"github.com/cenkalti/backoff/v4"

	"sampletrack/internal/timeline"
	"sampletrack/pkg/platform/circuit"
)

// Sink is an external consumer of timeline events, such as an export topic.
type Sink interface {
	Name() string
	Send(ctx context.Context, ev timeline.Event) error
}

// sinkWorker drains one sink's queue so a slow or failing sink never holds up
// subscribers or other sinks.
type sinkWorker struct {
	sink    Sink
	queue   chan timeline.Event
	breaker *circuit.Breaker
	retry   func() backoff.BackOff
	logger  *slog.Logger
	metrics *Metrics
}

func (w *sinkWorker) enqueue(ev timeline.Event) {
	select {
	case w.queue <- ev:
	default:
		w.metrics.IncDropped("sink_full")
		w.logger.Warn("sink queue full, dropping event",
			"sink", w.sink.Name(),
			"sample_id", ev.SampleID.String(),
			"sequence", ev.Sequence,
		)
	}
}

func (w *sinkWorker) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-w.queue:
			_ = w.deliver(ctx, ev)
		}
	}
}

// deliver retries with backoff while the breaker is closed and makes a
// single attempt while it is open.
func (w *sinkWorker) deliver(ctx context.Context, ev timeline.Event) error {
	b := w.retry()
	if w.breaker.IsOpen() {
		b = &backoff.StopBackOff{}
	}
	err := backoff.Retry(func() error {
		return w.sink.Send(ctx, ev)
	}, backoff.WithContext(b, ctx))
	if err != nil {
		w.metrics.IncSinkFailure(w.sink.Name())
		_, change := w.breaker.RecordFailure()
		if change.Opened {
			w.logger.Error("sink circuit opened", "sink", w.sink.Name())
			w.metrics.SetBreakerState(w.sink.Name(), true)
		}
		w.logger.Warn("sink delivery failed",
			"sink", w.sink.Name(),
			"sample_id", ev.SampleID.String(),
			"sequence", ev.Sequence,
			"error", err,
		)
		return err
	}
	_, change := w.breaker.RecordSuccess()
	if change.Closed {
		w.logger.Info("sink circuit closed", "sink", w.sink.Name())
		w.metrics.SetBreakerState(w.sink.Name(), false)
	}
	return nil
}
