// Package notify fans timeline events out to live subscribers and external
// sinks. Delivery is at-most-once: a subscriber that falls behind or
// disconnects catches up from the timeline.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"sampletrack/internal/timeline"
	id "sampletrack/pkg/domain"
	"sampletrack/pkg/platform/circuit"
)

const (
	DefaultBuffer           = 1024
	DefaultSubscriberBuffer = 32
	DefaultSinkBuffer       = 256
)

// Bus carries events between service instances so subscribers connected to
// any instance see every event. The forwarder must only hand back events
// published by other instances; local subscribers already have their own.
type Bus interface {
	Publish(ctx context.Context, ev timeline.Event) error
	StartForwarder(ctx context.Context, onEvent func(timeline.Event)) error
	Close() error
}

// Subscription is a live feed of one sample's events.
type Subscription struct {
	sampleID id.SampleID
	ch       chan timeline.Event
	dropped  atomic.Uint64
	facade   *Facade
	once     sync.Once
}

// Events is closed when the subscription is closed.
func (s *Subscription) Events() <-chan timeline.Event { return s.ch }

// Dropped counts events discarded because the subscriber was not keeping up.
func (s *Subscription) Dropped() uint64 { return s.dropped.Load() }

func (s *Subscription) SampleID() id.SampleID { return s.sampleID }

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.facade.remove(s)
	})
}

// Facade implements timeline.Publisher. Publish never blocks; routing and
// sink delivery happen on the goroutines started by Run.
type Facade struct {
	dispatch         chan timeline.Event
	subscriberBuffer int
	sinkBuffer       int

	mu   sync.RWMutex
	subs map[id.SampleID]map[*Subscription]struct{}

	bus   Bus
	sinks []*sinkWorker
	retry func() backoff.BackOff

	logger  *slog.Logger
	metrics *Metrics
}

type Option func(*Facade)

func WithBuffer(n int) Option {
	return func(f *Facade) {
		if n > 0 {
			f.dispatch = make(chan timeline.Event, n)
		}
	}
}

func WithSubscriberBuffer(n int) Option {
	return func(f *Facade) {
		if n > 0 {
			f.subscriberBuffer = n
		}
	}
}

func WithSinkBuffer(n int) Option {
	return func(f *Facade) {
		if n > 0 {
			f.sinkBuffer = n
		}
	}
}

// WithBus also publishes every event to a cross-instance bus and feeds local
// subscribers with the events other instances publish. Bus publishing runs
// on its own queue, like a sink, so a failing bus never delays local
// delivery.
func WithBus(bus Bus) Option {
	return func(f *Facade) {
		f.bus = bus
	}
}

// WithSink adds an external sink with its own queue, retry and breaker.
func WithSink(s Sink) Option {
	return func(f *Facade) {
		f.sinks = append(f.sinks, &sinkWorker{sink: s})
	}
}

// WithRetry overrides the backoff policy used for bus and sink delivery.
func WithRetry(newBackOff func() backoff.BackOff) Option {
	return func(f *Facade) {
		f.retry = newBackOff
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(f *Facade) {
		f.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(f *Facade) {
		f.metrics = m
	}
}

func New(opts ...Option) *Facade {
	f := &Facade{
		dispatch:         make(chan timeline.Event, DefaultBuffer),
		subscriberBuffer: DefaultSubscriberBuffer,
		sinkBuffer:       DefaultSinkBuffer,
		subs:             make(map[id.SampleID]map[*Subscription]struct{}),
		retry:            defaultRetry,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.bus != nil {
		f.sinks = append([]*sinkWorker{{sink: busSink{bus: f.bus}}}, f.sinks...)
	}
	for _, w := range f.sinks {
		w.queue = make(chan timeline.Event, f.sinkBuffer)
		w.breaker = circuit.New(w.sink.Name())
		w.retry = f.retry
		w.logger = f.logger
		w.metrics = f.metrics
	}
	return f
}

func defaultRetry() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 10 * time.Second
	return backoff.WithMaxRetries(b, 5)
}

// Publish queues ev for asynchronous delivery. When the dispatch buffer is
// full the event is dropped; subscribers recover through the timeline.
func (f *Facade) Publish(ev timeline.Event) {
	select {
	case f.dispatch <- ev:
	default:
		f.metrics.IncDropped("dispatch_full")
		f.logger.Warn("notification dispatch buffer full, dropping event",
			"sample_id", ev.SampleID.String(),
			"sequence", ev.Sequence,
		)
	}
}

// Subscribe registers interest in sampleID. Callers must Close the
// subscription when done.
func (f *Facade) Subscribe(sampleID id.SampleID) *Subscription {
	sub := &Subscription{
		sampleID: sampleID,
		ch:       make(chan timeline.Event, f.subscriberBuffer),
		facade:   f,
	}
	f.mu.Lock()
	set, ok := f.subs[sampleID]
	if !ok {
		set = make(map[*Subscription]struct{})
		f.subs[sampleID] = set
	}
	set[sub] = struct{}{}
	n := f.countLocked()
	f.mu.Unlock()

	f.metrics.SetSubscribers(n)
	return sub
}

func (f *Facade) remove(sub *Subscription) {
	f.mu.Lock()
	if set, ok := f.subs[sub.sampleID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(f.subs, sub.sampleID)
		}
	}
	close(sub.ch)
	n := f.countLocked()
	f.mu.Unlock()

	f.metrics.SetSubscribers(n)
}

func (f *Facade) countLocked() int {
	n := 0
	for _, set := range f.subs {
		n += len(set)
	}
	return n
}

// Deliver pushes ev to this instance's subscribers without blocking. A
// subscriber whose buffer is full misses the event.
func (f *Facade) Deliver(ev timeline.Event) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for sub := range f.subs[ev.SampleID] {
		select {
		case sub.ch <- ev:
		default:
			sub.dropped.Add(1)
			f.metrics.IncDropped("subscriber_full")
			f.logger.Warn("subscriber buffer full, dropping event",
				"sample_id", ev.SampleID.String(),
				"sequence", ev.Sequence,
			)
		}
	}
}

// Run routes queued events until ctx is cancelled.
func (f *Facade) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if f.bus != nil {
		if err := f.bus.StartForwarder(ctx, f.Deliver); err != nil {
			return fmt.Errorf("start bus forwarder: %w", err)
		}
	}
	for _, w := range f.sinks {
		g.Go(func() error {
			w.run(ctx)
			return nil
		})
	}
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev := <-f.dispatch:
				f.route(ev)
			}
		}
	})
	return g.Wait()
}

// route feeds local subscribers first, then queues ev for the bus and sinks.
func (f *Facade) route(ev timeline.Event) {
	f.Deliver(ev)
	for _, w := range f.sinks {
		w.enqueue(ev)
	}
}

// busSink adapts a Bus to the sink worker's queue, retry and breaker.
type busSink struct {
	bus Bus
}

func (b busSink) Name() string { return "notify-bus" }

func (b busSink) Send(ctx context.Context, ev timeline.Event) error {
	return b.bus.Publish(ctx, ev)
}
