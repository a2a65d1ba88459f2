package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"sampletrack/internal/timeline"
	id "sampletrack/pkg/domain"
)

// fakeBus records publishes. gate, when set, holds every Publish until it
// is closed or the context ends, like a Redis connection that hangs.
type fakeBus struct {
	mu      sync.Mutex
	fail    bool
	gate    chan struct{}
	calls   int
	onEvent func(timeline.Event)
}

func (b *fakeBus) Publish(ctx context.Context, _ timeline.Event) error {
	b.mu.Lock()
	b.calls++
	fail, gate := b.fail, b.gate
	b.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if fail {
		return errors.New("bus down")
	}
	return nil
}

func (b *fakeBus) StartForwarder(_ context.Context, onEvent func(timeline.Event)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onEvent = onEvent
	return nil
}

// remote hands the forwarder an event published by another instance.
func (b *fakeBus) remote(ev timeline.Event) {
	b.mu.Lock()
	onEvent := b.onEvent
	b.mu.Unlock()
	onEvent(ev)
}

func (b *fakeBus) Close() error { return nil }

func (b *fakeBus) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

type fakeSink struct {
	mu     sync.Mutex
	fail   bool
	calls  int
	events []timeline.Event
}

func (s *fakeSink) Name() string { return "fake" }

func (s *fakeSink) Send(_ context.Context, ev timeline.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fail {
		return errors.New("sink down")
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *fakeSink) Received() []timeline.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]timeline.Event(nil), s.events...)
}

func (s *fakeSink) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func quickRetry() backoff.BackOff {
	return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 2)
}

func event(sampleID id.SampleID, seq int64) timeline.Event {
	return timeline.Event{
		ID:       id.NewEventID(),
		SampleID: sampleID,
		Sequence: seq,
		Type:     timeline.EventStatusChange,
		Impact:   timeline.ImpactLow,
	}
}

type FacadeSuite struct {
	suite.Suite
	sampleID id.SampleID
}

func TestFacadeSuite(t *testing.T) {
	suite.Run(t, new(FacadeSuite))
}

func (s *FacadeSuite) SetupTest() {
	s.sampleID = id.NewSampleID()
}

func (s *FacadeSuite) runFacade(f *Facade) func() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = f.Run(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}

func (s *FacadeSuite) TestDeliverOnlyReachesSubscribersOfTheSample() {
	f := New()
	sub := f.Subscribe(s.sampleID)
	defer sub.Close()
	other := f.Subscribe(id.NewSampleID())
	defer other.Close()

	f.Deliver(event(s.sampleID, 1))

	select {
	case ev := <-sub.Events():
		s.Equal(int64(1), ev.Sequence)
	default:
		s.Fail("expected event for subscribed sample")
	}
	s.Len(other.Events(), 0)
}

func (s *FacadeSuite) TestSlowSubscriberDropsWithoutBlocking() {
	f := New(WithSubscriberBuffer(2))
	sub := f.Subscribe(s.sampleID)
	defer sub.Close()

	for i := int64(1); i <= 5; i++ {
		f.Deliver(event(s.sampleID, i))
	}

	s.Equal(uint64(3), sub.Dropped())
	first := <-sub.Events()
	s.Equal(int64(1), first.Sequence)
}

func (s *FacadeSuite) TestCloseIsIdempotentAndClosesChannel() {
	f := New()
	sub := f.Subscribe(s.sampleID)

	sub.Close()
	sub.Close()

	_, ok := <-sub.Events()
	s.False(ok)

	// delivering after close must not panic on the closed channel
	f.Deliver(event(s.sampleID, 1))
}

func (s *FacadeSuite) TestPublishNeverBlocksWhenDispatchIsFull() {
	f := New(WithBuffer(1))

	done := make(chan struct{})
	go func() {
		for i := int64(1); i <= 10; i++ {
			f.Publish(event(s.sampleID, i))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		s.Fail("Publish blocked")
	}
}

func (s *FacadeSuite) TestRunDeliversLocallyWithoutBus() {
	f := New()
	sub := f.Subscribe(s.sampleID)
	defer sub.Close()
	stop := s.runFacade(f)
	defer stop()

	f.Publish(event(s.sampleID, 1))
	f.Publish(event(s.sampleID, 2))

	for want := int64(1); want <= 2; want++ {
		select {
		case ev := <-sub.Events():
			s.Equal(want, ev.Sequence)
		case <-time.After(time.Second):
			s.FailNow("timed out waiting for event")
		}
	}
}

func (s *FacadeSuite) receive(sub *Subscription, want int64) {
	select {
	case ev := <-sub.Events():
		s.Equal(want, ev.Sequence)
	case <-time.After(time.Second):
		s.FailNow("timed out waiting for event", "sequence %d", want)
	}
}

func (s *FacadeSuite) TestRunDeliversLocallyAndPublishesToBus() {
	bus := &fakeBus{}
	f := New(WithBus(bus), WithRetry(quickRetry))
	sub := f.Subscribe(s.sampleID)
	defer sub.Close()
	stop := s.runFacade(f)
	defer stop()

	f.Publish(event(s.sampleID, 1))

	s.receive(sub, 1)
	s.Eventually(func() bool { return bus.Calls() == 1 }, time.Second, 5*time.Millisecond)
	s.Len(sub.Events(), 0, "delivered once")
}

func (s *FacadeSuite) TestRunDeliversRemoteEventsFromBus() {
	bus := &fakeBus{}
	f := New(WithBus(bus))
	sub := f.Subscribe(s.sampleID)
	defer sub.Close()
	stop := s.runFacade(f)
	defer stop()

	s.Eventually(func() bool {
		bus.mu.Lock()
		defer bus.mu.Unlock()
		return bus.onEvent != nil
	}, time.Second, 5*time.Millisecond)
	bus.remote(event(s.sampleID, 9))

	s.receive(sub, 9)
	s.Zero(bus.Calls(), "remote events are not republished")
}

func (s *FacadeSuite) TestHungBusNeverDelaysLocalDelivery() {
	gate := make(chan struct{})
	bus := &fakeBus{gate: gate}
	f := New(WithBus(bus), WithRetry(quickRetry))
	sub := f.Subscribe(s.sampleID)
	defer sub.Close()
	otherID := id.NewSampleID()
	other := f.Subscribe(otherID)
	defer other.Close()
	stop := s.runFacade(f)
	defer stop()
	defer close(gate)

	f.Publish(event(s.sampleID, 1))
	f.Publish(event(otherID, 1))
	f.Publish(event(s.sampleID, 2))

	s.receive(sub, 1)
	s.receive(other, 1)
	s.receive(sub, 2)
}

func (s *FacadeSuite) TestFailingBusOpensItsBreaker() {
	bus := &fakeBus{fail: true}
	f := New(WithBus(bus), WithRetry(quickRetry))
	sub := f.Subscribe(s.sampleID)
	defer sub.Close()
	stop := s.runFacade(f)
	defer stop()

	for seq := int64(1); seq <= 6; seq++ {
		f.Publish(event(s.sampleID, seq))
		s.receive(sub, seq)
	}

	// 5 failed events with 3 attempts each open the breaker; the 6th gets a
	// single attempt.
	s.Eventually(func() bool { return bus.Calls() == 16 }, time.Second, 5*time.Millisecond)
}

func (s *FacadeSuite) TestSinkReceivesEvents() {
	sink := &fakeSink{}
	f := New(WithSink(sink), WithRetry(quickRetry))
	stop := s.runFacade(f)
	defer stop()

	f.Publish(event(s.sampleID, 1))
	f.Publish(event(s.sampleID, 2))

	s.Eventually(func() bool { return len(sink.Received()) == 2 }, time.Second, 5*time.Millisecond)
	got := sink.Received()
	s.Equal(int64(1), got[0].Sequence)
	s.Equal(int64(2), got[1].Sequence)
}

func TestSinkWorkerSkipsRetriesWhileCircuitOpen(t *testing.T) {
	sink := &fakeSink{fail: true}
	f := New(WithSink(sink), WithRetry(quickRetry))
	w := f.sinks[0]
	ctx := context.Background()
	ev := event(id.NewSampleID(), 1)

	for range 5 {
		require.Error(t, w.deliver(ctx, ev))
	}
	assert.Equal(t, 15, sink.Calls())
	require.True(t, w.breaker.IsOpen())

	require.Error(t, w.deliver(ctx, ev))
	assert.Equal(t, 16, sink.Calls(), "open circuit makes a single attempt")

	sink.mu.Lock()
	sink.fail = false
	sink.mu.Unlock()
	for range 3 {
		require.NoError(t, w.deliver(ctx, ev))
	}
	assert.False(t, w.breaker.IsOpen())
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.IncDropped("dispatch_full")
	m.IncSinkFailure("fake")
	m.SetSubscribers(3)
	m.SetBreakerState("fake", true)
}
