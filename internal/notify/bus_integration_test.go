//go:build integration

package notify_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"sampletrack/internal/notify"
	"sampletrack/internal/timeline"
	id "sampletrack/pkg/domain"
	"sampletrack/pkg/testutil/containers"
)

type BrokerSuite struct {
	suite.Suite
	redis    *containers.RedisContainer
	redpanda *containers.RedpandaContainer
}

func TestBrokerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(BrokerSuite))
}

func (s *BrokerSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.redpanda = mgr.GetRedpanda(s.T())
}

func (s *BrokerSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *BrokerSuite) TestRedisBusFansOutAcrossInstances() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	channel := "sampletrack.test." + uuid.NewString()

	busA := notify.NewRedisBus(s.redis.Client, channel, nil)
	busB := notify.NewRedisBus(s.redis.Client, channel, nil)
	defer busA.Close()
	defer busB.Close()
	instanceA := notify.New(notify.WithBus(busA), notify.WithSubscriberBuffer(256))
	instanceB := notify.New(notify.WithBus(busB))
	go func() { _ = instanceA.Run(ctx) }()
	go func() { _ = instanceB.Run(ctx) }()

	sampleID := id.NewSampleID()
	sub := instanceB.Subscribe(sampleID)
	defer sub.Close()
	local := instanceA.Subscribe(sampleID)
	defer local.Close()

	// Forwarders subscribe asynchronously; keep publishing until one lands.
	var got timeline.Event
	published := 0
	s.Require().Eventually(func() bool {
		published++
		instanceA.Publish(timeline.Event{SampleID: sampleID, Sequence: 1, Type: timeline.EventCustodyTransfer})
		select {
		case got = <-sub.Events():
			return true
		case <-time.After(200 * time.Millisecond):
			return false
		}
	}, 10*time.Second, 50*time.Millisecond)

	s.Equal(sampleID, got.SampleID)
	s.Equal(timeline.EventCustodyTransfer, got.Type)

	// The publishing instance delivers locally once and skips its own echo.
	time.Sleep(500 * time.Millisecond)
	s.Equal(published, len(local.Events()))
}

func (s *BrokerSuite) TestKafkaSinkExportsKeyedEvents() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	topic := "sampletrack-timeline-" + uuid.NewString()[:8]

	sink, err := notify.NewKafkaSink([]string{s.redpanda.SeedBroker}, topic)
	s.Require().NoError(err)
	defer sink.Close()
	s.Require().NoError(sink.EnsureTopic(ctx, 1, 1))
	s.Require().NoError(sink.EnsureTopic(ctx, 1, 1), "existing topic is not an error")

	sampleID := id.NewSampleID()
	ev := timeline.Event{
		ID:          id.NewEventID(),
		SampleID:    sampleID,
		Sequence:    7,
		Type:        timeline.EventAlertRaised,
		Impact:      timeline.ImpactHigh,
		Description: "temperature_high warning: 9.5 C",
	}
	s.Require().NoError(sink.Send(ctx, ev))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.SeedBroker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	var records []*kgo.Record
	for len(records) == 0 && ctx.Err() == nil {
		fetches := consumer.PollFetches(ctx)
		s.Require().Empty(fetches.Errors())
		records = append(records, fetches.Records()...)
	}
	s.Require().Len(records, 1)

	rec := records[0]
	s.Equal(sampleID.String(), string(rec.Key))
	s.Require().Len(rec.Headers, 1)
	s.Equal("event_type", rec.Headers[0].Key)
	s.Equal(string(timeline.EventAlertRaised), string(rec.Headers[0].Value))

	var exported timeline.Event
	s.Require().NoError(json.Unmarshal(rec.Value, &exported))
	s.Equal(ev.ID, exported.ID)
	s.Equal(int64(7), exported.Sequence)
}
