//go:build integration

package tracking_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"sampletrack/internal/alerting"
	"sampletrack/internal/custody"
	"sampletrack/internal/notify"
	"sampletrack/internal/sample"
	"sampletrack/internal/telemetry"
	"sampletrack/internal/timeline"
	"sampletrack/internal/tracking"
	dErrors "sampletrack/pkg/domain-errors"
	"sampletrack/pkg/platform/tx"
	"sampletrack/pkg/requestcontext"
	"sampletrack/pkg/testutil"
	"sampletrack/pkg/testutil/containers"
)

type PostgresTrackingSuite struct {
	suite.Suite
	postgres   *containers.PostgresContainer
	events     *timeline.Timeline
	controller *tracking.Controller
	ctx        context.Context
}

func TestPostgresTrackingSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresTrackingSuite))
}

func (s *PostgresTrackingSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
}

func (s *PostgresTrackingSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, containers.TrackingTables...))

	db := s.postgres.DB
	s.events = timeline.New(timeline.NewPostgres(db), timeline.WithPublisher(notify.New()))
	alerts := alerting.NewEngine(alerting.NewPostgres(db), s.events)
	ledger := custody.NewLedger(custody.NewPostgres(db), s.events)
	s.controller = tracking.NewController(
		sample.NewPostgres(db), telemetry.NewPostgres(db), ledger, alerts, s.events,
		tracking.WithTxRunner(tx.NewPostgresRunner(db, 5*time.Second)),
	)

	s.ctx = requestcontext.WithActorID(ctx, "dock-supervisor")
	s.ctx = requestcontext.WithTime(s.ctx, time.Date(2026, 6, 2, 14, 0, 0, 0, time.UTC))
}

func (s *PostgresTrackingSuite) readyForPickup() *sample.Sample {
	smp, err := s.controller.Register(s.ctx, tracking.RegisterCommand{
		SampleNumber:       "PG-" + uuid.NewString()[:8],
		Type:               sample.TypeReference,
		Priority:           sample.PriorityNormal,
		ProductDescription: "Reference serum",
		Quantity:           sample.Quantity{Value: 3, Unit: "ml"},
	})
	s.Require().NoError(err)
	for _, to := range []sample.Status{sample.StatusApproved, sample.StatusPreparing, sample.StatusReadyForPickup} {
		smp, err = s.controller.Transition(s.ctx, smp.ID, to, smp.Version)
		s.Require().NoError(err)
	}
	return smp
}

func (s *PostgresTrackingSuite) TestLifecycleRoundTrip() {
	smp := s.readyForPickup()

	res, err := s.controller.TransferCustody(s.ctx, smp.ID, custody.TransferRequest{
		From:          custody.Party{ID: "lab"},
		To:            custody.Party{ID: "courier"},
		Location:      "Dock 1",
		Purpose:       custody.PurposePickup,
		Authorization: custody.Authorization{AuthorizedBy: "dispatch"},
	})
	s.Require().NoError(err)
	s.Equal(sample.StatusInTransit, res.Sample.Status)

	v := 11.0
	ingest, err := s.controller.IngestTelemetry(s.ctx, smp.ID, telemetry.Raw{Type: "temperature", Value: &v, Unit: "C"})
	s.Require().NoError(err)
	s.Require().NotNil(ingest.AlertID)

	snap, err := s.controller.Tracking(s.ctx, smp.ID)
	s.Require().NoError(err)
	s.Equal(sample.StatusInTransit, snap.Sample.Status)
	s.Len(snap.OpenAlerts, 1)
	s.Require().NotNil(snap.LastTemperature)
	s.Equal(11.0, snap.LastTemperature.Value)
	s.Equal(1, snap.CustodyLength)

	events, err := s.controller.Events(s.ctx, smp.ID, 0, 100)
	s.Require().NoError(err)
	for i, ev := range events {
		s.Equal(int64(i+1), ev.Sequence)
	}
}

func (s *PostgresTrackingSuite) TestStaleVersionLeavesNoEvent() {
	smp := s.readyForPickup()
	before, err := s.events.LastSequence(s.ctx, smp.ID)
	s.Require().NoError(err)

	_, err = s.controller.Transition(s.ctx, smp.ID, sample.StatusInTransit, smp.Version-1)
	s.True(dErrors.HasCode(err, dErrors.CodeVersionConflict))

	after, err := s.events.LastSequence(s.ctx, smp.ID)
	s.Require().NoError(err)
	s.Equal(before, after)
}

func (s *PostgresTrackingSuite) TestConcurrentIngestKeepsTimelineGapFree() {
	smp := s.readyForPickup()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v := 4.0 + float64(i%3)
			_, err := s.controller.IngestTelemetry(s.ctx, smp.ID, telemetry.Raw{Type: "temperature", Value: &v, Unit: "C"})
			s.NoError(err)
		}()
	}
	wg.Wait()

	events, err := s.controller.Events(s.ctx, smp.ID, 0, 500)
	s.Require().NoError(err)
	s.Len(events, 24)
	for i, ev := range events {
		s.Equal(int64(i+1), ev.Sequence)
	}
}

func (s *PostgresTrackingSuite) TestTamperedCustodyRowPlacesHold() {
	t := s.T()
	smp := s.readyForPickup()
	transfer := custody.TransferRequest{
		From:          custody.Party{ID: "lab"},
		To:            custody.Party{ID: "courier"},
		Location:      "Dock 1",
		Purpose:       custody.PurposePickup,
		Authorization: custody.Authorization{AuthorizedBy: "dispatch"},
	}

	testutil.Given(t, "a recorded custody transfer", func(t *testing.T) {
		_, err := s.controller.TransferCustody(s.ctx, smp.ID, transfer)
		s.Require().NoError(err)
	})

	testutil.When(t, "the stored record is edited out of band", func(t *testing.T) {
		_, err := s.postgres.DB.ExecContext(s.ctx,
			`UPDATE custody_records SET doc = jsonb_set(doc, '{location}', '"Dock 9"') WHERE sample_id = $1`,
			uuid.UUID(smp.ID))
		s.Require().NoError(err)
	})

	testutil.Then(t, "the next transfer is refused and the sample is held", func(t *testing.T) {
		next := transfer
		next.From, next.To = transfer.To, custody.Party{ID: "lab-b"}
		next.Purpose = custody.PurposeDelivery
		_, err := s.controller.TransferCustody(s.ctx, smp.ID, next)
		s.True(dErrors.HasCode(err, dErrors.CodeChainBroken))

		held, err := s.controller.Get(s.ctx, smp.ID)
		s.Require().NoError(err)
		s.True(held.OnHold())
	})

	testutil.And(t, "a custody integrity alert is open", func(t *testing.T) {
		alerts, err := s.controller.Alerts(s.ctx, smp.ID, true)
		s.Require().NoError(err)
		s.Require().Len(alerts, 1)
		s.Equal(alerting.TypeCustodyIntegrity, alerts[0].Type)
	})
}
