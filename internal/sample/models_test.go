package sample

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "sampletrack/pkg/domain"
	dErrors "sampletrack/pkg/domain-errors"
)

func TestTransitionGraph(t *testing.T) {
	t.Run("happy path is a chain of edges", func(t *testing.T) {
		path := []Status{
			StatusRequested, StatusApproved, StatusPreparing, StatusReadyForPickup,
			StatusInTransit, StatusDelivered, StatusReceived, StatusTestingInProgress,
			StatusTestingComplete, StatusResultsAvailable, StatusApprovedForUse,
		}
		for i := 1; i < len(path); i++ {
			assert.True(t, CanTransition(path[i-1], path[i]), "%s -> %s", path[i-1], path[i])
		}
	})

	t.Run("skipping mandatory states is not an edge", func(t *testing.T) {
		assert.False(t, CanTransition(StatusApproved, StatusTestingInProgress))
		assert.False(t, CanTransition(StatusReadyForPickup, StatusDelivered))
		assert.False(t, CanTransition(StatusRequested, StatusInTransit))
	})

	t.Run("returns are reachable only from received, results and rejected", func(t *testing.T) {
		for _, st := range AllStatuses() {
			want := st == StatusReceived || st == StatusResultsAvailable || st == StatusRejected
			assert.Equal(t, want, CanTransition(st, StatusReturned), string(st))
		}
	})

	t.Run("terminal statuses", func(t *testing.T) {
		assert.True(t, StatusApprovedForUse.IsTerminal())
		assert.True(t, StatusDisposed.IsTerminal())
		assert.False(t, StatusRejected.IsTerminal(), "rejected samples may still be returned")
		assert.Equal(t, []Status{StatusReturned}, NextStatuses(StatusRejected))
	})

	t.Run("every status is reachable from requested", func(t *testing.T) {
		seen := map[Status]bool{StatusRequested: true}
		queue := []Status{StatusRequested}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, next := range NextStatuses(cur) {
				if !seen[next] {
					seen[next] = true
					queue = append(queue, next)
				}
			}
		}
		assert.Len(t, seen, len(AllStatuses()))
	})

	t.Run("NextStatuses returns a copy", func(t *testing.T) {
		next := NextStatuses(StatusRequested)
		next[0] = StatusDisposed
		assert.True(t, CanTransition(StatusRequested, StatusApproved))
	})
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus("IN_TRANSIT")
	require.NoError(t, err)
	assert.Equal(t, StatusInTransit, st)

	st, err = ParseStatus(" approved ")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, st)

	_, err = ParseStatus("on_hold")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestParsePriority(t *testing.T) {
	p, err := ParsePriority("")
	require.NoError(t, err)
	assert.Equal(t, PriorityNormal, p)

	_, err = ParsePriority("asap")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestNewSample(t *testing.T) {
	now := time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)
	qty := Quantity{Value: 3, Unit: "pcs"}

	t.Run("starts requested at version 1", func(t *testing.T) {
		smp, err := NewSample(id.NewSampleID(), "SMP-001", TypeProduction, PriorityHigh, "Cotton twill swatch", qty, now)
		require.NoError(t, err)
		assert.Equal(t, StatusRequested, smp.Status)
		assert.Equal(t, int64(1), smp.Version)
		assert.False(t, smp.OnHold())
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		_, err := NewSample(id.NewSampleID(), " ", TypeProduction, PriorityHigh, "desc", qty, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

		_, err = NewSample(id.NewSampleID(), "SMP-2", TypeProduction, PriorityHigh, "desc", Quantity{}, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("clone is deep", func(t *testing.T) {
		smp, err := NewSample(id.NewSampleID(), "SMP-003", TypeReference, PriorityLow, "Resin pellets", qty, now)
		require.NoError(t, err)
		smp.CustomFields = map[string]string{"lot": "A1"}
		smp.Hold = &Hold{Reason: "chain broken", PlacedAt: now}

		c := smp.Clone()
		c.CustomFields["lot"] = "B2"
		c.Hold.Reason = "changed"
		assert.Equal(t, "A1", smp.CustomFields["lot"])
		assert.Equal(t, "chain broken", smp.Hold.Reason)
	})
}
