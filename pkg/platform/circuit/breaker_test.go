package circuit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// outcome is one recorded call: true for success.
type outcome bool

const (
	ok   outcome = true
	fail outcome = false
)

func record(b *Breaker, calls ...outcome) (last StateChange) {
	for _, c := range calls {
		if c {
			_, last = b.RecordSuccess()
		} else {
			_, last = b.RecordFailure()
		}
	}
	return last
}

func TestBreakerTransitions(t *testing.T) {
	tests := []struct {
		name       string
		opts       []Option
		calls      []outcome
		wantOpen   bool
		wantChange StateChange
	}{
		{
			name:     "new breaker is closed",
			wantOpen: false,
		},
		{
			name:       "opens on the threshold failure",
			opts:       []Option{WithFailureThreshold(3)},
			calls:      []outcome{fail, fail, fail},
			wantOpen:   true,
			wantChange: StateChange{Opened: true},
		},
		{
			name:     "success while closed resets the failure run",
			opts:     []Option{WithFailureThreshold(3)},
			calls:    []outcome{fail, fail, ok, fail, fail},
			wantOpen: false,
		},
		{
			name:     "stays open until enough successes",
			opts:     []Option{WithFailureThreshold(1), WithSuccessThreshold(3)},
			calls:    []outcome{fail, ok, ok},
			wantOpen: true,
		},
		{
			name:     "failure while open restarts the success run",
			opts:     []Option{WithFailureThreshold(1), WithSuccessThreshold(2)},
			calls:    []outcome{fail, ok, fail, ok},
			wantOpen: true,
		},
		{
			name:       "closes on the threshold success",
			opts:       []Option{WithFailureThreshold(1), WithSuccessThreshold(2)},
			calls:      []outcome{fail, ok, ok},
			wantOpen:   false,
			wantChange: StateChange{Closed: true},
		},
		{
			name:     "non-positive thresholds keep the defaults",
			opts:     []Option{WithFailureThreshold(0), WithSuccessThreshold(-1)},
			calls:    []outcome{fail, fail, fail, fail},
			wantOpen: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("kafka-sink", tt.opts...)
			change := record(b, tt.calls...)
			assert.Equal(t, tt.wantOpen, b.IsOpen())
			assert.Equal(t, tt.wantChange, change)
		})
	}
}

func TestBreakerFlags(t *testing.T) {
	b := New("redis-bus", WithFailureThreshold(2), WithSuccessThreshold(1))

	useFallback, _ := b.RecordFailure()
	assert.False(t, useFallback)
	useFallback, _ = b.RecordFailure()
	assert.True(t, useFallback)
	useFallback, change := b.RecordFailure()
	assert.True(t, useFallback)
	assert.Equal(t, StateChange{}, change, "already open")

	usePrimary, _ := b.RecordSuccess()
	assert.True(t, usePrimary)
	assert.Equal(t, "closed", b.State().String())
}

func TestBreakerReset(t *testing.T) {
	b := New("redis-bus", WithFailureThreshold(1))
	record(b, fail)
	require.Equal(t, "open", b.State().String())

	b.Reset()
	assert.False(t, b.IsOpen())
	assert.Equal(t, "redis-bus", b.Name())
}
