package tracking

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "sampletrack/pkg/domain"
	dErrors "sampletrack/pkg/domain-errors"
)

func waitQueued(t *testing.T, s *Serializer, key id.SampleID, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		l, ok := s.lanes[key]
		return ok && len(l.jobs) == n
	}, time.Second, time.Millisecond)
}

func TestSerializerNeverOverlapsJobsForOneSample(t *testing.T) {
	s := NewSerializer(64, time.Second, time.Minute)
	key := id.NewSampleID()

	var (
		mu       sync.Mutex
		inFlight int32
		got      []int
	)
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Submit(context.Background(), key, func() {
				if atomic.AddInt32(&inFlight, 1) != 1 {
					t.Error("jobs for one sample overlapped")
				}
				mu.Lock()
				got = append(got, i)
				mu.Unlock()
				atomic.AddInt32(&inFlight, -1)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Len(t, got, 20)
}

func TestSerializerRunsDifferentSamplesInParallel(t *testing.T) {
	s := NewSerializer(4, time.Second, time.Minute)
	a, b := id.NewSampleID(), id.NewSampleID()

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = s.Submit(context.Background(), a, func() {
			close(started)
			<-release
		})
	}()
	<-started

	done := make(chan error, 1)
	go func() {
		done <- s.Submit(context.Background(), b, func() {})
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sample b waited on sample a")
	}
	close(release)
}

func TestSerializerShedsWhenQueueFull(t *testing.T) {
	s := NewSerializer(1, 10*time.Millisecond, time.Minute)
	key := id.NewSampleID()

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = s.Submit(context.Background(), key, func() {
			close(started)
			<-release
		})
	}()
	<-started

	queued := make(chan error, 1)
	go func() {
		queued <- s.Submit(context.Background(), key, func() {})
	}()
	waitQueued(t, s, key, 1)

	err := s.Submit(context.Background(), key, func() {})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBackpressure))

	close(release)
	assert.NoError(t, <-queued)
}

func TestSerializerReleasesIdleLanes(t *testing.T) {
	s := NewSerializer(4, time.Second, 10*time.Millisecond)
	require.NoError(t, s.Submit(context.Background(), id.NewSampleID(), func() {}))
	require.NoError(t, s.Submit(context.Background(), id.NewSampleID(), func() {}))

	assert.Eventually(t, func() bool { return s.Lanes() == 0 }, time.Second, 5*time.Millisecond)

	// a retired lane is recreated on demand
	require.NoError(t, s.Submit(context.Background(), id.NewSampleID(), func() {}))
}

func TestDoReturnsResultAndRecoversPanics(t *testing.T) {
	s := NewSerializer(4, time.Second, time.Minute)
	key := id.NewSampleID()

	n, err := Do(context.Background(), s, key, func() (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	_, err = Do(context.Background(), s, key, func() (int, error) { panic("boom") })
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))

	// the lane survives the panic
	n, err = Do(context.Background(), s, key, func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestSubmitHonoursCancelledContext(t *testing.T) {
	s := NewSerializer(1, time.Second, time.Minute)
	key := id.NewSampleID()

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = s.Submit(context.Background(), key, func() {
			close(started)
			<-release
		})
	}()
	<-started
	go func() { _ = s.Submit(context.Background(), key, func() {}) }()
	waitQueued(t, s, key, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.Submit(ctx, key, func() {})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
	close(release)
}
