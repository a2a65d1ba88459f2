package tracking

import (
	"context"
	"fmt"
	"sync"
	"time"

	id "sampletrack/pkg/domain"
	dErrors "sampletrack/pkg/domain-errors"
)

const (
	DefaultQueueDepth     = 64
	DefaultEnqueueTimeout = 50 * time.Millisecond
	DefaultLaneIdle       = 30 * time.Second
)

// Serializer runs jobs for the same sample one at a time, in submission
// order, on a lane goroutine owned by that sample. Lanes for different
// samples run in parallel. A lane with nothing pending exits after the idle
// timeout.
//
// A job must never Submit to its own sample's lane; it would wait on itself.
type Serializer struct {
	mu             sync.Mutex
	lanes          map[id.SampleID]*lane
	depth          int
	enqueueTimeout time.Duration
	idle           time.Duration
}

type lane struct {
	jobs    chan func()
	pending int // guarded by Serializer.mu
}

func NewSerializer(depth int, enqueueTimeout, idle time.Duration) *Serializer {
	if depth <= 0 {
		depth = DefaultQueueDepth
	}
	if enqueueTimeout <= 0 {
		enqueueTimeout = DefaultEnqueueTimeout
	}
	if idle <= 0 {
		idle = DefaultLaneIdle
	}
	return &Serializer{
		lanes:          make(map[id.SampleID]*lane),
		depth:          depth,
		enqueueTimeout: enqueueTimeout,
		idle:           idle,
	}
}

// Submit queues fn on key's lane and waits for it to finish. If the lane's
// queue stays full for the enqueue timeout the job is shed with
// CodeBackpressure. Once accepted a job always runs to completion.
func (s *Serializer) Submit(ctx context.Context, key id.SampleID, fn func()) error {
	s.mu.Lock()
	l, ok := s.lanes[key]
	if !ok {
		l = &lane{jobs: make(chan func(), s.depth)}
		s.lanes[key] = l
		go s.run(key, l)
	}
	l.pending++
	s.mu.Unlock()

	done := make(chan struct{})
	var panicErr error
	job := func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				panicErr = fmt.Errorf("panic in serialized job: %v", r)
			}
		}()
		fn()
	}

	timer := time.NewTimer(s.enqueueTimeout)
	defer timer.Stop()
	select {
	case l.jobs <- job:
	case <-timer.C:
		s.release(l)
		return dErrors.Newf(dErrors.CodeBackpressure, "too many concurrent writes for sample %s", key)
	case <-ctx.Done():
		s.release(l)
		return dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "request cancelled while waiting for sample")
	}

	<-done
	if panicErr != nil {
		return dErrors.Wrap(panicErr, dErrors.CodeInternal, "serialized job failed")
	}
	return nil
}

func (s *Serializer) release(l *lane) {
	s.mu.Lock()
	l.pending--
	s.mu.Unlock()
}

func (s *Serializer) run(key id.SampleID, l *lane) {
	timer := time.NewTimer(s.idle)
	defer timer.Stop()
	for {
		select {
		case job := <-l.jobs:
			job()
			s.release(l)
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(s.idle)
		case <-timer.C:
			s.mu.Lock()
			if l.pending == 0 {
				delete(s.lanes, key)
				s.mu.Unlock()
				return
			}
			s.mu.Unlock()
			timer.Reset(s.idle)
		}
	}
}

// Lanes reports how many sample lanes are live.
func (s *Serializer) Lanes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lanes)
}

// Do runs fn on key's lane and returns its result.
func Do[T any](ctx context.Context, s *Serializer, key id.SampleID, fn func() (T, error)) (T, error) {
	var (
		out T
		err error
	)
	if subErr := s.Submit(ctx, key, func() { out, err = fn() }); subErr != nil {
		var zero T
		return zero, subErr
	}
	return out, err
}
