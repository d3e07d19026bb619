package reactz

import (
	"context"
	"sync"
	"time"
)

// Sample emits the most recent event on a fixed ticker, decoupled from input
// timing. A tick emits only when a new event arrived since the previous tick.
//
//nolint:govet // fieldalignment: struct layout optimized for readability
type Sample[T any] struct {
	name     string
	duration time.Duration
	clock    Clock
}

// NewSample creates a processor sampling its input every duration.
// On completion a value that arrived after the last tick is not emitted.
//
// When to use:
//   - Rendering fast-changing values at a fixed frame rate
//   - Reducing high-frequency telemetry to a fixed resolution
//
// Example:
//
//	// Sample the latest price every second
//	sample := reactz.NewSample[Price](time.Second, reactz.RealClock)
//	prices := sample.Process(ctx, ticks)
//
// Parameters:
//   - duration: Tick period
//   - clock: Clock interface for time operations
func NewSample[T any](duration time.Duration, clock Clock) *Sample[T] {
	return &Sample[T]{
		name:     "sample",
		duration: duration,
		clock:    clock,
	}
}

// WithName sets a custom name for this processor.
func (s *Sample[T]) WithName(name string) *Sample[T] {
	s.name = name
	return s
}

// Process samples the events of in.
func (s *Sample[T]) Process(ctx context.Context, in *Channel[T]) *Channel[T] {
	out := newStageOutput[T, T](s.name, in)

	var (
		mu     sync.Mutex
		latest T
		fresh  bool
		closed bool
	)

	ticker := s.clock.NewTicker(s.duration)
	stop := make(chan struct{})
	var stopOnce sync.Once
	halt := func() {
		stopOnce.Do(func() {
			mu.Lock()
			closed = true
			mu.Unlock()
			ticker.Stop()
			close(stop)
		})
	}

	go func() {
		for {
			select {
			case <-ticker.C():
				mu.Lock()
				if fresh && !closed {
					fresh = false
					_ = out.Emit(ctx, latest)
				}
				mu.Unlock()
			case <-stop:
				return
			}
		}
	}()

	ok := attach(ctx, in, out, Observer[T]{
		OnEvent: func(e Event[T]) {
			mu.Lock()
			latest, fresh = e.Value, true
			mu.Unlock()
		},
		OnError: func(err error) {
			halt()
			_ = out.Fail(wrapUpstream(in.Name(), err))
		},
		OnComplete: func() {
			halt()
			_ = out.Complete()
		},
	})
	releaseWith(ctx, out, ok, halt)

	return out
}

// Name returns the processor name.
func (s *Sample[T]) Name() string {
	return s.name
}
