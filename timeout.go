package reactz

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Timeout fails its output with ErrTimeout when no event arrives within the
// configured duration of subscription or of the previous event. On timeout
// the upstream is cancelled.
//
//nolint:govet // fieldalignment: struct layout optimized for readability
type Timeout[T any] struct {
	name     string
	duration time.Duration
	clock    Clock
}

// NewTimeout creates a processor enforcing a maximum gap between events.
//
// Example:
//
//	// Fail if the feed stalls for more than 30 seconds
//	guarded := reactz.NewTimeout[Quote](30*time.Second, reactz.RealClock).
//		Process(ctx, quotes)
func NewTimeout[T any](duration time.Duration, clock Clock) *Timeout[T] {
	return &Timeout[T]{
		name:     "timeout",
		duration: duration,
		clock:    clock,
	}
}

// WithName sets a custom name for this processor.
func (t *Timeout[T]) WithName(name string) *Timeout[T] {
	t.name = name
	return t
}

// Process forwards the events of in while they keep arriving in time.
func (t *Timeout[T]) Process(ctx context.Context, in *Channel[T]) *Channel[T] {
	out := newStageOutput[T, T](t.name, in)

	var (
		mu     sync.Mutex
		timer  Timer
		gen    uint64
		closed bool
	)

	stopLocked := func() {
		if timer != nil {
			timer.Stop()
			timer = nil
		}
		gen++
	}

	// Runs off the timer callback: cancelling upstream stops upstream
	// timers, which needs the clock's lock.
	expire := func(g uint64) {
		mu.Lock()
		if closed || g != gen {
			mu.Unlock()
			return
		}
		closed = true
		timer = nil
		_ = out.Fail(NewUpstreamError(t.name, nil,
			fmt.Errorf("no event within %s: %w", t.duration, ErrTimeout)))
		mu.Unlock()
		in.Cancel()
	}

	armLocked := func() {
		stopLocked()
		g := gen
		timer = t.clock.AfterFunc(t.duration, func() {
			go expire(g)
		})
	}

	mu.Lock()
	armLocked()
	mu.Unlock()

	ok := attach(ctx, in, out, Observer[T]{
		OnEvent: func(e Event[T]) {
			mu.Lock()
			defer mu.Unlock()
			if closed {
				return
			}
			armLocked()
			_ = out.Emit(ctx, e.Value)
		},
		OnError: func(err error) {
			mu.Lock()
			defer mu.Unlock()
			closed = true
			stopLocked()
			_ = out.Fail(wrapUpstream(in.Name(), err))
		},
		OnComplete: func() {
			mu.Lock()
			defer mu.Unlock()
			closed = true
			stopLocked()
			_ = out.Complete()
		},
	})
	releaseWith(ctx, out, ok, func() {
		mu.Lock()
		closed = true
		stopLocked()
		mu.Unlock()
	})

	return out
}

// Name returns the processor name.
func (t *Timeout[T]) Name() string {
	return t.name
}
