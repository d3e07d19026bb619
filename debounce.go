package reactz

import (
	"context"
	"sync"
	"time"
)

// Debounce emits events only after a quiet period with no new events.
// It's useful for filtering out rapid successive events.
//
//nolint:govet // fieldalignment: struct layout optimized for readability
type Debounce[T any] struct {
	name     string
	clock    Clock
	duration time.Duration
}

// NewDebounce creates a processor that delays and coalesces rapid events.
// Only the last event in a rapid sequence is emitted after the specified duration of inactivity.
//
// When the input completes with a value pending, that value is emitted
// immediately before completion. An upstream error or a cancellation
// discards the pending value.
//
// When to use:
//   - User input handling (e.g., search-as-you-type)
//   - Sensor readings that fluctuate rapidly
//   - File system change notifications
//   - Preventing excessive API calls from UI events
//
// Example:
//
//	// Debounce search queries - only search after 300ms of no typing
//	debounce := reactz.NewDebounce[string](300*time.Millisecond, reactz.RealClock)
//	queries := debounce.Process(ctx, keystrokes)
//
// Parameters:
//   - duration: The quiet period before emitting an event
//   - clock: Clock interface for time operations
func NewDebounce[T any](duration time.Duration, clock Clock) *Debounce[T] {
	return &Debounce[T]{
		duration: duration,
		name:     "debounce",
		clock:    clock,
	}
}

// WithName sets a custom name for this processor.
func (d *Debounce[T]) WithName(name string) *Debounce[T] {
	d.name = name
	return d
}

// debounceState is the per-application state of a Debounce.
// gen identifies the current timer so a timer stopped too late to prevent
// its callback cannot emit a superseded value.
//
//nolint:govet // fieldalignment: struct layout optimized for readability
type debounceState[T any] struct {
	mu      sync.Mutex
	timer   Timer
	gen     uint64
	pending T
	has     bool
	closed  bool
}

func (s *debounceState[T]) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}

func (s *debounceState[T]) takeLocked() (T, bool) {
	var zero T
	v, ok := s.pending, s.has
	s.pending, s.has = zero, false
	return v, ok
}

// Process emits the latest event of every burst on in.
func (d *Debounce[T]) Process(ctx context.Context, in *Channel[T]) *Channel[T] {
	out := newStageOutput[T, T](d.name, in)
	st := &debounceState[T]{}

	release := func() {
		st.mu.Lock()
		st.closed = true
		st.stopLocked()
		st.takeLocked()
		st.mu.Unlock()
	}

	// Timer callbacks can run under the clock's own lock, and emitting
	// stamps the event with the clock, so the flush runs on a goroutine.
	fire := func(gen uint64) {
		st.mu.Lock()
		defer st.mu.Unlock()
		if st.closed || gen != st.gen {
			return
		}
		st.timer = nil
		if v, ok := st.takeLocked(); ok {
			_ = out.Emit(ctx, v)
		}
	}

	ok := attach(ctx, in, out, Observer[T]{
		OnEvent: func(e Event[T]) {
			st.mu.Lock()
			defer st.mu.Unlock()
			if st.closed {
				return
			}

			st.stopLocked()
			st.pending, st.has = e.Value, true
			gen := st.gen
			st.timer = d.clock.AfterFunc(d.duration, func() {
				go fire(gen)
			})
		},
		OnError: func(err error) {
			st.mu.Lock()
			defer st.mu.Unlock()
			st.closed = true
			st.stopLocked()
			st.takeLocked()
			_ = out.Fail(wrapUpstream(in.Name(), err))
		},
		OnComplete: func() {
			st.mu.Lock()
			defer st.mu.Unlock()
			st.closed = true
			st.stopLocked()
			if v, ok := st.takeLocked(); ok {
				_ = out.Emit(ctx, v)
			}
			_ = out.Complete()
		},
	})
	releaseWith(ctx, out, ok, release)

	return out
}

// Name returns the processor name for debugging and monitoring.
func (d *Debounce[T]) Name() string {
	return d.name
}
