package reactz

import (
	"context"
	"time"
)

// Throttle limits the rate of events using leading-edge semantics: the first
// event of a burst passes immediately, and every event arriving less than the
// configured duration after the last emitted one is dropped. Dropped events
// are never queued or emitted later.
//
// Arrival is measured with the event timestamps assigned by the input
// channel's clock, so Throttle owns no timers.
//
//nolint:govet // fieldalignment: struct layout optimized for readability
type Throttle[T any] struct {
	name     string
	duration time.Duration
}

// NewThrottle creates a processor that emits at most one event per duration.
//
// When to use:
//   - Protecting rate-limited APIs from bursts
//   - Handling rapid button clicks or scroll events
//   - Reducing the frequency of status updates
//
// Example:
//
//	// At most one position update per 500ms
//	throttle := reactz.NewThrottle[Position](500 * time.Millisecond)
//	positions := throttle.Process(ctx, updates)
//
// Parameters:
//   - duration: Minimum spacing between emitted events
func NewThrottle[T any](duration time.Duration) *Throttle[T] {
	return &Throttle[T]{
		name:     "throttle",
		duration: duration,
	}
}

// WithName sets a custom name for this processor.
func (th *Throttle[T]) WithName(name string) *Throttle[T] {
	th.name = name
	return th
}

// Process forwards the events of in that arrive at least duration after the
// previously emitted one.
func (th *Throttle[T]) Process(ctx context.Context, in *Channel[T]) *Channel[T] {
	out := newStageOutput[T, T](th.name, in)
	onError, onComplete := forward(in, out)

	var (
		last    time.Time
		emitted bool
	)

	attach(ctx, in, out, Observer[T]{
		OnEvent: func(e Event[T]) {
			if emitted && e.Time.Sub(last) < th.duration {
				return
			}
			last, emitted = e.Time, true
			_ = out.Emit(ctx, e.Value)
		},
		OnError:    onError,
		OnComplete: onComplete,
	})

	return out
}

// Name returns the processor name.
func (th *Throttle[T]) Name() string {
	return th.name
}
