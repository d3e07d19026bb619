package reactz

import (
	"context"
)

// Tap executes a side effect function for each event while passing events through unchanged.
// It's used for logging, debugging, metrics collection, and any other
// observational operations that shouldn't modify the data flow.
//
// A panicking side effect is recovered and logged at warn level; the event
// is still forwarded.
//
//nolint:govet // fieldalignment: struct layout optimized for readability
type Tap[T any] struct {
	name string
	fn   func(T)
}

// NewTap creates a processor that executes a side effect function on each
// event while passing all events through unchanged.
//
// When to use:
//   - Debug logging and tracing
//   - Metrics collection and monitoring
//   - Audit trails
//   - Testing and verification
//
// Example:
//
//	// Metrics collection
//	var processed atomic.Int64
//	counted := reactz.NewTap(func(Order) {
//		processed.Add(1)
//	}).WithName("order-count").Process(ctx, orders)
//
// Parameters:
//   - fn: Side effect function that receives each value
//
// Returns a new Tap processor.
func NewTap[T any](fn func(T)) *Tap[T] {
	return &Tap[T]{
		name: "tap",
		fn:   fn,
	}
}

// WithName sets a custom name for this processor.
// If not set, defaults to "tap".
func (t *Tap[T]) WithName(name string) *Tap[T] {
	t.name = name
	return t
}

// Process runs the side effect for every event of in and forwards it.
func (t *Tap[T]) Process(ctx context.Context, in *Channel[T]) *Channel[T] {
	out := newStageOutput[T, T](t.name, in)
	onError, onComplete := forward(in, out)

	attach(ctx, in, out, Observer[T]{
		OnEvent: func(e Event[T]) {
			t.call(e)
			_ = out.Emit(ctx, e.Value)
		},
		OnError:    onError,
		OnComplete: onComplete,
	})

	return out
}

func (t *Tap[T]) call(e Event[T]) {
	defer func() {
		if r := recover(); r != nil {
			Logger().Warn().
				Str("stage", t.name).
				Uint64("seq", e.Seq).
				Interface("panic", r).
				Msg("tap side effect panicked")
		}
	}()
	t.fn(e.Value)
}

// Name returns the processor name for debugging and monitoring.
func (t *Tap[T]) Name() string {
	return t.name
}
