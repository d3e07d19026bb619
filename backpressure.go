package reactz

import (
	"context"
	"errors"
)

// BackpressureBuffer bounds the number of events waiting for a slow or
// paused consumer. When the buffer is full its OverflowPolicy applies:
//   - OverflowBlock stops draining the upstream until the consumer catches
//     up. The producer itself is held back only when the upstream channel is
//     bounded too (WithCapacity); an unbounded upstream keeps accepting Emit.
//   - OverflowDropNewest discards incoming events.
//   - OverflowDropOldest evicts the oldest buffered event.
//   - OverflowError fails the output with ErrBufferOverflow and cancels the upstream.
//
// Buffered events are always delivered in FIFO order once the consumer
// resumes.
//
//nolint:govet // fieldalignment: struct layout optimized for readability
type BackpressureBuffer[T any] struct {
	name    string
	maxSize int
	policy  OverflowPolicy
	onDrop  func(T)
}

// NewBackpressureBuffer creates a buffer holding at most maxSize events.
//
// When to use:
//   - Decoupling a bursty producer from a steady consumer
//   - Keeping only the freshest data for a lagging UI (drop-oldest)
//   - Shedding load under overload (drop-newest)
//
// Example:
//
//	// Keep the last 100 readings while the dashboard is paused
//	buffered := reactz.NewBackpressureBuffer[Reading](100, reactz.OverflowDropOldest).
//		OnDrop(func(r Reading) { dropped.Add(1) }).
//		Process(ctx, readings)
//
//	// Make a fast producer wait: bound its channel as well
//	jobs := reactz.NewChannel[Job]().WithCapacity(10)
//	paced := reactz.NewBackpressureBuffer[Job](100, reactz.OverflowBlock).Process(ctx, jobs)
//
// Parameters:
//   - maxSize: Maximum buffered events, at least 1
//   - policy: Behavior when the buffer is full
func NewBackpressureBuffer[T any](maxSize int, policy OverflowPolicy) *BackpressureBuffer[T] {
	if maxSize < 1 {
		maxSize = 1
	}
	if policy == "" {
		policy = OverflowBlock
	}
	return &BackpressureBuffer[T]{
		name:    "backpressure-buffer",
		maxSize: maxSize,
		policy:  policy,
	}
}

// OnDrop sets a callback for events discarded by a drop policy.
func (b *BackpressureBuffer[T]) OnDrop(fn func(T)) *BackpressureBuffer[T] {
	b.onDrop = fn
	return b
}

// WithName sets a custom name for this processor.
func (b *BackpressureBuffer[T]) WithName(name string) *BackpressureBuffer[T] {
	b.name = name
	return b
}

// Process buffers the events of in for the consumer of the returned channel.
func (b *BackpressureBuffer[T]) Process(ctx context.Context, in *Channel[T]) *Channel[T] {
	out := newStageOutput[T, T](b.name, in).
		WithCapacity(b.maxSize).
		WithOverflow(b.policy)
	if b.onDrop != nil {
		out.OnDrop(func(e Event[T]) { b.onDrop(e.Value) })
	}
	onError, onComplete := forward(in, out)

	attach(ctx, in, out, Observer[T]{
		OnEvent: func(e Event[T]) {
			err := out.Emit(ctx, e.Value)
			if errors.Is(err, ErrBufferOverflow) {
				in.Cancel()
			}
		},
		OnError:    onError,
		OnComplete: onComplete,
	})

	return out
}

// Name returns the processor name.
func (b *BackpressureBuffer[T]) Name() string {
	return b.name
}
