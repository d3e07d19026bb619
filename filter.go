package reactz

import (
	"context"
)

// Filter selectively passes events through a stream based on a predicate function.
// Only events for which the predicate returns true are emitted to the output channel.
// Events that don't match the predicate are discarded.
//
// Filter is one of the most fundamental stream processing operations, commonly used for:
//   - Data validation and quality control
//   - Business rule application
//   - Reducing downstream load
//
// Completion and errors pass through untouched. A panicking predicate
// terminates the output like a failing Mapper.
//
//nolint:govet // fieldalignment: struct layout optimized for readability
type Filter[T any] struct {
	name      string
	predicate func(T) bool
}

// NewFilter creates a processor that selectively passes events based on a predicate.
// Events for which the predicate returns true are forwarded unchanged.
// Events for which the predicate returns false are discarded.
//
// The predicate function should be pure (no side effects) and deterministic
// for consistent and predictable filtering behavior.
//
// Example:
//
//	// Filter positive numbers
//	positive := reactz.NewFilter(func(n int) bool {
//		return n > 0
//	})
//
//	// Filter valid orders
//	validOrders := reactz.NewFilter(func(order Order) bool {
//		return order.ID != "" && order.Amount > 0
//	}).WithName("valid-orders")
//
//	kept := positive.Process(ctx, numbers)
//
// Parameters:
//   - predicate: Function that returns true for events to keep, false to discard
//
// Returns a new Filter processor.
func NewFilter[T any](predicate func(T) bool) *Filter[T] {
	return &Filter[T]{
		name:      "filter",
		predicate: predicate,
	}
}

// WithName sets a custom name for this processor.
// If not set, defaults to "filter".
// The name is used for debugging, monitoring, and error reporting.
func (f *Filter[T]) WithName(name string) *Filter[T] {
	f.name = name
	return f
}

// Process filters input events based on the predicate function.
// Events that match the predicate are forwarded unchanged, preserving order.
func (f *Filter[T]) Process(ctx context.Context, in *Channel[T]) *Channel[T] {
	out := newStageOutput[T, T](f.name, in)
	onError, onComplete := forward(in, out)

	attach(ctx, in, out, Observer[T]{
		OnEvent: func(e Event[T]) {
			keep, err := callPredicate(f.predicate, e.Value)
			if err != nil {
				_ = out.Fail(NewUpstreamError(f.name, e.Value, err))
				in.Cancel()
				return
			}
			if keep {
				_ = out.Emit(ctx, e.Value)
			}
		},
		OnError:    onError,
		OnComplete: onComplete,
	})

	return out
}

// Name returns the processor name for debugging and monitoring.
func (f *Filter[T]) Name() string {
	return f.name
}

// callPredicate runs a user predicate, converting a panic into an error.
func callPredicate[T any](pred func(T) bool, v T) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recoverError(r)
		}
	}()
	return pred(v), nil
}
