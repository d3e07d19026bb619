package reactz

import (
	"context"
)

// Take emits only the first N events from a stream, then completes and
// cancels the upstream so producers stop early.
type Take[T any] struct {
	name  string
	count int
}

// NewTake creates a processor that emits only the first N events.
// A count of zero or less completes immediately.
//
// When to use:
//   - Limiting result sets
//   - Sampling the head of an unbounded stream
//   - Testing with a bounded subset of data
//
// Example:
//
//	// First 10 search results
//	top := reactz.NewTake[Result](10).Process(ctx, results)
//
// Parameters:
//   - count: Number of events to take
func NewTake[T any](count int) *Take[T] {
	return &Take[T]{
		name:  "take",
		count: count,
	}
}

// WithName sets a custom name for this processor.
func (t *Take[T]) WithName(name string) *Take[T] {
	t.name = name
	return t
}

// Process forwards the first count events of in.
func (t *Take[T]) Process(ctx context.Context, in *Channel[T]) *Channel[T] {
	out := newStageOutput[T, T](t.name, in)
	if t.count <= 0 {
		_ = out.Complete()
		in.Cancel()
		return out
	}

	onError, onComplete := forward(in, out)
	taken := 0

	attach(ctx, in, out, Observer[T]{
		OnEvent: func(e Event[T]) {
			if taken >= t.count {
				return
			}
			taken++
			_ = out.Emit(ctx, e.Value)
			if taken == t.count {
				_ = out.Complete()
				in.Cancel()
			}
		},
		OnError:    onError,
		OnComplete: onComplete,
	})

	return out
}

// Name returns the processor name.
func (t *Take[T]) Name() string {
	return t.name
}

// TakeWhile emits events while a predicate holds. The first event failing
// the predicate is dropped, the output completes and the upstream is
// cancelled.
//
//nolint:govet // fieldalignment: struct layout optimized for readability
type TakeWhile[T any] struct {
	name      string
	predicate func(T) bool
}

// NewTakeWhile creates a processor that emits events until predicate first
// returns false.
//
// Example:
//
//	// Read log lines until the first blank line
//	header := reactz.NewTakeWhile(func(line string) bool {
//		return line != ""
//	})
func NewTakeWhile[T any](predicate func(T) bool) *TakeWhile[T] {
	return &TakeWhile[T]{
		name:      "take-while",
		predicate: predicate,
	}
}

// WithName sets a custom name for this processor.
func (t *TakeWhile[T]) WithName(name string) *TakeWhile[T] {
	t.name = name
	return t
}

// Process forwards events of in until the predicate fails.
func (t *TakeWhile[T]) Process(ctx context.Context, in *Channel[T]) *Channel[T] {
	out := newStageOutput[T, T](t.name, in)
	onError, onComplete := forward(in, out)
	stopped := false

	attach(ctx, in, out, Observer[T]{
		OnEvent: func(e Event[T]) {
			if stopped {
				return
			}
			keep, err := callPredicate(t.predicate, e.Value)
			if err != nil {
				stopped = true
				_ = out.Fail(NewUpstreamError(t.name, e.Value, err))
				in.Cancel()
				return
			}
			if !keep {
				stopped = true
				_ = out.Complete()
				in.Cancel()
				return
			}
			_ = out.Emit(ctx, e.Value)
		},
		OnError:    onError,
		OnComplete: onComplete,
	})

	return out
}

// Name returns the processor name.
func (t *TakeWhile[T]) Name() string {
	return t.name
}
