package reactz

import (
	"context"
)

// Flatten expands slices into individual events.
// It takes a stream of []T and emits each element as a separate event, in
// order. It is the inverse of batching and windowing.
type Flatten[T any] struct {
	name string
}

// NewFlatten creates a processor that expands slices into individual events.
// Empty slices produce no output.
//
// When to use:
//   - Processing results from batch API calls individually
//   - Expanding grouped data for per-item processing
//   - Converting batch database results to individual records
//
// Example:
//
//	// Batch for bulk lookup, then process results individually
//	batches := reactz.NewBatchByCount[UserID](100).Process(ctx, ids)
//	profiles := reactz.NewMapperErr(fetchProfiles).Process(ctx, batches)
//	each := reactz.NewFlatten[Profile]().Process(ctx, profiles)
//
// Returns a new Flatten processor.
func NewFlatten[T any]() *Flatten[T] {
	return &Flatten[T]{
		name: "flatten",
	}
}

// WithName sets a custom name for this processor.
func (f *Flatten[T]) WithName(name string) *Flatten[T] {
	f.name = name
	return f
}

// Process emits every element of every slice received from in.
func (f *Flatten[T]) Process(ctx context.Context, in *Channel[[]T]) *Channel[T] {
	out := newStageOutput[[]T, T](f.name, in)
	onError, onComplete := forward(in, out)

	attach(ctx, in, out, Observer[[]T]{
		OnEvent: func(e Event[[]T]) {
			for _, v := range e.Value {
				if err := out.Emit(ctx, v); err != nil {
					return
				}
			}
		},
		OnError:    onError,
		OnComplete: onComplete,
	})

	return out
}

// Name returns the processor name.
func (f *Flatten[T]) Name() string {
	return f.name
}
