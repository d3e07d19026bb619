package reactz

import (
	"context"
)

// Distinct suppresses consecutive duplicates: an event is dropped when its
// key equals the key of the most recently emitted event. Unlike Dedupe it
// keeps no history beyond that one key.
//
//nolint:govet // fieldalignment: struct layout optimized for readability
type Distinct[T any, K comparable] struct {
	name  string
	keyFn func(T) K
}

// NewDistinct creates a processor dropping events equal to the previous
// emitted event.
//
// Example:
//
//	// 1, 1, 2, 2, 1 becomes 1, 2, 1
//	changes := reactz.NewDistinct[int]().Process(ctx, readings)
func NewDistinct[T comparable]() *Distinct[T, T] {
	return &Distinct[T, T]{
		name:  "distinct",
		keyFn: func(v T) T { return v },
	}
}

// NewDistinctBy creates a processor comparing events by a derived key.
//
// Example:
//
//	// Emit a status update only when the status actually changes
//	changes := reactz.NewDistinctBy(func(s Status) string {
//		return s.State
//	})
func NewDistinctBy[T any, K comparable](keyFn func(T) K) *Distinct[T, K] {
	return &Distinct[T, K]{
		name:  "distinct",
		keyFn: keyFn,
	}
}

// WithName sets a custom name for this processor.
func (d *Distinct[T, K]) WithName(name string) *Distinct[T, K] {
	d.name = name
	return d
}

// Process emits events whose key differs from the previously emitted one.
func (d *Distinct[T, K]) Process(ctx context.Context, in *Channel[T]) *Channel[T] {
	out := newStageOutput[T, T](d.name, in)
	onError, onComplete := forward(in, out)

	var (
		last    K
		hasLast bool
	)

	attach(ctx, in, out, Observer[T]{
		OnEvent: func(e Event[T]) {
			key, err := d.key(e.Value)
			if err != nil {
				_ = out.Fail(NewUpstreamError(d.name, e.Value, err))
				in.Cancel()
				return
			}
			if hasLast && key == last {
				return
			}
			last, hasLast = key, true
			_ = out.Emit(ctx, e.Value)
		},
		OnError:    onError,
		OnComplete: onComplete,
	})

	return out
}

func (d *Distinct[T, K]) key(v T) (k K, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recoverError(r)
		}
	}()
	return d.keyFn(v), nil
}

// Name returns the processor name.
func (d *Distinct[T, K]) Name() string {
	return d.name
}
