package reactz

import (
	"context"
)

// Skip discards the first N events from a stream and forwards the rest.
type Skip[T any] struct {
	name  string
	count int
}

// NewSkip creates a processor that skips the first N events.
//
// When to use:
//   - Skipping header rows in data files
//   - Ignoring warm-up period data
//   - Pagination (combined with Take)
//
// Example:
//
//	// Skip CSV header
//	rows := reactz.NewSkip[string](1).Process(ctx, lines)
//
//	// Page 3 with 20 items per page
//	page := reactz.NewTake[Item](20).Process(ctx,
//		reactz.NewSkip[Item](40).Process(ctx, items))
//
// Parameters:
//   - count: Number of events to skip
func NewSkip[T any](count int) *Skip[T] {
	return &Skip[T]{
		name:  "skip",
		count: count,
	}
}

// WithName sets a custom name for this processor.
func (s *Skip[T]) WithName(name string) *Skip[T] {
	s.name = name
	return s
}

// Process forwards every event of in after the first count.
func (s *Skip[T]) Process(ctx context.Context, in *Channel[T]) *Channel[T] {
	out := newStageOutput[T, T](s.name, in)
	onError, onComplete := forward(in, out)
	skipped := 0

	attach(ctx, in, out, Observer[T]{
		OnEvent: func(e Event[T]) {
			if skipped < s.count {
				skipped++
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
func (s *Skip[T]) Name() string {
	return s.name
}

// SkipWhile discards events while a predicate holds. Once the predicate
// first returns false, that event and every later one are forwarded
// unconditionally.
//
//nolint:govet // fieldalignment: struct layout optimized for readability
type SkipWhile[T any] struct {
	name      string
	predicate func(T) bool
}

// NewSkipWhile creates a processor that skips events until predicate first
// returns false.
func NewSkipWhile[T any](predicate func(T) bool) *SkipWhile[T] {
	return &SkipWhile[T]{
		name:      "skip-while",
		predicate: predicate,
	}
}

// WithName sets a custom name for this processor.
func (s *SkipWhile[T]) WithName(name string) *SkipWhile[T] {
	s.name = name
	return s
}

// Process forwards events of in once the predicate has failed.
func (s *SkipWhile[T]) Process(ctx context.Context, in *Channel[T]) *Channel[T] {
	out := newStageOutput[T, T](s.name, in)
	onError, onComplete := forward(in, out)
	skipping := true

	attach(ctx, in, out, Observer[T]{
		OnEvent: func(e Event[T]) {
			if skipping {
				skip, err := callPredicate(s.predicate, e.Value)
				if err != nil {
					_ = out.Fail(NewUpstreamError(s.name, e.Value, err))
					in.Cancel()
					return
				}
				if skip {
					return
				}
				skipping = false
			}
			_ = out.Emit(ctx, e.Value)
		},
		OnError:    onError,
		OnComplete: onComplete,
	})

	return out
}

// Name returns the processor name.
func (s *SkipWhile[T]) Name() string {
	return s.name
}
