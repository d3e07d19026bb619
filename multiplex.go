package reactz

import (
	"context"
	"fmt"
)

// Tagged is a value labelled with the identifier of the channel it came from.
type Tagged[K comparable, T any] struct {
	ID    K
	Value T
}

// String returns a human-readable representation of the tagged value.
func (t Tagged[K, T]) String() string {
	return fmt.Sprintf("%v: %v", t.ID, t.Value)
}

// Multiplex tags every event of each source with its key and merges the
// results into one channel. Merge semantics apply: arrival order, completion
// after every source, first error wins.
//
// Example:
//
//	tagged := reactz.Multiplex(ctx, map[string]*reactz.Channel[Reading]{
//		"kitchen": kitchen,
//		"garage":  garage,
//	})
//	garageOnly := reactz.Demultiplex(ctx, tagged, "garage")
func Multiplex[K comparable, T any](ctx context.Context, sources map[K]*Channel[T]) *Channel[Tagged[K, T]] {
	tagged := make([]*Channel[Tagged[K, T]], 0, len(sources))
	for id, src := range sources {
		id := id
		tag := NewMapper(func(v T) Tagged[K, T] {
			return Tagged[K, T]{ID: id, Value: v}
		}).WithName(fmt.Sprintf("multiplex[%v]", id))
		tagged = append(tagged, tag.Process(ctx, src))
	}

	return merge(ctx, "multiplex", tagged...)
}

// Demultiplex keeps the values tagged with id, dropping the tags.
// It is the inverse of Multiplex for one source.
func Demultiplex[K comparable, T any](ctx context.Context, in *Channel[Tagged[K, T]], id K) *Channel[T] {
	name := fmt.Sprintf("demultiplex[%v]", id)
	only := NewFilter(func(t Tagged[K, T]) bool {
		return t.ID == id
	}).WithName(name).Process(ctx, in)

	return NewMapper(func(t Tagged[K, T]) T {
		return t.Value
	}).WithName(name).Process(ctx, only)
}
