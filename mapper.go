package reactz

import (
	"context"
)

// Mapper transforms each event in a stream from one type to another using a mapping function.
// This is a fundamental operation for data transformation in streaming pipelines,
// allowing type-safe conversions and data enrichment.
//
// A mapping function that returns an error or panics terminates the output
// with an UpstreamError naming the failing item, and cancels the upstream.
//
//nolint:govet // fieldalignment: struct layout optimized for readability
type Mapper[In, Out any] struct {
	name string
	fn   func(In) (Out, error)
}

// NewMapper creates a processor that transforms events from one type to another.
// This is the fundamental transformation operation, allowing type-safe conversions
// and data enrichment throughout the stream pipeline.
//
// When to use:
//   - Type conversions between data representations
//   - Data enrichment and augmentation
//   - Extracting fields or computing derived values
//   - Normalizing data formats
//
// Example:
//
//	// Convert strings to uppercase
//	upper := reactz.NewMapper(strings.ToUpper).WithName("uppercase")
//
//	// Type conversion with computation
//	totals := reactz.NewMapper(func(order Order) OrderSummary {
//		return OrderSummary{
//			OrderID:   order.ID,
//			Total:     calculateTotal(order.Items),
//			ItemCount: len(order.Items),
//		}
//	})
//
//	summaries := totals.Process(ctx, orders)
//
// Parameters:
//   - fn: Pure transformation function from input to output type.
//     It must not block; use AsyncMapper for I/O.
//
// Returns a new Mapper processor for type-safe transformations.
func NewMapper[In, Out any](fn func(In) Out) *Mapper[In, Out] {
	return &Mapper[In, Out]{
		name: "mapper",
		fn: func(v In) (Out, error) {
			return fn(v), nil
		},
	}
}

// NewMapperErr creates a Mapper whose function can fail. The first error
// terminates the output channel.
//
// Example:
//
//	parse := reactz.NewMapperErr(strconv.Atoi).WithName("parse-int")
//	numbers := parse.Process(ctx, lines)
func NewMapperErr[In, Out any](fn func(In) (Out, error)) *Mapper[In, Out] {
	return &Mapper[In, Out]{
		name: "mapper",
		fn:   fn,
	}
}

// WithName sets a custom name for this processor.
// If not set, defaults to "mapper".
func (m *Mapper[In, Out]) WithName(name string) *Mapper[In, Out] {
	m.name = name
	return m
}

// Process applies the mapping function to every event of in.
func (m *Mapper[In, Out]) Process(ctx context.Context, in *Channel[In]) *Channel[Out] {
	out := newStageOutput[In, Out](m.name, in)
	onError, onComplete := forward(in, out)

	attach(ctx, in, out, Observer[In]{
		OnEvent: func(e Event[In]) {
			v, err := m.apply(e.Value)
			if err != nil {
				_ = out.Fail(NewUpstreamError(m.name, e.Value, err))
				in.Cancel()
				return
			}
			_ = out.Emit(ctx, v)
		},
		OnError:    onError,
		OnComplete: onComplete,
	})

	return out
}

func (m *Mapper[In, Out]) apply(v In) (result Out, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recoverError(r)
		}
	}()
	return m.fn(v)
}

// Name returns the processor name for debugging and monitoring.
func (m *Mapper[In, Out]) Name() string {
	return m.name
}
