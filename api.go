// Package reactz provides type-safe, composable reactive stream operators
// built around an explicit Channel abstraction: one producer side
// (Emit/Fail/Complete) and a subscription-based consumer side with pause,
// resume and cancellation.
//
// The core abstraction is the Processor interface which transforms one
// Channel into another. Processors are chained by feeding the output of one
// stage into the next, forming a pipeline. Cancelling the terminal
// subscription of a pipeline travels upstream through every stage to the
// original producer, releasing timers and buffers on the way.
//
// Basic usage:
//
//	ctx := context.Background()
//	source := reactz.NewChannel[int]()
//
//	even := reactz.NewFilter(func(n int) bool { return n%2 == 0 })
//	double := reactz.NewMapper(func(n int) int { return n * 2 })
//
//	out := double.Process(ctx, even.Process(ctx, source))
//	sub, _ := out.Subscribe(ctx, reactz.Observer[int]{
//		OnEvent:    func(e reactz.Event[int]) { fmt.Println(e.Value) },
//		OnError:    func(err error) { log.Println(err) },
//		OnComplete: func() { fmt.Println("done") },
//	})
//	defer sub.Cancel()
//
// The package provides operators for common reactive patterns:
//   - Transformation: map, filter, distinct, take/skip, windows, batches
//   - Timing: debounce, throttle, sample, timeout
//   - Combination: merge, zip, withLatestFrom, fork, multiplex
//   - Resilience: retry with backoff, circuit breaker, rate limiting,
//     backpressure buffering, error recovery
//   - Fan-out: broadcast and replay hubs
package reactz

import (
	"context"
	"time"
)

// Processor is the core interface for single-input stream stages.
// It transforms an input Channel of type In to an output Channel of type Out.
// Processors should:
//   - Complete the output when the input completes
//   - Forward input errors to the output exactly once
//   - Cancel the input when the output is cancelled
//   - Stop every timer they own once the output terminates
type Processor[In, Out any] interface {
	// Process subscribes to in and returns the channel carrying the results.
	Process(ctx context.Context, in *Channel[In]) *Channel[Out]

	// Name returns a descriptive name for the processor, useful for debugging.
	Name() string
}

// BatchConfig configures batching behavior for the Batcher processor.
type BatchConfig struct {
	// MaxLatency is the length of the rolling time window. When set, whatever
	// accumulated is emitted each time the window elapses.
	MaxLatency time.Duration

	// MaxSize is the maximum number of items in a batch.
	// A batch is emitted immediately when it reaches this size.
	MaxSize int
}
