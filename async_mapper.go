package reactz

import (
	"context"
	"sync"
)

// AsyncMapper runs a blocking or I/O-bound transformation outside the
// delivery path of its input. By default a single transformation is in
// flight at a time; WithConcurrency allows more, up to an explicit limit.
// Results are always emitted in input order.
//
// The first failing transformation terminates the output with an
// UpstreamError, cancels the context passed to transformations still
// running and cancels the upstream.
//
//nolint:govet // fieldalignment: struct layout optimized for readability
type AsyncMapper[In, Out any] struct {
	name        string
	fn          func(context.Context, In) (Out, error)
	concurrency int
}

// NewAsyncMapper creates a processor that executes a transformation asynchronously.
//
// When to use:
//   - I/O-bound operations (API calls, database queries)
//   - CPU-intensive transformations that should not stall the pipeline
//   - Parallel enrichment while maintaining sequence
//
// Example:
//
//	// Up to 10 concurrent lookups, results in input order
//	enricher := reactz.NewAsyncMapper(func(ctx context.Context, id string) (User, error) {
//		return fetchUserFromAPI(ctx, id)
//	}).WithConcurrency(10)
//
//	users := enricher.Process(ctx, ids)
//
// Parameters:
//   - fn: Transformation function; it must honor ctx cancellation
//
// Returns a new AsyncMapper processor with fluent configuration.
func NewAsyncMapper[In, Out any](fn func(context.Context, In) (Out, error)) *AsyncMapper[In, Out] {
	return &AsyncMapper[In, Out]{
		name:        "async-mapper",
		fn:          fn,
		concurrency: 1,
	}
}

// WithConcurrency sets the maximum number of transformations in flight.
// Values below 1 are treated as 1.
func (a *AsyncMapper[In, Out]) WithConcurrency(n int) *AsyncMapper[In, Out] {
	if n < 1 {
		n = 1
	}
	a.concurrency = n
	return a
}

// WithName sets a custom name for this processor.
func (a *AsyncMapper[In, Out]) WithName(name string) *AsyncMapper[In, Out] {
	a.name = name
	return a
}

// future holds the eventual outcome of one transformation.
type future[In, Out any] struct {
	item  In
	value Out
	err   error
	done  chan struct{}
}

// Process transforms the events of in asynchronously.
func (a *AsyncMapper[In, Out]) Process(ctx context.Context, in *Channel[In]) *Channel[Out] {
	out := newStageOutput[In, Out](a.name, in)

	runCtx, cancelRun := context.WithCancel(ctx)
	// The emitter holds one future, the buffer the rest.
	futures := make(chan *future[In, Out], a.concurrency-1)
	stop := make(chan struct{})
	var (
		stopOnce sync.Once
		termErr  error
	)
	release := func() {
		stopOnce.Do(func() {
			cancelRun()
			close(stop)
		})
	}

	go func() {
		defer release()
		for {
			var f *future[In, Out]
			select {
			case next, open := <-futures:
				if !open {
					if termErr != nil {
						_ = out.Fail(wrapUpstream(in.Name(), termErr))
						return
					}
					_ = out.Complete()
					return
				}
				f = next
			case <-stop:
				return
			}

			select {
			case <-f.done:
			case <-stop:
				return
			}
			if f.err != nil {
				_ = out.Fail(NewUpstreamError(a.name, f.item, f.err))
				release()
				in.Cancel()
				return
			}
			if err := out.Emit(ctx, f.value); err != nil {
				return
			}
		}
	}()

	ok := attach(ctx, in, out, Observer[In]{
		OnEvent: func(e Event[In]) {
			f := &future[In, Out]{item: e.Value, done: make(chan struct{})}
			select {
			case futures <- f:
			case <-stop:
				return
			}
			go func() {
				defer close(f.done)
				defer func() {
					if r := recover(); r != nil {
						f.err = recoverError(r)
					}
				}()
				f.value, f.err = a.fn(runCtx, f.item)
			}()
		},
		OnError: func(err error) {
			termErr = err
			close(futures)
		},
		OnComplete: func() {
			close(futures)
		},
	})
	releaseWith(ctx, out, ok, release)

	return out
}

// Name returns the processor name for debugging and monitoring.
func (a *AsyncMapper[In, Out]) Name() string {
	return a.name
}
