package reactz

import (
	"context"
	"sync"
)

// Merge interleaves the events of several channels into one, in arrival
// order. Events from each input keep their relative order; no order is
// guaranteed across inputs.
//
// The output completes once every input has completed. The first error from
// any input fails the output immediately and cancels the remaining inputs.
// Cancelling the output cancels every input.
//
// When to use:
//   - Aggregating data from multiple sources
//   - Collecting results from parallel branches
//   - Merging event streams from different services
//
// Example:
//
//	// Combine event streams from different services
//	merged := reactz.Merge(ctx, serviceA.Events(), serviceB.Events(), serviceC.Events())
//
//	// Merge branches back together after a fork
//	fork := reactz.NewFork(ctx, records)
//	fast := enrichFast.Process(ctx, fork.Fork())
//	slow := enrichSlow.Process(ctx, fork.Fork())
//	all := reactz.Merge(ctx, fast, slow)
//
// Merging no channels yields a completed channel.
func Merge[T any](ctx context.Context, ins ...*Channel[T]) *Channel[T] {
	return merge(ctx, "merge", ins...)
}

func merge[T any](ctx context.Context, name string, ins ...*Channel[T]) *Channel[T] {
	out := NewChannel[T]().WithName(name)
	if len(ins) > 0 {
		out.WithClock(ins[0].clock)
	}
	if len(ins) == 0 {
		_ = out.Complete()
		return out
	}

	var (
		mu        sync.Mutex
		remaining = len(ins)
		failed    bool
	)

	cancelAll := func() {
		for _, in := range ins {
			in.Cancel()
		}
	}

	// fail records the first error and reports whether the caller won.
	fail := func(err error) bool {
		mu.Lock()
		defer mu.Unlock()
		if failed {
			return false
		}
		failed = true
		_ = out.Fail(err)
		return true
	}

	out.OnCancel(cancelAll)
	context.AfterFunc(ctx, func() {
		_ = out.Fail(wrapUpstream(out.Name(), ctx.Err()))
	})

	for _, in := range ins {
		in := in
		_, err := in.Subscribe(ctx, Observer[T]{
			OnEvent: func(e Event[T]) {
				_ = out.Emit(ctx, e.Value)
			},
			OnError: func(err error) {
				if fail(wrapUpstream(in.Name(), err)) {
					cancelAll()
				}
			},
			OnComplete: func() {
				mu.Lock()
				remaining--
				done := remaining == 0 && !failed
				mu.Unlock()
				if done {
					_ = out.Complete()
				}
			},
		})
		if err != nil {
			if fail(wrapUpstream(out.Name(), err)) {
				cancelAll()
			}
			return out
		}
	}

	return out
}
