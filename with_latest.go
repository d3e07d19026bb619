package reactz

import (
	"context"
	"sync"
)

// WithLatestFrom emits a Pair of every source event and the most recent
// value of other. Source events arriving before other's first value are
// dropped, not buffered.
//
// The output follows the source: it completes when the source completes,
// cancelling other. Completion of other only freezes its latest value. An
// error from either side fails the output and cancels the other side.
//
// Example:
//
//	// Price every trade in the currently selected currency
//	priced := reactz.WithLatestFrom(ctx, trades, currency)
func WithLatestFrom[A, B any](ctx context.Context, source *Channel[A], other *Channel[B]) *Channel[Pair[A, B]] {
	out := NewChannel[Pair[A, B]]().WithName("with-latest-from").WithClock(source.clock)

	var (
		mu       sync.Mutex
		latest   B
		has      bool
		finished bool
	)

	cancelBoth := func() {
		source.Cancel()
		other.Cancel()
	}

	terminate := func(fn func()) {
		mu.Lock()
		if finished {
			mu.Unlock()
			return
		}
		finished = true
		fn()
		mu.Unlock()
		cancelBoth()
	}

	out.OnCancel(cancelBoth)
	context.AfterFunc(ctx, func() {
		_ = out.Fail(wrapUpstream(out.Name(), ctx.Err()))
	})

	if _, err := other.Subscribe(ctx, Observer[B]{
		OnEvent: func(e Event[B]) {
			mu.Lock()
			latest, has = e.Value, true
			mu.Unlock()
		},
		OnError: func(err error) {
			terminate(func() { _ = out.Fail(wrapUpstream(other.Name(), err)) })
		},
	}); err != nil {
		terminate(func() { _ = out.Fail(wrapUpstream(out.Name(), err)) })
		return out
	}

	if _, err := source.Subscribe(ctx, Observer[A]{
		OnEvent: func(e Event[A]) {
			mu.Lock()
			defer mu.Unlock()
			if !has || finished {
				return
			}
			_ = out.Emit(ctx, Pair[A, B]{First: e.Value, Second: latest})
		},
		OnError: func(err error) {
			terminate(func() { _ = out.Fail(wrapUpstream(source.Name(), err)) })
		},
		OnComplete: func() {
			terminate(func() { _ = out.Complete() })
		},
	}); err != nil {
		terminate(func() { _ = out.Fail(wrapUpstream(out.Name(), err)) })
	}

	return out
}
