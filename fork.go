package reactz

import (
	"context"
	"fmt"
	"sync"
)

// Fork splits one upstream subscription into any number of independent
// downstream channels. The upstream subscription starts lazily, on the first
// call to Fork, and is shared by every fork. When every fork has been
// cancelled the upstream is cancelled too.
//
// Each fork sees the events produced after it was created. Forks created
// after the upstream terminated receive the terminal signal immediately.
//
//nolint:govet // fieldalignment: struct layout optimized for readability
type Fork[T any] struct {
	ctx  context.Context
	hub  *hub[T]
	once sync.Once
}

// NewFork prepares a Fork of in. Nothing is subscribed until Fork is called.
//
// When to use:
//   - Processing the same data along several branches
//   - Feeding alerting, analytics and archival from one source
//
// Example:
//
//	fork := reactz.NewFork(ctx, events)
//
//	alerts := alerting.Process(ctx, fork.Fork())
//	stats := analytics.Process(ctx, fork.Fork())
//	archive := archival.Process(ctx, fork.Fork())
func NewFork[T any](ctx context.Context, in *Channel[T]) *Fork[T] {
	h := newHub("fork", in, 0)
	h.onEmpty = func() {
		h.terminate(fmt.Errorf("fork %s: all forks cancelled: %w", in.Name(), ErrChannelClosed))
		in.Cancel()
	}
	return &Fork[T]{ctx: ctx, hub: h}
}

// Fork returns a new downstream channel sharing the upstream subscription.
func (f *Fork[T]) Fork() *Channel[T] {
	ch, ok, err := f.hub.add()
	if !ok {
		return f.terminated(err)
	}
	f.once.Do(func() {
		_ = f.hub.start(f.ctx)
	})
	return ch
}

// terminated builds a channel already carrying the hub's terminal signal.
func (f *Fork[T]) terminated(err error) *Channel[T] {
	ch := NewChannel[T]().WithName(f.hub.name).WithClock(f.hub.clock)
	if err != nil {
		_ = ch.Fail(err)
		return ch
	}
	_ = ch.Complete()
	return ch
}

// Forks returns the number of live forks.
func (f *Fork[T]) Forks() int {
	return f.hub.count()
}

// Name returns the fork name.
func (f *Fork[T]) Name() string {
	return f.hub.name
}
