package reactz

import (
	"context"
	"errors"
	"testing"
)

func TestFork_EveryBranchSeesEveryEvent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := NewChannel[int]()
	fork := NewFork(ctx, src)
	a := fork.Fork()
	b := fork.Fork()
	if fork.Forks() != 2 {
		t.Errorf("expected 2 forks, got %d", fork.Forks())
	}

	emitAll(t, ctx, src, 1, 2, 3)
	_ = src.Complete()

	doubled := NewMapper(func(n int) int { return n * 2 }).Process(ctx, b)

	ra := record(t, ctx, a)
	rb := record(t, ctx, doubled)
	ra.wait(t)
	rb.wait(t)

	if !equalSlices(ra.Values(), []int{1, 2, 3}) {
		t.Errorf("expected [1 2 3], got %v", ra.Values())
	}
	if !equalSlices(rb.Values(), []int{2, 4, 6}) {
		t.Errorf("expected [2 4 6], got %v", rb.Values())
	}
}

func TestFork_LazySubscription(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := NewChannel[int]()
	_ = NewFork(ctx, src)

	// The upstream is still free for another consumer.
	r := record(t, ctx, src)
	_ = src.Complete()
	r.wait(t)
}

func TestFork_CancellingAllForksCancelsUpstream(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := NewChannel[int]()
	fork := NewFork(ctx, src)
	a := fork.Fork()
	b := fork.Fork()

	a.Cancel()
	if src.Cancelled() {
		t.Fatal("expected upstream alive while a fork remains")
	}
	b.Cancel()
	waitFor(t, "upstream cancellation", src.Cancelled)

	late := fork.Fork()
	_, err := collect(t, ctx, late)
	if !errors.Is(err, ErrChannelClosed) {
		t.Errorf("expected late fork to fail with ErrChannelClosed, got %v", err)
	}
}

func TestFork_AfterCompletion(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := FromSlice(1)
	fork := NewFork(ctx, src)
	_, _ = collect(t, ctx, fork.Fork())

	r := record(t, ctx, fork.Fork())
	r.wait(t)
	if !r.Completed() || len(r.Values()) != 0 {
		t.Errorf("expected late fork to complete empty, got %v completed=%v", r.Values(), r.Completed())
	}
}
