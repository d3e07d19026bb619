package reactz

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestBroadcast_LateSubscriberSeesLiveEventsOnly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := NewChannel[int]()
	bc := NewBroadcast(ctx, src)

	early, err := bc.Channel()
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	first := record(t, ctx, early)

	emitAll(t, ctx, src, 1, 2)
	first.waitLen(t, 2)

	late, err := bc.Channel()
	if err != nil {
		t.Fatalf("late subscribe failed: %v", err)
	}
	second := record(t, ctx, late)
	if bc.Subscribers() != 2 {
		t.Errorf("expected 2 subscribers, got %d", bc.Subscribers())
	}

	emitAll(t, ctx, src, 3, 4)
	_ = src.Complete()
	first.wait(t)
	second.wait(t)

	if !equalSlices(first.Values(), []int{1, 2, 3, 4}) {
		t.Errorf("expected early subscriber to see [1 2 3 4], got %v", first.Values())
	}
	if !equalSlices(second.Values(), []int{3, 4}) {
		t.Errorf("expected late subscriber to see [3 4], got %v", second.Values())
	}
	if !first.Completed() || !second.Completed() {
		t.Error("expected both subscribers completed")
	}
}

func TestReplay_LateSubscriberSeesHistory(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := NewChannel[int]()
	replay := NewReplay(ctx, src, 2)

	early, _ := replay.Channel()
	first := record(t, ctx, early)
	emitAll(t, ctx, src, 1, 2, 3)
	first.waitLen(t, 3)

	late, _ := replay.Channel()
	second := record(t, ctx, late)
	emitAll(t, ctx, src, 4)
	_ = src.Complete()
	second.wait(t)
	first.wait(t)

	if !equalSlices(second.Values(), []int{2, 3, 4}) {
		t.Errorf("expected replayed [2 3] then live [4], got %v", second.Values())
	}
	if replay.Name() != "replay" {
		t.Errorf("expected name 'replay', got %q", replay.Name())
	}
}

func TestBroadcast_UnsubscribeIsolated(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := NewChannel[int]()
	bc := NewBroadcast(ctx, src)

	var got []int
	keep, err := bc.Subscribe(ctx, Observer[int]{
		OnEvent: func(e Event[int]) { got = append(got, e.Value) },
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	leave, err := bc.Subscribe(ctx, Observer[int]{})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	leave.Cancel()
	<-leave.Done()
	if bc.Subscribers() != 1 {
		t.Errorf("expected 1 subscriber after cancel, got %d", bc.Subscribers())
	}
	if src.Cancelled() {
		t.Fatal("expected upstream to keep running")
	}

	emitAll(t, ctx, src, 1, 2)
	_ = src.Complete()
	<-keep.Done()

	if !equalSlices(got, []int{1, 2}) {
		t.Errorf("expected [1 2], got %v", got)
	}
}

func TestBroadcast_ErrorReachesEverySubscriber(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	boom := errors.New("boom")
	src := NewChannel[int]()
	bc := NewBroadcast(ctx, src)

	a, _ := bc.Channel()
	b, _ := bc.Channel()
	ra := record(t, ctx, a)
	rb := record(t, ctx, b)

	_ = src.Fail(boom)
	ra.wait(t)
	rb.wait(t)

	if !errors.Is(ra.Err(), boom) || !errors.Is(rb.Err(), boom) {
		t.Errorf("expected boom for both, got %v and %v", ra.Err(), rb.Err())
	}
	if _, err := bc.Subscribe(ctx, Observer[int]{}); !errors.Is(err, ErrChannelClosed) {
		t.Errorf("expected ErrChannelClosed after termination, got %v", err)
	}
}

func TestBroadcast_Close(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := NewChannel[int]()
	bc := NewBroadcast(ctx, src)
	sub, _ := bc.Channel()
	r := record(t, ctx, sub)

	emitAll(t, ctx, src, 1)
	r.waitLen(t, 1)
	bc.Close()
	r.wait(t)

	if !r.Completed() {
		t.Errorf("expected subscriber completed on close, got err %v", r.Err())
	}
	if !src.Cancelled() {
		t.Error("expected upstream cancelled on close")
	}
}

func ExampleBroadcastChannel() {
	ctx := context.Background()

	src := NewChannel[string]()
	bc := NewBroadcast(ctx, src)
	sub, _ := bc.Channel()

	_ = src.Emit(ctx, "hello")
	_ = src.Emit(ctx, "world")
	_ = src.Complete()

	results, _ := sub.Results(ctx)
	for r := range results {
		fmt.Println(r.Value())
	}

	// Output:
	// hello
	// world
}
