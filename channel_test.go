package reactz

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zoobzio/clockz"
)

func TestChannelDeliversInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := NewChannel[int]()
	emitAll(t, ctx, ch, 1, 2, 3, 4, 5)
	if err := ch.Complete(); err != nil {
		t.Fatalf("unexpected complete error: %v", err)
	}

	got, err := collect(t, ctx, ch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !equalSlices(got, []int{1, 2, 3, 4, 5}) {
		t.Errorf("expected [1 2 3 4 5], got %v", got)
	}
}

func TestChannelEventMetadata(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := clockz.NewFakeClock()
	ch := NewChannel[string]().WithClock(clock)

	start := clock.Now()
	emitAll(t, ctx, ch, "a")
	clock.Advance(time.Second)
	emitAll(t, ctx, ch, "b")
	_ = ch.Complete()

	var events []Event[string]
	sub, err := ch.Subscribe(ctx, Observer[string]{
		OnEvent: func(e Event[string]) { events = append(events, e) },
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	<-sub.Done()

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Seq != 1 || events[1].Seq != 2 {
		t.Errorf("expected sequence 1, 2, got %d, %d", events[0].Seq, events[1].Seq)
	}
	if !events[0].Time.Equal(start) {
		t.Errorf("expected first timestamp %v, got %v", start, events[0].Time)
	}
	if got := events[1].Time.Sub(events[0].Time); got != time.Second {
		t.Errorf("expected 1s between events, got %v", got)
	}
}

func TestChannelClosedOperations(t *testing.T) {
	ctx := context.Background()
	ch := NewChannel[int]()
	_ = ch.Complete()

	if err := ch.Emit(ctx, 1); !errors.Is(err, ErrChannelClosed) {
		t.Errorf("expected ErrChannelClosed from Emit, got %v", err)
	}
	if err := ch.Complete(); !errors.Is(err, ErrChannelClosed) {
		t.Errorf("expected ErrChannelClosed from Complete, got %v", err)
	}
	if err := ch.Fail(errors.New("late")); !errors.Is(err, ErrChannelClosed) {
		t.Errorf("expected ErrChannelClosed from Fail, got %v", err)
	}
	ch.Cancel()
}

func TestChannelSingleSubscription(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := NewChannel[int]()
	if _, err := ch.Subscribe(ctx, Observer[int]{}); err != nil {
		t.Fatalf("first subscribe failed: %v", err)
	}
	if _, err := ch.Subscribe(ctx, Observer[int]{}); !errors.Is(err, ErrAlreadySubscribed) {
		t.Errorf("expected ErrAlreadySubscribed, got %v", err)
	}

	cancelled := NewChannel[int]()
	cancelled.Cancel()
	if _, err := cancelled.Subscribe(ctx, Observer[int]{}); !errors.Is(err, ErrChannelClosed) {
		t.Errorf("expected ErrChannelClosed for cancelled channel, got %v", err)
	}
}

func TestChannelErrorAfterBufferedEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	boom := errors.New("boom")
	ch := NewChannel[int]()
	emitAll(t, ctx, ch, 1, 2)
	_ = ch.Fail(boom)

	got, err := collect(t, ctx, ch)
	if !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
	if !equalSlices(got, []int{1, 2}) {
		t.Errorf("expected buffered [1 2] before error, got %v", got)
	}
}

func TestChannelDiscardOnError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	boom := errors.New("boom")
	ch := NewChannel[int]().WithDiscardOnError(true)
	emitAll(t, ctx, ch, 1, 2)
	_ = ch.Fail(boom)

	got, err := collect(t, ctx, ch)
	if !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected buffered events discarded, got %v", got)
	}
}

func TestChannelTerminalSignalOnce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var completions, errs atomic.Int32
	ch := NewChannel[int]()
	sub, err := ch.Subscribe(ctx, Observer[int]{
		OnError:    func(error) { errs.Add(1) },
		OnComplete: func() { completions.Add(1) },
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	_ = ch.Complete()
	_ = ch.Fail(errors.New("ignored"))
	<-sub.Done()
	ch.Cancel()

	if completions.Load() != 1 || errs.Load() != 0 {
		t.Errorf("expected exactly one completion, got %d completions and %d errors",
			completions.Load(), errs.Load())
	}
}

func TestChannelCancelRunsHooksOnce(t *testing.T) {
	ch := NewChannel[int]()
	var hooks atomic.Int32
	ch.OnCancel(func() { hooks.Add(1) })

	_ = ch.Emit(context.Background(), 1)
	ch.Cancel()
	ch.Cancel()

	if hooks.Load() != 1 {
		t.Errorf("expected hook to run once, ran %d times", hooks.Load())
	}
	if ch.Len() != 0 {
		t.Errorf("expected buffer discarded on cancel, got %d events", ch.Len())
	}
	if !ch.Cancelled() {
		t.Error("expected channel to report cancelled")
	}
	select {
	case <-ch.Done():
	default:
		t.Error("expected Done to be closed after cancel")
	}

	// Hooks registered after cancellation run immediately.
	ch.OnCancel(func() { hooks.Add(1) })
	if hooks.Load() != 2 {
		t.Errorf("expected late hook to run immediately, got %d runs", hooks.Load())
	}
}

func TestChannelSubscriptionCancelStopsProducer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := NewChannel[int]()
	sub, err := ch.Subscribe(ctx, Observer[int]{})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	sub.Cancel()
	sub.Cancel()

	<-sub.Done()
	if err := ch.Emit(ctx, 1); !errors.Is(err, ErrChannelClosed) {
		t.Errorf("expected producer to see ErrChannelClosed, got %v", err)
	}
	if sub.ID() == "" {
		t.Error("expected subscription ID")
	}
}

func TestChannelContextCancelsSubscription(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	ch := NewChannel[int]()
	sub, err := ch.Subscribe(ctx, Observer[int]{})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	cancel()

	select {
	case <-sub.Done():
	case <-time.After(testTimeout):
		t.Fatal("subscription not cancelled by context")
	}
	if !ch.Cancelled() {
		t.Error("expected channel cancelled by context")
	}
}

func TestChannelPauseResume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := NewChannel[int]()
	r := record(t, ctx, ch)
	r.sub.Pause()
	if !r.sub.Paused() {
		t.Fatal("expected subscription paused")
	}

	emitAll(t, ctx, ch, 1, 2, 3)
	time.Sleep(10 * time.Millisecond)
	if got := r.Values(); len(got) != 0 {
		t.Errorf("expected no delivery while paused, got %v", got)
	}
	if ch.Len() != 3 {
		t.Errorf("expected 3 buffered events, got %d", ch.Len())
	}

	r.sub.Resume()
	_ = ch.Complete()
	r.wait(t)

	if got := r.Values(); !equalSlices(got, []int{1, 2, 3}) {
		t.Errorf("expected [1 2 3] after resume, got %v", got)
	}
}

func TestChannelOverflowPolicies(t *testing.T) {
	t.Run("drop-newest", func(t *testing.T) {
		ctx := context.Background()
		var dropped []int
		ch := NewChannel[int]().
			WithCapacity(2).
			WithOverflow(OverflowDropNewest).
			OnDrop(func(e Event[int]) { dropped = append(dropped, e.Value) })

		emitAll(t, ctx, ch, 1, 2, 3, 4)
		_ = ch.Complete()

		got, err := collect(t, ctx, ch)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !equalSlices(got, []int{1, 2}) {
			t.Errorf("expected [1 2], got %v", got)
		}
		if !equalSlices(dropped, []int{3, 4}) {
			t.Errorf("expected dropped [3 4], got %v", dropped)
		}
	})

	t.Run("drop-oldest", func(t *testing.T) {
		ctx := context.Background()
		ch := NewChannel[int]().WithCapacity(2).WithOverflow(OverflowDropOldest)

		emitAll(t, ctx, ch, 1, 2, 3, 4)
		_ = ch.Complete()

		got, _ := collect(t, ctx, ch)
		if !equalSlices(got, []int{3, 4}) {
			t.Errorf("expected [3 4], got %v", got)
		}
	})

	t.Run("error", func(t *testing.T) {
		ctx := context.Background()
		ch := NewChannel[int]().WithCapacity(1).WithOverflow(OverflowError)

		emitAll(t, ctx, ch, 1)
		if err := ch.Emit(ctx, 2); !errors.Is(err, ErrBufferOverflow) {
			t.Fatalf("expected ErrBufferOverflow, got %v", err)
		}

		got, err := collect(t, ctx, ch)
		if !errors.Is(err, ErrBufferOverflow) {
			t.Errorf("expected consumer to see ErrBufferOverflow, got %v", err)
		}
		if !equalSlices(got, []int{1}) {
			t.Errorf("expected [1], got %v", got)
		}
	})

	t.Run("block", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		ch := NewChannel[int]().WithCapacity(1)
		emitAll(t, ctx, ch, 1)

		emitted := make(chan error, 1)
		go func() { emitted <- ch.Emit(ctx, 2) }()

		select {
		case err := <-emitted:
			t.Fatalf("expected Emit to block, returned %v", err)
		case <-time.After(20 * time.Millisecond):
		}

		r := record(t, ctx, ch)
		if err := <-emitted; err != nil {
			t.Fatalf("unexpected emit error: %v", err)
		}
		_ = ch.Complete()
		r.wait(t)
		if got := r.Values(); !equalSlices(got, []int{1, 2}) {
			t.Errorf("expected [1 2], got %v", got)
		}
	})

	t.Run("block unblocked by cancel", func(t *testing.T) {
		ch := NewChannel[int]().WithCapacity(1)
		emitAll(t, context.Background(), ch, 1)

		emitted := make(chan error, 1)
		go func() { emitted <- ch.Emit(context.Background(), 2) }()
		time.Sleep(10 * time.Millisecond)
		ch.Cancel()

		if err := <-emitted; !errors.Is(err, ErrChannelClosed) {
			t.Errorf("expected ErrChannelClosed, got %v", err)
		}
	})
}

func TestParseOverflowPolicy(t *testing.T) {
	for _, s := range []string{"block", "drop-newest", "drop-oldest", "error"} {
		p, err := ParseOverflowPolicy(s)
		if err != nil || string(p) != s {
			t.Errorf("expected %q to parse, got %q, %v", s, p, err)
		}
	}
	if p, err := ParseOverflowPolicy(""); err != nil || p != OverflowBlock {
		t.Errorf("expected empty policy to default to block, got %q, %v", p, err)
	}
	if _, err := ParseOverflowPolicy("spill"); err == nil {
		t.Error("expected error for unknown policy")
	}
}

func TestFromChan(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := make(chan string)
	go func() {
		defer close(in)
		for _, s := range []string{"a", "b", "c"} {
			in <- s
		}
	}()

	got, err := collect(t, ctx, FromChan(ctx, in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !equalSlices(got, []string{"a", "b", "c"}) {
		t.Errorf("expected [a b c], got %v", got)
	}
}

func TestInterval(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := clockz.NewFakeClock()
	ticks := Interval(ctx, time.Second, clock)
	r := record(t, ctx, NewTake[int](3).Process(ctx, ticks))

	for i := 0; i < 3; i++ {
		clock.Advance(time.Second)
		r.waitLen(t, i+1)
	}
	r.wait(t)

	if got := r.Values(); !equalSlices(got, []int{0, 1, 2}) {
		t.Errorf("expected [0 1 2], got %v", got)
	}
	if !r.Completed() {
		t.Error("expected completion after take")
	}
}

func TestResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	boom := errors.New("boom")
	ch := NewChannel[int]()
	emitAll(t, ctx, ch, 1, 2)
	_ = ch.Fail(boom)

	results, err := ch.Results(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var values []int
	var errs []error
	for r := range results {
		if r.IsError() {
			errs = append(errs, r.Err())
			continue
		}
		values = append(values, r.Value())
	}

	if !equalSlices(values, []int{1, 2}) {
		t.Errorf("expected [1 2], got %v", values)
	}
	if len(errs) != 1 || !errors.Is(errs[0], boom) {
		t.Errorf("expected single boom error, got %v", errs)
	}
}
