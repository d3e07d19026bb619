package reactz

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zoobzio/clockz"
)

func TestDebounce_EmitsLastOfBurst(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := clockz.NewFakeClock()
	src := NewChannel[string]().WithClock(clock)
	r := record(t, ctx, NewDebounce[string](300*time.Millisecond, clock).Process(ctx, src))

	// Keystrokes arriving faster than the quiet period.
	for _, s := range []string{"h", "he", "hel", "hell", "hello"} {
		emitAll(t, ctx, src, s)
		waitDrained(t, src)
		clock.Advance(100 * time.Millisecond)
		clock.BlockUntilReady()
	}
	if len(r.Values()) != 0 {
		t.Fatalf("expected nothing during the burst, got %v", r.Values())
	}

	clock.Advance(200 * time.Millisecond)
	clock.BlockUntilReady()
	r.waitLen(t, 1)

	_ = src.Complete()
	r.wait(t)

	if !equalSlices(r.Values(), []string{"hello"}) {
		t.Errorf("expected [hello], got %v", r.Values())
	}
}

func TestDebounce_SeparateBursts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := clockz.NewFakeClock()
	src := NewChannel[int]().WithClock(clock)
	r := record(t, ctx, NewDebounce[int](time.Second, clock).Process(ctx, src))

	emitAll(t, ctx, src, 1, 2)
	waitDrained(t, src)
	clock.Advance(time.Second)
	clock.BlockUntilReady()
	r.waitLen(t, 1)

	emitAll(t, ctx, src, 3)
	waitDrained(t, src)
	clock.Advance(time.Second)
	clock.BlockUntilReady()
	r.waitLen(t, 2)

	_ = src.Complete()
	r.wait(t)

	if !equalSlices(r.Values(), []int{2, 3}) {
		t.Errorf("expected [2 3], got %v", r.Values())
	}
}

func TestDebounce_FlushOnComplete(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := clockz.NewFakeClock()
	src := NewChannel[int]().WithClock(clock)
	emitAll(t, ctx, src, 1, 2, 3)
	_ = src.Complete()

	outputs, err := collect(t, ctx, NewDebounce[int](time.Hour, clock).Process(ctx, src))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !equalSlices(outputs, []int{3}) {
		t.Errorf("expected pending value flushed, got %v", outputs)
	}
}

func TestDebounce_DiscardOnError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	boom := errors.New("boom")
	clock := clockz.NewFakeClock()
	src := NewChannel[int]().WithClock(clock)
	emitAll(t, ctx, src, 1)
	_ = src.Fail(boom)

	outputs, err := collect(t, ctx, NewDebounce[int](time.Hour, clock).Process(ctx, src))
	if !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
	if len(outputs) != 0 {
		t.Errorf("expected pending value discarded, got %v", outputs)
	}
}

func TestDebounce_CancelDiscardsPending(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := clockz.NewFakeClock()
	src := NewChannel[string]().WithClock(clock)
	out := NewDebounce[string](300*time.Millisecond, clock).Process(ctx, src)
	r := record(t, ctx, out)

	emitAll(t, ctx, src, "h", "he", "hello")
	waitDrained(t, src)

	out.Cancel()
	r.wait(t)
	waitFor(t, "upstream cancellation", src.Cancelled)

	// The stopped timer must not flush the pending value.
	clock.Advance(time.Second)
	clock.BlockUntilReady()
	time.Sleep(10 * time.Millisecond)

	if len(r.Values()) != 0 {
		t.Errorf("expected pending value discarded on cancel, got %v", r.Values())
	}
	if out.Err() != nil {
		t.Errorf("expected no error after cancel, got %v", out.Err())
	}
}

// TestDebounce_AdvanceFromTimerCallback runs Advance off the test goroutine
// so a callback blocking on the clock shows up as a timeout, not a hang.
func TestDebounce_AdvanceFromTimerCallback(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := clockz.NewFakeClock()
	src := NewChannel[string]().WithClock(clock)
	r := record(t, ctx, NewDebounce[string](100*time.Millisecond, clock).Process(ctx, src))

	emitAll(t, ctx, src, "h", "he", "hello")
	waitDrained(t, src)

	advanced := make(chan struct{})
	go func() {
		clock.Advance(100 * time.Millisecond)
		close(advanced)
	}()
	select {
	case <-advanced:
	case <-time.After(time.Second):
		t.Fatal("Advance did not return while a debounce timer fired")
	}

	r.waitLen(t, 1)
	if !equalSlices(r.Values(), []string{"hello"}) {
		t.Errorf("expected [hello], got %v", r.Values())
	}
	_ = src.Complete()
	r.wait(t)
}
