package reactz

import (
	"context"
	"time"
)

// FromSlice creates a completed channel holding values in order.
// Nothing blocks: the events wait in the buffer for the consumer.
func FromSlice[T any](values ...T) *Channel[T] {
	ch := NewChannel[T]().WithName("slice")
	for _, v := range values {
		_ = ch.Emit(context.Background(), v)
	}
	_ = ch.Complete()
	return ch
}

// FromChan adapts a plain Go channel into a Channel. The Channel completes
// when in is closed, fails with ctx.Err() when ctx ends first, and stops
// reading from in once the Channel is cancelled.
func FromChan[T any](ctx context.Context, in <-chan T) *Channel[T] {
	ch := NewChannel[T]().WithName("chan")

	go func() {
		for {
			select {
			case v, ok := <-in:
				if !ok {
					_ = ch.Complete()
					return
				}
				if err := ch.Emit(ctx, v); err != nil {
					return
				}
			case <-ctx.Done():
				_ = ch.Fail(ctx.Err())
				return
			case <-ch.Done():
				return
			}
		}
	}()

	return ch
}

// Interval emits 0, 1, 2, ... every d until the channel is cancelled or ctx
// ends. The ticker is stopped as soon as either happens.
func Interval(ctx context.Context, d time.Duration, clock Clock) *Channel[int] {
	ch := NewChannel[int]().WithName("interval").WithClock(clock)

	ticker := clock.NewTicker(d)

	go func() {
		defer ticker.Stop()

		for n := 0; ; {
			select {
			case <-ticker.C():
				if err := ch.Emit(ctx, n); err != nil {
					return
				}
				n++
			case <-ctx.Done():
				_ = ch.Fail(ctx.Err())
				return
			case <-ch.Done():
				return
			}
		}
	}()

	return ch
}
