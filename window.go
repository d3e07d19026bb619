package reactz

import (
	"context"
	"sync"
	"time"
)

// Window is a group of consecutive events collected over a span of time.
// Items keep their original order.
type Window[T any] struct {
	Start time.Time
	End   time.Time
	Items []T
}

// Count returns the number of items in the window.
func (w Window[T]) Count() int {
	return len(w.Items)
}

// Duration returns the time span covered by the window.
func (w Window[T]) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// CountWindow groups events into windows of a fixed number of events.
// With slide equal to size the windows are tumbling; with a smaller slide
// they overlap; with a larger slide events between windows are skipped.
//
//nolint:govet // fieldalignment: struct layout optimized for readability
type CountWindow[T any] struct {
	name  string
	size  int
	slide int
}

// NewCountWindow creates a processor emitting a []T every slide events once
// size events are available. A trailing partial window holding events that
// were never emitted is flushed on completion.
//
// Example:
//
//	// Moving average over the last 5 readings
//	windows := reactz.NewCountWindow[float64](5, 1).Process(ctx, readings)
//
// Parameters:
//   - size: Number of events per window, at least 1
//   - slide: Number of events between window starts, at least 1
func NewCountWindow[T any](size, slide int) *CountWindow[T] {
	if size < 1 {
		size = 1
	}
	if slide < 1 {
		slide = 1
	}
	return &CountWindow[T]{
		name:  "count-window",
		size:  size,
		slide: slide,
	}
}

// WithName sets a custom name for this processor.
func (w *CountWindow[T]) WithName(name string) *CountWindow[T] {
	w.name = name
	return w
}

// Process groups the events of in into windows.
func (w *CountWindow[T]) Process(ctx context.Context, in *Channel[T]) *Channel[[]T] {
	out := newStageOutput[T, []T](w.name, in)
	onError, _ := forward(in, out)

	var (
		buf   []T
		fresh int
		skip  int
	)

	attach(ctx, in, out, Observer[T]{
		OnEvent: func(e Event[T]) {
			if skip > 0 {
				skip--
				return
			}
			buf = append(buf, e.Value)
			fresh++
			if len(buf) < w.size {
				return
			}

			window := make([]T, len(buf))
			copy(window, buf)
			_ = out.Emit(ctx, window)
			fresh = 0

			if w.slide >= w.size {
				buf = buf[:0]
				skip = w.slide - w.size
				return
			}
			buf = append(buf[:0], buf[w.slide:]...)
		},
		OnError: onError,
		OnComplete: func() {
			if fresh > 0 {
				_ = out.Emit(ctx, buf)
			}
			_ = out.Complete()
		},
	})

	return out
}

// Name returns the processor name.
func (w *CountWindow[T]) Name() string {
	return w.name
}

// TimeWindow groups events into fixed-size, non-overlapping time windows.
// The first window opens when the stage subscribes; empty windows are not
// emitted.
//
//nolint:govet // fieldalignment: struct layout optimized for readability
type TimeWindow[T any] struct {
	name  string
	size  time.Duration
	clock Clock
}

// NewTimeWindow creates a processor that groups events into tumbling windows.
//
// When to use:
//   - Per-minute or per-second aggregations
//   - Periodic reports over event streams
//
// Example:
//
//	// Count requests per minute
//	windows := reactz.NewTimeWindow[Request](time.Minute, reactz.RealClock).
//		Process(ctx, requests)
//
// Parameters:
//   - size: Duration of each window
//   - clock: Clock interface for time operations
func NewTimeWindow[T any](size time.Duration, clock Clock) *TimeWindow[T] {
	return &TimeWindow[T]{
		name:  "time-window",
		size:  size,
		clock: clock,
	}
}

// WithName sets a custom name for this processor.
func (w *TimeWindow[T]) WithName(name string) *TimeWindow[T] {
	w.name = name
	return w
}

// Process emits a Window for every period of size that saw at least one
// event. The partial window is flushed on completion and discarded on
// error or cancellation.
func (w *TimeWindow[T]) Process(ctx context.Context, in *Channel[T]) *Channel[Window[T]] {
	out := newStageOutput[T, Window[T]](w.name, in)

	var (
		mu     sync.Mutex
		start  = w.clock.Now()
		items  []T
		closed bool
	)
	ticker := w.clock.NewTicker(w.size)
	stop := make(chan struct{})
	var stopOnce sync.Once
	halt := func() {
		stopOnce.Do(func() {
			ticker.Stop()
			close(stop)
		})
	}

	// emitLocked flushes the current window ending at end.
	emitLocked := func(end time.Time) {
		if len(items) > 0 {
			_ = out.Emit(ctx, Window[T]{Start: start, End: end, Items: items})
		}
		items = nil
		start = end
	}

	go func() {
		for {
			select {
			case <-ticker.C():
				mu.Lock()
				if !closed {
					emitLocked(w.clock.Now())
				}
				mu.Unlock()
			case <-stop:
				return
			}
		}
	}()

	ok := attach(ctx, in, out, Observer[T]{
		OnEvent: func(e Event[T]) {
			mu.Lock()
			if !closed {
				items = append(items, e.Value)
			}
			mu.Unlock()
		},
		OnError: func(err error) {
			mu.Lock()
			closed = true
			items = nil
			_ = out.Fail(wrapUpstream(in.Name(), err))
			mu.Unlock()
			halt()
		},
		OnComplete: func() {
			mu.Lock()
			closed = true
			emitLocked(w.clock.Now())
			_ = out.Complete()
			mu.Unlock()
			halt()
		},
	})
	releaseWith(ctx, out, ok, func() {
		mu.Lock()
		closed = true
		items = nil
		mu.Unlock()
		halt()
	})

	return out
}

// Name returns the processor name.
func (w *TimeWindow[T]) Name() string {
	return w.name
}
