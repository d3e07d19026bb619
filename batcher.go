package reactz

import (
	"context"
	"sync"
	"time"
)

// Batcher collects events from a stream and groups them into batches based on size or time constraints.
// It emits a batch when either the maximum size is reached or the maximum latency expires,
// whichever comes first. This is useful for optimizing downstream operations that work more
// efficiently with groups of events rather than individual events.
//
// The latency window opens with the first event of a batch, so an idle stream
// emits nothing. A partial batch is flushed when the input completes and
// discarded on error or cancellation.
//
//nolint:govet // fieldalignment: struct layout optimized for readability
type Batcher[T any] struct {
	config BatchConfig
	name   string
	clock  Clock
}

// NewBatcher creates a processor that groups events into batches.
// Batches are emitted when either the size limit is reached OR the time limit expires,
// whichever comes first. This dual-trigger approach balances throughput with latency.
// A zero MaxSize or MaxLatency disables that trigger.
//
// When to use:
//   - Optimizing database writes with bulk operations
//   - Reducing API calls by batching requests
//   - Buffering events for periodic processing
//
// Example:
//
//	// Batch up to 1000 events or 5 seconds, whichever comes first
//	batcher := reactz.NewBatcher[Event](reactz.BatchConfig{
//		MaxSize:    1000,
//		MaxLatency: 5 * time.Second,
//	}, reactz.RealClock)
//
//	batches := batcher.Process(ctx, events)
//
// Parameters:
//   - config: Batch configuration with size and latency constraints
//   - clock: Clock interface for time operations
//
// Returns a new Batcher processor that groups events efficiently.
func NewBatcher[T any](config BatchConfig, clock Clock) *Batcher[T] {
	return &Batcher[T]{
		config: config,
		name:   "batcher",
		clock:  clock,
	}
}

// NewBatchByCount creates a Batcher emitting every n events.
// n is at least 1.
func NewBatchByCount[T any](n int) *Batcher[T] {
	if n < 1 {
		n = 1
	}
	return NewBatcher[T](BatchConfig{MaxSize: n}, RealClock).WithName("batch-by-count")
}

// NewBatchByTime creates a Batcher emitting whatever accumulated within
// duration of the first event of each batch.
func NewBatchByTime[T any](duration time.Duration, clock Clock) *Batcher[T] {
	return NewBatcher[T](BatchConfig{MaxLatency: duration}, clock).WithName("batch-by-time")
}

// WithName sets a custom name for this processor.
func (b *Batcher[T]) WithName(name string) *Batcher[T] {
	b.name = name
	return b
}

// Process groups the events of in into batches.
func (b *Batcher[T]) Process(ctx context.Context, in *Channel[T]) *Channel[[]T] {
	out := newStageOutput[T, []T](b.name, in)

	var (
		mu     sync.Mutex
		batch  []T
		timer  Timer
		gen    uint64
		closed bool
	)

	stopLocked := func() {
		if timer != nil {
			timer.Stop()
			timer = nil
		}
		gen++
	}
	flushLocked := func() {
		stopLocked()
		if len(batch) > 0 {
			_ = out.Emit(ctx, batch)
			batch = nil
		}
	}

	// Runs off the timer callback: emitting reads the clock.
	expire := func(g uint64) {
		mu.Lock()
		defer mu.Unlock()
		if closed || g != gen {
			return
		}
		timer = nil
		flushLocked()
	}

	ok := attach(ctx, in, out, Observer[T]{
		OnEvent: func(e Event[T]) {
			mu.Lock()
			defer mu.Unlock()
			if closed {
				return
			}

			batch = append(batch, e.Value)

			if b.config.MaxSize > 0 && len(batch) >= b.config.MaxSize {
				flushLocked()
				return
			}

			if len(batch) == 1 && b.config.MaxLatency > 0 {
				g := gen
				timer = b.clock.AfterFunc(b.config.MaxLatency, func() {
					go expire(g)
				})
			}
		},
		OnError: func(err error) {
			mu.Lock()
			defer mu.Unlock()
			closed = true
			stopLocked()
			batch = nil
			_ = out.Fail(wrapUpstream(in.Name(), err))
		},
		OnComplete: func() {
			mu.Lock()
			defer mu.Unlock()
			closed = true
			flushLocked()
			_ = out.Complete()
		},
	})
	releaseWith(ctx, out, ok, func() {
		mu.Lock()
		defer mu.Unlock()
		closed = true
		stopLocked()
		batch = nil
	})

	return out
}

// Name returns the processor name.
func (b *Batcher[T]) Name() string {
	return b.name
}
