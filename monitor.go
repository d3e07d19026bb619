package reactz

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// StreamStats contains statistics about events flowing through a monitored stream.
// It provides insights into processing rate and throughput for observability.
type StreamStats struct {
	// LastUpdate is the timestamp of this statistics snapshot
	LastUpdate time.Time
	// Count is the number of events processed since the last report
	Count int64
	// Total is the number of events processed since subscription
	Total int64
	// Rate is the average events per second since the last report
	Rate float64
}

// Monitor observes events passing through a stream and periodically reports statistics.
// It's a pass-through processor that doesn't modify the stream but provides visibility
// into stream performance and throughput.
//
//nolint:govet // fieldalignment: struct layout optimized for readability
type Monitor[T any] struct {
	name     string
	interval time.Duration
	onStats  func(StreamStats)
	clock    Clock
}

// NewMonitor creates a pass-through processor that observes stream performance.
// It periodically reports statistics about throughput and processing rate without
// modifying the stream data. A final report is made when the stream completes
// or fails.
//
// When to use:
//   - Production monitoring and alerting
//   - Performance debugging
//   - Identifying bottlenecks in pipelines
//
// Example:
//
//	// Monitor throughput every second
//	monitor := reactz.NewMonitor[Event](time.Second, func(stats reactz.StreamStats) {
//		log.Info().Float64("rate", stats.Rate).Int64("count", stats.Count).Msg("throughput")
//	}, reactz.RealClock)
//
//	monitored := monitor.Process(ctx, events)
//	// Events pass through unchanged while being observed
//
// Parameters:
//   - interval: How often to report statistics
//   - onStats: Callback function invoked with statistics at each interval
//   - clock: Clock interface for time operations
//
// Returns a new Monitor processor that observes stream performance.
func NewMonitor[T any](interval time.Duration, onStats func(StreamStats), clock Clock) *Monitor[T] {
	return &Monitor[T]{
		name:     "monitor",
		interval: interval,
		onStats:  onStats,
		clock:    clock,
	}
}

// WithName sets a custom name for this processor.
func (m *Monitor[T]) WithName(name string) *Monitor[T] {
	m.name = name
	return m
}

// Process forwards every event of in while counting it.
func (m *Monitor[T]) Process(ctx context.Context, in *Channel[T]) *Channel[T] {
	out := newStageOutput[T, T](m.name, in)

	var (
		count    atomic.Int64
		total    atomic.Int64
		lastTime atomic.Int64
		reportMu sync.Mutex
	)
	lastTime.Store(m.clock.Now().UnixNano())

	report := func() {
		reportMu.Lock()
		defer reportMu.Unlock()

		now := m.clock.Now()
		n := count.Swap(0)
		elapsed := now.Sub(time.Unix(0, lastTime.Swap(now.UnixNano()))).Seconds()

		var rate float64
		if elapsed > 0 {
			rate = float64(n) / elapsed
		}
		if m.onStats != nil {
			m.onStats(StreamStats{
				LastUpdate: now,
				Count:      n,
				Total:      total.Load(),
				Rate:       rate,
			})
		}
	}

	ticker := m.clock.NewTicker(m.interval)
	stop := make(chan struct{})
	var stopOnce sync.Once
	halt := func() {
		stopOnce.Do(func() {
			ticker.Stop()
			close(stop)
		})
	}

	go func() {
		for {
			select {
			case <-ticker.C():
				report()
			case <-stop:
				return
			}
		}
	}()

	ok := attach(ctx, in, out, Observer[T]{
		OnEvent: func(e Event[T]) {
			count.Add(1)
			total.Add(1)
			_ = out.Emit(ctx, e.Value)
		},
		OnError: func(err error) {
			halt()
			report()
			_ = out.Fail(wrapUpstream(in.Name(), err))
		},
		OnComplete: func() {
			halt()
			report()
			_ = out.Complete()
		},
	})
	releaseWith(ctx, out, ok, halt)

	return out
}

// Name returns the processor name.
func (m *Monitor[T]) Name() string {
	return m.name
}
