package reactz

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a token bucket holding up to burst tokens and refilling one
// token per interval. Callers finding the bucket empty queue for the next
// token in strict FIFO order rather than failing.
//
//nolint:govet // fieldalignment: struct layout optimized for readability
type RateLimiter struct {
	interval time.Duration
	burst    int
	clock    Clock

	mu      sync.Mutex
	tokens  int
	last    time.Time
	waiters []*tokenWaiter
	timer   Timer
	gen     uint64 // Identifies the armed refill timer.
}

type tokenWaiter struct {
	ready   chan struct{}
	granted bool
}

// NewRateLimiter creates a limiter with a full bucket.
//
// Example:
//
//	// 10 requests per second with bursts of up to 5
//	limiter := reactz.NewRateLimiter(100*time.Millisecond, 5, reactz.RealClock)
//	if err := limiter.Wait(ctx); err != nil {
//		return err
//	}
//
// Parameters:
//   - interval: Time to refill one token
//   - burst: Bucket capacity, at least 1
//   - clock: Clock interface for time operations
func NewRateLimiter(interval time.Duration, burst int, clock Clock) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		interval: interval,
		burst:    burst,
		clock:    clock,
		tokens:   burst,
		last:     clock.Now(),
	}
}

// Wait takes one token, blocking until one is available or ctx ends.
// Waiters are served in arrival order.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	rl.mu.Lock()
	rl.refillLocked(rl.clock.Now())
	if len(rl.waiters) == 0 && rl.tokens > 0 {
		rl.tokens--
		rl.mu.Unlock()
		return nil
	}

	w := &tokenWaiter{ready: make(chan struct{})}
	rl.waiters = append(rl.waiters, w)
	rl.scheduleLocked()
	rl.mu.Unlock()

	select {
	case <-w.ready:
		return nil
	case <-ctx.Done():
		rl.mu.Lock()
		defer rl.mu.Unlock()
		if w.granted {
			return nil
		}
		for i, other := range rl.waiters {
			if other == w {
				rl.waiters = append(rl.waiters[:i], rl.waiters[i+1:]...)
				break
			}
		}
		if len(rl.waiters) == 0 && rl.timer != nil {
			rl.timer.Stop()
			rl.timer = nil
			rl.gen++
		}
		return ctx.Err()
	}
}

// Available returns the number of tokens that can be taken without waiting.
func (rl *RateLimiter) Available() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refillLocked(rl.clock.Now())
	if len(rl.waiters) > 0 {
		return 0
	}
	return rl.tokens
}

// Waiting returns the number of queued callers.
func (rl *RateLimiter) Waiting() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.waiters)
}

func (rl *RateLimiter) refillLocked(now time.Time) {
	if rl.interval <= 0 {
		rl.tokens = rl.burst
		rl.last = now
		return
	}
	if n := int(now.Sub(rl.last) / rl.interval); n > 0 {
		rl.tokens += n
		rl.last = rl.last.Add(time.Duration(n) * rl.interval)
	}
	if rl.tokens >= rl.burst {
		rl.tokens = rl.burst
		rl.last = now
	}
}

// scheduleLocked hands out available tokens to queued waiters and arms a
// timer for the next refill while waiters remain.
func (rl *RateLimiter) scheduleLocked() {
	now := rl.clock.Now()
	rl.refillLocked(now)

	for len(rl.waiters) > 0 && rl.tokens > 0 {
		w := rl.waiters[0]
		rl.waiters = rl.waiters[1:]
		rl.tokens--
		w.granted = true
		close(w.ready)
	}

	if len(rl.waiters) == 0 || rl.timer != nil {
		return
	}
	delay := rl.last.Add(rl.interval).Sub(now)
	rl.gen++
	g := rl.gen
	rl.timer = rl.clock.AfterFunc(delay, func() {
		// Clock callbacks may run while the clock holds its own lock,
		// so the refill, which reads the clock, runs on its own goroutine.
		go rl.refillTimer(g)
	})
}

func (rl *RateLimiter) refillTimer(g uint64) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if g != rl.gen {
		return
	}
	rl.timer = nil
	rl.scheduleLocked()
}

// RateLimit delays events so they pass a RateLimiter in order. Waiting holds
// back the upstream delivery, so a full bucket applies backpressure.
type RateLimit[T any] struct {
	name    string
	limiter *RateLimiter
}

// NewRateLimit creates a stage taking one token of limiter per event.
// Several stages may share a limiter.
//
// Example:
//
//	limiter := reactz.NewRateLimiter(time.Second, 10, reactz.RealClock)
//	paced := reactz.NewRateLimit[Request](limiter).Process(ctx, requests)
func NewRateLimit[T any](limiter *RateLimiter) *RateLimit[T] {
	return &RateLimit[T]{
		name:    "rate-limit",
		limiter: limiter,
	}
}

// WithName sets a custom name for this processor.
func (r *RateLimit[T]) WithName(name string) *RateLimit[T] {
	r.name = name
	return r
}

// Process forwards every event of in once it obtained a token.
func (r *RateLimit[T]) Process(ctx context.Context, in *Channel[T]) *Channel[T] {
	out := newStageOutput[T, T](r.name, in)
	onError, onComplete := forward(in, out)
	waitCtx, cancel := context.WithCancel(ctx)

	ok := attach(ctx, in, out, Observer[T]{
		OnEvent: func(e Event[T]) {
			if err := r.limiter.Wait(waitCtx); err != nil {
				return
			}
			_ = out.Emit(ctx, e.Value)
		},
		OnError: func(err error) {
			cancel()
			onError(err)
		},
		OnComplete: func() {
			cancel()
			onComplete()
		},
	})
	releaseWith(ctx, out, ok, cancel)

	return out
}

// Name returns the processor name.
func (r *RateLimit[T]) Name() string {
	return r.name
}
