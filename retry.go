package reactz

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Retry re-subscribes to a freshly created channel whenever the previous one
// fails, waiting an exponentially growing delay between attempts.
// Events already delivered by a failed attempt stay delivered; the output
// simply continues with the events of the next attempt.
//
// The delay before retry k (0-based) is baseDelay * 2^k, capped at maxDelay,
// and is optionally randomized. Any emitted event resets the retry counter
// and the backoff. Once maxRetries consecutive retries have failed, the
// last error terminates the output.
//
// Example:
//
//	// Reconnect to a feed up to 5 times, starting at 200ms
//	feed := reactz.NewRetry(func(ctx context.Context) *reactz.Channel[Quote] {
//		return dialQuotes(ctx, addr)
//	}, reactz.RealClock).
//		MaxRetries(5).
//		BaseDelay(200 * time.Millisecond).
//		Run(ctx)
//
// Performance characteristics:
//   - No overhead while the current attempt is healthy.
//   - Latency increases exponentially with consecutive failures.
type Retry[T any] struct { //nolint:govet // logical field grouping preferred over memory optimization
	factory    func(context.Context) *Channel[T]
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	withJitter bool
	name       string
	onError    func(error, int) bool // Custom retry logic: (error, retry) -> shouldRetry.
	clock      Clock
}

// NewRetry creates a Retry around a channel factory. The factory is called
// once per attempt and must return a new channel every time.
//
// Default configuration:
//   - MaxRetries: 3.
//   - BaseDelay: 100ms.
//   - MaxDelay: 30s.
//   - WithJitter: false.
//   - Name: "retry".
//
// Parameters:
//   - factory: Creates the channel for one attempt.
//   - clock: Clock interface for time operations
//
// Returns a new Retry with fluent configuration methods.
func NewRetry[T any](factory func(context.Context) *Channel[T], clock Clock) *Retry[T] {
	return &Retry[T]{
		factory:    factory,
		clock:      clock,
		maxRetries: 3,
		baseDelay:  100 * time.Millisecond,
		maxDelay:   30 * time.Second,
		name:       "retry",
	}
}

// MaxRetries sets how many consecutive retries follow a failure before the
// error is propagated. MaxRetries(0) disables retrying.
func (r *Retry[T]) MaxRetries(n int) *Retry[T] {
	if n < 0 {
		n = 0
	}
	r.maxRetries = n
	return r
}

// BaseDelay sets the base delay for exponential backoff.
// For example, with 100ms base: 100ms, 200ms, 400ms, 800ms...
func (r *Retry[T]) BaseDelay(delay time.Duration) *Retry[T] {
	if delay < 0 {
		delay = 0
	}
	r.baseDelay = delay
	return r
}

// MaxDelay sets the maximum delay between retry attempts.
func (r *Retry[T]) MaxDelay(delay time.Duration) *Retry[T] {
	if delay < 0 {
		delay = 0
	}
	r.maxDelay = delay
	return r
}

// WithJitter enables or disables jitter in retry delays.
// When enabled, each delay is randomized by up to 50% in either direction.
func (r *Retry[T]) WithJitter(enabled bool) *Retry[T] {
	r.withJitter = enabled
	return r
}

// WithName sets a custom name used in errors and logs.
func (r *Retry[T]) WithName(name string) *Retry[T] {
	r.name = name
	return r
}

// OnError sets a custom error classification function.
// The function receives the error and the number of the retry that would
// follow (starting at 1), and returns false to propagate the error at once.
// If not set, all errors are considered retryable.
//
// Example:
//
//	retry.OnError(func(err error, _ int) bool {
//		return !errors.Is(err, ErrUnauthorized)
//	})
func (r *Retry[T]) OnError(fn func(error, int) bool) *Retry[T] {
	r.onError = fn
	return r
}

func (r *Retry[T]) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.baseDelay
	b.Multiplier = 2
	b.MaxInterval = r.maxDelay
	b.MaxElapsedTime = 0
	b.RandomizationFactor = 0
	if r.withJitter {
		b.RandomizationFactor = 0.5
	}
	b.Clock = r.clock
	b.Reset()
	return b
}

// Run starts the first attempt and returns the combined output.
// Cancelling the output cancels the current attempt and any pending retry.
func (r *Retry[T]) Run(ctx context.Context) *Channel[T] {
	out := NewChannel[T]().WithName(r.name).WithClock(r.clock)
	b := r.newBackOff()

	var (
		mu       sync.Mutex
		current  *Channel[T]
		timer    Timer
		retries  int
		closed   bool
		attempt  func()
		giveUpOr func(src string, err error)
	)

	shutdown := func() {
		mu.Lock()
		closed = true
		if timer != nil {
			timer.Stop()
			timer = nil
		}
		cur := current
		mu.Unlock()
		if cur != nil {
			cur.Cancel()
		}
	}

	giveUpOr = func(src string, err error) {
		mu.Lock()
		if closed {
			mu.Unlock()
			return
		}
		if retries >= r.maxRetries || (r.onError != nil && !r.onError(err, retries+1)) {
			closed = true
			mu.Unlock()
			Logger().Warn().
				Str("stage", r.name).
				Int("attempt", retries+1).
				Err(err).
				Msg("retries exhausted")
			_ = out.Fail(wrapUpstream(src, err))
			return
		}
		retries++
		delay := b.NextBackOff()
		Logger().Warn().
			Str("stage", r.name).
			Int("attempt", retries).
			Dur("delay", delay).
			Err(err).
			Msg("retrying after failure")
		timer = r.clock.AfterFunc(delay, func() {
			// Off the clock's callback: the attempt subscribes and emits,
			// both of which read the clock.
			go attempt()
		})
		mu.Unlock()
	}

	attempt = func() {
		mu.Lock()
		if closed {
			mu.Unlock()
			return
		}
		mu.Unlock()

		src, err := r.create(ctx)
		if err != nil {
			giveUpOr(r.name, err)
			return
		}

		mu.Lock()
		if closed {
			mu.Unlock()
			src.Cancel()
			return
		}
		timer = nil
		current = src
		mu.Unlock()

		_, err = src.Subscribe(ctx, Observer[T]{
			OnEvent: func(e Event[T]) {
				mu.Lock()
				retries = 0
				b.Reset()
				mu.Unlock()
				_ = out.Emit(ctx, e.Value)
			},
			OnError: func(err error) {
				giveUpOr(src.Name(), err)
			},
			OnComplete: func() {
				mu.Lock()
				closed = true
				mu.Unlock()
				_ = out.Complete()
			},
		})
		if err != nil {
			giveUpOr(src.Name(), err)
		}
	}

	out.OnCancel(shutdown)
	context.AfterFunc(ctx, func() {
		shutdown()
		_ = out.Fail(wrapUpstream(r.name, ctx.Err()))
	})

	attempt()
	return out
}

// create calls the factory, converting a panic or a nil channel into an error.
func (r *Retry[T]) create(ctx context.Context) (ch *Channel[T], err error) {
	defer func() {
		if p := recover(); p != nil {
			err = recoverError(p)
		}
	}()
	ch = r.factory(ctx)
	if ch == nil {
		return nil, fmt.Errorf("%s: factory returned nil channel", r.name)
	}
	return ch, nil
}

// Name returns the retry name for debugging and monitoring.
func (r *Retry[T]) Name() string {
	return r.name
}
