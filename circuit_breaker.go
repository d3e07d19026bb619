package reactz

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// State represents the current state of the circuit breaker.
type State int

const (
	// StateClosed is the normal operating state where requests pass through.
	StateClosed State = iota
	// StateOpen is when the circuit is failing and requests are rejected.
	StateOpen
	// StateHalfOpen is when the circuit is testing if the downstream service has recovered.
	StateHalfOpen
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitStats contains statistics about the circuit breaker's operation.
type CircuitStats struct { //nolint:govet // logical field grouping preferred over memory optimization
	Requests            int64     // Total admitted requests.
	Failures            int64     // Total failures.
	Successes           int64     // Total successes.
	Rejections          int64     // Requests rejected while open.
	ConsecutiveFailures int64     // Current consecutive failure count.
	LastFailureTime     time.Time // Time of last failure.
	LastStateChange     time.Time // Time of last transition.
	State               State     // Current state.
}

// CircuitBreaker implements the circuit breaker pattern.
// It protects an operation from cascading failures by counting consecutive
// failures and temporarily rejecting calls once a threshold is reached.
//
// The circuit breaker has three states:
//   - Closed: Normal operation, calls pass through. Reaching the failure
//     threshold of consecutive failures opens the circuit.
//   - Open: Calls are rejected with ErrCircuitOpen without running the
//     operation. After the reset timeout the circuit becomes half-open.
//   - Half-Open: Exactly one trial call is admitted. Success closes the
//     circuit and resets the counter; failure opens it again and restarts
//     the timeout.
//
// The Open to Half-Open transition is evaluated on access, so an idle
// breaker owns no timers.
//
// When to use:
//   - Protecting external service calls from overload.
//   - Implementing fail-fast behavior for unreliable services.
//   - Reducing load on struggling downstream systems.
//
// Example:
//
//	breaker := reactz.NewCircuitBreaker(5, 30*time.Second, reactz.RealClock).
//		WithName("payments").
//		OnStateChange(func(from, to reactz.State) {
//			log.Info().Stringer("from", from).Stringer("to", to).Msg("breaker")
//		})
//
//	err := breaker.Execute(ctx, func(ctx context.Context) error {
//		return client.Charge(ctx, order)
//	})
//	if errors.Is(err, reactz.ErrCircuitOpen) {
//		// fail fast
//	}
type CircuitBreaker struct { //nolint:govet // logical field grouping preferred over memory optimization
	name             string
	failureThreshold int64
	resetTimeout     time.Duration
	clock            Clock

	mu       sync.Mutex
	state    State
	openedAt time.Time
	trial    bool // A half-open trial is in flight.
	stats    CircuitStats

	// Callbacks.
	onStateChange func(from, to State)
	onOpen        func(stats CircuitStats)
}

// NewCircuitBreaker creates a closed circuit breaker.
//
// Parameters:
//   - failureThreshold: Consecutive failures that open the circuit, at least 1.
//   - resetTimeout: Time spent open before a trial call is admitted.
//   - clock: Clock interface for time operations
//
// Returns a new CircuitBreaker with fluent configuration methods.
func NewCircuitBreaker(failureThreshold int, resetTimeout time.Duration, clock Clock) *CircuitBreaker {
	if failureThreshold < 1 {
		failureThreshold = 1
	}
	return &CircuitBreaker{
		name:             "circuit-breaker",
		failureThreshold: int64(failureThreshold),
		resetTimeout:     resetTimeout,
		clock:            clock,
		state:            StateClosed,
		stats:            CircuitStats{LastStateChange: clock.Now()},
	}
}

// WithName sets a custom name used in errors and logs.
func (cb *CircuitBreaker) WithName(name string) *CircuitBreaker {
	cb.name = name
	return cb
}

// OnStateChange sets a callback invoked after every state transition.
func (cb *CircuitBreaker) OnStateChange(fn func(from, to State)) *CircuitBreaker {
	cb.onStateChange = fn
	return cb
}

// OnOpen sets a callback invoked with a statistics snapshot whenever the
// circuit opens.
func (cb *CircuitBreaker) OnOpen(fn func(stats CircuitStats)) *CircuitBreaker {
	cb.onOpen = fn
	return cb
}

// Allow asks permission to run one operation. On success the caller must
// report the outcome exactly once through done; a nil error counts as a
// success. When the circuit rejects the call, err wraps ErrCircuitOpen.
func (cb *CircuitBreaker) Allow() (done func(error), err error) {
	cb.mu.Lock()
	now := cb.clock.Now()
	changes := cb.advanceLocked(now)

	switch {
	case cb.state == StateOpen, cb.state == StateHalfOpen && cb.trial:
		cb.stats.Rejections++
		cb.mu.Unlock()
		cb.notify(changes)
		return nil, fmt.Errorf("%s: %w", cb.name, ErrCircuitOpen)
	case cb.state == StateHalfOpen:
		cb.trial = true
	}
	cb.stats.Requests++
	cb.mu.Unlock()
	cb.notify(changes)

	var once sync.Once
	return func(result error) {
		once.Do(func() { cb.record(result) })
	}, nil
}

// Execute runs fn if the circuit admits it and records the outcome.
// A rejected call returns an error wrapping ErrCircuitOpen without running fn.
// A panic in fn is recorded as a failure and returned as an error.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done, err := cb.Allow()
	if err != nil {
		return err
	}
	err = cb.call(ctx, fn)
	done(err)
	return err
}

func (cb *CircuitBreaker) call(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recoverError(r)
		}
	}()
	return fn(ctx)
}

func (cb *CircuitBreaker) record(result error) {
	cb.mu.Lock()
	now := cb.clock.Now()
	var changes []transition

	if result == nil {
		cb.stats.Successes++
		cb.stats.ConsecutiveFailures = 0
		if cb.state == StateHalfOpen {
			cb.trial = false
			changes = append(changes, cb.setStateLocked(StateClosed, now))
		}
	} else {
		cb.stats.Failures++
		cb.stats.ConsecutiveFailures++
		cb.stats.LastFailureTime = now
		switch cb.state {
		case StateHalfOpen:
			cb.trial = false
			changes = append(changes, cb.setStateLocked(StateOpen, now))
		case StateClosed:
			if cb.stats.ConsecutiveFailures >= cb.failureThreshold {
				changes = append(changes, cb.setStateLocked(StateOpen, now))
			}
		}
	}
	cb.mu.Unlock()
	cb.notify(changes)
}

// transition is a state change waiting to be reported outside the lock.
type transition struct {
	from, to State
	stats    CircuitStats
}

// advanceLocked moves an expired Open circuit to HalfOpen.
func (cb *CircuitBreaker) advanceLocked(now time.Time) []transition {
	if cb.state == StateOpen && now.Sub(cb.openedAt) >= cb.resetTimeout {
		return []transition{cb.setStateLocked(StateHalfOpen, now)}
	}
	return nil
}

func (cb *CircuitBreaker) setStateLocked(to State, now time.Time) transition {
	from := cb.state
	cb.state = to
	cb.stats.State = to
	cb.stats.LastStateChange = now
	if to == StateOpen {
		cb.openedAt = now
	}
	if to == StateClosed {
		cb.stats.ConsecutiveFailures = 0
	}
	return transition{from: from, to: to, stats: cb.stats}
}

func (cb *CircuitBreaker) notify(changes []transition) {
	for _, t := range changes {
		Logger().Info().
			Str("stage", cb.name).
			Stringer("from", t.from).
			Stringer("to", t.to).
			Int64("consecutive_failures", t.stats.ConsecutiveFailures).
			Msg("circuit breaker state changed")
		if cb.onStateChange != nil {
			cb.onStateChange(t.from, t.to)
		}
		if t.to == StateOpen && cb.onOpen != nil {
			cb.onOpen(t.stats)
		}
	}
}

// State returns the current state, applying an elapsed reset timeout.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	changes := cb.advanceLocked(cb.clock.Now())
	state := cb.state
	cb.mu.Unlock()
	cb.notify(changes)
	return state
}

// Stats returns a snapshot of the breaker statistics.
func (cb *CircuitBreaker) Stats() CircuitStats {
	cb.mu.Lock()
	changes := cb.advanceLocked(cb.clock.Now())
	stats := cb.stats
	stats.State = cb.state
	cb.mu.Unlock()
	cb.notify(changes)
	return stats
}

// Reset forces the circuit closed and clears the failure counter.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	var changes []transition
	cb.trial = false
	if cb.state != StateClosed {
		changes = append(changes, cb.setStateLocked(StateClosed, cb.clock.Now()))
	}
	cb.stats.ConsecutiveFailures = 0
	cb.mu.Unlock()
	cb.notify(changes)
}

// Name returns the breaker name.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Protect applies a fallible operation to every event through a circuit
// breaker. Failures and rejections do not terminate the stream: they are
// emitted in-band as error Results, so the consumer decides how to recover.
// Upstream errors still terminate the output.
//
//nolint:govet // fieldalignment: struct layout optimized for readability
type Protect[In, Out any] struct {
	name    string
	breaker *CircuitBreaker
	fn      func(context.Context, In) (Out, error)
}

// NewProtect creates a stage calling fn through breaker for every event.
//
// Example:
//
//	breaker := reactz.NewCircuitBreaker(3, 10*time.Second, reactz.RealClock)
//	results := reactz.NewProtect(breaker, lookupPrice).Process(ctx, skus)
func NewProtect[In, Out any](breaker *CircuitBreaker, fn func(context.Context, In) (Out, error)) *Protect[In, Out] {
	return &Protect[In, Out]{
		name:    "protect",
		breaker: breaker,
		fn:      fn,
	}
}

// WithName sets a custom name for this processor.
func (p *Protect[In, Out]) WithName(name string) *Protect[In, Out] {
	p.name = name
	return p
}

// Process calls the protected operation for every event of in.
func (p *Protect[In, Out]) Process(ctx context.Context, in *Channel[In]) *Channel[Result[Out]] {
	out := newStageOutput[In, Result[Out]](p.name, in)
	onError, onComplete := forward(in, out)

	attach(ctx, in, out, Observer[In]{
		OnEvent: func(e Event[In]) {
			var value Out
			err := p.breaker.Execute(ctx, func(ctx context.Context) error {
				var err error
				value, err = p.fn(ctx, e.Value)
				return err
			})
			if err != nil {
				_ = out.Emit(ctx, NewError[Out](NewUpstreamError(p.name, e.Value, err)))
				return
			}
			_ = out.Emit(ctx, NewSuccess(value))
		},
		OnError:    onError,
		OnComplete: onComplete,
	})

	return out
}

// Name returns the processor name.
func (p *Protect[In, Out]) Name() string {
	return p.name
}
