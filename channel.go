package reactz

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

type channelState int

const (
	stateOpen channelState = iota
	stateCompleted
	stateFailed
	stateCancelled
)

// Channel is an ordered, single-subscription conduit of events from one
// producer to one consumer. The producer side is Emit, Fail and Complete;
// the consumer side is Subscribe.
//
// Events emitted before the consumer attaches are buffered and delivered on
// attach. The buffer is unbounded unless WithCapacity is set, in which case
// the OverflowPolicy decides what happens when it is full.
//
// A Channel reaches exactly one terminal condition: completed, failed or
// cancelled. Completion and failure are delivered after every buffered event
// (failure may discard them, see WithDiscardOnError); cancellation discards
// buffered events immediately and runs every OnCancel hook once, which is how
// operators propagate cancellation upstream.
//
// Configure a Channel with its fluent With* methods before handing it to a
// producer or consumer.
//
//nolint:govet // fieldalignment: struct layout optimized for readability
type Channel[T any] struct {
	name           string
	clock          Clock
	capacity       int
	overflow       OverflowPolicy
	discardOnError bool
	onDrop         func(Event[T])

	mu         sync.Mutex
	signal     chan struct{}
	queue      []Event[T]
	seq        uint64
	state      channelState
	err        error
	subscribed bool
	inflight   bool
	onCancel   []func()

	done     chan struct{}
	doneOnce sync.Once
}

// NewChannel creates an open, unbounded channel using the real clock.
//
// Example:
//
//	// Bounded channel that drops the oldest event when its consumer lags
//	ch := reactz.NewChannel[Reading]().
//		WithName("sensor").
//		WithCapacity(100).
//		WithOverflow(reactz.OverflowDropOldest)
//
//	go func() {
//		for r := range readings {
//			if err := ch.Emit(ctx, r); err != nil {
//				return // consumer cancelled
//			}
//		}
//		_ = ch.Complete()
//	}()
func NewChannel[T any]() *Channel[T] {
	return &Channel[T]{
		name:     "channel",
		clock:    RealClock,
		overflow: OverflowBlock,
		signal:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// WithName sets a custom name used in errors and logs.
func (c *Channel[T]) WithName(name string) *Channel[T] {
	c.name = name
	return c
}

// WithClock sets the clock used to timestamp events.
func (c *Channel[T]) WithClock(clock Clock) *Channel[T] {
	if clock != nil {
		c.clock = clock
	}
	return c
}

// WithCapacity bounds the number of buffered, undelivered events.
// Zero or a negative value means unbounded.
func (c *Channel[T]) WithCapacity(capacity int) *Channel[T] {
	c.capacity = capacity
	return c
}

// WithOverflow sets the policy applied when a bounded buffer is full.
// Defaults to OverflowBlock.
func (c *Channel[T]) WithOverflow(policy OverflowPolicy) *Channel[T] {
	if policy == "" {
		policy = OverflowBlock
	}
	c.overflow = policy
	return c
}

// WithDiscardOnError makes Fail drop any buffered events so the error is
// delivered next. By default buffered events are delivered first.
func (c *Channel[T]) WithDiscardOnError(discard bool) *Channel[T] {
	c.discardOnError = discard
	return c
}

// OnDrop sets a callback invoked for every event discarded by the
// OverflowDropNewest or OverflowDropOldest policies.
func (c *Channel[T]) OnDrop(fn func(Event[T])) *Channel[T] {
	c.onDrop = fn
	return c
}

// OnCancel registers a hook run once when the channel is cancelled.
// If the channel is already cancelled the hook runs immediately.
func (c *Channel[T]) OnCancel(fn func()) *Channel[T] {
	c.mu.Lock()
	if c.state == stateCancelled {
		c.mu.Unlock()
		fn()
		return c
	}
	c.onCancel = append(c.onCancel, fn)
	c.mu.Unlock()
	return c
}

// Name returns the channel name.
func (c *Channel[T]) Name() string {
	return c.name
}

// Emit appends value to the channel. It returns ErrChannelClosed once the
// channel is completed, failed or cancelled. With OverflowBlock and a full
// buffer, Emit waits for space or for ctx to end.
func (c *Channel[T]) Emit(ctx context.Context, value T) error {
	c.mu.Lock()
	for {
		if c.state != stateOpen {
			c.mu.Unlock()
			return fmt.Errorf("emit on %s: %w", c.name, ErrChannelClosed)
		}

		if c.capacity <= 0 || len(c.queue) < c.capacity {
			c.queue = append(c.queue, c.stampLocked(value))
			c.notifyLocked()
			c.mu.Unlock()
			return nil
		}

		switch c.overflow {
		case OverflowDropNewest:
			dropped := c.stampLocked(value)
			c.mu.Unlock()
			c.dropped(dropped)
			return nil

		case OverflowDropOldest:
			dropped := c.popLocked()
			c.queue = append(c.queue, c.stampLocked(value))
			c.notifyLocked()
			c.mu.Unlock()
			c.dropped(dropped)
			return nil

		case OverflowError:
			err := fmt.Errorf("emit on %s: %w", c.name, ErrBufferOverflow)
			c.terminateLocked(stateFailed, err)
			c.mu.Unlock()
			return err

		default:
			wait := c.signal
			c.mu.Unlock()
			select {
			case <-wait:
			case <-ctx.Done():
				return fmt.Errorf("emit on %s: %w", c.name, ctx.Err())
			}
			c.mu.Lock()
		}
	}
}

// Fail terminates the channel with err. The consumer receives err exactly
// once, after any buffered events unless WithDiscardOnError is set.
func (c *Channel[T]) Fail(err error) error {
	if err == nil {
		return fmt.Errorf("fail %s: nil error", c.name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateOpen {
		return fmt.Errorf("fail %s: %w", c.name, ErrChannelClosed)
	}
	c.terminateLocked(stateFailed, err)
	return nil
}

// Complete terminates the channel normally. Buffered events are still
// delivered before completion is signaled.
func (c *Channel[T]) Complete() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateOpen {
		return fmt.Errorf("complete %s: %w", c.name, ErrChannelClosed)
	}
	c.terminateLocked(stateCompleted, nil)
	return nil
}

// Cancel discards buffered events, stops delivery and runs the OnCancel
// hooks. Cancelling twice, or after the terminal signal was delivered,
// is a no-op.
func (c *Channel[T]) Cancel() {
	c.mu.Lock()
	if c.state == stateCancelled || c.finished() {
		c.mu.Unlock()
		return
	}
	c.state = stateCancelled
	discarded := len(c.queue)
	c.queue = nil
	c.notifyLocked()
	hooks := c.onCancel
	c.onCancel = nil
	c.mu.Unlock()

	c.finish()
	Logger().Debug().
		Str("channel", c.name).
		Int("discarded", discarded).
		Msg("channel cancelled")

	for _, hook := range hooks {
		hook()
	}
}

// Subscribe attaches the single consumer. Events are delivered from a
// dedicated goroutine, one at a time, in production order. The subscription
// is cancelled when ctx ends.
func (c *Channel[T]) Subscribe(ctx context.Context, obs Observer[T]) (*Subscription, error) {
	c.mu.Lock()
	if c.state == stateCancelled {
		c.mu.Unlock()
		return nil, fmt.Errorf("subscribe %s: %w", c.name, ErrChannelClosed)
	}
	if c.subscribed {
		c.mu.Unlock()
		return nil, fmt.Errorf("subscribe %s: %w", c.name, ErrAlreadySubscribed)
	}
	c.subscribed = true
	c.mu.Unlock()

	sub := &Subscription{
		id:     uuid.NewString(),
		done:   make(chan struct{}),
		cancel: c.Cancel,
		wake:   c.wake,
	}
	stop := context.AfterFunc(ctx, sub.Cancel)

	go c.deliver(sub, obs, stop)

	return sub, nil
}

// deliver pumps buffered events to obs until a terminal condition.
func (c *Channel[T]) deliver(sub *Subscription, obs Observer[T], stop func() bool) {
	defer stop()
	defer close(sub.done)

	for {
		c.mu.Lock()
		for {
			if c.state == stateCancelled {
				c.mu.Unlock()
				return
			}
			if !sub.Paused() && (len(c.queue) > 0 || c.state != stateOpen) {
				break
			}
			wait := c.signal
			c.mu.Unlock()
			<-wait
			c.mu.Lock()
		}

		if len(c.queue) > 0 {
			ev := c.popLocked()
			c.inflight = true
			c.notifyLocked()
			c.mu.Unlock()

			if obs.OnEvent != nil {
				obs.OnEvent(ev)
			}

			c.mu.Lock()
			c.inflight = false
			c.mu.Unlock()
			continue
		}

		state, err := c.state, c.err
		c.mu.Unlock()

		if state == stateFailed {
			if obs.OnError != nil {
				obs.OnError(err)
			} else {
				Logger().Warn().Err(err).Str("channel", c.name).Msg("unhandled channel error")
			}
		} else if obs.OnComplete != nil {
			obs.OnComplete()
		}
		c.finish()
		return
	}
}

// Done is closed once the channel is finished: its terminal signal was
// delivered or it was cancelled. Producers can select on it to stop early.
func (c *Channel[T]) Done() <-chan struct{} {
	return c.done
}

// Err returns the terminal error of a failed channel, or nil.
func (c *Channel[T]) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == stateFailed {
		return c.err
	}
	return nil
}

// Cancelled reports whether the channel was cancelled.
func (c *Channel[T]) Cancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateCancelled
}

// Len returns the number of buffered, undelivered events.
func (c *Channel[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Drained reports whether the buffer is empty and no event callback is
// running.
func (c *Channel[T]) Drained() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue) == 0 && !c.inflight
}

func (c *Channel[T]) stampLocked(value T) Event[T] {
	c.seq++
	return Event[T]{Value: value, Seq: c.seq, Time: c.clock.Now()}
}

func (c *Channel[T]) popLocked() Event[T] {
	ev := c.queue[0]
	var zero Event[T]
	c.queue[0] = zero
	c.queue = c.queue[1:]
	return ev
}

func (c *Channel[T]) terminateLocked(state channelState, err error) {
	c.state = state
	c.err = err
	if state == stateFailed && c.discardOnError {
		c.queue = nil
	}
	c.notifyLocked()
}

// notifyLocked wakes every goroutine waiting on the current signal.
func (c *Channel[T]) notifyLocked() {
	close(c.signal)
	c.signal = make(chan struct{})
}

func (c *Channel[T]) wake() {
	c.mu.Lock()
	c.notifyLocked()
	c.mu.Unlock()
}

func (c *Channel[T]) finished() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Channel[T]) finish() {
	c.doneOnce.Do(func() { close(c.done) })
}

func (c *Channel[T]) dropped(ev Event[T]) {
	Logger().Debug().
		Str("channel", c.name).
		Uint64("seq", ev.Seq).
		Str("policy", string(c.overflow)).
		Msg("event dropped")
	if c.onDrop != nil {
		c.onDrop(ev)
	}
}
