package reactz

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// hub replicates one upstream channel into per-subscriber channels.
// Every subscriber owns an unbounded Channel with its own delivery
// goroutine, so a slow subscriber never delays the others.
//
//nolint:govet // fieldalignment: struct layout optimized for readability
type hub[T any] struct {
	name     string
	upstream *Channel[T]
	clock    Clock

	mu      sync.Mutex
	subs    map[string]*Channel[T]
	history []T
	size    int
	state   channelState
	err     error

	// onEmpty runs, outside the lock, when the last subscriber leaves.
	onEmpty func()
}

func newHub[T any](name string, upstream *Channel[T], replay int) *hub[T] {
	return &hub[T]{
		name:     name,
		upstream: upstream,
		clock:    upstream.clock,
		subs:     make(map[string]*Channel[T]),
		size:     replay,
	}
}

// start subscribes to the upstream. Upstream events are replicated to every
// current subscriber. Cancellation of the upstream or the end of ctx fails
// the subscribers.
func (h *hub[T]) start(ctx context.Context) error {
	_, err := h.upstream.Subscribe(ctx, Observer[T]{
		OnEvent: func(e Event[T]) {
			h.publish(ctx, e.Value)
		},
		OnError: func(err error) {
			h.terminate(wrapUpstream(h.upstream.Name(), err))
		},
		OnComplete: func() {
			h.terminate(nil)
		},
	})
	if err != nil {
		h.terminate(wrapUpstream(h.name, err))
		return err
	}
	h.upstream.OnCancel(func() {
		h.terminate(fmt.Errorf("%s: upstream %s cancelled: %w", h.name, h.upstream.Name(), ErrChannelClosed))
	})
	context.AfterFunc(ctx, func() {
		h.terminate(wrapUpstream(h.name, ctx.Err()))
	})
	return nil
}

func (h *hub[T]) publish(ctx context.Context, v T) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != stateOpen {
		return
	}
	if h.size > 0 {
		if len(h.history) == h.size {
			h.history = append(h.history[:0], h.history[1:]...)
		}
		h.history = append(h.history, v)
	}
	for _, sub := range h.subs {
		_ = sub.Emit(ctx, v)
	}
}

// terminate delivers completion (err == nil) or failure to every current
// subscriber. Only the first call has an effect.
func (h *hub[T]) terminate(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != stateOpen {
		return
	}
	h.err = err
	h.state = stateCompleted
	if err != nil {
		h.state = stateFailed
	}
	for _, sub := range h.subs {
		if err != nil {
			_ = sub.Fail(err)
		} else {
			_ = sub.Complete()
		}
	}
	Logger().Debug().
		Str("stage", h.name).
		Int("subscribers", len(h.subs)).
		AnErr("error", err).
		Msg("broadcast terminated")
}

// add registers a new subscriber channel, replaying history into it first.
// Once the hub has terminated, add returns the terminal state instead.
func (h *hub[T]) add() (*Channel[T], bool, error) {
	id := uuid.NewString()
	ch := NewChannel[T]().WithName(h.name + "/" + id).WithClock(h.clock)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != stateOpen {
		return nil, false, h.err
	}
	for _, v := range h.history {
		_ = ch.Emit(context.Background(), v)
	}
	h.subs[id] = ch
	ch.OnCancel(func() { h.remove(id) })
	return ch, true, nil
}

func (h *hub[T]) remove(id string) {
	h.mu.Lock()
	if _, ok := h.subs[id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.subs, id)
	empty := len(h.subs) == 0 && h.state == stateOpen
	onEmpty := h.onEmpty
	h.mu.Unlock()

	Logger().Debug().Str("stage", h.name).Str("subscriber", id).Msg("subscriber removed")
	if empty && onEmpty != nil {
		onEmpty()
	}
}

func (h *hub[T]) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// BroadcastChannel lets any number of consumers observe one channel.
// Each subscriber receives every event produced from the moment it attaches,
// in production order, independently of the other subscribers.
// Cancelling one subscription removes only that subscriber; the upstream
// keeps running until Close or its own termination.
type BroadcastChannel[T any] struct {
	hub *hub[T]
}

// NewBroadcast subscribes to in immediately and fans its events out to
// subscribers. Events produced while nobody is subscribed are lost.
//
// When to use:
//   - Several independent consumers of one live feed
//   - Publish-subscribe within a process
//
// Example:
//
//	prices := reactz.NewBroadcast(ctx, feed)
//
//	sub, err := prices.Subscribe(ctx, reactz.Observer[Price]{
//		OnEvent: func(e reactz.Event[Price]) { render(e.Value) },
//	})
//	if err != nil {
//		return err
//	}
//	defer sub.Cancel()
func NewBroadcast[T any](ctx context.Context, in *Channel[T]) *BroadcastChannel[T] {
	return newBroadcast(ctx, in, "broadcast", 0)
}

// NewReplay is NewBroadcast with the last n events replayed to every new
// subscriber before live events.
//
// Example:
//
//	// Late dashboards immediately see the last 10 readings
//	readings := reactz.NewReplay(ctx, sensor, 10)
func NewReplay[T any](ctx context.Context, in *Channel[T], n int) *BroadcastChannel[T] {
	return newBroadcast(ctx, in, "replay", n)
}

func newBroadcast[T any](ctx context.Context, in *Channel[T], name string, replay int) *BroadcastChannel[T] {
	h := newHub(name, in, replay)
	_ = h.start(ctx)
	return &BroadcastChannel[T]{hub: h}
}

// Subscribe attaches a new consumer. After the upstream has completed or
// failed, or after Close, it returns ErrChannelClosed.
func (b *BroadcastChannel[T]) Subscribe(ctx context.Context, obs Observer[T]) (*Subscription, error) {
	ch, ok, _ := b.hub.add()
	if !ok {
		return nil, fmt.Errorf("subscribe %s: %w", b.hub.name, ErrChannelClosed)
	}
	return ch.Subscribe(ctx, obs)
}

// Channel attaches a new consumer and returns its channel, for chaining
// further operators.
func (b *BroadcastChannel[T]) Channel() (*Channel[T], error) {
	ch, ok, _ := b.hub.add()
	if !ok {
		return nil, fmt.Errorf("subscribe %s: %w", b.hub.name, ErrChannelClosed)
	}
	return ch, nil
}

// Subscribers returns the number of attached subscribers.
func (b *BroadcastChannel[T]) Subscribers() int {
	return b.hub.count()
}

// Close cancels the upstream and completes every subscriber after its
// already-buffered events.
func (b *BroadcastChannel[T]) Close() {
	b.hub.terminate(nil)
	b.hub.upstream.Cancel()
}

// Name returns the broadcast name.
func (b *BroadcastChannel[T]) Name() string {
	return b.hub.name
}
