package reactz

import (
	"context"
	"sync"
	"time"
)

// Dedupe removes duplicate events from a stream based on a key function.
// Unlike Distinct, it remembers every key seen within the TTL, not just the
// previous one.
//
// Every application of a Dedupe keeps its own key cache. ProcessWithCache
// returns that cache so entries can be invalidated explicitly; Process
// keeps it private. Expired keys are pruned as events arrive.
//
//nolint:govet // fieldalignment: struct layout optimized for readability
type Dedupe[T any, K comparable] struct {
	name    string
	keyFunc func(T) K
	ttl     time.Duration
	clock   Clock
}

// NewDedupe creates a processor that filters out duplicate events.
// The keyFunc extracts a comparable key from each event for deduplication.
// The ttl (time-to-live) determines how long to remember seen keys.
//
// When to use:
//   - Remove duplicate events or messages
//   - Implement idempotency in stream processing
//   - Prevent duplicate notifications
//
// Example:
//
//	// Deduplicate events by ID with 5-minute memory
//	dedupe := reactz.NewDedupe(func(e Message) string {
//		return e.ID
//	}, 5*time.Minute, reactz.RealClock)
//
//	unique, cache := dedupe.ProcessWithCache(ctx, messages)
//
//	// Allow a message to be redelivered after a manual replay
//	cache.Forget(id)
func NewDedupe[T any, K comparable](keyFunc func(T) K, ttl time.Duration, clock Clock) *Dedupe[T, K] {
	return &Dedupe[T, K]{
		name:    "dedupe",
		keyFunc: keyFunc,
		ttl:     ttl,
		clock:   clock,
	}
}

// WithName sets a custom name for this processor.
func (d *Dedupe[T, K]) WithName(name string) *Dedupe[T, K] {
	d.name = name
	return d
}

// Process forwards events whose key has not been seen within the TTL.
func (d *Dedupe[T, K]) Process(ctx context.Context, in *Channel[T]) *Channel[T] {
	out, _ := d.ProcessWithCache(ctx, in)
	return out
}

// ProcessWithCache is Process that also returns the key cache of this
// application.
func (d *Dedupe[T, K]) ProcessWithCache(ctx context.Context, in *Channel[T]) (*Channel[T], *DedupeCache[K]) {
	out := newStageOutput[T, T](d.name, in)
	onError, onComplete := forward(in, out)
	cache := newDedupeCache[K](d.ttl, d.clock)

	attach(ctx, in, out, Observer[T]{
		OnEvent: func(e Event[T]) {
			key, err := d.key(e.Value)
			if err != nil {
				_ = out.Fail(NewUpstreamError(d.name, e.Value, err))
				in.Cancel()
				return
			}
			if cache.admit(key, d.clock.Now()) {
				_ = out.Emit(ctx, e.Value)
			}
		},
		OnError:    onError,
		OnComplete: onComplete,
	})

	return out, cache
}

func (d *Dedupe[T, K]) key(v T) (k K, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recoverError(r)
		}
	}()
	return d.keyFunc(v), nil
}

// Name returns the processor name.
func (d *Dedupe[T, K]) Name() string {
	return d.name
}

// DedupeCache holds the keys one Dedupe application has seen.
type DedupeCache[K comparable] struct {
	ttl   time.Duration
	clock Clock

	mu        sync.Mutex
	seen      map[K]time.Time
	lastPrune time.Time
}

func newDedupeCache[K comparable](ttl time.Duration, clock Clock) *DedupeCache[K] {
	return &DedupeCache[K]{
		ttl:   ttl,
		clock: clock,
		seen:  make(map[K]time.Time),
	}
}

func (c *DedupeCache[K]) admit(key K, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if now.Sub(c.lastPrune) >= c.ttl {
		c.pruneLocked(now)
	}

	if last, ok := c.seen[key]; ok && now.Sub(last) < c.ttl {
		return false
	}
	c.seen[key] = now
	return true
}

func (c *DedupeCache[K]) pruneLocked(now time.Time) {
	for key, last := range c.seen {
		if now.Sub(last) >= c.ttl {
			delete(c.seen, key)
		}
	}
	c.lastPrune = now
}

// Forget removes key from the cache so its next occurrence passes.
func (c *DedupeCache[K]) Forget(key K) {
	c.mu.Lock()
	delete(c.seen, key)
	c.mu.Unlock()
}

// Reset clears the whole cache.
func (c *DedupeCache[K]) Reset() {
	c.mu.Lock()
	c.seen = make(map[K]time.Time)
	c.mu.Unlock()
}

// Len returns the number of keys currently remembered.
func (c *DedupeCache[K]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pruneLocked(c.clock.Now())
	return len(c.seen)
}
