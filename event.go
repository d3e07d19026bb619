package reactz

import (
	"fmt"
	"time"
)

// Event is a single immutable value travelling through a Channel.
// Seq is strictly increasing per channel, starting at 1, and Time is the
// arrival timestamp taken from the channel's clock when the value was emitted.
type Event[T any] struct {
	Time  time.Time
	Value T
	Seq   uint64
}

// String returns a human-readable representation of the event.
func (e Event[T]) String() string {
	return fmt.Sprintf("#%d %v @ %s", e.Seq, e.Value, e.Time.Format(time.RFC3339Nano))
}

// Observer is the callback set a consumer attaches to a Channel.
// Any callback may be nil. Callbacks of one subscription are never invoked
// concurrently with each other.
type Observer[T any] struct {
	// OnEvent receives every event in production order.
	OnEvent func(Event[T])

	// OnError receives the terminal error, at most once.
	OnError func(error)

	// OnComplete is called once when the channel completes normally.
	OnComplete func()
}

// OverflowPolicy defines how a bounded channel behaves when its buffer is full.
type OverflowPolicy string

const (
	// OverflowBlock blocks the producer until space is available, the
	// producer's context ends, or the channel is cancelled.
	OverflowBlock OverflowPolicy = "block"
	// OverflowDropNewest discards the incoming event.
	OverflowDropNewest OverflowPolicy = "drop-newest"
	// OverflowDropOldest evicts the oldest buffered event to make room.
	OverflowDropOldest OverflowPolicy = "drop-oldest"
	// OverflowError fails the channel with ErrBufferOverflow.
	OverflowError OverflowPolicy = "error"
)

// ParseOverflowPolicy converts a configuration string into an OverflowPolicy.
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch p := OverflowPolicy(s); p {
	case OverflowBlock, OverflowDropNewest, OverflowDropOldest, OverflowError:
		return p, nil
	case "":
		return OverflowBlock, nil
	default:
		return "", fmt.Errorf("unknown overflow policy %q", s)
	}
}
