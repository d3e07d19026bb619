package reactz

import "sync/atomic"

// Subscription is a consumer's handle on a Channel. It owns no data: it only
// tracks pause state and controls cancellation of the attachment.
type Subscription struct {
	id     string
	paused atomic.Bool
	done   chan struct{}
	cancel func()
	wake   func()
}

// ID returns the unique subscription identifier.
func (s *Subscription) ID() string {
	return s.id
}

// Cancel detaches the consumer and discards buffered events. For a
// single-subscription channel this also cancels the upstream producer.
// Cancel is idempotent.
func (s *Subscription) Cancel() {
	s.cancel()
}

// Pause stops delivery. Subsequent events are buffered by the channel up to
// its capacity, beyond which its OverflowPolicy applies.
func (s *Subscription) Pause() {
	s.paused.Store(true)
}

// Resume restarts delivery, draining the buffer in FIFO order.
func (s *Subscription) Resume() {
	if s.paused.Swap(false) {
		s.wake()
	}
}

// Paused reports whether delivery is paused.
func (s *Subscription) Paused() bool {
	return s.paused.Load()
}

// Done is closed when delivery has ended, either after the terminal
// callback returned or after cancellation.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}
