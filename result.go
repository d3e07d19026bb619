package reactz

import "context"

// Result represents either a successful value or an error.
// It lets recovery stages carry failures in-band as values instead of
// terminating their output, and bridges Channels to plain Go channels.
type Result[T any] struct {
	value T
	err   error
}

// NewSuccess creates a Result containing a successful value.
func NewSuccess[T any](value T) Result[T] {
	return Result[T]{value: value}
}

// NewError creates a Result containing an error.
func NewError[T any](err error) Result[T] {
	return Result[T]{err: err}
}

// IsError returns true if this Result contains an error.
func (r Result[T]) IsError() bool {
	return r.err != nil
}

// IsSuccess returns true if this Result contains a successful value.
func (r Result[T]) IsSuccess() bool {
	return r.err == nil
}

// Value returns the successful value.
// Panics if called on a Result containing an error - always check IsSuccess() first.
func (r Result[T]) Value() T {
	if r.err != nil {
		panic("called Value() on Result containing an error")
	}
	return r.value
}

// Err returns the error, or nil for a successful Result.
func (r Result[T]) Err() error {
	return r.err
}

// ValueOr returns the successful value if present, otherwise returns the fallback.
func (r Result[T]) ValueOr(fallback T) T {
	if r.err != nil {
		return fallback
	}
	return r.value
}

// Map applies a function to the value if this Result is successful.
// If this Result contains an error, returns the error unchanged.
func (r Result[T]) Map(fn func(T) T) Result[T] {
	if r.err != nil {
		return r
	}
	return NewSuccess(fn(r.value))
}

// Results subscribes to the channel and exposes it as a plain Go channel.
// Every event becomes a successful Result; a terminal error becomes a final
// error Result. The returned channel is closed when delivery ends.
//
// The returned channel is unbuffered, so a slow reader applies backpressure
// to the Channel. Readers that stop early must cancel ctx.
func (c *Channel[T]) Results(ctx context.Context) (<-chan Result[T], error) {
	out := make(chan Result[T])
	send := func(r Result[T]) {
		select {
		case out <- r:
		case <-ctx.Done():
		}
	}

	sub, err := c.Subscribe(ctx, Observer[T]{
		OnEvent: func(e Event[T]) { send(NewSuccess(e.Value)) },
		OnError: func(err error) { send(NewError[T](err)) },
	})
	if err != nil {
		return nil, err
	}

	go func() {
		<-sub.Done()
		close(out)
	}()

	return out, nil
}
