package reactz

import (
	"context"
	"sync"
	"testing"
	"time"
)

const testTimeout = 2 * time.Second

// recorder subscribes to a channel and records everything it delivers.
type recorder[T any] struct {
	mu        sync.Mutex
	values    []T
	err       error
	completed bool
	sub       *Subscription
}

func record[T any](t *testing.T, ctx context.Context, ch *Channel[T]) *recorder[T] {
	t.Helper()
	r := &recorder[T]{}
	sub, err := ch.Subscribe(ctx, Observer[T]{
		OnEvent: func(e Event[T]) {
			r.mu.Lock()
			r.values = append(r.values, e.Value)
			r.mu.Unlock()
		},
		OnError: func(err error) {
			r.mu.Lock()
			r.err = err
			r.mu.Unlock()
		},
		OnComplete: func() {
			r.mu.Lock()
			r.completed = true
			r.mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	r.sub = sub
	return r
}

func (r *recorder[T]) Values() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.values...)
}

func (r *recorder[T]) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *recorder[T]) Completed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completed
}

// wait blocks until delivery has ended.
func (r *recorder[T]) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.sub.Done():
	case <-time.After(testTimeout):
		t.Fatalf("timed out waiting for channel to finish, got %v", r.Values())
	}
}

// waitLen blocks until at least n values were delivered.
func (r *recorder[T]) waitLen(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(testTimeout)
	for {
		r.mu.Lock()
		got := len(r.values)
		r.mu.Unlock()
		if got >= n {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d values, got %v", n, r.Values())
		}
		time.Sleep(time.Millisecond)
	}
}

// collect subscribes to ch and waits for its terminal signal.
func collect[T any](t *testing.T, ctx context.Context, ch *Channel[T]) ([]T, error) {
	t.Helper()
	r := record(t, ctx, ch)
	r.wait(t)
	return r.Values(), r.Err()
}

// waitDrained blocks until every event buffered in ch has been handed to
// its subscriber.
func waitDrained[T any](t *testing.T, ch *Channel[T]) {
	t.Helper()
	deadline := time.Now().Add(testTimeout)
	for !ch.Drained() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s to drain", ch.Name())
		}
		time.Sleep(time.Millisecond)
	}
}

// waitFor polls cond until it holds.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(testTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func equalSlices[T comparable](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// emitAll emits values into ch, failing the test on error.
func emitAll[T any](t *testing.T, ctx context.Context, ch *Channel[T], values ...T) {
	t.Helper()
	for _, v := range values {
		if err := ch.Emit(ctx, v); err != nil {
			t.Fatalf("emit %v: %v", v, err)
		}
	}
}
