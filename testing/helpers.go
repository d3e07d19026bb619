// Package testing provides test utilities for reactz pipelines.
package testing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/zoobzio/reactz"
)

// DefaultTimeout bounds how long the helpers wait for a channel to finish.
const DefaultTimeout = 2 * time.Second

// Collect subscribes to ch and returns every value it delivers together with
// its terminal error, giving up after DefaultTimeout.
func Collect[T any](t *testing.T, ctx context.Context, ch *reactz.Channel[T]) ([]T, error) {
	t.Helper()
	return CollectWithTimeout(t, ctx, ch, DefaultTimeout)
}

// CollectWithTimeout is Collect with an explicit timeout. On timeout the
// subscription is cancelled and the values received so far are returned
// with an error wrapping reactz.ErrTimeout.
func CollectWithTimeout[T any](t *testing.T, ctx context.Context, ch *reactz.Channel[T], timeout time.Duration) ([]T, error) {
	t.Helper()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results, err := ch.Results(ctx)
	if err != nil {
		t.Fatalf("subscribe %s: %v", ch.Name(), err)
	}

	var (
		values []T
		last   error
	)
	for r := range results {
		if r.IsError() {
			last = r.Err()
			continue
		}
		values = append(values, r.Value())
	}

	if last == nil && ctx.Err() != nil {
		last = fmt.Errorf("%s did not finish within %v: %w", ch.Name(), timeout, reactz.ErrTimeout)
	}
	return values, last
}

// SendValues emits values into ch in order and completes it.
func SendValues[T any](t *testing.T, ctx context.Context, ch *reactz.Channel[T], values ...T) {
	t.Helper()

	for _, v := range values {
		if err := ch.Emit(ctx, v); err != nil {
			t.Fatalf("emit %v on %s: %v", v, ch.Name(), err)
		}
	}
	if err := ch.Complete(); err != nil {
		t.Fatalf("complete %s: %v", ch.Name(), err)
	}
}

// AssertValues verifies got equals want element by element.
func AssertValues[T comparable](t *testing.T, got, want []T) {
	t.Helper()

	if len(got) != len(want) {
		t.Errorf("expected %d values %v, got %d values %v", len(want), want, len(got), got)
		return
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("value %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}
