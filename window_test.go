package reactz

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/zoobzio/clockz"
)

func windowsEqual(got, want [][]int) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if !equalSlices(got[i], want[i]) {
			return false
		}
	}
	return true
}

func TestCountWindow(t *testing.T) {
	tests := []struct {
		name     string
		size     int
		slide    int
		input    []int
		expected [][]int
	}{
		{
			name:     "tumbling",
			size:     3,
			slide:    3,
			input:    []int{1, 2, 3, 4, 5, 6, 7},
			expected: [][]int{{1, 2, 3}, {4, 5, 6}, {7}},
		},
		{
			name:     "sliding",
			size:     3,
			slide:    1,
			input:    []int{1, 2, 3, 4, 5},
			expected: [][]int{{1, 2, 3}, {2, 3, 4}, {3, 4, 5}},
		},
		{
			name:     "sliding with fresh tail",
			size:     4,
			slide:    2,
			input:    []int{1, 2, 3, 4, 5},
			expected: [][]int{{1, 2, 3, 4}, {3, 4, 5}},
		},
		{
			name:     "hopping",
			size:     2,
			slide:    3,
			input:    []int{1, 2, 3, 4, 5, 6, 7},
			expected: [][]int{{1, 2}, {4, 5}, {7}},
		},
		{
			name:     "empty input",
			size:     2,
			slide:    2,
			input:    nil,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			window := NewCountWindow[int](tt.size, tt.slide)
			outputs, err := collect(t, ctx, window.Process(ctx, FromSlice(tt.input...)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !windowsEqual(outputs, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, outputs)
			}
		})
	}
}

func TestCountWindow_DiscardsOnError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	boom := errors.New("boom")
	src := NewChannel[int]()
	emitAll(t, ctx, src, 1, 2, 3, 4)
	_ = src.Fail(boom)

	outputs, err := collect(t, ctx, NewCountWindow[int](3, 3).Process(ctx, src))
	if !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
	if !windowsEqual(outputs, [][]int{{1, 2, 3}}) {
		t.Errorf("expected partial window dropped, got %v", outputs)
	}
}

func TestTimeWindow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := clockz.NewFakeClock()
	start := clock.Now()
	src := NewChannel[string]().WithClock(clock)
	r := record(t, ctx, NewTimeWindow[string](time.Second, clock).Process(ctx, src))

	emitAll(t, ctx, src, "a", "b")
	waitDrained(t, src)
	clock.Advance(time.Second)
	r.waitLen(t, 1)

	emitAll(t, ctx, src, "c")
	waitDrained(t, src)
	clock.Advance(500 * time.Millisecond)
	_ = src.Complete()
	r.wait(t)

	windows := r.Values()
	if len(windows) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(windows))
	}

	first := windows[0]
	if !equalSlices(first.Items, []string{"a", "b"}) {
		t.Errorf("expected first window [a b], got %v", first.Items)
	}
	if !first.Start.Equal(start) || first.Duration() != time.Second {
		t.Errorf("expected first window [%v, +1s), got [%v, +%v)", start, first.Start, first.Duration())
	}

	last := windows[1]
	if last.Count() != 1 || last.Items[0] != "c" {
		t.Errorf("expected flushed window [c], got %v", last.Items)
	}
	if last.Duration() != 500*time.Millisecond {
		t.Errorf("expected partial window of 500ms, got %v", last.Duration())
	}
}

func TestTimeWindow_SkipsEmptyWindows(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := clockz.NewFakeClock()
	src := NewChannel[int]().WithClock(clock)
	r := record(t, ctx, NewTimeWindow[int](time.Second, clock).Process(ctx, src))

	clock.Advance(time.Second)
	clock.Advance(time.Second)
	emitAll(t, ctx, src, 1)
	waitDrained(t, src)
	_ = src.Complete()
	r.wait(t)

	windows := r.Values()
	if len(windows) != 1 || !equalSlices(windows[0].Items, []int{1}) {
		t.Errorf("expected a single window [1], got %v", windows)
	}
}

func TestTimeWindow_CancelReleasesTicker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := clockz.NewFakeClock()
	src := NewChannel[int]().WithClock(clock)
	r := record(t, ctx, NewTimeWindow[int](time.Second, clock).Process(ctx, src))

	emitAll(t, ctx, src, 1)
	r.sub.Cancel()
	r.wait(t)

	waitFor(t, "upstream cancellation", src.Cancelled)
	if len(r.Values()) != 0 {
		t.Errorf("expected pending window discarded, got %v", r.Values())
	}
}

func ExampleCountWindow() {
	ctx := context.Background()

	windows := NewCountWindow[int](3, 1).Process(ctx, FromSlice(1, 2, 3, 4, 5))
	results, _ := windows.Results(ctx)
	for r := range results {
		fmt.Println(r.Value())
	}

	// Output:
	// [1 2 3]
	// [2 3 4]
	// [3 4 5]
}
