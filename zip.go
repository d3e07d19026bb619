package reactz

import (
	"context"
	"fmt"
	"sync"
)

// Pair holds one value from each of two combined channels.
type Pair[A, B any] struct {
	First  A
	Second B
}

// String returns a human-readable representation of the pair.
func (p Pair[A, B]) String() string {
	return fmt.Sprintf("(%v, %v)", p.First, p.Second)
}

// Zip pairs the n-th event of a with the n-th event of b.
//
// The shorter input wins: the output completes as soon as one side has
// completed and none of its values are waiting for a partner. Unpaired values
// on the longer side are discarded and that side is cancelled. An error from
// either side fails the output and cancels the other side.
//
// Example:
//
//	// Attach sequence numbers to lines
//	numbered := reactz.Zip(ctx, reactz.Interval(ctx, time.Millisecond, reactz.RealClock), lines)
func Zip[A, B any](ctx context.Context, a *Channel[A], b *Channel[B]) *Channel[Pair[A, B]] {
	out := NewChannel[Pair[A, B]]().WithName("zip").WithClock(a.clock)

	var (
		mu       sync.Mutex
		qa       []A
		qb       []B
		doneA    bool
		doneB    bool
		finished bool
	)

	cancelBoth := func() {
		a.Cancel()
		b.Cancel()
	}

	// settleLocked completes the output once a finished side is exhausted.
	settleLocked := func() bool {
		if finished {
			return false
		}
		if (doneA && len(qa) == 0) || (doneB && len(qb) == 0) {
			finished = true
			_ = out.Complete()
			return true
		}
		return false
	}

	failWith := func(name string, err error) {
		mu.Lock()
		if finished {
			mu.Unlock()
			return
		}
		finished = true
		_ = out.Fail(wrapUpstream(name, err))
		mu.Unlock()
		cancelBoth()
	}

	out.OnCancel(cancelBoth)
	context.AfterFunc(ctx, func() {
		_ = out.Fail(wrapUpstream(out.Name(), ctx.Err()))
	})

	_, errA := a.Subscribe(ctx, Observer[A]{
		OnEvent: func(e Event[A]) {
			mu.Lock()
			if finished {
				mu.Unlock()
				return
			}
			if len(qb) == 0 {
				qa = append(qa, e.Value)
				mu.Unlock()
				return
			}
			second := qb[0]
			qb = qb[1:]
			_ = out.Emit(ctx, Pair[A, B]{First: e.Value, Second: second})
			done := settleLocked()
			mu.Unlock()
			if done {
				cancelBoth()
			}
		},
		OnError: func(err error) { failWith(a.Name(), err) },
		OnComplete: func() {
			mu.Lock()
			doneA = true
			done := settleLocked()
			mu.Unlock()
			if done {
				cancelBoth()
			}
		},
	})
	if errA != nil {
		failWith(out.Name(), errA)
		return out
	}

	_, errB := b.Subscribe(ctx, Observer[B]{
		OnEvent: func(e Event[B]) {
			mu.Lock()
			if finished {
				mu.Unlock()
				return
			}
			if len(qa) == 0 {
				qb = append(qb, e.Value)
				mu.Unlock()
				return
			}
			first := qa[0]
			qa = qa[1:]
			_ = out.Emit(ctx, Pair[A, B]{First: first, Second: e.Value})
			done := settleLocked()
			mu.Unlock()
			if done {
				cancelBoth()
			}
		},
		OnError: func(err error) { failWith(b.Name(), err) },
		OnComplete: func() {
			mu.Lock()
			doneB = true
			done := settleLocked()
			mu.Unlock()
			if done {
				cancelBoth()
			}
		},
	})
	if errB != nil {
		failWith(out.Name(), errB)
	}

	return out
}
