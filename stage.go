package reactz

import "context"

// newStageOutput creates the output channel of a stage reading from in.
// It shares the input's clock so timestamps stay on one timeline.
func newStageOutput[In, Out any](name string, in *Channel[In]) *Channel[Out] {
	return NewChannel[Out]().WithName(name).WithClock(in.clock)
}

// attach subscribes obs to in on behalf of out. Cancelling out cancels in,
// and ctx ending fails out with the context error. If in cannot be
// subscribed, out fails immediately and attach returns false.
func attach[In, Out any](ctx context.Context, in *Channel[In], out *Channel[Out], obs Observer[In]) bool {
	if _, err := in.Subscribe(ctx, obs); err != nil {
		_ = out.Fail(wrapUpstream(out.Name(), err))
		return false
	}
	out.OnCancel(in.Cancel)
	context.AfterFunc(ctx, func() {
		_ = out.Fail(wrapUpstream(out.Name(), ctx.Err()))
	})
	return true
}

// releaseWith runs release once the stage is finished for any reason:
// cancellation of out, the end of ctx, or a failed attach. Stages holding
// timers or goroutines also call release from their own terminal handlers.
func releaseWith[Out any](ctx context.Context, out *Channel[Out], attached bool, release func()) {
	if !attached {
		release()
		return
	}
	out.OnCancel(release)
	context.AfterFunc(ctx, release)
}

// forward returns the terminal callbacks shared by most stages: upstream
// errors are wrapped once and passed on, completion is passed on.
func forward[In, Out any](in *Channel[In], out *Channel[Out]) (onError func(error), onComplete func()) {
	onError = func(err error) {
		_ = out.Fail(wrapUpstream(in.Name(), err))
	}
	onComplete = func() {
		_ = out.Complete()
	}
	return onError, onComplete
}
