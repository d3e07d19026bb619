package reactz

import (
	"context"
)

// HandleError recovers from an upstream error. The handler either returns a
// substitute value, which is emitted before the output completes normally,
// or returns an error, which terminates the output instead. Returning the
// original error forwards it unchanged.
//
//nolint:govet // fieldalignment: struct layout optimized for readability
type HandleError[T any] struct {
	name string
	fn   func(error) (T, error)
}

// NewHandleError creates a recovery stage.
//
// Example:
//
//	// Fall back to the cached configuration when the remote fetch fails
//	cfg := reactz.NewHandleError(func(err error) (Config, error) {
//		if errors.Is(err, reactz.ErrTimeout) {
//			return cachedConfig, nil
//		}
//		return Config{}, err
//	}).Process(ctx, remote)
func NewHandleError[T any](fn func(error) (T, error)) *HandleError[T] {
	return &HandleError[T]{
		name: "handle-error",
		fn:   fn,
	}
}

// WithName sets a custom name for this processor.
func (h *HandleError[T]) WithName(name string) *HandleError[T] {
	h.name = name
	return h
}

// Process forwards the events of in and applies the handler to its error.
func (h *HandleError[T]) Process(ctx context.Context, in *Channel[T]) *Channel[T] {
	out := newStageOutput[T, T](h.name, in)
	_, onComplete := forward(in, out)

	attach(ctx, in, out, Observer[T]{
		OnEvent: func(e Event[T]) {
			_ = out.Emit(ctx, e.Value)
		},
		OnError: func(err error) {
			v, herr := h.handle(err)
			if herr != nil {
				Logger().Debug().Str("stage", h.name).Err(herr).Msg("error forwarded")
				_ = out.Fail(wrapUpstream(in.Name(), herr))
				return
			}
			Logger().Debug().Str("stage", h.name).Err(err).Msg("error recovered")
			_ = out.Emit(ctx, v)
			_ = out.Complete()
		},
		OnComplete: onComplete,
	})

	return out
}

func (h *HandleError[T]) handle(err error) (v T, herr error) {
	defer func() {
		if r := recover(); r != nil {
			herr = NewUpstreamError(h.name, nil, recoverError(r))
		}
	}()
	return h.fn(err)
}

// Name returns the processor name.
func (h *HandleError[T]) Name() string {
	return h.name
}
