package reactz

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrChannelClosed is returned for operations on a completed, failed or
	// cancelled channel.
	ErrChannelClosed = errors.New("channel closed")

	// ErrAlreadySubscribed is returned when a second consumer attaches to a
	// single-subscription channel.
	ErrAlreadySubscribed = errors.New("channel already has a subscriber")

	// ErrCircuitOpen is returned when a circuit breaker rejects an operation.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrTimeout is returned when an operation exceeds its time bound.
	ErrTimeout = errors.New("timeout")

	// ErrBufferOverflow is the terminal error of a channel using OverflowError
	// once its buffer is full.
	ErrBufferOverflow = errors.New("buffer overflow")
)

// UpstreamError represents an error surfaced by a producer or a prior stage.
// It captures the stage that first observed the error and, when known, the
// item being processed, enabling better debugging of long pipelines.
//
//nolint:govet // fieldalignment: struct layout optimized for readability
type UpstreamError struct {
	// Stage identifies which channel or processor generated the error.
	Stage string

	// Item is the value being processed when the error occurred, if any.
	Item any

	// Err is the underlying error.
	Err error

	// Timestamp records when the error was observed.
	Timestamp time.Time
}

// NewUpstreamError creates a new UpstreamError with the current timestamp.
func NewUpstreamError(stage string, item any, err error) *UpstreamError {
	return &UpstreamError{
		Stage:     stage,
		Item:      item,
		Err:       err,
		Timestamp: time.Now(),
	}
}

// Error implements the error interface.
func (ue *UpstreamError) Error() string {
	if ue.Item != nil {
		return fmt.Sprintf("%s: %v (item: %v)", ue.Stage, ue.Err, ue.Item)
	}
	return fmt.Sprintf("%s: %v", ue.Stage, ue.Err)
}

// Unwrap returns the underlying error, enabling error wrapping chains.
func (ue *UpstreamError) Unwrap() error {
	return ue.Err
}

// wrapUpstream wraps err once. Errors already carrying an UpstreamError are
// forwarded unchanged so the first stage to observe a failure stays recorded.
func wrapUpstream(stage string, err error) error {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return err
	}
	return NewUpstreamError(stage, nil, err)
}

// recoverError converts a recovered panic value into an error.
func recoverError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", r)
}
