package config

import (
	"context"

	"github.com/zoobzio/reactz"
)

// Operator builders. The generic ones are functions because Go methods
// cannot take type parameters.

// NewDebounce builds a Debounce from debounce.duration.
func NewDebounce[T any](cfg *Config, clock reactz.Clock) *reactz.Debounce[T] {
	return reactz.NewDebounce[T](cfg.Debounce.Duration, clock)
}

// NewThrottle builds a Throttle from throttle.duration.
func NewThrottle[T any](cfg *Config) *reactz.Throttle[T] {
	return reactz.NewThrottle[T](cfg.Throttle.Duration)
}

// NewTimeout builds a Timeout from timeout.duration.
func NewTimeout[T any](cfg *Config, clock reactz.Clock) *reactz.Timeout[T] {
	return reactz.NewTimeout[T](cfg.Timeout.Duration, clock)
}

// NewDedupe builds a Dedupe from dedupe.ttl.
func NewDedupe[T any, K comparable](cfg *Config, keyFunc func(T) K, clock reactz.Clock) *reactz.Dedupe[T, K] {
	return reactz.NewDedupe(keyFunc, cfg.Dedupe.TTL, clock)
}

// NewBatcher builds a Batcher from the batch section.
func NewBatcher[T any](cfg *Config, clock reactz.Clock) *reactz.Batcher[T] {
	return reactz.NewBatcher[T](reactz.BatchConfig{
		MaxSize:    cfg.Batch.MaxSize,
		MaxLatency: cfg.Batch.MaxLatency,
	}, clock)
}

// NewBackpressureBuffer builds a BackpressureBuffer from the buffer section.
func NewBackpressureBuffer[T any](cfg *Config) *reactz.BackpressureBuffer[T] {
	return reactz.NewBackpressureBuffer[T](cfg.Buffer.MaxSize, cfg.OverflowPolicy())
}

// NewRetry builds a Retry around factory from the retry section.
func NewRetry[T any](cfg *Config, factory func(context.Context) *reactz.Channel[T], clock reactz.Clock) *reactz.Retry[T] {
	return reactz.NewRetry(factory, clock).
		MaxRetries(cfg.Retry.MaxRetries).
		BaseDelay(cfg.Retry.BaseDelay).
		MaxDelay(cfg.Retry.MaxDelay).
		WithJitter(cfg.Retry.Jitter)
}

// CircuitBreaker builds a breaker from the circuit section.
func (c *Config) CircuitBreaker(clock reactz.Clock) *reactz.CircuitBreaker {
	return reactz.NewCircuitBreaker(c.Circuit.FailureThreshold, c.Circuit.ResetTimeout, clock)
}

// RateLimiter builds a limiter from the rate_limit section.
func (c *Config) RateLimiter(clock reactz.Clock) *reactz.RateLimiter {
	return reactz.NewRateLimiter(c.RateLimit.Interval, c.RateLimit.BurstCapacity, clock)
}
