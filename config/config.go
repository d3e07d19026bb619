// Package config loads operator settings for reactz pipelines from YAML
// files and REACTZ_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/zoobzio/reactz"
)

// EnvPrefix is prepended to every environment override, e.g.
// REACTZ_RETRY_MAX_RETRIES=5.
const EnvPrefix = "REACTZ"

// Config holds the settings of every configurable operator.
type Config struct {
	Debounce  DebounceConfig  `mapstructure:"debounce"`
	Throttle  ThrottleConfig  `mapstructure:"throttle"`
	Timeout   TimeoutConfig   `mapstructure:"timeout"`
	Dedupe    DedupeConfig    `mapstructure:"dedupe"`
	Batch     BatchConfig     `mapstructure:"batch"`
	Buffer    BufferConfig    `mapstructure:"buffer"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Circuit   CircuitConfig   `mapstructure:"circuit"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// DebounceConfig configures Debounce.
type DebounceConfig struct {
	Duration time.Duration `mapstructure:"duration"`
}

// ThrottleConfig configures Throttle.
type ThrottleConfig struct {
	Duration time.Duration `mapstructure:"duration"`
}

// TimeoutConfig configures Timeout.
type TimeoutConfig struct {
	Duration time.Duration `mapstructure:"duration"`
}

// DedupeConfig configures Dedupe.
type DedupeConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// BatchConfig configures the Batcher. Zero MaxLatency batches by size only.
type BatchConfig struct {
	MaxSize    int           `mapstructure:"max_size"`
	MaxLatency time.Duration `mapstructure:"max_latency"`
}

// BufferConfig configures BackpressureBuffer.
type BufferConfig struct {
	MaxSize        int    `mapstructure:"max_size"`
	OverflowPolicy string `mapstructure:"overflow_policy"`
}

// RetryConfig configures Retry.
type RetryConfig struct {
	MaxRetries int           `mapstructure:"max_retries"`
	BaseDelay  time.Duration `mapstructure:"base_delay"`
	MaxDelay   time.Duration `mapstructure:"max_delay"`
	Jitter     bool          `mapstructure:"jitter"`
}

// CircuitConfig configures CircuitBreaker.
type CircuitConfig struct {
	FailureThreshold int           `mapstructure:"failure_threshold"`
	ResetTimeout     time.Duration `mapstructure:"reset_timeout"`
}

// RateLimitConfig configures RateLimiter.
type RateLimitConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	BurstCapacity int           `mapstructure:"burst_capacity"`
}

// LoggingConfig configures the CLI logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from path, or from reactz.yaml in the working
// directory or $HOME/.reactz when path is empty. A missing default file is
// not an error. Environment variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("reactz")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.reactz")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return decode(v)
}

// Default returns the built-in defaults with environment overrides applied.
func Default() (*Config, error) {
	return decode(viper.New())
}

func decode(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debounce.duration", 100*time.Millisecond)
	v.SetDefault("throttle.duration", time.Second)
	v.SetDefault("timeout.duration", 30*time.Second)
	v.SetDefault("dedupe.ttl", time.Hour)

	v.SetDefault("batch.max_size", 100)
	v.SetDefault("batch.max_latency", time.Second)

	v.SetDefault("buffer.max_size", 1000)
	v.SetDefault("buffer.overflow_policy", string(reactz.OverflowBlock))

	v.SetDefault("retry.max_retries", 3)
	v.SetDefault("retry.base_delay", 100*time.Millisecond)
	v.SetDefault("retry.max_delay", 30*time.Second)
	v.SetDefault("retry.jitter", false)

	v.SetDefault("circuit.failure_threshold", 5)
	v.SetDefault("circuit.reset_timeout", 30*time.Second)

	v.SetDefault("rate_limit.interval", 100*time.Millisecond)
	v.SetDefault("rate_limit.burst_capacity", 10)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Validate checks that every option is within range.
func Validate(cfg *Config) error {
	var errs []error
	positive := func(key string, d time.Duration) {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", key, d))
		}
	}

	positive("debounce.duration", cfg.Debounce.Duration)
	positive("throttle.duration", cfg.Throttle.Duration)
	positive("timeout.duration", cfg.Timeout.Duration)
	positive("dedupe.ttl", cfg.Dedupe.TTL)
	positive("retry.base_delay", cfg.Retry.BaseDelay)
	positive("circuit.reset_timeout", cfg.Circuit.ResetTimeout)
	positive("rate_limit.interval", cfg.RateLimit.Interval)

	if cfg.Batch.MaxSize < 1 {
		errs = append(errs, fmt.Errorf("batch.max_size must be at least 1, got %d", cfg.Batch.MaxSize))
	}
	if cfg.Batch.MaxLatency < 0 {
		errs = append(errs, fmt.Errorf("batch.max_latency must not be negative, got %v", cfg.Batch.MaxLatency))
	}
	if cfg.Buffer.MaxSize < 1 {
		errs = append(errs, fmt.Errorf("buffer.max_size must be at least 1, got %d", cfg.Buffer.MaxSize))
	}
	if _, err := reactz.ParseOverflowPolicy(cfg.Buffer.OverflowPolicy); err != nil {
		errs = append(errs, fmt.Errorf("buffer.overflow_policy: %w", err))
	}
	if cfg.Retry.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("retry.max_retries must not be negative, got %d", cfg.Retry.MaxRetries))
	}
	if cfg.Retry.MaxDelay < cfg.Retry.BaseDelay {
		errs = append(errs, fmt.Errorf("retry.max_delay %v is below retry.base_delay %v", cfg.Retry.MaxDelay, cfg.Retry.BaseDelay))
	}
	if cfg.Circuit.FailureThreshold < 1 {
		errs = append(errs, fmt.Errorf("circuit.failure_threshold must be at least 1, got %d", cfg.Circuit.FailureThreshold))
	}
	if cfg.RateLimit.BurstCapacity < 1 {
		errs = append(errs, fmt.Errorf("rate_limit.burst_capacity must be at least 1, got %d", cfg.RateLimit.BurstCapacity))
	}
	if _, err := zerolog.ParseLevel(cfg.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	if cfg.Logging.Format != "console" && cfg.Logging.Format != "json" {
		errs = append(errs, fmt.Errorf("logging.format must be console or json, got %q", cfg.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// OverflowPolicy returns the parsed buffer overflow policy.
func (c *Config) OverflowPolicy() reactz.OverflowPolicy {
	p, err := reactz.ParseOverflowPolicy(c.Buffer.OverflowPolicy)
	if err != nil {
		return reactz.OverflowBlock
	}
	return p
}

// YAML renders the effective configuration. Durations are written in
// time.Duration string form so the output loads back unchanged.
func (c *Config) YAML() ([]byte, error) {
	doc := map[string]map[string]any{
		"debounce": {"duration": c.Debounce.Duration.String()},
		"throttle": {"duration": c.Throttle.Duration.String()},
		"timeout":  {"duration": c.Timeout.Duration.String()},
		"dedupe":   {"ttl": c.Dedupe.TTL.String()},
		"batch": {
			"max_size":    c.Batch.MaxSize,
			"max_latency": c.Batch.MaxLatency.String(),
		},
		"buffer": {
			"max_size":        c.Buffer.MaxSize,
			"overflow_policy": c.Buffer.OverflowPolicy,
		},
		"retry": {
			"max_retries": c.Retry.MaxRetries,
			"base_delay":  c.Retry.BaseDelay.String(),
			"max_delay":   c.Retry.MaxDelay.String(),
			"jitter":      c.Retry.Jitter,
		},
		"circuit": {
			"failure_threshold": c.Circuit.FailureThreshold,
			"reset_timeout":     c.Circuit.ResetTimeout.String(),
		},
		"rate_limit": {
			"interval":       c.RateLimit.Interval.String(),
			"burst_capacity": c.RateLimit.BurstCapacity,
		},
		"logging": {
			"level":  c.Logging.Level,
			"format": c.Logging.Format,
		},
	}
	return yaml.Marshal(doc)
}
