package ratelimit

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"velocity-playground/internal/circuitbreaker"
)

// Config represents rate limiter configuration
type Config struct {
	// Requests admitted per key per window
	Limit   int           `json:"limit" yaml:"limit"`
	Window  time.Duration `json:"window" yaml:"window"`
	Enabled bool          `json:"enabled" yaml:"enabled"`

	// Backend type
	Type BackendType `json:"type" yaml:"type"`

	// Redis backend settings
	KeyPrefix string                `json:"key_prefix,omitempty" yaml:"key_prefix,omitempty"`
	Breaker   circuitbreaker.Config `json:"-" yaml:"-"`

	// Local backend settings
	Stripes       int    `json:"stripes,omitempty" yaml:"stripes,omitempty"`
	SweepSchedule string `json:"sweep_schedule,omitempty" yaml:"sweep_schedule,omitempty"`
}

// BackendType defines the rate limiter backend
type BackendType string

const (
	BackendLocal BackendType = "local"
	BackendRedis BackendType = "redis"
)

// Validate validates the configuration and fills in defaults.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil // No validation needed if disabled
	}

	if c.Limit <= 0 {
		return fmt.Errorf("rate limit must be positive, got %d", c.Limit)
	}
	if c.Window < time.Millisecond {
		return fmt.Errorf("rate limit window must be at least 1ms, got %v", c.Window)
	}

	if c.Type == "" {
		c.Type = BackendLocal
	}
	switch c.Type {
	case BackendLocal:
	case BackendRedis:
		if c.KeyPrefix == "" {
			c.KeyPrefix = "ratelimit:"
		}
		if c.Breaker == (circuitbreaker.Config{}) {
			c.Breaker = circuitbreaker.RedisConfig
		}
	default:
		return fmt.Errorf("unsupported rate limiter backend type: %s", c.Type)
	}

	// The Redis backend keeps local counters for its fallback path
	if c.Stripes <= 0 {
		c.Stripes = 64
	}
	if c.SweepSchedule == "" {
		c.SweepSchedule = "@every 1m"
	}
	if _, err := cron.ParseStandard(c.SweepSchedule); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", c.SweepSchedule, err)
	}

	return nil
}

// DefaultConfig returns a default rate limiter configuration
func DefaultConfig() Config {
	return Config{
		Limit:         60,
		Window:        time.Minute,
		Enabled:       true,
		Type:          BackendLocal,
		KeyPrefix:     "ratelimit:",
		Stripes:       64,
		SweepSchedule: "@every 1m",
	}
}

// ConfigBuilder provides a fluent interface for building rate limiter configurations
type ConfigBuilder struct {
	config Config
}

// NewConfigBuilder creates a new configuration builder with defaults
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{
		config: DefaultConfig(),
	}
}

// WithLimit sets the requests admitted per window
func (cb *ConfigBuilder) WithLimit(limit int) *ConfigBuilder {
	cb.config.Limit = limit
	return cb
}

// WithWindow sets the window length
func (cb *ConfigBuilder) WithWindow(window time.Duration) *ConfigBuilder {
	cb.config.Window = window
	return cb
}

// WithEnabled toggles admission control
func (cb *ConfigBuilder) WithEnabled(enabled bool) *ConfigBuilder {
	cb.config.Enabled = enabled
	return cb
}

// WithBackend sets the backend type
func (cb *ConfigBuilder) WithBackend(backend BackendType) *ConfigBuilder {
	cb.config.Type = backend
	return cb
}

// WithKeyPrefix sets the key prefix for the Redis backend
func (cb *ConfigBuilder) WithKeyPrefix(prefix string) *ConfigBuilder {
	cb.config.KeyPrefix = prefix
	return cb
}

// WithSweepSchedule sets the cron schedule for sweeping expired local windows
func (cb *ConfigBuilder) WithSweepSchedule(schedule string) *ConfigBuilder {
	cb.config.SweepSchedule = schedule
	return cb
}

// Build validates and returns the configuration
func (cb *ConfigBuilder) Build() (Config, error) {
	config := cb.config
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}
