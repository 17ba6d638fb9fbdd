package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"velocity-playground/internal/circuitbreaker"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "disabled skips checks", mutate: func(c *Config) { c.Enabled = false; c.Limit = 0 }},
		{name: "zero limit", mutate: func(c *Config) { c.Limit = 0 }, wantErr: "rate limit must be positive"},
		{name: "tiny window", mutate: func(c *Config) { c.Window = time.Microsecond }, wantErr: "at least 1ms"},
		{name: "unknown backend", mutate: func(c *Config) { c.Type = "memcached" }, wantErr: "unsupported"},
		{name: "bad schedule", mutate: func(c *Config) { c.SweepSchedule = "every so often" }, wantErr: "invalid sweep schedule"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(&config)
			err := config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_ValidateFillsDefaults(t *testing.T) {
	config := Config{Limit: 10, Window: time.Second, Enabled: true, Type: BackendRedis}
	require.NoError(t, config.Validate())

	assert.Equal(t, "ratelimit:", config.KeyPrefix)
	assert.Equal(t, circuitbreaker.RedisConfig, config.Breaker)
	assert.Equal(t, 64, config.Stripes)
	assert.Equal(t, "@every 1m", config.SweepSchedule)

	config = Config{Limit: 10, Window: time.Second, Enabled: true}
	require.NoError(t, config.Validate())
	assert.Equal(t, BackendLocal, config.Type)
}

func TestConfigBuilder(t *testing.T) {
	config, err := NewConfigBuilder().
		WithLimit(5).
		WithWindow(30 * time.Second).
		WithBackend(BackendRedis).
		WithKeyPrefix("rl:").
		WithSweepSchedule("@every 5m").
		Build()
	require.NoError(t, err)

	assert.Equal(t, 5, config.Limit)
	assert.Equal(t, 30*time.Second, config.Window)
	assert.Equal(t, BackendRedis, config.Type)
	assert.Equal(t, "rl:", config.KeyPrefix)
	assert.Equal(t, "@every 5m", config.SweepSchedule)
	assert.True(t, config.Enabled)

	_, err = NewConfigBuilder().WithLimit(-1).Build()
	assert.Error(t, err)

	config, err = NewConfigBuilder().WithLimit(-1).WithEnabled(false).Build()
	require.NoError(t, err)
	assert.False(t, config.Enabled)
}
