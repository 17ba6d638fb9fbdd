package config

import (
	"os"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testEnvVars = []string{
	"PORT", "LOG_LEVEL", "LOG_FILE",
	"TEMPLATE_SIZE_LIMIT", "PAYLOAD_LIMIT",
	"RATE_LIMIT", "RATE_LIMIT_WINDOW", "RATE_LIMIT_ENABLED", "TRUST_PROXY",
	"REDIS_ADDRESS", "REDIS_PASSWORD", "REDIS_DB", "REDIS_POOL_SIZE",
	"RENDER_TIMEOUT", "RENDER_MAX_STEPS", "RENDER_MAX_OUTPUT", "RENDER_MAX_MEMORY", "RENDER_CONCURRENCY",
	"TEMPLATE_CACHE_TTL",
}

// clearTestEnvVars blanks every variable Load reads for the duration of t.
func clearTestEnvVars(t *testing.T) {
	t.Helper()
	for _, key := range testEnvVars {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad(t *testing.T) {
	clearTestEnvVars(t)

	config := Load()

	if config.Port != "3000" {
		t.Errorf("Load() Port = %v, want %v", config.Port, "3000")
	}
	if config.LogLevel != "info" {
		t.Errorf("Load() LogLevel = %v, want %v", config.LogLevel, "info")
	}
	if config.TemplateSizeLimit != 50000 {
		t.Errorf("Load() TemplateSizeLimit = %v, want %v", config.TemplateSizeLimit, 50000)
	}
	if config.PayloadLimit != "100kb" {
		t.Errorf("Load() PayloadLimit = %v, want %v", config.PayloadLimit, "100kb")
	}
	if config.PayloadLimitBytes != 102_400 {
		t.Errorf("Load() PayloadLimitBytes = %v, want %v", config.PayloadLimitBytes, 102_400)
	}
	if config.RateLimit != 60 {
		t.Errorf("Load() RateLimit = %v, want %v", config.RateLimit, 60)
	}
	if config.RateLimitWindow != time.Minute {
		t.Errorf("Load() RateLimitWindow = %v, want %v", config.RateLimitWindow, time.Minute)
	}
	if !config.RateLimitEnabled {
		t.Errorf("Load() RateLimitEnabled = %v, want %v", config.RateLimitEnabled, true)
	}
	if config.TrustProxy {
		t.Errorf("Load() TrustProxy = %v, want %v", config.TrustProxy, false)
	}
	if config.UsesRedis() {
		t.Errorf("Load() UsesRedis = true with no REDIS_ADDRESS")
	}
	if config.RedisPoolSize != 10 {
		t.Errorf("Load() RedisPoolSize = %v, want %v", config.RedisPoolSize, 10)
	}
	if config.RenderTimeout != 2*time.Second {
		t.Errorf("Load() RenderTimeout = %v, want %v", config.RenderTimeout, 2*time.Second)
	}
	if config.RenderMaxSteps != 1_000_000 {
		t.Errorf("Load() RenderMaxSteps = %v, want %v", config.RenderMaxSteps, 1_000_000)
	}
	if config.RenderMaxOutput != 1<<20 {
		t.Errorf("Load() RenderMaxOutput = %v, want %v", config.RenderMaxOutput, 1<<20)
	}
	if config.RenderMaxMemory != 64<<20 {
		t.Errorf("Load() RenderMaxMemory = %v, want %v", config.RenderMaxMemory, 64<<20)
	}
	if want := 2 * runtime.GOMAXPROCS(0); config.RenderConcurrency != want {
		t.Errorf("Load() RenderConcurrency = %v, want %v", config.RenderConcurrency, want)
	}
	if config.TemplateCacheTTL != 10*time.Minute {
		t.Errorf("Load() TemplateCacheTTL = %v, want %v", config.TemplateCacheTTL, 10*time.Minute)
	}

	assert.NoError(t, config.Validate())
}

func TestLoadWithEnvVars(t *testing.T) {
	clearTestEnvVars(t)

	t.Setenv("PORT", "8081")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("TEMPLATE_SIZE_LIMIT", "1000")
	t.Setenv("PAYLOAD_LIMIT", "2MiB")
	t.Setenv("RATE_LIMIT", "5")
	t.Setenv("RATE_LIMIT_WINDOW", "10s")
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	t.Setenv("TRUST_PROXY", "true")
	t.Setenv("REDIS_ADDRESS", "localhost:6379")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("RENDER_TIMEOUT", "500ms")
	t.Setenv("RENDER_CONCURRENCY", "4")

	config := Load()
	require.NoError(t, config.Validate())

	assert.Equal(t, "8081", config.Port)
	assert.Equal(t, "debug", config.LogLevel)
	assert.Equal(t, 1000, config.TemplateSizeLimit)
	assert.Equal(t, "2MiB", config.PayloadLimit)
	assert.Equal(t, int64(2*1024*1024), config.PayloadLimitBytes)
	assert.Equal(t, 5, config.RateLimit)
	assert.Equal(t, 10*time.Second, config.RateLimitWindow)
	assert.False(t, config.RateLimitEnabled)
	assert.True(t, config.TrustProxy)
	assert.True(t, config.UsesRedis())
	assert.Equal(t, 3, config.RedisDB)
	assert.Equal(t, 500*time.Millisecond, config.RenderTimeout)
	assert.Equal(t, 4, config.RenderConcurrency)
}

func TestBytesEnvUsesBinaryUnits(t *testing.T) {
	tests := []struct {
		value string
		want  int64
	}{
		{"100kb", 102_400},
		{"100KB", 102_400},
		{"1mb", 1 << 20},
		{"1.5 mb", 3 << 19},
		{"2g", 2 << 30},
		{"1MiB", 1 << 20},
		{"1MB", 1 << 20},
		{"512", 512},
		{"512b", 512},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			clearTestEnvVars(t)
			t.Setenv("PAYLOAD_LIMIT", tt.value)

			config := Load()
			require.NoError(t, config.Validate())
			assert.Equal(t, tt.want, config.PayloadLimitBytes)
			assert.Equal(t, tt.value, config.PayloadLimit)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "malformed integer",
			env:     map[string]string{"TEMPLATE_SIZE_LIMIT": "lots"},
			wantErr: "TEMPLATE_SIZE_LIMIT must be an integer",
		},
		{
			name:    "malformed duration",
			env:     map[string]string{"RATE_LIMIT_WINDOW": "forever"},
			wantErr: "RATE_LIMIT_WINDOW must be a valid duration",
		},
		{
			name:    "malformed size",
			env:     map[string]string{"PAYLOAD_LIMIT": "huge"},
			wantErr: "PAYLOAD_LIMIT must be a size",
		},
		{
			name:    "non-positive rate limit",
			env:     map[string]string{"RATE_LIMIT": "0"},
			wantErr: "RateLimit",
		},
		{
			name:    "window below one second",
			env:     map[string]string{"RATE_LIMIT_WINDOW": "10ms"},
			wantErr: "RateLimitWindow",
		},
		{
			name:    "redis db out of range",
			env:     map[string]string{"REDIS_DB": "16"},
			wantErr: "RedisDB",
		},
		{
			name:    "unknown log level",
			env:     map[string]string{"LOG_LEVEL": "chatty"},
			wantErr: "LogLevel",
		},
		{
			name:    "port out of range",
			env:     map[string]string{"PORT": "70000"},
			wantErr: "PORT must be a valid port number",
		},
		{
			name:    "non-numeric port",
			env:     map[string]string{"PORT": "http"},
			wantErr: "Port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearTestEnvVars(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			err := Load().Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetBoolEnvIgnoresGarbage(t *testing.T) {
	clearTestEnvVars(t)
	t.Setenv("RATE_LIMIT_ENABLED", "maybe")

	if !Load().RateLimitEnabled {
		t.Error("unparseable boolean should fall back to the default")
	}
}
