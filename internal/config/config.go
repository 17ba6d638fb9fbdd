// Package config loads the playground configuration from environment
// variables. Values are read once at startup; a .env file in the working
// directory is honored by app.Run before Load is called.
//
// Environment Variables:
//
// Application Settings:
//   - PORT: Server port (default: 3000)
//   - LOG_LEVEL: Logging level (default: info)
//   - LOG_FILE: Log file path; stdout when empty
//
// Request Limits:
//   - TEMPLATE_SIZE_LIMIT: Maximum template length in characters (default: 50000)
//   - PAYLOAD_LIMIT: Maximum request body size, human readable (default: 100kb)
//
// Rate Limiting:
//   - RATE_LIMIT: Requests per client per window (default: 60)
//   - RATE_LIMIT_WINDOW: Window length (default: 60s)
//   - RATE_LIMIT_ENABLED: Enable admission control (default: true)
//   - TRUST_PROXY: Key clients by X-Forwarded-For / X-Real-IP (default: false)
//
// Redis (optional shared limiter backend):
//   - REDIS_ADDRESS: Redis server address; the local backend is used when empty
//   - REDIS_PASSWORD: Redis password
//   - REDIS_DB: Redis database number 0-15 (default: 0)
//   - REDIS_POOL_SIZE: Redis connection pool size (default: 10)
//
// Rendering:
//   - RENDER_TIMEOUT: Deadline for a single render (default: 2s)
//   - RENDER_MAX_STEPS: Engine step budget per render (default: 1000000)
//   - RENDER_MAX_OUTPUT: Maximum rendered output size (default: 1mb)
//   - RENDER_MAX_MEMORY: Bytes a single render may allocate in total (default: 64mb)
//   - RENDER_CONCURRENCY: Concurrent renders (default: 2 x GOMAXPROCS)
//   - TEMPLATE_CACHE_TTL: How long parsed templates stay cached (default: 10m)
package config

import (
	"fmt"
	"os"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
)

// Config holds all configuration values for the playground. Fields carry
// validator tags checked by Validate.
type Config struct {
	// Application settings
	Port     string `validate:"required,numeric"`
	LogLevel string `validate:"oneof=debug info warn warning error DEBUG INFO WARN WARNING ERROR"`
	LogFile  string

	// Request limits
	TemplateSizeLimit int    `validate:"gt=0"`
	PayloadLimit      string `validate:"required"` // as configured, reported by /api/config
	PayloadLimitBytes int64  `validate:"gt=0"`

	// Rate limiting
	RateLimit        int           `validate:"gt=0"`
	RateLimitWindow  time.Duration `validate:"gte=1s"`
	RateLimitEnabled bool
	TrustProxy       bool

	// Redis configuration for the shared limiter backend
	RedisAddress  string
	RedisPassword string
	RedisDB       int `validate:"gte=0,lte=15"`
	RedisPoolSize int `validate:"gt=0"`

	// Rendering
	RenderTimeout     time.Duration `validate:"gt=0"`
	RenderMaxSteps    int           `validate:"gt=0"`
	RenderMaxOutput   int64         `validate:"gt=0"`
	RenderMaxMemory   int64         `validate:"gt=0"`
	RenderConcurrency int           `validate:"gt=0"`
	TemplateCacheTTL  time.Duration `validate:"gte=0"`

	// parse errors collected by Load and reported by Validate
	loadErrs []string
}

// Load creates a new Config instance with values loaded from environment
// variables. Malformed numbers, durations and sizes are remembered and
// reported by Validate rather than silently replaced with defaults.
func Load() *Config {
	c := &Config{
		Port:     getEnv("PORT", "3000"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),

		PayloadLimit: getEnv("PAYLOAD_LIMIT", "100kb"),

		RateLimitEnabled: getBoolEnv("RATE_LIMIT_ENABLED", true),
		TrustProxy:       getBoolEnv("TRUST_PROXY", false),

		RedisAddress:  getEnv("REDIS_ADDRESS", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
	}

	c.TemplateSizeLimit = c.intEnv("TEMPLATE_SIZE_LIMIT", 50_000)
	c.PayloadLimitBytes = c.bytesEnv("PAYLOAD_LIMIT", c.PayloadLimit)
	c.RateLimit = c.intEnv("RATE_LIMIT", 60)
	c.RateLimitWindow = c.durationEnv("RATE_LIMIT_WINDOW", time.Minute)
	c.RedisDB = c.intEnv("REDIS_DB", 0)
	c.RedisPoolSize = c.intEnv("REDIS_POOL_SIZE", 10)
	c.RenderTimeout = c.durationEnv("RENDER_TIMEOUT", 2*time.Second)
	c.RenderMaxSteps = c.intEnv("RENDER_MAX_STEPS", 1_000_000)
	c.RenderMaxOutput = c.bytesEnv("RENDER_MAX_OUTPUT", getEnv("RENDER_MAX_OUTPUT", "1mb"))
	c.RenderMaxMemory = c.bytesEnv("RENDER_MAX_MEMORY", getEnv("RENDER_MAX_MEMORY", "64mb"))
	c.RenderConcurrency = c.intEnv("RENDER_CONCURRENCY", 2*runtime.GOMAXPROCS(0))
	c.TemplateCacheTTL = c.durationEnv("TEMPLATE_CACHE_TTL", 10*time.Minute)

	return c
}

// Validate checks the configuration and returns a descriptive error for the
// first group of problems found.
func (c *Config) Validate() error {
	if len(c.loadErrs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(c.loadErrs, "; "))
	}

	if err := validator.New().Struct(c); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if port, _ := strconv.Atoi(c.Port); port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a valid port number between 1 and 65535")
	}

	return nil
}

// UsesRedis reports whether the shared Redis limiter backend is configured.
func (c *Config) UsesRedis() bool {
	return c.RedisAddress != ""
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func (c *Config) intEnv(key string, defaultValue int) int {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(strings.ReplaceAll(value, "_", ""))
	if err != nil {
		c.loadErrs = append(c.loadErrs, fmt.Sprintf("%s must be an integer, got %q", key, value))
		return defaultValue
	}
	return parsed
}

func (c *Config) durationEnv(key string, defaultValue time.Duration) time.Duration {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		c.loadErrs = append(c.loadErrs, fmt.Sprintf("%s must be a valid duration (e.g. '60s', '1m'), got %q", key, value))
		return defaultValue
	}
	return parsed
}

// binaryUnit matches a size written with a short unit ("100kb", "2 M").
var binaryUnit = regexp.MustCompile(`^([0-9.]+)\s*([kmgtpe])b?$`)

// bytesEnv parses human sizes such as "100kb" or "1MiB". Bare numbers are
// bytes. Short units are powers of 1024, so "100kb" is 102400.
func (c *Config) bytesEnv(key, value string) int64 {
	parsed, err := humanize.ParseBytes(iecSize(value))
	if err != nil {
		c.loadErrs = append(c.loadErrs, fmt.Sprintf("%s must be a size such as '100kb', got %q", key, value))
		return 0
	}
	return int64(parsed)
}

func iecSize(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	return binaryUnit.ReplaceAllString(v, "${1}${2}ib")
}
