package ratelimit

import (
	"fmt"
)

// New creates a new rate limiter based on the configuration. The counter is
// only needed, and required, for the Redis backend.
func New(config Config, counter WindowCounter, opts ...Option) (Limiter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case BackendLocal, "":
		return NewLocalLimiter(config, opts...)
	case BackendRedis:
		if counter == nil {
			return nil, fmt.Errorf("redis client is required for the redis rate limiter")
		}
		return NewRedisLimiter(config, counter, opts...)
	default:
		return nil, fmt.Errorf("unsupported rate limiter backend type: %s", config.Type)
	}
}
