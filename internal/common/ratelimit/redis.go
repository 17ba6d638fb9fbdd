package ratelimit

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"velocity-playground/internal/circuitbreaker"
	"velocity-playground/internal/common/logging"
)

// RedisLimiter counts windows in a shared store so every process sees the
// same quota. When the store fails, admission falls back to local counters.
type RedisLimiter struct {
	config   Config
	counter  WindowCounter
	breaker  *circuitbreaker.GoBreakerAdapter
	fallback *LocalLimiter
	now      func() time.Time
	logger   logging.Logger

	fallbackLog rate.Sometimes
	fallbacks   atomic.Int64
}

// NewRedisLimiter creates a Redis-backed limiter.
func NewRedisLimiter(config Config, counter WindowCounter, opts ...Option) (*RedisLimiter, error) {
	if counter == nil {
		return nil, fmt.Errorf("window counter is required for the redis rate limiter")
	}
	config.Type = BackendRedis
	if err := config.Validate(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)

	local := config
	local.Type = BackendLocal
	fallback, err := NewLocalLimiter(local, opts...)
	if err != nil {
		return nil, err
	}

	logger := o.logger.WithFields(logging.Field{Key: "component", Value: "ratelimit"})
	return &RedisLimiter{
		config:      config,
		counter:     counter,
		breaker:     circuitbreaker.NewGoBreaker("ratelimit-redis", config.Breaker, logger),
		fallback:    fallback,
		now:         o.now,
		logger:      logger,
		fallbackLog: rate.Sometimes{First: 1, Interval: 30 * time.Second},
	}, nil
}

// Admit counts a request for key in the shared store.
func (l *RedisLimiter) Admit(ctx context.Context, key string) (Decision, error) {
	now := l.now()
	if !l.config.Enabled {
		return unlimited(l.config.Limit, l.config.Window, now), nil
	}

	res, err := l.breaker.ExecuteWithFallback(ctx,
		func() (interface{}, error) {
			count, ttl, err := l.counter.IncrWindow(ctx, l.config.KeyPrefix+key, l.config.Window)
			if err != nil {
				return nil, err
			}
			return decide(l.config.Limit, count, now.Add(ttl), now), nil
		},
		func(cause error) (interface{}, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			l.fallbacks.Add(1)
			l.fallbackLog.Do(func() {
				l.logger.Warn("Shared rate limit store unavailable, using local counters",
					logging.Err(cause),
					logging.Field{Key: "breaker", Value: l.breaker.State().String()},
				)
			})
			return l.fallback.Admit(ctx, key)
		},
	)
	if err != nil {
		return Decision{}, err
	}
	return res.(Decision), nil
}

// Stats returns rate limiter statistics
func (l *RedisLimiter) Stats() map[string]interface{} {
	return map[string]interface{}{
		"type":           string(BackendRedis),
		"enabled":        l.config.Enabled,
		"limit":          l.config.Limit,
		"window":         l.config.Window.String(),
		"key_prefix":     l.config.KeyPrefix,
		"breaker":        l.breaker.Stats(),
		"fallbacks":      l.fallbacks.Load(),
		"fallback_local": l.fallback.Stats(),
	}
}

// Health reports the shared store's reachability.
func (l *RedisLimiter) Health(ctx context.Context) error {
	if err := l.counter.Health(ctx); err != nil {
		return fmt.Errorf("redis rate limit store: %w", err)
	}
	return nil
}

// Close stops the fallback's sweep schedule. The store's client is owned by
// the caller.
func (l *RedisLimiter) Close() error {
	return l.fallback.Close()
}

var _ Limiter = (*RedisLimiter)(nil)
