package app

import (
	"velocity-playground/internal/common/logging"
	"velocity-playground/internal/common/ratelimit"
)

// initializeRateLimiter creates the per-client limiter. Redis is used as the
// shared backend when connected, otherwise counters stay in process.
func (app *App) initializeRateLimiter() error {
	if !app.Config.RateLimitEnabled {
		app.Logger.Info("Rate Limiting: Disabled")
		return nil
	}

	backend := ratelimit.BackendLocal
	var counter ratelimit.WindowCounter
	if app.RedisClient != nil {
		backend = ratelimit.BackendRedis
		counter = app.RedisClient
	}

	rateLimitConfig, err := ratelimit.NewConfigBuilder().
		WithLimit(app.Config.RateLimit).
		WithWindow(app.Config.RateLimitWindow).
		WithEnabled(true).
		WithBackend(backend).
		WithKeyPrefix("playground:ratelimit:").
		Build()
	if err != nil {
		return err
	}

	limiter, err := ratelimit.New(rateLimitConfig, counter,
		ratelimit.WithLogger(logging.GetGlobalLogger().WithFields(logging.Field{Key: "component", Value: "ratelimit"})))
	if err != nil {
		return err
	}
	app.RateLimiter = limiter

	app.Logger.Info("Rate Limiting: Enabled",
		logging.Field{Key: "backend", Value: string(backend)},
		logging.Field{Key: "limit", Value: app.Config.RateLimit},
		logging.Field{Key: "window", Value: app.Config.RateLimitWindow.String()},
	)
	return nil
}
