package app

import (
	"context"

	"velocity-playground/internal/common/cache"
	"velocity-playground/internal/common/logging"
	"velocity-playground/internal/common/ratelimit"
	"velocity-playground/internal/config"
	"velocity-playground/internal/helpers"
	"velocity-playground/internal/payload"
	"velocity-playground/internal/redis"
	"velocity-playground/internal/render"
)

// App holds all the application dependencies
type App struct {
	Config      *config.Config
	Helpers     *helpers.Registry
	Validator   *payload.Validator
	Templates   *cache.LocalCache
	Renderer    *render.Adapter
	RateLimiter ratelimit.Limiter
	RedisClient *redis.Client
	Logger      logging.Logger
}

// New creates a new application instance with all dependencies
func New(cfg *config.Config) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logging.GetGlobalLogger().WithFields(logging.Field{Key: "component", Value: "app"}),
	}

	if err := app.initializeRedis(); err != nil {
		// Redis is optional, the limiter falls back to local counters
		app.Logger.Warn("Redis initialization failed, continuing with local rate limiting",
			logging.Err(err))
	}

	if err := app.initializeRateLimiter(); err != nil {
		app.Cleanup()
		return nil, err
	}

	app.initializeRenderer()

	return app, nil
}

func (app *App) initializeRenderer() {
	app.Helpers = helpers.New()
	app.Validator = payload.NewValidator(app.Config.PayloadLimitBytes, app.Config.TemplateSizeLimit)

	// a zero TTL disables the parsed template cache
	var templates cache.Cache
	if ttl := app.Config.TemplateCacheTTL; ttl > 0 {
		app.Templates = cache.NewLocalCache(ttl, 2*ttl)
		templates = app.Templates
	}

	app.Renderer = render.NewAdapter(render.Config{
		Timeout:     app.Config.RenderTimeout,
		MaxSteps:    app.Config.RenderMaxSteps,
		MaxOutput:   app.Config.RenderMaxOutput,
		MaxMemory:   app.Config.RenderMaxMemory,
		Concurrency: app.Config.RenderConcurrency,
		CacheTTL:    app.Config.TemplateCacheTTL,
	}, app.Helpers, templates, app.Logger)

	app.Logger.Info("Renderer: Ready",
		logging.Field{Key: "timeout", Value: app.Config.RenderTimeout.String()},
		logging.Field{Key: "max_steps", Value: app.Config.RenderMaxSteps},
		logging.Field{Key: "max_memory", Value: app.Config.RenderMaxMemory},
		logging.Field{Key: "concurrency", Value: app.Config.RenderConcurrency},
		logging.Strings("helpers", app.Helpers.Describe()),
	)
}

// Cleanup releases all resources
func (app *App) Cleanup() {
	if app.RateLimiter != nil {
		app.RateLimiter.Close()
	}
	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
	if app.Templates != nil {
		app.Templates.Clear(context.Background())
	}
}
