package app

import (
	"velocity-playground/internal/common/logging"
	"velocity-playground/internal/redis"
)

func (app *App) initializeRedis() error {
	if !app.Config.UsesRedis() {
		app.Logger.Info("Redis: Not configured (rate limits are counted per instance)")
		return nil
	}
	if !app.Config.RateLimitEnabled {
		app.Logger.Info("Redis: Skipped, rate limiting is disabled")
		return nil
	}

	redisClient, err := redis.NewClient(&redis.Config{
		Address:  app.Config.RedisAddress,
		Password: app.Config.RedisPassword,
		DB:       app.Config.RedisDB,
		PoolSize: app.Config.RedisPoolSize,
	})
	if err != nil {
		return err
	}

	app.RedisClient = redisClient
	app.Logger.Info("Redis: Connected",
		logging.Field{Key: "address", Value: app.Config.RedisAddress},
		logging.Field{Key: "db", Value: app.Config.RedisDB},
	)
	return nil
}
