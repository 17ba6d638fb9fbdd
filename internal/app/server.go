package app

import (
	"net/http"

	"github.com/gorilla/mux"

	"velocity-playground/internal/common/logging"
	"velocity-playground/internal/handlers"
	"velocity-playground/internal/ratelimit"
	"velocity-playground/internal/server"
)

// Handler builds the application's HTTP handler with all routes and
// middleware configured
func (app *App) Handler() (http.Handler, error) {
	h, err := handlers.New(
		app.Config,
		app.Validator,
		app.Renderer,
		app.Helpers,
		app.RateLimiter,
		logging.GetGlobalLogger(),
	)
	if err != nil {
		return nil, err
	}

	var admission func(http.Handler) http.Handler
	if app.RateLimiter != nil {
		limiter := ratelimit.NewLimiter(app.RateLimiter,
			logging.GetGlobalLogger().WithFields(logging.Field{Key: "component", Value: "admission"}))
		admission = limiter.HTTPMiddleware(ratelimit.IPBasedKey(app.Config.TrustProxy))
	}

	router := mux.NewRouter()
	SetupRoutes(router, h, admission)

	return withMiddleware(router, logging.GetGlobalLogger().WithFields(logging.Field{Key: "component", Value: "http"})), nil
}

// RunServer creates the HTTP server with all handlers configured
func (app *App) RunServer() (*server.Server, error) {
	handler, err := app.Handler()
	if err != nil {
		return nil, err
	}
	return server.New(handler, app.Config.Port, logging.GetGlobalLogger()), nil
}
