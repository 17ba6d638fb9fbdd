package app

import (
	"net/http"

	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"

	"velocity-playground/internal/common/logging"
	"velocity-playground/internal/handlers"
	"velocity-playground/internal/middleware"
)

// SetupRoutes configures all HTTP routes for the application. admission, when
// non-nil, guards the /api routes only; health and docs are never limited.
func SetupRoutes(router *mux.Router, h *handlers.Handlers, admission func(http.Handler) http.Handler) {
	// Health check (not rate limited)
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")

	// Swagger UI
	router.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)

	api := router.PathPrefix("/api").Subrouter()
	if admission != nil {
		api.Use(admission)
	}

	api.HandleFunc("/render", h.RenderTemplate).Methods("POST")
	api.HandleFunc("/helpers", h.ListHelpers).Methods("GET")
	api.HandleFunc("/config", h.GetConfig).Methods("GET")

	router.NotFoundHandler = http.HandlerFunc(h.NotFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(h.MethodNotAllowed)
}

// withMiddleware wraps the whole router. mux's own Use chain does not run for
// its not-found and method-not-allowed handlers, so these go around it.
func withMiddleware(next http.Handler, logger logging.Logger) http.Handler {
	next = middleware.SecurityHeaders(next)
	next = middleware.Recover(logger)(next)
	next = middleware.Logging(logger)(next)
	return middleware.RequestID(next)
}
