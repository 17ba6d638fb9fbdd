// Package handlers implements the playground's HTTP API: rendering, the
// helper listing, the active configuration and health.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"velocity-playground/internal/common/errors"
	"velocity-playground/internal/common/logging"
	"velocity-playground/internal/common/ratelimit"
	"velocity-playground/internal/config"
	"velocity-playground/internal/helpers"
	"velocity-playground/internal/payload"
	"velocity-playground/internal/render"
)

// Renderer executes a validated render request.
type Renderer interface {
	Render(ctx context.Context, req *payload.Request) (*render.Result, error)
}

type Handlers struct {
	config    *config.Config
	validator *payload.Validator
	renderer  Renderer
	helpers   *helpers.Registry
	limiter   ratelimit.Limiter
	logger    logging.Logger
	sample    *orderedmap.OrderedMap[string, any]
}

// New creates the handlers. limiter may be nil when admission control is
// disabled; it is only consulted for health reporting.
func New(cfg *config.Config, validator *payload.Validator, renderer Renderer, registry *helpers.Registry, limiter ratelimit.Limiter, logger logging.Logger) (*Handlers, error) {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	sample, err := loadSampleData(sampleDataYAML)
	if err != nil {
		return nil, errors.ConfigError("invalid embedded sample data").WithContext("cause", err.Error())
	}
	return &Handlers{
		config:    cfg,
		validator: validator,
		renderer:  renderer,
		helpers:   registry,
		limiter:   limiter,
		logger:    logger.WithFields(logging.Field{Key: "component", Value: "handlers"}),
		sample:    sample,
	}, nil
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error" example:"Template is required."`
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// respondError writes err as a JSON error. Only the public message leaves
// the process; causes are logged.
func (h *Handlers) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	log := h.logger.WithContext(r.Context())

	switch {
	case status == http.StatusGatewayTimeout:
		log.Warn("Render timed out", logging.Err(err))
	case status >= 500:
		log.Error("Request failed", err, logging.Field{Key: "path", Value: r.URL.Path})
	default:
		log.Debug("Request rejected",
			logging.Field{Key: "status", Value: status},
			logging.Field{Key: "type", Value: string(errors.GetType(err))},
			logging.Err(err),
		)
	}

	if wait := errors.RetryAfter(err); wait > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int((wait+time.Second-1)/time.Second)))
	}

	respondJSON(w, status, ErrorResponse{Error: errors.PublicMessage(err)})
}

// NotFound answers unknown routes.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	h.respondError(w, r, &errors.AppError{Type: errors.ErrTypeNotFound, Message: "Not found"})
}

// MethodNotAllowed answers known routes hit with the wrong method.
func (h *Handlers) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.respondError(w, r, errors.MethodNotAllowedError(r.Method))
}
