package handlers

import (
	"math"
	"net/http"
	"time"
)

// ConfigResponse reflects the active request limits.
type ConfigResponse struct {
	TemplateSizeLimit  int    `json:"templateSizeLimit" example:"50000"`
	RateLimitPerMinute int    `json:"rateLimitPerMinute" example:"60"`
	PayloadLimit       string `json:"payloadLimit" example:"100kb"`
}

// GetConfig returns the active request limits
// @Summary Get configuration
// @Description Returns the template size limit, the per-client rate limit per minute and the body size limit as configured.
// @Tags config
// @Produce json
// @Success 200 {object} ConfigResponse
// @Failure 429 {object} ErrorResponse "Rate limit exceeded"
// @Router /api/config [get]
func (h *Handlers) GetConfig(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, ConfigResponse{
		TemplateSizeLimit:  h.config.TemplateSizeLimit,
		RateLimitPerMinute: perMinute(h.config.RateLimit, h.config.RateLimitWindow),
		PayloadLimit:       h.config.PayloadLimit,
	})
}

// perMinute scales a quota over window to a quota per minute.
func perMinute(limit int, window time.Duration) int {
	if window <= 0 || window == time.Minute {
		return limit
	}
	return int(math.Round(float64(limit) * float64(time.Minute) / float64(window)))
}

// LimiterHealth describes the admission control backend.
type LimiterHealth struct {
	Backend string `json:"backend" example:"local"`
	Status  string `json:"status" example:"healthy"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse is the health check body.
type HealthResponse struct {
	Status      string         `json:"status" example:"ok"`
	Timestamp   time.Time      `json:"timestamp"`
	RateLimiter *LimiterHealth `json:"rateLimiter"`
}

// HealthCheck reports liveness
// @Summary Health check
// @Description Reports liveness and the state of the rate limiter backend. A failing shared backend degrades to local counters, so it does not fail the check.
// @Tags system
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := HealthResponse{
		Status:      "ok",
		Timestamp:   time.Now().UTC(),
		RateLimiter: &LimiterHealth{Backend: "disabled", Status: "not_configured"},
	}

	if h.limiter != nil {
		backend, _ := h.limiter.Stats()["type"].(string)
		status.RateLimiter = &LimiterHealth{Backend: backend, Status: "healthy"}
		if err := h.limiter.Health(r.Context()); err != nil {
			status.Status = "degraded"
			status.RateLimiter.Status = "unhealthy"
			status.RateLimiter.Error = err.Error()
		}
	}

	respondJSON(w, http.StatusOK, status)
}
