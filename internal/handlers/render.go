package handlers

import (
	"fmt"
	"net/http"
)

// RenderRequest documents the render request body.
type RenderRequest struct {
	Template string                 `json:"template" example:"Hello $user.name"`
	Context  map[string]interface{} `json:"context,omitempty"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

// RenderResponse is a successful render.
type RenderResponse struct {
	Result string `json:"result" example:"Hello Ada"`
}

// RenderTemplate renders a template against a caller-supplied context
// @Summary Render a template
// @Description Renders a Velocity template with the given context. Helpers are available under $helpers; a context key named "helpers" is ignored. Set options.escape to HTML-escape reference output.
// @Tags render
// @Accept json
// @Produce json
// @Param request body RenderRequest true "Template, context and options"
// @Success 200 {object} RenderResponse
// @Failure 400 {object} ErrorResponse "Invalid request, or the template failed to parse or run"
// @Failure 413 {object} ErrorResponse "Body or template too large"
// @Failure 429 {object} ErrorResponse "Rate limit exceeded"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Failure 504 {object} ErrorResponse "Render exceeded its time or step budget"
// @Header 200,429 {integer} RateLimit-Limit "Requests allowed per window"
// @Header 200,429 {integer} RateLimit-Remaining "Requests left in the window"
// @Header 200,429 {integer} RateLimit-Reset "Seconds until the window resets"
// @Router /api/render [post]
func (h *Handlers) RenderTemplate(w http.ResponseWriter, r *http.Request) {
	body, err := h.validator.ReadBody(w, r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	req, err := h.validator.Validate(body)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	res, err := h.renderer.Render(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	cache := "miss"
	if res.CacheHit {
		cache = "hit"
	}
	w.Header().Set("X-Template-Cache", cache)
	w.Header().Set("Server-Timing", fmt.Sprintf("render;dur=%.3f", float64(res.Duration.Microseconds())/1000))

	respondJSON(w, http.StatusOK, RenderResponse{Result: res.Output})
}
