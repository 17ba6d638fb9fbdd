package ratelimit

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"velocity-playground/internal/common/errors"
	"velocity-playground/internal/common/logging"
	"velocity-playground/internal/common/ratelimit"
)

// DeniedMessage is the body of a 429 response.
const DeniedMessage = "Too many requests, please try again later."

// Limiter applies a ratelimit.Limiter to HTTP requests.
type Limiter struct {
	limiter ratelimit.Limiter
	logger  logging.Logger

	deniedLog rate.Sometimes
}

func NewLimiter(limiter ratelimit.Limiter, logger logging.Logger) *Limiter {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Limiter{
		limiter:   limiter,
		logger:    logger.WithFields(logging.Field{Key: "component", Value: "ratelimit"}),
		deniedLog: rate.Sometimes{First: 5, Interval: 10 * time.Second},
	}
}

// HTTPMiddleware admits each request before it reaches next. Every response
// carries RateLimit-Limit, RateLimit-Remaining and RateLimit-Reset; a denied
// request gets a JSON 429 with Retry-After and next never runs.
func (l *Limiter) HTTPMiddleware(keyFunc func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			if key == "" {
				// If no key, allow the request
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			decision, err := l.limiter.Admit(ctx, key)
			if err != nil {
				// On error, allow the request but log the error
				l.logger.WithContext(ctx).Error("Rate limit check failed", err,
					logging.Field{Key: "key", Value: key})
				next.ServeHTTP(w, r)
				return
			}

			reset := ceilSeconds(time.Until(decision.ResetAt))
			w.Header().Set("RateLimit-Limit", strconv.Itoa(decision.Limit))
			w.Header().Set("RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			w.Header().Set("RateLimit-Reset", strconv.Itoa(reset))

			if !decision.Allowed {
				retryAfter := ceilSeconds(decision.RetryAfter)
				if retryAfter < 1 {
					retryAfter = 1
				}
				l.deniedLog.Do(func() {
					l.logger.WithContext(ctx).Warn("Rate limit exceeded",
						logging.Field{Key: "key", Value: key},
						logging.Field{Key: "path", Value: r.URL.Path},
						logging.Field{Key: "retry_after", Value: retryAfter},
					)
				})

				appErr := errors.RateLimitError(DeniedMessage, decision.RetryAfter)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(errors.HTTPStatus(appErr))
				json.NewEncoder(w).Encode(map[string]string{"error": errors.PublicMessage(appErr)})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}

// IPBasedKey keys clients by address. Forwarding headers are only honored
// behind a trusted proxy.
func IPBasedKey(trustProxy bool) func(*http.Request) string {
	return func(r *http.Request) string {
		if trustProxy {
			if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
				first, _, _ := strings.Cut(fwd, ",")
				if ip := strings.TrimSpace(first); ip != "" {
					return "ip:" + ip
				}
			}
			if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
				return "ip:" + ip
			}
		}

		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		return "ip:" + host
	}
}
