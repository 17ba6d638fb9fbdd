package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"runtime/debug"

	"github.com/google/uuid"

	"velocity-playground/internal/common/errors"
	"velocity-playground/internal/common/logging"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

var validRequestID = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// RequestID tags each request with an ID, reusing a well-formed incoming
// X-Request-ID and generating a UUID otherwise. The ID is echoed in the
// response and stored in the request context for logging.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if !validRequestID.MatchString(id) {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logging.ContextWithRequestID(r.Context(), id)))
	})
}

// Recover turns a panicking handler into a JSON 500.
func Recover(logger logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				err := errors.InternalError("handler panicked", fmt.Errorf("%v", rec))
				logger.WithContext(r.Context()).Error("Recovered from panic", err,
					logging.Field{Key: "path", Value: r.URL.Path},
					logging.Field{Key: "stack", Value: string(debug.Stack())},
				)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(errors.HTTPStatus(err))
				json.NewEncoder(w).Encode(map[string]string{"error": errors.PublicMessage(err)})
			}()
			next.ServeHTTP(w, r)
		})
	}
}
