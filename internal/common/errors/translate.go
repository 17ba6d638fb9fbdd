package errors

import (
	"errors"
	"net/http"
	"time"
)

// internalMessage is the only text an unexpected failure ever shows a client.
const internalMessage = "Internal server error"

var statusByType = map[ErrorType]int{
	ErrTypeValidation:       http.StatusBadRequest,
	ErrTypePayloadTooLarge:  http.StatusRequestEntityTooLarge,
	ErrTypeRateLimit:        http.StatusTooManyRequests,
	ErrTypeParse:            http.StatusBadRequest,
	ErrTypeRuntime:          http.StatusBadRequest,
	ErrTypeTimeout:          http.StatusGatewayTimeout,
	ErrTypeNotFound:         http.StatusNotFound,
	ErrTypeMethodNotAllowed: http.StatusMethodNotAllowed,
	ErrTypeConfig:           http.StatusInternalServerError,
	ErrTypeInternal:         http.StatusInternalServerError,
}

// HTTPStatus maps an error to the status code sent to the client. Errors
// that are not AppErrors are treated as internal.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if status, ok := statusByType[GetType(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// PublicMessage returns the message that is safe to show a client. Causes,
// context and codes never leave the process; internal and configuration
// failures collapse to a fixed message.
func PublicMessage(err error) string {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return internalMessage
	}
	switch appErr.Type {
	case ErrTypeInternal, ErrTypeConfig:
		return internalMessage
	}
	if appErr.Message == "" {
		return http.StatusText(HTTPStatus(err))
	}
	return appErr.Message
}

// RetryAfter returns how long a rate limited client should wait before
// retrying, or zero when err carries no such hint.
func RetryAfter(err error) time.Duration {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.RetryAfter
	}
	return 0
}
