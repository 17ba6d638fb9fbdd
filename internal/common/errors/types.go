package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrTypeValidation represents malformed or missing input
	ErrTypeValidation ErrorType = "validation"
	// ErrTypePayloadTooLarge represents a body or template over its size limit
	ErrTypePayloadTooLarge ErrorType = "payload_too_large"
	// ErrTypeRateLimit represents admission control rejections
	ErrTypeRateLimit ErrorType = "rate_limit"
	// ErrTypeParse represents a template that failed to parse
	ErrTypeParse ErrorType = "engine_parse"
	// ErrTypeRuntime represents a template that failed while executing
	ErrTypeRuntime ErrorType = "engine_runtime"
	// ErrTypeTimeout represents an exhausted render deadline or step budget
	ErrTypeTimeout ErrorType = "engine_timeout"
	// ErrTypeNotFound represents resource not found errors
	ErrTypeNotFound ErrorType = "not_found"
	// ErrTypeMethodNotAllowed represents a route hit with the wrong method
	ErrTypeMethodNotAllowed ErrorType = "method_not_allowed"
	// ErrTypeConfig represents configuration errors
	ErrTypeConfig ErrorType = "config"
	// ErrTypeInternal represents internal system errors
	ErrTypeInternal ErrorType = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	Code       string                 `json:"code,omitempty"`
	Cause      error                  `json:"-"`
	Context    map[string]interface{} `json:"context,omitempty"`
	RetryAfter time.Duration          `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	parts := []string{string(e.Type), e.Message}

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("code=%s", e.Code))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause=%v", e.Cause))
	}

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		contextParts := make([]string, 0, len(keys))
		for _, k := range keys {
			contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		parts = append(parts, fmt.Sprintf("context={%s}", strings.Join(contextParts, ", ")))
	}

	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithCode adds an error code
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// ValidationError creates a new validation error
func ValidationError(msg string) *AppError {
	return &AppError{Type: ErrTypeValidation, Message: msg}
}

// PayloadTooLargeError creates a new size limit error
func PayloadTooLargeError(msg string) *AppError {
	return &AppError{Type: ErrTypePayloadTooLarge, Message: msg}
}

// RateLimitError creates a new rate limit error. retryAfter is surfaced to
// the client through the Retry-After header.
func RateLimitError(msg string, retryAfter time.Duration) *AppError {
	return &AppError{Type: ErrTypeRateLimit, Message: msg, RetryAfter: retryAfter}
}

// ParseError creates a new template parse error
func ParseError(msg string, cause error) *AppError {
	return &AppError{Type: ErrTypeParse, Message: msg, Cause: cause}
}

// RuntimeError creates a new template execution error
func RuntimeError(msg string, cause error) *AppError {
	return &AppError{Type: ErrTypeRuntime, Message: msg, Cause: cause}
}

// TimeoutError creates a new timeout error
func TimeoutError(operation string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeTimeout,
		Message: fmt.Sprintf("timeout during %s", operation),
		Cause:   cause,
	}
}

// NotFoundError creates a new not found error
func NotFoundError(resource string) *AppError {
	return &AppError{Type: ErrTypeNotFound, Message: fmt.Sprintf("%s not found", resource)}
}

// MethodNotAllowedError creates a new method not allowed error
func MethodNotAllowedError(method string) *AppError {
	return &AppError{Type: ErrTypeMethodNotAllowed, Message: fmt.Sprintf("method %s not allowed", method)}
}

// ConfigError creates a new configuration error
func ConfigError(msg string) *AppError {
	return &AppError{Type: ErrTypeConfig, Message: msg}
}

// InternalError creates a new internal error
func InternalError(msg string, cause error) *AppError {
	return &AppError{Type: ErrTypeInternal, Message: msg, Cause: cause}
}

// IsType checks if an error, or any error it wraps, is an AppError of errType
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Type == errType
}

// GetType returns the error type if it's an AppError, otherwise returns ErrTypeInternal
func GetType(err error) ErrorType {
	if err == nil {
		return ""
	}

	var appErr *AppError
	if !errors.As(err, &appErr) {
		return ErrTypeInternal
	}
	return appErr.Type
}
