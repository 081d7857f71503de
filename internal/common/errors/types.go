package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrTypeValidation represents malformed input that is safe to echo back
	ErrTypeValidation ErrorType = "validation"
	// ErrTypeUnsupportedMedia represents a request body in a format we don't accept
	ErrTypeUnsupportedMedia ErrorType = "unsupported_media"
	// ErrTypePayloadTooLarge represents a request body over the configured ceiling
	ErrTypePayloadTooLarge ErrorType = "payload_too_large"
	// ErrTypeAuth represents authentication errors
	ErrTypeAuth ErrorType = "authentication"
	// ErrTypeForbidden represents an authenticated caller acting outside its scope
	ErrTypeForbidden ErrorType = "forbidden"
	// ErrTypeNotFound represents resource not found errors
	ErrTypeNotFound ErrorType = "not_found"
	// ErrTypeMethodNotAllowed represents a known path called with the wrong method
	ErrTypeMethodNotAllowed ErrorType = "method_not_allowed"
	// ErrTypeResourceExhausted represents a soft quota being reached
	ErrTypeResourceExhausted ErrorType = "resource_exhausted"
	// ErrTypeUpstream represents a failed call to the bot platform
	ErrTypeUpstream ErrorType = "upstream"
	// ErrTypeUnavailable represents temporary overload
	ErrTypeUnavailable ErrorType = "unavailable"
	// ErrTypeConfig represents configuration errors
	ErrTypeConfig ErrorType = "config"
	// ErrTypeInternal represents internal system errors
	ErrTypeInternal ErrorType = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Type    ErrorType              `json:"type"`
	Message string                 `json:"message"`
	Code    string                 `json:"code,omitempty"`
	Data    interface{}            `json:"data,omitempty"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
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

// WithData attaches data that is returned to the caller alongside the message
func (e *AppError) WithData(data interface{}) *AppError {
	e.Data = data
	return e
}

// ValidationError creates a new validation error
func ValidationError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeValidation,
		Message: msg,
	}
}

// UnsupportedMediaError creates an error for an unsupported request content type
func UnsupportedMediaError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeUnsupportedMedia,
		Message: msg,
	}
}

// PayloadTooLargeError creates an error for a body over the size ceiling
func PayloadTooLargeError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypePayloadTooLarge,
		Message: msg,
	}
}

// AuthError creates a new authentication error
func AuthError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeAuth,
		Message: msg,
	}
}

// ForbiddenError creates a new authorization error
func ForbiddenError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeForbidden,
		Message: msg,
	}
}

// NotFoundError creates a new not found error
func NotFoundError(resource string) *AppError {
	return &AppError{
		Type:    ErrTypeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// MethodNotAllowedError creates an error for a path that exists under another method
func MethodNotAllowedError(method string) *AppError {
	return &AppError{
		Type:    ErrTypeMethodNotAllowed,
		Message: fmt.Sprintf("method %s not allowed", method),
	}
}

// ResourceExhaustedError creates an error for a reached quota
func ResourceExhaustedError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeResourceExhausted,
		Message: msg,
	}
}

// UpstreamError creates an error for a failed call to an external service
func UpstreamError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeUpstream,
		Message: msg,
		Cause:   cause,
	}
}

// UnavailableError creates an error for temporary overload
func UnavailableError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeUnavailable,
		Message: msg,
	}
}

// ConfigError creates a new configuration error
func ConfigError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeConfig,
		Message: msg,
	}
}

// InternalError creates a new internal error
func InternalError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeInternal,
		Message: msg,
		Cause:   cause,
	}
}

// As returns the first AppError in the chain of err
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	appErr, ok := As(err)
	if !ok {
		return false
	}
	return appErr.Type == errType
}

// GetType returns the error type if it's an AppError, otherwise returns ErrTypeInternal
func GetType(err error) ErrorType {
	if err == nil {
		return ""
	}

	appErr, ok := As(err)
	if !ok {
		return ErrTypeInternal
	}

	return appErr.Type
}

// HTTPStatus maps an error to the status code used when it reaches the HTTP boundary
func HTTPStatus(err error) int {
	switch GetType(err) {
	case "":
		return http.StatusOK
	case ErrTypeValidation:
		return http.StatusBadRequest
	case ErrTypeUnsupportedMedia:
		return http.StatusUnsupportedMediaType
	case ErrTypePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrTypeAuth:
		return http.StatusUnauthorized
	case ErrTypeForbidden:
		return http.StatusForbidden
	case ErrTypeNotFound:
		return http.StatusNotFound
	case ErrTypeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case ErrTypeResourceExhausted:
		return http.StatusTooManyRequests
	case ErrTypeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// IsSafe reports whether the error message can be shown to the caller as-is
func IsSafe(err error) bool {
	switch GetType(err) {
	case ErrTypeUpstream, ErrTypeInternal, ErrTypeConfig:
		return false
	}
	_, ok := As(err)
	return ok
}
