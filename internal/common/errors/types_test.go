package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appError *AppError
		want     string
	}{
		{
			name: "basic error",
			appError: &AppError{
				Type:    ErrTypeConfig,
				Message: "BOT_APP_ID is required",
			},
			want: "config: BOT_APP_ID is required",
		},
		{
			name: "error with code",
			appError: &AppError{
				Type:    ErrTypeAuth,
				Message: "Invalid authorization",
				Code:    "WH401",
			},
			want: "authentication: Invalid authorization: code=WH401",
		},
		{
			name: "error with cause",
			appError: &AppError{
				Type:    ErrTypeUpstream,
				Message: "token exchange failed",
				Cause:   errors.New("status 503"),
			},
			want: "upstream: token exchange failed: cause=status 503",
		},
		{
			name: "context keys are sorted",
			appError: &AppError{
				Type:    ErrTypeForbidden,
				Message: "not your webhook",
				Context: map[string]interface{}{
					"webhook_id": "abc",
					"tag":        "xyz",
				},
			},
			want: "forbidden: not your webhook: context={tag=xyz, webhook_id=abc}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.appError.Error()
			if got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppError_Builders(t *testing.T) {
	appError := ValidationError("Invalid webhook ID")

	if appError.WithContext("id", "x") != appError {
		t.Error("WithContext should return the same instance")
	}
	if appError.WithCode("E1") != appError {
		t.Error("WithCode should return the same instance")
	}
	if appError.WithData(map[string]string{"hint": "check the URL"}) != appError {
		t.Error("WithData should return the same instance")
	}

	if appError.Context["id"] != "x" {
		t.Errorf("Context[id] = %v, want x", appError.Context["id"])
	}
	if appError.Code != "E1" {
		t.Errorf("Code = %v, want E1", appError.Code)
	}
	if appError.Data == nil {
		t.Error("Data should be set")
	}
}

func TestConstructors(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name     string
		err      *AppError
		wantType ErrorType
		wantMsg  string
	}{
		{"validation", ValidationError("bad"), ErrTypeValidation, "bad"},
		{"unsupported media", UnsupportedMediaError("xml"), ErrTypeUnsupportedMedia, "xml"},
		{"too large", PayloadTooLargeError("big"), ErrTypePayloadTooLarge, "big"},
		{"auth", AuthError("no"), ErrTypeAuth, "no"},
		{"forbidden", ForbiddenError("mine"), ErrTypeForbidden, "mine"},
		{"not found", NotFoundError("webhook"), ErrTypeNotFound, "webhook not found"},
		{"method not allowed", MethodNotAllowedError("PUT"), ErrTypeMethodNotAllowed, "method PUT not allowed"},
		{"exhausted", ResourceExhaustedError("full"), ErrTypeResourceExhausted, "full"},
		{"upstream", UpstreamError("send failed", cause), ErrTypeUpstream, "send failed"},
		{"unavailable", UnavailableError("busy"), ErrTypeUnavailable, "busy"},
		{"config", ConfigError("cfg"), ErrTypeConfig, "cfg"},
		{"internal", InternalError("oops", cause), ErrTypeInternal, "oops"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", tt.err.Type, tt.wantType)
			}
			if tt.err.Message != tt.wantMsg {
				t.Errorf("Message = %v, want %v", tt.err.Message, tt.wantMsg)
			}
		})
	}
}

func TestIsTypeAndGetType(t *testing.T) {
	wrapped := fmt.Errorf("handling request: %w", ForbiddenError("nope"))

	tests := []struct {
		name     string
		err      error
		errType  ErrorType
		wantIs   bool
		wantType ErrorType
	}{
		{"matching type", ConfigError("test"), ErrTypeConfig, true, ErrTypeConfig},
		{"non-matching type", ConfigError("test"), ErrTypeAuth, false, ErrTypeConfig},
		{"wrapped app error", wrapped, ErrTypeForbidden, true, ErrTypeForbidden},
		{"non-app error", errors.New("regular error"), ErrTypeConfig, false, ErrTypeInternal},
		{"nil error", nil, ErrTypeConfig, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsType(tt.err, tt.errType); got != tt.wantIs {
				t.Errorf("IsType() = %v, want %v", got, tt.wantIs)
			}
			if got := GetType(tt.err); got != tt.wantType {
				t.Errorf("GetType() = %v, want %v", got, tt.wantType)
			}
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{ValidationError("x"), http.StatusBadRequest},
		{UnsupportedMediaError("x"), http.StatusUnsupportedMediaType},
		{PayloadTooLargeError("x"), http.StatusRequestEntityTooLarge},
		{AuthError("x"), http.StatusUnauthorized},
		{ForbiddenError("x"), http.StatusForbidden},
		{NotFoundError("x"), http.StatusNotFound},
		{MethodNotAllowedError("GET"), http.StatusMethodNotAllowed},
		{ResourceExhaustedError("x"), http.StatusTooManyRequests},
		{UnavailableError("x"), http.StatusServiceUnavailable},
		{UpstreamError("x", nil), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v", tt.err), func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestIsSafe(t *testing.T) {
	if !IsSafe(ValidationError("Invalid webhook ID")) {
		t.Error("validation errors should be safe to show")
	}
	if IsSafe(UpstreamError("token endpoint returned 500", nil)) {
		t.Error("upstream errors should not be shown")
	}
	if IsSafe(InternalError("nil pointer", nil)) {
		t.Error("internal errors should not be shown")
	}
	if IsSafe(errors.New("plain")) {
		t.Error("plain errors should not be shown")
	}
}

func TestErrorChaining(t *testing.T) {
	originalErr := errors.New("original error")
	wrappedErr := InternalError("wrapped error", originalErr)

	if !errors.Is(wrappedErr, originalErr) {
		t.Error("errors.Is should work with wrapped AppError")
	}

	appErr, ok := As(fmt.Errorf("outer: %w", wrappedErr))
	if !ok {
		t.Fatal("As should find the AppError in the chain")
	}
	if appErr.Type != ErrTypeInternal {
		t.Errorf("Unwrapped AppError type = %v, want %v", appErr.Type, ErrTypeInternal)
	}
}
