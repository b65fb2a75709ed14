package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestConstructors(t *testing.T) {
	cause := errors.New("root cause")
	tests := []struct {
		name       string
		err        *AppError
		wantType   ErrorType
		wantStatus int
	}{
		{"validation", NewValidationError("bad", cause), ErrorTypeValidation, http.StatusBadRequest},
		{"network", NewNetworkError("down", cause), ErrorTypeNetwork, http.StatusBadGateway},
		{"processing", NewProcessingError("broken", cause), ErrorTypeProcessing, http.StatusUnprocessableEntity},
		{"encoding", NewEncodingError("encode", cause), ErrorTypeEncoding, http.StatusUnprocessableEntity},
		{"too large", NewTooLargeError("big", cause), ErrorTypeTooLarge, http.StatusRequestEntityTooLarge},
		{"timeout", NewTimeoutError("slow", cause), ErrorTypeTimeout, http.StatusGatewayTimeout},
		{"not found", NewNotFoundError("missing", cause), ErrorTypeNotFound, http.StatusNotFound},
		{"internal", NewInternalError("oops", cause), ErrorTypeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Type != tt.wantType {
				t.Errorf("Expected type %s, got %s", tt.wantType, tt.err.Type)
			}
			if tt.err.StatusCode != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, tt.err.StatusCode)
			}
			if !errors.Is(tt.err, cause) {
				t.Error("Expected cause to be unwrappable")
			}
		})
	}
}

func TestNew_UnknownTypeIsInternal(t *testing.T) {
	if got := New(ErrorType("mystery"), "x", nil).StatusCode; got != http.StatusInternalServerError {
		t.Errorf("Expected 500 for unknown type, got %d", got)
	}
}

func TestIsTypeAndStatusThroughWrapping(t *testing.T) {
	err := fmt.Errorf("handler: %w", NewNotFoundError("missing", nil))

	if !IsType(err, ErrorTypeNotFound) {
		t.Error("Expected wrapped AppError to be detected")
	}
	if GetStatusCode(err) != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", GetStatusCode(err))
	}
	if GetStatusCode(errors.New("plain")) != http.StatusInternalServerError {
		t.Error("Expected 500 for plain errors")
	}
}

func TestPublicMessage(t *testing.T) {
	if got := PublicMessage(NewNetworkError("Failed to fetch image", errors.New("timeout"))); got != "Failed to fetch image: timeout" {
		t.Errorf("Unexpected message %q", got)
	}
	if got := PublicMessage(NewInternalError("internal error", errors.New("secret"))); got != "internal error" {
		t.Errorf("Expected internal cause to be hidden, got %q", got)
	}
	if got := PublicMessage(errors.New("plain")); got != "internal server error" {
		t.Errorf("Unexpected message %q", got)
	}
}
