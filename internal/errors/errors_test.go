package errors

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestIsType_SeesThroughWrapping(t *testing.T) {
	base := NewMalformedModelError("missing category: colors", nil)
	wrapped := fmt.Errorf("import model: %w", base)

	if !IsType(wrapped, ErrorTypeMalformedModel) {
		t.Error("Expected wrapped error to be recognised as malformed_model")
	}
	if IsType(wrapped, ErrorTypeInvalidNumber) {
		t.Error("Expected wrapped error not to match invalid_number")
	}
	if IsType(fmt.Errorf("plain"), ErrorTypeValidation) {
		t.Error("Expected plain error not to match any type")
	}
}

func TestGetStatusCode(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected int
	}{
		{"Validation", NewValidationError("bad buffer", nil), http.StatusBadRequest},
		{"Training type", NewInvalidTrainingTypeError("bogus"), http.StatusBadRequest},
		{"Capacity", NewCapacityExceededError("ai", 1000, 1, 1000), http.StatusConflict},
		{"Insufficient", NewInsufficientSamplesError("need more"), http.StatusConflict},
		{"Invalid number", NewInvalidNumberError("colors.uniqueColors"), http.StatusUnprocessableEntity},
		{"Wrapped", fmt.Errorf("ctx: %w", NewNotFoundError("snapshot", nil)), http.StatusNotFound},
		{"Plain", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := GetStatusCode(tc.err); got != tc.expected {
				t.Errorf("Expected status %d, got %d", tc.expected, got)
			}
		})
	}
}

func TestAppError_ErrorIncludesDetailsAndCause(t *testing.T) {
	err := NewValidationError("image dimensions out of range", fmt.Errorf("width 10"))
	err = err.WithDetails("dimensions")

	msg := err.Error()
	for _, part := range []string{"validation", "image dimensions out of range", "[dimensions]", "width 10"} {
		if !strings.Contains(msg, part) {
			t.Errorf("Expected %q in error message, got %q", part, msg)
		}
	}
}

func TestWithDetails_DoesNotMutateOriginal(t *testing.T) {
	orig := NewValidationError("bad", nil)
	_ = orig.WithDetails("buffer_length")
	if orig.Details != "" {
		t.Errorf("Expected original details to stay empty, got %q", orig.Details)
	}
}
