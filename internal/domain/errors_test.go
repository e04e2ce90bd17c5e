package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorWrappingAndExtraction(t *testing.T) {
	cause := errors.New("socket closed")
	err := E(CodeExtractionFailed, "Failed to read text from the receipt.", cause)

	if !errors.Is(err, cause) {
		t.Error("cause not reachable through Unwrap")
	}
	if CodeOf(err) != CodeExtractionFailed {
		t.Errorf("CodeOf() = %q", CodeOf(err))
	}
	if MessageOf(err) != "Failed to read text from the receipt." {
		t.Errorf("MessageOf() = %q", MessageOf(err))
	}

	// Classification survives another layer of wrapping.
	wrapped := fmt.Errorf("pipeline: %w", err)
	if CodeOf(wrapped) != CodeExtractionFailed {
		t.Errorf("CodeOf(wrapped) = %q", CodeOf(wrapped))
	}
}

func TestUnclassifiedErrorDefaults(t *testing.T) {
	err := errors.New("raw failure")
	if CodeOf(err) != CodeInternal {
		t.Errorf("CodeOf() = %q, want internal", CodeOf(err))
	}
	if MessageOf(err) != "An unexpected error occurred." {
		t.Errorf("MessageOf() = %q", MessageOf(err))
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{CodeUnauthenticated, http.StatusUnauthorized},
		{CodeInvalidRequest, http.StatusBadRequest},
		{CodeNotFound, http.StatusNotFound},
		{CodeForbidden, http.StatusForbidden},
		{CodeExtractionFailed, http.StatusInternalServerError},
		{CodePersistenceFailed, http.StatusInternalServerError},
		{CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := tt.code.HTTPStatus(); got != tt.want {
			t.Errorf("%s.HTTPStatus() = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestErrfFormatsMessage(t *testing.T) {
	err := Errf(CodeInvalidRequest, "Selected category %q is a %q category.", "Salary", "income")
	want := `Selected category "Salary" is a "income" category.`
	if MessageOf(err) != want {
		t.Errorf("MessageOf() = %q, want %q", MessageOf(err), want)
	}
}
