package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestAppErrorMessage(t *testing.T) {
	err := NewStorageError(OpSave, fmt.Errorf("disk full"))

	msg := err.Error()
	if !strings.Contains(msg, "save operation failed") {
		t.Errorf("expected operation in message, got %q", msg)
	}
	if !strings.Contains(msg, "STORAGE_ERROR") {
		t.Errorf("expected code in message, got %q", msg)
	}
	if !strings.Contains(msg, "disk full") {
		t.Errorf("expected cause in message, got %q", msg)
	}
}

func TestUnwrap(t *testing.T) {
	cause := fmt.Errorf("underlying")
	err := NewNetworkError(OpAPICall, cause)

	if !stderrors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"storage", NewStorageError(OpSet, fmt.Errorf("x")), ErrCodeStorage},
		{"network", NewNetworkError(OpAPICall, fmt.Errorf("x")), ErrCodeNetwork},
		{"auth", NewAuthError(OpLogin, fmt.Errorf("x")), ErrCodeAuth},
		{"validation", NewValidationError(OpLogin, fmt.Errorf("x")), ErrCodeValidation},
		{"location", NewLocationError(OpGet, fmt.Errorf("x")), ErrCodeLocation},
		{"plain error", fmt.Errorf("anything with auth in the text"), ErrCodeUnknown},
		{"wrapped", fmt.Errorf("outer: %w", NewStorageError(OpGet, fmt.Errorf("x"))), ErrCodeStorage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(NewNetworkError(OpAPICall, fmt.Errorf("x"))) {
		t.Error("network errors should be retryable")
	}
	if !IsRetryable(NewStorageError(OpSet, fmt.Errorf("x"))) {
		t.Error("storage errors should be retryable")
	}
	if IsRetryable(NewValidationError(OpLogin, fmt.Errorf("x"))) {
		t.Error("validation errors should not be retryable")
	}
	if IsRetryable(fmt.Errorf("plain")) {
		t.Error("plain errors should not be retryable")
	}
}

func TestUserMessagePerCategory(t *testing.T) {
	seen := make(map[string]bool)
	for _, err := range []error{
		NewNetworkError(OpAPICall, fmt.Errorf("x")),
		NewLocationError(OpGet, fmt.Errorf("x")),
		NewStorageError(OpSet, fmt.Errorf("x")),
		NewAuthError(OpLogin, fmt.Errorf("x")),
		NewValidationError(OpLogin, fmt.Errorf("x")),
		fmt.Errorf("unclassified"),
	} {
		msg := UserMessage(err)
		if msg == "" {
			t.Errorf("empty user message for %v", err)
		}
		if seen[msg] {
			t.Errorf("duplicate user message %q", msg)
		}
		seen[msg] = true
	}
}
