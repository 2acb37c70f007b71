package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorInterface(t *testing.T) {
	t.Parallel()

	t.Run("includes category and original error", func(t *testing.T) {
		t.Parallel()

		err := NewError(fmt.Errorf("cargo exited 101"), ErrBuild, "x86_64-unknown-linux-gnu")

		errStr := err.Error()
		if !strings.Contains(errStr, "build failure") {
			t.Errorf("Error string %q should contain category 'build failure'", errStr)
		}
		if !strings.Contains(errStr, "cargo exited 101") {
			t.Errorf("Error string %q should contain original error message", errStr)
		}
		if !strings.Contains(errStr, "(x86_64-unknown-linux-gnu)") {
			t.Errorf("Error string %q should contain details in parentheses", errStr)
		}
	})

	t.Run("formatted error includes suggestions", func(t *testing.T) {
		t.Parallel()

		suggestions := []string{"Rename one of the targets", "Remove the duplicate entry"}
		err := NewError(nil, ErrNamingConflict, "duplicate target", suggestions...)

		formatted := err.FormattedError()
		if !strings.HasPrefix(formatted, "Naming conflict: duplicate target") {
			t.Errorf("unexpected formatted prefix: %q", formatted)
		}
		for _, suggestion := range suggestions {
			if !strings.Contains(formatted, suggestion) {
				t.Errorf("Formatted error should contain suggestion %q, got: %q", suggestion, formatted)
			}
		}
	})
}

func TestErrorCategorization(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"validation", NewValidationError(nil, "empty binary name"), IsValidationError},
		{"naming conflict", NewNamingConflictError(nil, "duplicate"), IsNamingConflict},
		{"configuration", NewConfigurationError(nil, "bad yaml"), IsConfigurationError},
		{"build", NewBuildError(errors.New("boom"), "target"), IsBuildError},
		{"store", NewStoreError(errors.New("disk full"), "app"), IsStoreError},
		{"publish", NewPublishError(errors.New("502"), "app"), IsPublishError},
		{"run failed", NewRunFailedError("1 job failed"), IsRunFailed},
		{"aborted", NewUserAbortedError(nil, "interrupted"), IsUserAborted},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if !tt.check(tt.err) {
				t.Errorf("expected %v to match its category", tt.err)
			}
		})
	}

	t.Run("categories do not overlap", func(t *testing.T) {
		t.Parallel()

		if IsPublishError(NewBuildError(nil, "x")) {
			t.Error("build failure must not match publish category")
		}
	})

	t.Run("wrapped errors keep their category", func(t *testing.T) {
		t.Parallel()

		wrapped := fmt.Errorf("loading config: %w", NewConfigurationError(nil, "bad yaml"))
		if !IsConfigurationError(wrapped) {
			t.Error("errors.Is should see through fmt wrapping")
		}
	})
}

func TestErrorWrapping(t *testing.T) {
	t.Parallel()

	t.Run("WithSuggestions adds suggestions", func(t *testing.T) {
		t.Parallel()

		err := WithSuggestions(NewValidationError(nil, "Invalid input"), "Try this instead", "Or this")

		if !IsValidationError(err) {
			t.Error("Error category should be preserved when adding suggestions")
		}

		var xErr *Error
		if !errors.As(err, &xErr) {
			t.Fatal("WithSuggestions should return a *Error")
		}
		if len(xErr.Suggestions) != 2 {
			t.Errorf("Expected 2 suggestions, got %d", len(xErr.Suggestions))
		}
	})

	t.Run("WithDetails appends details", func(t *testing.T) {
		t.Parallel()

		err := WithDetails(NewStoreError(nil, "app-x86_64"), "rename failed")

		var xErr *Error
		if !errors.As(err, &xErr) {
			t.Fatal("WithDetails should return a *Error")
		}
		if xErr.Details != "app-x86_64: rename failed" {
			t.Errorf("unexpected details %q", xErr.Details)
		}
	})

	t.Run("WithDetails wraps plain errors", func(t *testing.T) {
		t.Parallel()

		plain := errors.New("plain")
		err := WithDetails(plain, "context")
		if !errors.Is(err, plain) {
			t.Error("wrapped error should still match the original")
		}
	})
}
