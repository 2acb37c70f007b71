package errors

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Exit codes for different error types
const (
	ExitCodeSuccess          = 0
	ExitCodeGenericError     = 1
	ExitCodeValidationError  = 2
	ExitCodeAuthError        = 3
	ExitCodePermissionError  = 5
	ExitCodeConfigError      = 6
	ExitCodeInternalError    = 8
	ExitCodeRunFailed        = 10
	ExitCodeUserAbortedError = 130 // Same as Ctrl+C in bash
)

// Handler processes errors from commands and formats them appropriately
type Handler struct {
	// Writer is where error messages will be written
	Writer io.Writer
	// ExitFunc is the function called to exit the program with a specific code
	ExitFunc func(int)
	// Verbose enables more detailed error messages
	Verbose bool
}

// NewHandler creates a new Handler with default settings
func NewHandler() *Handler {
	return &Handler{
		Writer:   os.Stderr,
		ExitFunc: os.Exit,
		Verbose:  false,
	}
}

// WithWriter sets the writer for error output
func (h *Handler) WithWriter(w io.Writer) *Handler {
	h.Writer = w
	return h
}

// WithExitFunc sets the exit function
func (h *Handler) WithExitFunc(f func(int)) *Handler {
	h.ExitFunc = f
	return h
}

// WithVerbose sets the verbose flag
func (h *Handler) WithVerbose(v bool) *Handler {
	h.Verbose = v
	return h
}

// Handle writes the error and exits with the code for its category
func (h *Handler) Handle(err error) {
	if err == nil {
		return
	}

	exitCode := h.getExitCode(err)
	message := h.formatError(err)

	fmt.Fprintln(h.Writer, message)

	if h.ExitFunc != nil {
		h.ExitFunc(exitCode)
	}
}

func (h *Handler) getExitCode(err error) int {
	switch {
	case IsValidationError(err), IsNamingConflict(err):
		return ExitCodeValidationError
	case IsConfigurationError(err):
		return ExitCodeConfigError
	case IsRunFailed(err):
		return ExitCodeRunFailed
	case errors.Is(err, ErrAuthentication):
		return ExitCodeAuthError
	case errors.Is(err, ErrPermissionDenied):
		return ExitCodePermissionError
	case IsUserAborted(err):
		return ExitCodeUserAbortedError
	case errors.Is(err, ErrInternal):
		return ExitCodeInternalError
	default:
		return ExitCodeGenericError
	}
}

func (h *Handler) formatError(err error) string {
	prefix := "Error:"

	var xErr *Error
	if errors.As(err, &xErr) {
		var message string

		if xErr.Category != nil {
			prefix = h.getCategoryPrefix(xErr.Category)
		}

		if h.Verbose {
			message = xErr.FormattedError()
		} else {
			message = xErr.Error()
			if len(xErr.Suggestions) > 0 {
				message = fmt.Sprintf("%s\nTip: %s", message, xErr.Suggestions[0])
			}
		}

		return fmt.Sprintf("%s %s", prefix, message)
	}

	return fmt.Sprintf("%s %s", prefix, err.Error())
}

func (h *Handler) getCategoryPrefix(category error) string {
	switch category {
	case ErrValidation:
		return "Validation Error:"
	case ErrNamingConflict:
		return "Naming Conflict:"
	case ErrConfiguration:
		return "Configuration Error:"
	case ErrBuild:
		return "Build Failure:"
	case ErrStore:
		return "Store Failure:"
	case ErrPublish:
		return "Publish Failure:"
	case ErrAuthentication:
		return "Authentication Error:"
	case ErrPermissionDenied:
		return "Permission Denied:"
	case ErrRunFailed:
		return "Run Failed:"
	case ErrUserAborted:
		return "Aborted:"
	case ErrInternal:
		return "Internal Error:"
	default:
		return "Error:"
	}
}

// HandleWithDetails processes an error with the operation it happened in
func (h *Handler) HandleWithDetails(err error, operation string) {
	if err == nil {
		return
	}

	var contextualErr error
	if operation != "" {
		var xErr *Error
		if errors.As(err, &xErr) {
			newSuggestions := make([]string, len(xErr.Suggestions))
			copy(newSuggestions, xErr.Suggestions)

			newErr := &Error{
				Original:    xErr.Original,
				Category:    xErr.Category,
				Suggestions: newSuggestions,
				Details:     xErr.Details,
			}

			if newErr.Details == "" {
				newErr.Details = fmt.Sprintf("failed during: %s", operation)
			} else {
				newErr.Details = fmt.Sprintf("%s (during: %s)", newErr.Details, operation)
			}
			contextualErr = newErr
		} else {
			contextualErr = NewError(err, nil, fmt.Sprintf("failed during: %s", operation))
		}
	} else {
		contextualErr = err
	}

	h.Handle(contextualErr)
}

// PrintWarning prints a warning message
func (h *Handler) PrintWarning(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	fmt.Fprintf(h.Writer, "Warning: %s\n", message)
}

// GetExitCodeForError returns the exit code for a given error
func GetExitCodeForError(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}

	handler := NewHandler()
	return handler.getExitCode(err)
}
