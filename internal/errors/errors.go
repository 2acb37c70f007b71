package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Standard error categories used across xrel
var (
	// ErrConfiguration indicates an unreadable or inconsistent configuration
	ErrConfiguration = errors.New("configuration error")

	// ErrValidation indicates a configuration-time invariant was violated
	ErrValidation = errors.New("validation error")

	// ErrNamingConflict indicates two matrix entries resolve to the same artifact name
	ErrNamingConflict = errors.New("naming conflict")

	// ErrBuild indicates a toolchain or output-path failure for one job
	ErrBuild = errors.New("build failure")

	// ErrStore indicates an artifact could not be durably written
	ErrStore = errors.New("store failure")

	// ErrPublish indicates an upload to the release target failed
	ErrPublish = errors.New("publish failure")

	// ErrAuthentication indicates the release target rejected the credentials
	ErrAuthentication = errors.New("authentication error")

	// ErrPermissionDenied indicates the credentials lack access to the release target
	ErrPermissionDenied = errors.New("permission denied")

	// ErrRunFailed indicates the run completed but one or more jobs or uploads failed
	ErrRunFailed = errors.New("run failed")

	// ErrInternal indicates an internal error in xrel
	ErrInternal = errors.New("internal error")

	// ErrUserAborted indicates the run was interrupted
	ErrUserAborted = errors.New("user aborted")
)

// Error represents an xrel error with context
type Error struct {
	// Original is the underlying error
	Original error

	// Category is the broad category of the error
	Category error

	// Details contains additional detail about the error
	Details string

	// Suggestions provides hints on how to fix the error
	Suggestions []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var msg strings.Builder

	if e.Category != nil {
		msg.WriteString(e.Category.Error())
		msg.WriteString(": ")
	}

	if e.Original != nil {
		msg.WriteString(e.Original.Error())
	}

	if e.Details != "" {
		if e.Original != nil {
			msg.WriteString(" (")
			msg.WriteString(e.Details)
			msg.WriteString(")")
		} else {
			msg.WriteString(e.Details)
		}
	}

	return msg.String()
}

// FormattedError returns a formatted multi-line error message suitable for display
func (e *Error) FormattedError() string {
	var msg strings.Builder

	if e.Category != nil {
		category := e.Category.Error()
		if len(category) > 0 {
			msg.WriteString(strings.ToUpper(category[:1]) + category[1:])
			msg.WriteString(": ")
		}
	}

	if e.Original != nil {
		msg.WriteString(e.Original.Error())
		if e.Details != "" {
			msg.WriteString(" (")
			msg.WriteString(e.Details)
			msg.WriteString(")")
		}
	} else if e.Details != "" {
		msg.WriteString(e.Details)
	}

	if len(e.Suggestions) > 0 {
		msg.WriteString("\n\n")
		for i, suggestion := range e.Suggestions {
			if i > 0 {
				msg.WriteString("\n")
			}
			msg.WriteString("• ")
			msg.WriteString(suggestion)
		}
	}

	return msg.String()
}

// Unwrap allows errors.Is and errors.As to see through to the original error
func (e *Error) Unwrap() error {
	if e.Original != nil {
		return e.Original
	}
	return e.Category
}

// Is reports whether the category or the original error matches target
func (e *Error) Is(target error) bool {
	return errors.Is(e.Category, target) || (e.Original != nil && errors.Is(e.Original, target))
}

// NewError creates a new Error with the given attributes
func NewError(original error, category error, details string, suggestions ...string) *Error {
	return &Error{
		Original:    original,
		Category:    category,
		Details:     details,
		Suggestions: suggestions,
	}
}

// WithSuggestions adds suggestions to an existing error
func WithSuggestions(err error, suggestions ...string) error {
	var xErr *Error
	if errors.As(err, &xErr) {
		xErr.Suggestions = append(xErr.Suggestions, suggestions...)
		return err
	}

	return NewError(err, nil, "", suggestions...)
}

// WithDetails adds details to an existing error
func WithDetails(err error, details string) error {
	var xErr *Error
	if errors.As(err, &xErr) {
		if xErr.Details == "" {
			xErr.Details = details
		} else {
			xErr.Details = fmt.Sprintf("%s: %s", xErr.Details, details)
		}
		return err
	}

	return NewError(err, nil, details)
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(err error, details string, suggestions ...string) error {
	return NewError(err, ErrConfiguration, details, suggestions...)
}

// NewValidationError creates a new validation error
func NewValidationError(err error, details string, suggestions ...string) error {
	return NewError(err, ErrValidation, details, suggestions...)
}

// NewNamingConflictError creates a new naming conflict error
func NewNamingConflictError(err error, details string, suggestions ...string) error {
	return NewError(err, ErrNamingConflict, details, suggestions...)
}

// NewBuildError creates a new build failure
func NewBuildError(err error, details string) error {
	return NewError(err, ErrBuild, details)
}

// NewStoreError creates a new store failure
func NewStoreError(err error, details string) error {
	return NewError(err, ErrStore, details)
}

// NewPublishError creates a new publish failure
func NewPublishError(err error, details string, suggestions ...string) error {
	return NewError(err, ErrPublish, details, suggestions...)
}

// NewAuthenticationError creates a new authentication error
func NewAuthenticationError(err error, details string, suggestions ...string) error {
	return NewError(err, ErrAuthentication, details, suggestions...)
}

// NewPermissionDeniedError creates a new permission denied error
func NewPermissionDeniedError(err error, details string, suggestions ...string) error {
	return NewError(err, ErrPermissionDenied, details, suggestions...)
}

// NewRunFailedError creates the error returned when a run finished with failures
func NewRunFailedError(details string) error {
	return NewError(nil, ErrRunFailed, details)
}

// NewInternalError creates a new internal error
func NewInternalError(err error, details string, suggestions ...string) error {
	return NewError(err, ErrInternal, details, suggestions...)
}

// NewUserAbortedError creates a new user aborted error
func NewUserAbortedError(err error, details string, suggestions ...string) error {
	return NewError(err, ErrUserAborted, details, suggestions...)
}

// IsValidationError returns true if the error indicates a validation failure
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNamingConflict returns true if two matrix entries collide on an artifact name
func IsNamingConflict(err error) bool {
	return errors.Is(err, ErrNamingConflict)
}

// IsConfigurationError returns true if the error indicates a configuration issue
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsBuildError returns true if the error is scoped to a failed build
func IsBuildError(err error) bool {
	return errors.Is(err, ErrBuild)
}

// IsStoreError returns true if the error is scoped to a failed artifact write
func IsStoreError(err error) bool {
	return errors.Is(err, ErrStore)
}

// IsPublishError returns true if the error is scoped to a failed upload
func IsPublishError(err error) bool {
	return errors.Is(err, ErrPublish)
}

// IsRunFailed returns true if the run completed with failures
func IsRunFailed(err error) bool {
	return errors.Is(err, ErrRunFailed)
}

// IsUserAborted returns true if the error indicates the user aborted the run
func IsUserAborted(err error) bool {
	return errors.Is(err, ErrUserAborted)
}
