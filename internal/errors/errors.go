package errors

import (
	"fmt"
)

// RagError is the structured error type for minirag.
// It provides rich context for error handling, logging, and user presentation.
type RagError struct {
	// Code is the unique error code (e.g., "ERR_201_FILE_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Retriever, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *RagError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *RagError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with RagError.
func (e *RagError) Is(target error) bool {
	if t, ok := target.(*RagError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *RagError) WithDetail(key, value string) *RagError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
// Returns the error for method chaining.
func (e *RagError) WithSuggestion(suggestion string) *RagError {
	e.Suggestion = suggestion
	return e
}

// New creates a new RagError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *RagError {
	return &RagError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a RagError from an existing error.
// The error's message becomes the RagError message.
func Wrap(code string, err error) *RagError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *RagError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// IOError creates a storage or I/O-related error.
func IOError(message string, cause error) *RagError {
	return New(ErrCodeFileNotFound, message, cause)
}

// RetrieverError creates a retrieval-collaborator error.
// Retriever errors are typically retryable.
func RetrieverError(message string, cause error) *RagError {
	return New(ErrCodeRetrieverUnavailable, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *RagError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *RagError {
	return New(ErrCodeInternal, message, cause)
}

// NoEvidence creates the sentinel returned when retrieval produced nothing
// usable. Callers treat it as an abstain signal, not a failure.
func NoEvidence(question string) *RagError {
	return New(ErrCodeNoEvidence, "no answer found", nil).
		WithDetail("question", question)
}

// IsRetryable checks if an error is retryable.
// Returns true if the error is a RagError with Retryable flag set.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if re, ok := err.(*RagError); ok {
		return re.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current operation.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if re, ok := err.(*RagError); ok {
		return re.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a RagError.
// Returns empty string if not a RagError.
func GetCode(err error) string {
	if re, ok := err.(*RagError); ok {
		return re.Code
	}
	return ""
}

// GetCategory extracts the category from a RagError.
// Returns empty string if not a RagError.
func GetCategory(err error) Category {
	if re, ok := err.(*RagError); ok {
		return re.Category
	}
	return ""
}
