package errors

import (
	stderrors "errors"
	"fmt"
)

// MDError is the structured error type for mdsearch.
// It provides rich context for error handling, logging, and user presentation.
type MDError struct {
	// Code is the unique error code (e.g., "ERR_402_QUERY_EMPTY").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Validation, IO, Store, etc.).
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
func (e *MDError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *MDError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with MDError.
func (e *MDError) Is(target error) bool {
	if t, ok := target.(*MDError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *MDError) WithDetail(key, value string) *MDError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *MDError) WithSuggestion(suggestion string) *MDError {
	e.Suggestion = suggestion
	return e
}

// New creates a new MDError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *MDError {
	return &MDError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates an MDError from an existing error.
// The error's message becomes the MDError message.
func Wrap(code string, err error) *MDError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *MDError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// IOError creates an I/O-related error.
func IOError(message string, cause error) *MDError {
	return New(ErrCodeFileNotFound, message, cause)
}

// ExtractionError creates an error for a document that could not be decoded.
func ExtractionError(message string, cause error) *MDError {
	return New(ErrCodeUnsupportedEncoding, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *MDError {
	return New(ErrCodeInvalidInput, message, cause)
}

// StoreError creates an error reported to callers as service unavailable.
func StoreError(message string, cause error) *MDError {
	return New(ErrCodeStoreUnavailable, message, cause).
		WithSuggestion("The index is temporarily unavailable. Retry shortly or run 'mdsearch rebuild'.")
}

// NotFound creates a document-not-found error.
func NotFound(message string) *MDError {
	return New(ErrCodeDocumentNotFound, message, nil)
}

// As returns the first MDError in err's chain.
func As(err error) (*MDError, bool) {
	var me *MDError
	if stderrors.As(err, &me) {
		return me, true
	}
	return nil, false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if me, ok := As(err); ok {
		return me.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current operation.
func IsFatal(err error) bool {
	if me, ok := As(err); ok {
		return me.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from an MDError.
// Returns empty string if not an MDError.
func GetCode(err error) string {
	if me, ok := As(err); ok {
		return me.Code
	}
	return ""
}

// GetCategory extracts the category from an MDError.
// Returns empty string if not an MDError.
func GetCategory(err error) Category {
	if me, ok := As(err); ok {
		return me.Category
	}
	return ""
}

// IsValidation reports whether err is a client-side validation failure.
func IsValidation(err error) bool {
	return GetCategory(err) == CategoryValidation
}
