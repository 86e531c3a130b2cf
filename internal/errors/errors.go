package errors

import (
	"fmt"
)

// NaragError is the structured error type for NaRAGtive.
// It provides rich context for error handling, logging, and user presentation.
type NaragError struct {
	// Code is the unique error code (e.g., "ERR_201_FILE_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Storage, Rerank, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Recoverable indicates the coordinator may fall back to the
	// stage-1 result set instead of failing the search.
	Recoverable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *NaragError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *NaragError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with NaragError.
func (e *NaragError) Is(target error) bool {
	if t, ok := target.(*NaragError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *NaragError) WithDetail(key, value string) *NaragError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
// Returns the error for method chaining.
func (e *NaragError) WithSuggestion(suggestion string) *NaragError {
	e.Suggestion = suggestion
	return e
}

// New creates a new NaragError with the given code and message.
// Category, severity, and recoverable flag are derived from the code.
func New(code string, message string, cause error) *NaragError {
	return &NaragError{
		Code:        code,
		Message:     message,
		Category:    categoryFromCode(code),
		Severity:    severityFromCode(code),
		Cause:       cause,
		Recoverable: isRecoverableCode(code),
	}
}

// Wrap creates a NaragError from an existing error.
// The error's message becomes the NaragError message.
func Wrap(code string, err error) *NaragError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ValidationError creates an input-validation error.
// Validation errors abort the call before any work is dispatched.
func ValidationError(message string, cause error) *NaragError {
	return New(ErrCodeInvalidInput, message, cause)
}

// StorageError creates a storage-related error (missing or corrupt file).
func StorageError(message string, cause error) *NaragError {
	return New(ErrCodeFileCorrupt, message, cause)
}

// RerankError creates a recoverable stage-2 error. The coordinator
// responds by falling back to stage-1 ordering with Degraded set.
func RerankError(message string, cause error) *NaragError {
	return New(ErrCodeRerankFailed, message, cause)
}

// ConsistencyError creates an invariant-violation error. These are
// defects and must never be masked with placeholder values.
func ConsistencyError(message string) *NaragError {
	return New(ErrCodeRerankCardinality, message, nil)
}

// DuplicateNameError indicates a registry name collision.
func DuplicateNameError(name string) *NaragError {
	return New(ErrCodeDuplicateName, fmt.Sprintf("store %q already registered", name), nil).
		WithSuggestion("use 'naragtive stores rename' to change an existing store's name")
}

// NotFoundError indicates an unknown registry store name.
func NotFoundError(name string) *NaragError {
	return New(ErrCodeStoreNotFound, fmt.Sprintf("store %q not found in registry", name), nil).
		WithSuggestion("run 'naragtive stores list' to see registered stores")
}

// MissingFileError indicates a referenced index file does not exist.
func MissingFileError(path string) *NaragError {
	return New(ErrCodeFileNotFound, fmt.Sprintf("index file not found: %s", path), nil)
}

// StoreNotLoadedError indicates a search was issued against a store
// handle that is not loaded.
func StoreNotLoadedError(name string) *NaragError {
	return New(ErrCodeStoreNotLoaded, fmt.Sprintf("store %q is not loaded", name), nil).
		WithSuggestion("select a store first with 'naragtive stores set-default'")
}

// IsRecoverable checks if a search may continue with the stage-1
// result set after this error.
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}
	if ne, ok := err.(*NaragError); ok {
		return ne.Recoverable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current operation.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if ne, ok := err.(*NaragError); ok {
		return ne.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a NaragError.
// Returns empty string if not a NaragError.
func GetCode(err error) string {
	if ne, ok := err.(*NaragError); ok {
		return ne.Code
	}
	return ""
}

// GetCategory extracts the category from a NaragError.
// Returns empty string if not a NaragError.
func GetCategory(err error) Category {
	if ne, ok := err.(*NaragError); ok {
		return ne.Category
	}
	return ""
}
