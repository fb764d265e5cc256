package shared

import "errors"

// Error codes shared by every layer. The HTTP layer maps them to status codes.
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeForbidden           = "FORBIDDEN"
	CodeNotFound            = "NOT_FOUND"
	CodeAlreadyExists       = "ALREADY_EXISTS"
	CodeStoreUnavailable    = "STORE_UNAVAILABLE"
	CodeInvalidState        = "INVALID_STATE"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap exposes the underlying cause
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError carrying the same code, so callers can write
// errors.Is(err, shared.ErrNotFound) regardless of the message.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrValidation          = NewDomainError(CodeValidation, "Invalid input provided")
	ErrForbidden           = NewDomainError(CodeForbidden, "Not authorized to perform this action")
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists       = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrStoreUnavailable    = NewDomainError(CodeStoreUnavailable, "Document store unavailable")
	ErrInvalidState        = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
)

// NewValidationError creates a validation error with a specific message
func NewValidationError(message string) *DomainError {
	return NewDomainError(CodeValidation, message)
}

// NewForbiddenError creates an authorization error
func NewForbiddenError(message string) *DomainError {
	return NewDomainError(CodeForbidden, message)
}

// NewNotFoundError creates a not-found error
func NewNotFoundError(message string) *DomainError {
	return NewDomainError(CodeNotFound, message)
}

// NewAlreadyExistsError creates a duplicate-identity error
func NewAlreadyExistsError(message string) *DomainError {
	return NewDomainError(CodeAlreadyExists, message)
}

// NewInvalidStateError creates an invalid state transition error
func NewInvalidStateError(message string) *DomainError {
	return NewDomainError(CodeInvalidState, message)
}

// NewConcurrencyError creates a concurrency conflict error
func NewConcurrencyError(message string) *DomainError {
	return NewDomainError(CodeConcurrencyConflict, message)
}

// StoreUnavailable wraps a transport or driver failure. Domain errors pass
// through untouched.
func StoreUnavailable(err error) error {
	if err == nil {
		return nil
	}
	var de *DomainError
	if errors.As(err, &de) {
		return err
	}
	return &DomainError{
		Code:    CodeStoreUnavailable,
		Message: "document store unavailable",
		Err:     err,
	}
}

// CodeOf returns the domain error code carried by err, or "" for foreign errors
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
