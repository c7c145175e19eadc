package errors

import "fmt"

// ErrorCode represents a snapvault error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrFieldTooLarge  ErrorCode = "FIELD_TOO_LARGE" // 413
	ErrIntegrity      ErrorCode = "INTEGRITY"       // 500
	ErrInternal       ErrorCode = "INTERNAL"        // 500
)

// VaultError represents a structured error with code, status, and details.
type VaultError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *VaultError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *VaultError {
	return &VaultError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing snapshot or session.
// kind is "snapshot" or "session"; identifier is the id that was looked up.
func NewNotFound(kind, identifier string) *VaultError {
	return &VaultError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, identifier),
		Details: map[string]any{"kind": kind, "identifier": identifier},
	}
}

// NewFieldTooLarge creates a 413 error when a field exceeds its character limit.
func NewFieldTooLarge(field string, max, actual int) *VaultError {
	return &VaultError{
		Code:    ErrFieldTooLarge,
		Status:  413,
		Message: fmt.Sprintf("%s exceeds maximum length: %d chars (max %d)", field, actual, max),
		Details: map[string]any{"field": field, "max_chars": max, "actual_chars": actual},
	}
}

// NewIntegrity creates a 500 error for a failed store integrity check.
func NewIntegrity(detail string) *VaultError {
	return &VaultError{
		Code:    ErrIntegrity,
		Status:  500,
		Message: fmt.Sprintf("store integrity check failed: %s", detail),
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *VaultError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &VaultError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is a VaultError with the given code.
func Is(err error, code ErrorCode) bool {
	if vErr, ok := err.(*VaultError); ok {
		return vErr.Code == code
	}
	return false
}
