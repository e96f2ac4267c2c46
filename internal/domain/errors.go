package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Field   string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, msg, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, msg)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches sentinel DomainErrors by code and message so wrapped copies
// still satisfy errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message && (t.Field == "" || e.Field == t.Field)
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewValidationError reports caller-fixable input on a named field.
func NewValidationError(field, message string) *DomainError {
	return &DomainError{
		Code:    ErrCodeValidation,
		Field:   field,
		Message: message,
	}
}

// NewInfrastructureError wraps a store or transport failure with the
// operation that was running.
func NewInfrastructureError(op string, err error) *DomainError {
	return &DomainError{
		Code:    ErrCodeInfrastructure,
		Message: op,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeForbidden      = "FORBIDDEN"
	ErrCodeInfrastructure = "INFRASTRUCTURE_ERROR"
	ErrCodeInternalError  = "INTERNAL_ERROR"
)

// Not found errors
var (
	ErrSavedSearchNotFound = NewDomainError(ErrCodeNotFound, "saved search not found")
	ErrLocationNotFound    = NewDomainError(ErrCodeNotFound, "location not found")
	ErrPropertyNotFound    = NewDomainError(ErrCodeNotFound, "property not found")
)

// Authorization errors
var (
	ErrNotSavedSearchOwner = NewDomainError(ErrCodeForbidden, "saved search does not belong to caller")
	ErrInvalidToken        = NewDomainError(ErrCodeUnauthorized, "invalid token")
)

// Validation errors
var (
	ErrConflictingGeoFilters = NewValidationError("geo", "radius and bounding box filters are mutually exclusive")
	ErrDegenerateBox         = NewValidationError("bbox", "north-east corner must be strictly north and east of south-west corner")
	ErrTooFewWaypoints       = NewValidationError("waypoints", "at least two waypoints are required")
	ErrMissingRequiredField  = NewDomainError(ErrCodeValidation, "missing required field")
)

// CodeOf returns the code of the first DomainError in err's chain.
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

func IsValidation(err error) bool     { return CodeOf(err) == ErrCodeValidation }
func IsNotFound(err error) bool       { return CodeOf(err) == ErrCodeNotFound }
func IsForbidden(err error) bool      { return CodeOf(err) == ErrCodeForbidden }
func IsInfrastructure(err error) bool { return CodeOf(err) == ErrCodeInfrastructure }
