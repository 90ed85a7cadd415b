// Package shared contains common domain types, errors, and events that are
// used across all domain packages.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation   = errors.New("validation error")
	ErrInvalidID    = errors.New("invalid ID")
	ErrInvalidInput = errors.New("invalid input")

	// Store errors
	ErrStoreUnavailable = errors.New("store unavailable")

	// Concurrency errors
	ErrConflictRetryExhausted = errors.New("conflict retry attempts exhausted")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "content", "progress"
	Op      string // Operation that failed, e.g., "Resolve", "Upsert"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Content domain errors
var (
	// ErrTenantRelationNotFound covers both a missing entity and a
	// cross-tenant access attempt. They are deliberately indistinguishable
	// so a caller cannot enumerate another tenant's resources.
	ErrTenantRelationNotFound = NewDomainError("content", "ValidateRelations", ErrNotFound, "tenant, user, or lesson not found")
	ErrLessonNotFound         = NewDomainError("content", "GetLesson", ErrNotFound, "lesson not found in this tenant")
	ErrBlockNotInLesson       = NewDomainError("content", "ValidateBlock", ErrValidation, "block is not part of this lesson")
)

// Progress domain errors
var (
	ErrInvalidStatus     = NewDomainError("progress", "Validate", ErrInvalidInput, "status must be 'seen' or 'completed'")
	ErrUpsertNotConverge = NewDomainError("progress", "Upsert", ErrConflictRetryExhausted, "insert race did not converge")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput)
}

// IsStoreUnavailable checks if the error is a transient store failure.
func IsStoreUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
