// Package services provides standardized error types for service layer operations.
package services

import (
	"errors"
	"fmt"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest   = errors.New("invalid request")
	ErrInvalidSortField = errors.New("invalid sort field")
	ErrInvalidSortOrder = errors.New("invalid sort order")
	ErrInvalidStatus    = errors.New("invalid trigger status")

	ErrTriggerNil          = errors.New("trigger cannot be nil")
	ErrTriggerNameRequired = errors.New("trigger name is required")
	ErrConfigMismatch      = errors.New("trigger config does not match trigger type")
	ErrUnknownEvent        = errors.New("unknown domain event")
	ErrInvalidCron         = errors.New("invalid cron expression")
	ErrInvalidActionConfig = errors.New("invalid action configuration")

	// Business Logic Conflicts (409 Conflict).
	ErrTriggerNameTaken = errors.New("trigger name already in use")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidSortField) ||
		errors.Is(err, ErrInvalidSortOrder) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrTriggerNil) ||
		errors.Is(err, ErrTriggerNameRequired) ||
		errors.Is(err, ErrConfigMismatch) ||
		errors.Is(err, ErrUnknownEvent) ||
		errors.Is(err, ErrInvalidCron) ||
		errors.Is(err, ErrInvalidActionConfig)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrTriggerNameTaken)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
