// Package persistence provides standardized error types for storage operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrTriggerNotFound indicates a trigger was not found by the given identifier.
	ErrTriggerNotFound = errors.New("trigger not found")

	// ErrTriggerAlreadyExists indicates a trigger with the same name already exists.
	ErrTriggerAlreadyExists = errors.New("trigger already exists")

	// ErrInvalidTriggerStatus indicates an invalid trigger status was provided.
	ErrInvalidTriggerStatus = errors.New("invalid trigger status")

	// ErrInvalidSortField indicates an unsupported sort field was requested.
	ErrInvalidSortField = errors.New("invalid sort field")
)

// TriggerError wraps trigger-related errors with additional context.
type TriggerError struct {
	Op        string // Operation being performed (e.g., "GetByID", "Save", "Delete")
	TriggerID string // Trigger ID if applicable
	Err       error  // Underlying error
	Message   string // Additional context message
}

func (e *TriggerError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s operation failed for trigger %s: %s (%v)", e.Op, e.TriggerID, e.Message, e.Err)
	}

	return fmt.Sprintf("%s operation failed for trigger %s: %v", e.Op, e.TriggerID, e.Err)
}

func (e *TriggerError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for trigger errors.
func (e *TriggerError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewTriggerError creates a new trigger error with context.
func NewTriggerError(op, triggerID string, err error) *TriggerError {
	return &TriggerError{
		Op:        op,
		TriggerID: triggerID,
		Err:       err,
	}
}

// IsTriggerNotFound checks if an error indicates a trigger was not found.
func IsTriggerNotFound(err error) bool {
	return errors.Is(err, ErrTriggerNotFound)
}

// IsTriggerAlreadyExists checks if an error indicates a duplicate trigger name.
func IsTriggerAlreadyExists(err error) bool {
	return errors.Is(err, ErrTriggerAlreadyExists)
}
