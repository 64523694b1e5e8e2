package services

import (
	"fmt"
)

// ValidationError reports malformed or out-of-range input.
type ValidationError struct{ Message string }

func (e *ValidationError) Error() string { return e.Message }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

// PolicyError is a business-rule refusal of otherwise valid input.
type PolicyError struct{ Message string }

func (e *PolicyError) Error() string { return e.Message }

type ConflictError struct{ Message string }

func (e *ConflictError) Error() string { return e.Message }

// PermissionError means the actor is not a party to the resource.
type PermissionError struct{ Message string }

func (e *PermissionError) Error() string { return e.Message }

type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot change booking status from %s to %s", e.From, e.To)
}

// ExternalServiceError wraps a failure of the payment processor or another remote
// dependency.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

func newValidationError(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func newNotFoundError(format string, args ...any) error {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

func newPolicyError(format string, args ...any) error {
	return &PolicyError{Message: fmt.Sprintf(format, args...)}
}

func newConflictError(format string, args ...any) error {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

func newPermissionError(format string, args ...any) error {
	return &PermissionError{Message: fmt.Sprintf(format, args...)}
}
