package types

import (
	"errors"
	"fmt"
)

// Error classes. Typed errors below match these with errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrConcurrency  = errors.New("concurrent modification")
	ErrNotification = errors.New("notification failed")
)

// ValidationError reports a malformed or missing field
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError builds a ValidationError
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError reports an unknown order id, item key or menu version
type NotFoundError struct {
	Kind string
	Key  string
}

// NewNotFoundError builds a NotFoundError
func NewNotFoundError(kind, key string) *NotFoundError {
	return &NotFoundError{Kind: kind, Key: key}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Key)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InvalidStateError reports an unrecognised status or payment status value.
// It is also a validation failure.
type InvalidStateError struct {
	Field string
	Value string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid %s %q", e.Field, e.Value)
}

func (e *InvalidStateError) Is(target error) bool {
	return target == ErrInvalidState || target == ErrValidation
}

// ConcurrencyError reports that the exclusive section for an order could not
// be entered in time. Callers may retry.
type ConcurrencyError struct {
	OrderID string
	Err     error
}

func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("order %s is busy: %v", e.OrderID, e.Err)
}

func (e *ConcurrencyError) Is(target error) bool { return target == ErrConcurrency }

func (e *ConcurrencyError) Unwrap() error { return e.Err }

// NotificationError reports a failed delivery to the kitchen channel
type NotificationError struct {
	Channel string
	Err     error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("%s notification failed: %v", e.Channel, e.Err)
}

func (e *NotificationError) Is(target error) bool { return target == ErrNotification }

func (e *NotificationError) Unwrap() error { return e.Err }
