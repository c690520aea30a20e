package errors

import (
	"fmt"

	"github.com/haidar038/kagounga-sub001/internal/domain"
)

// ErrNotFound is returned when a resource is not found
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrUnauthorized is returned when authentication fails
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrConflict is returned when there's a conflict (e.g., idempotency)
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "conflict"
}

// ErrValidation is returned when validation fails
type ErrValidation struct {
	Message string
	Fields  map[string]string
}

func (e *ErrValidation) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "validation failed"
}

// ErrPreconditionFailed is returned when a state-machine guard is violated:
// the entity is not in the status the operation requires.
type ErrPreconditionFailed struct {
	Resource string
	ID       string
	Message  string
}

func (e *ErrPreconditionFailed) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("precondition failed for %s %s: %s", e.Resource, e.ID, e.Message)
	}
	return fmt.Sprintf("precondition failed for %s %s", e.Resource, e.ID)
}

// ErrInvalidStateTransition is returned when an invalid order status transition is attempted
type ErrInvalidStateTransition struct {
	From domain.OrderStatus
	To   domain.OrderStatus
}

func (e *ErrInvalidStateTransition) Error() string {
	return fmt.Sprintf("invalid state transition from %s to %s", e.From, e.To)
}

// ErrExternalProvider is returned when a payment or shipping gateway call fails
type ErrExternalProvider struct {
	Provider string
	Message  string
}

func (e *ErrExternalProvider) Error() string {
	return fmt.Sprintf("%s error: %s", e.Provider, e.Message)
}

// ErrReplayRejected is returned when a webhook payload fails the shared-secret
// or timestamp-freshness check. The only webhook failure surfaced as 4xx.
type ErrReplayRejected struct {
	Message string
}

func (e *ErrReplayRejected) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "webhook rejected"
}
