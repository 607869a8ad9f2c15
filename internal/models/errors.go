package models

import (
	"fmt"

	"github.com/google/uuid"
)

// NotFoundError reports an absent entity with enough context to render a
// user message.
type NotFoundError struct {
	Entity string
	ID     uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ErrNotFound builds a NotFoundError for the given entity.
func ErrNotFound(entity string, id uuid.UUID) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// ConflictError reports a violated uniqueness invariant, identifying the
// blocking entity.
type ConflictError struct {
	Entity     string
	BlockingID uuid.UUID
	Reason     string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: blocked by %s %s", e.Reason, e.Entity, e.BlockingID)
}

// InvalidStateError reports a mutation attempted against a terminal or
// otherwise ineligible state.
type InvalidStateError struct {
	Entity string
	ID     uuid.UUID
	State  string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s %s is %s and cannot be modified", e.Entity, e.ID, e.State)
}

// ValidationError reports malformed or missing required input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
