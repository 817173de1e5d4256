package engine

import (
	"fmt"

	"tasksync/internal/service"
)

// ValidationError reports malformed user input, caught before any I/O.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NotFoundError reports an id absent from the canonical state.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("task not found: %s", e.ID)
}

// ConflictError reports a mutation attempted on a task that already has
// an operation in flight.
type ConflictError struct {
	ID      string
	Pending Pending
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("task %s has a pending %s operation", e.ID, e.Pending)
}

// Operation names carried by SyncError.
const (
	OpCreate = "create"
	OpToggle = "toggle"
	OpRemove = "remove"
)

// SyncError is a gateway failure that rolled back an optimistic change.
type SyncError struct {
	// Op is one of OpCreate, OpToggle, OpRemove.
	Op string

	// TaskID is the task the operation targeted (the temporary id for creates).
	TaskID string

	// Input is the rejected input of a failed create, so a caller can
	// repopulate a retry form. Nil for other operations.
	Input *service.Fields

	// Err is the underlying *service.GatewayError.
	Err error
}

func (e *SyncError) Error() string {
	if e.Input != nil {
		return fmt.Sprintf("%s %q failed, change rolled back: %v", e.Op, e.Input.Title, e.Err)
	}
	return fmt.Sprintf("%s %s failed, change rolled back: %v", e.Op, e.TaskID, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// StaleError reports that Load fell back to the cache snapshot.
type StaleError struct {
	// Count is the number of cached tasks now in the canonical state.
	Count int

	// Err is the underlying *service.GatewayError.
	Err error
}

func (e *StaleError) Error() string {
	return fmt.Sprintf("stale data: showing %d cached tasks: %v", e.Count, e.Err)
}

func (e *StaleError) Unwrap() error { return e.Err }
