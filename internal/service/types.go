// Package service defines the backend-agnostic contract for the remote task store.
package service

import (
	"fmt"
	"strings"
	"time"
)

// Priority is the urgency of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority parses a priority name (case-insensitive, trimmed).
// An empty string yields PriorityMedium.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return PriorityMedium, nil
	case "low":
		return PriorityLow, nil
	case "medium":
		return PriorityMedium, nil
	case "high":
		return PriorityHigh, nil
	default:
		return "", fmt.Errorf("invalid priority: %s", s)
	}
}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task represents a single task item.
type Task struct {
	ID          string
	Title       string
	Description string
	Priority    Priority
	Completed   bool
	CreatedAt   time.Time // zero until the store has assigned it
}

// Fields holds the user-supplied attributes of a task to be created.
type Fields struct {
	Title       string
	Description string
	Priority    Priority
}

// Patch holds a partial update. Nil fields are left unchanged.
type Patch struct {
	Title       *string
	Description *string
	Priority    *Priority
	Completed   *bool
}
