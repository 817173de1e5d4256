package engine

import (
	"sort"

	"tasksync/internal/service"
)

// Pending marks a task with an in-flight operation.
type Pending int

const (
	PendingNone Pending = iota
	PendingCreating
	PendingUpdating
	PendingDeleting
)

func (p Pending) String() string {
	switch p {
	case PendingCreating:
		return "creating"
	case PendingUpdating:
		return "updating"
	case PendingDeleting:
		return "deleting"
	default:
		return "none"
	}
}

// Entry is one task of the canonical list.
type Entry struct {
	Task    service.Task
	Pending Pending

	// Seq is the local insertion order; higher is newer.
	Seq uint64
}

// Confirmed reports whether the store has acknowledged the task.
func (e Entry) Confirmed() bool {
	return e.Pending != PendingCreating && !e.Task.CreatedAt.IsZero()
}

// State is a read-only copy of the canonical state.
type State struct {
	Entries []Entry

	// Stale is set when the list came from the cache instead of the store.
	Stale bool

	// Loading is set while a Load is in flight.
	Loading bool

	// Busy is set while a Load or any mutation is in flight.
	Busy bool

	// Err is the most recent error, nil after a successful operation.
	Err error

	// Version increases with every state change.
	Version uint64
}

// Tasks returns the tasks of the state in canonical order.
func (s State) Tasks() []service.Task {
	out := make([]service.Task, len(s.Entries))
	for i, e := range s.Entries {
		out[i] = e.Task
	}
	return out
}

// Find returns the entry for id.
func (s State) Find(id string) (Entry, bool) {
	for _, e := range s.Entries {
		if e.Task.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// entry is the engine's internal list element.
type entry struct {
	task service.Task
	seq  uint64
}

// op is the bookkeeping of one pending operation.
type op struct {
	kind Pending

	// gen is the state generation when the operation started.
	gen uint64

	// prev is the rollback copy (updating, deleting).
	prev service.Task

	// index and seq locate a deleted entry for re-insertion.
	index int
	seq   uint64
}

// sortNewestFirst orders tasks by CreatedAt descending, ties by id.
func sortNewestFirst(tasks []service.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
