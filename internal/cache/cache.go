// Package cache persists the last confirmed task list for offline fallback.
//
// The snapshot is a JSON document stored under a single key of a Store.
// There is exactly one snapshot; every write overwrites it.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tasksync/internal/service"
)

// SnapshotKey is the key holding the serialized snapshot.
const SnapshotKey = "tasks.snapshot"

// ErrNotFound is returned by a Store when a key has no value.
var ErrNotFound = errors.New("cache key not found")

// Store is a string-keyed value store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// snapshotTask is the on-disk shape of a task.
type snapshotTask struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Priority    string    `json:"priority"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"createdAt"`
}

type snapshotDoc struct {
	SavedAt time.Time      `json:"savedAt"`
	Tasks   []snapshotTask `json:"tasks"`
}

// Snapshots reads and writes the cache snapshot.
type Snapshots struct {
	store Store
	now   func() time.Time
}

// New returns Snapshots backed by store.
func New(store Store) *Snapshots {
	return &Snapshots{store: store, now: time.Now}
}

// ReadSnapshot returns the cached task list. ok is false when no snapshot
// has been written yet. Entries without an id, or repeating an earlier id,
// are skipped; an unknown priority reads as medium.
func (s *Snapshots) ReadSnapshot(ctx context.Context) (tasks []service.Task, ok bool, err error) {
	data, err := s.store.Get(ctx, SnapshotKey)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read snapshot: %w", err)
	}

	var doc snapshotDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, false, fmt.Errorf("decode snapshot: %w", err)
	}

	tasks = make([]service.Task, 0, len(doc.Tasks))
	seen := make(map[string]bool, len(doc.Tasks))
	for _, t := range doc.Tasks {
		if t.ID == "" || seen[t.ID] {
			continue
		}
		seen[t.ID] = true

		p := service.Priority(t.Priority)
		if !p.Valid() {
			p = service.PriorityMedium
		}
		tasks = append(tasks, service.Task{
			ID:          t.ID,
			Title:       t.Title,
			Description: t.Description,
			Priority:    p,
			Completed:   t.Completed,
			CreatedAt:   t.CreatedAt,
		})
	}
	return tasks, true, nil
}

// WriteSnapshot replaces the cached task list.
func (s *Snapshots) WriteSnapshot(ctx context.Context, tasks []service.Task) error {
	doc := snapshotDoc{
		SavedAt: s.now().UTC(),
		Tasks:   make([]snapshotTask, 0, len(tasks)),
	}
	for _, t := range tasks {
		doc.Tasks = append(doc.Tasks, snapshotTask{
			ID:          t.ID,
			Title:       t.Title,
			Description: t.Description,
			Priority:    string(t.Priority),
			Completed:   t.Completed,
			CreatedAt:   t.CreatedAt,
		})
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.store.Put(ctx, SnapshotKey, data); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}
