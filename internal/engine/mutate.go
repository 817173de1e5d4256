package engine

import (
	"context"
	"log/slog"

	"tasksync/internal/service"
)

// Create validates the input, inserts a provisional task at the head of
// the list and returns it. The task carries a temporary id until the
// store confirms it; see SyncError for the failure path.
func (e *Engine) Create(ctx context.Context, title, description string, priority service.Priority) (service.Task, error) {
	fields, err := validateFields(title, description, priority)
	if err != nil {
		return service.Task{}, err
	}

	task := service.Task{
		ID:          e.newID(),
		Title:       fields.Title,
		Description: fields.Description,
		Priority:    fields.Priority,
	}

	e.mu.Lock()
	if _, ok := e.ops[task.ID]; ok || e.indexLocked(task.ID) >= 0 {
		e.mu.Unlock()
		return service.Task{}, &ConflictError{ID: task.ID, Pending: PendingCreating}
	}
	e.seq++
	e.insertAtLocked(0, entry{task: task, seq: e.seq})
	e.ops[task.ID] = &op{kind: PendingCreating, gen: e.gen}
	e.beginLocked()
	notify := e.changedLocked()
	e.mu.Unlock()
	notify()

	go e.finishCreate(context.WithoutCancel(ctx), task.ID, fields)
	return task, nil
}

func (e *Engine) finishCreate(ctx context.Context, tempID string, fields service.Fields) {
	defer e.end()

	created, err := e.gw.CreateOne(ctx, fields)

	e.mu.Lock()
	delete(e.ops, tempID)
	i := e.indexLocked(tempID)

	if err != nil {
		if i >= 0 {
			e.removeAtLocked(i)
		}
		input := fields
		e.lastErr = &SyncError{
			Op:     OpCreate,
			TaskID: tempID,
			Input:  &input,
			Err:    service.NewGatewayError(service.OpCreateOne, 0, err),
		}
		notify := e.changedLocked()
		e.mu.Unlock()

		e.logger.Warn("create rolled back", slog.String("title", fields.Title), slog.Any("err", err))
		notify()
		return
	}

	// A Load may already have brought in the created task under its
	// real id; keep a single entry.
	if j := e.indexLocked(created.ID); j >= 0 {
		e.entries[j].task = created
		if i >= 0 {
			e.removeAtLocked(i)
		}
	} else if i >= 0 {
		e.entries[i].task = created
	} else {
		e.seq++
		e.insertAtLocked(0, entry{task: created, seq: e.seq})
	}
	e.lastErr = nil
	notify := e.changedLocked()
	snap, rev := e.confirmedLocked()
	e.mu.Unlock()

	e.logger.Debug("create confirmed", slog.String("id", created.ID))
	e.writeSnapshot(ctx, snap, rev)
	notify()
}

// ToggleCompletion flips the completed flag of task id optimistically.
// The value sent to the store is derived from the value before the flip.
func (e *Engine) ToggleCompletion(ctx context.Context, id string) error {
	e.mu.Lock()
	if o, ok := e.ops[id]; ok {
		e.mu.Unlock()
		return &ConflictError{ID: id, Pending: o.kind}
	}
	i := e.indexLocked(id)
	if i < 0 {
		e.mu.Unlock()
		return &NotFoundError{ID: id}
	}

	prev := e.entries[i].task
	e.entries[i].task.Completed = !prev.Completed
	e.ops[id] = &op{kind: PendingUpdating, gen: e.gen, prev: prev}
	e.beginLocked()
	notify := e.changedLocked()
	e.mu.Unlock()
	notify()

	go e.finishToggle(context.WithoutCancel(ctx), id, prev)
	return nil
}

func (e *Engine) finishToggle(ctx context.Context, id string, prev service.Task) {
	defer e.end()

	want := !prev.Completed
	updated, err := e.gw.UpdateOne(ctx, id, service.Patch{Completed: &want})

	e.mu.Lock()
	o := e.ops[id]
	delete(e.ops, id)
	rebuilt := o == nil || o.gen != e.gen
	i := e.indexLocked(id)

	if err != nil {
		if !rebuilt && i >= 0 {
			e.entries[i].task.Completed = prev.Completed
		}
		e.lastErr = &SyncError{
			Op:     OpToggle,
			TaskID: id,
			Err:    service.NewGatewayError(service.OpUpdateOne, 0, err),
		}
		e.beginLocked()
		notify := e.changedLocked()
		e.mu.Unlock()

		e.logger.Warn("toggle rolled back", slog.String("id", id), slog.Any("err", err))
		notify()
		go e.resync(ctx)
		return
	}

	if i >= 0 {
		e.entries[i].task = updated
	}
	e.lastErr = nil
	notify := e.changedLocked()
	snap, rev := e.confirmedLocked()
	e.mu.Unlock()

	e.logger.Debug("toggle confirmed", slog.String("id", id), slog.Bool("completed", updated.Completed))
	e.writeSnapshot(ctx, snap, rev)
	notify()
}

// Remove deletes task id from the list optimistically. On failure the
// task is put back at its original position.
func (e *Engine) Remove(ctx context.Context, id string) error {
	e.mu.Lock()
	if o, ok := e.ops[id]; ok {
		e.mu.Unlock()
		return &ConflictError{ID: id, Pending: o.kind}
	}
	i := e.indexLocked(id)
	if i < 0 {
		e.mu.Unlock()
		return &NotFoundError{ID: id}
	}

	removed := e.entries[i]
	e.removeAtLocked(i)
	e.ops[id] = &op{kind: PendingDeleting, gen: e.gen, prev: removed.task, index: i, seq: removed.seq}
	e.beginLocked()
	notify := e.changedLocked()
	e.mu.Unlock()
	notify()

	go e.finishRemove(context.WithoutCancel(ctx), id)
	return nil
}

func (e *Engine) finishRemove(ctx context.Context, id string) {
	defer e.end()

	err := e.gw.DeleteOne(ctx, id)

	e.mu.Lock()
	o := e.ops[id]
	delete(e.ops, id)
	rebuilt := o == nil || o.gen != e.gen
	i := e.indexLocked(id)

	if err != nil {
		if !rebuilt && i < 0 {
			e.insertAtLocked(o.index, entry{task: o.prev, seq: o.seq})
		}
		e.lastErr = &SyncError{
			Op:     OpRemove,
			TaskID: id,
			Err:    service.NewGatewayError(service.OpDeleteOne, 0, err),
		}
		e.beginLocked()
		notify := e.changedLocked()
		e.mu.Unlock()

		e.logger.Warn("remove rolled back", slog.String("id", id), slog.Any("err", err))
		notify()
		go e.resync(ctx)
		return
	}

	if i >= 0 {
		e.removeAtLocked(i)
	}
	e.lastErr = nil
	notify := e.changedLocked()
	snap, rev := e.confirmedLocked()
	e.mu.Unlock()

	e.logger.Debug("remove confirmed", slog.String("id", id))
	e.writeSnapshot(ctx, snap, rev)
	notify()
}
