package engine

import (
	"context"
	"fmt"
	"log/slog"

	"tasksync/internal/service"
)

// LoadResult is the outcome of a Load.
type LoadResult struct {
	Tasks []service.Task

	// Stale is set when Tasks came from the cache snapshot.
	Stale bool
}

// Singleflight keys. User loads and re-syncs coalesce separately so a
// Load never takes on the re-sync's handling of errors and the cache.
const (
	loadKey   = "load"
	resyncKey = "resync"
)

// Load fetches the full task list and replaces the canonical state with it.
//
// If the gateway fails, the cache snapshot is used instead: Load then
// returns the cached tasks together with a *StaleError. Without a
// snapshot the state becomes empty and the gateway error is returned.
// Concurrent calls share a single request and its result. A Load issued
// while a re-sync is fetching waits for it and then fetches again.
func (e *Engine) Load(ctx context.Context) (LoadResult, error) {
	v, err, _ := e.loads.Do(loadKey, func() (any, error) {
		return e.load(context.WithoutCancel(ctx), false)
	})
	res, _ := v.(LoadResult)
	return res, err
}

// resync reloads after a failed mutation. It runs as a continuation and
// leaves the SyncError that triggered it in place.
func (e *Engine) resync(ctx context.Context) {
	defer e.end()
	e.logger.Info("re-synchronizing with store")
	if _, err, _ := e.loads.Do(resyncKey, func() (any, error) {
		return e.load(ctx, true)
	}); err != nil {
		e.logger.Warn("re-sync failed", slog.Any("err", err))
	}
}

func (e *Engine) load(ctx context.Context, resync bool) (LoadResult, error) {
	e.mu.Lock()
	e.loading++
	notify := e.changedLocked()
	e.mu.Unlock()
	notify()

	e.fetchMu.Lock()
	defer e.fetchMu.Unlock()

	tasks, err := e.gw.FetchAll(ctx)
	if err == nil {
		e.mu.Lock()
		e.rebuildLocked(tasks)
		e.stale = false
		e.loading--
		if !resync {
			e.lastErr = nil
		}
		notify := e.changedLocked()
		snap, rev := e.confirmedLocked()
		e.mu.Unlock()

		e.logger.Debug("tasks loaded", slog.Int("tasks", len(tasks)))
		e.writeSnapshot(ctx, snap, rev)
		notify()
		return LoadResult{Tasks: cloneTasks(tasks)}, nil
	}

	gerr := service.NewGatewayError(service.OpFetchAll, 0, err)
	if resync {
		// The rolled-back state already is the last confirmed state.
		e.mu.Lock()
		e.loading--
		notify := e.changedLocked()
		e.mu.Unlock()
		notify()
		return LoadResult{}, gerr
	}

	var cached []service.Task
	ok := false
	if e.cache != nil {
		var cerr error
		cached, ok, cerr = e.cache.ReadSnapshot(ctx)
		if cerr != nil {
			e.logger.Warn("cache read failed", slog.Any("err", cerr))
			ok = false
		}
	}

	e.mu.Lock()
	var result LoadResult
	var outErr error
	if ok {
		e.rebuildLocked(cached)
		e.stale = true
		outErr = &StaleError{Count: len(cached), Err: gerr}
		result = LoadResult{Tasks: cloneTasks(cached), Stale: true}
	} else {
		e.rebuildLocked(nil)
		e.stale = false
		outErr = fmt.Errorf("load tasks: %w", gerr)
	}
	e.loading--
	e.lastErr = outErr
	notify = e.changedLocked()
	e.mu.Unlock()

	e.logger.Warn("store unreachable", slog.Any("err", gerr), slog.Bool("from_cache", ok))
	notify()
	return result, outErr
}

// rebuildLocked replaces the list with tasks (server truth). Provisional
// creates still in flight stay at the head. Duplicate ids keep their
// first occurrence.
func (e *Engine) rebuildLocked(tasks []service.Task) {
	var kept []entry
	for _, en := range e.entries {
		if o, ok := e.ops[en.task.ID]; ok && o.kind == PendingCreating {
			kept = append(kept, en)
		}
	}

	seen := make(map[string]bool, len(tasks))
	rebuilt := make([]entry, 0, len(tasks))
	for _, t := range tasks {
		if t.ID == "" || seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		rebuilt = append(rebuilt, entry{task: t})
	}
	// Local order follows the store order: the first task is the newest.
	for i := len(rebuilt) - 1; i >= 0; i-- {
		e.seq++
		rebuilt[i].seq = e.seq
	}

	e.entries = append(kept, rebuilt...)
	e.gen++
}

func cloneTasks(tasks []service.Task) []service.Task {
	if tasks == nil {
		return nil
	}
	out := make([]service.Task, len(tasks))
	copy(out, tasks)
	return out
}
