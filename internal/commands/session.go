package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"tasksync/internal/engine"
	"tasksync/internal/exitcode"
	"tasksync/internal/output"
	"tasksync/internal/projection"
)

// loadView loads the task list and projects it through f. A cache
// fallback prints a warning and carries on. ok is false when the command
// must stop with code.
func loadView(ctx context.Context, eng *engine.Engine, f projection.Filter, errOut io.Writer) (v projection.View, code int, ok bool) {
	if _, err := eng.Load(ctx); err != nil {
		var stale *engine.StaleError
		if !errors.As(err, &stale) {
			return projection.View{}, reportError(errOut, err), false
		}
		output.FormatStale(errOut, stale.Count)
	}
	return projection.Project(eng.Snapshot(), f), exitcode.Success, true
}

// settle waits for the pending change to be confirmed or rolled back and
// reports a rollback.
func settle(ctx context.Context, eng *engine.Engine, errOut io.Writer) int {
	if err := eng.Wait(ctx); err != nil {
		fmt.Fprintf(errOut, "error: change not confirmed: %v\n", err)
		return exitcode.BackendError
	}
	var serr *engine.SyncError
	if err := eng.Err(); errors.As(err, &serr) {
		return reportError(errOut, serr)
	}
	return exitcode.Success
}

// reportError prints err and maps it to an exit code.
func reportError(errOut io.Writer, err error) int {
	var (
		verr *engine.ValidationError
		nerr *engine.NotFoundError
		cerr *engine.ConflictError
		serr *engine.SyncError
	)
	switch {
	case errors.As(err, &verr), errors.As(err, &nerr), errors.As(err, &cerr):
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	case errors.As(err, &serr):
		fmt.Fprintf(errOut, "error: sync failed: %v\n", err)
		return exitcode.BackendError
	default:
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		return exitcode.BackendError
	}
}

// resolveRef parses a task reference and resolves it against the
// freshly loaded list.
func resolveRef(ctx context.Context, eng *engine.Engine, args []string, errOut io.Writer) (id string, code int, ok bool) {
	ref, err := ParseTaskRef(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return "", exitcode.UserError, false
	}
	if ref.ID == "" && ref.Num < 1 {
		fmt.Fprintf(errOut, "error: task number out of range: %d\n", ref.Num)
		return "", exitcode.UserError, false
	}

	view, code, ok := loadView(ctx, eng, projection.Filter{}, errOut)
	if !ok {
		return "", code, false
	}
	id, err = ref.Resolve(view)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return "", exitcode.UserError, false
	}
	return id, exitcode.Success, true
}
