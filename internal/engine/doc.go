// Package engine is the client-side reconciliation engine.
//
// The Engine owns the canonical in-memory task list. User intents
// (Create, ToggleCompletion, Remove) mutate it optimistically and return
// at once; the matching gateway call runs on its own goroutine and its
// continuation either confirms the change (and mirrors the confirmed list
// to the cache) or rolls it back and records a *SyncError.
//
// Invariants:
//   - The Engine is the only writer of canonical state.
//   - At most one operation is pending per task id; a second intent on the
//     same id fails with *ConflictError and is never queued.
//   - At most one Load is in flight; concurrent callers share its result.
//   - A continuation never rolls back over state rebuilt by a Load that
//     completed after the mutation started; server truth wins.
//   - Cache writes are best effort and never reach the caller.
package engine
