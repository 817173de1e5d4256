package engine

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"tasksync/internal/service"
)

// LocalIDPrefix prefixes the temporary id of a task not yet confirmed.
const LocalIDPrefix = "local-"

// IsLocalID reports whether id is a temporary id assigned by the engine.
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, LocalIDPrefix)
}

// Cache is the durable cache the engine mirrors confirmed state to.
type Cache interface {
	ReadSnapshot(ctx context.Context) ([]service.Task, bool, error)
	WriteSnapshot(ctx context.Context, tasks []service.Task) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithIDGenerator overrides how temporary ids are generated.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) {
		if newID != nil {
			e.newID = newID
		}
	}
}

// Engine reconciles the canonical task list with the remote store.
type Engine struct {
	gw     service.Gateway
	cache  Cache
	logger *slog.Logger
	newID  func() string

	loads   singleflight.Group
	fetchMu sync.Mutex // one FetchAll at a time, user loads and re-syncs alike

	mu       sync.Mutex
	entries  []entry        // canonical list, head first
	ops      map[string]*op // pending operation per task id
	seq      uint64         // last local insertion number
	gen      uint64         // bumped whenever a Load rebuilds the list
	rev      uint64         // bumped on every state change
	stale    bool
	loading  int // loads started and not yet applied
	lastErr  error
	inflight int
	waiters  []chan struct{}
	subs     map[int]func(State)
	nextSub  int

	cacheMu sync.Mutex
	written uint64 // rev of the last snapshot written
}

// New creates an Engine with empty canonical state. cache may be nil.
func New(gw service.Gateway, cache Cache, opts ...Option) *Engine {
	e := &Engine{
		gw:     gw,
		cache:  cache,
		logger: slog.New(slog.DiscardHandler),
		newID:  func() string { return LocalIDPrefix + uuid.NewString() },
		ops:    make(map[string]*op),
		subs:   make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Snapshot returns a copy of the canonical state.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

// Err returns the most recent error, or nil if the last operation succeeded.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Busy reports whether a Load or any mutation is in flight.
func (e *Engine) Busy() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loading > 0 || len(e.ops) > 0
}

// Wait blocks until every in-flight continuation, including re-syncs it
// triggered, has finished.
func (e *Engine) Wait(ctx context.Context) error {
	e.mu.Lock()
	if e.inflight == 0 {
		e.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	e.waiters = append(e.waiters, ch)
	e.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers fn to be called with the new state after every
// change. Calls may come from any goroutine; use State.Version to drop
// out-of-order deliveries. The returned func unregisters fn.
func (e *Engine) Subscribe(fn func(State)) (cancel func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.subs, id)
	}
}

// changedLocked records a state change and returns what must be
// delivered to subscribers once the lock is released.
func (e *Engine) changedLocked() func() {
	e.rev++
	if len(e.subs) == 0 {
		return func() {}
	}
	st := e.stateLocked()
	fns := make([]func(State), 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	return func() {
		for _, fn := range fns {
			fn(st)
		}
	}
}

func (e *Engine) stateLocked() State {
	entries := make([]Entry, len(e.entries))
	for i, en := range e.entries {
		pending := PendingNone
		if o, ok := e.ops[en.task.ID]; ok {
			pending = o.kind
		}
		entries[i] = Entry{Task: en.task, Pending: pending, Seq: en.seq}
	}
	return State{
		Entries: entries,
		Stale:   e.stale,
		Loading: e.loading > 0,
		Busy:    e.loading > 0 || len(e.ops) > 0,
		Err:     e.lastErr,
		Version: e.rev,
	}
}

func (e *Engine) beginLocked() {
	e.inflight++
}

func (e *Engine) endLocked() {
	e.inflight--
	if e.inflight > 0 {
		return
	}
	for _, ch := range e.waiters {
		close(ch)
	}
	e.waiters = nil
}

// end marks a continuation finished.
func (e *Engine) end() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.endLocked()
}

func (e *Engine) indexLocked(id string) int {
	for i, en := range e.entries {
		if en.task.ID == id {
			return i
		}
	}
	return -1
}

func (e *Engine) removeAtLocked(i int) {
	e.entries = append(e.entries[:i], e.entries[i+1:]...)
}

func (e *Engine) insertAtLocked(i int, en entry) {
	if i < 0 {
		i = 0
	}
	if i > len(e.entries) {
		i = len(e.entries)
	}
	e.entries = append(e.entries, entry{})
	copy(e.entries[i+1:], e.entries[i:])
	e.entries[i] = en
}

// confirmedLocked returns the last confirmed task list, newest first,
// together with the revision it reflects. Provisional creates are left
// out and in-flight updates and deletes contribute their rollback copy.
func (e *Engine) confirmedLocked() ([]service.Task, uint64) {
	tasks := make([]service.Task, 0, len(e.entries))
	for _, en := range e.entries {
		o, ok := e.ops[en.task.ID]
		switch {
		case !ok:
			tasks = append(tasks, en.task)
		case o.kind == PendingCreating:
		case o.kind == PendingUpdating && o.gen == e.gen:
			tasks = append(tasks, o.prev)
		default:
			tasks = append(tasks, en.task)
		}
	}
	for id, o := range e.ops {
		if o.kind == PendingDeleting && o.gen == e.gen && e.indexLocked(id) < 0 {
			tasks = append(tasks, o.prev)
		}
	}
	sortNewestFirst(tasks)
	return tasks, e.rev
}

// writeSnapshot mirrors a confirmed list to the cache. A snapshot older
// than one already written is dropped. Failures are logged only.
func (e *Engine) writeSnapshot(ctx context.Context, tasks []service.Task, rev uint64) {
	if e.cache == nil {
		return
	}
	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()

	if rev <= e.written {
		return
	}
	if err := e.cache.WriteSnapshot(ctx, tasks); err != nil {
		e.logger.Warn("cache write failed", slog.Any("err", err), slog.Int("tasks", len(tasks)))
		return
	}
	e.written = rev
	e.logger.Debug("cache snapshot written", slog.Int("tasks", len(tasks)))
}
