// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"tasksync/internal/service"
)

// T0 is the CreatedAt of the first task created by a FakeGateway.
var T0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

// ErrUnreachable simulates a transport failure.
var ErrUnreachable = errors.New("connection refused")

// FakeGateway is an in-memory implementation of service.Gateway for testing.
type FakeGateway struct {
	mu      sync.Mutex
	tasks   map[string]service.Task
	ids     []string // queued ids for the next creates
	created int
	errs    map[string]error         // op -> injected error
	gates   map[string]chan struct{} // op -> gate, while calls are held
	calls   map[string]int
}

// NewFakeGateway creates an empty FakeGateway.
func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		tasks: make(map[string]service.Task),
		errs:  make(map[string]error),
		gates: make(map[string]chan struct{}),
		calls: make(map[string]int),
	}
}

var allOps = []string{service.OpFetchAll, service.OpCreateOne, service.OpUpdateOne, service.OpDeleteOne}

// AddTask stores a task directly, as if created earlier.
func (f *FakeGateway) AddTask(t service.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.Priority == "" {
		t.Priority = service.PriorityMedium
	}
	f.tasks[t.ID] = t
}

// Task returns the stored task with id.
func (f *FakeGateway) Task(id string) (service.Task, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	return t, ok
}

// QueueIDs sets the ids assigned to the next creates, in order.
// Once exhausted, ids are "t1", "t2", ...
func (f *FakeGateway) QueueIDs(ids ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, ids...)
}

// Fail makes every call of op (a service.Op constant) fail with err.
// A nil err clears the failure.
func (f *FakeGateway) Fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, op)
		return
	}
	f.errs[op] = err
}

// FailAll makes every operation fail with ErrUnreachable.
func (f *FakeGateway) FailAll() {
	for _, op := range allOps {
		f.Fail(op, ErrUnreachable)
	}
}

// Hold blocks every call of the given ops (all ops if none are given)
// made from now on until the returned release func is called. Calls
// already running are not affected.
func (f *FakeGateway) Hold(ops ...string) (release func()) {
	if len(ops) == 0 {
		ops = allOps
	}
	gate := make(chan struct{})

	f.mu.Lock()
	for _, op := range ops {
		f.gates[op] = gate
	}
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			for _, op := range ops {
				if f.gates[op] == gate {
					delete(f.gates, op)
				}
			}
			f.mu.Unlock()
			close(gate)
		})
	}
}

// Calls returns how many times op was called.
func (f *FakeGateway) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// enter counts the call, waits on the gate and returns the injected error.
func (f *FakeGateway) enter(ctx context.Context, op string) error {
	f.mu.Lock()
	f.calls[op]++
	gate := f.gates[op]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return service.NewGatewayError(op, 0, ctx.Err())
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[op]; err != nil {
		status := 0
		if !errors.Is(err, ErrUnreachable) {
			status = 500
		}
		return service.NewGatewayError(op, status, err)
	}
	return nil
}

// FetchAll implements service.Gateway. Tasks are returned newest first.
func (f *FakeGateway) FetchAll(ctx context.Context) ([]service.Task, error) {
	if err := f.enter(ctx, service.OpFetchAll); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]service.Task, 0, len(f.tasks))
	for _, t := range f.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// CreateOne implements service.Gateway. The n-th created task gets
// CreatedAt T0 + (n-1) minutes.
func (f *FakeGateway) CreateOne(ctx context.Context, fields service.Fields) (service.Task, error) {
	if err := f.enter(ctx, service.OpCreateOne); err != nil {
		return service.Task{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if fields.Title == "" || fields.Description == "" {
		return service.Task{}, service.NewGatewayError(service.OpCreateOne, 400, errors.New("Title and description are required"))
	}

	var id string
	if len(f.ids) > 0 {
		id, f.ids = f.ids[0], f.ids[1:]
	} else {
		id = fmt.Sprintf("t%d", f.created+1)
	}
	p := fields.Priority
	if p == "" {
		p = service.PriorityMedium
	}
	t := service.Task{
		ID:          id,
		Title:       fields.Title,
		Description: fields.Description,
		Priority:    p,
		CreatedAt:   T0.Add(time.Duration(f.created) * time.Minute),
	}
	f.created++
	f.tasks[id] = t
	return t, nil
}

// UpdateOne implements service.Gateway.
func (f *FakeGateway) UpdateOne(ctx context.Context, id string, patch service.Patch) (service.Task, error) {
	if err := f.enter(ctx, service.OpUpdateOne); err != nil {
		return service.Task{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.tasks[id]
	if !ok {
		return service.Task{}, service.NewGatewayError(service.OpUpdateOne, 404, errors.New("Task not found"))
	}
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	if patch.Completed != nil {
		t.Completed = *patch.Completed
	}
	f.tasks[id] = t
	return t, nil
}

// DeleteOne implements service.Gateway.
func (f *FakeGateway) DeleteOne(ctx context.Context, id string) error {
	if err := f.enter(ctx, service.OpDeleteOne); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.tasks[id]; !ok {
		return service.NewGatewayError(service.OpDeleteOne, 404, errors.New("Task not found"))
	}
	delete(f.tasks, id)
	return nil
}
