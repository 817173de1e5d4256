// Package projection derives the displayable task list from the engine's
// canonical state.
package projection

import (
	"fmt"
	"sort"
	"strings"

	"tasksync/internal/engine"
	"tasksync/internal/service"
)

// Status selects tasks by completion.
type Status string

const (
	StatusAll  Status = "all"
	StatusOpen Status = "open"
	StatusDone Status = "done"
)

// ParseStatus parses a status filter. Empty means all.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case "":
		return StatusAll, nil
	case StatusAll, StatusOpen, StatusDone:
		return st, nil
	default:
		return "", fmt.Errorf("unknown status: %s", s)
	}
}

// Filter restricts which tasks a View includes. The zero Filter keeps all.
type Filter struct {
	Status Status

	// Priority keeps only tasks of that priority when set.
	Priority service.Priority
}

func (f Filter) match(t service.Task) bool {
	switch f.Status {
	case StatusOpen:
		if t.Completed {
			return false
		}
	case StatusDone:
		if !t.Completed {
			return false
		}
	}
	return f.Priority == "" || t.Priority == f.Priority
}

// Item is one row of a View.
type Item struct {
	// Number is the 1-based position in the unfiltered list, so a number
	// refers to the same task whichever filter is shown.
	Number  int
	Task    service.Task
	Pending engine.Pending
}

// Confirmed reports whether the store has acknowledged the task.
func (i Item) Confirmed() bool {
	return i.Pending != engine.PendingCreating && !i.Task.CreatedAt.IsZero()
}

// View is the ordered, filtered list with the state's indicators.
type View struct {
	Items []Item

	// Total counts the tasks before filtering.
	Total int

	Stale bool
	Busy  bool
	Err   error
}

// Project orders the entries of st and applies f. Unconfirmed tasks come
// first, newest local insertion first, then confirmed tasks by CreatedAt
// descending with ties broken by id.
func Project(st engine.State, f Filter) View {
	entries := make([]engine.Entry, len(st.Entries))
	copy(entries, st.Entries)
	sort.SliceStable(entries, func(i, j int) bool {
		return less(entries[i], entries[j])
	})

	v := View{
		Total: len(entries),
		Stale: st.Stale,
		Busy:  st.Busy,
		Err:   st.Err,
	}
	for i, e := range entries {
		if !f.match(e.Task) {
			continue
		}
		v.Items = append(v.Items, Item{Number: i + 1, Task: e.Task, Pending: e.Pending})
	}
	return v
}

func less(a, b engine.Entry) bool {
	ac, bc := a.Confirmed(), b.Confirmed()
	if ac != bc {
		return !ac
	}
	if !ac {
		return a.Seq > b.Seq
	}
	if !a.Task.CreatedAt.Equal(b.Task.CreatedAt) {
		return a.Task.CreatedAt.After(b.Task.CreatedAt)
	}
	return a.Task.ID < b.Task.ID
}

// Lookup returns the item numbered n.
func (v View) Lookup(n int) (Item, bool) {
	for _, it := range v.Items {
		if it.Number == n {
			return it, true
		}
	}
	return Item{}, false
}
