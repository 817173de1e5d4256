package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"tasksync/internal/projection"
)

// TaskRef represents a parsed task reference: either the number shown by
// list or a task id.
type TaskRef struct {
	Num int    // 1-based number, 0 if ID is set
	ID  string // task id, empty if Num is set
}

// ErrTaskRefRequired indicates no task reference was provided.
var ErrTaskRefRequired = errors.New("task reference required")

// ParseTaskRef parses the task reference in args.
//
// Parsing rules:
// 1. No args, or a blank first arg → ErrTaskRefRequired
// 2. All digits → number as shown by list
// 3. Anything else → task id
// 4. More than one arg → error: unexpected argument
func ParseTaskRef(args []string) (TaskRef, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return TaskRef{}, ErrTaskRefRequired
	}
	if len(args) > 1 {
		return TaskRef{}, fmt.Errorf("unexpected argument: %s", args[1])
	}

	arg := strings.TrimSpace(args[0])
	if isAllDigits(arg) {
		num, err := strconv.Atoi(arg)
		if err != nil {
			return TaskRef{}, fmt.Errorf("invalid task reference: %s", arg)
		}
		return TaskRef{Num: num}, nil
	}
	return TaskRef{ID: arg}, nil
}

// Resolve returns the id of the referenced task in v. Ids are passed
// through; the engine reports unknown ones.
func (r TaskRef) Resolve(v projection.View) (string, error) {
	if r.ID != "" {
		return r.ID, nil
	}
	item, ok := v.Lookup(r.Num)
	if !ok {
		return "", fmt.Errorf("task number out of range: %d", r.Num)
	}
	return item.Task.ID, nil
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
