// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"tasksync/internal/engine"
	"tasksync/internal/projection"
	"tasksync/internal/service"
)

// descIndent lines a description up under the title of its task.
const descIndent = "          "

// FormatItem formats one task of a view.
// Format: "{N:>4}  [x] {TITLE} ({PRIORITY})[ [PENDING]]\n" followed by the
// description indented under the title.
func FormatItem(w io.Writer, item projection.Item) {
	box := "[ ]"
	if item.Task.Completed {
		box = "[x]"
	}
	fmt.Fprintf(w, "%4d  %s %s (%s)%s\n", item.Number, box, normalizeTitle(item.Task.Title), priorityLabel(item.Task.Priority), pendingLabel(item.Pending))
	if desc := normalizeText(item.Task.Description); desc != "" {
		fmt.Fprintf(w, "%s%s\n", descIndent, desc)
	}
}

// FormatView formats every item of v.
func FormatView(w io.Writer, v projection.View) {
	for _, item := range v.Items {
		FormatItem(w, item)
	}
}

// FormatStale formats the warning shown when tasks come from the cache.
func FormatStale(w io.Writer, count int) {
	fmt.Fprintf(w, "warning: store unreachable, showing %d cached tasks\n", count)
}

// FormatSummary formats the one-line result of a sync.
func FormatSummary(w io.Writer, v projection.View) {
	open := 0
	for _, item := range v.Items {
		if !item.Task.Completed {
			open++
		}
	}
	fmt.Fprintf(w, "%d tasks, %d open\n", v.Total, open)
}

func pendingLabel(p engine.Pending) string {
	if p == engine.PendingNone {
		return ""
	}
	return " [" + p.String() + "]"
}

func priorityLabel(p service.Priority) string {
	if p == "" {
		return string(service.PriorityMedium)
	}
	return string(p)
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = normalizeText(title)
	if title == "" {
		return "(untitled)"
	}
	return title
}

// normalizeText replaces newlines with spaces and trims.
func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
