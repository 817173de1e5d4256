package engine

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"tasksync/internal/service"
)

// Field limits, in characters.
const (
	MaxTitleLen       = 50
	MaxDescriptionLen = 200
)

// validateFields trims the input and checks it against the store's rules.
// An empty priority becomes medium.
func validateFields(title, description string, priority service.Priority) (service.Fields, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)

	if title == "" {
		return service.Fields{}, &ValidationError{Field: "title", Message: "required"}
	}
	if n := utf8.RuneCountInString(title); n > MaxTitleLen {
		return service.Fields{}, &ValidationError{Field: "title", Message: fmt.Sprintf("%d characters, at most %d allowed", n, MaxTitleLen)}
	}
	if description == "" {
		return service.Fields{}, &ValidationError{Field: "description", Message: "required"}
	}
	if n := utf8.RuneCountInString(description); n > MaxDescriptionLen {
		return service.Fields{}, &ValidationError{Field: "description", Message: fmt.Sprintf("%d characters, at most %d allowed", n, MaxDescriptionLen)}
	}
	if priority == "" {
		priority = service.PriorityMedium
	}
	if !priority.Valid() {
		return service.Fields{}, &ValidationError{Field: "priority", Message: fmt.Sprintf("unknown value %q", priority)}
	}

	return service.Fields{Title: title, Description: description, Priority: priority}, nil
}
