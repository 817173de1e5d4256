// Package googletasks implements service.Gateway using the Google Tasks API.
//
// Tasks live in the user's default list. Google Tasks has no priority or
// creation time, so both are kept as trailing lines of the notes:
// "priority:<p>" and "created:<RFC 3339>". A task created elsewhere has no
// created line; its last-updated time is used until the first update pins
// it.
package googletasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"tasksync/internal/config"
	"tasksync/internal/service"
)

const (
	// DefaultListID is the special ID for the default list.
	DefaultListID = "@default"

	// PageSize is the number of tasks per page.
	PageSize = 100

	// OAuth scope for Google Tasks
	tasksScope = "https://www.googleapis.com/auth/tasks"

	statusCompleted   = "completed"
	statusNeedsAction = "needsAction"

	priorityPrefix = "priority:"
	createdPrefix  = "created:"
)

// Client implements service.Gateway using Google Tasks API.
type Client struct {
	svc     *tasks.Service
	listID  string
	timeout time.Duration
	now     func() time.Time
}

// New creates a new Google Tasks client.
// Requires oauth_client.json and token.json to exist in the config dir.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	// Load OAuth client config
	clientJSON, err := os.ReadFile(cfg.OAuthClientPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read oauth_client.json: %w", err)
	}

	oauthConfig, err := google.ConfigFromJSON(clientJSON, tasksScope)
	if err != nil {
		return nil, fmt.Errorf("invalid oauth_client.json: %w", err)
	}

	// Load token
	tokenData, err := os.ReadFile(cfg.TokenPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read token.json: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(tokenData, &token); err != nil {
		return nil, fmt.Errorf("invalid token.json: %w", err)
	}

	// Create token source that auto-refreshes
	tokenSource := oauthConfig.TokenSource(ctx, &token)

	svc, err := tasks.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, tokenSource)))
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}

	return &Client{svc: svc, listID: DefaultListID, timeout: cfg.Settings.Timeout, now: time.Now}, nil
}

// NewWithHTTPClient creates a client with a custom HTTP client and
// options (for testing, e.g. option.WithEndpoint).
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{svc: svc, listID: DefaultListID, timeout: config.DefaultTimeout, now: time.Now}, nil
}

// FetchAll implements service.Gateway.
func (c *Client) FetchAll(ctx context.Context) ([]service.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var result []service.Task
	err := c.svc.Tasks.List(c.listID).
		MaxResults(PageSize).
		ShowCompleted(true).
		ShowHidden(true).
		ShowDeleted(false).
		Pages(ctx, func(resp *tasks.Tasks) error {
			for _, t := range resp.Items {
				task, err := fromAPI(t)
				if err != nil {
					return err
				}
				result = append(result, task)
			}
			return nil
		})
	if err != nil {
		return nil, wrapError(service.OpFetchAll, err)
	}
	return result, nil
}

// CreateOne implements service.Gateway.
func (c *Client) CreateOne(ctx context.Context, fields service.Fields) (service.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	created, err := c.svc.Tasks.Insert(c.listID, &tasks.Task{
		Title: fields.Title,
		Notes: encodeNotes(notesMeta{
			desc:     fields.Description,
			priority: fields.Priority,
			created:  c.now().UTC().Truncate(time.Second),
		}),
	}).Context(ctx).Do()
	if err != nil {
		return service.Task{}, wrapError(service.OpCreateOne, err)
	}
	task, err := fromAPI(created)
	if err != nil {
		return service.Task{}, wrapError(service.OpCreateOne, err)
	}
	return task, nil
}

// UpdateOne implements service.Gateway.
func (c *Client) UpdateOne(ctx context.Context, id string, patch service.Patch) (service.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body := &tasks.Task{}
	if patch.Title != nil {
		body.Title = *patch.Title
	}
	if patch.Completed != nil {
		if *patch.Completed {
			body.Status = statusCompleted
		} else {
			// Reopening requires clearing the completion timestamp.
			body.Status = statusNeedsAction
			body.NullFields = append(body.NullFields, "Completed")
		}
	}
	// Notes carry description, priority and creation time, so
	// read-modify-write. The creation time is pinned on the first update
	// of a task created elsewhere.
	current, err := c.svc.Tasks.Get(c.listID, id).Context(ctx).Do()
	if err != nil {
		return service.Task{}, wrapError(service.OpUpdateOne, err)
	}
	meta := decodeNotes(current.Notes)
	if meta.created.IsZero() {
		meta.created, err = parseUpdated(current.Updated)
		if err != nil {
			return service.Task{}, wrapError(service.OpUpdateOne, err)
		}
	}
	if patch.Description != nil {
		meta.desc = *patch.Description
	}
	if patch.Priority != nil {
		meta.priority = *patch.Priority
	}
	body.Notes = encodeNotes(meta)

	updated, err := c.svc.Tasks.Patch(c.listID, id, body).Context(ctx).Do()
	if err != nil {
		return service.Task{}, wrapError(service.OpUpdateOne, err)
	}
	task, err := fromAPI(updated)
	if err != nil {
		return service.Task{}, wrapError(service.OpUpdateOne, err)
	}
	return task, nil
}

// DeleteOne implements service.Gateway.
func (c *Client) DeleteOne(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.svc.Tasks.Delete(c.listID, id).Context(ctx).Do(); err != nil {
		return wrapError(service.OpDeleteOne, err)
	}
	return nil
}

// fromAPI converts an API task.
func fromAPI(t *tasks.Task) (service.Task, error) {
	if t == nil || t.Id == "" {
		return service.Task{}, errors.New("task without id in response")
	}
	meta := decodeNotes(t.Notes)
	created := meta.created
	if created.IsZero() {
		var err error
		if created, err = parseUpdated(t.Updated); err != nil {
			return service.Task{}, err
		}
	}
	return service.Task{
		ID:          t.Id,
		Title:       t.Title,
		Description: meta.desc,
		Priority:    meta.priority,
		Completed:   t.Status == statusCompleted,
		CreatedAt:   created,
	}, nil
}

// parseUpdated parses the RFC 3339 updated timestamp. Empty is the zero time.
func parseUpdated(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid updated time %q: %w", s, err)
	}
	return t.UTC(), nil
}

// notesMeta is what the notes field of a task holds.
type notesMeta struct {
	desc     string
	priority service.Priority
	created  time.Time
}

// encodeNotes appends the priority and created lines to the description.
func encodeNotes(m notesMeta) string {
	p := m.priority
	if !p.Valid() {
		p = service.PriorityMedium
	}
	notes := m.desc + "\n" + priorityPrefix + string(p)
	if !m.created.IsZero() {
		notes += "\n" + createdPrefix + m.created.UTC().Format(time.RFC3339)
	}
	return notes
}

// decodeNotes splits notes written by encodeNotes. Notes without a
// priority line (tasks created elsewhere) are medium priority; a missing
// or malformed created line leaves created zero.
func decodeNotes(notes string) notesMeta {
	m := notesMeta{desc: notes, priority: service.PriorityMedium}
	seenPriority, seenCreated := false, false
	for {
		i := strings.LastIndex(m.desc, "\n")
		if i < 0 {
			return m
		}
		line := m.desc[i+1:]
		switch {
		case !seenCreated && !seenPriority && strings.HasPrefix(line, createdPrefix):
			t, err := time.Parse(time.RFC3339, strings.TrimSpace(line[len(createdPrefix):]))
			if err != nil {
				return m
			}
			m.created = t.UTC()
			seenCreated = true
		case !seenPriority && strings.HasPrefix(line, priorityPrefix):
			p := service.Priority(strings.TrimSpace(line[len(priorityPrefix):]))
			if !p.Valid() {
				return m
			}
			m.priority = p
			seenPriority = true
		default:
			return m
		}
		m.desc = m.desc[:i]
	}
}

// wrapError converts API errors into *service.GatewayError with
// user-friendly messages.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}

	status := 0
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		status = apiErr.Code
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		err = fmt.Errorf("request timed out")
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		err = fmt.Errorf("token expired or revoked")
	case status == http.StatusNotFound:
		err = fmt.Errorf("not found")
	}
	return service.NewGatewayError(op, status, err)
}
