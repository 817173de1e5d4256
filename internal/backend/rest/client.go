// Package rest implements service.Gateway against a REST/JSON task store
// exposing /tasks and /tasks/:id.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"tasksync/internal/service"
)

// DefaultTimeout is the timeout for API calls when none is configured.
const DefaultTimeout = 5 * time.Second

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 4 << 10

// Options configures a Client.
type Options struct {
	// BaseURL is the store root, e.g. http://localhost:3000.
	BaseURL string

	// Timeout bounds each request. Zero means DefaultTimeout.
	Timeout time.Duration

	// Token, when set, is sent as a bearer token.
	Token string

	// HTTPClient overrides the transport (for testing).
	HTTPClient *http.Client
}

// Client implements service.Gateway over HTTP.
type Client struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
}

// New creates a REST client.
func New(ctx context.Context, opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid server url: %q (want http or https)", opts.BaseURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if opts.Token != "" {
		// Wrap the configured transport so the token rides on every request.
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token, TokenType: "Bearer"})
		ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
		httpClient = oauth2.NewClient(ctx, src)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{base: base, http: httpClient, timeout: timeout}, nil
}

// wireTask is the JSON representation used by the store.
type wireTask struct {
	ID          string    `json:"_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	Priority    string    `json:"priority"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (w wireTask) toTask() service.Task {
	p := service.Priority(w.Priority)
	if !p.Valid() {
		p = service.PriorityMedium
	}
	return service.Task{
		ID:          w.ID,
		Title:       w.Title,
		Description: w.Description,
		Priority:    p,
		Completed:   w.Completed,
		CreatedAt:   w.CreatedAt,
	}
}

type createBody struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority,omitempty"`
}

type updateBody struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

// FetchAll implements service.Gateway (GET /tasks).
func (c *Client) FetchAll(ctx context.Context) ([]service.Task, error) {
	var out []wireTask
	if err := c.do(ctx, service.OpFetchAll, http.MethodGet, "/tasks", nil, &out); err != nil {
		return nil, err
	}
	tasks := make([]service.Task, 0, len(out))
	for _, w := range out {
		if w.ID == "" {
			return nil, service.NewGatewayError(service.OpFetchAll, 0, errors.New("task without _id in response"))
		}
		tasks = append(tasks, w.toTask())
	}
	return tasks, nil
}

// CreateOne implements service.Gateway (POST /tasks).
func (c *Client) CreateOne(ctx context.Context, fields service.Fields) (service.Task, error) {
	body := createBody{
		Title:       fields.Title,
		Description: fields.Description,
		Priority:    string(fields.Priority),
	}
	var out wireTask
	if err := c.do(ctx, service.OpCreateOne, http.MethodPost, "/tasks", body, &out); err != nil {
		return service.Task{}, err
	}
	if out.ID == "" {
		return service.Task{}, service.NewGatewayError(service.OpCreateOne, 0, errors.New("created task has no _id"))
	}
	return out.toTask(), nil
}

// UpdateOne implements service.Gateway (PUT /tasks/:id).
func (c *Client) UpdateOne(ctx context.Context, id string, patch service.Patch) (service.Task, error) {
	body := updateBody{
		Title:       patch.Title,
		Description: patch.Description,
		Completed:   patch.Completed,
	}
	if patch.Priority != nil {
		p := string(*patch.Priority)
		body.Priority = &p
	}
	var out wireTask
	if err := c.do(ctx, service.OpUpdateOne, http.MethodPut, "/tasks/"+url.PathEscape(id), body, &out); err != nil {
		return service.Task{}, err
	}
	if out.ID == "" {
		return service.Task{}, service.NewGatewayError(service.OpUpdateOne, 0, errors.New("updated task has no _id"))
	}
	return out.toTask(), nil
}

// DeleteOne implements service.Gateway (DELETE /tasks/:id).
func (c *Client) DeleteOne(ctx context.Context, id string) error {
	return c.do(ctx, service.OpDeleteOne, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, nil)
}

// do performs one request. Any failure, including a response body that
// cannot be decoded, is returned as *service.GatewayError.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return service.NewGatewayError(op, 0, fmt.Errorf("encode request: %w", err))
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return service.NewGatewayError(op, 0, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return service.NewGatewayError(op, 0, wrapTransportError(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return service.NewGatewayError(op, resp.StatusCode, errorFromBody(resp))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return service.NewGatewayError(op, resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// wrapTransportError gives transport failures user-friendly messages.
func wrapTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", err)
	}
	return err
}

// errorFromBody extracts the store's {"message": ...} body if present.
func errorFromBody(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var msg struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(data, &msg) == nil && msg.Message != "" {
		if msg.Error != "" {
			return fmt.Errorf("%s: %s", msg.Message, msg.Error)
		}
		return errors.New(msg.Message)
	}
	if text := strings.TrimSpace(string(data)); text != "" {
		return errors.New(text)
	}
	return errors.New(http.StatusText(resp.StatusCode))
}
