// Package service defines the backend-agnostic contract for the remote task store.
package service

import "context"

// Gateway defines the interface for remote task store operations.
// Each call is a single request/response cycle with no implicit retry.
// Every failure, including a timeout after the request was sent, is
// returned as a *GatewayError.
// The engine never imports a backend directly.
type Gateway interface {
	// FetchAll returns every task known to the store.
	FetchAll(ctx context.Context) ([]Task, error)

	// CreateOne creates a task and returns it with its server-assigned
	// ID and CreatedAt.
	CreateOne(ctx context.Context, fields Fields) (Task, error)

	// UpdateOne applies a partial update and returns the updated task.
	UpdateOne(ctx context.Context, id string, patch Patch) (Task, error)

	// DeleteOne deletes a task.
	DeleteOne(ctx context.Context, id string) error
}
