// Package exitcode defines exit codes for the CLI.
package exitcode

const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, invalid input, unknown
	// task, operation already pending).
	UserError = 1

	// ConfigError indicates an invalid configuration or a backend that
	// could not be set up.
	ConfigError = 2

	// BackendError indicates the store could not be reached or rejected
	// a change.
	BackendError = 3
)
