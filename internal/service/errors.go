package service

import (
	"errors"
	"fmt"
)

// Gateway operation names carried by GatewayError.
const (
	OpFetchAll  = "fetchAll"
	OpCreateOne = "createOne"
	OpUpdateOne = "updateOne"
	OpDeleteOne = "deleteOne"
)

// GatewayError reports a failed or ambiguous remote call.
type GatewayError struct {
	// Op is the attempted operation (one of the Op constants).
	Op string

	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int

	Err error
}

func (e *GatewayError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s failed: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// NewGatewayError wraps err for op. An existing *GatewayError is returned as is.
func NewGatewayError(op string, status int, err error) *GatewayError {
	var gerr *GatewayError
	if errors.As(err, &gerr) {
		return gerr
	}
	if err == nil {
		err = errors.New("unknown failure")
	}
	return &GatewayError{Op: op, StatusCode: status, Err: err}
}

// IsNotFound reports whether err is a gateway error with status 404.
func IsNotFound(err error) bool {
	var gerr *GatewayError
	return errors.As(err, &gerr) && gerr.StatusCode == 404
}
