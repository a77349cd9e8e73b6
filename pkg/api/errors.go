package api

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no burn request exists for the given id.
	ErrNotFound = errors.New("burn request not found")

	// ErrNoPendingRequest is returned by Claim when no pending request is
	// available at call time. It is not a failure; callers typically back
	// off and retry later.
	ErrNoPendingRequest = errors.New("no pending burn request")

	// ErrNotOwner is returned when a burner tries to complete or fail a
	// request that is owned by a different burner.
	ErrNotOwner = errors.New("burn request owned by another burner")

	// ErrInvalidTransition is returned when the requested status change is
	// not legal from the request's current status, for example completing
	// a request that is already terminal. The record is left unchanged.
	ErrInvalidTransition = errors.New("invalid burn request transition")

	// ErrValidation is returned for malformed input, before any store
	// access. The wrapped message names the offending field.
	ErrValidation = errors.New("invalid burn request input")
)

// PersistenceError wraps a failure from the underlying store. The effect
// of the attempted operation is unknown to the caller: in particular a
// claim that returns a PersistenceError may or may not have taken effect,
// so the caller must re-query state before retrying rather than blindly
// claiming again.
type PersistenceError struct {
	// Op is the operation that failed: "submit", "claim", "complete",
	// "fail", "get", "list" or "history".
	Op string

	// RequestID is the affected request, when known. Empty for claim and
	// list failures.
	RequestID string

	Err error
}

func (e *PersistenceError) Error() string {
	if e.RequestID == "" {
		return fmt.Sprintf("%s burn request: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s burn request %s: %v", e.Op, e.RequestID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// NewPersistenceError wraps err with operation context.
func NewPersistenceError(op, requestID string, err error) *PersistenceError {
	return &PersistenceError{Op: op, RequestID: requestID, Err: err}
}
