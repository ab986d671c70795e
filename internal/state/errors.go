package state

import (
	"errors"
	"fmt"
)

// ActionError represents a failed action dispatch or transaction. Action
// errors are recovered locally: the action aborts, committed state is
// unchanged, and the event loop returns to idle.
type ActionError struct {
	// Code identifies the error category.
	Code ActionErrorCode

	// Action is the action name as dispatched.
	Action string

	// Target is the mutation target whose expression failed
	// (evaluation failures only).
	Target string

	// Cause is the underlying evaluation error, when any.
	Cause error
}

// ActionErrorCode categorizes action errors.
type ActionErrorCode string

const (
	// ErrCodeUnknownAction indicates no action with the dispatched name.
	ErrCodeUnknownAction ActionErrorCode = "UNKNOWN_ACTION"

	// ErrCodeEvaluation indicates a mutation expression failed; the whole
	// action aborted and state is untouched.
	ErrCodeEvaluation ActionErrorCode = "EVALUATION_FAILED"
)

// Error implements the error interface.
func (e *ActionError) Error() string {
	if e.Code == ErrCodeEvaluation {
		return fmt.Sprintf("%s: action %q, target %q: %v", e.Code, e.Action, e.Target, e.Cause)
	}
	return fmt.Sprintf("%s: %q", e.Code, e.Action)
}

// Unwrap exposes the evaluation cause for errors.As/Is chains.
func (e *ActionError) Unwrap() error { return e.Cause }

// IsActionError returns true if err is an ActionError.
// Uses errors.As to handle wrapped errors.
func IsActionError(err error) bool {
	var ae *ActionError
	return errors.As(err, &ae)
}

// IsUnknownAction returns true for unknown-action dispatch failures.
func IsUnknownAction(err error) bool {
	var ae *ActionError
	return errors.As(err, &ae) && ae.Code == ErrCodeUnknownAction
}
