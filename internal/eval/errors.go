package eval

import (
	"errors"
	"fmt"
)

// EvalError represents an expression evaluation failure. Evaluation errors
// are recoverable at the action level: the surrounding transaction aborts
// and committed state stays untouched.
type EvalError struct {
	// Code identifies the error category.
	Code EvalErrorCode

	// Message is a human-readable description.
	Message string
}

// EvalErrorCode categorizes evaluation errors.
type EvalErrorCode string

const (
	// ErrCodeTypeMismatch indicates an operator applied to operand kinds
	// it does not accept.
	ErrCodeTypeMismatch EvalErrorCode = "TYPE_MISMATCH"

	// ErrCodeUndefinedVariable indicates an identifier absent from the
	// snapshot. Load-time validation makes this unreachable for parsed
	// documents; it guards programmatic callers.
	ErrCodeUndefinedVariable EvalErrorCode = "UNDEFINED_VARIABLE"

	// ErrCodeDivisionByZero indicates division by a zero Int or Float.
	ErrCodeDivisionByZero EvalErrorCode = "DIVISION_BY_ZERO"
)

// Error implements the error interface.
func (e *EvalError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsEvalError returns true if err is an EvalError.
// Uses errors.As to handle wrapped errors.
func IsEvalError(err error) bool {
	var ee *EvalError
	return errors.As(err, &ee)
}

// EvalErrorCodeOf returns the code of a (possibly wrapped) EvalError,
// or "" when err is not one.
func EvalErrorCodeOf(err error) EvalErrorCode {
	var ee *EvalError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}

func typeMismatch(format string, args ...any) *EvalError {
	return &EvalError{Code: ErrCodeTypeMismatch, Message: fmt.Sprintf(format, args...)}
}
