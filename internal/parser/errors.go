package parser

import (
	"errors"
	"fmt"
)

// LoadError represents a fatal document-load failure: the file is rejected
// wholesale and the application never starts. It covers grammar violations
// from this package and the reference/duplicate checks run at load time.
type LoadError struct {
	// Code identifies the error category.
	Code LoadErrorCode

	// Message is a human-readable description.
	Message string

	// Line and Col locate the failure in the source (1-based).
	// Zero when the failure has no source position (reference checks).
	Line int
	Col  int
}

// LoadErrorCode categorizes load errors.
type LoadErrorCode string

const (
	// ErrCodeSyntax indicates a grammar violation.
	ErrCodeSyntax LoadErrorCode = "SYNTAX"

	// ErrCodeDirective indicates a missing or invalid @app/@version directive.
	ErrCodeDirective LoadErrorCode = "DIRECTIVE"

	// ErrCodeDuplicateVariable indicates a state variable declared twice.
	ErrCodeDuplicateVariable LoadErrorCode = "DUPLICATE_VARIABLE"

	// ErrCodeDuplicateAction indicates an action declared twice.
	ErrCodeDuplicateAction LoadErrorCode = "DUPLICATE_ACTION"

	// ErrCodeUnresolvedIdentifier indicates a variable or action reference
	// that does not resolve to a declaration.
	ErrCodeUnresolvedIdentifier LoadErrorCode = "UNRESOLVED_IDENTIFIER"
)

// Error implements the error interface.
func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%d:%d: %s: %s", e.Line, e.Col, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewLoadError creates a position-less LoadError. Used by the load-time
// reference checks, which operate on the AST rather than source text.
func NewLoadError(code LoadErrorCode, format string, args ...any) *LoadError {
	return &LoadError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsLoadError returns true if err is a LoadError.
// Uses errors.As to handle wrapped errors.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}
