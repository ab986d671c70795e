package sandbox

import (
	"errors"
	"fmt"
)

// SandboxError represents a resource-limit or capability violation.
// Sandbox errors are fatal: the runtime halts instead of recovering,
// because a program past its limits cannot be trusted to continue.
type SandboxError struct {
	// Code identifies the violated limit.
	Code SandboxErrorCode

	// Path is the offending filesystem path (path and size violations).
	Path string

	// Size is the observed size in bytes, when applicable.
	Size int64

	// Limit is the configured limit in bytes, when applicable.
	Limit int64

	// Message carries extra detail for path rejections.
	Message string
}

// SandboxErrorCode categorizes sandbox violations.
type SandboxErrorCode string

const (
	// ErrCodePathRejected indicates a program path outside the allowed
	// root, with a parent traversal, or without the required extension.
	ErrCodePathRejected SandboxErrorCode = "PATH_REJECTED"

	// ErrCodeFileTooLarge indicates a program file over the size limit.
	ErrCodeFileTooLarge SandboxErrorCode = "FILE_TOO_LARGE"

	// ErrCodeMemoryExceeded indicates the tracked interpreter footprint
	// passed the memory ceiling.
	ErrCodeMemoryExceeded SandboxErrorCode = "MEMORY_EXCEEDED"
)

// Error implements the error interface.
func (e *SandboxError) Error() string {
	switch e.Code {
	case ErrCodePathRejected:
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Path, e.Message)
	case ErrCodeFileTooLarge:
		return fmt.Sprintf("%s: %s: %d bytes > %d limit", e.Code, e.Path, e.Size, e.Limit)
	case ErrCodeMemoryExceeded:
		return fmt.Sprintf("%s: %d bytes > %d limit", e.Code, e.Size, e.Limit)
	default:
		return string(e.Code)
	}
}

// IsSandboxError returns true if err is a SandboxError.
// Uses errors.As to handle wrapped errors.
func IsSandboxError(err error) bool {
	var se *SandboxError
	return errors.As(err, &se)
}

// SandboxErrorCodeOf returns the code of a (possibly wrapped)
// SandboxError, or "" when err is not one.
func SandboxErrorCodeOf(err error) SandboxErrorCode {
	var se *SandboxError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}
