// Package sandbox enforces the resource envelope every program runs
// inside: where program files may be read from, how large they may be,
// and how much memory the interpreter may hold. Everything else is
// denied by omission; there is no capability for network, arbitrary
// filesystem access, or timers, so no code path can reach them.
package sandbox

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultMaxFileSize is the program file size ceiling: 1 MiB.
	DefaultMaxFileSize int64 = 1 << 20

	// DefaultMaxMemory is the interpreter footprint ceiling: 16 MiB.
	DefaultMaxMemory int64 = 16 << 20

	// ProgramExt is the only file extension the guard accepts.
	ProgramExt = ".prism"
)

// Guard validates program paths and file sizes against a fixed root and
// tracks the interpreter's memory footprint as a monotonic high-water
// charge. One Guard instance serves one runtime; it is used from the
// single run-loop goroutine only.
type Guard struct {
	root        string // absolute allowed root, "" disables confinement
	maxFileSize int64
	maxMemory   int64
	charged     int64 // high-water footprint in bytes
}

// Option configures a Guard.
type Option func(*Guard)

// WithMaxFileSize overrides the program file size limit.
func WithMaxFileSize(n int64) Option {
	return func(g *Guard) { g.maxFileSize = n }
}

// WithMaxMemory overrides the memory footprint limit.
func WithMaxMemory(n int64) Option {
	return func(g *Guard) { g.maxMemory = n }
}

// NewGuard creates a guard confined to root. An empty root skips
// directory confinement but keeps the extension, traversal, file size,
// and memory checks.
func NewGuard(root string, opts ...Option) (*Guard, error) {
	g := &Guard{
		maxFileSize: DefaultMaxFileSize,
		maxMemory:   DefaultMaxMemory,
	}
	for _, opt := range opts {
		opt(g)
	}
	if root != "" {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, err
		}
		g.root = abs
	}
	return g, nil
}

// ValidatePath checks that path names a program file the guard allows:
// a .prism extension, no parent traversal, and (when the guard has a
// root) a location inside it. Returns the cleaned absolute path.
func (g *Guard) ValidatePath(path string) (string, error) {
	if filepath.Ext(path) != ProgramExt {
		return "", &SandboxError{
			Code:    ErrCodePathRejected,
			Path:    path,
			Message: "program files must have the " + ProgramExt + " extension",
		}
	}

	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return "", &SandboxError{
				Code:    ErrCodePathRejected,
				Path:    path,
				Message: "parent traversal is not allowed",
			}
		}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	if g.root != "" {
		rel, err := filepath.Rel(g.root, abs)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return "", &SandboxError{
				Code:    ErrCodePathRejected,
				Path:    path,
				Message: "outside the allowed program directory",
			}
		}
	}
	return abs, nil
}

// ReadProgram validates the path, checks the on-disk size before
// reading, and charges the file's bytes against the memory budget.
func (g *Guard) ReadProgram(path string) ([]byte, error) {
	abs, err := g.ValidatePath(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if err := g.CheckFileSize(abs, info.Size()); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}
	// Stat raced with a grow; re-check what was actually read.
	if err := g.CheckFileSize(abs, int64(len(data))); err != nil {
		return nil, err
	}
	if err := g.Charge(int64(len(data))); err != nil {
		return nil, err
	}
	return data, nil
}

// CheckFileSize rejects sizes over the file limit. A file of exactly the
// limit is accepted; one byte more is not.
func (g *Guard) CheckFileSize(path string, size int64) error {
	if size > g.maxFileSize {
		return &SandboxError{
			Code:  ErrCodeFileTooLarge,
			Path:  path,
			Size:  size,
			Limit: g.maxFileSize,
		}
	}
	return nil
}

// Charge raises the tracked footprint to at least n bytes. The charge is
// a high-water mark: footprint estimates from different subsystems are
// reported as absolute totals and never decrease the counter, so a
// program that once exceeded the ceiling stays failed.
func (g *Guard) Charge(n int64) error {
	if n > g.charged {
		g.charged = n
	}
	if g.charged > g.maxMemory {
		return &SandboxError{
			Code:  ErrCodeMemoryExceeded,
			Size:  g.charged,
			Limit: g.maxMemory,
		}
	}
	return nil
}

// Charged returns the current high-water footprint.
// Used for logging and diagnostics.
func (g *Guard) Charged() int64 { return g.charged }

// MaxMemory returns the configured memory ceiling.
func (g *Guard) MaxMemory() int64 { return g.maxMemory }

// MaxFileSize returns the configured file size ceiling.
func (g *Guard) MaxFileSize() int64 { return g.maxFileSize }
