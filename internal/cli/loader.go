package cli

import (
	"io"
	"log/slog"
	"os"

	"github.com/prismlang/prism/internal/parser"
	"github.com/prismlang/prism/internal/runtime"
	"github.com/prismlang/prism/internal/sandbox"
)

// loadProgram loads a .prism file with logging configured from the
// global flags. Load failures come back as ExitErrors: rejected or
// invalid programs are check failures, missing files are command errors.
func loadProgram(path string, opts *RootOptions, extra ...runtime.Option) (*runtime.Runtime, error) {
	logOpts := append([]runtime.Option{runtime.WithLogger(newLogger(opts))}, extra...)

	rt, err := runtime.Load(path, logOpts...)
	if err != nil {
		switch {
		case os.IsNotExist(err):
			return nil, WrapExitError(ExitCommandError, "program file not found", err)
		case parser.IsLoadError(err) || sandbox.IsSandboxError(err):
			return nil, WrapExitError(ExitFailure, "invalid program", err)
		default:
			return nil, WrapExitError(ExitCommandError, "load program", err)
		}
	}
	return rt, nil
}

// newLogger builds the CLI's slog logger: debug to stderr when verbose,
// discarded otherwise so text and JSON output stay clean.
func newLogger(opts *RootOptions) *slog.Logger {
	if opts.Verbose {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
