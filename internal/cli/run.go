package cli

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/prismlang/prism/internal/renderer"
	"github.com/prismlang/prism/internal/runtime"
	"github.com/prismlang/prism/internal/view"
)

// NewRunCommand creates the run command: an interactive terminal session
// for a program.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run <file.prism>",
		Short: "Run a program interactively in the terminal",
		Long: `Run a program interactively in the terminal.

Tab moves focus between buttons and inputs, Enter clicks the focused
button, typing edits the focused input, Ctrl-C quits.

Example:
  prism run examples/counter.prism`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(rootOpts, args[0])
		},
	}
}

func runInteractive(opts *RootOptions, path string) error {
	var terminal *renderer.Terminal

	rt, err := loadProgram(path, opts, runtime.WithPatchSink(func(patches []view.Patch) {
		if terminal != nil {
			terminal.OnPatches(patches)
		}
	}))
	if err != nil {
		return err
	}

	terminal = renderer.NewTerminal(rt, os.Stdin, os.Stdout)
	if !terminal.IsInteractive() {
		return NewExitError(ExitCommandError, "run requires an interactive terminal (use invoke or test otherwise)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loopErr := make(chan error, 1)
	go func() {
		loopErr <- rt.Run(ctx)
	}()

	termErr := terminal.Run(ctx)
	rt.Stop()
	cancel()

	runErr := <-loopErr
	if termErr != nil && !errors.Is(termErr, context.Canceled) {
		return WrapExitError(ExitFailure, "terminal", termErr)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return WrapExitError(ExitFailure, "run", runErr)
	}
	return nil
}
