package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prismlang/prism/internal/ast"
)

// CheckSummary is the machine-readable result of a successful check.
type CheckSummary struct {
	App       string `json:"app"`
	Version   int    `json:"version"`
	StateVars int    `json:"state_vars"`
	Actions   int    `json:"actions"`
	ViewNodes int    `json:"view_nodes"`
}

// NewCheckCommand creates the check command: load a program through the
// full pipeline (sandbox, parse, reference validation, first build) and
// report what was found without running it.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check <file.prism>",
		Short: "Validate a program without running it",
		Long: `Validate a program without running it.

The program goes through the same pipeline as prism run: sandbox checks,
parsing, reference validation, and the initial view build. Exit code 1
means the program was rejected.

Example:
  prism check examples/counter.prism`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args[0], cmd)
		},
	}
}

func runCheck(opts *RootOptions, path string, cmd *cobra.Command) error {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	rt, err := loadProgram(path, opts)
	if err != nil {
		out.Error("LOAD", err.Error(), nil)
		return err
	}

	doc := rt.Document()
	summary := CheckSummary{
		App:       doc.AppName,
		Version:   doc.Version,
		StateVars: len(doc.State),
		Actions:   len(doc.Actions),
		ViewNodes: countNodes(doc.View),
	}

	if opts.Format == "json" {
		return out.Success(summary)
	}
	return out.Success(fmt.Sprintf("%s v%d: ok (%d state vars, %d actions, %d view nodes)",
		summary.App, summary.Version, summary.StateVars, summary.Actions, summary.ViewNodes))
}

func countNodes(n *ast.ViewNode) int {
	if n == nil {
		return 0
	}
	total := 1
	for _, c := range n.Children {
		total += countNodes(c)
	}
	return total
}
