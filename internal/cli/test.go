package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/prismlang/prism/internal/harness"
)

// ScenarioResult is the machine-readable outcome of one scenario.
type ScenarioResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Error  string `json:"error,omitempty"`
}

// TestReport is the machine-readable outcome of a test run.
type TestReport struct {
	Total     int              `json:"total"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Scenarios []ScenarioResult `json:"scenarios"`
}

// NewTestCommand creates the test command: run YAML conformance
// scenarios and report pass/fail.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "test <scenario.yaml|dir>...",
		Short: "Run conformance scenarios",
		Long: `Run YAML conformance scenarios.

Each scenario loads a program, feeds it input events, and checks
assertions on the final state and view. Directories are searched for
*.yaml files. Exit code 1 means at least one scenario failed.

Example:
  prism test scenarios/
  prism test scenarios/counter_click.yaml`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTest(rootOpts, args, cmd)
		},
	}
}

func runTest(opts *RootOptions, args []string, cmd *cobra.Command) error {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	paths, err := collectScenarioFiles(args)
	if err != nil {
		out.Error("ARGS", err.Error(), nil)
		return WrapExitError(ExitCommandError, "collect scenarios", err)
	}
	if len(paths) == 0 {
		out.Error("ARGS", "no scenario files found", nil)
		return NewExitError(ExitCommandError, "no scenario files found")
	}

	report := TestReport{Total: len(paths)}
	for _, path := range paths {
		result := runScenarioFile(opts, out, path)
		report.Scenarios = append(report.Scenarios, result)
		if result.Passed {
			report.Passed++
		} else {
			report.Failed++
		}
	}

	if opts.Format == "json" {
		if err := out.Success(report); err != nil {
			return err
		}
	} else {
		var b strings.Builder
		for _, s := range report.Scenarios {
			if s.Passed {
				fmt.Fprintf(&b, "PASS %s\n", s.Name)
			} else {
				fmt.Fprintf(&b, "FAIL %s: %s\n", s.Name, s.Error)
			}
		}
		fmt.Fprintf(&b, "%d scenarios: %d passed, %d failed", report.Total, report.Passed, report.Failed)
		if err := out.Success(b.String()); err != nil {
			return err
		}
	}

	if report.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenarios failed", report.Failed))
	}
	return nil
}

func runScenarioFile(opts *RootOptions, out *OutputFormatter, path string) ScenarioResult {
	out.VerboseLog("running %s", path)

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return ScenarioResult{Name: filepath.Base(path), Passed: false, Error: err.Error()}
	}

	result, err := harness.Run(scenario)
	if err != nil {
		return ScenarioResult{Name: scenario.Name, Passed: false, Error: err.Error()}
	}
	if err := harness.Verify(result, scenario); err != nil {
		return ScenarioResult{Name: scenario.Name, Passed: false, Error: err.Error()}
	}
	return ScenarioResult{Name: scenario.Name, Passed: true}
}

// collectScenarioFiles expands directory arguments into their *.yaml
// files, keeping explicit file arguments as-is.
func collectScenarioFiles(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			matches, err := filepath.Glob(filepath.Join(arg, "*.yaml"))
			if err != nil {
				return nil, err
			}
			paths = append(paths, matches...)
			continue
		}
		paths = append(paths, arg)
	}
	return paths, nil
}
