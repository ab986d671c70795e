package harness

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/prismlang/prism/internal/ast"
	"github.com/prismlang/prism/internal/eval"
	"github.com/prismlang/prism/internal/runtime"
	"github.com/prismlang/prism/internal/sandbox"
	"github.com/prismlang/prism/internal/state"
	"github.com/prismlang/prism/internal/view"
)

// TraceEvent records one executed step and the patches it produced.
type TraceEvent struct {
	Step    int          `json:"step"`
	Kind    string       `json:"kind"`
	Action  string       `json:"action,omitempty"`
	Node    ast.NodeRef  `json:"node,omitempty"`
	Text    string       `json:"text,omitempty"`
	Error   string       `json:"error,omitempty"`
	Patches []view.Patch `json:"patches,omitempty"`
}

// Result is the outcome of a scenario run: the full patch trace plus the
// live runtime for final-state assertions.
type Result struct {
	Runtime *runtime.Runtime
	Load    []view.Patch
	Trace   []TraceEvent
}

// Run loads the scenario's program and executes every step in order.
// A step that fails with the expected error code is recorded and the run
// continues; an unexpected failure (or an expected one that never
// happened) aborts the run.
func Run(scenario *Scenario) (*Result, error) {
	// Scenario runs are deterministic by construction: events execute
	// directly, so token generation never reaches the trace.
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	// The sink's first delivery is the initial layout from boot; step
	// patches are taken from the direct return values instead.
	var loadPatches []view.Patch
	first := true
	sink := func(p []view.Patch) {
		if first {
			loadPatches = p
			first = false
		}
	}

	rt, err := runtime.Load(scenario.Program,
		runtime.WithLogger(quiet),
		runtime.WithPatchSink(sink),
	)
	if err != nil {
		return nil, fmt.Errorf("load program %s: %w", filepath.Base(scenario.Program), err)
	}

	result := &Result{Runtime: rt, Load: loadPatches}

	for i, step := range scenario.Steps {
		event := TraceEvent{Step: i}

		var patches []view.Patch
		var stepErr error
		switch {
		case step.Action != "":
			event.Kind = "action"
			event.Action = step.Action
			patches, stepErr = rt.Execute(step.Action)
		case step.Click != "":
			event.Kind = "click"
			event.Node = ast.NodeRef(step.Click)
			patches, stepErr = rt.Click(event.Node)
		case step.TextInput != nil:
			event.Kind = "text_input"
			event.Node = ast.NodeRef(step.TextInput.Node)
			event.Text = step.TextInput.Text
			patches, stepErr = rt.TextInput(event.Node, step.TextInput.Text)
		case step.Backspace != "":
			event.Kind = "backspace"
			event.Node = ast.NodeRef(step.Backspace)
			patches, stepErr = rt.Backspace(event.Node)
		}

		if stepErr != nil {
			code := errorCode(stepErr)
			if step.ExpectError == "" {
				return nil, fmt.Errorf("steps[%d] (%s): unexpected error: %w", i, event.Kind, stepErr)
			}
			if code != step.ExpectError {
				return nil, fmt.Errorf("steps[%d] (%s): expected error %q, got %q: %w",
					i, event.Kind, step.ExpectError, code, stepErr)
			}
			event.Error = code
		} else if step.ExpectError != "" {
			return nil, fmt.Errorf("steps[%d] (%s): expected error %q, step succeeded",
				i, event.Kind, step.ExpectError)
		}

		event.Patches = patches
		result.Trace = append(result.Trace, event)
	}

	return result, nil
}

// errorCode extracts the stable error code from a runtime failure.
func errorCode(err error) string {
	var ae *state.ActionError
	if errors.As(err, &ae) {
		if ae.Code == state.ErrCodeEvaluation {
			if code := eval.EvalErrorCodeOf(err); code != "" {
				return string(code)
			}
		}
		return string(ae.Code)
	}
	if code := eval.EvalErrorCodeOf(err); code != "" {
		return string(code)
	}
	if code := sandbox.SandboxErrorCodeOf(err); code != "" {
		return string(code)
	}
	return err.Error()
}
