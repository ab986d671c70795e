// Package harness runs YAML conformance scenarios against the runtime:
// each scenario loads a program, feeds it a sequence of input events, and
// asserts on the resulting patches and final state. Golden trace files
// pin the exact patch output for regression detection.
package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/prismlang/prism/internal/ast"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Program is the path to the .prism file to load.
	// Relative paths resolve against the scenario file location.
	Program string `yaml:"program"`

	// Steps contains the input events to feed the runtime in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final view and state.
	// Supported types: final_state, node_text, node_visible.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one input event. Exactly one of the event fields must be set.
type Step struct {
	// Action dispatches an action by name.
	Action string `yaml:"action,omitempty"`

	// Click activates the node with this ref.
	Click string `yaml:"click,omitempty"`

	// TextInput types text into a bound node.
	TextInput *TextInputStep `yaml:"text_input,omitempty"`

	// Backspace deletes one rune from the node with this ref.
	Backspace string `yaml:"backspace,omitempty"`

	// ExpectError names the error code this step must fail with
	// (e.g. "EVALUATION_FAILED"). Empty means the step must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// TextInputStep carries a text input event's target and payload.
type TextInputStep struct {
	Node string `yaml:"node"`
	Text string `yaml:"text"`
}

// Assertion validates final view or state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "final_state": a state variable holds an expected value
	// - "node_text": a node's substituted text matches
	// - "node_visible": a node's visibility matches
	Type string `yaml:"type"`

	// Var is the state variable name (final_state).
	Var string `yaml:"var,omitempty"`

	// Equals is the expected value (final_state: any scalar,
	// node_text: string).
	Equals any `yaml:"equals,omitempty"`

	// Node is the node ref (node_text, node_visible).
	Node string `yaml:"node,omitempty"`

	// Visible is the expected visibility (node_visible).
	Visible bool `yaml:"visible"`
}

// Assertion type constants.
const (
	AssertFinalState  = "final_state"
	AssertNodeText    = "node_text"
	AssertNodeVisible = "node_visible"
)

// LoadScenario reads and parses a scenario YAML file, resolving the
// program path relative to the scenario's directory. Unknown YAML fields
// are rejected to catch typos.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario YAML: %w", err)
	}

	if scenario.Program != "" && !filepath.IsAbs(scenario.Program) {
		scenario.Program = filepath.Join(filepath.Dir(path), scenario.Program)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Program == "" {
		return fmt.Errorf("program is required")
	}
	if _, err := os.Stat(s.Program); os.IsNotExist(err) {
		return fmt.Errorf("program file not found: %s", s.Program)
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		set := 0
		if step.Action != "" {
			set++
		}
		if step.Click != "" {
			set++
		}
		if step.TextInput != nil {
			set++
			if step.TextInput.Node == "" {
				return fmt.Errorf("steps[%d].text_input: node is required", i)
			}
		}
		if step.Backspace != "" {
			set++
		}
		if set != 1 {
			return fmt.Errorf("steps[%d]: exactly one of action, click, text_input, backspace is required", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertFinalState:
		if a.Var == "" {
			return fmt.Errorf("assertions[%d]: var is required for final_state", index)
		}
	case AssertNodeText:
		if a.Node == "" {
			return fmt.Errorf("assertions[%d]: node is required for node_text", index)
		}
		if _, ok := a.Equals.(string); !ok {
			return fmt.Errorf("assertions[%d]: equals must be a string for node_text", index)
		}
	case AssertNodeVisible:
		if a.Node == "" {
			return fmt.Errorf("assertions[%d]: node is required for node_visible", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// valueFromYAML converts a decoded YAML scalar into a runtime value.
func valueFromYAML(v any) (ast.Value, error) {
	switch x := v.(type) {
	case nil:
		return ast.Null{}, nil
	case bool:
		return ast.Bool(x), nil
	case int:
		return ast.Int(x), nil
	case int64:
		return ast.Int(x), nil
	case float64:
		return ast.Float(x), nil
	case string:
		return ast.Str(x), nil
	default:
		return nil, fmt.Errorf("unsupported scenario value %v (%T)", v, v)
	}
}
