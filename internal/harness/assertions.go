package harness

import (
	"fmt"

	"github.com/prismlang/prism/internal/ast"
)

// Verify checks every assertion in the scenario against the run result.
// Returns the first failure with enough context to locate it.
func Verify(result *Result, scenario *Scenario) error {
	for i, a := range scenario.Assertions {
		if err := verifyOne(result, &a); err != nil {
			return fmt.Errorf("assertions[%d] (%s): %w", i, a.Type, err)
		}
	}
	return nil
}

func verifyOne(result *Result, a *Assertion) error {
	switch a.Type {
	case AssertFinalState:
		want, err := valueFromYAML(a.Equals)
		if err != nil {
			return err
		}
		got, ok := result.Runtime.Lookup(a.Var)
		if !ok {
			return fmt.Errorf("state variable %q not found", a.Var)
		}
		if !ast.Equal(got, want) {
			return fmt.Errorf("state variable %q: expected %s (%s), got %s (%s)",
				a.Var, want.Display(), want.Kind(), got.Display(), got.Kind())
		}

	case AssertNodeText:
		node := result.Runtime.Tree().Find(ast.NodeRef(a.Node))
		if node == nil {
			return fmt.Errorf("node %q not found", a.Node)
		}
		if !node.HasText {
			return fmt.Errorf("node %q has no text content", a.Node)
		}
		want := a.Equals.(string)
		if node.Text != want {
			return fmt.Errorf("node %q text: expected %q, got %q", a.Node, want, node.Text)
		}

	case AssertNodeVisible:
		node := result.Runtime.Tree().Find(ast.NodeRef(a.Node))
		if node == nil {
			return fmt.Errorf("node %q not found", a.Node)
		}
		if node.Visible != a.Visible {
			return fmt.Errorf("node %q visible: expected %v, got %v", a.Node, a.Visible, node.Visible)
		}

	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
