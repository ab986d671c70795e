package view

import (
	"encoding/json"
	"fmt"

	"github.com/prismlang/prism/internal/ast"
)

// PatchKind identifies a patch operation.
type PatchKind string

const (
	// PatchSetText replaces a node's substituted text.
	PatchSetText PatchKind = "set_text"

	// PatchSetVisible toggles a node's visibility. Visibility never
	// removes a node from the tree in v1.
	PatchSetVisible PatchKind = "set_visible"

	// PatchSetProp replaces one resolved property value.
	PatchSetProp PatchKind = "set_prop"
)

// Patch is one minimal view update. A reconciliation pass emits an ordered
// sequence of patches following tree pre-order, so a renderer can apply
// them without intermediate inconsistent states.
type Patch struct {
	Kind    PatchKind
	Node    ast.NodeRef
	Text    string    // PatchSetText
	Visible bool      // PatchSetVisible
	Name    string    // PatchSetProp
	Value   ast.Value // PatchSetProp
}

// String renders a compact human-readable form for logs and text output.
func (p Patch) String() string {
	switch p.Kind {
	case PatchSetText:
		return fmt.Sprintf("%s %s %q", p.Kind, p.Node, p.Text)
	case PatchSetVisible:
		return fmt.Sprintf("%s %s %v", p.Kind, p.Node, p.Visible)
	case PatchSetProp:
		return fmt.Sprintf("%s %s %s=%s", p.Kind, p.Node, p.Name, p.Value.Display())
	default:
		return string(p.Kind)
	}
}

// MarshalJSON emits only the fields relevant to the patch kind, with a
// stable field order for golden traces.
func (p Patch) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case PatchSetText:
		return json.Marshal(struct {
			Op   PatchKind   `json:"op"`
			Node ast.NodeRef `json:"node"`
			Text string      `json:"text"`
		}{p.Kind, p.Node, p.Text})
	case PatchSetVisible:
		return json.Marshal(struct {
			Op      PatchKind   `json:"op"`
			Node    ast.NodeRef `json:"node"`
			Visible bool        `json:"visible"`
		}{p.Kind, p.Node, p.Visible})
	case PatchSetProp:
		value, err := ast.MarshalValue(p.Value)
		if err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			Op    PatchKind       `json:"op"`
			Node  ast.NodeRef     `json:"node"`
			Name  string          `json:"name"`
			Value json.RawMessage `json:"value"`
		}{p.Kind, p.Node, p.Name, value})
	default:
		return nil, fmt.Errorf("unknown patch kind %q", p.Kind)
	}
}
