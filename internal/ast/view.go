package ast

import (
	"fmt"
	"strconv"
)

// NodeKind identifies a view node type from the v1 grammar.
type NodeKind string

const (
	KindColumn   NodeKind = "column"
	KindRow      NodeKind = "row"
	KindStack    NodeKind = "stack"
	KindCenter   NodeKind = "center"
	KindBox      NodeKind = "box"
	KindSpacer   NodeKind = "spacer"
	KindDivider  NodeKind = "divider"
	KindText     NodeKind = "text"
	KindButton   NodeKind = "button"
	KindInput    NodeKind = "input"
	KindCheckbox NodeKind = "checkbox"
	KindToggle   NodeKind = "toggle"
)

// Well-known property names with reactive meaning.
const (
	PropVisible = "visible" // expression, resolves to the node's visibility
	PropBind    = "bind"    // bare identifier, two-way bound variable
	PropOnClick = "on_click" // bare identifier, action name
)

// Color is an RGBA color literal (#RGB, #RRGGBB or #RRGGBBAA in source).
type Color struct {
	R, G, B, A uint8
}

// ParseColor parses a hex color body (without the leading '#').
func ParseColor(hex string) (Color, bool) {
	parse := func(s string) (uint8, bool) {
		n, err := strconv.ParseUint(s, 16, 8)
		return uint8(n), err == nil
	}
	switch len(hex) {
	case 3:
		r, ok1 := parse(string([]byte{hex[0], hex[0]}))
		g, ok2 := parse(string([]byte{hex[1], hex[1]}))
		b, ok3 := parse(string([]byte{hex[2], hex[2]}))
		if ok1 && ok2 && ok3 {
			return Color{r, g, b, 255}, true
		}
	case 6:
		r, ok1 := parse(hex[0:2])
		g, ok2 := parse(hex[2:4])
		b, ok3 := parse(hex[4:6])
		if ok1 && ok2 && ok3 {
			return Color{r, g, b, 255}, true
		}
	case 8:
		r, ok1 := parse(hex[0:2])
		g, ok2 := parse(hex[2:4])
		b, ok3 := parse(hex[4:6])
		a, ok4 := parse(hex[6:8])
		if ok1 && ok2 && ok3 && ok4 {
			return Color{r, g, b, a}, true
		}
	}
	return Color{}, false
}

// String returns the canonical #RRGGBB or #RRGGBBAA form.
func (c Color) String() string {
	if c.A == 255 {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// PropValue is a sealed interface over the static property value forms:
// a literal Value, a Color, an expression, or a bare identifier (an action
// name on on_click, a variable name on bind).
type PropValue interface {
	propValue() // Sealed
}

// StaticProp is a literal property value, passed through unchanged.
type StaticProp struct {
	Value Value
}

func (StaticProp) propValue() {}

// ColorProp is a color literal property.
type ColorProp struct {
	Color Color
}

func (ColorProp) propValue() {}

// ExprProp is an expression-valued property, re-resolved when any of its
// free variables changes.
type ExprProp struct {
	Expr Expr
}

func (ExprProp) propValue() {}

// RefProp is a bare identifier property. On on_click it names an action;
// on bind it names a state variable. Load-time validation resolves it.
type RefProp struct {
	Name string
}

func (RefProp) propValue() {}

// TemplateSpan is one span of a text template: either a literal run or an
// interpolated expression ({count}, {count + 1}, ...).
type TemplateSpan struct {
	Literal string // used when Expr is nil
	Expr    Expr   // non-nil for interpolations
}

// ViewNode is one node of the immutable static view tree.
// Built once at load; never mutated.
type ViewNode struct {
	Kind     NodeKind
	Props    map[string]PropValue
	Template []TemplateSpan // text content, nil when the node has none
	Children []*ViewNode
}

// Visible returns the node's visibility expression, or nil when the node
// has no visible prop (default true).
func (n *ViewNode) Visible() Expr {
	if p, ok := n.Props[PropVisible].(ExprProp); ok {
		return p.Expr
	}
	return nil
}

// Bind returns the bound variable name and whether the node has one.
func (n *ViewNode) Bind() (string, bool) {
	if p, ok := n.Props[PropBind].(RefProp); ok {
		return p.Name, true
	}
	return "", false
}

// OnClick returns the click action name and whether the node has one.
func (n *ViewNode) OnClick() (string, bool) {
	if p, ok := n.Props[PropOnClick].(RefProp); ok {
		return p.Name, true
	}
	return "", false
}
