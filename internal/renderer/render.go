// Package renderer draws a materialized view tree into a terminal and
// translates keyboard input into runtime events. The drawing and key
// decoding are pure functions over the tree; only the Run loop touches
// the terminal itself.
package renderer

import (
	"fmt"
	"strings"

	"golang.org/x/text/width"

	"github.com/prismlang/prism/internal/ast"
	"github.com/prismlang/prism/internal/view"
)

// Line is one rendered row: the text plus the node it belongs to, so the
// interactive loop can map focus back to refs.
type Line struct {
	Ref  ast.NodeRef
	Text string
}

// Render flattens the visible nodes of a tree into terminal lines.
// Invisible subtrees are skipped entirely. Focused marks the node drawn
// with the focus indicator; pass "" for none.
func Render(tree *view.Tree, focused ast.NodeRef) []Line {
	if tree == nil || tree.Root == nil {
		return nil
	}
	r := &liner{focused: focused}
	r.walk(tree.Root, 0)
	return r.lines
}

type liner struct {
	focused ast.NodeRef
	lines   []Line
}

func (r *liner) walk(n *view.Node, depth int) {
	if !n.Visible {
		return
	}

	switch n.Kind {
	case ast.KindColumn, ast.KindStack, ast.KindCenter, ast.KindBox:
		for _, c := range n.Children {
			r.walk(c, depth+1)
		}
	case ast.KindRow:
		// Rows join their leaf children on one line.
		var parts []string
		for _, c := range n.Children {
			if !c.Visible {
				continue
			}
			if s, ok := leafString(c, c.Ref == r.focused); ok {
				parts = append(parts, s)
			} else {
				r.walk(c, depth+1)
			}
		}
		if len(parts) > 0 {
			r.emit(n.Ref, depth, strings.Join(parts, "  "))
		}
	case ast.KindSpacer:
		r.emit(n.Ref, depth, "")
	case ast.KindDivider:
		r.emit(n.Ref, depth, strings.Repeat("─", 40))
	default:
		if s, ok := leafString(n, n.Ref == r.focused); ok {
			r.emit(n.Ref, depth, s)
		}
		for _, c := range n.Children {
			r.walk(c, depth+1)
		}
	}
}

func (r *liner) emit(ref ast.NodeRef, depth int, text string) {
	indent := strings.Repeat("  ", maxInt(depth-1, 0))
	r.lines = append(r.lines, Line{Ref: ref, Text: indent + text})
}

// leafString renders an interactive or text leaf. Returns false for
// container kinds.
func leafString(n *view.Node, focused bool) (string, bool) {
	marker := "  "
	if focused {
		marker = "> "
	}

	switch n.Kind {
	case ast.KindText:
		return "  " + n.Text, true
	case ast.KindButton:
		return fmt.Sprintf("%s[ %s ]", marker, n.Text), true
	case ast.KindInput:
		return marker + inputField(n), true
	case ast.KindCheckbox, ast.KindToggle:
		mark := " "
		if b, ok := n.Props["value"].(ast.Bool); ok && bool(b) {
			mark = "x"
		}
		label := n.Text
		return fmt.Sprintf("%s[%s] %s", marker, mark, label), true
	default:
		return "", false
	}
}

// inputField renders a bound input as a fixed-width box, falling back to
// the placeholder when the value is empty.
func inputField(n *view.Node) string {
	const minWidth = 20

	text := ""
	if v, ok := n.Props["value"]; ok {
		text = v.Display()
	}
	if text == "" {
		if p, ok := n.Props["placeholder"].(ast.Str); ok {
			text = string(p)
		}
	}

	pad := minWidth - DisplayWidth(text)
	if pad < 0 {
		pad = 0
	}
	return "[" + text + strings.Repeat("_", pad) + "]"
}

// DisplayWidth returns the number of terminal columns the string needs,
// counting East Asian wide and fullwidth runes as two.
func DisplayWidth(s string) int {
	total := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			total += 2
		default:
			total++
		}
	}
	return total
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
