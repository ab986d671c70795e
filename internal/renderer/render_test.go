package renderer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prismlang/prism/internal/ast"
	"github.com/prismlang/prism/internal/deps"
	"github.com/prismlang/prism/internal/parser"
	"github.com/prismlang/prism/internal/view"
)

func materialize(t *testing.T, src string, snap map[string]ast.Value) *view.Tree {
	t.Helper()
	doc, err := parser.Parse(src)
	require.NoError(t, err)

	tree, _, err := view.Reconcile(doc.View, deps.Build(doc.View), lookup(snap), nil, nil)
	require.NoError(t, err)
	return tree
}

type lookup map[string]ast.Value

func (m lookup) Lookup(name string) (ast.Value, bool) {
	v, ok := m[name]
	return v, ok
}

// TestRender_Layout tests the flattened line output for a mixed tree.
func TestRender_Layout(t *testing.T) {
	src := `
@app "Demo"
@version 1

state {
  count: 3
  show: false
}

view {
  column {
    text "Count: {count}"
    divider
    button "Add" {
      on_click: add
    }
    text "hidden line" {
      visible: show
    }
  }
}

actions {
  add {
    count: count + 1
  }
}
`
	tree := materialize(t, src, map[string]ast.Value{
		"count": ast.Int(3), "show": ast.Bool(false),
	})

	lines := Render(tree, "")
	require.Len(t, lines, 3, "invisible nodes are skipped")

	assert.Contains(t, lines[0].Text, "Count: 3")
	assert.Contains(t, lines[1].Text, "─")
	assert.Contains(t, lines[2].Text, "[ Add ]")
	assert.Equal(t, ast.NodeRef("0.2"), lines[2].Ref)
}

// TestRender_FocusMarker tests the focus indicator.
func TestRender_FocusMarker(t *testing.T) {
	src := `
@app "Demo"
@version 1
state { n: 0 }
view {
  column {
    button "A" { on_click: go }
    button "B" { on_click: go }
  }
}
actions { go { n: 1 } }
`
	tree := materialize(t, src, map[string]ast.Value{"n": ast.Int(0)})

	lines := Render(tree, "0.1")
	require.Len(t, lines, 2)
	assert.False(t, strings.Contains(lines[0].Text, ">"))
	assert.True(t, strings.Contains(lines[1].Text, "> [ B ]"))
}

// TestRender_InputField tests value and placeholder rendering.
func TestRender_InputField(t *testing.T) {
	src := `
@app "Demo"
@version 1
state { draft: "" }
view {
  input {
    bind: draft
    placeholder: "type here"
  }
}
`
	empty := materialize(t, src, map[string]ast.Value{"draft": ast.Str("")})
	lines := Render(empty, "")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0].Text, "type here")

	filled := materialize(t, src, map[string]ast.Value{"draft": ast.Str("abc")})
	lines = Render(filled, "")
	assert.Contains(t, lines[0].Text, "[abc")
}

// TestRender_Checkbox tests the checked and unchecked marks.
func TestRender_Checkbox(t *testing.T) {
	src := `
@app "Demo"
@version 1
state { done: true }
view {
  checkbox "Done" {
    bind: done
  }
}
`
	tree := materialize(t, src, map[string]ast.Value{"done": ast.Bool(true)})
	lines := Render(tree, "")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0].Text, "[x] Done")

	tree = materialize(t, src, map[string]ast.Value{"done": ast.Bool(false)})
	lines = Render(tree, "")
	assert.Contains(t, lines[0].Text, "[ ] Done")
}

// TestDecodeKey tests raw byte to key mapping.
func TestDecodeKey(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want Key
	}{
		{"ctrl-c", []byte{0x03}, Key{Kind: KeyQuit}},
		{"ctrl-d", []byte{0x04}, Key{Kind: KeyQuit}},
		{"tab", []byte{'\t'}, Key{Kind: KeyTab}},
		{"enter cr", []byte{'\r'}, Key{Kind: KeyEnter}},
		{"enter lf", []byte{'\n'}, Key{Kind: KeyEnter}},
		{"backspace del", []byte{0x7f}, Key{Kind: KeyBackspace}},
		{"backspace bs", []byte{0x08}, Key{Kind: KeyBackspace}},
		{"escape seq", []byte{0x1b, '[', 'A'}, Key{Kind: KeyNone}},
		{"ascii rune", []byte{'a'}, Key{Kind: KeyRune, Rune: 'a'}},
		{"utf8 rune", []byte("é"), Key{Kind: KeyRune, Rune: 'é'}},
		{"empty", nil, Key{Kind: KeyNone}},
		{"control char", []byte{0x01}, Key{Kind: KeyNone}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodeKey(tt.in))
		})
	}
}

// TestDisplayWidth tests terminal column counting.
func TestDisplayWidth(t *testing.T) {
	assert.Equal(t, 5, DisplayWidth("hello"))
	assert.Equal(t, 0, DisplayWidth(""))
	assert.Equal(t, 4, DisplayWidth("日本"), "East Asian wide runes take two columns")
	assert.Equal(t, 6, DisplayWidth("a日本b"))
}
