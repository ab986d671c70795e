package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestValue_Display verifies the canonical textual form per kind.
func TestValue_Display(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"int", Int(42), "42"},
		{"negative int", Int(-7), "-7"},
		{"integral float", Float(2.0), "2"},
		{"fractional float", Float(2.5), "2.5"},
		{"bool true", Bool(true), "true"},
		{"bool false", Bool(false), "false"},
		{"null is empty", Null{}, ""},
		{"str passthrough", Str("hello"), "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.v.Display())
		})
	}
}

// TestValue_Equal verifies structural equality with strict kinds.
func TestValue_Equal(t *testing.T) {
	assert.True(t, Equal(Int(1), Int(1)))
	assert.True(t, Equal(Str("a"), Str("a")))
	assert.True(t, Equal(Null{}, Null{}))
	assert.True(t, Equal(Bool(true), Bool(true)))
	assert.True(t, Equal(Float(1.5), Float(1.5)))

	// Cross-kind equality is false, never an error.
	assert.False(t, Equal(Int(1), Float(1.0)))
	assert.False(t, Equal(Int(0), Null{}))
	assert.False(t, Equal(Str("1"), Int(1)))
	assert.False(t, Equal(Bool(false), Null{}))
}

// TestValue_Kind verifies kind names used in diagnostics.
func TestValue_Kind(t *testing.T) {
	assert.Equal(t, "int", Int(0).Kind())
	assert.Equal(t, "float", Float(0).Kind())
	assert.Equal(t, "str", Str("").Kind())
	assert.Equal(t, "bool", Bool(false).Kind())
	assert.Equal(t, "null", Null{}.Kind())
}

// TestMarshalValue verifies JSON forms used in patch traces.
func TestMarshalValue(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Int(3), "3"},
		{Float(1.5), "1.5"},
		{Str("x"), `"x"`},
		{Bool(true), "true"},
		{Null{}, "null"},
	}
	for _, tt := range tests {
		got, err := MarshalValue(tt.v)
		require.NoError(t, err)
		assert.Equal(t, tt.want, string(got))
	}
}

// TestFreeVars verifies occurrence-per-reference extraction order.
func TestFreeVars(t *testing.T) {
	// count + count * other
	expr := Binary{
		Op:   OpAdd,
		Left: Ident{Name: "count"},
		Right: Binary{
			Op:    OpMul,
			Left:  Ident{Name: "count"},
			Right: Ident{Name: "other"},
		},
	}
	got := FreeVars(expr, nil)
	assert.Equal(t, []string{"count", "count", "other"}, got)
}

// TestNodeRef_Child verifies path construction and resolution.
func TestNodeRef_Child(t *testing.T) {
	root := &ViewNode{
		Kind: KindColumn,
		Children: []*ViewNode{
			{Kind: KindText},
			{Kind: KindRow, Children: []*ViewNode{{Kind: KindButton}}},
		},
	}

	assert.Equal(t, NodeRef("0.1.0"), RootRef.Child(1).Child(0))

	require.NotNil(t, FindNode(root, RootRef))
	assert.Equal(t, KindText, FindNode(root, RootRef.Child(0)).Kind)
	assert.Equal(t, KindButton, FindNode(root, RootRef.Child(1).Child(0)).Kind)
	assert.Nil(t, FindNode(root, RootRef.Child(5)))
	assert.Nil(t, FindNode(root, NodeRef("1")))
}

// TestParseColor verifies hex color forms.
func TestParseColor(t *testing.T) {
	c, ok := ParseColor("ff8000")
	require.True(t, ok)
	assert.Equal(t, Color{255, 128, 0, 255}, c)
	assert.Equal(t, "#ff8000", c.String())

	c, ok = ParseColor("f80")
	require.True(t, ok)
	assert.Equal(t, Color{255, 136, 0, 255}, c)

	c, ok = ParseColor("ff800080")
	require.True(t, ok)
	assert.Equal(t, uint8(128), c.A)
	assert.Equal(t, "#ff800080", c.String())

	_, ok = ParseColor("xyz")
	assert.False(t, ok)
	_, ok = ParseColor("ff80")
	assert.False(t, ok)
}
