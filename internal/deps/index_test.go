package deps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prismlang/prism/internal/ast"
	"github.com/prismlang/prism/internal/parser"
)

func mustParse(t *testing.T, src string) *ast.Document {
	t.Helper()
	doc, err := parser.Parse(src)
	require.NoError(t, err)
	return doc
}

func dirty(names ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(names))
	for _, n := range names {
		out[n] = struct{}{}
	}
	return out
}

// TestBuild_FacetPartitioning verifies reads are partitioned by kind.
func TestBuild_FacetPartitioning(t *testing.T) {
	doc := mustParse(t, `
@app "Todo"
@version 1
state {
  count: 0
  show_completed: true
  draft: ""
}
view {
  column {
    text "{count} done"
    row {
      visible: show_completed
      input { bind: draft }
    }
  }
}
`)
	idx := Build(doc.View)

	textRef := ast.RootRef.Child(0)
	rowRef := ast.RootRef.Child(1)
	inputRef := rowRef.Child(0)

	deps := idx.DependentsOf(dirty("count"))
	require.Len(t, deps, 1)
	assert.True(t, deps[textRef].Has(FacetInterpolation))
	assert.False(t, deps[textRef].Has(FacetVisible))

	deps = idx.DependentsOf(dirty("show_completed"))
	require.Len(t, deps, 1)
	assert.True(t, deps[rowRef].Has(FacetVisible))

	deps = idx.DependentsOf(dirty("draft"))
	require.Len(t, deps, 1)
	assert.True(t, deps[inputRef].Has(FacetBind))
}

// TestBuild_OneEntryPerOccurrence verifies each reference occurrence is
// recorded once, including repeats within one node.
func TestBuild_OneEntryPerOccurrence(t *testing.T) {
	doc := mustParse(t, `
@app "A"
@version 1
state { n: 1 }
view {
  column {
    text "{n} and {n + n}"
    text "{n}"
  }
}
`)
	idx := Build(doc.View)
	// Three reads in the first template (one direct, two in the sum),
	// one in the second.
	assert.Equal(t, 4, idx.SiteCount("n"))

	deps := idx.DependentsOf(dirty("n"))
	assert.Len(t, deps, 2, "two distinct nodes read n")
}

// TestBuild_ExprProps verifies non-visible expression props index as Prop
// and on_click never counts as a variable read.
func TestBuild_ExprProps(t *testing.T) {
	doc := mustParse(t, `
@app "A"
@version 1
state { pct: 50 save: 0 }
view {
  column {
    box { width: pct * 2 }
    button "Go" { on_click: save }
  }
}
`)
	idx := Build(doc.View)

	deps := idx.DependentsOf(dirty("pct"))
	boxRef := ast.RootRef.Child(0)
	require.Len(t, deps, 1)
	assert.True(t, deps[boxRef].Has(FacetProp))

	// "save" is referenced only as an action name on on_click.
	assert.False(t, idx.Reads("save"))
	assert.Empty(t, idx.DependentsOf(dirty("save")))
}

// TestDependentsOf_MultipleVars verifies facet sets merge per node.
func TestDependentsOf_MultipleVars(t *testing.T) {
	doc := mustParse(t, `
@app "A"
@version 1
state { a: 1 b: true }
view {
  text "{a}" {
    visible: b
  }
}
`)
	idx := Build(doc.View)

	deps := idx.DependentsOf(dirty("a", "b"))
	require.Len(t, deps, 1)
	set := deps[ast.RootRef]
	assert.True(t, set.Has(FacetInterpolation))
	assert.True(t, set.Has(FacetVisible))

	// Unread variables contribute nothing.
	assert.Empty(t, idx.DependentsOf(dirty("zzz")))
}
