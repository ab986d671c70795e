// Package deps builds the static dependency index: for every state
// variable, the set of view-tree locations that read it, partitioned by
// read kind. The index is built once after load by a single walk of the
// immutable view tree and is never rebuilt at runtime, which makes
// dependency lookup O(1) amortized per changed variable.
package deps

import (
	"github.com/prismlang/prism/internal/ast"
)

// Facet identifies which resolved aspect of a node a variable feeds.
type Facet int

const (
	// FacetInterpolation marks a read inside the node's text template.
	FacetInterpolation Facet = 1 << iota

	// FacetVisible marks a read inside the node's visible expression.
	FacetVisible

	// FacetBind marks a bind target: the variable mirrored into the
	// node's value property.
	FacetBind

	// FacetProp marks a read inside any other expression-valued property.
	FacetProp
)

// FacetSet is a bitmask of Facets touched on one node.
type FacetSet int

// Has reports whether f is in the set.
func (s FacetSet) Has(f Facet) bool { return s&FacetSet(f) != 0 }

func (s *FacetSet) add(f Facet) { *s |= FacetSet(f) }

// readSite is one (node, facet) location where a variable is read.
type readSite struct {
	ref   ast.NodeRef
	facet Facet
}

// Index maps each state variable to the view locations that read it.
// Immutable after Build.
type Index struct {
	sites map[string][]readSite
}

// Build walks the view tree once and records every variable read:
// text-template interpolations, visible expressions' free variables, bind
// targets, and other expression-valued properties. Nil view (document
// without a view block) yields an empty index.
func Build(view *ast.ViewNode) *Index {
	idx := &Index{sites: make(map[string][]readSite)}
	if view != nil {
		idx.walk(view, ast.RootRef)
	}
	return idx
}

func (idx *Index) walk(node *ast.ViewNode, ref ast.NodeRef) {
	for _, span := range node.Template {
		if span.Expr != nil {
			idx.record(span.Expr, ref, FacetInterpolation)
		}
	}

	for name, prop := range node.Props {
		switch p := prop.(type) {
		case ast.ExprProp:
			if name == ast.PropVisible {
				idx.record(p.Expr, ref, FacetVisible)
			} else {
				idx.record(p.Expr, ref, FacetProp)
			}
		case ast.RefProp:
			if name == ast.PropBind {
				idx.sites[p.Name] = append(idx.sites[p.Name], readSite{ref: ref, facet: FacetBind})
			}
			// on_click names an action, not a variable read.
		}
	}

	for i, child := range node.Children {
		idx.walk(child, ref.Child(i))
	}
}

func (idx *Index) record(expr ast.Expr, ref ast.NodeRef, facet Facet) {
	for _, name := range ast.FreeVars(expr, nil) {
		idx.sites[name] = append(idx.sites[name], readSite{ref: ref, facet: facet})
	}
}

// DependentsOf returns the nodes affected by a change to any variable in
// dirty, with the facets that must be recomputed on each. This is the
// minimal recomputation set the materializer works from.
func (idx *Index) DependentsOf(dirty map[string]struct{}) map[ast.NodeRef]FacetSet {
	out := make(map[ast.NodeRef]FacetSet)
	for name := range dirty {
		for _, site := range idx.sites[name] {
			s := out[site.ref]
			s.add(site.facet)
			out[site.ref] = s
		}
	}
	return out
}

// Reads reports whether any view location reads the variable.
func (idx *Index) Reads(name string) bool {
	return len(idx.sites[name]) > 0
}

// SiteCount returns the number of recorded read sites for a variable
// (one per occurrence). Used by tests and diagnostics.
func (idx *Index) SiteCount(name string) int {
	return len(idx.sites[name])
}

// Vars returns the set of variables with at least one read site.
func (idx *Index) Vars() map[string]struct{} {
	out := make(map[string]struct{}, len(idx.sites))
	for name := range idx.sites {
		out[name] = struct{}{}
	}
	return out
}
