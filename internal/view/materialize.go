// Package view derives the concrete, fully-resolved view tree from the
// static AST plus current state, and computes the minimal patch set versus
// the previously materialized tree. Nodes untouched by the dirty set are
// structurally shared with the previous tree; only the facets of dependent
// nodes are recomputed and diffed.
package view

import (
	"fmt"
	"sort"
	"strings"

	"github.com/prismlang/prism/internal/ast"
	"github.com/prismlang/prism/internal/deps"
	"github.com/prismlang/prism/internal/eval"
)

// Node is one node of a materialized tree: the static node's shape plus
// resolved values. The previous tree instance is retained only to compute
// the next diff, then discarded.
type Node struct {
	Ref      ast.NodeRef
	Kind     ast.NodeKind
	HasText  bool
	Text     string               // substituted template text
	Visible  bool                 // resolved visibility, default true
	Props    map[string]ast.Value // resolved property values; bind mirrors into "value"
	Children []*Node
}

// Tree is a materialized view tree.
type Tree struct {
	Root *Node
}

// Find resolves a NodeRef against the materialized tree.
// Returns nil if the path does not exist.
func (t *Tree) Find(ref ast.NodeRef) *Node {
	if t == nil || t.Root == nil {
		return nil
	}
	return findNode(t.Root, ref)
}

func findNode(n *Node, ref ast.NodeRef) *Node {
	if n.Ref == ref {
		return n
	}
	for _, c := range n.Children {
		// Refs are dot-separated paths, so only one branch can match.
		if strings.HasPrefix(string(ref), string(c.Ref)+".") || ref == c.Ref {
			return findNode(c, ref)
		}
	}
	return nil
}

// SizeEstimate returns a conservative byte estimate of the tree, fed to
// the sandbox guard's memory accounting.
func (t *Tree) SizeEstimate() int {
	if t == nil || t.Root == nil {
		return 0
	}
	return nodeSize(t.Root)
}

func nodeSize(n *Node) int {
	total := 96 + len(n.Text)
	for name, v := range n.Props {
		total += 32 + len(name) + ast.SizeOf(v)
	}
	for _, c := range n.Children {
		total += nodeSize(c)
	}
	return total
}

// Observer is notified of every facet recomputation. Tests use it to
// assert that reconciliation touches exactly the dependent facets.
type Observer func(ref ast.NodeRef, facet deps.Facet)

// Option configures a reconciliation pass.
type Option func(*config)

type config struct {
	observe Observer
}

// WithObserver installs a recomputation observer.
func WithObserver(o Observer) Option {
	return func(c *config) { c.observe = o }
}

// Reconcile materializes the view for the current snapshot and diffs it
// against previous.
//
// With a nil previous tree (first build) every facet is new: the full tree
// is resolved and the patch sequence is the initial layout description.
// Otherwise only the facets of index.DependentsOf(dirtyVars) are
// recomputed; all other nodes are shared with the previous tree, and the
// positional diff compares just the recomputed facets by value equality.
// Patch order follows tree pre-order.
func Reconcile(
	viewAST *ast.ViewNode,
	index *deps.Index,
	snap eval.Snapshot,
	previous *Tree,
	dirtyVars map[string]struct{},
	opts ...Option,
) (*Tree, []Patch, error) {
	if viewAST == nil {
		return &Tree{}, nil, nil
	}

	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	r := &reconciler{snap: snap, cfg: cfg}
	if previous == nil || previous.Root == nil {
		root, err := r.materialize(viewAST, ast.RootRef)
		if err != nil {
			return nil, nil, err
		}
		return &Tree{Root: root}, r.patches, nil
	}

	dirtyNodes := index.DependentsOf(dirtyVars)
	root, _, err := r.update(viewAST, previous.Root, ast.RootRef, dirtyNodes)
	if err != nil {
		return nil, nil, err
	}
	return &Tree{Root: root}, r.patches, nil
}

type reconciler struct {
	snap    eval.Snapshot
	cfg     *config
	patches []Patch
}

func (r *reconciler) observed(ref ast.NodeRef, facet deps.Facet) {
	if r.cfg.observe != nil {
		r.cfg.observe(ref, facet)
	}
}

// materialize resolves a full subtree against an empty baseline, emitting
// the initial layout patches in pre-order.
func (r *reconciler) materialize(n *ast.ViewNode, ref ast.NodeRef) (*Node, error) {
	node := &Node{Ref: ref, Kind: n.Kind, Visible: true}

	visible, err := r.resolveVisible(n, ref)
	if err != nil {
		return nil, err
	}
	node.Visible = visible
	r.patches = append(r.patches, Patch{Kind: PatchSetVisible, Node: ref, Visible: visible})

	if n.Template != nil {
		text, err := r.resolveText(n, ref)
		if err != nil {
			return nil, err
		}
		node.HasText = true
		node.Text = text
		r.patches = append(r.patches, Patch{Kind: PatchSetText, Node: ref, Text: text})
	}

	props, err := r.resolveProps(n, ref, allFacets)
	if err != nil {
		return nil, err
	}
	node.Props = props
	for _, name := range sortedKeys(props) {
		r.patches = append(r.patches, Patch{
			Kind: PatchSetProp, Node: ref, Name: name, Value: props[name],
		})
	}

	for i, child := range n.Children {
		c, err := r.materialize(child, ref.Child(i))
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, c)
	}
	return node, nil
}

// update selectively recomputes the facets of dirty nodes, sharing every
// untouched subtree with the previous materialization. Returns the new
// (or shared) node and whether anything below changed.
func (r *reconciler) update(
	n *ast.ViewNode,
	prev *Node,
	ref ast.NodeRef,
	dirtyNodes map[ast.NodeRef]deps.FacetSet,
) (*Node, bool, error) {
	facets := dirtyNodes[ref]

	// Fast path: nothing to recompute here. Children may still be dirty,
	// so probe them first; if none changed the whole subtree is shared.
	if facets == 0 {
		var newChildren []*Node
		childChanged := false
		for i, child := range n.Children {
			c, changed, err := r.update(child, prev.Children[i], ref.Child(i), dirtyNodes)
			if err != nil {
				return nil, false, err
			}
			if changed {
				childChanged = true
			}
			newChildren = append(newChildren, c)
		}
		if !childChanged {
			return prev, false, nil
		}
		shared := *prev
		shared.Children = newChildren
		return &shared, true, nil
	}

	// Recompute only the dirty facets; everything else carries over.
	node := &Node{
		Ref:     ref,
		Kind:    prev.Kind,
		HasText: prev.HasText,
		Text:    prev.Text,
		Visible: prev.Visible,
		Props:   prev.Props,
	}

	if facets.Has(deps.FacetVisible) {
		visible, err := r.resolveVisible(n, ref)
		if err != nil {
			return nil, false, err
		}
		node.Visible = visible
		if visible != prev.Visible {
			r.patches = append(r.patches, Patch{Kind: PatchSetVisible, Node: ref, Visible: visible})
		}
	}

	if facets.Has(deps.FacetInterpolation) {
		text, err := r.resolveText(n, ref)
		if err != nil {
			return nil, false, err
		}
		node.Text = text
		if text != prev.Text {
			r.patches = append(r.patches, Patch{Kind: PatchSetText, Node: ref, Text: text})
		}
	}

	if facets.Has(deps.FacetBind) || facets.Has(deps.FacetProp) {
		props, err := r.resolveProps(n, ref, facets)
		if err != nil {
			return nil, false, err
		}
		// Carry over the untouched props, then overlay the recomputed
		// ones and diff them.
		merged := make(map[string]ast.Value, len(prev.Props))
		for name, v := range prev.Props {
			merged[name] = v
		}
		for _, name := range sortedKeys(props) {
			v := props[name]
			if old, ok := merged[name]; !ok || !ast.Equal(old, v) {
				r.patches = append(r.patches, Patch{
					Kind: PatchSetProp, Node: ref, Name: name, Value: v,
				})
			}
			merged[name] = v
		}
		node.Props = merged
	}

	for i, child := range n.Children {
		c, _, err := r.update(child, prev.Children[i], ref.Child(i), dirtyNodes)
		if err != nil {
			return nil, false, err
		}
		node.Children = append(node.Children, c)
	}
	return node, true, nil
}

func (r *reconciler) resolveVisible(n *ast.ViewNode, ref ast.NodeRef) (bool, error) {
	expr := n.Visible()
	if expr == nil {
		return true, nil
	}
	r.observed(ref, deps.FacetVisible)
	v, err := eval.Evaluate(expr, r.snap)
	if err != nil {
		return false, fmt.Errorf("node %s: visible: %w", ref, err)
	}
	b, ok := v.(ast.Bool)
	if !ok {
		return false, fmt.Errorf("node %s: visible: %w", ref,
			&eval.EvalError{Code: eval.ErrCodeTypeMismatch, Message: "visible expects bool, got " + v.Kind()})
	}
	return bool(b), nil
}

func (r *reconciler) resolveText(n *ast.ViewNode, ref ast.NodeRef) (string, error) {
	for _, span := range n.Template {
		if span.Expr != nil {
			r.observed(ref, deps.FacetInterpolation)
			break
		}
	}
	text, err := eval.EvaluateTemplate(n.Template, r.snap)
	if err != nil {
		return "", fmt.Errorf("node %s: text: %w", ref, err)
	}
	return text, nil
}

// allFacets selects every facet; used for first materialization.
const allFacets = deps.FacetSet(deps.FacetInterpolation | deps.FacetVisible | deps.FacetBind | deps.FacetProp)

// resolveProps resolves the node's property values for the selected
// facets. On first build (allFacets) static literals and colors pass
// through as well; on updates only bind/expression props can be selected.
func (r *reconciler) resolveProps(n *ast.ViewNode, ref ast.NodeRef, facets deps.FacetSet) (map[string]ast.Value, error) {
	props := make(map[string]ast.Value)
	firstBuild := facets == allFacets

	for name, prop := range n.Props {
		switch p := prop.(type) {
		case ast.StaticProp:
			if firstBuild {
				props[name] = p.Value
			}
		case ast.ColorProp:
			if firstBuild {
				props[name] = ast.Str(p.Color.String())
			}
		case ast.ExprProp:
			if name == ast.PropVisible {
				continue // resolved as the visibility facet
			}
			if !facets.Has(deps.FacetProp) {
				continue
			}
			r.observed(ref, deps.FacetProp)
			v, err := eval.Evaluate(p.Expr, r.snap)
			if err != nil {
				return nil, fmt.Errorf("node %s: prop %s: %w", ref, name, err)
			}
			props[name] = v
		case ast.RefProp:
			if name != ast.PropBind || !facets.Has(deps.FacetBind) {
				continue // on_click stays static metadata
			}
			r.observed(ref, deps.FacetBind)
			v, ok := r.snap.Lookup(p.Name)
			if !ok {
				return nil, fmt.Errorf("node %s: bind: %w", ref,
					&eval.EvalError{Code: eval.ErrCodeUndefinedVariable, Message: "undefined variable " + p.Name})
			}
			props["value"] = v
		}
	}
	return props, nil
}

func sortedKeys(m map[string]ast.Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
