package ast

import "fmt"

// NodeRef is a stable positional path into the view tree: "0" is the root,
// "0.2.1" is the second child of the third child of the root. Identity is
// stable across reconciliation passes because v1 tree shape never changes
// (visible toggles, it never removes a node).
type NodeRef string

// RootRef is the reference of the view tree root.
const RootRef NodeRef = "0"

// Child returns the reference of the i-th child.
func (r NodeRef) Child(i int) NodeRef {
	return NodeRef(fmt.Sprintf("%s.%d", r, i))
}

// FindNode resolves a NodeRef against a view tree.
// Returns nil if the path does not exist.
func FindNode(root *ViewNode, ref NodeRef) *ViewNode {
	if root == nil {
		return nil
	}
	node := root
	path := string(ref)
	// First component must be "0" (the root).
	i := 0
	for i < len(path) && path[i] != '.' {
		i++
	}
	if path[:i] != "0" {
		return nil
	}
	for i < len(path) {
		i++ // skip '.'
		start := i
		for i < len(path) && path[i] != '.' {
			i++
		}
		idx := 0
		for _, c := range path[start:i] {
			if c < '0' || c > '9' {
				return nil
			}
			idx = idx*10 + int(c-'0')
		}
		if idx >= len(node.Children) {
			return nil
		}
		node = node.Children[idx]
	}
	return node
}
