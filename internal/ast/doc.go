// Package ast holds the load-time representation of a parsed Prism
// document: the five-kind value model, the expression tree, the static
// view tree, and the named actions. Everything in this package is
// immutable after parsing; the reactive layers never write back into it.
package ast

// StateField is one declaration from the state block. Declaration order is
// preserved for deterministic initialization and diagnostics; lookup is by
// name. The declared Value is only a starting value - later assignment may
// change the variable's kind.
type StateField struct {
	Name  string
	Value Value
}

// Mutation is one line of an action body: evaluate Expr and assign the
// result to the Target state variable.
type Mutation struct {
	Target string
	Expr   Expr
}

// Action is a named, ordered sequence of mutations from the actions block.
type Action struct {
	Name      string
	Mutations []Mutation
}

// Document is the root of a parsed .prism file.
type Document struct {
	AppName string
	Version int
	State   []StateField
	View    *ViewNode
	Actions []Action
}

// ActionByName returns the named action with a case-sensitive exact match.
func (d *Document) ActionByName(name string) (*Action, bool) {
	for i := range d.Actions {
		if d.Actions[i].Name == name {
			return &d.Actions[i], true
		}
	}
	return nil, false
}

// StateVar reports whether name is a declared state variable.
func (d *Document) StateVar(name string) bool {
	for i := range d.State {
		if d.State[i].Name == name {
			return true
		}
	}
	return false
}
