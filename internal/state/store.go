// Package state owns the current value of every state variable and applies
// action-driven mutations transactionally. The store is the only component
// that writes state; the evaluator reads it through a snapshot interface
// and the materializer never sees it directly.
package state

import (
	"github.com/prismlang/prism/internal/ast"
	"github.com/prismlang/prism/internal/eval"
)

// Store holds the committed snapshot. Created once from the state block at
// load and owned by the single run-loop goroutine; there is no locking
// because there is no concurrent mutation.
type Store struct {
	committed map[string]ast.Value
}

// New initializes a store from the declared state fields.
// Duplicate names are a load-time error caught before this point.
func New(fields []ast.StateField) *Store {
	committed := make(map[string]ast.Value, len(fields))
	for _, f := range fields {
		committed[f.Name] = f.Value
	}
	return &Store{committed: committed}
}

// Lookup resolves a variable against the committed snapshot.
// Implements eval.Snapshot.
func (s *Store) Lookup(name string) (ast.Value, bool) {
	v, ok := s.committed[name]
	return v, ok
}

// Has reports whether name is a state variable.
func (s *Store) Has(name string) bool {
	_, ok := s.committed[name]
	return ok
}

// Len returns the number of state variables.
func (s *Store) Len() int { return len(s.committed) }

// workingCopy is the in-transaction snapshot: reads see prior writes from
// the same action, falling back to the committed snapshot.
type workingCopy struct {
	base    map[string]ast.Value
	written map[string]ast.Value
}

func (w *workingCopy) Lookup(name string) (ast.Value, bool) {
	if v, ok := w.written[name]; ok {
		return v, true
	}
	v, ok := w.base[name]
	return v, ok
}

// Apply runs an action transactionally. Mutations evaluate sequentially
// against an evolving working copy, so each mutation's expression sees the
// effects of prior mutations in the same action. If any expression fails,
// the working copy is discarded, the committed snapshot is untouched, and
// the returned error carries the failed target. On success the working
// copy is installed and the returned set holds exactly the variables whose
// new value is unequal to the old one - reassigning an equal value does
// not mark a variable dirty.
func (s *Store) Apply(action *ast.Action) (map[string]struct{}, error) {
	work := &workingCopy{
		base:    s.committed,
		written: make(map[string]ast.Value, len(action.Mutations)),
	}

	for _, m := range action.Mutations {
		v, err := eval.Evaluate(m.Expr, work)
		if err != nil {
			return nil, &ActionError{
				Code:   ErrCodeEvaluation,
				Action: action.Name,
				Target: m.Target,
				Cause:  err,
			}
		}
		work.written[m.Target] = v
	}

	changed := make(map[string]struct{})
	for name, v := range work.written {
		if old, ok := s.committed[name]; !ok || !ast.Equal(old, v) {
			changed[name] = struct{}{}
		}
		s.committed[name] = v
	}
	return changed, nil
}

// Set writes one variable directly, outside any action. Used for bind
// write-through (text input events). Returns the dirty set under the same
// value-equality suppression rule as Apply.
func (s *Store) Set(name string, v ast.Value) map[string]struct{} {
	changed := make(map[string]struct{}, 1)
	if old, ok := s.committed[name]; !ok || !ast.Equal(old, v) {
		changed[name] = struct{}{}
	}
	s.committed[name] = v
	return changed
}

// SizeEstimate returns a conservative byte estimate of the committed
// snapshot, fed to the sandbox guard's memory accounting.
func (s *Store) SizeEstimate() int {
	total := 0
	for name, v := range s.committed {
		total += 32 + len(name) + ast.SizeOf(v)
	}
	return total
}
