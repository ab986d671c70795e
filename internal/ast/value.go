package ast

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Value is a sealed interface representing the five Prism runtime kinds.
// Only Null, Bool, Int, Float, and Str implement it. Values are immutable
// once produced; state holds the current Value per variable.
type Value interface {
	value() // Sealed - only these five types implement it

	// Kind returns the kind name used in diagnostics ("int", "str", ...).
	Kind() string

	// Display returns the canonical textual form: Int/Float decimal,
	// Bool "true"/"false", Null the empty string. This is the form used
	// by string concatenation and text interpolation.
	Display() string
}

// Null represents the absence of a value.
// An explicit type keeps the sealed interface total.
type Null struct{}

func (Null) value()          {}
func (Null) Kind() string    { return "null" }
func (Null) Display() string { return "" }

// Bool represents a boolean value.
type Bool bool

func (Bool) value()       {}
func (Bool) Kind() string { return "bool" }

func (b Bool) Display() string {
	if b {
		return "true"
	}
	return "false"
}

// Int represents a 64-bit signed integer value.
type Int int64

func (Int) value()            {}
func (Int) Kind() string      { return "int" }
func (i Int) Display() string { return strconv.FormatInt(int64(i), 10) }

// Float represents a 64-bit floating point value.
type Float float64

func (Float) value()       {}
func (Float) Kind() string { return "float" }

// Display prints the shortest decimal form; integral floats print without
// a fraction ("2" for 2.0), matching the language's canonical form.
func (f Float) Display() string {
	return strconv.FormatFloat(float64(f), 'f', -1, 64)
}

// Str represents a UTF-8 string value.
type Str string

func (Str) value()            {}
func (Str) Kind() string      { return "str" }
func (s Str) Display() string { return string(s) }

// Equal reports structural equality. Kinds must match: Int(1) and
// Float(1.0) are unequal, and Null only equals Null. Cross-kind
// comparison never errors - equality is total by construction.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Int:
		bv, ok := b.(Int)
		return ok && av == bv
	case Float:
		bv, ok := b.(Float)
		return ok && av == bv
	case Str:
		bv, ok := b.(Str)
		return ok && av == bv
	default:
		return false
	}
}

// IsNumeric reports whether v is an Int or Float.
func IsNumeric(v Value) bool {
	switch v.(type) {
	case Int, Float:
		return true
	default:
		return false
	}
}

// AsFloat converts a numeric Value to float64.
// The caller must have checked IsNumeric first.
func AsFloat(v Value) float64 {
	switch n := v.(type) {
	case Int:
		return float64(n)
	case Float:
		return float64(n)
	default:
		return 0
	}
}

// SizeOf returns a conservative byte estimate for a Value, used by the
// sandbox guard's memory accounting. Estimates err high, never low.
func SizeOf(v Value) int {
	switch s := v.(type) {
	case Str:
		return 16 + len(s)
	default:
		return 16
	}
}

// MarshalValue marshals a Value to JSON bytes with type-switch dispatch.
// Used for patch traces and CLI JSON output.
func MarshalValue(v Value) ([]byte, error) {
	switch val := v.(type) {
	case Null:
		return []byte("null"), nil
	case Bool:
		return json.Marshal(bool(val))
	case Int:
		return json.Marshal(int64(val))
	case Float:
		return json.Marshal(float64(val))
	case Str:
		return json.Marshal(string(val))
	default:
		return nil, fmt.Errorf("unknown value type: %T", v)
	}
}
