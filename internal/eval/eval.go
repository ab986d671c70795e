// Package eval implements the pure Prism expression evaluator. It walks a
// parsed expression tree against a read-only state snapshot and produces a
// Value or an EvalError. It never mutates state and holds no handle to the
// filesystem, network, or any other capability - denial by omission.
package eval

import (
	"github.com/prismlang/prism/internal/ast"
)

// Snapshot is the read-only view of state the evaluator resolves
// identifiers against. Implemented by the state store's committed snapshot
// and by its in-transaction working copy.
type Snapshot interface {
	Lookup(name string) (ast.Value, bool)
}

// Evaluate evaluates expr against snap.
//
// Type rules:
//   - + - * / on two numerics: Int op Int stays Int, except / which always
//     promotes to Float; any Float operand promotes the result to Float.
//   - + with at least one Str operand concatenates; the other operand is
//     converted via its canonical textual form.
//   - == and != are total: matching kinds compare structurally, kind
//     mismatches yield false/true, never an error.
//   - < > <= >= require two numerics.
//   - and/or require Bool operands and short-circuit, so an erroring right
//     operand is never evaluated when the left decides the result.
func Evaluate(expr ast.Expr, snap Snapshot) (ast.Value, error) {
	switch e := expr.(type) {
	case ast.Lit:
		return e.Value, nil

	case ast.Ident:
		v, ok := snap.Lookup(e.Name)
		if !ok {
			return nil, &EvalError{
				Code:    ErrCodeUndefinedVariable,
				Message: "undefined variable " + e.Name,
			}
		}
		return v, nil

	case ast.Unary:
		return evalUnary(e, snap)

	case ast.Binary:
		return evalBinary(e, snap)

	default:
		return nil, typeMismatch("unknown expression form %T", expr)
	}
}

// EvaluateTemplate resolves a text template to its substituted string.
func EvaluateTemplate(spans []ast.TemplateSpan, snap Snapshot) (string, error) {
	var out []byte
	for _, span := range spans {
		if span.Expr == nil {
			out = append(out, span.Literal...)
			continue
		}
		v, err := Evaluate(span.Expr, snap)
		if err != nil {
			return "", err
		}
		out = append(out, v.Display()...)
	}
	return string(out), nil
}

func evalUnary(e ast.Unary, snap Snapshot) (ast.Value, error) {
	v, err := Evaluate(e.Operand, snap)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case ast.OpNot:
		b, ok := v.(ast.Bool)
		if !ok {
			return nil, typeMismatch("not expects bool, got %s", v.Kind())
		}
		return !b, nil
	case ast.OpNeg:
		switch n := v.(type) {
		case ast.Int:
			return -n, nil
		case ast.Float:
			return -n, nil
		default:
			return nil, typeMismatch("unary - expects a number, got %s", v.Kind())
		}
	default:
		return nil, typeMismatch("unknown unary operator %q", e.Op)
	}
}

func evalBinary(e ast.Binary, snap Snapshot) (ast.Value, error) {
	// and/or short-circuit: the right operand stays unevaluated when the
	// left decides the result.
	if e.Op == ast.OpAnd || e.Op == ast.OpOr {
		return evalLogical(e, snap)
	}

	left, err := Evaluate(e.Left, snap)
	if err != nil {
		return nil, err
	}
	right, err := Evaluate(e.Right, snap)
	if err != nil {
		return nil, err
	}

	switch e.Op {
	case ast.OpAdd:
		return evalAdd(left, right)
	case ast.OpSub, ast.OpMul, ast.OpDiv:
		return evalArithmetic(e.Op, left, right)
	case ast.OpEq:
		return ast.Bool(ast.Equal(left, right)), nil
	case ast.OpNe:
		return ast.Bool(!ast.Equal(left, right)), nil
	case ast.OpLt, ast.OpGt, ast.OpLe, ast.OpGe:
		return evalRelational(e.Op, left, right)
	default:
		return nil, typeMismatch("unknown operator %q", e.Op)
	}
}

func evalLogical(e ast.Binary, snap Snapshot) (ast.Value, error) {
	left, err := Evaluate(e.Left, snap)
	if err != nil {
		return nil, err
	}
	lb, ok := left.(ast.Bool)
	if !ok {
		return nil, typeMismatch("%s expects bool operands, got %s", e.Op, left.Kind())
	}
	if e.Op == ast.OpAnd && !bool(lb) {
		return ast.Bool(false), nil
	}
	if e.Op == ast.OpOr && bool(lb) {
		return ast.Bool(true), nil
	}
	right, err := Evaluate(e.Right, snap)
	if err != nil {
		return nil, err
	}
	rb, ok := right.(ast.Bool)
	if !ok {
		return nil, typeMismatch("%s expects bool operands, got %s", e.Op, right.Kind())
	}
	return rb, nil
}

// evalAdd handles +: numeric addition, or concatenation when either
// operand is a Str.
func evalAdd(left, right ast.Value) (ast.Value, error) {
	if _, ok := left.(ast.Str); ok {
		return ast.Str(left.Display() + right.Display()), nil
	}
	if _, ok := right.(ast.Str); ok {
		return ast.Str(left.Display() + right.Display()), nil
	}
	return evalArithmetic(ast.OpAdd, left, right)
}

func evalArithmetic(op ast.BinaryOp, left, right ast.Value) (ast.Value, error) {
	if !ast.IsNumeric(left) || !ast.IsNumeric(right) {
		return nil, typeMismatch("%s expects numbers, got %s and %s", op, left.Kind(), right.Kind())
	}

	if op == ast.OpDiv {
		// Division always promotes to Float, Int/Int included, so no
		// result is silently truncated.
		divisor := ast.AsFloat(right)
		if divisor == 0 {
			return nil, &EvalError{Code: ErrCodeDivisionByZero, Message: "division by zero"}
		}
		return ast.Float(ast.AsFloat(left) / divisor), nil
	}

	li, lInt := left.(ast.Int)
	ri, rInt := right.(ast.Int)
	if lInt && rInt {
		switch op {
		case ast.OpAdd:
			return li + ri, nil
		case ast.OpSub:
			return li - ri, nil
		case ast.OpMul:
			return li * ri, nil
		}
	}

	lf, rf := ast.AsFloat(left), ast.AsFloat(right)
	switch op {
	case ast.OpAdd:
		return ast.Float(lf + rf), nil
	case ast.OpSub:
		return ast.Float(lf - rf), nil
	case ast.OpMul:
		return ast.Float(lf * rf), nil
	}
	return nil, typeMismatch("unknown arithmetic operator %q", op)
}

func evalRelational(op ast.BinaryOp, left, right ast.Value) (ast.Value, error) {
	if !ast.IsNumeric(left) || !ast.IsNumeric(right) {
		return nil, typeMismatch("%s expects numbers, got %s and %s", op, left.Kind(), right.Kind())
	}
	lf, rf := ast.AsFloat(left), ast.AsFloat(right)
	switch op {
	case ast.OpLt:
		return ast.Bool(lf < rf), nil
	case ast.OpGt:
		return ast.Bool(lf > rf), nil
	case ast.OpLe:
		return ast.Bool(lf <= rf), nil
	case ast.OpGe:
		return ast.Bool(lf >= rf), nil
	}
	return nil, typeMismatch("unknown relational operator %q", op)
}
