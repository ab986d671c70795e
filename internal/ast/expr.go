package ast

// Expr is a sealed interface over the expression forms the parser emits.
// Precedence and parentheses are resolved at parse time; consumers only
// walk the tree.
type Expr interface {
	expr() // Sealed
}

// Lit is a literal Value.
type Lit struct {
	Value Value
}

func (Lit) expr() {}

// Ident is a state variable reference, resolved against the snapshot
// at evaluation time.
type Ident struct {
	Name string
}

func (Ident) expr() {}

// BinaryOp enumerates the binary operators, all left-associative.
type BinaryOp string

const (
	OpAdd BinaryOp = "+"
	OpSub BinaryOp = "-"
	OpMul BinaryOp = "*"
	OpDiv BinaryOp = "/"
	OpLt  BinaryOp = "<"
	OpGt  BinaryOp = ">"
	OpLe  BinaryOp = "<="
	OpGe  BinaryOp = ">="
	OpEq  BinaryOp = "=="
	OpNe  BinaryOp = "!="
	OpAnd BinaryOp = "and"
	OpOr  BinaryOp = "or"
)

// Binary is a binary operation node.
type Binary struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
}

func (Binary) expr() {}

// UnaryOp enumerates the unary operators.
type UnaryOp string

const (
	OpNot UnaryOp = "not"
	OpNeg UnaryOp = "-"
)

// Unary is a unary operation node.
type Unary struct {
	Op      UnaryOp
	Operand Expr
}

func (Unary) expr() {}

// FreeVars appends every identifier referenced by expr to out, in
// left-to-right order, one entry per occurrence. The dependency index
// and load-time reference checks are built from this.
func FreeVars(expr Expr, out []string) []string {
	switch e := expr.(type) {
	case Lit:
		return out
	case Ident:
		return append(out, e.Name)
	case Unary:
		return FreeVars(e.Operand, out)
	case Binary:
		out = FreeVars(e.Left, out)
		return FreeVars(e.Right, out)
	default:
		return out
	}
}
