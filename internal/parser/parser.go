// Package parser turns .prism source text into an ast.Document, or fails
// with a positioned LoadError before the reactive core ever runs. The
// grammar is hand-rolled recursive descent; precedence and parentheses are
// resolved here so the evaluator only walks the tree.
package parser

import (
	"strconv"
	"strings"

	"github.com/prismlang/prism/internal/ast"
)

var nodeKinds = map[string]ast.NodeKind{
	"column":   ast.KindColumn,
	"row":      ast.KindRow,
	"stack":    ast.KindStack,
	"center":   ast.KindCenter,
	"box":      ast.KindBox,
	"spacer":   ast.KindSpacer,
	"divider":  ast.KindDivider,
	"text":     ast.KindText,
	"button":   ast.KindButton,
	"input":    ast.KindInput,
	"checkbox": ast.KindCheckbox,
	"toggle":   ast.KindToggle,
}

// Parse parses a complete Prism document. The returned Document has both
// directives validated (@app nonempty string, @version positive integer)
// and duplicate state/action names rejected; cross-reference resolution is
// the loader's job.
func Parse(src string) (*ast.Document, error) {
	p := &parser{src: []rune(src), line: 1, col: 1}
	return p.parseProgram()
}

type parser struct {
	src  []rune
	pos  int
	line int
	col  int
}

func (p *parser) errf(format string, args ...any) *LoadError {
	le := NewLoadError(ErrCodeSyntax, format, args...)
	le.Line = p.line
	le.Col = p.col
	return le
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() rune {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) advance() rune {
	if p.eof() {
		return 0
	}
	c := p.src[p.pos]
	p.pos++
	if c == '\n' {
		p.line++
		p.col = 1
	} else {
		p.col++
	}
	return c
}

// skipSpace consumes whitespace and "--" line comments.
func (p *parser) skipSpace() {
	for !p.eof() {
		c := p.peek()
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			p.advance()
		case c == '-' && p.pos+1 < len(p.src) && p.src[p.pos+1] == '-':
			for !p.eof() && p.peek() != '\n' {
				p.advance()
			}
		default:
			return
		}
	}
}

func (p *parser) expect(c rune) error {
	p.skipSpace()
	if p.peek() != c {
		return p.errf("expected %q, found %q", string(c), string(p.peek()))
	}
	p.advance()
	return nil
}

func isIdentStart(c rune) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c rune) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func (p *parser) parseIdent() (string, error) {
	p.skipSpace()
	if !isIdentStart(p.peek()) {
		return "", p.errf("expected identifier, found %q", string(p.peek()))
	}
	var sb strings.Builder
	for !p.eof() && isIdentPart(p.peek()) {
		sb.WriteRune(p.advance())
	}
	return sb.String(), nil
}

// checkKeyword consumes kw if the next token is exactly that identifier.
func (p *parser) checkKeyword(kw string) bool {
	p.skipSpace()
	save := *p
	for _, want := range kw {
		if p.peek() != want {
			*p = save
			return false
		}
		p.advance()
	}
	if !p.eof() && isIdentPart(p.peek()) {
		*p = save
		return false
	}
	return true
}

func (p *parser) parseString() (string, error) {
	p.skipSpace()
	if p.peek() != '"' {
		return "", p.errf("expected string literal")
	}
	p.advance()
	var sb strings.Builder
	for {
		if p.eof() {
			return "", p.errf("unterminated string literal")
		}
		c := p.advance()
		if c == '"' {
			return sb.String(), nil
		}
		if c == '\\' {
			switch esc := p.advance(); esc {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case '"', '\\':
				sb.WriteRune(esc)
			default:
				return "", p.errf("unknown escape %q", string(esc))
			}
			continue
		}
		sb.WriteRune(c)
	}
}

func (p *parser) parseNumber() (ast.Value, error) {
	p.skipSpace()
	start := p.pos
	for !p.eof() && p.peek() >= '0' && p.peek() <= '9' {
		p.advance()
	}
	if p.pos == start {
		return nil, p.errf("expected number")
	}
	isFloat := false
	if !p.eof() && p.peek() == '.' && p.pos+1 < len(p.src) &&
		p.src[p.pos+1] >= '0' && p.src[p.pos+1] <= '9' {
		isFloat = true
		p.advance()
		for !p.eof() && p.peek() >= '0' && p.peek() <= '9' {
			p.advance()
		}
	}
	lit := string(p.src[start:p.pos])
	if isFloat {
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return nil, p.errf("invalid float literal %q", lit)
		}
		return ast.Float(f), nil
	}
	n, err := strconv.ParseInt(lit, 10, 64)
	if err != nil {
		return nil, p.errf("integer literal %q out of range", lit)
	}
	return ast.Int(n), nil
}

func (p *parser) parseProgram() (*ast.Document, error) {
	doc := &ast.Document{Version: -1}
	var haveApp, haveState, haveView, haveActions bool

	p.skipSpace()
	for !p.eof() {
		if p.peek() == '@' {
			p.advance()
			name, err := p.parseIdent()
			if err != nil {
				return nil, err
			}
			switch name {
			case "app":
				s, err := p.parseString()
				if err != nil {
					return nil, err
				}
				doc.AppName = s
				haveApp = true
			case "version":
				v, err := p.parseNumber()
				if err != nil {
					return nil, err
				}
				n, ok := v.(ast.Int)
				if !ok || n <= 0 {
					le := p.errf("@version must be a positive integer")
					le.Code = ErrCodeDirective
					return nil, le
				}
				doc.Version = int(n)
			default:
				le := p.errf("unknown directive @%s", name)
				le.Code = ErrCodeDirective
				return nil, le
			}
			p.skipSpace()
			continue
		}

		kw, err := p.parseIdent()
		if err != nil {
			return nil, err
		}
		switch kw {
		case "state":
			if haveState {
				return nil, p.errf("duplicate state block")
			}
			haveState = true
			if doc.State, err = p.parseStateBlock(); err != nil {
				return nil, err
			}
		case "view":
			if haveView {
				return nil, p.errf("duplicate view block")
			}
			haveView = true
			if doc.View, err = p.parseViewBlock(); err != nil {
				return nil, err
			}
		case "actions":
			if haveActions {
				return nil, p.errf("duplicate actions block")
			}
			haveActions = true
			if doc.Actions, err = p.parseActionsBlock(); err != nil {
				return nil, err
			}
		default:
			return nil, p.errf("expected state, view or actions block, found %q", kw)
		}
		p.skipSpace()
	}

	if !haveApp || doc.AppName == "" {
		return nil, NewLoadError(ErrCodeDirective, "@app directive is required")
	}
	if doc.Version <= 0 {
		return nil, NewLoadError(ErrCodeDirective, "@version directive is required")
	}
	return doc, nil
}

func (p *parser) parseStateBlock() ([]ast.StateField, error) {
	if err := p.expect('{'); err != nil {
		return nil, err
	}
	var fields []ast.StateField
	seen := make(map[string]bool)
	for {
		p.skipSpace()
		if p.peek() == '}' {
			p.advance()
			return fields, nil
		}
		name, err := p.parseIdent()
		if err != nil {
			return nil, err
		}
		if seen[name] {
			le := p.errf("state variable %q declared twice", name)
			le.Code = ErrCodeDuplicateVariable
			return nil, le
		}
		seen[name] = true
		if err := p.expect(':'); err != nil {
			return nil, err
		}
		v, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		fields = append(fields, ast.StateField{Name: name, Value: v})
	}
}

// parseLiteral parses the literal forms allowed in the state block.
func (p *parser) parseLiteral() (ast.Value, error) {
	p.skipSpace()
	switch {
	case p.peek() == '"':
		s, err := p.parseString()
		if err != nil {
			return nil, err
		}
		return ast.Str(s), nil
	case p.peek() == '-':
		p.advance()
		v, err := p.parseNumber()
		if err != nil {
			return nil, err
		}
		switch n := v.(type) {
		case ast.Int:
			return -n, nil
		case ast.Float:
			return -n, nil
		}
		return nil, p.errf("expected number after '-'")
	case p.peek() >= '0' && p.peek() <= '9':
		return p.parseNumber()
	case p.checkKeyword("true"):
		return ast.Bool(true), nil
	case p.checkKeyword("false"):
		return ast.Bool(false), nil
	case p.checkKeyword("null"):
		return ast.Null{}, nil
	default:
		return nil, p.errf("expected literal value")
	}
}

func (p *parser) parseViewBlock() (*ast.ViewNode, error) {
	if err := p.expect('{'); err != nil {
		return nil, err
	}
	kind, err := p.parseIdent()
	if err != nil {
		return nil, err
	}
	root, err := p.parseNodeRest(kind)
	if err != nil {
		return nil, err
	}
	if err := p.expect('}'); err != nil {
		return nil, p.errf("view block must contain exactly one root node")
	}
	return root, nil
}

// parseNodeRest parses a view node whose kind identifier has already been
// consumed: optional inline text content, then an optional body holding
// properties and child nodes.
func (p *parser) parseNodeRest(kindName string) (*ast.ViewNode, error) {
	kind, ok := nodeKinds[kindName]
	if !ok {
		return nil, p.errf("unknown node kind %q", kindName)
	}
	node := &ast.ViewNode{Kind: kind, Props: make(map[string]ast.PropValue)}

	p.skipSpace()
	if p.peek() == '"' {
		content, err := p.parseString()
		if err != nil {
			return nil, err
		}
		tmpl, err := p.parseTemplate(content)
		if err != nil {
			return nil, err
		}
		node.Template = tmpl
		p.skipSpace()
	}

	if p.peek() != '{' {
		return node, nil
	}
	p.advance()
	for {
		p.skipSpace()
		if p.peek() == '}' {
			p.advance()
			return node, nil
		}
		ident, err := p.parseIdent()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if _, isKind := nodeKinds[ident]; isKind && p.peek() != ':' {
			child, err := p.parseNodeRest(ident)
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, child)
			continue
		}
		if p.peek() != ':' {
			return nil, p.errf("expected ':' after property %q or a child node", ident)
		}
		p.advance()
		pv, err := p.parsePropValue(ident)
		if err != nil {
			return nil, err
		}
		if _, dup := node.Props[ident]; dup {
			return nil, p.errf("property %q set twice", ident)
		}
		node.Props[ident] = pv
	}
}

func (p *parser) parsePropValue(propName string) (ast.PropValue, error) {
	p.skipSpace()

	if p.peek() == '#' {
		p.advance()
		var sb strings.Builder
		for !p.eof() && isHex(p.peek()) {
			sb.WriteRune(p.advance())
		}
		c, ok := ast.ParseColor(sb.String())
		if !ok {
			return nil, p.errf("invalid hex color #%s", sb.String())
		}
		return ast.ColorProp{Color: c}, nil
	}

	if p.peek() == '"' {
		s, err := p.parseString()
		if err != nil {
			return nil, err
		}
		return ast.StaticProp{Value: ast.Str(s)}, nil
	}

	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	switch propName {
	case ast.PropOnClick:
		id, ok := expr.(ast.Ident)
		if !ok {
			return nil, p.errf("on_click expects an action name")
		}
		return ast.RefProp{Name: id.Name}, nil
	case ast.PropBind:
		id, ok := expr.(ast.Ident)
		if !ok {
			return nil, p.errf("bind expects a state variable name")
		}
		return ast.RefProp{Name: id.Name}, nil
	case ast.PropVisible:
		// Always an expression, even when literal: the visibility facet
		// is resolved through the evaluator.
		return ast.ExprProp{Expr: expr}, nil
	}

	if lit, ok := expr.(ast.Lit); ok {
		return ast.StaticProp{Value: lit.Value}, nil
	}
	return ast.ExprProp{Expr: expr}, nil
}

func isHex(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// parseTemplate splits decoded string content into literal and {expr}
// interpolation spans. A string with no braces is a single literal span.
func (p *parser) parseTemplate(content string) ([]ast.TemplateSpan, error) {
	var spans []ast.TemplateSpan
	runes := []rune(content)
	i := 0
	start := 0
	for i < len(runes) {
		if runes[i] != '{' {
			i++
			continue
		}
		if i > start {
			spans = append(spans, ast.TemplateSpan{Literal: string(runes[start:i])})
		}
		close := i + 1
		for close < len(runes) && runes[close] != '}' {
			close++
		}
		if close == len(runes) {
			return nil, p.errf("unterminated interpolation in %q", content)
		}
		inner := string(runes[i+1 : close])
		sub := &parser{src: []rune(inner), line: p.line, col: p.col}
		expr, err := sub.parseExpression()
		if err != nil {
			return nil, err
		}
		sub.skipSpace()
		if !sub.eof() {
			return nil, p.errf("trailing input in interpolation %q", inner)
		}
		spans = append(spans, ast.TemplateSpan{Expr: expr})
		i = close + 1
		start = i
	}
	if i > start || len(spans) == 0 {
		spans = append(spans, ast.TemplateSpan{Literal: string(runes[start:i])})
	}
	return spans, nil
}

func (p *parser) parseActionsBlock() ([]ast.Action, error) {
	if err := p.expect('{'); err != nil {
		return nil, err
	}
	var actions []ast.Action
	seen := make(map[string]bool)
	for {
		p.skipSpace()
		if p.peek() == '}' {
			p.advance()
			return actions, nil
		}
		name, err := p.parseIdent()
		if err != nil {
			return nil, err
		}
		if seen[name] {
			le := p.errf("action %q declared twice", name)
			le.Code = ErrCodeDuplicateAction
			return nil, le
		}
		seen[name] = true
		if err := p.expect('{'); err != nil {
			return nil, err
		}
		var muts []ast.Mutation
		for {
			p.skipSpace()
			if p.peek() == '}' {
				p.advance()
				break
			}
			target, err := p.parseIdent()
			if err != nil {
				return nil, err
			}
			if err := p.expect(':'); err != nil {
				return nil, err
			}
			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			muts = append(muts, ast.Mutation{Target: target, Expr: expr})
		}
		actions = append(actions, ast.Action{Name: name, Mutations: muts})
	}
}

// Expression grammar, one level per precedence tier, all left-associative:
// or > and > equality > relational > additive > multiplicative > unary.

func (p *parser) parseExpression() (ast.Expr, error) {
	return p.parseOr()
}

func (p *parser) parseOr() (ast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.checkKeyword("or") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = ast.Binary{Op: ast.OpOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (ast.Expr, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.checkKeyword("and") {
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = ast.Binary{Op: ast.OpAnd, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseEquality() (ast.Expr, error) {
	left, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.BinaryOp
		switch {
		case p.checkOp("=="):
			op = ast.OpEq
		case p.checkOp("!="):
			op = ast.OpNe
		default:
			return left, nil
		}
		right, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		left = ast.Binary{Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseRelational() (ast.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.BinaryOp
		switch {
		case p.checkOp("<="):
			op = ast.OpLe
		case p.checkOp(">="):
			op = ast.OpGe
		case p.checkOp("<"):
			op = ast.OpLt
		case p.checkOp(">"):
			op = ast.OpGt
		default:
			return left, nil
		}
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = ast.Binary{Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseAdditive() (ast.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.BinaryOp
		switch {
		case p.checkOp("+"):
			op = ast.OpAdd
		case p.checkSubtraction():
			op = ast.OpSub
		default:
			return left, nil
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = ast.Binary{Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseMultiplicative() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.BinaryOp
		switch {
		case p.checkOp("*"):
			op = ast.OpMul
		case p.checkOp("/"):
			op = ast.OpDiv
		default:
			return left, nil
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = ast.Binary{Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseUnary() (ast.Expr, error) {
	if p.checkKeyword("not") {
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.Unary{Op: ast.OpNot, Operand: operand}, nil
	}
	p.skipSpace()
	if p.peek() == '-' {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.Unary{Op: ast.OpNeg, Operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (ast.Expr, error) {
	p.skipSpace()
	switch {
	case p.peek() == '(':
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return expr, nil
	case p.peek() == '"':
		s, err := p.parseString()
		if err != nil {
			return nil, err
		}
		return ast.Lit{Value: ast.Str(s)}, nil
	case p.peek() >= '0' && p.peek() <= '9':
		v, err := p.parseNumber()
		if err != nil {
			return nil, err
		}
		return ast.Lit{Value: v}, nil
	case p.checkKeyword("true"):
		return ast.Lit{Value: ast.Bool(true)}, nil
	case p.checkKeyword("false"):
		return ast.Lit{Value: ast.Bool(false)}, nil
	case p.checkKeyword("null"):
		return ast.Lit{Value: ast.Null{}}, nil
	case isIdentStart(p.peek()):
		name, err := p.parseIdent()
		if err != nil {
			return nil, err
		}
		return ast.Ident{Name: name}, nil
	default:
		return nil, p.errf("expected expression, found %q", string(p.peek()))
	}
}

// checkOp consumes op if it is next (after whitespace). Single-char
// operators that prefix a longer one (< vs <=) must be checked after it.
func (p *parser) checkOp(op string) bool {
	p.skipSpace()
	save := *p
	for _, want := range op {
		if p.peek() != want {
			*p = save
			return false
		}
		p.advance()
	}
	// Reject "==" when checking "=" style prefixes. The only ambiguity in
	// this grammar is < / <= and > / >=, already ordered by the callers,
	// plus "=" which is not an operator at all.
	return true
}

// checkSubtraction consumes a '-' operator, refusing "--" which starts a
// comment.
func (p *parser) checkSubtraction() bool {
	p.skipSpace()
	if p.peek() != '-' {
		return false
	}
	if p.pos+1 < len(p.src) && p.src[p.pos+1] == '-' {
		return false
	}
	p.advance()
	return true
}
