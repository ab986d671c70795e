package runtime

import (
	"github.com/prismlang/prism/internal/ast"
	"github.com/prismlang/prism/internal/parser"
)

// validateDocument runs the load-time reference checks: every identifier
// in a view or action expression must name a declared state variable,
// every bind target must name a declared state variable, every on_click
// must name a declared action, and every mutation must target a declared
// state variable. Any failure rejects the document wholesale.
func validateDocument(doc *ast.Document) error {
	vars := make(map[string]struct{}, len(doc.State))
	for _, f := range doc.State {
		vars[f.Name] = struct{}{}
	}

	if doc.View != nil {
		if err := validateNode(doc.View, doc, vars); err != nil {
			return err
		}
	}

	for _, action := range doc.Actions {
		for _, m := range action.Mutations {
			if _, ok := vars[m.Target]; !ok {
				return parser.NewLoadError(parser.ErrCodeUnresolvedIdentifier,
					"action %q mutates undeclared variable %q", action.Name, m.Target)
			}
			if err := validateExpr(m.Expr, vars); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateNode(node *ast.ViewNode, doc *ast.Document, vars map[string]struct{}) error {
	for _, span := range node.Template {
		if span.Expr != nil {
			if err := validateExpr(span.Expr, vars); err != nil {
				return err
			}
		}
	}

	for name, prop := range node.Props {
		switch p := prop.(type) {
		case ast.ExprProp:
			if err := validateExpr(p.Expr, vars); err != nil {
				return err
			}
		case ast.RefProp:
			switch name {
			case ast.PropBind:
				if _, ok := vars[p.Name]; !ok {
					return parser.NewLoadError(parser.ErrCodeUnresolvedIdentifier,
						"bind references undeclared variable %q", p.Name)
				}
			case ast.PropOnClick:
				if _, ok := doc.ActionByName(p.Name); !ok {
					return parser.NewLoadError(parser.ErrCodeUnresolvedIdentifier,
						"on_click references undeclared action %q", p.Name)
				}
			}
		}
	}

	for _, child := range node.Children {
		if err := validateNode(child, doc, vars); err != nil {
			return err
		}
	}
	return nil
}

func validateExpr(expr ast.Expr, vars map[string]struct{}) error {
	for _, name := range ast.FreeVars(expr, nil) {
		if _, ok := vars[name]; !ok {
			return parser.NewLoadError(parser.ErrCodeUnresolvedIdentifier,
				"expression references undeclared variable %q", name)
		}
	}
	return nil
}
