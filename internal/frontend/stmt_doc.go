package frontend

import (
	"github.com/hivellm/tml-sub014/internal/ast"
	"github.com/hivellm/tml-sub014/internal/diag"
	"github.com/pkg/errors"
)

// stmtDoc is the JSON shape of a block statement.
type stmtDoc struct {
	Kind string `json:"kind"`

	// let
	Name     string   `json:"name"`
	Declared *typeDoc `json:"declared"`
	Value    *exprDoc `json:"value"`

	// assign
	Op       string   `json:"op"`
	Compound bool     `json:"compound"`
	Place    *exprDoc `json:"place"`

	// exprstmt
	X *exprDoc `json:"x"`

	// break
	BreakValue *exprDoc `json:"breakValue"`
}

func (d *stmtDoc) toStmt() (ast.Stmt, error) {
	var sp diag.Span
	switch d.Kind {
	case "let":
		declared, err := d.Declared.toType()
		if err != nil {
			return nil, err
		}
		value, err := d.Value.toExpr()
		if err != nil {
			return nil, err
		}
		return ast.NewLetStmt(sp, d.Name, declared, value), nil
	case "assign":
		op, ok := binOpNames[d.Op]
		if !ok && d.Compound {
			return nil, errors.Errorf("unknown compound assignment operator %q", d.Op)
		}
		place, err := d.Place.toExpr()
		if err != nil {
			return nil, err
		}
		value, err := d.Value.toExpr()
		if err != nil {
			return nil, err
		}
		return ast.NewAssignStmt(sp, op, d.Compound, place, value), nil
	case "exprstmt":
		x, err := d.X.toExpr()
		if err != nil {
			return nil, err
		}
		return ast.NewExprStmt(sp, x), nil
	case "return":
		value, err := d.Value.toExpr()
		if err != nil {
			return nil, err
		}
		return ast.NewReturnStmt(sp, value), nil
	case "break":
		value, err := d.BreakValue.toExpr()
		if err != nil {
			return nil, err
		}
		return ast.NewBreakStmt(sp, value), nil
	case "continue":
		return ast.NewContinueStmt(sp), nil
	default:
		return nil, errors.Errorf("unknown statement kind %q", d.Kind)
	}
}
