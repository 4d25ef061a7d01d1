package frontend

import (
	"github.com/hivellm/tml-sub014/internal/ast"
	"github.com/pkg/errors"
)

// patternDoc is the JSON shape of a `when` arm pattern.
type patternDoc struct {
	Kind string `json:"kind"`

	// bind
	Name string `json:"name"`

	// literal
	Value *exprDoc `json:"value"`

	// variant
	EnumName    string   `json:"enumName"`
	VariantName string   `json:"variantName"`
	Bindings    []string `json:"bindings"`

	// or
	Alts []patternDoc `json:"alts"`
}

func (d patternDoc) toPattern() (ast.Pattern, error) {
	switch d.Kind {
	case "wildcard":
		return ast.WildcardPattern{}, nil
	case "bind":
		return ast.BindPattern{Name: d.Name}, nil
	case "literal":
		lit, err := d.Value.toExpr()
		if err != nil {
			return nil, err
		}
		litExpr, ok := lit.(*ast.Literal)
		if !ok {
			return nil, errors.New("literal pattern value must decode to a literal expression")
		}
		return ast.LiteralPattern{Value: *litExpr}, nil
	case "variant":
		return ast.VariantPattern{EnumName: d.EnumName, VariantName: d.VariantName, Bindings: d.Bindings}, nil
	case "or":
		alts := make([]ast.Pattern, len(d.Alts))
		for i, a := range d.Alts {
			p, err := a.toPattern()
			if err != nil {
				return nil, err
			}
			alts[i] = p
		}
		return ast.OrPattern{Alts: alts}, nil
	default:
		return nil, errors.Errorf("unknown pattern kind %q", d.Kind)
	}
}
