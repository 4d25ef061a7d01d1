package frontend

import (
	"github.com/hivellm/tml-sub014/internal/ast"
	"github.com/hivellm/tml-sub014/internal/diag"
	"github.com/pkg/errors"
)

var visibilityNames = map[string]ast.Visibility{
	"private": ast.VisPrivate, "public": ast.VisPublic, "main": ast.VisMain,
}

var attrKindNames = map[string]ast.AttrKind{
	"extern": ast.AttrExtern, "link": ast.AttrLink, "derive": ast.AttrDerive,
	"test": ast.AttrTest, "bench": ast.AttrBench, "shouldPanic": ast.AttrShouldPanic,
	"ignore": ast.AttrIgnore, "stable": ast.AttrStable,
	"allocates": ast.AttrAllocates, "intrinsic": ast.AttrIntrinsic,
}

type attrDoc struct {
	Kind string   `json:"kind"`
	Args []string `json:"args"`
}

func toAttrSlice(docs []attrDoc) ([]ast.Attribute, error) {
	out := make([]ast.Attribute, len(docs))
	for i, a := range docs {
		kind, ok := attrKindNames[a.Kind]
		if !ok {
			return nil, errors.Errorf("unknown attribute kind %q", a.Kind)
		}
		out[i] = ast.Attribute{Kind: kind, Args: a.Args}
	}
	return out, nil
}

type fieldDoc struct {
	Name string   `json:"name"`
	Type *typeDoc `json:"type"`
}

type variantDoc struct {
	Name    string    `json:"name"`
	Payload []typeDoc `json:"payload"`
}

// declDoc is the JSON shape of a top-level or impl-block declaration.
type declDoc struct {
	Kind       string     `json:"kind"`
	Name       string     `json:"name"`
	Vis        string     `json:"vis"`
	Attrs      []attrDoc  `json:"attrs"`
	TypeParams []string   `json:"typeParams"`

	// struct
	Fields []fieldDoc `json:"fields"`

	// enum
	Variants []variantDoc `json:"variants"`

	// func
	Params     []paramDoc `json:"params"`
	ReturnType *typeDoc   `json:"returnType"`
	IsAsync    bool       `json:"isAsync"`
	Body       *blockDoc  `json:"body"`
	ImplOf     string     `json:"implOf"`
	IsStatic   bool       `json:"isStatic"`

	// impl
	TypeName string    `json:"typeName"`
	Methods  []declDoc `json:"methods"`
}

func (d *declDoc) toDecl() (ast.Decl, error) {
	var sp diag.Span
	vis := visibilityNames[d.Vis]
	attrs, err := toAttrSlice(d.Attrs)
	if err != nil {
		return nil, err
	}

	switch d.Kind {
	case "struct":
		fields := make([]ast.Field, len(d.Fields))
		for i, f := range d.Fields {
			t, err := f.Type.toType()
			if err != nil {
				return nil, err
			}
			fields[i] = ast.Field{Name: &ast.Ident{Name: f.Name}, Type: t}
		}
		return ast.NewStructDecl(sp, &ast.Ident{Name: d.Name}, vis, attrs, d.TypeParams, fields), nil
	case "enum":
		variants := make([]ast.VariantDecl, len(d.Variants))
		for i, v := range d.Variants {
			payload, err := toTypeSlice(v.Payload)
			if err != nil {
				return nil, err
			}
			variants[i] = ast.VariantDecl{Name: &ast.Ident{Name: v.Name}, Payload: payload}
		}
		return ast.NewEnumDecl(sp, &ast.Ident{Name: d.Name}, vis, attrs, d.TypeParams, variants), nil
	case "func":
		fd, err := d.toFuncDecl()
		if err != nil {
			return nil, err
		}
		return fd, nil
	case "impl":
		methods := make([]*ast.FuncDecl, len(d.Methods))
		for i := range d.Methods {
			m := d.Methods[i]
			m.ImplOf = d.TypeName
			fd, err := m.toFuncDecl()
			if err != nil {
				return nil, err
			}
			methods[i] = fd
		}
		return ast.NewImplDecl(sp, &ast.Ident{Name: d.TypeName}, methods), nil
	default:
		return nil, errors.Errorf("unknown declaration kind %q", d.Kind)
	}
}

func (d *declDoc) toFuncDecl() (*ast.FuncDecl, error) {
	var sp diag.Span
	vis := visibilityNames[d.Vis]
	attrs, err := toAttrSlice(d.Attrs)
	if err != nil {
		return nil, err
	}
	params, err := toParamSlice(d.Params)
	if err != nil {
		return nil, err
	}
	ret, err := d.ReturnType.toType()
	if err != nil {
		return nil, err
	}
	body, err := d.Body.toBlock()
	if err != nil {
		return nil, err
	}
	return ast.NewFuncDecl(sp, &ast.Ident{Name: d.Name}, vis, attrs, d.TypeParams, params, ret, d.IsAsync, body, d.ImplOf, d.IsStatic), nil
}
