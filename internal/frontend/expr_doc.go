package frontend

import (
	"github.com/hivellm/tml-sub014/internal/ast"
	"github.com/hivellm/tml-sub014/internal/diag"
	"github.com/pkg/errors"
)

var binOpNames = map[string]ast.BinOp{
	"add": ast.OpAdd, "sub": ast.OpSub, "mul": ast.OpMul, "div": ast.OpDiv, "mod": ast.OpMod,
	"eq": ast.OpEq, "ne": ast.OpNe, "lt": ast.OpLt, "le": ast.OpLe, "gt": ast.OpGt, "ge": ast.OpGe,
	"and": ast.OpAnd, "or": ast.OpOr,
	"bitand": ast.OpBitAnd, "bitor": ast.OpBitOr, "bitxor": ast.OpBitXor,
	"shl": ast.OpShl, "shr": ast.OpShr,
}

var unOpNames = map[string]ast.UnOp{"neg": ast.OpNeg, "not": ast.OpNot}

var litKindNames = map[string]ast.LitKind{
	"int": ast.LitInt, "float": ast.LitFloat, "bool": ast.LitBool, "string": ast.LitString, "unit": ast.LitUnit,
}

var loopKindNames = map[string]ast.LoopKind{
	"while": ast.LoopWhile, "loop": ast.LoopBare, "for": ast.LoopFor,
}

// exprDoc is the JSON shape of an expression node. Kind selects the
// concrete variant; fields irrelevant to that variant are left zero.
type exprDoc struct {
	Kind string   `json:"kind"`
	Type *typeDoc `json:"type"`

	LitKind string  `json:"litKind"`
	Int     int64   `json:"int"`
	Flt     float64 `json:"flt"`
	Bool    bool    `json:"bool"`
	Str     string  `json:"str"`

	Name string `json:"name"`

	Op    string   `json:"op"`
	Left  *exprDoc `json:"left"`
	Right *exprDoc `json:"right"`

	Operand *exprDoc `json:"operand"`

	Callee   *exprDoc  `json:"callee"`
	TypeArgs []typeDoc `json:"typeArgs"`
	Args     []exprDoc `json:"args"`

	Receiver *exprDoc `json:"receiver"`
	Method   string   `json:"method"`

	Field string `json:"field"`

	StructName string    `json:"structName"`
	FieldNames []string  `json:"fieldNames"`
	FieldVals  []exprDoc `json:"fieldVals"`

	Elems []exprDoc `json:"elems"`

	Idx *exprDoc `json:"idx"`

	Cond *exprDoc  `json:"cond"`
	Then *blockDoc `json:"then"`
	Else *blockDoc `json:"else"`

	Scrutinee *exprDoc      `json:"scrutinee"`
	Arms      []matchArmDoc `json:"arms"`

	LoopKind string    `json:"loopKind"`
	IterVar  string    `json:"iterVar"`
	IterExpr *exprDoc  `json:"iterExpr"`
	Body     *blockDoc `json:"body"`

	Params   []paramDoc `json:"params"`
	Captures []string   `json:"captures"`

	Target *typeDoc `json:"target"`

	Parts []interpPartDoc `json:"parts"`
}

type blockDoc struct {
	Stmts []stmtDoc `json:"stmts"`
	Tail  *exprDoc  `json:"tail"`
	Type  *typeDoc  `json:"type"`
}

type matchArmDoc struct {
	Pattern patternDoc `json:"pattern"`
	Guard   *exprDoc   `json:"guard"`
	Body    blockDoc   `json:"body"`
}

type interpPartDoc struct {
	Literal string   `json:"literal"`
	Expr    *exprDoc `json:"expr"`
}

type paramDoc struct {
	Name   string   `json:"name"`
	Type   *typeDoc `json:"type"`
	IsSelf bool     `json:"isSelf"`
}

func (d *exprDoc) toExpr() (ast.Expr, error) {
	if d == nil {
		return nil, nil
	}
	var sp diag.Span
	typ, err := d.Type.toType()
	if err != nil {
		return nil, err
	}

	switch d.Kind {
	case "literal":
		kind, ok := litKindNames[d.LitKind]
		if !ok {
			return nil, errors.Errorf("unknown literal kind %q", d.LitKind)
		}
		return ast.NewLiteral(sp, typ, kind, d.Int, d.Flt, d.Bool, d.Str), nil
	case "ident":
		return ast.NewIdentifier(sp, typ, d.Name), nil
	case "binary":
		op, ok := binOpNames[d.Op]
		if !ok {
			return nil, errors.Errorf("unknown binary operator %q", d.Op)
		}
		l, err := d.Left.toExpr()
		if err != nil {
			return nil, err
		}
		r, err := d.Right.toExpr()
		if err != nil {
			return nil, err
		}
		return ast.NewBinary(sp, typ, op, l, r), nil
	case "unary":
		op, ok := unOpNames[d.Op]
		if !ok {
			return nil, errors.Errorf("unknown unary operator %q", d.Op)
		}
		operand, err := d.Operand.toExpr()
		if err != nil {
			return nil, err
		}
		return ast.NewUnary(sp, typ, op, operand), nil
	case "call":
		callee, err := d.Callee.toExpr()
		if err != nil {
			return nil, err
		}
		typeArgs, err := toTypeSlice(d.TypeArgs)
		if err != nil {
			return nil, err
		}
		args, err := toExprSlice(d.Args)
		if err != nil {
			return nil, err
		}
		return ast.NewCall(sp, typ, callee, typeArgs, args), nil
	case "methodcall":
		recv, err := d.Receiver.toExpr()
		if err != nil {
			return nil, err
		}
		typeArgs, err := toTypeSlice(d.TypeArgs)
		if err != nil {
			return nil, err
		}
		args, err := toExprSlice(d.Args)
		if err != nil {
			return nil, err
		}
		return ast.NewMethodCall(sp, typ, recv, d.Method, typeArgs, args), nil
	case "fieldaccess":
		recv, err := d.Receiver.toExpr()
		if err != nil {
			return nil, err
		}
		return ast.NewFieldAccess(sp, typ, recv, d.Field), nil
	case "structlit":
		typeArgs, err := toTypeSlice(d.TypeArgs)
		if err != nil {
			return nil, err
		}
		vals, err := toExprSlice(d.FieldVals)
		if err != nil {
			return nil, err
		}
		return ast.NewStructLit(sp, typ, d.StructName, typeArgs, d.FieldNames, vals), nil
	case "arraylit":
		elems, err := toExprSlice(d.Elems)
		if err != nil {
			return nil, err
		}
		return ast.NewArrayLit(sp, typ, elems), nil
	case "index":
		recv, err := d.Receiver.toExpr()
		if err != nil {
			return nil, err
		}
		idx, err := d.Idx.toExpr()
		if err != nil {
			return nil, err
		}
		return ast.NewIndex(sp, typ, recv, idx), nil
	case "if":
		cond, err := d.Cond.toExpr()
		if err != nil {
			return nil, err
		}
		then, err := d.Then.toBlock()
		if err != nil {
			return nil, err
		}
		els, err := d.Else.toBlock()
		if err != nil {
			return nil, err
		}
		return ast.NewIf(sp, typ, cond, then, els), nil
	case "match":
		scrutinee, err := d.Scrutinee.toExpr()
		if err != nil {
			return nil, err
		}
		arms := make([]ast.MatchArm, len(d.Arms))
		for i, a := range d.Arms {
			pat, err := a.Pattern.toPattern()
			if err != nil {
				return nil, err
			}
			guard, err := a.Guard.toExpr()
			if err != nil {
				return nil, err
			}
			body, err := a.Body.toBlock()
			if err != nil {
				return nil, err
			}
			arms[i] = ast.MatchArm{Pattern: pat, Guard: guard, Body: body}
		}
		return ast.NewMatch(sp, typ, scrutinee, arms), nil
	case "loop":
		kind, ok := loopKindNames[d.LoopKind]
		if !ok {
			return nil, errors.Errorf("unknown loop kind %q", d.LoopKind)
		}
		cond, err := d.Cond.toExpr()
		if err != nil {
			return nil, err
		}
		iterExpr, err := d.IterExpr.toExpr()
		if err != nil {
			return nil, err
		}
		body, err := d.Body.toBlock()
		if err != nil {
			return nil, err
		}
		return ast.NewLoop(sp, typ, kind, cond, d.IterVar, iterExpr, body), nil
	case "closure":
		params, err := toParamSlice(d.Params)
		if err != nil {
			return nil, err
		}
		body, err := d.Body.toBlock()
		if err != nil {
			return nil, err
		}
		return ast.NewClosure(sp, typ, params, body, d.Captures), nil
	case "cast":
		operand, err := d.Operand.toExpr()
		if err != nil {
			return nil, err
		}
		target, err := d.Target.toType()
		if err != nil {
			return nil, err
		}
		return ast.NewCast(sp, typ, operand, target), nil
	case "interp":
		parts := make([]ast.InterpPart, len(d.Parts))
		for i, p := range d.Parts {
			e, err := p.Expr.toExpr()
			if err != nil {
				return nil, err
			}
			parts[i] = ast.InterpPart{Literal: p.Literal, Expr: e}
		}
		return ast.NewInterp(sp, typ, parts), nil
	case "try":
		operand, err := d.Operand.toExpr()
		if err != nil {
			return nil, err
		}
		return ast.NewTry(sp, typ, operand), nil
	case "await":
		operand, err := d.Operand.toExpr()
		if err != nil {
			return nil, err
		}
		return ast.NewAwait(sp, typ, operand), nil
	case "block":
		// A block used directly in expression position decodes through
		// blockDoc's own path; bodies reach here only via Then/Else/Body.
		return nil, errors.New("bare block expression must be decoded via blockDoc")
	default:
		return nil, errors.Errorf("unknown expression kind %q", d.Kind)
	}
}

func toExprSlice(docs []exprDoc) ([]ast.Expr, error) {
	out := make([]ast.Expr, len(docs))
	for i := range docs {
		e, err := docs[i].toExpr()
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func (d *blockDoc) toBlock() (*ast.Block, error) {
	if d == nil {
		return nil, nil
	}
	stmts := make([]ast.Stmt, len(d.Stmts))
	for i := range d.Stmts {
		s, err := d.Stmts[i].toStmt()
		if err != nil {
			return nil, err
		}
		stmts[i] = s
	}
	tail, err := d.Tail.toExpr()
	if err != nil {
		return nil, err
	}
	typ, err := d.Type.toType()
	if err != nil {
		return nil, err
	}
	return ast.NewBlock(diag.Span{}, typ, stmts, tail), nil
}

func toParamSlice(docs []paramDoc) ([]ast.Param, error) {
	out := make([]ast.Param, len(docs))
	for i, p := range docs {
		t, err := p.Type.toType()
		if err != nil {
			return nil, err
		}
		out[i] = ast.Param{Name: &ast.Ident{Name: p.Name}, Type: t, IsSelf: p.IsSelf}
	}
	return out, nil
}
