package ast

import "github.com/hivellm/tml-sub014/internal/diag"

// Constructors for every concrete node, in the same New* style the source
// pipeline's parser would use to build a tree. The frontend package (which
// decodes an externally-produced tree) and the engine's tests call them;
// nothing in this package calls these itself.

func NewLiteral(sp diag.Span, typ Type, kind LitKind, i int64, f float64, b bool, s string) *Literal {
	return &Literal{base: base{Sp: sp, Typ: typ}, Kind: kind, Int: i, Flt: f, Bool: b, Str: s}
}

func NewIdentifier(sp diag.Span, typ Type, name string) *Identifier {
	return &Identifier{base: base{Sp: sp, Typ: typ}, Name: name}
}

func NewBinary(sp diag.Span, typ Type, op BinOp, l, r Expr) *Binary {
	return &Binary{base: base{Sp: sp, Typ: typ}, Op: op, Left: l, Right: r}
}

func NewUnary(sp diag.Span, typ Type, op UnOp, operand Expr) *Unary {
	return &Unary{base: base{Sp: sp, Typ: typ}, Op: op, Operand: operand}
}

func NewCall(sp diag.Span, typ Type, callee Expr, typeArgs []Type, args []Expr) *Call {
	return &Call{base: base{Sp: sp, Typ: typ}, Callee: callee, TypeArgs: typeArgs, Args: args}
}

func NewMethodCall(sp diag.Span, typ Type, recv Expr, method string, typeArgs []Type, args []Expr) *MethodCall {
	return &MethodCall{base: base{Sp: sp, Typ: typ}, Receiver: recv, Method: method, TypeArgs: typeArgs, Args: args}
}

func NewFieldAccess(sp diag.Span, typ Type, recv Expr, field string) *FieldAccess {
	return &FieldAccess{base: base{Sp: sp, Typ: typ}, Receiver: recv, Field: field}
}

func NewStructLit(sp diag.Span, typ Type, name string, typeArgs []Type, fieldNames []string, fieldVals []Expr) *StructLit {
	return &StructLit{base: base{Sp: sp, Typ: typ}, StructName: name, TypeArgs: typeArgs, FieldNames: fieldNames, FieldVals: fieldVals}
}

func NewArrayLit(sp diag.Span, typ Type, elems []Expr) *ArrayLit {
	return &ArrayLit{base: base{Sp: sp, Typ: typ}, Elems: elems}
}

func NewIndex(sp diag.Span, typ Type, recv, idx Expr) *Index {
	return &Index{base: base{Sp: sp, Typ: typ}, Receiver: recv, Idx: idx}
}

func NewIf(sp diag.Span, typ Type, cond Expr, then, els *Block) *If {
	return &If{base: base{Sp: sp, Typ: typ}, Cond: cond, Then: then, Else: els}
}

func NewMatch(sp diag.Span, typ Type, scrutinee Expr, arms []MatchArm) *Match {
	return &Match{base: base{Sp: sp, Typ: typ}, Scrutinee: scrutinee, Arms: arms}
}

func NewLoop(sp diag.Span, typ Type, kind LoopKind, cond Expr, iterVar string, iterExpr Expr, body *Block) *Loop {
	return &Loop{base: base{Sp: sp, Typ: typ}, Kind: kind, Cond: cond, IterVar: iterVar, IterExpr: iterExpr, Body: body}
}

func NewClosure(sp diag.Span, typ Type, params []Param, body *Block, captures []string) *Closure {
	return &Closure{base: base{Sp: sp, Typ: typ}, Params: params, Body: body, Captures: captures}
}

func NewCast(sp diag.Span, typ Type, operand Expr, target Type) *Cast {
	return &Cast{base: base{Sp: sp, Typ: typ}, Operand: operand, Target: target}
}

func NewInterp(sp diag.Span, typ Type, parts []InterpPart) *Interp {
	return &Interp{base: base{Sp: sp, Typ: typ}, Parts: parts}
}

func NewTry(sp diag.Span, typ Type, operand Expr) *Try {
	return &Try{base: base{Sp: sp, Typ: typ}, Operand: operand}
}

func NewAwait(sp diag.Span, typ Type, operand Expr) *Await {
	return &Await{base: base{Sp: sp, Typ: typ}, Operand: operand}
}

func NewBlock(sp diag.Span, typ Type, stmts []Stmt, tail Expr) *Block {
	return &Block{base: base{Sp: sp, Typ: typ}, Stmts: stmts, Tail: tail}
}

func NewLetStmt(sp diag.Span, name string, declared Type, value Expr) *LetStmt {
	return &LetStmt{stmtBase: stmtBase{Sp: sp}, Name: name, Declared: declared, Value: value}
}

func NewAssignStmt(sp diag.Span, op BinOp, compound bool, place, value Expr) *AssignStmt {
	return &AssignStmt{stmtBase: stmtBase{Sp: sp}, Op: op, Compound: compound, Place: place, Value: value}
}

func NewExprStmt(sp diag.Span, x Expr) *ExprStmt {
	return &ExprStmt{stmtBase: stmtBase{Sp: sp}, X: x}
}

func NewReturnStmt(sp diag.Span, value Expr) *ReturnStmt {
	return &ReturnStmt{stmtBase: stmtBase{Sp: sp}, Value: value}
}

func NewBreakStmt(sp diag.Span, value Expr) *BreakStmt {
	return &BreakStmt{stmtBase: stmtBase{Sp: sp}, Value: value}
}

func NewContinueStmt(sp diag.Span) *ContinueStmt {
	return &ContinueStmt{stmtBase: stmtBase{Sp: sp}}
}

func NewStructDecl(sp diag.Span, name *Ident, vis Visibility, attrs []Attribute, typeParams []string, fields []Field) *StructDecl {
	return &StructDecl{Name: name, Vis: vis, Attrs: attrs, TypeParams: typeParams, Fields: fields, Sp: sp}
}

func NewEnumDecl(sp diag.Span, name *Ident, vis Visibility, attrs []Attribute, typeParams []string, variants []VariantDecl) *EnumDecl {
	return &EnumDecl{Name: name, Vis: vis, Attrs: attrs, TypeParams: typeParams, Variants: variants, Sp: sp}
}

func NewFuncDecl(sp diag.Span, name *Ident, vis Visibility, attrs []Attribute, typeParams []string, params []Param, ret Type, isAsync bool, body *Block, implOf string, isStatic bool) *FuncDecl {
	return &FuncDecl{
		Name: name, Vis: vis, Attrs: attrs, TypeParams: typeParams, Params: params,
		ReturnType: ret, IsAsync: isAsync, Body: body, ImplOf: implOf, IsStatic: isStatic, Sp: sp,
	}
}

func NewImplDecl(sp diag.Span, typeName *Ident, methods []*FuncDecl) *ImplDecl {
	return &ImplDecl{TypeName: typeName, Methods: methods, Sp: sp}
}

func NewModule(name string, decls []Decl) *Module {
	return &Module{Name: name, Decls: decls}
}
