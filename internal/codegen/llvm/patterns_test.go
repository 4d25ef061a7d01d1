package llvm

import (
	"strings"
	"testing"

	"github.com/hivellm/tml-sub014/internal/ast"
	"github.com/hivellm/tml-sub014/internal/types"
)

// maybeEnumDecl builds `enum Maybe[T] { Some(T), None }`.
func maybeEnumDecl() *ast.EnumDecl {
	return ast.NewEnumDecl(sp, &ast.Ident{Name: "Maybe"}, ast.VisPublic, nil, []string{"T"}, []ast.VariantDecl{
		{Name: &ast.Ident{Name: "Some"}, Payload: []ast.Type{&types.Named{Name: "T"}}},
		{Name: &ast.Ident{Name: "None"}, Payload: nil},
	})
}

// unwrapOrModule instantiates Maybe[I32] and builds:
//
//	fn unwrap_or(m: Maybe__I32, fallback: I32) -> I32 {
//	    return when m { Some(v) => v, None => fallback }
//	}
func unwrapOrModule(ctx *Context) *ast.Module {
	decl := maybeEnumDecl()
	ctx.Insts.QueueEnum(decl)
	concrete, err := ctx.Insts.RequireInstance(ctx, &types.GenericInstance{Base: "Maybe", Args: []types.Type{types.TI32}})
	if err != nil {
		panic(err)
	}
	enumType := concrete.(*types.Enum)

	params := []ast.Param{
		{Name: &ast.Ident{Name: "m"}, Type: enumType},
		{Name: &ast.Ident{Name: "fallback"}, Type: types.TI32},
	}
	scrutinee := ast.NewIdentifier(sp, enumType, "m")
	arms := []ast.MatchArm{
		{
			Pattern: ast.VariantPattern{EnumName: "Maybe", VariantName: "Some", Bindings: []string{"v"}},
			Body:    ast.NewBlock(sp, types.TI32, nil, ast.NewIdentifier(sp, types.TI32, "v")),
		},
		{
			Pattern: ast.VariantPattern{EnumName: "Maybe", VariantName: "None"},
			Body:    ast.NewBlock(sp, types.TI32, nil, ast.NewIdentifier(sp, types.TI32, "fallback")),
		},
	}
	match := ast.NewMatch(sp, types.TI32, scrutinee, arms)
	body := ast.NewBlock(sp, types.TI32, []ast.Stmt{ast.NewReturnStmt(sp, match)}, nil)
	fn := ast.NewFuncDecl(sp, &ast.Ident{Name: "unwrap_or"}, ast.VisPublic, nil, nil, params, types.TI32, false, body, "", false)
	return ast.NewModule("opt", []ast.Decl{fn})
}

func TestGenericEnumPatternMatch(t *testing.T) {
	ctx := NewContext(Options{})
	out, err := ctx.Generate(unwrapOrModule(ctx))
	if err != nil {
		t.Fatalf("Generate error = %v", err)
	}
	if !strings.Contains(out, "%enum.Maybe__I32 = type") {
		t.Errorf("expected Maybe[I32] to be instantiated, got:\n%s", out)
	}
	if !strings.Contains(out, "switch i32") {
		t.Errorf("expected a tag switch for the when-expression, got:\n%s", out)
	}
	if strings.Count(out, "label %match_arm") < 2 {
		t.Errorf("expected two match arm labels (Some, None), got:\n%s", out)
	}
	if !strings.Contains(out, "phi i32") {
		t.Errorf("expected the two arms to join via a phi, got:\n%s", out)
	}
}

func TestGenericEnumDistinctInstantiationsKeepSeparateVariantTags(t *testing.T) {
	ctx := NewContext(Options{})
	decl := maybeEnumDecl()
	ctx.Insts.QueueEnum(decl)
	if _, err := ctx.Insts.RequireInstance(ctx, &types.GenericInstance{Base: "Maybe", Args: []types.Type{types.TI32}}); err != nil {
		t.Fatalf("RequireInstance(Maybe[I32]) error = %v", err)
	}
	if _, err := ctx.Insts.RequireInstance(ctx, &types.GenericInstance{Base: "Maybe", Args: []types.Type{types.TStr}}); err != nil {
		t.Fatalf("RequireInstance(Maybe[Str]) error = %v", err)
	}
	out := ctx.Buf.Prelude.String()
	if !strings.Contains(out, "%enum.Maybe__I32 = type") || !strings.Contains(out, "%enum.Maybe__Str = type") {
		t.Errorf("expected both mangled enum definitions, got:\n%s", out)
	}
	someI32, ok := ctx.Tables.EnumVariants["Maybe__I32"]["Some"]
	if !ok {
		t.Fatalf("Maybe__I32 missing Some tag")
	}
	someStr, ok := ctx.Tables.EnumVariants["Maybe__Str"]["Some"]
	if !ok {
		t.Fatalf("Maybe__Str missing Some tag")
	}
	if someI32 != someStr {
		t.Errorf("variant tag for Some should be stable across instantiations (positional), got %d vs %d", someI32, someStr)
	}
}
