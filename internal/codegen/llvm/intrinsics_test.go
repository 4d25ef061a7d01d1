package llvm

import (
	"strings"
	"testing"

	"github.com/hivellm/tml-sub014/internal/ast"
	"github.com/hivellm/tml-sub014/internal/types"
)

// atomicCasGuardModule builds:
//
//	fn guarded(p: *I64, want: I64, next: I64) -> Bool {
//	    return atomic_cas(p, want, next) && assume(true)
//	}
//
// exercising the atomic intrinsic dispatch alongside && short-circuiting so
// the RHS (a second intrinsic call) is only reached along the true branch.
func atomicCasGuardModule() *ast.Module {
	params := []ast.Param{
		{Name: &ast.Ident{Name: "p"}, Type: &types.Pointer{Elem: types.TI64}},
		{Name: &ast.Ident{Name: "want"}, Type: types.TI64},
		{Name: &ast.Ident{Name: "next"}, Type: types.TI64},
	}
	casCall := ast.NewCall(sp, types.TBool, ast.NewIdentifier(sp, nil, "atomic_cas"), nil, []ast.Expr{
		ast.NewIdentifier(sp, &types.Pointer{Elem: types.TI64}, "p"),
		ast.NewIdentifier(sp, types.TI64, "want"),
		ast.NewIdentifier(sp, types.TI64, "next"),
	})
	assumeCall := ast.NewCall(sp, types.TBool, ast.NewIdentifier(sp, nil, "assume"), nil, []ast.Expr{
		ast.NewLiteral(sp, types.TBool, ast.LitBool, 0, 0, true, ""),
	})
	and := ast.NewBinary(sp, types.TBool, ast.OpAnd, casCall, assumeCall)
	body := ast.NewBlock(sp, types.TBool, []ast.Stmt{ast.NewReturnStmt(sp, and)}, nil)
	fn := ast.NewFuncDecl(sp, &ast.Ident{Name: "guarded"}, ast.VisPublic, nil, nil, params, types.TBool, false, body, "", false)
	return ast.NewModule("sync", []ast.Decl{fn})
}

func TestAtomicCASShortCircuitsSecondCall(t *testing.T) {
	ctx := NewContext(Options{})
	out, err := ctx.Generate(atomicCasGuardModule())
	if err != nil {
		t.Fatalf("Generate error = %v", err)
	}
	if !strings.Contains(out, "cmpxchg") {
		t.Errorf("missing cmpxchg instruction, got:\n%s", out)
	}
	if !strings.Contains(out, "call void @llvm.assume") {
		t.Errorf("missing assume call, got:\n%s", out)
	}
	casIdx := strings.Index(out, "cmpxchg")
	branchIdx := strings.Index(out[casIdx:], "br i1")
	assumeIdx := strings.Index(out, "call void @llvm.assume")
	if casIdx == -1 || branchIdx == -1 || assumeIdx < casIdx {
		t.Errorf("expected cmpxchg to precede the short-circuit branch which precedes assume, got:\n%s", out)
	}
}

// identityAsyncModule builds `async fn identity(x: I32) -> I32 { return x }`.
func identityAsyncModule() *ast.Module {
	params := []ast.Param{{Name: &ast.Ident{Name: "x"}, Type: types.TI32}}
	body := ast.NewBlock(sp, types.TI32, []ast.Stmt{
		ast.NewReturnStmt(sp, ast.NewIdentifier(sp, types.TI32, "x")),
	}, nil)
	fn := ast.NewFuncDecl(sp, &ast.Ident{Name: "identity"}, ast.VisPublic, nil, nil, params, types.TI32, true, body, "", false)
	return ast.NewModule("fut", []ast.Decl{fn})
}

func TestAsyncFunctionReturnsPollWrappedValue(t *testing.T) {
	ctx := NewContext(Options{})
	out, err := ctx.Generate(identityAsyncModule())
	if err != nil {
		t.Fatalf("Generate error = %v", err)
	}
	if !strings.Contains(out, "define external { i32, i32 } @tml_identity(i32 %arg0.in) #0 {") {
		t.Errorf("expected a Poll[I32]-shaped return type, got:\n%s", out)
	}
	if !strings.Contains(out, "insertvalue") {
		t.Errorf("expected Ready(...) wrapping via insertvalue, got:\n%s", out)
	}
}

func TestSizeOfAndTypeIDIntrinsics(t *testing.T) {
	ctx := NewContext(Options{})
	call := ast.NewCall(sp, types.TI64, ast.NewIdentifier(sp, nil, "size_of"), []ast.Type{types.TI64}, nil)
	reg, llty, err := ctx.emitCall(call)
	if err != nil {
		t.Fatalf("emitCall(size_of) error = %v", err)
	}
	if llty != "i64" || reg != "8" {
		t.Errorf("size_of[I64] = (%s, %s), want (8, i64)", reg, llty)
	}

	idCall := ast.NewCall(sp, types.TI64, ast.NewIdentifier(sp, nil, "type_id"), []ast.Type{types.TI64}, nil)
	a, _, err := ctx.emitCall(idCall)
	if err != nil {
		t.Fatalf("emitCall(type_id) error = %v", err)
	}
	b, _, err := ctx.emitCall(idCall)
	if err != nil {
		t.Fatalf("emitCall(type_id) error = %v", err)
	}
	if a != b {
		t.Errorf("type_id not stable across calls: %q vs %q", a, b)
	}
}
