package llvm

import (
	"strings"
	"testing"

	"github.com/hivellm/tml-sub014/internal/ast"
	"github.com/hivellm/tml-sub014/internal/types"
)

// closureCaptureModule builds:
//
//	fn make() -> I32 {
//	    let x: I32 = 10;
//	    let f = || -> I32 { x };
//	    f.call()
//	}
func closureCaptureModule() *ast.Module {
	fnType := &types.Function{Return: types.TI32}
	closure := ast.NewClosure(sp, fnType, nil,
		ast.NewBlock(sp, types.TI32, nil, ast.NewIdentifier(sp, types.TI32, "x")),
		[]string{"x"})

	call := ast.NewMethodCall(sp, types.TI32, ast.NewIdentifier(sp, fnType, "f"), "call", nil, nil)
	body := ast.NewBlock(sp, types.TI32, []ast.Stmt{
		ast.NewLetStmt(sp, "x", types.TI32, ast.NewLiteral(sp, types.TI32, ast.LitInt, 10, 0, false, "")),
		ast.NewLetStmt(sp, "f", fnType, closure),
	}, call)
	fn := ast.NewFuncDecl(sp, &ast.Ident{Name: "make"}, ast.VisPublic, nil, nil, nil, types.TI32, false, body, "", false)
	return ast.NewModule("clos", []ast.Decl{fn})
}

func TestClosureCapturesLocalAndIsInvocable(t *testing.T) {
	ctx := NewContext(Options{})
	out, err := ctx.Generate(closureCaptureModule())
	if err != nil {
		t.Fatalf("Generate error = %v", err)
	}
	if !strings.Contains(out, "i8* %env.in)") {
		t.Errorf("expected the closure body lifted as a sibling function taking an env pointer, got:\n%s", out)
	}
	if !strings.Contains(out, "insertvalue { i8*, i8* }") {
		t.Errorf("expected the {fn_ptr, env_ptr} pair to be constructed, got:\n%s", out)
	}
	if !strings.Contains(out, "extractvalue") {
		t.Errorf("expected f.call() to unpack the closure pair before invoking, got:\n%s", out)
	}
	definesIdx := strings.Index(out, "define external i32 @tml_make(")
	closureIdx := strings.Index(out, "i8* %env.in)")
	if definesIdx == -1 || closureIdx == -1 || closureIdx < definesIdx {
		t.Errorf("expected the closure function to follow its enclosing function in the body stream, got:\n%s", out)
	}
}
