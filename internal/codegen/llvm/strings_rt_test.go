package llvm

import (
	"strings"
	"testing"

	"github.com/hivellm/tml-sub014/internal/ast"
	"github.com/hivellm/tml-sub014/internal/types"
)

// abInterp builds the interpolated string "a" ++ "b", which concatenates two
// literal fragments and leaves the concat result as a pending heap string.
func abInterp() *ast.Interp {
	return ast.NewInterp(sp, types.TStr, []ast.InterpPart{
		{Literal: "a"},
		{Literal: "b"},
	})
}

func TestPendingStringFreedAtStatementBoundary(t *testing.T) {
	body := ast.NewBlock(sp, types.TUnit, []ast.Stmt{
		ast.NewExprStmt(sp, abInterp()),
	}, nil)
	fn := ast.NewFuncDecl(sp, &ast.Ident{Name: "touch"}, ast.VisPublic, nil, nil, nil, types.TUnit, false, body, "", false)
	ctx := NewContext(Options{})
	out, err := ctx.Generate(ast.NewModule("strtest", []ast.Decl{fn}))
	if err != nil {
		t.Fatalf("Generate error = %v", err)
	}
	if strings.Count(out, "call void @tml_string_free") != 1 {
		t.Errorf("expected exactly one free for the discarded concat result, got:\n%s", out)
	}
}

func TestPendingStringTransfersOwnershipOnLet(t *testing.T) {
	body := ast.NewBlock(sp, types.TUnit, []ast.Stmt{
		ast.NewLetStmt(sp, "s", types.TStr, abInterp()),
		ast.NewExprStmt(sp, ast.NewLiteral(sp, types.TI32, ast.LitInt, 0, 0, false, "")),
	}, nil)
	fn := ast.NewFuncDecl(sp, &ast.Ident{Name: "keep"}, ast.VisPublic, nil, nil, nil, types.TUnit, false, body, "", false)
	ctx := NewContext(Options{})
	out, err := ctx.Generate(ast.NewModule("strtest", []ast.Decl{fn}))
	if err != nil {
		t.Fatalf("Generate error = %v", err)
	}
	if strings.Contains(out, "call void @tml_string_free") {
		t.Errorf("let-bound string should transfer ownership, not be freed, got:\n%s", out)
	}
	if !strings.Contains(out, "alloca i8*") {
		t.Errorf("expected the binding s to alloca a slot for the transferred string, got:\n%s", out)
	}
}
