package llvm

import (
	"strings"
	"testing"

	"github.com/hivellm/tml-sub014/internal/ast"
	"github.com/hivellm/tml-sub014/internal/diag"
	"github.com/hivellm/tml-sub014/internal/types"
)

var sp = diag.Span{}

// addModule builds `fn add(a: I32, b: I32) -> I32 { return a + b }`.
func addModule() *ast.Module {
	params := []ast.Param{
		{Name: &ast.Ident{Name: "a"}, Type: types.TI32},
		{Name: &ast.Ident{Name: "b"}, Type: types.TI32},
	}
	sum := ast.NewBinary(sp, types.TI32, ast.OpAdd,
		ast.NewIdentifier(sp, types.TI32, "a"),
		ast.NewIdentifier(sp, types.TI32, "b"))
	body := ast.NewBlock(sp, types.TI32, []ast.Stmt{ast.NewReturnStmt(sp, sum)}, nil)
	fn := ast.NewFuncDecl(sp, &ast.Ident{Name: "add"}, ast.VisPublic, nil, nil, params, types.TI32, false, body, "", false)
	return ast.NewModule("arith", []ast.Decl{fn})
}

func TestGenerateSimpleFunction(t *testing.T) {
	ctx := NewContext(Options{})
	out, err := ctx.Generate(addModule())
	if err != nil {
		t.Fatalf("Generate error = %v", err)
	}
	if !strings.Contains(out, "define external i32 @tml_add(i32 %arg0.in, i32 %arg1.in)") {
		t.Errorf("missing function signature, got:\n%s", out)
	}
	if !strings.Contains(out, "add i32") {
		t.Errorf("missing add instruction, got:\n%s", out)
	}
	if !strings.Contains(out, "ret i32") {
		t.Errorf("missing ret instruction, got:\n%s", out)
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	a, err := NewContext(Options{}).Generate(addModule())
	if err != nil {
		t.Fatalf("Generate error = %v", err)
	}
	b, err := NewContext(Options{}).Generate(addModule())
	if err != nil {
		t.Fatalf("Generate error = %v", err)
	}
	if a != b {
		t.Errorf("Generate is not deterministic across identical runs")
	}
}

func TestGenerateUniqueSSARegisters(t *testing.T) {
	ctx := NewContext(Options{})
	out, err := ctx.Generate(addModule())
	if err != nil {
		t.Fatalf("Generate error = %v", err)
	}
	seen := map[string]int{}
	for _, line := range strings.Split(out, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "%") {
			continue
		}
		reg := strings.SplitN(trimmed, " ", 2)[0]
		seen[reg]++
	}
	for reg, n := range seen {
		if n > 1 {
			t.Errorf("register %s assigned %d times, want a unique SSA definition", reg, n)
		}
	}
}

// preludeBeforeBody asserts struct/enum definitions precede any function
// body reference (Invariant 3 of the emission order).
func TestGenerateTypeDefsPrecedeBody(t *testing.T) {
	structDecl := ast.NewStructDecl(sp, &ast.Ident{Name: "Point"}, ast.VisPublic, nil, nil, []ast.Field{
		{Name: &ast.Ident{Name: "x"}, Type: types.TI32},
		{Name: &ast.Ident{Name: "y"}, Type: types.TI32},
	})
	fieldVals := []ast.Expr{
		ast.NewLiteral(sp, types.TI32, ast.LitInt, 1, 0, false, ""),
		ast.NewLiteral(sp, types.TI32, ast.LitInt, 2, 0, false, ""),
	}
	structType := &types.Struct{Name: "Point", Fields: []types.Field{{Name: "x", Type: types.TI32}, {Name: "y", Type: types.TI32}}}
	lit := ast.NewStructLit(sp, structType, "Point", nil, []string{"x", "y"}, fieldVals)
	body := ast.NewBlock(sp, structType, nil, lit)
	fn := ast.NewFuncDecl(sp, &ast.Ident{Name: "make_point"}, ast.VisPublic, nil, nil, nil, structType, false, body, "", false)
	mod := ast.NewModule("geom", []ast.Decl{structDecl, fn})

	ctx := NewContext(Options{})
	out, err := ctx.Generate(mod)
	if err != nil {
		t.Fatalf("Generate error = %v", err)
	}
	defIdx := strings.Index(out, "%struct.Point = type")
	useIdx := strings.Index(out, "@tml_make_point")
	if defIdx == -1 || useIdx == -1 {
		t.Fatalf("expected both struct def and function in output, got:\n%s", out)
	}
	if defIdx > useIdx {
		t.Errorf("struct definition at %d must precede function body at %d", defIdx, useIdx)
	}
}
