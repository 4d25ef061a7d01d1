package llvm

import (
	"strings"
	"testing"

	"github.com/hivellm/tml-sub014/internal/ast"
	"github.com/hivellm/tml-sub014/internal/types"
)

// pointSumModule builds:
//
//	struct Point { x: I32, y: I32 }
//	fn make_and_sum() -> I32 {
//	    let p = Point { x: 3, y: 4 };
//	    p.x + p.y
//	}
func pointSumModule() *ast.Module {
	point := &types.Struct{Name: "Point", Fields: []types.Field{{Name: "x", Type: types.TI32}, {Name: "y", Type: types.TI32}}}
	structDecl := ast.NewStructDecl(sp, &ast.Ident{Name: "Point"}, ast.VisPublic, nil, nil, []ast.Field{
		{Name: &ast.Ident{Name: "x"}, Type: types.TI32},
		{Name: &ast.Ident{Name: "y"}, Type: types.TI32},
	})
	lit := ast.NewStructLit(sp, point, "Point", nil, []string{"x", "y"}, []ast.Expr{
		ast.NewLiteral(sp, types.TI32, ast.LitInt, 3, 0, false, ""),
		ast.NewLiteral(sp, types.TI32, ast.LitInt, 4, 0, false, ""),
	})
	sum := ast.NewBinary(sp, types.TI32, ast.OpAdd,
		ast.NewFieldAccess(sp, types.TI32, ast.NewIdentifier(sp, point, "p"), "x"),
		ast.NewFieldAccess(sp, types.TI32, ast.NewIdentifier(sp, point, "p"), "y"))
	body := ast.NewBlock(sp, types.TI32, []ast.Stmt{
		ast.NewLetStmt(sp, "p", point, lit),
	}, sum)
	fn := ast.NewFuncDecl(sp, &ast.Ident{Name: "make_and_sum"}, ast.VisPublic, nil, nil, nil, types.TI32, false, body, "", false)
	return ast.NewModule("agg", []ast.Decl{structDecl, fn})
}

func TestStructLiteralAllocatesAndFieldAccessReadsBack(t *testing.T) {
	ctx := NewContext(Options{})
	out, err := ctx.Generate(pointSumModule())
	if err != nil {
		t.Fatalf("Generate error = %v", err)
	}
	if !strings.Contains(out, "call i8* @tml_alloc(") {
		t.Errorf("expected the struct literal to heap-allocate, got:\n%s", out)
	}
	if strings.Count(out, "store i32") < 2 {
		t.Errorf("expected one store per field, got:\n%s", out)
	}
	if strings.Count(out, "getelementptr %struct.Point, %struct.Point*") < 4 {
		t.Errorf("expected a GEP per field store plus per field load, got:\n%s", out)
	}
	if !strings.Contains(out, "add i32") {
		t.Errorf("expected the field sum to lower to an add, got:\n%s", out)
	}
}

// arrayIndexModule builds:
//
//	fn first() -> I32 {
//	    let arr = [1, 2, 3];
//	    arr[0]
//	}
func arrayIndexModule() *ast.Module {
	arrType := &types.Array{Elem: types.TI32, Len: 3}
	lit := ast.NewArrayLit(sp, arrType, []ast.Expr{
		ast.NewLiteral(sp, types.TI32, ast.LitInt, 1, 0, false, ""),
		ast.NewLiteral(sp, types.TI32, ast.LitInt, 2, 0, false, ""),
		ast.NewLiteral(sp, types.TI32, ast.LitInt, 3, 0, false, ""),
	})
	idx := ast.NewIndex(sp, types.TI32, ast.NewIdentifier(sp, arrType, "arr"), ast.NewLiteral(sp, types.TI32, ast.LitInt, 0, 0, false, ""))
	body := ast.NewBlock(sp, types.TI32, []ast.Stmt{
		ast.NewLetStmt(sp, "arr", arrType, lit),
	}, idx)
	fn := ast.NewFuncDecl(sp, &ast.Ident{Name: "first"}, ast.VisPublic, nil, nil, nil, types.TI32, false, body, "", false)
	return ast.NewModule("agg", []ast.Decl{fn})
}

func TestArrayLiteralAndIndexAccess(t *testing.T) {
	ctx := NewContext(Options{})
	out, err := ctx.Generate(arrayIndexModule())
	if err != nil {
		t.Fatalf("Generate error = %v", err)
	}
	if !strings.Contains(out, "alloca [3 x i32]") {
		t.Errorf("expected a fixed-size array alloca, got:\n%s", out)
	}
	if strings.Count(out, "store i32") != 3 {
		t.Errorf("expected one store per element, got:\n%s", out)
	}
	if !strings.Contains(out, "getelementptr [3 x i32], [3 x i32]*") {
		t.Errorf("expected an indexing GEP, got:\n%s", out)
	}
}
