package llvm

import (
	"strings"
	"testing"

	"github.com/hivellm/tml-sub014/internal/ast"
	"github.com/hivellm/tml-sub014/internal/types"
)

// counterModule builds a struct with an instance method and a caller that
// dispatches to it through a method-call expression:
//
//	struct Counter { value: I32 }
//	impl Counter { fn get(self) -> I32 { return self.value } }
//	fn use_counter(c: Counter) -> I32 { return c.get() }
func counterModule() (*ast.Module, *types.Struct) {
	counter := &types.Struct{Name: "Counter", Fields: []types.Field{{Name: "value", Type: types.TI32}}}
	structDecl := ast.NewStructDecl(sp, &ast.Ident{Name: "Counter"}, ast.VisPublic, nil, nil,
		[]ast.Field{{Name: &ast.Ident{Name: "value"}, Type: types.TI32}})

	getBody := ast.NewBlock(sp, types.TI32, nil, ast.NewFieldAccess(sp, types.TI32, ast.NewIdentifier(sp, counter, "self"), "value"))
	getFn := ast.NewFuncDecl(sp, &ast.Ident{Name: "get"}, ast.VisPublic, nil, nil, nil, types.TI32, false, getBody, "Counter", false)
	impl := ast.NewImplDecl(sp, &ast.Ident{Name: "Counter"}, []*ast.FuncDecl{getFn})

	call := ast.NewMethodCall(sp, types.TI32, ast.NewIdentifier(sp, counter, "c"), "get", nil, nil)
	useBody := ast.NewBlock(sp, types.TI32, nil, call)
	params := []ast.Param{{Name: &ast.Ident{Name: "c"}, Type: counter}}
	useFn := ast.NewFuncDecl(sp, &ast.Ident{Name: "use_counter"}, ast.VisPublic, nil, nil, params, types.TI32, false, useBody, "", false)

	return ast.NewModule("counter", []ast.Decl{structDecl, impl, useFn}), counter
}

func TestMethodCallDispatchesToImplMethod(t *testing.T) {
	ctx := NewContext(Options{})
	mod, _ := counterModule()
	out, err := ctx.Generate(mod)
	if err != nil {
		t.Fatalf("Generate error = %v", err)
	}
	if !strings.Contains(out, "define external i32 @tml_Counter_get(%struct.Counter* %self.in)") {
		t.Errorf("missing method definition with self receiver, got:\n%s", out)
	}
	if !strings.Contains(out, "call i32 @tml_Counter_get(%struct.Counter* %") {
		t.Errorf("expected call site to pass the receiver as the first argument, got:\n%s", out)
	}
}
