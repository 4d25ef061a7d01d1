package llvm

import (
	"strings"
	"testing"

	"github.com/hivellm/tml-sub014/internal/ast"
	"github.com/hivellm/tml-sub014/internal/types"
)

// boxDecl builds `struct Box[T] { value: T }`.
func boxDecl() *ast.StructDecl {
	return ast.NewStructDecl(sp, &ast.Ident{Name: "Box"}, ast.VisPublic, nil, []string{"T"},
		[]ast.Field{{Name: &ast.Ident{Name: "value"}, Type: &types.Named{Name: "T"}}})
}

func TestGenericStructQueuedNotEmittedDirectly(t *testing.T) {
	ctx := NewContext(Options{})
	if err := ctx.genStructDecl(boxDecl()); err != nil {
		t.Fatalf("genStructDecl error = %v", err)
	}
	if ctx.Buf.Prelude.Len() != 0 {
		t.Errorf("generic struct should not emit a type definition before instantiation, got:\n%s", ctx.Buf.Prelude.String())
	}
}

func TestRequireInstanceIsIdempotent(t *testing.T) {
	ctx := NewContext(Options{})
	if err := ctx.genStructDecl(boxDecl()); err != nil {
		t.Fatalf("genStructDecl error = %v", err)
	}
	inst := &types.GenericInstance{Base: "Box", Args: []types.Type{types.TI32}}

	first, err := ctx.Insts.RequireInstance(ctx, inst)
	if err != nil {
		t.Fatalf("first RequireInstance error = %v", err)
	}
	afterFirst := ctx.Buf.Prelude.String()

	second, err := ctx.Insts.RequireInstance(ctx, inst)
	if err != nil {
		t.Fatalf("second RequireInstance error = %v", err)
	}
	afterSecond := ctx.Buf.Prelude.String()

	if afterFirst != afterSecond {
		t.Errorf("re-instantiating Box[I32] re-emitted the type definition:\nfirst:\n%s\nsecond:\n%s", afterFirst, afterSecond)
	}
	firstStruct := first.(*types.Struct)
	secondStruct := second.(*types.Struct)
	if firstStruct.Name != secondStruct.Name {
		t.Errorf("mangled names diverge across re-instantiation: %q vs %q", firstStruct.Name, secondStruct.Name)
	}
	if !strings.Contains(afterFirst, "%struct.Box__I32 = type") {
		t.Errorf("expected mangled struct definition, got:\n%s", afterFirst)
	}
}

func TestDifferentTypeArgsProduceDistinctInstantiations(t *testing.T) {
	ctx := NewContext(Options{})
	if err := ctx.genStructDecl(boxDecl()); err != nil {
		t.Fatalf("genStructDecl error = %v", err)
	}
	if _, err := ctx.Insts.RequireInstance(ctx, &types.GenericInstance{Base: "Box", Args: []types.Type{types.TI32}}); err != nil {
		t.Fatalf("RequireInstance(Box[I32]) error = %v", err)
	}
	if _, err := ctx.Insts.RequireInstance(ctx, &types.GenericInstance{Base: "Box", Args: []types.Type{types.TBool}}); err != nil {
		t.Fatalf("RequireInstance(Box[Bool]) error = %v", err)
	}
	out := ctx.Buf.Prelude.String()
	if !strings.Contains(out, "%struct.Box__I32 = type") || !strings.Contains(out, "%struct.Box__Bool = type") {
		t.Errorf("expected two distinct mangled struct definitions, got:\n%s", out)
	}
}
