package llvm

import (
	"strings"
	"testing"

	"github.com/hivellm/tml-sub014/internal/ast"
	"github.com/hivellm/tml-sub014/internal/types"
)

// pointDecl builds `@derive(PartialEq, Serialize) struct Point { x: I32, y: I32 }`.
func pointDecl(derives ...string) *ast.StructDecl {
	return ast.NewStructDecl(sp, &ast.Ident{Name: "Point"}, ast.VisPublic,
		[]ast.Attribute{{Kind: ast.AttrDerive, Args: derives}}, nil,
		[]ast.Field{
			{Name: &ast.Ident{Name: "x"}, Type: types.TI32},
			{Name: &ast.Ident{Name: "y"}, Type: types.TI32},
		})
}

func TestDerivePartialEqEmitsFieldwiseShortCircuit(t *testing.T) {
	ctx := NewContext(Options{})
	if err := ctx.genStructDecl(pointDecl("PartialEq")); err != nil {
		t.Fatalf("genStructDecl error = %v", err)
	}
	out := ctx.Buf.Prelude.String()
	if !strings.Contains(out, "define internal i1 @tml_Point_eq(ptr %this, ptr %other)") {
		t.Errorf("missing eq method signature, got:\n%s", out)
	}
	if strings.Count(out, "icmp eq i32") != 2 {
		t.Errorf("expected one icmp per field (2 fields), got:\n%s", out)
	}
	if strings.Count(out, "getelementptr %struct.Point") != 4 {
		t.Errorf("expected one getelementptr per field per side (2 fields x 2 sides), got:\n%s", out)
	}
	if !strings.Contains(out, "ret_true:") || !strings.Contains(out, "ret_false:") {
		t.Errorf("expected ret_true/ret_false labels, got:\n%s", out)
	}
}

func TestDeriveSerializeRoundTripsFieldNames(t *testing.T) {
	ctx := NewContext(Options{})
	if err := ctx.genStructDecl(pointDecl("Serialize")); err != nil {
		t.Fatalf("genStructDecl error = %v", err)
	}
	out := ctx.Buf.Prelude.String()
	if !strings.Contains(out, `"x":`) || !strings.Contains(out, `"y":`) {
		t.Errorf("serialize output missing field-name keys, got:\n%s", out)
	}
	if !strings.Contains(out, "define internal i8* @tml_Point_serialize(%struct.Point* %v)") {
		t.Errorf("missing serialize method signature, got:\n%s", out)
	}
}

func TestDeriveSuitePrefixAppliesToSymbol(t *testing.T) {
	ctx := NewContext(Options{ForceInternalLinkage: true, SuiteTestIndex: 3})
	if err := ctx.genStructDecl(pointDecl("PartialEq")); err != nil {
		t.Fatalf("genStructDecl error = %v", err)
	}
	out := ctx.Buf.Prelude.String()
	if !strings.Contains(out, "@tml_s3_Point_eq") {
		t.Errorf("expected suite-prefixed symbol tml_s3_Point_eq, got:\n%s", out)
	}
}

func TestDeriveMultipleKindsAllEmitted(t *testing.T) {
	ctx := NewContext(Options{})
	if err := ctx.genStructDecl(pointDecl("PartialEq", "Debug", "Default")); err != nil {
		t.Fatalf("genStructDecl error = %v", err)
	}
	out := ctx.Buf.Prelude.String()
	for _, want := range []string{"@tml_Point_eq", "@tml_Point_debug", "@tml_Point_default"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected derived method %s, got:\n%s", want, out)
		}
	}
}
