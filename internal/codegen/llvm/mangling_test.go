package llvm

import (
	"testing"

	"github.com/hivellm/tml-sub014/internal/types"
)

func TestMangleTypeScalars(t *testing.T) {
	tests := []struct {
		name string
		in   types.Type
		want string
	}{
		{"primitive I32", types.TI32, "I32"},
		{"primitive Str", types.TStr, "Str"},
		{"pointer", &types.Pointer{Elem: types.TI64}, "P_I64"},
		{"shared reference", &types.Reference{Elem: types.TBool, Kind: types.RefShared}, "R_Bool"},
		{"mutable reference", &types.Reference{Elem: types.TBool, Kind: types.RefMutable}, "MR_Bool"},
		{"array", &types.Array{Elem: types.TU8, Len: 4}, "A4_U8"},
		{"tuple", &types.Tuple{Elems: []types.Type{types.TI32, types.TBool}}, "T_2_I32_Bool"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := mangleType(tt.in)
			if err != nil {
				t.Fatalf("mangleType(%v) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("mangleType(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestMangleIsDeterministic(t *testing.T) {
	typ := &types.GenericInstance{Base: "Maybe", Args: []types.Type{types.TI32}}
	a, err := mangleType(typ)
	if err != nil {
		t.Fatalf("mangleType error = %v", err)
	}
	b, err := mangleType(typ)
	if err != nil {
		t.Fatalf("mangleType error = %v", err)
	}
	if a != b {
		t.Errorf("mangleType not deterministic: %q != %q", a, b)
	}
	if a != "Maybe__I32" {
		t.Errorf("mangleType(Maybe[I32]) = %q, want %q", a, "Maybe__I32")
	}
}

func TestMangleBaseWithMultipleArgs(t *testing.T) {
	got, err := mangle("Pair", []types.Type{types.TI32, types.TStr})
	if err != nil {
		t.Fatalf("mangle error = %v", err)
	}
	want := "Pair__I32__Str"
	if got != want {
		t.Errorf("mangle(Pair, [I32, Str]) = %q, want %q", got, want)
	}
}

func TestMangleNoTypeArgsReturnsBase(t *testing.T) {
	got, err := mangle("plain_fn", nil)
	if err != nil {
		t.Fatalf("mangle error = %v", err)
	}
	if got != "plain_fn" {
		t.Errorf("mangle(plain_fn, nil) = %q, want %q", got, "plain_fn")
	}
}

func TestMangleUnresolvedNamedFails(t *testing.T) {
	_, err := mangleType(&types.Named{Name: "T"})
	if err == nil {
		t.Error("mangleType of an unresolved generic parameter should fail")
	}
}

func TestMangleResolvedNamedFollowsRef(t *testing.T) {
	named := &types.Named{Name: "T", Ref: types.TI64}
	got, err := mangleType(named)
	if err != nil {
		t.Fatalf("mangleType error = %v", err)
	}
	if got != "I64" {
		t.Errorf("mangleType(resolved Named) = %q, want %q", got, "I64")
	}
}

func TestMangleFunctionType(t *testing.T) {
	fn := &types.Function{Params: []types.Type{types.TI32, types.TBool}, Return: types.TStr}
	got, err := mangleType(fn)
	if err != nil {
		t.Fatalf("mangleType error = %v", err)
	}
	want := "F_I32_Bool_R_Str"
	if got != want {
		t.Errorf("mangleType(fn) = %q, want %q", got, want)
	}
}

func TestSanitizeModulePath(t *testing.T) {
	got := sanitizeModulePath("std.collections.Vec")
	want := "std_collections_Vec"
	if got != want {
		t.Errorf("sanitizeModulePath = %q, want %q", got, want)
	}
}

func TestDeriveAndImplMethodSymbols(t *testing.T) {
	if got := deriveMethodSymbol("", "Point", "eq"); got != "tml_Point_eq" {
		t.Errorf("deriveMethodSymbol = %q, want %q", got, "tml_Point_eq")
	}
	if got := deriveMethodSymbol("suite_", "Point", "eq"); got != "tml_suite_Point_eq" {
		t.Errorf("deriveMethodSymbol with prefix = %q, want %q", got, "tml_suite_Point_eq")
	}
	if got := implMethodSymbol("Point", "len"); got != "tml_Point_len" {
		t.Errorf("implMethodSymbol = %q, want %q", got, "tml_Point_len")
	}
}
