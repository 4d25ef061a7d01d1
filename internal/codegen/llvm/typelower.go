package llvm

import (
	"strconv"
	"strings"

	"github.com/hivellm/tml-sub014/internal/types"
	lltypes "github.com/llir/llvm/ir/types"
	"github.com/pkg/errors"
)

// TypeLowerer maps semantic types to LLVM IR type values, caching named
// struct/enum lowerings by mangled name so repeated lowering of the same
// instantiation returns the identical *lltypes.StructType (and therefore
// identical text) every time.
//
// Grounded on the teacher's mapType (internal/codegen/llvm/types.go), but
// builds typed github.com/llir/llvm/ir/types values instead of hand-joined
// strings: the lowerer is read-only value construction with no instruction
// sequencing, the one place in the engine where a typed IR builder is
// lower-risk than text (see SPEC_FULL.md's DOMAIN STACK section).
type TypeLowerer struct {
	ctx *Context
}

func newTypeLowerer(ctx *Context) *TypeLowerer {
	return &TypeLowerer{ctx: ctx}
}

// Lower converts a semantic type to its LLVM IR type value. Named struct/
// enum types trigger instantiation first when they are not yet concrete.
func (tl *TypeLowerer) Lower(t types.Type) (lltypes.Type, error) {
	if t == nil {
		return lltypes.Void, nil
	}
	switch typ := t.(type) {
	case *types.Primitive:
		return tl.lowerPrimitive(typ)

	case *types.Pointer:
		elem, err := tl.Lower(typ.Elem)
		if err != nil {
			return nil, err
		}
		return lltypes.NewPointer(elem), nil

	case *types.Reference:
		elem, err := tl.Lower(typ.Elem)
		if err != nil {
			return nil, err
		}
		return lltypes.NewPointer(elem), nil

	case *types.Array:
		elem, err := tl.Lower(typ.Elem)
		if err != nil {
			return nil, err
		}
		return lltypes.NewArray(uint64(typ.Len), elem), nil

	case *types.Tuple:
		if len(typ.Elems) == 0 {
			return lltypes.Void, nil
		}
		fields := make([]lltypes.Type, len(typ.Elems))
		for i, e := range typ.Elems {
			lowered, err := tl.Lower(e)
			if err != nil {
				return nil, err
			}
			fields[i] = lowered
		}
		return lltypes.NewStruct(fields...), nil

	case *types.Struct:
		return tl.lowerNamedStruct(typ)

	case *types.Enum:
		return tl.lowerNamedEnum(typ)

	case *types.GenericInstance:
		if typ.Base == "Poll" || typ.Base == "Outcome" {
			return tl.lowerBuiltinGeneric(typ)
		}
		resolved, err := tl.ctx.Insts.RequireInstance(tl.ctx, typ)
		if err != nil {
			return nil, err
		}
		return tl.Lower(resolved)

	case *types.Named:
		if typ.Ref != nil {
			return tl.Lower(typ.Ref)
		}
		return nil, errors.Errorf("unresolved generic parameter %q reached the type lowerer", typ.Name)

	case *types.Function:
		// Closures are lowered to a fat-pointer pair {fn, env}, matching
		// the expression emitter's closure representation (§4.9 Closure).
		return closureStructType(), nil

	default:
		return nil, errors.Errorf("unsupported type variant %T in type lowerer", t)
	}
}

func (tl *TypeLowerer) lowerPrimitive(p *types.Primitive) (lltypes.Type, error) {
	switch p.Kind {
	case types.Unit:
		// Callers distinguish struct/data position (use {}) from return
		// position (use void) themselves; Lower always yields the
		// data-position form per §4.2's table.
		return lltypes.NewStruct(), nil
	case types.Bool:
		return lltypes.I1, nil
	case types.I8, types.U8:
		return lltypes.I8, nil
	case types.I16, types.U16:
		return lltypes.I16, nil
	case types.I32, types.U32:
		return lltypes.I32, nil
	case types.I64, types.U64:
		return lltypes.I64, nil
	case types.I128, types.U128:
		return lltypes.I128, nil
	case types.F32:
		return lltypes.Float, nil
	case types.F64:
		return lltypes.Double, nil
	case types.Str:
		return lltypes.I8Ptr, nil
	default:
		return nil, errors.Errorf("unsupported primitive kind %q", p.Kind)
	}
}

// LowerReturn is Lower, except Unit maps to void rather than {} (§4.2).
func (tl *TypeLowerer) LowerReturn(t types.Type) (lltypes.Type, error) {
	if p, ok := t.(*types.Primitive); ok && p.Kind == types.Unit {
		return lltypes.Void, nil
	}
	if t == nil {
		return lltypes.Void, nil
	}
	return tl.Lower(t)
}

// lowerBuiltinGeneric lowers Poll[T] and Outcome[T, E] to a flat, by-value
// { i32 tag, T payload } pair rather than the general boxed-enum
// representation: both are compiler-introduced wrapper types (the implicit
// async return wrapper and the `!`/FromStr/Deserialize result type, §4.8)
// with no source-level declaration to instantiate against, and every
// consumer (emitAsyncReturn, emitTry, emitAwait, deriveDeserialize's ad hoc
// outcomeType) already assumes a struct it can insertvalue/extractvalue
// into directly at index 1. Outcome's Err type never needs its own slot:
// the engine's try/await lowering never inspects payload contents on the
// error/pending path, only the tag (§4.8's immediate-resolution model).
func (tl *TypeLowerer) lowerBuiltinGeneric(g *types.GenericInstance) (lltypes.Type, error) {
	if g.Base != "Poll" && g.Base != "Outcome" {
		return nil, errors.Errorf("%q is not a builtin generic wrapper", g.Base)
	}
	payload, err := tl.Lower(g.Args[0])
	if err != nil {
		return nil, err
	}
	return lltypes.NewStruct(lltypes.I32, payload), nil
}

func (tl *TypeLowerer) lowerNamedStruct(s *types.Struct) (lltypes.Type, error) {
	if s.IsGeneric() {
		return nil, errors.Errorf("struct %q is generic and must be instantiated before lowering", s.Name)
	}
	mangled := sanitizeModulePath(s.Name)
	if cached, ok := tl.ctx.Tables.LLStructTypes[mangled]; ok {
		return lltypes.NewPointer(cached), nil
	}
	// A not-yet-seen concrete struct is defined on first reference.
	def, _, err := tl.ctx.defineStruct(mangled, s.Fields)
	if err != nil {
		return nil, err
	}
	return lltypes.NewPointer(def), nil
}

func (tl *TypeLowerer) lowerNamedEnum(e *types.Enum) (lltypes.Type, error) {
	if e.IsGeneric() {
		return nil, errors.Errorf("enum %q is generic and must be instantiated before lowering", e.Name)
	}
	mangled := sanitizeModulePath(e.Name)
	if cached, ok := tl.ctx.Tables.LLEnumTypes[mangled]; ok {
		return lltypes.NewPointer(cached), nil
	}
	def, err := tl.ctx.defineEnum(mangled, e.Variants)
	if err != nil {
		return nil, err
	}
	return lltypes.NewPointer(def), nil
}

// closureStructType is the uniform {fn_ptr, env_ptr} representation used
// for every closure value regardless of its captured-variable set.
func closureStructType() *lltypes.StructType {
	return lltypes.NewStruct(lltypes.I8Ptr, lltypes.I8Ptr)
}

// sizeOf computes the size in bytes of an LLVM type using the fixed table
// in §4.2, recursing through anonymous tuples and, via structFieldSizes,
// named struct field tables. It never consults target datalayout: the
// table is an engine-internal convention for enum payload sizing only.
func (tl *TypeLowerer) sizeOf(t lltypes.Type) int {
	switch v := t.(type) {
	case *lltypes.IntType:
		switch v.BitSize {
		case 1, 8:
			return 1
		case 16:
			return 2
		case 32:
			return 4
		case 64:
			return 8
		case 128:
			return 16
		default:
			return int((v.BitSize + 7) / 8)
		}
	case *lltypes.FloatType:
		if v.Kind == lltypes.FloatKindFloat {
			return 4
		}
		return 8
	case *lltypes.PointerType:
		return 8
	case *lltypes.StructType:
		if v.TypeName != "" {
			if fields, ok := tl.ctx.Tables.StructFieldLLTypes[v.TypeName]; ok {
				total := 0
				for _, f := range fields {
					total += tl.sizeOf(f)
				}
				return total
			}
		}
		total := 0
		for _, f := range v.Fields {
			total += tl.sizeOf(f)
		}
		return total
	case *lltypes.ArrayType:
		return int(v.Len) * tl.sizeOf(v.ElemType)
	case *lltypes.VoidType:
		return 0
	default:
		return 8
	}
}

// payloadWords returns how many i64 words an enum payload array needs so
// the payload area is 8-byte aligned and large enough for the widest
// variant: ceil(max_variant_bytes / 8).
func payloadWords(maxBytes int) int {
	if maxBytes <= 0 {
		return 0
	}
	return (maxBytes + 7) / 8
}

// llText renders an LLVM type to its exact textual form by hand, rather
// than trusting github.com/llir/llvm's own Stringer: Testable Properties
// (spec §8) pin exact literal instruction text, and every other component
// in this engine already builds IR as strings for the same reason (see
// SPEC_FULL.md's DOMAIN STACK section). A named struct/enum renders as its
// use-site reference ("%struct.foo"); an anonymous one renders its full
// body inline, matching the teacher's own type-to-string conventions.
func llText(t lltypes.Type) string {
	switch v := t.(type) {
	case *lltypes.VoidType:
		return "void"
	case *lltypes.IntType:
		return "i" + itoaFast(int(v.BitSize))
	case *lltypes.FloatType:
		if v.Kind == lltypes.FloatKindFloat {
			return "float"
		}
		return "double"
	case *lltypes.PointerType:
		return llText(v.ElemType) + "*"
	case *lltypes.ArrayType:
		return "[" + itoaFast(int(v.Len)) + " x " + llText(v.ElemType) + "]"
	case *lltypes.StructType:
		if v.TypeName != "" {
			return "%" + v.TypeName
		}
		parts := make([]string, len(v.Fields))
		for i, f := range v.Fields {
			parts[i] = llText(f)
		}
		return "{ " + strings.Join(parts, ", ") + " }"
	default:
		return t.String()
	}
}

// structBodyText renders a struct's body definition (the right-hand side of
// "%name = type ..."), always inline even when TypeName is set.
func structBodyText(s *lltypes.StructType) string {
	parts := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		parts[i] = llText(f)
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

func itoaFast(n int) string {
	return strconv.Itoa(n)
}
