// Package types holds the semantic type representation handed to the
// emission engine by the (external) type checker. The engine never
// constructs these on its own initiative except when substituting generic
// parameters during monomorphization.
package types

import (
	"fmt"
	"strings"
)

// Type is a semantic type as resolved by the checker.
type Type interface {
	String() string
	isType()
}

// PrimitiveKind enumerates the primitive kinds the source language exposes.
type PrimitiveKind string

const (
	Unit PrimitiveKind = "Unit"
	Bool PrimitiveKind = "Bool"
	I8   PrimitiveKind = "I8"
	U8   PrimitiveKind = "U8"
	I16  PrimitiveKind = "I16"
	U16  PrimitiveKind = "U16"
	I32  PrimitiveKind = "I32"
	U32  PrimitiveKind = "U32"
	I64  PrimitiveKind = "I64"
	U64  PrimitiveKind = "U64"
	I128 PrimitiveKind = "I128"
	U128 PrimitiveKind = "U128"
	F32  PrimitiveKind = "F32"
	F64  PrimitiveKind = "F64"
	Str  PrimitiveKind = "Str"
)

// Primitive is a built-in scalar type.
type Primitive struct{ Kind PrimitiveKind }

func (p *Primitive) String() string { return string(p.Kind) }
func (p *Primitive) isType()        {}

var (
	TUnit = &Primitive{Kind: Unit}
	TBool = &Primitive{Kind: Bool}
	TI8   = &Primitive{Kind: I8}
	TU8   = &Primitive{Kind: U8}
	TI16  = &Primitive{Kind: I16}
	TU16  = &Primitive{Kind: U16}
	TI32  = &Primitive{Kind: I32}
	TU32  = &Primitive{Kind: U32}
	TI64  = &Primitive{Kind: I64}
	TU64  = &Primitive{Kind: U64}
	TI128 = &Primitive{Kind: I128}
	TU128 = &Primitive{Kind: U128}
	TF32  = &Primitive{Kind: F32}
	TF64  = &Primitive{Kind: F64}
	TStr  = &Primitive{Kind: Str}
)

// IsInteger reports whether the kind is one of the fixed-width int kinds.
func (p *Primitive) IsInteger() bool {
	switch p.Kind {
	case I8, U8, I16, U16, I32, U32, I64, U64, I128, U128:
		return true
	default:
		return false
	}
}

// IsUnsigned reports whether the kind is an unsigned integer kind.
func (p *Primitive) IsUnsigned() bool {
	switch p.Kind {
	case U8, U16, U32, U64, U128:
		return true
	default:
		return false
	}
}

// IsFloat reports whether the kind is F32 or F64.
func (p *Primitive) IsFloat() bool {
	return p.Kind == F32 || p.Kind == F64
}

// Pointer is a raw pointer type (*T).
type Pointer struct{ Elem Type }

func (t *Pointer) String() string { return "*" + t.Elem.String() }
func (t *Pointer) isType()        {}

// RefKind distinguishes shared from mutable references.
type RefKind int

const (
	RefShared RefKind = iota
	RefMutable
)

// Reference is a borrowed reference (&T / &mut T).
type Reference struct {
	Elem Type
	Kind RefKind
}

func (t *Reference) String() string {
	if t.Kind == RefMutable {
		return "&mut " + t.Elem.String()
	}
	return "&" + t.Elem.String()
}
func (t *Reference) isType() {}

// Array is a fixed-length array type.
type Array struct {
	Elem Type
	Len  int
}

func (t *Array) String() string { return fmt.Sprintf("[%d]%s", t.Len, t.Elem.String()) }
func (t *Array) isType()        {}

// Tuple is an anonymous aggregate.
type Tuple struct{ Elems []Type }

func (t *Tuple) String() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
func (t *Tuple) isType() {}

// Field is a named, ordered struct member.
type Field struct {
	Name string
	Type Type
}

// TypeParam is a generic parameter name (e.g. "T").
type TypeParam struct{ Name string }

// Struct is a nominal aggregate, possibly generic.
type Struct struct {
	Name       string
	TypeParams []TypeParam
	Fields     []Field
}

func (t *Struct) String() string { return t.Name }
func (t *Struct) isType()        {}

// IsGeneric reports whether the struct must be instantiated before use.
func (t *Struct) IsGeneric() bool { return len(t.TypeParams) > 0 }

// Variant is one arm of a tagged union; Payload is empty for unit variants.
type Variant struct {
	Name    string
	Payload []Type
}

// Enum is a tagged union, possibly generic.
type Enum struct {
	Name       string
	TypeParams []TypeParam
	Variants   []Variant
}

func (t *Enum) String() string { return t.Name }
func (t *Enum) isType()        {}

// IsGeneric reports whether the enum must be instantiated before use.
func (t *Enum) IsGeneric() bool { return len(t.TypeParams) > 0 }

// VariantTag returns the ordinal tag of the named variant, in declaration order.
func (t *Enum) VariantTag(name string) (int, bool) {
	for i, v := range t.Variants {
		if v.Name == name {
			return i, true
		}
	}
	return 0, false
}

// Function is a function or closure type.
type Function struct {
	TypeParams []TypeParam
	Params     []Type
	Return     Type
	// Captures is non-nil for a closure's environment type.
	Captures []Field
}

func (t *Function) String() string {
	parts := make([]string, len(t.Params))
	for i, p := range t.Params {
		parts[i] = p.String()
	}
	ret := "Unit"
	if t.Return != nil {
		ret = t.Return.String()
	}
	return "fn(" + strings.Join(parts, ", ") + ") -> " + ret
}
func (t *Function) isType() {}

// Named is an unresolved reference to a generic parameter or a
// not-yet-substituted type, e.g. the "T" inside a generic function body.
type Named struct {
	Name string
	Ref  Type // non-nil once resolved through a substitution map
}

func (t *Named) String() string {
	if t.Ref != nil {
		return t.Ref.String()
	}
	return t.Name
}
func (t *Named) isType() {}

// GenericInstance is a reference to a generic struct/enum/function applied
// to concrete type arguments, e.g. Maybe[I32]. Resolving one through the
// instantiation registry yields the mangled concrete type.
type GenericInstance struct {
	Base string
	Args []Type
}

func (t *GenericInstance) String() string {
	parts := make([]string, len(t.Args))
	for i, a := range t.Args {
		parts[i] = a.String()
	}
	return t.Base + "[" + strings.Join(parts, ", ") + "]"
}
func (t *GenericInstance) isType() {}

// Poll is the implicit wrapper type for an async function's return value:
// Poll[T] ::= Ready(T) | Pending.
func Poll(inner Type) *GenericInstance {
	return &GenericInstance{Base: "Poll", Args: []Type{inner}}
}

// Outcome is the implicit Result-like type used by `!` (try) and FromStr /
// Deserialize: Outcome[T, E] ::= Ok(T) | Err(E).
func Outcome(ok, err Type) *GenericInstance {
	return &GenericInstance{Base: "Outcome", Args: []Type{ok, err}}
}

// Env substitutes generic type parameters with concrete types. It is
// produced by the instantiation registry and threaded through resolution of
// fields, variant payloads, parameters, and return types.
type Env struct {
	subst map[string]Type
}

// NewEnv builds a substitution map from parameter names to concrete args.
// Panics only if params/args lengths differ, a checker invariant.
func NewEnv(params []TypeParam, args []Type) *Env {
	if len(params) != len(args) {
		panic(fmt.Sprintf("type parameter arity mismatch: %d params, %d args", len(params), len(args)))
	}
	subst := make(map[string]Type, len(params))
	for i, p := range params {
		subst[p.Name] = args[i]
	}
	return &Env{subst: subst}
}

// Resolve substitutes every Named occurrence in typ through the env,
// recursing into compound types. Types with no type parameter reference are
// returned unchanged.
func (e *Env) Resolve(typ Type) Type {
	if e == nil || typ == nil {
		return typ
	}
	switch t := typ.(type) {
	case *Named:
		if repl, ok := e.subst[t.Name]; ok {
			return repl
		}
		return t
	case *Pointer:
		return &Pointer{Elem: e.Resolve(t.Elem)}
	case *Reference:
		return &Reference{Elem: e.Resolve(t.Elem), Kind: t.Kind}
	case *Array:
		return &Array{Elem: e.Resolve(t.Elem), Len: t.Len}
	case *Tuple:
		elems := make([]Type, len(t.Elems))
		for i, el := range t.Elems {
			elems[i] = e.Resolve(el)
		}
		return &Tuple{Elems: elems}
	case *GenericInstance:
		args := make([]Type, len(t.Args))
		for i, a := range t.Args {
			args[i] = e.Resolve(a)
		}
		return &GenericInstance{Base: t.Base, Args: args}
	case *Function:
		params := make([]Type, len(t.Params))
		for i, p := range t.Params {
			params[i] = e.Resolve(p)
		}
		return &Function{TypeParams: t.TypeParams, Params: params, Return: e.Resolve(t.Return), Captures: t.Captures}
	default:
		// Primitive, Struct, Enum (non-generic references): no substitution.
		return typ
	}
}
