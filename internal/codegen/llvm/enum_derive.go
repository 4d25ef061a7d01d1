package llvm

import (
	"fmt"

	"github.com/hivellm/tml-sub014/internal/ast"
	"github.com/hivellm/tml-sub014/internal/types"
	"github.com/pkg/errors"
)

// expandEnumDerives is expandDerives' enum counterpart (§4.7): enum
// PartialEq/Eq/Hash/Debug/Display/Reflect compare and format by tag alone,
// since a payload-bearing variant's field types aren't individually
// reachable from the engine's tagged-union representation without a
// per-variant type lookup this engine does not carry (§9's documented
// equality-on-tags-only limitation, preserved verbatim from spec §9/§8
// REDESIGN FLAGS rather than strengthened). Generic enum declarations are
// derived at instantiation time instead, same as genStructDecl/expandDerives.
func (c *Context) expandEnumDerives(mangled string, kinds []ast.DeriveKind, variants []types.Variant) error {
	for _, k := range kinds {
		var err error
		switch k {
		case ast.DerivePartialEq, ast.DeriveEq:
			err = c.deriveEnumEquals(mangled, variants)
		case ast.DeriveHash:
			err = c.deriveEnumHash(mangled, variants)
		case ast.DeriveDebug, ast.DeriveDisplay:
			err = c.deriveEnumToString(mangled, variants)
		case ast.DeriveReflect:
			err = c.deriveEnumReflect(mangled, variants)
		case ast.DeriveDefault, ast.DeriveSerialize, ast.DeriveFromStr, ast.DeriveDeserialize:
			err = errors.Errorf("derive(%v) is not supported on enums", k)
		default:
			err = errors.Errorf("unsupported derive kind %v", k)
		}
		if err != nil {
			return errors.Wrapf(err, "deriving for enum %q", mangled)
		}
	}
	return nil
}

// enumTagOf loads a %enum.<mangled> value's tag field (index 0) from an
// already-typed enum pointer register.
func (c *Context) enumTagOf(enumName, typedReg string) string {
	tagPtr := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Prelude, "  %s = getelementptr %s, %s* %s, i32 0, i32 0\n", tagPtr, enumName, enumName, typedReg)
	tag := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Prelude, "  %s = load i32, i32* %s\n", tag, tagPtr)
	return tag
}

// deriveEnumEquals generates tml_<T>_eq(ptr %this, ptr %other) -> i1,
// comparing tags only (see expandEnumDerives above). Its receivers are opaque
// `ptr`, the same literal form deriveEquals uses for structs (§8 scenario
// 4) — the only other typed-pointer exception besides atomicrmw's pointer
// operand (§8 scenario 6); every other enum-derive method below takes a
// typed `%enum.<mangled>*` receiver instead.
func (c *Context) deriveEnumEquals(mangled string, variants []types.Variant) error {
	enumName := "%enum." + mangled
	symbol := deriveMethodSymbol(c.Opts.SuitePrefix(), mangled, "eq")
	c.beginDeriveMethod(symbol, "i1", []string{"ptr %this", "ptr %other"})

	thisTyped := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Prelude, "  %s = bitcast ptr %%this to %s*\n", thisTyped, enumName)
	otherTyped := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Prelude, "  %s = bitcast ptr %%other to %s*\n", otherTyped, enumName)

	thisTag := c.enumTagOf(enumName, thisTyped)
	otherTag := c.enumTagOf(enumName, otherTyped)
	cmp := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Prelude, "  %s = icmp eq i32 %s, %s\n", cmp, thisTag, otherTag)
	fmt.Fprintf(&c.Buf.Prelude, "  ret i1 %s\n", cmp)
	c.endDeriveMethod()
	return nil
}

// deriveEnumHash generates tml_<T>_hash(%enum.<T>* %v) -> i64, an FNV-1a
// fold over the tag alone.
func (c *Context) deriveEnumHash(mangled string, variants []types.Variant) error {
	enumName := "%enum." + mangled
	symbol := deriveMethodSymbol(c.Opts.SuitePrefix(), mangled, "hash")
	c.beginDeriveMethod(symbol, "i64", []string{enumName + "* %v"})

	tag := c.enumTagOf(enumName, "%v")
	asI64 := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Prelude, "  %s = zext i32 %s to i64\n", asI64, tag)
	mixed := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Prelude, "  %s = xor i64 -3750763034362895579, %s\n", mixed, asI64)
	out := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Prelude, "  %s = mul i64 %s, 1099511628211\n", out, mixed)
	fmt.Fprintf(&c.Buf.Prelude, "  ret i64 %s\n", out)
	c.endDeriveMethod()
	return nil
}

// deriveEnumToString generates tml_<T>_debug/tml_<T>_display(%enum.<T>*
// %v) -> i8*, switching on the tag and returning the matching variant's
// bare name (the tagged-union representation carries no per-variant
// field-name table to format a payload with, so Debug and Display
// coincide for enums).
func (c *Context) deriveEnumToString(mangled string, variants []types.Variant) error {
	enumName := "%enum." + mangled
	for _, method := range []string{"debug", "display"} {
		symbol := deriveMethodSymbol(c.Opts.SuitePrefix(), mangled, method)
		c.beginDeriveMethod(symbol, "i8*", []string{enumName + "* %v"})
		tag := c.enumTagOf(enumName, "%v")

		labels := make([]string, len(variants))
		for i := range variants {
			labels[i] = c.Names.FreshLabel("variant_arm")
		}
		defaultLabel := c.Names.FreshLabel("variant_default")
		fmt.Fprintf(&c.Buf.Prelude, "  switch i32 %s, label %%%s [\n", tag, defaultLabel)
		for i := range variants {
			fmt.Fprintf(&c.Buf.Prelude, "    i32 %d, label %%%s\n", i, labels[i])
		}
		fmt.Fprintf(&c.Buf.Prelude, "  ]\n")
		for i, v := range variants {
			fmt.Fprintf(&c.Buf.Prelude, "%s:\n", labels[i])
			reg, err := c.emitStringConstantInto(&c.Buf.Prelude, v.Name)
			if err != nil {
				return err
			}
			fmt.Fprintf(&c.Buf.Prelude, "  ret i8* %s\n", reg)
		}
		fmt.Fprintf(&c.Buf.Prelude, "%s:\n", defaultLabel)
		fmt.Fprintf(&c.Buf.Prelude, "  ret i8* null\n")
		c.endDeriveMethod()
	}
	return nil
}

// deriveEnumReflect mirrors deriveReflect for enums: a shared TypeInfo
// constant (kind = enum, count = variant count) plus type_info()/
// runtime_type_info(this) accessors, and a variant_name(i32) -> i8*
// accessor analogous to struct Reflect's field_name (§4.7).
func (c *Context) deriveEnumReflect(mangled string, variants []types.Variant) error {
	infoGlobal := c.emitTypeInfoGlobal(mangled, typeKindEnum, len(variants))
	enumName := "%enum." + mangled

	infoSym := deriveMethodSymbol(c.Opts.SuitePrefix(), mangled, "type_info")
	c.beginDeriveMethod(infoSym, "%struct.TypeInfo*", nil)
	fmt.Fprintf(&c.Buf.Prelude, "  ret %%struct.TypeInfo* %s\n", infoGlobal)
	c.endDeriveMethod()

	runtimeSym := deriveMethodSymbol(c.Opts.SuitePrefix(), mangled, "runtime_type_info")
	c.beginDeriveMethod(runtimeSym, "%struct.TypeInfo*", []string{enumName + "* %this"})
	fmt.Fprintf(&c.Buf.Prelude, "  ret %%struct.TypeInfo* %s\n", infoGlobal)
	c.endDeriveMethod()

	nameSym := deriveMethodSymbol(c.Opts.SuitePrefix(), mangled, "variant_name")
	c.beginDeriveMethod(nameSym, "i8*", []string{"i32 %tag"})
	defaultLabel := c.Names.FreshLabel("variant_name_default")
	labels := make([]string, len(variants))
	for i := range variants {
		labels[i] = c.Names.FreshLabel("variant_name_arm")
	}
	fmt.Fprintf(&c.Buf.Prelude, "  switch i32 %%tag, label %%%s [\n", defaultLabel)
	for i := range variants {
		fmt.Fprintf(&c.Buf.Prelude, "    i32 %d, label %%%s\n", i, labels[i])
	}
	fmt.Fprintf(&c.Buf.Prelude, "  ]\n")
	for i, v := range variants {
		fmt.Fprintf(&c.Buf.Prelude, "%s:\n", labels[i])
		reg, err := c.emitStringConstantInto(&c.Buf.Prelude, v.Name)
		if err != nil {
			return err
		}
		fmt.Fprintf(&c.Buf.Prelude, "  ret i8* %s\n", reg)
	}
	fmt.Fprintf(&c.Buf.Prelude, "%s:\n", defaultLabel)
	fmt.Fprintf(&c.Buf.Prelude, "  ret i8* null\n")
	c.endDeriveMethod()
	return nil
}
