package llvm

import (
	"fmt"
	"strings"

	lltypes "github.com/llir/llvm/ir/types"

	"github.com/hivellm/tml-sub014/internal/ast"
	"github.com/hivellm/tml-sub014/internal/types"
	"github.com/pkg/errors"
)

// defineStruct lowers a concrete (non-generic) struct's fields, emits its
// %struct.<mangled> type definition to the prelude stream exactly once, and
// records it in every table a later component needs: the LLVM type cache
// (for the lowerer), the textual type name (for pointer/GEP emission), and
// the ordered field slot table (for field-access codegen).
//
// Grounded on the teacher's genStructDecl (internal/codegen/llvm/decls.go):
// same "define named struct, register in symbol tables, return" shape,
// adapted to build a *lltypes.StructType instead of joining strings by hand.
func (c *Context) defineStruct(mangled string, fields []types.Field) (*lltypes.StructType, []FieldSlot, error) {
	if existing, ok := c.Tables.LLStructTypes[mangled]; ok {
		return existing, c.Tables.StructFields[mangled], nil
	}

	llFields := make([]lltypes.Type, len(fields))
	slots := make([]FieldSlot, len(fields))
	for i, f := range fields {
		lowered, err := c.TypeLowerer.Lower(f.Type)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "lowering field %q of struct %q", f.Name, mangled)
		}
		llFields[i] = lowered
		slots[i] = FieldSlot{Name: f.Name, Index: i, LLVMType: llText(lowered)}
	}

	def := lltypes.NewStruct(llFields...)
	def.TypeName = "struct." + mangled

	c.Tables.LLStructTypes[mangled] = def
	c.Tables.StructTypes[mangled] = "%" + def.TypeName
	c.Tables.StructFields[mangled] = slots
	c.Tables.StructFieldLLTypes[mangled] = llFields

	fmt.Fprintf(&c.Buf.Prelude, "%%%s = type %s\n", def.TypeName, structBodyText(def))
	return def, slots, nil
}

// defineEnum lowers a concrete (non-generic) enum to its tagged-union
// representation: { i32 tag, [N x i64] payload }, where N is big enough to
// hold the widest variant's payload. Emits the definition once and records
// the variant->tag table used by match-arm codegen.
func (c *Context) defineEnum(mangled string, variants []types.Variant) (*lltypes.StructType, error) {
	if existing, ok := c.Tables.LLEnumTypes[mangled]; ok {
		return existing, nil
	}

	maxBytes := 0
	variantTags := make(map[string]int, len(variants))
	for i, v := range variants {
		variantTags[v.Name] = i
		bytes := 0
		for _, p := range v.Payload {
			lowered, err := c.TypeLowerer.Lower(p)
			if err != nil {
				return nil, errors.Wrapf(err, "lowering payload of variant %q of enum %q", v.Name, mangled)
			}
			bytes += c.TypeLowerer.sizeOf(lowered)
		}
		if bytes > maxBytes {
			maxBytes = bytes
		}
	}

	words := payloadWords(maxBytes)
	var def *lltypes.StructType
	if words == 0 {
		def = lltypes.NewStruct(lltypes.I32)
	} else {
		def = lltypes.NewStruct(lltypes.I32, lltypes.NewArray(uint64(words), lltypes.I64))
	}
	def.TypeName = "enum." + mangled

	c.Tables.LLEnumTypes[mangled] = def
	c.Tables.EnumTypes[mangled] = "%" + def.TypeName
	c.Tables.EnumVariants[mangled] = variantTags

	fmt.Fprintf(&c.Buf.Prelude, "%%%s = type %s\n", def.TypeName, structBodyText(def))
	return def, nil
}

// genStructDecl emits a non-generic struct declaration directly; generic
// ones are queued for on-demand instantiation instead (§4.4).
func (c *Context) genStructDecl(d *ast.StructDecl) error {
	if d.IsGeneric() {
		c.Insts.QueueStruct(d)
		return nil
	}
	fields := make([]types.Field, len(d.Fields))
	for i, f := range d.Fields {
		fields[i] = types.Field{Name: f.Name.Name, Type: f.Type}
	}
	mangled := sanitizeModulePath(d.Name.Name)
	_, slots, err := c.defineStruct(mangled, fields)
	if err != nil {
		return err
	}
	return c.expandDerives(mangled, ast.ParseDerives(d.Attrs), slots)
}

// genEnumDecl emits a non-generic enum declaration directly; generic ones
// are queued.
func (c *Context) genEnumDecl(d *ast.EnumDecl) error {
	if d.IsGeneric() {
		c.Insts.QueueEnum(d)
		return nil
	}
	variants := make([]types.Variant, len(d.Variants))
	for i, v := range d.Variants {
		variants[i] = types.Variant{Name: v.Name.Name, Payload: v.Payload}
	}
	mangled := sanitizeModulePath(d.Name.Name)
	if _, err := c.defineEnum(mangled, variants); err != nil {
		return err
	}
	return c.expandEnumDerives(mangled, ast.ParseDerives(d.Attrs), variants)
}

// registerFuncDecl builds and registers a function's signature without
// emitting its body, so every sibling function in a module can resolve
// forward calls before any body is generated. Generic functions are queued
// for on-demand instantiation instead (§4.4); extern ones emit their
// `declare` immediately, since it has no body phase to defer.
func (c *Context) registerFuncDecl(moduleName string, d *ast.FuncDecl) error {
	if d.IsGeneric() {
		c.Insts.QueueFunc(d)
		return nil
	}

	symbol := implMethodSymbol(d.ImplOf, d.Name.Name)
	if d.ImplOf == "" {
		symbol = "tml_" + d.Name.Name
	}
	if spec, ok := d.Extern(); ok {
		symbol = d.Name.Name
		_ = spec // ABI is informational; the engine only emits a declare.
		return c.emitExternDecl(d, symbol)
	}

	sig, err := c.buildFuncSig(d, symbol)
	if err != nil {
		return err
	}
	c.registerFuncSig(moduleName, d, sig)
	return nil
}

// emitFuncDeclBody emits a previously registered function's body, skipping
// generic/extern/bodiless declarations and any symbol already emitted
// under this FuncKey (cross-module re-import dedupe, REDESIGN FLAG §9).
func (c *Context) emitFuncDeclBody(moduleName string, d *ast.FuncDecl) error {
	if d.IsGeneric() || d.Body == nil {
		return nil
	}
	if _, ok := d.Extern(); ok {
		return nil
	}
	symbol := implMethodSymbol(d.ImplOf, d.Name.Name)
	if d.ImplOf == "" {
		symbol = "tml_" + d.Name.Name
	}
	key := FuncKey{Module: moduleName, Mangled: symbol}
	if c.Tables.Emitted[key] {
		return nil
	}
	c.Tables.Emitted[key] = true

	sig, ok := c.Tables.Functions.Lookup(symbol)
	if !ok {
		return errors.Errorf("function %q emitted before being registered", symbol)
	}
	return c.emitFunctionBody(d, sig)
}

// buildFuncSig lowers a function's parameter and return types without
// emitting anything, for use by both direct declarations and on-demand
// generic instantiations.
func (c *Context) buildFuncSig(d *ast.FuncDecl, symbol string) (*FuncSig, error) {
	paramTypes := make([]string, 0, len(d.Params)+1)
	if d.ImplOf != "" && !d.IsStatic {
		paramTypes = append(paramTypes, "%struct."+sanitizeModulePath(d.ImplOf)+"*")
	}
	for _, p := range d.Params {
		lowered, err := c.TypeLowerer.Lower(p.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "lowering parameter %q of %q", p.Name.Name, d.Name.Name)
		}
		paramTypes = append(paramTypes, llText(lowered))
	}

	declaredReturn := d.ReturnType
	isAsync := d.IsAsync
	if isAsync {
		declaredReturn = types.Poll(orUnit(declaredReturn))
	}
	retLL, err := c.TypeLowerer.LowerReturn(declaredReturn)
	if err != nil {
		return nil, errors.Wrapf(err, "lowering return type of %q", d.Name.Name)
	}

	retText := llText(retLL)
	fnType := retText + " (" + strings.Join(paramTypes, ", ") + ")"
	return &FuncSig{
		Symbol:     symbol,
		LLVMFnType: fnType,
		ReturnType: retText,
		ParamTypes: paramTypes,
		IsAsync:    isAsync,
	}, nil
}

func orUnit(t types.Type) types.Type {
	if t == nil {
		return types.TUnit
	}
	return t
}

// registerFuncSig makes sig reachable under every key the symbol table
// multiplexes (REDESIGN FLAG: FunctionIndex, §9): emitted symbol, short
// name, module-qualified name, and impl-method-qualified name.
func (c *Context) registerFuncSig(moduleName string, d *ast.FuncDecl, sig *FuncSig) {
	keys := []string{sig.Symbol, d.Name.Name, moduleName + "." + d.Name.Name}
	if d.ImplOf != "" {
		keys = append(keys, d.ImplOf+"."+d.Name.Name, sanitizeModulePath(d.ImplOf)+"_"+d.Name.Name)
	}
	c.Tables.Functions.Register(sig, keys...)
}

// emitExternDecl emits an LLVM `declare` for an @extern function: no body,
// just the signature, matching the teacher's handling of FFI imports.
func (c *Context) emitExternDecl(d *ast.FuncDecl, symbol string) error {
	paramTypes := make([]string, len(d.Params))
	for i, p := range d.Params {
		lowered, err := c.TypeLowerer.Lower(p.Type)
		if err != nil {
			return errors.Wrapf(err, "lowering extern parameter %q of %q", p.Name.Name, d.Name.Name)
		}
		paramTypes[i] = llText(lowered)
	}
	retLL, err := c.TypeLowerer.LowerReturn(d.ReturnType)
	if err != nil {
		return err
	}
	retText := llText(retLL)
	sig := &FuncSig{Symbol: symbol, ReturnType: retText, ParamTypes: paramTypes}
	c.Tables.Functions.Register(sig, d.Name.Name)
	fmt.Fprintf(&c.Buf.Prelude, "declare %s @%s(%s)\n", retText, symbol, strings.Join(paramTypes, ", "))
	return nil
}

// emitFuncInstantiation builds a concrete FuncDecl-shaped signature for a
// generic function applied to args, then emits its body under the mangled
// symbol. Called by the instantiation registry, never directly.
func (c *Context) emitFuncInstantiation(d *ast.FuncDecl, args []types.Type, mangled string) error {
	env := types.NewEnv(paramsFor(d.TypeParams), args)
	concreteParams := make([]ast.Param, len(d.Params))
	for i, p := range d.Params {
		concreteParams[i] = ast.Param{Name: p.Name, Type: env.Resolve(p.Type), IsSelf: p.IsSelf}
	}
	concrete := &ast.FuncDecl{
		Name:       d.Name,
		Vis:        d.Vis,
		Attrs:      d.Attrs,
		Params:     concreteParams,
		ReturnType: env.Resolve(d.ReturnType),
		IsAsync:    d.IsAsync,
		Body:       d.Body,
		ImplOf:     d.ImplOf,
		IsStatic:   d.IsStatic,
		Sp:         d.Sp,
	}
	sig, err := c.buildFuncSig(concrete, mangled)
	if err != nil {
		return err
	}
	c.Tables.Functions.Register(sig, mangled)
	if concrete.Body == nil {
		return nil
	}
	return c.emitFunctionBody(concrete, sig)
}
