package llvm

import (
	"fmt"

	"github.com/hivellm/tml-sub014/internal/ast"
	"github.com/pkg/errors"
)

// expandDerives generates one method per @derive(...) entry on a concrete
// (already-defined) struct, writing each straight to the prelude stream
// alongside the type definition it belongs to (§3: prelude holds type
// defs, derived methods, and constants). Each derived method gets its own
// register/label numbering via BeginFunction/EndFunction, same as any
// other function — only the destination buffer differs.
//
// Covers the full set §4.7 names. The teacher has no derive-macro system
// to ground this on (see DESIGN.md).
func (c *Context) expandDerives(mangled string, kinds []ast.DeriveKind, slots []FieldSlot) error {
	for _, k := range kinds {
		var err error
		switch k {
		case ast.DerivePartialEq, ast.DeriveEq:
			err = c.deriveEquals(mangled, slots)
		case ast.DeriveHash:
			err = c.deriveHash(mangled, slots)
		case ast.DeriveDebug, ast.DeriveDisplay:
			err = c.deriveToString(mangled, slots, k == ast.DeriveDebug)
		case ast.DeriveDefault:
			err = c.deriveDefault(mangled, slots)
		case ast.DeriveSerialize:
			err = c.deriveSerialize(mangled, slots)
		case ast.DeriveFromStr, ast.DeriveDeserialize:
			err = c.deriveDeserialize(mangled, slots, k == ast.DeriveFromStr)
		case ast.DeriveReflect:
			err = c.deriveReflect(mangled, slots)
		default:
			err = errors.Errorf("unsupported derive kind %v", k)
		}
		if err != nil {
			return errors.Wrapf(err, "deriving for %q", mangled)
		}
	}
	return nil
}

// beginDeriveMethod opens a synthesized method's define line. Derived
// methods are always `internal`: they are compiler-generated helpers with
// no independent visibility of their own (§8 scenario 4's
// `define internal i1 @tml_P_eq(...)`), regardless of the owning type's
// own visibility.
func (c *Context) beginDeriveMethod(symbol, retType string, params []string) {
	prev := c.BeginFunction(symbol)
	c.derivePrevFunc = prev
	fmt.Fprintf(&c.Buf.Prelude, "define internal %s @%s(%s) {\n", retType, symbol, joinComma(params))
	fmt.Fprintf(&c.Buf.Prelude, "entry:\n")
}

func (c *Context) endDeriveMethod() {
	fmt.Fprintf(&c.Buf.Prelude, "}\n\n")
	c.EndFunction(c.derivePrevFunc)
	c.derivePrevFunc = nil
}

func joinComma(items []string) string {
	out := ""
	for i, it := range items {
		if i > 0 {
			out += ", "
		}
		out += it
	}
	return out
}

// deriveEquals generates tml_<T>_eq(ptr %this, ptr %other) -> i1, one
// getelementptr/load/compare per field per side, short-circuiting to a
// shared ret_false label on the first mismatch and falling through to
// ret_true once every field has compared equal (§8 scenario 4). The
// parameters are opaque `ptr`, one of the two literal-opaque-pointer forms
// this engine emits (the other is atomicrmw's pointer operand, §8 scenario
// 6) — see typelower.go's llText doc comment for why the rest of the
// engine keeps its typed-pointer convention instead of a wholesale
// opaque-pointer rewrite.
func (c *Context) deriveEquals(mangled string, slots []FieldSlot) error {
	structName := "%struct." + mangled
	symbol := deriveMethodSymbol(c.Opts.SuitePrefix(), mangled, "eq")
	c.beginDeriveMethod(symbol, "i1", []string{"ptr %this", "ptr %other"})

	thisTyped := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Prelude, "  %s = bitcast ptr %%this to %s*\n", thisTyped, structName)
	otherTyped := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Prelude, "  %s = bitcast ptr %%other to %s*\n", otherTyped, structName)

	for i, slot := range slots {
		aPtr := c.Names.FreshReg()
		fmt.Fprintf(&c.Buf.Prelude, "  %s = getelementptr %s, %s* %s, i32 0, i32 %d\n", aPtr, structName, structName, thisTyped, slot.Index)
		bPtr := c.Names.FreshReg()
		fmt.Fprintf(&c.Buf.Prelude, "  %s = getelementptr %s, %s* %s, i32 0, i32 %d\n", bPtr, structName, structName, otherTyped, slot.Index)
		aVal := c.Names.FreshReg()
		fmt.Fprintf(&c.Buf.Prelude, "  %s = load %s, %s* %s\n", aVal, slot.LLVMType, slot.LLVMType, aPtr)
		bVal := c.Names.FreshReg()
		fmt.Fprintf(&c.Buf.Prelude, "  %s = load %s, %s* %s\n", bVal, slot.LLVMType, slot.LLVMType, bPtr)
		cmp := c.Names.FreshReg()
		if slot.LLVMType == "float" || slot.LLVMType == "double" {
			fmt.Fprintf(&c.Buf.Prelude, "  %s = fcmp oeq %s %s, %s\n", cmp, slot.LLVMType, aVal, bVal)
		} else {
			fmt.Fprintf(&c.Buf.Prelude, "  %s = icmp eq %s %s, %s\n", cmp, slot.LLVMType, aVal, bVal)
		}
		contLabel := "ret_true"
		if i < len(slots)-1 {
			contLabel = c.Names.FreshLabel("eq_cont")
		}
		fmt.Fprintf(&c.Buf.Prelude, "  br i1 %s, label %%%s, label %%ret_false\n", cmp, contLabel)
		if i < len(slots)-1 {
			fmt.Fprintf(&c.Buf.Prelude, "%s:\n", contLabel)
		}
	}
	if len(slots) == 0 {
		fmt.Fprintf(&c.Buf.Prelude, "  br label %%ret_true\n")
	}
	fmt.Fprintf(&c.Buf.Prelude, "ret_true:\n")
	fmt.Fprintf(&c.Buf.Prelude, "  ret i1 1\n")
	fmt.Fprintf(&c.Buf.Prelude, "ret_false:\n")
	fmt.Fprintf(&c.Buf.Prelude, "  ret i1 0\n")
	c.endDeriveMethod()
	return nil
}

// deriveHash generates tml_<T>_hash(T* v) -> i64, an FNV-1a-style fold
// over each field's bit pattern.
func (c *Context) deriveHash(mangled string, slots []FieldSlot) error {
	structName := "%struct." + mangled
	symbol := deriveMethodSymbol(c.Opts.SuitePrefix(), mangled, "hash")
	c.beginDeriveMethod(symbol, "i64", []string{structName + "* %v"})

	acc := "-3750763034362895579" // FNV-1a 64-bit offset basis 0xcbf29ce484222325, as a signed i64
	for _, slot := range slots {
		fieldPtr := c.Names.FreshReg()
		fmt.Fprintf(&c.Buf.Prelude, "  %s = getelementptr %s, %s* %%v, i32 0, i32 %d\n", fieldPtr, structName, structName, slot.Index)
		val := c.Names.FreshReg()
		fmt.Fprintf(&c.Buf.Prelude, "  %s = load %s, %s* %s\n", val, slot.LLVMType, slot.LLVMType, fieldPtr)
		asInt := val
		if slot.LLVMType != "i64" {
			casted := c.Names.FreshReg()
			fmt.Fprintf(&c.Buf.Prelude, "  %s = zext %s %s to i64\n", casted, slot.LLVMType, val)
			asInt = casted
		}
		mixed := c.Names.FreshReg()
		fmt.Fprintf(&c.Buf.Prelude, "  %s = xor i64 %s, %s\n", mixed, acc, asInt)
		next := c.Names.FreshReg()
		fmt.Fprintf(&c.Buf.Prelude, "  %s = mul i64 %s, 1099511628211\n", next, mixed)
		acc = next
	}
	fmt.Fprintf(&c.Buf.Prelude, "  ret i64 %s\n", acc)
	c.endDeriveMethod()
	return nil
}

// deriveToString generates tml_<T>_debug or tml_<T>_display, concatenating
// "TypeName { field: value, ... }" (debug) or a plain value join (display).
func (c *Context) deriveToString(mangled string, slots []FieldSlot, debug bool) error {
	structName := "%struct." + mangled
	method := "display"
	if debug {
		method = "debug"
	}
	symbol := deriveMethodSymbol(c.Opts.SuitePrefix(), mangled, method)
	c.beginDeriveMethod(symbol, "i8*", []string{structName + "* %v"})

	prefix := mangled + " { "
	if !debug {
		prefix = ""
	}
	acc, err := c.emitStringConstantInto(&c.Buf.Prelude, prefix)
	if err != nil {
		return err
	}
	for i, slot := range slots {
		fieldPtr := c.Names.FreshReg()
		fmt.Fprintf(&c.Buf.Prelude, "  %s = getelementptr %s, %s* %%v, i32 0, i32 %d\n", fieldPtr, structName, structName, slot.Index)
		val := c.Names.FreshReg()
		fmt.Fprintf(&c.Buf.Prelude, "  %s = load %s, %s* %s\n", val, slot.LLVMType, slot.LLVMType, fieldPtr)
		strVal := c.Names.FreshReg()
		fmt.Fprintf(&c.Buf.Prelude, "  %s = call i8* @%s(%s %s)\n", strVal, runtimeToStringFunc(slot.LLVMType), slot.LLVMType, val)

		label := slot.Name + ": "
		if !debug {
			label = ""
		}
		if i > 0 {
			sep, err := c.emitStringConstantInto(&c.Buf.Prelude, ", "+label)
			if err != nil {
				return err
			}
			acc = c.emitConcatInto(&c.Buf.Prelude, acc, sep)
		} else if debug {
			lbl, err := c.emitStringConstantInto(&c.Buf.Prelude, label)
			if err != nil {
				return err
			}
			acc = c.emitConcatInto(&c.Buf.Prelude, acc, lbl)
		}
		acc = c.emitConcatInto(&c.Buf.Prelude, acc, strVal)
	}
	if debug {
		suffix, err := c.emitStringConstantInto(&c.Buf.Prelude, " }")
		if err != nil {
			return err
		}
		acc = c.emitConcatInto(&c.Buf.Prelude, acc, suffix)
	}
	fmt.Fprintf(&c.Buf.Prelude, "  ret i8* %s\n", acc)
	c.endDeriveMethod()
	return nil
}

// deriveDefault generates tml_<T>_default() -> T*, allocating a
// zero-initialized instance.
func (c *Context) deriveDefault(mangled string, slots []FieldSlot) error {
	structName := "%struct." + mangled
	symbol := deriveMethodSymbol(c.Opts.SuitePrefix(), mangled, "default")
	c.beginDeriveMethod(symbol, structName+"*", nil)

	sizeReg := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Prelude, "  %s = getelementptr %s, %s* null, i32 1\n", sizeReg, structName, structName)
	sizeInt := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Prelude, "  %s = ptrtoint %s* %s to i64\n", sizeInt, structName, sizeReg)
	raw := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Prelude, "  %s = call i8* @tml_alloc(i64 %s)\n", raw, sizeInt)
	fmt.Fprintf(&c.Buf.Prelude, "  call void @tml_zero(i8* %s, i64 %s)\n", raw, sizeInt)
	ptr := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Prelude, "  %s = bitcast i8* %s to %s*\n", ptr, raw, structName)
	fmt.Fprintf(&c.Buf.Prelude, "  ret %s* %s\n", structName, ptr)
	c.endDeriveMethod()
	return nil
}

// deriveSerialize generates tml_<T>_serialize(T* v) -> i8*, building JSON
// object text with one "name":value entry per field (§4.7: Serialize).
func (c *Context) deriveSerialize(mangled string, slots []FieldSlot) error {
	structName := "%struct." + mangled
	symbol := deriveMethodSymbol(c.Opts.SuitePrefix(), mangled, "serialize")
	c.beginDeriveMethod(symbol, "i8*", []string{structName + "* %v"})

	open, err := c.emitStringConstantInto(&c.Buf.Prelude, "{")
	if err != nil {
		return err
	}
	acc := open
	for i, slot := range slots {
		fieldPtr := c.Names.FreshReg()
		fmt.Fprintf(&c.Buf.Prelude, "  %s = getelementptr %s, %s* %%v, i32 0, i32 %d\n", fieldPtr, structName, structName, slot.Index)
		val := c.Names.FreshReg()
		fmt.Fprintf(&c.Buf.Prelude, "  %s = load %s, %s* %s\n", val, slot.LLVMType, slot.LLVMType, fieldPtr)
		strVal := c.Names.FreshReg()
		fmt.Fprintf(&c.Buf.Prelude, "  %s = call i8* @%s(%s %s)\n", strVal, runtimeToStringFunc(slot.LLVMType), slot.LLVMType, val)
		sep := `"` + slot.Name + `":`
		if i > 0 {
			sep = `,"` + slot.Name + `":`
		}
		sepReg, err := c.emitStringConstantInto(&c.Buf.Prelude, sep)
		if err != nil {
			return err
		}
		acc = c.emitConcatInto(&c.Buf.Prelude, acc, sepReg)
		acc = c.emitConcatInto(&c.Buf.Prelude, acc, strVal)
	}
	closeBrace, err := c.emitStringConstantInto(&c.Buf.Prelude, "}")
	if err != nil {
		return err
	}
	acc = c.emitConcatInto(&c.Buf.Prelude, acc, closeBrace)
	fmt.Fprintf(&c.Buf.Prelude, "  ret i8* %s\n", acc)
	c.endDeriveMethod()
	return nil
}

// deriveDeserialize generates tml_<T>_from_str / tml_<T>_deserialize, both
// returning Outcome[T*, i8*]: parse the input through tml_json_parse, bail
// into the Err arm (tag 1) on a null result, otherwise allocate a
// zero-initialized instance (reusing the Default allocation sequence) and
// fill each field with the matching tml_json_get_* accessor keyed by field
// name, before freeing the parsed document and returning the Ok arm.
func (c *Context) deriveDeserialize(mangled string, slots []FieldSlot, fromStr bool) error {
	structName := "%struct." + mangled
	method := "deserialize"
	if fromStr {
		method = "from_str"
	}
	symbol := deriveMethodSymbol(c.Opts.SuitePrefix(), mangled, method)
	outcomeType := "{ i32, " + structName + "* }"
	c.beginDeriveMethod(symbol, outcomeType, []string{"i8* %input"})

	doc := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Prelude, "  %s = call i8* @tml_json_parse(i8* %%input)\n", doc)
	isNull := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Prelude, "  %s = icmp eq i8* %s, null\n", isNull, doc)
	okLabel := c.Names.FreshLabel("deserialize_ok")
	errLabel := c.Names.FreshLabel("deserialize_err")
	fmt.Fprintf(&c.Buf.Prelude, "  br i1 %s, label %%%s, label %%%s\n", isNull, errLabel, okLabel)

	fmt.Fprintf(&c.Buf.Prelude, "%s:\n", errLabel)
	errVal := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Prelude, "  %s = insertvalue %s zeroinitializer, i32 1, 0\n", errVal, outcomeType)
	fmt.Fprintf(&c.Buf.Prelude, "  ret %s %s\n", outcomeType, errVal)

	fmt.Fprintf(&c.Buf.Prelude, "%s:\n", okLabel)
	defaultSym := deriveMethodSymbol(c.Opts.SuitePrefix(), mangled, "default")
	inst := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Prelude, "  %s = call %s* @%s()\n", inst, structName, defaultSym)
	for _, slot := range slots {
		keyReg, err := c.emitStringConstantInto(&c.Buf.Prelude, slot.Name)
		if err != nil {
			return err
		}
		val, err := c.emitJSONFieldLoad(doc, keyReg, slot.LLVMType)
		if err != nil {
			return err
		}
		fieldPtr := c.Names.FreshReg()
		fmt.Fprintf(&c.Buf.Prelude, "  %s = getelementptr %s, %s* %s, i32 0, i32 %d\n", fieldPtr, structName, structName, inst, slot.Index)
		fmt.Fprintf(&c.Buf.Prelude, "  store %s %s, %s* %s\n", slot.LLVMType, val, slot.LLVMType, fieldPtr)
	}
	fmt.Fprintf(&c.Buf.Prelude, "  call void @tml_json_free(i8* %s)\n", doc)

	out := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Prelude, "  %s = insertvalue %s zeroinitializer, i32 0, 0\n", out, outcomeType)
	out2 := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Prelude, "  %s = insertvalue %s %s, %s* %s, 1\n", out2, outcomeType, out, structName, inst)
	fmt.Fprintf(&c.Buf.Prelude, "  ret %s %s\n", outcomeType, out2)
	c.endDeriveMethod()
	return nil
}

// emitJSONFieldLoad reads one field out of a parsed JSON document via the
// runtime's typed accessors, narrowing the result to llty where the
// accessor's natural width is wider (tml_json_get_i64/f64 cover every
// integer/float field size).
func (c *Context) emitJSONFieldLoad(doc, key, llty string) (string, error) {
	switch llty {
	case "i8*":
		reg := c.Names.FreshReg()
		fmt.Fprintf(&c.Buf.Prelude, "  %s = call i8* @tml_json_get_string(i8* %s, i8* %s)\n", reg, doc, key)
		return reg, nil
	case "i1":
		reg := c.Names.FreshReg()
		fmt.Fprintf(&c.Buf.Prelude, "  %s = call i1 @tml_json_get_bool(i8* %s, i8* %s)\n", reg, doc, key)
		return reg, nil
	case "float", "double":
		reg := c.Names.FreshReg()
		fmt.Fprintf(&c.Buf.Prelude, "  %s = call double @tml_json_get_f64(i8* %s, i8* %s)\n", reg, doc, key)
		if llty == "double" {
			return reg, nil
		}
		narrowed := c.Names.FreshReg()
		fmt.Fprintf(&c.Buf.Prelude, "  %s = fptrunc double %s to float\n", narrowed, reg)
		return narrowed, nil
	default:
		reg := c.Names.FreshReg()
		fmt.Fprintf(&c.Buf.Prelude, "  %s = call i64 @tml_json_get_i64(i8* %s, i8* %s)\n", reg, doc, key)
		if llty == "i64" {
			return reg, nil
		}
		narrowed := c.Names.FreshReg()
		fmt.Fprintf(&c.Buf.Prelude, "  %s = trunc i64 %s to %s\n", narrowed, reg, llty)
		return narrowed, nil
	}
}

// deriveReflect generates a shared %struct.TypeInfo constant (§4.7: FNV-1a
// id, kind = struct, field count) plus tml_<T>_type_info() and
// tml_<T>_runtime_type_info(this) accessors returning it, and
// tml_<T>_field_name(i32) -> i8* for per-field introspection.
func (c *Context) deriveReflect(mangled string, slots []FieldSlot) error {
	infoGlobal := c.emitTypeInfoGlobal(mangled, typeKindStruct, len(slots))
	structName := "%struct." + mangled

	infoSym := deriveMethodSymbol(c.Opts.SuitePrefix(), mangled, "type_info")
	c.beginDeriveMethod(infoSym, "%struct.TypeInfo*", nil)
	fmt.Fprintf(&c.Buf.Prelude, "  ret %%struct.TypeInfo* %s\n", infoGlobal)
	c.endDeriveMethod()

	runtimeSym := deriveMethodSymbol(c.Opts.SuitePrefix(), mangled, "runtime_type_info")
	c.beginDeriveMethod(runtimeSym, "%struct.TypeInfo*", []string{structName + "* %this"})
	fmt.Fprintf(&c.Buf.Prelude, "  ret %%struct.TypeInfo* %s\n", infoGlobal)
	c.endDeriveMethod()

	nameSym := deriveMethodSymbol(c.Opts.SuitePrefix(), mangled, "field_name")
	c.beginDeriveMethod(nameSym, "i8*", []string{"i32 %idx"})
	defaultLabel := c.Names.FreshLabel("reflect_default")
	cases := make([]string, len(slots))
	labels := make([]string, len(slots))
	for i, slot := range slots {
		labels[i] = c.Names.FreshLabel("reflect_field")
		cases[i] = fmt.Sprintf("i32 %d, label %%%s", i, labels[i])
		_ = slot
	}
	fmt.Fprintf(&c.Buf.Prelude, "  switch i32 %%idx, label %%%s [\n", defaultLabel)
	for _, cs := range cases {
		fmt.Fprintf(&c.Buf.Prelude, "    %s\n", cs)
	}
	fmt.Fprintf(&c.Buf.Prelude, "  ]\n")
	for i, slot := range slots {
		fmt.Fprintf(&c.Buf.Prelude, "%s:\n", labels[i])
		reg, err := c.emitStringConstantInto(&c.Buf.Prelude, slot.Name)
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
