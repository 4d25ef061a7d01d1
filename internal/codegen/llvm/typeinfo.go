package llvm

import (
	"fmt"
	"hash/fnv"
)

// Reflect's (§4.7) type-kind tags, stored in TypeInfo.kind.
const (
	typeKindStruct = 0
	typeKindEnum   = 1
)

// ensureTypeInfoType emits the %struct.TypeInfo definition exactly once per
// module: { i64 id, i32 kind, i32 count, i64 size, i64 align }. size/align
// stay zero placeholders (§9 Open Question: the engine doesn't compute
// target-specific layout, so Reflect exposes only what genStructDecl/
// defineEnum already know).
func (c *Context) ensureTypeInfoType() {
	if c.typeInfoDefEmitted {
		return
	}
	c.typeInfoDefEmitted = true
	fmt.Fprintf(&c.Buf.Prelude, "%%struct.TypeInfo = type { i64, i32, i32, i64, i64 }\n")
}

// emitTypeInfoGlobal emits a constant @tml_typeinfo_<mangled> TypeInfo
// record for a struct or enum, keyed by an FNV-1a hash of its mangled name,
// and returns the global's reference (e.g. "@tml_typeinfo_Point") for use
// as a %struct.TypeInfo* return value.
func (c *Context) emitTypeInfoGlobal(mangled string, kind, count int) string {
	c.ensureTypeInfoType()
	id := fnv.New64a()
	id.Write([]byte(mangled))
	symbol := "@tml_typeinfo_" + mangled
	fmt.Fprintf(&c.Buf.Prelude, "%s = constant %%struct.TypeInfo { i64 %d, i32 %d, i32 %d, i64 0, i64 0 }\n",
		symbol, id.Sum64(), kind, count)
	return symbol
}
