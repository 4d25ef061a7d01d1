package llvm

import (
	"fmt"

	"github.com/hivellm/tml-sub014/internal/ast"
)

// emitDebugSubprogram allocates and emits a DISubprogram for the function
// about to be defined when EmitDebugInfo is set (§4.8/§6's DebugLevel
// option), returning the " !dbg !N" suffix to append to the define line (or
// "" when debug info is off). The compile-unit/file/module-flags trio is
// emitted once per module, lazily, on first use.
//
// Grounded on the teacher's per-function emission bracketing
// (internal/codegen/llvm/function.go): debug-info bookkeeping is threaded
// through the same BeginFunction/EndFunction scope as register/label state
// rather than collected in a separate pass.
func (c *Context) emitDebugSubprogram(d *ast.FuncDecl, sig *FuncSig) (string, error) {
	if !c.Opts.EmitDebugInfo {
		return "", nil
	}
	c.ensureDebugCompileUnit()

	spID := c.Names.FreshDebugID()
	c.Current.DebugScopeID = spID
	fmt.Fprintf(&c.Buf.Prelude,
		"!%d = distinct !DISubprogram(name: \"%s\", scope: !%d, file: !%d, unit: !%d, type: !%d, spFlags: DISPFlagDefinition)\n",
		spID, sig.Symbol, c.debugFileID, c.debugFileID, c.debugCUID, c.debugSubroutineTypeID)
	return fmt.Sprintf(" !dbg !%d", spID), nil
}

// ensureDebugCompileUnit emits the one-time DIFile/DICompileUnit/
// DISubroutineType/module-flags header every DISubprogram in the module
// refers back into.
func (c *Context) ensureDebugCompileUnit() {
	if c.debugCUEmitted {
		return
	}
	c.debugCUEmitted = true
	c.debugFileID = c.Names.FreshDebugID()
	c.debugCUID = c.Names.FreshDebugID()
	c.debugSubroutineTypeID = c.Names.FreshDebugID()
	flagsID := c.Names.FreshDebugID()

	fmt.Fprintf(&c.Buf.Prelude, "!%d = !DIFile(filename: \"module.tml\", directory: \".\")\n", c.debugFileID)
	fmt.Fprintf(&c.Buf.Prelude,
		"!%d = distinct !DICompileUnit(language: DW_LANG_C99, file: !%d, producer: \"tmlc\", isOptimized: false, runtimeVersion: 0, emissionKind: FullDebug)\n",
		c.debugCUID, c.debugFileID)
	fmt.Fprintf(&c.Buf.Prelude, "!%d = !DISubroutineType(types: !{})\n", c.debugSubroutineTypeID)
	fmt.Fprintf(&c.Buf.Prelude, "!%d = !{i32 2, !\"Debug Info Version\", i32 3}\n", flagsID)
	fmt.Fprintf(&c.Buf.Prelude, "!llvm.dbg.cu = !{!%d}\n", c.debugCUID)
	fmt.Fprintf(&c.Buf.Prelude, "!llvm.module.flags = !{!%d}\n", flagsID)
}

// emitDebugParamDeclare emits a DILocalVariable plus the llvm.dbg.declare
// call that binds it to a parameter's alloca, gated on DebugLevel >= 2
// (§6's options table: "2 = plus parameters").
func (c *Context) emitDebugParamDeclare(name string, argIdx int, reg, llty string) {
	varID := c.Names.FreshDebugID()
	exprID := c.Names.FreshDebugID()
	fmt.Fprintf(&c.Buf.Prelude,
		"!%d = !DILocalVariable(name: \"%s\", arg: %d, scope: !%d, file: !%d)\n",
		varID, name, argIdx, c.Current.DebugScopeID, c.debugFileID)
	fmt.Fprintf(&c.Buf.Prelude, "!%d = !DIExpression()\n", exprID)
	fmt.Fprintf(&c.Buf.Body,
		"  call void @llvm.dbg.declare(metadata %s* %s, metadata !%d, metadata !%d)\n",
		llty, reg, varID, exprID)
}
