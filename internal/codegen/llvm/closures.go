package llvm

import (
	"fmt"
	"strings"

	"github.com/hivellm/tml-sub014/internal/ast"
)

// pendingClosure is a queued closure body awaiting emission as a sibling
// top-level function once the enclosing function finishes. Closures cannot
// be emitted inline because LLVM functions cannot nest: the occurrence site
// only allocates the environment and builds the {fn_ptr, env_ptr} value.
type pendingClosure struct {
	symbol string
	decl   *ast.Closure
	envLL  string
	fields []string
}

// closureCounter numbers the tml_closure_N symbols. It is package-level,
// so the numbering continues across functions and contexts.
var closureCounter int

// emitClosure allocates a heap environment struct capturing the named
// free variables, then returns the {fn_ptr, env_ptr} closure value. The
// actual function body is queued and emitted by flushPendingClosures once
// the current top-level function closes.
func (c *Context) emitClosure(cl *ast.Closure) (string, string, error) {
	closureCounter++
	symbol := fmt.Sprintf("tml_closure_%d", closureCounter)

	envFields := make([]string, len(cl.Captures))
	envLLFields := make([]string, len(cl.Captures))
	for i, name := range cl.Captures {
		local, ok := c.Current.Locals[name]
		if !ok {
			return "", "", fmt.Errorf("closure captures undeclared local %q", name)
		}
		envFields[i] = name
		envLLFields[i] = local.LLVMType
	}
	envLL := "{ " + strings.Join(envLLFields, ", ") + " }"

	sizeReg := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Body, "  %s = getelementptr %s, %s* null, i32 1\n", sizeReg, envLL, envLL)
	sizeInt := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Body, "  %s = ptrtoint %s* %s to i64\n", sizeInt, envLL, sizeReg)
	raw := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Body, "  %s = call i8* @tml_alloc(i64 %s)\n", raw, sizeInt)
	envPtr := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Body, "  %s = bitcast i8* %s to %s*\n", envPtr, raw, envLL)

	for i, name := range envFields {
		local := c.Current.Locals[name]
		val := c.Names.FreshReg()
		fmt.Fprintf(&c.Buf.Body, "  %s = load %s, %s* %s\n", val, local.LLVMType, local.LLVMType, local.Register)
		fieldPtr := c.Names.FreshReg()
		fmt.Fprintf(&c.Buf.Body, "  %s = getelementptr %s, %s* %s, i32 0, i32 %d\n", fieldPtr, envLL, envLL, envPtr, i)
		fmt.Fprintf(&c.Buf.Body, "  store %s %s, %s* %s\n", local.LLVMType, val, local.LLVMType, fieldPtr)
	}

	c.Current.PendingClosureDefs = append(c.Current.PendingClosureDefs, pendingClosure{
		symbol: symbol, decl: cl, envLL: envLL, fields: envFields,
	})

	fnPtrGeneric := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Body, "  %s = bitcast void ()* @%s to i8*\n", fnPtrGeneric, symbol)
	envPtrGeneric := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Body, "  %s = bitcast %s* %s to i8*\n", envPtrGeneric, envLL, envPtr)

	out := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Body, "  %s = insertvalue { i8*, i8* } undef, i8* %s, 0\n", out, fnPtrGeneric)
	out2 := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Body, "  %s = insertvalue { i8*, i8* } %s, i8* %s, 1\n", out2, out, envPtrGeneric)
	return out2, "{ i8*, i8* }", nil
}

// flushPendingClosures emits every closure queued during the function body
// that just finished, as its own top-level function, restoring register/
// label numbering per closure via BeginFunction/EndFunction.
func (c *Context) flushPendingClosures() error {
	pending := c.Current.PendingClosureDefs
	c.Current.PendingClosureDefs = nil
	for _, pc := range pending {
		if err := c.emitClosureFunction(pc); err != nil {
			return err
		}
	}
	return nil
}

func (c *Context) emitClosureFunction(pc pendingClosure) error {
	prev := c.BeginFunction(pc.symbol)
	defer c.EndFunction(prev)

	retType := "void"
	if pc.decl.Body.Tail != nil {
		lowered, err := c.lowerText(pc.decl.Body.Tail.Type())
		if err != nil {
			return err
		}
		retType = lowered
	}
	c.Current.ReturnLLVMType = retType

	paramStrs := make([]string, 0, len(pc.decl.Params)+1)
	paramStrs = append(paramStrs, "i8* %env.in")
	for i, p := range pc.decl.Params {
		llty, err := c.lowerText(p.Type)
		if err != nil {
			return err
		}
		paramStrs = append(paramStrs, fmt.Sprintf("%s %%arg%d.in", llty, i))
	}

	fmt.Fprintf(&c.Buf.Body, "define %s @%s(%s) {\n", retType, pc.symbol, strings.Join(paramStrs, ", "))
	fmt.Fprintf(&c.Buf.Body, "entry:\n")

	envPtr := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Body, "  %s = bitcast i8* %%env.in to %s*\n", envPtr, pc.envLL)
	for i, name := range pc.fields {
		fieldPtr := c.Names.FreshReg()
		fmt.Fprintf(&c.Buf.Body, "  %s = getelementptr %s, %s* %s, i32 0, i32 %d\n", fieldPtr, pc.envLL, pc.envLL, envPtr, i)
		c.Current.Locals[name] = &LocalInfo{Register: fieldPtr, LLVMType: fieldTypeOf(pc.envLL, i)}
	}
	for i, p := range pc.decl.Params {
		llty, _ := c.lowerText(p.Type)
		slot := c.Names.FreshReg()
		fmt.Fprintf(&c.Buf.Body, "  %s = alloca %s\n", slot, llty)
		fmt.Fprintf(&c.Buf.Body, "  store %s %%arg%d.in, %s* %s\n", llty, i, llty, slot)
		c.Current.Locals[p.Name.Name] = &LocalInfo{Register: slot, LLVMType: llty, SemanticType: p.Type}
	}

	if err := c.emitBlockStmts(pc.decl.Body); err != nil {
		return err
	}
	if !c.Current.BlockTerminated {
		if err := c.emitImplicitReturn(pc.decl.Body); err != nil {
			return err
		}
	}
	fmt.Fprintf(&c.Buf.Body, "}\n\n")
	return c.flushPendingClosures()
}

// fieldTypeOf extracts field i's textual type from a "{ a, b, c }" body
// string, used to type captured-environment locals without re-lowering.
func fieldTypeOf(envLL string, i int) string {
	inner := strings.TrimSuffix(strings.TrimPrefix(envLL, "{ "), " }")
	parts := strings.Split(inner, ", ")
	if i < 0 || i >= len(parts) {
		return "i8*"
	}
	return parts[i]
}
