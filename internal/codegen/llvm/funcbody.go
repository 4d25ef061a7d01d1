package llvm

import (
	"fmt"
	"strings"

	"github.com/hivellm/tml-sub014/internal/ast"
	"github.com/pkg/errors"
)

// emitFunctionBody writes one top-level function's full textual definition
// — header, parameter prologue, block body, implicit-return epilogue,
// closing brace — into the body stream, then flushes any closures queued
// during emission as sibling functions.
//
// Grounded on the teacher's genFunctionBody (internal/codegen/llvm/func.go):
// same define/entry-label/prologue/epilogue shape, generalized for async
// Poll wrapping and queued closure lifting.
func (c *Context) emitFunctionBody(d *ast.FuncDecl, sig *FuncSig) error {
	prev := c.BeginFunction(sig.Symbol)
	defer c.EndFunction(prev)

	c.Current.ReturnLLVMType = sig.ReturnType
	c.Current.IsAsync = sig.IsAsync
	c.Current.ImplMethodOf = d.ImplOf

	linkage, dllExport := linkageFor(d, c.Opts)
	attrs := ""
	if dllExport {
		attrs = " dllexport"
	}
	dbgSuffix, err := c.emitDebugSubprogram(d, sig)
	if err != nil {
		return err
	}
	fmt.Fprintf(&c.Buf.Body, "define %s%s %s @%s(%s) #0%s {\n", linkage, attrs, sig.ReturnType, sig.Symbol, strings.Join(taggedParams(d, sig), ", "), dbgSuffix)
	fmt.Fprintf(&c.Buf.Body, "entry:\n")

	if c.Opts.CoverageEnabled {
		nameReg, err := c.emitStringConstant(sig.Symbol)
		if err != nil {
			return err
		}
		fmt.Fprintf(&c.Buf.Body, "  call void @tml_cover_func(i8* %s)\n", nameReg)
	}

	if err := c.emitParamPrologue(d, sig); err != nil {
		return err
	}

	if err := c.emitBlockStmts(d.Body); err != nil {
		return err
	}

	if !c.Current.BlockTerminated {
		if err := c.emitImplicitReturn(d.Body); err != nil {
			return err
		}
	}

	fmt.Fprintf(&c.Buf.Body, "}\n\n")

	return c.flushPendingClosures()
}

// linkageFor derives a function's LLVM linkage keyword and whether it needs
// a dllexport attribute, following §4.8's rules in priority order:
// should_panic always wins (the test driver calls it through a function
// pointer even in suite mode); then the driver's suite-mode override; then
// the entry point and pub/private split.
//
// Grounded on the teacher's genFunctionBody linkage switch
// (internal/codegen/llvm/func.go), which derives the same keyword from
// visibility before writing the define line.
func linkageFor(d *ast.FuncDecl, opts Options) (keyword string, dllExport bool) {
	if ast.HasAttr(d.Attrs, ast.AttrShouldPanic) {
		return "external", false
	}
	if opts.ForceInternalLinkage {
		return "internal", false
	}
	switch d.Vis {
	case ast.VisMain:
		return "external", false
	case ast.VisPublic:
		return "external", opts.DLLExport
	default:
		return "internal", false
	}
}

// taggedParams renders "%argN" parameter names aligned with sig.ParamTypes,
// reserving %0.. for the receiver (if any) followed by declared parameters.
func taggedParams(d *ast.FuncDecl, sig *FuncSig) []string {
	out := make([]string, len(sig.ParamTypes))
	offset := 0
	if d.ImplOf != "" && !d.IsStatic {
		out[0] = sig.ParamTypes[0] + " %self.in"
		offset = 1
	}
	for i := offset; i < len(sig.ParamTypes); i++ {
		out[i] = sig.ParamTypes[i] + fmt.Sprintf(" %%arg%d.in", i)
	}
	return out
}

// emitParamPrologue allocas and stores each incoming parameter so the rest
// of the body can treat locals uniformly through Current.Locals, matching
// the teacher's alloca-everything parameter convention.
func (c *Context) emitParamPrologue(d *ast.FuncDecl, sig *FuncSig) error {
	offset := 0
	if d.ImplOf != "" && !d.IsStatic {
		llty := sig.ParamTypes[0]
		reg := c.Names.FreshReg()
		fmt.Fprintf(&c.Buf.Body, "  %s = alloca %s\n", reg, llty)
		fmt.Fprintf(&c.Buf.Body, "  store %s %%self.in, %s* %s\n", llty, llty, reg)
		c.Current.Locals["self"] = &LocalInfo{Register: reg, LLVMType: llty}
		offset = 1
	}
	for i, p := range d.Params {
		llty := sig.ParamTypes[i+offset]
		reg := c.Names.FreshReg()
		fmt.Fprintf(&c.Buf.Body, "  %s = alloca %s\n", reg, llty)
		fmt.Fprintf(&c.Buf.Body, "  store %s %%arg%d.in, %s* %s\n", llty, i+offset, llty, reg)
		c.Current.Locals[p.Name.Name] = &LocalInfo{Register: reg, LLVMType: llty, SemanticType: p.Type}
		if c.Opts.EmitDebugInfo && c.Opts.DebugLevel >= 2 {
			c.emitDebugParamDeclare(p.Name.Name, i+1, reg, llty)
		}
	}
	return nil
}

// emitImplicitReturn handles a body whose control flow falls off the end
// without an explicit `return`: the block's trailing expression (if any)
// becomes the return value; otherwise the function returns Unit/void.
func (c *Context) emitImplicitReturn(body *ast.Block) error {
	if body.Tail == nil {
		if c.Current.IsAsync {
			return c.emitAsyncReturn(nil)
		}
		if c.Current.ReturnLLVMType == "void" {
			fmt.Fprintf(&c.Buf.Body, "  ret void\n")
		} else {
			fmt.Fprintf(&c.Buf.Body, "  ret %s zeroinitializer\n", c.Current.ReturnLLVMType)
		}
		c.Current.BlockTerminated = true
		return nil
	}
	return c.emitReturn(body.Tail)
}

func (c *Context) emitReturn(e ast.Expr) error {
	if c.Current.IsAsync {
		return c.emitAsyncReturn(e)
	}
	if e == nil {
		if c.Current.ReturnLLVMType != "void" {
			return errors.Errorf("%q: bare return in non-unit function", c.Current.Name)
		}
		fmt.Fprintf(&c.Buf.Body, "  ret void\n")
		c.Current.BlockTerminated = true
		return nil
	}
	reg, llty, err := c.emitExpr(e)
	if err != nil {
		return err
	}
	c.freePendingStrings(e)
	fmt.Fprintf(&c.Buf.Body, "  ret %s %s\n", llty, reg)
	c.Current.BlockTerminated = true
	return nil
}

// emitAsyncReturn wraps the returned value in Ready(...) before returning,
// matching §4.8: an async function's declared return type T is emitted as
// Poll[T], and `return e` becomes `Ready(e)`.
func (c *Context) emitAsyncReturn(e ast.Expr) error {
	pollReg := c.Names.FreshReg()
	if e == nil {
		fmt.Fprintf(&c.Buf.Body, "  %s = insertvalue %s zeroinitializer, i32 0, 0\n", pollReg, c.Current.ReturnLLVMType)
		fmt.Fprintf(&c.Buf.Body, "  ret %s %s\n", c.Current.ReturnLLVMType, pollReg)
		c.Current.BlockTerminated = true
		return nil
	}
	reg, llty, err := c.emitExpr(e)
	if err != nil {
		return err
	}
	c.freePendingStrings(e)
	payloadReg := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Body, "  %s = insertvalue %s zeroinitializer, i32 0, 0\n", pollReg, c.Current.ReturnLLVMType)
	fmt.Fprintf(&c.Buf.Body, "  %s = insertvalue %s %s, %s %s, 1\n", payloadReg, c.Current.ReturnLLVMType, pollReg, llty, reg)
	fmt.Fprintf(&c.Buf.Body, "  ret %s %s\n", c.Current.ReturnLLVMType, payloadReg)
	c.Current.BlockTerminated = true
	return nil
}
