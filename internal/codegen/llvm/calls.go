package llvm

import (
	"fmt"
	"strings"

	"github.com/hivellm/tml-sub014/internal/ast"
	"github.com/hivellm/tml-sub014/internal/types"
	"github.com/pkg/errors"
)

// emitCall dispatches a call expression: first to the intrinsic table
// (§4.6, a closed set of compiler-known names bypassing ordinary call
// lowering), then to an explicit generic instantiation, then to an ordinary
// direct call resolved through the function index.
func (c *Context) emitCall(call *ast.Call) (string, string, error) {
	name, ok := calleeName(call.Callee)
	if ok {
		if handler, ok := intrinsics[name]; ok {
			return handler(c, call)
		}
	}

	if len(call.TypeArgs) > 0 && ok {
		mangled, err := c.Insts.RequireFuncInstance(c, name, call.TypeArgs)
		if err != nil {
			return "", "", err
		}
		return c.emitDirectCall(mangled, call.Args, call.Type())
	}

	if ok {
		if sig, found := c.Tables.Functions.Lookup(name); found {
			return c.emitDirectCallSig(sig, call.Args)
		}
	}
	return "", "", errors.Errorf("call to unresolved function %q", describeCallee(call.Callee))
}

func calleeName(e ast.Expr) (string, bool) {
	id, ok := e.(*ast.Identifier)
	if !ok {
		return "", false
	}
	return id.Name, true
}

func describeCallee(e ast.Expr) string {
	if id, ok := e.(*ast.Identifier); ok {
		return id.Name
	}
	return fmt.Sprintf("%T", e)
}

func (c *Context) emitDirectCall(symbol string, args []ast.Expr, retType types.Type) (string, string, error) {
	sig, ok := c.Tables.Functions.Lookup(symbol)
	if !ok {
		return "", "", errors.Errorf("instantiated function %q has no registered signature", symbol)
	}
	return c.emitDirectCallSig(sig, args)
}

func (c *Context) emitDirectCallSig(sig *FuncSig, args []ast.Expr) (string, string, error) {
	argVals := make([]string, 0, len(args))
	for _, a := range args {
		reg, llty, err := c.emitExpr(a)
		if err != nil {
			return "", "", err
		}
		argVals = append(argVals, llty+" "+reg)
	}
	if sig.ReturnType == "void" {
		fmt.Fprintf(&c.Buf.Body, "  call void @%s(%s)\n", sig.Symbol, strings.Join(argVals, ", "))
		return "", "void", nil
	}
	out := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Body, "  %s = call %s @%s(%s)\n", out, sig.ReturnType, sig.Symbol, strings.Join(argVals, ", "))
	if c.Tables.HeapStringFuncs[sig.Symbol] {
		c.markPendingString(out)
	}
	return out, sig.ReturnType, nil
}

// emitMethodCall resolves an impl method (receiver-type-qualified) or a
// closure invocation, then calls it with the receiver prepended as the
// first argument.
func (c *Context) emitMethodCall(mc *ast.MethodCall) (string, string, error) {
	recvType := mc.Receiver.Type()
	s, isStruct := underlyingStruct(recvType)
	if !isStruct {
		return c.emitClosureCall(mc)
	}
	symbol := implMethodSymbol(s.Name, mc.Method)
	sig, ok := c.Tables.Functions.Lookup(symbol)
	if !ok {
		if len(mc.TypeArgs) > 0 {
			mangled, err := c.Insts.RequireFuncInstance(c, symbol, mc.TypeArgs)
			if err != nil {
				return "", "", err
			}
			sig, ok = c.Tables.Functions.Lookup(mangled)
		}
		if !ok {
			return "", "", errors.Errorf("no method %q on type %q", mc.Method, s.Name)
		}
	}
	recvReg, recvLLType, err := c.emitExpr(mc.Receiver)
	if err != nil {
		return "", "", err
	}
	argVals := []string{recvLLType + " " + recvReg}
	for _, a := range mc.Args {
		reg, llty, err := c.emitExpr(a)
		if err != nil {
			return "", "", err
		}
		argVals = append(argVals, llty+" "+reg)
	}
	if sig.ReturnType == "void" {
		fmt.Fprintf(&c.Buf.Body, "  call void @%s(%s)\n", sig.Symbol, strings.Join(argVals, ", "))
		return "", "void", nil
	}
	out := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Body, "  %s = call %s @%s(%s)\n", out, sig.ReturnType, sig.Symbol, strings.Join(argVals, ", "))
	return out, sig.ReturnType, nil
}

// emitClosureCall invokes a closure value through its {fn_ptr, env_ptr}
// fat-pointer representation (see closureStructType).
func (c *Context) emitClosureCall(mc *ast.MethodCall) (string, string, error) {
	if mc.Method != "call" {
		return "", "", errors.Errorf("no method %q on non-struct receiver type %s", mc.Method, mc.Receiver.Type())
	}
	closureReg, closureType, err := c.emitExpr(mc.Receiver)
	if err != nil {
		return "", "", err
	}
	fnPtr := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Body, "  %s = extractvalue %s %s, 0\n", fnPtr, closureType, closureReg)
	envPtr := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Body, "  %s = extractvalue %s %s, 1\n", envPtr, closureType, closureReg)

	retType, err := c.lowerText(mc.Type())
	if err != nil {
		return "", "", err
	}
	argVals := []string{"i8* " + envPtr}
	argTypes := []string{"i8*"}
	for _, a := range mc.Args {
		reg, llty, err := c.emitExpr(a)
		if err != nil {
			return "", "", err
		}
		argVals = append(argVals, llty+" "+reg)
		argTypes = append(argTypes, llty)
	}
	fnType := retType + " (" + strings.Join(argTypes, ", ") + ")"
	castFn := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Body, "  %s = bitcast i8* %s to %s*\n", castFn, fnPtr, fnType)
	if retType == "void" {
		fmt.Fprintf(&c.Buf.Body, "  call void %s(%s)\n", castFn, strings.Join(argVals, ", "))
		return "", "void", nil
	}
	out := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Body, "  %s = call %s %s(%s)\n", out, retType, castFn, strings.Join(argVals, ", "))
	return out, retType, nil
}
