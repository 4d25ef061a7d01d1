package llvm

import (
	"fmt"
	"hash/fnv"

	"github.com/hivellm/tml-sub014/internal/ast"
	"github.com/pkg/errors"
)

// intrinsicHandler hand-emits the LLVM instruction sequence for one
// compiler-known call name, bypassing ordinary call lowering entirely.
type intrinsicHandler func(c *Context, call *ast.Call) (string, string, error)

// intrinsics is the closed dispatch table of §4.6: a call whose callee name
// is a key here never reaches the function index. Built once as a package
// var rather than compared string-by-string at every call site (REDESIGN
// FLAG-adjacent: same "parse the identity once" discipline as DeriveKind).
var intrinsics = map[string]intrinsicHandler{
	"size_of":    intrinsicSizeOf,
	"align_of":   intrinsicAlignOf,
	"type_id":    intrinsicTypeID,
	"assert":     intrinsicAssert,
	"panic":      intrinsicPanic,
	"print":      intrinsicPrint,
	"println":    intrinsicPrintln,
	"to_string":  intrinsicToString,
	"block_on":   intrinsicBlockOn,
	"assume":     intrinsicAssume,
	"likely":     intrinsicLikely,
	"unlikely":   intrinsicUnlikely,
	"unreachable": intrinsicUnreachable,

	"atomic_load":      intrinsicAtomicLoad,
	"atomic_store":     intrinsicAtomicStore,
	"atomic_add":       intrinsicAtomicRMW("add"),
	"atomic_sub":       intrinsicAtomicRMW("sub"),
	"atomic_cas":       intrinsicAtomicCAS,
	"fence":            intrinsicFence,

	"sqrt": namedMathIntrinsic("llvm.sqrt"),
	"fabs": namedMathIntrinsic("llvm.fabs"),
	"floor": namedMathIntrinsic("llvm.floor"),
	"ceil":  namedMathIntrinsic("llvm.ceil"),
	"pow":   namedMathIntrinsic2("llvm.pow"),
	"min":   namedMathIntrinsic2("llvm.minnum"),
	"max":   namedMathIntrinsic2("llvm.maxnum"),

	"now_millis": intrinsicNowMillis,
}

func intrinsicSizeOf(c *Context, call *ast.Call) (string, string, error) {
	if len(call.TypeArgs) != 1 {
		return "", "", errors.New("size_of requires exactly one type argument")
	}
	llt, err := c.TypeLowerer.Lower(call.TypeArgs[0])
	if err != nil {
		return "", "", err
	}
	return fmt.Sprintf("%d", c.TypeLowerer.sizeOf(llt)), "i64", nil
}

func intrinsicAlignOf(c *Context, call *ast.Call) (string, string, error) {
	if len(call.TypeArgs) != 1 {
		return "", "", errors.New("align_of requires exactly one type argument")
	}
	llt, err := c.TypeLowerer.Lower(call.TypeArgs[0])
	if err != nil {
		return "", "", err
	}
	size := c.TypeLowerer.sizeOf(llt)
	align := 1
	for _, candidate := range []int{8, 4, 2, 1} {
		if size%candidate == 0 {
			align = candidate
			break
		}
	}
	return fmt.Sprintf("%d", align), "i64", nil
}

// intrinsicTypeID returns a stable FNV-1a hash of the type argument's
// mangled name, used as a cheap runtime type tag for reflection support.
func intrinsicTypeID(c *Context, call *ast.Call) (string, string, error) {
	if len(call.TypeArgs) != 1 {
		return "", "", errors.New("type_id requires exactly one type argument")
	}
	m, err := mangleType(call.TypeArgs[0])
	if err != nil {
		return "", "", err
	}
	h := fnv.New64a()
	h.Write([]byte(m))
	return fmt.Sprintf("%d", h.Sum64()), "i64", nil
}

func intrinsicAssert(c *Context, call *ast.Call) (string, string, error) {
	if len(call.Args) == 0 {
		return "", "", errors.New("assert requires a condition argument")
	}
	cond, _, err := c.emitExpr(call.Args[0])
	if err != nil {
		return "", "", err
	}
	failLabel := c.Names.FreshLabel("assert_fail")
	okLabel := c.Names.FreshLabel("assert_ok")
	fmt.Fprintf(&c.Buf.Body, "  br i1 %s, label %%%s, label %%%s\n", cond, okLabel, failLabel)
	fmt.Fprintf(&c.Buf.Body, "%s:\n", failLabel)
	msg := "assertion failed"
	if len(call.Args) > 1 {
		if lit, ok := call.Args[1].(*ast.Literal); ok && lit.Kind == ast.LitString {
			msg = lit.Str
		}
	}
	msgReg, err := c.emitStringConstant(msg)
	if err != nil {
		return "", "", err
	}
	fmt.Fprintf(&c.Buf.Body, "  call void @tml_panic(i8* %s)\n", msgReg)
	fmt.Fprintf(&c.Buf.Body, "  unreachable\n")
	fmt.Fprintf(&c.Buf.Body, "%s:\n", okLabel)
	return "zeroinitializer", "{ }", nil
}

func intrinsicPanic(c *Context, call *ast.Call) (string, string, error) {
	if len(call.Args) == 0 {
		return "", "", errors.New("panic requires a message argument")
	}
	msgReg, _, err := c.emitExpr(call.Args[0])
	if err != nil {
		return "", "", err
	}
	fmt.Fprintf(&c.Buf.Body, "  call void @tml_panic(i8* %s)\n", msgReg)
	fmt.Fprintf(&c.Buf.Body, "  unreachable\n")
	c.Current.BlockTerminated = true
	return "", "void", nil
}

func intrinsicPrint(c *Context, call *ast.Call) (string, string, error) {
	return c.emitPrintCall(call, "tml_print")
}

func intrinsicPrintln(c *Context, call *ast.Call) (string, string, error) {
	return c.emitPrintCall(call, "tml_println")
}

func (c *Context) emitPrintCall(call *ast.Call, fn string) (string, string, error) {
	if len(call.Args) == 0 {
		fmt.Fprintf(&c.Buf.Body, "  call void @%s(i8* null)\n", fn)
		return "", "void", nil
	}
	reg, llty, err := c.emitExpr(call.Args[0])
	if err != nil {
		return "", "", err
	}
	strReg, err := c.emitToString(reg, llty, call.Args[0].Type())
	if err != nil {
		return "", "", err
	}
	fmt.Fprintf(&c.Buf.Body, "  call void @%s(i8* %s)\n", fn, strReg)
	return "", "void", nil
}

func intrinsicToString(c *Context, call *ast.Call) (string, string, error) {
	if len(call.Args) == 0 {
		return "", "", errors.New("to_string requires one argument")
	}
	reg, llty, err := c.emitExpr(call.Args[0])
	if err != nil {
		return "", "", err
	}
	out, err := c.emitToString(reg, llty, call.Args[0].Type())
	return out, "i8*", err
}

// intrinsicBlockOn extracts a Poll[T]'s Ready payload, the same way await
// does: the engine assumes synchronous, immediate resolution (§4.8).
func intrinsicBlockOn(c *Context, call *ast.Call) (string, string, error) {
	if len(call.Args) == 0 {
		return "", "", errors.New("block_on requires one argument")
	}
	reg, llty, err := c.emitExpr(call.Args[0])
	if err != nil {
		return "", "", err
	}
	out := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Body, "  %s = extractvalue %s %s, 1\n", out, llty, reg)
	payloadType, err := c.lowerText(call.Type())
	if err != nil {
		return "", "", err
	}
	return out, payloadType, nil
}

func intrinsicAssume(c *Context, call *ast.Call) (string, string, error) {
	if len(call.Args) == 0 {
		return "", "", errors.New("assume requires one argument")
	}
	cond, _, err := c.emitExpr(call.Args[0])
	if err != nil {
		return "", "", err
	}
	fmt.Fprintf(&c.Buf.Body, "  call void @llvm.assume(i1 %s)\n", cond)
	return "zeroinitializer", "{ }", nil
}

func intrinsicLikely(c *Context, call *ast.Call) (string, string, error) {
	return expectBranchWeight(c, call, "1")
}

func intrinsicUnlikely(c *Context, call *ast.Call) (string, string, error) {
	return expectBranchWeight(c, call, "0")
}

func expectBranchWeight(c *Context, call *ast.Call, expected string) (string, string, error) {
	if len(call.Args) == 0 {
		return "", "", errors.New("likely/unlikely requires one argument")
	}
	cond, _, err := c.emitExpr(call.Args[0])
	if err != nil {
		return "", "", err
	}
	out := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Body, "  %s = call i1 @llvm.expect.i1(i1 %s, i1 %s)\n", out, cond, expected)
	return out, "i1", nil
}

func intrinsicUnreachable(c *Context, call *ast.Call) (string, string, error) {
	fmt.Fprintf(&c.Buf.Body, "  unreachable\n")
	c.Current.BlockTerminated = true
	return "", "void", nil
}

func intrinsicAtomicLoad(c *Context, call *ast.Call) (string, string, error) {
	if len(call.Args) == 0 {
		return "", "", errors.New("atomic_load requires a pointer argument")
	}
	ptr, ptrType, err := c.emitExpr(call.Args[0])
	if err != nil {
		return "", "", err
	}
	elemType := ptrType
	if len(elemType) > 0 && elemType[len(elemType)-1] == '*' {
		elemType = elemType[:len(elemType)-1]
	}
	out := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Body, "  %s = load atomic %s, %s %s seq_cst, align 8\n", out, elemType, ptrType, ptr)
	return out, elemType, nil
}

func intrinsicAtomicStore(c *Context, call *ast.Call) (string, string, error) {
	if len(call.Args) < 2 {
		return "", "", errors.New("atomic_store requires a pointer and a value")
	}
	ptr, ptrType, err := c.emitExpr(call.Args[0])
	if err != nil {
		return "", "", err
	}
	val, valType, err := c.emitExpr(call.Args[1])
	if err != nil {
		return "", "", err
	}
	fmt.Fprintf(&c.Buf.Body, "  store atomic %s %s, %s %s seq_cst, align 8\n", valType, val, ptrType, ptr)
	return "zeroinitializer", "{ }", nil
}

// intrinsicAtomicRMW builds the atomicrmw family (atomic_add/sub/exchange/
// and/or). The pointer operand is always written in opaque-pointer form
// (§8 scenario 6: `atomicrmw add ptr %ptr, i32 1 seq_cst, align 4`), the one
// other literal-opaque-pointer form this engine emits besides
// deriveEquals's `ptr %this, ptr %other` — everywhere else the engine keeps
// its typed-pointer convention (see typelower.go's llText doc comment).
func intrinsicAtomicRMW(op string) intrinsicHandler {
	return func(c *Context, call *ast.Call) (string, string, error) {
		if len(call.Args) < 2 {
			return "", "", errors.Errorf("atomic_%s requires a pointer and a value", op)
		}
		ptr, _, err := c.emitExpr(call.Args[0])
		if err != nil {
			return "", "", err
		}
		val, valType, err := c.emitExpr(call.Args[1])
		if err != nil {
			return "", "", err
		}
		out := c.Names.FreshReg()
		fmt.Fprintf(&c.Buf.Body, "  %s = atomicrmw %s ptr %s, %s %s seq_cst, align %d\n", out, op, ptr, valType, val, alignForLLType(valType))
		return out, valType, nil
	}
}

// alignForLLType returns the natural alignment in bytes for a scalar LLVM
// type, used by the atomicrmw/cmpxchg emitters' mandatory `align` operand.
func alignForLLType(llty string) int {
	switch llty {
	case "i1", "i8":
		return 1
	case "i16":
		return 2
	case "i32", "float":
		return 4
	case "i64", "double":
		return 8
	case "i128":
		return 16
	default:
		return 8
	}
}

func intrinsicAtomicCAS(c *Context, call *ast.Call) (string, string, error) {
	if len(call.Args) < 3 {
		return "", "", errors.New("atomic_cas requires a pointer, expected, and new value")
	}
	ptr, ptrType, err := c.emitExpr(call.Args[0])
	if err != nil {
		return "", "", err
	}
	expected, valType, err := c.emitExpr(call.Args[1])
	if err != nil {
		return "", "", err
	}
	newVal, _, err := c.emitExpr(call.Args[2])
	if err != nil {
		return "", "", err
	}
	pairReg := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Body, "  %s = cmpxchg %s %s, %s %s, %s %s seq_cst seq_cst\n", pairReg, ptrType, ptr, valType, expected, valType, newVal)
	out := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Body, "  %s = extractvalue { %s, i1 } %s, 1\n", out, valType, pairReg)
	return out, "i1", nil
}

func intrinsicFence(c *Context, call *ast.Call) (string, string, error) {
	fmt.Fprintf(&c.Buf.Body, "  fence seq_cst\n")
	return "zeroinitializer", "{ }", nil
}

func namedMathIntrinsic(llvmName string) intrinsicHandler {
	return func(c *Context, call *ast.Call) (string, string, error) {
		if len(call.Args) == 0 {
			return "", "", errors.Errorf("%s requires one argument", llvmName)
		}
		reg, llty, err := c.emitExpr(call.Args[0])
		if err != nil {
			return "", "", err
		}
		out := c.Names.FreshReg()
		fmt.Fprintf(&c.Buf.Body, "  %s = call %s @%s.%s(%s %s)\n", out, llty, llvmName, llty, llty, reg)
		return out, llty, nil
	}
}

func namedMathIntrinsic2(llvmName string) intrinsicHandler {
	return func(c *Context, call *ast.Call) (string, string, error) {
		if len(call.Args) < 2 {
			return "", "", errors.Errorf("%s requires two arguments", llvmName)
		}
		a, llty, err := c.emitExpr(call.Args[0])
		if err != nil {
			return "", "", err
		}
		b, _, err := c.emitExpr(call.Args[1])
		if err != nil {
			return "", "", err
		}
		out := c.Names.FreshReg()
		fmt.Fprintf(&c.Buf.Body, "  %s = call %s @%s.%s(%s %s, %s %s)\n", out, llty, llvmName, llty, llty, a, llty, b)
		return out, llty, nil
	}
}

func intrinsicNowMillis(c *Context, call *ast.Call) (string, string, error) {
	out := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Body, "  %s = call i64 @tml_now_millis()\n", out)
	return out, "i64", nil
}
