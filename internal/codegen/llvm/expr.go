package llvm

import (
	"fmt"
	"strings"

	"github.com/hivellm/tml-sub014/internal/ast"
	"github.com/hivellm/tml-sub014/internal/types"
	"github.com/pkg/errors"
)

// emitExpr is the expression-kind dispatcher (REDESIGN FLAG §9: a sealed
// Go interface plus a type switch, standing in for the target's enum
// dispatch over Expr::Kind). It returns the SSA register holding the
// expression's value together with that value's LLVM IR type text.
func (c *Context) emitExpr(e ast.Expr) (string, string, error) {
	switch ex := e.(type) {
	case *ast.Literal:
		return c.emitLiteral(ex)
	case *ast.Identifier:
		return c.emitIdentifier(ex)
	case *ast.Binary:
		return c.emitBinary(ex)
	case *ast.Unary:
		return c.emitUnary(ex)
	case *ast.Call:
		return c.emitCall(ex)
	case *ast.MethodCall:
		return c.emitMethodCall(ex)
	case *ast.FieldAccess:
		return c.emitFieldAccess(ex)
	case *ast.StructLit:
		return c.emitStructLit(ex)
	case *ast.ArrayLit:
		return c.emitArrayLit(ex)
	case *ast.Index:
		return c.emitIndex(ex)
	case *ast.If:
		return c.emitIf(ex)
	case *ast.Match:
		return c.emitMatch(ex)
	case *ast.Loop:
		return c.emitLoop(ex)
	case *ast.Closure:
		return c.emitClosure(ex)
	case *ast.Cast:
		return c.emitCast(ex)
	case *ast.Interp:
		return c.emitInterp(ex)
	case *ast.Try:
		return c.emitTry(ex)
	case *ast.Await:
		return c.emitAwait(ex)
	case *ast.Block:
		return c.emitBlockValue(ex)
	default:
		return "", "", errors.Errorf("unsupported expression node %T", e)
	}
}

func (c *Context) emitLiteral(lit *ast.Literal) (string, string, error) {
	switch lit.Kind {
	case ast.LitInt:
		llty, err := c.lowerText(lit.Type())
		if err != nil {
			return "", "", err
		}
		return fmt.Sprintf("%d", lit.Int), llty, nil
	case ast.LitFloat:
		llty, err := c.lowerText(lit.Type())
		if err != nil {
			return "", "", err
		}
		return fmt.Sprintf("%g", lit.Flt), llty, nil
	case ast.LitBool:
		if lit.Bool {
			return "1", "i1", nil
		}
		return "0", "i1", nil
	case ast.LitString:
		reg, err := c.emitStringConstant(lit.Str)
		return reg, "i8*", err
	case ast.LitUnit:
		return "zeroinitializer", "{ }", nil
	default:
		return "", "", errors.Errorf("unsupported literal kind %v", lit.Kind)
	}
}

func (c *Context) emitIdentifier(id *ast.Identifier) (string, string, error) {
	local, ok := c.Current.Locals[id.Name]
	if !ok {
		if sig, ok := c.Tables.Functions.Lookup(id.Name); ok {
			return "@" + sig.Symbol, sig.ReturnType, nil
		}
		return "", "", errors.Errorf("reference to undeclared name %q", id.Name)
	}
	reg := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Body, "  %s = load %s, %s* %s\n", reg, local.LLVMType, local.LLVMType, local.Register)
	return reg, local.LLVMType, nil
}

func (c *Context) emitUnary(u *ast.Unary) (string, string, error) {
	reg, llty, err := c.emitExpr(u.Operand)
	if err != nil {
		return "", "", err
	}
	out := c.Names.FreshReg()
	switch u.Op {
	case ast.OpNeg:
		if strings.HasPrefix(llty, "float") || strings.HasPrefix(llty, "double") {
			fmt.Fprintf(&c.Buf.Body, "  %s = fneg %s %s\n", out, llty, reg)
		} else {
			fmt.Fprintf(&c.Buf.Body, "  %s = sub %s 0, %s\n", out, llty, reg)
		}
	case ast.OpNot:
		fmt.Fprintf(&c.Buf.Body, "  %s = xor %s %s, -1\n", out, llty, reg)
	default:
		return "", "", errors.Errorf("unsupported unary operator %v", u.Op)
	}
	return out, llty, nil
}

func (c *Context) emitBinary(b *ast.Binary) (string, string, error) {
	if b.Op == ast.OpAnd || b.Op == ast.OpOr {
		return c.emitShortCircuit(b)
	}
	lhs, lhsType, err := c.emitExpr(b.Left)
	if err != nil {
		return "", "", err
	}
	rhs, _, err := c.emitExpr(b.Right)
	if err != nil {
		return "", "", err
	}
	out, err := c.emitBinOp(b.Op, lhs, lhsType, rhs, lhsType)
	if err != nil {
		return "", "", err
	}
	resType := lhsType
	switch b.Op {
	case ast.OpEq, ast.OpNe, ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		resType = "i1"
	}
	return out, resType, nil
}

// emitBinOp emits one binary instruction for already-evaluated operands;
// shared by Binary and compound-assignment codegen.
func (c *Context) emitBinOp(op ast.BinOp, lhs, lhsType, rhs, rhsType string) (string, error) {
	out := c.Names.FreshReg()
	isFloat := strings.HasPrefix(lhsType, "float") || strings.HasPrefix(lhsType, "double")
	switch op {
	case ast.OpAdd:
		if isFloat {
			fmt.Fprintf(&c.Buf.Body, "  %s = fadd %s %s, %s\n", out, lhsType, lhs, rhs)
		} else {
			fmt.Fprintf(&c.Buf.Body, "  %s = add %s %s, %s\n", out, lhsType, lhs, rhs)
		}
	case ast.OpSub:
		if isFloat {
			fmt.Fprintf(&c.Buf.Body, "  %s = fsub %s %s, %s\n", out, lhsType, lhs, rhs)
		} else {
			fmt.Fprintf(&c.Buf.Body, "  %s = sub %s %s, %s\n", out, lhsType, lhs, rhs)
		}
	case ast.OpMul:
		if isFloat {
			fmt.Fprintf(&c.Buf.Body, "  %s = fmul %s %s, %s\n", out, lhsType, lhs, rhs)
		} else {
			fmt.Fprintf(&c.Buf.Body, "  %s = mul %s %s, %s\n", out, lhsType, lhs, rhs)
		}
	case ast.OpDiv:
		if isFloat {
			fmt.Fprintf(&c.Buf.Body, "  %s = fdiv %s %s, %s\n", out, lhsType, lhs, rhs)
		} else {
			fmt.Fprintf(&c.Buf.Body, "  %s = sdiv %s %s, %s\n", out, lhsType, lhs, rhs)
		}
	case ast.OpMod:
		if isFloat {
			fmt.Fprintf(&c.Buf.Body, "  %s = frem %s %s, %s\n", out, lhsType, lhs, rhs)
		} else {
			fmt.Fprintf(&c.Buf.Body, "  %s = srem %s %s, %s\n", out, lhsType, lhs, rhs)
		}
	case ast.OpBitAnd:
		fmt.Fprintf(&c.Buf.Body, "  %s = and %s %s, %s\n", out, lhsType, lhs, rhs)
	case ast.OpBitOr:
		fmt.Fprintf(&c.Buf.Body, "  %s = or %s %s, %s\n", out, lhsType, lhs, rhs)
	case ast.OpBitXor:
		fmt.Fprintf(&c.Buf.Body, "  %s = xor %s %s, %s\n", out, lhsType, lhs, rhs)
	case ast.OpShl:
		fmt.Fprintf(&c.Buf.Body, "  %s = shl %s %s, %s\n", out, lhsType, lhs, rhs)
	case ast.OpShr:
		fmt.Fprintf(&c.Buf.Body, "  %s = ashr %s %s, %s\n", out, lhsType, lhs, rhs)
	case ast.OpEq:
		return c.emitCompare(lhsType, isFloat, "eq", "oeq", lhs, rhs)
	case ast.OpNe:
		return c.emitCompare(lhsType, isFloat, "ne", "one", lhs, rhs)
	case ast.OpLt:
		return c.emitCompare(lhsType, isFloat, "slt", "olt", lhs, rhs)
	case ast.OpLe:
		return c.emitCompare(lhsType, isFloat, "sle", "ole", lhs, rhs)
	case ast.OpGt:
		return c.emitCompare(lhsType, isFloat, "sgt", "ogt", lhs, rhs)
	case ast.OpGe:
		return c.emitCompare(lhsType, isFloat, "sge", "oge", lhs, rhs)
	default:
		return "", errors.Errorf("unsupported binary operator %v", op)
	}
	return out, nil
}

func (c *Context) emitCompare(llty string, isFloat bool, intPred, fltPred, lhs, rhs string) (string, error) {
	out := c.Names.FreshReg()
	if isFloat {
		fmt.Fprintf(&c.Buf.Body, "  %s = fcmp %s %s %s, %s\n", out, fltPred, llty, lhs, rhs)
	} else {
		fmt.Fprintf(&c.Buf.Body, "  %s = icmp %s %s %s, %s\n", out, intPred, llty, lhs, rhs)
	}
	return out, nil
}

// emitShortCircuit lowers && and || with real branches rather than a
// bitwise and/or, so the right-hand side is evaluated only when it can
// affect the result.
func (c *Context) emitShortCircuit(b *ast.Binary) (string, string, error) {
	lhs, _, err := c.emitExpr(b.Left)
	if err != nil {
		return "", "", err
	}
	rhsLabel := c.Names.FreshLabel("sc_rhs")
	joinLabel := c.Names.FreshLabel("sc_join")
	shortLabel := c.Names.FreshLabel("sc_short")

	if b.Op == ast.OpAnd {
		fmt.Fprintf(&c.Buf.Body, "  br i1 %s, label %%%s, label %%%s\n", lhs, rhsLabel, shortLabel)
	} else {
		fmt.Fprintf(&c.Buf.Body, "  br i1 %s, label %%%s, label %%%s\n", lhs, shortLabel, rhsLabel)
	}

	fmt.Fprintf(&c.Buf.Body, "%s:\n", shortLabel)
	fmt.Fprintf(&c.Buf.Body, "  br label %%%s\n", joinLabel)

	fmt.Fprintf(&c.Buf.Body, "%s:\n", rhsLabel)
	rhs, _, err := c.emitExpr(b.Right)
	if err != nil {
		return "", "", err
	}
	fmt.Fprintf(&c.Buf.Body, "  br label %%%s\n", joinLabel)

	fmt.Fprintf(&c.Buf.Body, "%s:\n", joinLabel)
	out := c.Names.FreshReg()
	shortVal := "0"
	if b.Op == ast.OpAnd {
		shortVal = "0"
	} else {
		shortVal = "1"
	}
	fmt.Fprintf(&c.Buf.Body, "  %s = phi i1 [ %s, %%%s ], [ %s, %%%s ]\n", out, shortVal, shortLabel, rhs, rhsLabel)
	return out, "i1", nil
}

func (c *Context) emitCast(ca *ast.Cast) (string, string, error) {
	reg, fromType, err := c.emitExpr(ca.Operand)
	if err != nil {
		return "", "", err
	}
	toType, err := c.lowerText(ca.Target)
	if err != nil {
		return "", "", err
	}
	if fromType == toType {
		return reg, toType, nil
	}
	out := c.Names.FreshReg()
	op := castOpcode(fromType, toType)
	fmt.Fprintf(&c.Buf.Body, "  %s = %s %s %s to %s\n", out, op, fromType, reg, toType)
	return out, toType, nil
}

func castOpcode(from, to string) string {
	fromFloat := strings.HasPrefix(from, "float") || strings.HasPrefix(from, "double")
	toFloat := strings.HasPrefix(to, "float") || strings.HasPrefix(to, "double")
	switch {
	case fromFloat && toFloat:
		if from == "float" && to == "double" {
			return "fpext"
		}
		return "fptrunc"
	case fromFloat && !toFloat:
		return "fptosi"
	case !fromFloat && toFloat:
		return "sitofp"
	default:
		if intWidth(to) > intWidth(from) {
			return "sext"
		}
		if intWidth(to) < intWidth(from) {
			return "trunc"
		}
		return "bitcast"
	}
}

func intWidth(llty string) int {
	if !strings.HasPrefix(llty, "i") {
		return 0
	}
	n := 0
	for _, r := range llty[1:] {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
	}
	return n
}

func (c *Context) emitIf(i *ast.If) (string, string, error) {
	cond, _, err := c.emitExpr(i.Cond)
	if err != nil {
		return "", "", err
	}
	thenLabel := c.Names.FreshLabel("if_then")
	elseLabel := c.Names.FreshLabel("if_else")
	joinLabel := c.Names.FreshLabel("if_join")

	fmt.Fprintf(&c.Buf.Body, "  br i1 %s, label %%%s, label %%%s\n", cond, thenLabel, elseLabel)

	fmt.Fprintf(&c.Buf.Body, "%s:\n", thenLabel)
	c.Current.BlockTerminated = false
	thenReg, thenType, err := c.emitBlockValue(i.Then)
	if err != nil {
		return "", "", err
	}
	thenTerminated := c.Current.BlockTerminated
	thenEnd := thenLabel
	if !thenTerminated {
		fmt.Fprintf(&c.Buf.Body, "  br label %%%s\n", joinLabel)
	}

	fmt.Fprintf(&c.Buf.Body, "%s:\n", elseLabel)
	c.Current.BlockTerminated = false
	var elseReg, elseType string
	elseTerminated := false
	elseEnd := elseLabel
	if i.Else != nil {
		elseReg, elseType, err = c.emitBlockValue(i.Else)
		if err != nil {
			return "", "", err
		}
		elseTerminated = c.Current.BlockTerminated
	} else {
		elseType = "void"
	}
	if !elseTerminated {
		fmt.Fprintf(&c.Buf.Body, "  br label %%%s\n", joinLabel)
	}

	fmt.Fprintf(&c.Buf.Body, "%s:\n", joinLabel)
	c.Current.BlockTerminated = thenTerminated && elseTerminated

	if thenType == "void" || elseType == "void" || thenTerminated || elseTerminated {
		return "", "void", nil
	}
	out := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Body, "  %s = phi %s [ %s, %%%s ], [ %s, %%%s ]\n", out, thenType, thenReg, thenEnd, elseReg, elseEnd)
	return out, thenType, nil
}

func (c *Context) emitLoop(l *ast.Loop) (string, string, error) {
	headLabel := c.Names.FreshLabel("loop_head")
	bodyLabel := c.Names.FreshLabel("loop_body")
	exitLabel := c.Names.FreshLabel("loop_exit")

	fmt.Fprintf(&c.Buf.Body, "  br label %%%s\n", headLabel)
	fmt.Fprintf(&c.Buf.Body, "%s:\n", headLabel)

	switch l.Kind {
	case ast.LoopWhile:
		cond, _, err := c.emitExpr(l.Cond)
		if err != nil {
			return "", "", err
		}
		fmt.Fprintf(&c.Buf.Body, "  br i1 %s, label %%%s, label %%%s\n", cond, bodyLabel, exitLabel)
	case ast.LoopBare:
		fmt.Fprintf(&c.Buf.Body, "  br label %%%s\n", bodyLabel)
	case ast.LoopFor:
		// Desugars to iterator next()-style dispatch via the intrinsic
		// runtime; the condition check is left to the runtime call emitted
		// at the head of the body by the (external) lowering pass that
		// expands `for` into `while`. Engine-side, a for-loop that reaches
		// codegen has already been desugared to LoopWhile by the checker;
		// this arm exists for forward compatibility and always continues.
		fmt.Fprintf(&c.Buf.Body, "  br label %%%s\n", bodyLabel)
	}

	fmt.Fprintf(&c.Buf.Body, "%s:\n", bodyLabel)
	c.Current.PushLoop(exitLabel, headLabel)
	c.Current.BlockTerminated = false
	if err := c.emitBlockStmts(l.Body); err != nil {
		return "", "", err
	}
	if !c.Current.BlockTerminated {
		fmt.Fprintf(&c.Buf.Body, "  br label %%%s\n", headLabel)
	}
	c.Current.PopLoop()

	fmt.Fprintf(&c.Buf.Body, "%s:\n", exitLabel)
	c.Current.BlockTerminated = false
	return "", "void", nil
}

func (c *Context) emitTry(t *ast.Try) (string, string, error) {
	reg, llty, err := c.emitExpr(t.Operand)
	if err != nil {
		return "", "", err
	}
	tag := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Body, "  %s = extractvalue %s %s, 0\n", tag, llty, reg)
	isErr := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Body, "  %s = icmp eq i32 %s, 1\n", isErr, tag)

	errLabel := c.Names.FreshLabel("try_err")
	okLabel := c.Names.FreshLabel("try_ok")
	fmt.Fprintf(&c.Buf.Body, "  br i1 %s, label %%%s, label %%%s\n", isErr, errLabel, okLabel)

	fmt.Fprintf(&c.Buf.Body, "%s:\n", errLabel)
	if c.Current.IsAsync {
		if err := c.emitAsyncReturn(nil); err != nil {
			return "", "", err
		}
	} else {
		fmt.Fprintf(&c.Buf.Body, "  ret %s %s\n", c.Current.ReturnLLVMType, reg)
	}

	fmt.Fprintf(&c.Buf.Body, "%s:\n", okLabel)
	out := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Body, "  %s = extractvalue %s %s, 1\n", out, llty, reg)
	payloadType, err := c.lowerText(t.Type())
	if err != nil {
		return "", "", err
	}
	return out, payloadType, nil
}

func (c *Context) emitAwait(a *ast.Await) (string, string, error) {
	reg, llty, err := c.emitExpr(a.Operand)
	if err != nil {
		return "", "", err
	}
	// await assumes immediate resolution (§4.8): extract the Ready payload
	// without ever branching on the Pending tag.
	out := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Body, "  %s = extractvalue %s %s, 1\n", out, llty, reg)
	payloadType, err := c.lowerText(a.Type())
	if err != nil {
		return "", "", err
	}
	return out, payloadType, nil
}

func (c *Context) lowerText(t ast.Type) (string, error) {
	llt, err := c.TypeLowerer.Lower(t)
	if err != nil {
		return "", err
	}
	return llText(llt), nil
}

func (c *Context) resolveCallType(e ast.Expr) (types.Type, error) {
	if e == nil {
		return types.TUnit, nil
	}
	return e.Type(), nil
}
