package llvm

import (
	"fmt"

	"github.com/hivellm/tml-sub014/internal/ast"
	"github.com/pkg/errors"
)

// emitBlockStmts emits every statement of a block in order. It never emits
// the block's trailing expression: callers that need the tail read it
// themselves (emitBlockValue; emitImplicitReturn, see emitFunctionBody).
func (c *Context) emitBlockStmts(b *ast.Block) error {
	for _, s := range b.Stmts {
		if c.Current.BlockTerminated {
			return nil
		}
		if err := c.emitStmt(s); err != nil {
			return err
		}
	}
	return nil
}

// emitBlockValue emits a block used in expression position, returning the
// register/type of its trailing expression (Unit/void if none).
func (c *Context) emitBlockValue(b *ast.Block) (string, string, error) {
	if err := c.emitBlockStmts(b); err != nil {
		return "", "", err
	}
	if c.Current.BlockTerminated {
		return "", "void", nil
	}
	if b.Tail == nil {
		return "", "void", nil
	}
	return c.emitExpr(b.Tail)
}

func (c *Context) emitStmt(s ast.Stmt) error {
	switch st := s.(type) {
	case *ast.LetStmt:
		return c.emitLetStmt(st)
	case *ast.AssignStmt:
		return c.emitAssignStmt(st)
	case *ast.ExprStmt:
		reg, _, err := c.emitExpr(st.X)
		_ = reg
		if err != nil {
			return err
		}
		c.freePendingStrings(st.X)
		return nil
	case *ast.ReturnStmt:
		return c.emitReturn(st.Value)
	case *ast.BreakStmt:
		return c.emitBreak(st)
	case *ast.ContinueStmt:
		return c.emitContinue(st)
	default:
		return errors.Errorf("unsupported statement node %T", s)
	}
}

// emitLetStmt evaluates the initializer, allocas a slot for the binding,
// and stores the value. If the initializer produced a pending heap string
// temporary, ownership transfers to the new local instead of being freed at
// the statement boundary (§3 invariant 7 / §4.9).
func (c *Context) emitLetStmt(st *ast.LetStmt) error {
	reg, llty, err := c.emitExpr(st.Value)
	if err != nil {
		return err
	}
	slot := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Body, "  %s = alloca %s\n", slot, llty)
	fmt.Fprintf(&c.Buf.Body, "  store %s %s, %s* %s\n", llty, reg, llty, slot)

	local := &LocalInfo{Register: slot, LLVMType: llty, SemanticType: st.Value.Type()}
	if c.ownsPendingString(reg) {
		local.Lifetime = &LifetimeInfo{Owned: true}
		c.clearPendingString(reg)
	}
	c.Current.Locals[st.Name] = local
	return nil
}

func (c *Context) emitAssignStmt(st *ast.AssignStmt) error {
	valReg, valLLType, err := c.emitExpr(st.Value)
	if err != nil {
		return err
	}
	if st.Compound {
		cur, curLLType, err := c.emitExpr(st.Place)
		if err != nil {
			return err
		}
		combined, err := c.emitBinOp(st.Op, cur, curLLType, valReg, valLLType)
		if err != nil {
			return err
		}
		valReg = combined
		valLLType = curLLType
	}
	ptr, err := c.emitLValue(st.Place)
	if err != nil {
		return err
	}
	fmt.Fprintf(&c.Buf.Body, "  store %s %s, %s* %s\n", valLLType, valReg, valLLType, ptr)
	c.freePendingStrings(st.Value)
	return nil
}

// emitLValue returns the pointer register a place expression resolves to,
// without loading it: used by assignment and by &/&mut expressions.
func (c *Context) emitLValue(e ast.Expr) (string, error) {
	switch ex := e.(type) {
	case *ast.Identifier:
		local, ok := c.Current.Locals[ex.Name]
		if !ok {
			return "", errors.Errorf("assignment to undeclared local %q", ex.Name)
		}
		return local.Register, nil
	case *ast.FieldAccess:
		return c.emitFieldPtr(ex)
	case *ast.Index:
		return c.emitIndexPtr(ex)
	default:
		return "", errors.Errorf("%T is not a valid assignment target", e)
	}
}

func (c *Context) emitBreak(st *ast.BreakStmt) error {
	loop, ok := c.Current.CurrentLoop()
	if !ok {
		return errors.New("break outside a loop")
	}
	if st.Value != nil {
		if _, _, err := c.emitExpr(st.Value); err != nil {
			return err
		}
	}
	fmt.Fprintf(&c.Buf.Body, "  br label %%%s\n", loop.Break)
	c.Current.BlockTerminated = true
	return nil
}

func (c *Context) emitContinue(st *ast.ContinueStmt) error {
	loop, ok := c.Current.CurrentLoop()
	if !ok {
		return errors.New("continue outside a loop")
	}
	fmt.Fprintf(&c.Buf.Body, "  br label %%%s\n", loop.Continue)
	c.Current.BlockTerminated = true
	return nil
}
