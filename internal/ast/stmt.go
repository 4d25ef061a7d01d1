package ast

import "github.com/hivellm/tml-sub014/internal/diag"

type stmtBase struct{ Sp diag.Span }

func (b *stmtBase) Span() diag.Span { return b.Sp }
func (b *stmtBase) stmtNode()       {}

// LetStmt binds a new local variable.
type LetStmt struct {
	stmtBase
	Name    string
	Declared Type // explicit annotation, if any; may be nil (inferred)
	Value   Expr
}

// AssignStmt is `place = value` or a compound assignment.
type AssignStmt struct {
	stmtBase
	Op    BinOp // meaningful only when Compound is true
	Compound bool
	Place Expr
	Value Expr
}

// ExprStmt evaluates an expression for its side effects, discarding the value.
type ExprStmt struct {
	stmtBase
	X Expr
}

// ReturnStmt returns a value (nil Value means `return` with no expression).
type ReturnStmt struct {
	stmtBase
	Value Expr
}

// BreakStmt exits the innermost loop.
type BreakStmt struct {
	stmtBase
	Value Expr // nil unless the loop is used as a value-producing expression
}

// ContinueStmt restarts the innermost loop.
type ContinueStmt struct {
	stmtBase
}
