package llvm

import (
	"fmt"
	"strings"

	"github.com/hivellm/tml-sub014/internal/ast"
)

// stringConstCounter numbers each distinct string literal's global constant.
var stringConstCounter int

// emitStringConstant interns a string literal as a private global constant
// and returns a register holding an i8* pointer to its first byte, via the
// standard getelementptr-into-a-global idiom.
func (c *Context) emitStringConstant(s string) (string, error) {
	return c.emitStringConstantInto(&c.Buf.Body, s)
}

// emitStringConstantInto is emitStringConstant, but the getelementptr that
// materializes the pointer is written into buf instead of always the
// function body — used by derive.go, which builds its generated methods
// directly in the prelude stream.
func (c *Context) emitStringConstantInto(buf *strings.Builder, s string) (string, error) {
	stringConstCounter++
	name := fmt.Sprintf("@.str.%d", stringConstCounter)
	n := len(s) + 1
	fmt.Fprintf(&c.Buf.Prelude, "%s = private unnamed_addr constant [%d x i8] c\"%s\\00\"\n", name, n, escapeLLVMString(s))
	reg := c.Names.FreshReg()
	fmt.Fprintf(buf, "  %s = getelementptr [%d x i8], [%d x i8]* %s, i32 0, i32 0\n", reg, n, n, name)
	return reg, nil
}

// emitConcatInto folds two i8* strings together with the runtime's
// tml_string_concat, writing the call into buf.
func (c *Context) emitConcatInto(buf *strings.Builder, a, b string) string {
	out := c.Names.FreshReg()
	fmt.Fprintf(buf, "  %s = call i8* @tml_string_concat(i8* %s, i8* %s)\n", out, a, b)
	return out
}

func escapeLLVMString(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		b := s[i]
		switch b {
		case '"':
			out = append(out, []byte(`\22`)...)
		case '\\':
			out = append(out, []byte(`\5C`)...)
		case '\n':
			out = append(out, []byte(`\0A`)...)
		default:
			out = append(out, b)
		}
	}
	return string(out)
}

// emitInterp lowers a template-literal by building each fragment and
// expression piece as a string, then folding them together with the
// runtime's tml_string_concat, matching the heap-string-producing
// convention the lifetime tracker watches for.
func (c *Context) emitInterp(in *ast.Interp) (string, string, error) {
	var acc string
	first := true
	for _, part := range in.Parts {
		var piece string
		if part.Expr == nil {
			reg, err := c.emitStringConstant(part.Literal)
			if err != nil {
				return "", "", err
			}
			piece = reg
		} else {
			reg, llty, err := c.emitExpr(part.Expr)
			if err != nil {
				return "", "", err
			}
			converted, err := c.emitToString(reg, llty, part.Expr.Type())
			if err != nil {
				return "", "", err
			}
			piece = converted
		}
		if first {
			acc = piece
			first = false
			continue
		}
		out := c.Names.FreshReg()
		fmt.Fprintf(&c.Buf.Body, "  %s = call i8* @tml_string_concat(i8* %s, i8* %s)\n", out, acc, piece)
		c.markPendingString(out)
		acc = out
	}
	if first {
		return c.emitStringConstant("")
	}
	return acc, "i8*", nil
}

// emitToString converts any primitive value to a heap i8* string via the
// runtime's typed formatting entry points, matching the call-name surface
// the intrinsic dispatcher also exposes for explicit to_string() calls.
func (c *Context) emitToString(reg, llty string, semType ast.Type) (string, error) {
	if llty == "i8*" {
		return reg, nil
	}
	fn := runtimeToStringFunc(llty)
	out := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Body, "  %s = call i8* @%s(%s %s)\n", out, fn, llty, reg)
	c.markPendingString(out)
	return out, nil
}

func runtimeToStringFunc(llty string) string {
	switch llty {
	case "i1":
		return "tml_bool_to_string"
	case "float", "double":
		return "tml_float_to_string"
	default:
		return "tml_int_to_string"
	}
}

// markPendingString records that reg holds a freshly heap-allocated string
// awaiting either transfer to a `let` binding or a free at the next
// statement boundary (§3 invariant 7 / §4.9).
func (c *Context) markPendingString(reg string) {
	c.Current.PendingStrings = append(c.Current.PendingStrings, reg)
}

func (c *Context) ownsPendingString(reg string) bool {
	for _, r := range c.Current.PendingStrings {
		if r == reg {
			return true
		}
	}
	return false
}

func (c *Context) clearPendingString(reg string) {
	out := c.Current.PendingStrings[:0]
	for _, r := range c.Current.PendingStrings {
		if r != reg {
			out = append(out, r)
		}
	}
	c.Current.PendingStrings = out
}

// freePendingStrings frees every heap string temporary still pending after
// evaluating the statement rooted at e, skipping registers that escaped
// into e's own result (a `let` initializer transfers ownership instead,
// via emitLetStmt's ownsPendingString/clearPendingString pair and never
// reaches here).
func (c *Context) freePendingStrings(e ast.Expr) {
	if c.Current.InLibraryImpl {
		return
	}
	for _, reg := range c.Current.PendingStrings {
		fmt.Fprintf(&c.Buf.Body, "  call void @tml_string_free(i8* %s)\n", reg)
	}
	c.Current.PendingStrings = nil
}
