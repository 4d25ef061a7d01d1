package llvm

import (
	"fmt"

	"github.com/hivellm/tml-sub014/internal/ast"
	"github.com/hivellm/tml-sub014/internal/types"
	"github.com/pkg/errors"
)

// emitStructLit allocates a struct value on the heap via the runtime's
// tml_alloc and stores each field in declaration order, matching the
// by-pointer struct representation the type lowerer commits to
// (lowerNamedStruct always wraps a named struct in a pointer).
func (c *Context) emitStructLit(sl *ast.StructLit) (string, string, error) {
	structType := sl.Type()
	if inst, ok := structType.(*types.GenericInstance); ok {
		resolved, err := c.Insts.RequireInstance(c, inst)
		if err != nil {
			return "", "", err
		}
		structType = resolved
	}
	s, ok := structType.(*types.Struct)
	if !ok {
		return "", "", errors.Errorf("struct literal %q resolved to non-struct type %T", sl.StructName, structType)
	}
	mangled := sanitizeModulePath(s.Name)
	slots, ok := c.Tables.StructFields[mangled]
	if !ok {
		return "", "", errors.Errorf("struct %q has no registered field layout", mangled)
	}
	llStructName := c.Tables.StructTypes[mangled]

	sizeReg := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Body, "  %s = getelementptr %s, %s* null, i32 1\n", sizeReg, llStructName, llStructName)
	sizeInt := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Body, "  %s = ptrtoint %s* %s to i64\n", sizeInt, llStructName, sizeReg)
	raw := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Body, "  %s = call i8* @tml_alloc(i64 %s)\n", raw, sizeInt)
	ptr := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Body, "  %s = bitcast i8* %s to %s*\n", ptr, raw, llStructName)

	for i, name := range sl.FieldNames {
		slot := findFieldSlot(slots, name)
		if slot == nil {
			return "", "", errors.Errorf("struct %q has no field %q", mangled, name)
		}
		valReg, valType, err := c.emitExpr(sl.FieldVals[i])
		if err != nil {
			return "", "", err
		}
		fieldPtr := c.Names.FreshReg()
		fmt.Fprintf(&c.Buf.Body, "  %s = getelementptr %s, %s* %s, i32 0, i32 %d\n", fieldPtr, llStructName, llStructName, ptr, slot.Index)
		fmt.Fprintf(&c.Buf.Body, "  store %s %s, %s* %s\n", valType, valReg, valType, fieldPtr)
	}
	return ptr, llStructName + "*", nil
}

func findFieldSlot(slots []FieldSlot, name string) *FieldSlot {
	for i := range slots {
		if slots[i].Name == name {
			return &slots[i]
		}
	}
	return nil
}

func (c *Context) emitFieldAccess(fa *ast.FieldAccess) (string, string, error) {
	ptr, err := c.emitFieldPtr(fa)
	if err != nil {
		return "", "", err
	}
	llty, err := c.lowerText(fa.Type())
	if err != nil {
		return "", "", err
	}
	out := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Body, "  %s = load %s, %s* %s\n", out, llty, llty, ptr)
	return out, llty, nil
}

// emitFieldPtr returns the pointer to a struct field without loading it.
func (c *Context) emitFieldPtr(fa *ast.FieldAccess) (string, error) {
	receiverType := fa.Receiver.Type()
	s, ok := underlyingStruct(receiverType)
	if !ok {
		return "", errors.Errorf("field access %q on non-struct type %s", fa.Field, receiverType)
	}
	mangled := sanitizeModulePath(s.Name)
	slots, ok := c.Tables.StructFields[mangled]
	if !ok {
		return "", errors.Errorf("struct %q has no registered field layout", mangled)
	}
	slot := findFieldSlot(slots, fa.Field)
	if slot == nil {
		return "", errors.Errorf("struct %q has no field %q", mangled, fa.Field)
	}
	recvPtr, recvType, err := c.emitExpr(fa.Receiver)
	if err != nil {
		return "", err
	}
	baseType := recvType
	if len(baseType) > 0 && baseType[len(baseType)-1] == '*' {
		baseType = baseType[:len(baseType)-1]
	}
	out := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Body, "  %s = getelementptr %s, %s* %s, i32 0, i32 %d\n", out, baseType, baseType, recvPtr, slot.Index)
	return out, nil
}

func underlyingStruct(t types.Type) (*types.Struct, bool) {
	switch v := t.(type) {
	case *types.Struct:
		return v, true
	case *types.Reference:
		return underlyingStruct(v.Elem)
	case *types.Pointer:
		return underlyingStruct(v.Elem)
	default:
		return nil, false
	}
}

// emitArrayLit allocas a fixed-size array and stores each element.
func (c *Context) emitArrayLit(al *ast.ArrayLit) (string, string, error) {
	llty, err := c.lowerText(al.Type())
	if err != nil {
		return "", "", err
	}
	slot := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Body, "  %s = alloca %s\n", slot, llty)
	for i, elem := range al.Elems {
		valReg, valType, err := c.emitExpr(elem)
		if err != nil {
			return "", "", err
		}
		elemPtr := c.Names.FreshReg()
		fmt.Fprintf(&c.Buf.Body, "  %s = getelementptr %s, %s* %s, i32 0, i32 %d\n", elemPtr, llty, llty, slot, i)
		fmt.Fprintf(&c.Buf.Body, "  store %s %s, %s* %s\n", valType, valReg, valType, elemPtr)
	}
	out := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Body, "  %s = load %s, %s* %s\n", out, llty, llty, slot)
	return out, llty, nil
}

func (c *Context) emitIndex(ix *ast.Index) (string, string, error) {
	ptr, err := c.emitIndexPtr(ix)
	if err != nil {
		return "", "", err
	}
	llty, err := c.lowerText(ix.Type())
	if err != nil {
		return "", "", err
	}
	out := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Body, "  %s = load %s, %s* %s\n", out, llty, llty, ptr)
	return out, llty, nil
}

func (c *Context) emitIndexPtr(ix *ast.Index) (string, error) {
	recvPtr, err := c.emitLValue(ix.Receiver)
	if err != nil {
		return "", err
	}
	recvLLType, err := c.lowerText(ix.Receiver.Type())
	if err != nil {
		return "", err
	}
	idxReg, idxType, err := c.emitExpr(ix.Idx)
	if err != nil {
		return "", err
	}
	out := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Body, "  %s = getelementptr %s, %s* %s, i32 0, %s %s\n", out, recvLLType, recvLLType, recvPtr, idxType, idxReg)
	return out, nil
}
