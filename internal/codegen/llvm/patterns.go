package llvm

import (
	"fmt"

	lltypes "github.com/llir/llvm/ir/types"

	"github.com/hivellm/tml-sub014/internal/ast"
	"github.com/hivellm/tml-sub014/internal/types"
	"github.com/pkg/errors"
)

// emitMatch lowers a `when` expression to a tag-based switch over the
// scrutinee's enum representation ({ i32 tag, [N x i64] payload }),
// destructuring bound payload fields per arm. Only variant patterns get a
// switch case; an arm with any other pattern (wildcard, binding, literal,
// or-pattern) becomes the switch default. Arm guards are not evaluated.
func (c *Context) emitMatch(m *ast.Match) (string, string, error) {
	scrutRecv, scrutLLType, err := c.emitExpr(m.Scrutinee)
	if err != nil {
		return "", "", err
	}
	e, ok := underlyingEnum(m.Scrutinee.Type())
	if !ok {
		return "", "", errors.Errorf("when-expression scrutinee is not an enum: %s", m.Scrutinee.Type())
	}
	mangled := sanitizeModulePath(e.Name)
	tags, ok := c.Tables.EnumVariants[mangled]
	if !ok {
		return "", "", errors.Errorf("enum %q has no registered variant table", mangled)
	}

	baseType := scrutLLType
	if len(baseType) > 0 && baseType[len(baseType)-1] == '*' {
		baseType = baseType[:len(baseType)-1]
	}
	tagPtr := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Body, "  %s = getelementptr %s, %s* %s, i32 0, i32 0\n", tagPtr, baseType, baseType, scrutRecv)
	tagReg := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Body, "  %s = load i32, i32* %s\n", tagReg, tagPtr)

	joinLabel := c.Names.FreshLabel("match_join")
	defaultLabel := c.Names.FreshLabel("match_default")

	type arm struct {
		label string
		arm   *ast.MatchArm
		tag   int
	}
	arms := make([]arm, 0, len(m.Arms))
	cases := make([]string, 0, len(m.Arms))
	for i := range m.Arms {
		a := &m.Arms[i]
		label := c.Names.FreshLabel("match_arm")
		vp, ok := patternVariant(a.Pattern)
		if ok {
			tag, ok := tags[vp.VariantName]
			if !ok {
				return "", "", errors.Errorf("enum %q has no variant %q", mangled, vp.VariantName)
			}
			cases = append(cases, fmt.Sprintf("i32 %d, label %%%s", tag, label))
			arms = append(arms, arm{label: label, arm: a, tag: tag})
		} else {
			// Wildcard/bind-all arm: becomes the switch default.
			defaultLabel = label
			arms = append(arms, arm{label: label, arm: a, tag: -1})
		}
	}

	fmt.Fprintf(&c.Buf.Body, "  switch i32 %s, label %%%s [\n", tagReg, defaultLabel)
	for _, cs := range cases {
		fmt.Fprintf(&c.Buf.Body, "    %s\n", cs)
	}
	fmt.Fprintf(&c.Buf.Body, "  ]\n")

	var resultType string
	type incoming struct {
		reg, label string
	}
	var incomings []incoming
	anyTerminated := true

	for _, a := range arms {
		fmt.Fprintf(&c.Buf.Body, "%s:\n", a.label)
		c.Current.BlockTerminated = false
		if a.tag >= 0 {
			c.bindVariantPayload(a.arm.Pattern, baseType, scrutRecv, mangled, e, a.tag)
		}
		reg, llty, err := c.emitBlockValue(a.arm.Body)
		if err != nil {
			return "", "", err
		}
		if !c.Current.BlockTerminated {
			anyTerminated = false
			fmt.Fprintf(&c.Buf.Body, "  br label %%%s\n", joinLabel)
			incomings = append(incomings, incoming{reg: reg, label: a.label})
			if llty != "void" {
				resultType = llty
			}
		}
	}

	fmt.Fprintf(&c.Buf.Body, "%s:\n", joinLabel)
	c.Current.BlockTerminated = anyTerminated
	if resultType == "" || resultType == "void" {
		return "", "void", nil
	}
	out := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Body, "  %s = phi %s", out, resultType)
	for i, inc := range incomings {
		if i > 0 {
			fmt.Fprint(&c.Buf.Body, ",")
		}
		fmt.Fprintf(&c.Buf.Body, " [ %s, %%%s ]", inc.reg, inc.label)
	}
	fmt.Fprintf(&c.Buf.Body, "\n")
	return out, resultType, nil
}

func patternVariant(p ast.Pattern) (*ast.VariantPattern, bool) {
	if vp, ok := p.(ast.VariantPattern); ok {
		return &vp, true
	}
	return nil, false
}

// bindVariantPayload destructures a matched variant's payload fields into
// new locals named by the pattern's Bindings, in declaration order.
func (c *Context) bindVariantPayload(p ast.Pattern, baseType, scrutRecv, mangled string, e *types.Enum, tag int) {
	vp, ok := patternVariant(p)
	if !ok || len(vp.Bindings) == 0 {
		return
	}
	variant := e.Variants[tag]
	payloadLLType := payloadArrayType(c.Tables.LLEnumTypes[mangled])
	payloadPtr := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Body, "  %s = getelementptr %s, %s* %s, i32 0, i32 1\n", payloadPtr, baseType, baseType, scrutRecv)
	payloadBytes := c.Names.FreshReg()
	fmt.Fprintf(&c.Buf.Body, "  %s = bitcast %s* %s to i8*\n", payloadBytes, payloadLLType, payloadPtr)

	offset := 0
	for i, bindName := range vp.Bindings {
		if i >= len(variant.Payload) {
			break
		}
		llt, err := c.TypeLowerer.Lower(variant.Payload[i])
		if err != nil {
			continue
		}
		llty := llText(llt)
		fieldBytes := c.Names.FreshReg()
		fmt.Fprintf(&c.Buf.Body, "  %s = getelementptr i8, i8* %s, i64 %d\n", fieldBytes, payloadBytes, offset)
		slot := c.Names.FreshReg()
		fmt.Fprintf(&c.Buf.Body, "  %s = bitcast i8* %s to %s*\n", slot, fieldBytes, llty)
		c.Current.Locals[bindName] = &LocalInfo{Register: slot, LLVMType: llty}
		offset += c.TypeLowerer.sizeOf(llt)
	}
}

// payloadArrayType returns the textual LLVM type of an enum's second field
// (the [N x i64] payload array, or "i32" itself if the enum has no
// payload-bearing variants and defineEnum omitted the field).
func payloadArrayType(def *lltypes.StructType) string {
	if def == nil || len(def.Fields) < 2 {
		return "i32"
	}
	return llText(def.Fields[1])
}

func underlyingEnum(t types.Type) (*types.Enum, bool) {
	switch v := t.(type) {
	case *types.Enum:
		return v, true
	case *types.Reference:
		return underlyingEnum(v.Elem)
	case *types.Pointer:
		return underlyingEnum(v.Elem)
	default:
		return nil, false
	}
}
