// Package ast defines the shape of the fully type-checked module tree the
// emission engine consumes. The lexer, parser, and type checker that build
// these trees are external collaborators; this package only states the
// node shapes the engine reads.
package ast

import (
	"github.com/hivellm/tml-sub014/internal/diag"
	"github.com/hivellm/tml-sub014/internal/types"
)

// Type is the semantic type attached to a node by the checker.
type Type = types.Type

// Node is any tree node with a source span.
type Node interface {
	Span() diag.Span
}

// Decl is a top-level or impl-block declaration.
type Decl interface {
	Node
	declNode()
}

// Expr is a type-checked expression. infer_expr_type is modeled as the
// Type() accessor every expression node carries once checked.
type Expr interface {
	Node
	exprNode()
	// Type returns the semantic type the checker attached to this node.
	Type() Type
}

// Stmt is a statement inside a block.
type Stmt interface {
	Node
	stmtNode()
}

// Ident is a bare identifier reference.
type Ident struct {
	Name string
	Sp   diag.Span
}

func (i *Ident) Span() diag.Span { return i.Sp }

// Visibility controls linkage defaults for a declaration.
type Visibility int

const (
	VisPrivate Visibility = iota
	VisPublic
	VisMain // the program entry point
)

// AttrKind enumerates the decorator forms the checker recognizes.
//
// This is the REDESIGN-FLAGGED DeriveKind-style enum: decorator identity is
// decided once, here, rather than compared as a string at every emission
// site that cares about it.
type AttrKind int

const (
	AttrExtern AttrKind = iota
	AttrLink
	AttrDerive
	AttrTest
	AttrBench
	AttrShouldPanic
	AttrIgnore
	AttrStable
	AttrAllocates
	AttrIntrinsic
)

// Attribute is one decorator attached to a declaration, e.g. @extern("c").
type Attribute struct {
	Kind AttrKind
	// Args holds the decorator's literal identifier/string arguments, e.g.
	// the ABI name for @extern, the library name for @link, or the derive
	// names for @derive.
	Args []string
}

// DeriveKind enumerates the derive macros the engine can expand. Parsed
// once from an @derive(...) attribute's Args during an early sweep so the
// derive engine matches on the enum, never on the argument strings.
type DeriveKind int

const (
	DerivePartialEq DeriveKind = iota
	DeriveEq
	DeriveHash
	DeriveDebug
	DeriveDisplay
	DeriveDefault
	DeriveFromStr
	DeriveSerialize
	DeriveDeserialize
	DeriveReflect
)

var deriveNames = map[string]DeriveKind{
	"PartialEq":   DerivePartialEq,
	"Eq":          DeriveEq,
	"Hash":        DeriveHash,
	"Debug":       DeriveDebug,
	"Display":     DeriveDisplay,
	"Default":     DeriveDefault,
	"FromStr":     DeriveFromStr,
	"Serialize":   DeriveSerialize,
	"Deserialize": DeriveDeserialize,
	"Reflect":     DeriveReflect,
}

// ParseDerives converts an @derive(...) attribute's argument names into
// DeriveKind values, discarding (silently; the checker already validated
// them) anything unrecognized.
func ParseDerives(attrs []Attribute) []DeriveKind {
	var out []DeriveKind
	for _, a := range attrs {
		if a.Kind != AttrDerive {
			continue
		}
		for _, name := range a.Args {
			if k, ok := deriveNames[name]; ok {
				out = append(out, k)
			}
		}
	}
	return out
}

// HasAttr reports whether any attribute of the given kind is present.
func HasAttr(attrs []Attribute, kind AttrKind) bool {
	for _, a := range attrs {
		if a.Kind == kind {
			return true
		}
	}
	return false
}

// FindAttr returns the first attribute of the given kind, if present.
func FindAttr(attrs []Attribute, kind AttrKind) (Attribute, bool) {
	for _, a := range attrs {
		if a.Kind == kind {
			return a, true
		}
	}
	return Attribute{}, false
}

// Field is one member of a struct declaration.
type Field struct {
	Name *Ident
	Type Type
}

// StructDecl declares a (possibly generic) struct type.
type StructDecl struct {
	Name       *Ident
	Vis        Visibility
	Attrs      []Attribute
	TypeParams []string
	Fields     []Field
	Sp         diag.Span
}

func (d *StructDecl) Span() diag.Span { return d.Sp }
func (d *StructDecl) declNode()       {}

// IsGeneric reports whether the struct must be queued rather than emitted directly.
func (d *StructDecl) IsGeneric() bool { return len(d.TypeParams) > 0 }

// VariantDecl is one arm of an enum declaration.
type VariantDecl struct {
	Name    *Ident
	Payload []Type
}

// EnumDecl declares a (possibly generic) tagged union.
type EnumDecl struct {
	Name       *Ident
	Vis        Visibility
	Attrs      []Attribute
	TypeParams []string
	Variants   []VariantDecl
	Sp         diag.Span
}

func (d *EnumDecl) Span() diag.Span { return d.Sp }
func (d *EnumDecl) declNode()       {}

func (d *EnumDecl) IsGeneric() bool { return len(d.TypeParams) > 0 }

// IsSimple reports whether no variant carries a payload.
func (d *EnumDecl) IsSimple() bool {
	for _, v := range d.Variants {
		if len(v.Payload) > 0 {
			return false
		}
	}
	return true
}

// Param is a function parameter.
type Param struct {
	Name   *Ident
	Type   Type
	IsSelf bool
}

// FuncDecl declares a (possibly generic, possibly extern, possibly async) function.
type FuncDecl struct {
	Name       *Ident
	Vis        Visibility
	Attrs      []Attribute
	TypeParams []string
	Params     []Param
	ReturnType Type // nil means Unit
	IsAsync    bool
	Body       *Block // nil for extern declarations
	// ImplOf is set when this FuncDecl is a method; empty for free functions.
	ImplOf   string
	IsStatic bool // methods only: true when there is no implicit `this`
	Sp       diag.Span
}

func (d *FuncDecl) Span() diag.Span { return d.Sp }
func (d *FuncDecl) declNode()       {}

func (d *FuncDecl) IsGeneric() bool { return len(d.TypeParams) > 0 }

// ExternSpec is the resolved content of an @extern(abi) attribute.
type ExternSpec struct {
	ABI string
}

// Extern returns the function's ABI if it carries @extern, and whether it does.
func (d *FuncDecl) Extern() (ExternSpec, bool) {
	if a, ok := FindAttr(d.Attrs, AttrExtern); ok && len(a.Args) > 0 {
		return ExternSpec{ABI: a.Args[0]}, true
	}
	return ExternSpec{}, false
}

// LinkLibs returns every library named by @link(...) attributes.
func (d *FuncDecl) LinkLibs() []string {
	var libs []string
	for _, a := range d.Attrs {
		if a.Kind == AttrLink {
			libs = append(libs, a.Args...)
		}
	}
	return libs
}

// ImplDecl groups methods implemented for a receiver type.
type ImplDecl struct {
	TypeName *Ident
	Methods  []*FuncDecl
	Sp       diag.Span
}

func (d *ImplDecl) Span() diag.Span { return d.Sp }
func (d *ImplDecl) declNode()       {}

// Module is a fully type-checked compilation unit handed to the engine.
type Module struct {
	Name  string
	Decls []Decl
	// Imports maps a short module alias to the module providing it, for
	// cross-module call resolution performed entirely through the symbol
	// tables (no import resolution happens at codegen time).
	Imports map[string]*Module
}
