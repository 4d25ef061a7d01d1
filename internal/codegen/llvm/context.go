// Package llvm is the LLVM IR emission engine: the code-generation core
// described by the specification this module implements. It walks a fully
// type-checked module tree and streams textual LLVM IR into a prelude
// stream (type definitions, derived methods, constants) and a body stream
// (function definitions), concatenated with a header at the end of a run.
package llvm

import (
	"strconv"
	"strings"

	lltypes "github.com/llir/llvm/ir/types"

	"github.com/hivellm/tml-sub014/internal/ast"
	"github.com/hivellm/tml-sub014/internal/diag"
)

// Buffers holds the two append-only text streams every component writes
// into. The prelude precedes the body in the final module so any type a
// function body references is always already defined (Invariant 3).
type Buffers struct {
	Prelude strings.Builder
	Body    strings.Builder
}

// NameState is the fresh-symbol allocator (§4.3): three monotonic counters.
// Reg and Label reset at function entry; DebugID is module-scoped and never
// resets.
type NameState struct {
	reg     int
	label   int
	debugID int
}

// ResetFunction starts a new function's register/label numbering.
func (n *NameState) ResetFunction() {
	n.reg = 0
	n.label = 0
}

// FreshReg returns the next unique SSA register name, %N.
func (n *NameState) FreshReg() string {
	r := "%" + strconv.Itoa(n.reg)
	n.reg++
	return r
}

// FreshLabel returns the next unique block label, prefix_N.
func (n *NameState) FreshLabel(prefix string) string {
	l := prefix + "_" + strconv.Itoa(n.label)
	n.label++
	return l
}

// FreshDebugID returns the next module-scoped metadata ID, !N.
func (n *NameState) FreshDebugID() int {
	n.debugID++
	return n.debugID
}

// FieldSlot is one entry of a struct's ordered field table.
type FieldSlot struct {
	Name    string
	Index   int
	LLVMType string
}

// FuncSig is a function's signature record, reachable through every key the
// symbol table multiplexes onto it.
type FuncSig struct {
	Symbol     string // LLVM symbol, without '@'
	LLVMFnType string // full "rettype (argtype, ...)" string
	ReturnType string // LLVM return type string
	ParamTypes []string
	IsAsync    bool
}

// FuncKey is the stable identity used to dedupe emitted functions
// (REDESIGN FLAG: module path + mangled name, not a bare name guard).
type FuncKey struct {
	Module  string
	Mangled string
}

// Tables are the five symbol tables of §4.5, all keyed by mangled name
// where applicable.
type Tables struct {
	StructTypes map[string]string               // mangled -> "%struct.<mangled>"
	StructFields map[string][]FieldSlot          // mangled -> ordered fields
	StructFieldLLTypes map[string][]lltypes.Type // mangled -> field LLVM types, for size calc

	EnumTypes    map[string]string         // mangled -> "%enum.<mangled>"
	EnumVariants map[string]map[string]int // mangled -> variant -> tag

	Functions *FunctionIndex

	Emitted         map[FuncKey]bool // dedupe across directory modules
	HeapStringFuncs map[string]bool  // functions whose return is a heap string

	LLStructTypes map[string]*lltypes.StructType // cache for TypeLowerer
	LLEnumTypes   map[string]*lltypes.StructType
}

func newTables() *Tables {
	return &Tables{
		StructTypes:        make(map[string]string),
		StructFields:       make(map[string][]FieldSlot),
		StructFieldLLTypes: make(map[string][]lltypes.Type),
		EnumTypes:          make(map[string]string),
		EnumVariants:       make(map[string]map[string]int),
		Functions:          NewFunctionIndex(),
		Emitted:            make(map[FuncKey]bool),
		HeapStringFuncs:    make(map[string]bool),
		LLStructTypes:      make(map[string]*lltypes.StructType),
		LLEnumTypes:        make(map[string]*lltypes.StructType),
	}
}

// LocalInfo describes one local variable or parameter binding live in the
// current function.
type LocalInfo struct {
	Register     string
	LLVMType     string
	SemanticType ast.Type
	// Lifetime is non-nil when this binding owns a heap string temporary
	// whose cleanup transferred to it (§3 invariant 7).
	Lifetime *LifetimeInfo
}

// LifetimeInfo marks that a local owns a heap allocation freed on scope exit.
type LifetimeInfo struct {
	Owned bool
}

// loopLabels is the break/continue target pair for one enclosing loop.
type loopLabels struct {
	Break, Continue string
}

// FunctionState is the current-function scope record of §3: one instance,
// pushed and restored around nested closure bodies (closures get their own
// top-level function and therefore their own FunctionState).
type FunctionState struct {
	Name            string
	ReturnLLVMType  string
	IsAsync         bool
	PollWrapperType string // mangled Poll[T] enum name, set iff IsAsync
	ImplMethodOf    string // receiver type name, "" for free functions
	Loops           []loopLabels
	StackSaveReg    string
	PendingStrings  []string // registers awaiting a free at the next statement boundary
	// PendingClosureDefs queues closure bodies created inside this function,
	// emitted as sibling top-level functions once this function closes
	// (see closures.go: LLVM functions cannot nest).
	PendingClosureDefs []pendingClosure
	DebugScopeID       int
	Locals          map[string]*LocalInfo
	BlockTerminated bool
	// InLibraryImpl disables string-temp tracking inside library-impl
	// bodies so temps handed to a longer-lived container are not freed
	// out from under it (§4.9).
	InLibraryImpl bool
}

func newFunctionState(name string) *FunctionState {
	return &FunctionState{Name: name, Locals: make(map[string]*LocalInfo)}
}

// PushLoop registers a new innermost loop's break/continue labels.
func (f *FunctionState) PushLoop(breakLabel, continueLabel string) {
	f.Loops = append(f.Loops, loopLabels{Break: breakLabel, Continue: continueLabel})
}

// PopLoop removes the innermost loop's labels.
func (f *FunctionState) PopLoop() {
	f.Loops = f.Loops[:len(f.Loops)-1]
}

// CurrentLoop returns the innermost loop's labels, if any.
func (f *FunctionState) CurrentLoop() (loopLabels, bool) {
	if len(f.Loops) == 0 {
		return loopLabels{}, false
	}
	return f.Loops[len(f.Loops)-1], true
}

// Context is the restructured module context of §9's REDESIGN FLAGS: one
// value with explicit sub-sections, threaded through every component,
// instead of one flat field-soup generator struct.
type Context struct {
	Opts    Options
	Buf     Buffers
	Names   NameState
	Tables  *Tables
	Insts   *InstantiationRegistry
	Diags   *diag.Collector
	Current *FunctionState

	TypeLowerer *TypeLowerer

	// derivePrevFunc holds the enclosing FunctionState while a derived
	// method (see derive.go) temporarily becomes Current.
	derivePrevFunc *FunctionState

	// Modules holds every module loaded alongside the one being compiled,
	// keyed by module path, so cross-module calls resolve purely through
	// the function index (no import resolution at codegen time).
	Modules map[string]*ast.Module

	// debugCUEmitted guards the one-time DIFile/DICompileUnit/module-flags
	// trio emitted on the first function compiled with EmitDebugInfo set.
	debugCUEmitted        bool
	debugFileID           int
	debugCUID             int
	debugSubroutineTypeID int

	// typeInfoDefEmitted guards the one-time %struct.TypeInfo type
	// definition emitted on the first @derive(Reflect) (§4.7).
	typeInfoDefEmitted bool
}

// NewContext builds a fresh engine context.
func NewContext(opts Options) *Context {
	ctx := &Context{
		Opts:    opts,
		Tables:  newTables(),
		Diags:   diag.NewCollector(),
		Modules: make(map[string]*ast.Module),
	}
	ctx.Insts = newInstantiationRegistry()
	ctx.TypeLowerer = newTypeLowerer(ctx)
	return ctx
}

// BeginFunction resets per-function counters and pushes a fresh
// FunctionState, returning the previous one so closures can restore it.
func (c *Context) BeginFunction(name string) (prev *FunctionState) {
	prev = c.Current
	c.Names.ResetFunction()
	c.Current = newFunctionState(name)
	return prev
}

// EndFunction restores the enclosing function's state (used when a nested
// closure body finishes emitting).
func (c *Context) EndFunction(prev *FunctionState) {
	c.Current = prev
}

