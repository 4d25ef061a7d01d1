package llvm

import (
	"github.com/hivellm/tml-sub014/internal/ast"
	"github.com/hivellm/tml-sub014/internal/types"
	"github.com/pkg/errors"
)

// Instantiation records a concrete monomorphization request: base name,
// type arguments, the mangled name they produced, and whether the body/
// type definition has already been emitted.
type Instantiation struct {
	Base           string
	TypeArgs       []types.Type
	Mangled        string
	AlreadyEmitted bool
}

// InstantiationRegistry is the on-demand monomorphization cache of §4.4.
// Cycle-safety comes from installing the cache entry before recursing into
// the declaration's fields/variants/parameters: a generic type that refers
// to itself through an indirection (e.g. a pointer field) finds its own
// cache entry already present on the recursive visit and stops.
type InstantiationRegistry struct {
	pendingStructs map[string]*ast.StructDecl
	pendingEnums   map[string]*ast.EnumDecl
	pendingFuncs   map[string]*ast.FuncDecl

	cache map[string]*Instantiation
}

func newInstantiationRegistry() *InstantiationRegistry {
	return &InstantiationRegistry{
		pendingStructs: make(map[string]*ast.StructDecl),
		pendingEnums:   make(map[string]*ast.EnumDecl),
		pendingFuncs:   make(map[string]*ast.FuncDecl),
		cache:          make(map[string]*Instantiation),
	}
}

// QueueStruct registers a generic struct declaration for later on-demand
// instantiation instead of emitting it directly.
func (r *InstantiationRegistry) QueueStruct(d *ast.StructDecl) {
	r.pendingStructs[d.Name.Name] = d
}

// QueueEnum registers a generic enum declaration for later instantiation.
func (r *InstantiationRegistry) QueueEnum(d *ast.EnumDecl) {
	r.pendingEnums[d.Name.Name] = d
}

// QueueFunc registers a generic function declaration for later instantiation.
func (r *InstantiationRegistry) QueueFunc(d *ast.FuncDecl) {
	r.pendingFuncs[d.Name.Name] = d
}

// RequireInstance resolves a GenericInstance reference (e.g. Maybe[I32]) to
// its concrete semantic type, instantiating the struct/enum on first
// request. Re-requests with identical arguments are idempotent: the cache
// is consulted before any recursion happens.
func (r *InstantiationRegistry) RequireInstance(ctx *Context, g *types.GenericInstance) (types.Type, error) {
	mangled, err := mangle(g.Base, g.Args)
	if err != nil {
		return nil, err
	}
	if inst, ok := r.cache[mangled]; ok {
		return r.concreteTypeFor(ctx, inst)
	}
	if d, ok := r.pendingStructs[g.Base]; ok {
		return r.instantiateStruct(ctx, d, g.Args, mangled)
	}
	if d, ok := r.pendingEnums[g.Base]; ok {
		return r.instantiateEnum(ctx, d, g.Args, mangled)
	}
	return nil, errors.Errorf("no pending generic declaration named %q", g.Base)
}

// RequireFuncInstance resolves (and, on first request, emits) a generic
// function applied to concrete type arguments, returning its mangled
// symbol name. Mirrors RequireInstance's cache-before-recursion discipline.
func (r *InstantiationRegistry) RequireFuncInstance(ctx *Context, base string, args []types.Type) (string, error) {
	mangled, err := mangle(base, args)
	if err != nil {
		return "", err
	}
	if inst, ok := r.cache[mangled]; ok {
		if !inst.AlreadyEmitted {
			inst.AlreadyEmitted = true
			if err := ctx.emitFuncInstantiation(r.pendingFuncs[base], args, mangled); err != nil {
				return "", err
			}
		}
		return mangled, nil
	}
	d, ok := r.pendingFuncs[base]
	if !ok {
		return "", errors.Errorf("no pending generic function named %q", base)
	}
	inst := &Instantiation{Base: base, TypeArgs: args, Mangled: mangled, AlreadyEmitted: true}
	r.cache[mangled] = inst // installed before recursion: cycle-safe
	if err := ctx.emitFuncInstantiation(d, args, mangled); err != nil {
		return "", err
	}
	return mangled, nil
}

func (r *InstantiationRegistry) instantiateStruct(ctx *Context, d *ast.StructDecl, args []types.Type, mangled string) (types.Type, error) {
	inst := &Instantiation{Base: d.Name.Name, TypeArgs: args, Mangled: mangled, AlreadyEmitted: true}
	r.cache[mangled] = inst // installed before recursion

	env := types.NewEnv(paramsFor(d.TypeParams), args)
	fields := make([]types.Field, len(d.Fields))
	for i, f := range d.Fields {
		fields[i] = types.Field{Name: f.Name.Name, Type: env.Resolve(f.Type)}
	}
	concrete := &types.Struct{Name: mangled, Fields: fields}
	_, slots, err := ctx.defineStruct(mangled, fields)
	if err != nil {
		return nil, err
	}
	if err := ctx.expandDerives(mangled, ast.ParseDerives(d.Attrs), slots); err != nil {
		return nil, err
	}
	return concrete, nil
}

func (r *InstantiationRegistry) instantiateEnum(ctx *Context, d *ast.EnumDecl, args []types.Type, mangled string) (types.Type, error) {
	inst := &Instantiation{Base: d.Name.Name, TypeArgs: args, Mangled: mangled, AlreadyEmitted: true}
	r.cache[mangled] = inst // installed before recursion

	env := types.NewEnv(paramsFor(d.TypeParams), args)
	variants := make([]types.Variant, len(d.Variants))
	for i, v := range d.Variants {
		payload := make([]types.Type, len(v.Payload))
		for j, p := range v.Payload {
			payload[j] = env.Resolve(p)
		}
		variants[i] = types.Variant{Name: v.Name.Name, Payload: payload}
	}
	concrete := &types.Enum{Name: mangled, Variants: variants}
	if _, err := ctx.defineEnum(mangled, variants); err != nil {
		return nil, err
	}
	if err := ctx.expandEnumDerives(mangled, ast.ParseDerives(d.Attrs), variants); err != nil {
		return nil, err
	}
	return concrete, nil
}

// concreteTypeFor reconstructs the (already-defined) concrete type for a
// cache hit, without re-emitting anything.
func (r *InstantiationRegistry) concreteTypeFor(ctx *Context, inst *Instantiation) (types.Type, error) {
	if d, ok := r.pendingStructs[inst.Base]; ok {
		env := types.NewEnv(paramsFor(d.TypeParams), inst.TypeArgs)
		fields := make([]types.Field, len(d.Fields))
		for i, f := range d.Fields {
			fields[i] = types.Field{Name: f.Name.Name, Type: env.Resolve(f.Type)}
		}
		return &types.Struct{Name: inst.Mangled, Fields: fields}, nil
	}
	if d, ok := r.pendingEnums[inst.Base]; ok {
		env := types.NewEnv(paramsFor(d.TypeParams), inst.TypeArgs)
		variants := make([]types.Variant, len(d.Variants))
		for i, v := range d.Variants {
			payload := make([]types.Type, len(v.Payload))
			for j, p := range v.Payload {
				payload[j] = env.Resolve(p)
			}
			variants[i] = types.Variant{Name: v.Name.Name, Payload: payload}
		}
		return &types.Enum{Name: inst.Mangled, Variants: variants}, nil
	}
	return nil, errors.Errorf("instantiation cache entry %q has no pending declaration", inst.Mangled)
}

func paramsFor(names []string) []types.TypeParam {
	out := make([]types.TypeParam, len(names))
	for i, n := range names {
		out[i] = types.TypeParam{Name: n}
	}
	return out
}
