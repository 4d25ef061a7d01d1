package llvm

import (
	"strconv"
	"strings"

	"github.com/hivellm/tml-sub014/internal/types"
	"github.com/pkg/errors"
)

// mangle produces a stable mangled name for base applied to typeArgs:
//
//	base "__" t1 "__" t2 ...
//
// Mangling is a total function over supported type variants: same input
// always yields byte-identical output, across runs and machines. It is
// grounded on the teacher's generateMangledNameFromTypes (§ mangling.go in
// the example pack), generalized from "$"-joined short names to the
// "__"-joined scheme §6 requires.
func mangle(base string, typeArgs []types.Type) (string, error) {
	if len(typeArgs) == 0 {
		return base, nil
	}
	parts := make([]string, 0, len(typeArgs)+1)
	parts = append(parts, base)
	for _, arg := range typeArgs {
		m, err := mangleType(arg)
		if err != nil {
			return "", errors.Wrapf(err, "mangling %s", base)
		}
		parts = append(parts, m)
	}
	return strings.Join(parts, "__"), nil
}

// mangleType renders one semantic type into its mangled fragment. It never
// fails for a type variant a checked program can actually produce; an error
// here is always a type-checker invariant violation, not a user error.
func mangleType(t types.Type) (string, error) {
	switch typ := t.(type) {
	case *types.Primitive:
		return string(typ.Kind), nil

	case *types.Pointer:
		elem, err := mangleType(typ.Elem)
		if err != nil {
			return "", err
		}
		return "P_" + elem, nil

	case *types.Reference:
		elem, err := mangleType(typ.Elem)
		if err != nil {
			return "", err
		}
		if typ.Kind == types.RefMutable {
			return "MR_" + elem, nil
		}
		return "R_" + elem, nil

	case *types.Array:
		elem, err := mangleType(typ.Elem)
		if err != nil {
			return "", err
		}
		return "A" + strconv.Itoa(typ.Len) + "_" + elem, nil

	case *types.Tuple:
		parts := make([]string, 0, len(typ.Elems)+1)
		parts = append(parts, "T", strconv.Itoa(len(typ.Elems)))
		for _, e := range typ.Elems {
			m, err := mangleType(e)
			if err != nil {
				return "", err
			}
			parts = append(parts, m)
		}
		return strings.Join(parts, "_"), nil

	case *types.GenericInstance:
		return mangle(typ.Base, typ.Args)

	case *types.Struct:
		return sanitizeModulePath(typ.Name), nil

	case *types.Enum:
		return sanitizeModulePath(typ.Name), nil

	case *types.Named:
		if typ.Ref != nil {
			return mangleType(typ.Ref)
		}
		return "", errors.Errorf("unresolved generic parameter %q reached the mangler", typ.Name)

	case *types.Function:
		parts := []string{"F"}
		for _, p := range typ.Params {
			m, err := mangleType(p)
			if err != nil {
				return "", err
			}
			parts = append(parts, m)
		}
		ret, err := mangleType(typ.Return)
		if err != nil {
			return "", err
		}
		parts = append(parts, "R", ret)
		return strings.Join(parts, "_"), nil

	default:
		return "", errors.Errorf("unsupported type variant %T in name mangler", t)
	}
}

func sanitizeModulePath(name string) string {
	return strings.ReplaceAll(name, ".", "_")
}

// deriveMethodSymbol builds the LLVM symbol for a derive-generated method:
// @tml_[suite_prefix_]<TypeName>_<method>.
func deriveMethodSymbol(suitePrefix, typeName, method string) string {
	return "tml_" + suitePrefix + sanitizeModulePath(typeName) + "_" + method
}

// implMethodSymbol builds the LLVM symbol for a user-written impl method:
// @tml_<TypeName>_<method>.
func implMethodSymbol(typeName, method string) string {
	return "tml_" + sanitizeModulePath(typeName) + "_" + method
}
