package frontend

import (
	"encoding/json"

	"github.com/hivellm/tml-sub014/internal/types"
	"github.com/pkg/errors"
)

// typeDoc is the JSON shape of a semantic type. Kind selects which fields
// apply; unused fields are left zero by encoding/json.
type typeDoc struct {
	Kind string `json:"kind"`

	// primitive
	Primitive string `json:"primitive"`

	// pointer / reference / array
	Elem *typeDoc `json:"elem"`
	Mut  bool     `json:"mut"`
	Len  int      `json:"len"`

	// tuple
	Elems []typeDoc `json:"elems"`

	// struct / enum / named / generic-instance reference
	Name string    `json:"name"`
	Args []typeDoc `json:"args"`

	// function
	Params []typeDoc `json:"params"`
	Return *typeDoc  `json:"return"`
}

var primitiveKinds = map[string]*types.Primitive{
	"Unit": types.TUnit, "Bool": types.TBool,
	"I8": types.TI8, "U8": types.TU8,
	"I16": types.TI16, "U16": types.TU16,
	"I32": types.TI32, "U32": types.TU32,
	"I64": types.TI64, "U64": types.TU64,
	"I128": types.TI128, "U128": types.TU128,
	"F32": types.TF32, "F64": types.TF64,
	"Str": types.TStr,
}

func (d *typeDoc) toType() (types.Type, error) {
	if d == nil {
		return nil, nil
	}
	switch d.Kind {
	case "", "primitive":
		p, ok := primitiveKinds[d.Primitive]
		if !ok {
			return nil, errors.Errorf("unknown primitive type %q", d.Primitive)
		}
		return p, nil
	case "pointer":
		elem, err := d.Elem.toType()
		if err != nil {
			return nil, err
		}
		return &types.Pointer{Elem: elem}, nil
	case "reference":
		elem, err := d.Elem.toType()
		if err != nil {
			return nil, err
		}
		kind := types.RefShared
		if d.Mut {
			kind = types.RefMutable
		}
		return &types.Reference{Elem: elem, Kind: kind}, nil
	case "array":
		elem, err := d.Elem.toType()
		if err != nil {
			return nil, err
		}
		return &types.Array{Elem: elem, Len: d.Len}, nil
	case "tuple":
		elems, err := toTypeSlice(d.Elems)
		if err != nil {
			return nil, err
		}
		return &types.Tuple{Elems: elems}, nil
	case "named":
		return &types.Named{Name: d.Name}, nil
	case "generic":
		args, err := toTypeSlice(d.Args)
		if err != nil {
			return nil, err
		}
		return &types.GenericInstance{Base: d.Name, Args: args}, nil
	case "struct":
		return &types.Struct{Name: d.Name}, nil
	case "enum":
		return &types.Enum{Name: d.Name}, nil
	case "function":
		params, err := toTypeSlice(d.Params)
		if err != nil {
			return nil, err
		}
		ret, err := d.Return.toType()
		if err != nil {
			return nil, err
		}
		return &types.Function{Params: params, Return: ret}, nil
	default:
		return nil, errors.Errorf("unknown type kind %q", d.Kind)
	}
}

func toTypeSlice(docs []typeDoc) ([]types.Type, error) {
	out := make([]types.Type, len(docs))
	for i := range docs {
		t, err := docs[i].toType()
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

// unmarshalType is a convenience used by callers holding raw JSON rather
// than an already-decoded typeDoc (e.g. optional fields read via RawMessage).
func unmarshalType(raw json.RawMessage) (types.Type, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var d typeDoc
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	return d.toType()
}
