package types

import (
	"encoding/hex"
	"fmt"
	"strconv"
)

// TypeKind identifies a declared type in an input or output specification.
type TypeKind uint8

const (
	TypeAny TypeKind = iota
	TypeBool
	TypeInt
	TypeFloat
	TypeString
	TypeBuffer
	TypeArray
	TypeObject
	TypeAddonType
)

// Type describes a declared value type. Array and object types may carry
// element and property descriptors; addon types carry an addon-scoped id.
type Type struct {
	// Kind is the type discriminant.
	Kind TypeKind `json:"kind"`

	// Elem describes array element types when Kind is TypeArray.
	Elem *Type `json:"elem,omitempty"`

	// Props describes known object properties when Kind is TypeObject.
	Props []ObjectProperty `json:"props,omitempty"`

	// AddonId is the addon-scoped type identifier when Kind is TypeAddonType.
	AddonId string `json:"addon_id,omitempty"`
}

// ObjectProperty describes one property of a declared object type.
type ObjectProperty struct {
	// Name is the property key.
	Name string `json:"name"`

	// Typ is the property's declared type.
	Typ Type `json:"type"`

	// Optional marks properties that may be absent.
	Optional bool `json:"optional,omitempty"`
}

// AnyType returns the unconstrained type.
func AnyType() Type { return Type{Kind: TypeAny} }

// BoolType returns the bool type.
func BoolType() Type { return Type{Kind: TypeBool} }

// IntType returns the int type.
func IntType() Type { return Type{Kind: TypeInt} }

// FloatType returns the float type.
func FloatType() Type { return Type{Kind: TypeFloat} }

// StringType returns the string type.
func StringType() Type { return Type{Kind: TypeString} }

// BufferType returns the buffer type.
func BufferType() Type { return Type{Kind: TypeBuffer} }

// ArrayType returns an array type with the given element type.
func ArrayType(elem Type) Type { return Type{Kind: TypeArray, Elem: &elem} }

// ObjectType returns an object type with the given properties.
func ObjectType(props ...ObjectProperty) Type {
	return Type{Kind: TypeObject, Props: props}
}

// AddonType returns an addon-defined type with the given id.
func AddonType(id string) Type { return Type{Kind: TypeAddonType, AddonId: id} }

// String renders the type for diagnostics.
func (t Type) String() string {
	switch t.Kind {
	case TypeAny:
		return "any"
	case TypeBool:
		return "bool"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	case TypeBuffer:
		return "buffer"
	case TypeArray:
		if t.Elem != nil {
			return "array[" + t.Elem.String() + "]"
		}
		return "array"
	case TypeObject:
		return "object"
	case TypeAddonType:
		return t.AddonId
	default:
		return "unknown"
	}
}

// CoerceValue converts v to the declared type t, applying the lossless
// conversions the engine permits: numeric strings to int or float, ints to
// float, and hex strings to buffer. Returns a type-mismatch error when the
// conversion would lose information or the kinds are incompatible.
func CoerceValue(v Value, t Type) (Value, error) {
	switch t.Kind {
	case TypeAny:
		return v, nil
	case TypeBool:
		if v.kind == KindBool {
			return v, nil
		}
		if s, ok := v.AsString(); ok {
			b, err := strconv.ParseBool(s)
			if err == nil {
				return BoolValue(b), nil
			}
		}
	case TypeInt:
		switch v.kind {
		case KindInt:
			return v, nil
		case KindFloat:
			if v.f == float64(int64(v.f)) {
				return IntValue(int64(v.f)), nil
			}
		case KindString:
			i, err := strconv.ParseInt(v.s, 10, 64)
			if err == nil {
				return IntValue(i), nil
			}
		}
	case TypeFloat:
		switch v.kind {
		case KindFloat:
			return v, nil
		case KindInt:
			return FloatValue(float64(v.i)), nil
		case KindString:
			f, err := strconv.ParseFloat(v.s, 64)
			if err == nil {
				return FloatValue(f), nil
			}
		}
	case TypeString:
		switch v.kind {
		case KindString:
			return v, nil
		case KindInt, KindFloat, KindBool, KindBuffer:
			return StringValue(v.String()), nil
		}
	case TypeBuffer:
		switch v.kind {
		case KindBuffer:
			return v, nil
		case KindString:
			raw, err := decodeHexString(v.s)
			if err == nil {
				return BufferValue(raw), nil
			}
		}
	case TypeArray:
		if v.kind == KindArray {
			if t.Elem == nil {
				return v, nil
			}
			out := make([]Value, len(v.arr))
			for i, e := range v.arr {
				coerced, err := CoerceValue(e, *t.Elem)
				if err != nil {
					return Value{}, fmt.Errorf("element %d: %w", i, err)
				}
				out[i] = coerced
			}
			return ArrayValue(out), nil
		}
	case TypeObject:
		if v.kind == KindObject {
			out := ObjectValue()
			for _, key := range v.keys {
				out.SetKey(key, v.obj[key])
			}
			for _, prop := range t.Props {
				val, ok := v.GetKey(prop.Name)
				if !ok {
					if prop.Optional {
						continue
					}
					return Value{}, fmt.Errorf("missing required property %q", prop.Name)
				}
				coerced, err := CoerceValue(val, prop.Typ)
				if err != nil {
					return Value{}, fmt.Errorf("property %q: %w", prop.Name, err)
				}
				out.SetKey(prop.Name, coerced)
			}
			return out, nil
		}
	case TypeAddonType:
		if v.kind == KindAddon && v.addon.Id == t.AddonId {
			return v, nil
		}
		// A string or buffer can stand in for an addon type; the addon
		// re-parses the canonical bytes on use.
		if s, ok := v.AsString(); ok {
			return AddonValue(t.AddonId, []byte(s)), nil
		}
		if raw, ok := v.AsBuffer(); ok {
			return AddonValue(t.AddonId, raw), nil
		}
	}
	return Value{}, fmt.Errorf("cannot coerce %s to %s", v.kind, t)
}

func decodeHexString(s string) ([]byte, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	return hex.DecodeString(s)
}
