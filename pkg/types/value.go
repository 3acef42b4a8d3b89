package types

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ValueKind discriminates the variants of Value.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindBuffer
	KindArray
	KindObject
	KindAddon
)

// String returns the human-readable kind name used in type-mismatch messages.
func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBuffer:
		return "buffer"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindAddon:
		return "addon"
	default:
		return "unknown"
	}
}

// AddonData is an opaque addon-defined value. The engine never inspects the
// payload; only the addon that produced it knows its structure.
type AddonData struct {
	// Id is the addon-scoped type identifier, e.g. "evm::address".
	Id string `json:"id"`

	// Bytes is the canonical byte representation of the value.
	Bytes []byte `json:"bytes"`
}

// Value is the tagged value type used uniformly across the engine and all
// addons. Object values preserve insertion order.
type Value struct {
	kind ValueKind

	b     bool
	i     int64
	f     float64
	s     string
	buf   []byte
	arr   []Value
	keys  []string
	obj   map[string]Value
	addon *AddonData
}

// NullValue returns the null value.
func NullValue() Value { return Value{kind: KindNull} }

// BoolValue wraps a bool.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// IntValue wraps a signed integer.
func IntValue(i int64) Value { return Value{kind: KindInt, i: i} }

// FloatValue wraps a float.
func FloatValue(f float64) Value { return Value{kind: KindFloat, f: f} }

// StringValue wraps a string.
func StringValue(s string) Value { return Value{kind: KindString, s: s} }

// BufferValue wraps raw bytes.
func BufferValue(buf []byte) Value { return Value{kind: KindBuffer, buf: buf} }

// ArrayValue wraps a slice of values.
func ArrayValue(elems []Value) Value { return Value{kind: KindArray, arr: elems} }

// ObjectValue builds an empty ordered object value.
func ObjectValue() Value {
	return Value{kind: KindObject, obj: map[string]Value{}}
}

// AddonValue wraps an opaque addon payload.
func AddonValue(id string, raw []byte) Value {
	return Value{kind: KindAddon, addon: &AddonData{Id: id, Bytes: raw}}
}

// Kind returns the variant tag.
func (v Value) Kind() ValueKind { return v.kind }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean payload.
func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// AsInt returns the integer payload.
func (v Value) AsInt() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.i, true
}

// AsFloat returns the float payload; integers are widened.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	default:
		return 0, false
	}
}

// AsString returns the string payload.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// AsBuffer returns the buffer payload.
func (v Value) AsBuffer() ([]byte, bool) {
	if v.kind != KindBuffer {
		return nil, false
	}
	return v.buf, true
}

// AsArray returns the array payload.
func (v Value) AsArray() ([]Value, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	return v.arr, true
}

// AsAddon returns the opaque addon payload.
func (v Value) AsAddon() (*AddonData, bool) {
	if v.kind != KindAddon {
		return nil, false
	}
	return v.addon, true
}

// IsObject reports whether the value is an object.
func (v Value) IsObject() bool { return v.kind == KindObject }

// ObjectKeys returns the object's keys in insertion order.
func (v Value) ObjectKeys() []string {
	return append([]string(nil), v.keys...)
}

// GetKey returns the value stored under key in an object value.
func (v Value) GetKey(key string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	val, ok := v.obj[key]
	return val, ok
}

// SetKey inserts or replaces key in an object value, preserving the original
// insertion position on replacement.
func (v *Value) SetKey(key string, val Value) {
	if v.kind != KindObject {
		return
	}
	if _, exists := v.obj[key]; !exists {
		v.keys = append(v.keys, key)
	}
	v.obj[key] = val
}

// GetPath descends into nested objects and arrays following the given path
// segments (object keys or integer array indexes).
func (v Value) GetPath(path []Value) (Value, bool) {
	current := v
	for _, seg := range path {
		switch current.kind {
		case KindObject:
			key, ok := seg.AsString()
			if !ok {
				return Value{}, false
			}
			next, ok := current.GetKey(key)
			if !ok {
				return Value{}, false
			}
			current = next
		case KindArray:
			idx, ok := seg.AsInt()
			if !ok || idx < 0 || int(idx) >= len(current.arr) {
				return Value{}, false
			}
			current = current.arr[idx]
		default:
			return Value{}, false
		}
	}
	return current, true
}

// Equal reports deep equality of two values.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindInt:
		return v.i == other.i
	case KindFloat:
		return v.f == other.f
	case KindString:
		return v.s == other.s
	case KindBuffer:
		return string(v.buf) == string(other.buf)
	case KindArray:
		if len(v.arr) != len(other.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(other.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.obj) != len(other.obj) {
			return false
		}
		for key, val := range v.obj {
			otherVal, ok := other.obj[key]
			if !ok || !val.Equal(otherVal) {
				return false
			}
		}
		return true
	case KindAddon:
		return v.addon.Id == other.addon.Id && string(v.addon.Bytes) == string(other.addon.Bytes)
	default:
		return false
	}
}

// String renders the value for display. Buffers render as 0x-prefixed hex.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return v.s
	case KindBuffer:
		return "0x" + hex.EncodeToString(v.buf)
	case KindArray:
		parts := make([]string, len(v.arr))
		for i, e := range v.arr {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindObject:
		var sb strings.Builder
		sb.WriteString("{")
		for i, key := range v.keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%q: %s", key, v.obj[key].String())
		}
		sb.WriteString("}")
		return sb.String()
	case KindAddon:
		return v.addon.Id + "(0x" + hex.EncodeToString(v.addon.Bytes) + ")"
	default:
		return ""
	}
}

// canonicalBytes appends a canonical, unambiguous byte encoding of the value.
// Object keys are sorted so the encoding is independent of insertion order.
func (v Value) canonicalBytes(dst []byte) []byte {
	dst = append(dst, byte(v.kind))
	switch v.kind {
	case KindNull:
	case KindBool:
		if v.b {
			dst = append(dst, 1)
		} else {
			dst = append(dst, 0)
		}
	case KindInt:
		dst = binary.BigEndian.AppendUint64(dst, uint64(v.i))
	case KindFloat:
		dst = binary.BigEndian.AppendUint64(dst, math.Float64bits(v.f))
	case KindString:
		dst = binary.BigEndian.AppendUint64(dst, uint64(len(v.s)))
		dst = append(dst, v.s...)
	case KindBuffer:
		dst = binary.BigEndian.AppendUint64(dst, uint64(len(v.buf)))
		dst = append(dst, v.buf...)
	case KindArray:
		dst = binary.BigEndian.AppendUint64(dst, uint64(len(v.arr)))
		for _, e := range v.arr {
			dst = e.canonicalBytes(dst)
		}
	case KindObject:
		keys := append([]string(nil), v.keys...)
		sort.Strings(keys)
		dst = binary.BigEndian.AppendUint64(dst, uint64(len(keys)))
		for _, key := range keys {
			dst = binary.BigEndian.AppendUint64(dst, uint64(len(key)))
			dst = append(dst, key...)
			dst = v.obj[key].canonicalBytes(dst)
		}
	case KindAddon:
		dst = binary.BigEndian.AppendUint64(dst, uint64(len(v.addon.Id)))
		dst = append(dst, v.addon.Id...)
		dst = binary.BigEndian.AppendUint64(dst, uint64(len(v.addon.Bytes)))
		dst = append(dst, v.addon.Bytes...)
	}
	return dst
}

// Fingerprint computes the digest identity of the resolved value. Two values
// that are deeply equal always produce the same fingerprint, regardless of
// the textual form they were authored in.
func (v Value) Fingerprint() Did {
	return NewDid(v.canonicalBytes(nil))
}

// ToJSON converts the value into a json.Marshal-compatible representation.
func (v Value) ToJSON() interface{} {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindBuffer:
		return "0x" + hex.EncodeToString(v.buf)
	case KindArray:
		out := make([]interface{}, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.ToJSON()
		}
		return out
	case KindObject:
		out := make(map[string]interface{}, len(v.obj))
		for key, val := range v.obj {
			out[key] = val.ToJSON()
		}
		return out
	case KindAddon:
		return v.addon.Id + "(0x" + hex.EncodeToString(v.addon.Bytes) + ")"
	default:
		return nil
	}
}
