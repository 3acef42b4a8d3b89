package std

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"hash"

	"golang.org/x/crypto/ripemd160"
	"golang.org/x/crypto/sha3"

	"github.com/txforge/txforge/pkg/types"
)

// hashArgBytes extracts the bytes to hash from a function argument: a
// buffer directly, or a string coerced through the hex decoder.
func hashArgBytes(name string, arg types.Value) ([]byte, *types.Diagnostic) {
	if raw, ok := arg.AsBuffer(); ok {
		return raw, nil
	}
	if _, ok := arg.AsString(); ok {
		coerced, err := types.CoerceValue(arg, types.BufferType())
		if err != nil {
			return nil, types.FromError(err).WithCode(types.DiagCodeTypeMismatch)
		}
		raw, _ := coerced.AsBuffer()
		return raw, nil
	}
	return nil, types.ErrorDiagf("%s: expected buffer or hex string, got %s", name, arg.Kind()).
		WithCode(types.DiagCodeTypeMismatch)
}

func hashFunction(name, documentation string, newHash func() hash.Hash) *types.FunctionSpecification {
	return &types.FunctionSpecification{
		Name:          name,
		Documentation: documentation,
		Parameters: []types.FunctionParameter{
			{Name: "value", Documentation: "The buffer or hex string to hash.", Typ: types.AnyType()},
		},
		ReturnType: types.StringType(),
		Run: func(args []types.Value) (types.Value, *types.Diagnostic) {
			raw, diag := hashArgBytes(name, args[0])
			if diag != nil {
				return types.Value{}, diag
			}
			h := newHash()
			h.Write(raw)
			return types.StringValue("0x" + hex.EncodeToString(h.Sum(nil))), nil
		},
	}
}

func hashFunctions() []*types.FunctionSpecification {
	return []*types.FunctionSpecification{
		hashFunction("sha256", "Computes the SHA-256 hash of a buffer or hex string.", sha256.New),
		hashFunction("keccak256", "Computes the Keccak-256 hash of a buffer or hex string.", sha3.NewLegacyKeccak256),
		hashFunction("ripemd160", "Computes the RIPEMD-160 hash of a buffer or hex string.", ripemd160.New),
	}
}

func encodingFunctions() []*types.FunctionSpecification {
	return []*types.FunctionSpecification{
		{
			Name:          "encode_base64",
			Documentation: "Encodes a buffer, hex string, or plain string as base64.",
			Parameters: []types.FunctionParameter{
				{Name: "value", Documentation: "The value to encode.", Typ: types.AnyType()},
			},
			ReturnType: types.StringType(),
			Run: func(args []types.Value) (types.Value, *types.Diagnostic) {
				if raw, ok := args[0].AsBuffer(); ok {
					return types.StringValue(base64.StdEncoding.EncodeToString(raw)), nil
				}
				if s, ok := args[0].AsString(); ok {
					if coerced, err := types.CoerceValue(args[0], types.BufferType()); err == nil {
						raw, _ := coerced.AsBuffer()
						return types.StringValue(base64.StdEncoding.EncodeToString(raw)), nil
					}
					return types.StringValue(base64.StdEncoding.EncodeToString([]byte(s))), nil
				}
				return types.Value{}, types.ErrorDiagf("encode_base64: expected buffer or string, got %s", args[0].Kind()).
					WithCode(types.DiagCodeTypeMismatch)
			},
		},
		{
			Name:          "decode_base64",
			Documentation: "Decodes a base64 string into a buffer.",
			Parameters: []types.FunctionParameter{
				{Name: "value", Documentation: "The base64 string to decode.", Typ: types.StringType()},
			},
			ReturnType: types.BufferType(),
			Run: func(args []types.Value) (types.Value, *types.Diagnostic) {
				s, ok := args[0].AsString()
				if !ok {
					return types.Value{}, types.ErrorDiagf("decode_base64: expected string, got %s", args[0].Kind()).
						WithCode(types.DiagCodeTypeMismatch)
				}
				raw, err := base64.StdEncoding.DecodeString(s)
				if err != nil {
					return types.Value{}, types.ErrorDiagf("decode_base64: %s", err).
						WithCode(types.DiagCodeTypeMismatch)
				}
				return types.BufferValue(raw), nil
			},
		},
	}
}

// assertionResult packages an assertion verdict as a value so failed
// assertions surface in outputs instead of aborting evaluation.
func assertionResult(ok bool, message string) types.Value {
	result := types.ObjectValue()
	result.SetKey("success", types.BoolValue(ok))
	if !ok {
		result.SetKey("message", types.StringValue(message))
	}
	return result
}

func assertionType() types.Type {
	return types.ObjectType(
		types.ObjectProperty{Name: "success", Typ: types.BoolType()},
		types.ObjectProperty{Name: "message", Typ: types.StringType(), Optional: true},
	)
}

func equalityAssertion(name, documentation string, wantEqual bool) *types.FunctionSpecification {
	return &types.FunctionSpecification{
		Name:          name,
		Documentation: documentation,
		Parameters: []types.FunctionParameter{
			{Name: "left", Documentation: "A value to compare.", Typ: types.AnyType()},
			{Name: "right", Documentation: "The value to compare against.", Typ: types.AnyType()},
		},
		ReturnType: assertionType(),
		Run: func(args []types.Value) (types.Value, *types.Diagnostic) {
			equal := args[0].Equal(args[1])
			if equal == wantEqual {
				return assertionResult(true, ""), nil
			}
			relation := "equal"
			if !wantEqual {
				relation = "not equal"
			}
			return assertionResult(false, fmt.Sprintf(
				"assertion failed: expected values to be %s: left: %s, right: %s",
				relation, args[0].String(), args[1].String())), nil
		},
	}
}

// numericArg reads an int or float argument as float64.
func numericArg(name string, arg types.Value) (float64, *types.Diagnostic) {
	if n, ok := arg.AsInt(); ok {
		return float64(n), nil
	}
	if f, ok := arg.AsFloat(); ok {
		return f, nil
	}
	return 0, types.ErrorDiagf("%s: expected int or float, got %s", name, arg.Kind()).
		WithCode(types.DiagCodeTypeMismatch)
}

func orderingAssertion(name, documentation, relation string, holds func(left, right float64) bool) *types.FunctionSpecification {
	return &types.FunctionSpecification{
		Name:          name,
		Documentation: documentation,
		Parameters: []types.FunctionParameter{
			{Name: "left", Documentation: "An int or float to compare.", Typ: types.AnyType()},
			{Name: "right", Documentation: "The int or float to compare against.", Typ: types.AnyType()},
		},
		ReturnType: assertionType(),
		Run: func(args []types.Value) (types.Value, *types.Diagnostic) {
			left, diag := numericArg(name, args[0])
			if diag != nil {
				return types.Value{}, diag
			}
			right, diag := numericArg(name, args[1])
			if diag != nil {
				return types.Value{}, diag
			}
			if holds(left, right) {
				return assertionResult(true, ""), nil
			}
			return assertionResult(false, fmt.Sprintf(
				"assertion failed: expected left to be %s right: left: %s, right: %s",
				relation, args[0].String(), args[1].String())), nil
		},
	}
}

func assertionFunctions() []*types.FunctionSpecification {
	return []*types.FunctionSpecification{
		equalityAssertion("assert_eq", "Asserts that two values are equal.", true),
		equalityAssertion("assert_ne", "Asserts that two values are not equal.", false),
		orderingAssertion("assert_gt", "Asserts that the left value is greater than the right value.",
			"greater than", func(l, r float64) bool { return l > r }),
		orderingAssertion("assert_gte", "Asserts that the left value is greater than or equal to the right value.",
			"greater than or equal to", func(l, r float64) bool { return l >= r }),
		orderingAssertion("assert_lt", "Asserts that the left value is less than the right value.",
			"less than", func(l, r float64) bool { return l < r }),
		orderingAssertion("assert_lte", "Asserts that the left value is less than or equal to the right value.",
			"less than or equal to", func(l, r float64) bool { return l <= r }),
	}
}
