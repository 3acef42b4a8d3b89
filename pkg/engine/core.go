package engine

import (
	"context"
	"encoding/hex"
	"strings"

	"github.com/txforge/txforge/pkg/types"
)

// passThroughExecution resolves the core value-carrying constructs:
// whatever evaluated into "value" comes back out as the "value" output.
func passThroughExecution(_ context.Context, _ types.ConstructDid, inputs *types.ValueStore) (*types.CommandExecutionResult, *types.Diagnostic) {
	outputs := types.NewValueStore(inputs.Name)
	inputs.Iter(func(key string, value types.Value) bool {
		outputs.Insert(key, value)
		return true
	})
	return &types.CommandExecutionResult{Outputs: outputs}, nil
}

// coreCommandSpecifications returns the built-in construct kinds every
// runbook can use without an addon: variable, output, module, flow.
func coreCommandSpecifications() []*types.CommandSpecification {
	valueInput := types.CommandInput{
		Name:          "value",
		Documentation: "The value carried by this construct.",
		Typ:           types.AnyType(),
	}
	description := types.CommandInput{
		Name:          "description",
		Documentation: "Operator-facing description.",
		Typ:           types.StringType(),
		Optional:      true,
	}
	valueOutput := types.CommandOutput{
		Name:          "value",
		Documentation: "The resolved value.",
		Typ:           types.AnyType(),
	}

	return []*types.CommandSpecification{
		{
			Name:          types.ConstructTypeVariable,
			Documentation: "Declares a named value other constructs can reference.",
			Inputs:        []types.CommandInput{valueInput, description},
			Outputs:       []types.CommandOutput{valueOutput},
			RunExecution:  passThroughExecution,
		},
		{
			Name:          types.ConstructTypeOutput,
			Documentation: "Exposes a resolved value as a runbook result.",
			Inputs:        []types.CommandInput{valueInput, description},
			Outputs:       []types.CommandOutput{valueOutput},
			RunExecution:  passThroughExecution,
		},
		{
			Name:          types.ConstructTypeModule,
			Documentation: "Groups related values under one name.",
			Inputs:        []types.CommandInput{description},
			Outputs:       []types.CommandOutput{},
			RunExecution:  passThroughExecution,
		},
		{
			Name:          types.ConstructTypeFlow,
			Documentation: "Declares per-flow input values.",
			Inputs:        []types.CommandInput{description},
			Outputs:       []types.CommandOutput{},
			RunExecution:  passThroughExecution,
		},
	}
}

// coreFunctionSpecifications returns the functions available in every
// expression without an addon namespace.
func coreFunctionSpecifications() []*types.FunctionSpecification {
	return []*types.FunctionSpecification{
		{
			Name:          "encode_hex",
			Documentation: "Encodes a buffer or string as a 0x-prefixed hex string.",
			Parameters: []types.FunctionParameter{
				{Name: "value", Typ: types.AnyType()},
			},
			ReturnType: types.StringType(),
			Run: func(args []types.Value) (types.Value, *types.Diagnostic) {
				if raw, ok := args[0].AsBuffer(); ok {
					return types.StringValue("0x" + hex.EncodeToString(raw)), nil
				}
				if s, ok := args[0].AsString(); ok {
					return types.StringValue("0x" + hex.EncodeToString([]byte(s))), nil
				}
				return types.Value{}, types.ErrorDiagf("encode_hex: expected buffer or string, got %s", args[0].Kind()).
					WithCode(types.DiagCodeTypeMismatch)
			},
		},
		{
			Name:          "decode_hex",
			Documentation: "Decodes a hex string into a buffer.",
			Parameters: []types.FunctionParameter{
				{Name: "value", Typ: types.StringType()},
			},
			ReturnType: types.BufferType(),
			Run: func(args []types.Value) (types.Value, *types.Diagnostic) {
				s, ok := args[0].AsString()
				if !ok {
					return types.Value{}, types.ErrorDiagf("decode_hex: expected string, got %s", args[0].Kind()).
						WithCode(types.DiagCodeTypeMismatch)
				}
				coerced, err := types.CoerceValue(types.StringValue(s), types.BufferType())
				if err != nil {
					return types.Value{}, types.FromError(err).WithCode(types.DiagCodeTypeMismatch)
				}
				return coerced, nil
			},
		},
		{
			Name:          "concat",
			Documentation: "Concatenates string arguments.",
			Parameters: []types.FunctionParameter{
				{Name: "first", Typ: types.StringType()},
				{Name: "second", Typ: types.StringType(), Optional: true},
				{Name: "third", Typ: types.StringType(), Optional: true},
				{Name: "fourth", Typ: types.StringType(), Optional: true},
			},
			ReturnType: types.StringType(),
			Run: func(args []types.Value) (types.Value, *types.Diagnostic) {
				var sb strings.Builder
				for _, arg := range args {
					s, ok := arg.AsString()
					if !ok {
						s = arg.String()
					}
					sb.WriteString(s)
				}
				return types.StringValue(sb.String()), nil
			},
		},
		{
			Name:          "length",
			Documentation: "Returns the length of an array, string, or buffer.",
			Parameters: []types.FunctionParameter{
				{Name: "value", Typ: types.AnyType()},
			},
			ReturnType: types.IntType(),
			Run: func(args []types.Value) (types.Value, *types.Diagnostic) {
				if arr, ok := args[0].AsArray(); ok {
					return types.IntValue(int64(len(arr))), nil
				}
				if s, ok := args[0].AsString(); ok {
					return types.IntValue(int64(len(s))), nil
				}
				if raw, ok := args[0].AsBuffer(); ok {
					return types.IntValue(int64(len(raw))), nil
				}
				return types.Value{}, types.ErrorDiagf("length: expected array, string, or buffer, got %s", args[0].Kind()).
					WithCode(types.DiagCodeTypeMismatch)
			},
		},
		{
			Name:          "element",
			Documentation: "Returns the array element at the given index.",
			Parameters: []types.FunctionParameter{
				{Name: "array", Typ: types.ArrayType(types.AnyType())},
				{Name: "index", Typ: types.IntType()},
			},
			ReturnType: types.AnyType(),
			Run: func(args []types.Value) (types.Value, *types.Diagnostic) {
				arr, ok := args[0].AsArray()
				if !ok {
					return types.Value{}, types.ErrorDiagf("element: expected array, got %s", args[0].Kind()).
						WithCode(types.DiagCodeTypeMismatch)
				}
				idx, ok := args[1].AsInt()
				if !ok {
					return types.Value{}, types.ErrorDiagf("element: expected int index, got %s", args[1].Kind()).
						WithCode(types.DiagCodeTypeMismatch)
				}
				if idx < 0 || int(idx) >= len(arr) {
					return types.Value{}, types.ErrorDiagf("element: index %d out of range for array of %d", idx, len(arr))
				}
				return arr[idx], nil
			},
		},
		{
			Name:          "upper",
			Documentation: "Uppercases a string.",
			Parameters: []types.FunctionParameter{
				{Name: "value", Typ: types.StringType()},
			},
			ReturnType: types.StringType(),
			Run: func(args []types.Value) (types.Value, *types.Diagnostic) {
				s, ok := args[0].AsString()
				if !ok {
					return types.Value{}, types.ErrorDiagf("upper: expected string, got %s", args[0].Kind()).
						WithCode(types.DiagCodeTypeMismatch)
				}
				return types.StringValue(strings.ToUpper(s)), nil
			},
		},
		{
			Name:          "lower",
			Documentation: "Lowercases a string.",
			Parameters: []types.FunctionParameter{
				{Name: "value", Typ: types.StringType()},
			},
			ReturnType: types.StringType(),
			Run: func(args []types.Value) (types.Value, *types.Diagnostic) {
				s, ok := args[0].AsString()
				if !ok {
					return types.Value{}, types.ErrorDiagf("lower: expected string, got %s", args[0].Kind()).
						WithCode(types.DiagCodeTypeMismatch)
				}
				return types.StringValue(strings.ToLower(s)), nil
			},
		},
	}
}
