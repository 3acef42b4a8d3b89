package runbooks

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/txforge/txforge/pkg/types"
)

// exprEnvelope is the tagged wire form of one expression node. Kind
// selects which of the remaining fields apply.
type exprEnvelope struct {
	Kind string `json:"kind"`

	// literal
	Value json.RawMessage `json:"value,omitempty"`

	// ref
	Path []string `json:"path,omitempty"`

	// binary, unary
	Op    string          `json:"op,omitempty"`
	Left  json.RawMessage `json:"left,omitempty"`
	Right json.RawMessage `json:"right,omitempty"`

	// unary, paren
	Operand json.RawMessage `json:"operand,omitempty"`

	// call
	Namespace string            `json:"namespace,omitempty"`
	Name      string            `json:"name,omitempty"`
	Args      []json.RawMessage `json:"args,omitempty"`

	// array
	Elems []json.RawMessage `json:"elems,omitempty"`

	// object
	Entries []objectEntrySpec `json:"entries,omitempty"`

	// conditional; Condition also filters for comprehensions
	Condition json.RawMessage `json:"condition,omitempty"`
	True      json.RawMessage `json:"true,omitempty"`
	False     json.RawMessage `json:"false,omitempty"`

	// for
	KeyVar     string          `json:"key_var,omitempty"`
	ValueVar   string          `json:"value_var,omitempty"`
	Collection json.RawMessage `json:"collection,omitempty"`
	KeyExpr    json.RawMessage `json:"key_expr,omitempty"`
	ValueExpr  json.RawMessage `json:"value_expr,omitempty"`

	// template
	Parts []templatePartSpec `json:"parts,omitempty"`
}

type objectEntrySpec struct {
	Key   json.RawMessage `json:"key"`
	Value json.RawMessage `json:"value"`
}

type templatePartSpec struct {
	Literal string          `json:"literal,omitempty"`
	Interp  json.RawMessage `json:"interp,omitempty"`
}

var binaryOps = map[string]types.BinaryOp{
	"+":  types.OpAdd,
	"-":  types.OpSub,
	"*":  types.OpMul,
	"/":  types.OpDiv,
	"%":  types.OpMod,
	"==": types.OpEq,
	"!=": types.OpNotEq,
	"<":  types.OpLess,
	"<=": types.OpLessOrEqual,
	">":  types.OpGreater,
	">=": types.OpGreaterOrEqual,
	"&&": types.OpAnd,
	"||": types.OpOr,
}

// DecodeExpression decodes one tagged expression node and its children.
func DecodeExpression(raw json.RawMessage) (types.Expression, error) {
	var env exprEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("malformed expression: %w", err)
	}

	switch env.Kind {
	case "literal":
		value, err := DecodeValue(env.Value)
		if err != nil {
			return nil, err
		}
		return &types.LiteralExpr{Value: value}, nil

	case "ref":
		if len(env.Path) == 0 {
			return nil, fmt.Errorf("ref expression needs a non-empty path")
		}
		if len(env.Path) == 1 {
			return &types.VariableExpr{Name: env.Path[0]}, nil
		}
		steps := make([]types.TraversalStep, len(env.Path)-1)
		for i, part := range env.Path[1:] {
			steps[i] = types.TraversalStep{Attr: part}
		}
		return &types.TraversalExpr{
			Root:  &types.VariableExpr{Name: env.Path[0]},
			Steps: steps,
		}, nil

	case "binary":
		op, ok := binaryOps[env.Op]
		if !ok {
			return nil, fmt.Errorf("unknown binary operator %q", env.Op)
		}
		left, err := DecodeExpression(env.Left)
		if err != nil {
			return nil, err
		}
		right, err := DecodeExpression(env.Right)
		if err != nil {
			return nil, err
		}
		return &types.BinaryExpr{Op: op, Left: left, Right: right}, nil

	case "unary":
		var op types.UnaryOp
		switch env.Op {
		case "-":
			op = types.OpNeg
		case "!":
			op = types.OpNot
		default:
			return nil, fmt.Errorf("unknown unary operator %q", env.Op)
		}
		operand, err := DecodeExpression(env.Operand)
		if err != nil {
			return nil, err
		}
		return &types.UnaryExpr{Op: op, Operand: operand}, nil

	case "call":
		if env.Name == "" {
			return nil, fmt.Errorf("call expression needs a name")
		}
		args := make([]types.Expression, len(env.Args))
		for i, arg := range env.Args {
			expr, err := DecodeExpression(arg)
			if err != nil {
				return nil, err
			}
			args[i] = expr
		}
		return &types.FunctionCallExpr{Namespace: env.Namespace, Name: env.Name, Args: args}, nil

	case "array":
		elems := make([]types.Expression, len(env.Elems))
		for i, elem := range env.Elems {
			expr, err := DecodeExpression(elem)
			if err != nil {
				return nil, err
			}
			elems[i] = expr
		}
		return &types.ArrayExpr{Elems: elems}, nil

	case "object":
		entries := make([]types.ObjectEntry, len(env.Entries))
		for i, entry := range env.Entries {
			key, err := DecodeExpression(entry.Key)
			if err != nil {
				return nil, err
			}
			value, err := DecodeExpression(entry.Value)
			if err != nil {
				return nil, err
			}
			entries[i] = types.ObjectEntry{Key: key, Value: value}
		}
		return &types.ObjectExpr{Entries: entries}, nil

	case "conditional":
		condition, err := DecodeExpression(env.Condition)
		if err != nil {
			return nil, err
		}
		trueExpr, err := DecodeExpression(env.True)
		if err != nil {
			return nil, err
		}
		falseExpr, err := DecodeExpression(env.False)
		if err != nil {
			return nil, err
		}
		return &types.ConditionalExpr{Condition: condition, TrueExpr: trueExpr, FalseExpr: falseExpr}, nil

	case "for":
		if env.ValueVar == "" {
			return nil, fmt.Errorf("for expression needs a value variable")
		}
		collection, err := DecodeExpression(env.Collection)
		if err != nil {
			return nil, err
		}
		valueExpr, err := DecodeExpression(env.ValueExpr)
		if err != nil {
			return nil, err
		}
		expr := &types.ForExpr{
			KeyVar:     env.KeyVar,
			ValueVar:   env.ValueVar,
			Collection: collection,
			ValueExpr:  valueExpr,
		}
		if env.KeyExpr != nil {
			if expr.KeyExpr, err = DecodeExpression(env.KeyExpr); err != nil {
				return nil, err
			}
		}
		if env.Condition != nil {
			if expr.Condition, err = DecodeExpression(env.Condition); err != nil {
				return nil, err
			}
		}
		return expr, nil

	case "paren":
		inner, err := DecodeExpression(env.Operand)
		if err != nil {
			return nil, err
		}
		return &types.ParenExpr{Inner: inner}, nil

	case "template":
		parts := make([]types.TemplatePart, len(env.Parts))
		for i, part := range env.Parts {
			if part.Interp != nil {
				interp, err := DecodeExpression(part.Interp)
				if err != nil {
					return nil, err
				}
				parts[i] = types.TemplatePart{Interp: interp}
				continue
			}
			parts[i] = types.TemplatePart{Literal: part.Literal}
		}
		return &types.TemplateExpr{Parts: parts}, nil

	default:
		return nil, fmt.Errorf("unknown expression kind %q", env.Kind)
	}
}

// DecodeValue decodes a literal JSON value. Integral numbers become int
// values; object keys are sorted so the resulting value fingerprints
// identically regardless of document key order.
func DecodeValue(raw json.RawMessage) (types.Value, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return types.Value{}, fmt.Errorf("malformed literal: %w", err)
	}
	return valueFromJSON(v)
}

func valueFromJSON(v interface{}) (types.Value, error) {
	switch t := v.(type) {
	case nil:
		return types.NullValue(), nil
	case bool:
		return types.BoolValue(t), nil
	case string:
		return types.StringValue(t), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return types.IntValue(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return types.Value{}, fmt.Errorf("unrepresentable number %q", t.String())
		}
		return types.FloatValue(f), nil
	case []interface{}:
		elems := make([]types.Value, len(t))
		for i, elem := range t {
			value, err := valueFromJSON(elem)
			if err != nil {
				return types.Value{}, err
			}
			elems[i] = value
		}
		return types.ArrayValue(elems), nil
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for key := range t {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		obj := types.ObjectValue()
		for _, key := range keys {
			value, err := valueFromJSON(t[key])
			if err != nil {
				return types.Value{}, err
			}
			obj.SetKey(key, value)
		}
		return obj, nil
	default:
		return types.Value{}, fmt.Errorf("unsupported literal of type %T", v)
	}
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
