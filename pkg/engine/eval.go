package engine

import (
	"strconv"
	"strings"

	"github.com/txforge/txforge/pkg/types"
)

// Evaluator resolves expressions against the current execution state. It
// never blocks: a reference to a construct that has not produced results
// yet evaluates to dependency-not-computed and the scheduler retries
// later.
type Evaluator struct {
	workspace *WorkspaceContext
	execution *ExecutionContext
	runtime   *RuntimeContext

	// pkg scopes reference resolution to the evaluating construct's
	// package.
	pkg types.PackageDid

	// locals holds comprehension iteration variables, shadowing workspace
	// references.
	locals map[string]types.Value
}

// NewEvaluator creates an evaluator scoped to one package.
func NewEvaluator(w *WorkspaceContext, e *ExecutionContext, r *RuntimeContext, pkg types.PackageDid) *Evaluator {
	return &Evaluator{workspace: w, execution: e, runtime: r, pkg: pkg}
}

func (ev *Evaluator) withLocal(name string, value types.Value) *Evaluator {
	child := &Evaluator{
		workspace: ev.workspace,
		execution: ev.execution,
		runtime:   ev.runtime,
		pkg:       ev.pkg,
		locals:    make(map[string]types.Value, len(ev.locals)+1),
	}
	for k, v := range ev.locals {
		child.locals[k] = v
	}
	if name != "" {
		child.locals[name] = value
	}
	return child
}

// Evaluate resolves one expression to its tri-state result.
func (ev *Evaluator) Evaluate(expr types.Expression) types.EvaluationResult {
	switch e := expr.(type) {
	case *types.LiteralExpr:
		return types.EvalOk(e.Value)

	case *types.VariableExpr:
		return ev.evalReference(types.Reference{Parts: []string{e.Name}, Span: e.Span})

	case *types.TraversalExpr:
		return ev.evalTraversal(e)

	case *types.ArrayExpr:
		elems := make([]types.Value, 0, len(e.Elems))
		for _, elem := range e.Elems {
			res := ev.Evaluate(elem)
			if !res.Ok() {
				return res
			}
			elems = append(elems, res.Value)
		}
		return types.EvalOk(types.ArrayValue(elems))

	case *types.ObjectExpr:
		obj := types.ObjectValue()
		for _, entry := range e.Entries {
			keyRes := ev.Evaluate(entry.Key)
			if !keyRes.Ok() {
				return keyRes
			}
			key, ok := keyRes.Value.AsString()
			if !ok {
				return types.EvalErr(types.ErrorDiagf("object key must be a string, got %s", keyRes.Value.Kind()).
					WithCode(types.DiagCodeTypeMismatch))
			}
			valRes := ev.Evaluate(entry.Value)
			if !valRes.Ok() {
				return valRes
			}
			obj.SetKey(key, valRes.Value)
		}
		return types.EvalOk(obj)

	case *types.BinaryExpr:
		return ev.evalBinary(e)

	case *types.UnaryExpr:
		operand := ev.Evaluate(e.Operand)
		if !operand.Ok() {
			return operand
		}
		return evalUnaryOp(e.Op, operand.Value)

	case *types.ConditionalExpr:
		cond := ev.Evaluate(e.Condition)
		if !cond.Ok() {
			return cond
		}
		b, ok := cond.Value.AsBool()
		if !ok {
			return types.EvalErr(types.ErrorDiagf("condition must be a bool, got %s", cond.Value.Kind()).
				WithCode(types.DiagCodeTypeMismatch))
		}
		if b {
			return ev.Evaluate(e.TrueExpr)
		}
		return ev.Evaluate(e.FalseExpr)

	case *types.ForExpr:
		return ev.evalFor(e)

	case *types.FunctionCallExpr:
		return ev.evalCall(e)

	case *types.TemplateExpr:
		var sb strings.Builder
		for _, part := range e.Parts {
			if part.Interp == nil {
				sb.WriteString(part.Literal)
				continue
			}
			res := ev.Evaluate(part.Interp)
			if !res.Ok() {
				return res
			}
			sb.WriteString(res.Value.String())
		}
		return types.EvalOk(types.StringValue(sb.String()))

	case *types.ParenExpr:
		return ev.Evaluate(e.Inner)

	default:
		return types.EvalErr(types.ErrorDiagf("unsupported expression form %T", expr).
			WithCode(types.DiagCodeFatal))
	}
}

func (ev *Evaluator) evalTraversal(e *types.TraversalExpr) types.EvaluationResult {
	root, ok := e.Root.(*types.VariableExpr)
	if !ok {
		base := ev.Evaluate(e.Root)
		if !base.Ok() {
			return base
		}
		return walkSteps(base.Value, e.Steps)
	}

	// A local iteration variable shadows workspace resolution.
	if local, ok := ev.locals[root.Name]; ok {
		return walkSteps(local, e.Steps)
	}

	parts := make([]string, 0, len(e.Steps)+1)
	parts = append(parts, root.Name)
	for _, step := range e.Steps {
		if step.IsIndex {
			parts = append(parts, strconv.FormatInt(step.Index, 10))
		} else {
			parts = append(parts, step.Attr)
		}
	}
	return ev.evalReference(types.Reference{Parts: parts, Span: e.Span})
}

func (ev *Evaluator) evalReference(ref types.Reference) types.EvaluationResult {
	if len(ref.Parts) == 1 {
		if local, ok := ev.locals[ref.Parts[0]]; ok {
			return types.EvalOk(local)
		}
	}

	resolved, ok := ev.workspace.ResolveReference(ev.pkg, ref)
	if !ok {
		diag := types.ErrorDiagf("unknown reference %q", ref.String()).
			WithCode(types.DiagCodeUnknownReference)
		if ref.Span != nil {
			diag = diag.WithSpan(ref.Span.Location, ref.Span.Line, ref.Span.Column)
		}
		return types.EvalErr(diag)
	}

	switch ev.execution.State(resolved.ConstructDid) {
	case types.StateFailed, types.StateDependencyFailed:
		return types.EvalErr(types.ErrorDiagf("reference %q targets a failed construct", ref.String()).
			WithCode(types.DiagCodeDependencyFailed))
	case types.StateSuccess:
	default:
		// Partial results exist while a background task is in flight;
		// they become visible only on success.
		return types.EvalNotComputed(ref.String())
	}

	result, ok := ev.execution.Result(resolved.ConstructDid)
	if !ok {
		return types.EvalNotComputed(ref.String())
	}
	return valueFromResult(result, resolved.Path, ref.String())
}

// valueFromResult applies the remaining reference path to a construct's
// outputs. An empty path yields the "value" output when present, the full
// output object otherwise.
func valueFromResult(result *types.ValueStore, path []string, ref string) types.EvaluationResult {
	if len(path) == 0 {
		if v, ok := result.Get("value"); ok && result.Len() == 1 {
			return types.EvalOk(v)
		}
		return types.EvalOk(result.ToObject())
	}
	current, ok := result.Get(path[0])
	if !ok {
		// Outputs exposing a single "value" object allow traversing into
		// it directly, so variable.v.field works on object variables.
		if v, okv := result.Get("value"); okv && result.Len() == 1 {
			return walkPath(v, path, ref)
		}
		return types.EvalErr(types.ErrorDiagf("reference %q: no output %q", ref, path[0]).
			WithCode(types.DiagCodeUnknownReference))
	}
	return walkPath(current, path[1:], ref)
}

func walkPath(v types.Value, path []string, ref string) types.EvaluationResult {
	segs := make([]types.Value, len(path))
	for i, seg := range path {
		if idx, err := strconv.ParseInt(seg, 10, 64); err == nil {
			segs[i] = types.IntValue(idx)
		} else {
			segs[i] = types.StringValue(seg)
		}
	}
	out, ok := v.GetPath(segs)
	if !ok {
		return types.EvalErr(types.ErrorDiagf("reference %q: path %q not found", ref, strings.Join(path, ".")).
			WithCode(types.DiagCodeUnknownReference))
	}
	return types.EvalOk(out)
}

func walkSteps(v types.Value, steps []types.TraversalStep) types.EvaluationResult {
	segs := make([]types.Value, len(steps))
	for i, step := range steps {
		if step.IsIndex {
			segs[i] = types.IntValue(step.Index)
		} else {
			segs[i] = types.StringValue(step.Attr)
		}
	}
	out, ok := v.GetPath(segs)
	if !ok {
		return types.EvalErr(types.ErrorDiag("traversal path not found").
			WithCode(types.DiagCodeUnknownReference))
	}
	return types.EvalOk(out)
}

func (ev *Evaluator) evalBinary(e *types.BinaryExpr) types.EvaluationResult {
	left := ev.Evaluate(e.Left)
	if !left.Ok() {
		return left
	}

	// Logical operators short-circuit.
	if e.Op == types.OpAnd || e.Op == types.OpOr {
		lb, ok := left.Value.AsBool()
		if !ok {
			return types.EvalErr(types.ErrorDiagf("operator %s: expected bool, got %s", e.Op, left.Value.Kind()).
				WithCode(types.DiagCodeTypeMismatch))
		}
		if e.Op == types.OpAnd && !lb {
			return types.EvalOk(types.BoolValue(false))
		}
		if e.Op == types.OpOr && lb {
			return types.EvalOk(types.BoolValue(true))
		}
		right := ev.Evaluate(e.Right)
		if !right.Ok() {
			return right
		}
		rb, ok := right.Value.AsBool()
		if !ok {
			return types.EvalErr(types.ErrorDiagf("operator %s: expected bool, got %s", e.Op, right.Value.Kind()).
				WithCode(types.DiagCodeTypeMismatch))
		}
		return types.EvalOk(types.BoolValue(rb))
	}

	right := ev.Evaluate(e.Right)
	if !right.Ok() {
		return right
	}
	return evalBinaryOp(e.Op, left.Value, right.Value)
}

func evalBinaryOp(op types.BinaryOp, left, right types.Value) types.EvaluationResult {
	switch op {
	case types.OpEq:
		return types.EvalOk(types.BoolValue(left.Equal(right)))
	case types.OpNotEq:
		return types.EvalOk(types.BoolValue(!left.Equal(right)))
	}

	// String concatenation.
	if op == types.OpAdd {
		if ls, ok := left.AsString(); ok {
			rs, ok := right.AsString()
			if !ok {
				return types.EvalErr(types.ErrorDiagf("operator +: cannot add string and %s", right.Kind()).
					WithCode(types.DiagCodeTypeMismatch))
			}
			return types.EvalOk(types.StringValue(ls + rs))
		}
	}

	// Numeric arithmetic stays integral when both operands are ints.
	li, lInt := left.AsInt()
	ri, rInt := right.AsInt()
	if lInt && rInt {
		return evalIntOp(op, li, ri)
	}
	lf, lNum := left.AsFloat()
	rf, rNum := right.AsFloat()
	if lNum && rNum {
		return evalFloatOp(op, lf, rf)
	}
	return types.EvalErr(types.ErrorDiagf("operator %s: incompatible operands %s and %s", op, left.Kind(), right.Kind()).
		WithCode(types.DiagCodeTypeMismatch))
}

func evalIntOp(op types.BinaryOp, l, r int64) types.EvaluationResult {
	switch op {
	case types.OpAdd:
		return types.EvalOk(types.IntValue(l + r))
	case types.OpSub:
		return types.EvalOk(types.IntValue(l - r))
	case types.OpMul:
		return types.EvalOk(types.IntValue(l * r))
	case types.OpDiv:
		if r == 0 {
			return types.EvalErr(types.ErrorDiag("division by zero"))
		}
		return types.EvalOk(types.IntValue(l / r))
	case types.OpMod:
		if r == 0 {
			return types.EvalErr(types.ErrorDiag("modulo by zero"))
		}
		return types.EvalOk(types.IntValue(l % r))
	case types.OpLess:
		return types.EvalOk(types.BoolValue(l < r))
	case types.OpLessOrEqual:
		return types.EvalOk(types.BoolValue(l <= r))
	case types.OpGreater:
		return types.EvalOk(types.BoolValue(l > r))
	case types.OpGreaterOrEqual:
		return types.EvalOk(types.BoolValue(l >= r))
	default:
		return types.EvalErr(types.ErrorDiagf("operator %s not defined for int operands", op))
	}
}

func evalFloatOp(op types.BinaryOp, l, r float64) types.EvaluationResult {
	switch op {
	case types.OpAdd:
		return types.EvalOk(types.FloatValue(l + r))
	case types.OpSub:
		return types.EvalOk(types.FloatValue(l - r))
	case types.OpMul:
		return types.EvalOk(types.FloatValue(l * r))
	case types.OpDiv:
		if r == 0 {
			return types.EvalErr(types.ErrorDiag("division by zero"))
		}
		return types.EvalOk(types.FloatValue(l / r))
	case types.OpLess:
		return types.EvalOk(types.BoolValue(l < r))
	case types.OpLessOrEqual:
		return types.EvalOk(types.BoolValue(l <= r))
	case types.OpGreater:
		return types.EvalOk(types.BoolValue(l > r))
	case types.OpGreaterOrEqual:
		return types.EvalOk(types.BoolValue(l >= r))
	default:
		return types.EvalErr(types.ErrorDiagf("operator %s not defined for float operands", op))
	}
}

func evalUnaryOp(op types.UnaryOp, v types.Value) types.EvaluationResult {
	switch op {
	case types.OpNeg:
		if i, ok := v.AsInt(); ok {
			return types.EvalOk(types.IntValue(-i))
		}
		if f, ok := v.AsFloat(); ok {
			return types.EvalOk(types.FloatValue(-f))
		}
		return types.EvalErr(types.ErrorDiagf("operator -: expected number, got %s", v.Kind()).
			WithCode(types.DiagCodeTypeMismatch))
	case types.OpNot:
		if b, ok := v.AsBool(); ok {
			return types.EvalOk(types.BoolValue(!b))
		}
		return types.EvalErr(types.ErrorDiagf("operator !: expected bool, got %s", v.Kind()).
			WithCode(types.DiagCodeTypeMismatch))
	default:
		return types.EvalErr(types.ErrorDiagf("unsupported unary operator %s", op))
	}
}

func (ev *Evaluator) evalFor(e *types.ForExpr) types.EvaluationResult {
	collection := ev.Evaluate(e.Collection)
	if !collection.Ok() {
		return collection
	}

	type pair struct {
		key types.Value
		val types.Value
	}
	var pairs []pair
	if arr, ok := collection.Value.AsArray(); ok {
		for i, elem := range arr {
			pairs = append(pairs, pair{key: types.IntValue(int64(i)), val: elem})
		}
	} else if collection.Value.IsObject() {
		for _, key := range collection.Value.ObjectKeys() {
			v, _ := collection.Value.GetKey(key)
			pairs = append(pairs, pair{key: types.StringValue(key), val: v})
		}
	} else {
		return types.EvalErr(types.ErrorDiagf("for expression: cannot iterate %s", collection.Value.Kind()).
			WithCode(types.DiagCodeTypeMismatch))
	}

	buildsObject := e.KeyExpr != nil
	var elems []types.Value
	obj := types.ObjectValue()

	for _, p := range pairs {
		scope := ev.withLocal(e.ValueVar, p.val)
		if e.KeyVar != "" {
			scope.locals[e.KeyVar] = p.key
		}

		if e.Condition != nil {
			cond := scope.Evaluate(e.Condition)
			if !cond.Ok() {
				return cond
			}
			keep, ok := cond.Value.AsBool()
			if !ok {
				return types.EvalErr(types.ErrorDiagf("for condition must be a bool, got %s", cond.Value.Kind()).
					WithCode(types.DiagCodeTypeMismatch))
			}
			if !keep {
				continue
			}
		}

		valRes := scope.Evaluate(e.ValueExpr)
		if !valRes.Ok() {
			return valRes
		}
		if buildsObject {
			keyRes := scope.Evaluate(e.KeyExpr)
			if !keyRes.Ok() {
				return keyRes
			}
			key, ok := keyRes.Value.AsString()
			if !ok {
				return types.EvalErr(types.ErrorDiagf("for key must be a string, got %s", keyRes.Value.Kind()).
					WithCode(types.DiagCodeTypeMismatch))
			}
			obj.SetKey(key, valRes.Value)
		} else {
			elems = append(elems, valRes.Value)
		}
	}

	if buildsObject {
		return types.EvalOk(obj)
	}
	return types.EvalOk(types.ArrayValue(elems))
}

func (ev *Evaluator) evalCall(e *types.FunctionCallExpr) types.EvaluationResult {
	spec, ok := ev.runtime.Function(e.Namespace, e.Name)
	if !ok {
		name := e.Name
		if e.Namespace != "" {
			name = e.Namespace + "::" + e.Name
		}
		return types.EvalErr(types.ErrorDiagf("unknown function %q", name).
			WithCode(types.DiagCodeUnknownReference))
	}

	args := make([]types.Value, 0, len(e.Args))
	for _, argExpr := range e.Args {
		res := ev.Evaluate(argExpr)
		if !res.Ok() {
			return res
		}
		args = append(args, res.Value)
	}

	if len(spec.Parameters) > 0 {
		if diag := spec.CheckArity(args); diag != nil {
			return types.EvalErr(diag)
		}
	}

	out, diag := spec.Run(args)
	if diag != nil {
		return types.EvalErr(diag)
	}
	return types.EvalOk(out)
}
