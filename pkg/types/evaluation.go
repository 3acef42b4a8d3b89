package types

// EvaluationStatus discriminates the outcome of evaluating an expression.
type EvaluationStatus uint8

const (
	// EvalCompleteOk means the expression resolved to a value.
	EvalCompleteOk EvaluationStatus = iota

	// EvalCompleteErr means evaluation failed with a diagnostic.
	EvalCompleteErr

	// EvalDependencyNotComputed means the expression references a
	// construct whose results are not available yet. Not an error: the
	// scheduler retries after the dependency executes.
	EvalDependencyNotComputed
)

// EvaluationResult is the tri-state outcome of expression evaluation.
type EvaluationResult struct {
	// Status discriminates the variants.
	Status EvaluationStatus

	// Value is set when Status is EvalCompleteOk.
	Value Value

	// Diag is set when Status is EvalCompleteErr.
	Diag *Diagnostic

	// MissingDependency names the unresolved reference when Status is
	// EvalDependencyNotComputed.
	MissingDependency string
}

// EvalOk wraps a resolved value.
func EvalOk(v Value) EvaluationResult {
	return EvaluationResult{Status: EvalCompleteOk, Value: v}
}

// EvalErr wraps a failure diagnostic.
func EvalErr(diag *Diagnostic) EvaluationResult {
	return EvaluationResult{Status: EvalCompleteErr, Diag: diag}
}

// EvalNotComputed marks an unresolved dependency.
func EvalNotComputed(reference string) EvaluationResult {
	return EvaluationResult{Status: EvalDependencyNotComputed, MissingDependency: reference}
}

// Ok reports whether the evaluation produced a value.
func (r EvaluationResult) Ok() bool {
	return r.Status == EvalCompleteOk
}
