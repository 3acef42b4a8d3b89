package types

// FunctionRunner evaluates a function call with fully evaluated arguments.
type FunctionRunner func(args []Value) (Value, *Diagnostic)

// FunctionParameter documents one parameter of a function specification.
type FunctionParameter struct {
	// Name is the parameter name used in documentation.
	Name string `json:"name"`

	// Documentation describes the parameter.
	Documentation string `json:"documentation,omitempty"`

	// Typ is the expected argument type.
	Typ Type `json:"type"`

	// Optional marks trailing parameters that may be omitted.
	Optional bool `json:"optional,omitempty"`
}

// FunctionSpecification defines one callable function available inside
// expressions, either core or addon-namespaced.
type FunctionSpecification struct {
	// Name is the function name as written in expressions.
	Name string `json:"name"`

	// Documentation describes the function.
	Documentation string `json:"documentation,omitempty"`

	// Parameters documents the expected arguments.
	Parameters []FunctionParameter `json:"parameters,omitempty"`

	// ReturnType is the declared result type.
	ReturnType Type `json:"return_type"`

	// Run evaluates the function. Required.
	Run FunctionRunner `json:"-"`
}

// CheckArity verifies the argument count against the declared parameters.
func (s *FunctionSpecification) CheckArity(args []Value) *Diagnostic {
	required := 0
	for _, p := range s.Parameters {
		if !p.Optional {
			required++
		}
	}
	if len(args) < required || len(args) > len(s.Parameters) {
		return ErrorDiagf("function %q: expected %d to %d arguments, got %d",
			s.Name, required, len(s.Parameters), len(args))
	}
	return nil
}
