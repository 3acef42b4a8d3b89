package types

import (
	"context"
	"fmt"
)

// ConstructType names the block kinds a runbook can declare.
const (
	ConstructTypeVariable = "variable"
	ConstructTypeAction   = "action"
	ConstructTypeOutput   = "output"
	ConstructTypeSigner   = "signer"
	ConstructTypeModule   = "module"
	ConstructTypeFlow     = "flow"
	ConstructTypeImport   = "import"
)

// CommandInput describes one declared input of a command specification.
type CommandInput struct {
	// Name is the attribute name inside the construct block.
	Name string `json:"name"`

	// Documentation describes the input.
	Documentation string `json:"documentation,omitempty"`

	// Typ is the declared type; resolved values are coerced to it.
	Typ Type `json:"type"`

	// Optional marks inputs that may be omitted.
	Optional bool `json:"optional,omitempty"`

	// Sensitive marks inputs that must be redacted in logs and panels.
	Sensitive bool `json:"sensitive,omitempty"`
}

// CommandOutput describes one declared output of a command specification.
type CommandOutput struct {
	// Name is the key the output appears under in execution results.
	Name string `json:"name"`

	// Documentation describes the output.
	Documentation string `json:"documentation,omitempty"`

	// Typ is the output's declared type.
	Typ Type `json:"type"`
}

// ExecutabilityCheck is the result of a pre-execution review pass: the
// action items an operator must resolve before the construct may execute.
// An empty slice means the construct can execute immediately.
type ExecutabilityCheck struct {
	// ActionItems are the interactions required before execution.
	ActionItems []*ActionItemRequest
}

// CommandExecutionResult is what executing a construct produces.
type CommandExecutionResult struct {
	// Outputs holds the named output values.
	Outputs *ValueStore
}

// BackgroundTaskHandle tracks one in-flight background task.
type BackgroundTaskHandle struct {
	// ConstructDid identifies the construct that spawned the task.
	ConstructDid ConstructDid

	// Result delivers exactly one completion.
	Result <-chan BackgroundTaskResult

	// Cancel aborts the task.
	Cancel context.CancelFunc
}

// BackgroundTaskResult is the completion of a background task.
type BackgroundTaskResult struct {
	// Outputs holds the task's output values on success.
	Outputs *ValueStore

	// Diag is the failure diagnostic; nil on success.
	Diag *Diagnostic
}

// CheckExecutabilityFunc inspects evaluated inputs and returns the action
// items that must be resolved before execution, if any.
type CheckExecutabilityFunc func(ctx context.Context, construct ConstructDid, instanceName string, inputs *ValueStore) (*ExecutabilityCheck, *Diagnostic)

// RunExecutionFunc performs the construct's effect with fully evaluated
// inputs and returns the output values.
type RunExecutionFunc func(ctx context.Context, construct ConstructDid, inputs *ValueStore) (*CommandExecutionResult, *Diagnostic)

// BuildBackgroundTaskFunc starts long-running work after RunExecution, for
// commands whose effect outlives the synchronous call. The returned handle
// delivers exactly one result.
type BuildBackgroundTaskFunc func(ctx context.Context, construct ConstructDid, inputs *ValueStore, outputs *ValueStore) (*BackgroundTaskHandle, *Diagnostic)

// CommandSpecification is the reusable definition of a command: its
// declared interface plus the callbacks implementing its behavior.
type CommandSpecification struct {
	// Name is the command's matcher inside its namespace, e.g. "send_eth".
	Name string `json:"name"`

	// Documentation describes the command.
	Documentation string `json:"documentation,omitempty"`

	// Inputs declares accepted inputs.
	Inputs []CommandInput `json:"inputs"`

	// Outputs declares produced outputs.
	Outputs []CommandOutput `json:"outputs"`

	// ImplementsBackgroundTask marks commands that continue running after
	// RunExecution returns.
	ImplementsBackgroundTask bool `json:"implements_background_task,omitempty"`

	// CheckExecutability gathers pre-execution action items; nil means
	// the command never requires operator interaction.
	CheckExecutability CheckExecutabilityFunc `json:"-"`

	// RunExecution performs the command. Required.
	RunExecution RunExecutionFunc `json:"-"`

	// BuildBackgroundTask starts post-execution background work; nil
	// unless ImplementsBackgroundTask.
	BuildBackgroundTask BuildBackgroundTaskFunc `json:"-"`
}

// Input returns the declared input with the given name.
func (s *CommandSpecification) Input(name string) (*CommandInput, bool) {
	for i := range s.Inputs {
		if s.Inputs[i].Name == name {
			return &s.Inputs[i], true
		}
	}
	return nil, false
}

// CommandInstance binds a command specification to one declared construct:
// the block's name, its package, and the attribute expressions it carries.
type CommandInstance struct {
	// Specification is the command definition this block instantiates.
	Specification *CommandSpecification

	// Name is the block label, e.g. "send" in action "send" "evm::send_eth".
	Name string

	// ConstructId locates the block in the workspace.
	ConstructId ConstructId

	// Namespace is the addon namespace the specification came from, empty
	// for core commands.
	Namespace string

	// Attributes maps input names to their unevaluated expressions.
	Attributes map[string]Expression

	// AttributeOrder preserves the declaration order of attributes.
	AttributeOrder []string
}

// NewCommandInstance binds spec to a declared block.
func NewCommandInstance(spec *CommandSpecification, namespace string, id ConstructId) *CommandInstance {
	return &CommandInstance{
		Specification: spec,
		Name:          id.ConstructName,
		ConstructId:   id,
		Namespace:     namespace,
		Attributes:    make(map[string]Expression),
	}
}

// SetAttribute records an attribute expression, preserving declaration
// order.
func (c *CommandInstance) SetAttribute(name string, expr Expression) {
	if _, exists := c.Attributes[name]; !exists {
		c.AttributeOrder = append(c.AttributeOrder, name)
	}
	c.Attributes[name] = expr
}

// MatcherName returns the namespaced command name, e.g. "evm::send_eth".
func (c *CommandInstance) MatcherName() string {
	if c.Namespace == "" {
		return c.Specification.Name
	}
	return c.Namespace + "::" + c.Specification.Name
}

// CheckRequiredInputs verifies every non-optional declared input has an
// attribute expression or an evaluated value.
func (c *CommandInstance) CheckRequiredInputs(evaluated *ValueStore) *Diagnostic {
	for _, in := range c.Specification.Inputs {
		if in.Optional {
			continue
		}
		if _, ok := c.Attributes[in.Name]; ok {
			continue
		}
		if evaluated != nil && evaluated.Has(in.Name) {
			continue
		}
		return ErrorDiagf("command %q: missing required input %q", c.MatcherName(), in.Name).
			WithCode(DiagCodeMissingInput)
	}
	return nil
}

// CoerceInputs applies declared-type coercion to every evaluated input.
func (c *CommandInstance) CoerceInputs(evaluated *ValueStore) (*ValueStore, *Diagnostic) {
	out := NewValueStore(evaluated.Name)
	var diag *Diagnostic
	evaluated.Iter(func(key string, value Value) bool {
		spec, ok := c.Specification.Input(key)
		if !ok {
			out.Insert(key, value)
			return true
		}
		coerced, err := CoerceValue(value, spec.Typ)
		if err != nil {
			diag = FromError(fmt.Errorf("input %q: %w", key, err)).WithCode(DiagCodeTypeMismatch)
			return false
		}
		out.Insert(key, coerced)
		return true
	})
	if diag != nil {
		return nil, diag
	}
	return out, nil
}
