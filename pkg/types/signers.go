package types

import (
	"context"
)

// CheckActivabilityFunc gathers the action items needed to bring a signer
// online, such as requesting its public key from an operator wallet.
type CheckActivabilityFunc func(ctx context.Context, signer ConstructDid, instanceName string, inputs *ValueStore) (*ExecutabilityCheck, *Diagnostic)

// ActivateFunc finalizes signer setup once its action items are resolved,
// returning the signer's resolved outputs such as address and public key.
type ActivateFunc func(ctx context.Context, signer ConstructDid, inputs *ValueStore) (*CommandExecutionResult, *Diagnostic)

// CheckSignabilityFunc inspects a payload about to be signed and returns
// the action items an operator must resolve first, typically a review of
// the payload plus the signature request itself.
type CheckSignabilityFunc func(ctx context.Context, signer ConstructDid, payload Value, inputs *ValueStore) (*ExecutabilityCheck, *Diagnostic)

// SignFunc produces the signed payload.
type SignFunc func(ctx context.Context, signer ConstructDid, payload Value, inputs *ValueStore) (Value, *Diagnostic)

// SignerSpecification defines a signer kind: its declared interface and the
// callbacks implementing activation and signing.
type SignerSpecification struct {
	// Name is the signer matcher inside its namespace, e.g. "secret_key".
	Name string `json:"name"`

	// Documentation describes the signer.
	Documentation string `json:"documentation,omitempty"`

	// Inputs declares accepted inputs.
	Inputs []CommandInput `json:"inputs"`

	// Outputs declares outputs available after activation.
	Outputs []CommandOutput `json:"outputs"`

	// CheckActivability gathers activation action items; nil when the
	// signer activates without operator interaction.
	CheckActivability CheckActivabilityFunc `json:"-"`

	// Activate finalizes signer setup. Required.
	Activate ActivateFunc `json:"-"`

	// CheckSignability gathers signing action items; nil when signing
	// needs no operator interaction.
	CheckSignability CheckSignabilityFunc `json:"-"`

	// Sign produces the signed payload. Required.
	Sign SignFunc `json:"-"`
}

// SignerInstance binds a signer specification to one declared signer block.
type SignerInstance struct {
	// Specification is the signer definition this block instantiates.
	Specification *SignerSpecification

	// Name is the block label.
	Name string

	// ConstructId locates the block in the workspace.
	ConstructId ConstructId

	// Namespace is the addon namespace the specification came from.
	Namespace string

	// Attributes maps input names to their unevaluated expressions.
	Attributes map[string]Expression

	// AttributeOrder preserves the declaration order of attributes.
	AttributeOrder []string
}

// NewSignerInstance binds spec to a declared signer block.
func NewSignerInstance(spec *SignerSpecification, namespace string, id ConstructId) *SignerInstance {
	return &SignerInstance{
		Specification: spec,
		Name:          id.ConstructName,
		ConstructId:   id,
		Namespace:     namespace,
		Attributes:    make(map[string]Expression),
	}
}

// SetAttribute records an attribute expression, preserving declaration
// order.
func (s *SignerInstance) SetAttribute(name string, expr Expression) {
	if _, exists := s.Attributes[name]; !exists {
		s.AttributeOrder = append(s.AttributeOrder, name)
	}
	s.Attributes[name] = expr
}

// MatcherName returns the namespaced signer name, e.g. "evm::secret_key".
func (s *SignerInstance) MatcherName() string {
	if s.Namespace == "" {
		return s.Specification.Name
	}
	return s.Namespace + "::" + s.Specification.Name
}
