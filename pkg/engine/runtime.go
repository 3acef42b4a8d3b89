package engine

import (
	"strings"

	"github.com/txforge/txforge/pkg/types"
)

// RuntimeContext holds everything the engine needs that is not tied to a
// single runbook: registered addons, their command and signer
// specifications, and the function table available inside expressions.
type RuntimeContext struct {
	addons    map[string]types.Addon
	commands  map[string]*types.CommandSpecification
	signers   map[string]*types.SignerSpecification
	functions map[string]*types.FunctionSpecification
}

// NewRuntimeContext creates a runtime with the core command set and
// function table registered.
func NewRuntimeContext() *RuntimeContext {
	r := &RuntimeContext{
		addons:    make(map[string]types.Addon),
		commands:  make(map[string]*types.CommandSpecification),
		signers:   make(map[string]*types.SignerSpecification),
		functions: make(map[string]*types.FunctionSpecification),
	}
	for _, spec := range coreCommandSpecifications() {
		r.commands[spec.Name] = spec
	}
	for _, spec := range coreFunctionSpecifications() {
		r.functions[spec.Name] = spec
	}
	return r
}

// RegisterAddon makes the addon's commands, signers, and functions
// available under its namespace.
func (r *RuntimeContext) RegisterAddon(addon types.Addon) *types.Diagnostic {
	ns := addon.Namespace()
	if _, exists := r.addons[ns]; exists {
		return types.ErrorDiagf("addon namespace %q already registered", ns).
			WithCode(types.DiagCodeDuplicate)
	}
	r.addons[ns] = addon
	for _, spec := range addon.Actions() {
		r.commands[ns+"::"+spec.Name] = spec
	}
	for _, spec := range addon.Signers() {
		r.signers[ns+"::"+spec.Name] = spec
	}
	for _, spec := range addon.Functions() {
		r.functions[ns+"::"+spec.Name] = spec
	}
	return nil
}

// CommandSpecification looks up a command by matcher, e.g. "evm::send_eth"
// or a core name like "variable".
func (r *RuntimeContext) CommandSpecification(matcher string) (*types.CommandSpecification, bool) {
	spec, ok := r.commands[matcher]
	return spec, ok
}

// SignerSpecification looks up a signer by matcher.
func (r *RuntimeContext) SignerSpecification(matcher string) (*types.SignerSpecification, bool) {
	spec, ok := r.signers[matcher]
	return spec, ok
}

// Function looks up an expression function, namespaced or core.
func (r *RuntimeContext) Function(namespace, name string) (*types.FunctionSpecification, bool) {
	if namespace != "" {
		spec, ok := r.functions[namespace+"::"+name]
		return spec, ok
	}
	spec, ok := r.functions[name]
	return spec, ok
}

// SplitMatcher splits "evm::send_eth" into namespace and name.
func SplitMatcher(matcher string) (namespace, name string) {
	if idx := strings.Index(matcher, "::"); idx >= 0 {
		return matcher[:idx], matcher[idx+2:]
	}
	return "", matcher
}
