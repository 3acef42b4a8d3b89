package engine

import (
	"github.com/txforge/txforge/pkg/types"
)

// AttributeDeclaration is one attribute of a declared construct, in
// declaration order.
type AttributeDeclaration struct {
	// Name is the attribute name.
	Name string

	// Expr is the attribute's unevaluated expression.
	Expr types.Expression
}

// ConstructDeclaration is the parser-facing shape of one runbook block.
// Parsers produce these; the engine indexes them.
type ConstructDeclaration struct {
	// Package is the package the block was declared in.
	Package types.PackageId

	// Location is the source file of the block.
	Location string

	// Type is the construct type: variable, action, output, signer,
	// module, or flow.
	Type string

	// Name is the block label.
	Name string

	// Matcher selects the command or signer specification for action and
	// signer blocks, e.g. "evm::send_eth". Empty for core constructs.
	Matcher string

	// Attributes are the block's attributes in declaration order.
	Attributes []AttributeDeclaration
}

// FlowDefinition names one flow and the top-level inputs it runs with.
type FlowDefinition struct {
	// Name labels the flow.
	Name string

	// Inputs are the runtime-supplied values for this flow.
	Inputs *types.ValueStore
}

// Runbook is an assembled runbook: its identity, the declarations it was
// built from, and the runtime resolving its matchers.
type Runbook struct {
	// Id identifies the runbook.
	Id types.RunbookId

	runtime      *RuntimeContext
	declarations []ConstructDeclaration
}

// NewRunbook creates an empty runbook bound to a runtime.
func NewRunbook(id types.RunbookId, runtime *RuntimeContext) *Runbook {
	return &Runbook{Id: id, runtime: runtime}
}

// AddConstruct appends a parsed construct declaration.
func (r *Runbook) AddConstruct(decl ConstructDeclaration) {
	r.declarations = append(r.declarations, decl)
}

// Runtime returns the runbook's runtime context.
func (r *Runbook) Runtime() *RuntimeContext {
	return r.runtime
}

// BuildFlowContexts indexes the declarations into one flow context per
// definition. Each flow gets its own workspace, graph, and execution
// state, so flows run independently with their own inputs. With no
// definitions, a single "main" flow with no inputs is built.
func (r *Runbook) BuildFlowContexts(defs ...FlowDefinition) ([]*FlowContext, []*types.Diagnostic) {
	if len(defs) == 0 {
		defs = []FlowDefinition{{Name: "main"}}
	}

	var flows []*FlowContext
	var diags []*types.Diagnostic
	for _, def := range defs {
		flow, flowDiags := r.buildFlow(def)
		if len(flowDiags) > 0 {
			diags = append(diags, flowDiags...)
			continue
		}
		flows = append(flows, flow)
	}
	if len(diags) > 0 {
		return nil, diags
	}
	return flows, nil
}

func (r *Runbook) buildFlow(def FlowDefinition) (*FlowContext, []*types.Diagnostic) {
	workspace := NewWorkspaceContext(r.Id)
	var diags []*types.Diagnostic
	var defaultPkg *types.PackageId

	for _, decl := range r.declarations {
		if defaultPkg == nil {
			pkg := decl.Package
			defaultPkg = &pkg
		}
		id := types.ConstructId{
			PackageId:     decl.Package,
			Location:      decl.Location,
			ConstructType: decl.Type,
			ConstructName: decl.Name,
		}

		if decl.Type == types.ConstructTypeSigner {
			spec, ok := r.runtime.SignerSpecification(decl.Matcher)
			if !ok {
				diags = append(diags, types.ErrorDiagf("unknown signer %q", decl.Matcher).
					WithCode(types.DiagCodeUnknownReference))
				continue
			}
			ns, _ := SplitMatcher(decl.Matcher)
			instance := types.NewSignerInstance(spec, ns, id)
			for _, attr := range decl.Attributes {
				instance.SetAttribute(attr.Name, attr.Expr)
			}
			if _, diag := workspace.IndexSigner(instance); diag != nil {
				diags = append(diags, diag)
			}
			continue
		}

		matcher := decl.Matcher
		if matcher == "" {
			matcher = decl.Type
		}
		spec, ok := r.runtime.CommandSpecification(matcher)
		if !ok {
			diags = append(diags, types.ErrorDiagf("unknown command %q", matcher).
				WithCode(types.DiagCodeUnknownReference))
			continue
		}
		ns, _ := SplitMatcher(matcher)
		instance := types.NewCommandInstance(spec, ns, id)
		for _, attr := range decl.Attributes {
			instance.SetAttribute(attr.Name, attr.Expr)
		}
		if _, diag := workspace.IndexCommand(instance); diag != nil {
			diags = append(diags, diag)
		}
	}

	if len(diags) > 0 {
		return nil, diags
	}

	// Inputs are indexed before the graph is built so references to
	// input.<name> participate in ordering.
	if def.Inputs != nil && defaultPkg != nil {
		def.Inputs.Iter(func(name string, _ types.Value) bool {
			workspace.SeedTopLevelInput(*defaultPkg, name)
			return true
		})
	}

	flow, diag := NewFlowContext(def.Name, workspace)
	if diag != nil {
		return nil, []*types.Diagnostic{diag}
	}

	if def.Inputs != nil && defaultPkg != nil {
		def.Inputs.Iter(func(name string, value types.Value) bool {
			flow.SeedInput(*defaultPkg, name, value)
			return true
		})
	}
	return flow, nil
}
