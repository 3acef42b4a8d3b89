package engine

import (
	"github.com/txforge/txforge/pkg/types"
)

// FlowContext bundles the three contexts of one executable flow: the
// immutable workspace (names), the immutable graph (edges), and the
// mutable execution state. A runbook with several flows gets one
// FlowContext per flow, each with its own inputs.
type FlowContext struct {
	// Name labels the flow, "main" for single-flow runbooks.
	Name string

	// Workspace indexes the flow's constructs.
	Workspace *WorkspaceContext

	// Graph orders the flow's constructs.
	Graph *GraphContext

	// Execution accumulates the flow's run state.
	Execution *ExecutionContext

	// TopLevelInputs holds the runtime-supplied values seeded into the
	// flow before the first pass.
	TopLevelInputs *types.ValueStore
}

// NewFlowContext builds the graph for an indexed workspace and prepares
// execution state. Fails with a cycle diagnostic when the constructs
// cannot be ordered.
func NewFlowContext(name string, w *WorkspaceContext) (*FlowContext, *types.Diagnostic) {
	g := NewGraphContext(w)
	order, diag := g.SortedWithNames(w)
	if diag != nil {
		return nil, diag
	}
	return &FlowContext{
		Name:           name,
		Workspace:      w,
		Graph:          g,
		Execution:      NewExecutionContext(order),
		TopLevelInputs: types.NewValueStore(name),
	}, nil
}

// SeedInput registers a runtime-supplied input and installs its value as
// an already-successful result, so expressions referencing input.<name>
// resolve immediately.
func (f *FlowContext) SeedInput(pkg types.PackageId, name string, value types.Value) {
	f.TopLevelInputs.Insert(name, value)
	did := f.Workspace.SeedTopLevelInput(pkg, name)

	outputs := types.NewValueStore(name)
	outputs.Insert("value", value)
	f.Execution.SeedResult(did, outputs)
}

// Outputs collects the results of every output construct, keyed by the
// construct name, in declaration order.
func (f *FlowContext) Outputs() *types.ValueStore {
	out := types.NewValueStore(f.Name)
	for _, c := range f.Workspace.Constructs() {
		if c.Id.ConstructType != types.ConstructTypeOutput {
			continue
		}
		result, ok := f.Execution.Result(c.Did)
		if !ok {
			continue
		}
		if v, okv := result.Get("value"); okv {
			out.Insert(c.Id.ConstructName, v)
		}
	}
	return out
}
