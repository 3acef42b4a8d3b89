package engine

import (
	"context"

	"github.com/txforge/txforge/pkg/types"
)

// Mutation captures one edit to an already-executed flow: attribute
// expressions replaced on a construct. Applying it invalidates the
// construct and its downstream closure, leaving everything else cached.
type Mutation struct {
	// ConstructDid names the edited construct.
	ConstructDid types.ConstructDid

	// Attributes replaces the construct's attribute expressions. Keys not
	// present keep their previous expression.
	Attributes map[string]types.Expression
}

// ApplyMutations folds edits into the workspace and invalidates the
// affected subgraph. The graph is rebuilt since edges may have changed.
// Returns the set of invalidated constructs.
func (d *Driver) ApplyMutations(mutations []Mutation) (map[types.ConstructDid]bool, *types.Diagnostic) {
	invalidated := make(map[types.ConstructDid]bool)

	for _, m := range mutations {
		construct, ok := d.flow.Workspace.Construct(m.ConstructDid)
		if !ok {
			return nil, types.ErrorDiagf("mutation targets unknown construct %s", m.ConstructDid.Did).
				WithCode(types.DiagCodeUnknownReference)
		}
		for name, expr := range m.Attributes {
			switch {
			case construct.Command != nil:
				construct.Command.SetAttribute(name, expr)
			case construct.Signer != nil:
				construct.Signer.SetAttribute(name, expr)
			}
		}
		invalidated[m.ConstructDid] = true
		for downstream := range d.flow.Graph.DownstreamClosure(m.ConstructDid) {
			invalidated[downstream] = true
		}
	}

	// Rebuild the graph: edited expressions may reference different
	// constructs.
	graph := NewGraphContext(d.flow.Workspace)
	order, diag := graph.SortedWithNames(d.flow.Workspace)
	if diag != nil {
		return nil, diag
	}
	d.flow.Graph = graph
	d.flow.Execution.order = order

	// New edges can pull previously unrelated constructs downstream of an
	// edit; close over the new graph too.
	for did := range invalidated {
		for downstream := range graph.DownstreamClosure(did) {
			invalidated[downstream] = true
		}
	}

	for did := range invalidated {
		d.flow.Execution.Invalidate(did)
	}
	d.logger.Infof("applied %d mutation(s), invalidated %d construct(s)", len(mutations), len(invalidated))
	return invalidated, nil
}

// ReEvaluate runs the flow again after mutations. Constructs outside the
// invalidated set keep their cached results as long as their inputs
// fingerprint is unchanged; a changed fingerprint forces re-execution and
// extends the invalidation downstream.
func (d *Driver) ReEvaluate(ctx context.Context, invalidated map[types.ConstructDid]bool) *types.Diagnostic {
	exec := d.flow.Execution

	for _, did := range exec.Order() {
		if invalidated[did] || !exec.State(did).IsTerminal() {
			continue
		}
		construct, ok := d.flow.Workspace.Construct(did)
		if !ok || (construct.Command == nil && construct.Signer == nil) {
			continue
		}

		// Cached result stays valid only while the re-evaluated inputs
		// fingerprint matches the recorded one.
		inputs, res := d.evaluateInputs(construct)
		if res.Status == types.EvalDependencyNotComputed {
			// An upstream construct is invalidated; this one must be too.
			invalidated[did] = true
			exec.Invalidate(did)
			continue
		}
		if res.Status == types.EvalCompleteErr {
			invalidated[did] = true
			exec.Invalidate(did)
			continue
		}
		cached, ok := exec.InputsFingerprint(did)
		if !ok || cached != inputs.Fingerprint() {
			invalidated[did] = true
			exec.Invalidate(did)
			for downstream := range d.flow.Graph.DownstreamClosure(did) {
				invalidated[downstream] = true
				exec.Invalidate(downstream)
			}
		}
	}

	return d.RunUnsupervised(ctx)
}
