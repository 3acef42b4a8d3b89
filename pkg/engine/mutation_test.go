package engine

import (
	"context"
	"testing"

	"github.com/txforge/txforge/pkg/types"
)

// mutationFixture runs a three-action flow to completion: head feeds
// chained, while standalone is independent.
func mutationFixture(t *testing.T) (*testAddon, *RuntimeContext, *FlowContext, *Driver) {
	t.Helper()
	addon := newTestAddon()
	runtime := testRuntime(t, addon)
	flow := buildTestFlow(t, runtime,
		actionDecl("head", "test::echo", attr("value", intLit(1))),
		actionDecl("chained", "test::echo", attr("value", ref("action", "head", "value"))),
		actionDecl("standalone", "test::echo", attr("value", intLit(100))),
		outputDecl("result", ref("action", "chained", "value")),
	)
	driver := NewDriver(runtime, flow, testLogger(t))
	if diag := driver.RunUnsupervised(context.Background()); diag != nil {
		t.Fatalf("Expected initial run to succeed, got: %v", diag)
	}
	return addon, runtime, flow, driver
}

func TestDriver_ApplyMutations_InvalidatesDownstreamOnly(t *testing.T) {
	_, _, flow, driver := mutationFixture(t)

	head := constructByName(t, flow, "head")
	invalidated, diag := driver.ApplyMutations([]Mutation{{
		ConstructDid: head.Did,
		Attributes:   map[string]types.Expression{"value": intLit(2)},
	}})
	if diag != nil {
		t.Fatalf("Expected mutation to apply, got: %v", diag)
	}

	chained := constructByName(t, flow, "chained")
	result := constructByName(t, flow, "result")
	standalone := constructByName(t, flow, "standalone")

	if !invalidated[head.Did] || !invalidated[chained.Did] || !invalidated[result.Did] {
		t.Error("Expected the edited construct and its downstream closure invalidated")
	}
	if invalidated[standalone.Did] {
		t.Error("Expected the independent construct untouched")
	}

	if flow.Execution.State(head.Did) != types.StateUnevaluated {
		t.Errorf("Expected head reset to unevaluated, got %s", flow.Execution.State(head.Did))
	}
	if flow.Execution.State(standalone.Did) != types.StateSuccess {
		t.Errorf("Expected standalone still successful, got %s", flow.Execution.State(standalone.Did))
	}
}

func TestDriver_ReEvaluate_RecomputesOnlyInvalidated(t *testing.T) {
	addon, _, flow, driver := mutationFixture(t)

	head := constructByName(t, flow, "head")
	invalidated, diag := driver.ApplyMutations([]Mutation{{
		ConstructDid: head.Did,
		Attributes:   map[string]types.Expression{"value": intLit(2)},
	}})
	if diag != nil {
		t.Fatalf("Expected mutation to apply, got: %v", diag)
	}
	if diag := driver.ReEvaluate(context.Background(), invalidated); diag != nil {
		t.Fatalf("Expected re-evaluation to succeed, got: %v", diag)
	}

	chained := constructByName(t, flow, "chained")
	standalone := constructByName(t, flow, "standalone")

	if addon.executions[head.Did] != 2 {
		t.Errorf("Expected head executed twice, got %d", addon.executions[head.Did])
	}
	if addon.executions[chained.Did] != 2 {
		t.Errorf("Expected chained executed twice, got %d", addon.executions[chained.Did])
	}
	if addon.executions[standalone.Did] != 1 {
		t.Errorf("Expected standalone cached after mutation, got %d executions", addon.executions[standalone.Did])
	}

	v, ok := flow.Outputs().Get("result")
	if !ok {
		t.Fatal("Expected output result")
	}
	if i, _ := v.AsInt(); i != 2 {
		t.Errorf("Expected result 2 after mutation, got %v", v)
	}
}

func TestDriver_ApplyMutations_NewReferenceExtendsGraph(t *testing.T) {
	addon, _, flow, driver := mutationFixture(t)

	standalone := constructByName(t, flow, "standalone")
	invalidated, diag := driver.ApplyMutations([]Mutation{{
		ConstructDid: standalone.Did,
		Attributes:   map[string]types.Expression{"value": ref("action", "head", "value")},
	}})
	if diag != nil {
		t.Fatalf("Expected mutation to apply, got: %v", diag)
	}
	if diag := driver.ReEvaluate(context.Background(), invalidated); diag != nil {
		t.Fatalf("Expected re-evaluation to succeed, got: %v", diag)
	}

	if addon.executions[standalone.Did] != 2 {
		t.Errorf("Expected standalone re-executed, got %d executions", addon.executions[standalone.Did])
	}
	result, ok := flow.Execution.Result(standalone.Did)
	if !ok {
		t.Fatal("Expected a result for standalone")
	}
	v, _ := result.Get("value")
	if i, _ := v.AsInt(); i != 1 {
		t.Errorf("Expected standalone to now carry head's value 1, got %v", v)
	}

	// The rebuilt graph carries the new edge.
	head := constructByName(t, flow, "head")
	if !flow.Graph.DownstreamClosure(head.Did)[standalone.Did] {
		t.Error("Expected standalone downstream of head after the mutation")
	}
}

func TestDriver_ApplyMutations_UnknownConstruct(t *testing.T) {
	_, _, _, driver := mutationFixture(t)

	_, diag := driver.ApplyMutations([]Mutation{{
		ConstructDid: types.ConstructDid{Did: types.NewDid([]byte("missing"))},
		Attributes:   map[string]types.Expression{"value": intLit(1)},
	}})
	if diag == nil {
		t.Fatal("Expected a diagnostic for an unknown construct")
	}
	if diag.Code != types.DiagCodeUnknownReference {
		t.Errorf("Expected code %q, got %q", types.DiagCodeUnknownReference, diag.Code)
	}
}

func TestDriver_ApplyMutations_CycleRejected(t *testing.T) {
	_, _, flow, driver := mutationFixture(t)

	// Pointing head at its own dependent creates head -> chained -> head.
	head := constructByName(t, flow, "head")
	_, diag := driver.ApplyMutations([]Mutation{{
		ConstructDid: head.Did,
		Attributes:   map[string]types.Expression{"value": ref("action", "chained", "value")},
	}})
	if diag == nil {
		t.Fatal("Expected a cycle diagnostic")
	}
	if diag.Code != types.DiagCodeCycle {
		t.Errorf("Expected code %q, got %q", types.DiagCodeCycle, diag.Code)
	}
}
