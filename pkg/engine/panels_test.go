package engine

import (
	"context"
	"testing"

	"github.com/txforge/txforge/pkg/types"
)

func TestDriver_GenesisPanelListsInputsAndGate(t *testing.T) {
	runtime := NewRuntimeContext()
	flow := buildTestFlow(t, runtime, varDecl("placeholder", intLit(0)))
	flow.SeedInput(testPackageId(), "amount", types.IntValue(250))
	flow.SeedInput(testPackageId(), "memo", types.StringValue("payroll"))

	driver := NewDriver(runtime, flow, testLogger(t))
	panel := driver.GenesisPanel("testnet")

	items := panel.Items()
	if len(items) != 3 {
		t.Fatalf("Expected 2 input items plus a gate, got %d", len(items))
	}
	for _, item := range items[:2] {
		if item.Type != types.ActionItemReviewInput {
			t.Errorf("Expected review_input item, got %s", item.Type)
		}
		if item.Status != types.ActionItemTodo {
			t.Errorf("Expected todo status, got %s", item.Status)
		}
	}
	gate := items[2]
	if gate.Type != types.ActionItemValidateBlock {
		t.Fatalf("Expected validate_block gate last, got %s", gate.Type)
	}
	if !gate.ConstructDid.Did.IsZero() {
		t.Error("Expected the gate to be panel level, not bound to a construct")
	}
}

func TestDriver_GenesisPanelStableIds(t *testing.T) {
	runtime := NewRuntimeContext()
	flow := buildTestFlow(t, runtime, varDecl("placeholder", intLit(0)))
	flow.SeedInput(testPackageId(), "amount", types.IntValue(250))

	driver := NewDriver(runtime, flow, testLogger(t))
	first := driver.GenesisPanel("testnet").Items()
	second := driver.GenesisPanel("testnet").Items()
	if len(first) != len(second) {
		t.Fatalf("Expected identical panels, got %d and %d items", len(first), len(second))
	}
	for i := range first {
		if first[i].Id != second[i].Id {
			t.Errorf("Expected item %d to keep its id across rebuilds", i)
		}
	}
}

func TestDriver_OutputsPanelCollectsCompletedOutputs(t *testing.T) {
	runtime := NewRuntimeContext()
	flow := buildTestFlow(t, runtime,
		varDecl("amount", intLit(250)),
		outputDecl("total", ref("variable", "amount", "value")),
		outputDecl("label", lit(types.StringValue("transfer"))),
	)

	driver := NewDriver(runtime, flow, testLogger(t))
	if diag := driver.RunUnsupervised(context.Background()); diag != nil {
		t.Fatalf("Expected run to succeed, got: %v", diag)
	}

	panel := driver.OutputsPanel()
	if panel == nil {
		t.Fatal("Expected an outputs panel")
	}
	items := panel.Items()
	if len(items) != 2 {
		t.Fatalf("Expected 2 output items, got %d", len(items))
	}

	byTitle := make(map[string]*types.ActionItemRequest)
	for _, item := range items {
		if item.Type != types.ActionItemDisplayOutput {
			t.Errorf("Expected display_output item, got %s", item.Type)
		}
		byTitle[item.Title] = item
	}
	total, ok := byTitle["total"]
	if !ok {
		t.Fatal("Expected an item for output total")
	}
	v, _ := total.Payload.Get("value")
	if i, _ := v.AsInt(); i != 250 {
		t.Errorf("Expected 250, got %v", v)
	}
}

func TestDriver_OutputsPanelNilWithoutOutputs(t *testing.T) {
	runtime := NewRuntimeContext()
	flow := buildTestFlow(t, runtime, varDecl("amount", intLit(1)))

	driver := NewDriver(runtime, flow, testLogger(t))
	if diag := driver.RunUnsupervised(context.Background()); diag != nil {
		t.Fatalf("Expected run to succeed, got: %v", diag)
	}
	if panel := driver.OutputsPanel(); panel != nil {
		t.Errorf("Expected no panel, got %q", panel.Title)
	}
}
