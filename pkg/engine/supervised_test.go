package engine

import (
	"context"
	"testing"
	"time"

	"github.com/txforge/txforge/pkg/types"
)

// drainEvents consumes every event from the channel so emitting never
// blocks, recording action panels as they appear.
func drainEvents(events <-chan types.BlockEvent, panels chan<- *types.ActionPanel) {
	for event := range events {
		if event.Type == types.BlockEventActionPanel {
			panels <- event.Panel
		}
	}
}

func TestDriver_SupervisedSuspendsOnActionItem(t *testing.T) {
	addon := newTestAddon()
	runtime := testRuntime(t, addon)
	flow := buildTestFlow(t, runtime,
		varDecl("amount", intLit(5)),
		actionDecl("review", "test::gated", attr("value", ref("variable", "amount"))),
	)

	events := make(chan types.BlockEvent, 64)
	driver := NewDriver(runtime, flow, testLogger(t), WithEvents(events))

	result := driver.RunPass(context.Background())
	if result.Suspended != 1 {
		t.Fatalf("Expected 1 suspended construct, got %d", result.Suspended)
	}

	review := constructByName(t, flow, "review")
	if flow.Execution.State(review.Did) != types.StateAwaitingActionItem {
		t.Fatalf("Expected review awaiting action item, got %s", flow.Execution.State(review.Did))
	}
	items := flow.Execution.PendingItems(review.Did)
	if len(items) != 1 {
		t.Fatalf("Expected 1 pending item, got %d", len(items))
	}
	if items[0].Type != types.ActionItemReviewInput {
		t.Errorf("Expected a review_input item, got %s", items[0].Type)
	}
	if addon.executions[review.Did] != 0 {
		t.Error("Expected no execution while awaiting review")
	}
}

func TestDriver_SupervisedApprovalResumesExecution(t *testing.T) {
	addon := newTestAddon()
	runtime := testRuntime(t, addon)
	flow := buildTestFlow(t, runtime,
		actionDecl("review", "test::gated", attr("value", intLit(5))),
		outputDecl("approved", ref("action", "review", "value")),
	)

	events := make(chan types.BlockEvent, 64)
	driver := NewDriver(runtime, flow, testLogger(t), WithEvents(events))

	driver.RunPass(context.Background())
	review := constructByName(t, flow, "review")
	items := flow.Execution.PendingItems(review.Did)
	if len(items) != 1 {
		t.Fatalf("Expected 1 pending item, got %d", len(items))
	}

	diag := driver.ApplyResponse(types.ActionItemResponse{
		ActionItemId: items[0].Id,
		Payload:      types.ReviewedInputResponse{InputName: "value", Approved: true},
	})
	if diag != nil {
		t.Fatalf("Expected response to apply, got: %v", diag)
	}
	if flow.Execution.State(review.Did) != types.StateInputsEvaluated {
		t.Fatalf("Expected review rewound to inputs_evaluated, got %s", flow.Execution.State(review.Did))
	}

	result := driver.RunPass(context.Background())
	if !result.Done() {
		t.Fatalf("Expected flow to finish after approval, got %+v", result)
	}
	if addon.executions[review.Did] != 1 {
		t.Errorf("Expected exactly 1 execution, got %d", addon.executions[review.Did])
	}
	if addon.checks[review.Did] != 1 {
		t.Errorf("Expected executability checked exactly once, got %d", addon.checks[review.Did])
	}

	v, ok := flow.Outputs().Get("approved")
	if !ok {
		t.Fatal("Expected output approved")
	}
	if i, _ := v.AsInt(); i != 5 {
		t.Errorf("Expected 5, got %v", v)
	}
}

func TestDriver_SupervisedRejectionFailsConstructAndDownstream(t *testing.T) {
	addon := newTestAddon()
	runtime := testRuntime(t, addon)
	flow := buildTestFlow(t, runtime,
		actionDecl("review", "test::gated", attr("value", intLit(5))),
		outputDecl("approved", ref("action", "review", "value")),
	)

	events := make(chan types.BlockEvent, 64)
	driver := NewDriver(runtime, flow, testLogger(t), WithEvents(events))

	driver.RunPass(context.Background())
	review := constructByName(t, flow, "review")
	items := flow.Execution.PendingItems(review.Did)

	diag := driver.ApplyResponse(types.ActionItemResponse{
		ActionItemId: items[0].Id,
		Payload:      types.ReviewedInputResponse{InputName: "value", Approved: false},
	})
	if diag != nil {
		t.Fatalf("Expected rejection to apply cleanly, got: %v", diag)
	}

	if flow.Execution.State(review.Did) != types.StateFailed {
		t.Errorf("Expected review failed after rejection, got %s", flow.Execution.State(review.Did))
	}
	approved := constructByName(t, flow, "approved")
	if flow.Execution.State(approved.Did) != types.StateDependencyFailed {
		t.Errorf("Expected downstream output dependency_failed, got %s", flow.Execution.State(approved.Did))
	}
	if addon.executions[review.Did] != 0 {
		t.Error("Expected no execution after rejection")
	}
}

func TestDriver_SupervisedUnknownItemRejected(t *testing.T) {
	runtime := NewRuntimeContext()
	flow := buildTestFlow(t, runtime, varDecl("a", intLit(1)))

	events := make(chan types.BlockEvent, 8)
	driver := NewDriver(runtime, flow, testLogger(t), WithEvents(events))

	diag := driver.ApplyResponse(types.ActionItemResponse{
		ActionItemId: types.NewDid([]byte("unknown")),
		Payload:      types.ValidateBlockResponse{},
	})
	if diag == nil {
		t.Fatal("Expected a diagnostic for an unknown action item")
	}
	if diag.Code != types.DiagCodeUnknownReference {
		t.Errorf("Expected code %q, got %q", types.DiagCodeUnknownReference, diag.Code)
	}
}

func TestDriver_SignerActivationThroughPublicKey(t *testing.T) {
	addon := newTestAddon()
	runtime := testRuntime(t, addon)
	flow := buildTestFlow(t, runtime,
		signerDecl("operator", "test::softkey", attr("label", strLit("ops wallet"))),
		outputDecl("key", ref("signer", "operator", "public_key")),
	)

	events := make(chan types.BlockEvent, 64)
	driver := NewDriver(runtime, flow, testLogger(t), WithEvents(events))

	driver.RunPass(context.Background())
	operator := constructByName(t, flow, "operator")
	items := flow.Execution.PendingItems(operator.Did)
	if len(items) != 1 {
		t.Fatalf("Expected 1 activation item, got %d", len(items))
	}
	if items[0].Type != types.ActionItemProvidePublicKey {
		t.Fatalf("Expected a provide_public_key item, got %s", items[0].Type)
	}

	key := []byte{0x04, 0xaa, 0xbb}
	diag := driver.ApplyResponse(types.ActionItemResponse{
		ActionItemId: items[0].Id,
		Payload:      types.ProvidedPublicKeyResponse{PublicKey: key},
	})
	if diag != nil {
		t.Fatalf("Expected response to apply, got: %v", diag)
	}

	result := driver.RunPass(context.Background())
	if !result.Done() {
		t.Fatalf("Expected flow to finish after activation, got %+v", result)
	}

	v, ok := flow.Outputs().Get("key")
	if !ok {
		t.Fatal("Expected output key")
	}
	raw, ok := v.AsBuffer()
	if !ok {
		t.Fatalf("Expected a buffer output, got %v", v)
	}
	if len(raw) != len(key) || raw[0] != 0x04 {
		t.Errorf("Expected the provided key bytes back, got %x", raw)
	}
}

func TestDriver_RunSupervised_EndToEnd(t *testing.T) {
	addon := newTestAddon()
	runtime := testRuntime(t, addon)
	flow := buildTestFlow(t, runtime,
		varDecl("amount", intLit(9)),
		actionDecl("review", "test::gated", attr("value", ref("variable", "amount"))),
		outputDecl("released", ref("action", "review", "value")),
	)

	events := make(chan types.BlockEvent, 256)
	responses := make(chan types.ActionItemResponse, 8)
	driver := NewDriver(runtime, flow, testLogger(t), WithEvents(events))

	// The operator goroutine approves every item on every panel.
	panels := make(chan *types.ActionPanel, 8)
	go drainEvents(events, panels)
	go func() {
		for panel := range panels {
			for _, item := range panel.Items() {
				responses <- types.ActionItemResponse{
					ActionItemId: item.Id,
					Payload:      types.ReviewedInputResponse{InputName: "value", Approved: true},
				}
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if diag := driver.RunSupervised(ctx, responses); diag != nil {
		t.Fatalf("Expected supervised run to succeed, got: %v", diag)
	}
	close(events)

	v, ok := flow.Outputs().Get("released")
	if !ok {
		t.Fatal("Expected output released")
	}
	if i, _ := v.AsInt(); i != 9 {
		t.Errorf("Expected 9, got %v", v)
	}
}
