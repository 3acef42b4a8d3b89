package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/txforge/txforge/pkg/telemetry"
	"github.com/txforge/txforge/pkg/types"
)

// eventCollector records published telemetry events. Subscribers run on
// their own goroutines, so reads go through waitFor.
type eventCollector struct {
	mu     sync.Mutex
	events []telemetry.Event
}

func (c *eventCollector) record(event telemetry.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

// waitFor returns the first recorded event of the given type whose
// reference data matches, failing the test after a timeout.
func (c *eventCollector) waitFor(t *testing.T, eventType, reference string) telemetry.Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		for _, e := range c.events {
			if e.Type != eventType {
				continue
			}
			if ref, _ := e.Data["reference"].(string); reference == "" || ref == reference {
				c.mu.Unlock()
				return e
			}
		}
		c.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Expected a %s event for %q", eventType, reference)
	return telemetry.Event{}
}

func testTelemetry(t *testing.T) (*telemetry.Telemetry, *eventCollector) {
	t.Helper()
	cfg := telemetry.DefaultConfig()
	cfg.Logging.Level = "error"
	cfg.Logging.Format = "json"
	cfg.Logging.Output = "stderr"
	cfg.Tracing.Enabled = false
	cfg.Metrics.Enabled = false
	cfg.Events.EnableAsync = false
	cfg.Events.FlushInterval = 0

	tel, err := telemetry.NewTelemetry(cfg)
	if err != nil {
		t.Fatalf("Expected telemetry to initialize, got: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = tel.Shutdown(ctx)
	})

	collector := &eventCollector{}
	tel.Events.Subscribe(collector.record, nil)
	return tel, collector
}

func TestDriver_TelemetryPublishesConstructLifecycle(t *testing.T) {
	addon := newTestAddon()
	runtime := testRuntime(t, addon)
	flow := buildTestFlow(t, runtime,
		varDecl("payload", strLit("hello")),
		actionDecl("relay", "test::echo", attr("value", ref("variable", "payload"))),
		outputDecl("echoed", ref("action", "relay", "value")),
	)

	tel, collector := testTelemetry(t)
	driver := NewDriver(runtime, flow, testLogger(t), WithTelemetry(tel, "run-1"))
	if diag := driver.RunUnsupervised(context.Background()); diag != nil {
		t.Fatalf("Expected run to succeed, got: %v", diag)
	}

	relay := constructByName(t, flow, "relay")
	started := collector.waitFor(t, telemetry.EventTypeConstructStarted, relay.Reference())
	if started.RunID != "run-1" {
		t.Errorf("Expected run ID run-1 on the started event, got %q", started.RunID)
	}
	if started.ConstructDid != relay.Did.String() {
		t.Errorf("Expected construct did %s, got %s", relay.Did, started.ConstructDid)
	}

	completed := collector.waitFor(t, telemetry.EventTypeConstructCompleted, relay.Reference())
	if completed.RunID != "run-1" {
		t.Errorf("Expected run ID run-1 on the completed event, got %q", completed.RunID)
	}

	// Every construct in the flow reports completion.
	for _, name := range []string{"payload", "echoed"} {
		c := constructByName(t, flow, name)
		collector.waitFor(t, telemetry.EventTypeConstructCompleted, c.Reference())
	}
}

func TestDriver_TelemetryPublishesConstructFailure(t *testing.T) {
	addon := newTestAddon()
	runtime := testRuntime(t, addon)
	flow := buildTestFlow(t, runtime,
		actionDecl("broken", "test::boom"),
	)

	tel, collector := testTelemetry(t)
	driver := NewDriver(runtime, flow, testLogger(t), WithTelemetry(tel, "run-2"))
	if diag := driver.RunUnsupervised(context.Background()); diag == nil {
		t.Fatal("Expected run to report failures")
	}

	broken := constructByName(t, flow, "broken")
	failed := collector.waitFor(t, telemetry.EventTypeConstructFailed, broken.Reference())
	if failed.RunID != "run-2" {
		t.Errorf("Expected run ID run-2 on the failed event, got %q", failed.RunID)
	}
	if reason, _ := failed.Data["reason"].(string); reason == "" {
		t.Error("Expected the failed event to carry the failure reason")
	}
}

func TestDriver_TelemetryPublishesActionItemEvents(t *testing.T) {
	addon := newTestAddon()
	runtime := testRuntime(t, addon)
	flow := buildTestFlow(t, runtime,
		actionDecl("review", "test::gated", attr("value", intLit(5))),
	)

	tel, collector := testTelemetry(t)
	events := make(chan types.BlockEvent, 64)
	driver := NewDriver(runtime, flow, testLogger(t),
		WithEvents(events), WithTelemetry(tel, "run-3"))

	driver.RunPass(context.Background())
	review := constructByName(t, flow, "review")
	items := flow.Execution.PendingItems(review.Did)
	if len(items) != 1 {
		t.Fatalf("Expected 1 pending item, got %d", len(items))
	}

	emitted := collector.waitFor(t, telemetry.EventTypeActionItemEmitted, "")
	if emitted.ConstructDid != review.Did.String() {
		t.Errorf("Expected the emitted event on review, got construct %s", emitted.ConstructDid)
	}
	if itemType, _ := emitted.Data["item_type"].(string); itemType != string(types.ActionItemReviewInput) {
		t.Errorf("Expected item type %s, got %q", types.ActionItemReviewInput, itemType)
	}

	diag := driver.ApplyResponse(types.ActionItemResponse{
		ActionItemId: items[0].Id,
		Payload:      types.ReviewedInputResponse{InputName: "value", Approved: true},
	})
	if diag != nil {
		t.Fatalf("Expected response to apply, got: %v", diag)
	}

	resolved := collector.waitFor(t, telemetry.EventTypeActionItemResolved, "")
	if status, _ := resolved.Data["status"].(string); status != "approved" {
		t.Errorf("Expected resolved status approved, got %q", status)
	}
}
