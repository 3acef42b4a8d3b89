package engine

import (
	"context"
	"testing"

	"github.com/txforge/txforge/pkg/telemetry"
	"github.com/txforge/txforge/pkg/types"
)

func testLogger(t *testing.T) *telemetry.Logger {
	t.Helper()
	logger, err := telemetry.NewLogger(telemetry.LoggingConfig{
		Level:  "error",
		Format: "json",
		Output: "stderr",
	})
	if err != nil {
		t.Fatalf("Expected logger, got error: %v", err)
	}
	return logger
}

func testRunbookId() types.RunbookId {
	return types.RunbookId{Org: "acme", Workspace: "treasury", Name: "transfer"}
}

func testPackageId() types.PackageId {
	return types.PackageId{RunbookId: testRunbookId(), Location: "runbooks", Name: "main"}
}

func lit(v types.Value) types.Expression {
	return &types.LiteralExpr{Value: v}
}

func intLit(i int64) types.Expression {
	return lit(types.IntValue(i))
}

func strLit(s string) types.Expression {
	return lit(types.StringValue(s))
}

// ref builds a traversal expression like variable.amount or
// action.send.tx_hash.
func ref(root string, attrs ...string) types.Expression {
	steps := make([]types.TraversalStep, len(attrs))
	for i, a := range attrs {
		steps[i] = types.TraversalStep{Attr: a}
	}
	return &types.TraversalExpr{Root: &types.VariableExpr{Name: root}, Steps: steps}
}

func attr(name string, expr types.Expression) AttributeDeclaration {
	return AttributeDeclaration{Name: name, Expr: expr}
}

func varDecl(name string, expr types.Expression) ConstructDeclaration {
	return ConstructDeclaration{
		Package:    testPackageId(),
		Location:   "main.tx",
		Type:       types.ConstructTypeVariable,
		Name:       name,
		Attributes: []AttributeDeclaration{attr("value", expr)},
	}
}

func outputDecl(name string, expr types.Expression) ConstructDeclaration {
	return ConstructDeclaration{
		Package:    testPackageId(),
		Location:   "main.tx",
		Type:       types.ConstructTypeOutput,
		Name:       name,
		Attributes: []AttributeDeclaration{attr("value", expr)},
	}
}

func actionDecl(name, matcher string, attrs ...AttributeDeclaration) ConstructDeclaration {
	return ConstructDeclaration{
		Package:    testPackageId(),
		Location:   "main.tx",
		Type:       types.ConstructTypeAction,
		Name:       name,
		Matcher:    matcher,
		Attributes: attrs,
	}
}

func signerDecl(name, matcher string, attrs ...AttributeDeclaration) ConstructDeclaration {
	return ConstructDeclaration{
		Package:    testPackageId(),
		Location:   "main.tx",
		Type:       types.ConstructTypeSigner,
		Name:       name,
		Matcher:    matcher,
		Attributes: attrs,
	}
}

// testAddon is an addon with commands covering the execution paths the
// driver exercises: pass-through, failure, operator gating, and
// background work.
type testAddon struct {
	// executions counts RunExecution calls per construct.
	executions map[types.ConstructDid]int

	// checks counts CheckExecutability calls per construct.
	checks map[types.ConstructDid]int
}

func newTestAddon() *testAddon {
	return &testAddon{
		executions: make(map[types.ConstructDid]int),
		checks:     make(map[types.ConstructDid]int),
	}
}

func (a *testAddon) Namespace() string     { return "test" }
func (a *testAddon) Documentation() string { return "Commands for driver tests." }

func (a *testAddon) Signers() []*types.SignerSpecification {
	softkey := &types.SignerSpecification{
		Name:          "softkey",
		Documentation: "Activates once the operator provides a public key.",
		Inputs:        []types.CommandInput{{Name: "label", Typ: types.StringType(), Optional: true}},
		Outputs:       []types.CommandOutput{{Name: "public_key", Typ: types.BufferType()}},
		CheckActivability: func(_ context.Context, did types.ConstructDid, name string, _ *types.ValueStore) (*types.ExecutabilityCheck, *types.Diagnostic) {
			a.checks[did]++
			item := &types.ActionItemRequest{
				ConstructDid: did,
				Title:        "Provide public key for " + name,
				Type:         types.ActionItemProvidePublicKey,
				Status:       types.ActionItemTodo,
				InternalKey:  name,
			}
			item.Id = item.ComputeId()
			return &types.ExecutabilityCheck{ActionItems: []*types.ActionItemRequest{item}}, nil
		},
		Activate: func(_ context.Context, did types.ConstructDid, inputs *types.ValueStore) (*types.CommandExecutionResult, *types.Diagnostic) {
			a.executions[did]++
			outputs := types.NewValueStore("softkey")
			if key, ok := inputs.Get("public_key"); ok {
				outputs.Insert("public_key", key)
			}
			return &types.CommandExecutionResult{Outputs: outputs}, nil
		},
		Sign: func(_ context.Context, _ types.ConstructDid, payload types.Value, _ *types.ValueStore) (types.Value, *types.Diagnostic) {
			return payload, nil
		},
	}
	return []*types.SignerSpecification{softkey}
}

func (a *testAddon) Functions() []*types.FunctionSpecification { return nil }

func (a *testAddon) Actions() []*types.CommandSpecification {
	echo := &types.CommandSpecification{
		Name:          "echo",
		Documentation: "Returns its inputs unchanged.",
		Inputs:        []types.CommandInput{{Name: "value", Typ: types.AnyType()}},
		Outputs:       []types.CommandOutput{{Name: "value", Typ: types.AnyType()}},
		RunExecution: func(_ context.Context, did types.ConstructDid, inputs *types.ValueStore) (*types.CommandExecutionResult, *types.Diagnostic) {
			a.executions[did]++
			outputs := types.NewValueStore("echo")
			inputs.Iter(func(key string, value types.Value) bool {
				outputs.Insert(key, value)
				return true
			})
			return &types.CommandExecutionResult{Outputs: outputs}, nil
		},
	}

	boom := &types.CommandSpecification{
		Name:          "boom",
		Documentation: "Always fails.",
		Inputs:        []types.CommandInput{{Name: "value", Typ: types.AnyType(), Optional: true}},
		RunExecution: func(_ context.Context, did types.ConstructDid, _ *types.ValueStore) (*types.CommandExecutionResult, *types.Diagnostic) {
			a.executions[did]++
			return nil, types.ErrorDiag("boom").WithCode(types.DiagCodeExecutionFailed)
		},
	}

	gated := &types.CommandSpecification{
		Name:          "gated",
		Documentation: "Requires operator review before executing.",
		Inputs:        []types.CommandInput{{Name: "value", Typ: types.AnyType()}},
		Outputs:       []types.CommandOutput{{Name: "value", Typ: types.AnyType()}},
		CheckExecutability: func(_ context.Context, did types.ConstructDid, name string, inputs *types.ValueStore) (*types.ExecutabilityCheck, *types.Diagnostic) {
			a.checks[did]++
			item := &types.ActionItemRequest{
				ConstructDid: did,
				Title:        "Review " + name,
				Type:         types.ActionItemReviewInput,
				Status:       types.ActionItemTodo,
				Payload:      inputs,
			}
			item.Id = item.ComputeId()
			return &types.ExecutabilityCheck{ActionItems: []*types.ActionItemRequest{item}}, nil
		},
		RunExecution: func(_ context.Context, did types.ConstructDid, inputs *types.ValueStore) (*types.CommandExecutionResult, *types.Diagnostic) {
			a.executions[did]++
			outputs := types.NewValueStore("gated")
			inputs.Iter(func(key string, value types.Value) bool {
				outputs.Insert(key, value)
				return true
			})
			return &types.CommandExecutionResult{Outputs: outputs}, nil
		},
	}

	deferred := &types.CommandSpecification{
		Name:                     "deferred",
		Documentation:            "Completes through a background task.",
		Inputs:                   []types.CommandInput{{Name: "value", Typ: types.AnyType()}},
		Outputs:                  []types.CommandOutput{{Name: "confirmed", Typ: types.BoolType()}},
		ImplementsBackgroundTask: true,
		RunExecution: func(_ context.Context, did types.ConstructDid, inputs *types.ValueStore) (*types.CommandExecutionResult, *types.Diagnostic) {
			a.executions[did]++
			outputs := types.NewValueStore("deferred")
			if v, ok := inputs.Get("value"); ok {
				outputs.Insert("value", v)
			}
			return &types.CommandExecutionResult{Outputs: outputs}, nil
		},
		BuildBackgroundTask: func(ctx context.Context, did types.ConstructDid, _ *types.ValueStore, _ *types.ValueStore) (*types.BackgroundTaskHandle, *types.Diagnostic) {
			result := make(chan types.BackgroundTaskResult, 1)
			outputs := types.NewValueStore("deferred")
			outputs.Insert("confirmed", types.BoolValue(true))
			result <- types.BackgroundTaskResult{Outputs: outputs}
			return &types.BackgroundTaskHandle{ConstructDid: did, Result: result}, nil
		},
	}

	return []*types.CommandSpecification{echo, boom, gated, deferred}
}

func testRuntime(t *testing.T, addon types.Addon) *RuntimeContext {
	t.Helper()
	runtime := NewRuntimeContext()
	if addon != nil {
		if diag := runtime.RegisterAddon(addon); diag != nil {
			t.Fatalf("Expected addon registration to succeed, got: %v", diag)
		}
	}
	return runtime
}

// buildTestFlow assembles a runbook from declarations and returns its
// single flow context.
func buildTestFlow(t *testing.T, runtime *RuntimeContext, decls ...ConstructDeclaration) *FlowContext {
	t.Helper()
	rb := NewRunbook(testRunbookId(), runtime)
	for _, decl := range decls {
		rb.AddConstruct(decl)
	}
	flows, diags := rb.BuildFlowContexts()
	if len(diags) > 0 {
		t.Fatalf("Expected flow to build, got diagnostics: %v", diags[0])
	}
	if len(flows) != 1 {
		t.Fatalf("Expected 1 flow, got %d", len(flows))
	}
	return flows[0]
}

func constructByName(t *testing.T, flow *FlowContext, name string) *Construct {
	t.Helper()
	for _, c := range flow.Workspace.Constructs() {
		if c.Id.ConstructName == name {
			return c
		}
	}
	t.Fatalf("Expected construct %q in workspace", name)
	return nil
}
