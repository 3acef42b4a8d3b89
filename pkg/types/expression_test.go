package types

import (
	"testing"
)

func varExpr(name string) *VariableExpr {
	return &VariableExpr{Name: name}
}

func traversal(root string, attrs ...string) *TraversalExpr {
	steps := make([]TraversalStep, len(attrs))
	for i, a := range attrs {
		steps[i] = TraversalStep{Attr: a}
	}
	return &TraversalExpr{Root: varExpr(root), Steps: steps}
}

func refStrings(refs []Reference) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.String()
	}
	return out
}

func assertRefs(t *testing.T, expr Expression, want ...string) {
	t.Helper()
	got := refStrings(CollectReferences(expr))
	if len(got) != len(want) {
		t.Fatalf("Expected %d references %v, got %d: %v", len(want), want, len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("reference %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestCollectReferences_LiteralHasNone(t *testing.T) {
	assertRefs(t, &LiteralExpr{Value: IntValue(42)})
}

func TestCollectReferences_BareVariable(t *testing.T) {
	assertRefs(t, varExpr("amount"), "amount")
}

func TestCollectReferences_Traversal(t *testing.T) {
	assertRefs(t, traversal("action", "send", "tx_hash"), "action.send.tx_hash")
}

func TestCollectReferences_TraversalWithIndex(t *testing.T) {
	expr := &TraversalExpr{
		Root: varExpr("action"),
		Steps: []TraversalStep{
			{Attr: "batch"},
			{Index: 2, IsIndex: true},
			{Attr: "hash"},
		},
	}
	assertRefs(t, expr, "action.batch.2.hash")
}

func TestCollectReferences_BinaryAndUnary(t *testing.T) {
	expr := &BinaryExpr{
		Op:    OpMul,
		Left:  varExpr("amount"),
		Right: &UnaryExpr{Op: OpNeg, Operand: varExpr("factor")},
	}
	assertRefs(t, expr, "amount", "factor")
}

func TestCollectReferences_ConditionalVisitsAllBranches(t *testing.T) {
	expr := &ConditionalExpr{
		Condition: varExpr("use_mainnet"),
		TrueExpr:  traversal("variable", "mainnet_rpc"),
		FalseExpr: traversal("variable", "testnet_rpc"),
	}
	assertRefs(t, expr, "use_mainnet", "variable.mainnet_rpc", "variable.testnet_rpc")
}

func TestCollectReferences_ArrayAndObject(t *testing.T) {
	expr := &ObjectExpr{
		Entries: []ObjectEntry{
			{
				Key:   &LiteralExpr{Value: StringValue("to")},
				Value: traversal("signer", "alice", "address"),
			},
			{
				Key:   varExpr("dynamic_key"),
				Value: &ArrayExpr{Elems: []Expression{varExpr("amount"), &LiteralExpr{Value: IntValue(0)}}},
			},
		},
	}
	assertRefs(t, expr, "signer.alice.address", "dynamic_key", "amount")
}

func TestCollectReferences_FunctionArgs(t *testing.T) {
	expr := &FunctionCallExpr{
		Namespace: "evm",
		Name:      "address",
		Args:      []Expression{varExpr("raw_addr"), &LiteralExpr{Value: BoolValue(true)}},
	}
	assertRefs(t, expr, "raw_addr")
}

func TestCollectReferences_TemplateInterpolations(t *testing.T) {
	expr := &TemplateExpr{
		Parts: []TemplatePart{
			{Literal: "tx "},
			{Interp: traversal("action", "send", "tx_hash")},
			{Literal: " confirmed"},
		},
	}
	assertRefs(t, expr, "action.send.tx_hash")
}

func TestCollectReferences_ForExpression(t *testing.T) {
	expr := &ForExpr{
		ValueVar:   "item",
		Collection: varExpr("recipients"),
		ValueExpr:  &TraversalExpr{Root: varExpr("item"), Steps: []TraversalStep{{Attr: "address"}}},
		Condition:  varExpr("filter_enabled"),
	}
	assertRefs(t, expr, "recipients", "item.address", "filter_enabled")
}

func TestCollectReferences_ParensRecurse(t *testing.T) {
	assertRefs(t, &ParenExpr{Inner: varExpr("amount")}, "amount")
}

func TestCollectReferences_NonVariableTraversalRootRecurses(t *testing.T) {
	expr := &TraversalExpr{
		Root:  &ParenExpr{Inner: varExpr("obj")},
		Steps: []TraversalStep{{Attr: "field"}},
	}
	assertRefs(t, expr, "obj")
}
