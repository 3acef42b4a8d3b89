package engine

import (
	"github.com/txforge/txforge/pkg/types"
)

// ExecutionContext holds everything a run accumulates: per-construct
// lifecycle states, evaluated inputs, execution results, diagnostics,
// pending action items, and in-flight background tasks. It is the mutable
// third of a flow context; workspace and graph stay immutable during a
// run.
type ExecutionContext struct {
	// order is the scheduling order the driver walks.
	order []types.ConstructDid

	states             map[types.ConstructDid]types.CommandState
	results            map[types.ConstructDid]*types.ValueStore
	diagnostics        map[types.ConstructDid][]*types.Diagnostic
	evaluatedInputs    map[types.ConstructDid]*types.ValueStore
	inputsFingerprints map[types.ConstructDid]types.Did

	// pendingItems tracks unresolved action items per construct.
	pendingItems map[types.ConstructDid][]*types.ActionItemRequest

	// itemsIndex routes responses back to the owning construct.
	itemsIndex map[types.Did]types.ConstructDid

	// itemsResolved marks constructs whose action items were all
	// resolved, so the next pass executes instead of re-gathering them.
	itemsResolved map[types.ConstructDid]bool

	// backgroundTasks holds handles for constructs in
	// background_task_pending state.
	backgroundTasks map[types.ConstructDid]*types.BackgroundTaskHandle
}

// NewExecutionContext creates an execution context over a scheduling
// order. Every construct starts unevaluated.
func NewExecutionContext(order []types.ConstructDid) *ExecutionContext {
	e := &ExecutionContext{
		order:              order,
		states:             make(map[types.ConstructDid]types.CommandState),
		results:            make(map[types.ConstructDid]*types.ValueStore),
		diagnostics:        make(map[types.ConstructDid][]*types.Diagnostic),
		evaluatedInputs:    make(map[types.ConstructDid]*types.ValueStore),
		inputsFingerprints: make(map[types.ConstructDid]types.Did),
		pendingItems:       make(map[types.ConstructDid][]*types.ActionItemRequest),
		itemsIndex:         make(map[types.Did]types.ConstructDid),
		itemsResolved:      make(map[types.ConstructDid]bool),
		backgroundTasks:    make(map[types.ConstructDid]*types.BackgroundTaskHandle),
	}
	for _, did := range order {
		e.states[did] = types.StateUnevaluated
	}
	return e
}

// Order returns the scheduling order.
func (e *ExecutionContext) Order() []types.ConstructDid {
	return e.order
}

// State returns the construct's lifecycle state.
func (e *ExecutionContext) State(did types.ConstructDid) types.CommandState {
	if s, ok := e.states[did]; ok {
		return s
	}
	return types.StateUnevaluated
}

// Transition moves the construct to the next lifecycle state, rejecting
// moves the state machine does not allow.
func (e *ExecutionContext) Transition(did types.ConstructDid, next types.CommandState) *types.Diagnostic {
	current := e.State(did)
	if !current.CanTransition(next) {
		return types.ErrorDiagf("illegal state transition %s -> %s", current, next).
			WithCode(types.DiagCodeFatal).
			WithConstruct(did)
	}
	e.states[did] = next
	return nil
}

// SetEvaluatedInputs records the construct's resolved inputs and their
// fingerprint.
func (e *ExecutionContext) SetEvaluatedInputs(did types.ConstructDid, inputs *types.ValueStore) {
	e.evaluatedInputs[did] = inputs
	e.inputsFingerprints[did] = inputs.Fingerprint()
}

// EvaluatedInputs returns the construct's resolved inputs.
func (e *ExecutionContext) EvaluatedInputs(did types.ConstructDid) (*types.ValueStore, bool) {
	in, ok := e.evaluatedInputs[did]
	return in, ok
}

// InputsFingerprint returns the digest of the construct's resolved inputs
// from the last evaluation, used to decide whether a cached execution
// result is still valid.
func (e *ExecutionContext) InputsFingerprint(did types.ConstructDid) (types.Did, bool) {
	fp, ok := e.inputsFingerprints[did]
	return fp, ok
}

// SetResult records the construct's execution outputs.
func (e *ExecutionContext) SetResult(did types.ConstructDid, outputs *types.ValueStore) {
	e.results[did] = outputs
}

// Result returns the construct's execution outputs.
func (e *ExecutionContext) Result(did types.ConstructDid) (*types.ValueStore, bool) {
	r, ok := e.results[did]
	return r, ok
}

// SeedResult installs an externally supplied result, marking the construct
// successful without executing it. Used to inject top-level input values.
func (e *ExecutionContext) SeedResult(did types.ConstructDid, outputs *types.ValueStore) {
	e.results[did] = outputs
	e.states[did] = types.StateSuccess
}

// AppendDiagnostic attaches a diagnostic to the construct.
func (e *ExecutionContext) AppendDiagnostic(did types.ConstructDid, diag *types.Diagnostic) {
	e.diagnostics[did] = append(e.diagnostics[did], diag.WithConstruct(did))
}

// Diagnostics returns the construct's accumulated diagnostics.
func (e *ExecutionContext) Diagnostics(did types.ConstructDid) []*types.Diagnostic {
	return e.diagnostics[did]
}

// AllDiagnostics returns every diagnostic in scheduling order.
func (e *ExecutionContext) AllDiagnostics() []*types.Diagnostic {
	var out []*types.Diagnostic
	for _, did := range e.order {
		out = append(out, e.diagnostics[did]...)
	}
	return out
}

// AddPendingItems records unresolved action items for a construct and
// indexes them for response routing.
func (e *ExecutionContext) AddPendingItems(did types.ConstructDid, items []*types.ActionItemRequest) {
	for _, item := range items {
		if item.Id.IsZero() {
			item.Id = item.ComputeId()
		}
		e.itemsIndex[item.Id] = did
	}
	e.pendingItems[did] = append(e.pendingItems[did], items...)
}

// PendingItems returns the construct's unresolved action items.
func (e *ExecutionContext) PendingItems(did types.ConstructDid) []*types.ActionItemRequest {
	return e.pendingItems[did]
}

// HasPendingItems reports whether any construct awaits an operator.
func (e *ExecutionContext) HasPendingItems() bool {
	for _, items := range e.pendingItems {
		if len(items) > 0 {
			return true
		}
	}
	return false
}

// ResolveItem marks one action item resolved, returning the owning
// construct and whether that construct has no items left.
func (e *ExecutionContext) ResolveItem(itemId types.Did) (types.ConstructDid, bool, bool) {
	did, ok := e.itemsIndex[itemId]
	if !ok {
		return types.ConstructDid{}, false, false
	}
	items := e.pendingItems[did]
	for i, item := range items {
		if item.Id == itemId {
			e.pendingItems[did] = append(items[:i], items[i+1:]...)
			break
		}
	}
	delete(e.itemsIndex, itemId)
	drained := len(e.pendingItems[did]) == 0
	if drained {
		e.itemsResolved[did] = true
	}
	return did, drained, true
}

// ItemsResolved reports whether the construct's action items were all
// resolved in a previous suspension.
func (e *ExecutionContext) ItemsResolved(did types.ConstructDid) bool {
	return e.itemsResolved[did]
}

// SetBackgroundTask records an in-flight background task handle.
func (e *ExecutionContext) SetBackgroundTask(did types.ConstructDid, handle *types.BackgroundTaskHandle) {
	e.backgroundTasks[did] = handle
}

// BackgroundTasks returns all in-flight background task handles.
func (e *ExecutionContext) BackgroundTasks() map[types.ConstructDid]*types.BackgroundTaskHandle {
	return e.backgroundTasks
}

// ClearBackgroundTask drops a completed task handle.
func (e *ExecutionContext) ClearBackgroundTask(did types.ConstructDid) {
	delete(e.backgroundTasks, did)
}

// Invalidate resets a construct to unevaluated, discarding its inputs,
// results, diagnostics, and pending items. Used when a mutation upstream
// makes its previous outcome stale.
func (e *ExecutionContext) Invalidate(did types.ConstructDid) {
	e.states[did] = types.StateUnevaluated
	delete(e.results, did)
	delete(e.evaluatedInputs, did)
	delete(e.inputsFingerprints, did)
	delete(e.diagnostics, did)
	for _, item := range e.pendingItems[did] {
		delete(e.itemsIndex, item.Id)
	}
	delete(e.pendingItems, did)
	delete(e.itemsResolved, did)
	if handle, ok := e.backgroundTasks[did]; ok {
		if handle.Cancel != nil {
			handle.Cancel()
		}
		delete(e.backgroundTasks, did)
	}
}

// Completed reports whether every construct reached a terminal state.
func (e *ExecutionContext) Completed() bool {
	for _, did := range e.order {
		if !e.State(did).IsTerminal() {
			return false
		}
	}
	return true
}

// Failed reports whether any construct terminated in failure.
func (e *ExecutionContext) Failed() bool {
	for _, did := range e.order {
		if e.State(did).IsFailure() {
			return true
		}
	}
	return false
}
