package engine

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/txforge/txforge/pkg/telemetry"
	"github.com/txforge/txforge/pkg/types"
)

// Driver walks a flow's scheduling order, evaluating inputs and executing
// constructs. In unsupervised mode it runs to completion or failure; in
// supervised mode it suspends on action items and resumes as operator
// responses arrive.
type Driver struct {
	runtime   *RuntimeContext
	flow      *FlowContext
	logger    *telemetry.Logger
	metrics   *telemetry.Metrics
	tracer    *telemetry.Tracer
	publisher *telemetry.EventPublisher
	runID     string

	// events receives frontend events in supervised mode; nil otherwise.
	events chan<- types.BlockEvent

	supervised bool
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithEvents attaches a frontend event channel and enables supervised
// mode.
func WithEvents(events chan<- types.BlockEvent) DriverOption {
	return func(d *Driver) {
		d.events = events
		d.supervised = true
	}
}

// WithMetrics attaches a metrics registry.
func WithMetrics(m *telemetry.Metrics) DriverOption {
	return func(d *Driver) {
		d.metrics = m
	}
}

// WithTelemetry attaches the full telemetry surface: metrics, pass and
// construct spans, and published lifecycle events tagged with runID.
func WithTelemetry(tel *telemetry.Telemetry, runID string) DriverOption {
	return func(d *Driver) {
		d.metrics = tel.Metrics
		d.tracer = tel.Tracer
		d.publisher = tel.Events
		d.runID = runID
	}
}

// NewDriver creates a driver for one flow.
func NewDriver(runtime *RuntimeContext, flow *FlowContext, logger *telemetry.Logger, opts ...DriverOption) *Driver {
	d := &Driver{
		runtime: runtime,
		flow:    flow,
		logger:  logger.NewComponentLogger("driver").WithFlow(flow.Name),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// PassResult summarizes one evaluation pass over the scheduling order.
type PassResult struct {
	// Executed counts constructs that reached a terminal state this pass.
	Executed int

	// Suspended counts constructs now awaiting action items.
	Suspended int

	// BackgroundPending counts constructs with in-flight background
	// tasks.
	BackgroundPending int

	// Remaining counts constructs not yet terminal.
	Remaining int
}

// Done reports whether the flow needs no further passes.
func (r PassResult) Done() bool {
	return r.Remaining == 0 && r.BackgroundPending == 0
}

// Blocked reports whether progress requires external input: operator
// responses or background task completions.
func (r PassResult) Blocked() bool {
	return r.Executed == 0 && (r.Suspended > 0 || r.BackgroundPending > 0)
}

// RunPass performs one pass over the scheduling order, driving every
// construct as far as it can go without external input.
func (d *Driver) RunPass(ctx context.Context) PassResult {
	var result PassResult
	exec := d.flow.Execution

	var span trace.Span
	if d.tracer != nil {
		ctx, span = d.tracer.StartSpan(ctx, "driver.pass",
			telemetry.AttrFlowName.String(d.flow.Name),
			telemetry.AttrRunID.String(d.runID),
		)
		defer func() {
			telemetry.SetAttributes(span,
				attribute.Int("pass.executed", result.Executed),
				attribute.Int("pass.suspended", result.Suspended),
				attribute.Int("pass.remaining", result.Remaining),
			)
			telemetry.RecordSuccess(span)
			span.End()
		}()
	}

	for _, did := range exec.Order() {
		if err := ctx.Err(); err != nil {
			break
		}
		switch exec.State(did) {
		case types.StateSuccess, types.StateFailed, types.StateDependencyFailed:
			continue
		case types.StateAwaitingActionItem:
			result.Suspended++
			continue
		case types.StateBackgroundTaskPending:
			result.BackgroundPending++
			continue
		}

		progressed := d.driveConstruct(ctx, did)
		switch exec.State(did) {
		case types.StateSuccess, types.StateFailed, types.StateDependencyFailed:
			if progressed {
				result.Executed++
			}
		case types.StateAwaitingActionItem:
			result.Suspended++
		case types.StateBackgroundTaskPending:
			result.BackgroundPending++
		}
	}

	for _, did := range exec.Order() {
		if !exec.State(did).IsTerminal() {
			result.Remaining++
		}
	}
	return result
}

// driveConstruct advances one construct as far as possible. Returns true
// when the construct changed state.
func (d *Driver) driveConstruct(ctx context.Context, did types.ConstructDid) bool {
	exec := d.flow.Execution
	construct, ok := d.flow.Workspace.Construct(did)
	if !ok {
		return false
	}
	// Synthetic constructs (seeded inputs) carry results but nothing to
	// execute.
	if construct.Command == nil && construct.Signer == nil {
		return false
	}
	logger := d.logger.WithConstruct(construct.Reference())

	// A failed dependency taints this construct and its whole downstream
	// closure without re-deriving the cause.
	for _, dep := range d.flow.Graph.Dependencies(did) {
		if exec.State(dep).IsFailure() {
			d.taintDownstream(did, dep)
			return true
		}
	}

	if exec.State(did) == types.StateUnevaluated {
		inputs, res := d.evaluateInputs(construct)
		switch res.Status {
		case types.EvalDependencyNotComputed:
			// A dependency is suspended or pending; retry next pass.
			logger.Debugf("inputs blocked on %s", res.MissingDependency)
			return false
		case types.EvalCompleteErr:
			exec.AppendDiagnostic(did, res.Diag)
			d.fail(did, construct)
			return true
		}
		exec.SetEvaluatedInputs(did, inputs)
		if diag := exec.Transition(did, types.StateInputsEvaluated); diag != nil {
			exec.AppendDiagnostic(did, diag)
			d.fail(did, construct)
			return true
		}
		d.emitProgress(did, types.StateInputsEvaluated, "")
	}

	if exec.State(did) == types.StateInputsEvaluated {
		if d.supervised && !exec.ItemsResolved(did) {
			items, diag := d.checkExecutability(ctx, construct)
			if diag != nil {
				exec.AppendDiagnostic(did, diag)
				d.fail(did, construct)
				return true
			}
			if len(items) > 0 {
				exec.AddPendingItems(did, items)
				if diag := exec.Transition(did, types.StateAwaitingActionItem); diag != nil {
					exec.AppendDiagnostic(did, diag)
					d.fail(did, construct)
					return true
				}
				for _, item := range items {
					if d.metrics != nil {
						d.metrics.RecordActionItemEmitted(string(item.Type))
					}
					if d.publisher != nil {
						_ = d.publisher.PublishActionItemEmitted(d.runID, did.Did.String(), string(item.Type), item.Title)
					}
				}
				logger.Infof("awaiting %d action item(s)", len(items))
				d.emitProgress(did, types.StateAwaitingActionItem, "")
				return true
			}
		}
		return d.execute(ctx, construct)
	}

	return false
}

// execute runs the construct's execution callback and, for background
// commands, spawns the background task.
func (d *Driver) execute(ctx context.Context, construct *Construct) bool {
	exec := d.flow.Execution
	did := construct.Did
	logger := d.logger.WithConstruct(construct.Reference())

	var span trace.Span
	if d.tracer != nil {
		ctx, span = d.tracer.StartConstructSpan(ctx,
			did.Did.String(), construct.Id.ConstructType, construct.Reference())
	}
	timer := telemetry.NewTimer()
	var spanDiag *types.Diagnostic
	defer func() { d.endConstructSpan(span, construct, timer, spanDiag) }()
	d.publishConstructStarted(construct)

	if diag := exec.Transition(did, types.StateExecuting); diag != nil {
		spanDiag = diag
		exec.AppendDiagnostic(did, diag)
		d.fail(did, construct)
		return true
	}
	d.emitProgress(did, types.StateExecuting, "")

	inputs, _ := exec.EvaluatedInputs(did)
	outputs, diag := d.runExecution(ctx, construct, inputs)
	if diag != nil {
		spanDiag = diag
		exec.AppendDiagnostic(did, diag)
		d.fail(did, construct)
		return true
	}
	exec.SetResult(did, outputs)

	if construct.Command != nil && construct.Command.Specification.ImplementsBackgroundTask {
		spec := construct.Command.Specification
		if spec.BuildBackgroundTask != nil {
			handle, diag := spec.BuildBackgroundTask(ctx, did, inputs, outputs)
			if diag != nil {
				spanDiag = diag
				exec.AppendDiagnostic(did, diag)
				d.fail(did, construct)
				return true
			}
			exec.SetBackgroundTask(did, handle)
			if diag := exec.Transition(did, types.StateBackgroundTaskPending); diag != nil {
				spanDiag = diag
				exec.AppendDiagnostic(did, diag)
				d.fail(did, construct)
				return true
			}
			logger.Info("background task started")
			d.emitProgress(did, types.StateBackgroundTaskPending, "")
			return true
		}
	}

	if diag := exec.Transition(did, types.StateSuccess); diag != nil {
		spanDiag = diag
		exec.AppendDiagnostic(did, diag)
		d.fail(did, construct)
		return true
	}
	logger.Debug("construct completed")
	d.observeCompletion(construct, true)
	d.emitProgress(did, types.StateSuccess, "")
	return true
}

// endConstructSpan closes the construct's execution span and records its
// duration.
func (d *Driver) endConstructSpan(span trace.Span, construct *Construct, timer *telemetry.Timer, diag *types.Diagnostic) {
	if d.metrics != nil {
		d.metrics.ObserveConstructDuration(construct.Id.ConstructType, timer.Duration())
	}
	if span == nil {
		return
	}
	if diag != nil {
		telemetry.RecordError(span, diag)
	} else {
		telemetry.RecordSuccess(span)
	}
	span.End()
}

func (d *Driver) publishConstructStarted(construct *Construct) {
	if d.publisher == nil {
		return
	}
	_ = d.publisher.PublishConstructStarted(d.runID, construct.Did.Did.String(), construct.Reference())
}

func (d *Driver) runExecution(ctx context.Context, construct *Construct, inputs *types.ValueStore) (*types.ValueStore, *types.Diagnostic) {
	did := construct.Did
	if construct.Signer != nil {
		result, diag := construct.Signer.Specification.Activate(ctx, did, inputs)
		if diag != nil {
			return nil, diag
		}
		return result.Outputs, nil
	}
	result, diag := construct.Command.Specification.RunExecution(ctx, did, inputs)
	if diag != nil {
		return nil, diag
	}
	return result.Outputs, nil
}

// checkExecutability gathers pre-execution action items from the
// construct's specification.
func (d *Driver) checkExecutability(ctx context.Context, construct *Construct) ([]*types.ActionItemRequest, *types.Diagnostic) {
	did := construct.Did
	inputs, _ := d.flow.Execution.EvaluatedInputs(did)

	var check *types.ExecutabilityCheck
	var diag *types.Diagnostic
	switch {
	case construct.Signer != nil && construct.Signer.Specification.CheckActivability != nil:
		check, diag = construct.Signer.Specification.CheckActivability(ctx, did, construct.Signer.Name, inputs)
	case construct.Command != nil && construct.Command.Specification.CheckExecutability != nil:
		check, diag = construct.Command.Specification.CheckExecutability(ctx, did, construct.Command.Name, inputs)
	}
	if diag != nil {
		return nil, diag
	}
	if check == nil {
		return nil, nil
	}
	return check.ActionItems, nil
}

// evaluateInputs resolves every attribute expression of the construct into
// a value store, applying required-input checks and declared-type
// coercion.
func (d *Driver) evaluateInputs(construct *Construct) (*types.ValueStore, types.EvaluationResult) {
	pkgDid := construct.Id.PackageId.ComputeDid()
	evaluator := NewEvaluator(d.flow.Workspace, d.flow.Execution, d.runtime, pkgDid)

	inputs := types.NewValueStore(construct.Id.ConstructName)
	for _, name := range construct.AttributeOrder() {
		res := evaluator.Evaluate(construct.Attributes()[name])
		if !res.Ok() {
			return nil, res
		}
		inputs.Insert(name, res.Value)
	}

	if construct.Command != nil {
		if diag := construct.Command.CheckRequiredInputs(inputs); diag != nil {
			return nil, types.EvalErr(diag)
		}
		coerced, diag := construct.Command.CoerceInputs(inputs)
		if diag != nil {
			return nil, types.EvalErr(diag)
		}
		inputs = coerced
	}
	return inputs, types.EvalOk(types.NullValue())
}

// fail marks the construct failed and taints its downstream closure.
func (d *Driver) fail(did types.ConstructDid, construct *Construct) {
	exec := d.flow.Execution
	exec.states[did] = types.StateFailed
	d.logger.WithConstruct(construct.Reference()).Error("construct failed")
	d.observeCompletion(construct, false)
	d.emitProgress(did, types.StateFailed, "")

	for downstream := range d.flow.Graph.DownstreamClosure(did) {
		if !exec.State(downstream).IsTerminal() {
			exec.states[downstream] = types.StateDependencyFailed
			exec.AppendDiagnostic(downstream, types.ErrorDiagf(
				"not executed: dependency %s failed", construct.Reference()).
				WithCode(types.DiagCodeDependencyFailed))
			d.emitProgress(downstream, types.StateDependencyFailed, construct.Reference())
		}
	}
}

// taintDownstream marks a construct dependency-failed because of cause,
// without attributing a new root error.
func (d *Driver) taintDownstream(did types.ConstructDid, cause types.ConstructDid) {
	exec := d.flow.Execution
	causeRef := cause.Did.String()
	if c, ok := d.flow.Workspace.Construct(cause); ok {
		causeRef = c.Reference()
	}
	exec.states[did] = types.StateDependencyFailed
	exec.AppendDiagnostic(did, types.ErrorDiagf("not executed: dependency %s failed", causeRef).
		WithCode(types.DiagCodeDependencyFailed))
	d.emitProgress(did, types.StateDependencyFailed, causeRef)
}

// CollectBackgroundResults blocks until every in-flight background task
// completes or ctx is cancelled, folding results into execution state.
func (d *Driver) CollectBackgroundResults(ctx context.Context) {
	exec := d.flow.Execution
	for did, handle := range exec.BackgroundTasks() {
		construct, _ := d.flow.Workspace.Construct(did)
		select {
		case res := <-handle.Result:
			exec.ClearBackgroundTask(did)
			if diag := exec.Transition(did, types.StateBackgroundTaskComplete); diag != nil {
				exec.AppendDiagnostic(did, diag)
				d.fail(did, construct)
				continue
			}
			if res.Diag != nil {
				exec.AppendDiagnostic(did, res.Diag)
				d.fail(did, construct)
				continue
			}
			if res.Outputs != nil {
				outputs, _ := exec.Result(did)
				if outputs == nil {
					outputs = types.NewValueStore(construct.Id.ConstructName)
				}
				outputs.Merge(res.Outputs)
				exec.SetResult(did, outputs)
			}
			exec.states[did] = types.StateSuccess
			d.observeCompletion(construct, true)
			d.emitProgress(did, types.StateSuccess, "")

		case <-ctx.Done():
			exec.ClearBackgroundTask(did)
			if handle.Cancel != nil {
				handle.Cancel()
			}
			exec.AppendDiagnostic(did, types.FromError(ctx.Err()).WithCode(types.DiagCodeExecutionFailed))
			d.fail(did, construct)
		}
	}
}

// RunUnsupervised drives the flow to completion without operator
// interaction. Constructs whose specifications demand action items fail,
// since nothing can resolve them.
func (d *Driver) RunUnsupervised(ctx context.Context) *types.Diagnostic {
	d.logger.Infof("starting unsupervised run of %d construct(s)", len(d.flow.Execution.Order()))
	for {
		result := d.RunPass(ctx)
		if result.BackgroundPending > 0 {
			d.CollectBackgroundResults(ctx)
			continue
		}
		if result.Done() {
			break
		}
		if result.Executed == 0 {
			// No progress and nothing in flight: the remaining constructs
			// cannot run.
			return types.ErrorDiag("run stalled: remaining constructs cannot make progress").
				WithCode(types.DiagCodeFatal)
		}
		if err := ctx.Err(); err != nil {
			return types.FromError(err).WithCode(types.DiagCodeExecutionFailed)
		}
	}
	d.logger.Info("run complete")
	if d.flow.Execution.Failed() {
		return types.ErrorDiag("run finished with failures").WithCode(types.DiagCodeExecutionFailed)
	}
	return nil
}

// RunSupervised drives the flow, emitting action panels on the event
// channel and applying operator responses from the responses channel until
// the flow completes or fails.
func (d *Driver) RunSupervised(ctx context.Context, responses <-chan types.ActionItemResponse) *types.Diagnostic {
	if d.events == nil {
		return types.ErrorDiag("supervised run requires an event channel").WithCode(types.DiagCodeFatal)
	}
	d.logger.Infof("starting supervised run of %d construct(s)", len(d.flow.Execution.Order()))

	for {
		result := d.RunPass(ctx)
		if result.BackgroundPending > 0 {
			d.CollectBackgroundResults(ctx)
			continue
		}
		if result.Done() {
			break
		}
		if result.Blocked() {
			d.emitPendingPanel()
			if diag := d.awaitResponse(ctx, responses); diag != nil {
				return diag
			}
			continue
		}
		if result.Executed == 0 {
			return types.ErrorDiag("run stalled: remaining constructs cannot make progress").
				WithCode(types.DiagCodeFatal)
		}
	}

	d.emit(types.NewRunbookCompletedEvent())
	if d.flow.Execution.Failed() {
		return types.ErrorDiag("run finished with failures").WithCode(types.DiagCodeExecutionFailed)
	}
	return nil
}

// awaitResponse blocks for one operator response and applies it.
func (d *Driver) awaitResponse(ctx context.Context, responses <-chan types.ActionItemResponse) *types.Diagnostic {
	select {
	case response, ok := <-responses:
		if !ok {
			return types.ErrorDiag("response channel closed while awaiting action items").
				WithCode(types.DiagCodeFatal)
		}
		return d.ApplyResponse(response)
	case <-ctx.Done():
		return types.FromError(ctx.Err()).WithCode(types.DiagCodeExecutionFailed)
	}
}

// ApplyResponse folds one operator response into execution state. When the
// owning construct has no items left, it becomes executable again on the
// next pass.
func (d *Driver) ApplyResponse(response types.ActionItemResponse) *types.Diagnostic {
	exec := d.flow.Execution
	did, drained, ok := exec.ResolveItem(response.ActionItemId)
	if !ok {
		return types.ErrorDiagf("response targets unknown action item %s", response.ActionItemId).
			WithCode(types.DiagCodeUnknownReference)
	}
	d.observeItemResolved(did, response.Payload)

	switch payload := response.Payload.(type) {
	case types.ReviewedInputResponse:
		if !payload.Approved {
			construct, _ := d.flow.Workspace.Construct(did)
			exec.AppendDiagnostic(did, types.ErrorDiagf("input %q rejected by operator", payload.InputName).
				WithCode(types.DiagCodeExecutionFailed))
			d.fail(did, construct)
			d.emitUpdate(types.NewActionItemStatusUpdate(response.ActionItemId, types.ActionItemError))
			return nil
		}
	case types.ProvidedInputResponse:
		if inputs, ok := exec.EvaluatedInputs(did); ok {
			inputs.Insert(payload.InputName, payload.Value)
			exec.SetEvaluatedInputs(did, inputs)
		}
	case types.PickedInputOptionResponse:
		if inputs, ok := exec.EvaluatedInputs(did); ok {
			inputs.Insert("value", payload.Value)
			exec.SetEvaluatedInputs(did, inputs)
		}
	case types.ProvidedPublicKeyResponse:
		if inputs, ok := exec.EvaluatedInputs(did); ok {
			inputs.Insert("public_key", types.BufferValue(payload.PublicKey))
			exec.SetEvaluatedInputs(did, inputs)
		}
	case types.ProvidedSignedTransactionResponse:
		if payload.Error != "" {
			construct, _ := d.flow.Workspace.Construct(did)
			exec.AppendDiagnostic(did, types.ErrorDiagf("signing failed: %s", payload.Error).
				WithCode(types.DiagCodeExecutionFailed))
			d.fail(did, construct)
			d.emitUpdate(types.NewActionItemStatusUpdate(response.ActionItemId, types.ActionItemError))
			return nil
		}
		if inputs, ok := exec.EvaluatedInputs(did); ok {
			inputs.Insert("signed_payload", types.BufferValue(payload.SignedPayload))
			exec.SetEvaluatedInputs(did, inputs)
		}
	case types.ValidateBlockResponse:
		// The gate itself carries no data; draining it releases the
		// construct.
	default:
		return types.ErrorDiagf("unsupported response payload %T", response.Payload).
			WithCode(types.DiagCodeFatal)
	}

	d.emitUpdate(types.NewActionItemStatusUpdate(response.ActionItemId, types.ActionItemSuccess))

	if drained && exec.State(did) == types.StateAwaitingActionItem {
		// Rewind to inputs-evaluated; the next pass executes with the
		// amended inputs and skips the executability check.
		exec.states[did] = types.StateInputsEvaluated
	}
	return nil
}

// emitPendingPanel groups every pending action item into one panel event.
func (d *Driver) emitPendingPanel() {
	exec := d.flow.Execution
	var groups []*types.ActionGroup
	for _, did := range exec.Order() {
		items := exec.PendingItems(did)
		if len(items) == 0 {
			continue
		}
		title := did.Did.String()
		if c, ok := d.flow.Workspace.Construct(did); ok {
			title = c.Reference()
		}
		groups = append(groups, &types.ActionGroup{Title: title, Items: items})
	}
	if len(groups) == 0 {
		return
	}
	d.emit(types.NewActionPanelEvent(&types.ActionPanel{
		Title:  fmt.Sprintf("%s: pending actions", d.flow.Name),
		Groups: groups,
	}))
}

func (d *Driver) emit(event types.BlockEvent) {
	if d.events != nil {
		d.events <- event
	}
}

func (d *Driver) emitUpdate(update types.ActionItemRequestUpdate) {
	d.emit(types.NewUpdateEvent([]types.ActionItemRequestUpdate{update}))
}

func (d *Driver) emitProgress(did types.ConstructDid, state types.CommandState, message string) {
	d.emit(types.NewProgressEvent(did, state, message))
}

// observeItemResolved records one resolved action item in metrics and the
// event stream, keyed by the item type the response answers.
func (d *Driver) observeItemResolved(did types.ConstructDid, payload types.ActionItemResponseType) {
	itemType, status := resolvedItemOutcome(payload)
	if d.metrics != nil {
		d.metrics.RecordActionItemResolved(itemType, status)
	}
	if d.publisher != nil {
		_ = d.publisher.PublishActionItemResolved(d.runID, did.Did.String(), itemType, status)
	}
}

func resolvedItemOutcome(payload types.ActionItemResponseType) (itemType, status string) {
	switch p := payload.(type) {
	case types.ReviewedInputResponse:
		if !p.Approved {
			return string(types.ActionItemReviewInput), "rejected"
		}
		return string(types.ActionItemReviewInput), "approved"
	case types.ProvidedInputResponse:
		return string(types.ActionItemProvideInput), "provided"
	case types.PickedInputOptionResponse:
		return string(types.ActionItemPickInputOption), "provided"
	case types.ProvidedPublicKeyResponse:
		return string(types.ActionItemProvidePublicKey), "provided"
	case types.ProvidedSignedTransactionResponse:
		if p.Error != "" {
			return string(types.ActionItemProvideSignedTransaction), "rejected"
		}
		return string(types.ActionItemProvideSignedTransaction), "provided"
	case types.ValidateBlockResponse:
		return string(types.ActionItemValidateBlock), "approved"
	default:
		return "unknown", "unknown"
	}
}

func (d *Driver) observeCompletion(construct *Construct, success bool) {
	if construct == nil {
		return
	}
	if d.metrics != nil {
		d.metrics.ObserveConstruct(construct.Id.ConstructType, success)
	}
	if d.publisher == nil {
		return
	}
	did := construct.Did.Did.String()
	ref := construct.Reference()
	if success {
		_ = d.publisher.PublishConstructCompleted(d.runID, did, ref, 0)
		return
	}
	reason := ""
	if diags := d.flow.Execution.Diagnostics(construct.Did); len(diags) > 0 {
		reason = diags[len(diags)-1].Message
	}
	_ = d.publisher.PublishConstructFailed(d.runID, did, ref, reason)
}
