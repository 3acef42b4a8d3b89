package stores

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/txforge/txforge/pkg/engine"
	"github.com/txforge/txforge/pkg/telemetry"
	"github.com/txforge/txforge/pkg/types"
)

// Recorder persists run history: run records, per-construct snapshots,
// action item decisions, and the cached construct state used to skip
// unchanged constructs on later runs.
type Recorder struct {
	store  Store
	logger *telemetry.Logger
}

// NewRecorder creates a recorder backed by the given store
func NewRecorder(store Store, logger *telemetry.Logger) *Recorder {
	return &Recorder{
		store:  store,
		logger: logger.NewComponentLogger("recorder"),
	}
}

// StartRun records the beginning of a run
func (r *Recorder) StartRun(ctx context.Context, runID, runbook, flow, environment string, supervised bool) error {
	now := time.Now()
	run := &Run{
		ID:          runID,
		Runbook:     runbook,
		Flow:        flow,
		Environment: environment,
		Supervised:  supervised,
		Status:      RunStatusRunning,
		StartedAt:   now,
		Metadata:    "{}",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := r.store.CreateRun(ctx, run); err != nil {
		return fmt.Errorf("failed to record run start: %w", err)
	}

	entry := &AuditEntry{
		Action:    "run.created",
		Actor:     "system",
		TargetID:  &runID,
		Timestamp: now,
	}
	if err := r.store.CreateAuditEntry(ctx, entry); err != nil {
		r.logger.WithError(err).Warn("failed to audit run start")
	}
	return nil
}

// FinishRun records the terminal status of a run
func (r *Recorder) FinishRun(ctx context.Context, runID string, status RunStatus, errMsg *string) error {
	if err := r.store.UpdateRunStatus(ctx, runID, status, errMsg); err != nil {
		return fmt.Errorf("failed to record run finish: %w", err)
	}
	return nil
}

// SnapshotFlow persists the state of every construct in a completed or
// suspended flow. Successful constructs also refresh the cached construct
// state keyed by flow and reference.
func (r *Recorder) SnapshotFlow(ctx context.Context, runID string, flow *engine.FlowContext) error {
	now := time.Now()
	for _, did := range flow.Execution.Order() {
		construct, ok := flow.Workspace.Construct(did)
		if !ok || (construct.Command == nil && construct.Signer == nil) {
			continue
		}

		state := flow.Execution.State(did)
		snapshot := &ConstructSnapshot{
			ID:            uuid.New().String(),
			RunID:         runID,
			ConstructDid:  did.Did.String(),
			ConstructType: string(construct.Id.ConstructType),
			Reference:     construct.Reference(),
			State:         string(state),
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		if fp, ok := flow.Execution.InputsFingerprint(did); ok {
			s := fp.String()
			snapshot.InputsFingerprint = &s
		}
		if inputs, ok := flow.Execution.EvaluatedInputs(did); ok {
			blob, err := valueStoreJSON(inputs)
			if err != nil {
				return fmt.Errorf("failed to encode inputs for %s: %w", construct.Reference(), err)
			}
			snapshot.Inputs = blob
		}
		if outputs, ok := flow.Execution.Result(did); ok {
			blob, err := valueStoreJSON(outputs)
			if err != nil {
				return fmt.Errorf("failed to encode outputs for %s: %w", construct.Reference(), err)
			}
			snapshot.Outputs = blob
		}
		if diags := flow.Execution.Diagnostics(did); len(diags) > 0 {
			blob, err := json.Marshal(diags)
			if err != nil {
				return fmt.Errorf("failed to encode diagnostics for %s: %w", construct.Reference(), err)
			}
			s := string(blob)
			snapshot.Diagnostics = &s
			msg := diags[0].Message
			snapshot.Error = &msg
		}

		if err := r.store.CreateConstructSnapshot(ctx, snapshot); err != nil {
			return err
		}

		if state == types.StateSuccess && snapshot.Outputs != nil && snapshot.InputsFingerprint != nil {
			cached := &ConstructState{
				ID:           uuid.New().String(),
				Flow:         flow.Name,
				Reference:    construct.Reference(),
				Outputs:      *snapshot.Outputs,
				Fingerprint:  *snapshot.InputsFingerprint,
				LastRunID:    runID,
				LastExecuted: now,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := r.store.UpsertConstructState(ctx, cached); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordActionItem persists an emitted action item as pending
func (r *Recorder) RecordActionItem(ctx context.Context, runID string, item *types.ActionItemRequest) error {
	now := time.Now()
	record := &ActionItem{
		ID:           item.Id.String(),
		RunID:        runID,
		ConstructDid: item.ConstructDid.Did.String(),
		Type:         string(item.Type),
		Title:        item.Title,
		Description:  item.Description,
		Status:       ActionItemStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if item.Payload != nil {
		blob, err := valueStoreJSON(item.Payload)
		if err != nil {
			return fmt.Errorf("failed to encode action item payload: %w", err)
		}
		record.Payload = blob
	}
	if err := r.store.CreateActionItem(ctx, record); err != nil {
		return err
	}
	return nil
}

// RecordDecision persists an operator response and writes the audit trail
func (r *Recorder) RecordDecision(ctx context.Context, itemID, actor string, approved bool, response *string) error {
	status := ActionItemStatusApproved
	action := "action_item.approved"
	if !approved {
		status = ActionItemStatusRejected
		action = "action_item.rejected"
	}
	if err := r.store.ResolveActionItem(ctx, itemID, status, response); err != nil {
		return err
	}

	entry := &AuditEntry{
		Action:    action,
		Actor:     actor,
		TargetID:  &itemID,
		Details:   response,
		Timestamp: time.Now(),
	}
	if err := r.store.CreateAuditEntry(ctx, entry); err != nil {
		r.logger.WithError(err).Warn("failed to audit action item decision")
	}
	return nil
}

// RecordDiagnostic appends a run-scoped error event
func (r *Recorder) RecordDiagnostic(ctx context.Context, runID string, diag *types.Diagnostic) error {
	event := &Event{
		RunID:     &runID,
		Level:     EventLevelError,
		Message:   diag.Message,
		Timestamp: time.Now(),
	}
	if diag.ConstructDid != nil {
		s := diag.ConstructDid.Did.String()
		event.ConstructDid = &s
	}
	if diag.Code != "" {
		blob, err := json.Marshal(map[string]string{"code": diag.Code})
		if err == nil {
			s := string(blob)
			event.Details = &s
		}
	}
	return r.store.AppendEvent(ctx, event)
}

// CachedFingerprints loads the previously recorded inputs fingerprints for
// a flow, keyed by construct reference.
func (r *Recorder) CachedFingerprints(ctx context.Context, flow string) (map[string]string, error) {
	states, err := r.store.ListConstructStates(ctx, flow, 10000, 0)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(states))
	for _, s := range states {
		out[s.Reference] = s.Fingerprint
	}
	return out, nil
}

func valueStoreJSON(vs *types.ValueStore) (*string, error) {
	blob, err := json.Marshal(vs.ToObject().ToJSON())
	if err != nil {
		return nil, err
	}
	s := string(blob)
	return &s, nil
}
