package stores

import (
	"context"
	"database/sql"
	"time"
)

// RunStatus represents the status of a runbook execution
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// ActionItemStatus represents the status of a supervised action item
type ActionItemStatus string

const (
	ActionItemStatusPending  ActionItemStatus = "pending"
	ActionItemStatusApproved ActionItemStatus = "approved"
	ActionItemStatusRejected ActionItemStatus = "rejected"
)

// EventLevel represents the severity level of an event
type EventLevel string

const (
	EventLevelDebug   EventLevel = "debug"
	EventLevelInfo    EventLevel = "info"
	EventLevelWarning EventLevel = "warning"
	EventLevelError   EventLevel = "error"
)

// Run represents one execution of a runbook flow
type Run struct {
	ID          string     `json:"id"`
	Runbook     string     `json:"runbook"`
	Flow        string     `json:"flow"`
	Environment string     `json:"environment"`
	Supervised  bool       `json:"supervised"`
	Status      RunStatus  `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       *string    `json:"error,omitempty"`
	Metadata    string     `json:"metadata"` // JSON blob
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ConstructSnapshot records the terminal state of one construct within a run
type ConstructSnapshot struct {
	ID                string     `json:"id"`
	RunID             string     `json:"run_id"`
	ConstructDid      string     `json:"construct_did"` // hex-encoded
	ConstructType     string     `json:"construct_type"`
	Reference         string     `json:"reference"` // e.g. "action.send_transfer"
	State             string     `json:"state"`
	InputsFingerprint *string    `json:"inputs_fingerprint,omitempty"`
	Inputs            *string    `json:"inputs,omitempty"`      // JSON blob
	Outputs           *string    `json:"outputs,omitempty"`     // JSON blob
	Diagnostics       *string    `json:"diagnostics,omitempty"` // JSON array
	StartedAt         *time.Time `json:"started_at,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	Error             *string    `json:"error,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Event represents an append-only log event
type Event struct {
	ID           int64      `json:"id"`
	RunID        *string    `json:"run_id,omitempty"`
	ConstructDid *string    `json:"construct_did,omitempty"`
	Level        EventLevel `json:"level"`
	Message      string     `json:"message"`
	Details      *string    `json:"details,omitempty"` // JSON blob
	Timestamp    time.Time  `json:"timestamp"`
}

// ConstructState represents the last known outputs of a construct across
// runs, keyed by flow and reference. The fingerprint lets a later run skip
// re-execution when the evaluated inputs are unchanged.
type ConstructState struct {
	ID           string    `json:"id"`
	Flow         string    `json:"flow"`
	Reference    string    `json:"reference"`
	Outputs      string    `json:"outputs"`     // JSON blob
	Fingerprint  string    `json:"fingerprint"` // hex-encoded inputs fingerprint
	LastRunID    string    `json:"last_run_id"`
	LastExecuted time.Time `json:"last_executed"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ActionItem represents a supervised checkpoint presented to an operator
type ActionItem struct {
	ID           string           `json:"id"` // hex-encoded content id
	RunID        string           `json:"run_id"`
	ConstructDid string           `json:"construct_did"`
	Type         string           `json:"type"` // e.g. "review_input", "provide_signed_transaction"
	Title        string           `json:"title"`
	Description  string           `json:"description"`
	Status       ActionItemStatus `json:"status"`
	Payload      *string          `json:"payload,omitempty"`  // JSON blob
	Response     *string          `json:"response,omitempty"` // JSON blob
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// AuditEntry records an operator decision or lifecycle action
type AuditEntry struct {
	ID        int64     `json:"id"`
	Action    string    `json:"action"` // e.g. "run.created", "action_item.approved"
	Actor     string    `json:"actor"`  // operator or system identifier
	TargetID  *string   `json:"target_id,omitempty"`
	Details   *string   `json:"details,omitempty"` // JSON blob
	Timestamp time.Time `json:"timestamp"`
}

// Store defines the interface for the persistence layer
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Transaction support
	BeginTx(ctx context.Context) (*sql.Tx, error)
	CommitTx(tx *sql.Tx) error
	RollbackTx(tx *sql.Tx) error

	// Run operations
	CreateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	UpdateRunStatus(ctx context.Context, id string, status RunStatus, err *string) error
	ListRuns(ctx context.Context, limit, offset int) ([]*Run, error)
	DeleteRun(ctx context.Context, id string) error

	// ConstructSnapshot operations
	CreateConstructSnapshot(ctx context.Context, snapshot *ConstructSnapshot) error
	GetConstructSnapshot(ctx context.Context, id string) (*ConstructSnapshot, error)
	UpdateConstructSnapshotState(ctx context.Context, id string, state string, outputs *string, err *string) error
	ListConstructSnapshotsByRun(ctx context.Context, runID string) ([]*ConstructSnapshot, error)
	DeleteConstructSnapshot(ctx context.Context, id string) error

	// Event operations
	AppendEvent(ctx context.Context, event *Event) error
	GetEvents(ctx context.Context, runID *string, constructDid *string, level *EventLevel, limit, offset int) ([]*Event, error)

	// ConstructState operations
	UpsertConstructState(ctx context.Context, state *ConstructState) error
	GetConstructState(ctx context.Context, flow, reference string) (*ConstructState, error)
	ListConstructStates(ctx context.Context, flow string, limit, offset int) ([]*ConstructState, error)
	DeleteConstructState(ctx context.Context, id string) error

	// ActionItem operations
	CreateActionItem(ctx context.Context, item *ActionItem) error
	GetActionItem(ctx context.Context, id string) (*ActionItem, error)
	ResolveActionItem(ctx context.Context, id string, status ActionItemStatus, response *string) error
	ListActionItems(ctx context.Context, runID *string, status *ActionItemStatus, limit, offset int) ([]*ActionItem, error)
	DeletePendingActionItems(ctx context.Context, runID string) (int64, error)

	// Audit operations
	CreateAuditEntry(ctx context.Context, entry *AuditEntry) error
	ListAuditEntries(ctx context.Context, action *string, actor *string, limit, offset int) ([]*AuditEntry, error)

	// Utility
	HealthCheck(ctx context.Context) error
}
