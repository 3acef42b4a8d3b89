package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Config holds SQLite store configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	// Set defaults
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 25
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}

	return &SQLiteStore{
		path: cfg.Path,
	}, nil
}

// Init initializes the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	// Open database with SQLite-specific connection parameters
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection and set PRAGMAs
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Ensure foreign keys are enabled (connection-level setting)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	// Create migration source from embedded FS
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	// Create database driver
	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	// Create migration instance
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	// Run migrations
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// BeginTx starts a new transaction
func (s *SQLiteStore) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelSerializable,
	})
}

// CommitTx commits a transaction
func (s *SQLiteStore) CommitTx(tx *sql.Tx) error {
	return tx.Commit()
}

// RollbackTx rolls back a transaction
func (s *SQLiteStore) RollbackTx(tx *sql.Tx) error {
	return tx.Rollback()
}

// CreateRun creates a new run record
func (s *SQLiteStore) CreateRun(ctx context.Context, run *Run) error {
	query := `
		INSERT INTO runs (id, runbook, flow, environment, supervised, status, started_at, completed_at, error, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		run.ID,
		run.Runbook,
		run.Flow,
		run.Environment,
		run.Supervised,
		run.Status,
		run.StartedAt,
		run.CompletedAt,
		run.Error,
		run.Metadata,
		run.CreatedAt,
		run.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	return nil
}

// GetRun retrieves a run by ID
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	query := `
		SELECT id, runbook, flow, environment, supervised, status, started_at, completed_at, error, metadata, created_at, updated_at
		FROM runs
		WHERE id = ?
	`

	run := &Run{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID,
		&run.Runbook,
		&run.Flow,
		&run.Environment,
		&run.Supervised,
		&run.Status,
		&run.StartedAt,
		&run.CompletedAt,
		&run.Error,
		&run.Metadata,
		&run.CreatedAt,
		&run.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return run, nil
}

// UpdateRunStatus updates the status of a run
func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, id string, status RunStatus, errMsg *string) error {
	query := `
		UPDATE runs
		SET status = ?, error = ?, completed_at = ?
		WHERE id = ?
	`

	var completedAt *time.Time
	if status == RunStatusCompleted || status == RunStatusFailed || status == RunStatusCancelled {
		now := time.Now()
		completedAt = &now
	}

	result, err := s.db.ExecContext(ctx, query, status, errMsg, completedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update run status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("run not found: %s", id)
	}

	return nil
}

// ListRuns lists runs with pagination
func (s *SQLiteStore) ListRuns(ctx context.Context, limit, offset int) ([]*Run, error) {
	query := `
		SELECT id, runbook, flow, environment, supervised, status, started_at, completed_at, error, metadata, created_at, updated_at
		FROM runs
		ORDER BY started_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []*Run{}
	for rows.Next() {
		run := &Run{}
		err := rows.Scan(
			&run.ID,
			&run.Runbook,
			&run.Flow,
			&run.Environment,
			&run.Supervised,
			&run.Status,
			&run.StartedAt,
			&run.CompletedAt,
			&run.Error,
			&run.Metadata,
			&run.CreatedAt,
			&run.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

// DeleteRun deletes a run by ID
func (s *SQLiteStore) DeleteRun(ctx context.Context, id string) error {
	query := `DELETE FROM runs WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("run not found: %s", id)
	}

	return nil
}

// CreateConstructSnapshot creates a new construct snapshot record
func (s *SQLiteStore) CreateConstructSnapshot(ctx context.Context, snapshot *ConstructSnapshot) error {
	query := `
		INSERT INTO construct_snapshots (
			id, run_id, construct_did, construct_type, reference, state,
			inputs_fingerprint, inputs, outputs, diagnostics,
			started_at, completed_at, error, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		snapshot.ID,
		snapshot.RunID,
		snapshot.ConstructDid,
		snapshot.ConstructType,
		snapshot.Reference,
		snapshot.State,
		snapshot.InputsFingerprint,
		snapshot.Inputs,
		snapshot.Outputs,
		snapshot.Diagnostics,
		snapshot.StartedAt,
		snapshot.CompletedAt,
		snapshot.Error,
		snapshot.CreatedAt,
		snapshot.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create construct snapshot: %w", err)
	}

	return nil
}

// GetConstructSnapshot retrieves a construct snapshot by ID
func (s *SQLiteStore) GetConstructSnapshot(ctx context.Context, id string) (*ConstructSnapshot, error) {
	query := `
		SELECT id, run_id, construct_did, construct_type, reference, state,
			   inputs_fingerprint, inputs, outputs, diagnostics,
			   started_at, completed_at, error, created_at, updated_at
		FROM construct_snapshots
		WHERE id = ?
	`

	snapshot := &ConstructSnapshot{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&snapshot.ID,
		&snapshot.RunID,
		&snapshot.ConstructDid,
		&snapshot.ConstructType,
		&snapshot.Reference,
		&snapshot.State,
		&snapshot.InputsFingerprint,
		&snapshot.Inputs,
		&snapshot.Outputs,
		&snapshot.Diagnostics,
		&snapshot.StartedAt,
		&snapshot.CompletedAt,
		&snapshot.Error,
		&snapshot.CreatedAt,
		&snapshot.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("construct snapshot not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get construct snapshot: %w", err)
	}

	return snapshot, nil
}

// UpdateConstructSnapshotState updates the state of a construct snapshot
func (s *SQLiteStore) UpdateConstructSnapshotState(ctx context.Context, id string, state string, outputs *string, errMsg *string) error {
	query := `
		UPDATE construct_snapshots
		SET state = ?, outputs = ?, error = ?,
			started_at = CASE WHEN started_at IS NULL AND ? = 'executing' THEN CURRENT_TIMESTAMP ELSE started_at END,
			completed_at = CASE WHEN ? IN ('success', 'failed', 'dependency_failed') THEN CURRENT_TIMESTAMP ELSE completed_at END
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query, state, outputs, errMsg, state, state, id)
	if err != nil {
		return fmt.Errorf("failed to update construct snapshot state: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("construct snapshot not found: %s", id)
	}

	return nil
}

// ListConstructSnapshotsByRun lists all construct snapshots for a run in
// scheduling order
func (s *SQLiteStore) ListConstructSnapshotsByRun(ctx context.Context, runID string) ([]*ConstructSnapshot, error) {
	query := `
		SELECT id, run_id, construct_did, construct_type, reference, state,
			   inputs_fingerprint, inputs, outputs, diagnostics,
			   started_at, completed_at, error, created_at, updated_at
		FROM construct_snapshots
		WHERE run_id = ?
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list construct snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := []*ConstructSnapshot{}
	for rows.Next() {
		snapshot := &ConstructSnapshot{}
		err := rows.Scan(
			&snapshot.ID,
			&snapshot.RunID,
			&snapshot.ConstructDid,
			&snapshot.ConstructType,
			&snapshot.Reference,
			&snapshot.State,
			&snapshot.InputsFingerprint,
			&snapshot.Inputs,
			&snapshot.Outputs,
			&snapshot.Diagnostics,
			&snapshot.StartedAt,
			&snapshot.CompletedAt,
			&snapshot.Error,
			&snapshot.CreatedAt,
			&snapshot.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan construct snapshot: %w", err)
		}
		snapshots = append(snapshots, snapshot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating construct snapshots: %w", err)
	}

	return snapshots, nil
}

// DeleteConstructSnapshot deletes a construct snapshot by ID
func (s *SQLiteStore) DeleteConstructSnapshot(ctx context.Context, id string) error {
	query := `DELETE FROM construct_snapshots WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete construct snapshot: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("construct snapshot not found: %s", id)
	}

	return nil
}

// AppendEvent appends a new event to the log
func (s *SQLiteStore) AppendEvent(ctx context.Context, event *Event) error {
	query := `
		INSERT INTO events (run_id, construct_did, level, message, details, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		event.RunID,
		event.ConstructDid,
		event.Level,
		event.Message,
		event.Details,
		event.Timestamp,
	)

	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}

	// Get the auto-generated ID
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get event ID: %w", err)
	}

	event.ID = id
	return nil
}

// GetEvents retrieves events with optional filters and pagination
func (s *SQLiteStore) GetEvents(ctx context.Context, runID *string, constructDid *string, level *EventLevel, limit, offset int) ([]*Event, error) {
	query := `
		SELECT id, run_id, construct_did, level, message, details, timestamp
		FROM events
		WHERE (? IS NULL OR run_id = ?)
		  AND (? IS NULL OR construct_did = ?)
		  AND (? IS NULL OR level = ?)
		ORDER BY timestamp DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, runID, runID, constructDid, constructDid, level, level, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	events := []*Event{}
	for rows.Next() {
		event := &Event{}
		err := rows.Scan(
			&event.ID,
			&event.RunID,
			&event.ConstructDid,
			&event.Level,
			&event.Message,
			&event.Details,
			&event.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

// UpsertConstructState inserts or updates the cached state of a construct
func (s *SQLiteStore) UpsertConstructState(ctx context.Context, state *ConstructState) error {
	query := `
		INSERT INTO construct_state (
			id, flow, reference, outputs, fingerprint, last_run_id, last_executed, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(flow, reference) DO UPDATE SET
			outputs = excluded.outputs,
			fingerprint = excluded.fingerprint,
			last_run_id = excluded.last_run_id,
			last_executed = excluded.last_executed
	`

	_, err := s.db.ExecContext(ctx, query,
		state.ID,
		state.Flow,
		state.Reference,
		state.Outputs,
		state.Fingerprint,
		state.LastRunID,
		state.LastExecuted,
		state.CreatedAt,
		state.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert construct state: %w", err)
	}

	return nil
}

// GetConstructState retrieves cached construct state by flow and reference
func (s *SQLiteStore) GetConstructState(ctx context.Context, flow, reference string) (*ConstructState, error) {
	query := `
		SELECT id, flow, reference, outputs, fingerprint, last_run_id, last_executed, created_at, updated_at
		FROM construct_state
		WHERE flow = ? AND reference = ?
	`

	state := &ConstructState{}
	err := s.db.QueryRowContext(ctx, query, flow, reference).Scan(
		&state.ID,
		&state.Flow,
		&state.Reference,
		&state.Outputs,
		&state.Fingerprint,
		&state.LastRunID,
		&state.LastExecuted,
		&state.CreatedAt,
		&state.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("construct state not found: %s/%s", flow, reference)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get construct state: %w", err)
	}

	return state, nil
}

// ListConstructStates lists cached construct states for a flow with pagination
func (s *SQLiteStore) ListConstructStates(ctx context.Context, flow string, limit, offset int) ([]*ConstructState, error) {
	query := `
		SELECT id, flow, reference, outputs, fingerprint, last_run_id, last_executed, created_at, updated_at
		FROM construct_state
		WHERE flow = ?
		ORDER BY last_executed DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, flow, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list construct states: %w", err)
	}
	defer rows.Close()

	states := []*ConstructState{}
	for rows.Next() {
		state := &ConstructState{}
		err := rows.Scan(
			&state.ID,
			&state.Flow,
			&state.Reference,
			&state.Outputs,
			&state.Fingerprint,
			&state.LastRunID,
			&state.LastExecuted,
			&state.CreatedAt,
			&state.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan construct state: %w", err)
		}
		states = append(states, state)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating construct states: %w", err)
	}

	return states, nil
}

// DeleteConstructState deletes cached construct state by ID
func (s *SQLiteStore) DeleteConstructState(ctx context.Context, id string) error {
	query := `DELETE FROM construct_state WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete construct state: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("construct state not found: %s", id)
	}

	return nil
}

// CreateActionItem creates a new action item record
func (s *SQLiteStore) CreateActionItem(ctx context.Context, item *ActionItem) error {
	query := `
		INSERT INTO action_items (
			id, run_id, construct_did, type, title, description, status, payload, response, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		item.ID,
		item.RunID,
		item.ConstructDid,
		item.Type,
		item.Title,
		item.Description,
		item.Status,
		item.Payload,
		item.Response,
		item.CreatedAt,
		item.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create action item: %w", err)
	}

	return nil
}

// GetActionItem retrieves an action item by ID
func (s *SQLiteStore) GetActionItem(ctx context.Context, id string) (*ActionItem, error) {
	query := `
		SELECT id, run_id, construct_did, type, title, description, status, payload, response, created_at, updated_at
		FROM action_items
		WHERE id = ?
	`

	item := &ActionItem{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&item.ID,
		&item.RunID,
		&item.ConstructDid,
		&item.Type,
		&item.Title,
		&item.Description,
		&item.Status,
		&item.Payload,
		&item.Response,
		&item.CreatedAt,
		&item.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("action item not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get action item: %w", err)
	}

	return item, nil
}

// ResolveActionItem records the operator response on an action item
func (s *SQLiteStore) ResolveActionItem(ctx context.Context, id string, status ActionItemStatus, response *string) error {
	query := `
		UPDATE action_items
		SET status = ?, response = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'pending'
	`

	result, err := s.db.ExecContext(ctx, query, status, response, id)
	if err != nil {
		return fmt.Errorf("failed to resolve action item: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("action item not found or already resolved: %s", id)
	}

	return nil
}

// ListActionItems lists action items with optional filters and pagination
func (s *SQLiteStore) ListActionItems(ctx context.Context, runID *string, status *ActionItemStatus, limit, offset int) ([]*ActionItem, error) {
	query := `
		SELECT id, run_id, construct_did, type, title, description, status, payload, response, created_at, updated_at
		FROM action_items
		WHERE (? IS NULL OR run_id = ?)
		  AND (? IS NULL OR status = ?)
		ORDER BY created_at ASC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, runID, runID, status, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list action items: %w", err)
	}
	defer rows.Close()

	items := []*ActionItem{}
	for rows.Next() {
		item := &ActionItem{}
		err := rows.Scan(
			&item.ID,
			&item.RunID,
			&item.ConstructDid,
			&item.Type,
			&item.Title,
			&item.Description,
			&item.Status,
			&item.Payload,
			&item.Response,
			&item.CreatedAt,
			&item.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan action item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating action items: %w", err)
	}

	return items, nil
}

// DeletePendingActionItems deletes all unresolved action items for a run
func (s *SQLiteStore) DeletePendingActionItems(ctx context.Context, runID string) (int64, error) {
	query := `DELETE FROM action_items WHERE run_id = ? AND status = 'pending'`

	result, err := s.db.ExecContext(ctx, query, runID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete pending action items: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows, nil
}

// CreateAuditEntry creates a new audit log entry
func (s *SQLiteStore) CreateAuditEntry(ctx context.Context, entry *AuditEntry) error {
	query := `
		INSERT INTO audit (action, actor, target_id, details, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		entry.Action,
		entry.Actor,
		entry.TargetID,
		entry.Details,
		entry.Timestamp,
	)

	if err != nil {
		return fmt.Errorf("failed to create audit entry: %w", err)
	}

	// Get the auto-generated ID
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get audit entry ID: %w", err)
	}

	entry.ID = id
	return nil
}

// ListAuditEntries lists audit entries with optional filters and pagination
func (s *SQLiteStore) ListAuditEntries(ctx context.Context, action *string, actor *string, limit, offset int) ([]*AuditEntry, error) {
	query := `
		SELECT id, action, actor, target_id, details, timestamp
		FROM audit
		WHERE (? IS NULL OR action = ?)
		  AND (? IS NULL OR actor = ?)
		ORDER BY timestamp DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, action, action, actor, actor, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	entries := []*AuditEntry{}
	for rows.Next() {
		entry := &AuditEntry{}
		err := rows.Scan(
			&entry.ID,
			&entry.Action,
			&entry.Actor,
			&entry.TargetID,
			&entry.Details,
			&entry.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit entries: %w", err)
	}

	return entries, nil
}

// HealthCheck verifies the database connection is healthy
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	return s.db.PingContext(ctx)
}
