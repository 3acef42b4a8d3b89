package stores_test

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/txforge/txforge/pkg/stores"
)

// ExampleNewSQLiteStore demonstrates creating and initializing a new SQLite store.
func ExampleNewSQLiteStore() {
	// Create store configuration
	store, err := stores.NewSQLiteStore(stores.Config{
		Path:            ":memory:", // Use in-memory database for example
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	})
	if err != nil {
		log.Fatal(err)
	}

	// Initialize the database connection
	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		log.Fatal(err)
	}

	// Run migrations
	if err := store.Migrate(ctx); err != nil {
		log.Fatal(err)
	}

	defer store.Close()

	// Store is now ready to use
	fmt.Println("Store initialized successfully")
	// Output: Store initialized successfully
}

// ExampleSQLiteStore_CreateRun demonstrates creating a new run record.
func ExampleSQLiteStore_CreateRun() {
	store, _ := stores.NewSQLiteStore(stores.Config{Path: ":memory:"})
	ctx := context.Background()
	_ = store.Init(ctx)
	_ = store.Migrate(ctx)
	defer store.Close()

	// Create a new run
	run := &stores.Run{
		ID:          "run-001",
		Runbook:     "treasury-transfer",
		Flow:        "main",
		Environment: "production",
		Supervised:  true,
		Status:      stores.RunStatusPending,
		StartedAt:   time.Now(),
		Metadata:    `{"operator":"alice"}`,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	if err := store.CreateRun(ctx, run); err != nil {
		log.Fatal(err)
	}

	// Retrieve the run
	retrieved, err := store.GetRun(ctx, "run-001")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Run ID: %s, Status: %s\n", retrieved.ID, retrieved.Status)
	// Output: Run ID: run-001, Status: pending
}

// ExampleSQLiteStore_UpsertConstructState demonstrates caching construct state.
func ExampleSQLiteStore_UpsertConstructState() {
	store, _ := stores.NewSQLiteStore(stores.Config{Path: ":memory:"})
	ctx := context.Background()
	_ = store.Init(ctx)
	_ = store.Migrate(ctx)
	defer store.Close()

	// Create a run
	run := &stores.Run{
		ID:        "run-002",
		Runbook:   "treasury-transfer",
		Flow:      "main",
		Status:    stores.RunStatusCompleted,
		StartedAt: time.Now(),
		Metadata:  `{}`,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	_ = store.CreateRun(ctx, run)

	// Upsert construct state (insert)
	state := &stores.ConstructState{
		ID:           "st-001",
		Flow:         "main",
		Reference:    "action.send_transfer",
		Outputs:      `{"tx_hash":"0xdeadbeef"}`,
		Fingerprint:  "abc123def456",
		LastRunID:    "run-002",
		LastExecuted: time.Now(),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := store.UpsertConstructState(ctx, state); err != nil {
		log.Fatal(err)
	}

	// Get the state
	retrieved, err := store.GetConstructState(ctx, "main", "action.send_transfer")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Construct: %s/%s, Fingerprint: %s\n",
		retrieved.Flow, retrieved.Reference, retrieved.Fingerprint)
	// Output: Construct: main/action.send_transfer, Fingerprint: abc123def456
}

// ExampleSQLiteStore_AppendEvent demonstrates logging events.
func ExampleSQLiteStore_AppendEvent() {
	store, _ := stores.NewSQLiteStore(stores.Config{Path: ":memory:"})
	ctx := context.Background()
	_ = store.Init(ctx)
	_ = store.Migrate(ctx)
	defer store.Close()

	// Create a run
	run := &stores.Run{
		ID:        "run-003",
		Runbook:   "treasury-transfer",
		Flow:      "main",
		Status:    stores.RunStatusRunning,
		StartedAt: time.Now(),
		Metadata:  `{}`,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	_ = store.CreateRun(ctx, run)

	// Log an event
	details := `{"environment":"production"}`
	event := &stores.Event{
		RunID:     &run.ID,
		Level:     stores.EventLevelInfo,
		Message:   "Starting flow",
		Details:   &details,
		Timestamp: time.Now(),
	}

	if err := store.AppendEvent(ctx, event); err != nil {
		log.Fatal(err)
	}

	// Retrieve events
	events, err := store.GetEvents(ctx, &run.ID, nil, nil, 10, 0)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Event count: %d, Message: %s\n", len(events), events[0].Message)
	// Output: Event count: 1, Message: Starting flow
}

// ExampleSQLiteStore_CreateActionItem demonstrates recording a supervised
// checkpoint and its resolution.
func ExampleSQLiteStore_CreateActionItem() {
	store, _ := stores.NewSQLiteStore(stores.Config{Path: ":memory:"})
	ctx := context.Background()
	_ = store.Init(ctx)
	_ = store.Migrate(ctx)
	defer store.Close()

	// Create a run
	run := &stores.Run{
		ID:         "run-004",
		Runbook:    "treasury-transfer",
		Flow:       "main",
		Supervised: true,
		Status:     stores.RunStatusRunning,
		StartedAt:  time.Now(),
		Metadata:   `{}`,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	_ = store.CreateRun(ctx, run)

	// Record an emitted action item
	item := &stores.ActionItem{
		ID:           "item-001",
		RunID:        run.ID,
		ConstructDid: "a1b2c3d4",
		Type:         "review_input",
		Title:        "Review transfer amount",
		Status:       stores.ActionItemStatusPending,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := store.CreateActionItem(ctx, item); err != nil {
		log.Fatal(err)
	}

	// Record the operator approval
	response := `{"approved":true}`
	if err := store.ResolveActionItem(ctx, "item-001", stores.ActionItemStatusApproved, &response); err != nil {
		log.Fatal(err)
	}

	resolved, err := store.GetActionItem(ctx, "item-001")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Item: %s, Status: %s\n", resolved.Title, resolved.Status)
	// Output: Item: Review transfer amount, Status: approved
}

// ExampleSQLiteStore_BeginTx demonstrates using transactions.
func ExampleSQLiteStore_BeginTx() {
	store, _ := stores.NewSQLiteStore(stores.Config{Path: ":memory:"})
	ctx := context.Background()
	_ = store.Init(ctx)
	_ = store.Migrate(ctx)
	defer store.Close()

	// Begin transaction
	tx, err := store.BeginTx(ctx)
	if err != nil {
		log.Fatal(err)
	}

	// Perform operations within transaction
	query := `
		INSERT INTO runs (id, runbook, flow, environment, supervised, status, started_at, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	_, err = tx.ExecContext(ctx, query, "run-tx-001", "treasury-transfer", "main",
		"testnet", false, "pending", now, "{}", now, now)

	if err != nil {
		_ = store.RollbackTx(tx)
		log.Fatal(err)
	}

	// Commit transaction
	if err := store.CommitTx(tx); err != nil {
		log.Fatal(err)
	}

	// Verify run was created
	run, err := store.GetRun(ctx, "run-tx-001")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Transaction committed: Run %s created\n", run.ID)
	// Output: Transaction committed: Run run-tx-001 created
}
