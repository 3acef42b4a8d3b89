// Package engine provides the core orchestration machinery for txforge runbooks.
//
// # Overview
//
// txforge is a declarative runbook engine: a runbook describes a set of
// constructs (variables, actions, outputs, signers, modules, flows) whose
// attributes may reference each other's results. The engine operates through
// a 5-phase workflow:
//
//  1. Index - Register constructs into the workspace (WorkspaceContext)
//  2. Graph - Derive the dependency DAG and a deterministic order (GraphContext)
//  3. Evaluate - Resolve attribute expressions against computed results (Evaluator)
//  4. Execute - Drive constructs through their state machine (Driver)
//  5. Mutate - Apply attribute edits and re-evaluate incrementally (ApplyMutations)
//
// # Core Domain Types
//
// The package defines the contexts that together hold a flow's state:
//
//   - WorkspaceContext: Name-to-construct index with package scoping and imports
//   - GraphContext: Dependency edges and the stable topological order
//   - ExecutionContext: Per-construct states, evaluated inputs, and results
//   - FlowContext: One runnable instantiation of a runbook (workspace + graph + execution)
//   - RuntimeContext: Registered addons, command specs, signer specs, and functions
//   - Runbook: Parsed construct declarations, assembled into flow contexts
//
// # Construct Lifecycle
//
// Every construct moves through the command state machine defined in pkg/types:
//
//	unevaluated -> inputs_evaluated -> executing -> success
//	                                -> awaiting_action_item (supervised runs)
//	                                -> background_task_pending -> background_task_complete
//	any pre-execution state -> dependency_failed (upstream failure)
//	executing -> failed (own failure)
//
// The Driver advances constructs in passes: each pass walks the topological
// order, evaluates inputs for constructs whose dependencies are computed,
// and executes those that are ready. A pass reporting no progress with
// remaining work means the run is blocked on action items or a cycle of
// failures.
//
// # Expression Evaluation
//
// Attribute expressions evaluate to a tri-state result: complete with a
// value, complete with an error diagnostic, or not yet computable because a
// referenced construct has no result. The not-yet-computable state is how
// the driver discovers genuine execution-order dependencies without a
// separate analysis pass.
//
// # Supervised Runs
//
// In supervised mode, executability checks may emit action items (reviews,
// input requests, signature approvals). The driver suspends the affected
// construct, surfaces an ActionPanel through the event channel, and resumes
// once every item for the construct has been resolved by a response.
//
// # Example Usage
//
// Basic workflow for executing a runbook:
//
//	// 1. Assemble the runbook from parsed declarations
//	rb := engine.NewRunbook("transfer", runtime)
//	for _, decl := range decls {
//	    diag := rb.AddConstruct(decl)
//	}
//
//	// 2. Build flow contexts (graph + execution state per flow)
//	flows, diags := rb.BuildFlowContexts(inputs)
//
//	// 3. Drive a flow to completion
//	driver := engine.NewDriver(runtime, flows[0], logger)
//	diags = driver.RunUnsupervised(ctx)
//
//	// 4. Read outputs
//	outputs := flows[0].Outputs()
//
// # Determinism
//
// Construct ordering is a stable topological sort: among constructs whose
// dependencies are all satisfied, declaration order decides. Two runs of the
// same runbook with the same inputs visit constructs in the same order and
// produce the same fingerprints.
//
// # Thread Safety
//
// A FlowContext and its Driver are single-goroutine structures. Background
// tasks run concurrently and deliver their results over channels; the driver
// collects them between passes. Sharing a FlowContext across goroutines
// requires external synchronization.
package engine
