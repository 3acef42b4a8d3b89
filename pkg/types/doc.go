// Package types defines the core domain types of the txforge runbook engine.
//
// # Overview
//
// A runbook declares a set of constructs (variables, actions, outputs,
// signers) whose attributes are expressions referencing other constructs.
// The engine resolves those references into a dependency graph, orders the
// graph, evaluates each construct's inputs, and executes constructs in
// dependency order. This package holds the vocabulary shared by every
// layer of that pipeline.
//
// # Identity
//
// Every addressable entity carries a deterministic digest identity:
//
//   - Did: a 32-byte SHA-256 digest over ordered components
//   - RunbookId / RunbookDid: a runbook within an org and workspace
//   - PackageId / PackageDid: a package (file scope) within a runbook
//   - ConstructId / ConstructDid: one declared block within a package
//
// Identities are derived, never assigned: the same declaration always
// hashes to the same digest across runs and machines.
//
// # Values and Types
//
// Value is the tagged value type flowing through evaluation and execution:
// null, bool, int, float, string, buffer, array, ordered object, and
// opaque addon values. Fingerprint computes a canonical digest of a value
// so semantically equal values compare equal regardless of authored form.
// Type and CoerceValue implement declared-type coercion for command
// inputs. ValueStore is an ordered named collection of values used for
// construct inputs and outputs.
//
// # Expressions
//
// Expression is the abstract syntax handed to the engine by parsers. The
// engine never parses source text; it consumes this tree. CollectReferences
// extracts every symbol reference, which is how the dependency graph is
// discovered.
//
// # Commands, Signers, Functions, Addons
//
// CommandSpecification defines a command's declared interface and its
// behavior callbacks (CheckExecutability, RunExecution,
// BuildBackgroundTask). SignerSpecification does the same for signers
// (CheckActivability, Activate, CheckSignability, Sign).
// FunctionSpecification defines expression functions. Addon bundles all
// three under a matcher namespace.
//
// # Execution Lifecycle
//
// CommandState is the per-construct state machine, from unevaluated
// through inputs_evaluated, optional awaiting_action_item, executing,
// optional background task states, to success, failed, or
// dependency_failed. CanTransition encodes the legal moves.
//
// # Operator Interaction
//
// ActionItemRequest, ActionItemResponse, ActionPanel, and BlockEvent form
// the protocol between a supervised run and its frontend: the engine emits
// panels of action items, suspends affected constructs, and resumes when
// responses arrive. Action item ids are content-derived so re-emission of
// an unchanged item deduplicates.
//
// # Diagnostics
//
// Diagnostic is the uniform error type: leveled, coded, optionally
// source-located and construct-attributed, and usable as a Go error.
package types
