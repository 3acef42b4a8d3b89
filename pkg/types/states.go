package types

// CommandState tracks where a construct sits in its execution lifecycle.
type CommandState string

const (
	// StateUnevaluated is the initial state before inputs are resolved.
	StateUnevaluated CommandState = "unevaluated"

	// StateInputsEvaluated means all input expressions resolved to values.
	StateInputsEvaluated CommandState = "inputs_evaluated"

	// StateAwaitingActionItem means execution is suspended until an
	// operator responds to one or more pending action items.
	StateAwaitingActionItem CommandState = "awaiting_action_item"

	// StateExecuting means the construct's execution logic is running.
	StateExecuting CommandState = "executing"

	// StateBackgroundTaskPending means execution handed off to a
	// background task that has not completed yet.
	StateBackgroundTaskPending CommandState = "background_task_pending"

	// StateBackgroundTaskComplete means the background task finished and
	// its result is ready to fold into the execution results.
	StateBackgroundTaskComplete CommandState = "background_task_complete"

	// StateSuccess is the terminal success state.
	StateSuccess CommandState = "success"

	// StateFailed is the terminal failure state for a construct whose own
	// evaluation or execution produced an error.
	StateFailed CommandState = "failed"

	// StateDependencyFailed is the terminal state for a construct skipped
	// because something upstream failed.
	StateDependencyFailed CommandState = "dependency_failed"
)

var commandStateTransitions = map[CommandState][]CommandState{
	StateUnevaluated:            {StateInputsEvaluated, StateFailed, StateDependencyFailed},
	StateInputsEvaluated:        {StateAwaitingActionItem, StateExecuting, StateFailed, StateDependencyFailed},
	StateAwaitingActionItem:     {StateExecuting, StateFailed, StateDependencyFailed},
	StateExecuting:              {StateBackgroundTaskPending, StateSuccess, StateFailed},
	StateBackgroundTaskPending:  {StateBackgroundTaskComplete, StateFailed},
	StateBackgroundTaskComplete: {StateSuccess, StateFailed},
}

// CanTransition reports whether moving from s to next is a legal lifecycle
// transition. Re-entering the same state is always allowed.
func (s CommandState) CanTransition(next CommandState) bool {
	if s == next {
		return true
	}
	for _, allowed := range commandStateTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the state ends the construct's lifecycle.
func (s CommandState) IsTerminal() bool {
	switch s {
	case StateSuccess, StateFailed, StateDependencyFailed:
		return true
	default:
		return false
	}
}

// IsFailure reports whether the state is a failure terminal.
func (s CommandState) IsFailure() bool {
	return s == StateFailed || s == StateDependencyFailed
}
