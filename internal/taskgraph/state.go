package taskgraph

import "fmt"

// TaskState is the per-invocation execution state of a task.
type TaskState string

// Task states. A task moves from not_started to running and then to exactly one of
// completed or failed.
const (
	TaskStateNotStarted TaskState = "not_started"
	TaskStateRunning    TaskState = "running"
	TaskStateCompleted  TaskState = "completed"
	TaskStateFailed     TaskState = "failed"
)

// IsTerminal reports whether the state is final.
func (state TaskState) IsTerminal() bool {
	return state == TaskStateCompleted || state == TaskStateFailed
}

func transitionState(current TaskState, next TaskState) (TaskState, error) {
	switch {
	case current == TaskStateNotStarted && next == TaskStateRunning:
		return next, nil
	case current == TaskStateRunning && next.IsTerminal():
		return next, nil
	default:
		return current, fmt.Errorf("invalid task state transition %s -> %s", current, next)
	}
}
