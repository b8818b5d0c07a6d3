package taskgraph

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTask is wrapped by InvalidTaskError.
var ErrInvalidTask = errors.New("invalid task")

// DuplicateTaskError reports a second registration under an existing name.
type DuplicateTaskError struct {
	Name string
}

// Error implements the error interface.
func (errorDetails DuplicateTaskError) Error() string {
	return fmt.Sprintf("task %q is already registered", errorDetails.Name)
}

// UnknownTaskError reports a requested or depended-on task that is not registered.
type UnknownTaskError struct {
	Name string
	// RequiredBy is the composite that listed the missing task; empty for direct requests.
	RequiredBy string
}

// Error implements the error interface.
func (errorDetails UnknownTaskError) Error() string {
	if len(errorDetails.RequiredBy) == 0 {
		return fmt.Sprintf("task %q is not registered", errorDetails.Name)
	}
	return fmt.Sprintf("task %q required by %q is not registered", errorDetails.Name, errorDetails.RequiredBy)
}

// CycleError reports a dependency cycle; Path starts and ends with the same task.
type CycleError struct {
	Path []string
}

// Error implements the error interface.
func (errorDetails CycleError) Error() string {
	return "task dependency cycle: " + strings.Join(errorDetails.Path, " -> ")
}

// InvalidTaskError reports a task definition that cannot be registered.
type InvalidTaskError struct {
	Name   string
	Reason string
}

// Error implements the error interface.
func (errorDetails InvalidTaskError) Error() string {
	return fmt.Sprintf("%s %q: %s", ErrInvalidTask, errorDetails.Name, errorDetails.Reason)
}

// Unwrap exposes ErrInvalidTask.
func (errorDetails InvalidTaskError) Unwrap() error {
	return ErrInvalidTask
}

// TransformError reports a pipeline step failure.
type TransformError struct {
	Task string
	Step string
	Err  error
}

// Error implements the error interface.
func (errorDetails *TransformError) Error() string {
	return fmt.Sprintf("task %q step %q failed: %v", errorDetails.Task, errorDetails.Step, errorDetails.Err)
}

// Unwrap exposes the step error.
func (errorDetails *TransformError) Unwrap() error {
	return errorDetails.Err
}

// IOError reports a failure reading sources or writing outputs.
type IOError struct {
	Task      string
	Operation string
	Path      string
	Err       error
}

// Error implements the error interface.
func (errorDetails *IOError) Error() string {
	return fmt.Sprintf("task %q %s %s: %v", errorDetails.Task, errorDetails.Operation, errorDetails.Path, errorDetails.Err)
}

// Unwrap exposes the filesystem error.
func (errorDetails *IOError) Unwrap() error {
	return errorDetails.Err
}
