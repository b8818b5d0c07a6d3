package taskgraph

import (
	"time"

	"github.com/tyemirov/assetpipe/internal/fileset"
)

// ExecutionOutcome captures what a single Run did.
type ExecutionOutcome struct {
	RunID     string
	Task      string
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	// Tasks lists every task invocation in start order, composites included.
	Tasks []TaskOutcome
}

// TaskOutcome reports one task invocation.
type TaskOutcome struct {
	Name      string
	Kind      TaskKind
	Parent    string
	State     TaskState
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Steps     []StepOutcome
	Outputs   []fileset.WrittenFile
	Error     error
}

// StepOutcome reports one applied transform step.
type StepOutcome struct {
	Name        string
	InputFiles  int
	OutputFiles int
	Duration    time.Duration
}

// Failed reports whether any task invocation failed.
func (outcome ExecutionOutcome) Failed() bool {
	return outcome.FailedCount() > 0
}

// FailedCount returns the number of failed task invocations.
func (outcome ExecutionOutcome) FailedCount() int {
	failed := 0
	for _, taskOutcome := range outcome.Tasks {
		if taskOutcome.State == TaskStateFailed {
			failed++
		}
	}
	return failed
}

// Outputs returns every written file across the run in write order.
func (outcome ExecutionOutcome) Outputs() []fileset.WrittenFile {
	outputs := make([]fileset.WrittenFile, 0)
	for _, taskOutcome := range outcome.Tasks {
		outputs = append(outputs, taskOutcome.Outputs...)
	}
	return outputs
}

// ExecutedPipelines returns the names of pipeline tasks that were started, in order.
func (outcome ExecutionOutcome) ExecutedPipelines() []string {
	names := make([]string, 0, len(outcome.Tasks))
	for _, taskOutcome := range outcome.Tasks {
		if taskOutcome.Kind == TaskKindPipeline {
			names = append(names, taskOutcome.Name)
		}
	}
	return names
}
