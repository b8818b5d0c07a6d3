package taskgraph

import (
	"context"

	"go.uber.org/zap"

	"github.com/tyemirov/assetpipe/internal/fileset"
)

// DefaultTaskName is run when no task name is requested.
const DefaultTaskName = "default"

// TaskKind distinguishes pipeline tasks from composite tasks.
type TaskKind string

// Supported task kinds.
const (
	TaskKindPipeline  TaskKind = "pipeline"
	TaskKindComposite TaskKind = "composite"
)

// StepEnvironment carries the collaborators a step may use while applying.
type StepEnvironment struct {
	Logger *zap.Logger
	Task   string
	RunID  string
}

// Step is one stream-to-stream transform. Implementations must not mutate the input
// files; they return a new stream.
type Step interface {
	Name() string
	Apply(ctx context.Context, environment StepEnvironment, files []*fileset.File) ([]*fileset.File, error)
}

// Pipeline reads Sources, folds Steps over the stream and writes the result to Destination.
type Pipeline struct {
	Sources     []string
	Steps       []Step
	Destination string
}

// Composite runs Dependencies in listed order.
type Composite struct {
	Dependencies []string
}

// Task is a named unit of build work; exactly one of Pipeline or Composite is set.
type Task struct {
	Name        string
	Description string
	Pipeline    *Pipeline
	Composite   *Composite
}

// NewPipelineTask builds a pipeline task.
func NewPipelineTask(name string, pipeline Pipeline) Task {
	copied := Pipeline{
		Sources:     append([]string(nil), pipeline.Sources...),
		Steps:       append([]Step(nil), pipeline.Steps...),
		Destination: pipeline.Destination,
	}
	return Task{Name: name, Pipeline: &copied}
}

// NewCompositeTask builds a composite task over the named dependencies.
func NewCompositeTask(name string, dependencies ...string) Task {
	return Task{Name: name, Composite: &Composite{Dependencies: append([]string(nil), dependencies...)}}
}

// WithDescription returns a copy of the task carrying description.
func (task Task) WithDescription(description string) Task {
	task.Description = description
	return task
}

// Kind reports whether the task is a pipeline or a composite.
func (task Task) Kind() TaskKind {
	if task.Composite != nil {
		return TaskKindComposite
	}
	return TaskKindPipeline
}

// Dependencies returns the composite dependencies, or nil for pipelines.
func (task Task) Dependencies() []string {
	if task.Composite == nil {
		return nil
	}
	return append([]string(nil), task.Composite.Dependencies...)
}

// StepNames returns the names of the pipeline steps in declared order.
func (task Task) StepNames() []string {
	if task.Pipeline == nil {
		return nil
	}
	names := make([]string, 0, len(task.Pipeline.Steps))
	for _, step := range task.Pipeline.Steps {
		names = append(names, step.Name())
	}
	return names
}
