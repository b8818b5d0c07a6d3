package taskrunner

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/tyemirov/assetpipe/internal/taskgraph"
)

// Executor runs one named task, including everything it depends on.
type Executor interface {
	Run(ctx context.Context, taskName string) (taskgraph.ExecutionOutcome, error)
}

// Factory constructs an Executor given resolved dependencies.
type Factory func(Dependencies) Executor

// Dependencies holds the collaborators an Executor needs.
type Dependencies struct {
	Registry       *taskgraph.Registry
	FileSystem     afero.Fs
	Logger         *zap.Logger
	Output         io.Writer
	Errors         io.Writer
	DisableSummary bool
}

type graphRunner interface {
	Run(ctx context.Context, name string) (taskgraph.ExecutionOutcome, error)
}

type taskGraphAdapter struct {
	runner graphRunner
}

func (adapter taskGraphAdapter) Run(ctx context.Context, taskName string) (taskgraph.ExecutionOutcome, error) {
	return adapter.runner.Run(ctx, taskName)
}

// Resolve returns either the provided factory result or a default task graph runner,
// wrapped so that every run prints a summary line.
func Resolve(factory Factory, dependencies Dependencies) Executor {
	var base Executor
	if factory != nil {
		base = factory(dependencies)
	}
	if base == nil {
		registry := dependencies.Registry
		if registry == nil {
			registry = taskgraph.NewRegistry()
		}
		base = taskGraphAdapter{runner: taskgraph.NewRunner(registry, taskgraph.RunnerOptions{
			FileSystem: dependencies.FileSystem,
			Logger:     dependencies.Logger,
		})}
	}
	return summaryExecutor{
		delegate:     base,
		dependencies: dependencies,
	}
}

type summaryExecutor struct {
	delegate     Executor
	dependencies Dependencies
}

func (executor summaryExecutor) Run(ctx context.Context, taskName string) (taskgraph.ExecutionOutcome, error) {
	outcome, err := executor.delegate.Run(ctx, taskName)
	executor.printSummary(outcome)
	return outcome, err
}

func (executor summaryExecutor) printSummary(outcome taskgraph.ExecutionOutcome) {
	if executor.dependencies.DisableSummary {
		return
	}
	writer := executor.summaryWriter()
	if writer == nil {
		return
	}

	summary := RenderSummaryLine(SummaryFromOutcome(outcome))
	if len(strings.TrimSpace(summary)) == 0 {
		return
	}
	fmt.Fprintln(writer, summary)
}

func (executor summaryExecutor) summaryWriter() io.Writer {
	if executor.dependencies.Errors != nil {
		return executor.dependencies.Errors
	}
	if executor.dependencies.Output != nil {
		return executor.dependencies.Output
	}
	return nil
}
