package taskgraph

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/tyemirov/assetpipe/internal/fileset"
)

const (
	runIDFieldNameConstant          = "run_id"
	taskFieldNameConstant           = "task"
	taskKindFieldNameConstant       = "kind"
	parentFieldNameConstant         = "required_by"
	stepFieldNameConstant           = "step"
	inputFilesFieldNameConstant     = "input_files"
	outputFilesFieldNameConstant    = "output_files"
	destinationFieldNameConstant    = "destination"
	durationFieldNameConstant       = "duration"
	runStartedMessageConstant       = "task run started"
	runFinishedMessageConstant      = "task run finished"
	runRejectedMessageConstant      = "task run rejected"
	taskStartedMessageConstant      = "task started"
	taskCompletedMessageConstant    = "task completed"
	taskFailedMessageConstant       = "task failed"
	stepAppliedMessageConstant      = "step applied"
	outputsWrittenMessageConstant   = "outputs written"
	sourcesLoadedMessageConstant    = "sources loaded"
	taskCountFieldNameConstant      = "tasks"
	failedCountFieldNameConstant    = "failed"
	writtenCountFieldNameConstant   = "outputs"
	sourcePatternsFieldNameConstant = "sources"
)

// RunnerOptions configures a Runner. Zero values select production collaborators.
type RunnerOptions struct {
	FileSystem     afero.Fs
	Logger         *zap.Logger
	Now            func() time.Time
	RunIDGenerator func() string
}

// Runner executes registered tasks against a filesystem.
type Runner struct {
	registry       *Registry
	fileSystem     afero.Fs
	logger         *zap.Logger
	now            func() time.Time
	runIDGenerator func() string
}

// NewRunner constructs a Runner over registry.
func NewRunner(registry *Registry, options RunnerOptions) *Runner {
	fileSystem := options.FileSystem
	if fileSystem == nil {
		fileSystem = afero.NewOsFs()
	}
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := options.Now
	if now == nil {
		now = time.Now
	}
	runIDGenerator := options.RunIDGenerator
	if runIDGenerator == nil {
		runIDGenerator = uuid.NewString
	}
	return &Runner{
		registry:       registry,
		fileSystem:     fileSystem,
		logger:         logger,
		now:            now,
		runIDGenerator: runIDGenerator,
	}
}

// Run executes the task called name, or DefaultTaskName when name is blank.
//
// The whole dependency tree is resolved before anything executes, so an unknown task
// anywhere under name fails with UnknownTaskError and no filesystem side effects. During
// execution the first failure stops the run: later steps, later dependencies and later
// siblings are not started. Tasks that already completed keep their outputs.
func (runner *Runner) Run(ctx context.Context, name string) (ExecutionOutcome, error) {
	requestedName := strings.TrimSpace(name)
	if len(requestedName) == 0 {
		requestedName = DefaultTaskName
	}

	outcome := ExecutionOutcome{
		RunID:     runner.runIDGenerator(),
		Task:      requestedName,
		StartTime: runner.now(),
	}
	runLogger := runner.logger.With(zap.String(runIDFieldNameConstant, outcome.RunID))

	if _, planError := runner.registry.Plan(requestedName); planError != nil {
		runLogger.Error(runRejectedMessageConstant, zap.String(taskFieldNameConstant, requestedName), zap.Error(planError))
		return runner.finish(outcome), planError
	}

	runLogger.Info(runStartedMessageConstant, zap.String(taskFieldNameConstant, requestedName))
	execution := &runExecution{runner: runner, logger: runLogger, outcome: &outcome}
	executionError := execution.runTask(ctx, requestedName, "")

	finished := runner.finish(outcome)
	runLogger.Info(
		runFinishedMessageConstant,
		zap.String(taskFieldNameConstant, requestedName),
		zap.Int(taskCountFieldNameConstant, len(finished.Tasks)),
		zap.Int(failedCountFieldNameConstant, finished.FailedCount()),
		zap.Int(writtenCountFieldNameConstant, len(finished.Outputs())),
		zap.Duration(durationFieldNameConstant, finished.Duration),
	)
	return finished, executionError
}

func (runner *Runner) finish(outcome ExecutionOutcome) ExecutionOutcome {
	outcome.EndTime = runner.now()
	outcome.Duration = outcome.EndTime.Sub(outcome.StartTime)
	return outcome
}

type runExecution struct {
	runner  *Runner
	logger  *zap.Logger
	outcome *ExecutionOutcome
}

func (execution *runExecution) runTask(ctx context.Context, name string, parent string) error {
	if contextError := ctx.Err(); contextError != nil {
		return contextError
	}

	task, _ := execution.runner.registry.Lookup(name)
	outcomeIndex := execution.begin(task, parent)
	taskLogger := execution.logger.With(zap.String(taskFieldNameConstant, task.Name))
	taskLogger.Debug(taskStartedMessageConstant, zap.String(taskKindFieldNameConstant, string(task.Kind())), zap.String(parentFieldNameConstant, parent))

	var taskError error
	if task.Kind() == TaskKindComposite {
		for _, dependency := range task.Composite.Dependencies {
			if taskError = execution.runTask(ctx, strings.TrimSpace(dependency), task.Name); taskError != nil {
				break
			}
		}
	} else {
		taskError = execution.runPipeline(ctx, task, outcomeIndex, taskLogger)
	}

	execution.end(outcomeIndex, taskError)
	taskOutcome := execution.outcome.Tasks[outcomeIndex]
	if taskError != nil {
		taskLogger.Error(taskFailedMessageConstant, zap.Duration(durationFieldNameConstant, taskOutcome.Duration), zap.Error(taskError))
		return taskError
	}
	taskLogger.Info(taskCompletedMessageConstant, zap.String(taskKindFieldNameConstant, string(task.Kind())), zap.Duration(durationFieldNameConstant, taskOutcome.Duration))
	return nil
}

func (execution *runExecution) runPipeline(ctx context.Context, task Task, outcomeIndex int, taskLogger *zap.Logger) error {
	pipeline := task.Pipeline

	files, openError := fileset.Open(execution.runner.fileSystem, pipeline.Sources...)
	if openError != nil {
		return newIOError(task.Name, openError)
	}
	taskLogger.Debug(sourcesLoadedMessageConstant, zap.Strings(sourcePatternsFieldNameConstant, pipeline.Sources), zap.Int(inputFilesFieldNameConstant, len(files)))

	environment := StepEnvironment{Logger: taskLogger, Task: task.Name, RunID: execution.outcome.RunID}
	for _, step := range pipeline.Steps {
		if contextError := ctx.Err(); contextError != nil {
			return contextError
		}
		stepStart := execution.runner.now()
		transformed, stepError := step.Apply(ctx, environment, files)
		stepOutcome := StepOutcome{
			Name:        step.Name(),
			InputFiles:  len(files),
			OutputFiles: len(transformed),
			Duration:    execution.runner.now().Sub(stepStart),
		}
		execution.outcome.Tasks[outcomeIndex].Steps = append(execution.outcome.Tasks[outcomeIndex].Steps, stepOutcome)
		if stepError != nil {
			return &TransformError{Task: task.Name, Step: step.Name(), Err: stepError}
		}
		taskLogger.Debug(
			stepAppliedMessageConstant,
			zap.String(stepFieldNameConstant, stepOutcome.Name),
			zap.Int(inputFilesFieldNameConstant, stepOutcome.InputFiles),
			zap.Int(outputFilesFieldNameConstant, stepOutcome.OutputFiles),
			zap.Duration(durationFieldNameConstant, stepOutcome.Duration),
		)
		files = transformed
	}

	if contextError := ctx.Err(); contextError != nil {
		return contextError
	}
	written, writeError := fileset.Write(execution.runner.fileSystem, pipeline.Destination, files)
	execution.outcome.Tasks[outcomeIndex].Outputs = written
	if writeError != nil {
		return newIOError(task.Name, writeError)
	}
	taskLogger.Debug(outputsWrittenMessageConstant, zap.String(destinationFieldNameConstant, pipeline.Destination), zap.Int(outputFilesFieldNameConstant, len(written)))
	return nil
}

func (execution *runExecution) begin(task Task, parent string) int {
	state, _ := transitionState(TaskStateNotStarted, TaskStateRunning)
	execution.outcome.Tasks = append(execution.outcome.Tasks, TaskOutcome{
		Name:      task.Name,
		Kind:      task.Kind(),
		Parent:    parent,
		State:     state,
		StartTime: execution.runner.now(),
	})
	return len(execution.outcome.Tasks) - 1
}

func (execution *runExecution) end(outcomeIndex int, taskError error) {
	taskOutcome := &execution.outcome.Tasks[outcomeIndex]
	nextState := TaskStateCompleted
	if taskError != nil {
		nextState = TaskStateFailed
		taskOutcome.Error = taskError
	}
	taskOutcome.State, _ = transitionState(taskOutcome.State, nextState)
	taskOutcome.EndTime = execution.runner.now()
	taskOutcome.Duration = taskOutcome.EndTime.Sub(taskOutcome.StartTime)
}

func newIOError(taskName string, cause error) *IOError {
	var operationError *fileset.OperationError
	if errors.As(cause, &operationError) {
		return &IOError{Task: taskName, Operation: string(operationError.Operation), Path: operationError.Path, Err: operationError.Err}
	}
	return &IOError{Task: taskName, Err: cause}
}
