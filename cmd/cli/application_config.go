package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"

	taskscmd "github.com/tyemirov/assetpipe/cmd/cli/tasks"
	"github.com/tyemirov/assetpipe/internal/assets"
	"github.com/tyemirov/assetpipe/internal/taskgraph"
	"github.com/tyemirov/assetpipe/internal/transform"
)

const (
	defaultSassExecutableConstant           = "sass"
	defaultSassTimeoutConstant              = "30s"
	configuredTaskErrorTemplateConstant     = "tasks[%d] %q: %v"
	configuredStepErrorTemplateConstant     = "step %d: %w"
	configuredTaskNameMissingMessage        = "task name is required"
	configuredTaskAmbiguousMessage          = "task declares both depends_on and pipeline fields"
	configuredTaskEmptyMessage              = "task declares neither depends_on nor sources"
	configuredTaskSourcesMissingMessage     = "pipeline task requires at least one source"
	configuredTaskDestinationMissingMessage = "pipeline task requires a destination"
)

var (
	errConfiguredTaskNameMissing        = errors.New(configuredTaskNameMissingMessage)
	errConfiguredTaskAmbiguous          = errors.New(configuredTaskAmbiguousMessage)
	errConfiguredTaskEmpty              = errors.New(configuredTaskEmptyMessage)
	errConfiguredTaskSourcesMissing     = errors.New(configuredTaskSourcesMissingMessage)
	errConfiguredTaskDestinationMissing = errors.New(configuredTaskDestinationMissingMessage)
)

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common ApplicationCommonConfiguration `mapstructure:"common"`
	Build  ApplicationBuildConfiguration  `mapstructure:"build"`
	Tasks  []ApplicationTaskConfiguration `mapstructure:"tasks"`
}

// ApplicationCommonConfiguration stores logging and execution defaults.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	DryRun    bool   `mapstructure:"dry_run"`
}

// ApplicationBuildConfiguration stores where tasks run and how stylesheets are compiled.
type ApplicationBuildConfiguration struct {
	Root           string        `mapstructure:"root"`
	SassExecutable string        `mapstructure:"sass_executable"`
	SassTimeout    time.Duration `mapstructure:"sass_timeout"`
}

// ApplicationTaskConfiguration declares an additional task. A task with depends_on is a
// composite; a task with sources and a destination is a pipeline.
type ApplicationTaskConfiguration struct {
	Name        string                         `mapstructure:"name"`
	Description string                         `mapstructure:"description"`
	Sources     []string                       `mapstructure:"sources"`
	Steps       []ApplicationStepConfiguration `mapstructure:"steps"`
	Destination string                         `mapstructure:"destination"`
	DependsOn   []string                       `mapstructure:"depends_on"`
}

// ApplicationStepConfiguration names a transform and its options.
type ApplicationStepConfiguration struct {
	Transform string         `mapstructure:"transform"`
	With      map[string]any `mapstructure:"with"`
}

// ConfiguredTaskError reports a task declaration that could not be turned into a task.
type ConfiguredTaskError struct {
	Index int
	Name  string
	Err   error
}

func (errorDetails ConfiguredTaskError) Error() string {
	return fmt.Sprintf(configuredTaskErrorTemplateConstant, errorDetails.Index, errorDetails.Name, errorDetails.Err)
}

func (errorDetails ConfiguredTaskError) Unwrap() error {
	return errorDetails.Err
}

type configurationInitializationPlan struct {
	DirectoryPath string
	FilePath      string
}

type closableStylesheetCompiler interface {
	transform.StylesheetCompiler
	Close() error
}

type stylesheetCompilerProvider func(options transform.DartSassOptions) closableStylesheetCompiler

func newDartSassStylesheetCompiler(options transform.DartSassOptions) closableStylesheetCompiler {
	return transform.NewDartSassCompiler(options)
}

func (application *Application) commandConfiguration() taskscmd.CommandConfiguration {
	configuration := taskscmd.DefaultCommandConfiguration()
	configuration.DryRun = application.configuration.Common.DryRun
	if trimmedRoot := strings.TrimSpace(application.configuration.Build.Root); len(trimmedRoot) > 0 {
		configuration.Root = trimmedRoot
	}
	return configuration
}

// buildTaskRegistry registers the built-in asset tasks followed by configured tasks. A
// configured task reusing a built-in name is rejected as a duplicate.
func (application *Application) buildTaskRegistry(root string) (taskscmd.Registry, error) {
	compiler := application.stylesheetCompilerProvider(transform.DartSassOptions{
		Executable: application.configuration.Build.SassExecutable,
		Timeout:    application.configuration.Build.SassTimeout,
		Root:       root,
		Logger:     application.logger,
	})
	dependencies := transform.Dependencies{StylesheetCompiler: compiler}

	registry := taskgraph.NewRegistry()
	if registrationError := assets.Register(registry, dependencies); registrationError != nil {
		return taskscmd.Registry{}, multierr.Append(registrationError, compiler.Close())
	}
	if registrationError := registerConfiguredTasks(registry, application.configuration.Tasks, dependencies); registrationError != nil {
		return taskscmd.Registry{}, multierr.Append(registrationError, compiler.Close())
	}

	return taskscmd.Registry{Tasks: registry, Close: compiler.Close}, nil
}

func registerConfiguredTasks(registry *taskgraph.Registry, definitions []ApplicationTaskConfiguration, dependencies transform.Dependencies) error {
	for index, definition := range definitions {
		task, buildError := buildConfiguredTask(definition, dependencies)
		if buildError == nil {
			buildError = registry.Register(task)
		}
		if buildError != nil {
			return ConfiguredTaskError{Index: index, Name: strings.TrimSpace(definition.Name), Err: buildError}
		}
	}
	return nil
}

func buildConfiguredTask(definition ApplicationTaskConfiguration, dependencies transform.Dependencies) (taskgraph.Task, error) {
	name := strings.TrimSpace(definition.Name)
	if len(name) == 0 {
		return taskgraph.Task{}, errConfiguredTaskNameMissing
	}

	declaresPipeline := len(definition.Sources) > 0 || len(definition.Steps) > 0 || len(strings.TrimSpace(definition.Destination)) > 0
	declaresComposite := len(definition.DependsOn) > 0
	switch {
	case declaresPipeline && declaresComposite:
		return taskgraph.Task{}, errConfiguredTaskAmbiguous
	case declaresComposite:
		return taskgraph.NewCompositeTask(name, trimAll(definition.DependsOn)...).WithDescription(definition.Description), nil
	case !declaresPipeline:
		return taskgraph.Task{}, errConfiguredTaskEmpty
	}

	sources := trimAll(definition.Sources)
	if len(sources) == 0 {
		return taskgraph.Task{}, errConfiguredTaskSourcesMissing
	}
	destination := strings.TrimSpace(definition.Destination)
	if len(destination) == 0 {
		return taskgraph.Task{}, errConfiguredTaskDestinationMissing
	}

	steps := make([]taskgraph.Step, 0, len(definition.Steps))
	for stepIndex, stepDefinition := range definition.Steps {
		step, stepError := transform.Build(strings.TrimSpace(stepDefinition.Transform), stepDefinition.With, dependencies)
		if stepError != nil {
			return taskgraph.Task{}, fmt.Errorf(configuredStepErrorTemplateConstant, stepIndex, stepError)
		}
		steps = append(steps, step)
	}

	return taskgraph.NewPipelineTask(name, taskgraph.Pipeline{
		Sources:     sources,
		Steps:       steps,
		Destination: destination,
	}).WithDescription(definition.Description), nil
}

func trimAll(values []string) []string {
	trimmed := make([]string, 0, len(values))
	for _, value := range values {
		if candidate := strings.TrimSpace(value); len(candidate) > 0 {
			trimmed = append(trimmed, candidate)
		}
	}
	return trimmed
}
