package tasks

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/tyemirov/assetpipe/internal/taskgraph"
	"github.com/tyemirov/assetpipe/internal/utils"
	flagutils "github.com/tyemirov/assetpipe/internal/utils/flags"
	rootutils "github.com/tyemirov/assetpipe/internal/utils/roots"
	"github.com/tyemirov/assetpipe/pkg/taskrunner"
)

const (
	runCommandUseConstant              = "run [task]"
	runCommandShortDescriptionConstant = "Run a build task and everything it depends on"
	runCommandLongDescriptionConstant  = "run executes the named task, or \"default\" when no name is given. Composite tasks run their dependencies in listed order; the first failing step stops the run."
	runCommandExampleConstant          = "assetpipe run javascript\n  assetpipe run fonts --root ./frontend\n  assetpipe run --dry-run"
	registryMissingMessageConstant     = "task registry provider is not configured"
	registryBuildErrorTemplateConstant = "unable to build task registry: %w"
	dependenciesErrorTemplateConstant  = "unable to prepare task execution: %w"
	planLineTemplateConstant           = "%s%s (%s)%s\n"
	planPipelineDetailTemplateConstant = ": %s -> %s"
	planStepSeparatorConstant          = " | "
	planIndentConstant                 = "  "
	planNoStepsConstant                = "copy-through"
)

// RunCommandBuilder assembles the run command.
type RunCommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider func() CommandConfiguration
	RegistryProvider      RegistryProvider
	FileSystemProvider    FileSystemProvider
	ExecutorFactory       taskrunner.Factory
}

// Build constructs the run command.
func (builder *RunCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:     runCommandUseConstant,
		Short:   runCommandShortDescriptionConstant,
		Long:    runCommandLongDescriptionConstant,
		Example: runCommandExampleConstant,
		Args:    cobra.MaximumNArgs(1),
		RunE:    builder.Run,
	}
	return command, nil
}

// Run executes the requested task for command. It backs both `run` and the root command.
func (builder *RunCommandBuilder) Run(command *cobra.Command, arguments []string) (runError error) {
	taskName := taskgraph.DefaultTaskName
	if len(arguments) > 0 && len(strings.TrimSpace(arguments[0])) > 0 {
		taskName = strings.TrimSpace(arguments[0])
	}

	configuration := resolveCommandConfiguration(builder.ConfigurationProvider, command)
	root, rootError := rootutils.Resolve(command, configuration.Root)
	if rootError != nil {
		return rootError
	}

	if builder.RegistryProvider == nil {
		return errors.New(registryMissingMessageConstant)
	}
	registry, registryError := builder.RegistryProvider(root)
	if registryError != nil {
		return fmt.Errorf(registryBuildErrorTemplateConstant, registryError)
	}
	if registry.Close != nil {
		defer func() {
			runError = multierr.Append(runError, registry.Close())
		}()
	}

	dryRun := configuration.DryRun
	if executionFlags, provided := flagutils.ResolveExecutionFlags(command); provided {
		dryRun = executionFlags.DryRun
	}
	if dryRun {
		return printPlan(command.OutOrStdout(), registry.Tasks, taskName)
	}

	dependenciesConfig := taskrunner.DependenciesConfig{
		LoggerProvider: builder.LoggerProvider,
		Registry:       registry.Tasks,
	}
	if builder.FileSystemProvider != nil {
		dependenciesConfig.FileSystem = builder.FileSystemProvider(root)
	}
	dependencies, dependenciesError := taskrunner.BuildDependencies(dependenciesConfig, taskrunner.DependenciesOptions{
		Command: command,
		Output:  utils.NewFlushingWriter(command.OutOrStdout()),
		Errors:  utils.NewFlushingWriter(command.ErrOrStderr()),
		Root:    root,
	})
	if dependenciesError != nil {
		return fmt.Errorf(dependenciesErrorTemplateConstant, dependenciesError)
	}

	executor := taskrunner.Resolve(builder.ExecutorFactory, dependencies)
	_, executionError := executor.Run(command.Context(), taskName)
	return executionError
}

func resolveCommandConfiguration(provider func() CommandConfiguration, command *cobra.Command) CommandConfiguration {
	configuration := DefaultCommandConfiguration()
	if provider != nil {
		configuration = provider()
	}
	if command != nil {
		if buildContext, available := utils.NewCommandContextAccessor().BuildContext(command.Context()); available {
			configuration.Root = buildContext.Root
		}
	}
	return configuration
}

func printPlan(writer io.Writer, registry *taskgraph.Registry, taskName string) error {
	plan, planError := registry.Plan(taskName)
	if planError != nil {
		return planError
	}
	for _, entry := range plan {
		task, _ := registry.Lookup(entry.Name)
		detail := ""
		if task.Kind() == taskgraph.TaskKindPipeline {
			steps := strings.Join(task.StepNames(), planStepSeparatorConstant)
			if len(steps) == 0 {
				steps = planNoStepsConstant
			}
			detail = fmt.Sprintf(planPipelineDetailTemplateConstant, steps, task.Pipeline.Destination)
		}
		if _, writeError := fmt.Fprintf(writer, planLineTemplateConstant, strings.Repeat(planIndentConstant, entry.Depth), entry.Name, entry.Kind, detail); writeError != nil {
			return writeError
		}
	}
	return nil
}
