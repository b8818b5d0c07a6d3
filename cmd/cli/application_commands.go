package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	taskscmd "github.com/tyemirov/assetpipe/cmd/cli/tasks"
)

func (application *Application) registerCommands(cobraCommand *cobra.Command) {
	loggerProvider := func() *zap.Logger {
		return application.logger
	}

	application.runCommandBuilder = &taskscmd.RunCommandBuilder{
		LoggerProvider:        loggerProvider,
		ConfigurationProvider: application.commandConfiguration,
		RegistryProvider:      application.buildTaskRegistry,
	}
	if runCommand, runBuildError := application.runCommandBuilder.Build(); runBuildError == nil {
		cobraCommand.AddCommand(runCommand)
	}

	listBuilder := taskscmd.ListCommandBuilder{
		ConfigurationProvider: application.commandConfiguration,
		RegistryProvider:      application.buildTaskRegistry,
	}
	if listCommand, listBuildError := listBuilder.Build(); listBuildError == nil {
		cobraCommand.AddCommand(listCommand)
	}

	versionCommand := &cobra.Command{
		Use:           versionCommandUseNameConstant,
		Short:         versionCommandShortDescriptionConstant,
		Long:          versionCommandLongDescriptionConstant,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			application.printVersion(command.Context(), command.OutOrStdout())
			return nil
		},
	}
	cobraCommand.AddCommand(versionCommand)
}
