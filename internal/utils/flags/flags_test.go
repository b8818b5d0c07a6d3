package flags

import (
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/tyemirov/assetpipe/internal/utils"
)

func newFlaggedCommands(testInstance *testing.T) (*cobra.Command, *cobra.Command, *RootFlagValues) {
	testInstance.Helper()
	rootCommand := &cobra.Command{Use: "root"}
	childCommand := &cobra.Command{Use: "child", RunE: func(*cobra.Command, []string) error { return nil }}
	rootCommand.AddCommand(childCommand)

	rootValues := BindRootFlag(rootCommand, RootFlagValues{Root: "."}, RootFlagDefinition{
		Name:       RootFlagName,
		Usage:      RootFlagUsage,
		Enabled:    true,
		Persistent: true,
	})
	BindExecutionFlags(rootCommand, ExecutionDefaults{}, ExecutionFlagDefinitions{
		DryRun: ExecutionFlagDefinition{Name: DryRunFlagName, Usage: DryRunFlagUsage, Shorthand: "n", Enabled: true},
	})
	return rootCommand, childCommand, rootValues
}

func TestPersistentFlagsReachChildCommands(testInstance *testing.T) {
	rootCommand, childCommand, rootValues := newFlaggedCommands(testInstance)
	rootCommand.SetArgs([]string{"child", "--root", "frontend", "-n"})
	require.NoError(testInstance, rootCommand.Execute())

	require.Equal(testInstance, "frontend", rootValues.Root)

	rootValue, rootChanged, rootError := StringFlag(childCommand, RootFlagName)
	require.NoError(testInstance, rootError)
	require.True(testInstance, rootChanged)
	require.Equal(testInstance, "frontend", rootValue)

	executionFlags := CollectExecutionFlags(childCommand)
	require.Equal(testInstance, utils.ExecutionFlags{DryRun: true, DryRunSet: true}, executionFlags)
}

func TestFlagLookupsReportMissingFlags(testInstance *testing.T) {
	command := &cobra.Command{Use: "bare"}

	_, _, boolError := BoolFlag(command, DryRunFlagName)
	require.ErrorIs(testInstance, boolError, ErrFlagNotDefined)

	_, _, stringError := StringFlag(nil, RootFlagName)
	require.ErrorIs(testInstance, stringError, ErrFlagNotDefined)

	require.Equal(testInstance, utils.ExecutionFlags{}, CollectExecutionFlags(command))
}

func TestDisabledDefinitionsBindNothing(testInstance *testing.T) {
	command := &cobra.Command{Use: "bare"}
	values := BindRootFlag(command, RootFlagValues{Root: "."}, RootFlagDefinition{Name: RootFlagName})
	BindExecutionFlags(command, ExecutionDefaults{}, ExecutionFlagDefinitions{DryRun: ExecutionFlagDefinition{Name: DryRunFlagName}})

	require.Equal(testInstance, ".", values.Root)
	require.Nil(testInstance, command.Flags().Lookup(RootFlagName))
	require.Nil(testInstance, command.PersistentFlags().Lookup(DryRunFlagName))
}

func TestResolveExecutionFlagsPrefersContext(testInstance *testing.T) {
	rootCommand, childCommand, _ := newFlaggedCommands(testInstance)
	rootCommand.SetArgs([]string{"child"})
	require.NoError(testInstance, rootCommand.Execute())

	resolved, overridden := ResolveExecutionFlags(childCommand)
	require.False(testInstance, overridden)
	require.False(testInstance, resolved.DryRun)

	contextFlags := utils.ExecutionFlags{DryRun: true}
	childCommand.SetContext(utils.NewCommandContextAccessor().WithExecutionFlags(context.Background(), contextFlags))
	resolved, overridden = ResolveExecutionFlags(childCommand)
	require.True(testInstance, overridden)
	require.Equal(testInstance, contextFlags, resolved)
}

func TestFormatChoiceUsage(testInstance *testing.T) {
	require.Equal(
		testInstance,
		"Output format (one of: text, yaml; default text)",
		FormatChoiceUsage("text", []string{"text", "yaml"}, " Output format "),
	)
}
