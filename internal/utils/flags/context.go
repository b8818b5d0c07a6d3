package flags

import "github.com/spf13/cobra"

const (
	// RootFlagName exposes the shared build root flag name.
	RootFlagName = "root"
	// RootFlagUsage describes the shared build root flag purpose.
	RootFlagUsage = "Directory that source patterns and destinations are resolved against"
	// DryRunFlagName exposes the shared dry-run flag name.
	DryRunFlagName = "dry-run"
	// DryRunFlagUsage describes the shared dry-run flag purpose.
	DryRunFlagUsage = "Print the execution plan without running any transforms"
)

// RootFlagDefinition captures configuration for the build root flag.
type RootFlagDefinition struct {
	Name       string
	Usage      string
	Enabled    bool
	Persistent bool
}

// RootFlagValues stores build root flag values.
type RootFlagValues struct {
	Root string
}

// BindRootFlag attaches the build root flag to the provided command.
func BindRootFlag(command *cobra.Command, defaults RootFlagValues, definition RootFlagDefinition) *RootFlagValues {
	values := defaults
	if command == nil {
		return &values
	}
	if !definition.Enabled || len(definition.Name) == 0 {
		return &values
	}

	flagSet := command.Flags()
	if definition.Persistent {
		flagSet = command.PersistentFlags()
	}
	flagSet.StringVar(&values.Root, definition.Name, defaults.Root, definition.Usage)
	return &values
}
