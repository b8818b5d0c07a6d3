package tasks

import (
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/tyemirov/assetpipe/internal/taskgraph"
)

// LoggerProvider yields the diagnostic logger for a command invocation.
type LoggerProvider func() *zap.Logger

// Registry bundles a populated task registry with the cleanup for the collaborators
// its steps hold (the Sass compiler process).
type Registry struct {
	Tasks *taskgraph.Registry
	Close func() error
}

// RegistryProvider builds the task registry for the given absolute build root.
type RegistryProvider func(root string) (Registry, error)

// CommandConfiguration captures configuration values for the task commands.
type CommandConfiguration struct {
	Root string `mapstructure:"root"`
	// DryRun applies when no --dry-run flag was given.
	DryRun bool `mapstructure:"dry_run"`
}

// DefaultCommandConfiguration provides default settings for the task commands.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{Root: "."}
}

// FileSystemProvider returns the filesystem rooted at root. Tests use it to run against
// memory instead of the OS.
type FileSystemProvider func(root string) afero.Fs
