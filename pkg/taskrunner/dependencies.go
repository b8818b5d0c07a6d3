package taskrunner

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tyemirov/assetpipe/internal/taskgraph"
)

var (
	errRegistryMissing  = errors.New("taskrunner.dependencies: task registry is required")
	errRootNotDirectory = errors.New("taskrunner.dependencies: build root is not a directory")
)

// DependenciesConfig captures providers required to build runner dependencies.
type DependenciesConfig struct {
	LoggerProvider func() *zap.Logger
	Registry       *taskgraph.Registry
	// FileSystem replaces the root-scoped OS filesystem when set.
	FileSystem afero.Fs
}

// DependenciesOptions allows per-command overrides when resolving dependencies.
type DependenciesOptions struct {
	Command        *cobra.Command
	Output         io.Writer
	Errors         io.Writer
	Root           string
	DisableSummary bool
}

// BuildDependencies resolves the filesystem, logger and writers for task execution.
// Without an explicit FileSystem every path is resolved under Root.
func BuildDependencies(config DependenciesConfig, options DependenciesOptions) (Dependencies, error) {
	if config.Registry == nil {
		return Dependencies{}, errRegistryMissing
	}

	fileSystem := config.FileSystem
	if fileSystem == nil {
		rootedFileSystem, rootError := rootFileSystem(options.Root)
		if rootError != nil {
			return Dependencies{}, rootError
		}
		fileSystem = rootedFileSystem
	}

	return Dependencies{
		Registry:       config.Registry,
		FileSystem:     fileSystem,
		Logger:         resolveLogger(config.LoggerProvider),
		Output:         resolveWriter(options.Output, options.Command, true),
		Errors:         resolveWriter(options.Errors, options.Command, false),
		DisableSummary: options.DisableSummary,
	}, nil
}

func rootFileSystem(root string) (afero.Fs, error) {
	trimmedRoot := strings.TrimSpace(root)
	if len(trimmedRoot) == 0 {
		trimmedRoot = "."
	}
	absoluteRoot, absError := filepath.Abs(trimmedRoot)
	if absError != nil {
		return nil, fmt.Errorf("taskrunner.dependencies.root: %w", absError)
	}
	info, statError := os.Stat(absoluteRoot)
	if statError != nil {
		return nil, fmt.Errorf("taskrunner.dependencies.root: %w", statError)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", errRootNotDirectory, absoluteRoot)
	}
	return afero.NewBasePathFs(afero.NewOsFs(), absoluteRoot), nil
}

func resolveLogger(provider func() *zap.Logger) *zap.Logger {
	if provider == nil {
		return zap.NewNop()
	}
	logger := provider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func resolveWriter(provided io.Writer, command *cobra.Command, useStdout bool) io.Writer {
	if provided != nil {
		return provided
	}
	if command != nil {
		if useStdout {
			if writer := command.OutOrStdout(); writer != nil && writer != io.Discard {
				return writer
			}
		} else {
			if writer := command.ErrOrStderr(); writer != nil && writer != io.Discard {
				return writer
			}
		}
	}
	if useStdout {
		return os.Stdout
	}
	return os.Stderr
}
