package roots

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	flagutils "github.com/tyemirov/assetpipe/internal/utils/flags"
)

const (
	defaultRootConstant              = "."
	homeDirectoryPrefixConstant      = "~"
	rootNotDirectoryMessageTemplate  = "%w: %s"
	rootUnavailableMessageTemplate   = "build root %s is unavailable: %w"
	rootAbsolutePathMessageTemplate  = "unable to resolve build root %s: %w"
	homeDirectoryUnavailableTemplate = "unable to expand %s: %w"
)

// ErrRootNotDirectory indicates the resolved root exists but is not a directory.
var ErrRootNotDirectory = errors.New("build root is not a directory")

// Resolve determines the build root for a command: the --root flag wins over the
// configured value, and the working directory is the fallback.
func Resolve(command *cobra.Command, configured string) (string, error) {
	candidate := strings.TrimSpace(configured)
	if flagValue, flagChanged, flagError := flagutils.StringFlag(command, flagutils.RootFlagName); flagError == nil && flagChanged {
		if trimmedFlagValue := strings.TrimSpace(flagValue); len(trimmedFlagValue) > 0 {
			candidate = trimmedFlagValue
		}
	}
	if len(candidate) == 0 {
		candidate = defaultRootConstant
	}

	expanded, expandError := expandHome(candidate)
	if expandError != nil {
		return "", expandError
	}

	absolutePath, absoluteError := filepath.Abs(expanded)
	if absoluteError != nil {
		return "", fmt.Errorf(rootAbsolutePathMessageTemplate, candidate, absoluteError)
	}

	fileInfo, statError := os.Stat(absolutePath)
	if statError != nil {
		return "", fmt.Errorf(rootUnavailableMessageTemplate, absolutePath, statError)
	}
	if !fileInfo.IsDir() {
		return "", fmt.Errorf(rootNotDirectoryMessageTemplate, ErrRootNotDirectory, absolutePath)
	}

	return absolutePath, nil
}

func expandHome(path string) (string, error) {
	if path != homeDirectoryPrefixConstant && !strings.HasPrefix(path, homeDirectoryPrefixConstant+string(filepath.Separator)) {
		return path, nil
	}
	homeDirectory, homeError := os.UserHomeDir()
	if homeError != nil {
		return "", fmt.Errorf(homeDirectoryUnavailableTemplate, path, homeError)
	}
	return filepath.Join(homeDirectory, strings.TrimPrefix(path, homeDirectoryPrefixConstant)), nil
}
