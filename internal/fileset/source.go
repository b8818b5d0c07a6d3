package fileset

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
)

const (
	currentDirectoryConstant       = "."
	currentDirectoryPrefixConstant = "./"
	invalidPatternMessageConstant  = "pattern must be relative to the build root"
)

// ErrInvalidPattern indicates a pattern that cannot be evaluated against the build root.
var ErrInvalidPattern = errors.New(invalidPatternMessageConstant)

// Matches lazily enumerates files matched by the patterns, in pattern order and then
// lexical order within each pattern. File contents are read only when the sequence
// reaches the entry. Patterns that match nothing contribute nothing.
func Matches(fileSystem afero.Fs, patterns ...string) iter.Seq2[*File, error] {
	return func(yield func(*File, error) bool) {
		ioFileSystem := afero.NewIOFS(fileSystem)
		for _, pattern := range patterns {
			normalizedPattern, normalizeError := normalizePattern(pattern)
			if normalizeError != nil {
				yield(nil, &OperationError{Operation: OperationGlob, Path: pattern, Err: normalizeError})
				return
			}

			base, _ := doublestar.SplitPattern(normalizedPattern)
			matches, globError := doublestar.Glob(ioFileSystem, normalizedPattern)
			if globError != nil {
				yield(nil, &OperationError{Operation: OperationGlob, Path: normalizedPattern, Err: globError})
				return
			}
			sort.Strings(matches)

			for _, match := range matches {
				fileInfo, statError := fs.Stat(ioFileSystem, match)
				if statError != nil {
					yield(nil, &OperationError{Operation: OperationStat, Path: match, Err: statError})
					return
				}
				if fileInfo.IsDir() {
					continue
				}

				contents, readError := afero.ReadFile(fileSystem, match)
				if readError != nil {
					yield(nil, &OperationError{Operation: OperationRead, Path: match, Err: readError})
					return
				}

				if !yield(&File{Path: relativeToBase(base, match), Base: baseDirectory(base), Contents: contents}, nil) {
					return
				}
			}
		}
	}
}

// Open collects every file produced by Matches, stopping at the first error.
func Open(fileSystem afero.Fs, patterns ...string) ([]*File, error) {
	files := make([]*File, 0)
	for file, matchError := range Matches(fileSystem, patterns...) {
		if matchError != nil {
			return nil, matchError
		}
		files = append(files, file)
	}
	return files, nil
}

func normalizePattern(pattern string) (string, error) {
	trimmedPattern := filepath.ToSlash(strings.TrimSpace(pattern))
	for strings.HasPrefix(trimmedPattern, currentDirectoryPrefixConstant) {
		trimmedPattern = strings.TrimPrefix(trimmedPattern, currentDirectoryPrefixConstant)
	}
	if len(trimmedPattern) == 0 || path.IsAbs(trimmedPattern) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPattern, pattern)
	}
	cleanedPattern := path.Clean(trimmedPattern)
	if cleanedPattern == ".." || strings.HasPrefix(cleanedPattern, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPattern, pattern)
	}
	if !doublestar.ValidatePattern(cleanedPattern) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPattern, pattern)
	}
	return cleanedPattern, nil
}

func baseDirectory(base string) string {
	if base == currentDirectoryConstant {
		return ""
	}
	return base
}

func relativeToBase(base string, match string) string {
	if base == currentDirectoryConstant || len(base) == 0 {
		return match
	}
	return strings.TrimPrefix(match, base+"/")
}
