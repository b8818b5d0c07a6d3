package transform

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConcatFileRequired indicates a concat step without an output file name.
	ErrConcatFileRequired = errors.New("concat requires an output file name")
	// ErrStylesheetCompilerMissing indicates a stylesheet step built without a compiler.
	ErrStylesheetCompilerMissing = errors.New("stylesheet compiler is not configured")
	// ErrStylesheetCompilerUnavailable indicates a stylesheet compiler that cannot accept requests.
	ErrStylesheetCompilerUnavailable = errors.New("stylesheet compiler is unavailable")
	// ErrUnsupportedTarget indicates a JavaScript language target esbuild does not know.
	ErrUnsupportedTarget = errors.New("unsupported javascript target")
	// ErrUnsupportedLoader indicates a source loader esbuild does not know.
	ErrUnsupportedLoader = errors.New("unsupported javascript loader")
)

// CompileError reports diagnostics produced while transforming one file.
type CompileError struct {
	Path     string
	Messages []string
}

// Error implements the error interface.
func (compileError *CompileError) Error() string {
	return fmt.Sprintf("%s: %s", compileError.Path, strings.TrimSpace(strings.Join(compileError.Messages, "\n")))
}

// UnknownTransformError reports a step kind with no registered constructor.
type UnknownTransformError struct {
	Kind string
}

// Error implements the error interface.
func (unknownError UnknownTransformError) Error() string {
	return fmt.Sprintf("unknown transform %q", unknownError.Kind)
}

// InvalidOptionsError reports step options that could not be decoded.
type InvalidOptionsError struct {
	Kind string
	Err  error
}

// Error implements the error interface.
func (optionsError *InvalidOptionsError) Error() string {
	return fmt.Sprintf("invalid options for transform %q: %v", optionsError.Kind, optionsError.Err)
}

// Unwrap exposes the decoding error.
func (optionsError *InvalidOptionsError) Unwrap() error {
	return optionsError.Err
}

var errInvalidSourceMap = errors.New("sourcemap is not valid JSON")
