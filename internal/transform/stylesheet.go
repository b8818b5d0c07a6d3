package transform

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/tyemirov/assetpipe/internal/fileset"
	"github.com/tyemirov/assetpipe/internal/taskgraph"
)

const (
	scssExtensionConstant           = ".scss"
	sassExtensionConstant           = ".sass"
	partialPrefixConstant           = "_"
	stylesheetFailedMessageConstant = "stylesheet compilation failed"
	stylesheetFileFieldNameConstant = "file"
	stylesheetStepFieldNameConstant = "step"
)

// Sass output styles.
const (
	OutputStyleExpanded   = "expanded"
	OutputStyleCompressed = "compressed"
)

// StylesheetRequest describes one Sass compilation.
type StylesheetRequest struct {
	// Path locates the source relative to the build root; imports resolve against it.
	Path         string
	Source       string
	Indented     bool
	IncludePaths []string
	OutputStyle  string
	SourceMap    bool
}

// StylesheetResult is the compiled output of a StylesheetRequest.
type StylesheetResult struct {
	CSS       string
	SourceMap string
}

// StylesheetCompiler compiles Sass sources to CSS.
type StylesheetCompiler interface {
	Compile(ctx context.Context, request StylesheetRequest) (StylesheetResult, error)
}

// StylesheetOptions configures the CompileStylesheet step.
type StylesheetOptions struct {
	IncludePaths []string `mapstructure:"include_paths"`
	OutputStyle  string   `mapstructure:"output_style"`
}

// CompileStylesheet compiles ".scss" and ".sass" files to ".css". Partials (names
// starting with "_") are consumed, other files pass through. A compilation failure is
// logged and the failing file is dropped from the stream; the step itself never fails
// because of a stylesheet error.
type CompileStylesheet struct {
	compiler StylesheetCompiler
	options  StylesheetOptions
}

// NewCompileStylesheet constructs the step around compiler.
func NewCompileStylesheet(compiler StylesheetCompiler, options StylesheetOptions) (CompileStylesheet, error) {
	if compiler == nil {
		return CompileStylesheet{}, ErrStylesheetCompilerMissing
	}
	normalized := StylesheetOptions{OutputStyle: strings.ToLower(strings.TrimSpace(options.OutputStyle))}
	if len(normalized.OutputStyle) == 0 {
		normalized.OutputStyle = OutputStyleExpanded
	}
	for _, includePath := range options.IncludePaths {
		if trimmed := strings.TrimSpace(includePath); len(trimmed) > 0 {
			normalized.IncludePaths = append(normalized.IncludePaths, trimmed)
		}
	}
	return CompileStylesheet{compiler: compiler, options: normalized}, nil
}

// Name returns the step kind.
func (CompileStylesheet) Name() string {
	return KindCompileStylesheet
}

// Apply compiles every stylesheet in the stream.
func (step CompileStylesheet) Apply(ctx context.Context, environment taskgraph.StepEnvironment, files []*fileset.File) ([]*fileset.File, error) {
	logger := environment.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	compiled := make([]*fileset.File, 0, len(files))
	for _, file := range files {
		if contextError := ctx.Err(); contextError != nil {
			return nil, contextError
		}
		extension := file.Extension()
		if extension != scssExtensionConstant && extension != sassExtensionConstant {
			compiled = append(compiled, file.Clone())
			continue
		}
		if strings.HasPrefix(file.Name(), partialPrefixConstant) {
			continue
		}

		result, compileError := step.compiler.Compile(ctx, StylesheetRequest{
			Path:         file.SourcePath(),
			Source:       string(file.Contents),
			Indented:     extension == sassExtensionConstant,
			IncludePaths: append([]string(nil), step.options.IncludePaths...),
			OutputStyle:  step.options.OutputStyle,
			SourceMap:    file.TrackSourceMap,
		})
		if compileError != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(compileError, ErrStylesheetCompilerUnavailable) {
				return nil, compileError
			}
			logger.Error(
				stylesheetFailedMessageConstant,
				zap.String(stylesheetStepFieldNameConstant, KindCompileStylesheet),
				zap.String(stylesheetFileFieldNameConstant, file.SourcePath()),
				zap.Error(compileError),
			)
			continue
		}

		output := file.Clone()
		output.Path = file.WithExtension(stylesheetExtensionConstant)
		output.Contents = []byte(result.CSS)
		output.SourceMap = nil
		if file.TrackSourceMap && len(result.SourceMap) > 0 {
			output.SourceMap = []byte(result.SourceMap)
		}
		compiled = append(compiled, output)
	}
	return compiled, nil
}
