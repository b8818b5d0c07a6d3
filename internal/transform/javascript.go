package transform

import (
	"context"
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/tyemirov/assetpipe/internal/fileset"
	"github.com/tyemirov/assetpipe/internal/taskgraph"
)

const (
	defaultTargetConstant      = "es2015"
	defaultJSXFactoryConstant  = "React.createElement"
	defaultJSXFragmentConstant = "React.Fragment"
	javascriptExtension        = ".js"
)

var esbuildTargets = map[string]api.Target{
	"es5":    api.ES5,
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"esnext": api.ESNext,
}

var esbuildLoaders = map[string]api.Loader{
	".js":  api.LoaderJS,
	".mjs": api.LoaderJS,
	".cjs": api.LoaderJS,
	".jsx": api.LoaderJSX,
	".ts":  api.LoaderTS,
	".tsx": api.LoaderTSX,
}

// TranspileOptions configures the Transpile step.
type TranspileOptions struct {
	// Loader forces a source dialect (js, jsx, ts, tsx); by default it follows the extension.
	Loader      string `mapstructure:"loader"`
	Target      string `mapstructure:"target"`
	JSXFactory  string `mapstructure:"jsx_factory"`
	JSXFragment string `mapstructure:"jsx_fragment"`
}

// Transpile lowers modern JavaScript and JSX to the configured language target and
// renames outputs to ".js". ES module syntax is rewritten to CommonJS. Files esbuild
// cannot load pass through unchanged.
type Transpile struct {
	options TranspileOptions
	target  api.Target
	loader  api.Loader
}

// NewTranspile validates options and constructs the step.
func NewTranspile(options TranspileOptions) (Transpile, error) {
	target, targetError := resolveTarget(options.Target)
	if targetError != nil {
		return Transpile{}, targetError
	}
	step := Transpile{options: options, target: target, loader: api.LoaderNone}
	if trimmedLoader := strings.ToLower(strings.TrimSpace(options.Loader)); len(trimmedLoader) > 0 {
		loader, known := esbuildLoaders["."+trimmedLoader]
		if !known {
			return Transpile{}, fmt.Errorf("%w: %s", ErrUnsupportedLoader, options.Loader)
		}
		step.loader = loader
	}
	if len(strings.TrimSpace(step.options.JSXFactory)) == 0 {
		step.options.JSXFactory = defaultJSXFactoryConstant
	}
	if len(strings.TrimSpace(step.options.JSXFragment)) == 0 {
		step.options.JSXFragment = defaultJSXFragmentConstant
	}
	return step, nil
}

// Name returns the step kind.
func (Transpile) Name() string {
	return KindTranspile
}

// Apply transpiles every loadable file.
func (step Transpile) Apply(ctx context.Context, _ taskgraph.StepEnvironment, files []*fileset.File) ([]*fileset.File, error) {
	transpiled := make([]*fileset.File, 0, len(files))
	for _, file := range files {
		if contextError := ctx.Err(); contextError != nil {
			return nil, contextError
		}
		loader := step.loader
		if loader == api.LoaderNone {
			detected, loadable := esbuildLoaders[file.Extension()]
			if !loadable {
				transpiled = append(transpiled, file.Clone())
				continue
			}
			loader = detected
		}

		output, transformError := runEsbuild(file, api.TransformOptions{
			Loader:      loader,
			Target:      step.target,
			Format:      api.FormatCommonJS,
			JSX:         api.JSXTransform,
			JSXFactory:  step.options.JSXFactory,
			JSXFragment: step.options.JSXFragment,
		})
		if transformError != nil {
			return nil, transformError
		}
		output.Path = file.WithExtension(javascriptExtension)
		transpiled = append(transpiled, output)
	}
	return transpiled, nil
}

// MinifyOptions configures the Minify step.
type MinifyOptions struct {
	Target string `mapstructure:"target"`
	// KeepNames preserves function and class names for stack traces.
	KeepNames bool `mapstructure:"keep_names"`
}

// Minify compresses JavaScript files: whitespace, identifiers and syntax.
type Minify struct {
	options MinifyOptions
	target  api.Target
}

// NewMinify validates options and constructs the step.
func NewMinify(options MinifyOptions) (Minify, error) {
	target, targetError := resolveTarget(options.Target)
	if targetError != nil {
		return Minify{}, targetError
	}
	return Minify{options: options, target: target}, nil
}

// Name returns the step kind.
func (Minify) Name() string {
	return KindMinify
}

// Apply minifies ".js" files and passes anything else through.
func (step Minify) Apply(ctx context.Context, _ taskgraph.StepEnvironment, files []*fileset.File) ([]*fileset.File, error) {
	minified := make([]*fileset.File, 0, len(files))
	for _, file := range files {
		if contextError := ctx.Err(); contextError != nil {
			return nil, contextError
		}
		if file.Extension() != javascriptExtension {
			minified = append(minified, file.Clone())
			continue
		}
		output, transformError := runEsbuild(file, api.TransformOptions{
			Loader:            api.LoaderJS,
			Target:            step.target,
			MinifyWhitespace:  true,
			MinifyIdentifiers: true,
			MinifySyntax:      true,
			KeepNames:         step.options.KeepNames,
		})
		if transformError != nil {
			return nil, transformError
		}
		minified = append(minified, output)
	}
	return minified, nil
}

func resolveTarget(target string) (api.Target, error) {
	normalizedTarget := strings.ToLower(strings.TrimSpace(target))
	if len(normalizedTarget) == 0 {
		normalizedTarget = defaultTargetConstant
	}
	resolved, known := esbuildTargets[normalizedTarget]
	if !known {
		return api.DefaultTarget, fmt.Errorf("%w: %s", ErrUnsupportedTarget, target)
	}
	return resolved, nil
}

// runEsbuild transforms one file. When the file is tracked, the incoming map is handed
// to esbuild inline and the composed map replaces it.
func runEsbuild(file *fileset.File, options api.TransformOptions) (*fileset.File, error) {
	options.Sourcefile = file.Path
	options.LogLevel = api.LogLevelSilent
	if file.TrackSourceMap {
		options.Sourcemap = api.SourceMapExternal
		options.SourcesContent = api.SourcesContentInclude
	}

	result := api.Transform(inlineSourceMap(file), options)
	if len(result.Errors) > 0 {
		return nil, &CompileError{
			Path:     file.Path,
			Messages: api.FormatMessages(result.Errors, api.FormatMessagesOptions{Kind: api.ErrorMessage}),
		}
	}

	output := file.Clone()
	output.Contents = result.Code
	if file.TrackSourceMap {
		output.SourceMap = result.Map
	}
	return output, nil
}
