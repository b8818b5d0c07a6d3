package transform

import (
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/tyemirov/assetpipe/internal/taskgraph"
)

// Step kinds accepted by Build.
const (
	KindSourceMapsInit    = "sourcemaps-init"
	KindTranspile         = "transpile"
	KindMinify            = "minify"
	KindConcat            = "concat"
	KindSourceMapsWrite   = "sourcemaps-write"
	KindCompileStylesheet = "compile-stylesheet"
	KindCopy              = "copy"
)

// SourceMapsWriteOptions configures the SourceMapsWrite step.
type SourceMapsWriteOptions struct {
	Directory string `mapstructure:"directory"`
}

// Dependencies supplies collaborators that some steps need.
type Dependencies struct {
	StylesheetCompiler StylesheetCompiler
}

type stepConstructor func(options map[string]any, dependencies Dependencies) (taskgraph.Step, error)

var stepConstructors = map[string]stepConstructor{
	KindSourceMapsInit: func(options map[string]any, _ Dependencies) (taskgraph.Step, error) {
		return NewSourceMapsInit(), decodeOptions(KindSourceMapsInit, options, &struct{}{})
	},
	KindTranspile: func(options map[string]any, _ Dependencies) (taskgraph.Step, error) {
		var transpileOptions TranspileOptions
		if decodeError := decodeOptions(KindTranspile, options, &transpileOptions); decodeError != nil {
			return nil, decodeError
		}
		return NewTranspile(transpileOptions)
	},
	KindMinify: func(options map[string]any, _ Dependencies) (taskgraph.Step, error) {
		var minifyOptions MinifyOptions
		if decodeError := decodeOptions(KindMinify, options, &minifyOptions); decodeError != nil {
			return nil, decodeError
		}
		return NewMinify(minifyOptions)
	},
	KindConcat: func(options map[string]any, _ Dependencies) (taskgraph.Step, error) {
		var concatOptions ConcatOptions
		if decodeError := decodeOptions(KindConcat, options, &concatOptions); decodeError != nil {
			return nil, decodeError
		}
		return NewConcat(concatOptions)
	},
	KindSourceMapsWrite: func(options map[string]any, _ Dependencies) (taskgraph.Step, error) {
		var writeOptions SourceMapsWriteOptions
		if decodeError := decodeOptions(KindSourceMapsWrite, options, &writeOptions); decodeError != nil {
			return nil, decodeError
		}
		return NewSourceMapsWrite(writeOptions.Directory), nil
	},
	KindCompileStylesheet: func(options map[string]any, dependencies Dependencies) (taskgraph.Step, error) {
		var stylesheetOptions StylesheetOptions
		if decodeError := decodeOptions(KindCompileStylesheet, options, &stylesheetOptions); decodeError != nil {
			return nil, decodeError
		}
		return NewCompileStylesheet(dependencies.StylesheetCompiler, stylesheetOptions)
	},
	KindCopy: func(options map[string]any, _ Dependencies) (taskgraph.Step, error) {
		return NewCopy(), decodeOptions(KindCopy, options, &struct{}{})
	},
}

// Build constructs the step named kind from declarative options, as found under a
// step's "with" key in configuration. Unknown option keys are rejected.
func Build(kind string, options map[string]any, dependencies Dependencies) (taskgraph.Step, error) {
	normalizedKind := strings.ToLower(strings.TrimSpace(kind))
	constructor, known := stepConstructors[normalizedKind]
	if !known {
		return nil, UnknownTransformError{Kind: kind}
	}
	step, buildError := constructor(options, dependencies)
	if buildError != nil {
		return nil, buildError
	}
	return step, nil
}

// Kinds lists the accepted step kinds in lexical order.
func Kinds() []string {
	kinds := make([]string, 0, len(stepConstructors))
	for kind := range stepConstructors {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

func decodeOptions(kind string, options map[string]any, target any) error {
	if len(options) == 0 {
		return nil
	}
	decoder, decoderError := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           target,
	})
	if decoderError != nil {
		return &InvalidOptionsError{Kind: kind, Err: decoderError}
	}
	if decodeError := decoder.Decode(options); decodeError != nil {
		return &InvalidOptionsError{Kind: kind, Err: decodeError}
	}
	return nil
}

var (
	_ taskgraph.Step     = SourceMapsInit{}
	_ taskgraph.Step     = Transpile{}
	_ taskgraph.Step     = Minify{}
	_ taskgraph.Step     = Concat{}
	_ taskgraph.Step     = SourceMapsWrite{}
	_ taskgraph.Step     = CompileStylesheet{}
	_ taskgraph.Step     = Copy{}
	_ StylesheetCompiler = (*DartSassCompiler)(nil)
)
