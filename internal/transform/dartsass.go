package transform

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bep/godartsass/v2"
	"go.uber.org/zap"
)

const (
	defaultDartSassExecutableConstant = "sass"
	defaultDartSassTimeoutConstant    = 30 * time.Second
	dartSassStartErrorTemplate        = "%w: start dart sass %q: %w"
	dartSassClosedErrorTemplate       = "%w: %w"
	dartSassMessageConstant           = "dart sass"
	dartSassEventTypeFieldConstant    = "event"
	dartSassEventMessageFieldConstant = "message"
	fileURLSchemeConstant             = "file"
)

// ErrDartSassClosed indicates a compile request after Close.
var ErrDartSassClosed = errors.New("dart sass compiler is closed")

// DartSassOptions configures the embedded Dart Sass compiler.
type DartSassOptions struct {
	// Executable is the Dart Sass binary speaking the embedded protocol.
	Executable string
	Timeout    time.Duration
	// Root resolves relative request paths and include paths.
	Root   string
	Logger *zap.Logger
}

// DartSassCompiler compiles stylesheets through a long-lived Dart Sass process. The
// process starts on the first request.
type DartSassCompiler struct {
	options    DartSassOptions
	mutex      sync.Mutex
	transpiler *godartsass.Transpiler
	closed     bool
}

// NewDartSassCompiler constructs a compiler; no process is started yet.
func NewDartSassCompiler(options DartSassOptions) *DartSassCompiler {
	if len(strings.TrimSpace(options.Executable)) == 0 {
		options.Executable = defaultDartSassExecutableConstant
	}
	if options.Timeout <= 0 {
		options.Timeout = defaultDartSassTimeoutConstant
	}
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}
	return &DartSassCompiler{options: options}
}

// Compile implements StylesheetCompiler.
func (compiler *DartSassCompiler) Compile(ctx context.Context, request StylesheetRequest) (StylesheetResult, error) {
	if contextError := ctx.Err(); contextError != nil {
		return StylesheetResult{}, contextError
	}
	transpiler, startError := compiler.ensureStarted()
	if startError != nil {
		return StylesheetResult{}, startError
	}

	arguments := godartsass.Args{
		Source:                  request.Source,
		URL:                     compiler.fileURL(request.Path),
		OutputStyle:             dartSassOutputStyle(request.OutputStyle),
		SourceSyntax:            godartsass.SourceSyntaxSCSS,
		IncludePaths:            compiler.includePaths(request.IncludePaths),
		EnableSourceMap:         request.SourceMap,
		SourceMapIncludeSources: request.SourceMap,
	}
	if request.Indented {
		arguments.SourceSyntax = godartsass.SourceSyntaxSASS
	}

	result, executeError := transpiler.Execute(arguments)
	if executeError != nil {
		return StylesheetResult{}, executeError
	}
	return StylesheetResult{CSS: result.CSS, SourceMap: result.SourceMap}, nil
}

// Close stops the Dart Sass process if it was started.
func (compiler *DartSassCompiler) Close() error {
	compiler.mutex.Lock()
	defer compiler.mutex.Unlock()

	compiler.closed = true
	if compiler.transpiler == nil {
		return nil
	}
	closeError := compiler.transpiler.Close()
	compiler.transpiler = nil
	return closeError
}

func (compiler *DartSassCompiler) ensureStarted() (*godartsass.Transpiler, error) {
	compiler.mutex.Lock()
	defer compiler.mutex.Unlock()

	if compiler.closed {
		return nil, fmt.Errorf(dartSassClosedErrorTemplate, ErrStylesheetCompilerUnavailable, ErrDartSassClosed)
	}
	if compiler.transpiler != nil {
		return compiler.transpiler, nil
	}

	logger := compiler.options.Logger
	transpiler, startError := godartsass.Start(godartsass.Options{
		DartSassEmbeddedFilename: compiler.options.Executable,
		Timeout:                  compiler.options.Timeout,
		LogEventHandler: func(event godartsass.LogEvent) {
			logger.Warn(dartSassMessageConstant, zap.Int(dartSassEventTypeFieldConstant, int(event.Type)), zap.String(dartSassEventMessageFieldConstant, event.Message))
		},
	})
	if startError != nil {
		return nil, fmt.Errorf(dartSassStartErrorTemplate, ErrStylesheetCompilerUnavailable, compiler.options.Executable, startError)
	}
	compiler.transpiler = transpiler
	return transpiler, nil
}

func (compiler *DartSassCompiler) resolve(relativePath string) string {
	if filepath.IsAbs(relativePath) {
		return relativePath
	}
	root := compiler.options.Root
	if len(strings.TrimSpace(root)) == 0 {
		root = "."
	}
	absolutePath, absError := filepath.Abs(filepath.Join(root, filepath.FromSlash(relativePath)))
	if absError != nil {
		return filepath.Join(root, filepath.FromSlash(relativePath))
	}
	return absolutePath
}

func (compiler *DartSassCompiler) fileURL(relativePath string) string {
	if len(strings.TrimSpace(relativePath)) == 0 {
		return ""
	}
	location := url.URL{Scheme: fileURLSchemeConstant, Path: filepath.ToSlash(compiler.resolve(relativePath))}
	return location.String()
}

func (compiler *DartSassCompiler) includePaths(includePaths []string) []string {
	resolved := make([]string, 0, len(includePaths))
	for _, includePath := range includePaths {
		resolved = append(resolved, compiler.resolve(includePath))
	}
	return resolved
}

func dartSassOutputStyle(outputStyle string) godartsass.OutputStyle {
	if outputStyle == OutputStyleCompressed {
		return godartsass.OutputStyleCompressed
	}
	return godartsass.OutputStyleExpanded
}
