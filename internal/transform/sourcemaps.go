package transform

import (
	"context"
	"encoding/base64"
	"path"
	"strings"

	"github.com/tyemirov/assetpipe/internal/fileset"
	"github.com/tyemirov/assetpipe/internal/taskgraph"
)

const (
	sourceMapExtensionConstant     = ".map"
	sourceMapDataURLPrefixConstant = "data:application/json;charset=utf-8;base64,"
	stylesheetMappingCommentPrefix = "/*# sourceMappingURL="
	stylesheetMappingCommentSuffix = " */"
	scriptMappingCommentPrefix     = "//# sourceMappingURL="
	stylesheetExtensionConstant    = ".css"
)

// SourceMapsInit marks every file for sourcemap tracking. Later steps that rewrite
// contents compose their mapping into File.SourceMap while the flag is set.
type SourceMapsInit struct{}

// NewSourceMapsInit constructs the tracking step.
func NewSourceMapsInit() SourceMapsInit {
	return SourceMapsInit{}
}

// Name returns the step kind.
func (SourceMapsInit) Name() string {
	return KindSourceMapsInit
}

// Apply returns tracked copies of the input files.
func (SourceMapsInit) Apply(_ context.Context, _ taskgraph.StepEnvironment, files []*fileset.File) ([]*fileset.File, error) {
	tracked := cloneFiles(files)
	for _, file := range tracked {
		file.TrackSourceMap = true
	}
	return tracked, nil
}

// SourceMapsWrite materializes tracked sourcemaps. With an empty Directory the map is
// inlined as a data URL; otherwise it is emitted as "<file>.map" under Directory,
// resolved relative to the file, and the file gets a sourceMappingURL comment.
type SourceMapsWrite struct {
	Directory string
}

// NewSourceMapsWrite constructs the step.
func NewSourceMapsWrite(directory string) SourceMapsWrite {
	return SourceMapsWrite{Directory: strings.TrimSpace(directory)}
}

// Name returns the step kind.
func (SourceMapsWrite) Name() string {
	return KindSourceMapsWrite
}

// Apply appends mapping comments and emits map files after their owners.
func (step SourceMapsWrite) Apply(_ context.Context, _ taskgraph.StepEnvironment, files []*fileset.File) ([]*fileset.File, error) {
	written := make([]*fileset.File, 0, len(files)*2)
	for _, file := range files {
		if file == nil {
			continue
		}
		output := file.Clone()
		if !output.TrackSourceMap || len(output.SourceMap) == 0 {
			written = append(written, output)
			continue
		}

		sourceMap := output.SourceMap
		output.SourceMap = nil
		output.TrackSourceMap = false

		if len(step.Directory) == 0 {
			dataURL := sourceMapDataURLPrefixConstant + base64.StdEncoding.EncodeToString(sourceMap)
			output.Contents = appendMappingComment(output.Contents, dataURL, output.Extension() == stylesheetExtensionConstant)
			written = append(written, output)
			continue
		}

		mapReference := path.Join(step.Directory, output.Name()+sourceMapExtensionConstant)
		mapPath := path.Join(path.Dir(output.Path), mapReference)
		output.Contents = appendMappingComment(output.Contents, mapReference, output.Extension() == stylesheetExtensionConstant)
		written = append(written, output, &fileset.File{Path: mapPath, Contents: sourceMap})
	}
	return written, nil
}

func appendMappingComment(contents []byte, reference string, stylesheet bool) []byte {
	updated := append([]byte(nil), contents...)
	if len(updated) > 0 && updated[len(updated)-1] != '\n' {
		updated = append(updated, '\n')
	}
	if stylesheet {
		updated = append(updated, stylesheetMappingCommentPrefix+reference+stylesheetMappingCommentSuffix...)
	} else {
		updated = append(updated, scriptMappingCommentPrefix+reference...)
	}
	return append(updated, '\n')
}

// inlineSourceMap returns contents with the prior map attached as a data URL so the
// next esbuild pass composes it.
func inlineSourceMap(file *fileset.File) string {
	if !file.TrackSourceMap || len(file.SourceMap) == 0 {
		return string(file.Contents)
	}
	dataURL := sourceMapDataURLPrefixConstant + base64.StdEncoding.EncodeToString(file.SourceMap)
	return string(appendMappingComment(file.Contents, dataURL, false))
}
