package transform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/tyemirov/assetpipe/internal/fileset"
	"github.com/tyemirov/assetpipe/internal/taskgraph"
)

const (
	concatSeparatorConstant     = "\n"
	sourceMapVersionConstant    = 3
	sourceMapFileFieldConstant  = "file"
	concatMapDecodeErrorMessage = "decode sourcemap of %s: %w"
)

// ConcatOptions configures the Concat step.
type ConcatOptions struct {
	File string `mapstructure:"file"`
}

// Concat joins the stream into a single file, separating inputs with a newline. When
// any input is tracked, the output carries an index sourcemap with one section per
// mapped input.
type Concat struct {
	file string
}

// NewConcat constructs the step.
func NewConcat(options ConcatOptions) (Concat, error) {
	fileName := path.Clean(strings.TrimSpace(options.File))
	if len(strings.TrimSpace(options.File)) == 0 || fileName == "." {
		return Concat{}, ErrConcatFileRequired
	}
	return Concat{file: fileName}, nil
}

// Name returns the step kind.
func (Concat) Name() string {
	return KindConcat
}

type indexSourceMap struct {
	Version  int                  `json:"version"`
	File     string               `json:"file"`
	Sections []indexSourceMapPart `json:"sections"`
}

type indexSourceMapPart struct {
	Offset indexSourceMapOffset `json:"offset"`
	Map    json.RawMessage      `json:"map"`
}

type indexSourceMapOffset struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Apply concatenates the inputs. An empty stream stays empty.
func (step Concat) Apply(_ context.Context, _ taskgraph.StepEnvironment, files []*fileset.File) ([]*fileset.File, error) {
	if len(files) == 0 {
		return []*fileset.File{}, nil
	}

	var contents bytes.Buffer
	tracked := false
	sections := make([]indexSourceMapPart, 0, len(files))
	lineOffset := 0

	for fileIndex, file := range files {
		if fileIndex > 0 {
			contents.WriteString(concatSeparatorConstant)
			lineOffset++
		}
		tracked = tracked || file.TrackSourceMap
		if file.TrackSourceMap && len(file.SourceMap) > 0 {
			if !json.Valid(file.SourceMap) {
				return nil, fmt.Errorf(concatMapDecodeErrorMessage, file.Path, errInvalidSourceMap)
			}
			sections = append(sections, indexSourceMapPart{
				Offset: indexSourceMapOffset{Line: lineOffset},
				Map:    json.RawMessage(file.SourceMap),
			})
		}
		contents.Write(file.Contents)
		lineOffset += bytes.Count(file.Contents, []byte(concatSeparatorConstant))
	}

	output := &fileset.File{Path: step.file, Contents: contents.Bytes(), TrackSourceMap: tracked}
	if !tracked {
		return []*fileset.File{output}, nil
	}

	sourceMap, encodeError := step.encodeSourceMap(sections)
	if encodeError != nil {
		return nil, encodeError
	}
	output.SourceMap = sourceMap
	return []*fileset.File{output}, nil
}

// encodeSourceMap keeps a lone section as a regular map and only builds an index map
// when several inputs contribute mappings.
func (step Concat) encodeSourceMap(sections []indexSourceMapPart) ([]byte, error) {
	fileName := path.Base(step.file)
	if len(sections) == 1 && sections[0].Offset.Line == 0 {
		decoded := map[string]any{}
		if decodeError := json.Unmarshal(sections[0].Map, &decoded); decodeError != nil {
			return nil, fmt.Errorf(concatMapDecodeErrorMessage, step.file, decodeError)
		}
		decoded[sourceMapFileFieldConstant] = fileName
		return json.Marshal(decoded)
	}
	return json.Marshal(indexSourceMap{Version: sourceMapVersionConstant, File: fileName, Sections: sections})
}
