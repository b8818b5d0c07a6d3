package transform

import (
	"context"

	"github.com/tyemirov/assetpipe/internal/fileset"
	"github.com/tyemirov/assetpipe/internal/taskgraph"
)

// Copy passes files through unchanged.
type Copy struct{}

// NewCopy constructs the identity step.
func NewCopy() Copy {
	return Copy{}
}

// Name returns the step kind.
func (Copy) Name() string {
	return KindCopy
}

// Apply returns copies of the input files.
func (Copy) Apply(_ context.Context, _ taskgraph.StepEnvironment, files []*fileset.File) ([]*fileset.File, error) {
	return cloneFiles(files), nil
}

func cloneFiles(files []*fileset.File) []*fileset.File {
	cloned := make([]*fileset.File, 0, len(files))
	for _, file := range files {
		if file == nil {
			continue
		}
		cloned = append(cloned, file.Clone())
	}
	return cloned
}
