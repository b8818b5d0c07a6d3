package fileset

import (
	"path"
	"strings"
)

// File is an in-memory representation of one matched source entry.
type File struct {
	// Path is relative to the glob base and always slash separated.
	Path string
	// Base is the glob base the file was matched under, relative to the build root.
	// Empty for files produced by transforms.
	Base           string
	Contents       []byte
	SourceMap      []byte
	TrackSourceMap bool
}

// Clone returns a deep copy of the file.
func (file *File) Clone() *File {
	if file == nil {
		return nil
	}
	return &File{
		Path:           file.Path,
		Base:           file.Base,
		Contents:       append([]byte(nil), file.Contents...),
		SourceMap:      append([]byte(nil), file.SourceMap...),
		TrackSourceMap: file.TrackSourceMap,
	}
}

// Extension returns the lower-cased extension including the leading dot.
func (file *File) Extension() string {
	if file == nil {
		return ""
	}
	return strings.ToLower(path.Ext(file.Path))
}

// WithExtension returns Path with its extension replaced by extension.
func (file *File) WithExtension(extension string) string {
	if file == nil {
		return ""
	}
	return strings.TrimSuffix(file.Path, path.Ext(file.Path)) + extension
}

// SourcePath returns the file location relative to the build root.
func (file *File) SourcePath() string {
	if file == nil {
		return ""
	}
	if len(file.Base) == 0 {
		return file.Path
	}
	return path.Join(file.Base, file.Path)
}

// Name returns the final element of Path.
func (file *File) Name() string {
	if file == nil {
		return ""
	}
	return path.Base(file.Path)
}
