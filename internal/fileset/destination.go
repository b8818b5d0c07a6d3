package fileset

import (
	"encoding/hex"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/zeebo/blake3"
)

const (
	directoryPermissionConstant = 0o755
	filePermissionConstant      = 0o644
)

// WrittenFile records one file emitted to a destination.
type WrittenFile struct {
	Path   string
	Size   int64
	Digest string
}

// Write stores each file under destination, creating directories as needed. Existing
// files are overwritten; unrelated files already in destination are left untouched.
func Write(fileSystem afero.Fs, destination string, files []*File) ([]WrittenFile, error) {
	destinationDirectory := path.Clean(filepath.ToSlash(strings.TrimSpace(destination)))
	writtenFiles := make([]WrittenFile, 0, len(files))

	for _, file := range files {
		if file == nil {
			continue
		}
		targetPath := path.Join(destinationDirectory, file.Path)
		targetDirectory := path.Dir(targetPath)
		if mkdirError := fileSystem.MkdirAll(targetDirectory, directoryPermissionConstant); mkdirError != nil {
			return writtenFiles, &OperationError{Operation: OperationMkdir, Path: targetDirectory, Err: mkdirError}
		}
		if writeError := afero.WriteFile(fileSystem, targetPath, file.Contents, filePermissionConstant); writeError != nil {
			return writtenFiles, &OperationError{Operation: OperationWrite, Path: targetPath, Err: writeError}
		}
		writtenFiles = append(writtenFiles, WrittenFile{
			Path:   targetPath,
			Size:   int64(len(file.Contents)),
			Digest: Digest(file.Contents),
		})
	}

	return writtenFiles, nil
}

// Digest returns the hex-encoded BLAKE3-256 digest of contents.
func Digest(contents []byte) string {
	sum := blake3.Sum256(contents)
	return hex.EncodeToString(sum[:])
}
