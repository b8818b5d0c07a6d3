package fileset

import "fmt"

// Operation names the filesystem action that failed.
type Operation string

// Filesystem operations reported through OperationError.
const (
	OperationGlob  Operation = "glob"
	OperationRead  Operation = "read"
	OperationStat  Operation = "stat"
	OperationMkdir Operation = "mkdir"
	OperationWrite Operation = "write"
)

// OperationError annotates a filesystem failure with the operation and path involved.
type OperationError struct {
	Operation Operation
	Path      string
	Err       error
}

// Error implements the error interface.
func (operationError *OperationError) Error() string {
	return fmt.Sprintf("fileset.%s[%s]: %v", operationError.Operation, operationError.Path, operationError.Err)
}

// Unwrap exposes the underlying error chain.
func (operationError *OperationError) Unwrap() error {
	return operationError.Err
}
