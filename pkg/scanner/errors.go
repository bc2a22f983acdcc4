package scanner

import (
	"errors"
	"fmt"
)

// ErrFolderNotFound is returned when the scanned folder does not exist or is
// not a directory. It is distinct from a folder with no candidate files,
// which yields an empty Result.
var ErrFolderNotFound = errors.New("folder not found")

// FaultKind classifies a per-file failure.
type FaultKind string

const (
	// FileUnreadable means the file could not be opened (locked, permission
	// denied, removed between listing and opening).
	FileUnreadable FaultKind = "file_unreadable"

	// UnexpectedLineFault means reading stopped part way through the file.
	UnexpectedLineFault FaultKind = "unexpected_line_fault"
)

// FileError reports a recoverable failure on a single file.
type FileError struct {
	Path string
	Kind FaultKind
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}
