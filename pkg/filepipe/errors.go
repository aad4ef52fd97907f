package filepipe

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrFileNotFound indicates a file document was not found
	ErrFileNotFound = errors.New("file not found")

	// ErrVersionNotFound indicates a version was not found in a document's version map
	ErrVersionNotFound = errors.New("version not found")

	// ErrObjectNotFound indicates a remote object was not found
	ErrObjectNotFound = errors.New("object not found")
)

// ImageProcessingError represents a probe, resize or write failure while
// producing one version. It always carries the version name so the pipeline
// can attribute the failure.
type ImageProcessingError struct {
	Version string
	Op      string
	Err     error
}

func (e *ImageProcessingError) Error() string {
	return fmt.Sprintf("image operation %s failed for version %s: %v", e.Op, e.Version, e.Err)
}

func (e *ImageProcessingError) Unwrap() error {
	return e.Err
}

// PersistenceError represents a document store failure (update, removal,
// vanished document).
type PersistenceError struct {
	FileID uuid.UUID
	Op     string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence operation %s failed for file %s: %v", e.Op, e.FileID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// UploadError represents a remote store failure for one object key.
type UploadError struct {
	Key string
	Op  string
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("remote operation %s failed for key %s: %v", e.Op, e.Key, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}
