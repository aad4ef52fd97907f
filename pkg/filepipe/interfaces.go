package filepipe

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// ImageEngine is the boundary to the external image-processing engine. The
// core never decodes pixels itself; it only decides what the engine should do.
type ImageEngine interface {
	// Identify probes the pixel dimensions of the image at path.
	Identify(ctx context.Context, path string) (*Dimensions, error)

	// FileSize returns the byte length of the file at path.
	FileSize(ctx context.Context, path string) (int64, error)

	// Resize reads the source image, resizes it to the target bounds and
	// writes the result. Orientation metadata is applied, cropping is
	// center-anchored.
	Resize(ctx context.Context, params ResizeParams) error

	// Write re-encodes the source image at the given quality without
	// resizing.
	Write(ctx context.Context, params WriteParams) error
}

// ResizeParams contains parameters for ImageEngine.Resize.
type ResizeParams struct {
	SourcePath string
	DestPath   string
	Width      int
	Height     int
	Mode       string // ResizeModeFit, ResizeModeFill or ResizeModeForce
	Quality    int
}

// WriteParams contains parameters for ImageEngine.Write.
type WriteParams struct {
	SourcePath string
	DestPath   string
	Quality    int
}

// Store is the boundary to the persistent document store holding file
// documents and their version maps.
type Store interface {
	// CreateFile persists a new file document.
	CreateFile(ctx context.Context, asset *Asset) error

	// GetFile returns the document identified by id, or ErrFileNotFound.
	GetFile(ctx context.Context, id uuid.UUID) (*Asset, error)

	// FindFiles returns all documents matching the criteria, eagerly
	// materialized.
	FindFiles(ctx context.Context, criteria FindCriteria) ([]*Asset, error)

	// SetVersion upserts one entry of the document's version map, keyed by
	// rec.Version. It never replaces the whole map, so concurrent upserts
	// for different version names do not conflict.
	SetVersion(ctx context.Context, fileID uuid.UUID, rec *VersionRecord) error

	// GetVersions returns the document's current version map.
	GetVersions(ctx context.Context, fileID uuid.UUID) (map[string]VersionRecord, error)

	// RemoveFile deletes the document.
	RemoveFile(ctx context.Context, id uuid.UUID) error
}

// RemoteStore is the boundary to the remote object store holding uploaded
// version bytes.
type RemoteStore interface {
	// Upload stores the bytes read from reader under key.
	Upload(ctx context.Context, key string, reader io.Reader, mimeType string) error

	// Download returns a reader over the object's bytes, or
	// ErrObjectNotFound.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the object. Deleting an absent object is not an
	// error.
	Delete(ctx context.Context, key string) error

	// GetDownloadURL returns a URL the object can be read from, used as
	// the pipe-from reference when serving uploaded versions.
	GetDownloadURL(ctx context.Context, key string, downloadFilename string) (string, error)

	// GetObjectMeta retrieves metadata for a stored object.
	GetObjectMeta(ctx context.Context, key string) (*ObjectMeta, error)
}

// ObjectMeta contains metadata about an object in the remote store.
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
	ETag        string
	Metadata    map[string]string
}
