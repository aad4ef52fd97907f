package filepipe

import (
	"time"

	"github.com/google/uuid"
)

// OriginalVersion is the implicit version name of the uploaded file itself.
// It may or may not appear in a document's version map; the pipeline uploads
// it either way.
const OriginalVersion = "original"

// DefaultQuality is applied when a version request does not set Quality.
const DefaultQuality = 80

// Resize modes understood by the image engine.
const (
	// ResizeModeFit scales the image down to fit within the target box,
	// preserving aspect ratio.
	ResizeModeFit = "fit"
	// ResizeModeFill scales and center-crops the image to fill the target
	// box exactly.
	ResizeModeFill = "fill"
	// ResizeModeForce stretches the image to the exact target dimensions,
	// ignoring aspect ratio.
	ResizeModeForce = "force"
)

// Dimensions describes a pixel size. Width or Height may be zero when only
// one bound is requested.
type Dimensions struct {
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Mode   string `json:"mode,omitempty"`
}

// AspectRatio returns width divided by height. Callers must not invoke it
// with a zero height.
func (d Dimensions) AspectRatio() float64 {
	return float64(d.Width) / float64(d.Height)
}

// Asset is the working copy of one file document for the duration of a
// pipeline run. The document store owns the authoritative record; the
// pipeline never holds it beyond a single run.
type Asset struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id,omitempty"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	MimeType  string    `json:"mime_type,omitempty"`
	Extension string    `json:"extension,omitempty"`

	// Dimensions of the original, when known. Probing may fail without
	// failing the upload, so this can be nil.
	Dimensions *Dimensions `json:"dimensions,omitempty"`

	Versions  map[string]VersionRecord `json:"versions,omitempty"`
	CreatedAt time.Time                `json:"created_at"`
	UpdatedAt time.Time                `json:"updated_at"`
}

// Version returns the named entry of the asset's version map, or
// ErrVersionNotFound.
func (a *Asset) Version(name string) (VersionRecord, error) {
	rec, ok := a.Versions[name]
	if !ok {
		return VersionRecord{}, ErrVersionNotFound
	}
	return rec, nil
}

// VersionRequest describes one derived version to produce from an original.
type VersionRequest struct {
	// Version names the rendition (e.g. "thumb", "medium"). Names must be
	// unique within one request list; duplicates race last-write-wins on
	// the document's version map.
	Version string `json:"version"`

	// NameSuffix overrides the suffix appended to the original file name.
	// Defaults to Version.
	NameSuffix string `json:"name_suffix,omitempty"`

	// FilePath overrides the directory the new version is written to.
	// Defaults to the original's directory.
	FilePath string `json:"file_path,omitempty"`

	// Dimensions are the target bounds. Nil means the version is written
	// through at the requested quality without resizing.
	Dimensions *Dimensions `json:"dimensions,omitempty"`

	// Quality is the output quality (0-100). Zero means DefaultQuality.
	Quality int `json:"quality,omitempty"`
}

// VersionRecord is the metadata of one produced version. It is created by
// VersionProcessor, persisted by VersionRecorder with Uploaded=false, and
// enriched again by RemoteUploader once the bytes reach the remote store.
// A failure at any stage leaves the record in its last persisted state.
type VersionRecord struct {
	Name           string      `json:"name"`
	Path           string      `json:"path"`
	MimeType       string      `json:"mime_type,omitempty"`
	Extension      string      `json:"extension,omitempty"`
	Version        string      `json:"version"`
	HasBeenResized bool        `json:"has_been_resized"`
	Dimensions     *Dimensions `json:"dimensions,omitempty"`
	Size           int64       `json:"size,omitempty"`

	// Uploaded is set only after the remote store accepted the bytes.
	Uploaded   bool       `json:"uploaded_to_3rd_party"`
	RemoteKey  string     `json:"remote_key,omitempty"`
	RemoteURL  string     `json:"remote_url,omitempty"`
	UploadedAt *time.Time `json:"uploaded_at,omitempty"`
}

// VersionResult is the captured outcome of one version job within a pipeline
// run. Exactly one of Record and Err is set.
type VersionResult struct {
	Version string
	Record  *VersionRecord
	Err     error
}

// FindCriteria selects file documents for Store.FindFiles. Zero-value fields
// are ignored; set fields are combined with AND.
type FindCriteria struct {
	IDs           []uuid.UUID
	OwnerID       *uuid.UUID
	Name          *string
	CreatedBefore *time.Time
}

// FileInfo carries the attributes checked before a file is accepted for
// processing.
type FileInfo struct {
	Name      string
	Size      int64
	MimeType  string
	Extension string
}
