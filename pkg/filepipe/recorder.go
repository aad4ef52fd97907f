package filepipe

import (
	"context"

	"github.com/google/uuid"
)

// VersionRecorder persists version records into a file document's version
// map. The upsert is keyed by version name, so recording the same record
// twice yields the same stored value.
type VersionRecorder struct {
	store Store
}

// NewVersionRecorder creates a recorder backed by the given document store.
func NewVersionRecorder(store Store) *VersionRecorder {
	return &VersionRecorder{store: store}
}

// Record upserts rec at key versions.{rec.Version} of the document
// identified by fileID. It returns the same record unchanged on success so
// stages can keep chaining it, or a *PersistenceError.
func (r *VersionRecorder) Record(ctx context.Context, fileID uuid.UUID, rec *VersionRecord) (*VersionRecord, error) {
	if err := r.store.SetVersion(ctx, fileID, rec); err != nil {
		return nil, &PersistenceError{FileID: fileID, Op: "set_version", Err: err}
	}
	return rec, nil
}
