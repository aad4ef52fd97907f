package filepipe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
)

// RemoteUploader moves version bytes to the remote object store and records
// the upload outcome on the file document.
type RemoteUploader struct {
	remote   RemoteStore
	recorder *VersionRecorder
}

// NewRemoteUploader creates an uploader writing to remote and recording
// results through recorder.
func NewRemoteUploader(remote RemoteStore, recorder *VersionRecorder) *RemoteUploader {
	return &RemoteUploader{remote: remote, recorder: recorder}
}

// ObjectKey returns the remote key for one version of a file. Keys group all
// versions of a file under a common prefix so a sweep can reason about them
// per document.
func ObjectKey(fileID uuid.UUID, rec *VersionRecord) string {
	if rec.Extension != "" {
		return fmt.Sprintf("F/%s/%s.%s", fileID, rec.Name, rec.Extension)
	}
	return fmt.Sprintf("F/%s/%s", fileID, rec.Name)
}

// Upload streams the file at rec.Path to the remote store, then re-records
// the version with Uploaded=true and the remote reference. The returned
// record is the enriched one. Failures are *UploadError, except for the
// final record step which keeps its *PersistenceError.
func (u *RemoteUploader) Upload(ctx context.Context, fileID uuid.UUID, rec *VersionRecord) (*VersionRecord, error) {
	key := ObjectKey(fileID, rec)

	f, err := os.Open(rec.Path)
	if err != nil {
		return nil, &UploadError{Key: key, Op: "open", Err: err}
	}
	defer f.Close()

	if err := u.remote.Upload(ctx, key, f, rec.MimeType); err != nil {
		return nil, &UploadError{Key: key, Op: "upload", Err: err}
	}

	url, err := u.remote.GetDownloadURL(ctx, key, rec.Name)
	if err != nil {
		return nil, &UploadError{Key: key, Op: "get_download_url", Err: err}
	}

	now := time.Now().UTC()
	rec.Uploaded = true
	rec.RemoteKey = key
	rec.RemoteURL = url
	rec.UploadedAt = &now

	return u.recorder.Record(ctx, fileID, rec)
}

// Delete removes the version's object from the remote store. Already-absent
// objects are tolerated, making the delete idempotent.
func (u *RemoteUploader) Delete(ctx context.Context, fileID uuid.UUID, rec *VersionRecord) error {
	key := rec.RemoteKey
	if key == "" {
		key = ObjectKey(fileID, rec)
	}

	if err := u.remote.Delete(ctx, key); err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return nil
		}
		return &UploadError{Key: key, Op: "delete", Err: err}
	}
	return nil
}
