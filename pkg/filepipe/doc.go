// Package filepipe orchestrates the processing of an uploaded file into a set
// of named versions (thumbnails, renditions), the upload of every version to a
// remote object store, and the cleanup of all versions when the parent file
// document is removed.
//
// The core is intentionally small and composed of a few units:
//
//   - VersionProcessor derives a new version from an original file, deciding
//     whether the image engine needs to resize it.
//   - VersionRecorder persists a version's metadata into the file document's
//     version map as a field-level upsert.
//   - RemoteUploader moves a version's bytes to the remote store and marks the
//     record as uploaded.
//   - Pipeline fans out one job per requested version, joins them, and then
//     uploads anything still missing from the remote store, including the
//     implicit "original" version.
//   - Sweeper deletes every version of matching file documents from the remote
//     store before removing the documents themselves.
//
// All external services sit behind interfaces (ImageEngine, Store,
// RemoteStore) with production implementations in subpackages:
//
//	engine          - image probing and resizing (imaging)
//	store/memory    - in-memory document store
//	store/postgres  - PostgreSQL document store (pgx)
//	remote/memory   - in-memory object store
//	remote/fs       - filesystem object store
//	remote/s3       - S3-compatible object store (aws-sdk-go-v2)
//
// Pipeline and Sweeper are error-absorbing boundaries: individual job
// failures are logged and captured, never propagated to the caller. A failed
// version simply stays with Uploaded=false in the document, discoverable by a
// later reconciliation pass.
package filepipe
