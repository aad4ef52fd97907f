package filepipe_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/origenstudio/filepipe/pkg/filepipe"
	remotememory "github.com/origenstudio/filepipe/pkg/filepipe/remote/memory"
	storememory "github.com/origenstudio/filepipe/pkg/filepipe/store/memory"
)

func TestObjectKey(t *testing.T) {
	fileID := uuid.MustParse("a3bb189e-8bf9-3888-9912-ace4e6543002")

	key := filepipe.ObjectKey(fileID, &filepipe.VersionRecord{Name: "photo-thumb", Extension: "jpg"})
	assert.Equal(t, "F/a3bb189e-8bf9-3888-9912-ace4e6543002/photo-thumb.jpg", key)

	key = filepipe.ObjectKey(fileID, &filepipe.VersionRecord{Name: "photo-thumb"})
	assert.Equal(t, "F/a3bb189e-8bf9-3888-9912-ace4e6543002/photo-thumb", key)
}

func TestUploadEnrichesAndRecords(t *testing.T) {
	ctx := context.Background()
	store := storememory.New()
	remote := remotememory.New()
	uploader := filepipe.NewRemoteUploader(remote, filepipe.NewVersionRecorder(store))

	engine := newFakeEngine()
	asset := writeOriginal(t, engine, 800, 600)
	require.NoError(t, store.CreateFile(ctx, asset))

	rec := &filepipe.VersionRecord{
		Name:      "photo-thumb",
		Path:      asset.Path,
		MimeType:  "image/jpeg",
		Extension: "jpg",
		Version:   "thumb",
	}

	got, err := uploader.Upload(ctx, asset.ID, rec)
	require.NoError(t, err)
	assert.True(t, got.Uploaded)
	assert.Equal(t, filepipe.ObjectKey(asset.ID, rec), got.RemoteKey)
	assert.NotEmpty(t, got.RemoteURL)
	require.NotNil(t, got.UploadedAt)

	// The enriched record must be what the document now holds.
	versions, err := store.GetVersions(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, *got, versions["thumb"])

	reader, err := remote.Download(ctx, got.RemoteKey)
	require.NoError(t, err)
	defer reader.Close()
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, []byte("original-bytes"), data)

	meta, err := remote.GetObjectMeta(ctx, got.RemoteKey)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", meta.ContentType)
}

func TestUploadMissingLocalFile(t *testing.T) {
	ctx := context.Background()
	store := storememory.New()
	uploader := filepipe.NewRemoteUploader(remotememory.New(), filepipe.NewVersionRecorder(store))

	rec := &filepipe.VersionRecord{
		Name:      "photo-thumb",
		Path:      "/nonexistent/photo-thumb.jpg",
		Extension: "jpg",
		Version:   "thumb",
	}

	got, err := uploader.Upload(ctx, uuid.New(), rec)
	require.Error(t, err)
	assert.Nil(t, got)

	var upErr *filepipe.UploadError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, "open", upErr.Op)
}

// notFoundRemote reports every delete as an absent object.
type notFoundRemote struct {
	*remotememory.Remote
}

func (r *notFoundRemote) Delete(ctx context.Context, key string) error {
	return filepipe.ErrObjectNotFound
}

// failingRemote fails deletes for the configured keys.
type failingRemote struct {
	*remotememory.Remote
	failKeys map[string]bool
}

func (r *failingRemote) Delete(ctx context.Context, key string) error {
	if r.failKeys[key] {
		return errors.New("remote store unavailable")
	}
	return r.Remote.Delete(ctx, key)
}

func TestDeleteToleratesAbsentObject(t *testing.T) {
	ctx := context.Background()
	store := storememory.New()
	remote := &notFoundRemote{Remote: remotememory.New()}
	uploader := filepipe.NewRemoteUploader(remote, filepipe.NewVersionRecorder(store))

	err := uploader.Delete(ctx, uuid.New(), &filepipe.VersionRecord{
		Name:      "photo-thumb",
		Extension: "jpg",
		Version:   "thumb",
	})
	assert.NoError(t, err)
}

func TestDeletePrefersRecordedKey(t *testing.T) {
	ctx := context.Background()
	store := storememory.New()
	remote := remotememory.New()
	uploader := filepipe.NewRemoteUploader(remote, filepipe.NewVersionRecorder(store))

	require.NoError(t, remote.Upload(ctx, "F/legacy/photo-thumb.jpg", strings.NewReader("x"), "image/jpeg"))

	err := uploader.Delete(ctx, uuid.New(), &filepipe.VersionRecord{
		Name:      "photo-thumb",
		Extension: "jpg",
		Version:   "thumb",
		RemoteKey: "F/legacy/photo-thumb.jpg",
	})
	require.NoError(t, err)

	_, err = remote.Download(ctx, "F/legacy/photo-thumb.jpg")
	assert.ErrorIs(t, err, filepipe.ErrObjectNotFound)
}
