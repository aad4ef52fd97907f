package filepipe_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/origenstudio/filepipe/pkg/filepipe"
	remotememory "github.com/origenstudio/filepipe/pkg/filepipe/remote/memory"
	storememory "github.com/origenstudio/filepipe/pkg/filepipe/store/memory"
)

// seedSweepDoc creates a document with uploaded versions and places the
// matching objects in the remote store.
func seedSweepDoc(t *testing.T, store *storememory.Store, remote filepipe.RemoteStore, versionNames ...string) *filepipe.Asset {
	t.Helper()
	ctx := context.Background()

	asset := &filepipe.Asset{
		ID:        newUUID(t),
		Name:      "photo.jpg",
		Path:      "/tmp/photo.jpg",
		Versions:  make(map[string]filepipe.VersionRecord),
		CreatedAt: time.Now(),
	}
	for _, name := range versionNames {
		rec := filepipe.VersionRecord{
			Name:      "photo-" + name,
			Extension: "jpg",
			Version:   name,
			Uploaded:  true,
		}
		rec.RemoteKey = filepipe.ObjectKey(asset.ID, &rec)
		require.NoError(t, remote.Upload(ctx, rec.RemoteKey, strings.NewReader("bytes"), "image/jpeg"))
		asset.Versions[name] = rec
	}
	require.NoError(t, store.CreateFile(ctx, asset))
	return asset
}

func TestSweeperCreation(t *testing.T) {
	store := storememory.New()
	uploader := filepipe.NewRemoteUploader(remotememory.New(), filepipe.NewVersionRecorder(store))

	s, err := filepipe.NewSweeper(nil, uploader, nil)
	assert.Error(t, err)
	assert.Nil(t, s)

	s, err = filepipe.NewSweeper(store, nil, nil)
	assert.Error(t, err)
	assert.Nil(t, s)

	s, err = filepipe.NewSweeper(store, uploader, nil)
	assert.NoError(t, err)
	assert.NotNil(t, s)
}

func TestSweepRemovesDocumentsAndObjects(t *testing.T) {
	ctx := context.Background()
	store := storememory.New()
	remote := remotememory.New()
	uploader := filepipe.NewRemoteUploader(remote, filepipe.NewVersionRecorder(store))
	sweeper, err := filepipe.NewSweeper(store, uploader, nil)
	require.NoError(t, err)

	first := seedSweepDoc(t, store, remote, "original", "thumb", "medium")
	second := seedSweepDoc(t, store, remote, "original", "thumb")

	sweeper.Sweep(ctx, filepipe.FindCriteria{IDs: []uuid.UUID{first.ID, second.ID}})

	for _, asset := range []*filepipe.Asset{first, second} {
		_, err := store.GetFile(ctx, asset.ID)
		assert.ErrorIs(t, err, filepipe.ErrFileNotFound)
		for _, rec := range asset.Versions {
			_, err := remote.Download(ctx, rec.RemoteKey)
			assert.ErrorIs(t, err, filepipe.ErrObjectNotFound, "object %s survived", rec.RemoteKey)
		}
	}
}

func TestSweepRemovesVersionlessDocument(t *testing.T) {
	ctx := context.Background()
	store := storememory.New()
	remote := remotememory.New()
	uploader := filepipe.NewRemoteUploader(remote, filepipe.NewVersionRecorder(store))
	sweeper, err := filepipe.NewSweeper(store, uploader, nil)
	require.NoError(t, err)

	asset := seedSweepDoc(t, store, remote)

	sweeper.Sweep(ctx, filepipe.FindCriteria{IDs: []uuid.UUID{asset.ID}})

	_, err = store.GetFile(ctx, asset.ID)
	assert.ErrorIs(t, err, filepipe.ErrFileNotFound)
}

func TestSweepFailureDoesNotBlockSiblings(t *testing.T) {
	ctx := context.Background()
	store := storememory.New()
	remote := &failingRemote{Remote: remotememory.New(), failKeys: map[string]bool{}}
	uploader := filepipe.NewRemoteUploader(remote, filepipe.NewVersionRecorder(store))
	sweeper, err := filepipe.NewSweeper(store, uploader, nil)
	require.NoError(t, err)

	broken := seedSweepDoc(t, store, remote.Remote, "original", "thumb")
	healthy := seedSweepDoc(t, store, remote.Remote, "original")
	remote.failKeys[broken.Versions["thumb"].RemoteKey] = true

	sweeper.Sweep(ctx, filepipe.FindCriteria{IDs: []uuid.UUID{broken.ID, healthy.ID}})

	// Failed remote deletes are absorbed; both documents are still removed
	// and the healthy document's objects are gone.
	_, err = store.GetFile(ctx, broken.ID)
	assert.ErrorIs(t, err, filepipe.ErrFileNotFound)
	_, err = store.GetFile(ctx, healthy.ID)
	assert.ErrorIs(t, err, filepipe.ErrFileNotFound)

	_, err = remote.Download(ctx, healthy.Versions["original"].RemoteKey)
	assert.ErrorIs(t, err, filepipe.ErrObjectNotFound)
}

func TestSweepByOwnerAndAge(t *testing.T) {
	ctx := context.Background()
	store := storememory.New()
	remote := remotememory.New()
	uploader := filepipe.NewRemoteUploader(remote, filepipe.NewVersionRecorder(store))
	sweeper, err := filepipe.NewSweeper(store, uploader, nil)
	require.NoError(t, err)

	owner := newUUID(t)
	old := seedSweepDoc(t, store, remote, "original")
	old.OwnerID = owner
	old.CreatedAt = time.Now().Add(-48 * time.Hour)
	require.NoError(t, store.RemoveFile(ctx, old.ID))
	require.NoError(t, store.CreateFile(ctx, old))

	fresh := seedSweepDoc(t, store, remote, "original")
	fresh.OwnerID = owner
	require.NoError(t, store.RemoveFile(ctx, fresh.ID))
	require.NoError(t, store.CreateFile(ctx, fresh))

	cutoff := time.Now().Add(-time.Hour)
	sweeper.Sweep(ctx, filepipe.FindCriteria{OwnerID: &owner, CreatedBefore: &cutoff})

	_, err = store.GetFile(ctx, old.ID)
	assert.ErrorIs(t, err, filepipe.ErrFileNotFound)
	_, err = store.GetFile(ctx, fresh.ID)
	assert.NoError(t, err)
}
