package filepipe_test

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/origenstudio/filepipe/pkg/filepipe"
	remotememory "github.com/origenstudio/filepipe/pkg/filepipe/remote/memory"
	storememory "github.com/origenstudio/filepipe/pkg/filepipe/store/memory"
)

func newUUID(t *testing.T) uuid.UUID {
	t.Helper()
	return uuid.New()
}

type pipelineFixture struct {
	pipeline *filepipe.Pipeline
	store    *storememory.Store
	remote   *remotememory.Remote
	engine   *fakeEngine
	uploader *filepipe.RemoteUploader
}

func setupTestPipeline(t *testing.T) *pipelineFixture {
	t.Helper()

	store := storememory.New()
	remote := remotememory.New()
	engine := newFakeEngine()

	recorder := filepipe.NewVersionRecorder(store)
	uploader := filepipe.NewRemoteUploader(remote, recorder)
	processor := filepipe.NewVersionProcessor(engine, nil)

	pipeline, err := filepipe.NewPipeline(
		filepipe.WithProcessor(processor),
		filepipe.WithRecorder(recorder),
		filepipe.WithUploader(uploader),
		filepipe.WithStore(store),
	)
	require.NoError(t, err)
	require.NotNil(t, pipeline)

	return &pipelineFixture{
		pipeline: pipeline,
		store:    store,
		remote:   remote,
		engine:   engine,
		uploader: uploader,
	}
}

func TestPipelineCreation(t *testing.T) {
	store := storememory.New()
	recorder := filepipe.NewVersionRecorder(store)
	uploader := filepipe.NewRemoteUploader(remotememory.New(), recorder)
	processor := filepipe.NewVersionProcessor(newFakeEngine(), nil)

	tests := []struct {
		name        string
		options     []filepipe.PipelineOption
		expectError bool
	}{
		{
			name:        "no options should fail",
			options:     []filepipe.PipelineOption{},
			expectError: true,
		},
		{
			name: "missing store should fail",
			options: []filepipe.PipelineOption{
				filepipe.WithProcessor(processor),
				filepipe.WithRecorder(recorder),
				filepipe.WithUploader(uploader),
			},
			expectError: true,
		},
		{
			name: "all required options should succeed",
			options: []filepipe.PipelineOption{
				filepipe.WithProcessor(processor),
				filepipe.WithRecorder(recorder),
				filepipe.WithUploader(uploader),
				filepipe.WithStore(store),
			},
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pl, err := filepipe.NewPipeline(tt.options...)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, pl)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, pl)
			}
		})
	}
}

func TestPipelineRunUploadsEveryVersion(t *testing.T) {
	ctx := context.Background()
	fx := setupTestPipeline(t)
	asset := writeOriginal(t, fx.engine, 800, 600)
	require.NoError(t, fx.store.CreateFile(ctx, asset))

	requests := []filepipe.VersionRequest{
		{Version: "thumb", Dimensions: &filepipe.Dimensions{Width: 100, Height: 100, Mode: filepipe.ResizeModeFill}},
		{Version: "medium", Dimensions: &filepipe.Dimensions{Width: 600, Height: 600}},
	}

	results := fx.pipeline.Run(ctx, asset.ID, asset, requests)
	require.Len(t, results, 2)
	for _, res := range results {
		assert.NoError(t, res.Err, "version %s", res.Version)
		require.NotNil(t, res.Record)
		assert.True(t, res.Record.Uploaded)
		assert.NotEmpty(t, res.Record.RemoteKey)
		assert.NotEmpty(t, res.Record.RemoteURL)
		assert.NotNil(t, res.Record.UploadedAt)
	}

	versions, err := fx.store.GetVersions(ctx, asset.ID)
	require.NoError(t, err)
	require.Len(t, versions, 3)
	for _, name := range []string{"thumb", "medium", filepipe.OriginalVersion} {
		rec, ok := versions[name]
		require.True(t, ok, "version %s missing", name)
		assert.True(t, rec.Uploaded, "version %s not uploaded", name)

		reader, err := fx.remote.Download(ctx, rec.RemoteKey)
		require.NoError(t, err)
		data, err := io.ReadAll(reader)
		require.NoError(t, err)
		reader.Close()
		assert.NotEmpty(t, data)
	}

	original := versions[filepipe.OriginalVersion]
	assert.Equal(t, "photo", original.Name)
	assert.Equal(t, asset.Path, original.Path)
	assert.False(t, original.HasBeenResized)
}

func TestPipelineRunContainsVersionFailure(t *testing.T) {
	ctx := context.Background()
	fx := setupTestPipeline(t)
	asset := writeOriginal(t, fx.engine, 800, 600)
	require.NoError(t, fx.store.CreateFile(ctx, asset))

	thumbDest := filepath.Join(filepath.Dir(asset.Path), "photo-thumb.jpg")
	fx.engine.resizeErr[thumbDest] = errors.New("convert exploded")

	requests := []filepipe.VersionRequest{
		{Version: "thumb", Dimensions: &filepipe.Dimensions{Width: 100, Height: 100}},
		{Version: "medium", Dimensions: &filepipe.Dimensions{Width: 600, Height: 600}},
	}

	results := fx.pipeline.Run(ctx, asset.ID, asset, requests)
	require.Len(t, results, 2)

	byVersion := make(map[string]filepipe.VersionResult, len(results))
	for _, res := range results {
		byVersion[res.Version] = res
	}

	var procErr *filepipe.ImageProcessingError
	require.Error(t, byVersion["thumb"].Err)
	require.ErrorAs(t, byVersion["thumb"].Err, &procErr)
	assert.Equal(t, "thumb", procErr.Version)

	require.NoError(t, byVersion["medium"].Err)
	assert.True(t, byVersion["medium"].Record.Uploaded)

	// The failed version never reaches the document; its siblings and the
	// implicit original still do.
	versions, err := fx.store.GetVersions(ctx, asset.ID)
	require.NoError(t, err)
	assert.NotContains(t, versions, "thumb")
	assert.Contains(t, versions, "medium")
	require.Contains(t, versions, filepipe.OriginalVersion)
	assert.True(t, versions[filepipe.OriginalVersion].Uploaded)
}

func TestPipelineRunAbsorbsMissingDocument(t *testing.T) {
	ctx := context.Background()
	fx := setupTestPipeline(t)
	asset := writeOriginal(t, fx.engine, 800, 600)
	// The document is never created, so every record step fails.

	results := fx.pipeline.Run(ctx, asset.ID, asset, []filepipe.VersionRequest{
		{Version: "thumb", Dimensions: &filepipe.Dimensions{Width: 100, Height: 100}},
	})
	require.Len(t, results, 1)

	var persistErr *filepipe.PersistenceError
	require.Error(t, results[0].Err)
	require.ErrorAs(t, results[0].Err, &persistErr)
	assert.ErrorIs(t, results[0].Err, filepipe.ErrFileNotFound)
}

func TestPipelineRunRetriesRecordedButNotUploaded(t *testing.T) {
	ctx := context.Background()
	fx := setupTestPipeline(t)
	asset := writeOriginal(t, fx.engine, 800, 600)
	require.NoError(t, fx.store.CreateFile(ctx, asset))

	// A version recorded by an earlier run that never reached the remote
	// store gets its one upload attempt during the second pass.
	stale := &filepipe.VersionRecord{
		Name:      "photo-stale",
		Path:      asset.Path,
		MimeType:  "image/jpeg",
		Extension: "jpg",
		Version:   "stale",
	}
	require.NoError(t, fx.store.SetVersion(ctx, asset.ID, stale))

	fx.pipeline.Run(ctx, asset.ID, asset, nil)

	versions, err := fx.store.GetVersions(ctx, asset.ID)
	require.NoError(t, err)
	require.Contains(t, versions, "stale")
	assert.True(t, versions["stale"].Uploaded)
	assert.True(t, versions[filepipe.OriginalVersion].Uploaded)
}
