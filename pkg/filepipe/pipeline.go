package filepipe

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Pipeline orchestrates one asset's version jobs: fan out processing for
// every requested version, record and upload each result, then upload any
// version still missing from the remote store.
type Pipeline struct {
	processor *VersionProcessor
	recorder  *VersionRecorder
	uploader  *RemoteUploader
	store     Store
	logger    *slog.Logger
}

// PipelineOption represents a functional option for configuring a Pipeline.
type PipelineOption func(*Pipeline)

// WithProcessor sets the version processor.
func WithProcessor(p *VersionProcessor) PipelineOption {
	return func(pl *Pipeline) {
		pl.processor = p
	}
}

// WithRecorder sets the version recorder.
func WithRecorder(r *VersionRecorder) PipelineOption {
	return func(pl *Pipeline) {
		pl.recorder = r
	}
}

// WithUploader sets the remote uploader.
func WithUploader(u *RemoteUploader) PipelineOption {
	return func(pl *Pipeline) {
		pl.uploader = u
	}
}

// WithStore sets the document store the pipeline re-reads version maps from.
func WithStore(s Store) PipelineOption {
	return func(pl *Pipeline) {
		pl.store = s
	}
}

// WithLogger sets the logger used for absorbed errors.
func WithLogger(l *slog.Logger) PipelineOption {
	return func(pl *Pipeline) {
		pl.logger = l
	}
}

// NewPipeline creates a pipeline from the given options. Processor, recorder,
// uploader and store are required.
func NewPipeline(options ...PipelineOption) (*Pipeline, error) {
	pl := &Pipeline{}
	for _, option := range options {
		option(pl)
	}

	if pl.processor == nil {
		return nil, fmt.Errorf("processor is required")
	}
	if pl.recorder == nil {
		return nil, fmt.Errorf("recorder is required")
	}
	if pl.uploader == nil {
		return nil, fmt.Errorf("uploader is required")
	}
	if pl.store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if pl.logger == nil {
		pl.logger = slog.Default()
	}
	return pl, nil
}

// Run processes every requested version of the asset concurrently, then
// uploads whatever the document's version map still holds with
// Uploaded=false, including the implicit original.
//
// Run is an error-absorbing boundary: per-version failures are logged and
// captured in the returned results, never propagated, and never abort
// sibling jobs. There is no retry; a failed version stays recorded with
// Uploaded=false for a later reconciliation pass to find.
func (p *Pipeline) Run(ctx context.Context, fileID uuid.UUID, asset *Asset, requests []VersionRequest) []VersionResult {
	results := make([]VersionResult, len(requests))

	var wg sync.WaitGroup
	for i, req := range requests {
		wg.Add(1)
		go func(i int, req VersionRequest) {
			defer wg.Done()
			results[i] = p.runVersion(ctx, fileID, asset, req)
		}(i, req)
	}
	wg.Wait()

	for _, res := range results {
		if res.Err != nil {
			p.logger.Error("version job failed",
				"file_id", fileID, "version", res.Version, "error", res.Err)
		} else {
			p.logger.Info("version processed and uploaded",
				"file_id", fileID, "version", res.Version, "name", res.Record.Name)
		}
	}

	p.uploadRemaining(ctx, fileID, asset)

	return results
}

// runVersion runs one version's stage chain: process, record, upload. The
// stages are strictly sequential; any failure ends the chain for this
// version only.
func (p *Pipeline) runVersion(ctx context.Context, fileID uuid.UUID, asset *Asset, req VersionRequest) VersionResult {
	rec, err := p.processor.Process(ctx, asset, req)
	if err != nil {
		return VersionResult{Version: req.Version, Err: err}
	}

	rec, err = p.recorder.Record(ctx, fileID, rec)
	if err != nil {
		return VersionResult{Version: req.Version, Err: err}
	}

	rec, err = p.uploader.Upload(ctx, fileID, rec)
	if err != nil {
		return VersionResult{Version: req.Version, Err: err}
	}

	return VersionResult{Version: req.Version, Record: rec}
}

// uploadRemaining re-reads the document's version map and uploads every
// entry the fan-out left behind. The original is synthesized when the map
// does not contain it, since it was never part of the request list. Each
// not-yet-uploaded version gets exactly one attempt here.
func (p *Pipeline) uploadRemaining(ctx context.Context, fileID uuid.UUID, asset *Asset) {
	versions, err := p.store.GetVersions(ctx, fileID)
	if err != nil {
		p.logger.Error("failed to read version map", "file_id", fileID, "error", err)
		return
	}
	if versions == nil {
		versions = make(map[string]VersionRecord)
	}
	if _, ok := versions[OriginalVersion]; !ok {
		versions[OriginalVersion] = originalRecord(asset)
	}

	for name, rec := range versions {
		if rec.Uploaded {
			continue
		}
		rec := rec
		rec.Version = name
		if _, err := p.uploader.Upload(ctx, fileID, &rec); err != nil {
			p.logger.Error("failed to upload remaining version",
				"file_id", fileID, "version", name, "error", err)
		}
	}
}

// originalRecord builds the implicit original's version record from the
// asset itself.
func originalRecord(asset *Asset) VersionRecord {
	ext := filepath.Ext(asset.Path)
	name := strings.TrimSuffix(filepath.Base(asset.Path), ext)

	mimeType := asset.MimeType
	extension := asset.Extension
	if extension == "" {
		extension = strings.TrimPrefix(ext, ".")
	}

	return VersionRecord{
		Name:       name,
		Path:       asset.Path,
		MimeType:   mimeType,
		Extension:  extension,
		Version:    OriginalVersion,
		Dimensions: asset.Dimensions,
		Size:       asset.Size,
	}
}
