package filepipe

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Sweeper bulk-deletes file documents and their remotely stored versions.
// For every document matching a search it deletes each recorded version from
// the remote store, waits for all deletes to settle, then removes the
// document itself. Documents without versions are removed directly.
type Sweeper struct {
	store    Store
	uploader *RemoteUploader
	logger   *slog.Logger
}

// NewSweeper creates a sweeper over the given document store. The uploader
// supplies the idempotent remote delete.
func NewSweeper(store Store, uploader *RemoteUploader, logger *slog.Logger) (*Sweeper, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if uploader == nil {
		return nil, fmt.Errorf("uploader is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{store: store, uploader: uploader, logger: logger}, nil
}

// Sweep finds all documents matching the criteria and sweeps each one
// concurrently and independently. Every failure is logged and swallowed; one
// document's failure never blocks or aborts another's sweep. Sweep returns
// once every document has settled.
func (s *Sweeper) Sweep(ctx context.Context, criteria FindCriteria) {
	files, err := s.store.FindFiles(ctx, criteria)
	if err != nil {
		s.logger.Error("sweep query failed", "error", err)
		return
	}

	var wg sync.WaitGroup
	for _, f := range files {
		wg.Add(1)
		go func(f *Asset) {
			defer wg.Done()
			s.sweepFile(ctx, f)
		}(f)
	}
	wg.Wait()
}

// sweepFile deletes one document's versions from the remote store, then
// removes the document. Version deletes run concurrently; the removal waits
// for all of them to settle, even the failed ones.
func (s *Sweeper) sweepFile(ctx context.Context, f *Asset) {
	if len(f.Versions) > 0 {
		var wg sync.WaitGroup
		for name, rec := range f.Versions {
			wg.Add(1)
			go func(name string, rec VersionRecord) {
				defer wg.Done()
				rec.Version = name
				if err := s.uploader.Delete(ctx, f.ID, &rec); err != nil {
					s.logger.Error("failed to delete version from remote store",
						"file_id", f.ID, "version", name, "error", err)
				}
			}(name, rec)
		}
		wg.Wait()
	}

	if err := s.store.RemoveFile(ctx, f.ID); err != nil {
		s.logger.Error("failed to remove file document", "file_id", f.ID, "error", err)
		return
	}
	s.logger.Info("file swept", "file_id", f.ID, "versions", len(f.Versions))
}
