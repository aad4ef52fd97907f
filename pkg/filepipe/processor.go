package filepipe

import (
	"context"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
)

// VersionProcessor produces the metadata and bytes of one version from an
// original asset, delegating all pixel work to the image engine.
type VersionProcessor struct {
	engine ImageEngine
	logger *slog.Logger
}

// NewVersionProcessor creates a processor backed by the given image engine.
// A nil logger falls back to slog.Default().
func NewVersionProcessor(engine ImageEngine, logger *slog.Logger) *VersionProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &VersionProcessor{engine: engine, logger: logger}
}

// Process derives one version from the asset according to the request. It
// writes the new file next to the original (or at the request's FilePath),
// resizing it first when the target dimensions require it. Failures are
// returned as *ImageProcessingError carrying the version name.
func (p *VersionProcessor) Process(ctx context.Context, asset *Asset, req VersionRequest) (*VersionRecord, error) {
	ext := filepath.Ext(asset.Path)
	baseName := strings.TrimSuffix(filepath.Base(asset.Path), ext)
	dir := filepath.Dir(asset.Path)

	suffix := req.NameSuffix
	if suffix == "" {
		suffix = req.Version
	}
	newName := baseName + "-" + suffix

	outDir := req.FilePath
	if outDir == "" {
		outDir = dir
	}
	outPath := filepath.Join(outDir, newName+ext)

	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	quality := req.Quality
	if quality == 0 {
		quality = DefaultQuality
	}

	rec := &VersionRecord{
		Name:      newName,
		Path:      outPath,
		MimeType:  mimeType,
		Extension: strings.TrimPrefix(ext, "."),
		Version:   req.Version,
	}

	// Probe failure is non-fatal: with unknown original dimensions the
	// resize decision falls back to "resize whenever a target bound is
	// given".
	origDims, err := p.engine.Identify(ctx, asset.Path)
	if err != nil {
		p.logger.Warn("failed to probe original dimensions",
			"version", req.Version, "path", asset.Path, "error", err)
		origDims = nil
	}

	if NeedToResize(origDims, req.Dimensions) {
		if err := p.engine.Resize(ctx, ResizeParams{
			SourcePath: asset.Path,
			DestPath:   outPath,
			Width:      req.Dimensions.Width,
			Height:     req.Dimensions.Height,
			Mode:       req.Dimensions.Mode,
			Quality:    quality,
		}); err != nil {
			return nil, &ImageProcessingError{Version: req.Version, Op: "resize", Err: err}
		}
		rec.HasBeenResized = true

		dims, err := p.engine.Identify(ctx, outPath)
		if err != nil {
			return nil, &ImageProcessingError{Version: req.Version, Op: "identify", Err: err}
		}
		size, err := p.engine.FileSize(ctx, outPath)
		if err != nil {
			return nil, &ImageProcessingError{Version: req.Version, Op: "stat", Err: err}
		}
		rec.Dimensions = dims
		rec.Size = size
		return rec, nil
	}

	if err := p.engine.Write(ctx, WriteParams{
		SourcePath: asset.Path,
		DestPath:   outPath,
		Quality:    quality,
	}); err != nil {
		return nil, &ImageProcessingError{Version: req.Version, Op: "write", Err: err}
	}
	rec.Dimensions = origDims
	rec.Size = asset.Size
	return rec, nil
}

// NeedToResize decides whether the original must be resized to satisfy the
// target bounds. The rules, in priority order:
//
//  1. Unknown original dimensions with any target bound: resize.
//  2. Both target bounds set: resize when the original exceeds either bound
//     or its aspect ratio differs from the target's.
//  3. Only width set: resize when the original is wider.
//  4. Only height set: resize when the original is taller.
//  5. No target bounds: never resize.
//
// The aspect-ratio comparison is an exact floating-point equality check.
func NeedToResize(original, target *Dimensions) bool {
	targetWidth := target != nil && target.Width > 0
	targetHeight := target != nil && target.Height > 0

	if (original == nil || original.Width == 0 || original.Height == 0) &&
		(targetWidth || targetHeight) {
		return true
	}

	switch {
	case targetWidth && targetHeight:
		return original.Width > target.Width ||
			original.Height > target.Height ||
			original.AspectRatio() != target.AspectRatio()
	case targetWidth:
		return original.Width > target.Width
	case targetHeight:
		return original.Height > target.Height
	}
	return false
}
