package engine

import (
	"context"
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"
	"github.com/origenstudio/filepipe/pkg/filepipe"
)

// Engine implements filepipe.ImageEngine on top of the imaging library. It
// is the production stand-in for an external image-processing service: all
// decoding, resampling and encoding happens here, never in the core.
type Engine struct{}

// New creates a new image engine
func New() *Engine {
	return &Engine{}
}

// Identify probes the pixel dimensions of the image at path
func (e *Engine) Identify(ctx context.Context, path string) (*filepipe.Dimensions, error) {
	src, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	bounds := src.Bounds()
	return &filepipe.Dimensions{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}

// FileSize returns the byte length of the file at path
func (e *Engine) FileSize(ctx context.Context, path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat file: %w", err)
	}
	return info.Size(), nil
}

// Resize reads the source, resamples it to the target bounds and writes the
// result at the requested quality. Orientation metadata is applied before
// resampling; fill mode crops from the center.
func (e *Engine) Resize(ctx context.Context, params filepipe.ResizeParams) error {
	src, err := imaging.Open(params.SourcePath, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}

	out := resample(src, params)

	if err := imaging.Save(out, params.DestPath, imaging.JPEGQuality(quality(params.Quality))); err != nil {
		return fmt.Errorf("failed to write resized image: %w", err)
	}
	return nil
}

// Write re-encodes the source at the given quality without resampling
func (e *Engine) Write(ctx context.Context, params filepipe.WriteParams) error {
	src, err := imaging.Open(params.SourcePath)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}

	if err := imaging.Save(src, params.DestPath, imaging.JPEGQuality(quality(params.Quality))); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}
	return nil
}

// resample applies the requested resize mode. With a single bound the image
// scales proportionally; with both bounds the mode decides between fitting,
// center-cropping and stretching.
func resample(src image.Image, params filepipe.ResizeParams) image.Image {
	switch {
	case params.Width > 0 && params.Height > 0:
		switch params.Mode {
		case filepipe.ResizeModeFill:
			return imaging.Fill(src, params.Width, params.Height, imaging.Center, imaging.Lanczos)
		case filepipe.ResizeModeForce:
			return imaging.Resize(src, params.Width, params.Height, imaging.Lanczos)
		default:
			return imaging.Fit(src, params.Width, params.Height, imaging.Lanczos)
		}
	case params.Width > 0:
		return imaging.Resize(src, params.Width, 0, imaging.Lanczos)
	case params.Height > 0:
		return imaging.Resize(src, 0, params.Height, imaging.Lanczos)
	}
	return src
}

func quality(q int) int {
	if q <= 0 {
		return filepipe.DefaultQuality
	}
	return q
}
