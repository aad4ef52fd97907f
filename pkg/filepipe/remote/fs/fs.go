// Package fs implements a filesystem-backed remote store. It keeps the
// whole pipeline runnable on a single machine, for development and for
// self-hosted deployments that have no object store.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/origenstudio/filepipe/pkg/filepipe"
)

// Remote stores objects as plain files under a base directory, one file per
// object key.
type Remote struct {
	baseDir   string
	urlPrefix string
}

// Config options for the filesystem remote store
type Config struct {
	BaseDir   string // Base directory objects are stored under
	URLPrefix string // Optional URL prefix download URLs are built from
}

// New creates a filesystem remote store rooted at the configured base
// directory, creating it when missing.
func New(config Config) (*Remote, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}
	if err := os.MkdirAll(config.BaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &Remote{
		baseDir:   config.BaseDir,
		urlPrefix: strings.TrimSuffix(config.URLPrefix, "/"),
	}, nil
}

func (r *Remote) objectPath(key string) string {
	return filepath.Join(r.baseDir, filepath.FromSlash(key))
}

// Upload writes the object bytes to disk, creating the key's directory
// structure as needed. The MIME type is not stored; it is re-detected on
// read.
func (r *Remote) Upload(ctx context.Context, key string, reader io.Reader, mimeType string) error {
	path := r.objectPath(key)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, reader); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// Download returns a reader over the object's bytes
func (r *Remote) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	file, err := os.Open(r.objectPath(key))
	if os.IsNotExist(err) {
		return nil, filepipe.ErrObjectNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Delete removes the object's file. Absent objects are not an error.
func (r *Remote) Delete(ctx context.Context, key string) error {
	err := os.Remove(r.objectPath(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove file: %w", err)
	}
	return nil
}

// GetDownloadURL builds a URL from the configured prefix. Without a prefix
// the store has no HTTP surface and callers fall back to serving the local
// path directly.
func (r *Remote) GetDownloadURL(ctx context.Context, key string, downloadFilename string) (string, error) {
	if _, err := os.Stat(r.objectPath(key)); os.IsNotExist(err) {
		return "", filepipe.ErrObjectNotFound
	} else if err != nil {
		return "", fmt.Errorf("failed to stat file: %w", err)
	}

	if r.urlPrefix == "" {
		return "", nil
	}
	return fmt.Sprintf("%s/%s", r.urlPrefix, key), nil
}

// GetObjectMeta retrieves metadata for an object on disk. The content type
// is sniffed from the first bytes of the file.
func (r *Remote) GetObjectMeta(ctx context.Context, key string) (*filepipe.ObjectMeta, error) {
	path := r.objectPath(key)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, filepipe.ErrObjectNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}

	contentType := "application/octet-stream"
	if file, err := os.Open(path); err == nil {
		defer file.Close()
		buffer := make([]byte, 512)
		if n, err := file.Read(buffer); err == nil {
			contentType = http.DetectContentType(buffer[:n])
		}
	}

	return &filepipe.ObjectMeta{
		Key:         key,
		Size:        info.Size(),
		ContentType: contentType,
		UpdatedAt:   info.ModTime(),
		Metadata:    map[string]string{"content_type": contentType},
	}, nil
}
