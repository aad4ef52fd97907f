package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/origenstudio/filepipe/pkg/filepipe"
)

// Remote is an in-memory implementation of the filepipe.RemoteStore interface
type Remote struct {
	mu              sync.RWMutex
	objects         map[string][]byte
	objectsMimeType map[string]string
}

// New creates a new in-memory remote store
func New() *Remote {
	return &Remote{
		objects:         make(map[string][]byte),
		objectsMimeType: make(map[string]string),
	}
}

// Upload stores the bytes read from reader under key
func (r *Remote) Upload(ctx context.Context, key string, reader io.Reader, mimeType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.objects[key] = data
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	r.objectsMimeType[key] = mimeType
	return nil
}

// Download returns a reader over the object's bytes
func (r *Remote) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data, exists := r.objects[key]
	if !exists {
		return nil, filepipe.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete removes the object. Absent objects are not an error.
func (r *Remote) Delete(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.objects, key)
	delete(r.objectsMimeType, key)
	return nil
}

// GetDownloadURL returns a synthetic URL for the stored object. The memory
// remote has no transport, so the URL is only useful as an opaque reference.
func (r *Remote) GetDownloadURL(ctx context.Context, key string, downloadFilename string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, exists := r.objects[key]; !exists {
		return "", filepipe.ErrObjectNotFound
	}
	return fmt.Sprintf("memory://%s", key), nil
}

// GetObjectMeta retrieves metadata for an object in memory
func (r *Remote) GetObjectMeta(ctx context.Context, key string) (*filepipe.ObjectMeta, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data, exists := r.objects[key]
	if !exists {
		return nil, filepipe.ErrObjectNotFound
	}

	return &filepipe.ObjectMeta{
		Key:         key,
		Size:        int64(len(data)),
		ContentType: r.objectsMimeType[key],
		UpdatedAt:   time.Now(),
		Metadata:    map[string]string{"content_type": r.objectsMimeType[key]},
	}, nil
}
