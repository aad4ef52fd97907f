package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/origenstudio/filepipe/pkg/filepipe"
)

// Store implements filepipe.Store using in-memory storage
type Store struct {
	mu    sync.RWMutex
	files map[uuid.UUID]*filepipe.Asset
}

// New creates a new in-memory document store
func New() *Store {
	return &Store{
		files: make(map[uuid.UUID]*filepipe.Asset),
	}
}

func (s *Store) CreateFile(ctx context.Context, asset *filepipe.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy to avoid external modifications
	s.files[asset.ID] = copyAsset(asset)
	return nil
}

func (s *Store) GetFile(ctx context.Context, id uuid.UUID) (*filepipe.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	asset, exists := s.files[id]
	if !exists {
		return nil, filepipe.ErrFileNotFound
	}
	return copyAsset(asset), nil
}

func (s *Store) FindFiles(ctx context.Context, criteria filepipe.FindCriteria) ([]*filepipe.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*filepipe.Asset
	for _, asset := range s.files {
		if matches(asset, criteria) {
			result = append(result, copyAsset(asset))
		}
	}

	// Sort by created_at descending
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result, nil
}

// SetVersion upserts a single entry of the version map. It only touches the
// named key, so concurrent upserts for different versions of the same file
// never conflict.
func (s *Store) SetVersion(ctx context.Context, fileID uuid.UUID, rec *filepipe.VersionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	asset, exists := s.files[fileID]
	if !exists {
		return filepipe.ErrFileNotFound
	}

	if asset.Versions == nil {
		asset.Versions = make(map[string]filepipe.VersionRecord)
	}
	asset.Versions[rec.Version] = *rec
	asset.UpdatedAt = time.Now()
	return nil
}

func (s *Store) GetVersions(ctx context.Context, fileID uuid.UUID) (map[string]filepipe.VersionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	asset, exists := s.files[fileID]
	if !exists {
		return nil, filepipe.ErrFileNotFound
	}

	versions := make(map[string]filepipe.VersionRecord, len(asset.Versions))
	for name, rec := range asset.Versions {
		versions[name] = rec
	}
	return versions, nil
}

func (s *Store) RemoveFile(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.files[id]; !exists {
		return filepipe.ErrFileNotFound
	}
	delete(s.files, id)
	return nil
}

func matches(asset *filepipe.Asset, criteria filepipe.FindCriteria) bool {
	if len(criteria.IDs) > 0 {
		found := false
		for _, id := range criteria.IDs {
			if asset.ID == id {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if criteria.OwnerID != nil && asset.OwnerID != *criteria.OwnerID {
		return false
	}
	if criteria.Name != nil && asset.Name != *criteria.Name {
		return false
	}
	if criteria.CreatedBefore != nil && !asset.CreatedAt.Before(*criteria.CreatedBefore) {
		return false
	}
	return true
}

func copyAsset(asset *filepipe.Asset) *filepipe.Asset {
	assetCopy := *asset
	if asset.Versions != nil {
		assetCopy.Versions = make(map[string]filepipe.VersionRecord, len(asset.Versions))
		for name, rec := range asset.Versions {
			assetCopy.Versions[name] = rec
		}
	}
	if asset.Dimensions != nil {
		dims := *asset.Dimensions
		assetCopy.Dimensions = &dims
	}
	return &assetCopy
}
