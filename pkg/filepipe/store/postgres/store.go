package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/origenstudio/filepipe/pkg/filepipe"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Store implements filepipe.Store using PostgreSQL. The version map lives in
// a jsonb column and is always updated with jsonb_set so the upsert stays
// field-level; concurrent writes to different version names never clobber
// each other.
//
// Expected schema:
//
//	CREATE TABLE files (
//	    id         uuid PRIMARY KEY,
//	    owner_id   uuid,
//	    name       text NOT NULL,
//	    path       text NOT NULL,
//	    size       bigint NOT NULL DEFAULT 0,
//	    mime_type  text,
//	    extension  text,
//	    versions   jsonb NOT NULL DEFAULT '{}'::jsonb,
//	    created_at timestamptz NOT NULL,
//	    updated_at timestamptz NOT NULL
//	);
type Store struct {
	db DBTX
}

// New creates a new PostgreSQL store
func New(db DBTX) *Store {
	return &Store{db: db}
}

// NewWithPool creates a new PostgreSQL store with connection pool
func NewWithPool(pool *pgxpool.Pool) *Store {
	return &Store{db: pool}
}

func (s *Store) CreateFile(ctx context.Context, asset *filepipe.Asset) error {
	versions, err := marshalVersions(asset.Versions)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO files (
			id, owner_id, name, path, size, mime_type, extension,
			versions, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = s.db.Exec(ctx, query,
		asset.ID, asset.OwnerID, asset.Name, asset.Path, asset.Size,
		asset.MimeType, asset.Extension, versions,
		asset.CreatedAt, asset.UpdatedAt)
	if err != nil {
		return s.handlePostgresError("create file", err)
	}
	return nil
}

func (s *Store) GetFile(ctx context.Context, id uuid.UUID) (*filepipe.Asset, error) {
	query := `
		SELECT id, owner_id, name, path, size, mime_type, extension,
		       versions, created_at, updated_at
		FROM files WHERE id = $1`

	asset, err := scanAsset(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, filepipe.ErrFileNotFound
		}
		return nil, err
	}
	return asset, nil
}

func (s *Store) FindFiles(ctx context.Context, criteria filepipe.FindCriteria) ([]*filepipe.Asset, error) {
	query := `
		SELECT id, owner_id, name, path, size, mime_type, extension,
		       versions, created_at, updated_at
		FROM files`

	var conditions []string
	var args []interface{}

	if len(criteria.IDs) > 0 {
		args = append(args, criteria.IDs)
		conditions = append(conditions, fmt.Sprintf("id = ANY($%d)", len(args)))
	}
	if criteria.OwnerID != nil {
		args = append(args, *criteria.OwnerID)
		conditions = append(conditions, fmt.Sprintf("owner_id = $%d", len(args)))
	}
	if criteria.Name != nil {
		args = append(args, *criteria.Name)
		conditions = append(conditions, fmt.Sprintf("name = $%d", len(args)))
	}
	if criteria.CreatedBefore != nil {
		args = append(args, *criteria.CreatedBefore)
		conditions = append(conditions, fmt.Sprintf("created_at < $%d", len(args)))
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, s.handlePostgresError("find files", err)
	}
	defer rows.Close()

	var result []*filepipe.Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, asset)
	}
	return result, rows.Err()
}

func (s *Store) SetVersion(ctx context.Context, fileID uuid.UUID, rec *filepipe.VersionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal version record: %w", err)
	}

	query := `
		UPDATE files
		SET versions = jsonb_set(COALESCE(versions, '{}'::jsonb), $2, $3::jsonb, true),
		    updated_at = now()
		WHERE id = $1`

	tag, err := s.db.Exec(ctx, query, fileID, []string{rec.Version}, data)
	if err != nil {
		return s.handlePostgresError("set version", err)
	}
	if tag.RowsAffected() == 0 {
		return filepipe.ErrFileNotFound
	}
	return nil
}

func (s *Store) GetVersions(ctx context.Context, fileID uuid.UUID) (map[string]filepipe.VersionRecord, error) {
	query := `SELECT versions FROM files WHERE id = $1`

	var data []byte
	if err := s.db.QueryRow(ctx, query, fileID).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, filepipe.ErrFileNotFound
		}
		return nil, s.handlePostgresError("get versions", err)
	}

	versions := make(map[string]filepipe.VersionRecord)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &versions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal version map: %w", err)
		}
	}
	return versions, nil
}

func (s *Store) RemoveFile(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return s.handlePostgresError("remove file", err)
	}
	if tag.RowsAffected() == 0 {
		return filepipe.ErrFileNotFound
	}
	return nil
}

// Error handling helper
func (s *Store) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("file already exists")
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAsset(row rowScanner) (*filepipe.Asset, error) {
	var asset filepipe.Asset
	var versions []byte

	err := row.Scan(
		&asset.ID, &asset.OwnerID, &asset.Name, &asset.Path, &asset.Size,
		&asset.MimeType, &asset.Extension, &versions,
		&asset.CreatedAt, &asset.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if len(versions) > 0 {
		if err := json.Unmarshal(versions, &asset.Versions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal version map: %w", err)
		}
	}
	return &asset, nil
}

func marshalVersions(versions map[string]filepipe.VersionRecord) ([]byte, error) {
	if versions == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(versions)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal version map: %w", err)
	}
	return data, nil
}
