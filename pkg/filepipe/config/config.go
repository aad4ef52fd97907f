// Package config assembles a working pipeline from declarative settings:
// document store, remote store, image engine and the orchestrators on top of
// them.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/origenstudio/filepipe/pkg/filepipe"
	"github.com/origenstudio/filepipe/pkg/filepipe/engine"
	remotefs "github.com/origenstudio/filepipe/pkg/filepipe/remote/fs"
	remotememory "github.com/origenstudio/filepipe/pkg/filepipe/remote/memory"
	remotes3 "github.com/origenstudio/filepipe/pkg/filepipe/remote/s3"
	storememory "github.com/origenstudio/filepipe/pkg/filepipe/store/memory"
	storepg "github.com/origenstudio/filepipe/pkg/filepipe/store/postgres"
)

// Option applies configuration to a Config instance.
type Option func(*Config) error

// Load constructs a Config by applying the supplied options on top of
// library defaults.
func Load(opts ...Option) (*Config, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() Config {
	return Config{
		StoreType:  "memory",
		RemoteType: "memory",
	}
}

// Config describes how to build a pipeline and its sweeper.
type Config struct {
	// Database configuration
	DatabaseURL string
	StoreType   string // "memory", "postgres"
	DBSchema    string // Postgres schema to use

	// Remote store configuration
	RemoteType string // "memory", "fs", "s3"
	FS         FSConfig
	S3         S3Config

	// Logger used by the pipeline and sweeper. Nil means slog.Default().
	Logger *slog.Logger
}

// FSConfig represents configuration for the filesystem remote store
type FSConfig struct {
	BaseDir   string
	URLPrefix string
}

// S3Config represents configuration for the S3 remote store
type S3Config struct {
	Region                 string
	Bucket                 string
	AccessKeyID            string
	SecretAccessKey        string
	Endpoint               string
	UsePathStyle           bool
	PresignDuration        int
	CDNDomain              string
	CreateBucketIfNotExist bool
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.StoreType != "memory" && c.StoreType != "postgres" {
		return errors.New("store_type must be 'memory' or 'postgres'")
	}
	if c.StoreType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}
	if c.RemoteType != "memory" && c.RemoteType != "fs" && c.RemoteType != "s3" {
		return errors.New("remote_type must be 'memory', 'fs' or 's3'")
	}
	if c.RemoteType == "fs" && c.FS.BaseDir == "" {
		return errors.New("fs base directory is required when using the fs remote")
	}
	if c.RemoteType == "s3" && c.S3.Bucket == "" {
		return errors.New("s3 bucket is required when using the s3 remote")
	}
	return nil
}

// Runtime bundles everything the service needs: the pipeline, the deletion
// sweeper and the backends they were built on.
type Runtime struct {
	Pipeline *filepipe.Pipeline
	Sweeper  *filepipe.Sweeper
	Store    filepipe.Store
	Remote   filepipe.RemoteStore
	Engine   filepipe.ImageEngine
}

// Build creates the runtime from the configuration.
func (c *Config) Build() (*Runtime, error) {
	store, err := c.buildStore()
	if err != nil {
		return nil, fmt.Errorf("failed to build store: %w", err)
	}

	remote, err := c.buildRemote()
	if err != nil {
		return nil, fmt.Errorf("failed to build remote store: %w", err)
	}

	eng := engine.New()

	recorder := filepipe.NewVersionRecorder(store)
	uploader := filepipe.NewRemoteUploader(remote, recorder)
	processor := filepipe.NewVersionProcessor(eng, c.Logger)

	pipeline, err := filepipe.NewPipeline(
		filepipe.WithProcessor(processor),
		filepipe.WithRecorder(recorder),
		filepipe.WithUploader(uploader),
		filepipe.WithStore(store),
		filepipe.WithLogger(c.Logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}

	sweeper, err := filepipe.NewSweeper(store, uploader, c.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build sweeper: %w", err)
	}

	return &Runtime{
		Pipeline: pipeline,
		Sweeper:  sweeper,
		Store:    store,
		Remote:   remote,
		Engine:   eng,
	}, nil
}

// buildStore creates a document store based on the configuration
func (c *Config) buildStore() (filepipe.Store, error) {
	switch c.StoreType {
	case "memory":
		return storememory.New(), nil
	case "postgres":
		cfg, err := pgxpool.ParseConfig(c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		// Optionally set search_path for the connection
		schema := c.DBSchema
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			if schema == "" {
				return nil
			}
			_, err := conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s", schema))
			return err
		}
		pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		return storepg.NewWithPool(pool), nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", c.StoreType)
	}
}

// buildRemote creates a remote store based on the configuration
func (c *Config) buildRemote() (filepipe.RemoteStore, error) {
	switch c.RemoteType {
	case "memory":
		return remotememory.New(), nil
	case "fs":
		return remotefs.New(remotefs.Config{
			BaseDir:   c.FS.BaseDir,
			URLPrefix: c.FS.URLPrefix,
		})
	case "s3":
		return remotes3.New(remotes3.Config{
			Region:                 c.S3.Region,
			Bucket:                 c.S3.Bucket,
			AccessKeyID:            c.S3.AccessKeyID,
			SecretAccessKey:        c.S3.SecretAccessKey,
			Endpoint:               c.S3.Endpoint,
			UsePathStyle:           c.S3.UsePathStyle,
			PresignDuration:        c.S3.PresignDuration,
			CDNDomain:              c.S3.CDNDomain,
			CreateBucketIfNotExist: c.S3.CreateBucketIfNotExist,
		})
	default:
		return nil, fmt.Errorf("unsupported remote type: %s", c.RemoteType)
	}
}
