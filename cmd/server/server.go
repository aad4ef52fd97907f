package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/origenstudio/filepipe/pkg/filepipe"
	"github.com/origenstudio/filepipe/pkg/filepipe/config"
	"github.com/origenstudio/filepipe/pkg/filepipe/filecheck"
	"github.com/origenstudio/filepipe/pkg/filepipe/serve"
)

// Server wires the pipeline runtime to HTTP: uploads trigger version
// processing, deletes trigger the sweep, and version bytes are served either
// locally or piped from the remote store.
type Server struct {
	cfg      Config
	runtime  *config.Runtime
	checker  *filecheck.Checker
	requests []filepipe.VersionRequest
	logger   *slog.Logger
}

// NewServer creates the HTTP wrapper around the pipeline runtime
func NewServer(cfg Config, runtime *config.Runtime, logger *slog.Logger) (*Server, error) {
	pattern, err := regexp.Compile(cfg.FileTypes)
	if err != nil {
		return nil, fmt.Errorf("invalid FILE_TYPES pattern: %w", err)
	}

	return &Server{
		cfg:     cfg,
		runtime: runtime,
		checker: filecheck.New(cfg.MaxUploadSize, pattern),
		requests: []filepipe.VersionRequest{
			{
				Version:    "thumb",
				Dimensions: &filepipe.Dimensions{Width: cfg.Versions.ThumbSize, Height: cfg.Versions.ThumbSize, Mode: filepipe.ResizeModeFill},
				Quality:    cfg.Versions.Quality,
			},
			{
				Version:    "medium",
				Dimensions: &filepipe.Dimensions{Width: cfg.Versions.MediumSize, Height: cfg.Versions.MediumSize, Mode: filepipe.ResizeModeFit},
				Quality:    cfg.Versions.Quality,
			},
		},
		logger: logger,
	}, nil
}

// Routes sets up the HTTP routes
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})

	versionHandler := serve.NewHandler(s.runtime.Store, nil, s.logger)

	r.Route("/files", func(r chi.Router) {
		r.Post("/", s.uploadFile)
		r.Delete("/{fileID}", s.deleteFile)
		r.Get("/{fileID}/{version}", versionHandler.ServeHTTP)
	})

	return r
}

// uploadFile accepts a multipart upload, persists the document and fires the
// processing pipeline. The pipeline runs detached: the upload response never
// waits for version processing, and pipeline failures only surface in the
// document's version map.
func (s *Server) uploadFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.cfg.MaxUploadSize); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "invalid multipart form"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "missing file field"})
		return
	}
	defer file.Close()

	ext := strings.TrimPrefix(filepath.Ext(header.Filename), ".")
	info := filepipe.FileInfo{
		Name:      header.Filename,
		Size:      header.Size,
		MimeType:  header.Header.Get("Content-Type"),
		Extension: ext,
	}
	if err := s.checker.Check(info); err != nil {
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, map[string]string{"error": err.Error()})
		return
	}

	asset, err := s.storeUpload(r, file, header)
	if err != nil {
		s.logger.Error("failed to store upload", "name", header.Filename, "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{"error": "failed to store upload"})
		return
	}

	// The after-upload hook: process versions in the background. The run
	// must outlive the request, so it gets a fresh context.
	go s.runtime.Pipeline.Run(context.Background(), asset.ID, asset, s.requests)

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]string{"id": asset.ID.String()})
}

// storeUpload writes the uploaded bytes to the data directory and creates
// the file document.
func (s *Server) storeUpload(r *http.Request, file multipart.File, header *multipart.FileHeader) (*filepipe.Asset, error) {
	id := uuid.New()
	dir := filepath.Join(s.cfg.DataDir, id.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	filename := filecheck.SanitizeFilename(filepath.Base(header.Filename))
	if filename == "" || filename == "." {
		filename = "upload"
	}
	path := filepath.Join(dir, filename)
	dst, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	size, err := io.Copy(dst, file)
	if err != nil {
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	ext := filepath.Ext(filename)
	now := time.Now().UTC()
	asset := &filepipe.Asset{
		ID:        id,
		Name:      strings.TrimSuffix(filename, ext),
		Path:      path,
		Size:      size,
		MimeType:  header.Header.Get("Content-Type"),
		Extension: strings.TrimPrefix(ext, "."),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if dims, err := s.runtime.Engine.Identify(r.Context(), path); err == nil {
		asset.Dimensions = dims
	}

	if err := s.runtime.Store.CreateFile(r.Context(), asset); err != nil {
		return nil, fmt.Errorf("failed to create file document: %w", err)
	}
	return asset, nil
}

// deleteFile is the before-remove hook: it sweeps the document's versions
// from the remote store and removes the document.
func (s *Server) deleteFile(w http.ResponseWriter, r *http.Request) {
	fileID, err := uuid.Parse(chi.URLParam(r, "fileID"))
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "invalid file id"})
		return
	}

	s.runtime.Sweeper.Sweep(r.Context(), filepipe.FindCriteria{IDs: []uuid.UUID{fileID}})

	render.NoContent(w, r)
}
