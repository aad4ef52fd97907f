// Package serve exposes uploaded versions over HTTP. Versions that already
// reached the remote store are proxied from their remote URL so the original
// link stays stable; versions still on local disk are served from there.
package serve

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/origenstudio/filepipe/pkg/filepipe"
)

// Request headers forwarded to the remote store when proxying.
var forwardedHeaders = []string{
	"Range",
	"Accept-Language",
	"Accept",
	"Cache-Control",
	"Pragma",
	"Connection",
	"Upgrade-Insecure-Requests",
	"User-Agent",
}

// Handler serves one version of a file document.
type Handler struct {
	store  filepipe.Store
	client *http.Client
	logger *slog.Logger
}

// NewHandler creates a version-serving handler over the given document
// store. A nil client falls back to http.DefaultClient, a nil logger to
// slog.Default().
func NewHandler(store filepipe.Store, client *http.Client, logger *slog.Logger) *Handler {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{store: store, client: client, logger: logger}
}

// ServeHTTP handles GET /{fileID}/{version}
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fileID, err := uuid.Parse(chi.URLParam(r, "fileID"))
	if err != nil {
		http.Error(w, "invalid file id", http.StatusBadRequest)
		return
	}
	version := chi.URLParam(r, "version")
	if version == "" {
		version = filepipe.OriginalVersion
	}

	asset, err := h.store.GetFile(r.Context(), fileID)
	if err != nil {
		h.logger.Warn("failed to load file document", "file_id", fileID, "error", err)
		http.NotFound(w, r)
		return
	}

	rec, err := asset.Version(version)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if rec.Uploaded && rec.RemoteURL != "" {
		h.pipeFromRemote(w, r, &rec)
		return
	}

	// Not yet uploaded: serve from the local working copy.
	http.ServeFile(w, r, rec.Path)
}

// pipeFromRemote streams the version's bytes from the remote store through
// this server, keeping the public URL independent of the storage location.
func (h *Handler) pipeFromRemote(w http.ResponseWriter, r *http.Request, rec *filepipe.VersionRecord) {
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, rec.RemoteURL, nil)
	if err != nil {
		h.logger.Error("failed to build remote request", "url", rec.RemoteURL, "error", err)
		http.Error(w, "upstream error", http.StatusBadGateway)
		return
	}
	for _, name := range forwardedHeaders {
		if v := r.Header.Get(name); v != "" {
			req.Header.Set(name, v)
		}
	}

	resp, err := h.client.Do(req)
	if err != nil {
		h.logger.Error("failed to reach remote store", "url", rec.RemoteURL, "error", err)
		http.Error(w, "upstream error", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	for name, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil && !isContextCanceled(r.Context()) {
		h.logger.Warn("failed to stream version bytes", "version", rec.Version, "error", err)
	}
}

func isContextCanceled(ctx context.Context) bool {
	return ctx.Err() != nil
}
