package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/repolens/repolens"
)

type handler struct {
	engine repolens.Engine
}

func newHandler(e repolens.Engine) *handler {
	return &handler{engine: e}
}

// POST /analyze
func (h *handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Minute)
	defer cancel()

	var req struct {
		Path       string            `json:"path"`
		FocusAreas []string          `json:"focus_areas,omitempty"`
		Name       string            `json:"name,omitempty"`
		AppID      string            `json:"app_id,omitempty"`
		AppName    string            `json:"app_name,omitempty"`
		Store      *bool             `json:"store,omitempty"`
		Metadata   map[string]string `json:"metadata,omitempty"`
		SkipArch   bool              `json:"skip_architecture,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	// The path must name an existing directory on this host.
	absPath, err := filepath.Abs(req.Path)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(absPath)
	if err != nil || !info.IsDir() {
		writeError(w, http.StatusBadRequest, "path must be an existing directory")
		return
	}

	store := true
	if req.Store != nil {
		store = *req.Store
	}
	opts := []repolens.AnalyzeOption{repolens.WithStore(store)}
	if len(req.FocusAreas) > 0 {
		opts = append(opts, repolens.WithFocusAreas(req.FocusAreas...))
	}
	if req.Name != "" {
		opts = append(opts, repolens.WithProjectName(req.Name))
	}
	if req.AppID != "" {
		opts = append(opts, repolens.WithAppID(req.AppID))
	}
	if req.AppName != "" {
		opts = append(opts, repolens.WithAppName(req.AppName))
	}
	if len(req.Metadata) > 0 {
		opts = append(opts, repolens.WithMetadata(req.Metadata))
	}
	if req.SkipArch {
		opts = append(opts, repolens.WithoutArchitectureMap())
	}

	rep, err := h.engine.Analyze(ctx, absPath, opts...)
	if err != nil {
		writeEngineError(w, err, "analysis failed")
		slog.Error("serve: analyze error", "path", absPath, "error", err)
		return
	}

	writeJSON(w, http.StatusOK, rep)
}

// POST /search
func (h *handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	var req struct {
		Query      string   `json:"query"`
		MaxResults int      `json:"max_results,omitempty"`
		AppID      string   `json:"app_id,omitempty"`
		FocusAreas []string `json:"focus_areas,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	// Bound parameters.
	if req.MaxResults < 0 || req.MaxResults > 100 {
		req.MaxResults = 0 // use default
	}

	var opts []repolens.SearchOption
	if req.MaxResults > 0 {
		opts = append(opts, repolens.WithLimit(req.MaxResults))
	}
	if req.AppID != "" {
		opts = append(opts, repolens.WithApp(req.AppID))
	}
	if len(req.FocusAreas) > 0 {
		opts = append(opts, repolens.WithAreas(req.FocusAreas...))
	}

	results, err := h.engine.Search(ctx, req.Query, opts...)
	if err != nil {
		writeEngineError(w, err, "search failed")
		slog.Error("serve: search error", "query", req.Query, "error", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
	})
}

// GET /reports/{app}
func (h *handler) handleGetReport(w http.ResponseWriter, r *http.Request) {
	appID := r.PathValue("app")

	var areas []string
	if focus := r.URL.Query().Get("focus"); focus != "" {
		areas = strings.Split(focus, ",")
	}

	rep, err := h.engine.GetReport(r.Context(), appID, areas)
	if err != nil {
		writeEngineError(w, err, "failed to fetch report")
		if !errors.Is(err, repolens.ErrReportNotFound) {
			slog.Error("serve: get report error", "app_id", appID, "error", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, rep)
}

// DELETE /reports/{app}
func (h *handler) handleDeleteReports(w http.ResponseWriter, r *http.Request) {
	appID := r.PathValue("app")

	if err := h.engine.DeleteApp(r.Context(), appID); err != nil {
		writeEngineError(w, err, "delete failed")
		if !errors.Is(err, repolens.ErrReportNotFound) {
			slog.Error("serve: delete error", "app_id", appID, "error", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// GET /apps
func (h *handler) handleListApps(w http.ResponseWriter, r *http.Request) {
	apps, err := h.engine.ListApps(r.Context())
	if err != nil {
		writeEngineError(w, err, "failed to list apps")
		slog.Error("serve: list apps error", "error", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"apps": apps,
	})
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// writeEngineError maps engine sentinels onto HTTP statuses; anything
// unrecognized becomes a 500 with the fallback message.
func writeEngineError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, repolens.ErrReportNotFound):
		writeError(w, http.StatusNotFound, "report not found")
	case errors.Is(err, repolens.ErrStoreNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "report store not available")
	case errors.Is(err, repolens.ErrUnknownFocusArea):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repolens.ErrNoFiles):
		writeError(w, http.StatusBadRequest, "no analyzable files under path")
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
