package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/37-Inc/goose.gifts/internal/models"
	"github.com/37-Inc/goose.gifts/internal/pipeline"
	"github.com/37-Inc/goose.gifts/internal/storage"
	"github.com/37-Inc/goose.gifts/internal/tracking"
)

// generateTimeout bounds a full pipeline run: three model round-trips plus
// the marketplace fan-out.
const generateTimeout = 4 * time.Minute

type Server struct {
	store     *storage.Client
	tracker   *tracking.Tracker
	generator *pipeline.Generator
}

// BundlesHandler serves POST /bundles (generate) and GET /bundles (list).
func (s *Server) BundlesHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.generateBundle(w, r)
	case http.MethodGet:
		s.listBundles(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) generateBundle(w http.ResponseWriter, r *http.Request) {
	if s.generator == nil {
		writeError(w, http.StatusServiceUnavailable, "bundle generation is not configured")
		return
	}

	var req struct {
		Description string `json:"description"`
		HumorStyle  string `json:"humorStyle"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		writeError(w, http.StatusUnprocessableEntity, "description is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), generateTimeout)
	defer cancel()

	bundle, err := s.generator.Run(ctx, req.Description, models.HumorStyle(req.HumorStyle))
	if err != nil {
		slog.Error("Bundle generation failed", "error", err)
		switch {
		case errors.Is(err, pipeline.ErrCurationUnderfilled):
			writeError(w, http.StatusBadGateway, "not enough products found for this description")
		case errors.Is(err, pipeline.ErrConceptGenerationFailed),
			errors.Is(err, pipeline.ErrQueryExpansionFailed):
			writeError(w, http.StatusBadGateway, "gift idea generation failed, try again")
		default:
			writeError(w, http.StatusInternalServerError, "bundle generation failed")
		}
		return
	}
	writeJSON(w, http.StatusCreated, bundle)
}

func (s *Server) listBundles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := storage.BundleFilter{
		HumorStyle: models.HumorStyle(q.Get("humorStyle")),
		Text:       q.Get("q"),
	}
	if v := q.Get("minViews"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid minViews")
			return
		}
		filter.MinViews = n
	}
	for param, dst := range map[string]**time.Time{
		"createdAfter":  &filter.CreatedAfter,
		"createdBefore": &filter.CreatedBefore,
	} {
		if v := q.Get(param); v != "" {
			ts, err := time.Parse(time.RFC3339, v)
			if err != nil {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s, want RFC3339", param))
				return
			}
			*dst = &ts
		}
	}

	opts := storage.ListOptions{
		SortBy:   q.Get("sort"),
		SortDesc: q.Get("order") != "asc",
	}
	if v := q.Get("page"); v != "" {
		opts.Page, _ = strconv.Atoi(v)
	}
	if v := q.Get("pageSize"); v != "" {
		opts.PageSize, _ = strconv.Atoi(v)
	}

	list, err := s.store.ListBundles(r.Context(), filter, opts)
	if err != nil {
		slog.Error("Bundle listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list bundles")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// BundleHandler serves GET /bundle?slug= and DELETE /bundle?slug=.
func (s *Server) BundleHandler(w http.ResponseWriter, r *http.Request) {
	slug := r.URL.Query().Get("slug")
	if slug == "" {
		writeError(w, http.StatusBadRequest, "slug is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		bundle, err := s.store.GetBundleBySlug(r.Context(), slug)
		if err != nil {
			slog.Error("Bundle lookup failed", "slug", slug, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to load bundle")
			return
		}
		if bundle == nil {
			writeError(w, http.StatusNotFound, "bundle not found")
			return
		}
		s.tracker.RecordView(r.Context(), slug)
		writeJSON(w, http.StatusOK, bundle)

	case http.MethodDelete:
		err := s.store.SoftDeleteBundle(r.Context(), slug)
		if errors.Is(err, models.ErrBundleNotFound) {
			writeError(w, http.StatusNotFound, "bundle not found")
			return
		}
		if err != nil {
			slog.Error("Bundle delete failed", "slug", slug, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to delete bundle")
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// TrackClickHandler serves POST /track/click. Always 202: tracking failures
// are logged, never surfaced to the visitor.
func (s *Server) TrackClickHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		ProductID  string `json:"productId"`
		BundleSlug string `json:"bundleSlug"`
		Source     string `json:"source"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.tracker.RecordClick(r.Context(), models.ClickEvent{
		ProductID:  req.ProductID,
		BundleSlug: req.BundleSlug,
		Source:     req.Source,
		Referrer:   r.Referer(),
		UserAgent:  r.UserAgent(),
	})
	w.WriteHeader(http.StatusAccepted)
}

// TrackImpressionsHandler serves POST /track/impressions.
func (s *Server) TrackImpressionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		ProductIDs []string `json:"productIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.tracker.RecordImpressions(r.Context(), req.ProductIDs)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, `{"status":"ok"}`)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
