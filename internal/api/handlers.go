package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pagelens/pagelens/internal/database"
	"github.com/pagelens/pagelens/internal/export"
	"github.com/pagelens/pagelens/internal/models"
	"github.com/pagelens/pagelens/internal/scraper"
)

// Handlers exposes the scraping core plus extraction persistence over HTTP.
// The store is optional; without it the service still analyzes and extracts.
type Handlers struct {
	scraper *scraper.Service
	store   *database.ExtractionStore
	logger  *slog.Logger
}

func NewHandlers(s *scraper.Service, store *database.ExtractionStore, logger *slog.Logger) *Handlers {
	return &Handlers{
		scraper: s,
		store:   store,
		logger:  logger.With("component", "api"),
	}
}

// Routes mounts all endpoints on r.
func (h *Handlers) Routes(r chi.Router) {
	r.Route("/scraper", func(r chi.Router) {
		r.Post("/analyze", h.AnalyzeSite)
		r.Post("/extract", h.ExtractData)
	})
	r.Route("/extractions", func(r chi.Router) {
		r.Post("/", h.SaveExtraction)
		r.Get("/", h.ListExtractions)
		r.Get("/{id}", h.GetExtraction)
		r.Get("/{id}/preview", h.PreviewExtraction)
		r.Delete("/{id}", h.DeleteExtraction)
	})
}

type analyzeRequest struct {
	URL string `json:"url"`
}

// AnalyzeSite handles POST /scraper/analyze.
func (h *Handlers) AnalyzeSite(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		h.respondError(w, http.StatusBadRequest, "URL is required")
		return
	}

	analysis, err := h.scraper.AnalyzePage(r.Context(), req.URL)
	if err != nil {
		h.logger.Error("failed to analyze website", "url", req.URL, "error", err)
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, analysis)
}

type extractRequest struct {
	URL       string   `json:"url"`
	Selectors []string `json:"selectors"`
	Profile   string   `json:"profile,omitempty"`
	Save      bool     `json:"save,omitempty"`
	Title     string   `json:"title,omitempty"`
}

type extractResponse struct {
	Data    []models.Record `json:"data"`
	ID      string          `json:"id,omitempty"`
	Message string          `json:"message,omitempty"`
}

// ExtractData handles POST /scraper/extract.
func (h *Handlers) ExtractData(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" || len(req.Selectors) == 0 {
		h.respondError(w, http.StatusBadRequest, "URL and selectors array are required")
		return
	}
	profile := scraper.Profile(req.Profile)
	switch profile {
	case "", scraper.ProfileProduct, scraper.ProfileArticle:
	default:
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown profile %q", req.Profile))
		return
	}

	records, err := h.scraper.ExtractRecords(r.Context(), req.URL, req.Selectors, profile)
	if err != nil {
		h.logger.Error("failed to extract data", "url", req.URL, "error", err)
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := extractResponse{Data: records}
	if req.Save {
		if h.store == nil {
			h.respondError(w, http.StatusServiceUnavailable, "persistence is not configured")
			return
		}
		title := req.Title
		if title == "" {
			title = req.URL
		}
		id, err := h.store.Insert(r.Context(), &models.Extraction{
			URL:       req.URL,
			Title:     title,
			Selectors: req.Selectors,
			Data:      records,
		})
		if err != nil {
			h.logger.Error("failed to save extraction", "url", req.URL, "error", err)
			h.respondError(w, http.StatusInternalServerError, "failed to save extraction")
			return
		}
		resp.ID = id
		resp.Message = "Data extracted and saved"
	}

	h.respondJSON(w, http.StatusOK, resp)
}

type saveRequest struct {
	URL       string          `json:"url"`
	Title     string          `json:"title,omitempty"`
	Selectors []string        `json:"selectors"`
	Data      []models.Record `json:"data"`
}

// SaveExtraction handles POST /extractions.
func (h *Handlers) SaveExtraction(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.respondError(w, http.StatusServiceUnavailable, "persistence is not configured")
		return
	}

	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" || len(req.Selectors) == 0 || req.Data == nil {
		h.respondError(w, http.StatusBadRequest, "URL, selectors, and data are required")
		return
	}

	title := req.Title
	if title == "" {
		title = req.URL
	}
	id, err := h.store.Insert(r.Context(), &models.Extraction{
		URL:       req.URL,
		Title:     title,
		Selectors: req.Selectors,
		Data:      req.Data,
	})
	if err != nil {
		h.logger.Error("failed to save extraction", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to save extraction")
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]string{
		"id":      id,
		"message": "Extraction saved successfully",
	})
}

// ListExtractions handles GET /extractions.
func (h *Handlers) ListExtractions(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.respondError(w, http.StatusServiceUnavailable, "persistence is not configured")
		return
	}

	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 10)

	summaries, total, err := h.store.List(r.Context(), page, limit)
	if err != nil {
		h.logger.Error("failed to list extractions", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to fetch extraction history")
		return
	}

	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	h.respondJSON(w, http.StatusOK, map[string]any{
		"extractions": summaries,
		"pagination": map[string]int{
			"total": total,
			"page":  page,
			"limit": limit,
			"pages": pages,
		},
	})
}

// GetExtraction handles GET /extractions/{id}, optionally rendering the
// stored records as CSV or XML via ?format=.
func (h *Handlers) GetExtraction(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.respondError(w, http.StatusServiceUnavailable, "persistence is not configured")
		return
	}

	id := chi.URLParam(r, "id")
	extraction, err := h.store.Get(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		h.respondError(w, http.StatusNotFound, "extraction not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to get extraction", "id", id, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to fetch extraction")
		return
	}

	switch r.URL.Query().Get("format") {
	case "", "json":
		h.respondJSON(w, http.StatusOK, extraction)
	case "csv":
		data, err := export.ToCSV(extraction.Data)
		if err != nil {
			h.logger.Error("csv export failed", "id", id, "error", err)
			h.respondError(w, http.StatusInternalServerError, "failed to export extraction")
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=extraction-%s.csv", id))
		w.Write(data)
	case "xml":
		data, err := export.ToXML(extraction.Data)
		if err != nil {
			h.logger.Error("xml export failed", "id", id, "error", err)
			h.respondError(w, http.StatusInternalServerError, "failed to export extraction")
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=extraction-%s.xml", id))
		w.Write(data)
	default:
		h.respondError(w, http.StatusBadRequest, "format must be json, csv or xml")
	}
}

// PreviewExtraction handles GET /extractions/{id}/preview.
func (h *Handlers) PreviewExtraction(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.respondError(w, http.StatusServiceUnavailable, "persistence is not configured")
		return
	}

	id := chi.URLParam(r, "id")
	extraction, err := h.store.Get(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		h.respondError(w, http.StatusNotFound, "extraction not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to preview extraction", "id", id, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to preview extraction")
		return
	}

	limit := queryInt(r, "limit", 10)
	preview := extraction.Data
	if len(preview) > limit {
		preview = preview[:limit]
	}

	h.respondJSON(w, http.StatusOK, map[string]any{
		"title":        extraction.Title,
		"url":          extraction.URL,
		"createdAt":    extraction.CreatedAt,
		"totalRecords": len(extraction.Data),
		"previewData":  preview,
	})
}

// DeleteExtraction handles DELETE /extractions/{id}.
func (h *Handlers) DeleteExtraction(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.respondError(w, http.StatusServiceUnavailable, "persistence is not configured")
		return
	}

	id := chi.URLParam(r, "id")
	err := h.store.Delete(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		h.respondError(w, http.StatusNotFound, "extraction not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to delete extraction", "id", id, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to delete extraction")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{"message": "Extraction deleted successfully"})
}

func queryInt(r *http.Request, key string, defaultValue int) int {
	if raw := r.URL.Query().Get(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return defaultValue
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"message": message})
}
