package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/khetha-app/khetha/internal/admission"
	"github.com/khetha-app/khetha/internal/catalog"
	"github.com/khetha-app/khetha/internal/engine"
	"github.com/khetha-app/khetha/internal/knowledge"
	"github.com/khetha-app/khetha/internal/llm"
	"github.com/khetha-app/khetha/internal/storage"
	"github.com/khetha-app/khetha/pkg/types"
)

const maxRequestBody = 1 << 20 // 1 MiB

// APIHandlers contains HTTP handlers for the REST API.
type APIHandlers struct {
	store    storage.ChunkStore
	engine   *engine.GuidanceEngine
	catalog  *catalog.Catalog
	provider *llm.Provider
}

// NewAPIHandlers creates a new APIHandlers instance. provider may be
// nil when no LLM is configured; the stats endpoint then omits breaker
// state.
func NewAPIHandlers(store storage.ChunkStore, eng *engine.GuidanceEngine, cat *catalog.Catalog, provider *llm.Provider) *APIHandlers {
	return &APIHandlers{
		store:    store,
		engine:   eng,
		catalog:  cat,
		provider: provider,
	}
}

// Guidance handles POST /api/guidance - free-text query through the
// full pipeline.
func (h *APIHandlers) Guidance(w http.ResponseWriter, r *http.Request) {
	var req GuidanceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	result, err := h.engine.Guide(r.Context(), engine.GuidanceRequest{
		Query:          req.Query,
		Grade:          req.Grade,
		Marks:          req.Marks,
		GenerateAnswer: req.GenerateAnswer,
	})
	if err != nil {
		if errors.Is(err, admission.ErrInvalidMarks) {
			respondError(w, http.StatusBadRequest, "invalid marks", err)
			return
		}
		if errors.Is(err, knowledge.ErrBudgetExhausted) {
			// Token budget smaller than the profile summary is a server
			// misconfiguration, not a client error.
			respondError(w, http.StatusInternalServerError, "context budget misconfigured", err)
			return
		}
		respondError(w, http.StatusBadRequest, "unprocessable request", err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Assessment handles POST /api/assessment - structured assessment form
// through the pipeline.
func (h *APIHandlers) Assessment(w http.ResponseWriter, r *http.Request) {
	var a types.Assessment
	if err := decodeJSON(w, r, &a); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	generate := r.URL.Query().Get("generate") == "true"
	result, err := h.engine.GuideAssessment(r.Context(), a, generate)
	if err != nil {
		if errors.Is(err, admission.ErrInvalidMarks) {
			respondError(w, http.StatusBadRequest, "invalid marks", err)
			return
		}
		if errors.Is(err, knowledge.ErrBudgetExhausted) {
			respondError(w, http.StatusInternalServerError, "context budget misconfigured", err)
			return
		}
		respondError(w, http.StatusBadRequest, "unprocessable assessment", err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// AdmissionMatch handles POST /api/admission/match - the pure-compute
// path: APS plus ranked program feasibility, no retrieval involved.
func (h *APIHandlers) AdmissionMatch(w http.ResponseWriter, r *http.Request) {
	var req AdmissionMatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if len(req.Marks) == 0 {
		respondError(w, http.StatusBadRequest, "marks are required", nil)
		return
	}

	ap, candidates, err := h.engine.MatchAdmission(req.Marks)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid marks", err)
		return
	}

	respondJSON(w, http.StatusOK, AdmissionMatchResponse{
		Admission:  ap,
		Candidates: candidates,
	})
}

// ListChunks handles GET /api/chunks - knowledge-base inspection with
// pagination and module/source filtering.
func (h *APIHandlers) ListChunks(w http.ResponseWriter, r *http.Request) {
	opts := storage.ListOptions{
		Page:   parseInt(r.URL.Query().Get("page"), 1),
		Limit:  parseInt(r.URL.Query().Get("limit"), 20),
		Module: r.URL.Query().Get("module"),
		Source: r.URL.Query().Get("source"),
	}
	opts.Normalize()

	result, err := h.store.List(r.Context(), opts)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list chunks", err)
		return
	}

	pages := 0
	if result.PageSize > 0 {
		pages = (result.Total + result.PageSize - 1) / result.PageSize
	}
	respondJSON(w, http.StatusOK, ChunkListResponse{
		Chunks: result.Items,
		Total:  result.Total,
		Page:   result.Page,
		Pages:  pages,
	})
}

// GetChunk handles GET /api/chunks/{id}.
func (h *APIHandlers) GetChunk(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/chunks/")
	if id == "" || strings.Contains(id, "/") {
		respondError(w, http.StatusBadRequest, "invalid chunk id", nil)
		return
	}

	chunk, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "chunk not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get chunk", err)
		return
	}

	respondJSON(w, http.StatusOK, chunk)
}

// Stats handles GET /api/stats - store counts, catalog size and
// circuit breaker state for operator visibility.
func (h *APIHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.store.Count(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to count chunks", err)
		return
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	resp := StatsResponse{
		ChunksByModule: counts,
		TotalChunks:    total,
	}
	if h.catalog != nil {
		resp.CatalogSize = len(h.catalog.Programs)
	}
	if h.provider != nil {
		resp.BreakerState = h.provider.BreakerState()
		if h.provider.Embedding != nil {
			resp.EmbeddingModel = h.provider.Embedding.GetModel()
		}
		if h.provider.Text != nil {
			resp.TextModel = h.provider.Text.GetModel()
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

// decodeJSON decodes a bounded request body, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func parseInt(s string, defaultValue int) int {
	if s == "" {
		return defaultValue
	}
	val, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return val
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers already sent, nothing left to do but log.
		fmt.Printf("failed to encode JSON response: %v\n", err)
	}
}

// respondError writes an error response with the given status code.
func respondError(w http.ResponseWriter, statusCode int, message string, err error) {
	errResp := ErrorResponse{
		Error: message,
		Code:  http.StatusText(statusCode),
	}
	if err != nil {
		errResp.Details = map[string]interface{}{
			"error": err.Error(),
		}
	}
	respondJSON(w, statusCode, errResp)
}
