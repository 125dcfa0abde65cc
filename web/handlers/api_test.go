package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khetha-app/khetha/internal/catalog"
	"github.com/khetha-app/khetha/internal/config"
	"github.com/khetha-app/khetha/internal/engine"
	"github.com/khetha-app/khetha/internal/storage/sqlite"
	"github.com/khetha-app/khetha/pkg/types"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (stubEmbedder) GetModel() string { return "stub-embed" }

func newTestHandlers(t *testing.T) (*APIHandlers, *sqlite.ChunkStore) {
	t.Helper()

	store, err := sqlite.NewChunkStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cat := &catalog.Catalog{Programs: catalog.DefaultPrograms()}
	eng := engine.NewGuidanceEngine(store, stubEmbedder{}, nil, cat, config.PipelineConfig{MaxTokens: 3000})
	return NewAPIHandlers(store, eng, cat, nil), store
}

func seedChunks(t *testing.T, store *sqlite.ChunkStore, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		chunk := &types.KnowledgeChunk{
			ID:        fmt.Sprintf("chunk-%03d", i),
			Text:      fmt.Sprintf("Career guidance fact number %d about bursaries and technology", i),
			Module:    types.ModuleCareers,
			Source:    "seed",
			Embedding: []float32{1, 0, 0},
		}
		require.NoError(t, store.Store(context.Background(), chunk))
	}
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestGuidanceEndpoint(t *testing.T) {
	h, store := newTestHandlers(t)
	seedChunks(t, store, 3)

	rec := postJSON(t, h.Guidance, "/api/guidance", GuidanceRequest{
		Query: "I can't afford university but I love technology",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var result engine.GuidanceResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, types.NeedHigh, result.Profile.NeedLevel)
	assert.NotEmpty(t, result.FinalContext)
	assert.False(t, result.Context.Meta.Degraded)
}

func TestGuidanceEndpointRejectsInvalidMarks(t *testing.T) {
	h, _ := newTestHandlers(t)

	rec := postJSON(t, h.Guidance, "/api/guidance", GuidanceRequest{
		Query: "help",
		Marks: []types.SubjectMark{{Subject: "Mathematics", Percentage: 150}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid marks")
}

func TestGuidanceEndpointRejectsBadJSON(t *testing.T) {
	h, _ := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodPost, "/api/guidance", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	h.Guidance(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGuidanceEndpointBudgetMisconfigurationIsServerError(t *testing.T) {
	store, err := sqlite.NewChunkStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	// A budget smaller than the profile summary can never serve a request.
	cat := &catalog.Catalog{Programs: catalog.DefaultPrograms()}
	eng := engine.NewGuidanceEngine(store, stubEmbedder{}, nil, cat, config.PipelineConfig{MaxTokens: 5})
	h := NewAPIHandlers(store, eng, cat, nil)

	rec := postJSON(t, h.Guidance, "/api/guidance", GuidanceRequest{
		Query: "I want to study engineering",
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "context budget misconfigured")

	rec = postJSON(t, h.Assessment, "/api/assessment", types.Assessment{
		Interests: []string{"engineering"},
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAssessmentEndpoint(t *testing.T) {
	h, store := newTestHandlers(t)
	seedChunks(t, store, 2)

	rec := postJSON(t, h.Assessment, "/api/assessment", types.Assessment{
		Grade:     12,
		Interests: []string{"healthcare"},
		Marks:     []types.SubjectMark{{Subject: "Life Sciences", Percentage: 68}},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var result engine.GuidanceResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 12, result.Profile.Grade)
	require.NotNil(t, result.Admission)
}

func TestAdmissionMatchEndpoint(t *testing.T) {
	h, _ := newTestHandlers(t)

	rec := postJSON(t, h.AdmissionMatch, "/api/admission/match", AdmissionMatchRequest{
		Marks: []types.SubjectMark{
			{Subject: "Mathematics", Percentage: 85},
			{Subject: "English", Percentage: 70},
			{Subject: "Physical Sciences", Percentage: 75},
			{Subject: "Life Orientation", Percentage: 90},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AdmissionMatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 21, resp.Admission.CurrentAPS)
	assert.NotEmpty(t, resp.Candidates)
}

func TestAdmissionMatchEndpointRequiresMarks(t *testing.T) {
	h, _ := newTestHandlers(t)
	rec := postJSON(t, h.AdmissionMatch, "/api/admission/match", AdmissionMatchRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListChunksEndpoint(t *testing.T) {
	h, store := newTestHandlers(t)
	seedChunks(t, store, 25)

	req := httptest.NewRequest(http.MethodGet, "/api/chunks?page=2&limit=10", nil)
	rec := httptest.NewRecorder()
	h.ListChunks(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ChunkListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 25, resp.Total)
	assert.Equal(t, 2, resp.Page)
	assert.Equal(t, 3, resp.Pages)
	assert.Len(t, resp.Chunks, 10)
}

func TestGetChunkEndpoint(t *testing.T) {
	h, store := newTestHandlers(t)
	seedChunks(t, store, 1)

	req := httptest.NewRequest(http.MethodGet, "/api/chunks/chunk-000", nil)
	rec := httptest.NewRecorder()
	h.GetChunk(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var chunk types.KnowledgeChunk
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &chunk))
	assert.Equal(t, "chunk-000", chunk.ID)
}

func TestGetChunkEndpointNotFound(t *testing.T) {
	h, _ := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/api/chunks/nope", nil)
	rec := httptest.NewRecorder()
	h.GetChunk(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatsEndpoint(t *testing.T) {
	h, store := newTestHandlers(t)
	seedChunks(t, store, 4)

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()
	h.Stats(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 4, resp.TotalChunks)
	assert.Equal(t, 4, resp.ChunksByModule[types.ModuleCareers])
	assert.Equal(t, len(catalog.DefaultPrograms()), resp.CatalogSize)
}
