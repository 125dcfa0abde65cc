// Package handlers provides HTTP handlers and middleware for the Khetha
// guidance API.
package handlers

import (
	"github.com/khetha-app/khetha/pkg/types"
)

// ErrorResponse is the standard error response format for the API.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// GuidanceRequest is the body for POST /api/guidance.
type GuidanceRequest struct {
	Query          string              `json:"query"`
	Grade          int                 `json:"grade,omitempty"`
	Marks          []types.SubjectMark `json:"marks,omitempty"`
	GenerateAnswer bool                `json:"generate_answer,omitempty"`
}

// AdmissionMatchRequest is the body for POST /api/admission/match.
type AdmissionMatchRequest struct {
	Marks []types.SubjectMark `json:"marks"`
}

// AdmissionMatchResponse is the response for POST /api/admission/match.
type AdmissionMatchResponse struct {
	Admission  types.AdmissionProfile   `json:"admission"`
	Candidates []types.ProgramCandidate `json:"candidates"`
}

// ChunkListResponse is the response for GET /api/chunks.
type ChunkListResponse struct {
	Chunks []types.KnowledgeChunk `json:"chunks"`
	Total  int                    `json:"total"`
	Page   int                    `json:"page"`
	Pages  int                    `json:"pages"`
}

// StatsResponse is the response for GET /api/stats.
type StatsResponse struct {
	ChunksByModule map[string]int `json:"chunks_by_module"`
	TotalChunks    int            `json:"total_chunks"`
	CatalogSize    int            `json:"catalog_size"`
	BreakerState   string         `json:"breaker_state,omitempty"`
	EmbeddingModel string         `json:"embedding_model,omitempty"`
	TextModel      string         `json:"text_model,omitempty"`
}

// PipelineEvent is one stage-progress message pushed over WebSocket.
type PipelineEvent struct {
	Type   string `json:"type"`
	Stage  string `json:"stage"`
	Detail string `json:"detail,omitempty"`
}
