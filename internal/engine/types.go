// Package engine orchestrates the guidance pipeline: profile
// extraction, admission matching, knowledge retrieval, re-ranking and
// context assembly for a single student request.
package engine

import (
	"fmt"

	"github.com/khetha-app/khetha/pkg/types"
)

// Pipeline stage names broadcast to attached progress listeners.
const (
	StageProfile   = "profile_extraction"
	StageAdmission = "admission_matching"
	StageRetrieval = "knowledge_retrieval"
	StageRerank    = "reranking"
	StageAssemble  = "context_assembly"
	StageGenerate  = "answer_generation"
	StageComplete  = "complete"
)

// GuidanceRequest is one student request through the full pipeline.
type GuidanceRequest struct {
	// Query is the student's free-text question or self-description.
	Query string

	// Grade is the student's school grade (optional, 0 when unknown).
	Grade int

	// Marks are the student's subject marks (optional). When present
	// the pipeline also computes APS and program feasibility.
	Marks []types.SubjectMark

	// GenerateAnswer requests an LLM completion over the final context.
	// When false the result carries the context only, for callers that
	// run their own model.
	GenerateAnswer bool
}

// Validate checks the request is processable.
func (r *GuidanceRequest) Validate() error {
	if r.Query == "" && len(r.Marks) == 0 {
		return fmt.Errorf("request needs a query or marks")
	}
	return nil
}

// GuidanceResult is the full pipeline output for one request.
type GuidanceResult struct {
	// Profile holds the extracted student signals.
	Profile types.StudentProfile `json:"profile"`

	// Admission is nil when the request carried no marks.
	Admission *types.AdmissionProfile `json:"admission,omitempty"`

	// Candidates are the feasibility-ranked programs, empty without marks.
	Candidates []types.ProgramCandidate `json:"candidates,omitempty"`

	// Context is the assembled, token-bounded knowledge context.
	Context types.AssembledContext `json:"context"`

	// FinalContext is the structured instruction payload for the model.
	FinalContext string `json:"final_context"`

	// Answer is the generated guidance text, empty unless requested.
	Answer string `json:"answer,omitempty"`

	// AnswerError reports a failed generation without failing the
	// request; the context is still usable.
	AnswerError string `json:"answer_error,omitempty"`
}

// Degraded reports whether retrieval failed for this result.
func (r *GuidanceResult) Degraded() bool {
	return r.Context.Meta.Degraded
}
