package types

import "time"

// Knowledge module names. Every chunk belongs to exactly one module;
// module membership drives prioritization weight during re-ranking.
const (
	ModuleCareers              = "careers"
	ModuleBursaries            = "bursaries"
	ModuleSubjectCareerMapping = "subject_career_mapping"
	ModuleEmergingJobs         = "4ir_emerging_jobs"
	ModuleUniversities         = "sa_universities"
)

// KnowledgeChunk is one retrievable unit of knowledge-base text
// (a career description, bursary terms, a program admission rule).
// Chunks are created by offline ingestion and are read-only at query time.
type KnowledgeChunk struct {
	// ID is the chunk's unique identifier.
	ID string `json:"id"`

	// Text is the chunk content handed to the language model.
	Text string `json:"text"`

	// Module is the knowledge module the chunk belongs to
	// (one of the Module* constants).
	Module string `json:"module"`

	// Source identifies where the chunk came from (e.g. "nsfas_guide_2025").
	Source string `json:"source,omitempty"`

	// Tags are free-form labels attached at ingestion time.
	Tags []string `json:"tags,omitempty"`

	// Embedding is the chunk's vector representation. Populated at
	// ingestion; omitted from search results to keep payloads small.
	Embedding []float32 `json:"embedding,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ScoredChunk is a KnowledgeChunk paired with its raw similarity to the
// query embedding, as reported by the vector store. Similarity is in [0,1].
type ScoredChunk struct {
	KnowledgeChunk
	Similarity float64 `json:"similarity"`
}

// BoostComponents breaks a chunk's boost down into its individual signals.
type BoostComponents struct {
	// StrengthMatch is the accumulated boost from academic-strength
	// keywords found in the chunk text (0.10 per hit, uncapped).
	StrengthMatch float64 `json:"strength_match"`

	// InterestMatch is the accumulated boost from interest keywords
	// (0.08 per hit).
	InterestMatch float64 `json:"interest_match"`

	// FinancialNeed is the flat funding-language boost (0.15) applied
	// when the profile signals need and the text mentions funding.
	FinancialNeed float64 `json:"financial_need"`

	// ModulePriority is the boost from the chunk's module position in
	// the profile's priority list.
	ModulePriority float64 `json:"module_priority"`
}

// Total returns the sum of all boost components.
func (b BoostComponents) Total() float64 {
	return b.StrengthMatch + b.InterestMatch + b.FinancialNeed + b.ModulePriority
}

// RankedChunk is a ScoredChunk after profile-aware re-ranking.
type RankedChunk struct {
	ScoredChunk

	// Boost is the total additive adjustment applied to Similarity.
	Boost float64 `json:"boost"`

	// BoostedSimilarity is min(Similarity+Boost, 1.0) and is the sort key.
	BoostedSimilarity float64 `json:"boosted_similarity"`

	// Components explains where the boost came from.
	Components BoostComponents `json:"components"`

	// Reason is a short human-readable explanation of the ranking,
	// for operator debugging.
	Reason string `json:"reason,omitempty"`
}

// DetectedFramework records a named decision-framework found in the
// assembled context, with the module of the chunk that first mentioned it.
type DetectedFramework struct {
	Name         string `json:"name"`
	SourceModule string `json:"source_module"`
}

// ContextMeta describes how an AssembledContext was built. These fields
// are required for testability and operator debugging.
type ContextMeta struct {
	// TokensUsed is the estimated token count of the assembled text.
	// Always <= the configured budget.
	TokensUsed int `json:"tokens_used"`

	// TotalCandidates is the number of ranked chunks offered to the packer.
	TotalCandidates int `json:"total_candidates"`

	// IncludedCount is the number of chunks that fit the budget.
	IncludedCount int `json:"included_count"`

	// Sources is the distinct set of source tags across included chunks.
	Sources []string `json:"sources,omitempty"`

	// Degraded is true when retrieval failed and the context was built
	// without knowledge chunks.
	Degraded bool `json:"degraded,omitempty"`

	// DegradedReason explains why the context is degraded, when it is.
	DegradedReason string `json:"degraded_reason,omitempty"`
}

// AssembledContext is the token-bounded context block handed to the
// language model, with provenance.
type AssembledContext struct {
	Text       string              `json:"text"`
	Included   []RankedChunk       `json:"included,omitempty"`
	Frameworks []DetectedFramework `json:"frameworks,omitempty"`
	Meta       ContextMeta         `json:"meta"`
}
