package engine

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/khetha-app/khetha/internal/admission"
	"github.com/khetha-app/khetha/internal/catalog"
	"github.com/khetha-app/khetha/internal/config"
	"github.com/khetha-app/khetha/internal/knowledge"
	"github.com/khetha-app/khetha/internal/llm"
	"github.com/khetha-app/khetha/internal/profile"
	"github.com/khetha-app/khetha/internal/storage"
	"github.com/khetha-app/khetha/pkg/types"
)

// GuidanceEngine runs the guidance pipeline. It holds no mutable
// per-request state; one engine serves all requests concurrently.
//
// Retrieval failures (embedding provider down, open circuit breaker,
// store errors) never fail a request: the engine falls back to a
// degraded result that still carries the profile and admission output.
type GuidanceEngine struct {
	searcher  storage.ChunkSearcher
	embedder  llm.EmbeddingGenerator
	generator llm.TextGenerator
	assembler *knowledge.Assembler
	catalog   *catalog.Catalog

	retrievalLimit  int
	dedupeThreshold float64

	mu      sync.RWMutex
	onStage func(stage, detail string)
}

// NewGuidanceEngine wires the pipeline. generator may be nil when the
// deployment never generates answers server-side.
func NewGuidanceEngine(searcher storage.ChunkSearcher, embedder llm.EmbeddingGenerator, generator llm.TextGenerator, cat *catalog.Catalog, cfg config.PipelineConfig) *GuidanceEngine {
	if cat == nil {
		cat = &catalog.Catalog{Programs: catalog.DefaultPrograms()}
	}
	if cfg.RetrievalLimit <= 0 {
		cfg.RetrievalLimit = 20
	}
	if cfg.DedupeThreshold <= 0 {
		cfg.DedupeThreshold = knowledge.DefaultDedupeThreshold
	}
	return &GuidanceEngine{
		searcher:        searcher,
		embedder:        embedder,
		generator:       generator,
		assembler:       knowledge.NewAssembler(cfg.MaxTokens),
		catalog:         cat,
		retrievalLimit:  cfg.RetrievalLimit,
		dedupeThreshold: cfg.DedupeThreshold,
	}
}

// SetOnStage sets a callback fired as each pipeline stage completes.
// Used by the server to push progress events over WebSocket.
func (e *GuidanceEngine) SetOnStage(callback func(stage, detail string)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onStage = callback
}

func (e *GuidanceEngine) emit(stage, detail string) {
	e.mu.RLock()
	callback := e.onStage
	e.mu.RUnlock()
	if callback != nil {
		callback(stage, detail)
	}
}

// Guide runs the full pipeline for one request.
//
// Errors are returned only for unprocessable input (empty request,
// invalid marks) or a token budget too small for the profile summary.
// Everything retrieval-related degrades instead.
func (e *GuidanceEngine) Guide(ctx context.Context, req GuidanceRequest) (*GuidanceResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p := profile.Extract(req.Query)
	if req.Grade > 0 {
		p.Grade = req.Grade
	}
	p.Marks = req.Marks
	p.PriorityModules = profile.PriorityModules(&p)
	e.emit(StageProfile, fmt.Sprintf("need=%s interests=%d", p.NeedLevel, len(p.Interests)))

	result := &GuidanceResult{Profile: p}

	if len(req.Marks) > 0 {
		ap, err := admission.ComputeAPS(req.Marks)
		if err != nil {
			return nil, err
		}
		result.Candidates = admission.MatchPrograms(ap, e.catalog.Programs)
		ap.UniversityEligible = admission.AnyEligible(result.Candidates)
		result.Admission = &ap
		e.emit(StageAdmission, fmt.Sprintf("aps=%d candidates=%d", ap.CurrentAPS, len(result.Candidates)))
	}

	assembled, err := e.retrieveAndAssemble(ctx, req.Query, p)
	if err != nil {
		return nil, err
	}
	result.Context = assembled

	result.FinalContext = knowledge.BuildFinalContext(p, result.Admission, result.Candidates, assembled)
	e.emit(StageAssemble, fmt.Sprintf("tokens=%d chunks=%d degraded=%t",
		assembled.Meta.TokensUsed, assembled.Meta.IncludedCount, assembled.Meta.Degraded))

	if req.GenerateAnswer && e.generator != nil {
		answer, err := e.generator.Complete(ctx, result.FinalContext)
		if err != nil {
			log.Printf("WARN: answer generation failed: %v", err)
			result.AnswerError = err.Error()
		} else {
			result.Answer = answer
		}
		e.emit(StageGenerate, fmt.Sprintf("ok=%t", result.AnswerError == ""))
	}

	e.emit(StageComplete, "")
	return result, nil
}

// GuideAssessment runs the pipeline from a structured assessment
// instead of free text.
func (e *GuidanceEngine) GuideAssessment(ctx context.Context, a types.Assessment, generateAnswer bool) (*GuidanceResult, error) {
	p := profile.FromAssessment(a)
	p.PriorityModules = profile.PriorityModules(&p)
	e.emit(StageProfile, fmt.Sprintf("assessment grade=%d", a.Grade))

	result := &GuidanceResult{Profile: p}

	if len(a.Marks) > 0 {
		ap, err := admission.ComputeAPS(a.Marks)
		if err != nil {
			return nil, err
		}
		result.Candidates = admission.MatchPrograms(ap, e.catalog.Programs)
		ap.UniversityEligible = admission.AnyEligible(result.Candidates)
		result.Admission = &ap
		e.emit(StageAdmission, fmt.Sprintf("aps=%d candidates=%d", ap.CurrentAPS, len(result.Candidates)))
	}

	query := assessmentQuery(a)
	assembled, err := e.retrieveAndAssemble(ctx, query, p)
	if err != nil {
		return nil, err
	}
	result.Context = assembled
	result.FinalContext = knowledge.BuildFinalContext(p, result.Admission, result.Candidates, assembled)

	if generateAnswer && e.generator != nil {
		answer, err := e.generator.Complete(ctx, result.FinalContext)
		if err != nil {
			log.Printf("WARN: answer generation failed: %v", err)
			result.AnswerError = err.Error()
		} else {
			result.Answer = answer
		}
	}

	e.emit(StageComplete, "")
	return result, nil
}

// MatchAdmission is the pure-compute path: marks in, ranked programs
// out. It works with retrieval entirely down.
func (e *GuidanceEngine) MatchAdmission(marks []types.SubjectMark) (types.AdmissionProfile, []types.ProgramCandidate, error) {
	ap, err := admission.ComputeAPS(marks)
	if err != nil {
		return types.AdmissionProfile{}, nil, err
	}
	candidates := admission.MatchPrograms(ap, e.catalog.Programs)
	ap.UniversityEligible = admission.AnyEligible(candidates)
	return ap, candidates, nil
}

// retrieveAndAssemble embeds the query, searches the knowledge base and
// assembles the context. Any retrieval failure yields a degraded
// minimal context rather than an error; only ErrBudgetExhausted
// (a configuration problem) propagates.
func (e *GuidanceEngine) retrieveAndAssemble(ctx context.Context, query string, p types.StudentProfile) (types.AssembledContext, error) {
	ranked, degradedReason := e.retrieve(ctx, query, p)
	e.emit(StageRerank, fmt.Sprintf("candidates=%d", len(ranked)))

	assembled, err := e.assembler.Assemble(ranked, p)
	if err != nil {
		return types.AssembledContext{}, err
	}
	if degradedReason != "" {
		assembled.Meta.Degraded = true
		assembled.Meta.DegradedReason = degradedReason
	}
	return assembled, nil
}

// retrieve returns ranked, deduplicated candidates, or nil plus a
// reason when retrieval is unavailable.
func (e *GuidanceEngine) retrieve(ctx context.Context, query string, p types.StudentProfile) ([]types.RankedChunk, string) {
	if e.searcher == nil || e.embedder == nil {
		return nil, "knowledge retrieval not configured"
	}
	if query == "" {
		query = knowledge.ProfileSummary(p)
	}

	embedding, err := e.embedder.Embed(ctx, query)
	if err != nil {
		log.Printf("WARN: query embedding failed, degrading: %v", err)
		return nil, fmt.Sprintf("embedding unavailable: %v", err)
	}

	chunks, err := e.searcher.Search(ctx, embedding, storage.SearchOptions{Limit: e.retrievalLimit})
	if err != nil {
		log.Printf("WARN: vector search failed, degrading: %v", err)
		return nil, fmt.Sprintf("search unavailable: %v", err)
	}
	e.emit(StageRetrieval, fmt.Sprintf("retrieved=%d", len(chunks)))

	ranked := knowledge.Rerank(chunks, p)
	return knowledge.Dedupe(ranked, e.dedupeThreshold), ""
}

// assessmentQuery flattens an assessment into retrieval query text.
func assessmentQuery(a types.Assessment) string {
	parts := make([]string, 0, len(a.Interests)+len(a.Constraints)+len(a.OpenQuestions))
	parts = append(parts, a.Interests...)
	parts = append(parts, a.Constraints...)
	for _, oa := range a.OpenQuestions {
		parts = append(parts, oa.Answer)
	}
	query := ""
	for i, part := range parts {
		if i > 0 {
			query += " "
		}
		query += part
	}
	return query
}
