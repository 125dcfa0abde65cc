package knowledge

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/khetha-app/khetha/pkg/types"
)

// DefaultMaxTokens bounds the assembled context handed to the language
// model.
const DefaultMaxTokens = 3000

// ErrBudgetExhausted signals that the profile summary alone exceeds the
// token budget. This is a configuration error (budget too small), not
// normal truncation: a context with zero chunks behind it would be a
// misconfiguration masquerading as a degraded answer.
var ErrBudgetExhausted = errors.New("token budget exhausted before any chunk fits")

// frameworkPattern names a decision framework the guidance content may
// reference. Detection is reported once per framework; the first
// matching chunk wins provenance.
type frameworkPattern struct {
	name    string
	pattern *regexp.Regexp
}

var frameworkPatterns = []frameworkPattern{
	{"V.I.S. Model", regexp.MustCompile(`(?i)\bV\.?I\.?S\.?\s+Model\b`)},
	{"70/30 Rule", regexp.MustCompile(`(?i)\b70\s*/\s*30\s+Rule\b`)},
	{"Ikigai", regexp.MustCompile(`(?i)\bikigai\b`)},
	{"Holland Codes", regexp.MustCompile(`(?i)\bholland\s+codes?\b`)},
	{"SWOT Analysis", regexp.MustCompile(`(?i)\bSWOT\b`)},
	{"SMART Goals", regexp.MustCompile(`(?i)\bSMART\s+goals?\b`)},
}

// EstimateTokens approximates token count as ceil(len(text)/4). Fixed
// heuristic, not a real tokenizer; budget behavior depends on it being
// reproduced exactly, so substituting a tokenizer changes which chunks
// get truncated.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// Assembler packs ranked chunks plus a profile summary into a
// token-bounded context string.
type Assembler struct {
	maxTokens int
}

// NewAssembler returns an assembler bounded at maxTokens, or
// DefaultMaxTokens when maxTokens <= 0.
func NewAssembler(maxTokens int) *Assembler {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Assembler{maxTokens: maxTokens}
}

// MaxTokens returns the configured budget.
func (a *Assembler) MaxTokens() int { return a.maxTokens }

// Assemble greedily packs chunks in ranked order under the token
// budget. The profile summary is always first and always budgeted.
// Packing stops at the first chunk that would overflow; later smaller
// chunks are not considered. Zero candidates is not an error: the
// result is a valid minimal context holding only the summary.
//
// Returns ErrBudgetExhausted when the summary alone exceeds the budget.
func (a *Assembler) Assemble(ranked []types.RankedChunk, p types.StudentProfile) (types.AssembledContext, error) {
	summary := ProfileSummary(p)
	tokensUsed := EstimateTokens(summary)
	if tokensUsed > a.maxTokens {
		return types.AssembledContext{}, fmt.Errorf("profile summary needs %d tokens, budget is %d: %w",
			tokensUsed, a.maxTokens, ErrBudgetExhausted)
	}

	var sb strings.Builder
	sb.WriteString(summary)

	var included []types.RankedChunk
	for _, chunk := range ranked {
		block := formatChunk(chunk)
		cost := EstimateTokens(block)
		if tokensUsed+cost > a.maxTokens {
			break
		}
		sb.WriteString(block)
		tokensUsed += cost
		included = append(included, chunk)
	}

	return types.AssembledContext{
		Text:       sb.String(),
		Included:   included,
		Frameworks: detectFrameworks(included),
		Meta: types.ContextMeta{
			TokensUsed:      tokensUsed,
			TotalCandidates: len(ranked),
			IncludedCount:   len(included),
			Sources:         distinctSources(included),
		},
	}, nil
}

// ProfileSummary renders the student profile as the leading context
// block. Every line is emitted even when the signal is absent so the
// model sees a stable shape.
func ProfileSummary(p types.StudentProfile) string {
	var sb strings.Builder
	sb.WriteString("STUDENT PROFILE\n")
	sb.WriteString("Strengths: " + orNone(p.Strengths) + "\n")
	sb.WriteString("Weaknesses: " + orNone(p.Weaknesses) + "\n")
	sb.WriteString("Interests: " + orNone(p.Interests) + "\n")
	sb.WriteString("Financial need: " + p.NeedLevel.String() + "\n")
	if p.Grade > 0 {
		sb.WriteString(fmt.Sprintf("Grade: %d\n", p.Grade))
	}
	sb.WriteString("\n")
	return sb.String()
}

func formatChunk(chunk types.RankedChunk) string {
	return fmt.Sprintf("[%s | %s]\n%s\n\n", chunk.Module, chunk.Source, chunk.Text)
}

func detectFrameworks(included []types.RankedChunk) []types.DetectedFramework {
	var detected []types.DetectedFramework
	seen := make(map[string]bool)
	for _, fp := range frameworkPatterns {
		for _, chunk := range included {
			if seen[fp.name] {
				break
			}
			if fp.pattern.MatchString(chunk.Text) {
				detected = append(detected, types.DetectedFramework{
					Name:         fp.name,
					SourceModule: chunk.Module,
				})
				seen[fp.name] = true
			}
		}
	}
	return detected
}

func distinctSources(included []types.RankedChunk) []string {
	set := make(map[string]struct{})
	for _, chunk := range included {
		if chunk.Source != "" {
			set[chunk.Source] = struct{}{}
		}
	}
	sources := make([]string, 0, len(set))
	for s := range set {
		sources = append(sources, s)
	}
	sort.Strings(sources)
	return sources
}

func orNone(items []string) string {
	if len(items) == 0 {
		return "none identified"
	}
	return strings.Join(items, ", ")
}
