// Package knowledge implements the profile-aware retrieval pipeline:
// re-ranking, near-duplicate removal, token-budgeted context assembly
// and final instruction-payload structuring.
//
// Everything here is pure CPU-bound computation. The package performs
// no I/O: callers hand it an already-retrieved candidate list, so slow
// retrieval can never block the compute path.
package knowledge

import (
	"fmt"
	"sort"
	"strings"

	"github.com/khetha-app/khetha/pkg/types"
)

// Boost weights. Signals are additive and independent: a chunk matching
// several strengths accumulates the strength boost once per matched
// strength, uncapped.
const (
	strengthBoost      = 0.10
	interestBoost      = 0.08
	financialNeedBoost = 0.15

	// modulePriorityStep scales the per-slot module bonus:
	// (modulePrioritySlots - index) * modulePriorityStep.
	modulePriorityStep = 0.05

	// modulePrioritySlots is the boost ceiling: only the first five
	// priority slots earn a module bonus, slots beyond that contribute
	// zero. Known quirk, kept as observed behavior.
	modulePrioritySlots = 5
)

// fundingKeywords trigger the flat financial-need boost when the
// profile signals need.
var fundingKeywords = []string{"bursary", "scholarship", "funding"}

// Rerank re-scores retrieval candidates with profile-aware boosts and
// returns them sorted by boosted similarity descending. The sort is
// stable: ties keep the original retrieval order.
//
// Rerank never fails; empty input yields empty output.
func Rerank(chunks []types.ScoredChunk, p types.StudentProfile) []types.RankedChunk {
	ranked := make([]types.RankedChunk, 0, len(chunks))

	for _, chunk := range chunks {
		text := strings.ToLower(chunk.Text)

		var c types.BoostComponents
		var matchedStrengths, matchedInterests []string

		for _, strength := range p.Strengths {
			if strings.Contains(text, strings.ToLower(strength)) {
				c.StrengthMatch += strengthBoost
				matchedStrengths = append(matchedStrengths, strength)
			}
		}
		for _, interest := range p.Interests {
			if strings.Contains(text, strings.ToLower(interest)) {
				c.InterestMatch += interestBoost
				matchedInterests = append(matchedInterests, interest)
			}
		}
		if p.NeedLevel.Known() && containsAny(text, fundingKeywords) {
			c.FinancialNeed = financialNeedBoost
		}
		if idx := indexOf(p.PriorityModules, chunk.Module); idx >= 0 && idx < modulePrioritySlots {
			c.ModulePriority = float64(modulePrioritySlots-idx) * modulePriorityStep
		}

		boost := c.Total()
		ranked = append(ranked, types.RankedChunk{
			ScoredChunk:       chunk,
			Boost:             boost,
			BoostedSimilarity: min(chunk.Similarity+boost, 1.0),
			Components:        c,
			Reason:            buildReason(chunk, c, matchedStrengths, matchedInterests),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].BoostedSimilarity > ranked[j].BoostedSimilarity
	})
	return ranked
}

// buildReason explains a chunk's ranking for operator debugging.
func buildReason(chunk types.ScoredChunk, c types.BoostComponents, strengths, interests []string) string {
	parts := []string{fmt.Sprintf("similarity %.2f", chunk.Similarity)}
	if len(strengths) > 0 {
		parts = append(parts, "matches strengths: "+strings.Join(strengths, ", "))
	}
	if len(interests) > 0 {
		parts = append(parts, "matches interests: "+strings.Join(interests, ", "))
	}
	if c.FinancialNeed > 0 {
		parts = append(parts, "mentions funding")
	}
	if c.ModulePriority > 0 {
		parts = append(parts, fmt.Sprintf("priority module %s (+%.2f)", chunk.Module, c.ModulePriority))
	}
	return strings.Join(parts, "; ")
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func indexOf(list []string, s string) int {
	for i, item := range list {
		if item == s {
			return i
		}
	}
	return -1
}
