package knowledge

import (
	"strings"

	"github.com/khetha-app/khetha/pkg/types"
)

// DefaultDedupeThreshold is the Jaccard similarity above which a chunk
// counts as a near duplicate of an already accepted one.
const DefaultDedupeThreshold = 0.9

// Dedupe walks ranked chunks in order and drops any whose token-level
// Jaccard similarity with an already accepted chunk exceeds threshold.
// First occurrence wins, so the highest-ranked copy survives. The
// operation is idempotent.
func Dedupe(chunks []types.RankedChunk, threshold float64) []types.RankedChunk {
	if threshold <= 0 {
		threshold = DefaultDedupeThreshold
	}

	accepted := make([]types.RankedChunk, 0, len(chunks))
	acceptedTokens := make([]map[string]struct{}, 0, len(chunks))

	for _, chunk := range chunks {
		tokens := tokenSet(chunk.Text)
		duplicate := false
		for _, prev := range acceptedTokens {
			if jaccard(tokens, prev) > threshold {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		accepted = append(accepted, chunk)
		acceptedTokens = append(acceptedTokens, tokens)
	}
	return accepted
}

// tokenSet lowercases and splits on whitespace. No stemming or stopword
// removal: near-duplicate detection only needs gross lexical overlap.
func tokenSet(text string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// jaccard computes |A∩B| / |A∪B|. Two empty sets are identical.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	intersection := 0
	for token := range a {
		if _, ok := b[token]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}
