package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khetha-app/khetha/pkg/types"
)

func rankedChunk(id, text string) types.RankedChunk {
	return types.RankedChunk{ScoredChunk: scored(id, text, types.ModuleCareers, 0.5)}
}

func TestDedupeDropsNearDuplicates(t *testing.T) {
	chunks := []types.RankedChunk{
		rankedChunk("a", "Software engineers design and build computer programs for companies"),
		rankedChunk("b", "Software engineers design and build computer programs for companies"),
		rankedChunk("c", "Nurses care for patients in hospitals and clinics"),
	}

	out := Dedupe(chunks, 0.9)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].ID)
	assert.Equal(t, "c", out[1].ID)
}

func TestDedupeFirstOccurrenceWins(t *testing.T) {
	chunks := []types.RankedChunk{
		rankedChunk("high", "identical text about bursaries and funding"),
		rankedChunk("low", "identical text about bursaries and funding"),
	}

	out := Dedupe(chunks, 0.9)
	require.Len(t, out, 1)
	assert.Equal(t, "high", out[0].ID)
}

func TestDedupeKeepsDistinctChunks(t *testing.T) {
	chunks := []types.RankedChunk{
		rankedChunk("a", "Medicine requires strong marks in physical sciences"),
		rankedChunk("b", "NSFAS funds students from low income households"),
		rankedChunk("c", "Data science is one of the fastest growing fields"),
	}

	out := Dedupe(chunks, 0.9)
	assert.Len(t, out, 3)
}

func TestDedupeIdempotent(t *testing.T) {
	chunks := []types.RankedChunk{
		rankedChunk("a", "Engineering bursaries from Eskom cover full tuition"),
		rankedChunk("b", "Engineering bursaries from Eskom cover full tuition"),
		rankedChunk("c", "Teaching degrees are offered at most universities"),
	}

	once := Dedupe(chunks, 0.9)
	twice := Dedupe(once, 0.9)
	assert.Equal(t, once, twice)
}

func TestDedupeDefaultsThreshold(t *testing.T) {
	chunks := []types.RankedChunk{
		rankedChunk("a", "same words here exactly"),
		rankedChunk("b", "same words here exactly"),
	}

	out := Dedupe(chunks, 0)
	assert.Len(t, out, 1)
}

func TestJaccard(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "one two three", "one two three", 1.0},
		{"disjoint", "one two", "three four", 0.0},
		{"half overlap", "one two three", "two three four", 0.5},
		{"both empty", "", "", 1.0},
		{"one empty", "one", "", 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := jaccard(tokenSet(tt.a), tokenSet(tt.b))
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestTokenSetLowercasesAndSplits(t *testing.T) {
	set := tokenSet("  Bursary BURSARY funding\tFunding ")
	assert.Len(t, set, 2)
	assert.Contains(t, set, "bursary")
	assert.Contains(t, set, "funding")
}
