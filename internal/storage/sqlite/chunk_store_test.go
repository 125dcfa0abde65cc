package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khetha-app/khetha/internal/storage"
	"github.com/khetha-app/khetha/pkg/types"
)

func newTestStore(t *testing.T) *ChunkStore {
	t.Helper()
	store, err := NewChunkStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testChunk(id, text, module string, embedding []float32) *types.KnowledgeChunk {
	return &types.KnowledgeChunk{
		ID:        id,
		Text:      text,
		Module:    module,
		Source:    "test_fixture",
		Tags:      []string{"test"},
		Embedding: embedding,
	}
}

func TestChunkStore_StoreAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	chunk := testChunk("chunk-1", "Software developers build applications.", types.ModuleCareers, []float32{0.1, 0.2, 0.3})
	require.NoError(t, store.Store(ctx, chunk))

	got, err := store.Get(ctx, "chunk-1")
	require.NoError(t, err)
	assert.Equal(t, chunk.Text, got.Text)
	assert.Equal(t, types.ModuleCareers, got.Module)
	assert.Equal(t, []string{"test"}, got.Tags)
	assert.InDeltaSlice(t, []float32{0.1, 0.2, 0.3}, got.Embedding, 1e-6)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestChunkStore_UpsertByID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, testChunk("chunk-1", "old text", types.ModuleCareers, nil)))
	require.NoError(t, store.Store(ctx, testChunk("chunk-1", "new text", types.ModuleBursaries, nil)))

	got, err := store.Get(ctx, "chunk-1")
	require.NoError(t, err)
	assert.Equal(t, "new text", got.Text)
	assert.Equal(t, types.ModuleBursaries, got.Module)

	counts, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{types.ModuleBursaries: 1}, counts)
}

func TestChunkStore_GetNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestChunkStore_StoreValidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.Store(ctx, &types.KnowledgeChunk{Text: "no id", Module: types.ModuleCareers})
	assert.True(t, errors.Is(err, storage.ErrInvalidInput))

	err = store.Store(ctx, &types.KnowledgeChunk{ID: "x", Text: "no module"})
	assert.True(t, errors.Is(err, storage.ErrInvalidInput))
}

func TestChunkStore_ListWithModuleFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Store(ctx, testChunk(fmt.Sprintf("career-%d", i), "career text", types.ModuleCareers, nil)))
	}
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Store(ctx, testChunk(fmt.Sprintf("bursary-%d", i), "bursary text", types.ModuleBursaries, nil)))
	}

	result, err := store.List(ctx, storage.ListOptions{Module: types.ModuleBursaries})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Total)
	assert.Len(t, result.Items, 3)
	for _, c := range result.Items {
		assert.Equal(t, types.ModuleBursaries, c.Module)
		// List omits embeddings.
		assert.Empty(t, c.Embedding)
	}
}

func TestChunkStore_ListPagination(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		require.NoError(t, store.Store(ctx, testChunk(fmt.Sprintf("chunk-%d", i), "text", types.ModuleCareers, nil)))
	}

	page1, err := store.List(ctx, storage.ListOptions{Page: 1, Limit: 3})
	require.NoError(t, err)
	assert.Len(t, page1.Items, 3)
	assert.Equal(t, 7, page1.Total)
	assert.True(t, page1.HasMore)

	page3, err := store.List(ctx, storage.ListOptions{Page: 3, Limit: 3})
	require.NoError(t, err)
	assert.Len(t, page3.Items, 1)
	assert.False(t, page3.HasMore)
}

func TestChunkStore_Delete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, testChunk("chunk-1", "text", types.ModuleCareers, nil)))
	require.NoError(t, store.Delete(ctx, "chunk-1"))

	_, err := store.Get(ctx, "chunk-1")
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	assert.True(t, errors.Is(store.Delete(ctx, "chunk-1"), storage.ErrNotFound))
}

func TestChunkStore_Search(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Orthogonal unit vectors make similarity obvious: the query matches
	// chunk a exactly, chunk b not at all, chunk c partially.
	require.NoError(t, store.Store(ctx, testChunk("a", "exact match", types.ModuleCareers, []float32{1, 0, 0})))
	require.NoError(t, store.Store(ctx, testChunk("b", "orthogonal", types.ModuleCareers, []float32{0, 1, 0})))
	require.NoError(t, store.Store(ctx, testChunk("c", "partial", types.ModuleCareers, []float32{1, 1, 0})))

	results, err := store.Search(ctx, []float32{1, 0, 0}, storage.SearchOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "a", results[0].ID)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-6)
	assert.Equal(t, "c", results[1].ID)
	assert.Equal(t, "b", results[2].ID)
	assert.InDelta(t, 0.0, results[2].Similarity, 1e-6)

	// Results never carry embeddings.
	for _, r := range results {
		assert.Empty(t, r.Embedding)
	}
}

func TestChunkStore_SearchMinSimilarity(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, testChunk("a", "match", types.ModuleCareers, []float32{1, 0})))
	require.NoError(t, store.Store(ctx, testChunk("b", "orthogonal", types.ModuleCareers, []float32{0, 1})))

	results, err := store.Search(ctx, []float32{1, 0}, storage.SearchOptions{MinSimilarity: 0.5})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
}

func TestChunkStore_SearchModuleFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, testChunk("a", "career", types.ModuleCareers, []float32{1, 0})))
	require.NoError(t, store.Store(ctx, testChunk("b", "bursary", types.ModuleBursaries, []float32{1, 0})))

	results, err := store.Search(ctx, []float32{1, 0}, storage.SearchOptions{Module: types.ModuleBursaries})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].ID)
}

func TestChunkStore_SearchDimensionMismatch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, testChunk("a", "text", types.ModuleCareers, []float32{1, 0, 0})))

	_, err := store.Search(ctx, []float32{1, 0}, storage.SearchOptions{})
	assert.True(t, errors.Is(err, storage.ErrDimensionMismatch))
}

func TestChunkStore_SearchSkipsChunksWithoutEmbeddings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, testChunk("a", "embedded", types.ModuleCareers, []float32{1, 0})))
	require.NoError(t, store.Store(ctx, testChunk("b", "pending ingestion", types.ModuleCareers, nil)))

	results, err := store.Search(ctx, []float32{1, 0}, storage.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
}

func TestSerializeRoundTrip(t *testing.T) {
	original := []float32{0.5, -1.25, 3.75, 0}
	buf := serializeEmbedding(original)
	decoded, err := deserializeEmbedding(buf, len(original))
	require.NoError(t, err)
	assert.Equal(t, original, decoded)

	_, err = deserializeEmbedding(buf, 3)
	assert.Error(t, err)
}
