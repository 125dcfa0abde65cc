// Package storage provides composable storage interfaces for the Khetha
// knowledge base.
//
// The storage layer is designed with small, focused interfaces that can
// be implemented independently and composed as needed. Two backends
// exist: PostgreSQL with pgvector (production, Supabase-compatible) and
// embedded SQLite (development and tests).
package storage

import (
	"context"

	"github.com/khetha-app/khetha/pkg/types"
)

// ChunkStore provides CRUD operations and pagination for knowledge chunks.
type ChunkStore interface {
	// Store creates or updates a chunk (upsert semantics by ID).
	Store(ctx context.Context, chunk *types.KnowledgeChunk) error

	// Get retrieves a chunk by ID.
	// Returns ErrNotFound if the chunk doesn't exist.
	Get(ctx context.Context, id string) (*types.KnowledgeChunk, error)

	// List retrieves chunks with pagination and filtering. Embeddings
	// are omitted from listed chunks to keep payloads small.
	List(ctx context.Context, opts ListOptions) (*PaginatedResult[types.KnowledgeChunk], error)

	// Delete removes a chunk by ID.
	// Returns ErrNotFound if the chunk doesn't exist.
	Delete(ctx context.Context, id string) error

	// Count returns the number of stored chunks per module.
	Count(ctx context.Context) (map[string]int, error)

	// Close releases any resources held by the store.
	Close() error
}

// ChunkSearcher performs vector similarity search over stored chunks.
//
// Results are ordered by raw similarity descending, each tagged with
// a similarity in [0,1]. The searcher performs no ranking beyond the
// raw similarity; profile-aware boosting happens downstream.
type ChunkSearcher interface {
	// Search returns the chunks most similar to the query embedding.
	// The query must have the same dimension as the stored embeddings;
	// ErrDimensionMismatch is returned otherwise.
	Search(ctx context.Context, embedding []float32, opts SearchOptions) ([]types.ScoredChunk, error)
}

// KnowledgeStore combines chunk CRUD and similarity search. Both
// backends implement it.
type KnowledgeStore interface {
	ChunkStore
	ChunkSearcher
}
