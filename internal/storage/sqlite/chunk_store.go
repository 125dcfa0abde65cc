// Package sqlite implements the knowledge chunk store on embedded
// SQLite. It is the development and test backend: embeddings are loaded
// into Go memory and ranked by cosine similarity in-process, which is
// fine for candidate pools of a few thousand chunks. Production
// deployments use the postgres backend with pgvector indexing.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/khetha-app/khetha/internal/storage"
	"github.com/khetha-app/khetha/pkg/types"
)

// Ensure *ChunkStore implements storage.KnowledgeStore at compile time.
var _ storage.KnowledgeStore = (*ChunkStore)(nil)

// searchMaxCandidates caps how many embeddings are loaded into memory
// during a vector search. The knowledge base is curated and small
// (hundreds of chunks); this limit is never hit in practice.
const searchMaxCandidates = 10_000

// schema is the embedded DDL applied on open. Idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	id TEXT PRIMARY KEY,
	text TEXT NOT NULL,
	module TEXT NOT NULL,
	source TEXT NOT NULL DEFAULT '',
	tags TEXT NOT NULL DEFAULT '[]',
	embedding BLOB,
	dimension INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chunks_module ON chunks(module);
CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source);
`

// ChunkStore implements storage.KnowledgeStore using SQLite.
type ChunkStore struct {
	db *sql.DB
}

// NewChunkStore opens (or creates) a SQLite chunk store at dsn.
// Use ":memory:" for an ephemeral store in tests.
func NewChunkStore(dsn string) (*ChunkStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", dsn, err)
	}

	// Single writer; WAL keeps readers unblocked during ingestion.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: create schema: %w", err)
	}

	return &ChunkStore{db: db}, nil
}

// GetDB exposes the underlying connection for stats handlers and tests.
func (s *ChunkStore) GetDB() *sql.DB {
	return s.db
}

// Store creates or updates a chunk (upsert by ID).
func (s *ChunkStore) Store(ctx context.Context, chunk *types.KnowledgeChunk) error {
	if chunk == nil || strings.TrimSpace(chunk.ID) == "" {
		return fmt.Errorf("%w: chunk ID is required", storage.ErrInvalidInput)
	}
	if strings.TrimSpace(chunk.Module) == "" {
		return fmt.Errorf("%w: chunk %s has no module", storage.ErrInvalidInput, chunk.ID)
	}

	tags, err := json.Marshal(chunk.Tags)
	if err != nil {
		return fmt.Errorf("sqlite: marshal tags for %s: %w", chunk.ID, err)
	}

	now := time.Now().UTC()
	if chunk.CreatedAt.IsZero() {
		chunk.CreatedAt = now
	}
	chunk.UpdatedAt = now

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO chunks (id, text, module, source, tags, embedding, dimension, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			text = excluded.text,
			module = excluded.module,
			source = excluded.source,
			tags = excluded.tags,
			embedding = excluded.embedding,
			dimension = excluded.dimension,
			updated_at = excluded.updated_at
	`, chunk.ID, chunk.Text, chunk.Module, chunk.Source, string(tags),
		serializeEmbedding(chunk.Embedding), len(chunk.Embedding),
		chunk.CreatedAt, chunk.UpdatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: store chunk %s: %w", chunk.ID, err)
	}
	return nil
}

// Get retrieves a chunk by ID, including its embedding.
func (s *ChunkStore) Get(ctx context.Context, id string) (*types.KnowledgeChunk, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, text, module, source, tags, embedding, dimension, created_at, updated_at
		FROM chunks WHERE id = ?`, id)

	chunk, err := scanChunk(row, true)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get chunk %s: %w", id, err)
	}
	return chunk, nil
}

// List retrieves chunks with pagination and filtering. Embeddings are
// omitted.
func (s *ChunkStore) List(ctx context.Context, opts storage.ListOptions) (*storage.PaginatedResult[types.KnowledgeChunk], error) {
	opts.Normalize()

	where, args := listFilter(opts)

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks"+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("sqlite: count chunks: %w", err)
	}

	query := `
		SELECT id, text, module, source, tags, created_at, updated_at
		FROM chunks` + where + `
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, query, append(args, opts.Limit, opts.Offset())...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list chunks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var chunks []types.KnowledgeChunk
	for rows.Next() {
		var c types.KnowledgeChunk
		var tags string
		if err := rows.Scan(&c.ID, &c.Text, &c.Module, &c.Source, &tags, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan chunk row: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &c.Tags); err != nil {
			return nil, fmt.Errorf("sqlite: unmarshal tags for %s: %w", c.ID, err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate chunk rows: %w", err)
	}

	return &storage.PaginatedResult[types.KnowledgeChunk]{
		Items:    chunks,
		Total:    total,
		Page:     opts.Page,
		PageSize: opts.Limit,
		HasMore:  opts.Offset()+len(chunks) < total,
	}, nil
}

// Delete removes a chunk by ID.
func (s *ChunkStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM chunks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("sqlite: delete chunk %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: delete chunk %s: %w", id, err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Count returns the number of stored chunks per module.
func (s *ChunkStore) Count(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT module, COUNT(*) FROM chunks GROUP BY module")
	if err != nil {
		return nil, fmt.Errorf("sqlite: count by module: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var module string
		var n int
		if err := rows.Scan(&module, &n); err != nil {
			return nil, fmt.Errorf("sqlite: scan module count: %w", err)
		}
		counts[module] = n
	}
	return counts, rows.Err()
}

// Search ranks stored chunks by cosine similarity to the query
// embedding, in-process. Results are ordered by similarity descending;
// cosine output is clamped into [0,1] so downstream boosting can assume
// that range.
func (s *ChunkStore) Search(ctx context.Context, embedding []float32, opts storage.SearchOptions) ([]types.ScoredChunk, error) {
	opts.Normalize()

	if len(embedding) == 0 {
		return nil, fmt.Errorf("%w: query embedding is empty", storage.ErrInvalidInput)
	}

	where, args := searchFilter(opts)
	query := `
		SELECT id, text, module, source, tags, embedding, dimension, created_at, updated_at
		FROM chunks` + where + `
		ORDER BY created_at DESC
		LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, append(args, searchMaxCandidates)...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: load embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var scored []types.ScoredChunk
	for rows.Next() {
		chunk, err := scanChunk(rows, true)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan search row: %w", err)
		}
		if len(chunk.Embedding) == 0 {
			continue
		}
		if len(chunk.Embedding) != len(embedding) {
			return nil, fmt.Errorf("%w: query has %d dimensions, chunk %s has %d",
				storage.ErrDimensionMismatch, len(embedding), chunk.ID, len(chunk.Embedding))
		}

		sim := clamp01(cosineSimilarity(embedding, chunk.Embedding))
		if sim < opts.MinSimilarity {
			continue
		}

		// Drop the embedding from results to keep payloads small.
		chunk.Embedding = nil
		scored = append(scored, types.ScoredChunk{KnowledgeChunk: *chunk, Similarity: sim})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate search rows: %w", err)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})
	if len(scored) > opts.Limit {
		scored = scored[:opts.Limit]
	}
	return scored, nil
}

// Close releases the underlying database connection.
func (s *ChunkStore) Close() error {
	return s.db.Close()
}

// scanner abstracts *sql.Row and *sql.Rows for scanChunk.
type scanner interface {
	Scan(dest ...any) error
}

// scanChunk scans the canonical chunk column list. withEmbedding
// indicates the row includes embedding and dimension columns.
func scanChunk(row scanner, withEmbedding bool) (*types.KnowledgeChunk, error) {
	var c types.KnowledgeChunk
	var tags string
	var blob []byte
	var dim int

	var err error
	if withEmbedding {
		err = row.Scan(&c.ID, &c.Text, &c.Module, &c.Source, &tags, &blob, &dim, &c.CreatedAt, &c.UpdatedAt)
	} else {
		err = row.Scan(&c.ID, &c.Text, &c.Module, &c.Source, &tags, &c.CreatedAt, &c.UpdatedAt)
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(tags), &c.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	if withEmbedding && len(blob) > 0 {
		c.Embedding, err = deserializeEmbedding(blob, dim)
		if err != nil {
			return nil, err
		}
	}
	return &c, nil
}

func listFilter(opts storage.ListOptions) (string, []any) {
	var clauses []string
	var args []any
	if opts.Module != "" {
		clauses = append(clauses, "module = ?")
		args = append(args, opts.Module)
	}
	if opts.Source != "" {
		clauses = append(clauses, "source = ?")
		args = append(args, opts.Source)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func searchFilter(opts storage.SearchOptions) (string, []any) {
	if opts.Module == "" {
		return "", nil
	}
	return " WHERE module = ?", []any{opts.Module}
}

// serializeEmbedding packs a float32 slice as little-endian bytes,
// 4 bytes per component.
func serializeEmbedding(embedding []float32) []byte {
	if len(embedding) == 0 {
		return nil
	}
	buf := make([]byte, len(embedding)*4)
	for i, v := range embedding {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// deserializeEmbedding converts a binary representation back to a
// float32 slice. dimension validates the buffer size.
func deserializeEmbedding(buf []byte, dimension int) ([]float32, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid dimension: %d", dimension)
	}
	if len(buf) != dimension*4 {
		return nil, fmt.Errorf("buffer size mismatch: expected %d bytes, got %d", dimension*4, len(buf))
	}
	embedding := make([]float32, dimension)
	for i := range embedding {
		embedding[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return embedding, nil
}

// cosineSimilarity computes cosine similarity between two equal-length
// vectors. Returns 0 for zero-norm inputs.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
