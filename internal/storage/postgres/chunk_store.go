// Package postgres implements the knowledge chunk store on PostgreSQL
// with pgvector. It is the production backend and works unchanged
// against a Supabase database, which is plain Postgres with the vector
// extension enabled.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/khetha-app/khetha/internal/storage"
	"github.com/khetha-app/khetha/pkg/types"
)

// Ensure *ChunkStore implements storage.KnowledgeStore at compile time.
var _ storage.KnowledgeStore = (*ChunkStore)(nil)

// ChunkStore implements storage.KnowledgeStore using PostgreSQL + pgvector.
type ChunkStore struct {
	db        *sql.DB
	dimension int
}

// NewChunkStore connects to Postgres at dsn and ensures the schema
// exists with the given embedding dimension.
func NewChunkStore(dsn string, dimension int) (*ChunkStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	if err := ensureSchema(db, dimension); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &ChunkStore{db: db, dimension: dimension}, nil
}

// GetDB exposes the underlying connection for stats handlers.
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
	if len(chunk.Embedding) > 0 && len(chunk.Embedding) != s.dimension {
		return fmt.Errorf("%w: chunk %s embedding has %d dimensions, store expects %d",
			storage.ErrDimensionMismatch, chunk.ID, len(chunk.Embedding), s.dimension)
	}

	tags, err := json.Marshal(chunk.Tags)
	if err != nil {
		return fmt.Errorf("postgres: marshal tags for %s: %w", chunk.ID, err)
	}

	var embedding any
	if len(chunk.Embedding) > 0 {
		embedding = pgvector.NewVector(chunk.Embedding)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO chunks (id, text, module, source, tags, embedding, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		ON CONFLICT (id) DO UPDATE SET
			text = EXCLUDED.text,
			module = EXCLUDED.module,
			source = EXCLUDED.source,
			tags = EXCLUDED.tags,
			embedding = EXCLUDED.embedding,
			updated_at = now()
	`, chunk.ID, chunk.Text, chunk.Module, chunk.Source, string(tags), embedding)
	if err != nil {
		return fmt.Errorf("postgres: store chunk %s: %w", chunk.ID, err)
	}
	return nil
}

// Get retrieves a chunk by ID, including its embedding.
func (s *ChunkStore) Get(ctx context.Context, id string) (*types.KnowledgeChunk, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, text, module, source, tags, embedding, created_at, updated_at
		FROM chunks WHERE id = $1`, id)

	var c types.KnowledgeChunk
	var tags string
	var embedding sql.Null[pgvector.Vector]

	err := row.Scan(&c.ID, &c.Text, &c.Module, &c.Source, &tags, &embedding, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get chunk %s: %w", id, err)
	}

	if err := json.Unmarshal([]byte(tags), &c.Tags); err != nil {
		return nil, fmt.Errorf("postgres: unmarshal tags for %s: %w", id, err)
	}
	if embedding.Valid {
		c.Embedding = embedding.V.Slice()
	}
	return &c, nil
}

// List retrieves chunks with pagination and filtering. Embeddings are
// omitted.
func (s *ChunkStore) List(ctx context.Context, opts storage.ListOptions) (*storage.PaginatedResult[types.KnowledgeChunk], error) {
	opts.Normalize()

	where, args := listFilter(opts)

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks"+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("postgres: count chunks: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, text, module, source, tags, created_at, updated_at
		FROM chunks%s
		ORDER BY created_at DESC, id
		LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	rows, err := s.db.QueryContext(ctx, query, append(args, opts.Limit, opts.Offset())...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list chunks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var chunks []types.KnowledgeChunk
	for rows.Next() {
		var c types.KnowledgeChunk
		var tags string
		if err := rows.Scan(&c.ID, &c.Text, &c.Module, &c.Source, &tags, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan chunk row: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &c.Tags); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal tags for %s: %w", c.ID, err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate chunk rows: %w", err)
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
	res, err := s.db.ExecContext(ctx, "DELETE FROM chunks WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("postgres: delete chunk %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: delete chunk %s: %w", id, err)
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
		return nil, fmt.Errorf("postgres: count by module: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var module string
		var n int
		if err := rows.Scan(&module, &n); err != nil {
			return nil, fmt.Errorf("postgres: scan module count: %w", err)
		}
		counts[module] = n
	}
	return counts, rows.Err()
}

// Search performs pgvector cosine similarity search, accelerated by the
// ivfflat index once the table has rows. Cosine distance is converted
// to similarity as 1 - distance and clamped into [0,1].
func (s *ChunkStore) Search(ctx context.Context, embedding []float32, opts storage.SearchOptions) ([]types.ScoredChunk, error) {
	opts.Normalize()

	if len(embedding) == 0 {
		return nil, fmt.Errorf("%w: query embedding is empty", storage.ErrInvalidInput)
	}
	if len(embedding) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, store expects %d",
			storage.ErrDimensionMismatch, len(embedding), s.dimension)
	}

	args := []any{pgvector.NewVector(embedding)}
	where := "WHERE embedding IS NOT NULL"
	if opts.Module != "" {
		where += " AND module = $2"
		args = append(args, opts.Module)
	}

	query := fmt.Sprintf(`
		SELECT id, text, module, source, tags, created_at, updated_at,
		       1 - (embedding <=> $1) AS similarity
		FROM chunks
		%s
		ORDER BY embedding <=> $1
		LIMIT $%d`, where, len(args)+1)
	rows, err := s.db.QueryContext(ctx, query, append(args, opts.Limit)...)
	if err != nil {
		return nil, fmt.Errorf("postgres: vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var scored []types.ScoredChunk
	for rows.Next() {
		var c types.KnowledgeChunk
		var tags string
		var similarity float64
		if err := rows.Scan(&c.ID, &c.Text, &c.Module, &c.Source, &tags, &c.CreatedAt, &c.UpdatedAt, &similarity); err != nil {
			return nil, fmt.Errorf("postgres: scan search row: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &c.Tags); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal tags for %s: %w", c.ID, err)
		}

		similarity = clamp01(similarity)
		if similarity < opts.MinSimilarity {
			continue
		}
		scored = append(scored, types.ScoredChunk{KnowledgeChunk: c, Similarity: similarity})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate search rows: %w", err)
	}
	return scored, nil
}

// Close releases the underlying database connection.
func (s *ChunkStore) Close() error {
	return s.db.Close()
}

func listFilter(opts storage.ListOptions) (string, []any) {
	var clauses []string
	var args []any
	if opts.Module != "" {
		args = append(args, opts.Module)
		clauses = append(clauses, fmt.Sprintf("module = $%d", len(args)))
	}
	if opts.Source != "" {
		args = append(args, opts.Source)
		clauses = append(clauses, fmt.Sprintf("source = $%d", len(args)))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
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
