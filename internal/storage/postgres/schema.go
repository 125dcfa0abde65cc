package postgres

import (
	"database/sql"
	"fmt"
)

// ensureSchema creates the chunks table and supporting indexes if they
// do not exist. The embedding column dimension is fixed at store-open
// time; changing models with a different dimension requires re-ingesting
// the knowledge base into a fresh table.
//
// The schema is Supabase-compatible: it assumes only the pgvector
// extension, which Supabase ships by default.
func ensureSchema(db *sql.DB, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("postgres: invalid embedding dimension %d", dimension)
	}

	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS chunks (
				id TEXT PRIMARY KEY,
				text TEXT NOT NULL,
				module TEXT NOT NULL,
				source TEXT NOT NULL DEFAULT '',
				tags JSONB NOT NULL DEFAULT '[]',
				embedding vector(%d),
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`, dimension),
		`CREATE INDEX IF NOT EXISTS idx_chunks_module ON chunks(module)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source)`,
		// ivfflat needs rows to build meaningful lists; creation on an
		// empty table is still valid and pgvector falls back to a scan.
		`CREATE INDEX IF NOT EXISTS idx_chunks_embedding_cosine
			ON chunks USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("postgres: ensure schema: %w", err)
		}
	}
	return nil
}
