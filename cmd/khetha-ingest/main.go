// Command khetha-ingest loads a YAML knowledge-base file, generates
// embeddings for each record and upserts them into the chunk store.
//
// Record format:
//
//	chunks:
//	  - module: careers
//	    source: career-guide-2025
//	    tags: [technology, engineering]
//	    text: |
//	      Software engineers design and build...
//
// Records without an id get a generated UUID, so re-running the same
// file with ids present updates in place.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/khetha-app/khetha/internal/config"
	"github.com/khetha-app/khetha/internal/llm"
	"github.com/khetha-app/khetha/internal/storage"
	"github.com/khetha-app/khetha/internal/storage/postgres"
	"github.com/khetha-app/khetha/internal/storage/sqlite"
	"github.com/khetha-app/khetha/pkg/types"
)

type chunkRecord struct {
	ID     string   `yaml:"id"`
	Module string   `yaml:"module"`
	Source string   `yaml:"source"`
	Tags   []string `yaml:"tags"`
	Text   string   `yaml:"text"`
}

type knowledgeFile struct {
	Chunks []chunkRecord `yaml:"chunks"`
}

var knownModules = map[string]bool{
	types.ModuleCareers:              true,
	types.ModuleBursaries:            true,
	types.ModuleSubjectCareerMapping: true,
	types.ModuleEmergingJobs:         true,
	types.ModuleUniversities:         true,
}

func main() {
	filePath := flag.String("file", "", "Path to the YAML knowledge file to ingest (required)")
	dryRun := flag.Bool("dry-run", false, "Parse and validate without embedding or storing")
	flag.Parse()

	if *filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	records, err := loadKnowledgeFile(*filePath)
	if err != nil {
		log.Fatalf("Failed to load %s: %v", *filePath, err)
	}
	log.Printf("Loaded %d records from %s", len(records), *filePath)

	if *dryRun {
		log.Println("Dry run, nothing stored")
		return
	}

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	provider, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		log.Fatalf("Failed to initialize LLM provider: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	stored, failed := 0, 0
	for i, rec := range records {
		chunk, err := ingestRecord(ctx, store, provider.Embedding, rec)
		if err != nil {
			log.Printf("WARN: record %d (%s): %v", i, rec.Source, err)
			failed++
			continue
		}
		stored++
		if stored%50 == 0 {
			log.Printf("Progress: %d/%d stored (last id %s)", stored, len(records), chunk.ID)
		}
	}

	log.Printf("Done: %d stored, %d failed", stored, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func loadKnowledgeFile(path string) ([]chunkRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file knowledgeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if len(file.Chunks) == 0 {
		return nil, fmt.Errorf("no chunks in file")
	}

	for i, rec := range file.Chunks {
		if rec.Text == "" {
			return nil, fmt.Errorf("record %d has empty text", i)
		}
		if !knownModules[rec.Module] {
			return nil, fmt.Errorf("record %d has unknown module %q", i, rec.Module)
		}
	}
	return file.Chunks, nil
}

func ingestRecord(ctx context.Context, store storage.ChunkStore, embedder llm.EmbeddingGenerator, rec chunkRecord) (*types.KnowledgeChunk, error) {
	embedding, err := embedder.Embed(ctx, rec.Text)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}

	id := rec.ID
	if id == "" {
		id = uuid.New().String()
	}

	chunk := &types.KnowledgeChunk{
		ID:        id,
		Text:      rec.Text,
		Module:    rec.Module,
		Source:    rec.Source,
		Tags:      rec.Tags,
		Embedding: embedding,
	}
	if err := store.Store(ctx, chunk); err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	return chunk, nil
}

func openStore(cfg *config.Config) (storage.KnowledgeStore, error) {
	switch cfg.Storage.StorageEngine {
	case "postgres":
		return postgres.NewChunkStore(cfg.Storage.PostgresDSN, cfg.LLM.EmbeddingDimension)
	default:
		return sqlite.NewChunkStore(cfg.Storage.DataPath + "/khetha.db")
	}
}
