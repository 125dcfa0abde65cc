package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/khetha-app/khetha/internal/catalog"
	"github.com/khetha-app/khetha/internal/config"
	"github.com/khetha-app/khetha/internal/engine"
	"github.com/khetha-app/khetha/internal/llm"
	"github.com/khetha-app/khetha/internal/server"
	"github.com/khetha-app/khetha/internal/storage"
	"github.com/khetha-app/khetha/internal/storage/postgres"
	"github.com/khetha-app/khetha/internal/storage/sqlite"
)

func main() {
	programsPath := flag.String("programs", "", "Path to programs catalog YAML (overrides KHETHA_PROGRAMS_PATH)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *programsPath != "" {
		cfg.Catalog.ProgramsPath = *programsPath
	}

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	cat, err := catalog.Load(cfg.Catalog.ProgramsPath, cfg.Catalog.BursariesPath)
	if err != nil {
		log.Printf("Catalog not loaded (%v), using built-in defaults", err)
		cat = &catalog.Catalog{Programs: catalog.DefaultPrograms()}
	}
	log.Printf("Catalog: %d programs, %d bursaries", len(cat.Programs), len(cat.Bursaries))

	provider, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		log.Fatalf("Failed to initialize LLM provider: %v", err)
	}

	eng := engine.NewGuidanceEngine(store, provider.Embedding, provider.Text, cat, cfg.Pipeline)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr, _, err := server.Start(ctx, cfg, server.Deps{
		Store:    store,
		Engine:   eng,
		Catalog:  cat,
		Provider: provider,
	})
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	log.Printf("Khetha guidance API running at http://%s", addr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down gracefully...")
	cancel()
	time.Sleep(1 * time.Second) // Give time for connections to close
}

func openStore(cfg *config.Config) (storage.KnowledgeStore, error) {
	switch cfg.Storage.StorageEngine {
	case "postgres":
		return postgres.NewChunkStore(cfg.Storage.PostgresDSN, cfg.LLM.EmbeddingDimension)
	default:
		return sqlite.NewChunkStore(cfg.Storage.DataPath + "/khetha.db")
	}
}
