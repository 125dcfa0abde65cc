// Package server provides HTTP server initialization and lifecycle
// management for the Khetha guidance API.
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/khetha-app/khetha/internal/catalog"
	"github.com/khetha-app/khetha/internal/config"
	"github.com/khetha-app/khetha/internal/engine"
	"github.com/khetha-app/khetha/internal/llm"
	"github.com/khetha-app/khetha/internal/storage"
	"github.com/khetha-app/khetha/web/handlers"
)

// Deps bundles what the server needs beyond config. Provider may be
// nil; guidance then runs retrieval-free.
type Deps struct {
	Store    storage.KnowledgeStore
	Engine   *engine.GuidanceEngine
	Catalog  *catalog.Catalog
	Provider *llm.Provider
}

// Start initializes and starts the HTTP server.
// Returns the actual address being listened on (useful for testing with
// port 0) and the WebSocketHub wired to the engine's stage events.
func Start(ctx context.Context, cfg *config.Config, deps Deps) (string, *handlers.WebSocketHub, error) {
	mux := http.NewServeMux()

	wsHub := handlers.NewWebSocketHub()
	go wsHub.Run()
	deps.Engine.SetOnStage(wsHub.BroadcastStage)

	// 10 req/sec sustained, burst of 20.
	rateLimiter := handlers.NewRateLimiter(10.0, 20)

	apiHandlers := handlers.NewAPIHandlers(deps.Store, deps.Engine, deps.Catalog, deps.Provider)

	apiMux := http.NewServeMux()
	apiMux.HandleFunc("/api/guidance", methodOnly(http.MethodPost, apiHandlers.Guidance))
	apiMux.HandleFunc("/api/assessment", methodOnly(http.MethodPost, apiHandlers.Assessment))
	apiMux.HandleFunc("/api/admission/match", methodOnly(http.MethodPost, apiHandlers.AdmissionMatch))
	apiMux.HandleFunc("/api/chunks", methodOnly(http.MethodGet, apiHandlers.ListChunks))
	apiMux.HandleFunc("/api/chunks/", methodOnly(http.MethodGet, apiHandlers.GetChunk))
	apiMux.HandleFunc("/api/stats", methodOnly(http.MethodGet, apiHandlers.Stats))

	// API routes require auth in production mode.
	mux.Handle("/api/", handlers.RequireAuth(apiMux, cfg))
	mux.Handle("/ws", wsHub)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	handler := handlers.RateLimitMiddleware(mux, rateLimiter)
	handler = handlers.SecurityHeaders(handler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	actualAddr := listener.Addr().String()

	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
		wsHub.Stop()
	}()

	return actualAddr, wsHub, nil
}

func methodOnly(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}
