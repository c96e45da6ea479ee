package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/37-Inc/goose.gifts/internal/ai"
	"github.com/37-Inc/goose.gifts/internal/config"
	"github.com/37-Inc/goose.gifts/internal/pipeline"
	"github.com/37-Inc/goose.gifts/internal/search"
	"github.com/37-Inc/goose.gifts/internal/storage"
	"github.com/37-Inc/goose.gifts/internal/tracking"
)

func main() {
	slog.Info("Starting gift bundle server...")
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Critical error loading configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	store, err := storage.New(ctx, cfg.ProjectID, cfg.ListFetchLimit)
	if err != nil {
		slog.Error("Critical error initializing Firestore client", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	aiClient, err := ai.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		slog.Error("Critical error initializing Gemini client", "error", err)
		os.Exit(1)
	}

	searcher := search.New(cfg.SearchTimeout, cfg.SearchRatePerSec, search.LoadConfig())

	srv := &Server{
		store:   store,
		tracker: tracking.New(store),
	}
	if aiClient != nil {
		srv.generator = pipeline.New(aiClient, searcher, store, cfg)
	} else {
		slog.Warn("Bundle generation disabled: no Gemini API key configured")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/bundles", srv.BundlesHandler)
	mux.HandleFunc("/bundle", srv.BundleHandler)
	mux.HandleFunc("/track/click", srv.TrackClickHandler)
	mux.HandleFunc("/track/impressions", srv.TrackImpressionsHandler)
	mux.HandleFunc("/health", srv.HealthHandler)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGTERM/SIGINT
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		sig := <-sigCh
		slog.Info("Received signal, shutting down gracefully...", "signal", sig)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		}
	}()

	slog.Info("Listening on port", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("Failed to listen and serve", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped.")
}
