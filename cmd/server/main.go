package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/compligest/internal/api"
	"github.com/dgallion1/compligest/internal/compliance"
	"github.com/dgallion1/compligest/internal/config"
	"github.com/dgallion1/compligest/internal/extract"
	"github.com/dgallion1/compligest/internal/pipeline"
	"github.com/dgallion1/compligest/internal/segmenter"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients.
	stats := extract.NewLLMStats(time.Duration(cfg.StatsWindow))
	llm := extract.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel, stats)

	extractor := extract.New(llm, extract.Config{
		MaxAttempts: cfg.MaxAttempts,
		SubChunk: segmenter.Config{
			MaxChunkSize: cfg.SubChunkSize,
			Overlap:      cfg.SubChunkOverlap,
		},
		MaxRecursionDepth: cfg.MaxRecursionDepth,
	}, log)
	checker := compliance.New(llm, log)

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, extractor, checker, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, llm, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		llm.Close()
	}()

	log.Info("starting compligest", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
