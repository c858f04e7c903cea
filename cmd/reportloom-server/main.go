// Package main provides the reportloom workflow server.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/reportloom/reportloom/internal/artifact"
	"github.com/reportloom/reportloom/internal/cache"
	"github.com/reportloom/reportloom/internal/config"
	"github.com/reportloom/reportloom/internal/engine"
	"github.com/reportloom/reportloom/internal/export"
	"github.com/reportloom/reportloom/internal/generator"
	"github.com/reportloom/reportloom/internal/metrics"
	"github.com/reportloom/reportloom/internal/report"
	"github.com/reportloom/reportloom/internal/server"
	"github.com/reportloom/reportloom/internal/store"
)

const version = "0.1.0"

func main() {
	// Load configuration
	cfg := config.Load()

	// Setup logger (dual output: stderr text + file JSON)
	logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer cleanup()
	slog.SetDefault(logger)

	logger.Info("reportloom-server starting",
		"version", version,
		"addr", cfg.Addr,
		"store", cfg.Store,
		"artifacts", cfg.Artifacts,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Report plan
	plan := report.DefaultPlan()
	if cfg.PlanFile != "" {
		var err error
		plan, err = report.LoadPlan(cfg.PlanFile)
		if err != nil {
			logger.Error("failed to load plan", "file", cfg.PlanFile, "error", err)
			os.Exit(1)
		}
	}
	logger.Info("plan loaded", "plan", plan.Name, "sections", len(plan.Sections))

	// Report store
	var st store.Store
	switch cfg.Store {
	case "memory":
		st = store.NewMemory()
	case "surreal":
		surreal, err := store.NewSurreal(ctx, store.Config{
			URL:       cfg.SurrealDBURL,
			Namespace: cfg.SurrealDBNamespace,
			Database:  cfg.SurrealDBDatabase,
			Username:  cfg.SurrealDBUser,
			Password:  cfg.SurrealDBPass,
			AuthLevel: cfg.SurrealDBAuthLevel,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		if err := surreal.InitSchema(ctx); err != nil {
			logger.Error("failed to initialize database schema", "error", err)
			os.Exit(1)
		}
		defer func() {
			logger.Info("closing database connection")
			_ = surreal.Close(context.Background())
		}()
		st = surreal
	default:
		logger.Error("unknown store backend", "store", cfg.Store)
		os.Exit(1)
	}

	// Optional snapshot cache in front of the store
	if cfg.RedisAddr != "" {
		rdb, err := cache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			logger.Error("failed to connect to redis", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		st = store.NewCached(st, rdb, logger)
		logger.Info("snapshot cache enabled", "addr", cfg.RedisAddr)
	}

	// Artifact store
	var artifacts artifact.Store
	switch cfg.Artifacts {
	case "memory":
		artifacts = artifact.NewMemory()
	case "minio":
		m, err := artifact.NewMinio(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			logger.Error("failed to connect to artifact store", "error", err)
			os.Exit(1)
		}
		artifacts = m
	default:
		logger.Error("unknown artifact backend", "artifacts", cfg.Artifacts)
		os.Exit(1)
	}

	// Section draft generator
	genCfg := generator.Config{Provider: generator.ProviderStatic}
	if cfg.GeneratorURL != "" {
		genCfg = generator.Config{Provider: generator.ProviderHTTP, URL: cfg.GeneratorURL}
	}
	gen, err := generator.New(genCfg)
	if err != nil {
		logger.Error("failed to create generator", "error", err)
		os.Exit(1)
	}
	logger.Info("generator ready", "provider", genCfg.Provider, "url", cfg.GeneratorURL)

	// Optional docx/pdf renderer
	var renderer export.Renderer
	if cfg.RendererURL != "" {
		renderer = export.NewHTTPRenderer(cfg.RendererURL)
		logger.Info("render service configured", "url", cfg.RendererURL)
	}

	collector := metrics.NewCollector()
	eng := engine.New(st, gen, artifacts, plan, engine.Options{
		Renderer:                 renderer,
		Logger:                   logger,
		Collector:                collector,
		MaxConcurrentGenerations: cfg.MaxConcurrentGenerations,
	})

	// Pick interrupted work back up before accepting requests.
	if err := eng.Resume(ctx); err != nil {
		logger.Error("failed to resume interrupted jobs", "error", err)
		os.Exit(1)
	}

	srv := server.New(eng, collector, logger)
	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second, // Long for slow export renders
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server ready", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	// Let in-flight generation and finalize jobs land their results.
	eng.Wait()

	logger.Info("server stopped")
}
