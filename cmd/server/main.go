package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/liamcoop/courtextract/extraction"
	"github.com/liamcoop/courtextract/internal/config"
	"github.com/liamcoop/courtextract/internal/logger"
	"github.com/liamcoop/courtextract/jobs"
	"github.com/liamcoop/courtextract/patterns"
	"github.com/liamcoop/courtextract/source"
	"github.com/liamcoop/courtextract/storesync"
)

// services holds everything main wires together and must close on exit.
type services struct {
	engine       *extraction.Engine
	orchestrator *jobs.Orchestrator
	closers      []func()
}

func (s *services) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func openPostgres(url string) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func wire(ctx context.Context, cfg *config.Config) (*services, error) {
	svc := &services{}
	fail := func(err error) (*services, error) {
		svc.close()
		return nil, err
	}

	var store patterns.PatternStore
	switch cfg.PatternSource {
	case config.PatternSourcePostgres:
		db, err := openPostgres(cfg.PatternDatabaseURL)
		if err != nil {
			return fail(fmt.Errorf("pattern store: %w", err))
		}
		svc.closers = append(svc.closers, func() { db.Close() })
		store = patterns.NewPostgresStore(db)
	default:
		store = patterns.NewFileStore(cfg.PatternsDir)
	}

	engine, err := extraction.NewEngine(store,
		extraction.WithCache(extraction.NewInMemoryRuleSetCache(extraction.CacheConfig{TTL: cfg.RuleCacheTTL})),
	)
	if err != nil {
		return fail(err)
	}
	svc.engine = engine

	logger.Info("Loading pattern rules", "source", cfg.PatternSource)
	loaded, err := engine.Registry().Warm(ctx)
	if err != nil {
		return fail(fmt.Errorf("failed to load pattern rules: %w", err))
	}
	logger.Info("Pattern rules loaded", "count", len(loaded), "jurisdictions", loaded)

	var fetcher source.Fetcher
	switch cfg.DocumentSource {
	case config.DocumentSourceGCS:
		gcs, err := source.NewGCSFetcher(ctx, cfg.GCSBucketName, cfg.GCPCredentialsJSON)
		if err != nil {
			return fail(err)
		}
		fetcher = gcs
	default:
		fetcher = source.NewFileFetcher(cfg.DocumentRoot)
	}
	loader := source.NewLoader(fetcher, source.DefaultConverter(cfg.PDFToTextPath))

	// A store without a URL stays nil; the synchronizer reports it as
	// unavailable on every write instead of refusing to start.
	var (
		display *storesync.PostgresDisplayStore
		batch   *storesync.PostgresBatchStore
	)
	if cfg.DisplayDatabaseURL != "" {
		db, err := openPostgres(cfg.DisplayDatabaseURL)
		if err != nil {
			return fail(fmt.Errorf("display store: %w", err))
		}
		svc.closers = append(svc.closers, func() { db.Close() })
		display = storesync.NewPostgresDisplayStore(db)
	} else {
		logger.Warn("DISPLAY_DATABASE_URL not set, display store disabled")
	}
	if cfg.BatchDatabaseURL != "" {
		batch, err = storesync.ConnectBatchStore(ctx, cfg.BatchDatabaseURL)
		if err != nil {
			return fail(fmt.Errorf("batch store: %w", err))
		}
		svc.closers = append(svc.closers, batch.Close)
	} else {
		logger.Warn("BATCH_DATABASE_URL not set, batch store disabled")
	}

	opts := []jobs.Option{
		jobs.WithWorkers(cfg.Workers),
		jobs.WithQueueSize(cfg.QueueSize),
		jobs.WithJobTimeout(cfg.JobTimeout),
		jobs.WithExtractedBy(cfg.ExtractedBy),
	}
	var syncer *storesync.Synchronizer
	switch {
	case display != nil && batch != nil:
		syncer = storesync.NewSynchronizer(batch, display)
		opts = append(opts, jobs.WithCatalog(display))
	case display != nil:
		syncer = storesync.NewSynchronizer(nil, display)
		opts = append(opts, jobs.WithCatalog(display))
	case batch != nil:
		syncer = storesync.NewSynchronizer(batch, nil)
	default:
		syncer = storesync.NewSynchronizer(nil, nil)
	}

	svc.orchestrator = jobs.New(engine, loader, syncer, opts...)
	return svc, nil
}

// purgeJobs drops finished jobs older than retention once per interval.
func purgeJobs(ctx context.Context, orch *jobs.Orchestrator, retention time.Duration) {
	if retention <= 0 {
		return
	}
	interval := retention / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := orch.Purge(retention); n > 0 {
				logger.Info("Purged finished jobs", "count", n, "retention", retention)
			}
		}
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", "error", err)
	}

	ctx := context.Background()
	svc, err := wire(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to start services", "error", err)
	}
	defer svc.close()

	server := NewServer(svc.orchestrator, svc.engine)

	purgeCtx, stopPurge := context.WithCancel(ctx)
	defer stopPurge()
	go purgeJobs(purgeCtx, svc.orchestrator, cfg.JobRetention)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}
	if err := svc.orchestrator.Shutdown(shutdownCtx); err != nil {
		logger.Error("Jobs did not finish before shutdown", "error", err)
	}
	if err := logger.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "logger shutdown: %v\n", err)
	}

	logger.Info("Server stopped")
}
