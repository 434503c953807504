// jobradar-ingestd
//
// Job posting ingestion service:
//   - fetches raw postings from an external feed on a cron schedule
//   - extracts skills, classifies category/industry, parses salary
//   - validates, sanitizes and deduplicates before writing to Postgres
//   - probes stored posting URLs weekly and retires dead ones
//
// Publishes EVENT_INGEST_ALERT to Redis for operational alerting.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jobradar/internal/cache"
	"jobradar/internal/classifier"
	"jobradar/internal/config"
	"jobradar/internal/db"
	"jobradar/internal/dedup"
	"jobradar/internal/extractor"
	"jobradar/internal/notify"
	"jobradar/internal/pipeline"
	"jobradar/internal/scheduler"
	"jobradar/internal/source"
	"jobradar/internal/statuscheck"
	"jobradar/internal/store"
	"jobradar/internal/validate"
)

const version = "1.0.0"

func main() {
	// ── Config ──────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[ingestd] Config error: %v", err)
	}

	taxonomy, err := config.LoadTaxonomy(cfg.ConfigDir)
	if err != nil {
		log.Fatalf("[ingestd] Taxonomy: %v", err)
	}
	skills, err := config.LoadSkills(cfg.ConfigDir)
	if err != nil {
		log.Fatalf("[ingestd] Skills: %v", err)
	}
	countries, err := config.LoadCountries(cfg.ConfigDir)
	if err != nil {
		log.Fatalf("[ingestd] Countries: %v", err)
	}
	searches, err := config.LoadSearches(cfg.ConfigDir)
	if err != nil {
		log.Fatalf("[ingestd] Searches: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── PostgreSQL ───────────────────────────────────────────────────────────
	log.Println("[ingestd] Connecting to PostgreSQL…")
	pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[ingestd] PostgreSQL: %v", err)
	}
	defer pool.Close()
	log.Println("[ingestd] PostgreSQL connected ✓")

	// ── Redis ────────────────────────────────────────────────────────────────
	log.Println("[ingestd] Connecting to Redis…")
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("[ingestd] Redis: %v", err)
	}
	defer rdb.Close()
	log.Println("[ingestd] Redis connected ✓")

	// ── Components ───────────────────────────────────────────────────────────
	st := store.New(pool)
	notifier := notify.New(rdb, cfg.SlackWebhookURL, logger)
	statsCache := cache.New(rdb, logger)

	feed := source.NewFeedClient(
		cfg.FeedBaseURL, cfg.FeedAppID, cfg.FeedAppKey, cfg.FeedPlatform,
		cfg.MaxJobsPerSearch, logger)

	pipe := pipeline.New(
		feed, st, statsCache,
		extractor.New(skills),
		classifier.New(taxonomy, logger),
		dedup.New(cfg.FuzzyMatchThreshold, logger),
		validate.New(cfg.MinDescriptionLength, countries.Codes()),
		notifier,
		countries.Countries,
		pipeline.Options{
			DedupWindowDays:  cfg.DedupWindowDays,
			JobRetentionDays: cfg.JobRetentionDays,
			RateLimitMin:     cfg.RateLimitDelayMin,
			RateLimitMax:     cfg.RateLimitDelayMax,
		},
		logger,
	)

	checker := statuscheck.New(st, notifier, statuscheck.Options{
		CheckInterval: time.Duration(cfg.StatusCheckIntervalDays) * 24 * time.Hour,
		BatchSize:     cfg.StatusCheckBatchSize,
		MaxConcurrent: int64(cfg.StatusMaxConcurrent),
		HTTPTimeout:   cfg.StatusHTTPTimeout,
		DelayMin:      cfg.RateLimitDelayMin,
		DelayMax:      cfg.RateLimitDelayMax,
	}, logger)

	// ── Scheduler ────────────────────────────────────────────────────────────
	sched := scheduler.New(pipe, checker, searches.Queries, cfg.ScrapeIntervalHours)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("[ingestd] Scheduler: %v", err)
	}
	defer sched.Stop()

	// ── HTTP server (health only) ────────────────────────────────────────────
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[ingestd] v%s listening on :%s", version, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[ingestd] HTTP server error: %v", err)
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[ingestd] Shutting down…")
	cancel() // stop in-flight runs

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[ingestd] Shutdown error: %v", err)
	}
	log.Println("[ingestd] Stopped.")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": "ingestd",
		"version": version,
	})
}
