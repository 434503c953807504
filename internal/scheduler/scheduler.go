// Package scheduler wires up the cron jobs that drive periodic ingestion
// runs and status sweeps.
package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"jobradar/internal/pipeline"
	"jobradar/internal/statuscheck"
)

// Scheduler wraps robfig/cron and manages both recurring loops.
type Scheduler struct {
	cron       *cron.Cron
	pipe       *pipeline.Pipeline
	checker    *statuscheck.Checker
	queries    []string
	ingestSpec string // e.g. "@every 6h"
	sweepSpec  string // e.g. "@every 24h"
}

// New creates a Scheduler. The ingestion job fires every
// scrapeIntervalHours; the status sweep runs daily, with per-job
// eligibility enforced inside the checker itself.
func New(pipe *pipeline.Pipeline, checker *statuscheck.Checker, queries []string, scrapeIntervalHours int) *Scheduler {
	return &Scheduler{
		cron:       cron.New(cron.WithLogger(cron.DefaultLogger)),
		pipe:       pipe,
		checker:    checker,
		queries:    queries,
		ingestSpec: fmt.Sprintf("@every %dh", scrapeIntervalHours),
		sweepSpec:  "@every 24h",
	}
}

// Start registers both jobs and starts the scheduler. An ingestion run also
// fires immediately so a fresh deployment has data without waiting for the
// first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.ingestSpec, func() { s.runIngest(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc ingest: %w", err)
	}
	if _, err := s.cron.AddFunc(s.sweepSpec, func() { s.runSweep(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc sweep: %w", err)
	}

	s.cron.Start()
	log.Printf("[scheduler] Cron started — ingest: %s, sweep: %s", s.ingestSpec, s.sweepSpec)

	// Run immediately on startup (non-blocking)
	go s.runIngest(ctx)

	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("[scheduler] Cron stopped")
}

func (s *Scheduler) runIngest(ctx context.Context) {
	log.Println("[scheduler] Ingestion cycle started")
	stats := s.pipe.Run(ctx, s.queries)
	log.Printf("[scheduler] Ingestion cycle complete — new: %d, updated: %d, errors: %d",
		stats.TotalNew, stats.TotalUpdated, stats.Errors)
}

func (s *Scheduler) runSweep(ctx context.Context) {
	log.Println("[scheduler] Status sweep started")
	stats := s.checker.Run(ctx)
	log.Printf("[scheduler] Status sweep complete — checked: %d, removed: %d, expired: %d",
		stats.TotalChecked, stats.MarkedRemoved, stats.Expired)
}
