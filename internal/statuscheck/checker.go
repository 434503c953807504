// Package statuscheck probes stored job URLs to detect postings that have
// been taken down, and sweeps expired postings. Probes are HEAD requests
// bounded by a weighted semaphore and paced with a randomized delay so the
// checker never hammers a single job board.
package statuscheck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"jobradar/internal/model"
	"jobradar/internal/notify"
)

const (
	maxProbeAttempts   = 3
	probeBackoffBase   = 2 * time.Second
	probeBackoffJitter = 0.3
)

// Browser-like agents rotated across probes; some boards reject default
// Go client strings outright.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
}

// Store is the persistence surface the checker needs.
type Store interface {
	JobsNeedingCheck(ctx context.Context, olderThan time.Time, limit int) ([]model.Job, error)
	UpdateJobStatus(ctx context.Context, jobID string, status model.Status, checkedAt time.Time, code *int, checkErr *string) error
	ExpireJobs(ctx context.Context, now time.Time) (int64, error)
}

// Stats is the outcome of one sweep.
type Stats struct {
	TotalChecked  int   `json:"total_checked"`
	StillActive   int   `json:"still_active"`
	MarkedRemoved int   `json:"marked_removed"`
	Expired       int64 `json:"expired"`
	Errors        int   `json:"errors"`
}

// Options carries the sweep-shaping knobs from config.
type Options struct {
	CheckInterval time.Duration // minimum age of the last probe
	BatchSize     int
	MaxConcurrent int64
	HTTPTimeout   time.Duration
	DelayMin      time.Duration
	DelayMax      time.Duration
}

// Checker runs liveness sweeps.
type Checker struct {
	store    Store
	notifier notify.Notifier
	client   *http.Client
	opts     Options
	logger   *slog.Logger
	now      func() time.Time
}

// New returns a Checker. The HTTP client never follows more than a few
// redirects; a redirect chain still counts as the original URL resolving.
func New(store Store, notifier notify.Notifier, opts Options, logger *slog.Logger) *Checker {
	return &Checker{
		store:    store,
		notifier: notifier,
		client: &http.Client{
			Timeout: opts.HTTPTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}
}

// Run executes one sweep: expire stale postings, then probe the batch of
// jobs whose last check is oldest.
func (c *Checker) Run(ctx context.Context) Stats {
	var stats Stats

	expired, err := c.store.ExpireJobs(ctx, c.now())
	if err != nil {
		stats.Errors++
		c.logger.Error("expiry sweep failed", "err", err)
	} else if expired > 0 {
		c.logger.Info("expired stale postings", "count", expired)
	}
	stats.Expired = expired

	cutoff := c.now().Add(-c.opts.CheckInterval)
	jobs, err := c.store.JobsNeedingCheck(ctx, cutoff, c.opts.BatchSize)
	if err != nil {
		stats.Errors++
		c.logger.Error("eligibility query failed", "err", err)
		return stats
	}
	if len(jobs) == 0 {
		c.logger.Debug("no jobs due for a status check")
		return stats
	}

	sem := semaphore.NewWeighted(c.opts.MaxConcurrent)
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	for _, job := range jobs {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(job model.Job) {
			defer wg.Done()
			defer sem.Release(1)

			c.pacePause(ctx)
			outcome := c.checkOne(ctx, job)

			mu.Lock()
			stats.TotalChecked++
			switch {
			case outcome.failed || outcome.anomaly:
				stats.Errors++
			case outcome.status == model.StatusRemoved:
				stats.MarkedRemoved++
			default:
				stats.StillActive++
			}
			mu.Unlock()
		}(job)
	}
	wg.Wait()

	c.logger.Info("status sweep complete",
		"checked", stats.TotalChecked,
		"active", stats.StillActive,
		"removed", stats.MarkedRemoved,
		"expired", stats.Expired,
		"errors", stats.Errors)
	return stats
}

type checkOutcome struct {
	status model.Status
	// anomaly marks probes that resolved nothing definitive: network
	// failure, 5xx, or an unexpected 4xx. The job stays ACTIVE but the
	// probe counts as an error so a blocked sweep is visible in stats.
	anomaly bool
	failed  bool
}

// checkOne probes one job and persists the verdict.
func (c *Checker) checkOne(ctx context.Context, job model.Job) checkOutcome {
	code, probeErr := c.probe(ctx, job.SourceURL)

	status, checkErr := classifyProbe(code, probeErr)
	if status == model.StatusRemoved && !model.IsTransitionAllowed(job.Status, model.StatusRemoved) {
		// Terminal states stay terminal; this can happen when a sweep
		// overlaps an expiry.
		status = job.Status
	}

	var codePtr *int
	if probeErr == nil {
		codePtr = &code
	}
	if err := c.store.UpdateJobStatus(ctx, job.JobID, status, c.now(), codePtr, checkErr); err != nil {
		c.logger.Error("status update failed", "jobID", job.JobID, "err", err)
		return checkOutcome{failed: true}
	}

	if status == model.StatusRemoved {
		c.logger.Info("posting removed at source",
			"jobID", job.JobID, "title", job.Title, "company", job.Company, "code", code)
		c.notifier.Notify(ctx, "job_removed",
			"posting no longer live at source",
			map[string]any{"jobID": job.JobID, "title": job.Title, "url": job.SourceURL},
			false)
	}
	return checkOutcome{status: status, anomaly: checkErr != nil}
}

// probe issues a HEAD request, retrying transport failures with exponential
// backoff and jitter. HTTP responses of any status are returned as-is on the
// first attempt that produces one.
func (c *Checker) probe(ctx context.Context, url string) (int, error) {
	var lastErr error
	for attempt := 0; attempt < maxProbeAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, backoffDelay(attempt)); err != nil {
				return 0, err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
		if err != nil {
			return 0, err
		}
		req.Header.Set("User-Agent", userAgents[rand.Intn(len(userAgents))])

		resp, err := c.client.Do(req)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return 0, err
			}
			lastErr = err
			continue
		}
		resp.Body.Close()
		return resp.StatusCode, nil
	}
	return 0, fmt.Errorf("probe failed after %d attempts: %w", maxProbeAttempts, lastErr)
}

// classifyProbe maps a probe result to the job's new status.
// Only a definitive "gone" response (404/410) removes a posting; everything
// ambiguous keeps it ACTIVE with the anomaly recorded.
func classifyProbe(code int, probeErr error) (model.Status, *string) {
	if probeErr != nil {
		msg := probeErr.Error()
		return model.StatusActive, &msg
	}
	switch {
	case code == http.StatusNotFound || code == http.StatusGone:
		return model.StatusRemoved, nil
	case code >= 200 && code < 400:
		return model.StatusActive, nil
	case code >= 500:
		msg := fmt.Sprintf("server error %d", code)
		return model.StatusActive, &msg
	default:
		msg := fmt.Sprintf("unexpected status %d", code)
		return model.StatusActive, &msg
	}
}

func backoffDelay(attempt int) time.Duration {
	delay := probeBackoffBase << (attempt - 1)
	jitter := 1 + probeBackoffJitter*(2*rand.Float64()-1)
	return time.Duration(float64(delay) * jitter)
}

// pacePause sleeps a random interval before each probe.
func (c *Checker) pacePause(ctx context.Context) {
	if c.opts.DelayMax <= 0 {
		return
	}
	delay := c.opts.DelayMin
	if spread := c.opts.DelayMax - c.opts.DelayMin; spread > 0 {
		delay += time.Duration(rand.Int63n(int64(spread)))
	}
	sleepCtx(ctx, delay)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
