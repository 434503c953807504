// Package pipeline orchestrates one ingestion run: fetch raw postings,
// enrich them, validate, deduplicate against the store and upsert. A run is
// a sequence of (query, country) rounds; every round appends one audit row
// regardless of outcome.
package pipeline

import (
	"context"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"jobradar/internal/classifier"
	"jobradar/internal/config"
	"jobradar/internal/dedup"
	"jobradar/internal/extractor"
	"jobradar/internal/model"
	"jobradar/internal/notify"
	"jobradar/internal/validate"
)

// Store is the persistence surface the pipeline needs.
type Store interface {
	FindCandidates(ctx context.Context, company, country string, since time.Time) ([]model.Job, error)
	InsertJob(ctx context.Context, job model.Job) error
	UpdateJob(ctx context.Context, job model.Job) error
	AppendScrapeLog(ctx context.Context, entry model.ScrapeLogEntry) error
	AcquireDedupLock(ctx context.Context, company, country string) (release func(), err error)
}

// Source produces raw postings for a search query in a country's feed market.
type Source interface {
	Fetch(ctx context.Context, query, market string) ([]model.RawPosting, error)
}

// StatsCache invalidates cached read-side aggregates after a run.
type StatsCache interface {
	InvalidateStats(ctx context.Context)
}

// Stats is the per-run counter set.
type Stats struct {
	TotalScraped          int     `json:"total_scraped"`
	TotalValidated        int     `json:"total_validated"`
	TotalValidationFailed int     `json:"total_validation_failed"`
	TotalDuplicates       int     `json:"total_duplicates"`
	TotalNew              int     `json:"total_new"`
	TotalUpdated          int     `json:"total_updated"`
	Errors                int     `json:"errors"`
	DurationSeconds       float64 `json:"duration_seconds"`
}

// Pipeline wires the stages together.
type Pipeline struct {
	source    Source
	store     Store
	cache     StatsCache
	extractor *extractor.Extractor
	classer   *classifier.Classifier
	deduper   *dedup.Deduplicator
	validator *validate.Validator
	notifier  notify.Notifier
	countries []config.Country
	logger    *slog.Logger

	dedupWindow time.Duration
	retention   time.Duration
	delayMin    time.Duration
	delayMax    time.Duration
	now         func() time.Time
}

// Options carries the run-shaping knobs from config.
type Options struct {
	DedupWindowDays  int
	JobRetentionDays int
	RateLimitMin     time.Duration
	RateLimitMax     time.Duration
}

// New builds a Pipeline.
func New(
	src Source,
	st Store,
	cache StatsCache,
	ex *extractor.Extractor,
	cl *classifier.Classifier,
	dd *dedup.Deduplicator,
	val *validate.Validator,
	nt notify.Notifier,
	countries []config.Country,
	opts Options,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		source:      src,
		store:       st,
		cache:       cache,
		extractor:   ex,
		classer:     cl,
		deduper:     dd,
		validator:   val,
		notifier:    nt,
		countries:   countries,
		logger:      logger,
		dedupWindow: time.Duration(opts.DedupWindowDays) * 24 * time.Hour,
		retention:   time.Duration(opts.JobRetentionDays) * 24 * time.Hour,
		delayMin:    opts.RateLimitMin,
		delayMax:    opts.RateLimitMax,
		now:         time.Now,
	}
}

// Run executes one full ingestion pass over every query in every country.
// It returns aggregate stats; round-level failures are counted and reported,
// never fatal to the run.
func (p *Pipeline) Run(ctx context.Context, queries []string) Stats {
	start := p.now()
	var stats Stats

	for _, country := range p.countries {
		for _, query := range queries {
			if ctx.Err() != nil {
				stats.Errors++
				p.logger.Warn("run cancelled", "query", query, "country", country.Code)
				stats.DurationSeconds = p.now().Sub(start).Seconds()
				return stats
			}
			p.runRound(ctx, query, country, &stats)
			p.rateLimitPause(ctx)
		}
	}

	stats.DurationSeconds = p.now().Sub(start).Seconds()
	p.cache.InvalidateStats(ctx)

	p.logger.Info("ingestion run complete",
		"scraped", stats.TotalScraped,
		"validated", stats.TotalValidated,
		"new", stats.TotalNew,
		"updated", stats.TotalUpdated,
		"duplicates", stats.TotalDuplicates,
		"errors", stats.Errors,
		"seconds", stats.DurationSeconds)

	if stats.Errors > 0 {
		p.notifier.Notify(ctx, "ingestion_errors",
			"ingestion run finished with errors",
			map[string]any{"errors": stats.Errors, "scraped": stats.TotalScraped},
			false)
	}
	return stats
}

// runRound handles one (query, country) fetch and writes its audit row.
func (p *Pipeline) runRound(ctx context.Context, query string, country config.Country, stats *Stats) {
	roundStart := p.now()
	entry := model.ScrapeLogEntry{
		SearchQuery: query,
		Country:     country.Code,
		Status:      model.ScrapeStatusSuccess,
		Timestamp:   roundStart,
	}

	postings, err := p.source.Fetch(ctx, query, country.FeedLocation)
	if err != nil {
		stats.Errors++
		entry.Status = model.ScrapeStatusFailed
		entry.ErrorMessage = err.Error()
		p.notifier.Notify(ctx, "fetch_failed",
			"feed fetch failed",
			map[string]any{"query": query, "country": country.Code, "err": err.Error()},
			false)
	}

	stats.TotalScraped += len(postings)
	entry.JobsFound = len(postings)

	drafts := make([]model.Job, 0, len(postings))
	for _, raw := range postings {
		job := p.buildJob(raw, country.Code)
		ok, verrs := p.validator.Validate(job)
		if !ok {
			stats.TotalValidationFailed++
			p.logger.Warn("posting rejected",
				"title", raw.Title, "company", raw.Company,
				"source", raw.SourceURL, "reasons", strings.Join(verrs, "; "))
			continue
		}
		stats.TotalValidated++
		drafts = append(drafts, p.validator.Sanitize(job))
	}

	unique, dups := p.deduper.DeduplicateBatch(drafts)
	stats.TotalDuplicates += len(dups)

	for _, job := range unique {
		if err := p.upsert(ctx, job, stats); err != nil {
			stats.Errors++
			p.logger.Error("upsert failed", "jobID", job.JobID, "err", err)
			p.notifier.Notify(ctx, "database_error",
				"job upsert failed",
				map[string]any{
					"jobID":   job.JobID,
					"title":   job.Title,
					"company": job.Company,
					"err":     err.Error(),
				},
				true)
		}
	}

	entry.DurationSeconds = p.now().Sub(roundStart).Seconds()
	if err := p.store.AppendScrapeLog(ctx, entry); err != nil {
		stats.Errors++
		p.logger.Error("scrape log append failed", "query", query, "country", country.Code, "err", err)
	}
}

// buildJob enriches one raw posting into a candidate Job.
func (p *Pipeline) buildJob(raw model.RawPosting, countryCode string) model.Job {
	now := p.now().UTC()

	skills := p.extractor.Extract(raw.Description)
	class := p.classer.Classify(raw.Title, raw.Description)

	salarySource := raw.SalaryText
	if salarySource == "" {
		salarySource = raw.Description
	}
	salary := p.extractor.ExtractSalary(salarySource)

	job := model.Job{
		JobID:    model.ComputeJobID(raw.Title, raw.Company, raw.Location),
		Title:    raw.Title,
		Company:  raw.Company,
		Location: raw.Location,
		Country:  countryCode,
		City:     cityFromLocation(raw.Location),
		Remote:   raw.Remote || isRemoteLocation(raw.Location),

		Description: raw.Description,

		Industry:                 class.Industry,
		PrimaryCategory:          class.PrimaryCategory,
		SecondaryCategories:      class.SecondaryCategories,
		ClassificationConfidence: class.ClassificationConfidence,
		ExperienceLevel:          p.extractor.ExtractExperienceLevel(raw.Title + "\n" + raw.Description),

		SkillsRequired:  skills.Required,
		SkillsPreferred: skills.Preferred,
		AllSkills:       skills.AllSkills,

		SalaryMin:      salary.Min,
		SalaryMax:      salary.Max,
		SalaryCurrency: salary.Currency,

		SourceURL:      raw.SourceURL,
		SourcePlatform: raw.SourcePlatform,

		DedupSources:    []string{raw.SourcePlatform},
		DedupSourceURLs: []string{raw.SourceURL},
		DedupCount:      1,

		Status:      model.StatusActive,
		PostedDate:  raw.PostedDate,
		ScrapedDate: now,
		ExpiresAt:   model.ComputeExpiry(raw.PostedDate, now, p.retention),
	}
	return job
}

// upsert inserts the job or merges it into a fuzzy match already in the
// store. The advisory lock serializes concurrent runs touching the same
// employer so two instances cannot both insert the "new" side of a dup pair.
func (p *Pipeline) upsert(ctx context.Context, job model.Job, stats *Stats) error {
	release, err := p.store.AcquireDedupLock(ctx, dedup.NormalizeCompany(job.Company), job.Country)
	if err != nil {
		return err
	}
	defer release()

	since := p.now().Add(-p.dedupWindow)
	candidates, err := p.store.FindCandidates(ctx, job.Company, job.Country, since)
	if err != nil {
		return err
	}

	matches := p.deduper.FindDuplicates(job, candidates)
	if len(matches) == 0 {
		if err := p.store.InsertJob(ctx, job); err != nil {
			return err
		}
		stats.TotalNew++
		return nil
	}

	// Fold the incoming posting into the first match, in candidate order.
	merged := p.deduper.Merge(matches[0].Job, []model.Job{job})
	if err := p.store.UpdateJob(ctx, merged); err != nil {
		return err
	}
	stats.TotalDuplicates++
	stats.TotalUpdated++
	return nil
}

// rateLimitPause sleeps a random interval between feed rounds.
func (p *Pipeline) rateLimitPause(ctx context.Context) {
	if p.delayMax <= 0 {
		return
	}
	delay := p.delayMin
	if spread := p.delayMax - p.delayMin; spread > 0 {
		delay += time.Duration(rand.Int63n(int64(spread)))
	}
	select {
	case <-time.After(delay):
	case <-ctx.Done():
	}
}

// cityFromLocation takes the segment before the first comma, which is how
// the feeds format "City, Region, Country" strings.
func cityFromLocation(location string) string {
	city, _, found := strings.Cut(location, ",")
	if !found {
		return ""
	}
	return strings.TrimSpace(city)
}

func isRemoteLocation(location string) bool {
	return strings.Contains(strings.ToLower(location), "remote")
}
