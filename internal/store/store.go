// Package store is the Postgres persistence layer for jobs and the scrape
// audit log. All queries go through a pgxpool; skill and provenance lists live
// in text[] columns, which pgx maps to []string directly.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobradar/internal/model"
)

// candidateLimit caps how many rows a duplicate-candidate lookup returns.
const candidateLimit = 100

// Store wraps the connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// New returns a Store backed by pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const jobColumns = `
	job_id, title, company, location, country, city, remote, description,
	industry, primary_category, secondary_categories, classification_confidence,
	experience_level, skills_required, skills_preferred, all_skills,
	salary_min, salary_max, salary_currency,
	source_url, source_platform, dedup_sources, dedup_source_urls, dedup_count,
	status, status_last_checked, status_check_code, status_check_error,
	posted_date, scraped_date, created_at, last_updated, expires_at`

// InsertJob writes a new job row. createdAt and lastUpdated are set
// server-side so clocks stay consistent across instances.
func (s *Store) InsertJob(ctx context.Context, job model.Job) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO jobs (
		   job_id, title, company, location, country, city, remote, description,
		   industry, primary_category, secondary_categories, classification_confidence,
		   experience_level, skills_required, skills_preferred, all_skills,
		   salary_min, salary_max, salary_currency,
		   source_url, source_platform, dedup_sources, dedup_source_urls, dedup_count,
		   status, posted_date, scraped_date, created_at, last_updated, expires_at
		 ) VALUES (
		   $1, $2, $3, $4, $5, $6, $7, $8,
		   $9, $10, $11, $12,
		   $13, $14, $15, $16,
		   $17, $18, $19,
		   $20, $21, $22, $23, $24,
		   $25, $26, $27, NOW(), NOW(), $28
		 )`,
		job.JobID, job.Title, job.Company, job.Location, job.Country, job.City, job.Remote, job.Description,
		job.Industry, job.PrimaryCategory, job.SecondaryCategories, job.ClassificationConfidence,
		job.ExperienceLevel, job.SkillsRequired, job.SkillsPreferred, job.AllSkills,
		job.SalaryMin, job.SalaryMax, job.SalaryCurrency,
		job.SourceURL, job.SourcePlatform, job.DedupSources, job.DedupSourceURLs, job.DedupCount,
		string(job.Status), job.PostedDate, job.ScrapedDate, job.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insertJob %s: %w", job.JobID, err)
	}
	return nil
}

// UpdateJob overwrites the mutable fields of an existing row after a merge.
// createdAt is intentionally untouched.
func (s *Store) UpdateJob(ctx context.Context, job model.Job) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET
		   title = $2, company = $3, location = $4, country = $5, city = $6,
		   remote = $7, description = $8,
		   industry = $9, primary_category = $10, secondary_categories = $11,
		   classification_confidence = $12, experience_level = $13,
		   skills_required = $14, skills_preferred = $15, all_skills = $16,
		   salary_min = $17, salary_max = $18, salary_currency = $19,
		   source_url = $20, source_platform = $21,
		   dedup_sources = $22, dedup_source_urls = $23, dedup_count = $24,
		   posted_date = $25, scraped_date = $26, expires_at = $27,
		   last_updated = NOW()
		 WHERE job_id = $1`,
		job.JobID, job.Title, job.Company, job.Location, job.Country, job.City,
		job.Remote, job.Description,
		job.Industry, job.PrimaryCategory, job.SecondaryCategories,
		job.ClassificationConfidence, job.ExperienceLevel,
		job.SkillsRequired, job.SkillsPreferred, job.AllSkills,
		job.SalaryMin, job.SalaryMax, job.SalaryCurrency,
		job.SourceURL, job.SourcePlatform,
		job.DedupSources, job.DedupSourceURLs, job.DedupCount,
		job.PostedDate, job.ScrapedDate, job.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("updateJob %s: %w", job.JobID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("updateJob %s: no such job", job.JobID)
	}
	return nil
}

// FindCandidates returns recent jobs that could be duplicates of a posting
// from the given company and country. The company match is a fuzzy prefilter
// (ILIKE on the raw name); exact similarity scoring happens in the dedup
// package.
func (s *Store) FindCandidates(ctx context.Context, company, country string, since time.Time) ([]model.Job, error) {
	pattern := "%" + escapeLike(company) + "%"
	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+`
		 FROM jobs
		 WHERE company ILIKE $1
		   AND country = $2
		   AND created_at >= $3
		 ORDER BY created_at DESC
		 LIMIT $4`,
		pattern, country, since, candidateLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("findCandidates query: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

// JobsNeedingCheck returns ACTIVE jobs whose liveness has never been probed
// or was last probed before olderThan, oldest check first.
func (s *Store) JobsNeedingCheck(ctx context.Context, olderThan time.Time, limit int) ([]model.Job, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+`
		 FROM jobs
		 WHERE status = $1
		   AND source_url <> ''
		   AND (status_last_checked IS NULL OR status_last_checked < $2)
		 ORDER BY status_last_checked ASC NULLS FIRST
		 LIMIT $3`,
		string(model.StatusActive), olderThan, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("jobsNeedingCheck query: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

// UpdateJobStatus records a liveness probe outcome, possibly transitioning
// the job's status.
func (s *Store) UpdateJobStatus(ctx context.Context, jobID string, status model.Status, checkedAt time.Time, code *int, checkErr *string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET
		   status = $2,
		   status_last_checked = $3,
		   status_check_code = $4,
		   status_check_error = $5,
		   last_updated = NOW()
		 WHERE job_id = $1`,
		jobID, string(status), checkedAt, code, checkErr,
	)
	if err != nil {
		return fmt.Errorf("updateJobStatus %s: %w", jobID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("updateJobStatus %s: no such job", jobID)
	}
	return nil
}

// ExpireJobs flips every ACTIVE job whose expires_at has passed to EXPIRED
// and returns how many rows changed.
func (s *Store) ExpireJobs(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, last_updated = NOW()
		 WHERE status = $2 AND expires_at <= $3`,
		string(model.StatusExpired), string(model.StatusActive), now,
	)
	if err != nil {
		return 0, fmt.Errorf("expireJobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// AppendScrapeLog writes one audit row for a scrape attempt.
func (s *Store) AppendScrapeLog(ctx context.Context, entry model.ScrapeLogEntry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO scrape_log (search_query, country, jobs_found, status, error_message, duration_seconds, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.SearchQuery, entry.Country, entry.JobsFound, entry.Status,
		entry.ErrorMessage, entry.DurationSeconds, entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("appendScrapeLog: %w", err)
	}
	return nil
}

// AcquireDedupLock takes a session-level advisory lock keyed on the
// normalized company and country, serializing concurrent upserts for the
// same employer. The returned release must always be called; it unlocks
// and returns the connection to the pool.
func (s *Store) AcquireDedupLock(ctx context.Context, company, country string) (release func(), err error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire conn for dedup lock: %w", err)
	}

	key := strings.ToLower(strings.TrimSpace(company)) + "|" + strings.ToUpper(country)
	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock(hashtext($1))`, key); err != nil {
		conn.Release()
		return nil, fmt.Errorf("pg_advisory_lock: %w", err)
	}

	return func() {
		// Unlock on a background context: release must work even after the
		// caller's context is cancelled.
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := conn.Exec(unlockCtx, `SELECT pg_advisory_unlock(hashtext($1))`, key); err != nil {
			// The session lock dies with the connection anyway.
			conn.Conn().Close(unlockCtx)
		}
		conn.Release()
	}, nil
}

func scanJobs(rows pgx.Rows) ([]model.Job, error) {
	jobs := make([]model.Job, 0)
	for rows.Next() {
		var (
			j      model.Job
			status string
		)
		if err := rows.Scan(
			&j.JobID, &j.Title, &j.Company, &j.Location, &j.Country, &j.City, &j.Remote, &j.Description,
			&j.Industry, &j.PrimaryCategory, &j.SecondaryCategories, &j.ClassificationConfidence,
			&j.ExperienceLevel, &j.SkillsRequired, &j.SkillsPreferred, &j.AllSkills,
			&j.SalaryMin, &j.SalaryMax, &j.SalaryCurrency,
			&j.SourceURL, &j.SourcePlatform, &j.DedupSources, &j.DedupSourceURLs, &j.DedupCount,
			&status, &j.StatusLastChecked, &j.StatusCheckCode, &j.StatusCheckError,
			&j.PostedDate, &j.ScrapedDate, &j.CreatedAt, &j.LastUpdated, &j.ExpiresAt,
		); err != nil {
			return nil, fmt.Errorf("scan job row: %w", err)
		}
		j.Status = model.Status(status)
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job rows: %w", err)
	}
	return jobs, nil
}

// escapeLike neutralizes LIKE metacharacters in user-derived input.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
