// Package dedup detects near-identical postings across sources and merges
// them while preserving multi-source provenance.
package dedup

import (
	"log/slog"
	"sort"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"jobradar/internal/model"
)

// DefaultThreshold is the similarity score (0–100) at or above which two
// postings count as duplicates.
const DefaultThreshold = 85

// Match pairs a candidate with its similarity score.
type Match struct {
	Job   model.Job
	Score float64
}

// Deduplicator fuzzy-matches postings on title, company and location.
type Deduplicator struct {
	threshold float64
	logger    *slog.Logger
}

// New returns a Deduplicator with the given threshold (0–100).
func New(threshold int, logger *slog.Logger) *Deduplicator {
	return &Deduplicator{threshold: float64(threshold), logger: logger}
}

// IsDuplicate reports whether a and b describe the same posting, along with
// the averaged similarity score. Fields empty on either side are skipped, not
// penalized; two jobs with no comparable fields are never duplicates.
func (d *Deduplicator) IsDuplicate(a, b model.Job) (bool, float64) {
	fields := [][2]string{
		{a.Title, b.Title},
		{a.Company, b.Company},
		{a.Location, b.Location},
	}

	var sum float64
	var compared int
	for _, f := range fields {
		va := strings.ToLower(strings.TrimSpace(f[0]))
		vb := strings.ToLower(strings.TrimSpace(f[1]))
		if va == "" || vb == "" {
			continue
		}
		// Token-sort ratio tolerates word reordering between sources.
		sum += float64(fuzzy.TokenSortRatio(va, vb))
		compared++
	}
	if compared == 0 {
		return false, 0
	}

	avg := sum / float64(compared)
	return avg >= d.threshold, avg
}

// FindDuplicates returns every existing job the candidate duplicates, with
// scores.
func (d *Deduplicator) FindDuplicates(candidate model.Job, existing []model.Job) []Match {
	var matches []Match
	for _, job := range existing {
		if ok, score := d.IsDuplicate(candidate, job); ok {
			matches = append(matches, Match{Job: job, Score: score})
		}
	}
	return matches
}

// DeduplicateBatch splits jobs into unique entries and duplicates. The scan
// is greedy and order-sensitive: each job is compared against the unique
// entries accepted so far, and the first match wins. An exact-signature fast
// path short-circuits the fuzzy comparison for identical postings.
func (d *Deduplicator) DeduplicateBatch(jobs []model.Job) (unique, duplicates []model.Job) {
	seen := make(map[string]bool)

	for _, job := range jobs {
		sig := Signature(job)
		if seen[sig] {
			duplicates = append(duplicates, job)
			continue
		}

		isDup := false
		for _, u := range unique {
			if ok, score := d.IsDuplicate(job, u); ok {
				isDup = true
				duplicates = append(duplicates, job)
				d.logger.Debug("filtered duplicate",
					"title", job.Title,
					"company", job.Company,
					"score", score)
				break
			}
		}

		if !isDup {
			unique = append(unique, job)
			seen[sig] = true
		}
	}

	d.logger.Info("batch deduplication complete",
		"unique", len(unique),
		"duplicates", len(duplicates),
		"total", len(jobs))
	return unique, duplicates
}

// Merge folds duplicates into the primary record field by field, in
// encounter order, and accumulates provenance. The primary's identity and
// timestamps are untouched.
func (d *Deduplicator) Merge(primary model.Job, duplicates []model.Job) model.Job {
	merged := primary

	sources := append([]string{}, primary.DedupSources...)
	if len(sources) == 0 && primary.SourcePlatform != "" {
		sources = []string{primary.SourcePlatform}
	}
	urls := append([]string{}, primary.DedupSourceURLs...)
	if len(urls) == 0 && primary.SourceURL != "" {
		urls = []string{primary.SourceURL}
	}

	for _, dup := range duplicates {
		if dup.SourcePlatform != "" && !containsString(sources, dup.SourcePlatform) {
			sources = append(sources, dup.SourcePlatform)
		}
		if dup.SourceURL != "" && !containsString(urls, dup.SourceURL) {
			urls = append(urls, dup.SourceURL)
		}

		if merged.Description == "" && dup.Description != "" {
			merged.Description = dup.Description
		}

		if merged.SalaryMin == nil && dup.SalaryMin != nil {
			merged.SalaryMin = dup.SalaryMin
			merged.SalaryMax = dup.SalaryMax
			merged.SalaryCurrency = dup.SalaryCurrency
		}

		merged.AllSkills = unionSorted(merged.AllSkills, dup.AllSkills)
		merged.SkillsRequired = unionSorted(merged.SkillsRequired, dup.SkillsRequired)
		merged.SkillsPreferred = unionSorted(merged.SkillsPreferred, dup.SkillsPreferred)
	}

	merged.DedupSources = sources
	merged.DedupSourceURLs = urls
	// A fresh primary starts at 1; a previously merged one keeps its tally.
	merged.DedupCount = max(1, primary.DedupCount) + len(duplicates)

	d.logger.Info("merged duplicates",
		"title", merged.Title,
		"company", merged.Company,
		"count", merged.DedupCount,
		"sources", strings.Join(sources, ","))
	return merged
}

// Signature is the cheap exact-match dedup key.
func Signature(job model.Job) string {
	return strings.ToLower(strings.TrimSpace(job.Title)) + "|" +
		strings.ToLower(strings.TrimSpace(job.Company)) + "|" +
		strings.ToLower(strings.TrimSpace(job.Location))
}

// Legal-entity suffixes stripped by NormalizeCompany. The pass walks the
// whole list, so stacked suffixes ("Foo Co. Inc") all come off.
var companySuffixes = []string{
	" inc.", " inc", " llc", " ltd.", " ltd", " corp.",
	" corp", " corporation", " limited", " company",
	" co.", " co", " l.l.c.", " l.p.", " plc",
}

// NormalizeCompany lowercases a company name and strips legal-entity
// suffixes. Used for display and signature purposes, never for the fuzzy
// similarity score itself.
func NormalizeCompany(company string) string {
	normalized := strings.ToLower(strings.TrimSpace(company))
	if normalized == "" {
		return ""
	}

	for _, suffix := range companySuffixes {
		if strings.HasSuffix(normalized, suffix) {
			normalized = strings.TrimSpace(strings.TrimSuffix(normalized, suffix))
		}
	}

	return strings.Join(strings.Fields(normalized), " ")
}

func unionSorted(a, b []string) []string {
	if len(a) == 0 && len(b) == 0 {
		return a
	}
	set := make(map[string]bool, len(a)+len(b))
	for _, s := range a {
		set[s] = true
	}
	for _, s := range b {
		set[s] = true
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
