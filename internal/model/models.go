// Package model defines the shared data structures for the ingestion service.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// RawPosting is a single untyped-ish record as produced by a feed source.
// It carries no invariants beyond optional presence; the pipeline validates
// everything before any of it reaches the store.
type RawPosting struct {
	Title          string     `json:"title"`
	Company        string     `json:"company"`
	Location       string     `json:"location"`
	Description    string     `json:"description"`
	SourceURL      string     `json:"sourceUrl"`
	SourcePlatform string     `json:"sourcePlatform"`
	PostedDate     *time.Time `json:"postedDate,omitempty"`
	SalaryText     string     `json:"salaryText,omitempty"`
	Remote         bool       `json:"remote,omitempty"`
}

// Job is the canonical persisted posting. The JSON field names are the wire
// contract toward the read API and must not change.
type Job struct {
	JobID    string `json:"jobID"`
	Title    string `json:"title"`
	Company  string `json:"company"`
	Location string `json:"location"`
	Country  string `json:"country"`
	City     string `json:"city,omitempty"`
	Remote   bool   `json:"remote"`

	Description string `json:"description"`

	Industry                 string   `json:"industry"`
	PrimaryCategory          string   `json:"primaryCategory"`
	SecondaryCategories      []string `json:"secondaryCategories"`
	ClassificationConfidence float64  `json:"classificationConfidence"`
	ExperienceLevel          string   `json:"experienceLevel,omitempty"`

	SkillsRequired  []string `json:"skillsRequired"`
	SkillsPreferred []string `json:"skillsPreferred"`
	AllSkills       []string `json:"allSkills"`

	SalaryMin      *float64 `json:"salaryMin"`
	SalaryMax      *float64 `json:"salaryMax"`
	SalaryCurrency string   `json:"salaryCurrency"`

	SourceURL      string `json:"sourceURL"`
	SourcePlatform string `json:"sourcePlatform"`

	DedupSources    []string `json:"dedupSources"`
	DedupSourceURLs []string `json:"dedupSourceURLs"`
	DedupCount      int      `json:"dedupCount"`

	Status            Status     `json:"status"`
	StatusLastChecked *time.Time `json:"statusLastChecked"`
	StatusCheckCode   *int       `json:"statusCheckCode"`
	StatusCheckError  *string    `json:"statusCheckError"`

	PostedDate  *time.Time `json:"postedDate"`
	ScrapedDate time.Time  `json:"scrapedDate"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastUpdated time.Time  `json:"lastUpdated"`
	ExpiresAt   time.Time  `json:"expiresAt"`
}

// ComputeJobID derives the content-hash identity from title, company and
// location. The identity is stable across sources, which is exactly what
// allows merged postings to share it.
func ComputeJobID(title, company, location string) string {
	key := strings.ToLower(strings.TrimSpace(title)) + "|" +
		strings.ToLower(strings.TrimSpace(company)) + "|" +
		strings.ToLower(strings.TrimSpace(location))
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}

// ComputeExpiry derives expiresAt: postedDate when known, otherwise
// scrapedDate, plus the retention window.
func ComputeExpiry(postedDate *time.Time, scrapedDate time.Time, retention time.Duration) time.Time {
	base := scrapedDate
	if postedDate != nil {
		base = *postedDate
	}
	return base.Add(retention)
}

// ScrapeLogEntry is one append-only audit row per (searchQuery, country)
// scrape attempt.
type ScrapeLogEntry struct {
	SearchQuery     string    `json:"searchQuery"`
	Country         string    `json:"country"`
	JobsFound       int       `json:"jobsFound"`
	Status          string    `json:"status"` // "success" or "failed"
	ErrorMessage    string    `json:"errorMessage,omitempty"`
	DurationSeconds float64   `json:"durationSeconds"`
	Timestamp       time.Time `json:"timestamp"`
}

// Scrape log status values.
const (
	ScrapeStatusSuccess = "success"
	ScrapeStatusFailed  = "failed"
)
