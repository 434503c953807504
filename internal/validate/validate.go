// Package validate enforces data-quality gates on jobs before storage and
// sanitizes accepted records. Validate is pure: it returns the full list of
// failures and never short-circuits; reporting is the caller's job.
package validate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"jobradar/internal/model"
)

// Salary sanity ceilings.
const (
	maxSalaryMin = 1_000_000
	maxSalaryMax = 2_000_000
	maxSkills    = 100

	minTitleLen    = 3
	minCompanyLen  = 2
	minLocationLen = 2

	// DefaultMinDescriptionLength is the description length floor.
	DefaultMinDescriptionLength = 50
)

// Company placeholders rejected outright.
var placeholderCompanies = map[string]bool{
	"unknown": true,
	"n/a":     true,
	"na":      true,
	"none":    true,
}

// Spam phrases that disqualify a description.
var spamIndicators = []string{
	"viagra", "cialis", "casino", "poker",
	"click here", "limited time offer", "earn $$$",
}

// Validator holds the configurable gates.
type Validator struct {
	minDescriptionLength int
	allowedCountries     map[string]bool
	now                  func() time.Time
}

// New builds a Validator. allowedCountries are upper-case ISO codes.
func New(minDescriptionLength int, allowedCountries []string) *Validator {
	allowed := make(map[string]bool, len(allowedCountries))
	for _, c := range allowedCountries {
		allowed[strings.ToUpper(c)] = true
	}
	return &Validator{
		minDescriptionLength: minDescriptionLength,
		allowedCountries:     allowed,
		now:                  time.Now,
	}
}

// Validate runs every gate and accumulates failures. ok is true only when no
// gate failed.
func (v *Validator) Validate(job model.Job) (ok bool, errs []string) {
	if job.JobID == "" {
		errs = append(errs, "missing required field: jobID")
	}

	title := strings.TrimSpace(job.Title)
	if title == "" {
		errs = append(errs, "missing required field: title")
	} else if len(title) < minTitleLen {
		errs = append(errs, fmt.Sprintf("job title too short (minimum %d characters)", minTitleLen))
	}

	company := strings.TrimSpace(job.Company)
	switch {
	case company == "":
		errs = append(errs, "missing required field: company")
	case len(company) < minCompanyLen:
		errs = append(errs, "company name too short")
	case placeholderCompanies[strings.ToLower(company)]:
		errs = append(errs, fmt.Sprintf("invalid company name: %q", company))
	}

	location := strings.TrimSpace(job.Location)
	if location == "" {
		errs = append(errs, "missing required field: location")
	} else if len(location) < minLocationLen {
		errs = append(errs, "location too short")
	}

	description := strings.TrimSpace(job.Description)
	if len(description) < v.minDescriptionLength {
		errs = append(errs, fmt.Sprintf(
			"description too short (minimum %d characters, got %d)",
			v.minDescriptionLength, len(description)))
	}
	if description != "" {
		lower := strings.ToLower(description)
		for _, spam := range spamIndicators {
			if strings.Contains(lower, spam) {
				errs = append(errs, fmt.Sprintf("potential spam detected: contains %q", spam))
				break
			}
		}
	}

	if job.Country != "" && !v.allowedCountries[strings.ToUpper(job.Country)] {
		errs = append(errs, fmt.Sprintf("invalid country code: %q", job.Country))
	}

	if job.SalaryMin != nil {
		if *job.SalaryMin < 0 {
			errs = append(errs, fmt.Sprintf("invalid salaryMin: %v", *job.SalaryMin))
		} else if *job.SalaryMin > maxSalaryMin {
			errs = append(errs, fmt.Sprintf("salaryMin too high (>$%dM): %v", maxSalaryMin/1_000_000, *job.SalaryMin))
		}
	}
	if job.SalaryMax != nil {
		if *job.SalaryMax < 0 {
			errs = append(errs, fmt.Sprintf("invalid salaryMax: %v", *job.SalaryMax))
		} else if *job.SalaryMax > maxSalaryMax {
			errs = append(errs, fmt.Sprintf("salaryMax too high (>$%dM): %v", maxSalaryMax/1_000_000, *job.SalaryMax))
		}
	}
	if job.SalaryMin != nil && job.SalaryMax != nil && *job.SalaryMin > *job.SalaryMax {
		errs = append(errs, fmt.Sprintf("salaryMin (%v) > salaryMax (%v)", *job.SalaryMin, *job.SalaryMax))
	}

	if len(job.AllSkills) > maxSkills {
		errs = append(errs, fmt.Sprintf("too many skills (%d), possible extraction error", len(job.AllSkills)))
	}

	if job.SourceURL != "" &&
		!strings.HasPrefix(job.SourceURL, "http://") &&
		!strings.HasPrefix(job.SourceURL, "https://") {
		errs = append(errs, fmt.Sprintf("invalid source URL format: %q", job.SourceURL))
	}

	if job.PostedDate != nil && job.PostedDate.After(v.now()) {
		errs = append(errs, "posted date is in the future")
	}

	return len(errs) == 0, errs
}

// Sanitize cleans a record that already passed Validate. It trims string
// fields, strips legal-entity suffixes from the company, upper-cases the
// country code and normalizes every skill list. Sanitize never rejects and
// is idempotent.
func (v *Validator) Sanitize(job model.Job) model.Job {
	clean := job

	clean.Title = strings.TrimSpace(job.Title)
	clean.Company = stripCompanySuffixes(strings.TrimSpace(job.Company))
	clean.Location = strings.TrimSpace(job.Location)
	clean.Description = strings.TrimSpace(job.Description)
	clean.Industry = strings.TrimSpace(job.Industry)
	clean.PrimaryCategory = strings.TrimSpace(job.PrimaryCategory)
	clean.Country = strings.ToUpper(strings.TrimSpace(job.Country))

	clean.AllSkills = normalizeSkills(job.AllSkills)
	clean.SkillsRequired = normalizeSkills(job.SkillsRequired)
	clean.SkillsPreferred = normalizeSkills(job.SkillsPreferred)

	return clean
}

// Display-case suffixes removed during sanitize; fuzzy comparison elsewhere
// uses dedup.NormalizeCompany on the lowercased form.
var displaySuffixes = []string{" Inc.", " Inc", " LLC", " Ltd.", " Ltd", " Corporation", " Corp.", " Corp"}

func stripCompanySuffixes(company string) string {
	for _, suffix := range displaySuffixes {
		if strings.HasSuffix(company, suffix) {
			company = strings.TrimSpace(strings.TrimSuffix(company, suffix))
		}
	}
	return company
}

// normalizeSkills lowercases, de-duplicates and sorts a skill list.
func normalizeSkills(skills []string) []string {
	if skills == nil {
		return nil
	}
	set := make(map[string]bool, len(skills))
	for _, s := range skills {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			set[s] = true
		}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
