package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"jobradar/internal/classifier"
	"jobradar/internal/config"
	"jobradar/internal/dedup"
	"jobradar/internal/extractor"
	"jobradar/internal/model"
	"jobradar/internal/validate"
)

// ─── Fakes ───────────────────────────────────────────────────────────────────

type fakeSource struct {
	postings []model.RawPosting
	err      error
	calls    int
}

func (f *fakeSource) Fetch(_ context.Context, _, _ string) ([]model.RawPosting, error) {
	f.calls++
	return f.postings, f.err
}

type fakeStore struct {
	jobs      map[string]model.Job
	scrapeLog []model.ScrapeLogEntry
	insertErr error
	inserts   int
	updates   int
	locks     int
	unlocks   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{jobs: make(map[string]model.Job)}
}

func (f *fakeStore) FindCandidates(_ context.Context, company, country string, _ time.Time) ([]model.Job, error) {
	var out []model.Job
	for _, j := range f.jobs {
		if j.Country == country && strings.Contains(strings.ToLower(j.Company), strings.ToLower(company)) {
			out = append(out, j)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertJob(_ context.Context, job model.Job) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	if _, exists := f.jobs[job.JobID]; exists {
		return fmt.Errorf("duplicate key %s", job.JobID)
	}
	f.jobs[job.JobID] = job
	f.inserts++
	return nil
}

func (f *fakeStore) UpdateJob(_ context.Context, job model.Job) error {
	if _, exists := f.jobs[job.JobID]; !exists {
		return fmt.Errorf("no such job %s", job.JobID)
	}
	f.jobs[job.JobID] = job
	f.updates++
	return nil
}

func (f *fakeStore) AppendScrapeLog(_ context.Context, entry model.ScrapeLogEntry) error {
	f.scrapeLog = append(f.scrapeLog, entry)
	return nil
}

func (f *fakeStore) AcquireDedupLock(_ context.Context, _, _ string) (func(), error) {
	f.locks++
	return func() { f.unlocks++ }, nil
}

type fakeCache struct{ invalidations int }

func (f *fakeCache) InvalidateStats(_ context.Context) { f.invalidations++ }

type nopNotifier struct {
	events    []string
	criticals []bool
}

func (n *nopNotifier) Notify(_ context.Context, errType, _ string, _ map[string]any, critical bool) {
	n.events = append(n.events, errType)
	n.criticals = append(n.criticals, critical)
}

// orderedStore serves duplicate candidates in a fixed order, which the
// merge path must respect.
type orderedStore struct {
	*fakeStore
	candidates []model.Job
}

func (o *orderedStore) FindCandidates(_ context.Context, _, _ string, _ time.Time) ([]model.Job, error) {
	return o.candidates, nil
}

// ─── Fixtures ────────────────────────────────────────────────────────────────

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPipeline(src Source, st Store) (*Pipeline, *fakeCache, *nopNotifier) {
	return testPipelineWithLogger(src, st, discardLogger())
}

func testPipelineWithLogger(src Source, st Store, logger *slog.Logger) (*Pipeline, *fakeCache, *nopNotifier) {
	taxonomy := config.Taxonomy{
		"IT": {
			"Backend Development":  {"backend engineer", "backend developer"},
			"Frontend Development": {"frontend developer", "react developer"},
		},
	}
	vocab := config.SkillsVocabulary{
		"languages":  {"Go", "Python", "TypeScript"},
		"frameworks": {"React", "Django"},
		"databases":  {"PostgreSQL", "Redis"},
	}

	cache := &fakeCache{}
	notifier := &nopNotifier{}
	p := New(
		src, st, cache,
		extractor.New(vocab),
		classifier.New(taxonomy, logger),
		dedup.New(dedup.DefaultThreshold, logger),
		validate.New(50, []string{"US", "CA", "IN", "AU"}),
		notifier,
		[]config.Country{{Code: "US", Name: "United States", FeedLocation: "us"}},
		Options{DedupWindowDays: 90, JobRetentionDays: 30},
		logger,
	)
	return p, cache, notifier
}

func goodDescription(extra string) string {
	return "We are hiring a backend engineer to build services in Go " +
		"with PostgreSQL and Redis on a growing platform team. " + extra
}

func rawPosting(title, company string) model.RawPosting {
	return model.RawPosting{
		Title:          title,
		Company:        company,
		Location:       "Austin, TX",
		Description:    goodDescription(""),
		SourceURL:      "https://example.com/" + strings.ReplaceAll(strings.ToLower(title), " ", "-"),
		SourcePlatform: "Adzuna",
	}
}

// ─── Tests ───────────────────────────────────────────────────────────────────

func TestRun_InsertsNewJobs(t *testing.T) {
	src := &fakeSource{postings: []model.RawPosting{
		rawPosting("Backend Engineer", "Acme"),
		rawPosting("Frontend Developer", "Globex"),
	}}
	st := newFakeStore()
	p, cache, _ := testPipeline(src, st)

	stats := p.Run(context.Background(), []string{"software engineer"})

	if stats.TotalScraped != 2 || stats.TotalValidated != 2 || stats.TotalNew != 2 {
		t.Fatalf("stats = %+v", stats)
	}
	if st.inserts != 2 || st.updates != 0 {
		t.Fatalf("inserts = %d, updates = %d", st.inserts, st.updates)
	}
	if st.locks != st.unlocks || st.locks != 2 {
		t.Fatalf("locks = %d, unlocks = %d", st.locks, st.unlocks)
	}
	if cache.invalidations != 1 {
		t.Fatalf("cache invalidations = %d", cache.invalidations)
	}
}

func TestRun_AppendsScrapeLog(t *testing.T) {
	src := &fakeSource{postings: []model.RawPosting{rawPosting("Backend Engineer", "Acme")}}
	st := newFakeStore()
	p, _, _ := testPipeline(src, st)

	p.Run(context.Background(), []string{"golang"})

	if len(st.scrapeLog) != 1 {
		t.Fatalf("scrape log rows = %d", len(st.scrapeLog))
	}
	entry := st.scrapeLog[0]
	if entry.SearchQuery != "golang" || entry.Country != "US" {
		t.Fatalf("entry = %+v", entry)
	}
	if entry.Status != model.ScrapeStatusSuccess || entry.JobsFound != 1 {
		t.Fatalf("entry = %+v", entry)
	}
}

func TestRun_MergesIntoExistingJob(t *testing.T) {
	existing := model.Job{
		JobID:           model.ComputeJobID("Backend Engineer", "Acme", "Austin, TX"),
		Title:           "Backend Engineer",
		Company:         "Acme",
		Location:        "Austin, TX",
		Country:         "US",
		Description:     goodDescription(""),
		SourcePlatform:  "LinkedIn",
		SourceURL:       "https://linkedin.example.com/1",
		DedupSources:    []string{"LinkedIn"},
		DedupSourceURLs: []string{"https://linkedin.example.com/1"},
		DedupCount:      1,
		Status:          model.StatusActive,
	}
	st := newFakeStore()
	st.jobs[existing.JobID] = existing

	src := &fakeSource{postings: []model.RawPosting{rawPosting("Backend Engineer", "Acme")}}
	p, _, _ := testPipeline(src, st)

	stats := p.Run(context.Background(), []string{"golang"})

	if stats.TotalNew != 0 || stats.TotalUpdated != 1 || stats.TotalDuplicates != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	merged := st.jobs[existing.JobID]
	if merged.DedupCount != 2 {
		t.Fatalf("dedupCount = %d", merged.DedupCount)
	}
	if len(merged.DedupSources) != 2 {
		t.Fatalf("dedupSources = %v", merged.DedupSources)
	}
}

func TestRun_ValidationFailureIsCountedNotStored(t *testing.T) {
	bad := rawPosting("Backend Engineer", "Acme")
	bad.Description = "too short"
	src := &fakeSource{postings: []model.RawPosting{bad}}
	st := newFakeStore()
	p, _, _ := testPipeline(src, st)

	stats := p.Run(context.Background(), []string{"golang"})

	if stats.TotalValidationFailed != 1 || stats.TotalValidated != 0 || stats.TotalNew != 0 {
		t.Fatalf("stats = %+v", stats)
	}
	if st.inserts != 0 {
		t.Fatalf("inserts = %d", st.inserts)
	}
}

func TestRun_InBatchDuplicatesCollapse(t *testing.T) {
	src := &fakeSource{postings: []model.RawPosting{
		rawPosting("Backend Engineer", "Acme"),
		rawPosting("Backend Engineer", "Acme"),
	}}
	st := newFakeStore()
	p, _, _ := testPipeline(src, st)

	stats := p.Run(context.Background(), []string{"golang"})

	if stats.TotalNew != 1 || stats.TotalDuplicates != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if st.inserts != 1 {
		t.Fatalf("inserts = %d", st.inserts)
	}
}

func TestRun_FetchErrorRecordsFailedRound(t *testing.T) {
	src := &fakeSource{err: fmt.Errorf("feed returned 503")}
	st := newFakeStore()
	p, _, notifier := testPipeline(src, st)

	stats := p.Run(context.Background(), []string{"golang"})

	if stats.Errors == 0 {
		t.Fatalf("stats = %+v", stats)
	}
	if len(st.scrapeLog) != 1 || st.scrapeLog[0].Status != model.ScrapeStatusFailed {
		t.Fatalf("scrape log = %+v", st.scrapeLog)
	}
	if st.scrapeLog[0].ErrorMessage == "" {
		t.Fatal("expected error message in scrape log")
	}
	if len(notifier.events) == 0 {
		t.Fatal("expected a notification")
	}
}

func TestRun_StoreFailureNotifiedPerRecord(t *testing.T) {
	src := &fakeSource{postings: []model.RawPosting{rawPosting("Backend Engineer", "Acme")}}
	st := newFakeStore()
	st.insertErr = fmt.Errorf("connection reset by peer")
	p, _, notifier := testPipeline(src, st)

	stats := p.Run(context.Background(), []string{"golang"})

	if stats.Errors == 0 || stats.TotalNew != 0 {
		t.Fatalf("stats = %+v", stats)
	}
	found := false
	for i, event := range notifier.events {
		if event == "database_error" {
			found = true
			if !notifier.criticals[i] {
				t.Fatal("database_error notification must be critical")
			}
		}
	}
	if !found {
		t.Fatalf("expected database_error notification, got %v", notifier.events)
	}
}

func TestRun_ValidationRejectLoggedAtWarn(t *testing.T) {
	bad := rawPosting("Backend Engineer", "Acme")
	bad.Description = "too short"
	src := &fakeSource{postings: []model.RawPosting{bad}}

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	p, _, _ := testPipelineWithLogger(src, newFakeStore(), logger)

	p.Run(context.Background(), []string{"golang"})

	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "posting rejected") {
		t.Fatalf("expected WARN-level rejection log, got:\n%s", out)
	}
}

func TestUpsert_FirstCandidateMatchWins(t *testing.T) {
	// Both candidates clear the threshold; the weaker one comes first in
	// candidate order and must win the merge.
	near := model.Job{
		JobID:    model.ComputeJobID("Backend Engineer", "Acme", "Austin, Texas"),
		Title:    "Backend Engineer",
		Company:  "Acme",
		Location: "Austin, Texas",
		Country:  "US",
		Status:   model.StatusActive,
	}
	exact := model.Job{
		JobID:    model.ComputeJobID("Backend Engineer", "Acme", "Austin, TX"),
		Title:    "Backend Engineer",
		Company:  "Acme",
		Location: "Austin, TX",
		Country:  "US",
		Status:   model.StatusActive,
	}

	inner := newFakeStore()
	inner.jobs[near.JobID] = near
	inner.jobs[exact.JobID] = exact
	st := &orderedStore{fakeStore: inner, candidates: []model.Job{near, exact}}

	src := &fakeSource{postings: []model.RawPosting{rawPosting("Backend Engineer", "Acme")}}
	p, _, _ := testPipeline(src, st)

	stats := p.Run(context.Background(), []string{"golang"})

	if stats.TotalUpdated != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if inner.jobs[near.JobID].DedupCount != 2 {
		t.Errorf("first candidate not merged: %+v", inner.jobs[near.JobID])
	}
	if inner.jobs[exact.JobID].DedupCount != 0 {
		t.Errorf("later candidate was merged: %+v", inner.jobs[exact.JobID])
	}
}

func TestBuildJob_EnrichesPosting(t *testing.T) {
	p, _, _ := testPipeline(&fakeSource{}, newFakeStore())

	posted := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	raw := model.RawPosting{
		Title:          "Senior Backend Engineer",
		Company:        "Acme",
		Location:       "Austin, TX",
		Description:    goodDescription("Salary: $120,000 - $160,000 per year."),
		SourceURL:      "https://example.com/1",
		SourcePlatform: "Adzuna",
		PostedDate:     &posted,
	}

	job := p.buildJob(raw, "US")

	if job.JobID == "" || job.JobID != model.ComputeJobID(raw.Title, raw.Company, raw.Location) {
		t.Fatalf("jobID = %q", job.JobID)
	}
	if job.City != "Austin" {
		t.Errorf("city = %q", job.City)
	}
	if job.ExperienceLevel != extractor.LevelSenior {
		t.Errorf("experienceLevel = %q", job.ExperienceLevel)
	}
	if job.PrimaryCategory != "Backend Development" {
		t.Errorf("primaryCategory = %q", job.PrimaryCategory)
	}
	if !containsSkill(job.AllSkills, "go") || !containsSkill(job.AllSkills, "postgresql") {
		t.Errorf("allSkills = %v", job.AllSkills)
	}
	if job.SalaryMin == nil || *job.SalaryMin != 120000 {
		t.Errorf("salaryMin = %v", job.SalaryMin)
	}
	if job.SalaryMax == nil || *job.SalaryMax != 160000 {
		t.Errorf("salaryMax = %v", job.SalaryMax)
	}
	if job.Status != model.StatusActive {
		t.Errorf("status = %q", job.Status)
	}
	if !job.ExpiresAt.Equal(posted.Add(30 * 24 * time.Hour)) {
		t.Errorf("expiresAt = %v", job.ExpiresAt)
	}
}

func TestCityFromLocation(t *testing.T) {
	tests := []struct {
		location string
		want     string
	}{
		{"Austin, TX", "Austin"},
		{"Toronto, ON, Canada", "Toronto"},
		{"Remote", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := cityFromLocation(tt.location); got != tt.want {
			t.Errorf("cityFromLocation(%q) = %q, want %q", tt.location, got, tt.want)
		}
	}
}

func containsSkill(skills []string, want string) bool {
	for _, s := range skills {
		if s == want {
			return true
		}
	}
	return false
}
