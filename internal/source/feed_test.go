package source

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"jobradar/internal/config"
	"jobradar/internal/extractor"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFormatSalaryText(t *testing.T) {
	tests := []struct {
		min, max float64
		want     string
	}{
		{120000, 160000, "$120,000 - $160,000"},
		{90000, 0, "$90,000"},
		{0, 85000, "$85,000"},
		{900, 1500, "$900 - $1,500"},
		{1234567, 0, "$1,234,567"},
	}
	for _, tt := range tests {
		if got := formatSalaryText(tt.min, tt.max); got != tt.want {
			t.Errorf("formatSalaryText(%v, %v) = %q, want %q", tt.min, tt.max, got, tt.want)
		}
	}
}

func TestFormatSalaryText_ParsesBackToRange(t *testing.T) {
	e := extractor.New(config.SkillsVocabulary{"languages": {"Go"}})

	salary := e.ExtractSalary(formatSalaryText(120000, 160000))
	if salary.Min == nil || *salary.Min != 120000 {
		t.Fatalf("min = %v", salary.Min)
	}
	if salary.Max == nil || *salary.Max != 160000 {
		t.Fatalf("max = %v", salary.Max)
	}
}

func TestFetch_MapsFeedResults(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(map[string]any{
			"count": 1,
			"results": []map[string]any{{
				"id":           "101",
				"title":        "Backend Engineer",
				"description":  "Build services in Go.",
				"company":      map[string]string{"display_name": "Acme"},
				"location":     map[string]string{"display_name": "Austin, TX"},
				"salary_min":   120000.0,
				"salary_max":   160000.0,
				"redirect_url": "https://example.com/jobs/101",
				"created":      "2026-08-20T00:00:00Z",
			}},
		})
	}))
	defer srv.Close()

	client := NewFeedClient(srv.URL, "id", "key", "Adzuna", 50, discardLogger())
	postings, err := client.Fetch(context.Background(), "golang", "us")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotPath != "/us/search/1" {
		t.Fatalf("request path = %q", gotPath)
	}
	if len(postings) != 1 {
		t.Fatalf("postings = %d", len(postings))
	}
	p := postings[0]
	if p.Company != "Acme" || p.Location != "Austin, TX" || p.SourcePlatform != "Adzuna" {
		t.Fatalf("posting = %+v", p)
	}
	if p.SalaryText != "$120,000 - $160,000" {
		t.Fatalf("salaryText = %q", p.SalaryText)
	}
	if p.PostedDate == nil {
		t.Fatal("expected postedDate")
	}
}

func TestFetch_MissingCredentialsSkips(t *testing.T) {
	client := NewFeedClient("http://unused.invalid", "", "", "Adzuna", 50, discardLogger())
	postings, err := client.Fetch(context.Background(), "golang", "us")
	if err != nil || postings != nil {
		t.Fatalf("postings = %v, err = %v", postings, err)
	}
}
