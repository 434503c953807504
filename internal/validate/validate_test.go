package validate

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"jobradar/internal/model"
)

func testValidator() *Validator {
	return New(DefaultMinDescriptionLength, []string{"US", "CA", "IN", "AU"})
}

func validJob() model.Job {
	now := time.Now().UTC()
	return model.Job{
		JobID:       "abc123def4567890",
		Title:       "Senior Backend Engineer",
		Company:     "Acme",
		Location:    "Austin, TX",
		Country:     "US",
		Description: strings.Repeat("Build and operate distributed services. ", 5),
		SourceURL:   "https://example.com/jobs/1",
		ScrapedDate: now,
	}
}

func floatPtr(v float64) *float64 { return &v }

func TestValidate_AcceptsCleanJob(t *testing.T) {
	ok, errs := testValidator().Validate(validJob())
	if !ok || len(errs) != 0 {
		t.Fatalf("expected valid job, got errors: %v", errs)
	}
}

func TestValidate_AccumulatesAllErrors(t *testing.T) {
	job := validJob()
	job.Title = "ab"
	job.Company = "n/a"
	job.Description = "short"
	job.SourceURL = "ftp://example.com/jobs/1"

	ok, errs := testValidator().Validate(job)
	if ok {
		t.Fatal("expected invalid job")
	}
	if len(errs) != 4 {
		t.Fatalf("expected 4 errors, got %d: %v", len(errs), errs)
	}
}

func TestValidate_DescriptionTooShort(t *testing.T) {
	job := validJob()
	job.Description = "tiny"

	ok, errs := testValidator().Validate(job)
	if ok {
		t.Fatal("expected rejection")
	}
	if len(errs) != 1 || !strings.Contains(errs[0], "description too short") {
		t.Fatalf("unexpected errors: %v", errs)
	}
}

func TestValidate_SalaryRange(t *testing.T) {
	tests := []struct {
		name    string
		min     *float64
		max     *float64
		wantOK  bool
		wantErr string
	}{
		{"both nil", nil, nil, true, ""},
		{"plausible range", floatPtr(90000), floatPtr(140000), true, ""},
		{"min above max", floatPtr(200000), floatPtr(100000), false, "salaryMin (200000) > salaryMax (100000)"},
		{"negative min", floatPtr(-1), nil, false, "invalid salaryMin"},
		{"min above cap", floatPtr(1_500_000), nil, false, "salaryMin too high"},
		{"max above cap", nil, floatPtr(2_500_000), false, "salaryMax too high"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := validJob()
			job.SalaryMin = tt.min
			job.SalaryMax = tt.max

			ok, errs := testValidator().Validate(job)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v (errors: %v)", ok, tt.wantOK, errs)
			}
			if tt.wantErr != "" && !containsSubstring(errs, tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, errs)
			}
		})
	}
}

func TestValidate_SpamDescription(t *testing.T) {
	job := validJob()
	job.Description = strings.Repeat("Great role. ", 10) + "Click here to apply now!"

	ok, errs := testValidator().Validate(job)
	if ok {
		t.Fatal("expected spam rejection")
	}
	if !containsSubstring(errs, "potential spam") {
		t.Fatalf("unexpected errors: %v", errs)
	}
}

func TestValidate_PlaceholderCompany(t *testing.T) {
	for _, name := range []string{"Unknown", "N/A", "na", "none"} {
		job := validJob()
		job.Company = name
		if ok, _ := testValidator().Validate(job); ok {
			t.Errorf("placeholder company %q accepted", name)
		}
	}
}

func TestValidate_CountryCode(t *testing.T) {
	job := validJob()
	job.Country = "DE"
	ok, errs := testValidator().Validate(job)
	if ok || !containsSubstring(errs, "invalid country code") {
		t.Fatalf("expected country rejection, got %v", errs)
	}

	job.Country = "ca"
	if ok, errs := testValidator().Validate(job); !ok {
		t.Fatalf("lower-case known country rejected: %v", errs)
	}
}

func TestValidate_FuturePostedDate(t *testing.T) {
	job := validJob()
	future := time.Now().Add(48 * time.Hour)
	job.PostedDate = &future

	ok, errs := testValidator().Validate(job)
	if ok || !containsSubstring(errs, "posted date is in the future") {
		t.Fatalf("expected future-date rejection, got %v", errs)
	}
}

func TestValidate_TooManySkills(t *testing.T) {
	job := validJob()
	job.AllSkills = make([]string, 101)
	for i := range job.AllSkills {
		job.AllSkills[i] = strings.Repeat("x", i+1)
	}

	ok, errs := testValidator().Validate(job)
	if ok || !containsSubstring(errs, "too many skills") {
		t.Fatalf("expected skills rejection, got %v", errs)
	}
}

func TestSanitize_TrimsAndNormalizes(t *testing.T) {
	job := validJob()
	job.Title = "  Senior Backend Engineer  "
	job.Company = "Acme Corp."
	job.Country = "us"
	job.AllSkills = []string{"Go", "  postgresql ", "go", ""}

	clean := testValidator().Sanitize(job)

	if clean.Title != "Senior Backend Engineer" {
		t.Errorf("title = %q", clean.Title)
	}
	if clean.Company != "Acme" {
		t.Errorf("company = %q", clean.Company)
	}
	if clean.Country != "US" {
		t.Errorf("country = %q", clean.Country)
	}
	want := []string{"go", "postgresql"}
	if !reflect.DeepEqual(clean.AllSkills, want) {
		t.Errorf("allSkills = %v, want %v", clean.AllSkills, want)
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	job := validJob()
	job.Company = "  Umbrella Health LLC "
	job.Country = "in"
	job.AllSkills = []string{"FHIR", "hl7", "fhir"}
	job.SkillsRequired = []string{"HL7 "}

	v := testValidator()
	once := v.Sanitize(job)
	twice := v.Sanitize(once)

	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("sanitize not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

func containsSubstring(errs []string, sub string) bool {
	for _, e := range errs {
		if strings.Contains(e, sub) {
			return true
		}
	}
	return false
}
