// Package extractor pulls skill, experience-level and salary signals out of
// free-text job descriptions. Extraction never fails: absence of signal is an
// empty result, not an error.
package extractor

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"jobradar/internal/config"
)

// Result is the extracted skill set for one posting.
type Result struct {
	AllSkills   []string
	Required    []string
	Preferred   []string
	Categorized map[string][]string
}

// Salary carries the parsed range. Min/Max are nil when no pattern matched.
type Salary struct {
	Min      *float64
	Max      *float64
	Currency string
}

// Experience levels.
const (
	LevelJunior  = "Junior"
	LevelMid     = "Mid"
	LevelSenior  = "Senior"
	LevelLead    = "Lead"
	LevelUnknown = "Unknown"
)

// Extractor matches a fixed skill vocabulary against posting text.
type Extractor struct {
	vocab      config.SkillsVocabulary
	skills     []string // flattened, lowercased, sorted
	wordMatch  map[string]*regexp.Regexp
	categories map[string][]string // category → lowercased skills
}

// Context phrases that introduce skill mentions, e.g. "experience with X".
var phrasePatterns = []*regexp.Regexp{
	regexp.MustCompile(`experience (?:with|in)\s+([a-z0-9.+#\-\s]+)`),
	regexp.MustCompile(`proficient (?:with|in)\s+([a-z0-9.+#\-\s]+)`),
	regexp.MustCompile(`knowledge of\s+([a-z0-9.+#\-\s]+)`),
	regexp.MustCompile(`skilled in\s+([a-z0-9.+#\-\s]+)`),
	regexp.MustCompile(`expertise in\s+([a-z0-9.+#\-\s]+)`),
	regexp.MustCompile(`familiar with\s+([a-z0-9.+#\-\s]+)`),
	regexp.MustCompile(`understanding of\s+([a-z0-9.+#\-\s]+)`),
}

var bulletPattern = regexp.MustCompile(`[•\-*]\s*([A-Za-z0-9.+#\-\s]+?)(?:\n|,|;|$)`)

var segmentSplit = regexp.MustCompile(`\n{2,}`)

var requiredMarkers = []string{
	"required", "must have", "mandatory", "essential",
	"minimum qualification", "necessary", "needed",
}

var preferredMarkers = []string{
	"preferred", "nice to have", "bonus", "plus",
	"desirable", "advantageous", "beneficial",
}

// New builds an Extractor from the skill vocabulary.
func New(vocab config.SkillsVocabulary) *Extractor {
	e := &Extractor{
		vocab:      vocab,
		wordMatch:  make(map[string]*regexp.Regexp),
		categories: make(map[string][]string),
	}

	seen := make(map[string]bool)
	for category, list := range vocab {
		for _, s := range list {
			lower := strings.ToLower(strings.TrimSpace(s))
			if lower == "" {
				continue
			}
			e.categories[category] = append(e.categories[category], lower)
			if !seen[lower] {
				seen[lower] = true
				e.skills = append(e.skills, lower)
				// Whole-word boundaries that also work for skills with
				// punctuation in them (c++, .net, node.js, ci/cd).
				e.wordMatch[lower] = regexp.MustCompile(
					`(?:^|[^a-z0-9])` + regexp.QuoteMeta(lower) + `(?:$|[^a-z0-9])`)
			}
		}
	}
	sort.Strings(e.skills)
	for category := range e.categories {
		sort.Strings(e.categories[category])
	}
	return e
}

// SkillCount returns the vocabulary size after flattening.
func (e *Extractor) SkillCount() int { return len(e.skills) }

// Extract finds known skills in text and splits them into required and
// preferred buckets based on the segment they appear in.
func (e *Extractor) Extract(text string) Result {
	if text == "" {
		return Result{AllSkills: []string{}, Required: []string{}, Preferred: []string{}, Categorized: map[string][]string{}}
	}

	lower := strings.ToLower(text)
	found := make(map[string]bool)

	// Direct whole-word vocabulary matches.
	for _, skill := range e.skills {
		if e.wordMatch[skill].MatchString(lower) {
			found[skill] = true
		}
	}

	// Context-phrase captures ("experience with X", …): anything the capture
	// contains that is a known skill substring counts.
	for _, p := range phrasePatterns {
		for _, m := range p.FindAllStringSubmatch(lower, -1) {
			e.addContained(m[1], found)
		}
	}

	// Bullet-list items.
	for _, m := range bulletPattern.FindAllStringSubmatch(text, -1) {
		e.addContained(strings.ToLower(strings.TrimSpace(m[1])), found)
	}

	required, preferred := e.splitRequiredPreferred(lower, found)

	return Result{
		AllSkills:   sortedKeys(found),
		Required:    required,
		Preferred:   preferred,
		Categorized: e.categorize(found),
	}
}

func (e *Extractor) addContained(capture string, found map[string]bool) {
	for _, skill := range e.skills {
		if strings.Contains(capture, skill) {
			found[skill] = true
		}
	}
}

// splitRequiredPreferred segments the text on blank lines; skills appearing in
// a segment carrying a required/preferred marker go to that bucket, everything
// unclassified defaults to required.
func (e *Extractor) splitRequiredPreferred(lower string, found map[string]bool) (required, preferred []string) {
	req := make(map[string]bool)
	pref := make(map[string]bool)

	for _, segment := range segmentSplit.Split(lower, -1) {
		isRequired := containsAny(segment, requiredMarkers)
		isPreferred := containsAny(segment, preferredMarkers)
		if !isRequired && !isPreferred {
			continue
		}
		for skill := range found {
			if !strings.Contains(segment, skill) {
				continue
			}
			if isRequired {
				req[skill] = true
			} else {
				pref[skill] = true
			}
		}
	}

	for skill := range found {
		if !req[skill] && !pref[skill] {
			req[skill] = true
		}
	}
	return sortedKeys(req), sortedKeys(pref)
}

func (e *Extractor) categorize(found map[string]bool) map[string][]string {
	categorized := make(map[string][]string)
	for category, skills := range e.categories {
		var hits []string
		for _, skill := range skills {
			if found[skill] {
				hits = append(hits, skill)
			}
		}
		if len(hits) > 0 {
			categorized[category] = hits
		}
	}
	return categorized
}

// Experience-level keyword tiers, checked in order: Senior, Junior, Mid.
var (
	seniorKeywords = []string{
		"senior", "sr.", "sr ", "lead", "principal",
		"staff", "architect", "5+ years", "7+ years", "10+ years",
	}
	midKeywords = []string{
		"mid level", "mid-level", "intermediate",
		"2-5 years", "3-5 years", "3+ years",
	}
	juniorKeywords = []string{
		"junior", "jr.", "jr ", "entry level", "entry-level",
		"graduate", "associate", "0-2 years", "intern",
	}
)

// ExtractExperienceLevel infers seniority, checking the title line first and
// the full text as fallback.
func (e *Extractor) ExtractExperienceLevel(text string) string {
	lower := strings.ToLower(text)

	title := lower
	if idx := strings.Index(lower, "\n"); idx >= 0 {
		title = lower[:idx]
	} else if len(lower) > 100 {
		title = lower[:100]
	}

	for _, scope := range []string{title, lower} {
		switch {
		case containsAny(scope, seniorKeywords):
			return LevelSenior
		case containsAny(scope, juniorKeywords):
			return LevelJunior
		case containsAny(scope, midKeywords):
			return LevelMid
		}
	}
	return LevelUnknown
}

// Salary range patterns, tried in order; the first match wins.
var salaryPatterns = []*regexp.Regexp{
	// $100,000 - $150,000
	regexp.MustCompile(`\$(\d{1,3}(?:,\d{3})*(?:\.\d{2})?)\s*-\s*\$(\d{1,3}(?:,\d{3})*(?:\.\d{2})?)`),
	// 100,000 - 150,000 USD
	regexp.MustCompile(`(\d{1,3}(?:,\d{3})*)\s*-\s*(\d{1,3}(?:,\d{3})*)\s*(?:USD|dollars)`),
	// $100k - $150k
	regexp.MustCompile(`\$(\d{1,3}(?:,\d{3})*[kK])\s*-\s*\$(\d{1,3}(?:,\d{3})*[kK])`),
}

// ExtractSalary parses a salary range out of text. No match returns nil
// bounds with the default currency.
func (e *Extractor) ExtractSalary(text string) Salary {
	salary := Salary{Currency: "USD"}

	for _, p := range salaryPatterns {
		m := p.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		min, okMin := parseAmount(m[1])
		max, okMax := parseAmount(m[2])
		if okMin && okMax {
			salary.Min = &min
			salary.Max = &max
			break
		}
	}
	return salary
}

func parseAmount(s string) (float64, bool) {
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "k", "000")
	s = strings.ReplaceAll(s, "K", "000")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
