// Package classifier scores job postings against a weighted keyword database
// to assign an industry, a primary category, secondary categories and a
// confidence value. Keyword matching is a single Aho-Corasick pass over the
// combined title + description text.
package classifier

import (
	"log/slog"
	"math"
	"sort"
	"strings"

	ahocorasick "github.com/cloudflare/ahocorasick"

	"jobradar/internal/config"
)

const (
	// Characters from the start of the combined text treated as the title
	// region; keyword weights there are boosted.
	titleRegionLen   = 200
	titleRegionBoost = 1.5

	// Weight of an exact taxonomy title phrase and of its tokens.
	phraseWeight = 10.0
	tokenWeight  = 1.0

	// Score that maps to confidence 1.0.
	confidenceCeiling = 50.0

	maxSecondaryCategories  = 5
	secondaryRelativeFloor  = 0.3
	secondaryAbsoluteFloor  = 5.0
	healthcareDistinctFloor = 3

	defaultIndustry = "IT"
	defaultCategory = "Full Stack Development"
)

// Classification is the scoring outcome for one posting.
type Classification struct {
	Industry                 string
	PrimaryCategory          string
	SecondaryCategories      []string
	ClassificationConfidence float64
	PrimaryScore             float64
}

type keywordEntry struct {
	category string
	weight   float64
}

// Classifier holds the compiled keyword automaton. Safe for concurrent use
// after construction.
type Classifier struct {
	matcher          *ahocorasick.Matcher
	keywords         []string
	entries          map[string][]keywordEntry
	categoryIndustry map[string]string
	logger           *slog.Logger
}

// New compiles the keyword database from the taxonomy plus the fixed signal
// sets and builds the automaton.
func New(taxonomy config.Taxonomy, logger *slog.Logger) *Classifier {
	c := &Classifier{
		entries:          make(map[string][]keywordEntry),
		categoryIndustry: make(map[string]string),
		logger:           logger,
	}

	for industry, categories := range taxonomy {
		for category, phrases := range categories {
			c.categoryIndustry[category] = industry
			for _, phrase := range phrases {
				lower := strings.ToLower(strings.TrimSpace(phrase))
				if lower == "" {
					continue
				}
				c.addKeyword(lower, category, phraseWeight)
				for _, token := range strings.Fields(lower) {
					if !titleStopwords[token] {
						c.addKeyword(token, category, tokenWeight)
					}
				}
			}
		}
	}

	for kw, sig := range healthcareSignals {
		c.categoryIndustry[sig.category] = "Healthcare"
		c.addKeyword(kw, sig.category, sig.weight)
	}
	for category, keywords := range itCategoryKeywords {
		if _, ok := c.categoryIndustry[category]; !ok {
			c.categoryIndustry[category] = "IT"
		}
		for kw, weight := range keywords {
			c.addKeyword(kw, category, weight)
		}
	}

	c.matcher = ahocorasick.NewStringMatcher(c.keywords)

	logger.Info("classifier initialized",
		"keywords", len(c.keywords),
		"categories", len(c.categoryIndustry))
	return c
}

func (c *Classifier) addKeyword(kw, category string, weight float64) {
	if _, seen := c.entries[kw]; !seen {
		c.keywords = append(c.keywords, kw)
	}
	// The same keyword may already score this category through another
	// registration; keep the highest weight instead of stacking.
	for i, e := range c.entries[kw] {
		if e.category == category {
			if weight > e.weight {
				c.entries[kw][i].weight = weight
			}
			return
		}
	}
	c.entries[kw] = append(c.entries[kw], keywordEntry{category: category, weight: weight})
}

// Classify scores title + description and returns the labels. It never
// fails; text with no keyword hits gets the fixed default classification.
func (c *Classifier) Classify(title, description string) Classification {
	text := strings.ToLower(title + " " + description)

	present := c.match(text)
	if len(present) == 0 {
		return Classification{
			Industry:            defaultIndustry,
			PrimaryCategory:     defaultCategory,
			SecondaryCategories: []string{},
		}
	}

	titleRegion := text
	if len(titleRegion) > titleRegionLen {
		titleRegion = titleRegion[:titleRegionLen]
	}
	inTitle := c.match(titleRegion)

	scores := make(map[string]float64)
	healthcareHits := 0
	for kw := range present {
		if _, ok := healthcareSignals[kw]; ok {
			healthcareHits++
		}
		boost := 1.0
		if inTitle[kw] {
			boost = titleRegionBoost
		}
		for _, e := range c.entries[kw] {
			scores[e.category] += e.weight * boost
		}
	}

	ranked := rankCategories(scores)
	primary := ranked[0]

	industry := defaultIndustry
	if c.categoryIndustry[primary.name] == "Healthcare" || healthcareHits >= healthcareDistinctFloor {
		industry = "Healthcare"
	}

	floor := math.Max(primary.score*secondaryRelativeFloor, secondaryAbsoluteFloor)
	secondaries := make([]string, 0, maxSecondaryCategories)
	for _, cand := range ranked[1:] {
		if len(secondaries) == maxSecondaryCategories {
			break
		}
		if cand.score >= floor {
			secondaries = append(secondaries, cand.name)
		}
	}

	return Classification{
		Industry:                 industry,
		PrimaryCategory:          primary.name,
		SecondaryCategories:      secondaries,
		ClassificationConfidence: math.Min(primary.score/confidenceCeiling, 1.0),
		PrimaryScore:             primary.score,
	}
}

// match returns the set of keywords present anywhere in text.
func (c *Classifier) match(text string) map[string]bool {
	present := make(map[string]bool)
	for _, idx := range c.matcher.Match([]byte(text)) {
		if idx < len(c.keywords) {
			present[c.keywords[idx]] = true
		}
	}
	return present
}

type rankedCategory struct {
	name  string
	score float64
}

// rankCategories sorts by score descending with a deterministic lexicographic
// tie-break on the category name.
func rankCategories(scores map[string]float64) []rankedCategory {
	ranked := make([]rankedCategory, 0, len(scores))
	for name, score := range scores {
		ranked = append(ranked, rankedCategory{name: name, score: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].name < ranked[j].name
	})
	return ranked
}
