package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Taxonomy maps industry → category → canonical job-title phrases.
// It seeds the classifier keyword database and is loaded once per process.
type Taxonomy map[string]map[string][]string

// SkillsVocabulary maps skill category → skill names. The extractor flattens
// it into a lookup set.
type SkillsVocabulary map[string][]string

// CountriesFile mirrors countries.yaml.
type CountriesFile struct {
	Countries []Country `yaml:"countries"`
}

// Country is one supported scrape target.
type Country struct {
	Code         string `yaml:"code"`
	Name         string `yaml:"name"`
	FeedLocation string `yaml:"feedLocation"`
}

// LoadTaxonomy reads and validates the category taxonomy file.
func LoadTaxonomy(dir string) (Taxonomy, error) {
	var t Taxonomy
	if err := loadYAML(filepath.Join(dir, "job_categories.yaml"), &t); err != nil {
		return nil, err
	}
	if len(t) == 0 {
		return nil, fmt.Errorf("taxonomy is empty; the classifier cannot initialize")
	}
	return t, nil
}

// LoadSkills reads and validates the skill vocabulary file.
func LoadSkills(dir string) (SkillsVocabulary, error) {
	var v SkillsVocabulary
	if err := loadYAML(filepath.Join(dir, "skills.yaml"), &v); err != nil {
		return nil, err
	}
	if len(v) == 0 {
		return nil, fmt.Errorf("skill vocabulary is empty; the extractor cannot initialize")
	}
	return v, nil
}

// LoadCountries reads the supported-country list.
func LoadCountries(dir string) (*CountriesFile, error) {
	var c CountriesFile
	if err := loadYAML(filepath.Join(dir, "countries.yaml"), &c); err != nil {
		return nil, err
	}
	if len(c.Countries) == 0 {
		return nil, fmt.Errorf("countries list is empty")
	}
	return &c, nil
}

// SearchesFile mirrors searches.yaml.
type SearchesFile struct {
	Queries []string `yaml:"queries"`
}

// LoadSearches reads the search-query list that drives ingestion rounds.
func LoadSearches(dir string) (*SearchesFile, error) {
	var s SearchesFile
	if err := loadYAML(filepath.Join(dir, "searches.yaml"), &s); err != nil {
		return nil, err
	}
	if len(s.Queries) == 0 {
		return nil, fmt.Errorf("search query list is empty")
	}
	return &s, nil
}

// Codes returns the allowed country-code set.
func (c *CountriesFile) Codes() []string {
	codes := make([]string, 0, len(c.Countries))
	for _, country := range c.Countries {
		codes = append(codes, country.Code)
	}
	return codes
}

func loadYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
