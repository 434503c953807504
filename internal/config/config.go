// Package config loads and validates runtime configuration at startup.
// Fail-fast: if a required variable or config file is missing or corrupt,
// the process refuses to start.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration for the ingestion service.
type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string

	ConfigDir string // directory holding taxonomy/skills/countries files

	FeedBaseURL  string
	FeedAppID    string
	FeedAppKey   string
	FeedPlatform string // platform label recorded as sourcePlatform

	ScrapeIntervalHours int
	MaxJobsPerSearch    int

	FuzzyMatchThreshold  int // 0–100
	MinDescriptionLength int
	DedupWindowDays      int

	StatusCheckIntervalDays int
	StatusCheckBatchSize    int
	StatusMaxConcurrent     int
	StatusHTTPTimeout       time.Duration
	RateLimitDelayMin       time.Duration
	RateLimitDelayMax       time.Duration

	JobRetentionDays int

	SlackWebhookURL string
}

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	cfg := &Config{
		Port:        envString("INGESTD_PORT", "8083"),
		DatabaseURL: dbURL,
		RedisURL:    redisURL,

		ConfigDir: envString("CONFIG_DIR", "config"),

		FeedBaseURL:  envString("FEED_BASE_URL", "https://api.adzuna.com/v1/api/jobs"),
		FeedAppID:    os.Getenv("FEED_APP_ID"),
		FeedAppKey:   os.Getenv("FEED_APP_KEY"),
		FeedPlatform: envString("FEED_PLATFORM", "Adzuna"),

		SlackWebhookURL: os.Getenv("NOTIFICATION_SLACK_WEBHOOK"),
	}

	var err error
	if cfg.ScrapeIntervalHours, err = envPositiveInt("SCRAPE_INTERVAL_HOURS", 6); err != nil {
		return nil, err
	}
	if cfg.MaxJobsPerSearch, err = envPositiveInt("MAX_JOBS_PER_SEARCH", 50); err != nil {
		return nil, err
	}
	if cfg.FuzzyMatchThreshold, err = envPositiveInt("FUZZY_MATCH_THRESHOLD", 85); err != nil {
		return nil, err
	}
	if cfg.FuzzyMatchThreshold > 100 {
		return nil, fmt.Errorf("FUZZY_MATCH_THRESHOLD must be ≤ 100, got %d", cfg.FuzzyMatchThreshold)
	}
	if cfg.MinDescriptionLength, err = envPositiveInt("MIN_DESCRIPTION_LENGTH", 50); err != nil {
		return nil, err
	}
	if cfg.DedupWindowDays, err = envPositiveInt("DEDUP_WINDOW_DAYS", 90); err != nil {
		return nil, err
	}
	if cfg.StatusCheckIntervalDays, err = envPositiveInt("STATUS_CHECK_INTERVAL_DAYS", 7); err != nil {
		return nil, err
	}
	if cfg.StatusCheckBatchSize, err = envPositiveInt("STATUS_CHECK_BATCH_SIZE", 50); err != nil {
		return nil, err
	}
	if cfg.StatusMaxConcurrent, err = envPositiveInt("MAX_CONCURRENT_CHECKS", 5); err != nil {
		return nil, err
	}
	if cfg.JobRetentionDays, err = envPositiveInt("JOB_RETENTION_DAYS", 30); err != nil {
		return nil, err
	}

	timeoutSec, err := envPositiveInt("HTTP_TIMEOUT_SECONDS", 10)
	if err != nil {
		return nil, err
	}
	cfg.StatusHTTPTimeout = time.Duration(timeoutSec) * time.Second

	minMs, err := envPositiveInt("RATE_LIMIT_DELAY_MIN_MS", 1000)
	if err != nil {
		return nil, err
	}
	maxMs, err := envPositiveInt("RATE_LIMIT_DELAY_MAX_MS", 3000)
	if err != nil {
		return nil, err
	}
	if minMs > maxMs {
		return nil, fmt.Errorf("RATE_LIMIT_DELAY_MIN_MS (%d) > RATE_LIMIT_DELAY_MAX_MS (%d)", minMs, maxMs)
	}
	cfg.RateLimitDelayMin = time.Duration(minMs) * time.Millisecond
	cfg.RateLimitDelayMax = time.Duration(maxMs) * time.Millisecond

	return cfg, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envPositiveInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, s)
	}
	return v, nil
}
