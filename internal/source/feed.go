// Package source produces raw postings from external job feeds.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"jobradar/internal/model"
)

const (
	feedPageSize = 50
	feedTimeout  = 15 * time.Second
)

// FeedClient pulls postings from an Adzuna-compatible search API. If AppID
// or AppKey is empty, Fetch returns (nil, nil) gracefully and the pipeline
// skips the round with a warning.
type FeedClient struct {
	baseURL  string
	appID    string
	appKey   string
	platform string
	maxJobs  int
	client   *http.Client
	logger   *slog.Logger
}

// NewFeedClient constructs a client with a shared HTTP client. platform is
// the label stamped into each posting's sourcePlatform.
func NewFeedClient(baseURL, appID, appKey, platform string, maxJobs int, logger *slog.Logger) *FeedClient {
	return &FeedClient{
		baseURL:  baseURL,
		appID:    appID,
		appKey:   appKey,
		platform: platform,
		maxJobs:  maxJobs,
		client:   &http.Client{Timeout: feedTimeout},
		logger:   logger,
	}
}

// feedResponse mirrors the top-level feed JSON response.
type feedResponse struct {
	Results []feedResult `json:"results"`
	Count   int          `json:"count"`
}

// feedResult mirrors a single feed listing.
type feedResult struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Company     struct {
		DisplayName string `json:"display_name"`
	} `json:"company"`
	Location struct {
		DisplayName string `json:"display_name"`
	} `json:"location"`
	SalaryMin   float64 `json:"salary_min"`
	SalaryMax   float64 `json:"salary_max"`
	RedirectURL string  `json:"redirect_url"`
	Created     string  `json:"created"`
}

// Fetch retrieves postings for a search query in a feed market, paging until
// the per-search cap or the last page. Returns nil without error when
// credentials are missing.
func (f *FeedClient) Fetch(ctx context.Context, query, market string) ([]model.RawPosting, error) {
	if f.appID == "" || f.appKey == "" {
		f.logger.Warn("feed credentials not set, skipping fetch", "query", query, "market", market)
		return nil, nil
	}

	var postings []model.RawPosting
	maxPages := (f.maxJobs + feedPageSize - 1) / feedPageSize

	for page := 1; page <= maxPages; page++ {
		batch, err := f.fetchPage(ctx, query, market, page)
		if err != nil {
			return postings, fmt.Errorf("page %d: %w", page, err)
		}
		if len(batch) == 0 {
			break
		}
		postings = append(postings, batch...)
		if len(postings) >= f.maxJobs {
			postings = postings[:f.maxJobs]
			break
		}
		if len(batch) < feedPageSize {
			break // last page
		}
	}

	return postings, nil
}

func (f *FeedClient) fetchPage(ctx context.Context, query, market string, page int) ([]model.RawPosting, error) {
	endpoint := fmt.Sprintf("%s/%s/search/%d", f.baseURL, market, page)

	params := url.Values{}
	params.Set("app_id", f.appID)
	params.Set("app_key", f.appKey)
	params.Set("results_per_page", strconv.Itoa(feedPageSize))
	params.Set("what", query)
	params.Set("content-type", "application/json")
	params.Set("sort_by", "date")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var apiResp feedResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}

	postings := make([]model.RawPosting, 0, len(apiResp.Results))
	for _, r := range apiResp.Results {
		p := model.RawPosting{
			Title:          r.Title,
			Company:        r.Company.DisplayName,
			Location:       r.Location.DisplayName,
			Description:    r.Description,
			SourceURL:      r.RedirectURL,
			SourcePlatform: f.platform,
		}
		if r.SalaryMin > 0 || r.SalaryMax > 0 {
			p.SalaryText = formatSalaryText(r.SalaryMin, r.SalaryMax)
		}
		if t, err := time.Parse(time.RFC3339, r.Created); err == nil {
			p.PostedDate = &t
		}
		postings = append(postings, p)
	}
	return postings, nil
}

// formatSalaryText renders a feed salary range with thousands separators so
// downstream range parsing recognizes it.
func formatSalaryText(min, max float64) string {
	switch {
	case min > 0 && max > 0:
		return fmt.Sprintf("$%s - $%s", groupThousands(min), groupThousands(max))
	case min > 0:
		return "$" + groupThousands(min)
	default:
		return "$" + groupThousands(max)
	}
}

func groupThousands(v float64) string {
	s := strconv.FormatFloat(v, 'f', 0, 64)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
