// Package scholar implements the Google Scholar paper source via the
// SerpAPI google_scholar engine.
package scholar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Midirushi/paper-recommendation-system/internal/domain"
	"github.com/Midirushi/paper-recommendation-system/internal/papersources"
)

const (
	// DefaultBaseURL is the SerpAPI endpoint.
	DefaultBaseURL = "https://serpapi.com"

	// DefaultRateLimit keeps within a typical SerpAPI plan.
	DefaultRateLimit = 1.0

	// DefaultBurstSize is the rate limiter burst.
	DefaultBurstSize = 2

	// DefaultTimeout bounds each request.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the per-query result cap. SerpAPI returns
	// at most 20 organic results per page.
	DefaultMaxResults = 20

	sourceName = "Google Scholar"
)

// yearRegex finds a publication year inside the summary line, e.g.
// "J Smith, W Zhang - Nature, 2023 - nature.com".
var yearRegex = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// Config holds Scholar client configuration.
type Config struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	RateLimit  float64
	BurstSize  int
	MaxResults int
	Enabled    bool
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
	if c.MaxResults == 0 || c.MaxResults > 20 {
		c.MaxResults = DefaultMaxResults
	}
}

// Client implements papersources.PaperSource for Google Scholar.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

var _ papersources.PaperSource = (*Client)(nil)

// New creates a Scholar client.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	return &Client{
		config: cfg,
		httpClient: papersources.NewHTTPClient(papersources.HTTPClientConfig{
			Timeout:   cfg.Timeout,
			RateLimit: cfg.RateLimit,
			BurstSize: cfg.BurstSize,
		}),
	}
}

// NewWithHTTPClient creates a client with a custom HTTP client for
// tests.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{config: cfg, httpClient: httpClient}
}

// Search queries the google_scholar engine.
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	start := time.Now()

	searchURL, err := c.buildSearchURL(params)
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	var searchResp searchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	candidates := make([]domain.Candidate, 0, len(searchResp.OrganicResults))
	for i := range searchResp.OrganicResults {
		if cand := resultToCandidate(&searchResp.OrganicResults[i]); cand != nil {
			candidates = append(candidates, *cand)
		}
	}

	return &papersources.SearchResult{
		Candidates: candidates,
		TotalFound: searchResp.SearchInformation.TotalResults,
		Source:     domain.SourceScholar,
		Elapsed:    time.Since(start),
	}, nil
}

// Source returns the source identifier.
func (c *Client) Source() domain.Source {
	return domain.SourceScholar
}

// Name returns the human-readable source name.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled reports whether the source is usable. An empty API key
// disables it regardless of configuration.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled && c.config.APIKey != ""
}

func (c *Client) buildSearchURL(params papersources.SearchParams) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}
	baseURL.Path = strings.TrimRight(baseURL.Path, "/") + "/search"

	maxResults := params.MaxResults
	if maxResults == 0 || maxResults > 20 {
		maxResults = c.config.MaxResults
	}

	query := url.Values{}
	query.Set("engine", "google_scholar")
	query.Set("q", strings.Join(params.Keywords, " "))
	query.Set("num", strconv.Itoa(maxResults))
	query.Set("api_key", c.config.APIKey)
	if params.DateFrom != nil {
		query.Set("as_ylo", strconv.Itoa(params.DateFrom.Year()))
	}

	baseURL.RawQuery = query.Encode()
	return baseURL.String(), nil
}

// resultToCandidate converts one organic result. Scholar gives only a
// summary line, so authors, journal, and year are parsed from it.
func resultToCandidate(result *organicResult) *domain.Candidate {
	title := strings.TrimSpace(result.Title)
	if title == "" {
		return nil
	}

	paper := domain.Paper{
		CanonicalID: domain.GenerateCanonicalID("", title),
		Title:       title,
		Abstract:    strings.TrimSpace(result.Snippet),
		Source:      domain.SourceScholar,
		SourceURL:   result.Link,
	}

	if result.InlineLinks != nil && result.InlineLinks.CitedBy != nil {
		paper.CitationCount = result.InlineLinks.CitedBy.Total
	}

	parseSummary(result.PublicationInfo.Summary, &paper)

	return &domain.Candidate{Paper: paper}
}

// parseSummary splits "A Author, B Author - Journal, 2023 - site.com"
// into authors, journal, and an approximate publication date.
func parseSummary(summary string, paper *domain.Paper) {
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return
	}

	parts := strings.Split(summary, " - ")

	for _, name := range strings.Split(parts[0], ",") {
		name = strings.TrimSpace(name)
		if name == "" || strings.Contains(name, ".com") {
			continue
		}
		paper.Authors = append(paper.Authors, domain.Author{Name: name})
	}

	if len(parts) > 1 {
		venue := parts[1]
		if idx := strings.LastIndex(venue, ","); idx >= 0 {
			paper.Journal = strings.TrimSpace(venue[:idx])
		} else if !yearRegex.MatchString(venue) {
			paper.Journal = strings.TrimSpace(venue)
		}

		if match := yearRegex.FindString(venue); match != "" {
			if year, err := strconv.Atoi(match); err == nil {
				date := time.Date(year, time.July, 1, 0, 0, 0, 0, time.UTC)
				paper.PublishDate = &date
			}
		}
	}
}
