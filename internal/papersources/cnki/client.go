// Package cnki implements the paper source backed by the CNKI open
// API, the primary source for Chinese-language literature.
package cnki

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Midirushi/paper-recommendation-system/internal/domain"
	"github.com/Midirushi/paper-recommendation-system/internal/papersources"
)

const (
	// DefaultBaseURL is the CNKI open API base URL.
	DefaultBaseURL = "https://api.cnki.net/v1"

	// DefaultRateLimit is the sustained request rate.
	DefaultRateLimit = 2.0

	// DefaultBurstSize is the rate limiter burst.
	DefaultBurstSize = 2

	// DefaultTimeout bounds each request.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the per-query result cap.
	DefaultMaxResults = 50

	sourceName = "CNKI"
)

// Config holds CNKI client configuration.
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
	if c.MaxResults == 0 {
		c.MaxResults = DefaultMaxResults
	}
}

// Client implements papersources.PaperSource for CNKI.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

var _ papersources.PaperSource = (*Client)(nil)

// New creates a CNKI client.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	return &Client{
		config: cfg,
		httpClient: papersources.NewHTTPClient(papersources.HTTPClientConfig{
			Timeout:      cfg.Timeout,
			RateLimit:    cfg.RateLimit,
			BurstSize:    cfg.BurstSize,
			APIKey:       cfg.APIKey,
			APIKeyHeader: "X-Api-Key",
		}),
	}
}

// NewWithHTTPClient creates a client with a custom HTTP client for
// tests.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{config: cfg, httpClient: httpClient}
}

// Search queries CNKI. Keywords pass through untranslated; CNKI
// handles Chinese terms natively.
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

	candidates := make([]domain.Candidate, 0, len(searchResp.Papers))
	for i := range searchResp.Papers {
		if cand := recordToCandidate(&searchResp.Papers[i]); cand != nil {
			candidates = append(candidates, *cand)
		}
	}

	return &papersources.SearchResult{
		Candidates: candidates,
		TotalFound: searchResp.Total,
		Source:     domain.SourceCNKI,
		Elapsed:    time.Since(start),
	}, nil
}

// Source returns the source identifier.
func (c *Client) Source() domain.Source {
	return domain.SourceCNKI
}

// Name returns the human-readable source name.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled reports whether the source is usable. An empty API key
// disables it.
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
	if maxResults == 0 {
		maxResults = c.config.MaxResults
	}

	query := url.Values{}
	query.Set("q", strings.Join(params.Keywords, " "))
	query.Set("size", strconv.Itoa(maxResults))
	if params.DateFrom != nil {
		query.Set("date_from", params.DateFrom.Format("2006-01-02"))
	}
	if len(params.DocTypes) > 0 {
		query.Set("doc_types", strings.Join(params.DocTypes, ","))
	}

	baseURL.RawQuery = query.Encode()
	return baseURL.String(), nil
}

// recordToCandidate converts one CNKI record, carrying CNKI's own
// relevance estimate through to the candidate.
func recordToCandidate(record *paperRecord) *domain.Candidate {
	title := strings.TrimSpace(record.Title)
	if title == "" {
		return nil
	}

	doi := strings.TrimSpace(record.DOI)
	paper := domain.Paper{
		CanonicalID:   domain.GenerateCanonicalID(doi, title),
		Title:         title,
		Abstract:      strings.TrimSpace(record.Abstract),
		Journal:       strings.TrimSpace(record.Journal),
		Source:        domain.SourceCNKI,
		DOI:           doi,
		SourceURL:     record.URL,
		CitationCount: record.CitationCount,
		Keywords:      record.Keywords,
	}

	for _, a := range record.Authors {
		name := strings.TrimSpace(a.Name)
		if name == "" {
			continue
		}
		paper.Authors = append(paper.Authors, domain.Author{
			Name:        name,
			Affiliation: strings.TrimSpace(a.Affiliation),
		})
	}

	if record.PublishDate != "" {
		if t, err := time.Parse("2006-01-02", record.PublishDate); err == nil {
			paper.PublishDate = &t
		}
	}

	cand := &domain.Candidate{Paper: paper}
	if record.Relevance != nil {
		cand.SourceRelevance = record.Relevance
	}
	return cand
}
