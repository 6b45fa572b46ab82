// Package arxiv implements the paper source backed by the arXiv
// query API.
package arxiv

import (
	"context"
	"encoding/xml"
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
	// DefaultBaseURL is the arXiv API base URL.
	DefaultBaseURL = "https://export.arxiv.org/api"

	// DefaultRateLimit respects arXiv's requested 3 requests per second.
	DefaultRateLimit = 3.0

	// DefaultBurstSize is the rate limiter burst.
	DefaultBurstSize = 3

	// DefaultTimeout bounds each request.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the per-query result cap.
	DefaultMaxResults = 50

	sourceName = "arXiv"
)

// arxivIDRegex extracts the arXiv ID from an abs URL, dropping the
// version suffix.
var arxivIDRegex = regexp.MustCompile(`arxiv\.org/abs/(.+?)(?:v\d+)?$`)

// Config holds arXiv client configuration.
type Config struct {
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

// Client implements papersources.PaperSource for arXiv.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

var _ papersources.PaperSource = (*Client)(nil)

// New creates an arXiv client.
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

// NewWithHTTPClient creates a client with a custom HTTP client, used
// in tests against mock servers.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{config: cfg, httpClient: httpClient}
}

// Search queries arXiv, newest submissions first.
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

	var feed Feed
	if err := xml.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	candidates := make([]domain.Candidate, 0, len(feed.Entries))
	for i := range feed.Entries {
		if paper := entryToPaper(&feed.Entries[i]); paper != nil {
			candidates = append(candidates, domain.Candidate{Paper: *paper})
		}
	}

	return &papersources.SearchResult{
		Candidates: candidates,
		TotalFound: feed.TotalResults,
		Source:     domain.SourceArXiv,
		Elapsed:    time.Since(start),
	}, nil
}

// Source returns the source identifier.
func (c *Client) Source() domain.Source {
	return domain.SourceArXiv
}

// Name returns the human-readable source name.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled reports whether the source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// buildSearchURL constructs the query URL. Keywords are OR-combined
// over all fields and the optional date bound becomes a submittedDate
// filter.
func (c *Client) buildSearchURL(params papersources.SearchParams) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}
	baseURL.Path = strings.TrimRight(baseURL.Path, "/") + "/query"

	terms := make([]string, 0, len(params.Keywords))
	for _, kw := range params.Keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		terms = append(terms, `all:"`+kw+`"`)
	}
	searchQuery := strings.Join(terms, " OR ")

	if params.DateFrom != nil {
		dateFilter := fmt.Sprintf("submittedDate:[%s0000 TO *]", params.DateFrom.Format("20060102"))
		searchQuery = "(" + searchQuery + ") AND " + dateFilter
	}

	maxResults := params.MaxResults
	if maxResults == 0 {
		maxResults = c.config.MaxResults
	}

	query := url.Values{}
	query.Set("search_query", searchQuery)
	query.Set("max_results", strconv.Itoa(maxResults))
	query.Set("sortBy", "submittedDate")
	query.Set("sortOrder", "descending")

	baseURL.RawQuery = query.Encode()
	return baseURL.String(), nil
}

// entryToPaper converts an Atom entry to a domain paper.
func entryToPaper(entry *Entry) *domain.Paper {
	if entry == nil {
		return nil
	}

	arxivID := extractArXivID(entry.ID)
	if arxivID == "" {
		return nil
	}

	title := normalizeWhitespace(entry.Title)
	if title == "" {
		return nil
	}
	doi := strings.TrimSpace(entry.DOI)

	var pubDate *time.Time
	if entry.Published != "" {
		if t, err := time.Parse(time.RFC3339, entry.Published); err == nil {
			pubDate = &t
		}
	}

	authors := make([]domain.Author, 0, len(entry.Authors))
	for _, a := range entry.Authors {
		name := strings.TrimSpace(a.Name)
		if name == "" {
			continue
		}
		authors = append(authors, domain.Author{
			Name:        name,
			Affiliation: strings.TrimSpace(a.Affiliation),
		})
	}

	// Subject categories double as keywords.
	keywords := make([]string, 0, len(entry.Categories))
	for _, cat := range entry.Categories {
		if cat.Term != "" {
			keywords = append(keywords, cat.Term)
		}
	}

	sourceURL := ""
	for _, link := range entry.Links {
		if link.Rel == "alternate" {
			sourceURL = link.Href
			break
		}
	}
	if sourceURL == "" {
		sourceURL = "https://arxiv.org/abs/" + arxivID
	}

	return &domain.Paper{
		CanonicalID: domain.GenerateCanonicalID(doi, title),
		Title:       title,
		Abstract:    normalizeWhitespace(entry.Summary),
		Authors:     authors,
		Journal:     strings.TrimSpace(entry.JournalRef),
		PublishDate: pubDate,
		Source:      domain.SourceArXiv,
		DOI:         doi,
		SourceURL:   sourceURL,
		Keywords:    keywords,
	}
}

// extractArXivID turns "http://arxiv.org/abs/2301.12345v1" into
// "2301.12345".
func extractArXivID(entryURL string) string {
	matches := arxivIDRegex.FindStringSubmatch(entryURL)
	if len(matches) < 2 {
		return ""
	}
	return matches[1]
}

// normalizeWhitespace trims and collapses runs of whitespace, which
// arXiv titles and abstracts are full of.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
