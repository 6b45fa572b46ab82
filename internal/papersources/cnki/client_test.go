package cnki

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Midirushi/paper-recommendation-system/internal/domain"
	"github.com/Midirushi/paper-recommendation-system/internal/papersources"
)

const sampleResponse = `{
  "total": 312,
  "papers": [
    {
      "title": "深度学习在医学影像中的应用",
      "abstract": "综述了深度学习方法。",
      "authors": [{"name": "张伟", "affiliation": "清华大学"}, {"name": ""}],
      "journal": "中国图象图形学报",
      "publish_date": "2024-03-10",
      "doi": "10.1000/CNKI.2024.001",
      "url": "https://example.cn/paper/1",
      "citation_count": 42,
      "keywords": ["深度学习", "医学影像"],
      "relevance": 0.87
    },
    {
      "title": "",
      "abstract": "no title, dropped"
    },
    {
      "title": "Plain record",
      "publish_date": "not-a-date"
    }
  ]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		RateLimit:    100,
		BurstSize:    10,
		APIKey:       "cnki-key",
		APIKeyHeader: "X-Api-Key",
	})
	return NewWithHTTPClient(Config{APIKey: "cnki-key", BaseURL: server.URL, Enabled: true}, httpClient)
}

func TestSearch(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "cnki-key", r.Header.Get("X-Api-Key"))
		q := r.URL.Query()
		assert.Equal(t, "深度学习 医学影像", q.Get("q"))
		assert.Equal(t, "20", q.Get("size"))
		assert.Equal(t, "2023-06-01", q.Get("date_from"))
		assert.Equal(t, "journal,conference", q.Get("doc_types"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleResponse))
	})

	from := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	result, err := c.Search(context.Background(), papersources.SearchParams{
		Keywords:   []string{"深度学习", "医学影像"},
		DateFrom:   &from,
		MaxResults: 20,
		DocTypes:   []string{"journal", "conference"},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.SourceCNKI, result.Source)
	assert.Equal(t, 312, result.TotalFound)
	require.Len(t, result.Candidates, 2)

	first := result.Candidates[0]
	assert.Equal(t, "doi:10.1000/cnki.2024.001", first.Paper.CanonicalID)
	assert.Equal(t, "深度学习在医学影像中的应用", first.Paper.Title)
	assert.Equal(t, "中国图象图形学报", first.Paper.Journal)
	assert.Equal(t, 42, first.Paper.CitationCount)
	require.Len(t, first.Paper.Authors, 1)
	assert.Equal(t, "张伟", first.Paper.Authors[0].Name)
	assert.Equal(t, "清华大学", first.Paper.Authors[0].Affiliation)
	require.NotNil(t, first.Paper.PublishDate)
	assert.Equal(t, "2024-03-10", first.Paper.PublishDate.Format("2006-01-02"))
	require.NotNil(t, first.SourceRelevance)
	assert.InDelta(t, 0.87, *first.SourceRelevance, 1e-9)

	// Unparseable dates are dropped, not fatal.
	second := result.Candidates[1]
	assert.Equal(t, "title:plain record", second.Paper.CanonicalID)
	assert.Nil(t, second.Paper.PublishDate)
	assert.Nil(t, second.SourceRelevance)
}

func TestSearch_APIError(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"invalid key"}`))
	})

	_, err := c.Search(context.Background(), papersources.SearchParams{Keywords: []string{"x"}})
	require.Error(t, err)

	var apiErr *domain.ExternalAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
}

func TestIsEnabled_RequiresAPIKey(t *testing.T) {
	t.Parallel()

	assert.True(t, New(Config{APIKey: "k", Enabled: true}).IsEnabled())
	assert.False(t, New(Config{Enabled: true}).IsEnabled())
	assert.False(t, New(Config{APIKey: "k"}).IsEnabled())
}
