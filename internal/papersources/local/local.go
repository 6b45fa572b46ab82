// Package local implements the paper source backed by the service's
// own store. Queries are embedded and answered by vector similarity
// over previously ingested papers, so earlier searches keep enriching
// later ones.
package local

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Midirushi/paper-recommendation-system/internal/domain"
	"github.com/Midirushi/paper-recommendation-system/internal/llm"
	"github.com/Midirushi/paper-recommendation-system/internal/papersources"
	"github.com/Midirushi/paper-recommendation-system/internal/vector"
)

// DefaultMaxResults is the per-query result cap.
const DefaultMaxResults = 50

const sourceName = "Local Store"

// Config holds local source configuration.
type Config struct {
	MaxResults int
	Enabled    bool
}

// Searcher implements papersources.PaperSource over the local store.
type Searcher struct {
	embedder   llm.Embedder
	engine     *vector.Engine
	maxResults int
	enabled    bool
}

var _ papersources.PaperSource = (*Searcher)(nil)

// New creates a local searcher.
func New(embedder llm.Embedder, engine *vector.Engine, cfg Config) *Searcher {
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	return &Searcher{
		embedder:   embedder,
		engine:     engine,
		maxResults: maxResults,
		enabled:    cfg.Enabled,
	}
}

// Search embeds the keywords and returns the nearest stored papers.
// The vector similarity becomes the candidate's source relevance.
func (s *Searcher) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	start := time.Now()

	text := strings.Join(params.Keywords, " ")
	if strings.TrimSpace(text) == "" {
		return &papersources.SearchResult{Source: domain.SourceLocal}, nil
	}

	embedding, err := s.embedder.EmbedText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	maxResults := params.MaxResults
	if maxResults == 0 || maxResults > s.maxResults {
		maxResults = s.maxResults
	}

	// The date bound goes into the store query so all k nearest hits
	// already satisfy it.
	filter := vector.NeighborFilter{PublishedFrom: params.DateFrom}
	similar, err := s.engine.Nearest(ctx, embedding, maxResults, filter)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	candidates := make([]domain.Candidate, 0, len(similar))
	for _, hit := range similar {
		similarity := hit.Similarity
		candidates = append(candidates, domain.Candidate{
			Paper:           hit.Paper,
			SourceRelevance: &similarity,
		})
	}

	return &papersources.SearchResult{
		Candidates: candidates,
		TotalFound: len(candidates),
		Source:     domain.SourceLocal,
		Elapsed:    time.Since(start),
	}, nil
}

// Source returns the source identifier.
func (s *Searcher) Source() domain.Source {
	return domain.SourceLocal
}

// Name returns the human-readable source name.
func (s *Searcher) Name() string {
	return sourceName
}

// IsEnabled reports whether the source is enabled.
func (s *Searcher) IsEnabled() bool {
	return s.enabled
}
