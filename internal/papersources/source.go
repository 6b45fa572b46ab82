// Package papersources defines the abstraction over academic paper
// sources and shared client plumbing (rate limiting, retrying HTTP).
//
// Each backing database (CNKI, Google Scholar via SerpAPI, arXiv, and
// the local vector store) implements the PaperSource interface, which
// lets the search pipeline fan out over all enabled sources with a
// unified API.
package papersources

import (
	"context"
	"time"

	"github.com/Midirushi/paper-recommendation-system/internal/domain"
)

// SearchParams carries one source query derived from the extracted
// search intent. Sources interpret the keyword list in their own query
// syntax.
type SearchParams struct {
	// Keywords are the search terms, primary intent keywords first.
	Keywords []string

	// DateFrom filters papers published on or after this date.
	// Nil applies no lower bound.
	DateFrom *time.Time

	// MaxResults limits papers returned by one source query. Zero uses
	// the source's default.
	MaxResults int

	// DocTypes restricts document types (journal, conference, review,
	// preprint) for sources that support it.
	DocTypes []string
}

// SearchResult is what one source returned for a query.
type SearchResult struct {
	// Candidates are the matching papers. A candidate may carry the
	// source's own relevance estimate in SourceRelevance.
	Candidates []domain.Candidate

	// TotalFound is the source's total match count, which may be an
	// estimate and exceed len(Candidates).
	TotalFound int

	// Source identifies which paper source produced the result.
	Source domain.Source

	// Elapsed is the query duration including parsing.
	Elapsed time.Duration
}

// PaperSource is implemented by every searchable paper source.
type PaperSource interface {
	// Search queries the source. Implementations respect context
	// cancellation, apply their own rate limiting, and convert
	// source-specific records to domain papers with a populated
	// canonical ID.
	Search(ctx context.Context, params SearchParams) (*SearchResult, error)

	// Source returns the source identifier used for attribution and
	// routing.
	Source() domain.Source

	// Name returns a human-readable source name for logs and metrics.
	Name() string

	// IsEnabled reports whether the source participates in searches.
	// A source may be disabled by configuration or a missing API key.
	IsEnabled() bool
}
