// Package search implements the query pipeline: intent planning,
// multi-source fan-out, deduplication, LLM ranking, and result caching.
package search

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/Midirushi/paper-recommendation-system/internal/domain"
	"github.com/Midirushi/paper-recommendation-system/internal/llm"
)

// MaxQueryLength is the longest accepted free-text query, in runes.
const MaxQueryLength = 2000

// Planner turns a free-text query into a structured search intent.
type Planner struct {
	oracle llm.Oracle
	logger zerolog.Logger
}

// NewPlanner creates a Planner.
func NewPlanner(oracle llm.Oracle, logger zerolog.Logger) *Planner {
	return &Planner{
		oracle: oracle,
		logger: logger.With().Str("component", "planner").Logger(),
	}
}

// Plan extracts a search intent from query. Extraction failures do not
// fail the search: the raw query becomes the only keyword and the
// intent is marked degraded.
func (p *Planner) Plan(ctx context.Context, query string) (*domain.SearchIntent, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.NewValidationError("query", "must not be empty")
	}
	if utf8.RuneCountInString(query) > MaxQueryLength {
		return nil, domain.NewValidationError("query", "must not exceed 2000 characters")
	}

	intent, err := p.oracle.ExtractIntent(ctx, query)
	if err != nil {
		p.logger.Warn().Err(err).Str("query", query).
			Msg("intent extraction failed, degrading to raw query")
		return &domain.SearchIntent{
			KeywordsPrimary: []string{query},
			TimeRange:       domain.TimeRangeRecent5Years,
			Degraded:        true,
		}, nil
	}

	return intent, nil
}

// DateFrom converts the intent's time range into a publication date
// lower bound, or nil for an unbounded range.
func DateFrom(intent *domain.SearchIntent, now time.Time) *time.Time {
	years := intent.TimeRange.Years()
	if years == 0 {
		return nil
	}
	from := now.AddDate(-years, 0, 0)
	return &from
}
