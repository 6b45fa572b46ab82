package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Midirushi/paper-recommendation-system/internal/config"
	"github.com/Midirushi/paper-recommendation-system/internal/domain"
	"github.com/Midirushi/paper-recommendation-system/internal/observability"
	"github.com/Midirushi/paper-recommendation-system/internal/papersources"
)

// Coordinator fans a planned search out to every enabled paper source
// in parallel and merges the answers. A slow or failing source degrades
// the result instead of failing it; only all sources failing does.
type Coordinator struct {
	registry      *papersources.Registry
	sourceTimeout time.Duration
	maxResults    int
	logger        zerolog.Logger
	metrics       *observability.Metrics
	now           func() time.Time
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(registry *papersources.Registry, cfg config.SearchConfig, logger zerolog.Logger, metrics *observability.Metrics) *Coordinator {
	sourceTimeout := cfg.SourceTimeout
	if sourceTimeout <= 0 {
		sourceTimeout = 5 * time.Second
	}
	return &Coordinator{
		registry:      registry,
		sourceTimeout: sourceTimeout,
		maxResults:    cfg.MaxCandidates,
		logger:        logger.With().Str("component", "coordinator").Logger(),
		metrics:       metrics,
		now:           time.Now,
	}
}

// sourceOutcome carries one source's answer back to the collector.
type sourceOutcome struct {
	source domain.Source
	result *papersources.SearchResult
	err    error
}

// FanOut queries every enabled source concurrently and merges the
// candidates into one set. Each source gets its own timeout inside the
// caller's deadline.
func (c *Coordinator) FanOut(ctx context.Context, intent *domain.SearchIntent) (*domain.CandidateSet, error) {
	sources := c.registry.EnabledSources()
	if len(sources) == 0 {
		return nil, fmt.Errorf("no paper sources enabled")
	}

	results := make(chan sourceOutcome, len(sources))
	dateFrom := DateFrom(intent, c.now())

	for _, src := range sources {
		go func(src papersources.PaperSource) {
			srcCtx, cancel := context.WithTimeout(ctx, c.sourceTimeout)
			defer cancel()

			params := papersources.SearchParams{
				Keywords: keywordsFor(src.Source(), intent),
				DateFrom: dateFrom,
				DocTypes: intent.DocTypes,
			}

			result, err := src.Search(srcCtx, params)
			results <- sourceOutcome{source: src.Source(), result: result, err: err}
		}(src)
	}

	set := &domain.CandidateSet{
		SourceCounts: make(map[domain.Source]int, len(sources)),
		CreatedAt:    c.now(),
		Degraded:     intent.Degraded,
	}

	var failed int
	for range sources {
		outcome := <-results
		logger := observability.WithSourceContext(c.logger, string(outcome.source))

		if outcome.err != nil {
			failed++
			set.Degraded = true
			c.recordFailure(logger, outcome.source, outcome.err)
			continue
		}

		result := outcome.result
		set.Candidates = append(set.Candidates, result.Candidates...)
		set.SourceCounts[outcome.source] = len(result.Candidates)
		set.TotalFound += result.TotalFound
		c.metrics.RecordSourceSearch(string(outcome.source), "ok", len(result.Candidates), result.Elapsed.Seconds())

		logger.Debug().
			Int("candidates", len(result.Candidates)).
			Int("total_found", result.TotalFound).
			Dur("elapsed", result.Elapsed).
			Msg("source search completed")
	}

	if failed == len(sources) {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("all sources failed: %w", domain.ErrDeadlineExceeded)
		}
		return nil, fmt.Errorf("all %d sources failed", len(sources))
	}

	return set, nil
}

func (c *Coordinator) recordFailure(logger zerolog.Logger, source domain.Source, err error) {
	status := "error"
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, domain.ErrSourceTimeout):
		status = "timeout"
	case errors.Is(err, domain.ErrRateLimited):
		status = "rate_limited"
		c.metrics.RecordSourceRateLimited(string(source))
	}

	c.metrics.RecordSourceSearch(string(source), status, 0, 0)
	logger.Warn().Err(err).Str("status", status).Msg("source search failed")
}

// keywordsFor picks the keyword set a source can use. CNKI indexes
// Chinese-language literature, so it gets the translated keywords when
// the query needed translation; everything else searches the primary
// and extended terms.
func keywordsFor(source domain.Source, intent *domain.SearchIntent) []string {
	if source == domain.SourceCNKI && len(intent.KeywordsTranslated) > 0 {
		return intent.KeywordsTranslated
	}

	keywords := make([]string, 0, len(intent.KeywordsPrimary)+len(intent.KeywordsExtended))
	keywords = append(keywords, intent.KeywordsPrimary...)
	keywords = append(keywords, intent.KeywordsExtended...)
	return keywords
}
