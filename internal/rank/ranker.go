// Package rank scores deduplicated candidates against the user's query
// and keeps the best of them. Scoring runs in bounded concurrent
// batches against the LLM oracle, and a failed batch degrades the
// result instead of failing the whole search.
package rank

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Midirushi/paper-recommendation-system/internal/config"
	"github.com/Midirushi/paper-recommendation-system/internal/domain"
	"github.com/Midirushi/paper-recommendation-system/internal/llm"
	"github.com/Midirushi/paper-recommendation-system/internal/observability"
)

// Default tuning, applied when the configuration leaves a value unset.
const (
	DefaultBatchSize   = 50
	DefaultConcurrency = 2
	DefaultMinScore    = 6.0
	DefaultTopN        = 20
)

// Ranker scores and filters candidate sets.
type Ranker struct {
	oracle      llm.Oracle
	batchSize   int
	concurrency int
	minScore    float64
	topN        int
	logger      zerolog.Logger
	metrics     *observability.Metrics
}

// NewRanker creates a Ranker from search tuning configuration.
func NewRanker(oracle llm.Oracle, cfg config.SearchConfig, logger zerolog.Logger, metrics *observability.Metrics) *Ranker {
	batchSize := cfg.RankBatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	concurrency := cfg.RankConcurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	minScore := cfg.MinScore
	if minScore <= 0 {
		minScore = DefaultMinScore
	}
	topN := cfg.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}

	return &Ranker{
		oracle:      oracle,
		batchSize:   batchSize,
		concurrency: concurrency,
		minScore:    minScore,
		topN:        topN,
		logger:      logger.With().Str("component", "ranker").Logger(),
		metrics:     metrics,
	}
}

// batchResult carries the scores of one batch back to the merge step.
type batchResult struct {
	offset int
	scores []llm.BatchScore
	err    error
}

// Rank scores every candidate in the set against the query and returns
// a new set holding the top results above the relevance cutoff, ordered
// by score, then citation count, then publication date.
//
// Batches are scored concurrently with a bounded number of in-flight
// oracle calls. A failed batch drops its candidates and marks the
// result degraded; only when every batch fails does Rank return an
// error.
func (r *Ranker) Rank(ctx context.Context, query string, set *domain.CandidateSet) (*domain.CandidateSet, error) {
	if set == nil || len(set.Candidates) == 0 {
		return &domain.CandidateSet{
			SourceCounts: cloneCounts(set),
			CreatedAt:    time.Now().UTC(),
		}, nil
	}

	batches := r.split(set.Candidates)

	results := make([]batchResult, len(batches))
	sem := make(chan struct{}, r.concurrency)
	var wg sync.WaitGroup

	for i, batch := range batches {
		wg.Add(1)
		go func(i int, offset int, candidates []domain.Candidate) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			scores, err := r.oracle.ScoreBatch(ctx, query, summarize(candidates))
			results[i] = batchResult{offset: offset, scores: scores, err: err}
		}(i, batch.offset, batch.candidates)
	}
	wg.Wait()

	scored := make([]domain.Candidate, 0, len(set.Candidates))
	failedBatches := 0
	for i, res := range results {
		if res.err != nil {
			failedBatches++
			r.metrics.RecordRankBatch("error")
			r.logger.Warn().Err(res.err).
				Int("batch", i).
				Int("batch_size", len(batches[i].candidates)).
				Msg("scoring batch failed, dropping its candidates")
			continue
		}
		r.metrics.RecordRankBatch("ok")

		for _, score := range res.scores {
			cand := batches[i].candidates[score.Index]
			s := score.Score
			cand.RelevanceScore = &s
			cand.Reason = score.Reason
			scored = append(scored, cand)
		}
	}

	if failedBatches == len(batches) {
		return nil, fmt.Errorf("all %d scoring batches failed: %w", len(batches), domain.ErrRankingBatch)
	}

	kept := make([]domain.Candidate, 0, len(scored))
	for _, cand := range scored {
		if *cand.RelevanceScore >= r.minScore {
			kept = append(kept, cand)
		}
	}
	r.metrics.RecordCandidatesFiltered(len(scored) - len(kept))

	sortRanked(kept)
	if len(kept) > r.topN {
		kept = kept[:r.topN]
	}

	return &domain.CandidateSet{
		Candidates:   kept,
		SourceCounts: cloneCounts(set),
		TotalFound:   set.TotalFound,
		Degraded:     set.Degraded || failedBatches > 0,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// batch is one contiguous slice of the candidate list.
type batch struct {
	offset     int
	candidates []domain.Candidate
}

func (r *Ranker) split(candidates []domain.Candidate) []batch {
	batches := make([]batch, 0, (len(candidates)+r.batchSize-1)/r.batchSize)
	for start := 0; start < len(candidates); start += r.batchSize {
		end := start + r.batchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		batches = append(batches, batch{offset: start, candidates: candidates[start:end]})
	}
	return batches
}

// summarize builds the condensed paper views sent to the oracle.
// Indices are batch-local so the oracle's response maps back directly.
func summarize(candidates []domain.Candidate) []llm.PaperSummary {
	out := make([]llm.PaperSummary, len(candidates))
	for i, cand := range candidates {
		year := 0
		if cand.Paper.PublishDate != nil {
			year = cand.Paper.PublishDate.Year()
		}
		out[i] = llm.PaperSummary{
			Index:         i,
			Title:         cand.Paper.Title,
			Abstract:      cand.Paper.Abstract,
			Journal:       cand.Paper.Journal,
			Year:          year,
			CitationCount: cand.Paper.CitationCount,
			Keywords:      cand.Paper.Keywords,
		}
	}
	return out
}

// sortRanked orders candidates by relevance score, then citation
// count, then publication date, all descending.
func sortRanked(candidates []domain.Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		si, sj := *candidates[i].RelevanceScore, *candidates[j].RelevanceScore
		if si != sj {
			return si > sj
		}
		if candidates[i].Paper.CitationCount != candidates[j].Paper.CitationCount {
			return candidates[i].Paper.CitationCount > candidates[j].Paper.CitationCount
		}
		di, dj := candidates[i].Paper.PublishDate, candidates[j].Paper.PublishDate
		switch {
		case di == nil:
			return false
		case dj == nil:
			return true
		default:
			return di.After(*dj)
		}
	})
}

func cloneCounts(set *domain.CandidateSet) map[domain.Source]int {
	if set == nil || set.SourceCounts == nil {
		return nil
	}
	out := make(map[domain.Source]int, len(set.SourceCounts))
	for k, v := range set.SourceCounts {
		out[k] = v
	}
	return out
}
