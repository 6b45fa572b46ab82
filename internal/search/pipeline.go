package search

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Midirushi/paper-recommendation-system/internal/cache"
	"github.com/Midirushi/paper-recommendation-system/internal/config"
	"github.com/Midirushi/paper-recommendation-system/internal/dedup"
	"github.com/Midirushi/paper-recommendation-system/internal/domain"
	"github.com/Midirushi/paper-recommendation-system/internal/observability"
	"github.com/Midirushi/paper-recommendation-system/internal/papersources"
	"github.com/Midirushi/paper-recommendation-system/internal/rank"
)

// SearchLogStore persists search logs for usage statistics.
type SearchLogStore interface {
	Append(ctx context.Context, log *domain.SearchLog) error
}

// ResultCache is the cache surface the pipeline needs.
type ResultCache interface {
	GetSearch(ctx context.Context, key string) (*domain.CandidateSet, bool)
	PutSearch(ctx context.Context, key string, set *domain.CandidateSet)
}

// PaperStore persists papers discovered by the fan-out, merged by
// canonical ID.
type PaperStore interface {
	BulkUpsert(ctx context.Context, papers []domain.Paper) (int, error)
}

// Service runs the full search pipeline: plan, fan out, deduplicate,
// rank, cache, and log.
type Service struct {
	planner        *Planner
	coordinator    *Coordinator
	registry       *papersources.Registry
	deduper        *dedup.Deduper
	ranker         *rank.Ranker
	cache          ResultCache
	papers         PaperStore
	logs           SearchLogStore
	globalDeadline time.Duration
	maxCandidates  int
	logger         zerolog.Logger
	metrics        *observability.Metrics
	now            func() time.Time
}

// NewService wires the pipeline together. papers and logs may be nil
// to disable paper ingestion and search logging.
func NewService(
	planner *Planner,
	coordinator *Coordinator,
	registry *papersources.Registry,
	deduper *dedup.Deduper,
	ranker *rank.Ranker,
	resultCache ResultCache,
	papers PaperStore,
	logs SearchLogStore,
	cfg config.SearchConfig,
	logger zerolog.Logger,
	metrics *observability.Metrics,
) *Service {
	globalDeadline := cfg.GlobalDeadline
	if globalDeadline <= 0 {
		globalDeadline = 15 * time.Second
	}
	return &Service{
		planner:        planner,
		coordinator:    coordinator,
		registry:       registry,
		deduper:        deduper,
		ranker:         ranker,
		cache:          resultCache,
		papers:         papers,
		logs:           logs,
		globalDeadline: globalDeadline,
		maxCandidates:  cfg.MaxCandidates,
		logger:         logger.With().Str("component", "search").Logger(),
		metrics:        metrics,
		now:            time.Now,
	}
}

// Search executes one search for userID. The returned candidate set is
// deduplicated, ranked, and trimmed to the configured result size.
func (s *Service) Search(ctx context.Context, userID, query string) (*domain.CandidateSet, error) {
	s.metrics.RecordSearchStarted()
	start := s.now()
	logger := observability.WithSearchContext(s.logger, uuid.NewString(), query)

	intent, err := s.planner.Plan(ctx, query)
	if err != nil {
		s.metrics.RecordSearchFailed(s.now().Sub(start).Seconds())
		return nil, err
	}

	key := cache.SearchKey(intent, s.registry.EnabledIDs())
	if cached, ok := s.cache.GetSearch(ctx, key); ok {
		logger.Info().Int("results", len(cached.Candidates)).Msg("search served from cache")
		s.appendLog(ctx, userID, query, intent, cached, true, s.now().Sub(start))
		s.metrics.RecordSearchCompleted(s.now().Sub(start).Seconds(), cached.Degraded)
		return cached, nil
	}

	searchCtx, cancel := context.WithTimeout(ctx, s.globalDeadline)
	defer cancel()

	set, err := s.coordinator.FanOut(searchCtx, intent)
	if err != nil {
		s.metrics.RecordSearchFailed(s.now().Sub(start).Seconds())
		logger.Error().Err(err).Msg("search failed")
		return nil, err
	}

	deduped, merges := s.deduper.Dedupe(set.Candidates)
	s.metrics.RecordDedupMerges(merges)
	set.Candidates = deduped
	if s.maxCandidates > 0 && len(set.Candidates) > s.maxCandidates {
		set.Candidates = set.Candidates[:s.maxCandidates]
	}

	// Every deduplicated paper is ingested, including ones the ranker
	// filters out later, so interactions and similarity queries can
	// reference them.
	s.persistPapers(context.WithoutCancel(ctx), set)

	ranked, err := s.ranker.Rank(searchCtx, query, set)
	if err != nil {
		s.metrics.RecordSearchFailed(s.now().Sub(start).Seconds())
		logger.Error().Err(err).Msg("ranking failed")
		return nil, err
	}

	// The cache write and search log must survive the request context.
	detached := context.WithoutCancel(ctx)
	s.cache.PutSearch(detached, key, ranked)
	s.appendLog(detached, userID, query, intent, ranked, false, s.now().Sub(start))

	elapsed := s.now().Sub(start)
	s.metrics.RecordSearchCompleted(elapsed.Seconds(), ranked.Degraded)
	logger.Info().
		Int("results", len(ranked.Candidates)).
		Int("merges", merges).
		Bool("degraded", ranked.Degraded).
		Dur("elapsed", elapsed).
		Msg("search completed")

	return ranked, nil
}

// persistPapers stores the deduplicated fan-out results. The write is
// best-effort; a search never fails because the store is down.
func (s *Service) persistPapers(ctx context.Context, set *domain.CandidateSet) {
	if s.papers == nil || len(set.Candidates) == 0 {
		return
	}

	batch := make([]domain.Paper, len(set.Candidates))
	for i := range set.Candidates {
		batch[i] = set.Candidates[i].Paper
	}

	written, err := s.papers.BulkUpsert(ctx, batch)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to store search results")
		return
	}

	// BulkUpsert assigns canonical and row IDs on the way in; carry
	// them onto the candidates so responses and search logs reference
	// stored rows.
	for i := range set.Candidates {
		set.Candidates[i].Paper.ID = batch[i].ID
		set.Candidates[i].Paper.CanonicalID = batch[i].CanonicalID
	}
	s.logger.Debug().Int("written", written).Msg("stored search results")
}

// appendLog records the search best-effort. A failed append is logged
// and swallowed.
func (s *Service) appendLog(ctx context.Context, userID, query string, intent *domain.SearchIntent, set *domain.CandidateSet, cacheHit bool, elapsed time.Duration) {
	if s.logs == nil {
		return
	}

	ids := make([]uuid.UUID, 0, len(set.Candidates))
	for i := range set.Candidates {
		if set.Candidates[i].Paper.ID != uuid.Nil {
			ids = append(ids, set.Candidates[i].Paper.ID)
		}
	}

	entry := &domain.SearchLog{
		ID:          uuid.New(),
		UserID:      userID,
		Query:       query,
		Intent:      *intent,
		ResultCount: len(set.Candidates),
		ResultIDs:   ids,
		CacheHit:    cacheHit,
		Elapsed:     elapsed,
		CreatedAt:   s.now(),
	}

	if err := s.logs.Append(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Msg("failed to append search log")
	}
}
