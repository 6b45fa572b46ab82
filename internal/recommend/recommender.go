package recommend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Midirushi/paper-recommendation-system/internal/cache"
	"github.com/Midirushi/paper-recommendation-system/internal/config"
	"github.com/Midirushi/paper-recommendation-system/internal/domain"
	"github.com/Midirushi/paper-recommendation-system/internal/observability"
)

// Recommendation modes reported to callers and metrics.
const (
	ModePersonalized = "personalized"
	ModeTrending     = "trending"
	ModeCached       = "cached"
)

// PaperLister provides the candidate pools recommendations draw from.
type PaperLister interface {
	// ListRecent returns papers published since the cutoff, newest first.
	ListRecent(ctx context.Context, since time.Time, limit int) ([]domain.Paper, error)

	// Trending returns papers with the most interactions since the
	// cutoff, most interacted first.
	Trending(ctx context.Context, since time.Time, limit int) ([]domain.Paper, error)
}

// SeenLister reports which papers a user has already interacted with.
type SeenLister interface {
	SeenPaperIDs(ctx context.Context, userID string) (map[uuid.UUID]struct{}, error)
}

// RecommendCache caches recommendation lists per user.
type RecommendCache interface {
	GetRecommend(ctx context.Context, key string) ([]domain.Candidate, bool)
	PutRecommend(ctx context.Context, key string, recs []domain.Candidate)
}

// Recommender serves per-user recommendation lists.
type Recommender struct {
	profiles        ProfileStore
	papers          PaperLister
	seen            SeenLister
	cache           RecommendCache
	scorer          *Scorer
	candidateWindow time.Duration
	trendingWindow  time.Duration
	maxResults      int
	logger          zerolog.Logger
	metrics         *observability.Metrics
}

// NewRecommender creates a Recommender. cache and seen may be nil.
func NewRecommender(profiles ProfileStore, papers PaperLister, seen SeenLister, cache RecommendCache, cfg config.RecommendConfig, logger zerolog.Logger, metrics *observability.Metrics) *Recommender {
	candidateWindow := cfg.CandidateWindow
	if candidateWindow <= 0 {
		candidateWindow = 90 * 24 * time.Hour
	}
	trendingWindow := cfg.TrendingWindow
	if trendingWindow <= 0 {
		trendingWindow = 7 * 24 * time.Hour
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	return &Recommender{
		profiles:        profiles,
		papers:          papers,
		seen:            seen,
		cache:           cache,
		scorer:          NewScorer(cfg),
		candidateWindow: candidateWindow,
		trendingWindow:  trendingWindow,
		maxResults:      maxResults,
		logger:          logger.With().Str("component", "recommender").Logger(),
		metrics:         metrics,
	}
}

// Recommend returns a recommendation list for the user together with
// the mode that produced it. Users without a profile, or with an empty
// one, get the trending fallback. Papers the user has already
// interacted with are excluded from personalized lists.
func (r *Recommender) Recommend(ctx context.Context, userID string) ([]domain.Candidate, string, error) {
	if r.cache != nil {
		if recs, ok := r.cache.GetRecommend(ctx, cache.RecommendKey(userID)); ok {
			r.metrics.RecordRecommendationServed(ModeCached)
			return recs, ModeCached, nil
		}
	}

	profile, err := r.profiles.Get(ctx, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, "", fmt.Errorf("loading profile for %s: %w", userID, err)
	}

	if profile.IsEmpty() {
		recs, err := r.Trending(ctx)
		if err != nil {
			return nil, "", err
		}
		r.metrics.RecordRecommendationServed(ModeTrending)
		return recs, ModeTrending, nil
	}

	recs, err := r.personalized(ctx, profile)
	if err != nil {
		return nil, "", err
	}

	// A profile that matches nothing in the candidate pool falls back
	// the same way a missing profile does.
	if len(recs) == 0 {
		recs, err := r.Trending(ctx)
		if err != nil {
			return nil, "", err
		}
		r.metrics.RecordRecommendationServed(ModeTrending)
		return recs, ModeTrending, nil
	}

	if r.cache != nil {
		r.cache.PutRecommend(ctx, cache.RecommendKey(userID), recs)
	}
	r.metrics.RecordRecommendationServed(ModePersonalized)
	return recs, ModePersonalized, nil
}

// Trending returns the interaction-weighted trending list used both as
// the cold-start fallback and for the public trending endpoint.
func (r *Recommender) Trending(ctx context.Context) ([]domain.Candidate, error) {
	since := time.Now().UTC().Add(-r.trendingWindow)
	papers, err := r.papers.Trending(ctx, since, r.maxResults)
	if err != nil {
		return nil, fmt.Errorf("loading trending papers: %w", err)
	}

	recs := make([]domain.Candidate, len(papers))
	for i, paper := range papers {
		recs[i] = domain.Candidate{
			Paper:  paper,
			Reason: "trending this week",
		}
	}
	return recs, nil
}

func (r *Recommender) personalized(ctx context.Context, profile *domain.UserProfile) ([]domain.Candidate, error) {
	now := time.Now().UTC()
	since := now.Add(-r.candidateWindow)

	// Score a wider pool than we return so filtering has room.
	pool := r.maxResults * 10
	papers, err := r.papers.ListRecent(ctx, since, pool)
	if err != nil {
		return nil, fmt.Errorf("loading candidate papers: %w", err)
	}

	var seen map[uuid.UUID]struct{}
	if r.seen != nil {
		seen, err = r.seen.SeenPaperIDs(ctx, profile.UserID)
		if err != nil {
			// Exclusion is best effort; a failure only risks repeats.
			r.logger.Warn().Err(err).Str("user_id", profile.UserID).Msg("failed to load seen papers")
			seen = nil
		}
	}

	recs := make([]domain.Candidate, 0, len(papers))
	for i := range papers {
		paper := papers[i]
		if _, ok := seen[paper.ID]; ok {
			continue
		}
		score, reason := r.scorer.Score(profile, &paper, now)
		if score <= 0 {
			continue
		}
		s := score
		recs = append(recs, domain.Candidate{
			Paper:          paper,
			RelevanceScore: &s,
			Reason:         reason,
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return *recs[i].RelevanceScore > *recs[j].RelevanceScore
	})
	if len(recs) > r.maxResults {
		recs = recs[:r.maxResults]
	}
	return recs, nil
}
