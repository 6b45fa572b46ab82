package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the paper recommendation service.
// Metrics are organized by subsystem: searches, sources, cache, dedup, ranking,
// recommendations, trends, and LLM operations. All counters and histograms are
// registered via promauto for automatic registration with the default registry.
type Metrics struct {
	// SearchesStarted counts search pipeline runs initiated.
	SearchesStarted prometheus.Counter

	// SearchesCompleted counts search pipeline runs that finished successfully.
	SearchesCompleted prometheus.Counter

	// SearchesFailed counts search pipeline runs that ended in failure.
	SearchesFailed prometheus.Counter

	// SearchesDegraded counts searches served with a degraded intent.
	SearchesDegraded prometheus.Counter

	// SearchDuration observes end-to-end search duration in seconds.
	SearchDuration prometheus.Histogram

	// SourceSearches counts source fetches, labeled by source and status.
	SourceSearches *prometheus.CounterVec

	// SourceSearchDuration observes source fetch duration in seconds, labeled by source.
	SourceSearchDuration *prometheus.HistogramVec

	// PapersPerSource observes the distribution of papers returned per fetch, labeled by source.
	PapersPerSource *prometheus.HistogramVec

	// SourceRateLimited counts rate limit responses, labeled by source.
	SourceRateLimited *prometheus.CounterVec

	// CacheOps counts cache lookups, labeled by result (hit, miss, error).
	CacheOps *prometheus.CounterVec

	// DedupMerges counts duplicate records merged during deduplication.
	DedupMerges prometheus.Counter

	// RankBatches counts ranking batches, labeled by status (ok, failed).
	RankBatches *prometheus.CounterVec

	// CandidatesFiltered observes candidates dropped by the relevance cutoff per search.
	CandidatesFiltered prometheus.Histogram

	// RecommendationsServed counts recommendation responses, labeled by mode
	// (personalized, trending).
	RecommendationsServed *prometheus.CounterVec

	// ProfileUpdates counts profile updates, labeled by interaction action.
	ProfileUpdates *prometheus.CounterVec

	// TrendRuns counts trend analysis runs, labeled by status.
	TrendRuns *prometheus.CounterVec

	// EmbeddingsComputed counts embedding vectors computed.
	EmbeddingsComputed prometheus.Counter

	// EmbeddingsFailed counts papers skipped due to embedding failures.
	EmbeddingsFailed prometheus.Counter

	// LLMRequestsTotal counts LLM API requests, labeled by operation and model.
	LLMRequestsTotal *prometheus.CounterVec

	// LLMRequestsFailed counts failed LLM API requests, labeled by operation, model, and error type.
	LLMRequestsFailed *prometheus.CounterVec

	// LLMRequestDuration observes LLM API request duration in seconds, labeled by operation and model.
	LLMRequestDuration *prometheus.HistogramVec

	// LLMTokensUsed counts tokens consumed by LLM operations, labeled by operation, model, and token type.
	LLMTokensUsed *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// Searches
		SearchesStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_started_total",
			Help:      "Total number of search pipeline runs started",
		}),
		SearchesCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_completed_total",
			Help:      "Total number of search pipeline runs completed successfully",
		}),
		SearchesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_failed_total",
			Help:      "Total number of search pipeline runs that failed",
		}),
		SearchesDegraded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_degraded_total",
			Help:      "Total number of searches served with a degraded intent",
		}),
		SearchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "End-to-end duration of searches in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 15, 30},
		}),

		// Sources
		SourceSearches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_searches_total",
			Help:      "Total number of source fetches by source and status",
		}, []string{"source", "status"}),
		SourceSearchDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_search_duration_seconds",
			Help:      "Duration of source fetches in seconds by source",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"source"}),
		PapersPerSource: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "papers_per_source",
			Help:      "Number of papers returned per fetch by source",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 200},
		}, []string{"source"}),
		SourceRateLimited: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_rate_limited_total",
			Help:      "Total number of rate limit responses from paper sources",
		}, []string{"source"}),

		// Cache
		CacheOps: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_ops_total",
			Help:      "Total number of cache lookups by result",
		}, []string{"result"}),

		// Dedup
		DedupMerges: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dedup_merges_total",
			Help:      "Total number of duplicate records merged",
		}),

		// Ranking
		RankBatches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rank_batches_total",
			Help:      "Total number of relevance scoring batches by status",
		}, []string{"status"}),
		CandidatesFiltered: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "candidates_filtered",
			Help:      "Candidates dropped by the relevance cutoff per search",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 200},
		}),

		// Recommendations
		RecommendationsServed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendations_served_total",
			Help:      "Total number of recommendation responses by mode",
		}, []string{"mode"}),
		ProfileUpdates: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profile_updates_total",
			Help:      "Total number of profile updates by interaction action",
		}, []string{"action"}),

		// Trends
		TrendRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trend_runs_total",
			Help:      "Total number of trend analysis runs by status",
		}, []string{"status"}),

		// Embeddings
		EmbeddingsComputed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embeddings_computed_total",
			Help:      "Total number of embedding vectors computed",
		}),
		EmbeddingsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embeddings_failed_total",
			Help:      "Total number of papers skipped due to embedding failures",
		}),

		// LLM
		LLMRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM requests by operation",
		}, []string{"operation", "model"}),
		LLMRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_failed_total",
			Help:      "Total number of failed LLM requests by operation",
		}, []string{"operation", "model", "error_type"}),
		LLMRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Duration of LLM requests in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"operation", "model"}),
		LLMTokensUsed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_used_total",
			Help:      "Total number of tokens used by LLM operations",
		}, []string{"operation", "model", "token_type"}),
	}
}

// RecordSearchStarted records that a search pipeline run has started.
func (m *Metrics) RecordSearchStarted() {
	m.SearchesStarted.Inc()
}

// RecordSearchCompleted records a successful search pipeline run.
func (m *Metrics) RecordSearchCompleted(durationSeconds float64, degraded bool) {
	m.SearchesCompleted.Inc()
	m.SearchDuration.Observe(durationSeconds)
	if degraded {
		m.SearchesDegraded.Inc()
	}
}

// RecordSearchFailed records a failed search pipeline run.
func (m *Metrics) RecordSearchFailed(durationSeconds float64) {
	m.SearchesFailed.Inc()
	m.SearchDuration.Observe(durationSeconds)
}

// RecordSourceSearch records a source fetch outcome.
func (m *Metrics) RecordSourceSearch(source, status string, paperCount int, durationSeconds float64) {
	m.SourceSearches.WithLabelValues(source, status).Inc()
	m.SourceSearchDuration.WithLabelValues(source).Observe(durationSeconds)
	if status == "ok" {
		m.PapersPerSource.WithLabelValues(source).Observe(float64(paperCount))
	}
}

// RecordSourceRateLimited records a rate limit response from a source.
func (m *Metrics) RecordSourceRateLimited(source string) {
	m.SourceRateLimited.WithLabelValues(source).Inc()
}

// RecordCacheHit records a cache hit.
func (m *Metrics) RecordCacheHit() {
	m.CacheOps.WithLabelValues("hit").Inc()
}

// RecordCacheMiss records a cache miss.
func (m *Metrics) RecordCacheMiss() {
	m.CacheOps.WithLabelValues("miss").Inc()
}

// RecordCacheError records a cache error treated as a miss.
func (m *Metrics) RecordCacheError() {
	m.CacheOps.WithLabelValues("error").Inc()
}

// RecordDedupMerges records duplicate records merged in one pass.
func (m *Metrics) RecordDedupMerges(count int) {
	m.DedupMerges.Add(float64(count))
}

// RecordRankBatch records a scoring batch outcome.
func (m *Metrics) RecordRankBatch(status string) {
	m.RankBatches.WithLabelValues(status).Inc()
}

// RecordCandidatesFiltered records how many candidates the cutoff dropped.
func (m *Metrics) RecordCandidatesFiltered(count int) {
	m.CandidatesFiltered.Observe(float64(count))
}

// RecordRecommendationServed records a recommendation response.
func (m *Metrics) RecordRecommendationServed(mode string) {
	m.RecommendationsServed.WithLabelValues(mode).Inc()
}

// RecordProfileUpdate records a profile update for an interaction action.
func (m *Metrics) RecordProfileUpdate(action string) {
	m.ProfileUpdates.WithLabelValues(action).Inc()
}

// RecordTrendRun records a trend analysis run outcome.
func (m *Metrics) RecordTrendRun(status string) {
	m.TrendRuns.WithLabelValues(status).Inc()
}

// RecordEmbeddingsComputed records embedding vectors computed in one pass.
func (m *Metrics) RecordEmbeddingsComputed(count int) {
	m.EmbeddingsComputed.Add(float64(count))
}

// RecordEmbeddingFailed records a paper skipped due to an embedding failure.
func (m *Metrics) RecordEmbeddingFailed() {
	m.EmbeddingsFailed.Inc()
}

// RecordLLMRequest records an LLM request.
func (m *Metrics) RecordLLMRequest(operation, model string, durationSeconds float64, inputTokens, outputTokens int) {
	m.LLMRequestsTotal.WithLabelValues(operation, model).Inc()
	m.LLMRequestDuration.WithLabelValues(operation, model).Observe(durationSeconds)
	m.LLMTokensUsed.WithLabelValues(operation, model, "input").Add(float64(inputTokens))
	m.LLMTokensUsed.WithLabelValues(operation, model, "output").Add(float64(outputTokens))
}

// RecordLLMRequestFailed records a failed LLM request.
func (m *Metrics) RecordLLMRequestFailed(operation, model, errorType string) {
	m.LLMRequestsFailed.WithLabelValues(operation, model, errorType).Inc()
}
