// Package trends implements periodic trend analysis: papers from a
// recent window are embedded, clustered by topic, and each cluster is
// labeled, producing an insert-only snapshot of what the field is
// working on.
package trends

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Midirushi/paper-recommendation-system/internal/config"
	"github.com/Midirushi/paper-recommendation-system/internal/domain"
	"github.com/Midirushi/paper-recommendation-system/internal/llm"
	"github.com/Midirushi/paper-recommendation-system/internal/observability"
	"github.com/Midirushi/paper-recommendation-system/internal/vector"
)

// Defaults applied when the trends configuration leaves fields unset.
const (
	DefaultWindow      = 7 * 24 * time.Hour
	DefaultMinClusters = 3
	DefaultMaxClusters = 5
	DefaultMinPapers   = 10

	// windowPaperLimit caps how many papers one analysis run loads.
	windowPaperLimit = 1000

	// embedBatchSize is how many abstracts go to the embedder at once.
	embedBatchSize = 64

	// labelSampleSize is how many papers per cluster are shown to the
	// oracle when labeling.
	labelSampleSize = 10

	// fallbackKeywordCount is how many keywords a frequency-derived
	// label carries.
	fallbackKeywordCount = 5
)

// PaperStore is the paper access the analyzer needs.
type PaperStore interface {
	// ListRecent returns papers published since the cutoff, newest
	// first.
	ListRecent(ctx context.Context, since time.Time, limit int) ([]domain.Paper, error)

	// SetEmbedding stores a computed embedding for a paper.
	SetEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error
}

// SnapshotStore persists completed trend snapshots.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snapshot *domain.TrendSnapshot) error
}

// Analyzer runs one trend analysis pass over the recent paper window.
type Analyzer struct {
	papers    PaperStore
	snapshots SnapshotStore
	embedder  llm.Embedder
	oracle    llm.Oracle
	cfg       config.TrendsConfig
	logger    zerolog.Logger
	metrics   *observability.Metrics
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(papers PaperStore, snapshots SnapshotStore, embedder llm.Embedder, oracle llm.Oracle, cfg config.TrendsConfig, logger zerolog.Logger, metrics *observability.Metrics) *Analyzer {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.MinClusters <= 0 {
		cfg.MinClusters = DefaultMinClusters
	}
	if cfg.MaxClusters <= 0 {
		cfg.MaxClusters = DefaultMaxClusters
	}
	if cfg.MinPapers <= 0 {
		cfg.MinPapers = DefaultMinPapers
	}
	if cfg.Seed == 0 {
		cfg.Seed = vector.DefaultSeed
	}
	return &Analyzer{
		papers:    papers,
		snapshots: snapshots,
		embedder:  embedder,
		oracle:    oracle,
		cfg:       cfg,
		logger:    logger.With().Str("component", "trends").Logger(),
		metrics:   metrics,
	}
}

// Analyze loads the window, fills in missing embeddings, clusters, and
// labels. Returns the stored snapshot.
func (a *Analyzer) Analyze(ctx context.Context, now time.Time) (*domain.TrendSnapshot, error) {
	windowStart := now.Add(-a.cfg.Window)

	papers, err := a.papers.ListRecent(ctx, windowStart, windowPaperLimit)
	if err != nil {
		a.metrics.RecordTrendRun("error")
		return nil, fmt.Errorf("loading window papers: %w", err)
	}
	if len(papers) < a.cfg.MinPapers {
		a.metrics.RecordTrendRun("skipped")
		a.logger.Info().
			Int("papers", len(papers)).
			Int("min_papers", a.cfg.MinPapers).
			Msg("not enough papers in window, skipping trend analysis")
		return nil, domain.NewValidationError("window",
			fmt.Sprintf("need at least %d papers, found %d", a.cfg.MinPapers, len(papers)))
	}

	embedded := a.ensureEmbeddings(ctx, papers)
	if len(embedded) < a.cfg.MinPapers {
		a.metrics.RecordTrendRun("error")
		return nil, fmt.Errorf("only %d of %d window papers could be embedded: %w",
			len(embedded), len(papers), domain.ErrEmbeddingUnavailable)
	}

	vectors := make([][]float32, len(embedded))
	for i := range embedded {
		vectors[i] = embedded[i].Embedding
	}

	k := vector.ChooseK(len(embedded), a.cfg.MinClusters, a.cfg.MaxClusters)
	clustering, err := vector.KMeans(vectors, vector.KMeansConfig{
		K:    k,
		Seed: a.cfg.Seed,
	})
	if err != nil {
		if !errors.Is(err, domain.ErrClusteringConvergence) {
			a.metrics.RecordTrendRun("error")
			return nil, fmt.Errorf("clustering window papers: %w", err)
		}
		// A non-converged clustering is still usable for labeling.
		a.logger.Warn().Int("k", k).Msg("clustering did not converge, using last iteration")
	}

	clusters := a.labelClusters(ctx, embedded, clustering, k)

	snapshot := &domain.TrendSnapshot{
		WindowStart: windowStart,
		WindowEnd:   now,
		Clusters:    clusters,
		Summary:     summarize(clusters, len(embedded)),
	}

	if err := a.snapshots.SaveSnapshot(ctx, snapshot); err != nil {
		a.metrics.RecordTrendRun("error")
		return nil, fmt.Errorf("saving trend snapshot: %w", err)
	}

	a.metrics.RecordTrendRun("ok")
	a.logger.Info().
		Int("papers", len(embedded)).
		Int("clusters", len(clusters)).
		Msg("trend analysis completed")

	return snapshot, nil
}

// ensureEmbeddings returns the papers that have an embedding, computing
// and persisting missing ones in batches. Papers whose embedding cannot
// be computed are dropped from the run.
func (a *Analyzer) ensureEmbeddings(ctx context.Context, papers []domain.Paper) []domain.Paper {
	ready := make([]domain.Paper, 0, len(papers))
	var missing []domain.Paper
	for _, p := range papers {
		if p.HasEmbedding() {
			ready = append(ready, p)
		} else {
			missing = append(missing, p)
		}
	}

	computed := 0
	for start := 0; start < len(missing); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(missing) {
			end = len(missing)
		}
		batch := missing[start:end]

		texts := make([]string, len(batch))
		for i := range batch {
			texts[i] = embeddingText(&batch[i])
		}

		embeddings, err := a.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			a.logger.Warn().Err(err).Int("batch_size", len(batch)).
				Msg("embedding batch failed, dropping papers from run")
			for range batch {
				a.metrics.RecordEmbeddingFailed()
			}
			continue
		}

		for i := range batch {
			if err := a.papers.SetEmbedding(ctx, batch[i].ID, embeddings[i]); err != nil {
				a.logger.Warn().Err(err).Str("paper_id", batch[i].ID.String()).
					Msg("failed to persist embedding")
			}
			batch[i].Embedding = embeddings[i]
			ready = append(ready, batch[i])
			computed++
		}
	}

	if computed > 0 {
		a.metrics.RecordEmbeddingsComputed(computed)
	}

	return ready
}

// embeddingText is the text representation embedded for a paper:
// title plus abstract, falling back to keywords when both are thin.
func embeddingText(p *domain.Paper) string {
	parts := make([]string, 0, 3)
	if p.Title != "" {
		parts = append(parts, p.Title)
	}
	if p.Abstract != "" {
		parts = append(parts, p.Abstract)
	}
	if len(parts) == 0 && len(p.Keywords) > 0 {
		parts = append(parts, strings.Join(p.Keywords, " "))
	}
	return strings.Join(parts, "\n\n")
}

// labelClusters asks the oracle for a label per cluster, falling back
// to the most frequent keywords when labeling fails.
func (a *Analyzer) labelClusters(ctx context.Context, papers []domain.Paper, clustering *vector.Clustering, k int) []domain.TrendCluster {
	members := make([][]int, k)
	for i, cluster := range clustering.Assignments {
		members[cluster] = append(members[cluster], i)
	}

	var clusters []domain.TrendCluster
	for c := 0; c < k; c++ {
		if len(members[c]) == 0 {
			continue
		}

		ids := make([]uuid.UUID, 0, len(members[c]))
		for _, idx := range members[c] {
			ids = append(ids, papers[idx].ID)
		}

		cluster := domain.TrendCluster{
			PaperIDs: ids,
			Size:     len(ids),
			Keywords: topKeywords(papers, members[c], fallbackKeywordCount),
		}

		label, err := a.oracle.LabelCluster(ctx, clusterSummaries(papers, members[c]))
		if err != nil {
			a.logger.Warn().Err(err).Int("cluster", c).
				Msg("cluster labeling failed, using keyword label")
			cluster.Label = fallbackLabel(cluster.Keywords)
		} else {
			cluster.Label = label.Label
			cluster.Description = label.Description
			if len(label.Keywords) > 0 {
				cluster.Keywords = label.Keywords
			}
		}

		clusters = append(clusters, cluster)
	}

	// Largest clusters first.
	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].Size > clusters[j].Size
	})

	return clusters
}

// clusterSummaries builds the oracle's view of a cluster, capped at
// labelSampleSize papers.
func clusterSummaries(papers []domain.Paper, members []int) []llm.PaperSummary {
	n := len(members)
	if n > labelSampleSize {
		n = labelSampleSize
	}

	summaries := make([]llm.PaperSummary, 0, n)
	for i := 0; i < n; i++ {
		p := &papers[members[i]]
		summary := llm.PaperSummary{
			Index:         i,
			Title:         p.Title,
			Abstract:      p.Abstract,
			Journal:       p.Journal,
			CitationCount: p.CitationCount,
			Keywords:      p.Keywords,
		}
		if p.PublishDate != nil {
			summary.Year = p.PublishDate.Year()
		}
		summaries = append(summaries, summary)
	}
	return summaries
}

// topKeywords returns the most frequent keywords among the cluster's
// papers, ties broken alphabetically.
func topKeywords(papers []domain.Paper, members []int, limit int) []string {
	counts := make(map[string]int)
	for _, idx := range members {
		for _, kw := range papers[idx].Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				counts[kw]++
			}
		}
	}

	keywords := make([]string, 0, len(counts))
	for kw := range counts {
		keywords = append(keywords, kw)
	}
	sort.Slice(keywords, func(i, j int) bool {
		if counts[keywords[i]] != counts[keywords[j]] {
			return counts[keywords[i]] > counts[keywords[j]]
		}
		return keywords[i] < keywords[j]
	})

	if len(keywords) > limit {
		keywords = keywords[:limit]
	}
	return keywords
}

func fallbackLabel(keywords []string) string {
	if len(keywords) == 0 {
		return "Unlabeled topic"
	}
	n := len(keywords)
	if n > 3 {
		n = 3
	}
	return strings.Join(keywords[:n], ", ")
}

func summarize(clusters []domain.TrendCluster, paperCount int) string {
	labels := make([]string, 0, len(clusters))
	for _, c := range clusters {
		labels = append(labels, c.Label)
	}
	return fmt.Sprintf("%d papers across %d topics: %s",
		paperCount, len(clusters), strings.Join(labels, "; "))
}
