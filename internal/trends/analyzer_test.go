package trends

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Midirushi/paper-recommendation-system/internal/config"
	"github.com/Midirushi/paper-recommendation-system/internal/domain"
	"github.com/Midirushi/paper-recommendation-system/internal/llm"
	"github.com/Midirushi/paper-recommendation-system/internal/observability"
)

type fakePaperStore struct {
	papers     []domain.Paper
	listErr    error
	embeddings map[uuid.UUID][]float32
}

func (f *fakePaperStore) ListRecent(ctx context.Context, since time.Time, limit int) ([]domain.Paper, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.papers, nil
}

func (f *fakePaperStore) SetEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error {
	if f.embeddings == nil {
		f.embeddings = make(map[uuid.UUID][]float32)
	}
	f.embeddings[id] = embedding
	return nil
}

type fakeSnapshotStore struct {
	saved *domain.TrendSnapshot
	err   error
}

func (f *fakeSnapshotStore) SaveSnapshot(ctx context.Context, snapshot *domain.TrendSnapshot) error {
	if f.err != nil {
		return f.err
	}
	f.saved = snapshot
	return nil
}

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.5, 0.5}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.5, 0.5}
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int { return 2 }

type fakeOracle struct {
	labelErr error
	labels   int
}

func (f *fakeOracle) ExtractIntent(ctx context.Context, query string) (*domain.SearchIntent, error) {
	return nil, errors.New("not used")
}

func (f *fakeOracle) ScoreBatch(ctx context.Context, query string, papers []llm.PaperSummary) ([]llm.BatchScore, error) {
	return nil, errors.New("not used")
}

func (f *fakeOracle) LabelCluster(ctx context.Context, papers []llm.PaperSummary) (*llm.ClusterLabel, error) {
	if f.labelErr != nil {
		return nil, f.labelErr
	}
	f.labels++
	return &llm.ClusterLabel{
		Label:       fmt.Sprintf("Topic %d", f.labels),
		Description: "a cluster of related work",
	}, nil
}

func (f *fakeOracle) Provider() string { return "fake" }
func (f *fakeOracle) Model() string    { return "fake-model" }

// windowPapers builds n papers in two embedding groups so clustering
// has structure to find.
func windowPapers(n int) []domain.Paper {
	published := time.Now().AddDate(0, -1, 0)
	papers := make([]domain.Paper, n)
	for i := range papers {
		var embedding []float32
		keywords := []string{"graph learning"}
		if i%2 == 0 {
			embedding = []float32{1 + float32(i)*0.001, 0}
		} else {
			embedding = []float32{0, 1 + float32(i)*0.001}
			keywords = []string{"protein folding"}
		}
		papers[i] = domain.Paper{
			ID:          uuid.New(),
			CanonicalID: fmt.Sprintf("doi:10.1/p%d", i),
			Title:       fmt.Sprintf("Paper %d", i),
			Abstract:    "abstract",
			Keywords:    keywords,
			PublishDate: &published,
			Embedding:   embedding,
		}
	}
	return papers
}

func testMetrics(t *testing.T) *observability.Metrics {
	t.Helper()
	name := make([]rune, 0, len(t.Name()))
	for _, r := range t.Name() {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			name = append(name, r)
		} else {
			name = append(name, '_')
		}
	}
	return observability.NewMetrics("trendstest_" + string(name))
}

func newAnalyzer(t *testing.T, papers PaperStore, snapshots SnapshotStore, embedder llm.Embedder, oracle llm.Oracle) *Analyzer {
	t.Helper()
	return NewAnalyzer(papers, snapshots, embedder, oracle, config.TrendsConfig{
		Window:      90 * 24 * time.Hour,
		MinClusters: 2,
		MaxClusters: 3,
		Seed:        42,
		MinPapers:   5,
	}, zerolog.Nop(), testMetrics(t))
}

func TestAnalyze(t *testing.T) {
	t.Parallel()

	store := &fakePaperStore{papers: windowPapers(20)}
	snapshots := &fakeSnapshotStore{}
	oracle := &fakeOracle{}

	a := newAnalyzer(t, store, snapshots, &fakeEmbedder{}, oracle)

	now := time.Now()
	snapshot, err := a.Analyze(context.Background(), now)
	require.NoError(t, err)
	require.NotNil(t, snapshots.saved)

	assert.Equal(t, now, snapshot.WindowEnd)
	assert.Equal(t, now.Add(-90*24*time.Hour), snapshot.WindowStart)
	require.NotEmpty(t, snapshot.Clusters)
	assert.Equal(t, 20, snapshot.PaperCount())

	for _, cluster := range snapshot.Clusters {
		assert.NotEmpty(t, cluster.Label)
		assert.Equal(t, len(cluster.PaperIDs), cluster.Size)
	}

	// Largest cluster first.
	for i := 1; i < len(snapshot.Clusters); i++ {
		assert.GreaterOrEqual(t, snapshot.Clusters[i-1].Size, snapshot.Clusters[i].Size)
	}

	assert.Contains(t, snapshot.Summary, "20 papers")
}

func TestAnalyze_DefaultWindowIsOneWeek(t *testing.T) {
	t.Parallel()

	store := &fakePaperStore{papers: windowPapers(20)}
	snapshots := &fakeSnapshotStore{}
	a := NewAnalyzer(store, snapshots, &fakeEmbedder{}, &fakeOracle{}, config.TrendsConfig{
		MinClusters: 2,
		MaxClusters: 3,
		Seed:        42,
		MinPapers:   5,
	}, zerolog.Nop(), testMetrics(t))

	now := time.Now()
	snapshot, err := a.Analyze(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-7*24*time.Hour), snapshot.WindowStart)
}

func TestAnalyze_TooFewPapers(t *testing.T) {
	t.Parallel()

	store := &fakePaperStore{papers: windowPapers(3)}
	a := newAnalyzer(t, store, &fakeSnapshotStore{}, &fakeEmbedder{}, &fakeOracle{})

	_, err := a.Analyze(context.Background(), time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAnalyze_ComputesMissingEmbeddings(t *testing.T) {
	t.Parallel()

	papers := windowPapers(12)
	for i := range papers {
		if i < 6 {
			papers[i].Embedding = nil
		}
	}
	store := &fakePaperStore{papers: papers}
	snapshots := &fakeSnapshotStore{}

	a := newAnalyzer(t, store, snapshots, &fakeEmbedder{}, &fakeOracle{})

	_, err := a.Analyze(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Len(t, store.embeddings, 6, "missing embeddings should be persisted")
}

func TestAnalyze_EmbedderDownDropsPapers(t *testing.T) {
	t.Parallel()

	papers := windowPapers(12)
	for i := range papers {
		papers[i].Embedding = nil
	}
	store := &fakePaperStore{papers: papers}

	a := newAnalyzer(t, store, &fakeSnapshotStore{}, &fakeEmbedder{err: errors.New("quota")}, &fakeOracle{})

	_, err := a.Analyze(context.Background(), time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestAnalyze_LabelFailureFallsBackToKeywords(t *testing.T) {
	t.Parallel()

	store := &fakePaperStore{papers: windowPapers(20)}
	snapshots := &fakeSnapshotStore{}

	a := newAnalyzer(t, store, snapshots, &fakeEmbedder{}, &fakeOracle{labelErr: errors.New("llm down")})

	snapshot, err := a.Analyze(context.Background(), time.Now())
	require.NoError(t, err)

	for _, cluster := range snapshot.Clusters {
		assert.NotEmpty(t, cluster.Label)
		assert.NotContains(t, cluster.Label, "Topic ")
	}
}

func TestAnalyze_SnapshotStoreError(t *testing.T) {
	t.Parallel()

	store := &fakePaperStore{papers: windowPapers(20)}
	a := newAnalyzer(t, store, &fakeSnapshotStore{err: errors.New("db down")}, &fakeEmbedder{}, &fakeOracle{})

	_, err := a.Analyze(context.Background(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "saving trend snapshot")
}

func TestTopKeywords(t *testing.T) {
	t.Parallel()

	papers := []domain.Paper{
		{Keywords: []string{"GNN", "molecules"}},
		{Keywords: []string{"gnn", "proteins"}},
		{Keywords: []string{"GNN"}},
	}

	keywords := topKeywords(papers, []int{0, 1, 2}, 2)
	require.Len(t, keywords, 2)
	assert.Equal(t, "gnn", keywords[0])
}
