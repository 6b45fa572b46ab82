package rank

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Midirushi/paper-recommendation-system/internal/config"
	"github.com/Midirushi/paper-recommendation-system/internal/domain"
	"github.com/Midirushi/paper-recommendation-system/internal/llm"
	"github.com/Midirushi/paper-recommendation-system/internal/observability"
)

// scriptedOracle returns preset scores per batch, keyed by the title of
// the batch's first paper.
type scriptedOracle struct {
	mu       sync.Mutex
	scores   map[string][]llm.BatchScore
	failFor  map[string]bool
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	calls    int
}

func (o *scriptedOracle) ExtractIntent(ctx context.Context, query string) (*domain.SearchIntent, error) {
	return nil, errors.New("not used")
}

func (o *scriptedOracle) ScoreBatch(ctx context.Context, query string, papers []llm.PaperSummary) ([]llm.BatchScore, error) {
	cur := o.inFlight.Add(1)
	defer o.inFlight.Add(-1)
	for {
		max := o.maxSeen.Load()
		if cur <= max || o.maxSeen.CompareAndSwap(max, cur) {
			break
		}
	}

	o.mu.Lock()
	o.calls++
	o.mu.Unlock()

	key := papers[0].Title
	if o.failFor[key] {
		return nil, &llm.APIError{Provider: "openai", StatusCode: 500, Message: "boom"}
	}
	if scores, ok := o.scores[key]; ok {
		return scores, nil
	}

	// Default: score every paper 7.0.
	out := make([]llm.BatchScore, len(papers))
	for i := range papers {
		out[i] = llm.BatchScore{Index: i, Score: 7.0}
	}
	return out, nil
}

func (o *scriptedOracle) LabelCluster(ctx context.Context, papers []llm.PaperSummary) (*llm.ClusterLabel, error) {
	return nil, errors.New("not used")
}

func (o *scriptedOracle) Provider() string { return "scripted" }
func (o *scriptedOracle) Model() string    { return "scripted" }

func newTestRanker(t *testing.T, oracle llm.Oracle, cfg config.SearchConfig) *Ranker {
	t.Helper()
	metrics := observability.NewMetrics("ranktest_" + sanitizeMetricName(t.Name()))
	return NewRanker(oracle, cfg, zerolog.Nop(), metrics)
}

func sanitizeMetricName(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			out = append(out, r)
		} else {
			out = append(out, '_')
		}
	}
	return string(out)
}

func candidates(titles ...string) []domain.Candidate {
	out := make([]domain.Candidate, len(titles))
	for i, title := range titles {
		out[i] = domain.Candidate{Paper: domain.Paper{Title: title}}
	}
	return out
}

func TestRank_FiltersAndSorts(t *testing.T) {
	oracle := &scriptedOracle{
		scores: map[string][]llm.BatchScore{
			"p0": {
				{Index: 0, Score: 9.0, Reason: "on topic"},
				{Index: 1, Score: 7.5},
				{Index: 2, Score: 5.0},
				{Index: 3, Score: 6.0},
			},
		},
	}
	r := newTestRanker(t, oracle, config.SearchConfig{MinScore: 6.0, TopN: 20})

	set := &domain.CandidateSet{Candidates: candidates("p0", "p1", "p2", "p3"), TotalFound: 4}
	ranked, err := r.Rank(context.Background(), "query", set)
	require.NoError(t, err)

	require.Len(t, ranked.Candidates, 3)
	assert.Equal(t, "p0", ranked.Candidates[0].Paper.Title)
	assert.Equal(t, 9.0, *ranked.Candidates[0].RelevanceScore)
	assert.Equal(t, "on topic", ranked.Candidates[0].Reason)
	assert.Equal(t, "p1", ranked.Candidates[1].Paper.Title)
	assert.Equal(t, "p3", ranked.Candidates[2].Paper.Title)
	assert.False(t, ranked.Degraded)
}

func TestRank_TieBreakByCitationsThenDate(t *testing.T) {
	older := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	cands := candidates("p0", "p1", "p2")
	cands[0].Paper.CitationCount = 10
	cands[1].Paper.CitationCount = 50
	cands[1].Paper.PublishDate = &older
	cands[2].Paper.CitationCount = 50
	cands[2].Paper.PublishDate = &newer

	oracle := &scriptedOracle{
		scores: map[string][]llm.BatchScore{
			"p0": {
				{Index: 0, Score: 8.0},
				{Index: 1, Score: 8.0},
				{Index: 2, Score: 8.0},
			},
		},
	}
	r := newTestRanker(t, oracle, config.SearchConfig{})

	ranked, err := r.Rank(context.Background(), "q", &domain.CandidateSet{Candidates: cands})
	require.NoError(t, err)

	require.Len(t, ranked.Candidates, 3)
	assert.Equal(t, "p2", ranked.Candidates[0].Paper.Title)
	assert.Equal(t, "p1", ranked.Candidates[1].Paper.Title)
	assert.Equal(t, "p0", ranked.Candidates[2].Paper.Title)
}

func TestRank_CapsAtTopN(t *testing.T) {
	titles := make([]string, 30)
	for i := range titles {
		titles[i] = "p" + string(rune('a'+i%26)) + string(rune('0'+i/26))
	}
	oracle := &scriptedOracle{}
	r := newTestRanker(t, oracle, config.SearchConfig{TopN: 20})

	ranked, err := r.Rank(context.Background(), "q", &domain.CandidateSet{Candidates: candidates(titles...)})
	require.NoError(t, err)
	assert.Len(t, ranked.Candidates, 20)
}

func TestRank_BatchesBySize(t *testing.T) {
	titles := make([]string, 120)
	for i := range titles {
		titles[i] = "t" + string(rune('a'+i%26)) + string(rune('a'+(i/26)%26))
	}
	oracle := &scriptedOracle{}
	r := newTestRanker(t, oracle, config.SearchConfig{RankBatchSize: 50, RankConcurrency: 2})

	_, err := r.Rank(context.Background(), "q", &domain.CandidateSet{Candidates: candidates(titles...)})
	require.NoError(t, err)

	assert.Equal(t, 3, oracle.calls)
	assert.LessOrEqual(t, oracle.maxSeen.Load(), int32(2))
}

func TestRank_FailedBatchDegrades(t *testing.T) {
	titles := make([]string, 4)
	for i := range titles {
		titles[i] = []string{"a0", "a1", "b0", "b1"}[i]
	}
	oracle := &scriptedOracle{failFor: map[string]bool{"b0": true}}
	r := newTestRanker(t, oracle, config.SearchConfig{RankBatchSize: 2, MinScore: 6.0})

	ranked, err := r.Rank(context.Background(), "q", &domain.CandidateSet{Candidates: candidates(titles...)})
	require.NoError(t, err)

	// The failed batch's candidates are gone, the rest survive.
	assert.Len(t, ranked.Candidates, 2)
	assert.True(t, ranked.Degraded)
}

func TestRank_AllBatchesFailed(t *testing.T) {
	oracle := &scriptedOracle{failFor: map[string]bool{"a0": true, "b0": true}}
	r := newTestRanker(t, oracle, config.SearchConfig{RankBatchSize: 2})

	_, err := r.Rank(context.Background(), "q", &domain.CandidateSet{Candidates: candidates("a0", "a1", "b0", "b1")})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRankingBatch)
}

func TestRank_EmptySet(t *testing.T) {
	r := newTestRanker(t, &scriptedOracle{}, config.SearchConfig{})

	ranked, err := r.Rank(context.Background(), "q", &domain.CandidateSet{})
	require.NoError(t, err)
	assert.Empty(t, ranked.Candidates)

	ranked, err = r.Rank(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Empty(t, ranked.Candidates)
}
