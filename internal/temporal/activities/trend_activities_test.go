package activities

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"github.com/Midirushi/paper-recommendation-system/internal/domain"
)

type fakeAnalyzer struct {
	snapshot *domain.TrendSnapshot
	err      error
	asOf     time.Time
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, now time.Time) (*domain.TrendSnapshot, error) {
	f.asOf = now
	if f.err != nil {
		return nil, f.err
	}
	return f.snapshot, nil
}

func sampleSnapshot() *domain.TrendSnapshot {
	return &domain.TrendSnapshot{
		ID: uuid.New(),
		Clusters: []domain.TrendCluster{
			{Label: "Graph learning", Size: 12},
			{Label: "Protein folding", Size: 8},
		},
		Summary: "20 papers across 2 topics",
	}
}

func TestRunTrendAnalysis_Success(t *testing.T) {
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestActivityEnvironment()

	analyzer := &fakeAnalyzer{snapshot: sampleSnapshot()}
	act := NewTrendActivities(analyzer)
	env.RegisterActivity(act)

	asOf := time.Date(2026, 8, 31, 3, 0, 0, 0, time.UTC)
	val, err := env.ExecuteActivity(act.RunTrendAnalysis, RunTrendAnalysisInput{AsOf: asOf})
	require.NoError(t, err)

	var output RunTrendAnalysisOutput
	require.NoError(t, val.Get(&output))

	assert.Equal(t, analyzer.snapshot.ID, output.SnapshotID)
	assert.Equal(t, 20, output.PaperCount)
	assert.Equal(t, 2, output.ClusterCount)
	assert.False(t, output.Skipped)
	assert.True(t, asOf.Equal(analyzer.asOf), "window end should pass through to the analyzer")
}

func TestRunTrendAnalysis_TooFewPapersSkips(t *testing.T) {
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestActivityEnvironment()

	analyzer := &fakeAnalyzer{err: domain.NewValidationError("window", "need at least 10 papers, found 3")}
	act := NewTrendActivities(analyzer)
	env.RegisterActivity(act)

	val, err := env.ExecuteActivity(act.RunTrendAnalysis, RunTrendAnalysisInput{AsOf: time.Now()})
	require.NoError(t, err, "a thin window should not fail the activity")

	var output RunTrendAnalysisOutput
	require.NoError(t, val.Get(&output))

	assert.True(t, output.Skipped)
	assert.Contains(t, output.SkipReason, "need at least")
	assert.Equal(t, uuid.Nil, output.SnapshotID)
}

func TestRunTrendAnalysis_AnalyzerError(t *testing.T) {
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestActivityEnvironment()

	analyzer := &fakeAnalyzer{err: errors.New("db down")}
	act := NewTrendActivities(analyzer)
	env.RegisterActivity(act)

	_, err := env.ExecuteActivity(act.RunTrendAnalysis, RunTrendAnalysisInput{AsOf: time.Now()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analyze trends")
}
