// Package activities holds the Temporal activities behind the trend
// analysis workflow.
package activities

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"

	"github.com/Midirushi/paper-recommendation-system/internal/domain"
)

// TrendAnalyzer runs one trend analysis pass as of the given time.
type TrendAnalyzer interface {
	Analyze(ctx context.Context, now time.Time) (*domain.TrendSnapshot, error)
}

// TrendActivities provides Temporal activities for trend analysis.
// Methods on this struct are registered as activities via the worker.
type TrendActivities struct {
	analyzer TrendAnalyzer
}

// NewTrendActivities creates a new TrendActivities instance.
func NewTrendActivities(analyzer TrendAnalyzer) *TrendActivities {
	return &TrendActivities{analyzer: analyzer}
}

// RunTrendAnalysisInput is the input for RunTrendAnalysis.
type RunTrendAnalysisInput struct {
	// AsOf is the end of the analysis window. The workflow sets this
	// from workflow time so retries see the same window.
	AsOf time.Time `json:"as_of"`
}

// RunTrendAnalysisOutput is the result of RunTrendAnalysis.
type RunTrendAnalysisOutput struct {
	// SnapshotID identifies the stored snapshot. Zero when skipped.
	SnapshotID uuid.UUID `json:"snapshot_id"`
	// PaperCount is the number of papers clustered.
	PaperCount int `json:"paper_count"`
	// ClusterCount is the number of topic clusters found.
	ClusterCount int `json:"cluster_count"`
	// Summary is the one-line snapshot summary.
	Summary string `json:"summary,omitempty"`
	// Skipped is true when the window held too few papers to cluster.
	Skipped bool `json:"skipped"`
	// SkipReason explains why the run was skipped.
	SkipReason string `json:"skip_reason,omitempty"`
}

// RunTrendAnalysis executes one full trend analysis pass: load the
// window, fill in missing embeddings, cluster, label, and store the
// snapshot. A window with too few papers yields a skipped result rather
// than an error so the cron schedule does not retry it.
func (a *TrendActivities) RunTrendAnalysis(ctx context.Context, input RunTrendAnalysisInput) (*RunTrendAnalysisOutput, error) {
	logger := activity.GetLogger(ctx)

	if a.analyzer == nil {
		return nil, fmt.Errorf("trend analyzer is not configured")
	}

	asOf := input.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	activity.RecordHeartbeat(ctx, "analyzing trends")
	logger.Info("starting trend analysis", "asOf", asOf)

	snapshot, err := a.analyzer.Analyze(ctx, asOf)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			logger.Info("trend analysis skipped", "reason", err.Error())
			return &RunTrendAnalysisOutput{
				Skipped:    true,
				SkipReason: err.Error(),
			}, nil
		}
		logger.Error("trend analysis failed", "error", err)
		return nil, fmt.Errorf("analyze trends: %w", err)
	}

	logger.Info("trend analysis completed",
		"snapshotID", snapshot.ID,
		"papers", snapshot.PaperCount(),
		"clusters", len(snapshot.Clusters),
	)

	return &RunTrendAnalysisOutput{
		SnapshotID:   snapshot.ID,
		PaperCount:   snapshot.PaperCount(),
		ClusterCount: len(snapshot.Clusters),
		Summary:      snapshot.Summary,
	}, nil
}
