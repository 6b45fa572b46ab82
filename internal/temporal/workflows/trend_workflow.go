// Package workflows holds the Temporal workflow definitions for the
// recommendation worker.
package workflows

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/Midirushi/paper-recommendation-system/internal/temporal/activities"
)

// TrendAnalysisInput is the input for the trend analysis workflow. The
// analysis window ends at workflow start time, so no parameters are
// needed for scheduled runs.
type TrendAnalysisInput struct{}

// TrendAnalysisResult is the result of one trend analysis run.
type TrendAnalysisResult struct {
	// SnapshotID identifies the stored snapshot. Zero when skipped.
	SnapshotID string `json:"snapshot_id"`
	// PaperCount is the number of papers clustered.
	PaperCount int `json:"paper_count"`
	// ClusterCount is the number of topic clusters found.
	ClusterCount int `json:"cluster_count"`
	// Skipped is true when the window held too few papers.
	Skipped bool `json:"skipped"`
}

// TrendAnalysisWorkflow runs one trend analysis pass over the recent
// paper window. Analysis runs as a single activity because the
// intermediate stages share the full embedding matrix, which is far too
// large to pass through workflow history; the activity heartbeats and
// the retry policy cover transient failures instead.
func TrendAnalysisWorkflow(ctx workflow.Context, input TrendAnalysisInput) (*TrendAnalysisResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("starting trend analysis workflow")

	var trendAct *activities.TrendActivities

	activityCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 15 * time.Minute,
		HeartbeatTimeout:    2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    2 * time.Minute,
			MaximumAttempts:    3,
		},
	})

	var output activities.RunTrendAnalysisOutput
	err := workflow.ExecuteActivity(activityCtx, trendAct.RunTrendAnalysis, activities.RunTrendAnalysisInput{
		AsOf: workflow.Now(ctx).UTC(),
	}).Get(ctx, &output)
	if err != nil {
		logger.Error("trend analysis activity failed", "error", err)
		return nil, fmt.Errorf("run trend analysis: %w", err)
	}

	if output.Skipped {
		logger.Info("trend analysis skipped", "reason", output.SkipReason)
		return &TrendAnalysisResult{Skipped: true}, nil
	}

	logger.Info("trend analysis workflow completed",
		"snapshotID", output.SnapshotID.String(),
		"papers", output.PaperCount,
		"clusters", output.ClusterCount,
	)

	return &TrendAnalysisResult{
		SnapshotID:   output.SnapshotID.String(),
		PaperCount:   output.PaperCount,
		ClusterCount: output.ClusterCount,
	}, nil
}
