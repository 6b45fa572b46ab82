// Package main provides the entry point for the background worker. It
// hosts the Temporal worker running trend analysis and, when Kafka is
// enabled, the interaction event listener that maintains user profiles.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Midirushi/paper-recommendation-system/internal/cache"
	"github.com/Midirushi/paper-recommendation-system/internal/config"
	"github.com/Midirushi/paper-recommendation-system/internal/database"
	"github.com/Midirushi/paper-recommendation-system/internal/events"
	"github.com/Midirushi/paper-recommendation-system/internal/llm"
	"github.com/Midirushi/paper-recommendation-system/internal/observability"
	"github.com/Midirushi/paper-recommendation-system/internal/recommend"
	"github.com/Midirushi/paper-recommendation-system/internal/repository"
	"github.com/Midirushi/paper-recommendation-system/internal/temporal"
	"github.com/Midirushi/paper-recommendation-system/internal/temporal/activities"
	"github.com/Midirushi/paper-recommendation-system/internal/temporal/workflows"
	"github.com/Midirushi/paper-recommendation-system/internal/trends"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "worker").Logger()
	logger.Info().Msg("paper-recommendation-system worker starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics("paperrec")

	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	paperRepo := repository.NewPgPaperRepository(db)
	profileRepo := repository.NewPgProfileRepository(db)
	interactionRepo := repository.NewPgInteractionRepository(db)
	trendRepo := repository.NewPgTrendRepository(db)

	oracle, err := llm.NewOracle(cfg.LLM)
	if err != nil {
		return fmt.Errorf("create LLM oracle: %w", err)
	}
	embedder, err := llm.NewEmbedder(cfg.LLM)
	if err != nil {
		return fmt.Errorf("create embedder: %w", err)
	}

	analyzer := trends.NewAnalyzer(paperRepo, trendRepo, embedder, oracle, cfg.Trends, logger, metrics)

	// Temporal worker hosting the trend analysis workflow.
	temporalClient, err := temporal.NewClient(cfg.Temporal, logger)
	if err != nil {
		return fmt.Errorf("connect to Temporal: %w", err)
	}
	defer temporalClient.Close()

	manager, err := temporal.NewWorkerManager(temporalClient, temporal.DefaultWorkerConfig(cfg.Temporal.TaskQueue))
	if err != nil {
		return fmt.Errorf("create Temporal worker: %w", err)
	}
	manager.RegisterWorkflow(workflows.TrendAnalysisWorkflow)
	manager.RegisterActivity(activities.NewTrendActivities(analyzer))

	trendClient := temporal.NewTrendWorkflowClient(temporalClient, cfg.Temporal)
	if err := trendClient.StartSchedule(ctx); err != nil {
		return fmt.Errorf("start trend analysis schedule: %w", err)
	}
	logger.Info().
		Str("task_queue", cfg.Temporal.TaskQueue).
		Msg("trend analysis schedule started")

	errCh := make(chan error, 2)

	go func() {
		if err := manager.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("Temporal worker error: %w", err)
		}
	}()

	// Interaction event listener, when the event stream is enabled.
	var listener *events.Listener
	if cfg.Kafka.Enabled {
		redisClient := cache.NewClient(cfg.Redis)
		defer redisClient.Close()
		resultCache := cache.NewResultCache(redisClient, cfg.Redis, logger, metrics)

		profileUpdater := recommend.NewProfileUpdater(profileRepo, paperRepo, resultCache, logger, metrics)
		listener = events.NewListener(cfg.Kafka, interactionRepo, profileUpdater, logger)

		go func() {
			if err := listener.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("event listener error: %w", err)
			}
		}()
		logger.Info().
			Strs("brokers", cfg.Kafka.Brokers).
			Str("topic", cfg.Kafka.Topic).
			Str("group_id", cfg.Kafka.GroupID).
			Msg("interaction event listener started")
	}

	logger.Info().Msg("worker is ready")

	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("worker error")
		return err
	}

	logger.Info().Msg("shutting down worker")

	manager.Stop()
	if listener != nil {
		if err := listener.Close(); err != nil {
			logger.Error().Err(err).Msg("event listener close error")
		}
	}

	logger.Info().Msg("worker shutdown complete")
	return nil
}
