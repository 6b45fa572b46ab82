// Package main provides the entry point for the paper recommendation API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Midirushi/paper-recommendation-system/internal/cache"
	"github.com/Midirushi/paper-recommendation-system/internal/config"
	"github.com/Midirushi/paper-recommendation-system/internal/database"
	"github.com/Midirushi/paper-recommendation-system/internal/dedup"
	"github.com/Midirushi/paper-recommendation-system/internal/events"
	"github.com/Midirushi/paper-recommendation-system/internal/llm"
	"github.com/Midirushi/paper-recommendation-system/internal/observability"
	"github.com/Midirushi/paper-recommendation-system/internal/papersources"
	"github.com/Midirushi/paper-recommendation-system/internal/papersources/arxiv"
	"github.com/Midirushi/paper-recommendation-system/internal/papersources/cnki"
	"github.com/Midirushi/paper-recommendation-system/internal/papersources/local"
	"github.com/Midirushi/paper-recommendation-system/internal/papersources/scholar"
	"github.com/Midirushi/paper-recommendation-system/internal/rank"
	"github.com/Midirushi/paper-recommendation-system/internal/recommend"
	"github.com/Midirushi/paper-recommendation-system/internal/repository"
	"github.com/Midirushi/paper-recommendation-system/internal/search"
	httpserver "github.com/Midirushi/paper-recommendation-system/internal/server/http"
	"github.com/Midirushi/paper-recommendation-system/internal/vector"
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
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("paper-recommendation-system server starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics("paperrec")

	// Connect to PostgreSQL.
	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	logger.Info().Msg("database connection established")

	if cfg.Database.MigrationAutoRun {
		migrator, err := database.NewMigrator(db, cfg.Database.MigrationPath, logger)
		if err != nil {
			return fmt.Errorf("create migrator: %w", err)
		}
		defer func() {
			if closeErr := migrator.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close migrator")
			}
		}()

		if err := migrator.Up(); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	// Repositories.
	paperRepo := repository.NewPgPaperRepository(db)
	profileRepo := repository.NewPgProfileRepository(db)
	interactionRepo := repository.NewPgInteractionRepository(db)
	trendRepo := repository.NewPgTrendRepository(db)
	searchLogRepo := repository.NewPgSearchLogRepository(db)

	// LLM oracle and embedder.
	oracle, err := llm.NewOracle(cfg.LLM)
	if err != nil {
		return fmt.Errorf("create LLM oracle: %w", err)
	}
	embedder, err := llm.NewEmbedder(cfg.LLM)
	if err != nil {
		return fmt.Errorf("create embedder: %w", err)
	}

	// Vector engine and paper sources.
	engine := vector.NewEngine(paperRepo)

	registry := papersources.NewRegistry()
	registry.Register(cnki.New(cnki.Config{
		APIKey:     cfg.PaperSources.CNKI.APIKey,
		BaseURL:    cfg.PaperSources.CNKI.BaseURL,
		Timeout:    cfg.PaperSources.CNKI.Timeout,
		RateLimit:  cfg.PaperSources.CNKI.RateLimit,
		MaxResults: cfg.PaperSources.CNKI.MaxResults,
		Enabled:    cfg.PaperSources.CNKI.Enabled,
	}))
	registry.Register(scholar.New(scholar.Config{
		APIKey:     cfg.PaperSources.Scholar.APIKey,
		BaseURL:    cfg.PaperSources.Scholar.BaseURL,
		Timeout:    cfg.PaperSources.Scholar.Timeout,
		RateLimit:  cfg.PaperSources.Scholar.RateLimit,
		MaxResults: cfg.PaperSources.Scholar.MaxResults,
		Enabled:    cfg.PaperSources.Scholar.Enabled,
	}))
	registry.Register(arxiv.New(arxiv.Config{
		BaseURL:    cfg.PaperSources.ArXiv.BaseURL,
		Timeout:    cfg.PaperSources.ArXiv.Timeout,
		RateLimit:  cfg.PaperSources.ArXiv.RateLimit,
		MaxResults: cfg.PaperSources.ArXiv.MaxResults,
		Enabled:    cfg.PaperSources.ArXiv.Enabled,
	}))
	registry.Register(local.New(embedder, engine, local.Config{
		MaxResults: cfg.PaperSources.Local.MaxResults,
		Enabled:    cfg.PaperSources.Local.Enabled,
	}))

	// Redis result cache.
	redisClient := cache.NewClient(cfg.Redis)
	defer redisClient.Close()
	resultCache := cache.NewResultCache(redisClient, cfg.Redis, logger, metrics)

	// Search pipeline.
	planner := search.NewPlanner(oracle, logger)
	coordinator := search.NewCoordinator(registry, cfg.Search, logger, metrics)
	ranker := rank.NewRanker(oracle, cfg.Search, logger, metrics)
	searchSvc := search.NewService(planner, coordinator, registry, dedup.NewDeduper(), ranker, resultCache, paperRepo, searchLogRepo, cfg.Search, logger, metrics)

	// Recommendations.
	recommender := recommend.NewRecommender(profileRepo, paperRepo, interactionRepo, resultCache, cfg.Recommend, logger, metrics)

	// Interaction event publisher, when the event stream is enabled.
	var publisher httpserver.EventPublisher
	if cfg.Kafka.Enabled {
		kafkaPublisher := events.NewPublisher(cfg.Kafka, logger)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
		logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("kafka publisher ready")
	}

	httpSrv := httpserver.NewServer(
		cfg.Server,
		searchSvc,
		recommender,
		engine,
		paperRepo,
		trendRepo,
		interactionRepo,
		publisher,
		db,
		logger,
	)

	// Prometheus metrics on a separate port.
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.MetricsPort),
			Handler:      metricsMux,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}
	}

	errCh := make(chan error, 2)

	go func() {
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	if metricsServer != nil {
		go func() {
			logger.Info().Str("address", metricsServer.Addr).Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	logger.Info().
		Int("http_port", cfg.Server.HTTPPort).
		Msg("paper-recommendation-system is ready")

	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	logger.Info().Msg("shutting down paper-recommendation-system")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	logger.Info().Msg("paper-recommendation-system shutdown complete")
	return nil
}
