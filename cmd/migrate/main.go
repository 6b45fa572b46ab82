// Command migrate applies or rolls back the Postgres schema
// migrations for the paper recommendation service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/Midirushi/paper-recommendation-system/internal/config"
	"github.com/Midirushi/paper-recommendation-system/internal/database"
	"github.com/Midirushi/paper-recommendation-system/internal/observability"
)

type options struct {
	up      bool
	down    bool
	steps   int
	version bool
	force   int
	path    string
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (*options, error) {
	opts := &options{}
	flag.BoolVar(&opts.up, "up", false, "apply all pending migrations")
	flag.BoolVar(&opts.down, "down", false, "roll back every migration")
	flag.IntVar(&opts.steps, "steps", 0, "apply N migrations (negative rolls back)")
	flag.BoolVar(&opts.version, "version", false, "print the current schema version")
	flag.IntVar(&opts.force, "force", -1, "mark the schema as being at version V without running anything")
	flag.StringVar(&opts.path, "path", "", "migrations directory (defaults to the configured path)")
	flag.Parse()

	chosen := 0
	for _, set := range []bool{opts.up, opts.down, opts.steps != 0, opts.version, opts.force >= 0} {
		if set {
			chosen++
		}
	}
	switch {
	case chosen == 0:
		flag.Usage()
		fmt.Fprintln(os.Stderr, "\none of -up, -down, -steps N, -version or -force V is required")
		return nil, errors.New("no action specified")
	case chosen > 1:
		return nil, errors.New("specify only one action at a time")
	}
	return opts, nil
}

func run() error {
	opts, err := parseFlags()
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Console output: this runs in a terminal, not behind a collector.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	})
	logger = logger.With().Str("component", "migrate").Logger()

	migrationDir := cfg.Database.MigrationPath
	if opts.path != "" {
		migrationDir = opts.path
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	migrator, err := database.NewMigrator(db, migrationDir, logger)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close migrator")
		}
	}()

	if err := apply(migrator, opts, logger); err != nil {
		return err
	}
	reportVersion(migrator, logger)
	return nil
}

func apply(migrator *database.Migrator, opts *options, logger zerolog.Logger) error {
	switch {
	case opts.up:
		logger.Info().Msg("applying pending migrations")
		if err := migrator.Up(); err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
	case opts.down:
		logger.Warn().Msg("rolling back all migrations")
		if err := migrator.Down(); err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
	case opts.steps != 0:
		logger.Info().Int("steps", opts.steps).Msg("applying migration steps")
		if err := migrator.Steps(opts.steps); err != nil {
			return fmt.Errorf("migrate steps: %w", err)
		}
	case opts.force >= 0:
		logger.Warn().Int("version", opts.force).Msg("forcing schema version")
		if err := migrator.Force(opts.force); err != nil {
			return fmt.Errorf("force version: %w", err)
		}
	}
	return nil
}

func reportVersion(migrator *database.Migrator, logger zerolog.Logger) {
	v, dirty, err := migrator.Version()
	if err != nil {
		logger.Warn().Err(err).Msg("could not determine schema version")
		return
	}
	logger.Info().
		Uint("version", v).
		Bool("dirty", dirty).
		Msg("current schema version")
}
