package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Midirushi/paper-recommendation-system/internal/domain"
)

// Compile-time interface verification.
var _ TrendRepository = (*PgTrendRepository)(nil)

// PgTrendRepository is a PostgreSQL implementation of TrendRepository.
// Clusters are stored as one JSONB document per snapshot.
type PgTrendRepository struct {
	db DBTX
}

// NewPgTrendRepository creates a new PostgreSQL trend repository.
func NewPgTrendRepository(db DBTX) *PgTrendRepository {
	return &PgTrendRepository{db: db}
}

// SaveSnapshot inserts a trend snapshot.
func (r *PgTrendRepository) SaveSnapshot(ctx context.Context, snapshot *domain.TrendSnapshot) error {
	if snapshot == nil {
		return domain.NewValidationError("snapshot", "snapshot cannot be nil")
	}
	if len(snapshot.Clusters) == 0 {
		return domain.NewValidationError("clusters", "snapshot must contain at least one cluster")
	}

	clustersJSON, err := json.Marshal(snapshot.Clusters)
	if err != nil {
		return fmt.Errorf("failed to marshal clusters: %w", err)
	}

	if snapshot.ID == uuid.Nil {
		snapshot.ID = uuid.New()
	}
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO trend_snapshots (id, window_start, window_end, clusters, summary, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err = r.db.Exec(ctx, query,
		snapshot.ID, snapshot.WindowStart, snapshot.WindowEnd,
		clustersJSON, snapshot.Summary, snapshot.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save trend snapshot: %w", err)
	}

	return nil
}

// LatestSnapshot returns the most recently created snapshot.
func (r *PgTrendRepository) LatestSnapshot(ctx context.Context) (*domain.TrendSnapshot, error) {
	query := `
		SELECT id, window_start, window_end, clusters, summary, created_at
		FROM trend_snapshots
		ORDER BY created_at DESC
		LIMIT 1`

	var (
		snapshot     domain.TrendSnapshot
		clustersJSON []byte
	)
	err := r.db.QueryRow(ctx, query).Scan(
		&snapshot.ID, &snapshot.WindowStart, &snapshot.WindowEnd,
		&clustersJSON, &snapshot.Summary, &snapshot.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("trend snapshot", "latest")
		}
		return nil, fmt.Errorf("failed to get latest trend snapshot: %w", err)
	}

	if err := json.Unmarshal(clustersJSON, &snapshot.Clusters); err != nil {
		return nil, fmt.Errorf("failed to unmarshal clusters: %w", err)
	}

	return &snapshot, nil
}
