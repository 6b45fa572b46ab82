package repository

import (
	"context"

	"github.com/Midirushi/paper-recommendation-system/internal/domain"
)

// TrendRepository handles trend snapshot persistence. Snapshots are
// insert-only; readers always take the most recent one.
type TrendRepository interface {
	// SaveSnapshot inserts a trend snapshot.
	SaveSnapshot(ctx context.Context, snapshot *domain.TrendSnapshot) error

	// LatestSnapshot returns the most recently created snapshot, or
	// domain.ErrNotFound when no analysis has run yet.
	LatestSnapshot(ctx context.Context) (*domain.TrendSnapshot, error)
}
