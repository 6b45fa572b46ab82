package repository

import (
	"context"

	"github.com/Midirushi/paper-recommendation-system/internal/domain"
)

// SearchLogRepository records executed searches for usage statistics.
type SearchLogRepository interface {
	// Append writes one search log entry.
	Append(ctx context.Context, log *domain.SearchLog) error
}
