package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Midirushi/paper-recommendation-system/internal/domain"
)

// Compile-time interface verification.
var _ SearchLogRepository = (*PgSearchLogRepository)(nil)

// PgSearchLogRepository is a PostgreSQL implementation of
// SearchLogRepository.
type PgSearchLogRepository struct {
	db DBTX
}

// NewPgSearchLogRepository creates a new PostgreSQL search log
// repository.
func NewPgSearchLogRepository(db DBTX) *PgSearchLogRepository {
	return &PgSearchLogRepository{db: db}
}

// Append writes one search log entry.
func (r *PgSearchLogRepository) Append(ctx context.Context, log *domain.SearchLog) error {
	if log == nil {
		return domain.NewValidationError("log", "log cannot be nil")
	}
	if log.Query == "" {
		return domain.NewValidationError("query", "query is required")
	}

	intentJSON, err := json.Marshal(log.Intent)
	if err != nil {
		return fmt.Errorf("failed to marshal intent: %w", err)
	}

	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	createdAt := log.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	resultIDs := log.ResultIDs
	if resultIDs == nil {
		resultIDs = []uuid.UUID{}
	}

	query := `
		INSERT INTO search_logs (id, user_id, query, intent, result_count, result_ids, cache_hit, elapsed_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = r.db.Exec(ctx, query,
		log.ID, log.UserID, log.Query, intentJSON,
		log.ResultCount, resultIDs, log.CacheHit,
		log.Elapsed.Milliseconds(), createdAt)
	if err != nil {
		return fmt.Errorf("failed to append search log: %w", err)
	}

	return nil
}
