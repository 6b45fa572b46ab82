package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Midirushi/paper-recommendation-system/internal/domain"
)

// Compile-time interface verification.
var _ InteractionRepository = (*PgInteractionRepository)(nil)

// PgInteractionRepository is a PostgreSQL implementation of
// InteractionRepository.
type PgInteractionRepository struct {
	db DBTX
}

// NewPgInteractionRepository creates a new PostgreSQL interaction
// repository.
func NewPgInteractionRepository(db DBTX) *PgInteractionRepository {
	return &PgInteractionRepository{db: db}
}

// Insert appends one interaction event.
func (r *PgInteractionRepository) Insert(ctx context.Context, event *domain.InteractionEvent) error {
	if event == nil {
		return domain.NewValidationError("event", "event cannot be nil")
	}
	if event.UserID == "" {
		return domain.NewValidationError("user_id", "user ID is required")
	}
	if event.PaperID == uuid.Nil {
		return domain.NewValidationError("paper_id", "paper ID is required")
	}
	if !event.Action.IsValid() {
		return domain.NewValidationError("action", fmt.Sprintf("unsupported action %q", event.Action))
	}

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	timestamp := event.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	query := `
		INSERT INTO interaction_events (id, user_id, paper_id, action, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING`

	_, err := r.db.Exec(ctx, query, event.ID, event.UserID, event.PaperID, event.Action, timestamp)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return domain.NewNotFoundError("paper", event.PaperID.String())
		}
		return fmt.Errorf("failed to insert interaction event: %w", err)
	}

	return nil
}

// SeenPaperIDs returns the distinct papers the user has interacted
// with.
func (r *PgInteractionRepository) SeenPaperIDs(ctx context.Context, userID string) (map[uuid.UUID]struct{}, error) {
	if userID == "" {
		return nil, domain.NewValidationError("user_id", "user ID is required")
	}

	rows, err := r.db.Query(ctx,
		`SELECT DISTINCT paper_id FROM interaction_events WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query seen papers: %w", err)
	}
	defer rows.Close()

	seen := make(map[uuid.UUID]struct{})
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan seen paper ID: %w", err)
		}
		seen[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read seen paper rows: %w", err)
	}

	return seen, nil
}
