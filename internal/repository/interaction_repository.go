package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/Midirushi/paper-recommendation-system/internal/domain"
)

// InteractionRepository handles the append-only interaction event log.
type InteractionRepository interface {
	// Insert appends one interaction event. Re-inserting an event with
	// an already-recorded ID is a no-op, so event delivery can be
	// at-least-once.
	Insert(ctx context.Context, event *domain.InteractionEvent) error

	// SeenPaperIDs returns the set of papers the user has interacted
	// with, for recommendation exclusion.
	SeenPaperIDs(ctx context.Context, userID string) (map[uuid.UUID]struct{}, error)
}
