package domain

import (
	"time"

	"github.com/google/uuid"
)

// SearchLog records one executed search for usage statistics. Appended
// best-effort; a failed append never fails the search.
type SearchLog struct {
	ID          uuid.UUID
	UserID      string
	Query       string
	Intent      SearchIntent
	ResultCount int
	ResultIDs   []uuid.UUID
	CacheHit    bool
	Elapsed     time.Duration
	CreatedAt   time.Time
}
