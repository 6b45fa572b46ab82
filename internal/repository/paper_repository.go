package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Midirushi/paper-recommendation-system/internal/domain"
	"github.com/Midirushi/paper-recommendation-system/internal/vector"
)

// PaperRepository handles paper persistence, identity-keyed upserts,
// and vector similarity search.
type PaperRepository interface {
	// BulkUpsert inserts or updates papers keyed by canonical_id. An
	// existing row keeps its richest fields: text fields are only
	// overwritten by non-empty values and citation counts only grow.
	// Papers without a canonical ID are skipped. Returns the number of
	// rows written.
	BulkUpsert(ctx context.Context, papers []domain.Paper) (int, error)

	// GetByID retrieves a paper by its internal UUID, embedding
	// included. Returns domain.ErrNotFound if no matching paper exists.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Paper, error)

	// GetByCanonicalID retrieves a paper by its identity key.
	// Returns domain.ErrNotFound if no matching paper exists.
	GetByCanonicalID(ctx context.Context, canonicalID string) (*domain.Paper, error)

	// NearestNeighbors returns the papers whose embeddings are closest
	// to the query vector by L2 distance, nearest first. Papers without
	// an embedding never match. Filter predicates are pushed into the
	// query, so every returned neighbor satisfies them.
	NearestNeighbors(ctx context.Context, embedding []float32, limit int, filter vector.NeighborFilter) ([]vector.Neighbor, error)

	// SetEmbedding stores the embedding vector for a paper.
	SetEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error

	// ListMissingEmbeddings returns papers that have no embedding yet,
	// oldest first.
	ListMissingEmbeddings(ctx context.Context, limit int) ([]domain.Paper, error)

	// ListRecent returns papers published since the cutoff, newest
	// first.
	ListRecent(ctx context.Context, since time.Time, limit int) ([]domain.Paper, error)

	// Trending returns papers ordered by interaction count since the
	// cutoff, most interacted first.
	Trending(ctx context.Context, since time.Time, limit int) ([]domain.Paper, error)
}
