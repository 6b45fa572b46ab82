package vector

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Midirushi/paper-recommendation-system/internal/domain"
)

// Neighbor is one nearest-neighbor hit with its raw L2 distance.
type Neighbor struct {
	Paper    domain.Paper
	Distance float64
}

// SimilarPaper is a neighbor with the distance converted to a
// similarity score.
type SimilarPaper struct {
	Paper      domain.Paper
	Similarity float64
}

// NeighborFilter restricts a nearest-neighbor query. Predicates apply
// inside the store query, before the distance ordering, so all k
// returned neighbors satisfy them. Zero values leave a predicate off.
type NeighborFilter struct {
	// Exclude drops one paper from the results, typically the anchor.
	Exclude uuid.UUID

	// PublishedFrom keeps papers published on or after this date.
	PublishedFrom *time.Time

	// Source keeps papers from one source only.
	Source domain.Source

	// MinCitations keeps papers with at least this many citations.
	MinCitations int
}

// PaperStore is the storage access the engine needs.
type PaperStore interface {
	// GetByID loads one paper or returns domain.ErrNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Paper, error)

	// NearestNeighbors returns the papers closest to embedding by L2
	// distance, nearest first, restricted by filter.
	NearestNeighbors(ctx context.Context, embedding []float32, limit int, filter NeighborFilter) ([]Neighbor, error)
}

// Engine answers similarity queries over the paper store's embeddings.
type Engine struct {
	store PaperStore
}

// NewEngine creates an Engine backed by store.
func NewEngine(store PaperStore) *Engine {
	return &Engine{store: store}
}

// SimilarTo returns papers similar to the given one, most similar
// first. Papers without a stored embedding cannot anchor a similarity
// query.
func (e *Engine) SimilarTo(ctx context.Context, paperID uuid.UUID, limit int) ([]SimilarPaper, error) {
	paper, err := e.store.GetByID(ctx, paperID)
	if err != nil {
		return nil, err
	}
	if !paper.HasEmbedding() {
		return nil, fmt.Errorf("paper %s has no embedding: %w", paperID, domain.ErrEmbeddingUnavailable)
	}

	return e.Nearest(ctx, paper.Embedding, limit, NeighborFilter{Exclude: paperID})
}

// Nearest returns the papers closest to the embedding with distances
// converted to similarity scores.
func (e *Engine) Nearest(ctx context.Context, embedding []float32, limit int, filter NeighborFilter) ([]SimilarPaper, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit %d: %w", limit, domain.ErrInvalidInput)
	}

	neighbors, err := e.store.NearestNeighbors(ctx, embedding, limit, filter)
	if err != nil {
		return nil, fmt.Errorf("nearest neighbor query: %w", err)
	}

	out := make([]SimilarPaper, len(neighbors))
	for i, nb := range neighbors {
		out[i] = SimilarPaper{
			Paper:      nb.Paper,
			Similarity: Similarity(nb.Distance),
		}
	}
	return out, nil
}
