package vector

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Midirushi/paper-recommendation-system/internal/domain"
)

type fakePaperStore struct {
	papers    map[uuid.UUID]*domain.Paper
	neighbors []Neighbor
	gotLimit  int
	gotFilter NeighborFilter
}

func (f *fakePaperStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Paper, error) {
	if p, ok := f.papers[id]; ok {
		return p, nil
	}
	return nil, domain.NewNotFoundError("paper", id.String())
}

func (f *fakePaperStore) NearestNeighbors(ctx context.Context, embedding []float32, limit int, filter NeighborFilter) ([]Neighbor, error) {
	f.gotLimit = limit
	f.gotFilter = filter
	return f.neighbors, nil
}

func TestEngine_SimilarTo(t *testing.T) {
	t.Parallel()

	anchor := uuid.New()
	store := &fakePaperStore{
		papers: map[uuid.UUID]*domain.Paper{
			anchor: {ID: anchor, Title: "Anchor", Embedding: []float32{1, 2, 3}},
		},
		neighbors: []Neighbor{
			{Paper: domain.Paper{Title: "Closest"}, Distance: 0.0},
			{Paper: domain.Paper{Title: "Near"}, Distance: 1.0},
			{Paper: domain.Paper{Title: "Far"}, Distance: 3.0},
		},
	}
	engine := NewEngine(store)

	similar, err := engine.SimilarTo(context.Background(), anchor, 3)
	require.NoError(t, err)
	require.Len(t, similar, 3)

	assert.Equal(t, "Closest", similar[0].Paper.Title)
	assert.Equal(t, 1.0, similar[0].Similarity)
	assert.Equal(t, 0.5, similar[1].Similarity)
	assert.Equal(t, 0.25, similar[2].Similarity)

	assert.Equal(t, 3, store.gotLimit)
	assert.Equal(t, anchor, store.gotFilter.Exclude)
}

func TestEngine_Nearest_PassesFilterToStore(t *testing.T) {
	t.Parallel()

	store := &fakePaperStore{}
	engine := NewEngine(store)

	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	filter := NeighborFilter{
		PublishedFrom: &from,
		Source:        domain.SourceArXiv,
		MinCitations:  5,
	}

	_, err := engine.Nearest(context.Background(), []float32{1, 2}, 10, filter)
	require.NoError(t, err)

	assert.Equal(t, filter, store.gotFilter)
}

func TestEngine_SimilarTo_NotFound(t *testing.T) {
	t.Parallel()

	engine := NewEngine(&fakePaperStore{papers: map[uuid.UUID]*domain.Paper{}})

	_, err := engine.SimilarTo(context.Background(), uuid.New(), 5)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEngine_SimilarTo_NoEmbedding(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	store := &fakePaperStore{
		papers: map[uuid.UUID]*domain.Paper{
			id: {ID: id, Title: "No vector"},
		},
	}
	engine := NewEngine(store)

	_, err := engine.SimilarTo(context.Background(), id, 5)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestEngine_Nearest_InvalidLimit(t *testing.T) {
	t.Parallel()

	engine := NewEngine(&fakePaperStore{})

	_, err := engine.Nearest(context.Background(), []float32{1}, 0, NeighborFilter{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
