package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Midirushi/paper-recommendation-system/internal/domain"
	"github.com/Midirushi/paper-recommendation-system/internal/vector"
)

var paperColumnNames = []string{
	"id", "canonical_id", "title", "abstract", "authors", "journal",
	"publish_date", "source", "doi", "source_url", "citation_count", "keywords",
	"embedding", "created_at", "updated_at",
}

func newTestPaper() domain.Paper {
	published := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return domain.Paper{
		ID:          uuid.New(),
		CanonicalID: "doi:10.1234/test.paper",
		Title:       "Test Paper Title",
		Abstract:    "A test abstract.",
		Authors: []domain.Author{
			{Name: "Jane Smith", Affiliation: "Test University"},
		},
		Journal:       "Test Journal",
		PublishDate:   &published,
		Source:        domain.SourceArXiv,
		DOI:           "10.1234/test.paper",
		SourceURL:     "https://example.org/paper",
		CitationCount: 10,
		Keywords:      []string{"testing"},
	}
}

func paperRow(t *testing.T, paper domain.Paper) []interface{} {
	t.Helper()
	authorsJSON, err := json.Marshal(paper.Authors)
	require.NoError(t, err)

	var embedding *pgvector.Vector
	if paper.HasEmbedding() {
		vec := pgvector.NewVector(paper.Embedding)
		embedding = &vec
	}

	now := time.Now().UTC()
	return []interface{}{
		paper.ID, paper.CanonicalID, paper.Title, paper.Abstract, authorsJSON,
		paper.Journal, paper.PublishDate, paper.Source, paper.DOI, paper.SourceURL,
		paper.CitationCount, paper.Keywords, embedding, now, now,
	}
}

func TestPgPaperRepository_BulkUpsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgPaperRepository(mock)

	papers := []domain.Paper{newTestPaper(), newTestPaper()}
	papers[1].CanonicalID = "doi:10.1234/other.paper"

	batch := mock.ExpectBatch()
	batch.ExpectExec("INSERT INTO papers").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	batch.ExpectExec("INSERT INTO papers").WillReturnResult(pgxmock.NewResult("INSERT", 1))

	written, err := repo.BulkUpsert(context.Background(), papers)
	require.NoError(t, err)
	assert.Equal(t, 2, written)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgPaperRepository_BulkUpsert_SkipsUnidentifiablePapers(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgPaperRepository(mock)

	// No DOI, no title: no identity, nothing to write.
	written, err := repo.BulkUpsert(context.Background(), []domain.Paper{{Abstract: "orphan"}})
	require.NoError(t, err)
	assert.Equal(t, 0, written)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgPaperRepository_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgPaperRepository(mock)

	t.Run("found", func(t *testing.T) {
		paper := newTestPaper()
		paper.Embedding = []float32{0.1, 0.2, 0.3}

		mock.ExpectQuery("SELECT .* FROM papers WHERE id = \\$1").
			WithArgs(paper.ID).
			WillReturnRows(pgxmock.NewRows(paperColumnNames).AddRow(paperRow(t, paper)...))

		got, err := repo.GetByID(context.Background(), paper.ID)
		require.NoError(t, err)
		assert.Equal(t, paper.CanonicalID, got.CanonicalID)
		assert.Equal(t, paper.Title, got.Title)
		require.Len(t, got.Authors, 1)
		assert.Equal(t, "Jane Smith", got.Authors[0].Name)
		assert.Equal(t, []float32{0.1, 0.2, 0.3}, got.Embedding)
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.New()
		mock.ExpectQuery("SELECT .* FROM papers WHERE id = \\$1").
			WithArgs(id).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetByID(context.Background(), id)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgPaperRepository_GetByCanonicalID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgPaperRepository(mock)

	t.Run("empty canonical ID", func(t *testing.T) {
		_, err := repo.GetByCanonicalID(context.Background(), "")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("found", func(t *testing.T) {
		paper := newTestPaper()
		mock.ExpectQuery("SELECT .* FROM papers WHERE canonical_id = \\$1").
			WithArgs(paper.CanonicalID).
			WillReturnRows(pgxmock.NewRows(paperColumnNames).AddRow(paperRow(t, paper)...))

		got, err := repo.GetByCanonicalID(context.Background(), paper.CanonicalID)
		require.NoError(t, err)
		assert.Equal(t, paper.ID, got.ID)
		assert.Empty(t, got.Embedding)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgPaperRepository_NearestNeighbors(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgPaperRepository(mock)

	t.Run("empty embedding rejected", func(t *testing.T) {
		_, err := repo.NearestNeighbors(context.Background(), nil, 10, vector.NeighborFilter{})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("returns ordered neighbors", func(t *testing.T) {
		near := newTestPaper()
		near.Embedding = []float32{1, 0}
		far := newTestPaper()
		far.CanonicalID = "doi:10.1234/far"
		far.Embedding = []float32{0, 1}

		columns := append(append([]string{}, paperColumnNames...), "distance")
		rows := pgxmock.NewRows(columns).
			AddRow(append(paperRow(t, near), 0.12)...).
			AddRow(append(paperRow(t, far), 0.87)...)

		mock.ExpectQuery("SELECT .* FROM papers WHERE embedding IS NOT NULL").
			WithArgs(pgvector.NewVector([]float32{1, 0}), 10).
			WillReturnRows(rows)

		neighbors, err := repo.NearestNeighbors(context.Background(), []float32{1, 0}, 10, vector.NeighborFilter{})
		require.NoError(t, err)
		require.Len(t, neighbors, 2)
		assert.InDelta(t, 0.12, neighbors[0].Distance, 1e-9)
		assert.Equal(t, near.ID, neighbors[0].Paper.ID)
	})

	t.Run("filter predicates join the WHERE clause", func(t *testing.T) {
		excluded := uuid.New()
		from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		filter := vector.NeighborFilter{
			Exclude:       excluded,
			PublishedFrom: &from,
			Source:        domain.SourceArXiv,
			MinCitations:  25,
		}

		columns := append(append([]string{}, paperColumnNames...), "distance")
		mock.ExpectQuery(`WHERE embedding IS NOT NULL AND id <> \$2 AND publish_date >= \$3 AND source = \$4 AND citation_count >= \$5`).
			WithArgs(pgvector.NewVector([]float32{1, 0}), excluded, from, domain.SourceArXiv, 25, 5).
			WillReturnRows(pgxmock.NewRows(columns).AddRow(append(paperRow(t, newTestPaper()), 0.3)...))

		neighbors, err := repo.NearestNeighbors(context.Background(), []float32{1, 0}, 5, filter)
		require.NoError(t, err)
		assert.Len(t, neighbors, 1)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgPaperRepository_SetEmbedding(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgPaperRepository(mock)
	id := uuid.New()

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec("UPDATE papers SET embedding").
			WithArgs(pgvector.NewVector([]float32{0.5}), id).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, repo.SetEmbedding(context.Background(), id, []float32{0.5}))
	})

	t.Run("missing paper", func(t *testing.T) {
		mock.ExpectExec("UPDATE papers SET embedding").
			WithArgs(pgvector.NewVector([]float32{0.5}), id).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.SetEmbedding(context.Background(), id, []float32{0.5})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("empty embedding rejected", func(t *testing.T) {
		err := repo.SetEmbedding(context.Background(), id, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgPaperRepository_ListRecent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgPaperRepository(mock)
	since := time.Now().AddDate(0, -3, 0)

	mock.ExpectQuery("SELECT .* FROM papers WHERE publish_date >= \\$1").
		WithArgs(since, 50).
		WillReturnRows(pgxmock.NewRows(paperColumnNames).AddRow(paperRow(t, newTestPaper())...))

	papers, err := repo.ListRecent(context.Background(), since, 50)
	require.NoError(t, err)
	assert.Len(t, papers, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgPaperRepository_Trending(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgPaperRepository(mock)
	since := time.Now().AddDate(0, 0, -7)

	mock.ExpectQuery("SELECT .* FROM papers p INNER JOIN interaction_events e").
		WithArgs(since, 20).
		WillReturnRows(pgxmock.NewRows(paperColumnNames).AddRow(paperRow(t, newTestPaper())...))

	papers, err := repo.Trending(context.Background(), since, 20)
	require.NoError(t, err)
	assert.Len(t, papers, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgPaperRepository_ListMissingEmbeddings(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgPaperRepository(mock)

	mock.ExpectQuery("SELECT .* FROM papers WHERE embedding IS NULL").
		WithArgs(100).
		WillReturnRows(pgxmock.NewRows(paperColumnNames).AddRow(paperRow(t, newTestPaper())...))

	papers, err := repo.ListMissingEmbeddings(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, papers, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
