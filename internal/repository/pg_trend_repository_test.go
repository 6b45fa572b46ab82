package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Midirushi/paper-recommendation-system/internal/domain"
)

func TestPgTrendRepository_SaveSnapshot(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgTrendRepository(mock)

	t.Run("saves snapshot", func(t *testing.T) {
		snapshot := &domain.TrendSnapshot{
			WindowStart: time.Now().AddDate(0, -3, 0),
			WindowEnd:   time.Now(),
			Clusters: []domain.TrendCluster{
				{Label: "Graph learning", PaperIDs: []uuid.UUID{uuid.New()}, Size: 1},
			},
		}

		mock.ExpectExec("INSERT INTO trend_snapshots").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, repo.SaveSnapshot(context.Background(), snapshot))
		assert.NotEqual(t, uuid.Nil, snapshot.ID)
		assert.False(t, snapshot.CreatedAt.IsZero())
	})

	t.Run("rejects empty snapshot", func(t *testing.T) {
		err := repo.SaveSnapshot(context.Background(), &domain.TrendSnapshot{})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgTrendRepository_LatestSnapshot(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgTrendRepository(mock)

	t.Run("found", func(t *testing.T) {
		id := uuid.New()
		rows := pgxmock.NewRows([]string{"id", "window_start", "window_end", "clusters", "summary", "created_at"}).
			AddRow(id, time.Now().AddDate(0, -3, 0), time.Now(),
				[]byte(`[{"label":"Graph learning","paper_ids":[],"size":12}]`),
				"one cluster", time.Now())

		mock.ExpectQuery("SELECT .* FROM trend_snapshots ORDER BY created_at DESC").
			WillReturnRows(rows)

		snapshot, err := repo.LatestSnapshot(context.Background())
		require.NoError(t, err)
		assert.Equal(t, id, snapshot.ID)
		require.Len(t, snapshot.Clusters, 1)
		assert.Equal(t, "Graph learning", snapshot.Clusters[0].Label)
		assert.Equal(t, 12, snapshot.Clusters[0].Size)
	})

	t.Run("none yet", func(t *testing.T) {
		mock.ExpectQuery("SELECT .* FROM trend_snapshots ORDER BY created_at DESC").
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.LatestSnapshot(context.Background())
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
