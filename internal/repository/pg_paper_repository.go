package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/Midirushi/paper-recommendation-system/internal/domain"
	"github.com/Midirushi/paper-recommendation-system/internal/vector"
)

// Compile-time interface verification.
var _ PaperRepository = (*PgPaperRepository)(nil)

// PgPaperRepository is a PostgreSQL implementation of PaperRepository.
type PgPaperRepository struct {
	db DBTX
}

// NewPgPaperRepository creates a new PostgreSQL paper repository.
func NewPgPaperRepository(db DBTX) *PgPaperRepository {
	return &PgPaperRepository{db: db}
}

const paperColumns = `id, canonical_id, title, abstract, authors, journal,
	publish_date, source, doi, source_url, citation_count, keywords,
	embedding, created_at, updated_at`

// upsertPaperQuery keeps the richest value for every field: text fields
// only give way to non-empty replacements and citation counts only
// grow. The embedding column is never touched here so a merge cannot
// wipe a computed vector.
const upsertPaperQuery = `
	INSERT INTO papers (
		id, canonical_id, title, abstract, authors, journal,
		publish_date, source, doi, source_url, citation_count, keywords,
		created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
	)
	ON CONFLICT (canonical_id) DO UPDATE SET
		title = CASE WHEN EXCLUDED.title <> '' THEN EXCLUDED.title ELSE papers.title END,
		abstract = COALESCE(NULLIF(EXCLUDED.abstract, ''), papers.abstract),
		authors = CASE WHEN jsonb_array_length(EXCLUDED.authors) > 0 THEN EXCLUDED.authors ELSE papers.authors END,
		journal = COALESCE(NULLIF(EXCLUDED.journal, ''), papers.journal),
		publish_date = COALESCE(EXCLUDED.publish_date, papers.publish_date),
		doi = COALESCE(NULLIF(EXCLUDED.doi, ''), papers.doi),
		source_url = COALESCE(NULLIF(EXCLUDED.source_url, ''), papers.source_url),
		citation_count = GREATEST(EXCLUDED.citation_count, papers.citation_count),
		keywords = CASE WHEN cardinality(EXCLUDED.keywords) > 0 THEN EXCLUDED.keywords ELSE papers.keywords END,
		updated_at = NOW()`

// BulkUpsert writes papers in one batch round trip.
func (r *PgPaperRepository) BulkUpsert(ctx context.Context, papers []domain.Paper) (int, error) {
	batch := &pgx.Batch{}
	now := time.Now().UTC()
	queued := 0

	for i := range papers {
		paper := &papers[i]
		if paper.CanonicalID == "" {
			paper.CanonicalID = paper.IdentityKey()
		}
		if paper.CanonicalID == "" {
			continue
		}
		if paper.ID == uuid.Nil {
			paper.ID = uuid.New()
		}

		authorsJSON, err := json.Marshal(paper.Authors)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal authors: %w", err)
		}

		keywords := paper.Keywords
		if keywords == nil {
			keywords = []string{}
		}

		batch.Queue(upsertPaperQuery,
			paper.ID,
			paper.CanonicalID,
			paper.Title,
			paper.Abstract,
			authorsJSON,
			paper.Journal,
			paper.PublishDate,
			paper.Source,
			paper.DOI,
			paper.SourceURL,
			paper.CitationCount,
			keywords,
			now,
			now,
		)
		queued++
	}

	if queued == 0 {
		return 0, nil
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	written := 0
	for i := 0; i < queued; i++ {
		if _, err := results.Exec(); err != nil {
			return written, fmt.Errorf("failed to upsert paper batch entry %d: %w", i, err)
		}
		written++
	}

	return written, nil
}

// GetByID retrieves a paper by its UUID.
func (r *PgPaperRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Paper, error) {
	query := `SELECT ` + paperColumns + ` FROM papers WHERE id = $1`

	paper, err := scanPaper(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("paper", id.String())
		}
		return nil, fmt.Errorf("failed to get paper by ID: %w", err)
	}

	return paper, nil
}

// GetByCanonicalID retrieves a paper by its identity key.
func (r *PgPaperRepository) GetByCanonicalID(ctx context.Context, canonicalID string) (*domain.Paper, error) {
	if canonicalID == "" {
		return nil, domain.NewValidationError("canonical_id", "canonical ID is required")
	}

	query := `SELECT ` + paperColumns + ` FROM papers WHERE canonical_id = $1`

	paper, err := scanPaper(r.db.QueryRow(ctx, query, canonicalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("paper", canonicalID)
		}
		return nil, fmt.Errorf("failed to get paper by canonical ID: %w", err)
	}

	return paper, nil
}

// NearestNeighbors runs a pgvector L2 nearest-neighbor query. Filter
// predicates go into the WHERE clause so they restrict the candidate
// set before the distance ordering, never the k results after it.
func (r *PgPaperRepository) NearestNeighbors(ctx context.Context, embedding []float32, limit int, filter vector.NeighborFilter) ([]vector.Neighbor, error) {
	if len(embedding) == 0 {
		return nil, domain.NewValidationError("embedding", "embedding is required")
	}
	limit = clampLimit(limit)

	conditions := []string{"embedding IS NOT NULL"}
	args := []interface{}{pgvector.NewVector(embedding)}
	if filter.Exclude != uuid.Nil {
		args = append(args, filter.Exclude)
		conditions = append(conditions, fmt.Sprintf("id <> $%d", len(args)))
	}
	if filter.PublishedFrom != nil {
		args = append(args, *filter.PublishedFrom)
		conditions = append(conditions, fmt.Sprintf("publish_date >= $%d", len(args)))
	}
	if filter.Source != "" {
		args = append(args, filter.Source)
		conditions = append(conditions, fmt.Sprintf("source = $%d", len(args)))
	}
	if filter.MinCitations > 0 {
		args = append(args, filter.MinCitations)
		conditions = append(conditions, fmt.Sprintf("citation_count >= $%d", len(args)))
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT `+paperColumns+`, embedding <-> $1 AS distance
		FROM papers
		WHERE %s
		ORDER BY embedding <-> $1
		LIMIT $%d`, strings.Join(conditions, " AND "), len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query nearest neighbors: %w", err)
	}
	defer rows.Close()

	var neighbors []vector.Neighbor
	for rows.Next() {
		var dest paperScanDest
		var distance float64
		if err := rows.Scan(append(dest.destinations(), &distance)...); err != nil {
			return nil, fmt.Errorf("failed to scan neighbor row: %w", err)
		}
		paper, err := dest.finalize()
		if err != nil {
			return nil, err
		}
		neighbors = append(neighbors, vector.Neighbor{Paper: *paper, Distance: distance})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read neighbor rows: %w", err)
	}

	return neighbors, nil
}

// SetEmbedding stores the embedding vector for a paper.
func (r *PgPaperRepository) SetEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error {
	if len(embedding) == 0 {
		return domain.NewValidationError("embedding", "embedding is required")
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE papers SET embedding = $1, updated_at = NOW() WHERE id = $2`,
		pgvector.NewVector(embedding), id)
	if err != nil {
		return fmt.Errorf("failed to set embedding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("paper", id.String())
	}

	return nil
}

// ListMissingEmbeddings returns papers without an embedding, oldest
// first.
func (r *PgPaperRepository) ListMissingEmbeddings(ctx context.Context, limit int) ([]domain.Paper, error) {
	query := `
		SELECT ` + paperColumns + `
		FROM papers
		WHERE embedding IS NULL
		ORDER BY created_at ASC
		LIMIT $1`

	return r.listPapers(ctx, query, clampLimit(limit))
}

// ListRecent returns papers published since the cutoff, newest first.
func (r *PgPaperRepository) ListRecent(ctx context.Context, since time.Time, limit int) ([]domain.Paper, error) {
	query := `
		SELECT ` + paperColumns + `
		FROM papers
		WHERE publish_date >= $1
		ORDER BY publish_date DESC
		LIMIT $2`

	return r.listPapers(ctx, query, since, clampLimit(limit))
}

// Trending returns papers ordered by interaction count since the
// cutoff.
func (r *PgPaperRepository) Trending(ctx context.Context, since time.Time, limit int) ([]domain.Paper, error) {
	query := `
		SELECT p.id, p.canonical_id, p.title, p.abstract, p.authors, p.journal,
			p.publish_date, p.source, p.doi, p.source_url, p.citation_count, p.keywords,
			p.embedding, p.created_at, p.updated_at
		FROM papers p
		INNER JOIN interaction_events e ON e.paper_id = p.id
		WHERE e.created_at >= $1
		GROUP BY p.id
		ORDER BY COUNT(e.id) DESC, MAX(e.created_at) DESC
		LIMIT $2`

	return r.listPapers(ctx, query, since, clampLimit(limit))
}

func (r *PgPaperRepository) listPapers(ctx context.Context, query string, args ...interface{}) ([]domain.Paper, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list papers: %w", err)
	}
	defer rows.Close()

	var papers []domain.Paper
	for rows.Next() {
		paper, err := scanPaperFromRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan paper row: %w", err)
		}
		papers = append(papers, *paper)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read paper rows: %w", err)
	}

	return papers, nil
}

// paperScanDest holds the destination pointers for scanning a paper
// row.
type paperScanDest struct {
	paper       domain.Paper
	authorsJSON []byte
	embedding   *pgvector.Vector
}

// destinations returns the pointer slice for Scan, in paperColumns
// order.
func (d *paperScanDest) destinations() []interface{} {
	return []interface{}{
		&d.paper.ID, &d.paper.CanonicalID, &d.paper.Title, &d.paper.Abstract, &d.authorsJSON,
		&d.paper.Journal, &d.paper.PublishDate, &d.paper.Source, &d.paper.DOI, &d.paper.SourceURL,
		&d.paper.CitationCount, &d.paper.Keywords, &d.embedding,
		&d.paper.CreatedAt, &d.paper.UpdatedAt,
	}
}

// finalize unpacks the JSON and vector fields after a scan.
func (d *paperScanDest) finalize() (*domain.Paper, error) {
	if len(d.authorsJSON) > 0 {
		if err := json.Unmarshal(d.authorsJSON, &d.paper.Authors); err != nil {
			return nil, fmt.Errorf("failed to unmarshal authors: %w", err)
		}
	}
	if d.embedding != nil {
		d.paper.Embedding = d.embedding.Slice()
	}
	return &d.paper, nil
}

// scanPaper scans a single row into a Paper.
func scanPaper(row pgx.Row) (*domain.Paper, error) {
	var dest paperScanDest
	if err := row.Scan(dest.destinations()...); err != nil {
		return nil, err
	}
	return dest.finalize()
}

// scanPaperFromRows scans the current row from pgx.Rows into a Paper.
func scanPaperFromRows(rows pgx.Rows) (*domain.Paper, error) {
	var dest paperScanDest
	if err := rows.Scan(dest.destinations()...); err != nil {
		return nil, err
	}
	return dest.finalize()
}
