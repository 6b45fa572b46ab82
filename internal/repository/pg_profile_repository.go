package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Midirushi/paper-recommendation-system/internal/domain"
)

// Compile-time interface verification.
var _ ProfileRepository = (*PgProfileRepository)(nil)

// PgProfileRepository is a PostgreSQL implementation of
// ProfileRepository. Keyword weights and the author and journal sets
// are stored as JSONB.
type PgProfileRepository struct {
	db DBTX
}

// NewPgProfileRepository creates a new PostgreSQL profile repository.
func NewPgProfileRepository(db DBTX) *PgProfileRepository {
	return &PgProfileRepository{db: db}
}

// Get loads a user's profile.
func (r *PgProfileRepository) Get(ctx context.Context, userID string) (*domain.UserProfile, error) {
	if userID == "" {
		return nil, domain.NewValidationError("user_id", "user ID is required")
	}

	query := `
		SELECT user_id, keyword_weights, authors, journals, last_updated
		FROM user_profiles
		WHERE user_id = $1`

	var (
		profile      domain.UserProfile
		keywordsJSON []byte
		authorsJSON  []byte
		journalsJSON []byte
	)
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&profile.UserID, &keywordsJSON, &authorsJSON, &journalsJSON, &profile.LastUpdated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("profile", userID)
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	if err := json.Unmarshal(keywordsJSON, &profile.KeywordWeights); err != nil {
		return nil, fmt.Errorf("failed to unmarshal keyword weights: %w", err)
	}

	profile.Authors, err = unmarshalStringSet(authorsJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal authors: %w", err)
	}
	profile.Journals, err = unmarshalStringSet(journalsJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal journals: %w", err)
	}

	return &profile, nil
}

// Save upserts a profile.
func (r *PgProfileRepository) Save(ctx context.Context, profile *domain.UserProfile) error {
	if profile == nil || profile.UserID == "" {
		return domain.NewValidationError("user_id", "user ID is required")
	}

	keywordsJSON, err := json.Marshal(profile.KeywordWeights)
	if err != nil {
		return fmt.Errorf("failed to marshal keyword weights: %w", err)
	}
	authorsJSON, err := marshalStringSet(profile.Authors)
	if err != nil {
		return fmt.Errorf("failed to marshal authors: %w", err)
	}
	journalsJSON, err := marshalStringSet(profile.Journals)
	if err != nil {
		return fmt.Errorf("failed to marshal journals: %w", err)
	}

	lastUpdated := profile.LastUpdated
	if lastUpdated.IsZero() {
		lastUpdated = time.Now().UTC()
	}

	query := `
		INSERT INTO user_profiles (user_id, keyword_weights, authors, journals, last_updated)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			keyword_weights = EXCLUDED.keyword_weights,
			authors = EXCLUDED.authors,
			journals = EXCLUDED.journals,
			last_updated = EXCLUDED.last_updated`

	if _, err := r.db.Exec(ctx, query, profile.UserID, keywordsJSON, authorsJSON, journalsJSON, lastUpdated); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	return nil
}

// marshalStringSet stores a set as a sorted JSON array so repeated
// saves of the same set produce identical rows.
func marshalStringSet(set map[string]struct{}) ([]byte, error) {
	items := make([]string, 0, len(set))
	for item := range set {
		items = append(items, item)
	}
	sort.Strings(items)
	return json.Marshal(items)
}

func unmarshalStringSet(payload []byte) (map[string]struct{}, error) {
	set := make(map[string]struct{})
	if len(payload) == 0 {
		return set, nil
	}

	var items []string
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, err
	}
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set, nil
}
