package repository

import (
	"context"

	"github.com/Midirushi/paper-recommendation-system/internal/domain"
)

// ProfileRepository handles user interest profile persistence.
type ProfileRepository interface {
	// Get loads a user's profile. Returns domain.ErrNotFound when the
	// user has no profile yet.
	Get(ctx context.Context, userID string) (*domain.UserProfile, error)

	// Save upserts a profile keyed by user ID.
	Save(ctx context.Context, profile *domain.UserProfile) error
}
