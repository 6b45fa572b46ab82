// Package recommend builds user interest profiles from interaction
// events and serves personalized paper recommendations, falling back
// to trending papers for users without history.
package recommend

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Midirushi/paper-recommendation-system/internal/domain"
	"github.com/Midirushi/paper-recommendation-system/internal/observability"
)

// ProfileStore persists user profiles.
type ProfileStore interface {
	// Get loads a user's profile or returns domain.ErrNotFound.
	Get(ctx context.Context, userID string) (*domain.UserProfile, error)

	// Save upserts a profile.
	Save(ctx context.Context, profile *domain.UserProfile) error
}

// PaperGetter loads single papers.
type PaperGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Paper, error)
}

// RecommendInvalidator drops a user's cached recommendations.
type RecommendInvalidator interface {
	InvalidateRecommend(ctx context.Context, userID string)
}

// ProfileUpdater folds interaction events into user profiles.
type ProfileUpdater struct {
	profiles ProfileStore
	papers   PaperGetter
	cache    RecommendInvalidator
	logger   zerolog.Logger
	metrics  *observability.Metrics
}

// NewProfileUpdater creates a ProfileUpdater. cache may be nil when no
// recommendation cache is in use.
func NewProfileUpdater(profiles ProfileStore, papers PaperGetter, cache RecommendInvalidator, logger zerolog.Logger, metrics *observability.Metrics) *ProfileUpdater {
	return &ProfileUpdater{
		profiles: profiles,
		papers:   papers,
		cache:    cache,
		logger:   logger.With().Str("component", "profile_updater").Logger(),
		metrics:  metrics,
	}
}

// Apply folds one interaction event into the user's profile. A first
// event creates the profile. The paper's keywords gain the action's
// weight, and its authors and journal join the profile's sets. Stale
// cached recommendations for the user are invalidated afterwards.
func (u *ProfileUpdater) Apply(ctx context.Context, event domain.InteractionEvent) error {
	if !event.Action.IsValid() {
		return domain.NewValidationError("action", "unknown interaction action "+string(event.Action))
	}

	paper, err := u.papers.GetByID(ctx, event.PaperID)
	if err != nil {
		return err
	}

	profile, err := u.profiles.Get(ctx, event.UserID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		profile = domain.NewUserProfile(event.UserID)
	}

	FoldInteraction(profile, event.Action, paper)
	profile.LastUpdated = time.Now().UTC()

	if err := u.profiles.Save(ctx, profile); err != nil {
		return err
	}

	u.metrics.RecordProfileUpdate(string(event.Action))
	if u.cache != nil {
		u.cache.InvalidateRecommend(ctx, event.UserID)
	}

	u.logger.Debug().
		Str("user_id", event.UserID).
		Str("action", string(event.Action)).
		Int("profile_keywords", len(profile.KeywordWeights)).
		Msg("profile updated")
	return nil
}

// FoldInteraction adds one weighted interaction with a paper to the
// profile and trims the keyword set back to its cap.
func FoldInteraction(profile *domain.UserProfile, action domain.InteractionAction, paper *domain.Paper) {
	weight := action.Weight()

	for _, kw := range paper.Keywords {
		key := strings.ToLower(strings.TrimSpace(kw))
		if key == "" {
			continue
		}
		profile.KeywordWeights[key] += weight
	}
	for _, author := range paper.Authors {
		if author.Name != "" {
			profile.Authors[author.Name] = struct{}{}
		}
	}
	if paper.Journal != "" {
		profile.Journals[paper.Journal] = struct{}{}
	}

	profile.TrimKeywords()
}
