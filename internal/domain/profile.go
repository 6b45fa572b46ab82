package domain

import (
	"sort"
	"time"
)

// MaxProfileKeywords caps the keyword weight map in a user profile.
// When the cap is exceeded the lowest-weight entries are evicted.
const MaxProfileKeywords = 50

// UserProfile captures a user's research interests, folded from their
// interaction history.
type UserProfile struct {
	UserID string
	// KeywordWeights maps interest keywords to accumulated weights.
	KeywordWeights map[string]float64
	// Authors is the set of authors the user has interacted with.
	Authors map[string]struct{}
	// Journals is the set of journals the user has interacted with.
	Journals map[string]struct{}
	LastUpdated time.Time
}

// NewUserProfile creates an empty profile for the given user.
func NewUserProfile(userID string) *UserProfile {
	return &UserProfile{
		UserID:         userID,
		KeywordWeights: make(map[string]float64),
		Authors:        make(map[string]struct{}),
		Journals:       make(map[string]struct{}),
	}
}

// IsEmpty reports whether the profile carries no interest signal.
func (p *UserProfile) IsEmpty() bool {
	return p == nil || (len(p.KeywordWeights) == 0 && len(p.Authors) == 0 && len(p.Journals) == 0)
}

// TrimKeywords evicts the lowest-weight keywords until at most
// MaxProfileKeywords remain. Ties are broken alphabetically so the
// result is deterministic.
func (p *UserProfile) TrimKeywords() {
	if len(p.KeywordWeights) <= MaxProfileKeywords {
		return
	}

	type kw struct {
		word   string
		weight float64
	}
	all := make([]kw, 0, len(p.KeywordWeights))
	for w, wt := range p.KeywordWeights {
		all = append(all, kw{word: w, weight: wt})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].weight != all[j].weight {
			return all[i].weight > all[j].weight
		}
		return all[i].word < all[j].word
	})

	trimmed := make(map[string]float64, MaxProfileKeywords)
	for _, k := range all[:MaxProfileKeywords] {
		trimmed[k.word] = k.weight
	}
	p.KeywordWeights = trimmed
}
