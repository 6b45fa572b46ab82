package recommend

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Midirushi/paper-recommendation-system/internal/config"
	"github.com/Midirushi/paper-recommendation-system/internal/domain"
)

// Scorer computes how well a paper matches a user profile. The score
// combines keyword, author, journal, citation, and recency signals on
// a 0-10 scale; the signal weights come from configuration and sum
// to 1.
type Scorer struct {
	keywordWeight  float64
	authorWeight   float64
	journalWeight  float64
	citationWeight float64
	recencyWeight  float64
	citationCap    int
}

// NewScorer creates a Scorer from recommendation tuning.
func NewScorer(cfg config.RecommendConfig) *Scorer {
	citationCap := cfg.CitationCap
	if citationCap <= 0 {
		citationCap = 100
	}
	return &Scorer{
		keywordWeight:  cfg.KeywordWeight,
		authorWeight:   cfg.AuthorWeight,
		journalWeight:  cfg.JournalWeight,
		citationWeight: cfg.CitationWeight,
		recencyWeight:  cfg.RecencyWeight,
		citationCap:    citationCap,
	}
}

// signal is one scored component with its display name.
type signal struct {
	name     string
	weighted float64
	reason   string
}

// Score rates the paper against the profile on a 0-10 scale and
// returns a short reason naming the dominant signals.
func (s *Scorer) Score(profile *domain.UserProfile, paper *domain.Paper, now time.Time) (float64, string) {
	kwComponent, matched := s.keywordComponent(profile, paper)
	authorComponent := s.authorComponent(profile, paper)
	journalComponent := 0.0
	if paper.Journal != "" {
		if _, ok := profile.Journals[paper.Journal]; ok {
			journalComponent = 1.0
		}
	}
	citationComponent := s.citationComponent(paper.CitationCount)
	recencyComponent := recencyScore(paper, now)

	signals := []signal{
		{"keywords", s.keywordWeight * kwComponent, keywordReason(matched)},
		{"authors", s.authorWeight * authorComponent, "by an author you follow"},
		{"journal", s.journalWeight * journalComponent, "from " + paper.Journal},
		{"citations", s.citationWeight * citationComponent, "highly cited"},
		{"recency", s.recencyWeight * recencyComponent, "recently published"},
	}

	total := 0.0
	for _, sig := range signals {
		total += sig.weighted
	}

	return math.Round(total*100) / 10, buildReason(signals)
}

// keywordComponent measures how much of the profile's interest weight
// the paper's keywords cover. Returns the component in [0,1] and the
// matched keywords ordered by profile weight.
func (s *Scorer) keywordComponent(profile *domain.UserProfile, paper *domain.Paper) (float64, []string) {
	if len(profile.KeywordWeights) == 0 || len(paper.Keywords) == 0 {
		return 0, nil
	}

	totalWeight := 0.0
	for _, w := range profile.KeywordWeights {
		totalWeight += w
	}
	if totalWeight == 0 {
		return 0, nil
	}

	matchedWeight := 0.0
	var matched []string
	seen := make(map[string]struct{})
	for _, kw := range paper.Keywords {
		key := strings.ToLower(strings.TrimSpace(kw))
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if w, ok := profile.KeywordWeights[key]; ok {
			matchedWeight += w
			matched = append(matched, key)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		wi, wj := profile.KeywordWeights[matched[i]], profile.KeywordWeights[matched[j]]
		if wi != wj {
			return wi > wj
		}
		return matched[i] < matched[j]
	})

	component := matchedWeight / totalWeight
	if component > 1 {
		component = 1
	}
	return component, matched
}

func (s *Scorer) authorComponent(profile *domain.UserProfile, paper *domain.Paper) float64 {
	if len(profile.Authors) == 0 || len(paper.Authors) == 0 {
		return 0
	}
	for _, author := range paper.Authors {
		if _, ok := profile.Authors[author.Name]; ok {
			return 1.0
		}
	}
	return 0
}

// citationComponent maps a citation count into [0,1] on a log scale,
// saturating at the cap.
func (s *Scorer) citationComponent(citations int) float64 {
	if citations <= 0 {
		return 0
	}
	component := math.Log1p(float64(citations)) / math.Log1p(float64(s.citationCap))
	if component > 1 {
		component = 1
	}
	return component
}

// recencyScore decays linearly from 1 at publication to 0 after a year.
func recencyScore(paper *domain.Paper, now time.Time) float64 {
	days := paper.AgeDays(now)
	if days < 0 {
		return 0
	}
	score := 1.0 - float64(days)/365.0
	if score < 0 {
		return 0
	}
	return score
}

func keywordReason(matched []string) string {
	if len(matched) == 0 {
		return ""
	}
	if len(matched) > 3 {
		matched = matched[:3]
	}
	return "matches your interests: " + strings.Join(matched, ", ")
}

// buildReason joins the reasons of the up-to-three strongest signals.
func buildReason(signals []signal) string {
	sort.SliceStable(signals, func(i, j int) bool {
		return signals[i].weighted > signals[j].weighted
	})

	var parts []string
	for _, sig := range signals {
		if sig.weighted <= 0 || sig.reason == "" {
			continue
		}
		parts = append(parts, sig.reason)
		if len(parts) == 3 {
			break
		}
	}
	if len(parts) == 0 {
		return "broadly popular right now"
	}
	return strings.Join(parts, "; ")
}
