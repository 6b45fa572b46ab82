// Package dedup merges duplicate papers that arrive from multiple
// sources. Matching runs in three tiers: exact DOI, exact normalized
// title, then fuzzy title token overlap confirmed by author overlap.
package dedup

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/Midirushi/paper-recommendation-system/internal/domain"
)

// Default matching thresholds.
const (
	// DefaultTitleOverlapThreshold is the minimum token-set overlap for
	// two titles to be considered the same work.
	DefaultTitleOverlapThreshold = 0.9

	// DefaultAuthorOverlapThreshold is the author overlap required to
	// confirm a fuzzy title match when both papers carry authors.
	DefaultAuthorOverlapThreshold = 0.5

	// DefaultMaxTokenDistance is the per-token edit distance tolerated
	// when matching title tokens.
	DefaultMaxTokenDistance = 1
)

// Deduper collapses a candidate list into one entry per distinct work.
type Deduper struct {
	titleThreshold   float64
	authorThreshold  float64
	maxTokenDistance int
}

// NewDeduper creates a Deduper with the default thresholds.
func NewDeduper() *Deduper {
	return &Deduper{
		titleThreshold:   DefaultTitleOverlapThreshold,
		authorThreshold:  DefaultAuthorOverlapThreshold,
		maxTokenDistance: DefaultMaxTokenDistance,
	}
}

// keptEntry tracks a surviving candidate and its precomputed title tokens.
type keptEntry struct {
	index  int
	tokens []string
}

// Dedupe merges duplicates in candidates and returns the collapsed list
// along with the number of merges performed. Input order is preserved
// for the first occurrence of each work, and the input slice is not
// modified. The result is independent of which source delivered a
// duplicate first: merging folds the richer field values into the
// surviving entry either way.
func (d *Deduper) Dedupe(candidates []domain.Candidate) ([]domain.Candidate, int) {
	if len(candidates) <= 1 {
		out := make([]domain.Candidate, len(candidates))
		copy(out, candidates)
		return out, 0
	}

	out := make([]domain.Candidate, 0, len(candidates))
	byDOI := make(map[string]int)
	byTitle := make(map[string]int)
	kept := make([]keptEntry, 0, len(candidates))
	merges := 0

	for _, cand := range candidates {
		doi := strings.ToLower(strings.TrimSpace(cand.Paper.DOI))
		title := domain.NormalizeTitle(cand.Paper.Title)

		target := -1
		if doi != "" {
			if idx, ok := byDOI[doi]; ok {
				target = idx
			}
		}
		if target < 0 && title != "" {
			if idx, ok := byTitle[title]; ok {
				target = idx
			}
		}
		if target < 0 && title != "" {
			target = d.fuzzyMatch(out, kept, cand)
		}

		if target >= 0 {
			mergeCandidate(&out[target], cand)
			merges++
			// A merge can surface a DOI the surviving entry lacked.
			if mergedDOI := strings.ToLower(strings.TrimSpace(out[target].Paper.DOI)); mergedDOI != "" {
				if _, ok := byDOI[mergedDOI]; !ok {
					byDOI[mergedDOI] = target
				}
			}
			continue
		}

		idx := len(out)
		out = append(out, cand)
		if doi != "" {
			byDOI[doi] = idx
		}
		if title != "" {
			byTitle[title] = idx
		}
		kept = append(kept, keptEntry{index: idx, tokens: strings.Fields(title)})
	}

	return out, merges
}

// fuzzyMatch looks for a kept entry whose title tokens overlap the
// candidate's beyond the threshold. When both sides carry author lists
// the match must also pass the author overlap threshold, which keeps
// similarly titled works by different groups apart.
func (d *Deduper) fuzzyMatch(out []domain.Candidate, kept []keptEntry, cand domain.Candidate) int {
	tokens := strings.Fields(domain.NormalizeTitle(cand.Paper.Title))
	if len(tokens) == 0 {
		return -1
	}

	for _, entry := range kept {
		if d.tokenOverlap(tokens, entry.tokens) < d.titleThreshold {
			continue
		}

		existing := out[entry.index]
		if len(cand.Paper.Authors) > 0 && len(existing.Paper.Authors) > 0 {
			if AuthorOverlap(cand.Paper.Authors, existing.Paper.Authors) < d.authorThreshold {
				continue
			}
		}
		return entry.index
	}

	return -1
}

// tokenOverlap computes a Jaccard-style overlap between two token sets.
// Tokens pair up when equal or within the per-token edit distance.
func (d *Deduper) tokenOverlap(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	if len(a) > len(b) {
		a, b = b, a
	}

	used := make([]bool, len(b))
	matched := 0

	for _, ta := range a {
		for j, tb := range b {
			if used[j] {
				continue
			}
			if ta == tb || d.tokensClose(ta, tb) {
				used[j] = true
				matched++
				break
			}
		}
	}

	union := len(a) + len(b) - matched
	if union == 0 {
		return 0.0
	}
	return float64(matched) / float64(union)
}

// tokensClose reports whether two tokens are within the edit distance
// budget. Single-character tokens must match exactly.
func (d *Deduper) tokensClose(a, b string) bool {
	if len(a) <= 1 || len(b) <= 1 {
		return false
	}
	return levenshtein.ComputeDistance(a, b) <= d.maxTokenDistance
}

// mergeCandidate folds src into dst, keeping the richer value for each
// field. Citation counts take the max, abstracts the longer text, and
// keyword lists the union.
func mergeCandidate(dst *domain.Candidate, src domain.Candidate) {
	dp := &dst.Paper
	sp := src.Paper

	if len(sp.Abstract) > len(dp.Abstract) {
		dp.Abstract = sp.Abstract
	}
	if sp.CitationCount > dp.CitationCount {
		dp.CitationCount = sp.CitationCount
	}
	if dp.DOI == "" {
		dp.DOI = sp.DOI
	}
	if dp.Journal == "" {
		dp.Journal = sp.Journal
	}
	if dp.SourceURL == "" {
		dp.SourceURL = sp.SourceURL
	}
	if dp.PublishDate == nil {
		dp.PublishDate = sp.PublishDate
	}
	if len(sp.Authors) > len(dp.Authors) {
		dp.Authors = sp.Authors
	}
	if !dp.HasEmbedding() && sp.HasEmbedding() {
		dp.Embedding = sp.Embedding
	}
	dp.Keywords = unionKeywords(dp.Keywords, sp.Keywords)

	// A DOI gained through the merge upgrades the canonical identity.
	dp.CanonicalID = domain.GenerateCanonicalID(dp.DOI, dp.Title)

	if src.SourceRelevance != nil {
		if dst.SourceRelevance == nil || *src.SourceRelevance > *dst.SourceRelevance {
			dst.SourceRelevance = src.SourceRelevance
		}
	}
}

// unionKeywords merges two keyword lists, case-insensitively, keeping
// first-seen order.
func unionKeywords(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, lst := range [][]string{a, b} {
		for _, kw := range lst {
			key := strings.ToLower(strings.TrimSpace(kw))
			if key == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, kw)
		}
	}
	return out
}
