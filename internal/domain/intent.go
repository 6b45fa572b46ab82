package domain

import (
	"sort"
	"strings"
)

// TimeRange constrains how far back a search should reach.
type TimeRange string

// Supported time ranges.
const (
	TimeRangeRecent1Year  TimeRange = "recent_1_year"
	TimeRangeRecent3Years TimeRange = "recent_3_years"
	TimeRangeRecent5Years TimeRange = "recent_5_years"
	TimeRangeAllTime      TimeRange = "all_time"
)

// Years returns the number of trailing years the range covers, or 0 for
// an unbounded range.
func (tr TimeRange) Years() int {
	switch tr {
	case TimeRangeRecent1Year:
		return 1
	case TimeRangeRecent3Years:
		return 3
	case TimeRangeRecent5Years:
		return 5
	default:
		return 0
	}
}

// IsValid reports whether the time range is one of the supported values.
func (tr TimeRange) IsValid() bool {
	switch tr {
	case TimeRangeRecent1Year, TimeRangeRecent3Years, TimeRangeRecent5Years, TimeRangeAllTime:
		return true
	}
	return false
}

// SearchIntent is the structured interpretation of a free-text query.
// It is ephemeral: derived per request and never persisted except inside
// search logs.
type SearchIntent struct {
	// KeywordsPrimary are core keywords in the query's source language.
	KeywordsPrimary []string `json:"keywords_primary"`
	// KeywordsTranslated are core keywords translated to the other
	// supported language, used for cross-language sources.
	KeywordsTranslated []string `json:"keywords_translated,omitempty"`
	// KeywordsExtended are related terms that broaden recall.
	KeywordsExtended []string `json:"keywords_extended,omitempty"`
	// TimeRange constrains publication dates.
	TimeRange TimeRange `json:"time_range"`
	// DocTypes lists preferred document types (journal, conference, ...).
	DocTypes []string `json:"doc_types,omitempty"`
	// Degraded is set when intent extraction failed and the raw query was
	// used as the only keyword.
	Degraded bool `json:"degraded,omitempty"`
}

// AllKeywords returns primary, translated, and extended keywords as one
// deduplicated list, preserving first-seen order.
func (si *SearchIntent) AllKeywords() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, group := range [][]string{si.KeywordsPrimary, si.KeywordsTranslated, si.KeywordsExtended} {
		for _, kw := range group {
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

// Canonical returns a stable serialization of the intent for cache key
// derivation. Keyword lists are lowercased and sorted so equivalent
// intents serialize identically regardless of extraction order.
func (si *SearchIntent) Canonical() string {
	var sb strings.Builder

	writeGroup := func(label string, kws []string) {
		norm := make([]string, 0, len(kws))
		for _, kw := range kws {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				norm = append(norm, kw)
			}
		}
		sort.Strings(norm)
		sb.WriteString(label)
		sb.WriteString("=")
		sb.WriteString(strings.Join(norm, ","))
		sb.WriteString(";")
	}

	writeGroup("kw", si.KeywordsPrimary)
	writeGroup("kwt", si.KeywordsTranslated)
	writeGroup("kwx", si.KeywordsExtended)
	sb.WriteString("range=")
	sb.WriteString(string(si.TimeRange))
	sb.WriteString(";")
	writeGroup("types", si.DocTypes)

	return sb.String()
}
