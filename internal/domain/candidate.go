package domain

import "time"

// Candidate is a paper flowing through the search pipeline, annotated
// with scoring metadata as stages run.
type Candidate struct {
	Paper Paper `json:"paper"`
	// SourceRelevance is the source-reported relevance, when available.
	SourceRelevance *float64 `json:"source_relevance,omitempty"`
	// RelevanceScore is the 0-10 relevance assigned by the ranker,
	// nil until the candidate has been scored.
	RelevanceScore *float64 `json:"relevance_score,omitempty"`
	// Reason is a short human-readable scoring rationale.
	Reason string `json:"reason,omitempty"`
}

// Scored reports whether the candidate has a relevance score.
func (c *Candidate) Scored() bool {
	return c.RelevanceScore != nil
}

// CandidateSet is an ordered collection of candidates. After
// deduplication every candidate carries a distinct identity key.
type CandidateSet struct {
	Candidates []Candidate `json:"candidates"`
	// SourceCounts maps each queried source to the number of results it
	// contributed before deduplication.
	SourceCounts map[Source]int `json:"source_counts,omitempty"`
	// TotalFound is the candidate count before filtering and capping.
	TotalFound int `json:"total_found"`
	// Degraded is set when the intent driving the search was degraded.
	Degraded bool `json:"degraded,omitempty"`
	// CreatedAt records when the set was assembled.
	CreatedAt time.Time `json:"created_at"`
}

// Len returns the number of candidates in the set.
func (cs *CandidateSet) Len() int {
	return len(cs.Candidates)
}

// Papers returns the underlying papers in order.
func (cs *CandidateSet) Papers() []Paper {
	papers := make([]Paper, 0, len(cs.Candidates))
	for _, c := range cs.Candidates {
		papers = append(papers, c.Paper)
	}
	return papers
}
