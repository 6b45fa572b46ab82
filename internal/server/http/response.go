package httpserver

import (
	"time"

	"github.com/google/uuid"

	"github.com/Midirushi/paper-recommendation-system/internal/domain"
	"github.com/Midirushi/paper-recommendation-system/internal/vector"
)

// Response types for JSON serialization.

type authorResponse struct {
	Name        string `json:"name"`
	Affiliation string `json:"affiliation,omitempty"`
}

type paperResponse struct {
	ID            string           `json:"id,omitempty"`
	CanonicalID   string           `json:"canonical_id,omitempty"`
	Title         string           `json:"title"`
	Abstract      string           `json:"abstract,omitempty"`
	Authors       []authorResponse `json:"authors,omitempty"`
	Journal       string           `json:"journal,omitempty"`
	PublishDate   *time.Time       `json:"publish_date,omitempty"`
	Source        string           `json:"source,omitempty"`
	DOI           string           `json:"doi,omitempty"`
	SourceURL     string           `json:"source_url,omitempty"`
	CitationCount int              `json:"citation_count"`
	Keywords      []string         `json:"keywords,omitempty"`
}

type candidateResponse struct {
	Paper           paperResponse `json:"paper"`
	SourceRelevance *float64      `json:"source_relevance,omitempty"`
	RelevanceScore  *float64      `json:"relevance_score,omitempty"`
	Reason          string        `json:"reason,omitempty"`
}

type searchResponse struct {
	Results      []candidateResponse `json:"results"`
	SourceCounts map[string]int      `json:"source_counts,omitempty"`
	TotalFound   int                 `json:"total_found"`
	Returned     int                 `json:"returned"`
	ElapsedMS    int64               `json:"elapsed_ms"`
	Degraded     bool                `json:"degraded,omitempty"`
}

type recommendationsResponse struct {
	UserID  string              `json:"user_id"`
	Mode    string              `json:"mode"`
	Results []candidateResponse `json:"results"`
}

type similarPaperResponse struct {
	Paper      paperResponse `json:"paper"`
	Similarity float64       `json:"similarity"`
}

type similarPapersResponse struct {
	PaperID string                 `json:"paper_id"`
	Results []similarPaperResponse `json:"results"`
}

type trendClusterResponse struct {
	Label       string   `json:"label"`
	Description string   `json:"description,omitempty"`
	Size        int      `json:"size"`
	Keywords    []string `json:"keywords,omitempty"`
	PaperIDs    []string `json:"paper_ids"`
}

type trendSnapshotResponse struct {
	ID          string                 `json:"id"`
	WindowStart time.Time              `json:"window_start"`
	WindowEnd   time.Time              `json:"window_end"`
	PaperCount  int                    `json:"paper_count"`
	Clusters    []trendClusterResponse `json:"clusters"`
	Summary     string                 `json:"summary,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

type recordInteractionResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Converter functions

func domainPaperToResponse(p *domain.Paper) paperResponse {
	authors := make([]authorResponse, len(p.Authors))
	for i, a := range p.Authors {
		authors[i] = authorResponse{
			Name:        a.Name,
			Affiliation: a.Affiliation,
		}
	}

	resp := paperResponse{
		CanonicalID:   p.CanonicalID,
		Title:         p.Title,
		Abstract:      p.Abstract,
		Authors:       authors,
		Journal:       p.Journal,
		PublishDate:   p.PublishDate,
		Source:        string(p.Source),
		DOI:           p.DOI,
		SourceURL:     p.SourceURL,
		CitationCount: p.CitationCount,
		Keywords:      p.Keywords,
	}
	if p.ID != uuid.Nil {
		resp.ID = p.ID.String()
	}
	return resp
}

func domainCandidatesToResponse(candidates []domain.Candidate) []candidateResponse {
	out := make([]candidateResponse, len(candidates))
	for i := range candidates {
		out[i] = candidateResponse{
			Paper:           domainPaperToResponse(&candidates[i].Paper),
			SourceRelevance: candidates[i].SourceRelevance,
			RelevanceScore:  candidates[i].RelevanceScore,
			Reason:          candidates[i].Reason,
		}
	}
	return out
}

func domainSetToSearchResponse(set *domain.CandidateSet, elapsed time.Duration) searchResponse {
	counts := make(map[string]int, len(set.SourceCounts))
	for source, n := range set.SourceCounts {
		counts[string(source)] = n
	}

	return searchResponse{
		Results:      domainCandidatesToResponse(set.Candidates),
		SourceCounts: counts,
		TotalFound:   set.TotalFound,
		Returned:     len(set.Candidates),
		ElapsedMS:    elapsed.Milliseconds(),
		Degraded:     set.Degraded,
	}
}

func similarPapersToResponse(paperID string, similar []vector.SimilarPaper) similarPapersResponse {
	results := make([]similarPaperResponse, len(similar))
	for i := range similar {
		results[i] = similarPaperResponse{
			Paper:      domainPaperToResponse(&similar[i].Paper),
			Similarity: similar[i].Similarity,
		}
	}
	return similarPapersResponse{PaperID: paperID, Results: results}
}

func domainSnapshotToResponse(s *domain.TrendSnapshot) trendSnapshotResponse {
	clusters := make([]trendClusterResponse, len(s.Clusters))
	for i, c := range s.Clusters {
		ids := make([]string, len(c.PaperIDs))
		for j, id := range c.PaperIDs {
			ids[j] = id.String()
		}
		clusters[i] = trendClusterResponse{
			Label:       c.Label,
			Description: c.Description,
			Size:        c.Size,
			Keywords:    c.Keywords,
			PaperIDs:    ids,
		}
	}

	return trendSnapshotResponse{
		ID:          s.ID.String(),
		WindowStart: s.WindowStart,
		WindowEnd:   s.WindowEnd,
		PaperCount:  s.PaperCount(),
		Clusters:    clusters,
		Summary:     s.Summary,
		CreatedAt:   s.CreatedAt,
	}
}
