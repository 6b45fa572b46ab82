package domain

import (
	"time"

	"github.com/google/uuid"
)

// TrendCluster is one labeled topic cluster inside a trend snapshot.
type TrendCluster struct {
	Label       string      `json:"label"`
	Description string      `json:"description,omitempty"`
	PaperIDs    []uuid.UUID `json:"paper_ids"`
	Size        int         `json:"size"`
	// Keywords are the most frequent keywords in the cluster, used as a
	// fallback label when no generated label is available.
	Keywords []string `json:"keywords,omitempty"`
}

// TrendSnapshot is the result of one trend analysis run over a time
// window. Snapshots are insert-only; readers take the latest.
type TrendSnapshot struct {
	ID          uuid.UUID      `json:"id"`
	WindowStart time.Time      `json:"window_start"`
	WindowEnd   time.Time      `json:"window_end"`
	Clusters    []TrendCluster `json:"clusters"`
	Summary     string         `json:"summary,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// PaperCount returns the total number of papers across all clusters.
func (s *TrendSnapshot) PaperCount() int {
	n := 0
	for _, c := range s.Clusters {
		n += c.Size
	}
	return n
}
