// Package llm provides the LLM oracle used by the paper recommendation
// service for query intent extraction, relevance scoring, and trend
// cluster labeling, plus text embedding generation.
//
// Two HTTP providers are implemented: OpenAI (Chat Completions +
// Embeddings APIs) and Anthropic (Messages API). Both parse structured
// JSON responses and retry transient failures.
//
// Example usage:
//
//	oracle, err := llm.NewOracle(cfg)
//	intent, err := oracle.ExtractIntent(ctx, "recent advances in graph neural networks")
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/Midirushi/paper-recommendation-system/internal/domain"
)

// PaperSummary is the condensed paper view sent to the oracle. Index
// ties scores in the response back to the batch that produced them.
type PaperSummary struct {
	Index         int
	Title         string
	Abstract      string
	Journal       string
	Year          int
	CitationCount int
	Keywords      []string
}

// BatchScore is one relevance judgment from a scoring batch.
type BatchScore struct {
	// Index is the position of the scored paper within the batch.
	Index int
	// Score is the relevance on a 0-10 scale with one decimal place.
	Score float64
	// Reason is a short scoring rationale.
	Reason string
}

// ClusterLabel is the oracle's description of one topic cluster.
type ClusterLabel struct {
	Label       string
	Description string
	Keywords    []string
}

// Oracle defines the LLM-backed operations the service depends on.
//
// Implementations should handle provider-specific API calls, response
// parsing, and error handling while conforming to this unified interface.
type Oracle interface {
	// ExtractIntent derives a structured search intent from a free-text
	// query. The context should be used for cancellation and deadline
	// propagation.
	ExtractIntent(ctx context.Context, query string) (*domain.SearchIntent, error)

	// ScoreBatch scores each paper in the batch for relevance to the
	// query on a 0-10 scale. The returned slice may omit papers the
	// oracle could not score.
	ScoreBatch(ctx context.Context, query string, papers []PaperSummary) ([]BatchScore, error)

	// LabelCluster produces a topic label and description for a cluster
	// of related papers.
	LabelCluster(ctx context.Context, papers []PaperSummary) (*ClusterLabel, error)

	// Provider returns the name of the LLM provider (e.g., "openai", "anthropic").
	Provider() string

	// Model returns the model identifier being used.
	Model() string
}

// Embedder generates dense vector embeddings for text.
type Embedder interface {
	// EmbedText generates an embedding for a single text.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in one call.
	// The result preserves input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int
}

// Temperatures carries the per-operation sampling temperatures.
type Temperatures struct {
	Extraction float64
	Ranking    float64
	Labeling   float64
}

// intentResponse is the expected JSON structure for intent extraction.
type intentResponse struct {
	CoreKeywords       []string `json:"core_keywords"`
	TranslatedKeywords []string `json:"translated_keywords,omitempty"`
	ExtendedKeywords   []string `json:"extended_keywords,omitempty"`
	TimeRange          string   `json:"time_range"`
	DocTypes           []string `json:"doc_types,omitempty"`
}

// scoresResponse is the expected JSON structure for batch scoring.
type scoresResponse struct {
	Scores []scoreEntry `json:"scores"`
}

// scoreEntry is one scored paper in a scoresResponse.
type scoreEntry struct {
	PaperIndex int     `json:"paper_index"`
	Score      float64 `json:"score"`
	Reason     string  `json:"reason,omitempty"`
}

// labelResponse is the expected JSON structure for cluster labeling.
type labelResponse struct {
	Label       string   `json:"label"`
	Description string   `json:"description,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
}

// parseIntentJSON parses and validates an intent extraction response.
// An unknown time range falls back to the widest recent window rather
// than failing the whole extraction.
func parseIntentJSON(content string) (*domain.SearchIntent, error) {
	var parsed intentResponse
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse intent response as JSON: %w", err)
	}

	if len(parsed.CoreKeywords) == 0 {
		return nil, fmt.Errorf("intent response contains no core keywords")
	}

	tr := domain.TimeRange(parsed.TimeRange)
	if !tr.IsValid() {
		tr = domain.TimeRangeRecent5Years
	}

	return &domain.SearchIntent{
		KeywordsPrimary:    parsed.CoreKeywords,
		KeywordsTranslated: parsed.TranslatedKeywords,
		KeywordsExtended:   parsed.ExtendedKeywords,
		TimeRange:          tr,
		DocTypes:           parsed.DocTypes,
	}, nil
}

// parseScoresJSON parses a batch scoring response. Scores are clamped
// to [0,10] and rounded to one decimal place; entries with an index
// outside the batch are dropped.
func parseScoresJSON(content string, batchSize int) ([]BatchScore, error) {
	var parsed scoresResponse
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse scores response as JSON: %w", err)
	}

	if len(parsed.Scores) == 0 {
		return nil, fmt.Errorf("scores response contains no scores")
	}

	scores := make([]BatchScore, 0, len(parsed.Scores))
	for _, entry := range parsed.Scores {
		if entry.PaperIndex < 0 || entry.PaperIndex >= batchSize {
			continue
		}
		scores = append(scores, BatchScore{
			Index:  entry.PaperIndex,
			Score:  clampScore(entry.Score),
			Reason: entry.Reason,
		})
	}

	return scores, nil
}

// parseLabelJSON parses a cluster labeling response.
func parseLabelJSON(content string) (*ClusterLabel, error) {
	var parsed labelResponse
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse label response as JSON: %w", err)
	}

	if parsed.Label == "" {
		return nil, fmt.Errorf("label response contains no label")
	}

	return &ClusterLabel{
		Label:       parsed.Label,
		Description: parsed.Description,
		Keywords:    parsed.Keywords,
	}, nil
}

// clampScore bounds a score to [0,10] and rounds to one decimal place.
func clampScore(score float64) float64 {
	if score < 0 {
		score = 0
	}
	if score > 10 {
		score = 10
	}
	return math.Round(score*10) / 10
}
