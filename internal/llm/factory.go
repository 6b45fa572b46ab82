package llm

import (
	"fmt"
	"strings"

	"github.com/Midirushi/paper-recommendation-system/internal/config"
)

// NewOracle creates an Oracle based on the configured provider.
func NewOracle(cfg config.LLMConfig) (Oracle, error) {
	temps := Temperatures{
		Extraction: cfg.ExtractionTemperature,
		Ranking:    cfg.RankingTemperature,
		Labeling:   cfg.LabelingTemperature,
	}

	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return NewOpenAIProvider(OpenAIConfig{
			APIKey:             cfg.OpenAI.APIKey,
			Model:              cfg.OpenAI.Model,
			EmbeddingModel:     cfg.EmbeddingModel,
			EmbeddingDimension: cfg.EmbeddingDimension,
			BaseURL:            cfg.OpenAI.BaseURL,
		}, temps, cfg.Timeout, cfg.MaxRetries), nil
	case "anthropic":
		return NewAnthropicProvider(cfg.Anthropic.APIKey, cfg.Anthropic.Model, cfg.Anthropic.BaseURL, temps, cfg.Timeout, cfg.MaxRetries), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

// NewEmbedder creates an Embedder. Embeddings always use the OpenAI
// Embeddings API regardless of the oracle provider, so an OpenAI API
// key is required even when Anthropic handles the oracle operations.
func NewEmbedder(cfg config.LLMConfig) (Embedder, error) {
	if cfg.OpenAI.APIKey == "" {
		return nil, fmt.Errorf("embeddings require PAPERREC_LLM_OPENAI_API_KEY to be set")
	}

	temps := Temperatures{
		Extraction: cfg.ExtractionTemperature,
		Ranking:    cfg.RankingTemperature,
		Labeling:   cfg.LabelingTemperature,
	}

	return NewOpenAIProvider(OpenAIConfig{
		APIKey:             cfg.OpenAI.APIKey,
		Model:              cfg.OpenAI.Model,
		EmbeddingModel:     cfg.EmbeddingModel,
		EmbeddingDimension: cfg.EmbeddingDimension,
		BaseURL:            cfg.OpenAI.BaseURL,
	}, temps, cfg.Timeout, cfg.MaxRetries), nil
}
