package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Midirushi/paper-recommendation-system/internal/domain"
)

// Default values for the OpenAI provider.
const (
	defaultOpenAIBaseURL    = "https://api.openai.com/v1"
	defaultOpenAIModel      = "gpt-4-turbo"
	defaultOpenAIMaxTokens  = 2048
	defaultOpenAIRetryDelay = 2 * time.Second

	defaultEmbeddingModel     = "text-embedding-3-small"
	defaultEmbeddingDimension = 1536
)

// chatRequest represents the OpenAI Chat Completions API request body.
type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

// chatMessage represents a single message in the chat conversation.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// responseFormat specifies the output format for the API response.
type responseFormat struct {
	Type string `json:"type"`
}

// chatResponse represents the OpenAI Chat Completions API response body.
type chatResponse struct {
	ID      string       `json:"id"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

// chatChoice represents a single completion choice.
type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// chatUsage contains token usage information.
type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// embeddingRequest represents the OpenAI Embeddings API request body.
type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embeddingResponse represents the OpenAI Embeddings API response body.
type embeddingResponse struct {
	Data  []embeddingData `json:"data"`
	Usage chatUsage       `json:"usage"`
}

// embeddingData is one embedding vector in an embeddings response.
type embeddingData struct {
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

// openAIErrorResponse represents an error response from the OpenAI API.
type openAIErrorResponse struct {
	Error openAIErrorDetail `json:"error"`
}

// openAIErrorDetail contains error details from the OpenAI API.
type openAIErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// OpenAIProvider implements Oracle and Embedder using the OpenAI
// Chat Completions and Embeddings APIs.
type OpenAIProvider struct {
	httpClient     *http.Client
	apiKey         string
	model          string
	embeddingModel string
	dimension      int
	baseURL        string
	temps          Temperatures
	maxRetries     int
	retryDelay     time.Duration
}

// OpenAIConfig holds the parameters needed to create an OpenAI provider.
// This is defined in the llm package to avoid importing the config package.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key.
	APIKey string
	// Model is the chat model identifier (e.g., "gpt-4-turbo").
	Model string
	// EmbeddingModel is the embeddings model identifier.
	EmbeddingModel string
	// EmbeddingDimension is the embedding vector dimension.
	EmbeddingDimension int
	// BaseURL is the API base URL (empty means default).
	BaseURL string
}

// NewOpenAIProvider creates a new OpenAI provider.
//
// The provider uses the Chat Completions API with JSON response format for
// structured oracle operations and the Embeddings API for vectors. It
// handles retry logic for transient API errors.
func NewOpenAIProvider(cfg OpenAIConfig, temps Temperatures, timeout time.Duration, maxRetries int) *OpenAIProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	embeddingModel := cfg.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = defaultEmbeddingModel
	}

	dimension := cfg.EmbeddingDimension
	if dimension <= 0 {
		dimension = defaultEmbeddingDimension
	}

	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	if maxRetries < 0 {
		maxRetries = 0
	}

	return &OpenAIProvider{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		apiKey:         cfg.APIKey,
		model:          model,
		embeddingModel: embeddingModel,
		dimension:      dimension,
		baseURL:        baseURL,
		temps:          temps,
		maxRetries:     maxRetries,
		retryDelay:     defaultOpenAIRetryDelay,
	}
}

// ExtractIntent derives a structured search intent from a free-text query
// using the Chat Completions API with JSON response format.
func (p *OpenAIProvider) ExtractIntent(ctx context.Context, query string) (*domain.SearchIntent, error) {
	systemPrompt, userPrompt := BuildIntentPrompt(query)

	content, err := p.complete(ctx, systemPrompt, userPrompt, p.temps.Extraction)
	if err != nil {
		return nil, err
	}

	intent, err := parseIntentJSON(content)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	return intent, nil
}

// ScoreBatch scores each paper in the batch for relevance to the query.
func (p *OpenAIProvider) ScoreBatch(ctx context.Context, query string, papers []PaperSummary) ([]BatchScore, error) {
	if len(papers) == 0 {
		return nil, nil
	}

	systemPrompt, userPrompt := BuildScoringPrompt(query, papers)

	content, err := p.complete(ctx, systemPrompt, userPrompt, p.temps.Ranking)
	if err != nil {
		return nil, err
	}

	scores, err := parseScoresJSON(content, len(papers))
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	return scores, nil
}

// LabelCluster produces a topic label for a cluster of papers.
func (p *OpenAIProvider) LabelCluster(ctx context.Context, papers []PaperSummary) (*ClusterLabel, error) {
	systemPrompt, userPrompt := BuildLabelPrompt(papers)

	content, err := p.complete(ctx, systemPrompt, userPrompt, p.temps.Labeling)
	if err != nil {
		return nil, err
	}

	label, err := parseLabelJSON(content)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	return label, nil
}

// EmbedText generates an embedding for a single text.
func (p *OpenAIProvider) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("openai: embeddings response is empty")
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one call.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	embReq := embeddingRequest{
		Model: p.embeddingModel,
		Input: texts,
	}

	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			if err := p.waitRetry(ctx, attempt); err != nil {
				return nil, err
			}
		}

		vectors, err := p.doEmbeddingRequest(ctx, embReq, len(texts))
		if err == nil {
			return vectors, nil
		}

		if !isTransientError(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("openai: exhausted %d retries: %w", p.maxRetries, lastErr)
}

// Dimension returns the embedding vector dimension.
func (p *OpenAIProvider) Dimension() int {
	return p.dimension
}

// Provider returns the name of the LLM provider.
func (p *OpenAIProvider) Provider() string {
	return "openai"
}

// Model returns the model identifier being used.
func (p *OpenAIProvider) Model() string {
	return p.model
}

// complete runs one chat completion with retries and returns the first
// choice's message content.
func (p *OpenAIProvider) complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (string, error) {
	chatReq := chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: temperature,
		MaxTokens:   defaultOpenAIMaxTokens,
		ResponseFormat: &responseFormat{
			Type: "json_object",
		},
	}

	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			if err := p.waitRetry(ctx, attempt); err != nil {
				return "", err
			}
		}

		content, err := p.doChatRequest(ctx, chatReq)
		if err == nil {
			return content, nil
		}

		// Only retry on transient errors (5xx, 429).
		if !isTransientError(err) {
			return "", err
		}
		lastErr = err
	}

	return "", fmt.Errorf("openai: exhausted %d retries: %w", p.maxRetries, lastErr)
}

// waitRetry sleeps for the attempt's backoff delay or returns early on
// context cancellation.
func (p *OpenAIProvider) waitRetry(ctx context.Context, attempt int) error {
	delay := p.retryDelay * time.Duration(attempt)
	select {
	case <-ctx.Done():
		return fmt.Errorf("openai: context cancelled during retry wait: %w", ctx.Err())
	case <-time.After(delay):
		return nil
	}
}

// doChatRequest performs a single API request to the Chat Completions endpoint.
func (p *OpenAIProvider) doChatRequest(ctx context.Context, chatReq chatRequest) (string, error) {
	respBody, err := p.post(ctx, "/chat/completions", chatReq)
	if err != nil {
		return "", err
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("openai: failed to unmarshal response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty choices in response")
	}

	return chatResp.Choices[0].Message.Content, nil
}

// doEmbeddingRequest performs a single API request to the Embeddings endpoint.
func (p *OpenAIProvider) doEmbeddingRequest(ctx context.Context, embReq embeddingRequest, want int) ([][]float32, error) {
	respBody, err := p.post(ctx, "/embeddings", embReq)
	if err != nil {
		return nil, err
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(respBody, &embResp); err != nil {
		return nil, fmt.Errorf("openai: failed to unmarshal embeddings response: %w", err)
	}

	if len(embResp.Data) != want {
		return nil, fmt.Errorf("openai: expected %d embeddings, got %d", want, len(embResp.Data))
	}

	// The API documents order-preserving output; index is authoritative.
	vectors := make([][]float32, want)
	for _, d := range embResp.Data {
		if d.Index < 0 || d.Index >= want {
			return nil, fmt.Errorf("openai: embedding index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}

	return vectors, nil
}

// post sends one JSON POST to the given API path and returns the raw
// response body on HTTP 200.
func (p *OpenAIProvider) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("openai: failed to marshal request: %w", err)
	}

	endpoint := p.baseURL + path
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openai: failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		// Network errors are considered transient and eligible for retry.
		return nil, &APIError{
			Provider:   "openai",
			StatusCode: 0,
			Message:    fmt.Sprintf("request failed: %v", err),
			Type:       "network_error",
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("openai: failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseOpenAIAPIError(resp.StatusCode, respBody)
	}

	return respBody, nil
}

// parseOpenAIAPIError parses an OpenAI API error from the response status code and body.
func parseOpenAIAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{
		Provider:   "openai",
		StatusCode: statusCode,
		Message:    string(body),
	}

	var errResp openAIErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		apiErr.Message = errResp.Error.Message
		apiErr.Type = errResp.Error.Type
		apiErr.Code = errResp.Error.Code
	}

	return apiErr
}
