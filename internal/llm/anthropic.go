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

// Default values for the Anthropic provider.
const (
	defaultAnthropicBaseURL    = "https://api.anthropic.com/v1"
	defaultAnthropicModel      = "claude-3-5-sonnet-20241022"
	defaultAnthropicMaxTokens  = 2048
	defaultAnthropicVersion    = "2023-06-01"
	defaultAnthropicRetryDelay = 2 * time.Second
)

// messagesRequest represents the Anthropic Messages API request body.
type messagesRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature float64            `json:"temperature"`
}

// anthropicMessage represents a single message in the conversation.
type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// messagesResponse represents the Anthropic Messages API response body.
type messagesResponse struct {
	ID         string           `json:"id"`
	Content    []anthropicBlock `json:"content"`
	StopReason string           `json:"stop_reason"`
	Usage      anthropicUsage   `json:"usage"`
}

// anthropicBlock is one content block in a messages response.
type anthropicBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// anthropicUsage contains token usage information.
type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// anthropicErrorResponse represents an error response from the Anthropic API.
type anthropicErrorResponse struct {
	Error anthropicErrorDetail `json:"error"`
}

// anthropicErrorDetail contains error details from the Anthropic API.
type anthropicErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// AnthropicProvider implements Oracle using the Anthropic Messages API.
// It does not implement Embedder; embeddings always come from OpenAI.
type AnthropicProvider struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
	temps      Temperatures
	maxRetries int
	retryDelay time.Duration
}

// NewAnthropicProvider creates a new Anthropic provider.
func NewAnthropicProvider(apiKey, model, baseURL string, temps Temperatures, timeout time.Duration, maxRetries int) *AnthropicProvider {
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}
	if model == "" {
		model = defaultAnthropicModel
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &AnthropicProvider{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		apiKey:     apiKey,
		model:      model,
		baseURL:    baseURL,
		temps:      temps,
		maxRetries: maxRetries,
		retryDelay: defaultAnthropicRetryDelay,
	}
}

// ExtractIntent derives a structured search intent from a free-text query.
func (p *AnthropicProvider) ExtractIntent(ctx context.Context, query string) (*domain.SearchIntent, error) {
	systemPrompt, userPrompt := BuildIntentPrompt(query)

	content, err := p.complete(ctx, systemPrompt, userPrompt, p.temps.Extraction)
	if err != nil {
		return nil, err
	}

	intent, err := parseIntentJSON(content)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}
	return intent, nil
}

// ScoreBatch scores each paper in the batch for relevance to the query.
func (p *AnthropicProvider) ScoreBatch(ctx context.Context, query string, papers []PaperSummary) ([]BatchScore, error) {
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
		return nil, fmt.Errorf("anthropic: %w", err)
	}
	return scores, nil
}

// LabelCluster produces a topic label for a cluster of papers.
func (p *AnthropicProvider) LabelCluster(ctx context.Context, papers []PaperSummary) (*ClusterLabel, error) {
	systemPrompt, userPrompt := BuildLabelPrompt(papers)

	content, err := p.complete(ctx, systemPrompt, userPrompt, p.temps.Labeling)
	if err != nil {
		return nil, err
	}

	label, err := parseLabelJSON(content)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}
	return label, nil
}

// Provider returns the name of the LLM provider.
func (p *AnthropicProvider) Provider() string {
	return "anthropic"
}

// Model returns the model identifier being used.
func (p *AnthropicProvider) Model() string {
	return p.model
}

// complete runs one Messages API call with retries and returns the first
// text block of the response.
func (p *AnthropicProvider) complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (string, error) {
	msgReq := messagesRequest{
		Model:     p.model,
		MaxTokens: defaultAnthropicMaxTokens,
		System:    systemPrompt,
		Messages: []anthropicMessage{
			{Role: "user", Content: userPrompt},
		},
		Temperature: temperature,
	}

	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff between retries.
			delay := p.retryDelay * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("anthropic: context cancelled during retry wait: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		content, err := p.doRequest(ctx, msgReq)
		if err == nil {
			return content, nil
		}

		if !isTransientError(err) {
			return "", err
		}
		lastErr = err
	}

	return "", fmt.Errorf("anthropic: exhausted %d retries: %w", p.maxRetries, lastErr)
}

// doRequest performs a single API request to the Messages endpoint.
func (p *AnthropicProvider) doRequest(ctx context.Context, msgReq messagesRequest) (string, error) {
	body, err := json.Marshal(msgReq)
	if err != nil {
		return "", fmt.Errorf("anthropic: failed to marshal request: %w", err)
	}

	endpoint := p.baseURL + "/messages"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("anthropic: failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", defaultAnthropicVersion)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", &APIError{
			Provider:   "anthropic",
			StatusCode: 0,
			Message:    fmt.Sprintf("request failed: %v", err),
			Type:       "network_error",
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", fmt.Errorf("anthropic: failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", parseAnthropicAPIError(resp.StatusCode, respBody)
	}

	var msgResp messagesResponse
	if err := json.Unmarshal(respBody, &msgResp); err != nil {
		return "", fmt.Errorf("anthropic: failed to unmarshal response: %w", err)
	}

	for _, block := range msgResp.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}

	return "", fmt.Errorf("anthropic: no text content in response")
}

// parseAnthropicAPIError parses an Anthropic API error from the response status code and body.
func parseAnthropicAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{
		Provider:   "anthropic",
		StatusCode: statusCode,
		Message:    string(body),
	}

	var errResp anthropicErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		apiErr.Message = errResp.Error.Message
		apiErr.Type = errResp.Error.Type
	}

	return apiErr
}
