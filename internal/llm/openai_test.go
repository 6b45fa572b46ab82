package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Midirushi/paper-recommendation-system/internal/domain"
)

func newTestOpenAIProvider(t *testing.T, handler http.HandlerFunc, maxRetries int) (*OpenAIProvider, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p := NewOpenAIProvider(OpenAIConfig{
		APIKey:  "test-key",
		Model:   "gpt-4-turbo",
		BaseURL: server.URL,
	}, Temperatures{Extraction: 0.3, Ranking: 0.2, Labeling: 0.4}, 5*time.Second, maxRetries)
	p.retryDelay = time.Millisecond

	return p, server
}

func openAIChatReply(t *testing.T, w http.ResponseWriter, content string) {
	t.Helper()
	resp := chatResponse{
		ID: "chatcmpl-test",
		Choices: []chatChoice{
			{Index: 0, Message: chatMessage{Role: "assistant", Content: content}, FinishReason: "stop"},
		},
		Usage: chatUsage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150},
	}
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(resp))
}

func TestOpenAIProvider_ExtractIntent(t *testing.T) {
	var gotReq chatRequest
	p, _ := newTestOpenAIProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		openAIChatReply(t, w, `{"core_keywords": ["graph neural networks"], "time_range": "recent_1_year"}`)
	}, 0)

	intent, err := p.ExtractIntent(context.Background(), "latest GNN research")
	require.NoError(t, err)

	assert.Equal(t, []string{"graph neural networks"}, intent.KeywordsPrimary)
	assert.Equal(t, domain.TimeRangeRecent1Year, intent.TimeRange)

	// Request shape: JSON mode, extraction temperature, system+user messages.
	require.NotNil(t, gotReq.ResponseFormat)
	assert.Equal(t, "json_object", gotReq.ResponseFormat.Type)
	assert.Equal(t, 0.3, gotReq.Temperature)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Contains(t, gotReq.Messages[1].Content, "latest GNN research")
}

func TestOpenAIProvider_ScoreBatch(t *testing.T) {
	p, _ := newTestOpenAIProvider(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 0.2, req.Temperature)

		openAIChatReply(t, w, `{"scores": [{"paper_index": 0, "score": 9.1, "reason": "exact match"}, {"paper_index": 1, "score": 4.0}]}`)
	}, 0)

	papers := []PaperSummary{
		{Index: 0, Title: "A"},
		{Index: 1, Title: "B"},
	}
	scores, err := p.ScoreBatch(context.Background(), "query", papers)
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Equal(t, 9.1, scores[0].Score)
	assert.Equal(t, "exact match", scores[0].Reason)
}

func TestOpenAIProvider_ScoreBatch_Empty(t *testing.T) {
	p, _ := newTestOpenAIProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for empty batch")
	}, 0)

	scores, err := p.ScoreBatch(context.Background(), "query", nil)
	require.NoError(t, err)
	assert.Nil(t, scores)
}

func TestOpenAIProvider_LabelCluster(t *testing.T) {
	p, _ := newTestOpenAIProvider(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 0.4, req.Temperature)

		openAIChatReply(t, w, `{"label": "Federated Learning", "description": "Distributed training without data sharing."}`)
	}, 0)

	label, err := p.LabelCluster(context.Background(), []PaperSummary{{Title: "FedAvg"}})
	require.NoError(t, err)
	assert.Equal(t, "Federated Learning", label.Label)
}

func TestOpenAIProvider_RetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	p, _ := newTestOpenAIProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		openAIChatReply(t, w, `{"core_keywords": ["retry"], "time_range": "all_time"}`)
	}, 2)

	intent, err := p.ExtractIntent(context.Background(), "query")
	require.NoError(t, err)
	assert.Equal(t, []string{"retry"}, intent.KeywordsPrimary)
	assert.Equal(t, int32(2), calls.Load())
}

func TestOpenAIProvider_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	p, _ := newTestOpenAIProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"message": "invalid request", "type": "invalid_request_error"}}`))
	}, 3)

	_, err := p.ExtractIntent(context.Background(), "query")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "invalid request", apiErr.Message)
	assert.Equal(t, "invalid_request_error", apiErr.Type)
}

func TestOpenAIProvider_ExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	p, _ := newTestOpenAIProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}, 2)

	_, err := p.ExtractIntent(context.Background(), "query")
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Contains(t, err.Error(), "exhausted 2 retries")
}

func TestOpenAIProvider_EmbedBatch(t *testing.T) {
	p, _ := newTestOpenAIProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "text-embedding-3-small", req.Model)
		require.Len(t, req.Input, 2)

		// Return data out of order; output must follow index.
		resp := embeddingResponse{
			Data: []embeddingData{
				{Index: 1, Embedding: []float32{0.3, 0.4}},
				{Index: 0, Embedding: []float32{0.1, 0.2}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}, 0)

	vectors, err := p.EmbedBatch(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{0.1, 0.2}, vectors[0])
	assert.Equal(t, []float32{0.3, 0.4}, vectors[1])
}

func TestOpenAIProvider_EmbedText(t *testing.T) {
	p, _ := newTestOpenAIProvider(t, func(w http.ResponseWriter, r *http.Request) {
		resp := embeddingResponse{
			Data: []embeddingData{{Index: 0, Embedding: []float32{0.5}}},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}, 0)

	vec, err := p.EmbedText(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5}, vec)
}

func TestOpenAIProvider_EmbedBatch_CountMismatch(t *testing.T) {
	p, _ := newTestOpenAIProvider(t, func(w http.ResponseWriter, r *http.Request) {
		resp := embeddingResponse{
			Data: []embeddingData{{Index: 0, Embedding: []float32{0.5}}},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}, 0)

	_, err := p.EmbedBatch(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 2 embeddings")
}

func TestOpenAIProvider_Defaults(t *testing.T) {
	p := NewOpenAIProvider(OpenAIConfig{APIKey: "k"}, Temperatures{}, 0, -1)

	assert.Equal(t, "openai", p.Provider())
	assert.Equal(t, defaultOpenAIModel, p.Model())
	assert.Equal(t, defaultEmbeddingDimension, p.Dimension())
	assert.Equal(t, defaultOpenAIBaseURL, p.baseURL)
	assert.Equal(t, 0, p.maxRetries)
}
