package observability

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLoggingConfig(t *testing.T) {
	cfg := DefaultLoggingConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "stdout", cfg.Output)
	assert.False(t, cfg.AddSource)
}

func TestNewLogger(t *testing.T) {
	t.Run("creates logger with default config", func(t *testing.T) {
		cfg := DefaultLoggingConfig()
		logger := NewLogger(cfg)

		// Logger should be valid (non-zero)
		assert.NotEqual(t, zerolog.Logger{}, logger)
	})

	t.Run("creates logger with debug level", func(t *testing.T) {
		cfg := LoggingConfig{
			Level:  "debug",
			Format: "json",
			Output: "stdout",
		}
		logger := NewLogger(cfg)

		assert.NotEqual(t, zerolog.Logger{}, logger)
	})

	t.Run("creates logger with console format", func(t *testing.T) {
		cfg := LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stdout",
		}
		logger := NewLogger(cfg)

		assert.NotEqual(t, zerolog.Logger{}, logger)
	})

	t.Run("creates logger with pretty format", func(t *testing.T) {
		cfg := LoggingConfig{
			Level:  "info",
			Format: "pretty",
			Output: "stderr",
		}
		logger := NewLogger(cfg)

		assert.NotEqual(t, zerolog.Logger{}, logger)
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"TRACE", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"unknown", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := parseLevel(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestWithSearchContext(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	enriched := WithSearchContext(logger, "req-123", "machine learning")
	enriched.Info().Msg("search started")

	var logEntry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	require.NoError(t, err)

	assert.Equal(t, "req-123", logEntry["request_id"])
	assert.Equal(t, "machine learning", logEntry["query"])
	assert.Equal(t, "search started", logEntry["message"])
}

func TestWithSourceContext(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	enriched := WithSourceContext(logger, "arxiv")
	enriched.Info().Msg("source fetch")

	var logEntry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	require.NoError(t, err)

	assert.Equal(t, "arxiv", logEntry["source"])
}

func TestWithUserContext(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	enriched := WithUserContext(logger, "user-42")
	enriched.Info().Msg("profile updated")

	var logEntry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	require.NoError(t, err)

	assert.Equal(t, "user-42", logEntry["user_id"])
}

func TestWithPaperContext(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	enriched := WithPaperContext(logger, "paper-123", "doi:10.1234/abc")
	enriched.Info().Msg("paper processed")

	var logEntry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	require.NoError(t, err)

	assert.Equal(t, "paper-123", logEntry["paper_id"])
	assert.Equal(t, "doi:10.1234/abc", logEntry["canonical_id"])
}

func TestWithWorkflowContext(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	enriched := WithWorkflowContext(logger, "wf-123", "run-456")
	enriched.Info().Msg("workflow step")

	var logEntry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	require.NoError(t, err)

	assert.Equal(t, "wf-123", logEntry["workflow_id"])
	assert.Equal(t, "run-456", logEntry["workflow_run_id"])
}

func TestWithActivityContext(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	enriched := WithActivityContext(logger, "ClusterPapers", 3)
	enriched.Info().Msg("activity retry")

	var logEntry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	require.NoError(t, err)

	assert.Equal(t, "ClusterPapers", logEntry["activity_type"])
	assert.Equal(t, float64(3), logEntry["attempt"])
}

func TestLoggerContextChaining(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	// Chain multiple context enrichments
	enriched := WithSearchContext(logger, "req-1", "neural networks")
	enriched = WithSourceContext(enriched, "scholar")
	enriched = WithUserContext(enriched, "user-1")
	enriched.Info().Msg("chained context")

	var logEntry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	require.NoError(t, err)

	// All fields should be present
	assert.Equal(t, "req-1", logEntry["request_id"])
	assert.Equal(t, "neural networks", logEntry["query"])
	assert.Equal(t, "scholar", logEntry["source"])
	assert.Equal(t, "user-1", logEntry["user_id"])
}
