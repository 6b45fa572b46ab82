// Package config provides configuration management for the paper recommendation service.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SSL mode constants for database connections.
const (
	// SSLModeDisable disables SSL (use only for local development).
	SSLModeDisable = "disable"
	// SSLModeRequire requires SSL but does not verify certificates.
	SSLModeRequire = "require"
	// SSLModeVerifyCA verifies the server certificate against a CA.
	SSLModeVerifyCA = "verify-ca"
	// SSLModeVerifyFull verifies the server certificate and hostname.
	SSLModeVerifyFull = "verify-full"
)

// Config holds all configuration for the paper recommendation service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Database contains PostgreSQL connection settings.
	Database DatabaseConfig `mapstructure:"database"`
	// Redis contains Redis cache settings.
	Redis RedisConfig `mapstructure:"redis"`
	// Kafka contains Kafka settings for the interaction event stream.
	Kafka KafkaConfig `mapstructure:"kafka"`
	// Temporal contains Temporal workflow orchestration settings.
	Temporal TemporalConfig `mapstructure:"temporal"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// LLM contains LLM client settings for intent extraction and ranking.
	LLM LLMConfig `mapstructure:"llm"`
	// PaperSources contains paper source API configurations.
	PaperSources PaperSourcesConfig `mapstructure:"paper_sources"`
	// Search contains search pipeline tuning.
	Search SearchConfig `mapstructure:"search"`
	// Recommend contains personalized recommendation tuning.
	Recommend RecommendConfig `mapstructure:"recommend"`
	// Trends contains trend analysis tuning.
	Trends TrendsConfig `mapstructure:"trends"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port"`
	// MetricsPort is the metrics server port (default: 9091).
	MetricsPort int `mapstructure:"metrics_port"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	// Host is the PostgreSQL server hostname.
	Host string `mapstructure:"host"`
	// Port is the PostgreSQL server port (default: 5432).
	Port int `mapstructure:"port"`
	// User is the database username.
	User string `mapstructure:"user"`
	// Password is the database password (use environment variable in production).
	Password string `mapstructure:"password"`
	// Name is the database name.
	Name string `mapstructure:"name"`
	// SSLMode controls SSL connection security (require, verify-ca, verify-full, disable).
	SSLMode string `mapstructure:"ssl_mode"`
	// MaxConns is the maximum number of connections in the pool (default: 50).
	MaxConns int32 `mapstructure:"max_conns"`
	// MinConns is the minimum number of connections to keep open (default: 10).
	MinConns int32 `mapstructure:"min_conns"`
	// MaxConnLifetime is the maximum lifetime of a connection before it's closed.
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	// MaxConnIdleTime is the maximum time a connection can be idle before it's closed.
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	// HealthCheckPeriod is the interval between health checks of idle connections.
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	// ConnectTimeout is the maximum time to wait for a connection.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	// MigrationPath is the path to migration files (relative or absolute).
	MigrationPath string `mapstructure:"migration_path"`
	// MigrationAutoRun enables automatic migration on startup (default: false).
	MigrationAutoRun bool `mapstructure:"migration_auto_run"`
}

// RedisConfig holds Redis cache configuration.
type RedisConfig struct {
	// Addr is the Redis server address (host:port).
	Addr string `mapstructure:"addr"`
	// Password is the Redis password (loaded from PAPERREC_REDIS_PASSWORD).
	Password string `mapstructure:"-"`
	// DB is the Redis database number.
	DB int `mapstructure:"db"`
	// OpTimeout bounds each cache operation.
	OpTimeout time.Duration `mapstructure:"op_timeout"`
	// SearchTTL is the TTL for cached search results.
	SearchTTL time.Duration `mapstructure:"search_ttl"`
	// RecommendTTL is the TTL for cached recommendation results.
	RecommendTTL time.Duration `mapstructure:"recommend_ttl"`
}

// KafkaConfig holds Kafka settings for the interaction event stream.
type KafkaConfig struct {
	// Enabled controls whether Kafka publishing and consumption are active.
	Enabled bool `mapstructure:"enabled"`
	// Brokers is the list of Kafka broker addresses.
	Brokers []string `mapstructure:"brokers"`
	// Topic is the topic carrying interaction events.
	Topic string `mapstructure:"topic"`
	// GroupID is the consumer group for the worker listener.
	GroupID string `mapstructure:"group_id"`
	// BatchSize is the maximum number of messages to batch before sending.
	BatchSize int `mapstructure:"batch_size"`
	// BatchTimeout is the maximum time to wait for a batch to fill before sending.
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

// TemporalConfig holds Temporal workflow configuration.
type TemporalConfig struct {
	// HostPort is the Temporal server address.
	HostPort string `mapstructure:"host_port"`
	// Namespace is the Temporal namespace.
	Namespace string `mapstructure:"namespace"`
	// TaskQueue is the task queue name for background workflows.
	TaskQueue string `mapstructure:"task_queue"`
	// TrendSchedule is the cron schedule for the trend analysis workflow.
	TrendSchedule string `mapstructure:"trend_schedule"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr, file path).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path"`
}

// LLMConfig holds LLM client configuration.
type LLMConfig struct {
	// Provider is the LLM provider (openai, anthropic).
	Provider string `mapstructure:"provider"`
	// Timeout is the timeout for LLM API calls.
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxRetries is the maximum number of retries for failed calls.
	MaxRetries int `mapstructure:"max_retries"`
	// ExtractionTemperature is the temperature for intent extraction.
	ExtractionTemperature float64 `mapstructure:"extraction_temperature"`
	// RankingTemperature is the temperature for relevance scoring.
	RankingTemperature float64 `mapstructure:"ranking_temperature"`
	// LabelingTemperature is the temperature for trend cluster labeling.
	LabelingTemperature float64 `mapstructure:"labeling_temperature"`
	// EmbeddingModel is the model for embeddings.
	EmbeddingModel string `mapstructure:"embedding_model"`
	// EmbeddingDimension is the embedding vector dimension.
	EmbeddingDimension int `mapstructure:"embedding_dimension"`
	// OpenAI contains OpenAI-specific settings.
	OpenAI OpenAIConfig `mapstructure:"openai"`
	// Anthropic contains Anthropic-specific settings.
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
}

// OpenAIConfig holds OpenAI-specific settings.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key (loaded from PAPERREC_LLM_OPENAI_API_KEY env var).
	APIKey string `mapstructure:"-"`
	// Model is the OpenAI model to use.
	Model string `mapstructure:"model"`
	// BaseURL is the OpenAI API base URL (for custom endpoints).
	BaseURL string `mapstructure:"base_url"`
}

// AnthropicConfig holds Anthropic-specific settings.
type AnthropicConfig struct {
	// APIKey is the Anthropic API key (loaded from PAPERREC_LLM_ANTHROPIC_API_KEY env var).
	APIKey string `mapstructure:"-"`
	// Model is the Anthropic model to use.
	Model string `mapstructure:"model"`
	// BaseURL is the Anthropic API base URL (for custom endpoints).
	BaseURL string `mapstructure:"base_url"`
}

// PaperSourcesConfig holds configuration for all paper source APIs.
type PaperSourcesConfig struct {
	// CNKI contains CNKI API settings.
	CNKI PaperSourceConfig `mapstructure:"cnki"`
	// Scholar contains Google Scholar (SerpAPI) settings.
	Scholar PaperSourceConfig `mapstructure:"scholar"`
	// ArXiv contains arXiv API settings.
	ArXiv PaperSourceConfig `mapstructure:"arxiv"`
	// Local contains local vector search settings.
	Local PaperSourceConfig `mapstructure:"local"`
}

// PaperSourceConfig holds configuration for a single paper source.
type PaperSourceConfig struct {
	// Enabled controls whether this source is used.
	Enabled bool `mapstructure:"enabled"`
	// APIKey is the API key (loaded from environment variable, e.g. PAPERREC_PAPER_SOURCES_SCHOLAR_API_KEY).
	APIKey string `mapstructure:"-"`
	// BaseURL is the API base URL.
	BaseURL string `mapstructure:"base_url"`
	// Timeout is the timeout for API calls.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// MaxResults is the maximum results per query.
	MaxResults int `mapstructure:"max_results"`
}

// SearchConfig holds search pipeline tuning.
type SearchConfig struct {
	// GlobalDeadline bounds a whole search request.
	GlobalDeadline time.Duration `mapstructure:"global_deadline"`
	// SourceTimeout bounds each source fetch inside the global deadline.
	SourceTimeout time.Duration `mapstructure:"source_timeout"`
	// MaxCandidates caps the candidate set carried into ranking.
	MaxCandidates int `mapstructure:"max_candidates"`
	// RankBatchSize is the number of candidates scored per oracle call.
	RankBatchSize int `mapstructure:"rank_batch_size"`
	// RankConcurrency bounds concurrent scoring batches.
	RankConcurrency int `mapstructure:"rank_concurrency"`
	// MinScore is the relevance cutoff on the 0-10 scale.
	MinScore float64 `mapstructure:"min_score"`
	// TopN caps the final result list.
	TopN int `mapstructure:"top_n"`
}

// RecommendConfig holds personalized recommendation tuning.
type RecommendConfig struct {
	// KeywordWeight is the share of the score from keyword overlap.
	KeywordWeight float64 `mapstructure:"keyword_weight"`
	// AuthorWeight is the share of the score from author overlap.
	AuthorWeight float64 `mapstructure:"author_weight"`
	// JournalWeight is the share of the score from journal overlap.
	JournalWeight float64 `mapstructure:"journal_weight"`
	// CitationWeight is the share of the score from citation count.
	CitationWeight float64 `mapstructure:"citation_weight"`
	// RecencyWeight is the share of the score from publication recency.
	RecencyWeight float64 `mapstructure:"recency_weight"`
	// CitationCap is the citation count treated as full citation signal.
	CitationCap int `mapstructure:"citation_cap"`
	// CandidateWindow is how far back candidate papers are drawn from.
	CandidateWindow time.Duration `mapstructure:"candidate_window"`
	// MaxResults caps recommendation lists.
	MaxResults int `mapstructure:"max_results"`
	// TrendingWindow is the trailing window for the trending fallback.
	TrendingWindow time.Duration `mapstructure:"trending_window"`
}

// TrendsConfig holds trend analysis tuning.
type TrendsConfig struct {
	// Window is the trailing window analyzed per run.
	Window time.Duration `mapstructure:"window"`
	// MinClusters is the lower bound on cluster count.
	MinClusters int `mapstructure:"min_clusters"`
	// MaxClusters is the upper bound on cluster count.
	MaxClusters int `mapstructure:"max_clusters"`
	// Seed fixes clustering initialization for reproducible runs.
	Seed int64 `mapstructure:"seed"`
	// MinPapers is the minimum window size worth analyzing.
	MinPapers int `mapstructure:"min_papers"`
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	params := url.Values{}
	params.Set("sslmode", c.SSLMode)
	if c.ConnectTimeout > 0 {
		params.Set("connect_timeout", fmt.Sprintf("%d", int(c.ConnectTimeout.Seconds())))
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		params.Encode(),
	)
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix("PAPERREC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file if present
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/paper-recommendation-system")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Load secrets exclusively from environment variables.
	// These fields use mapstructure:"-" to prevent loading from config files.
	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
/// These fields are tagged with mapstructure:"-" to prevent loading from config files.
func loadSecrets(cfg *Config) {
	// LLM provider API keys.
	cfg.LLM.OpenAI.APIKey = os.Getenv("PAPERREC_LLM_OPENAI_API_KEY")
	cfg.LLM.Anthropic.APIKey = os.Getenv("PAPERREC_LLM_ANTHROPIC_API_KEY")

	// Paper source API keys.
	cfg.PaperSources.CNKI.APIKey = os.Getenv("PAPERREC_PAPER_SOURCES_CNKI_API_KEY")
	cfg.PaperSources.Scholar.APIKey = os.Getenv("PAPERREC_PAPER_SOURCES_SCHOLAR_API_KEY")
	cfg.PaperSources.ArXiv.APIKey = os.Getenv("PAPERREC_PAPER_SOURCES_ARXIV_API_KEY")

	// Redis password.
	cfg.Redis.Password = os.Getenv("PAPERREC_REDIS_PASSWORD")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "paperrec")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "paper_recommendation")
	// Default to "require" for production security. Use PAPERREC_DATABASE_SSL_MODE=disable for local development.
	v.SetDefault("database.ssl_mode", SSLModeRequire)
	v.SetDefault("database.max_conns", 50)
	v.SetDefault("database.min_conns", 10)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.health_check_period", "30s")
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.migration_path", "migrations")
	v.SetDefault("database.migration_auto_run", false)

	// Redis defaults
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.op_timeout", "500ms")
	v.SetDefault("redis.search_ttl", "1h")
	v.SetDefault("redis.recommend_ttl", "24h")

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "paperrec.interactions")
	v.SetDefault("kafka.group_id", "paperrec-profile-builder")
	v.SetDefault("kafka.batch_size", 100)
	v.SetDefault("kafka.batch_timeout", "10ms")

	// Temporal defaults
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "paper-recommendation")
	v.SetDefault("temporal.task_queue", "paper-recommendation-tasks")
	v.SetDefault("temporal.trend_schedule", "@weekly")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// LLM defaults
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.extraction_temperature", 0.3)
	v.SetDefault("llm.ranking_temperature", 0.2)
	v.SetDefault("llm.labeling_temperature", 0.4)
	v.SetDefault("llm.embedding_model", "text-embedding-3-small")
	v.SetDefault("llm.embedding_dimension", 1536)
	// API keys are loaded exclusively from environment variables (see loadSecrets).
	v.SetDefault("llm.openai.model", "gpt-4-turbo")
	v.SetDefault("llm.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.anthropic.model", "claude-3-sonnet-20240229")
	v.SetDefault("llm.anthropic.base_url", "https://api.anthropic.com")

	// Paper sources defaults - CNKI (disabled by default, requires API key)
	v.SetDefault("paper_sources.cnki.enabled", false)
	v.SetDefault("paper_sources.cnki.base_url", "https://api.cnki.net")
	v.SetDefault("paper_sources.cnki.timeout", "10s")
	v.SetDefault("paper_sources.cnki.rate_limit", 5.0)
	v.SetDefault("paper_sources.cnki.max_results", 50)

	// Paper sources defaults - Google Scholar via SerpAPI (requires API key)
	v.SetDefault("paper_sources.scholar.enabled", false)
	v.SetDefault("paper_sources.scholar.base_url", "https://serpapi.com")
	v.SetDefault("paper_sources.scholar.timeout", "10s")
	v.SetDefault("paper_sources.scholar.rate_limit", 2.0)
	v.SetDefault("paper_sources.scholar.max_results", 20)

	// Paper sources defaults - arXiv
	v.SetDefault("paper_sources.arxiv.enabled", true)
	v.SetDefault("paper_sources.arxiv.base_url", "https://export.arxiv.org/api")
	v.SetDefault("paper_sources.arxiv.timeout", "10s")
	v.SetDefault("paper_sources.arxiv.rate_limit", 3.0) // arXiv recommends max 3 req/sec
	v.SetDefault("paper_sources.arxiv.max_results", 50)

	// Paper sources defaults - local vector search
	v.SetDefault("paper_sources.local.enabled", true)
	v.SetDefault("paper_sources.local.timeout", "5s")
	v.SetDefault("paper_sources.local.rate_limit", 0) // no limit for local search
	v.SetDefault("paper_sources.local.max_results", 50)

	// Search pipeline defaults
	v.SetDefault("search.global_deadline", "15s")
	v.SetDefault("search.source_timeout", "5s")
	v.SetDefault("search.max_candidates", 200)
	v.SetDefault("search.rank_batch_size", 50)
	v.SetDefault("search.rank_concurrency", 2)
	v.SetDefault("search.min_score", 6.0)
	v.SetDefault("search.top_n", 20)

	// Recommendation defaults
	v.SetDefault("recommend.keyword_weight", 0.40)
	v.SetDefault("recommend.author_weight", 0.20)
	v.SetDefault("recommend.journal_weight", 0.15)
	v.SetDefault("recommend.citation_weight", 0.15)
	v.SetDefault("recommend.recency_weight", 0.10)
	v.SetDefault("recommend.citation_cap", 100)
	v.SetDefault("recommend.candidate_window", "2160h") // 90 days
	v.SetDefault("recommend.max_results", 20)
	v.SetDefault("recommend.trending_window", "168h") // 7 days

	// Trend analysis defaults
	v.SetDefault("trends.window", "168h") // 7 days
	v.SetDefault("trends.min_clusters", 3)
	v.SetDefault("trends.max_clusters", 5)
	v.SetDefault("trends.seed", 42)
	v.SetDefault("trends.min_papers", 10)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	// Validate server ports
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Server.MetricsPort)
	}

	// Validate database config
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns (%d) must be >= min_conns (%d)", c.Database.MaxConns, c.Database.MinConns)
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	// Validate that the configured LLM provider has its required API key set.
	switch strings.ToLower(c.LLM.Provider) {
	case "openai":
		if c.LLM.OpenAI.APIKey == "" {
			return fmt.Errorf("LLM provider %q requires PAPERREC_LLM_OPENAI_API_KEY to be set", c.LLM.Provider)
		}
	case "anthropic":
		if c.LLM.Anthropic.APIKey == "" {
			return fmt.Errorf("LLM provider %q requires PAPERREC_LLM_ANTHROPIC_API_KEY to be set", c.LLM.Provider)
		}
	default:
		return fmt.Errorf("unsupported LLM provider: %s", c.LLM.Provider)
	}

	if c.LLM.EmbeddingDimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive")
	}

	// Validate search tuning
	if c.Search.RankBatchSize <= 0 {
		return fmt.Errorf("rank batch size must be positive")
	}
	if c.Search.RankConcurrency <= 0 {
		return fmt.Errorf("rank concurrency must be positive")
	}
	if c.Search.MinScore < 0 || c.Search.MinScore > 10 {
		return fmt.Errorf("min score must be between 0 and 10")
	}
	if c.Search.TopN <= 0 {
		return fmt.Errorf("top n must be positive")
	}
	if c.Search.SourceTimeout > c.Search.GlobalDeadline {
		return fmt.Errorf("source timeout (%s) must not exceed global deadline (%s)", c.Search.SourceTimeout, c.Search.GlobalDeadline)
	}

	// Recommendation weights must form a convex combination.
	weightSum := c.Recommend.KeywordWeight + c.Recommend.AuthorWeight +
		c.Recommend.JournalWeight + c.Recommend.CitationWeight + c.Recommend.RecencyWeight
	if weightSum < 0.999 || weightSum > 1.001 {
		return fmt.Errorf("recommendation weights must sum to 1.0, got %.3f", weightSum)
	}

	// Validate trend tuning
	if c.Trends.MinClusters <= 0 || c.Trends.MaxClusters < c.Trends.MinClusters {
		return fmt.Errorf("invalid cluster bounds: min=%d max=%d", c.Trends.MinClusters, c.Trends.MaxClusters)
	}

	return nil
}
