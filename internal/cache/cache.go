// Package cache provides the Redis result cache for search and
// recommendation responses. Every operation degrades to a cache miss
// on error so an unavailable Redis never fails a request.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Midirushi/paper-recommendation-system/internal/config"
	"github.com/Midirushi/paper-recommendation-system/internal/domain"
	"github.com/Midirushi/paper-recommendation-system/internal/observability"
)

// Key prefixes, versioned so a format change invalidates old entries.
const (
	searchKeyPrefix    = "search:v1:"
	recommendKeyPrefix = "recommend:v1:"
)

// redisClient is the subset of the go-redis API the cache uses.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// ResultCache caches ranked search results and recommendation lists.
type ResultCache struct {
	client       redisClient
	opTimeout    time.Duration
	searchTTL    time.Duration
	recommendTTL time.Duration
	logger       zerolog.Logger
	metrics      *observability.Metrics
}

// NewClient builds a go-redis client from configuration.
func NewClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// NewResultCache creates a ResultCache.
func NewResultCache(client redisClient, cfg config.RedisConfig, logger zerolog.Logger, metrics *observability.Metrics) *ResultCache {
	opTimeout := cfg.OpTimeout
	if opTimeout <= 0 {
		opTimeout = 500 * time.Millisecond
	}
	return &ResultCache{
		client:       client,
		opTimeout:    opTimeout,
		searchTTL:    cfg.SearchTTL,
		recommendTTL: cfg.RecommendTTL,
		logger:       logger.With().Str("component", "cache").Logger(),
		metrics:      metrics,
	}
}

// SearchKey derives a deterministic cache key from the search intent
// and the set of sources queried. Two queries that extract the same
// intent against the same sources share a key regardless of phrasing.
func SearchKey(intent *domain.SearchIntent, sources []domain.Source) string {
	names := make([]string, 0, len(sources))
	for _, s := range sources {
		names = append(names, string(s))
	}
	sort.Strings(names)

	sum := sha256.Sum256([]byte(intent.Canonical() + "|sources=" + strings.Join(names, ",")))
	return searchKeyPrefix + hex.EncodeToString(sum[:])
}

// RecommendKey derives the cache key for a user's recommendation list.
func RecommendKey(userID string) string {
	return recommendKeyPrefix + userID
}

// GetSearch returns the cached candidate set for key, or nil and false
// on a miss. Errors are logged and reported as misses.
func (c *ResultCache) GetSearch(ctx context.Context, key string) (*domain.CandidateSet, bool) {
	payload, ok := c.get(ctx, key)
	if !ok {
		return nil, false
	}

	var set domain.CandidateSet
	if err := json.Unmarshal(payload, &set); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("failed to decode cached search result")
		c.metrics.RecordCacheError()
		return nil, false
	}

	c.metrics.RecordCacheHit()
	return &set, true
}

// PutSearch stores a candidate set under key with the search TTL.
// Failures are logged and swallowed.
func (c *ResultCache) PutSearch(ctx context.Context, key string, set *domain.CandidateSet) {
	c.put(ctx, key, set, c.searchTTL)
}

// GetRecommend returns the cached recommendation list for key.
func (c *ResultCache) GetRecommend(ctx context.Context, key string) ([]domain.Candidate, bool) {
	payload, ok := c.get(ctx, key)
	if !ok {
		return nil, false
	}

	var recs []domain.Candidate
	if err := json.Unmarshal(payload, &recs); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("failed to decode cached recommendations")
		c.metrics.RecordCacheError()
		return nil, false
	}

	c.metrics.RecordCacheHit()
	return recs, true
}

// PutRecommend stores a recommendation list under key with the
// recommendation TTL.
func (c *ResultCache) PutRecommend(ctx context.Context, key string, recs []domain.Candidate) {
	c.put(ctx, key, recs, c.recommendTTL)
}

// InvalidateRecommend drops a user's cached recommendations. Called
// after interaction events change the user's profile.
func (c *ResultCache) InvalidateRecommend(ctx context.Context, userID string) {
	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	if err := c.client.Del(opCtx, RecommendKey(userID)).Err(); err != nil {
		c.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to invalidate recommendation cache")
		c.metrics.RecordCacheError()
	}
}

func (c *ResultCache) get(ctx context.Context, key string) ([]byte, bool) {
	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	payload, err := c.client.Get(opCtx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			c.metrics.RecordCacheMiss()
		} else {
			c.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
			c.metrics.RecordCacheError()
		}
		return nil, false
	}
	return payload, true
}

func (c *ResultCache) put(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	payload, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("failed to encode cache value")
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	if err := c.client.Set(opCtx, key, payload, ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
		c.metrics.RecordCacheError()
	}
}
