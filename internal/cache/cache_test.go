package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Midirushi/paper-recommendation-system/internal/config"
	"github.com/Midirushi/paper-recommendation-system/internal/domain"
	"github.com/Midirushi/paper-recommendation-system/internal/observability"
)

// fakeRedis implements redisClient in memory. Expiry follows Redis
// semantics for SET with expiration: entries vanish once the fake
// clock passes their deadline.
type fakeRedis struct {
	store     map[string]string
	ttls      map[string]time.Duration
	deadlines map[string]time.Time
	now       time.Time
	failing   bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		store:     make(map[string]string),
		ttls:      make(map[string]time.Duration),
		deadlines: make(map[string]time.Time),
		now:       time.Now(),
	}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.failing {
		return redis.NewStringResult("", errors.New("connection refused"))
	}
	if deadline, ok := f.deadlines[key]; ok && !f.now.Before(deadline) {
		delete(f.store, key)
		delete(f.deadlines, key)
	}
	val, ok := f.store[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(val, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.failing {
		return redis.NewStatusResult("", errors.New("connection refused"))
	}
	f.store[key] = string(value.([]byte))
	f.ttls[key] = expiration
	if expiration > 0 {
		f.deadlines[key] = f.now.Add(expiration)
	}
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	if f.failing {
		return redis.NewIntResult(0, errors.New("connection refused"))
	}
	var removed int64
	for _, key := range keys {
		if _, ok := f.store[key]; ok {
			delete(f.store, key)
			removed++
		}
	}
	return redis.NewIntResult(removed, nil)
}

func newTestCache(t *testing.T, client redisClient) *ResultCache {
	t.Helper()
	cfg := config.RedisConfig{
		OpTimeout:    500 * time.Millisecond,
		SearchTTL:    time.Hour,
		RecommendTTL: 24 * time.Hour,
	}
	metrics := observability.NewMetrics("cachetest_" + sanitize(t.Name()))
	return NewResultCache(client, cfg, zerolog.Nop(), metrics)
}

func sanitize(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			out = append(out, r)
		} else {
			out = append(out, '_')
		}
	}
	return string(out)
}

func TestSearchKey_Deterministic(t *testing.T) {
	t.Parallel()

	intent := &domain.SearchIntent{
		KeywordsPrimary: []string{"Deep Learning", "vision"},
		TimeRange:       domain.TimeRangeRecent3Years,
	}
	equivalent := &domain.SearchIntent{
		KeywordsPrimary: []string{"vision", "deep learning"},
		TimeRange:       domain.TimeRangeRecent3Years,
	}

	key1 := SearchKey(intent, []domain.Source{domain.SourceArXiv, domain.SourceLocal})
	key2 := SearchKey(equivalent, []domain.Source{domain.SourceLocal, domain.SourceArXiv})

	assert.Equal(t, key1, key2)
	assert.Contains(t, key1, searchKeyPrefix)
}

func TestSearchKey_DiffersByIntent(t *testing.T) {
	t.Parallel()

	a := &domain.SearchIntent{KeywordsPrimary: []string{"graphs"}, TimeRange: domain.TimeRangeAllTime}
	b := &domain.SearchIntent{KeywordsPrimary: []string{"graphs"}, TimeRange: domain.TimeRangeRecent1Year}

	sources := []domain.Source{domain.SourceArXiv}
	assert.NotEqual(t, SearchKey(a, sources), SearchKey(b, sources))
}

func TestResultCache_SearchRoundTrip(t *testing.T) {
	t.Parallel()

	client := newFakeRedis()
	c := newTestCache(t, client)
	ctx := context.Background()

	set := &domain.CandidateSet{
		Candidates: []domain.Candidate{
			{Paper: domain.Paper{Title: "Cached Paper", CanonicalID: "title:cached paper"}},
		},
		SourceCounts: map[domain.Source]int{domain.SourceArXiv: 1},
		TotalFound:   1,
	}

	key := searchKeyPrefix + "abc"
	c.PutSearch(ctx, key, set)

	got, ok := c.GetSearch(ctx, key)
	require.True(t, ok)
	require.Len(t, got.Candidates, 1)
	assert.Equal(t, "Cached Paper", got.Candidates[0].Paper.Title)
	assert.Equal(t, time.Hour, client.ttls[key])
}

func TestResultCache_SearchEntryExpires(t *testing.T) {
	t.Parallel()

	client := newFakeRedis()
	c := newTestCache(t, client)
	ctx := context.Background()

	key := searchKeyPrefix + "ttl"
	c.PutSearch(ctx, key, &domain.CandidateSet{TotalFound: 1})

	_, ok := c.GetSearch(ctx, key)
	require.True(t, ok)

	// One second past the search TTL the entry is gone.
	client.now = client.now.Add(time.Hour + time.Second)

	_, ok = c.GetSearch(ctx, key)
	assert.False(t, ok)
}

func TestResultCache_SearchMiss(t *testing.T) {
	t.Parallel()

	c := newTestCache(t, newFakeRedis())

	got, ok := c.GetSearch(context.Background(), searchKeyPrefix+"missing")
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestResultCache_ErrorDegradesToMiss(t *testing.T) {
	t.Parallel()

	client := newFakeRedis()
	client.failing = true
	c := newTestCache(t, client)
	ctx := context.Background()

	got, ok := c.GetSearch(ctx, searchKeyPrefix+"any")
	assert.False(t, ok)
	assert.Nil(t, got)

	// Writes must not panic or error out either.
	c.PutSearch(ctx, searchKeyPrefix+"any", &domain.CandidateSet{})
	c.InvalidateRecommend(ctx, "user-1")
}

func TestResultCache_CorruptEntryDegradesToMiss(t *testing.T) {
	t.Parallel()

	client := newFakeRedis()
	client.store[searchKeyPrefix+"bad"] = "{not json"
	c := newTestCache(t, client)

	got, ok := c.GetSearch(context.Background(), searchKeyPrefix+"bad")
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestResultCache_RecommendRoundTrip(t *testing.T) {
	t.Parallel()

	client := newFakeRedis()
	c := newTestCache(t, client)
	ctx := context.Background()

	score := 8.2
	recs := []domain.Candidate{
		{Paper: domain.Paper{Title: "Rec"}, RelevanceScore: &score, Reason: "matches your interests"},
	}

	key := RecommendKey("user-7")
	c.PutRecommend(ctx, key, recs)

	got, ok := c.GetRecommend(ctx, key)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "matches your interests", got[0].Reason)
	require.NotNil(t, got[0].RelevanceScore)
	assert.Equal(t, 8.2, *got[0].RelevanceScore)
	assert.Equal(t, 24*time.Hour, client.ttls[key])
}

func TestResultCache_InvalidateRecommend(t *testing.T) {
	t.Parallel()

	client := newFakeRedis()
	c := newTestCache(t, client)
	ctx := context.Background()

	key := RecommendKey("user-9")
	c.PutRecommend(ctx, key, []domain.Candidate{{Paper: domain.Paper{Title: "Old"}}})

	c.InvalidateRecommend(ctx, "user-9")

	_, ok := c.GetRecommend(ctx, key)
	assert.False(t, ok)
}
