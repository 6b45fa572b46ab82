package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserProfileTrimKeywords(t *testing.T) {
	t.Parallel()

	p := NewUserProfile("u1")
	for i := 0; i < MaxProfileKeywords+10; i++ {
		p.KeywordWeights[fmt.Sprintf("kw-%03d", i)] = float64(i)
	}

	p.TrimKeywords()

	require.Len(t, p.KeywordWeights, MaxProfileKeywords)

	// The lowest-weight entries must be the ones evicted.
	for i := 0; i < 10; i++ {
		_, ok := p.KeywordWeights[fmt.Sprintf("kw-%03d", i)]
		assert.False(t, ok, "low-weight keyword kw-%03d should be evicted", i)
	}
	_, ok := p.KeywordWeights[fmt.Sprintf("kw-%03d", MaxProfileKeywords+9)]
	assert.True(t, ok)
}

func TestUserProfileTrimKeywordsNoop(t *testing.T) {
	t.Parallel()

	p := NewUserProfile("u1")
	p.KeywordWeights["a"] = 1
	p.TrimKeywords()
	assert.Len(t, p.KeywordWeights, 1)
}

func TestUserProfileIsEmpty(t *testing.T) {
	t.Parallel()

	var nilProfile *UserProfile
	assert.True(t, nilProfile.IsEmpty())

	p := NewUserProfile("u1")
	assert.True(t, p.IsEmpty())

	p.Authors["smith"] = struct{}{}
	assert.False(t, p.IsEmpty())
}

func TestInteractionActionWeight(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1.0, ActionView.Weight())
	assert.Equal(t, 2.0, ActionSave.Weight())
	assert.Equal(t, 3.0, ActionDownload.Weight())
	assert.Equal(t, 0.0, InteractionAction("share").Weight())
	assert.False(t, InteractionAction("share").IsValid())
}
