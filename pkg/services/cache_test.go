package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lexhaven/lexhaven-engine/pkg/models"
	"github.com/lexhaven/lexhaven-engine/pkg/testhelpers"
)

func TestFingerprint_NormalizesText(t *testing.T) {
	base := &models.QueryRequest{Text: "what is the filing deadline", ResultLimit: 5, SimilarityThreshold: floatPtr(0.25)}
	shouty := &models.QueryRequest{Text: "  What   IS the Filing\tDeadline ", ResultLimit: 5, SimilarityThreshold: floatPtr(0.25)}

	// Case and whitespace differences collapse to the same key.
	assert.Equal(t, Fingerprint(base), Fingerprint(shouty))
}

func TestFingerprint_SensitiveToParameters(t *testing.T) {
	base := &models.QueryRequest{Text: "filing deadline", ResultLimit: 5, SimilarityThreshold: floatPtr(0.25)}

	differentText := *base
	differentText.Text = "payment deadline"
	assert.NotEqual(t, Fingerprint(base), Fingerprint(&differentText))

	differentFilter := *base
	differentFilter.InstitutionFilter = "SEC"
	assert.NotEqual(t, Fingerprint(base), Fingerprint(&differentFilter))

	differentLimit := *base
	differentLimit.ResultLimit = 3
	assert.NotEqual(t, Fingerprint(base), Fingerprint(&differentLimit))

	differentThreshold := *base
	differentThreshold.SimilarityThreshold = floatPtr(0.5)
	assert.NotEqual(t, Fingerprint(base), Fingerprint(&differentThreshold))
}

func TestFingerprint_Deterministic(t *testing.T) {
	req := &models.QueryRequest{Text: "capital requirements", InstitutionFilter: "FCA", ResultLimit: 5, SimilarityThreshold: floatPtr(0.3)}
	first := Fingerprint(req)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Fingerprint(req))
	}
}

func TestNewAnswerCache_NilClientIsNoop(t *testing.T) {
	cache := NewAnswerCache(nil, nil)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "key", &models.AnswerResult{AnswerText: "answer"}, time.Minute))

	_, ok, err := cache.Get(ctx, "key")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCache_RoundTrip(t *testing.T) {
	// The test double mirrors the Redis JSON round-trip; verify the answer
	// survives it intact.
	cache := newMemoryCache()
	ctx := context.Background()

	original := &models.AnswerResult{
		AnswerText:      "The deadline is April 15.",
		ConfidenceScore: 0.82,
		ModelUsed:       "gpt-4o-mini",
		Sources: []models.RetrievedPassage{
			passage("Tax Code", "IRS", "April 15 is the deadline.", 0.9),
		},
	}

	require.NoError(t, cache.Put(ctx, "k", original, time.Minute))

	got, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, original.AnswerText, got.AnswerText)
	assert.Equal(t, original.ConfidenceScore, got.ConfidenceScore)
	require.Len(t, got.Sources, 1)
	assert.Equal(t, original.Sources[0].ChunkText, got.Sources[0].ChunkText)
}

// cacheKey returns a key unique to this test run so tests sharing the Redis
// container never collide.
func cacheKey() string {
	return "answer:test:" + uuid.NewString()
}

func TestAnswerCache_RedisRoundTrip(t *testing.T) {
	client := testhelpers.GetRedisClient(t)
	cache := NewAnswerCache(client, zap.NewNop())
	ctx := context.Background()

	key := cacheKey()
	original := &models.AnswerResult{
		AnswerText:      "File the report within 30 days.",
		ConfidenceScore: 0.77,
		ModelUsed:       "gpt-4o-mini",
		Sources: []models.RetrievedPassage{
			passage("Reporting Handbook", "ESMA", "Reports are due within 30 days.", 0.88),
		},
	}

	require.NoError(t, cache.Put(ctx, key, original, time.Minute))

	got, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, original.AnswerText, got.AnswerText)
	assert.Equal(t, original.ConfidenceScore, got.ConfidenceScore)
	require.Len(t, got.Sources, 1)
	assert.Equal(t, original.Sources[0].DocumentTitle, got.Sources[0].DocumentTitle)
}

func TestAnswerCache_RedisMissOnUnknownKey(t *testing.T) {
	client := testhelpers.GetRedisClient(t)
	cache := NewAnswerCache(client, zap.NewNop())

	got, ok, err := cache.Get(context.Background(), cacheKey())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestAnswerCache_RedisExpiresAfterTTL(t *testing.T) {
	client := testhelpers.GetRedisClient(t)
	cache := NewAnswerCache(client, zap.NewNop())
	ctx := context.Background()

	key := cacheKey()
	require.NoError(t, cache.Put(ctx, key, &models.AnswerResult{AnswerText: "stale"}, 100*time.Millisecond))

	// Present before expiry.
	_, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(300 * time.Millisecond)

	_, ok, err = cache.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAnswerCache_RedisCorruptEntryIsMiss(t *testing.T) {
	client := testhelpers.GetRedisClient(t)
	cache := NewAnswerCache(client, zap.NewNop())
	ctx := context.Background()

	key := cacheKey()
	require.NoError(t, client.Set(ctx, key, "{not json", time.Minute).Err())

	got, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}
