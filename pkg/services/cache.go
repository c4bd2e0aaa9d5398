package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lexhaven/lexhaven-engine/pkg/models"
)

// AnswerCache maps a query fingerprint to a previously computed answer.
// There are no partial hits: a key returns a complete answer or nothing.
// Writes are best-effort; the orchestrator logs and swallows Put failures.
type AnswerCache interface {
	// Get returns the cached answer for the key, or ok=false on a miss.
	// Backend errors are reported but treated as misses by callers.
	Get(ctx context.Context, key string) (*models.AnswerResult, bool, error)

	// Put stores the answer under the key for the given TTL.
	Put(ctx context.Context, key string, result *models.AnswerResult, ttl time.Duration) error
}

// Fingerprint derives the deterministic cache key for a request: a SHA-256
// hash over the normalized question text and the tuning parameters that
// change the answer.
func Fingerprint(req *models.QueryRequest) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(req.Text)), " ")
	threshold := 0.0
	if req.SimilarityThreshold != nil {
		threshold = *req.SimilarityThreshold
	}
	payload := fmt.Sprintf("%s|%s|%d|%.4f",
		normalized, req.InstitutionFilter, req.ResultLimit, threshold)
	sum := sha256.Sum256([]byte(payload))
	return "answer:" + hex.EncodeToString(sum[:])
}

type redisAnswerCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewAnswerCache creates a Redis-backed answer cache. A nil client disables
// caching: every Get misses and every Put is a no-op.
func NewAnswerCache(client *redis.Client, logger *zap.Logger) AnswerCache {
	if client == nil {
		return &noopAnswerCache{}
	}
	return &redisAnswerCache{
		client: client,
		logger: logger.Named("answer-cache"),
	}
}

var _ AnswerCache = (*redisAnswerCache)(nil)

func (c *redisAnswerCache) Get(ctx context.Context, key string) (*models.AnswerResult, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}

	var result models.AnswerResult
	if err := json.Unmarshal(data, &result); err != nil {
		// A corrupt entry is treated as a miss; it will be overwritten.
		c.logger.Warn("Discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		return nil, false, nil
	}
	return &result, true, nil
}

func (c *redisAnswerCache) Put(ctx context.Context, key string, result *models.AnswerResult, ttl time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// noopAnswerCache is used when Redis is not configured.
type noopAnswerCache struct{}

func (*noopAnswerCache) Get(context.Context, string) (*models.AnswerResult, bool, error) {
	return nil, false, nil
}

func (*noopAnswerCache) Put(context.Context, string, *models.AnswerResult, time.Duration) error {
	return nil
}
