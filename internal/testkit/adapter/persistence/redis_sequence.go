package persistence

import (
	"context"

	"github.com/redis/go-redis/v9"

	apperrors "mongo-testkit/internal/shared/errors"
	"mongo-testkit/internal/shared/logger"
	"mongo-testkit/internal/testkit/domain/repository"
)

var _ repository.Sequence = (*RedisSequence)(nil)

// Sequence names
const (
	DatabaseSequence = "databases"
	FallbackSequence = "collections"
)

// RedisSequence is a counter shared by every process of a test run, for CI
// jobs that split one run across several test binaries.
type RedisSequence struct {
	client *redis.Client
	key    string
	logger logger.Logger
}

// NewRedisSequence creates the counter stored at keyPrefix + runTimestamp + ":" + name.
func NewRedisSequence(client *redis.Client, keyPrefix, runTimestamp, name string, log logger.Logger) *RedisSequence {
	return &RedisSequence{
		client: client,
		key:    keyPrefix + runTimestamp + ":" + name,
		logger: log,
	}
}

// Key returns the Redis key of the counter.
func (s *RedisSequence) Key() string { return s.key }

// Next atomically increments the counter. The first value is 1.
func (s *RedisSequence) Next(ctx context.Context) (int64, error) {
	n, err := s.client.Incr(ctx, s.key).Result()
	if err != nil {
		s.logger.WithFields(map[string]interface{}{
			"key":   s.key,
			"error": err.Error(),
		}).Error("Failed to increment sequence in Redis")
		return 0, apperrors.NewInfrastructureError("failed to increment sequence").
			WithCause(err).
			WithComponent("redis_sequence")
	}
	return n, nil
}

// Reset deletes the counter.
func (s *RedisSequence) Reset(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}
