package persistence

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	apperrors "mongo-testkit/internal/shared/errors"
	"mongo-testkit/internal/shared/logger"
)

// createTestRedisClient creates a Redis client for testing
func createTestRedisClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         "localhost:6379",
		DB:           15,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
}

func TestRedisSequence_Key(t *testing.T) {
	seq := NewRedisSequence(nil, "testkit:sequence:", "2024-01-02T03-04-05", DatabaseSequence, logger.NopLogger{})
	assert.Equal(t, "testkit:sequence:2024-01-02T03-04-05:databases", seq.Key())
}

func TestRedisSequence_Unavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond, MaxRetries: -1})
	defer client.Close()

	seq := NewRedisSequence(client, "testkit:sequence:", "ts", FallbackSequence, logger.NopLogger{})
	_, err := seq.Next(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInfrastructure))
}

func TestRedisSequence_ConcurrentNext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Skip if Redis is not available
	client := createTestRedisClient()
	defer client.Close()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Redis not available for testing:", err)
	}

	seq := NewRedisSequence(client, "testkit:test:", time.Now().Format(time.RFC3339Nano), DatabaseSequence, logger.NopLogger{})
	require.NoError(t, seq.Reset(ctx))
	defer seq.Reset(context.Background())

	const workers = 32
	var mu sync.Mutex
	var values []int64

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			n, err := seq.Next(gctx)
			if err != nil {
				return err
			}
			mu.Lock()
			values = append(values, n)
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())

	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
	for i, v := range values {
		assert.Equal(t, int64(i+1), v)
	}
}
