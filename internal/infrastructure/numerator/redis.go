package numerator

import (
	"context"
	"fmt"

	redis "github.com/redis/go-redis/v9"

	corenumerator "rxpos/internal/core/numerator"
)

// RedisStore allocates counters with INCR on "<prefix><category>" keys.
type RedisStore struct {
	client redis.Cmdable
	prefix string
}

var _ corenumerator.SequenceStore = (*RedisStore)(nil)

// NewRedisStore wraps an existing client. prefix namespaces the keys,
// e.g. "rxpos:seq:".
func NewRedisStore(client redis.Cmdable, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// NewRedisClient opens a client and verifies connectivity.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// Next implements SequenceStore. INCR on a missing key yields 1.
func (s *RedisStore) Next(ctx context.Context, category string) (int64, error) {
	n, err := s.client.Incr(ctx, s.prefix+category).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr %q: %w", category, err)
	}
	return n, nil
}

// Set forces the current value of a category.
func (s *RedisStore) Set(ctx context.Context, category string, value int64) error {
	return s.client.Set(ctx, s.prefix+category, value, 0).Err()
}
