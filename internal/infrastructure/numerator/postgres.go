// Package numerator provides durable SequenceStore implementations.
package numerator

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"

	corenumerator "rxpos/internal/core/numerator"
)

// Querier interface for database operations.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type cachedRange struct {
	current int64
	max     int64
}

// PostgresStore keeps counters in sys_sequences.
// Every allocation is a single INSERT ... ON CONFLICT DO UPDATE ... RETURNING,
// so concurrent server instances never observe the same value.
type PostgresStore struct {
	querier Querier
	opts    corenumerator.Options

	// cacheMu protects ranges map
	cacheMu sync.Mutex
	ranges  map[string]*cachedRange
}

var _ corenumerator.SequenceStore = (*PostgresStore)(nil)

// NewPostgresStore creates a store backed by querier (usually the pool).
// Sequence allocation runs outside business transactions so that a rolled
// back checkout does not hold the counter row lock.
func NewPostgresStore(querier Querier, opts corenumerator.Options) *PostgresStore {
	return &PostgresStore{
		querier: querier,
		opts:    opts,
		ranges:  make(map[string]*cachedRange),
	}
}

// Next implements SequenceStore.
func (s *PostgresStore) Next(ctx context.Context, category string) (int64, error) {
	if s.opts.Strategy == corenumerator.StrategyCached {
		return s.nextCached(ctx, category)
	}
	return s.nextStrict(ctx, category)
}

func (s *PostgresStore) nextStrict(ctx context.Context, category string) (int64, error) {
	var num int64
	err := s.querier.QueryRow(ctx, `
		INSERT INTO sys_sequences (key, current_val)
		VALUES ($1, 1)
		ON CONFLICT (key) DO UPDATE SET current_val = sys_sequences.current_val + 1
		RETURNING current_val
	`, category).Scan(&num)
	if err != nil {
		return 0, fmt.Errorf("strict next: %w", err)
	}
	return num, nil
}

// nextCached hands out numbers from memory, refilling from DB if needed.
func (s *PostgresStore) nextCached(ctx context.Context, category string) (int64, error) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	rng, exists := s.ranges[category]
	if !exists {
		rng = &cachedRange{}
		s.ranges[category] = rng
	}

	if rng.current >= rng.max {
		size := s.opts.RangeSize
		if size <= 0 {
			size = 50
		}

		var newMax int64
		err := s.querier.QueryRow(ctx, `
			INSERT INTO sys_sequences (key, current_val)
			VALUES ($1, $2)
			ON CONFLICT (key) DO UPDATE SET current_val = sys_sequences.current_val + $2
			RETURNING current_val
		`, category, size).Scan(&newMax)
		if err != nil {
			return 0, fmt.Errorf("reserve range: %w", err)
		}

		// Range is (newMax-size, newMax].
		rng.current = newMax - size
		rng.max = newMax
	}

	rng.current++
	return rng.current, nil
}

// Set forces the current value of a category (for migration purposes).
func (s *PostgresStore) Set(ctx context.Context, category string, value int64) error {
	var result int64
	err := s.querier.QueryRow(ctx, `
		INSERT INTO sys_sequences (key, current_val)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET current_val = $2
		RETURNING current_val
	`, category, value).Scan(&result)

	s.cacheMu.Lock()
	delete(s.ranges, category)
	s.cacheMu.Unlock()

	if err != nil {
		return fmt.Errorf("set sequence %q: %w", category, err)
	}
	return nil
}
