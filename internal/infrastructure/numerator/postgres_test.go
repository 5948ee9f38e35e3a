package numerator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corenumerator "rxpos/internal/core/numerator"
)

type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

// mockQuerier simulates sys_sequences for a single key space.
type mockQuerier struct {
	mu     sync.Mutex
	values map[string]int64
	calls  int
	err    error
}

func newMockQuerier() *mockQuerier {
	return &mockQuerier{values: make(map[string]int64)}
}

func (m *mockQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if m.err != nil {
		return &mockRow{err: m.err}
	}

	key := args[0].(string)
	switch {
	case strings.Contains(sql, "current_val = $2") && !strings.Contains(sql, "+ $2"):
		m.values[key] = args[1].(int64)
	case len(args) == 2:
		m.values[key] += args[1].(int64)
	default:
		m.values[key]++
	}
	return &mockRow{val: m.values[key]}
}

func TestPostgresStore_Strict(t *testing.T) {
	q := newMockQuerier()
	store := NewPostgresStore(q, corenumerator.DefaultOptions())
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := store.Next(ctx, "sale")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, 3, q.calls)
}

func TestPostgresStore_CachedReservesRanges(t *testing.T) {
	q := newMockQuerier()
	store := NewPostgresStore(q, corenumerator.Options{
		Strategy:  corenumerator.StrategyCached,
		RangeSize: 10,
	})
	ctx := context.Background()

	for want := int64(1); want <= 15; want++ {
		got, err := store.Next(ctx, "sale")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	// 1..10 from the first range, 11..15 from the second.
	assert.Equal(t, 2, q.calls)
}

func TestPostgresStore_CachedConcurrent(t *testing.T) {
	q := newMockQuerier()
	store := NewPostgresStore(q, corenumerator.Options{
		Strategy:  corenumerator.StrategyCached,
		RangeSize: 7,
	})

	const n = 100
	var (
		mu   sync.Mutex
		seen = make(map[int64]bool)
		wg   sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := store.Next(context.Background(), "sale")
			assert.NoError(t, err)
			mu.Lock()
			seen[v] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, n)
}

func TestPostgresStore_SetResetsCache(t *testing.T) {
	q := newMockQuerier()
	store := NewPostgresStore(q, corenumerator.Options{
		Strategy:  corenumerator.StrategyCached,
		RangeSize: 5,
	})
	ctx := context.Background()

	_, err := store.Next(ctx, "sale")
	require.NoError(t, err)

	require.NoError(t, store.Set(ctx, "sale", 100))

	got, err := store.Next(ctx, "sale")
	require.NoError(t, err)
	assert.Equal(t, int64(101), got)
}

func TestPostgresStore_PropagatesErrors(t *testing.T) {
	q := newMockQuerier()
	q.err = errors.New("connection refused")
	store := NewPostgresStore(q, corenumerator.DefaultOptions())

	_, err := store.Next(context.Background(), "sale")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}
