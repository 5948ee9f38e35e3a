package numerator

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rxpos/internal/core/apperror"
)

func TestNextSequence_StartsAtOnePerCategory(t *testing.T) {
	g := NewGenerator(NewMemoryStore(), nil)
	ctx := context.Background()

	n, err := g.NextSequence(ctx, "sale")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = g.NextSequence(ctx, "sale")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = g.NextSequence(ctx, "return")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestNextSequence_ConcurrentCallersGetDistinctValues(t *testing.T) {
	g := NewGenerator(NewMemoryStore(), nil)

	const workers = 200
	var (
		mu   sync.Mutex
		seen = make(map[int64]struct{}, workers)
		wg   sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := g.NextSequence(context.Background(), "sale")
			assert.NoError(t, err)
			mu.Lock()
			seen[n] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers)
	for i := int64(1); i <= workers; i++ {
		assert.Contains(t, seen, i)
	}
}

func TestGenerateUniqueID_Format(t *testing.T) {
	fixed := time.UnixMilli(1700000000000)
	g := NewGenerator(NewMemoryStore(), nil, WithClock(func() time.Time { return fixed }))

	id, err := g.GenerateUniqueID(context.Background(), "txn")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(id, "TXN-LOYW3V28-"), id)
	assert.Regexp(t, regexp.MustCompile(`^TXN-[0-9A-Z]+-[0-9A-Z]{6}$`), id)
}

func TestGenerateUniqueID_ThousandConcurrentCallsAreDistinct(t *testing.T) {
	g := NewGenerator(NewMemoryStore(), nil)

	const n = 1000
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := g.GenerateUniqueID(context.Background(), "TXN")
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	unique := make(map[string]struct{}, n)
	for _, id := range ids {
		unique[id] = struct{}{}
	}
	assert.Len(t, unique, n)
}

func TestGenerateUniqueID_RetriesOnCollision(t *testing.T) {
	calls := 0
	checker := CollisionCheckerFunc(func(_ context.Context, _ string) (bool, error) {
		calls++
		return calls < 3, nil
	})
	g := NewGenerator(NewMemoryStore(), checker)

	id, err := g.GenerateUniqueID(context.Background(), "TXN")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, 3, calls)
}

func TestGenerateUniqueID_FailsAfterMaxAttempts(t *testing.T) {
	calls := 0
	checker := CollisionCheckerFunc(func(_ context.Context, _ string) (bool, error) {
		calls++
		return true, nil
	})
	g := NewGenerator(NewMemoryStore(), checker, WithRandom(func(n int) (string, error) {
		return strings.Repeat("A", n), nil
	}))

	_, err := g.GenerateUniqueID(context.Background(), "TXN")
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeIDGeneration))
	assert.Equal(t, apperror.CategoryIDGeneration, apperror.CategoryOf(err))
	assert.Equal(t, MaxAttempts, calls)
}

func TestGenerateReference_Length(t *testing.T) {
	g := NewGenerator(NewMemoryStore(), nil)

	ref, err := g.GenerateReference(context.Background())
	require.NoError(t, err)
	assert.Len(t, ref, ReferenceLength)
	assert.Regexp(t, `^[0-9A-Z]+$`, ref)
}

func TestRandomString(t *testing.T) {
	s, err := RandomString(SuffixLength)
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9A-Z]{6}$`, s)

	empty, err := RandomString(0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestFormatTransactionNumber(t *testing.T) {
	tests := []struct {
		txType string
		seq    int64
		want   string
	}{
		{"sale", 42, "SAL00000042"},
		{"purchase", 1, "PUR00000001"},
		{"return", 12345678, "RET12345678"},
		{"adjustment", 7, "ADJ00000007"},
	}
	for _, tt := range tests {
		t.Run(tt.txType, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTransactionNumber(tt.txType, tt.seq))
		})
	}
}
