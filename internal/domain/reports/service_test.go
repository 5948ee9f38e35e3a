package reports_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rxpos/internal/core/apperror"
	"rxpos/internal/core/types"
	"rxpos/internal/domain/pricing"
	"rxpos/internal/domain/reports"
	"rxpos/internal/domain/transaction"
	"rxpos/internal/infrastructure/storage/memory"
)

var day = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func seed(t *testing.T, store *memory.Store, at time.Time, status transaction.Status, form string, price string, qty int) {
	t.Helper()
	tx := transaction.New("PH-1", pricing.TypeSale, at)
	li, err := pricing.NewLineItem(pricing.Product{Ref: "P-" + form, Name: form + " product", Form: form, Price: types.MustMoney(price)}, qty, at)
	require.NoError(t, err)
	tx.Items = []pricing.LineItem{li}
	tx.RecomputeDerivedFields()
	tx.Status = status
	tx.TransactionID = "TXN-" + tx.ID.String()
	tx.TransactionNumber = "SAL-" + tx.ID.String()
	tx.TransactionRef = "REF-" + tx.ID.String()
	require.NoError(t, store.Transactions().Create(context.Background(), tx))
}

func TestSales_SummaryAndBuckets(t *testing.T) {
	store := memory.New()
	seed(t, store, day.Add(9*time.Hour), transaction.StatusCompleted, "tablet", "10.00", 2)
	seed(t, store, day.Add(9*time.Hour+30*time.Minute), transaction.StatusCompleted, "syrup", "5.00", 1)
	seed(t, store, day.Add(33*time.Hour), transaction.StatusCompleted, "tablet", "10.00", 1)
	seed(t, store, day.Add(10*time.Hour), transaction.StatusDraft, "tablet", "99.00", 1)
	seed(t, store, day.Add(-time.Hour), transaction.StatusCompleted, "tablet", "99.00", 1)

	svc := reports.NewService(store.Reports())
	filter := reports.SalesFilter{From: day, To: day.AddDate(0, 0, 7), OwnerRef: "PH-1"}

	rep, err := svc.Sales(context.Background(), filter)
	require.NoError(t, err)
	assert.EqualValues(t, 3, rep.Summary.Count)
	assert.True(t, types.MustMoney("35.00").Equal(rep.Summary.GrossSales))
	assert.True(t, types.MustMoney("11.67").Equal(rep.Summary.AverageSale))
	assert.Empty(t, rep.Buckets)

	filter.GroupBy = reports.GroupByDay
	rep, err = svc.Sales(context.Background(), filter)
	require.NoError(t, err)
	require.Len(t, rep.Buckets, 2)
	assert.Equal(t, "2026-03-02", rep.Buckets[0].Key)
	assert.EqualValues(t, 2, rep.Buckets[0].Count)
	assert.True(t, types.MustMoney("25.00").Equal(rep.Buckets[0].Total))

	filter.GroupBy = reports.GroupByHour
	rep, err = svc.Sales(context.Background(), filter)
	require.NoError(t, err)
	require.Len(t, rep.Buckets, 1)
	assert.Equal(t, "09", rep.Buckets[0].Key)
	assert.EqualValues(t, 3, rep.Buckets[0].Count)

	filter.GroupBy = reports.GroupByCategory
	rep, err = svc.Sales(context.Background(), filter)
	require.NoError(t, err)
	require.Len(t, rep.Buckets, 2)
	assert.Equal(t, "syrup", rep.Buckets[0].Key)
	assert.Equal(t, "tablet", rep.Buckets[1].Key)
	assert.EqualValues(t, 3, rep.Buckets[1].Quantity)
}

func TestTopProducts(t *testing.T) {
	store := memory.New()
	seed(t, store, day.Add(time.Hour), transaction.StatusCompleted, "tablet", "10.00", 5)
	seed(t, store, day.Add(2*time.Hour), transaction.StatusCompleted, "syrup", "5.00", 7)

	rows, err := reports.NewService(store.Reports()).TopProducts(context.Background(),
		reports.SalesFilter{From: day, To: day.AddDate(0, 0, 1)}, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "P-syrup", rows[0].ProductRef)
	assert.EqualValues(t, 7, rows[0].Quantity)
}

func TestSales_ValidatesPeriod(t *testing.T) {
	svc := reports.NewService(memory.New().Reports())
	ctx := context.Background()

	_, err := svc.Sales(ctx, reports.SalesFilter{})
	assert.Equal(t, apperror.CategoryValidation, apperror.CategoryOf(err))

	_, err = svc.Sales(ctx, reports.SalesFilter{From: day, To: day})
	assert.Equal(t, apperror.CategoryValidation, apperror.CategoryOf(err))

	_, err = svc.Sales(ctx, reports.SalesFilter{From: day, To: day.AddDate(2, 0, 0)})
	assert.Equal(t, apperror.CategoryValidation, apperror.CategoryOf(err))

	_, err = svc.Sales(ctx, reports.SalesFilter{From: day, To: day.AddDate(0, 0, 1), GroupBy: "week"})
	assert.Equal(t, apperror.CategoryValidation, apperror.CategoryOf(err))
}

type snapshotRepo struct {
	reports.Repository
	snapshots int
	inside    []string
	active    bool
}

func (r *snapshotRepo) Snapshot(ctx context.Context, fn func(ctx context.Context) error) error {
	r.snapshots++
	r.active = true
	defer func() { r.active = false }()
	return fn(ctx)
}

func (r *snapshotRepo) SalesSummary(ctx context.Context, filter reports.SalesFilter) (reports.Summary, error) {
	if r.active {
		r.inside = append(r.inside, "summary")
	}
	return r.Repository.SalesSummary(ctx, filter)
}

func (r *snapshotRepo) SalesBuckets(ctx context.Context, filter reports.SalesFilter) ([]reports.Bucket, error) {
	if r.active {
		r.inside = append(r.inside, "buckets")
	}
	return r.Repository.SalesBuckets(ctx, filter)
}

func TestSales_ReadsInOneSnapshot(t *testing.T) {
	repo := &snapshotRepo{Repository: memory.New().Reports()}
	svc := reports.NewService(repo)

	_, err := svc.Sales(context.Background(), reports.SalesFilter{
		From:    day,
		To:      day.AddDate(0, 0, 1),
		GroupBy: reports.GroupByDay,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.snapshots)
	assert.Equal(t, []string{"summary", "buckets"}, repo.inside)
}
