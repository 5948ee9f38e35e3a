// Package report_repo computes sales reports in SQL over the transaction
// documents.
package report_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"rxpos/internal/core/types"
	"rxpos/internal/domain/reports"
	"rxpos/internal/infrastructure/storage/postgres"
)

// ReportRepo implements reports.Repository.
type ReportRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var (
	_ reports.Repository  = (*ReportRepo)(nil)
	_ reports.Snapshotter = (*ReportRepo)(nil)
)

// NewReportRepo creates a new report repository.
func NewReportRepo(txManager *postgres.TxManager) *ReportRepo {
	return &ReportRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Snapshot implements reports.Snapshotter with a read-only repeatable-read
// transaction.
func (r *ReportRepo) Snapshot(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.txManager.ReadOnly(ctx, fn)
}

// countedWhere selects the transactions that count as sales in the window.
func countedWhere(f reports.SalesFilter) squirrel.And {
	where := squirrel.And{
		squirrel.Eq{"t.status": reports.CountedStatuses},
		squirrel.GtOrEq{"t.transaction_date": f.From},
		squirrel.Lt{"t.transaction_date": f.To},
	}
	if f.OwnerRef != "" {
		where = append(where, squirrel.Eq{"t.owner_ref": f.OwnerRef})
	}
	if f.BranchRef != "" {
		where = append(where, squirrel.Eq{"t.branch_ref": f.BranchRef})
	}
	if f.TransactionType != "" {
		where = append(where, squirrel.Eq{"t.transaction_type": f.TransactionType})
	}
	return where
}

func docMoney(field string) string {
	return fmt.Sprintf("COALESCE(SUM((t.doc->>'%s')::numeric), 0)", field)
}

// SalesSummary implements reports.Repository.
func (r *ReportRepo) SalesSummary(ctx context.Context, f reports.SalesFilter) (reports.Summary, error) {
	sql, args, err := r.builder.
		Select(
			"COUNT(*) AS count",
			"COALESCE(SUM(t.total_amount), 0) AS gross_sales",
			docMoney("tax")+" AS total_tax",
			docMoney("discountAmount")+" AS total_discount",
			docMoney("totalRefunded")+" AS total_refunded",
			docMoney("profit")+" AS total_profit",
		).
		From("transactions t").
		Where(countedWhere(f)).
		ToSql()
	if err != nil {
		return reports.Summary{}, fmt.Errorf("build summary: %w", err)
	}

	var sum reports.Summary
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &sum, sql, args...); err != nil {
		return reports.Summary{}, fmt.Errorf("sales summary: %w", err)
	}

	sum.GrossSales = types.Round(sum.GrossSales)
	sum.TotalTax = types.Round(sum.TotalTax)
	sum.TotalDiscount = types.Round(sum.TotalDiscount)
	sum.TotalRefunded = types.Round(sum.TotalRefunded)
	sum.TotalProfit = types.Round(sum.TotalProfit)
	sum.NetSales = sum.GrossSales.Sub(sum.TotalRefunded)
	sum.AverageSale = types.Zero()
	if sum.Count > 0 {
		sum.AverageSale = types.Round(sum.GrossSales.Div(types.NewMoney(float64(sum.Count))))
	}
	return sum, nil
}

// bucketQuery builds the grouped query for f.GroupBy.
func (r *ReportRepo) bucketQuery(f reports.SalesFilter) (squirrel.SelectBuilder, error) {
	switch f.GroupBy {
	case reports.GroupByDay, reports.GroupByHour:
		format := "YYYY-MM-DD"
		if f.GroupBy == reports.GroupByHour {
			format = "HH24"
		}
		return r.builder.
			Select(
				fmt.Sprintf("to_char(t.transaction_date AT TIME ZONE 'UTC', '%s') AS key", format),
				"COUNT(*) AS count",
				"0::bigint AS quantity",
				"COALESCE(SUM(t.total_amount), 0) AS total",
			).
			From("transactions t").
			Where(countedWhere(f)).
			GroupBy("1").
			OrderBy("1"), nil
	case reports.GroupByCategory:
		return r.builder.
			Select(
				"COALESCE(NULLIF(li->>'form', ''), 'uncategorized') AS key",
				"COUNT(*) AS count",
				"COALESCE(SUM((li->>'quantity')::bigint), 0)::bigint AS quantity",
				"COALESCE(SUM((li->>'totalPrice')::numeric), 0) AS total",
			).
			From("transactions t").
			JoinClause("CROSS JOIN LATERAL jsonb_array_elements(t.doc->'items') AS li").
			Where(countedWhere(f)).
			GroupBy("1").
			OrderBy("1"), nil
	}
	return squirrel.SelectBuilder{}, fmt.Errorf("unsupported grouping %q", f.GroupBy)
}

// SalesBuckets implements reports.Repository.
func (r *ReportRepo) SalesBuckets(ctx context.Context, f reports.SalesFilter) ([]reports.Bucket, error) {
	q, err := r.bucketQuery(f)
	if err != nil {
		return nil, err
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build buckets: %w", err)
	}

	buckets := make([]reports.Bucket, 0)
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &buckets, sql, args...); err != nil {
		return nil, fmt.Errorf("sales buckets: %w", err)
	}
	for i := range buckets {
		buckets[i].Total = types.Round(buckets[i].Total)
	}
	return buckets, nil
}

// TopProducts implements reports.Repository.
func (r *ReportRepo) TopProducts(ctx context.Context, f reports.SalesFilter, limit int) ([]reports.ProductSales, error) {
	sql, args, err := r.builder.
		Select(
			"li->>'productRef' AS product_ref",
			"MIN(li->>'productName') AS product_name",
			"SUM((li->>'quantity')::bigint)::bigint AS quantity",
			"COALESCE(SUM((li->>'totalPrice')::numeric), 0) AS revenue",
		).
		From("transactions t").
		JoinClause("CROSS JOIN LATERAL jsonb_array_elements(t.doc->'items') AS li").
		Where(countedWhere(f)).
		GroupBy("li->>'productRef'").
		OrderBy("quantity DESC", "product_ref ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build top products: %w", err)
	}

	rows := make([]reports.ProductSales, 0)
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}
	for i := range rows {
		rows[i].Revenue = types.Round(rows[i].Revenue)
	}
	return rows, nil
}
