package memory

import (
	"context"
	"slices"
	"sort"

	"rxpos/internal/core/types"
	"rxpos/internal/domain/reports"
	"rxpos/internal/domain/transaction"
)

// ReportRepo implements reports.Repository over the stored transactions.
type ReportRepo struct{ s *Store }

// Reports returns the report repository view.
func (s *Store) Reports() *ReportRepo { return &ReportRepo{s: s} }

var _ reports.Repository = (*ReportRepo)(nil)

func (r *ReportRepo) counted(f reports.SalesFilter) []*transaction.Transaction {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*transaction.Transaction, 0)
	for _, t := range r.s.transactions {
		if !slices.Contains(reports.CountedStatuses, string(t.Status)) {
			continue
		}
		if t.TransactionDate.Before(f.From) || !t.TransactionDate.Before(f.To) {
			continue
		}
		if f.OwnerRef != "" && t.OwnerRef != f.OwnerRef {
			continue
		}
		if f.BranchRef != "" && t.BranchRef != f.BranchRef {
			continue
		}
		if f.TransactionType != "" && string(t.TransactionType) != f.TransactionType {
			continue
		}
		out = append(out, clone(t))
	}
	return out
}

// SalesSummary implements reports.Repository.
func (r *ReportRepo) SalesSummary(_ context.Context, f reports.SalesFilter) (reports.Summary, error) {
	sum := reports.Summary{
		GrossSales:    types.Zero(),
		AverageSale:   types.Zero(),
		TotalTax:      types.Zero(),
		TotalDiscount: types.Zero(),
		TotalRefunded: types.Zero(),
		NetSales:      types.Zero(),
		TotalProfit:   types.Zero(),
	}
	for _, t := range r.counted(f) {
		sum.Count++
		sum.GrossSales = sum.GrossSales.Add(t.TotalAmount)
		sum.TotalTax = sum.TotalTax.Add(t.Tax)
		sum.TotalDiscount = sum.TotalDiscount.Add(t.DiscountAmount)
		sum.TotalRefunded = sum.TotalRefunded.Add(t.TotalRefunded)
		sum.TotalProfit = sum.TotalProfit.Add(t.Profit)
	}
	sum.NetSales = sum.GrossSales.Sub(sum.TotalRefunded)
	if sum.Count > 0 {
		sum.AverageSale = types.Round(sum.GrossSales.Div(types.NewMoney(float64(sum.Count))))
	}
	return sum, nil
}

// SalesBuckets implements reports.Repository.
func (r *ReportRepo) SalesBuckets(_ context.Context, f reports.SalesFilter) ([]reports.Bucket, error) {
	buckets := make(map[string]*reports.Bucket)
	get := func(key string) *reports.Bucket {
		b, ok := buckets[key]
		if !ok {
			b = &reports.Bucket{Key: key, Total: types.Zero()}
			buckets[key] = b
		}
		return b
	}

	for _, t := range r.counted(f) {
		switch f.GroupBy {
		case reports.GroupByDay:
			b := get(t.TransactionDate.UTC().Format("2006-01-02"))
			b.Count++
			b.Total = b.Total.Add(t.TotalAmount)
		case reports.GroupByHour:
			b := get(t.TransactionDate.UTC().Format("15"))
			b.Count++
			b.Total = b.Total.Add(t.TotalAmount)
		case reports.GroupByCategory:
			for _, li := range t.Items {
				key := li.Form
				if key == "" {
					key = "uncategorized"
				}
				b := get(key)
				b.Count++
				b.Quantity += int64(li.Quantity)
				b.Total = b.Total.Add(li.TotalPrice)
			}
		}
	}

	out := make([]reports.Bucket, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// TopProducts implements reports.Repository.
func (r *ReportRepo) TopProducts(_ context.Context, f reports.SalesFilter, limit int) ([]reports.ProductSales, error) {
	rows := make(map[string]*reports.ProductSales)
	for _, t := range r.counted(f) {
		for _, li := range t.Items {
			row, ok := rows[li.ProductRef]
			if !ok {
				row = &reports.ProductSales{ProductRef: li.ProductRef, ProductName: li.ProductName, Revenue: types.Zero()}
				rows[li.ProductRef] = row
			}
			row.Quantity += int64(li.Quantity)
			row.Revenue = row.Revenue.Add(li.TotalPrice)
		}
	}
	out := make([]reports.ProductSales, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Quantity != out[j].Quantity {
			return out[i].Quantity > out[j].Quantity
		}
		return out[i].ProductRef < out[j].ProductRef
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
