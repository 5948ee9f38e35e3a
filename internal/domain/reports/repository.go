package reports

import (
	"context"
)

// Repository defines report data access interface.
type Repository interface {
	// SalesSummary returns sum/avg aggregates over counted transactions.
	SalesSummary(ctx context.Context, filter SalesFilter) (Summary, error)

	// SalesBuckets groups counted transactions by filter.GroupBy.
	SalesBuckets(ctx context.Context, filter SalesFilter) ([]Bucket, error)

	// TopProducts returns best sellers by quantity.
	TopProducts(ctx context.Context, filter SalesFilter, limit int) ([]ProductSales, error)
}
