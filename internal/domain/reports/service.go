package reports

import (
	"context"
	"fmt"
	"time"

	"rxpos/internal/core/apperror"
)

// MaxPeriod bounds a single report window.
const MaxPeriod = 366 * 24 * time.Hour

// Snapshotter is implemented by repositories that can run several reads
// against one consistent snapshot.
type Snapshotter interface {
	Snapshot(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service provides report generation operations.
type Service struct {
	repo Repository
}

// NewService creates a new reports service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) snapshot(ctx context.Context, fn func(ctx context.Context) error) error {
	if snap, ok := s.repo.(Snapshotter); ok {
		return snap.Snapshot(ctx, fn)
	}
	return fn(ctx)
}

// Sales builds the summary and, when requested, the grouped buckets.
func (s *Service) Sales(ctx context.Context, filter SalesFilter) (*SalesReport, error) {
	if err := validatePeriod(&filter); err != nil {
		return nil, err
	}
	switch filter.GroupBy {
	case GroupByNone, GroupByDay, GroupByHour, GroupByCategory:
	default:
		return nil, apperror.NewValidation("unsupported grouping").
			WithDetail("field", "groupBy").
			WithDetail("value", string(filter.GroupBy))
	}

	report := &SalesReport{
		From:    filter.From,
		To:      filter.To,
		GroupBy: filter.GroupBy,
	}

	// summary and buckets must agree when sales land mid-report
	err := s.snapshot(ctx, func(ctx context.Context) error {
		summary, err := s.repo.SalesSummary(ctx, filter)
		if err != nil {
			return fmt.Errorf("get sales summary: %w", err)
		}
		report.Summary = summary

		if filter.GroupBy != GroupByNone {
			buckets, err := s.repo.SalesBuckets(ctx, filter)
			if err != nil {
				return fmt.Errorf("get sales buckets: %w", err)
			}
			report.Buckets = buckets
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// TopProducts returns best sellers in the period.
func (s *Service) TopProducts(ctx context.Context, filter SalesFilter, limit int) ([]ProductSales, error) {
	if err := validatePeriod(&filter); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	rows, err := s.repo.TopProducts(ctx, filter, limit)
	if err != nil {
		return nil, fmt.Errorf("get top products: %w", err)
	}
	return rows, nil
}

func validatePeriod(filter *SalesFilter) error {
	if filter.From.IsZero() || filter.To.IsZero() {
		return apperror.NewValidation("from and to are required")
	}
	if !filter.From.Before(filter.To) {
		return apperror.NewValidation("from must be before to")
	}
	if filter.To.Sub(filter.From) > MaxPeriod {
		return apperror.NewValidation("report period is limited to one year")
	}
	filter.From = filter.From.UTC()
	filter.To = filter.To.UTC()
	return nil
}
