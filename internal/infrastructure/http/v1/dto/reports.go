package dto

import (
	"time"

	"rxpos/internal/domain/reports"
)

// SalesReportQuery defines the report window. From and To are RFC 3339;
// To is exclusive.
type SalesReportQuery struct {
	From            time.Time `form:"from" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	To              time.Time `form:"to" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	GroupBy         string    `form:"groupBy" binding:"omitempty,oneof=day hour category"`
	BranchRef       string    `form:"branchRef"`
	TransactionType string    `form:"transactionType"`
}

// Filter converts the query to the domain filter scoped to ownerRef.
func (q SalesReportQuery) Filter(ownerRef string) reports.SalesFilter {
	return reports.SalesFilter{
		From:            q.From,
		To:              q.To,
		OwnerRef:        ownerRef,
		BranchRef:       q.BranchRef,
		TransactionType: q.TransactionType,
		GroupBy:         reports.Grouping(q.GroupBy),
	}
}

// TopProductsQuery is SalesReportQuery plus a row limit.
type TopProductsQuery struct {
	SalesReportQuery
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}
