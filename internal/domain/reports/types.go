// Package reports provides read-only sales projections over persisted
// transactions.
package reports

import (
	"time"

	"rxpos/internal/core/types"
)

// Grouping selects the bucket dimension of a sales report.
type Grouping string

const (
	GroupByNone     Grouping = ""
	GroupByDay      Grouping = "day"
	GroupByHour     Grouping = "hour"
	GroupByCategory Grouping = "category"
)

// SalesFilter defines the report window and scope.
type SalesFilter struct {
	// Period (required), half-open [From, To)
	From time.Time
	To   time.Time

	OwnerRef        string
	BranchRef       string
	TransactionType string

	GroupBy Grouping
}

// CountedStatuses are the transaction states that represent a sale.
var CountedStatuses = []string{"completed", "partially_refunded", "refunded"}

// Summary aggregates a set of transactions.
type Summary struct {
	Count         int64       `json:"count"`
	GrossSales    types.Money `json:"grossSales"`
	AverageSale   types.Money `json:"averageSale"`
	TotalTax      types.Money `json:"totalTax"`
	TotalDiscount types.Money `json:"totalDiscount"`
	TotalRefunded types.Money `json:"totalRefunded"`
	NetSales      types.Money `json:"netSales"`
	TotalProfit   types.Money `json:"totalProfit"`
}

// Bucket is one group of a grouped report.
// Key is YYYY-MM-DD for day, HH (00-23, UTC) for hour, the dosage form for
// category.
type Bucket struct {
	Key      string      `json:"key"`
	Count    int64       `json:"count"`
	Quantity int64       `json:"quantity,omitempty"`
	Total    types.Money `json:"total"`
}

// SalesReport is the full report.
type SalesReport struct {
	From    time.Time `json:"from"`
	To      time.Time `json:"to"`
	GroupBy Grouping  `json:"groupBy,omitempty"`
	Summary Summary   `json:"summary"`
	Buckets []Bucket  `json:"buckets,omitempty"`
}

// ProductSales is one row of the best-sellers list.
type ProductSales struct {
	ProductRef  string      `json:"productRef"`
	ProductName string      `json:"productName"`
	Quantity    int64       `json:"quantity"`
	Revenue     types.Money `json:"revenue"`
}
