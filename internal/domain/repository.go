// Package domain provides types shared by the aggregate packages.
package domain

// ListFilter contains common paging options for list operations.
type ListFilter struct {
	// OrderBy specifies sorting (e.g., "transaction_date", "-created_at")
	OrderBy string

	// Pagination
	Limit  int
	Offset int
}

// MaxLimit caps page size.
const MaxLimit = 500

// DefaultListFilter returns sensible defaults.
func DefaultListFilter() ListFilter {
	return ListFilter{
		Limit:   50,
		OrderBy: "-created_at",
	}
}

// Normalize clamps paging values to the supported range.
func (f *ListFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// ListResult contains paginated results.
type ListResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}
