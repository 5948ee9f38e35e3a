// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"rxpos/internal/domain"
)

// PaginationRequest contains paging parameters.
type PaginationRequest struct {
	Limit   int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset  int    `form:"offset" binding:"omitempty,min=0"`
	OrderBy string `form:"orderBy"`
}

// ListFilter converts paging parameters to the domain form.
func (p PaginationRequest) ListFilter() domain.ListFilter {
	f := domain.DefaultListFilter()
	if p.Limit > 0 {
		f.Limit = p.Limit
	}
	f.Offset = p.Offset
	if p.OrderBy != "" {
		f.OrderBy = p.OrderBy
	}
	return f
}

// ListResponse wraps list results with pagination.
type ListResponse[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// NewListResponse maps a domain page with fn.
func NewListResponse[S, T any](res domain.ListResult[S], fn func(S) T) ListResponse[T] {
	items := make([]T, 0, len(res.Items))
	for _, it := range res.Items {
		items = append(items, fn(it))
	}
	return ListResponse[T]{
		Items:      items,
		TotalCount: res.TotalCount,
		Limit:      res.Limit,
		Offset:     res.Offset,
	}
}

// SuccessResponse for operations without data.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
