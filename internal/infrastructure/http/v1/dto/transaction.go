package dto

import (
	"time"

	"rxpos/internal/core/types"
	"rxpos/internal/domain/audit"
	"rxpos/internal/domain/payment"
	"rxpos/internal/domain/transaction"
)

// TransactionListQuery filters the transaction journal.
type TransactionListQuery struct {
	PaginationRequest
	BranchRef       string     `form:"branchRef"`
	TransactionType string     `form:"transactionType"`
	Statuses        []string   `form:"status"`
	DateFrom        *time.Time `form:"dateFrom" time_format:"2006-01-02T15:04:05Z07:00"`
	DateTo          *time.Time `form:"dateTo" time_format:"2006-01-02T15:04:05Z07:00"`
}

// Filter converts the query to the domain filter scoped to ownerRef.
func (q TransactionListQuery) Filter(ownerRef string) transaction.ListFilter {
	f := transaction.ListFilter{
		ListFilter:      q.ListFilter(),
		OwnerRef:        ownerRef,
		BranchRef:       q.BranchRef,
		TransactionType: q.TransactionType,
		DateFrom:        q.DateFrom,
		DateTo:          q.DateTo,
	}
	for _, s := range q.Statuses {
		f.Statuses = append(f.Statuses, transaction.Status(s))
	}
	return f
}

// TransactionSummary is the list row of a transaction.
type TransactionSummary struct {
	ID                string                     `json:"id"`
	TransactionID     string                     `json:"transactionId"`
	TransactionNumber string                     `json:"transactionNumber"`
	TransactionType   string                     `json:"transactionType"`
	BranchRef         string                     `json:"branchRef,omitempty"`
	Status            transaction.Status         `json:"status"`
	TotalAmount       types.Money                `json:"totalAmount"`
	TotalRefunded     types.Money                `json:"totalRefunded"`
	PaymentMethod     payment.Method             `json:"paymentMethod,omitempty"`
	DeliveryStatus    transaction.DeliveryStatus `json:"deliveryStatus,omitempty"`
	TransactionDate   time.Time                  `json:"transactionDate"`
	ItemCount         int                        `json:"itemCount"`
}

// FromTransaction builds the list row.
func FromTransaction(t *transaction.Transaction) TransactionSummary {
	return TransactionSummary{
		ID:                t.ID.String(),
		TransactionID:     t.TransactionID,
		TransactionNumber: t.TransactionNumber,
		TransactionType:   string(t.TransactionType),
		BranchRef:         t.BranchRef,
		Status:            t.Status,
		TotalAmount:       t.TotalAmount,
		TotalRefunded:     t.TotalRefunded,
		PaymentMethod:     t.Payment.Method,
		DeliveryStatus:    t.Delivery.Status,
		TransactionDate:   t.TransactionDate,
		ItemCount:         len(t.Items),
	}
}

// RefundRequest asks for money back.
type RefundRequest struct {
	Amount        types.Money    `json:"amount"`
	Reason        string         `json:"reason" binding:"required"`
	PaymentMethod payment.Method `json:"paymentMethod"`
}

// Domain converts to the domain request.
func (r RefundRequest) Domain() transaction.RefundRequest {
	return transaction.RefundRequest{Amount: r.Amount, Reason: r.Reason, PaymentMethod: r.PaymentMethod}
}

// DeliveryStatusRequest advances the delivery sub-state.
type DeliveryStatusRequest struct {
	Status transaction.DeliveryStatus `json:"status" binding:"required"`
}

// CancelRequest voids a transaction.
type CancelRequest struct {
	Reason string `json:"reason"`
}

// AuditEntryResponse is one history row.
type AuditEntryResponse struct {
	Action    string         `json:"action"`
	UserID    string         `json:"userId,omitempty"`
	Changes   map[string]any `json:"changes,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// FromAuditEntry builds a history row.
func FromAuditEntry(e audit.Entry) AuditEntryResponse {
	return AuditEntryResponse{
		Action:    string(e.Action),
		UserID:    e.UserID,
		Changes:   e.Changes,
		CreatedAt: e.CreatedAt,
	}
}
