package transaction

import (
	"time"

	"rxpos/internal/core/apperror"
	"rxpos/internal/core/types"
	"rxpos/internal/domain/payment"
)

// RefundRequest asks for money back on a transaction.
type RefundRequest struct {
	Amount        types.Money    `json:"amount"`
	Reason        string         `json:"reason"`
	PaymentMethod payment.Method `json:"paymentMethod,omitempty"`
	ProcessedBy   string         `json:"-"`
	RefundRef     string         `json:"-"`
}

// CanRefund reports whether a refund is accepted at now.
func (t *Transaction) CanRefund(now time.Time) bool {
	if t.Status != StatusCompleted && t.Status != StatusPartiallyRefunded {
		return false
	}
	if !t.TotalRefunded.LessThan(t.TotalAmount) {
		return false
	}
	return now.Sub(t.TransactionDate) <= RefundWindow
}

// ProcessRefund appends a refund capped at the remaining balance and updates
// status. Returns the amount actually refunded.
func (t *Transaction) ProcessRefund(req RefundRequest, now time.Time) (types.Money, error) {
	if !t.CanRefund(now) {
		return types.Zero(), apperror.NewRefundNotAllowed(string(t.Status)).
			WithDetail("transaction_id", t.TransactionID).
			WithDetail("total_refunded", t.TotalRefunded.String())
	}
	if !req.Amount.IsPositive() {
		return types.Zero(), apperror.NewValidation("refund amount must be positive").
			WithDetail("field", "amount")
	}

	amount := types.Min(types.Round(req.Amount), t.RemainingBalance())

	method := req.PaymentMethod
	if method == "" {
		method = t.Payment.Method
	}
	t.Refunds = append(t.Refunds, Refund{
		RefundRef:     req.RefundRef,
		Amount:        amount,
		Date:          now.UTC(),
		Reason:        req.Reason,
		PaymentMethod: method,
		ProcessedBy:   req.ProcessedBy,
	})
	t.TotalRefunded = types.Round(t.TotalRefunded.Add(amount))
	t.applyRefundStatus(now)
	return amount, nil
}

func (t *Transaction) applyRefundStatus(now time.Time) {
	switch {
	case !t.TotalRefunded.LessThan(t.TotalAmount):
		ts := now.UTC()
		t.Status = StatusRefunded
		t.Payment.Status = PaymentRefunded
		t.Payment.RefundedAt = &ts
	case t.TotalRefunded.IsPositive():
		t.Status = StatusPartiallyRefunded
		t.Payment.Status = PaymentPartiallyRefunded
	}
}
