// Package transaction provides the sales transaction aggregate: the financial
// record produced by checkout and later changed only by refunds, delivery
// progress or administrative cancellation.
package transaction

import (
	"context"
	"fmt"
	"time"

	"rxpos/internal/core/apperror"
	"rxpos/internal/core/entity"
	"rxpos/internal/core/numerator"
	"rxpos/internal/core/types"
	"rxpos/internal/domain/payment"
	"rxpos/internal/domain/pricing"
)

// Status is the transaction lifecycle state.
type Status string

const (
	StatusDraft             Status = "draft"
	StatusPending           Status = "pending"
	StatusCompleted         Status = "completed"
	StatusCancelled         Status = "cancelled"
	StatusRefunded          Status = "refunded"
	StatusPartiallyRefunded Status = "partially_refunded"
	StatusOnHold            Status = "on_hold"
)

// PaymentStatus is the state of the embedded payment record.
type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "pending"
	PaymentCompleted         PaymentStatus = "completed"
	PaymentFailed            PaymentStatus = "failed"
	PaymentRefunded          PaymentStatus = "refunded"
	PaymentPartiallyRefunded PaymentStatus = "partially_refunded"
	PaymentAuthorized        PaymentStatus = "authorized"
)

// RefundWindow is how long after the transaction date refunds are accepted.
const RefundWindow = 90 * 24 * time.Hour

// IDPrefix prefixes generated transaction ids.
const IDPrefix = "TXN"

// PaymentRecord is the payment applied to a transaction.
type PaymentRecord struct {
	Method           payment.Method  `json:"method"`
	PaymentMethodRef string          `json:"paymentMethodRef,omitempty"`
	Amount           types.Money     `json:"amount"`
	Status           PaymentStatus   `json:"status"`
	Details          payment.Details `json:"details"`
	PaidAt           *time.Time      `json:"paidAt,omitempty"`
	FailedAt         *time.Time      `json:"failedAt,omitempty"`
	RefundedAt       *time.Time      `json:"refundedAt,omitempty"`
}

// Refund is an append-only refund record.
type Refund struct {
	RefundRef     string         `json:"refundRef"`
	Amount        types.Money    `json:"amount"`
	Date          time.Time      `json:"date"`
	Reason        string         `json:"reason,omitempty"`
	PaymentMethod payment.Method `json:"paymentMethod"`
	ProcessedBy   string         `json:"processedBy,omitempty"`
}

// Transaction is the persisted sale (or purchase, return, adjustment).
type Transaction struct {
	entity.BaseDocument

	OwnerRef        string                  `json:"ownerRef"`
	BranchRef       string                  `json:"branchRef,omitempty"`
	TransactionType pricing.TransactionType `json:"transactionType"`

	// Assigned once on first save.
	TransactionID     string `json:"transactionId"`
	TransactionNumber string `json:"transactionNumber"`
	TransactionRef    string `json:"transactionRef"`

	Items []pricing.LineItem `json:"items"`

	Subtotal         types.Money      `json:"subtotal"`
	TaxRate          types.Money      `json:"taxRate"`
	Tax              types.Money      `json:"tax"`
	Discount         pricing.Discount `json:"discount"`
	DiscountAmount   types.Money      `json:"discountAmount"`
	DeliveryFee      types.Money      `json:"deliveryFee"`
	TotalAmount      types.Money      `json:"totalAmount"`
	TotalRefunded    types.Money      `json:"totalRefunded"`
	Profit           types.Money      `json:"profit"`
	MarginPercentage types.Money      `json:"marginPercentage"`

	CustomerInfo    pricing.Customer `json:"customerInfo"`
	Payment         PaymentRecord    `json:"payment"`
	Status          Status           `json:"status"`
	TransactionDate time.Time        `json:"transactionDate"`
	Refunds         []Refund         `json:"refunds"`
	Delivery        Delivery         `json:"delivery"`

	CartRef      string     `json:"cartRef,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	CancelReason string     `json:"cancelReason,omitempty"`
	CancelledAt  *time.Time `json:"cancelledAt,omitempty"`
}

// New creates an empty transaction in draft.
func New(ownerRef string, txType pricing.TransactionType, now time.Time) *Transaction {
	t := &Transaction{
		BaseDocument:    entity.NewBaseDocument(now),
		OwnerRef:        ownerRef,
		TransactionType: txType,
		Items:           make([]pricing.LineItem, 0),
		TaxRate:         types.Zero(),
		Discount:        pricing.Discount{Amount: types.Zero(), Type: pricing.DiscountFixed},
		Status:          StatusDraft,
		TransactionDate: now.UTC(),
		Refunds:         make([]Refund, 0),
		Payment:         PaymentRecord{Status: PaymentPending, Amount: types.Zero()},
		Delivery:        PickupDelivery(),
	}
	t.RecomputeDerivedFields()
	return t
}

// IdentifierSource assigns the three transaction identifiers.
type IdentifierSource interface {
	GenerateUniqueID(ctx context.Context, prefix string) (string, error)
	NextSequence(ctx context.Context, category string) (int64, error)
	GenerateReference(ctx context.Context) (string, error)
}

// PrepareForSave runs before every persist: assigns missing identifiers,
// recomputes derived fields, applies the auto-status rule and validates.
func (t *Transaction) PrepareForSave(ctx context.Context, ids IdentifierSource, now time.Time) error {
	if err := t.assignIdentifiers(ctx, ids); err != nil {
		return err
	}
	t.RecomputeDerivedFields()
	t.ApplyAutoStatus(now)
	if t.UpdatedBy == "" {
		t.UpdatedBy = t.CreatedBy
	}
	t.Touch(now)
	return t.Validate()
}

func (t *Transaction) assignIdentifiers(ctx context.Context, ids IdentifierSource) error {
	if t.TransactionID == "" {
		v, err := ids.GenerateUniqueID(ctx, IDPrefix)
		if err != nil {
			return err
		}
		t.TransactionID = v
	}
	if t.TransactionNumber == "" {
		seq, err := ids.NextSequence(ctx, string(t.TransactionType))
		if err != nil {
			return err
		}
		t.TransactionNumber = numerator.FormatTransactionNumber(string(t.TransactionType), seq)
	}
	if t.TransactionRef == "" {
		v, err := ids.GenerateReference(ctx)
		if err != nil {
			return err
		}
		t.TransactionRef = v
	}
	return nil
}

// RecomputeDerivedFields derives every money field from lines, rates,
// discount, delivery and refunds.
func (t *Transaction) RecomputeDerivedFields() {
	totals := pricing.Sum(t.Items)

	t.Subtotal = totals.Subtotal
	t.Tax = pricing.Tax(t.Subtotal, t.TaxRate)
	t.DiscountAmount = t.Discount.Value(t.Subtotal)
	if t.Delivery.Option == DeliveryOptionDelivery {
		t.Delivery.Fee = types.Round(t.Delivery.Fee)
		t.DeliveryFee = t.Delivery.Fee
	} else {
		t.Delivery.Fee = types.Zero()
		t.DeliveryFee = types.Zero()
	}
	t.TotalAmount = pricing.Total(t.Subtotal, t.Tax, t.DiscountAmount, t.DeliveryFee)
	t.Payment.Amount = t.TotalAmount

	t.Profit = totals.Profit
	t.MarginPercentage = pricing.Margin(t.Profit, t.Subtotal)

	refunded := types.Zero()
	for _, r := range t.Refunds {
		refunded = refunded.Add(r.Amount)
	}
	t.TotalRefunded = types.Round(refunded)
}

// ApplyAutoStatus derives status from the payment status. Idempotent; never
// moves a completed, refunded or partially refunded transaction backwards.
func (t *Transaction) ApplyAutoStatus(now time.Time) {
	switch t.Payment.Status {
	case PaymentCompleted:
		if t.Status == StatusPending {
			t.Status = StatusCompleted
		}
		if t.Status == StatusCompleted && t.Payment.PaidAt == nil {
			ts := now.UTC()
			t.Payment.PaidAt = &ts
		}
	case PaymentFailed:
		switch t.Status {
		case StatusCancelled, StatusCompleted, StatusRefunded, StatusPartiallyRefunded:
			return
		}
		t.Status = StatusPending
		if t.Payment.FailedAt == nil {
			ts := now.UTC()
			t.Payment.FailedAt = &ts
		}
	}
}

// ApplyPayment records a successful dispatch and completes the transaction.
func (t *Transaction) ApplyPayment(method payment.Method, methodRef string, details payment.Details) {
	t.Payment.Method = method
	t.Payment.PaymentMethodRef = methodRef
	t.Payment.Details = details
	t.Payment.Status = PaymentCompleted
	t.Payment.FailedAt = nil
	if t.Status == StatusDraft || t.Status == StatusOnHold {
		t.Status = StatusPending
	}
}

// IsEditable reports whether items, delivery and totals may still change.
func (t *Transaction) IsEditable() bool {
	return t.Status == StatusDraft || t.Status == StatusPending
}

// IsResumable reports whether checkout may finalize this transaction.
func (t *Transaction) IsResumable() bool {
	return t.IsEditable() || t.Status == StatusOnHold
}

// RemainingBalance is the amount still refundable.
func (t *Transaction) RemainingBalance() types.Money {
	return types.NonNegative(t.TotalAmount.Sub(t.TotalRefunded))
}

// Cancel voids a transaction that has not been completed.
func (t *Transaction) Cancel(reason string, now time.Time) error {
	switch t.Status {
	case StatusDraft, StatusPending, StatusOnHold:
	default:
		return apperror.NewInvalidTransition(string(t.Status), string(StatusCancelled)).
			WithDetail("transaction_id", t.TransactionID)
	}
	ts := now.UTC()
	t.Status = StatusCancelled
	t.CancelReason = reason
	t.CancelledAt = &ts
	if t.Delivery.Option == DeliveryOptionDelivery && ValidateTransition(t.Delivery.Status, DeliveryCancelled) {
		t.Delivery.Status = DeliveryCancelled
	}
	return nil
}

// Hold parks a draft or pending transaction.
func (t *Transaction) Hold() error {
	if !t.IsEditable() {
		return apperror.NewInvalidTransition(string(t.Status), string(StatusOnHold)).
			WithDetail("transaction_id", t.TransactionID)
	}
	t.Status = StatusOnHold
	return nil
}

// Validate checks cross-field invariants. Run before every persist.
func (t *Transaction) Validate() error {
	if t.OwnerRef == "" {
		return apperror.NewValidation("owner is required").WithDetail("field", "ownerRef")
	}
	if err := t.TransactionType.Validate(); err != nil {
		return err
	}
	if len(t.Items) == 0 {
		return apperror.NewValidation("transaction must contain at least one item").
			WithDetail("field", "items")
	}
	for i := range t.Items {
		if err := t.Items[i].Validate(); err != nil {
			return err
		}
		if err := t.Items[i].VerifyConsistency(); err != nil {
			return err
		}
	}
	if t.TaxRate.IsNegative() || t.TaxRate.GreaterThan(types.NewMoney(1)) {
		return apperror.NewValidation("tax rate must be a fraction between 0 and 1").
			WithDetail("field", "taxRate")
	}
	if err := t.Discount.Validate(); err != nil {
		return err
	}
	if t.Payment.Amount.GreaterThan(t.TotalAmount) {
		return apperror.NewValidation("payment amount exceeds transaction total").
			WithDetail("field", "payment.amount")
	}
	if t.TotalRefunded.GreaterThan(t.TotalAmount) {
		return apperror.NewConsistency("transaction", "refunded amount exceeds total").
			WithDetail("transaction_id", t.TransactionID)
	}
	if t.Delivery.Option == DeliveryOptionDelivery && !t.Delivery.Status.valid() {
		return apperror.NewValidation("unknown delivery status").
			WithDetail("field", "delivery.status")
	}
	return nil
}

// VerifyConsistency checks a loaded document against its own derived fields.
func (t *Transaction) VerifyConsistency() error {
	for i := range t.Items {
		if err := t.Items[i].VerifyConsistency(); err != nil {
			return err
		}
	}
	clone := *t
	clone.Items = append([]pricing.LineItem(nil), t.Items...)
	clone.RecomputeDerivedFields()
	if !clone.Subtotal.Equal(t.Subtotal) || !clone.TotalAmount.Equal(t.TotalAmount) {
		return apperror.NewConsistency("transaction", fmt.Sprintf(
			"stored totals %s/%s do not match lines %s/%s",
			t.Subtotal, t.TotalAmount, clone.Subtotal, clone.TotalAmount,
		)).WithDetail("transaction_id", t.TransactionID)
	}
	return nil
}
