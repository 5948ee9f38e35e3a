// Package checkout turns a cart, an explicit item list or a parked
// transaction into a persisted transaction: stock is reserved, payment is
// dispatched, and only then is the record written.
package checkout

import (
	"rxpos/internal/core/apperror"
	"rxpos/internal/core/id"
	"rxpos/internal/core/types"
	"rxpos/internal/domain/payment"
	"rxpos/internal/domain/pricing"
	"rxpos/internal/domain/transaction"
)

// ItemRequest is one line of an explicit item list.
type ItemRequest struct {
	ProductRef string `json:"productRef"`
	Quantity   int    `json:"quantity"`
}

// DeliveryRequest selects pickup or delivery.
type DeliveryRequest struct {
	Option     transaction.DeliveryOption `json:"option"`
	AddressRef string                     `json:"addressRef,omitempty"`
}

// Request is the checkout input. Exactly one item source is used, in this
// order of precedence: Items, CartID, TransactionID. When TransactionID is
// set the parked transaction is finalized instead of creating a new one.
//
// TransactionType may be omitted when a cart or a parked transaction is the
// source; it is then taken from that source and must not contradict it.
type Request struct {
	PharmacyRef     string                  `json:"pharmacyRef"`
	BranchRef       string                  `json:"branchRef,omitempty"`
	TransactionType pricing.TransactionType `json:"transactionType"`

	// UserRef is the cashier placing the order. A cart can only be checked
	// out by its owner.
	UserRef string `json:"-"`

	Items         []ItemRequest `json:"items,omitempty"`
	CartID        *id.ID        `json:"cartId,omitempty"`
	TransactionID *id.ID        `json:"transactionId,omitempty"`

	Payment  *payment.Request  `json:"payment,omitempty"`
	Delivery *DeliveryRequest  `json:"delivery,omitempty"`
	TaxRate  *types.Money      `json:"taxRate,omitempty"`
	Discount *pricing.Discount `json:"discount,omitempty"`
	Customer *pricing.Customer `json:"customer,omitempty"`

	Notes       string `json:"notes,omitempty"`
	SaveAsDraft bool   `json:"saveAsDraft"`
}

// Validate checks the request shape before anything is read.
func (r *Request) Validate() error {
	if r.PharmacyRef == "" {
		return apperror.NewValidation("pharmacyRef is required")
	}
	if r.TransactionType == "" && r.CartID == nil && r.TransactionID == nil {
		r.TransactionType = pricing.TypeSale
	}
	if r.TransactionType != "" {
		if err := r.TransactionType.Validate(); err != nil {
			return err
		}
	}
	for _, it := range r.Items {
		if it.ProductRef == "" {
			return apperror.NewValidation("productRef is required")
		}
		if it.Quantity < 1 {
			return apperror.NewInvalidQuantity(it.Quantity).WithDetail("product_id", it.ProductRef)
		}
	}
	if r.TaxRate != nil && (r.TaxRate.IsNegative() || r.TaxRate.GreaterThan(types.MustMoney("1"))) {
		return apperror.NewValidation("taxRate must be between 0 and 1")
	}
	if r.Discount != nil {
		if err := r.Discount.Validate(); err != nil {
			return err
		}
	}
	if r.Delivery != nil {
		switch r.Delivery.Option {
		case "", transaction.DeliveryOptionPickup, transaction.DeliveryOptionDelivery:
		default:
			return apperror.NewValidation("unknown delivery option").WithDetail("option", r.Delivery.Option)
		}
	}
	return nil
}

// Result is the boundary shape returned to API callers.
type Result struct {
	Success   bool           `json:"success"`
	Data      any            `json:"data,omitempty"`
	ErrorCode string         `json:"errorCode,omitempty"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
}

// ToResult maps a checkout outcome to Result. Errors without a domain code
// are reported as INTERNAL_ERROR with a generic message.
func ToResult(t *transaction.Transaction, err error) Result {
	if err == nil {
		msg := "transaction completed"
		if t != nil && t.Status == transaction.StatusDraft {
			msg = "transaction saved as draft"
		}
		return Result{Success: true, Data: t, Message: msg}
	}

	appErr, ok := apperror.AsAppError(err)
	if !ok || appErr.Code == apperror.CodeInternal || appErr.Code == apperror.CodeDatabase {
		return Result{ErrorCode: apperror.CodeInternal, Message: "internal error"}
	}
	return Result{ErrorCode: appErr.Code, Message: appErr.Message, Details: appErr.Details}
}
