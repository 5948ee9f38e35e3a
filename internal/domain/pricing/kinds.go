package pricing

import "rxpos/internal/core/apperror"

// TransactionType classifies carts and transactions.
type TransactionType string

const (
	TypeSale       TransactionType = "sale"
	TypePurchase   TransactionType = "purchase"
	TypeReturn     TransactionType = "return"
	TypeAdjustment TransactionType = "adjustment"
)

// Validate rejects unknown transaction types.
func (t TransactionType) Validate() error {
	switch t {
	case TypeSale, TypePurchase, TypeReturn, TypeAdjustment:
		return nil
	}
	return apperror.NewValidation("unknown transaction type").
		WithDetail("field", "transactionType").
		WithDetail("value", string(t))
}

// Customer is the optional buyer contact attached to carts and transactions.
type Customer struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}
