package dto

import (
	"rxpos/internal/core/types"
	"rxpos/internal/domain/pricing"
)

// ActiveCartQuery selects the active cart of the caller.
type ActiveCartQuery struct {
	TransactionType string `form:"transactionType"`
}

// AddCartItemRequest adds a catalog product to the caller's active cart.
type AddCartItemRequest struct {
	TransactionType string `json:"transactionType"`
	ProductRef      string `json:"productRef" binding:"required"`
	Quantity        int    `json:"quantity"`
}

// UpdateCartItemRequest sets a line quantity.
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// CartDiscountRequest sets the order-level discount.
type CartDiscountRequest struct {
	Amount types.Money          `json:"amount"`
	Type   pricing.DiscountType `json:"type" binding:"required"`
	Reason string               `json:"reason"`
}

// Discount converts to the domain form.
func (r CartDiscountRequest) Discount() pricing.Discount {
	return pricing.Discount{Amount: r.Amount, Type: r.Type, Reason: r.Reason}
}

// CartTaxRequest sets the tax amount.
type CartTaxRequest struct {
	Amount types.Money `json:"amount"`
}

// CartCustomerRequest attaches customer contact details.
type CartCustomerRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email" binding:"omitempty,email"`
}

// Customer converts to the domain form.
func (r CartCustomerRequest) Customer() pricing.Customer {
	return pricing.Customer{Name: r.Name, Phone: r.Phone, Email: r.Email}
}
