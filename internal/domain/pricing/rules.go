package pricing

import (
	"rxpos/internal/core/apperror"
	"rxpos/internal/core/types"
)

// DiscountType selects how Discount.Amount is interpreted.
type DiscountType string

const (
	DiscountFixed      DiscountType = "fixed"
	DiscountPercentage DiscountType = "percentage"
)

// Discount is an order-level discount.
type Discount struct {
	Amount types.Money  `json:"amount"`
	Type   DiscountType `json:"type"`
	Reason string       `json:"reason,omitempty"`
}

// Validate checks the discount amount against its type.
func (d Discount) Validate() error {
	if d.Amount.IsNegative() {
		return apperror.NewValidation("discount must not be negative").
			WithDetail("field", "discount.amount")
	}
	switch d.Type {
	case DiscountFixed, "":
	case DiscountPercentage:
		if d.Amount.GreaterThan(types.NewMoney(100)) {
			return apperror.NewValidation("percentage discount must not exceed 100").
				WithDetail("field", "discount.amount")
		}
	default:
		return apperror.NewValidation("unknown discount type").
			WithDetail("field", "discount.type").
			WithDetail("value", string(d.Type))
	}
	return nil
}

// Value returns the money taken off base.
func (d Discount) Value(base types.Money) types.Money {
	if d.Type == DiscountPercentage {
		return types.Round(types.Percent(base, d.Amount))
	}
	return types.Round(d.Amount)
}

// Totals is the aggregate view of a set of lines.
type Totals struct {
	Subtotal      types.Money
	TotalItems    int
	TotalQuantity int
	Profit        types.Money
}

// Sum aggregates lines. Line totals are recomputed first.
func Sum(items []LineItem) Totals {
	t := Totals{Subtotal: types.Zero(), Profit: types.Zero(), TotalItems: len(items)}
	for i := range items {
		items[i].Recompute()
		t.Subtotal = t.Subtotal.Add(items[i].TotalPrice)
		t.TotalQuantity += items[i].Quantity
		t.Profit = t.Profit.Add(items[i].Profit())
	}
	t.Subtotal = types.Round(t.Subtotal)
	t.Profit = types.Round(t.Profit)
	return t
}

// Tax returns subtotal * rate, rounded. rate is a fraction (0.12 for 12%).
func Tax(subtotal, rate types.Money) types.Money {
	return types.Round(subtotal.Mul(rate))
}

// Total returns max(0, subtotal + tax - discount + deliveryFee).
func Total(subtotal, tax, discount, deliveryFee types.Money) types.Money {
	return types.Round(types.NonNegative(subtotal.Add(tax).Sub(discount).Add(deliveryFee)))
}

// Margin returns profit / subtotal * 100, zero when subtotal is zero.
func Margin(profit, subtotal types.Money) types.Money {
	return types.Round(types.Ratio(profit, subtotal))
}
