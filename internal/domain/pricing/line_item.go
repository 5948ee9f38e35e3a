// Package pricing holds the line-item model and the shared money rules used by
// carts, transactions and checkout.
package pricing

import (
	"time"

	"github.com/google/uuid"

	"rxpos/internal/core/apperror"
	"rxpos/internal/core/types"
)

// LineItem is one priced, quantified product entry. It has no lifecycle of
// its own; the owning Cart or Transaction mutates it through these methods.
type LineItem struct {
	ItemID       string       `json:"itemId"`
	ProductRef   string       `json:"productRef"`
	ProductName  string       `json:"productName"`
	GenericName  string       `json:"genericName,omitempty"`
	Form         string       `json:"form,omitempty"`
	PackSize     string       `json:"packSize,omitempty"`
	Quantity     int          `json:"quantity"`
	UnitPrice    types.Money  `json:"unitPrice"`
	TotalPrice   types.Money  `json:"totalPrice"`
	ExpiryDate   *time.Time   `json:"expiryDate,omitempty"`
	BatchNumber  string       `json:"batchNumber,omitempty"`
	Manufacturer string       `json:"manufacturer,omitempty"`
	CostPrice    *types.Money `json:"costPrice,omitempty"`
}

// Product is the catalog snapshot a line is built from.
type Product struct {
	Ref          string
	Name         string
	GenericName  string
	Form         string
	PackSize     string
	Price        types.Money
	CostPrice    *types.Money
	ExpiryDate   *time.Time
	BatchNumber  string
	Manufacturer string
	Category     string
}

// NewLineItem builds a line from a catalog product. The expiry date, when
// present, must still be in the future at now.
func NewLineItem(p Product, qty int, now time.Time) (LineItem, error) {
	item := LineItem{
		ItemID:       uuid.NewString(),
		ProductRef:   p.Ref,
		ProductName:  p.Name,
		GenericName:  p.GenericName,
		Form:         p.Form,
		PackSize:     p.PackSize,
		Quantity:     qty,
		UnitPrice:    types.Round(p.Price),
		ExpiryDate:   p.ExpiryDate,
		BatchNumber:  p.BatchNumber,
		Manufacturer: p.Manufacturer,
	}
	if p.CostPrice != nil {
		cost := types.Round(*p.CostPrice)
		item.CostPrice = &cost
	}
	if err := item.Validate(); err != nil {
		return LineItem{}, err
	}
	if item.ExpiryDate != nil && !item.ExpiryDate.After(now) {
		return LineItem{}, apperror.NewValidation("product is expired").
			WithDetail("product_id", p.Ref).
			WithDetail("expiry_date", item.ExpiryDate.Format(time.DateOnly))
	}
	item.Recompute()
	return item, nil
}

// Recompute derives TotalPrice from quantity and unit price.
func (li *LineItem) Recompute() {
	li.TotalPrice = types.Round(types.Times(li.UnitPrice, li.Quantity))
}

// SetQuantity changes the quantity and recomputes the total.
func (li *LineItem) SetQuantity(qty int) error {
	if qty < 1 {
		return apperror.NewInvalidQuantity(qty)
	}
	li.Quantity = qty
	li.Recompute()
	return nil
}

// Validate checks field ranges.
func (li *LineItem) Validate() error {
	if li.ProductRef == "" {
		return apperror.NewValidation("product reference is required").
			WithDetail("field", "productRef")
	}
	if li.Quantity < 1 {
		return apperror.NewInvalidQuantity(li.Quantity)
	}
	if li.UnitPrice.IsNegative() {
		return apperror.NewValidation("unit price must not be negative").
			WithDetail("product_id", li.ProductRef)
	}
	if li.CostPrice != nil && li.CostPrice.IsNegative() {
		return apperror.NewValidation("cost price must not be negative").
			WithDetail("product_id", li.ProductRef)
	}
	return nil
}

// VerifyConsistency reports a stored line whose total does not match
// quantity * unitPrice. Used when loading persisted documents.
func (li *LineItem) VerifyConsistency() error {
	want := types.Round(types.Times(li.UnitPrice, li.Quantity))
	if !li.TotalPrice.Equal(want) {
		return apperror.NewConsistency("line_item", "totalPrice does not match quantity * unitPrice").
			WithDetail("item_id", li.ItemID).
			WithDetail("stored", li.TotalPrice.String()).
			WithDetail("expected", want.String())
	}
	return nil
}

// Profit returns (unitPrice - costPrice) * quantity. A line without a known
// cost price contributes its full revenue.
func (li *LineItem) Profit() types.Money {
	cost := types.Zero()
	if li.CostPrice != nil {
		cost = *li.CostPrice
	}
	return types.Times(li.UnitPrice.Sub(cost), li.Quantity)
}
