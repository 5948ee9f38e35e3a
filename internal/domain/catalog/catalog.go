// Package catalog defines the medicine lookup and stock contract the sales
// engine consumes. Catalog maintenance lives outside this service.
package catalog

import (
	"context"
	"time"

	"rxpos/internal/core/types"
	"rxpos/internal/domain/pricing"
)

// Medicine is the catalog view of a sellable product.
type Medicine struct {
	Ref          string       `db:"ref" json:"ref"`
	PharmacyRef  string       `db:"pharmacy_ref" json:"pharmacyRef"`
	Name         string       `db:"name" json:"name"`
	GenericName  string       `db:"generic_name" json:"genericName,omitempty"`
	Form         string       `db:"form" json:"form,omitempty"`
	PackSize     string       `db:"pack_size" json:"packSize,omitempty"`
	Category     string       `db:"category" json:"category,omitempty"`
	Price        types.Money  `db:"price" json:"price"`
	CostPrice    *types.Money `db:"cost_price" json:"costPrice,omitempty"`
	Quantity     int          `db:"quantity" json:"quantity"`
	ExpiryDate   *time.Time   `db:"expiry_date" json:"expiryDate,omitempty"`
	BatchNumber  string       `db:"batch_number" json:"batchNumber,omitempty"`
	Manufacturer string       `db:"manufacturer" json:"manufacturer,omitempty"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updatedAt"`
}

// Product converts the medicine to the pricing snapshot used for lines.
func (m *Medicine) Product() pricing.Product {
	return pricing.Product{
		Ref:          m.Ref,
		Name:         m.Name,
		GenericName:  m.GenericName,
		Form:         m.Form,
		PackSize:     m.PackSize,
		Price:        m.Price,
		CostPrice:    m.CostPrice,
		ExpiryDate:   m.ExpiryDate,
		BatchNumber:  m.BatchNumber,
		Manufacturer: m.Manufacturer,
		Category:     m.Category,
	}
}

// Catalog is the medicine lookup and stock adjustment capability.
type Catalog interface {
	// FindProduct returns NOT_FOUND (entity=product) for unknown refs.
	FindProduct(ctx context.Context, ref string) (*Medicine, error)

	// AdjustQuantity applies a signed delta unconditionally.
	AdjustQuantity(ctx context.Context, ref string, delta int) error

	// DecrementIfAvailable subtracts qty only when stock >= qty.
	// Returns false, nil when stock is insufficient.
	DecrementIfAvailable(ctx context.Context, ref string, qty int) (bool, error)
}

// Enrich refreshes display fields of lines from the current catalog.
// Lines whose product disappeared are left untouched.
func Enrich(ctx context.Context, c Catalog, items []pricing.LineItem) {
	for i := range items {
		m, err := c.FindProduct(ctx, items[i].ProductRef)
		if err != nil {
			continue
		}
		items[i].ProductName = m.Name
		items[i].GenericName = m.GenericName
		items[i].Form = m.Form
		items[i].PackSize = m.PackSize
		items[i].Manufacturer = m.Manufacturer
	}
}
