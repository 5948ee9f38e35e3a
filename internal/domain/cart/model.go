// Package cart provides the mutable pre-checkout basket.
package cart

import (
	"time"

	"rxpos/internal/core/apperror"
	"rxpos/internal/core/entity"
	"rxpos/internal/core/types"
	"rxpos/internal/domain/pricing"
)

// Status is the cart lifecycle state.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusAbandoned Status = "abandoned"
	StatusCancelled Status = "cancelled"
)

// DefaultTTL is how long a new cart stays alive without checkout.
const DefaultTTL = 24 * time.Hour

// Cart is a basket of line items owned by one user.
// Totals are derived by Recompute and never set directly.
type Cart struct {
	entity.BaseDocument

	OwnerRef        string                  `json:"ownerRef"`
	TransactionType pricing.TransactionType `json:"transactionType"`
	Items           []pricing.LineItem      `json:"items"`

	TotalAmount   types.Money      `json:"totalAmount"`
	TotalItems    int              `json:"totalItems"`
	TotalQuantity int              `json:"totalQuantity"`
	Discount      pricing.Discount `json:"discount"`
	TaxAmount     types.Money      `json:"taxAmount"`
	FinalAmount   types.Money      `json:"finalAmount"`

	Status        Status           `json:"status"`
	PaymentMethod string           `json:"paymentMethod,omitempty"`
	ExpiresAt     time.Time        `json:"expiresAt"`
	LastActivity  time.Time        `json:"lastActivity"`
	Customer      pricing.Customer `json:"customer"`
}

// New creates an active, empty cart expiring ttl after now.
func New(ownerRef string, txType pricing.TransactionType, now time.Time, ttl time.Duration) *Cart {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cart{
		BaseDocument:    entity.NewBaseDocument(now),
		OwnerRef:        ownerRef,
		TransactionType: txType,
		Items:           make([]pricing.LineItem, 0),
		Discount:        pricing.Discount{Amount: types.Zero(), Type: pricing.DiscountFixed},
		TaxAmount:       types.Zero(),
		Status:          StatusActive,
		ExpiresAt:       now.UTC().Add(ttl),
		LastActivity:    now.UTC(),
	}
	c.CreatedBy = ownerRef
	c.UpdatedBy = ownerRef
	c.Recompute()
	return c
}

func (c *Cart) ensureActive() error {
	if c.Status != StatusActive {
		return apperror.NewStateError(apperror.CodeInvalidTransition, "cart is not active").
			WithDetail("cart_id", c.ID.String()).
			WithDetail("status", string(c.Status))
	}
	return nil
}

// AddItem merges item into the cart. An existing line for the same product
// has its quantity increased; otherwise the line is appended.
func (c *Cart) AddItem(item pricing.LineItem) error {
	if err := c.ensureActive(); err != nil {
		return err
	}
	if err := item.Validate(); err != nil {
		return err
	}
	if existing := c.findByProduct(item.ProductRef); existing != nil {
		if err := existing.SetQuantity(existing.Quantity + item.Quantity); err != nil {
			return err
		}
	} else {
		item.Recompute()
		c.Items = append(c.Items, item)
	}
	c.Recompute()
	return nil
}

// QuantityOf returns the quantity already in the cart for productRef.
func (c *Cart) QuantityOf(productRef string) int {
	if li := c.findByProduct(productRef); li != nil {
		return li.Quantity
	}
	return 0
}

// RemoveItem drops a line by its item id.
func (c *Cart) RemoveItem(itemID string) error {
	if err := c.ensureActive(); err != nil {
		return err
	}
	idx := c.indexOf(itemID)
	if idx < 0 {
		return apperror.NewNotFound("cart_item", itemID)
	}
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	c.Recompute()
	return nil
}

// UpdateItemQuantity sets a line quantity. The cart is unchanged on error.
func (c *Cart) UpdateItemQuantity(itemID string, qty int) error {
	if qty < 1 {
		return apperror.NewInvalidQuantity(qty)
	}
	if err := c.ensureActive(); err != nil {
		return err
	}
	idx := c.indexOf(itemID)
	if idx < 0 {
		return apperror.NewNotFound("cart_item", itemID)
	}
	if err := c.Items[idx].SetQuantity(qty); err != nil {
		return err
	}
	c.Recompute()
	return nil
}

// Clear empties the cart and closes it.
func (c *Cart) Clear() {
	c.Items = make([]pricing.LineItem, 0)
	c.Discount = pricing.Discount{Amount: types.Zero(), Type: pricing.DiscountFixed}
	c.TaxAmount = types.Zero()
	c.Status = StatusCompleted
	c.Recompute()
}

// ApplyDiscount replaces the order discount.
func (c *Cart) ApplyDiscount(d pricing.Discount) error {
	if err := c.ensureActive(); err != nil {
		return err
	}
	if d.Type == "" {
		d.Type = pricing.DiscountFixed
	}
	if err := d.Validate(); err != nil {
		return err
	}
	c.Discount = d
	c.Recompute()
	return nil
}

// SetTax sets the absolute tax amount.
func (c *Cart) SetTax(amount types.Money) error {
	if err := c.ensureActive(); err != nil {
		return err
	}
	if amount.IsNegative() {
		return apperror.NewValidation("tax must not be negative").WithDetail("field", "taxAmount")
	}
	c.TaxAmount = types.Round(amount)
	c.Recompute()
	return nil
}

// SetCustomer attaches buyer contact details.
func (c *Cart) SetCustomer(cust pricing.Customer) error {
	if err := c.ensureActive(); err != nil {
		return err
	}
	c.Customer = cust
	return nil
}

// IsExpired reports whether the cart is past its expiry.
func (c *Cart) IsExpired(now time.Time) bool {
	return c.ExpiresAt.Before(now)
}

// Abandon closes an active cart without checkout.
func (c *Cart) Abandon() error {
	if err := c.ensureActive(); err != nil {
		return err
	}
	c.Status = StatusAbandoned
	return nil
}

// Complete closes an active cart after checkout, stamping the payment method.
func (c *Cart) Complete(paymentMethod string) error {
	if err := c.ensureActive(); err != nil {
		return err
	}
	c.Status = StatusCompleted
	if paymentMethod != "" {
		c.PaymentMethod = paymentMethod
	}
	return nil
}

// Recompute derives every total from the lines.
func (c *Cart) Recompute() {
	totals := pricing.Sum(c.Items)
	c.TotalAmount = totals.Subtotal
	c.TotalItems = totals.TotalItems
	c.TotalQuantity = totals.TotalQuantity
	c.FinalAmount = types.Round(totals.Subtotal.Sub(c.Discount.Value(totals.Subtotal)).Add(c.TaxAmount))
}

// DiscountValue returns the money value of the current discount.
func (c *Cart) DiscountValue() types.Money {
	return c.Discount.Value(c.TotalAmount)
}

// Touch records activity at now.
func (c *Cart) Touch(now time.Time) {
	c.LastActivity = now.UTC()
	c.BaseDocument.Touch(now)
}

// Validate implements entity.Validatable.
func (c *Cart) Validate() error {
	if c.OwnerRef == "" {
		return apperror.NewValidation("cart owner is required").WithDetail("field", "ownerRef")
	}
	if err := c.TransactionType.Validate(); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(c.Items))
	for i := range c.Items {
		if err := c.Items[i].Validate(); err != nil {
			return err
		}
		if _, dup := seen[c.Items[i].ProductRef]; dup {
			return apperror.NewConsistency("cart", "duplicate product line").
				WithDetail("product_id", c.Items[i].ProductRef)
		}
		seen[c.Items[i].ProductRef] = struct{}{}
	}
	return c.Discount.Validate()
}

// VerifyConsistency checks stored lines after load.
func (c *Cart) VerifyConsistency() error {
	for i := range c.Items {
		if err := c.Items[i].VerifyConsistency(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cart) findByProduct(productRef string) *pricing.LineItem {
	for i := range c.Items {
		if c.Items[i].ProductRef == productRef {
			return &c.Items[i]
		}
	}
	return nil
}

func (c *Cart) indexOf(itemID string) int {
	for i := range c.Items {
		if c.Items[i].ItemID == itemID {
			return i
		}
	}
	return -1
}
