package cart

import (
	"context"
	"fmt"
	"time"

	"rxpos/internal/core/apperror"
	"rxpos/internal/core/id"
	"rxpos/internal/core/types"
	"rxpos/internal/domain/catalog"
	"rxpos/internal/domain/pricing"
	"rxpos/pkg/logger"
)

// Service provides cart operations. Each operation loads one cart document,
// mutates it through the aggregate and writes it back under the version check.
type Service struct {
	repo    Repository
	catalog catalog.Catalog
	ttl     time.Duration
	now     func() time.Time
}

// NewService creates a new cart service.
func NewService(repo Repository, cat catalog.Catalog, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{repo: repo, catalog: cat, ttl: ttl, now: time.Now}
}

// SetClock overrides the time source (tests).
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// AddItemRequest adds qty of a catalog product to the owner's active cart.
type AddItemRequest struct {
	OwnerRef        string
	TransactionType pricing.TransactionType
	ProductRef      string
	Quantity        int
}

// Get returns a cart by ID.
func (s *Service) Get(ctx context.Context, cartID id.ID) (*Cart, error) {
	c, err := s.repo.GetByID(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if err := c.VerifyConsistency(); err != nil {
		return nil, err
	}
	return c, nil
}

// GetOrCreateActive returns the owner's active cart, creating one if needed.
func (s *Service) GetOrCreateActive(ctx context.Context, ownerRef string, txType pricing.TransactionType) (*Cart, error) {
	if ownerRef == "" {
		return nil, apperror.NewValidation("cart owner is required").WithDetail("field", "ownerRef")
	}
	if txType == "" {
		txType = pricing.TypeSale
	}
	if err := txType.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	c, err := s.repo.FindActive(ctx, ownerRef, string(txType), now)
	if err == nil {
		return c, nil
	}
	if !apperror.IsNotFound(err) {
		return nil, fmt.Errorf("find active cart: %w", err)
	}

	c = New(ownerRef, txType, now, s.ttl)
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}
	logger.Debug(ctx, "cart created", "cart_id", c.ID, "owner", ownerRef)
	return c, nil
}

// AddItem prices the product from the catalog and merges it into the cart.
// Sale carts may not hold more of a product than is in stock.
func (s *Service) AddItem(ctx context.Context, req AddItemRequest) (*Cart, error) {
	if req.Quantity < 1 {
		return nil, apperror.NewInvalidQuantity(req.Quantity)
	}

	med, err := s.catalog.FindProduct(ctx, req.ProductRef)
	if err != nil {
		return nil, err
	}

	c, err := s.GetOrCreateActive(ctx, req.OwnerRef, req.TransactionType)
	if err != nil {
		return nil, err
	}

	if c.TransactionType == pricing.TypeSale {
		if want := c.QuantityOf(req.ProductRef) + req.Quantity; want > med.Quantity {
			return nil, apperror.NewInsufficientStock(med.Ref, med.Name, want, med.Quantity)
		}
	}

	item, err := pricing.NewLineItem(med.Product(), req.Quantity, s.now())
	if err != nil {
		return nil, err
	}
	if err := c.AddItem(item); err != nil {
		return nil, err
	}
	if err := s.save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// RemoveItem drops a line.
func (s *Service) RemoveItem(ctx context.Context, cartID id.ID, itemID string) (*Cart, error) {
	return s.mutate(ctx, cartID, func(c *Cart) error { return c.RemoveItem(itemID) })
}

// UpdateItemQuantity sets a line quantity.
func (s *Service) UpdateItemQuantity(ctx context.Context, cartID id.ID, itemID string, qty int) (*Cart, error) {
	return s.mutate(ctx, cartID, func(c *Cart) error { return c.UpdateItemQuantity(itemID, qty) })
}

// Clear empties and closes the cart.
func (s *Service) Clear(ctx context.Context, cartID id.ID) (*Cart, error) {
	return s.mutate(ctx, cartID, func(c *Cart) error {
		if err := c.ensureActive(); err != nil {
			return err
		}
		c.Clear()
		return nil
	})
}

// ApplyDiscount replaces the cart discount.
func (s *Service) ApplyDiscount(ctx context.Context, cartID id.ID, d pricing.Discount) (*Cart, error) {
	return s.mutate(ctx, cartID, func(c *Cart) error { return c.ApplyDiscount(d) })
}

// SetTax sets the absolute tax amount.
func (s *Service) SetTax(ctx context.Context, cartID id.ID, amount types.Money) (*Cart, error) {
	return s.mutate(ctx, cartID, func(c *Cart) error { return c.SetTax(amount) })
}

// SetCustomer attaches buyer contact details.
func (s *Service) SetCustomer(ctx context.Context, cartID id.ID, cust pricing.Customer) (*Cart, error) {
	return s.mutate(ctx, cartID, func(c *Cart) error { return c.SetCustomer(cust) })
}

// Abandon closes the cart without checkout.
func (s *Service) Abandon(ctx context.Context, cartID id.ID) (*Cart, error) {
	return s.mutate(ctx, cartID, func(c *Cart) error { return c.Abandon() })
}

// Complete closes the cart after a successful checkout.
func (s *Service) Complete(ctx context.Context, cartID id.ID, paymentMethod string) (*Cart, error) {
	return s.mutate(ctx, cartID, func(c *Cart) error { return c.Complete(paymentMethod) })
}

// SweepExpired deletes expired active carts and returns how many were removed.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("delete expired carts: %w", err)
	}
	if n > 0 {
		logger.Info(ctx, "expired carts removed", "count", n)
	}
	return n, nil
}

func (s *Service) mutate(ctx context.Context, cartID id.ID, fn func(c *Cart) error) (*Cart, error) {
	c, err := s.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if c.Status == StatusActive && c.IsExpired(s.now()) {
		return nil, apperror.NewNotFound("cart", cartID.String()).WithDetail("reason", "expired")
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	if err := s.save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) save(ctx context.Context, c *Cart) error {
	c.Recompute()
	c.Touch(s.now())
	if err := c.Validate(); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return fmt.Errorf("update cart: %w", err)
	}
	return nil
}
