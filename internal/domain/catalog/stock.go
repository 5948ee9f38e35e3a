package catalog

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"rxpos/internal/core/apperror"
	"rxpos/internal/domain/pricing"
	"rxpos/pkg/logger"
)

// Demand is the total quantity of one product a checkout needs.
type Demand struct {
	ProductRef  string
	ProductName string
	Quantity    int
}

// DemandsFor merges lines by product, keeping first-seen order.
func DemandsFor(items []pricing.LineItem) []Demand {
	idx := make(map[string]int, len(items))
	out := make([]Demand, 0, len(items))
	for _, li := range items {
		if i, ok := idx[li.ProductRef]; ok {
			out[i].Quantity += li.Quantity
			continue
		}
		idx[li.ProductRef] = len(out)
		out = append(out, Demand{ProductRef: li.ProductRef, ProductName: li.ProductName, Quantity: li.Quantity})
	}
	return out
}

// stockReadConcurrency bounds parallel catalog reads per checkout.
const stockReadConcurrency = 8

// CheckStock reads every product concurrently and fails on the first
// demand, in input order, that exceeds available stock. Nothing is mutated.
func CheckStock(ctx context.Context, c Catalog, demands []Demand) error {
	available := make([]int, len(demands))
	names := make([]string, len(demands))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(stockReadConcurrency)
	for i, d := range demands {
		g.Go(func() error {
			m, err := c.FindProduct(gctx, d.ProductRef)
			if err != nil {
				return err
			}
			available[i] = m.Quantity
			names[i] = m.Name
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, d := range demands {
		if available[i] < d.Quantity {
			return apperror.NewInsufficientStock(d.ProductRef, names[i], d.Quantity, available[i])
		}
	}
	return nil
}

// Reservation is stock already taken for one checkout.
type Reservation struct {
	catalog Catalog
	taken   []Demand
}

// Reserve decrements every demand with a conditional write. If any decrement
// loses (stock changed since CheckStock), earlier decrements are restored and
// INSUFFICIENT_STOCK is returned.
func Reserve(ctx context.Context, c Catalog, demands []Demand) (*Reservation, error) {
	r := &Reservation{catalog: c, taken: make([]Demand, 0, len(demands))}
	for _, d := range demands {
		ok, err := c.DecrementIfAvailable(ctx, d.ProductRef, d.Quantity)
		if err != nil {
			r.Release(ctx)
			return nil, fmt.Errorf("reserve %s: %w", d.ProductRef, err)
		}
		if !ok {
			r.Release(ctx)
			available := 0
			if m, ferr := c.FindProduct(ctx, d.ProductRef); ferr == nil {
				available = m.Quantity
			}
			return nil, apperror.NewInsufficientStock(d.ProductRef, d.ProductName, d.Quantity, available).
				WithDetail("stage", "reservation")
		}
		r.taken = append(r.taken, d)
	}
	return r, nil
}

// Release gives reserved stock back. Safe to call more than once.
func (r *Reservation) Release(ctx context.Context) error {
	if r == nil {
		return nil
	}
	ctx = context.WithoutCancel(ctx)
	var errs []error
	for i := len(r.taken) - 1; i >= 0; i-- {
		d := r.taken[i]
		if err := r.catalog.AdjustQuantity(ctx, d.ProductRef, d.Quantity); err != nil {
			logger.Error(ctx, "stock release failed", "product_id", d.ProductRef, "quantity", d.Quantity, "error", err)
			errs = append(errs, err)
		}
	}
	r.taken = r.taken[:0]
	return errors.Join(errs...)
}

// Items returns what is currently held.
func (r *Reservation) Items() []Demand {
	if r == nil {
		return nil
	}
	return append([]Demand(nil), r.taken...)
}
