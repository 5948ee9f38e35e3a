package cart

import (
	"context"
	"time"

	"rxpos/internal/core/id"
)

// Repository persists carts as whole documents.
type Repository interface {
	Create(ctx context.Context, c *Cart) error
	GetByID(ctx context.Context, cartID id.ID) (*Cart, error)

	// FindActive returns the owner's active, unexpired cart of txType,
	// or NOT_FOUND (entity=cart).
	FindActive(ctx context.Context, ownerRef string, txType string, now time.Time) (*Cart, error)

	// Update writes c if its version still matches the stored one and bumps it.
	// A stale version yields CONCURRENT_MODIFICATION.
	Update(ctx context.Context, c *Cart) error

	// DeleteExpired removes active carts with expires_at before now.
	// Completed and abandoned carts are kept for audit.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
