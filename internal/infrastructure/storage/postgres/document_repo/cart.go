package document_repo

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"

	"rxpos/internal/core/id"
	"rxpos/internal/domain/cart"
	"rxpos/internal/infrastructure/storage/postgres"
)

// CartRepo implements cart.Repository.
type CartRepo struct {
	*BaseDocumentRepo[*cart.Cart]
}

var _ cart.Repository = (*CartRepo)(nil)

// NewCartRepo creates a cart repository.
func NewCartRepo(txManager *postgres.TxManager) *CartRepo {
	return &CartRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager, "carts", "cart",
			func() *cart.Cart { return &cart.Cart{} },
			cartColumns,
			[]string{"expires_at", "status"},
		),
	}
}

func cartColumns(c *cart.Cart) map[string]any {
	return map[string]any{
		"owner_ref":        c.OwnerRef,
		"transaction_type": string(c.TransactionType),
		"status":           string(c.Status),
		"expires_at":       c.ExpiresAt,
		"created_at":       c.CreatedAt,
	}
}

// GetByID implements cart.Repository.
func (r *CartRepo) GetByID(ctx context.Context, cartID id.ID) (*cart.Cart, error) {
	return r.BaseDocumentRepo.GetByID(ctx, cartID)
}

// FindActive implements cart.Repository. The most recently touched cart wins
// if several are active.
func (r *CartRepo) FindActive(ctx context.Context, ownerRef, txType string, now time.Time) (*cart.Cart, error) {
	return r.GetOne(ctx, squirrel.And{
		squirrel.Eq{
			"owner_ref":        ownerRef,
			"transaction_type": txType,
			"status":           string(cart.StatusActive),
		},
		squirrel.Gt{"expires_at": now},
	}, "updated_at DESC", ownerRef)
}

// DeleteExpired implements cart.Repository.
func (r *CartRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return r.Delete(ctx, squirrel.And{
		squirrel.Eq{"status": string(cart.StatusActive)},
		squirrel.Lt{"expires_at": now},
	})
}
