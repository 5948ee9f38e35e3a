package catalog_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"rxpos/internal/domain/paymentmethod"
	"rxpos/internal/infrastructure/storage/postgres"
)

// PaymentMethodRepo implements paymentmethod.Repository.
type PaymentMethodRepo struct {
	*BaseRefRepo[paymentmethod.StoredMethod]
}

var _ paymentmethod.Repository = (*PaymentMethodRepo)(nil)

// NewPaymentMethodRepo creates a payment method repository.
func NewPaymentMethodRepo(txManager *postgres.TxManager) *PaymentMethodRepo {
	return &PaymentMethodRepo{
		BaseRefRepo: NewBaseRefRepo[paymentmethod.StoredMethod](txManager, "payment_methods", "payment_method"),
	}
}

// Create implements paymentmethod.Repository.
func (r *PaymentMethodRepo) Create(ctx context.Context, m *paymentmethod.StoredMethod) error {
	return r.Insert(ctx, m)
}

// GetByRef implements paymentmethod.Repository.
func (r *PaymentMethodRepo) GetByRef(ctx context.Context, ref string) (*paymentmethod.StoredMethod, error) {
	return r.Get(ctx, ref)
}

// ListByOwner implements paymentmethod.Repository, oldest first.
func (r *PaymentMethodRepo) ListByOwner(ctx context.Context, ownerRef string) ([]*paymentmethod.StoredMethod, error) {
	return r.Select(ctx, squirrel.Eq{"owner_ref": ownerRef}, "created_at")
}

// SetActive implements paymentmethod.Repository.
func (r *PaymentMethodRepo) SetActive(ctx context.Context, ref string, active bool) error {
	return r.exec(ctx, r.Builder().
		Update(r.tableName).
		Set("is_active", active).
		Where(squirrel.Eq{"ref": ref}), ref)
}
