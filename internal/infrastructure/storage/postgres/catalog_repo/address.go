package catalog_repo

import (
	"context"

	"rxpos/internal/domain/address"
	"rxpos/internal/infrastructure/storage/postgres"
)

// AddressRepo implements address.Resolver.
type AddressRepo struct {
	*BaseRefRepo[address.Address]
}

var _ address.Resolver = (*AddressRepo)(nil)

// NewAddressRepo creates an address repository.
func NewAddressRepo(txManager *postgres.TxManager) *AddressRepo {
	return &AddressRepo{BaseRefRepo: NewBaseRefRepo[address.Address](txManager, "addresses", "address")}
}

// FindAddress implements address.Resolver.
func (r *AddressRepo) FindAddress(ctx context.Context, ref string) (*address.Address, error) {
	return r.Get(ctx, ref)
}
