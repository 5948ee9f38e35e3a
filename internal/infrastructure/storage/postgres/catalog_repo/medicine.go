package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"rxpos/internal/domain/catalog"
	"rxpos/internal/infrastructure/storage/postgres"
)

// MedicineRepo implements catalog.Catalog over the medicines table.
type MedicineRepo struct {
	*BaseRefRepo[catalog.Medicine]
}

var _ catalog.Catalog = (*MedicineRepo)(nil)

// NewMedicineRepo creates a medicine repository.
func NewMedicineRepo(txManager *postgres.TxManager) *MedicineRepo {
	return &MedicineRepo{BaseRefRepo: NewBaseRefRepo[catalog.Medicine](txManager, "medicines", "product")}
}

// FindProduct implements catalog.Catalog.
func (r *MedicineRepo) FindProduct(ctx context.Context, ref string) (*catalog.Medicine, error) {
	return r.Get(ctx, ref)
}

// AdjustQuantity implements catalog.Catalog.
func (r *MedicineRepo) AdjustQuantity(ctx context.Context, ref string, delta int) error {
	return r.exec(ctx, r.Builder().
		Update(r.tableName).
		Set("quantity", squirrel.Expr("quantity + ?", delta)).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"ref": ref}), ref)
}

// DecrementIfAvailable implements catalog.Catalog. The check and the
// decrement are one statement, so concurrent checkouts cannot oversell.
func (r *MedicineRepo) DecrementIfAvailable(ctx context.Context, ref string, qty int) (bool, error) {
	sql, args, err := r.Builder().
		Update(r.tableName).
		Set("quantity", squirrel.Expr("quantity - ?", qty)).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"ref": ref}).
		Where(squirrel.GtOrEq{"quantity": qty}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build decrement: %w", err)
	}

	tag, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("decrement %s: %w", ref, err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	// distinguish "short" from "unknown"
	if _, err := r.Get(ctx, ref); err != nil {
		return false, err
	}
	return false, nil
}

// medicineColumns is the COPY column order used by BulkLoad.
var medicineColumns = []string{
	"ref", "pharmacy_ref", "name", "generic_name", "form", "pack_size", "category",
	"price", "cost_price", "quantity", "expiry_date", "batch_number", "manufacturer",
}

// BulkLoad inserts medicines with the COPY protocol. Must run inside a
// transaction.
func (r *MedicineRepo) BulkLoad(ctx context.Context, inserter *postgres.BatchInserter, medicines []catalog.Medicine) (int64, error) {
	rows := make([][]any, 0, len(medicines))
	for _, m := range medicines {
		rows = append(rows, []any{
			m.Ref, m.PharmacyRef, m.Name, m.GenericName, m.Form, m.PackSize, m.Category,
			m.Price, m.CostPrice, m.Quantity, m.ExpiryDate, m.BatchNumber, m.Manufacturer,
		})
	}
	return inserter.CopyFromSlice(ctx, r.tableName, medicineColumns, rows)
}
