package document_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"rxpos/internal/core/id"
	"rxpos/internal/domain"
	"rxpos/internal/domain/transaction"
	"rxpos/internal/infrastructure/storage/postgres"
)

// TransactionRepo implements transaction.Repository.
type TransactionRepo struct {
	*BaseDocumentRepo[*transaction.Transaction]
}

var _ transaction.Repository = (*TransactionRepo)(nil)

// NewTransactionRepo creates a transaction repository.
func NewTransactionRepo(txManager *postgres.TxManager) *TransactionRepo {
	return &TransactionRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager, "transactions", "transaction",
			func() *transaction.Transaction { return &transaction.Transaction{} },
			transactionColumns,
			[]string{"transaction_date", "transaction_number", "total_amount", "status"},
		),
	}
}

func transactionColumns(t *transaction.Transaction) map[string]any {
	return map[string]any{
		"transaction_id":     t.TransactionID,
		"transaction_number": t.TransactionNumber,
		"transaction_ref":    t.TransactionRef,
		"owner_ref":          t.OwnerRef,
		"branch_ref":         t.BranchRef,
		"transaction_type":   string(t.TransactionType),
		"status":             string(t.Status),
		"transaction_date":   t.TransactionDate,
		"total_amount":       t.TotalAmount,
		"created_at":         t.CreatedAt,
	}
}

// GetByID implements transaction.Repository.
func (r *TransactionRepo) GetByID(ctx context.Context, txID id.ID) (*transaction.Transaction, error) {
	return r.BaseDocumentRepo.GetByID(ctx, txID)
}

// GetByTransactionID implements transaction.Repository.
func (r *TransactionRepo) GetByTransactionID(ctx context.Context, transactionID string) (*transaction.Transaction, error) {
	return r.GetOne(ctx, squirrel.Eq{"transaction_id": transactionID}, "", transactionID)
}

// List implements transaction.Repository.
func (r *TransactionRepo) List(ctx context.Context, f transaction.ListFilter) (domain.ListResult[*transaction.Transaction], error) {
	result := domain.ListResult[*transaction.Transaction]{Limit: f.Limit, Offset: f.Offset}

	page, err := r.BaseDocumentRepo.List(ctx, transactionWhere(f), f.OrderBy, f.Limit, f.Offset)
	if err != nil {
		return result, err
	}
	result.Items = page.Items
	result.TotalCount = page.TotalCount
	return result, nil
}

func transactionWhere(f transaction.ListFilter) squirrel.And {
	where := squirrel.And{}
	if f.OwnerRef != "" {
		where = append(where, squirrel.Eq{"owner_ref": f.OwnerRef})
	}
	if f.BranchRef != "" {
		where = append(where, squirrel.Eq{"branch_ref": f.BranchRef})
	}
	if f.TransactionType != "" {
		where = append(where, squirrel.Eq{"transaction_type": f.TransactionType})
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		where = append(where, squirrel.Eq{"status": statuses})
	}
	if f.DateFrom != nil {
		where = append(where, squirrel.GtOrEq{"transaction_date": *f.DateFrom})
	}
	if f.DateTo != nil {
		where = append(where, squirrel.Lt{"transaction_date": *f.DateTo})
	}
	return where
}

// IdentifierExists implements transaction.Repository.
func (r *TransactionRepo) IdentifierExists(ctx context.Context, value string) (bool, error) {
	return r.Exists(ctx, squirrel.Or{
		squirrel.Eq{"transaction_id": value},
		squirrel.Eq{"transaction_number": value},
		squirrel.Eq{"transaction_ref": value},
	})
}
