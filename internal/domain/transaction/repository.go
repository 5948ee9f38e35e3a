package transaction

import (
	"context"
	"time"

	"rxpos/internal/core/id"
	"rxpos/internal/domain"
)

// Repository persists transactions as whole documents.
type Repository interface {
	// Create inserts t. A duplicate transactionId, transactionNumber or
	// transactionRef yields CONFLICT.
	Create(ctx context.Context, t *Transaction) error

	// Update writes t if its version still matches and bumps it.
	// A stale version yields CONCURRENT_MODIFICATION.
	Update(ctx context.Context, t *Transaction) error

	GetByID(ctx context.Context, txID id.ID) (*Transaction, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*Transaction, error)
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Transaction], error)

	// IdentifierExists reports whether value is used as any of the three
	// transaction identifiers.
	IdentifierExists(ctx context.Context, value string) (bool, error)
}

// ListFilter for filtering transactions.
type ListFilter struct {
	domain.ListFilter

	OwnerRef        string
	BranchRef       string
	TransactionType string
	Statuses        []Status
	DateFrom        *time.Time
	DateTo          *time.Time
}
