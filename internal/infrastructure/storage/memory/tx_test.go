package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rxpos/internal/domain/audit"
	"rxpos/internal/domain/cart"
	"rxpos/internal/domain/events"
	"rxpos/internal/domain/pricing"
	"rxpos/internal/domain/transaction"
)

var txNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestRunInTransaction_RollsBackOnError(t *testing.T) {
	s := New()
	ctx := context.Background()

	c := cart.New("cashier-1", pricing.TypeSale, txNow, cart.DefaultTTL)
	require.NoError(t, s.Carts().Create(ctx, c))
	require.NoError(t, s.Publish(ctx, events.New(events.TransactionCompleted, "earlier", nil)))

	boom := errors.New("boom")
	err := s.RunInTransaction(ctx, func(ctx context.Context) error {
		tx := transaction.New("PH-1", pricing.TypeSale, txNow)
		tx.TransactionID = "TXN-1"
		if err := s.Transactions().Create(ctx, tx); err != nil {
			return err
		}

		c.Status = cart.StatusCompleted
		if err := s.Carts().Update(ctx, c); err != nil {
			return err
		}
		if err := s.Record(ctx, audit.Entry{EntityType: "transaction", EntityID: tx.ID.String(), Action: audit.ActionCreate}); err != nil {
			return err
		}
		if err := s.Publish(ctx, events.New(events.TransactionCompleted, tx.ID.String(), nil)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	assert.Zero(t, s.TransactionCount())
	assert.Empty(t, s.AuditEntries())
	require.Len(t, s.Events(), 1)
	assert.Equal(t, "earlier", s.Events()[0].AggregateID)

	got, err := s.Carts().GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, cart.StatusActive, got.Status)
	assert.Equal(t, 1, got.Version)
}

func TestRunInTransaction_CommitsAndNests(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.RunInTransaction(ctx, func(ctx context.Context) error {
			return s.Transactions().Create(ctx, transaction.New("PH-1", pricing.TypeSale, txNow))
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 1, s.TransactionCount())
}
