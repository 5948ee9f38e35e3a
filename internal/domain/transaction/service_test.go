package transaction_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rxpos/internal/core/apperror"
	appctx "rxpos/internal/core/context"
	"rxpos/internal/core/id"
	"rxpos/internal/core/numerator"
	"rxpos/internal/core/types"
	"rxpos/internal/domain/audit"
	"rxpos/internal/domain/events"
	"rxpos/internal/domain/payment"
	"rxpos/internal/domain/pricing"
	"rxpos/internal/domain/transaction"
	"rxpos/internal/infrastructure/storage/memory"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T) (*transaction.Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	svc := transaction.NewService(transaction.Deps{
		Repo:      store.Transactions(),
		IDs:       numerator.NewGenerator(numerator.NewMemoryStore(), store.Transactions()),
		Audit:     store,
		Events:    store,
		TxManager: store,
	})
	svc.SetClock(func() time.Time { return now })
	return svc, store
}

func saveCompleted(t *testing.T, svc *transaction.Service, total string, withDelivery bool) *transaction.Transaction {
	t.Helper()
	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "cashier-1"})

	tx := transaction.New("PH-1", pricing.TypeSale, now)
	li, err := pricing.NewLineItem(pricing.Product{Ref: "A", Name: "Amoxicillin", Price: types.MustMoney(total)}, 1, now)
	require.NoError(t, err)
	tx.Items = []pricing.LineItem{li}
	if withDelivery {
		tx.SetDelivery(types.Zero(), "ADDR-1", nil, now)
	}
	tx.ApplyPayment(payment.MethodCash, "", payment.Details{})
	require.NoError(t, svc.Save(ctx, tx, true, events.TransactionCompleted))
	require.Equal(t, transaction.StatusCompleted, tx.Status)
	return tx
}

func TestService_SaveAssignsIdentifiers(t *testing.T) {
	svc, store := newService(t)
	tx := saveCompleted(t, svc, "100.00", false)

	assert.True(t, strings.HasPrefix(tx.TransactionID, "TXN-"))
	assert.Equal(t, "SAL00000001", tx.TransactionNumber)
	assert.Equal(t, "cashier-1", tx.CreatedBy)
	assert.EqualValues(t, 1, tx.Version)

	got, err := svc.GetByTransactionID(context.Background(), tx.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, tx.ID, got.ID)

	entries := store.AuditEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionCreate, entries[0].Action)
	assert.Equal(t, "cashier-1", entries[0].UserID)
}

func TestService_RefundScenario(t *testing.T) {
	svc, store := newService(t)
	tx := saveCompleted(t, svc, "100.00", false)
	ctx := context.Background()

	res, err := svc.Refund(ctx, tx.ID, transaction.RefundRequest{Amount: types.MustMoney("60"), Reason: "damaged"})
	require.NoError(t, err)
	assert.True(t, types.MustMoney("60.00").Equal(res.RefundedAmount))
	assert.Equal(t, transaction.StatusPartiallyRefunded, res.Transaction.Status)
	assert.True(t, strings.HasPrefix(res.Transaction.Refunds[0].RefundRef, "RFD-"))

	res, err = svc.Refund(ctx, tx.ID, transaction.RefundRequest{Amount: types.MustMoney("60"), Reason: "damaged"})
	require.NoError(t, err)
	assert.True(t, types.MustMoney("40.00").Equal(res.RefundedAmount))
	assert.Equal(t, transaction.StatusRefunded, res.Transaction.Status)
	assert.True(t, types.MustMoney("100.00").Equal(res.Transaction.TotalRefunded))

	stored, err := svc.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusRefunded, stored.Status)
	assert.Len(t, stored.Refunds, 2)

	_, err = svc.Refund(ctx, tx.ID, transaction.RefundRequest{Amount: types.MustMoney("1")})
	assert.True(t, apperror.HasCode(err, apperror.CodeRefundNotAllowed))

	var refunded int
	for _, e := range store.Events() {
		if e.Type == events.TransactionRefunded {
			refunded++
		}
	}
	assert.Equal(t, 2, refunded)
}

func TestService_RefundUnknown(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Refund(context.Background(), id.New(), transaction.RefundRequest{Amount: types.MustMoney("1")})
	assert.True(t, apperror.IsNotFound(err))
}

func TestService_DeliveryFlow(t *testing.T) {
	svc, store := newService(t)
	tx := saveCompleted(t, svc, "20.00", true)
	ctx := context.Background()

	_, err := svc.UpdateDeliveryStatus(ctx, tx.ID, transaction.DeliveryDelivered)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidTransition))

	got, err := svc.UpdateDeliveryStatus(ctx, tx.ID, transaction.DeliveryConfirmed)
	require.NoError(t, err)
	assert.Equal(t, transaction.DeliveryConfirmed, got.Delivery.Status)

	evts := store.Events()
	assert.Equal(t, events.TransactionDeliveryChange, evts[len(evts)-1].Type)
}

func TestService_CancelOnlyBeforeCompletion(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	done := saveCompleted(t, svc, "10.00", false)
	_, err := svc.Cancel(ctx, done.ID, "mistake")
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidTransition))

	draft := transaction.New("PH-1", pricing.TypeSale, now)
	li, err := pricing.NewLineItem(pricing.Product{Ref: "B", Name: "Paracetamol", Price: types.MustMoney("3")}, 2, now)
	require.NoError(t, err)
	draft.Items = []pricing.LineItem{li}
	require.NoError(t, svc.Save(ctx, draft, true, events.TransactionDrafted))

	held, err := svc.Hold(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusOnHold, held.Status)

	cancelled, err := svc.Cancel(ctx, draft.ID, "customer left")
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusCancelled, cancelled.Status)
	assert.Equal(t, "customer left", cancelled.CancelReason)
}

func TestService_List(t *testing.T) {
	svc, _ := newService(t)
	saveCompleted(t, svc, "10.00", false)
	saveCompleted(t, svc, "20.00", false)

	res, err := svc.List(context.Background(), transaction.ListFilter{
		OwnerRef: "PH-1",
		Statuses: []transaction.Status{transaction.StatusCompleted},
	})
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)

	res, err = svc.List(context.Background(), transaction.ListFilter{OwnerRef: "PH-2"})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
}
