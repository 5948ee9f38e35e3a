package checkout_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rxpos/internal/core/apperror"
	"rxpos/internal/core/numerator"
	"rxpos/internal/core/types"
	"rxpos/internal/domain/address"
	"rxpos/internal/domain/cart"
	"rxpos/internal/domain/catalog"
	"rxpos/internal/domain/checkout"
	"rxpos/internal/domain/events"
	"rxpos/internal/domain/payment"
	"rxpos/internal/domain/pricing"
	"rxpos/internal/domain/transaction"
	"rxpos/internal/infrastructure/storage/memory"
)

func money(s string) types.Money { return types.MustMoney(s) }

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	store *memory.Store
	carts *cart.Service
	txs   *transaction.Service
	svc   *checkout.Service
	card  *payment.StaticCardAuthorizer
}

func newFixture(t *testing.T, card *payment.StaticCardAuthorizer) *fixture {
	t.Helper()

	store := memory.New()
	expiry := testNow.AddDate(2, 0, 0)
	cost := money("6.00")
	store.PutMedicine(catalog.Medicine{Ref: "A", Name: "Amoxicillin 500mg", Price: money("10.00"), CostPrice: &cost, Quantity: 10, ExpiryDate: &expiry, Category: "tablet"})
	store.PutMedicine(catalog.Medicine{Ref: "B", Name: "Paracetamol 500mg", Price: money("5.00"), Quantity: 10, ExpiryDate: &expiry, Category: "tablet"})
	store.PutAddress(address.Address{Ref: "ADDR-1", OwnerRef: "PH-1", Line1: "12 Market St", City: "Lagos"})

	gen := numerator.NewGenerator(numerator.NewMemoryStore(), store.Transactions())
	txs := transaction.NewService(transaction.Deps{
		Repo:      store.Transactions(),
		IDs:       gen,
		Audit:     store,
		Events:    store,
		TxManager: store,
	})
	txs.SetClock(func() time.Time { return testNow })

	carts := cart.NewService(store.Carts(), store, cart.DefaultTTL)
	carts.SetClock(func() time.Time { return testNow })

	var authorizer payment.CardAuthorizer
	if card != nil {
		authorizer = card
	}
	svc := checkout.NewService(checkout.Deps{
		Catalog:      store,
		Addresses:    store,
		Payments:     payment.NewDispatcher(authorizer, nil, 50*time.Millisecond),
		Carts:        carts,
		Transactions: txs,
		TxManager:    store,
	})
	return &fixture{store: store, carts: carts, txs: txs, svc: svc, card: card}
}

func cashSale(items ...checkout.ItemRequest) checkout.Request {
	return checkout.Request{
		PharmacyRef:     "PH-1",
		TransactionType: pricing.TypeSale,
		Items:           items,
		Payment:         &payment.Request{Method: payment.MethodCash},
	}
}

func TestCheckout_CashSale(t *testing.T) {
	f := newFixture(t, nil)

	tx, err := f.svc.Checkout(context.Background(), cashSale(
		checkout.ItemRequest{ProductRef: "A", Quantity: 2},
		checkout.ItemRequest{ProductRef: "B", Quantity: 1},
	))
	require.NoError(t, err)

	assert.Equal(t, transaction.StatusCompleted, tx.Status)
	assert.Equal(t, transaction.PaymentCompleted, tx.Payment.Status)
	assert.NotNil(t, tx.Payment.PaidAt)
	assert.True(t, money("25.00").Equal(tx.Subtotal))
	assert.True(t, money("25.00").Equal(tx.TotalAmount))
	assert.True(t, money("13.00").Equal(tx.Profit))
	assert.Regexp(t, `^TXN-[0-9A-Z]+-[0-9A-Z]{6}$`, tx.TransactionID)
	assert.Equal(t, "SAL00000001", tx.TransactionNumber)
	assert.Len(t, tx.TransactionRef, numerator.ReferenceLength)
	assert.Equal(t, transaction.DeliveryNotApplicable, tx.Delivery.Status)

	assert.Equal(t, 8, f.store.Stock("A"))
	assert.Equal(t, 9, f.store.Stock("B"))

	evts := f.store.Events()
	require.Len(t, evts, 1)
	assert.Equal(t, events.TransactionCompleted, evts[0].Type)
}

func TestCheckout_MergesRepeatedProducts(t *testing.T) {
	f := newFixture(t, nil)

	tx, err := f.svc.Checkout(context.Background(), cashSale(
		checkout.ItemRequest{ProductRef: "A", Quantity: 1},
		checkout.ItemRequest{ProductRef: "A", Quantity: 2},
	))
	require.NoError(t, err)
	require.Len(t, tx.Items, 1)
	assert.Equal(t, 3, tx.Items[0].Quantity)
	assert.Equal(t, 7, f.store.Stock("A"))
}

func TestCheckout_InsufficientStock(t *testing.T) {
	f := newFixture(t, nil)
	f.store.PutMedicine(catalog.Medicine{Ref: "A", Name: "Amoxicillin 500mg", Price: money("10.00"), Quantity: 1})

	_, err := f.svc.Checkout(context.Background(), cashSale(
		checkout.ItemRequest{ProductRef: "B", Quantity: 1},
		checkout.ItemRequest{ProductRef: "A", Quantity: 2},
	))
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
	assert.Equal(t, "A", appErr.Details["product_id"])
	assert.Equal(t, 1, appErr.Details["available"])

	assert.Equal(t, 0, f.store.TransactionCount())
	assert.Equal(t, 1, f.store.Stock("A"))
	assert.Equal(t, 10, f.store.Stock("B"))
}

func TestCheckout_UnknownProduct(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Checkout(context.Background(), cashSale(checkout.ItemRequest{ProductRef: "ZZZ", Quantity: 1}))
	assert.True(t, apperror.IsNotFound(err))
}

func TestCheckout_EmptyCart(t *testing.T) {
	f := newFixture(t, nil)

	c, err := f.carts.GetOrCreateActive(context.Background(), "cashier-1", pricing.TypeSale)
	require.NoError(t, err)

	req := cashSale()
	req.CartID = &c.ID
	req.UserRef = "cashier-1"
	_, err = f.svc.Checkout(context.Background(), req)
	assert.True(t, apperror.HasCode(err, apperror.CodeEmptyCart))
}

func TestCheckout_FromCartCompletesCart(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.carts.AddItem(ctx, cart.AddItemRequest{OwnerRef: "cashier-1", TransactionType: pricing.TypeSale, ProductRef: "A", Quantity: 2})
	require.NoError(t, err)
	c, err := f.carts.AddItem(ctx, cart.AddItemRequest{OwnerRef: "cashier-1", TransactionType: pricing.TypeSale, ProductRef: "B", Quantity: 1})
	require.NoError(t, err)
	_, err = f.carts.ApplyDiscount(ctx, c.ID, pricing.Discount{Amount: money("10"), Type: pricing.DiscountPercentage})
	require.NoError(t, err)

	req := cashSale()
	req.CartID = &c.ID
	req.UserRef = "cashier-1"
	tx, err := f.svc.Checkout(ctx, req)
	require.NoError(t, err)

	assert.True(t, money("2.50").Equal(tx.DiscountAmount))
	assert.True(t, money("22.50").Equal(tx.TotalAmount))
	assert.Equal(t, c.ID.String(), tx.CartRef)

	got, err := f.carts.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, cart.StatusCompleted, got.Status)
	assert.Equal(t, "cash", got.PaymentMethod)
}

func TestCheckout_DeliveryAndTax(t *testing.T) {
	f := newFixture(t, nil)

	rate := money("0.10")
	req := cashSale(checkout.ItemRequest{ProductRef: "A", Quantity: 2})
	req.TaxRate = &rate
	req.Delivery = &checkout.DeliveryRequest{Option: transaction.DeliveryOptionDelivery, AddressRef: "ADDR-1"}

	tx, err := f.svc.Checkout(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, money("2.00").Equal(tx.Tax))
	assert.True(t, money("50.00").Equal(tx.DeliveryFee))
	assert.True(t, money("72.00").Equal(tx.TotalAmount))
	assert.Equal(t, transaction.DeliveryPending, tx.Delivery.Status)
	require.NotNil(t, tx.Delivery.Address)
	assert.Equal(t, "Lagos", tx.Delivery.Address.City)
	require.NotNil(t, tx.Delivery.EstimatedDelivery)
	assert.Equal(t, testNow.Add(transaction.EstimatedDeliveryWindow), *tx.Delivery.EstimatedDelivery)
}

func TestCheckout_UnknownAddressIsSoftFailure(t *testing.T) {
	f := newFixture(t, nil)

	req := cashSale(checkout.ItemRequest{ProductRef: "B", Quantity: 1})
	req.Delivery = &checkout.DeliveryRequest{Option: transaction.DeliveryOptionDelivery, AddressRef: "nope"}

	tx, err := f.svc.Checkout(context.Background(), req)
	require.NoError(t, err)
	assert.Nil(t, tx.Delivery.Address)
	assert.Equal(t, "nope", tx.Delivery.AddressRef)
	assert.True(t, money("55.00").Equal(tx.TotalAmount))
}

func TestCheckout_CardDeclinedPersistsNothing(t *testing.T) {
	f := newFixture(t, payment.DecliningCard("insufficient funds"))

	req := cashSale(checkout.ItemRequest{ProductRef: "A", Quantity: 3})
	req.Payment = &payment.Request{Method: payment.MethodCard, Extra: payment.Extra{CardToken: "tok", CardLast4: "4242"}}

	_, err := f.svc.Checkout(context.Background(), req)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodePaymentFailed))

	assert.Equal(t, 0, f.store.TransactionCount())
	assert.Equal(t, 10, f.store.Stock("A"))
	assert.Empty(t, f.store.Events())
}

func TestCheckout_CardTimeout(t *testing.T) {
	f := newFixture(t, &payment.StaticCardAuthorizer{Hang: true})

	req := cashSale(checkout.ItemRequest{ProductRef: "A", Quantity: 1})
	req.Payment = &payment.Request{Method: payment.MethodCard, Extra: payment.Extra{CardToken: "tok"}}

	_, err := f.svc.Checkout(context.Background(), req)
	assert.True(t, apperror.HasCode(err, apperror.CodePaymentTimeout))
	assert.Equal(t, 10, f.store.Stock("A"))
	assert.Len(t, f.card.Calls(), 1)
}

func TestCheckout_CardApproved(t *testing.T) {
	f := newFixture(t, payment.ApprovingCard("AUTH-9"))

	req := cashSale(checkout.ItemRequest{ProductRef: "B", Quantity: 2})
	req.Payment = &payment.Request{Method: payment.MethodCard, Extra: payment.Extra{CardToken: "tok", CardLast4: "4111111111111111"}}

	tx, err := f.svc.Checkout(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "AUTH-9", tx.Payment.Details.AuthorizationCode)
	assert.Equal(t, "1111", tx.Payment.Details.CardLast4)
	assert.True(t, money("10.00").Equal(f.card.Calls()[0].Amount))
}

func TestCheckout_DraftThenResume(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	req := cashSale(checkout.ItemRequest{ProductRef: "A", Quantity: 4})
	req.SaveAsDraft = true
	draft, err := f.svc.Checkout(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, transaction.StatusDraft, draft.Status)
	assert.Equal(t, 10, f.store.Stock("A"))
	assert.NotEmpty(t, draft.TransactionID)

	_, err = f.txs.Hold(ctx, draft.ID)
	require.NoError(t, err)

	done, err := f.svc.Checkout(ctx, checkout.Request{
		PharmacyRef:   "PH-1",
		TransactionID: &draft.ID,
		Payment:       &payment.Request{Method: payment.MethodCash},
	})
	require.NoError(t, err)
	assert.Equal(t, draft.ID, done.ID)
	assert.Equal(t, draft.TransactionID, done.TransactionID)
	assert.Equal(t, transaction.StatusCompleted, done.Status)
	assert.Equal(t, 6, f.store.Stock("A"))
	assert.Equal(t, 1, f.store.TransactionCount())

	_, err = f.svc.Checkout(ctx, checkout.Request{
		PharmacyRef:   "PH-1",
		TransactionID: &draft.ID,
		Payment:       &payment.Request{Method: payment.MethodCash},
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeTransactionNotEditable))
}

func TestCheckout_SaleWithoutPaymentCompletes(t *testing.T) {
	f := newFixture(t, nil)

	req := cashSale(checkout.ItemRequest{ProductRef: "A", Quantity: 1})
	req.Payment = nil
	tx, err := f.svc.Checkout(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, transaction.StatusCompleted, tx.Status)
	assert.True(t, money("10.00").Equal(tx.TotalAmount))
	assert.Equal(t, 9, f.store.Stock("A"))
	assert.Equal(t, 1, f.store.TransactionCount())
}

func TestCheckout_OtherUsersCartIsNotFound(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	c, err := f.carts.AddItem(ctx, cart.AddItemRequest{OwnerRef: "cashier-1", TransactionType: pricing.TypeSale, ProductRef: "A", Quantity: 2})
	require.NoError(t, err)

	req := cashSale()
	req.CartID = &c.ID
	req.UserRef = "cashier-2"
	_, err = f.svc.Checkout(ctx, req)
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))

	got, err := f.carts.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, cart.StatusActive, got.Status)
	assert.Equal(t, c.Version, got.Version)
	assert.Equal(t, 10, f.store.Stock("A"))
	assert.Equal(t, 0, f.store.TransactionCount())
}

func TestCheckout_DraftFromCartClosesCartOnFinalize(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	c, err := f.carts.AddItem(ctx, cart.AddItemRequest{OwnerRef: "cashier-1", TransactionType: pricing.TypeSale, ProductRef: "A", Quantity: 2})
	require.NoError(t, err)

	req := cashSale()
	req.CartID = &c.ID
	req.UserRef = "cashier-1"
	req.SaveAsDraft = true
	draft, err := f.svc.Checkout(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, c.ID.String(), draft.CartRef)

	open, err := f.carts.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, cart.StatusActive, open.Status)

	done, err := f.svc.Checkout(ctx, checkout.Request{
		PharmacyRef:   "PH-1",
		TransactionID: &draft.ID,
		Payment:       &payment.Request{Method: payment.MethodCash},
	})
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusCompleted, done.Status)
	assert.Equal(t, 8, f.store.Stock("A"))

	closed, err := f.carts.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, cart.StatusCompleted, closed.Status)

	req.SaveAsDraft = false
	_, err = f.svc.Checkout(ctx, req)
	assert.True(t, apperror.IsNotFound(err))
	assert.Equal(t, 8, f.store.Stock("A"))
}

func TestCheckout_TypeComesFromCart(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	c, err := f.carts.AddItem(ctx, cart.AddItemRequest{OwnerRef: "cashier-1", TransactionType: pricing.TypePurchase, ProductRef: "A", Quantity: 30})
	require.NoError(t, err)

	conflicting := checkout.Request{PharmacyRef: "PH-1", TransactionType: pricing.TypeSale, CartID: &c.ID, UserRef: "cashier-1"}
	_, err = f.svc.Checkout(ctx, conflicting)
	assert.Equal(t, apperror.CategoryValidation, apperror.CategoryOf(err))

	tx, err := f.svc.Checkout(ctx, checkout.Request{PharmacyRef: "PH-1", CartID: &c.ID, UserRef: "cashier-1"})
	require.NoError(t, err)
	assert.Equal(t, pricing.TypePurchase, tx.TransactionType)
	assert.Equal(t, "PUR00000001", tx.TransactionNumber)
	assert.Equal(t, 10, f.store.Stock("A"))
}

// abandoningCatalog closes the cart while stock is being reserved, so the
// cart can no longer be completed when the transaction is written.
type abandoningCatalog struct {
	*memory.Store
	abandon func()
}

func (c *abandoningCatalog) DecrementIfAvailable(ctx context.Context, ref string, qty int) (bool, error) {
	if c.abandon != nil {
		c.abandon()
		c.abandon = nil
	}
	return c.Store.DecrementIfAvailable(ctx, ref, qty)
}

func TestCheckout_CartClosedConcurrentlyWritesNothing(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	c, err := f.carts.AddItem(ctx, cart.AddItemRequest{OwnerRef: "cashier-1", TransactionType: pricing.TypeSale, ProductRef: "A", Quantity: 2})
	require.NoError(t, err)

	cat := &abandoningCatalog{Store: f.store, abandon: func() {
		_, err := f.carts.Abandon(ctx, c.ID)
		require.NoError(t, err)
	}}
	svc := checkout.NewService(checkout.Deps{
		Catalog:      cat,
		Payments:     payment.NewDispatcher(nil, nil, time.Second),
		Carts:        f.carts,
		Transactions: f.txs,
		TxManager:    f.store,
	})

	req := cashSale()
	req.CartID = &c.ID
	req.UserRef = "cashier-1"
	_, err = svc.Checkout(ctx, req)
	require.Error(t, err)

	assert.Equal(t, 0, f.store.TransactionCount())
	assert.Empty(t, f.store.Events())
	assert.Empty(t, f.store.AuditEntries())
	assert.Equal(t, 10, f.store.Stock("A"))
}

func TestCheckout_PurchaseSkipsStock(t *testing.T) {
	f := newFixture(t, nil)

	tx, err := f.svc.Checkout(context.Background(), checkout.Request{
		PharmacyRef:     "PH-1",
		TransactionType: pricing.TypePurchase,
		Items:           []checkout.ItemRequest{{ProductRef: "A", Quantity: 50}},
	})
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusCompleted, tx.Status)
	assert.Equal(t, "PUR00000001", tx.TransactionNumber)
	assert.Equal(t, 10, f.store.Stock("A"))
}

func TestCheckout_InvalidQuantity(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Checkout(context.Background(), cashSale(checkout.ItemRequest{ProductRef: "A", Quantity: 0}))
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidQuantity))
}

func TestUpdateDeliveryOption(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	req := cashSale(checkout.ItemRequest{ProductRef: "A", Quantity: 1})
	req.SaveAsDraft = true
	draft, err := f.svc.Checkout(ctx, req)
	require.NoError(t, err)

	tx, err := f.svc.UpdateDeliveryOption(ctx, draft.ID, checkout.DeliveryRequest{
		Option: transaction.DeliveryOptionDelivery, AddressRef: "ADDR-1",
	})
	require.NoError(t, err)
	assert.True(t, money("60.00").Equal(tx.TotalAmount))
	assert.Equal(t, transaction.DeliveryPending, tx.Delivery.Status)

	tx, err = f.svc.UpdateDeliveryOption(ctx, draft.ID, checkout.DeliveryRequest{Option: transaction.DeliveryOptionPickup})
	require.NoError(t, err)
	assert.True(t, money("10.00").Equal(tx.TotalAmount))
	assert.Equal(t, transaction.DeliveryNotApplicable, tx.Delivery.Status)
	assert.Nil(t, tx.Delivery.Address)

	_, err = f.txs.Cancel(ctx, draft.ID, "customer left")
	require.NoError(t, err)
	_, err = f.svc.UpdateDeliveryOption(ctx, draft.ID, checkout.DeliveryRequest{Option: transaction.DeliveryOptionPickup})
	assert.True(t, apperror.HasCode(err, apperror.CodeTransactionNotEditable))
}

func TestToResult(t *testing.T) {
	tx := transaction.New("PH-1", pricing.TypeSale, testNow)
	tx.Status = transaction.StatusCompleted

	ok := checkout.ToResult(tx, nil)
	assert.True(t, ok.Success)
	assert.Equal(t, tx, ok.Data)

	stock := checkout.ToResult(nil, apperror.NewInsufficientStock("A", "Amoxicillin", 2, 1))
	assert.False(t, stock.Success)
	assert.Equal(t, apperror.CodeInsufficientStock, stock.ErrorCode)
	assert.Equal(t, 1, stock.Details["available"])

	internal := checkout.ToResult(nil, assert.AnError)
	assert.Equal(t, apperror.CodeInternal, internal.ErrorCode)
	assert.Equal(t, "internal error", internal.Message)
}
