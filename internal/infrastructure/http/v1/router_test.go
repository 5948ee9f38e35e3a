package v1

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "rxpos/internal/core/context"
	"rxpos/internal/core/numerator"
	"rxpos/internal/core/types"
	"rxpos/internal/domain/auth"
	"rxpos/internal/domain/cart"
	"rxpos/internal/domain/catalog"
	"rxpos/internal/domain/checkout"
	"rxpos/internal/domain/payment"
	"rxpos/internal/domain/paymentmethod"
	"rxpos/internal/domain/reports"
	"rxpos/internal/domain/transaction"
	"rxpos/internal/infrastructure/http/v1/middleware"
	"rxpos/internal/infrastructure/storage/memory"
)

type apiFixture struct {
	store  *memory.Store
	router http.Handler
	jwt    *auth.JWTService
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	store := memory.New()
	expiry := time.Now().AddDate(2, 0, 0)
	store.PutMedicine(catalog.Medicine{Ref: "A", Name: "Amoxicillin 500mg", Price: types.MustMoney("10.00"), Quantity: 10, ExpiryDate: &expiry})
	store.PutMedicine(catalog.Medicine{Ref: "B", Name: "Paracetamol 500mg", Price: types.MustMoney("5.00"), Quantity: 1, ExpiryDate: &expiry})

	gen := numerator.NewGenerator(numerator.NewMemoryStore(), store.Transactions())
	txs := transaction.NewService(transaction.Deps{
		Repo:      store.Transactions(),
		IDs:       gen,
		Audit:     store,
		Events:    store,
		TxManager: store,
	})
	carts := cart.NewService(store.Carts(), store, cart.DefaultTTL)
	co := checkout.NewService(checkout.Deps{
		Catalog:      store,
		Addresses:    store,
		Payments:     payment.NewDispatcher(nil, nil, 50*time.Millisecond),
		Carts:        carts,
		Transactions: txs,
		TxManager:    store,
	})
	vault, err := paymentmethod.NewVault("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)

	jwtSvc := auth.NewJWTService(auth.DefaultJWTConfig("router-test-secret"))
	router := NewRouter(RouterConfig{
		JWTValidator:   jwtSvc,
		Carts:          carts,
		Checkout:       co,
		Transactions:   txs,
		Reports:        reports.NewService(store.Reports()),
		PaymentMethods: paymentmethod.NewService(store, vault),
		History:        store,
		Idempotency:    memory.NewIdempotencyStore(time.Hour, nil),
		Version:        "test",
	})
	return &apiFixture{store: store, router: router, jwt: jwtSvc}
}

func (f *apiFixture) token(t *testing.T, user, pharmacy string, roles ...string) string {
	t.Helper()
	tok, _, err := f.jwt.GenerateAccessToken(appctx.UserContext{UserID: user, PharmacyID: pharmacy, Roles: roles})
	require.NoError(t, err)
	return tok
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func cashCheckout(items ...map[string]any) map[string]any {
	return map[string]any{
		"transactionType": "sale",
		"items":           items,
		"payment":         map[string]any{"method": "cash"},
	}
}

func item(ref string, qty int) map[string]any {
	return map[string]any{"productRef": ref, "quantity": qty}
}

func TestHealthLive(t *testing.T) {
	f := newAPIFixture(t)
	w := f.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
}

func TestAuthRequired(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/transactions", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", decode(t, w)["code"])

	w = f.do(t, http.MethodGet, "/api/v1/transactions", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/transactions", f.token(t, "u1", ""), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCheckout_CashSale(t *testing.T) {
	f := newAPIFixture(t)
	tok := f.token(t, "cashier-1", "PH-1")

	w := f.do(t, http.MethodPost, "/api/v1/checkout", tok, cashCheckout(item("A", 2)))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]any)
	assert.Equal(t, "completed", data["status"])
	assert.Equal(t, "PH-1", data["ownerRef"])
	total, err := decimal.NewFromString(data["totalAmount"].(string))
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.RequireFromString("20.00")))
	assert.Equal(t, 8, f.store.Stock("A"))
}

func TestCheckout_InsufficientStock(t *testing.T) {
	f := newAPIFixture(t)
	tok := f.token(t, "cashier-1", "PH-1")

	w := f.do(t, http.MethodPost, "/api/v1/checkout", tok, cashCheckout(item("B", 2)))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "INSUFFICIENT_STOCK", body["errorCode"])
	assert.Equal(t, 1, f.store.Stock("B"))
	assert.Zero(t, f.store.TransactionCount())
}

func TestCheckout_OtherPharmacyForbidden(t *testing.T) {
	f := newAPIFixture(t)
	req := cashCheckout(item("A", 1))
	req["pharmacyRef"] = "PH-2"

	w := f.do(t, http.MethodPost, "/api/v1/checkout", f.token(t, "cashier-1", "PH-1"), req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 10, f.store.Stock("A"))
}

func TestCheckout_IdempotentReplay(t *testing.T) {
	f := newAPIFixture(t)
	tok := f.token(t, "cashier-1", "PH-1")
	req := cashCheckout(item("A", 1))

	first := f.do(t, http.MethodPost, "/api/v1/checkout", tok, req, middleware.HeaderIdempotencyKey, "key-1")
	require.Equal(t, http.StatusCreated, first.Code)

	second := f.do(t, http.MethodPost, "/api/v1/checkout", tok, req, middleware.HeaderIdempotencyKey, "key-1")
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replay"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	assert.Equal(t, 9, f.store.Stock("A"))
	assert.Equal(t, 1, f.store.TransactionCount())

	other := f.do(t, http.MethodPost, "/api/v1/checkout", tok, cashCheckout(item("A", 2)), middleware.HeaderIdempotencyKey, "key-1")
	assert.Equal(t, http.StatusConflict, other.Code)
	assert.Equal(t, "IDEMPOTENCY_CONFLICT", decode(t, other)["code"])
}

func TestTransactions_ScopedToPharmacy(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/checkout", f.token(t, "cashier-1", "PH-1"), cashCheckout(item("A", 1)))
	require.Equal(t, http.StatusCreated, w.Code)
	data := decode(t, w)["data"].(map[string]any)
	txID := data["id"].(string)
	publicID := data["transactionId"].(string)

	own := f.do(t, http.MethodGet, "/api/v1/transactions/"+publicID, f.token(t, "cashier-1", "PH-1"), nil)
	assert.Equal(t, http.StatusOK, own.Code)

	foreign := f.do(t, http.MethodGet, "/api/v1/transactions/"+txID, f.token(t, "cashier-9", "PH-2"), nil)
	assert.Equal(t, http.StatusNotFound, foreign.Code)

	list := f.do(t, http.MethodGet, "/api/v1/transactions", f.token(t, "cashier-9", "PH-2"), nil)
	require.Equal(t, http.StatusOK, list.Code)
	assert.EqualValues(t, 0, decode(t, list)["totalCount"])
}

func TestTransactions_RefundAndHistory(t *testing.T) {
	f := newAPIFixture(t)
	tok := f.token(t, "cashier-1", "PH-1")

	w := f.do(t, http.MethodPost, "/api/v1/checkout", tok, cashCheckout(item("A", 2)))
	require.Equal(t, http.StatusCreated, w.Code)
	txID := decode(t, w)["data"].(map[string]any)["id"].(string)

	w = f.do(t, http.MethodPost, "/api/v1/transactions/"+txID+"/refund", tok, map[string]any{"amount": "5.00", "reason": "damaged box"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode(t, w)
	assert.Equal(t, "partially_refunded", res["transaction"].(map[string]any)["status"])

	w = f.do(t, http.MethodGet, "/api/v1/transactions/"+txID+"/history", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	require.NotEmpty(t, history)
	assert.Equal(t, "refund", history[0]["action"])
}

func TestCarts_OwnedByUser(t *testing.T) {
	f := newAPIFixture(t)
	tok := f.token(t, "cashier-1", "PH-1")

	w := f.do(t, http.MethodPost, "/api/v1/carts/items", tok, map[string]any{"productRef": "A", "quantity": 3})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.EqualValues(t, 3, body["totalQuantity"])
	cartID := body["id"].(string)

	w = f.do(t, http.MethodGet, "/api/v1/carts/"+cartID, tok, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/carts/"+cartID, f.token(t, "cashier-2", "PH-1"), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/carts/not-a-uuid", tok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckout_CartOnlyByOwner(t *testing.T) {
	f := newAPIFixture(t)
	owner := f.token(t, "cashier-1", "PH-1")

	w := f.do(t, http.MethodPost, "/api/v1/carts/items", owner, map[string]any{"productRef": "A", "quantity": 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cart := decode(t, w)
	cartID := cart["id"].(string)
	body := map[string]any{"cartId": cartID, "payment": map[string]any{"method": "cash"}}

	for _, tok := range []string{f.token(t, "someone-else", "PH-2"), f.token(t, "cashier-2", "PH-1")} {
		w = f.do(t, http.MethodPost, "/api/v1/checkout", tok, body)
		assert.Equal(t, http.StatusNotFound, w.Code, w.Body.String())
		assert.Equal(t, false, decode(t, w)["success"])
	}
	assert.Equal(t, 10, f.store.Stock("A"))
	assert.Zero(t, f.store.TransactionCount())

	w = f.do(t, http.MethodGet, "/api/v1/carts/"+cartID, owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	untouched := decode(t, w)
	assert.Equal(t, "active", untouched["status"])
	assert.Equal(t, cart["version"], untouched["version"])

	w = f.do(t, http.MethodPost, "/api/v1/checkout", owner, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, 8, f.store.Stock("A"))
}

func TestReports_RequireManager(t *testing.T) {
	f := newAPIFixture(t)
	q := "/api/v1/reports/sales?from=2026-01-01T00:00:00Z&to=2026-02-01T00:00:00Z"

	w := f.do(t, http.MethodGet, q, f.token(t, "cashier-1", "PH-1"), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodGet, q, f.token(t, "boss", "PH-1", RoleManager), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	summary := decode(t, w)["summary"].(map[string]any)
	assert.EqualValues(t, 0, summary["count"])
}
