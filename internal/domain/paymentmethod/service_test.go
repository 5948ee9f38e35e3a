package paymentmethod_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rxpos/internal/core/apperror"
	"rxpos/internal/domain/paymentmethod"
	"rxpos/internal/infrastructure/storage/memory"
)

func newService(t *testing.T) (*paymentmethod.Service, *memory.Store) {
	t.Helper()
	vault, err := paymentmethod.NewVault("0123456789abcdef-test")
	require.NoError(t, err)
	store := memory.New()
	return paymentmethod.NewService(store, vault), store
}

func TestRegister_Card(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	m, err := svc.Register(ctx, paymentmethod.RegisterRequest{
		OwnerRef:   "PH-1",
		Type:       paymentmethod.TypeCard,
		CardNumber: "4242 4242 4242 4242",
		Token:      "tok_abc",
	})
	require.NoError(t, err)
	assert.Regexp(t, `^PM-[0-9A-F]{8}$`, m.Ref)
	assert.Equal(t, "4242", m.Last4)
	assert.Equal(t, "visa", m.Provider)

	stored, err := store.GetByRef(ctx, m.Ref)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.SealedToken)
	assert.NotContains(t, string(stored.SealedToken), "tok_abc")

	tok, err := svc.Token(ctx, "PH-1", m.Ref)
	require.NoError(t, err)
	assert.Equal(t, "tok_abc", tok)

	_, err = svc.FindActiveMethod(ctx, "PH-2", m.Ref)
	assert.True(t, apperror.IsNotFound(err))
}

func TestRegister_BankAccount(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	m, err := svc.Register(ctx, paymentmethod.RegisterRequest{
		OwnerRef:      "PH-1",
		Type:          paymentmethod.TypeBankTransfer,
		AccountNumber: "0123-456-789",
		BankName:      "First Bank",
	})
	require.NoError(t, err)
	assert.Equal(t, "******6789", m.MaskedAccount)

	stored, err := store.GetByRef(ctx, m.Ref)
	require.NoError(t, err)
	assert.NotContains(t, stored.AccountHash, "0123456789")

	ok, err := svc.VerifyAccount(ctx, "PH-1", m.Ref, "0123456789")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.VerifyAccount(ctx, "PH-1", m.Ref, "9999999999")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegister_Rejects(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, paymentmethod.RegisterRequest{Type: paymentmethod.TypeCard, CardNumber: "4242424242424242"})
	assert.Equal(t, apperror.CategoryValidation, apperror.CategoryOf(err))

	_, err = svc.Register(ctx, paymentmethod.RegisterRequest{OwnerRef: "PH-1", Type: paymentmethod.TypeCard, CardNumber: "4242"})
	assert.Equal(t, apperror.CategoryValidation, apperror.CategoryOf(err))

	_, err = svc.Register(ctx, paymentmethod.RegisterRequest{OwnerRef: "PH-1", Type: paymentmethod.TypeDigitalWallet})
	assert.Equal(t, apperror.CategoryValidation, apperror.CategoryOf(err))

	_, err = svc.Register(ctx, paymentmethod.RegisterRequest{OwnerRef: "PH-1", Type: "cheque"})
	assert.Equal(t, apperror.CategoryValidation, apperror.CategoryOf(err))
}

func TestDeactivate(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	m, err := svc.Register(ctx, paymentmethod.RegisterRequest{OwnerRef: "PH-1", Type: paymentmethod.TypeDigitalWallet, Provider: "paypal"})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(ctx, "PH-1", m.Ref))
	_, err = svc.FindActiveMethod(ctx, "PH-1", m.Ref)
	assert.True(t, apperror.IsNotFound(err))

	list, err := svc.List(ctx, "PH-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].IsActive)
}
