// Package paymentmethod stores customer payment instruments. The sales engine
// only ever sees the Masked view; secrets stay inside the vault.
package paymentmethod

import (
	"context"
	"time"

	"rxpos/internal/core/apperror"
)

// Type is the instrument kind. Values match payment.Method.
type Type string

const (
	TypeCard          Type = "card"
	TypeBankTransfer  Type = "bank_transfer"
	TypeDigitalWallet Type = "digital_wallet"
)

// Validate rejects unknown instrument types.
func (t Type) Validate() error {
	switch t {
	case TypeCard, TypeBankTransfer, TypeDigitalWallet:
		return nil
	}
	return apperror.NewValidation("unsupported payment method type").
		WithDetail("field", "type").
		WithDetail("value", string(t))
}

// Masked is the display-safe projection of a stored method.
type Masked struct {
	Ref           string `json:"ref"`
	OwnerRef      string `json:"ownerRef"`
	Type          Type   `json:"type"`
	Provider      string `json:"provider,omitempty"`
	Last4         string `json:"last4,omitempty"`
	BankName      string `json:"bankName,omitempty"`
	MaskedAccount string `json:"maskedAccount,omitempty"`
	IsActive      bool   `json:"isActive"`
}

// StoredMethod is the persisted record, including sealed secrets.
type StoredMethod struct {
	Ref           string    `db:"ref"`
	OwnerRef      string    `db:"owner_ref"`
	Type          Type      `db:"type"`
	Provider      string    `db:"provider"`
	Last4         string    `db:"last4"`
	BankName      string    `db:"bank_name"`
	MaskedAccount string    `db:"masked_account"`
	SealedToken   []byte    `db:"sealed_token"`
	AccountHash   string    `db:"account_hash"`
	IsActive      bool      `db:"is_active"`
	CreatedAt     time.Time `db:"created_at"`
}

// Masked returns the display-safe view.
func (m *StoredMethod) Masked() *Masked {
	return &Masked{
		Ref:           m.Ref,
		OwnerRef:      m.OwnerRef,
		Type:          m.Type,
		Provider:      m.Provider,
		Last4:         m.Last4,
		BankName:      m.BankName,
		MaskedAccount: m.MaskedAccount,
		IsActive:      m.IsActive,
	}
}

// Finder is what checkout needs: an active method owned by ownerRef.
type Finder interface {
	// FindActiveMethod returns NOT_FOUND (entity=payment_method) when the
	// method is unknown, inactive or owned by someone else.
	FindActiveMethod(ctx context.Context, ownerRef, methodRef string) (*Masked, error)
}

// Repository persists stored methods.
type Repository interface {
	Create(ctx context.Context, m *StoredMethod) error
	GetByRef(ctx context.Context, ref string) (*StoredMethod, error)
	ListByOwner(ctx context.Context, ownerRef string) ([]*StoredMethod, error)
	SetActive(ctx context.Context, ref string, active bool) error
}
