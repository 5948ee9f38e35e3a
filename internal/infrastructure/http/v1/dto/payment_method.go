package dto

import (
	"rxpos/internal/domain/paymentmethod"
)

// RegisterPaymentMethodRequest carries raw instrument data. It is never
// logged or echoed back.
type RegisterPaymentMethodRequest struct {
	Type          paymentmethod.Type `json:"type" binding:"required"`
	Provider      string             `json:"provider"`
	CardNumber    string             `json:"cardNumber"`
	AccountNumber string             `json:"accountNumber"`
	BankName      string             `json:"bankName"`
	Token         string             `json:"token"`
}

// Domain converts to the domain request owned by ownerRef.
func (r RegisterPaymentMethodRequest) Domain(ownerRef string) paymentmethod.RegisterRequest {
	return paymentmethod.RegisterRequest{
		OwnerRef:      ownerRef,
		Type:          r.Type,
		Provider:      r.Provider,
		CardNumber:    r.CardNumber,
		AccountNumber: r.AccountNumber,
		BankName:      r.BankName,
		Token:         r.Token,
	}
}

// VerifyAccountRequest checks an account number against the stored hash.
type VerifyAccountRequest struct {
	AccountNumber string `json:"accountNumber" binding:"required"`
}

// VerifyAccountResponse reports the match.
type VerifyAccountResponse struct {
	Valid bool `json:"valid"`
}
