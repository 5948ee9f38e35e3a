// Package payment routes a payment request to the handler for its method and
// normalizes the outcome. It holds no state.
package payment

import (
	"context"
	"time"

	"rxpos/internal/core/types"
	"rxpos/internal/domain/paymentmethod"
)

// Method is the payment type.
type Method string

const (
	MethodCash          Method = "cash"
	MethodCard          Method = "card"
	MethodBankTransfer  Method = "bank_transfer"
	MethodDigitalWallet Method = "digital_wallet"
)

// Extra carries method-specific input supplied by the caller.
type Extra struct {
	CashReceived   *types.Money `json:"cashReceived,omitempty"`
	CardToken      string       `json:"cardToken,omitempty"`
	CardLast4      string       `json:"cardLast4,omitempty"`
	CardBrand      string       `json:"cardBrand,omitempty"`
	BankName       string       `json:"bankName,omitempty"`
	AccountNumber  string       `json:"accountNumber,omitempty"`
	WalletProvider string       `json:"walletProvider,omitempty"`
	WalletAccount  string       `json:"walletAccount,omitempty"`
}

// Request is one payment attempt.
type Request struct {
	Method          Method                `json:"method"`
	Amount          types.Money           `json:"amount"`
	StoredMethodRef string                `json:"paymentMethodRef,omitempty"`
	StoredMethod    *paymentmethod.Masked `json:"-"`
	Extra           Extra                 `json:"extra"`
}

// Details are the method-specific fields recorded on the transaction.
// Never contains a full card or account number.
type Details struct {
	CashReceived      *types.Money `json:"cashReceived,omitempty"`
	ChangeGiven       *types.Money `json:"changeGiven,omitempty"`
	CardLast4         string       `json:"cardLast4,omitempty"`
	CardBrand         string       `json:"cardBrand,omitempty"`
	AuthorizationCode string       `json:"authorizationCode,omitempty"`
	BankReference     string       `json:"bankReference,omitempty"`
	BankName          string       `json:"bankName,omitempty"`
	MaskedAccount     string       `json:"maskedAccount,omitempty"`
	WalletProvider    string       `json:"walletProvider,omitempty"`
	WalletTxRef       string       `json:"walletTxRef,omitempty"`
}

// Result is the normalized dispatch outcome.
type Result struct {
	Success bool    `json:"success"`
	Data    Details `json:"data"`
	Message string  `json:"message,omitempty"`
}

// CardAuthorization is sent to the card gateway.
type CardAuthorization struct {
	Amount    types.Money `json:"amount"`
	Token     string      `json:"token,omitempty"`
	MethodRef string      `json:"methodRef,omitempty"`
	Last4     string      `json:"last4,omitempty"`
	Brand     string      `json:"brand,omitempty"`
}

// CardResult is the card gateway answer.
type CardResult struct {
	Approved          bool   `json:"approved"`
	AuthorizationCode string `json:"authorizationCode,omitempty"`
	Last4             string `json:"last4,omitempty"`
	Brand             string `json:"brand,omitempty"`
	Message           string `json:"message,omitempty"`
}

// CardAuthorizer authorizes card payments.
type CardAuthorizer interface {
	Authorize(ctx context.Context, req CardAuthorization) (CardResult, error)
}

// WalletCharge is sent to the wallet provider.
type WalletCharge struct {
	Amount    types.Money `json:"amount"`
	Provider  string      `json:"provider"`
	Account   string      `json:"account,omitempty"`
	MethodRef string      `json:"methodRef,omitempty"`
}

// WalletResult is the wallet provider answer.
type WalletResult struct {
	Approved      bool   `json:"approved"`
	TransactionID string `json:"transactionId,omitempty"`
	Message       string `json:"message,omitempty"`
}

// WalletCharger charges digital wallets.
type WalletCharger interface {
	Charge(ctx context.Context, req WalletCharge) (WalletResult, error)
}

// DefaultTimeout bounds card and wallet calls.
const DefaultTimeout = 15 * time.Second
