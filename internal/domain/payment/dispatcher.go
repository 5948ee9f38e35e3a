package payment

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"rxpos/internal/core/apperror"
	"rxpos/internal/core/numerator"
	"rxpos/internal/core/types"
	"rxpos/internal/domain/paymentmethod"
	"rxpos/pkg/logger"
)

// Dispatcher routes requests by method. Card and wallet calls run under a
// deadline and are never retried: gateways are not idempotent on blind retry.
type Dispatcher struct {
	card    CardAuthorizer
	wallet  WalletCharger
	timeout time.Duration
	now     func() time.Time
}

// NewDispatcher creates a dispatcher. card or wallet may be nil, in which case
// that method fails with PAYMENT_FAILED.
func NewDispatcher(card CardAuthorizer, wallet WalletCharger, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{card: card, wallet: wallet, timeout: timeout, now: time.Now}
}

// Dispatch executes one payment attempt.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (Result, error) {
	if req.Amount.IsNegative() {
		return Result{}, apperror.NewValidation("payment amount must not be negative").
			WithDetail("field", "payment.amount")
	}

	switch req.Method {
	case MethodCash:
		return d.cash(req), nil
	case MethodCard:
		return d.cardPayment(ctx, req)
	case MethodBankTransfer:
		return d.bankTransfer(req)
	case MethodDigitalWallet:
		return d.walletPayment(ctx, req)
	default:
		return Result{}, apperror.NewUnsupportedPaymentMethod(string(req.Method))
	}
}

// cash always succeeds. A tender at or above the amount yields change;
// anything else is recorded as exact cash.
func (d *Dispatcher) cash(req Request) Result {
	amount := types.Round(req.Amount)
	received := amount
	if req.Extra.CashReceived != nil {
		if tendered := types.Round(*req.Extra.CashReceived); tendered.GreaterThanOrEqual(amount) {
			received = tendered
		}
	}
	change := received.Sub(amount)
	return Result{
		Success: true,
		Data:    Details{CashReceived: &received, ChangeGiven: &change},
		Message: "cash payment accepted",
	}
}

func (d *Dispatcher) cardPayment(ctx context.Context, req Request) (Result, error) {
	if d.card == nil {
		return Result{}, apperror.NewPaymentFailed(string(req.Method), "card gateway is not configured")
	}

	auth := CardAuthorization{
		Amount: types.Round(req.Amount),
		Token:  req.Extra.CardToken,
		Last4:  req.Extra.CardLast4,
		Brand:  req.Extra.CardBrand,
	}
	if sm := req.StoredMethod; sm != nil {
		auth.MethodRef = sm.Ref
		if auth.Last4 == "" {
			auth.Last4 = sm.Last4
		}
		if auth.Brand == "" {
			auth.Brand = sm.Provider
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	res, err := d.card.Authorize(callCtx, auth)
	if err != nil {
		return Result{}, gatewayError(callCtx, req.Method, err)
	}
	if !res.Approved {
		logger.Info(ctx, "card declined", "message", res.Message)
		return Result{Success: false, Message: declineMessage(res.Message)}, nil
	}

	last4 := firstNonEmpty(res.Last4, auth.Last4)
	return Result{
		Success: true,
		Data: Details{
			CardLast4:         lastFour(last4),
			CardBrand:         firstNonEmpty(res.Brand, auth.Brand),
			AuthorizationCode: res.AuthorizationCode,
		},
		Message: "card payment authorized",
	}, nil
}

func (d *Dispatcher) bankTransfer(req Request) (Result, error) {
	ref, err := d.bankReference()
	if err != nil {
		return Result{}, apperror.NewInternal(err)
	}

	details := Details{BankReference: ref, BankName: req.Extra.BankName}
	if sm := req.StoredMethod; sm != nil {
		details.BankName = firstNonEmpty(details.BankName, sm.BankName)
		details.MaskedAccount = sm.MaskedAccount
	}
	if details.MaskedAccount == "" && req.Extra.AccountNumber != "" {
		details.MaskedAccount = paymentmethod.MaskAccount(req.Extra.AccountNumber)
	}

	return Result{Success: true, Data: details, Message: "bank transfer recorded"}, nil
}

func (d *Dispatcher) walletPayment(ctx context.Context, req Request) (Result, error) {
	if d.wallet == nil {
		return Result{}, apperror.NewPaymentFailed(string(req.Method), "wallet provider is not configured")
	}

	charge := WalletCharge{
		Amount:   types.Round(req.Amount),
		Provider: req.Extra.WalletProvider,
		Account:  req.Extra.WalletAccount,
	}
	if sm := req.StoredMethod; sm != nil {
		charge.MethodRef = sm.Ref
		charge.Provider = firstNonEmpty(charge.Provider, sm.Provider)
	}
	if charge.Provider == "" {
		return Result{}, apperror.NewValidation("wallet provider is required").
			WithDetail("field", "payment.extra.walletProvider")
	}

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	res, err := d.wallet.Charge(callCtx, charge)
	if err != nil {
		return Result{}, gatewayError(callCtx, req.Method, err)
	}
	if !res.Approved {
		logger.Info(ctx, "wallet charge declined", "provider", charge.Provider, "message", res.Message)
		return Result{Success: false, Message: declineMessage(res.Message)}, nil
	}

	return Result{
		Success: true,
		Data: Details{
			WalletProvider: charge.Provider,
			WalletTxRef:    res.TransactionID,
		},
		Message: "wallet payment completed",
	}, nil
}

// gatewayError maps a transport failure. A missed deadline is reported as
// PAYMENT_TIMEOUT so callers can tell it apart from a decline.
func gatewayError(callCtx context.Context, method Method, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return apperror.NewPaymentTimeout(string(method)).WithCause(err)
	}
	return apperror.NewPaymentFailed(string(method), "payment gateway unavailable").WithCause(err)
}

func (d *Dispatcher) bankReference() (string, error) {
	suffix, err := numerator.RandomString(numerator.SuffixLength)
	if err != nil {
		return "", err
	}
	ts := strings.ToUpper(strconv.FormatInt(d.now().UnixMilli(), 36))
	return "BT-" + ts + "-" + suffix, nil
}

func declineMessage(msg string) string {
	if msg == "" {
		return "payment declined"
	}
	return msg
}

func lastFour(s string) string {
	if len(s) > 4 {
		return s[len(s)-4:]
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
