package paymentmethod

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"rxpos/internal/core/apperror"
	"rxpos/pkg/logger"
)

// RegisterRequest carries raw instrument data. Only masked fields, the sealed
// token and the account hash are persisted.
type RegisterRequest struct {
	OwnerRef      string
	Type          Type
	Provider      string
	CardNumber    string
	AccountNumber string
	BankName      string
	Token         string
}

// Service manages stored payment methods.
type Service struct {
	repo  Repository
	vault *Vault
	now   func() time.Time
}

// NewService creates a new payment method service.
func NewService(repo Repository, vault *Vault) *Service {
	return &Service{repo: repo, vault: vault, now: time.Now}
}

var _ Finder = (*Service)(nil)

// Register validates, seals and stores a new method.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Masked, error) {
	if req.OwnerRef == "" {
		return nil, apperror.NewValidation("owner is required").WithDetail("field", "ownerRef")
	}
	if err := req.Type.Validate(); err != nil {
		return nil, err
	}

	m := &StoredMethod{
		Ref:       "PM-" + strings.ToUpper(uuid.NewString()[:8]),
		OwnerRef:  req.OwnerRef,
		Type:      req.Type,
		Provider:  req.Provider,
		BankName:  req.BankName,
		IsActive:  true,
		CreatedAt: s.now().UTC(),
	}

	switch req.Type {
	case TypeCard:
		digits := onlyDigits(req.CardNumber)
		if len(digits) < 12 || len(digits) > 19 {
			return nil, apperror.NewValidation("card number is invalid").WithDetail("field", "cardNumber")
		}
		m.Last4 = digits[len(digits)-4:]
		if m.Provider == "" {
			m.Provider = cardBrand(digits)
		}
	case TypeBankTransfer:
		digits := onlyDigits(req.AccountNumber)
		if len(digits) < 4 {
			return nil, apperror.NewValidation("account number is invalid").WithDetail("field", "accountNumber")
		}
		hash, err := s.vault.Hash(digits)
		if err != nil {
			return nil, err
		}
		m.AccountHash = hash
		m.MaskedAccount = MaskAccount(digits)
	case TypeDigitalWallet:
		if m.Provider == "" {
			return nil, apperror.NewValidation("wallet provider is required").WithDetail("field", "provider")
		}
	}

	if req.Token != "" {
		sealed, err := s.vault.Seal([]byte(req.Token), []byte(m.OwnerRef))
		if err != nil {
			return nil, fmt.Errorf("seal token: %w", err)
		}
		m.SealedToken = sealed
	}

	if err := s.repo.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("create payment method: %w", err)
	}
	logger.Info(ctx, "payment method registered", "ref", m.Ref, "type", m.Type)
	return m.Masked(), nil
}

// FindActiveMethod implements Finder.
func (s *Service) FindActiveMethod(ctx context.Context, ownerRef, methodRef string) (*Masked, error) {
	m, err := s.active(ctx, ownerRef, methodRef)
	if err != nil {
		return nil, err
	}
	return m.Masked(), nil
}

// Token opens the sealed gateway token of an active method.
// Methods registered without a token return an empty string.
func (s *Service) Token(ctx context.Context, ownerRef, methodRef string) (string, error) {
	m, err := s.active(ctx, ownerRef, methodRef)
	if err != nil {
		return "", err
	}
	if len(m.SealedToken) == 0 {
		return "", nil
	}
	plain, err := s.vault.Open(m.SealedToken, []byte(m.OwnerRef))
	if err != nil {
		return "", apperror.NewInternal(err)
	}
	return string(plain), nil
}

// VerifyAccount reports whether accountNumber matches the stored hash.
func (s *Service) VerifyAccount(ctx context.Context, ownerRef, methodRef, accountNumber string) (bool, error) {
	m, err := s.active(ctx, ownerRef, methodRef)
	if err != nil {
		return false, err
	}
	if m.AccountHash == "" {
		return false, nil
	}
	return s.vault.Matches(m.AccountHash, onlyDigits(accountNumber)), nil
}

// List returns the owner's methods, masked.
func (s *Service) List(ctx context.Context, ownerRef string) ([]*Masked, error) {
	methods, err := s.repo.ListByOwner(ctx, ownerRef)
	if err != nil {
		return nil, err
	}
	out := make([]*Masked, 0, len(methods))
	for _, m := range methods {
		out = append(out, m.Masked())
	}
	return out, nil
}

// Deactivate hides a method from checkout.
func (s *Service) Deactivate(ctx context.Context, ownerRef, methodRef string) error {
	if _, err := s.active(ctx, ownerRef, methodRef); err != nil {
		return err
	}
	return s.repo.SetActive(ctx, methodRef, false)
}

func (s *Service) active(ctx context.Context, ownerRef, methodRef string) (*StoredMethod, error) {
	m, err := s.repo.GetByRef(ctx, methodRef)
	if err != nil {
		return nil, err
	}
	if !m.IsActive || m.OwnerRef != ownerRef {
		return nil, apperror.NewNotFound("payment_method", methodRef)
	}
	return m, nil
}

// MaskAccount keeps the last four digits.
func MaskAccount(digits string) string {
	if len(digits) <= 4 {
		return digits
	}
	return strings.Repeat("*", len(digits)-4) + digits[len(digits)-4:]
}

func onlyDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

func cardBrand(digits string) string {
	switch {
	case strings.HasPrefix(digits, "4"):
		return "visa"
	case strings.HasPrefix(digits, "5"):
		return "mastercard"
	case strings.HasPrefix(digits, "34"), strings.HasPrefix(digits, "37"):
		return "amex"
	default:
		return "card"
	}
}
