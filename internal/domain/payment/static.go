package payment

import (
	"context"
	"sync"
)

// StaticCardAuthorizer returns a fixed outcome. Used in tests and dev mode.
type StaticCardAuthorizer struct {
	Result CardResult
	Err    error
	// Hang blocks until ctx is done, simulating an unresponsive gateway.
	Hang bool

	mu    sync.Mutex
	calls []CardAuthorization
}

// Authorize implements CardAuthorizer.
func (s *StaticCardAuthorizer) Authorize(ctx context.Context, req CardAuthorization) (CardResult, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	s.mu.Unlock()

	if s.Hang {
		<-ctx.Done()
		return CardResult{}, ctx.Err()
	}
	return s.Result, s.Err
}

// Calls returns the requests seen so far.
func (s *StaticCardAuthorizer) Calls() []CardAuthorization {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CardAuthorization(nil), s.calls...)
}

// ApprovingCard approves every authorization with code.
func ApprovingCard(code string) *StaticCardAuthorizer {
	return &StaticCardAuthorizer{Result: CardResult{Approved: true, AuthorizationCode: code}}
}

// DecliningCard declines every authorization with message.
func DecliningCard(message string) *StaticCardAuthorizer {
	return &StaticCardAuthorizer{Result: CardResult{Approved: false, Message: message}}
}

// StaticWalletCharger returns a fixed outcome.
type StaticWalletCharger struct {
	Result WalletResult
	Err    error
	Hang   bool

	mu    sync.Mutex
	calls []WalletCharge
}

// Charge implements WalletCharger.
func (s *StaticWalletCharger) Charge(ctx context.Context, req WalletCharge) (WalletResult, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	s.mu.Unlock()

	if s.Hang {
		<-ctx.Done()
		return WalletResult{}, ctx.Err()
	}
	return s.Result, s.Err
}

// Calls returns the requests seen so far.
func (s *StaticWalletCharger) Calls() []WalletCharge {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]WalletCharge(nil), s.calls...)
}
