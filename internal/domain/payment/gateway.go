package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// HTTPGateway talks JSON to an external card or wallet gateway.
//
//	POST {cardURL}/authorize  CardAuthorization -> CardResult
//	POST {walletURL}/charge   WalletCharge      -> WalletResult
//
// Deadlines come from the caller's context.
type HTTPGateway struct {
	cardURL   string
	walletURL string
	apiKey    string
	client    *http.Client
}

// NewHTTPGateway creates a gateway client. client may be nil.
func NewHTTPGateway(cardURL, walletURL, apiKey string, client *http.Client) *HTTPGateway {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPGateway{cardURL: cardURL, walletURL: walletURL, apiKey: apiKey, client: client}
}

var (
	_ CardAuthorizer = (*HTTPGateway)(nil)
	_ WalletCharger  = (*HTTPGateway)(nil)
)

// Authorize implements CardAuthorizer.
func (g *HTTPGateway) Authorize(ctx context.Context, req CardAuthorization) (CardResult, error) {
	var res CardResult
	err := g.post(ctx, g.cardURL+"/authorize", req, &res)
	return res, err
}

// Charge implements WalletCharger.
func (g *HTTPGateway) Charge(ctx context.Context, req WalletCharge) (WalletResult, error) {
	var res WalletResult
	err := g.post(ctx, g.walletURL+"/charge", req, &res)
	return res, err
}

func (g *HTTPGateway) post(ctx context.Context, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal gateway request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("gateway call: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read gateway response: %w", err)
	}
	// 402 carries a decline body; anything else outside 2xx is a transport failure.
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusPaymentRequired {
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}
	return nil
}
