// Package gateway adapts the external payment processor behind
// ports.PaymentGateway.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"leadmarket/internal/ports"
)

// Client talks JSON over HTTP to the processor. The processor deduplicates
// refunds by charge reference, so re-issuing after a crash is safe.
type Client struct {
	baseURL string
	httpc   *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{baseURL: baseURL, httpc: &http.Client{Timeout: 10 * time.Second}}
}

func (c *Client) Refund(ctx context.Context, chargeRef string) (string, error) {
	body, _ := json.Marshal(map[string]string{"charge_ref": chargeRef})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/refunds", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("gateway refund: unexpected status %d", resp.StatusCode)
	}
	var out struct {
		RefundRef string `json:"refund_ref"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.RefundRef == "" {
		return "", fmt.Errorf("gateway refund: empty refund reference")
	}
	return out.RefundRef, nil
}

func (c *Client) Verify(ctx context.Context, chargeRef string) (ports.ChargeStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/charges/"+chargeRef, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gateway verify: unexpected status %d", resp.StatusCode)
	}
	var out struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return ports.ChargeStatus(out.Status), nil
}

// Static is a deterministic in-process gateway for tests and database-free
// local runs. Refunds are idempotent per charge reference, matching the real
// processor's contract.
type Static struct {
	mu      sync.Mutex
	refunds map[string]string
	// FailWith, when set, makes Refund fail without recording anything.
	FailWith error
}

func NewStatic() *Static {
	return &Static{refunds: map[string]string{}}
}

func (s *Static) Refund(_ context.Context, chargeRef string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return "", s.FailWith
	}
	if ref, ok := s.refunds[chargeRef]; ok {
		return ref, nil
	}
	ref := "re_" + chargeRef
	s.refunds[chargeRef] = ref
	return ref, nil
}

func (s *Static) Verify(_ context.Context, chargeRef string) (ports.ChargeStatus, error) {
	if chargeRef == "" {
		return ports.ChargeFailed, nil
	}
	return ports.ChargeSucceeded, nil
}

// RefundCount reports how many distinct charges have been refunded.
func (s *Static) RefundCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.refunds)
}
