// Package payments wraps the third-party payment processor's REST API: it
// creates checkout preferences and fetches authoritative payment records by
// id. Webhook notifications are untrusted pointers; the fetched record is the
// truth the engine acts on.
package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type Client interface {
	CreatePreference(ctx context.Context, pref *PreferenceRequest) (*Preference, error)
	GetPayment(ctx context.Context, paymentID string) (*Payment, error)
}

// PreferenceRequest describes one checkout to be created at the processor.
type PreferenceRequest struct {
	Title             string            `json:"title"`
	Quantity          int               `json:"quantity"`
	UnitPrice         float64           `json:"unit_price"`
	ExternalReference string            `json:"external_reference"`
	PayerName         string            `json:"payer_name,omitempty"`
	PayerEmail        string            `json:"payer_email,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

// Preference is the processor's answer: checkout identifiers and the URLs a
// client is redirected to.
type Preference struct {
	ID             string `json:"id"`
	InitPoint      string `json:"init_point"`
	SandboxInitURL string `json:"sandbox_init_point,omitempty"`
}

type PaymentStatus string

const (
	StatusApproved PaymentStatus = "approved"
	StatusPending  PaymentStatus = "pending"
	StatusRejected PaymentStatus = "rejected"
)

// Payment is the authoritative record fetched from the processor.
type Payment struct {
	ID                string            `json:"id"`
	Status            PaymentStatus     `json:"status"`
	TransactionAmount float64           `json:"transaction_amount"`
	ExternalReference string            `json:"external_reference"`
	PaymentMethod     string            `json:"payment_method_id,omitempty"`
	PayerName         string            `json:"payer_name,omitempty"`
	PayerEmail        string            `json:"payer_email,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

type HTTPClient struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

func NewHTTPClient(baseURL, accessToken string) *HTTPClient {
	return &HTTPClient{
		baseURL:     baseURL,
		accessToken: accessToken,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

var _ Client = (*HTTPClient)(nil)

func (c *HTTPClient) CreatePreference(ctx context.Context, pref *PreferenceRequest) (*Preference, error) {
	body, err := json.Marshal(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to encode preference: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/checkout/preferences", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("processor request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Surface the upstream error payload so callers can attach it.
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("processor rejected preference (status %d): %s", resp.StatusCode, payload)
	}

	var created Preference
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("failed to decode preference response: %w", err)
	}
	return &created, nil
}

func (c *HTTPClient) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/payments/"+paymentID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("processor request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("payment %s not found at processor", paymentID)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("processor payment fetch failed (status %d): %s", resp.StatusCode, payload)
	}

	var payment Payment
	if err := json.NewDecoder(resp.Body).Decode(&payment); err != nil {
		return nil, fmt.Errorf("failed to decode payment response: %w", err)
	}
	return &payment, nil
}

func (c *HTTPClient) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}
