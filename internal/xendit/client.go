package xendit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/haidar038/kagounga-sub001/internal/config"
)

// Client talks to the Xendit REST API (invoices and refunds).
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new Xendit client
func NewClient(cfg config.XenditConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL:   cfg.BaseURL,
		secretKey: cfg.SecretKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger,
	}
}

// CreateInvoiceRequest is the payload for POST /v2/invoices
type CreateInvoiceRequest struct {
	ExternalID         string        `json:"external_id"`
	Amount             float64       `json:"amount"`
	PayerEmail         string        `json:"payer_email,omitempty"`
	Description        string        `json:"description,omitempty"`
	SuccessRedirectURL string        `json:"success_redirect_url,omitempty"`
	FailureRedirectURL string        `json:"failure_redirect_url,omitempty"`
	Customer           *Customer     `json:"customer,omitempty"`
	Items              []InvoiceItem `json:"items,omitempty"`
}

type Customer struct {
	GivenNames   string `json:"given_names,omitempty"`
	Email        string `json:"email,omitempty"`
	MobileNumber string `json:"mobile_number,omitempty"`
}

type InvoiceItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// Invoice is the subset of the invoice response we consume
type Invoice struct {
	ID         string `json:"id"`
	ExternalID string `json:"external_id"`
	Status     string `json:"status"`
	InvoiceURL string `json:"invoice_url"`
}

// CreateRefundRequest is the payload for POST /refunds
type CreateRefundRequest struct {
	InvoiceID   string  `json:"invoice_id,omitempty"`
	PaymentID   string  `json:"payment_request_id,omitempty"`
	ReferenceID string  `json:"reference_id"`
	Amount      float64 `json:"amount"`
	Reason      string  `json:"reason"`
}

// Refund is the subset of the refund response we consume
type Refund struct {
	ID          string  `json:"id"`
	ReferenceID string  `json:"reference_id"`
	Status      string  `json:"status"`
	Amount      float64 `json:"amount"`
	ChannelCode string  `json:"channel_code"`
	FailureCode string  `json:"failure_code"`
}

// apiError is Xendit's error envelope
type apiError struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

// CreateInvoice creates a hosted payment invoice for an order
func (c *Client) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*Invoice, error) {
	var invoice Invoice
	if err := c.do(ctx, http.MethodPost, "/v2/invoices", "", req, &invoice); err != nil {
		return nil, err
	}
	return &invoice, nil
}

// CreateRefund submits a refund instruction. idempotencyKey makes the
// gateway-side operation safe to retry without double-refunding.
func (c *Client) CreateRefund(ctx context.Context, idempotencyKey string, req CreateRefundRequest) (*Refund, error) {
	var refund Refund
	if err := c.do(ctx, http.MethodPost, "/refunds", idempotencyKey, req, &refund); err != nil {
		return nil, err
	}
	return &refund, nil
}

func (c *Client) do(ctx context.Context, method, path, idempotencyKey string, payload, out interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.secretKey, "")
	if idempotencyKey != "" {
		req.Header.Set("idempotency-key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("xendit API error: status %d, %s: %s", resp.StatusCode, apiErr.ErrorCode, apiErr.Message)
		}
		return fmt.Errorf("xendit API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w, body: %s", err, string(body))
	}

	return nil
}
