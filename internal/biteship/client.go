package biteship

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/haidar038/kagounga-sub001/internal/config"
)

// Client talks to the Biteship courier aggregator API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new Biteship client
func NewClient(cfg config.BiteshipConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger,
	}
}

// RatesRequest is the payload for POST /v1/rates/couriers
type RatesRequest struct {
	OriginPostalCode      string     `json:"origin_postal_code,omitempty"`
	OriginAreaID          string     `json:"origin_area_id,omitempty"`
	DestinationPostalCode string     `json:"destination_postal_code,omitempty"`
	DestinationAreaID     string     `json:"destination_area_id,omitempty"`
	Couriers              string     `json:"couriers,omitempty"`
	Items                 []RateItem `json:"items"`
}

type RateItem struct {
	Name     string  `json:"name"`
	Value    float64 `json:"value"`
	Weight   int     `json:"weight"`
	Quantity int     `json:"quantity"`
}

// Rate is one courier+service pricing option
type Rate struct {
	CourierCode        string  `json:"courier_code"`
	CourierName        string  `json:"courier_name"`
	CourierServiceCode string  `json:"courier_service_code"`
	CourierServiceName string  `json:"courier_service_name"`
	Price              float64 `json:"price"`
	Duration           string  `json:"duration"`
	ShipmentDuration   string  `json:"shipment_duration_range"`
}

type ratesResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Pricing []Rate `json:"pricing"`
}

// CreateOrderRequest is the payload for POST /v1/orders
type CreateOrderRequest struct {
	OriginContactName       string      `json:"origin_contact_name"`
	OriginContactPhone      string      `json:"origin_contact_phone"`
	OriginAddress           string      `json:"origin_address"`
	OriginPostalCode        string      `json:"origin_postal_code,omitempty"`
	DestinationContactName  string      `json:"destination_contact_name"`
	DestinationContactPhone string      `json:"destination_contact_phone"`
	DestinationAddress      string      `json:"destination_address"`
	DestinationPostalCode   string      `json:"destination_postal_code,omitempty"`
	CourierCompany          string      `json:"courier_company"`
	CourierType             string      `json:"courier_type"`
	DeliveryType            string      `json:"delivery_type"`
	ReferenceID             string      `json:"reference_id,omitempty"`
	Items                   []OrderItem `json:"items"`
}

type OrderItem struct {
	Name     string  `json:"name"`
	Value    float64 `json:"value"`
	Weight   int     `json:"weight"`
	Quantity int     `json:"quantity"`
}

// ShipmentOrder is the subset of the order response we consume
type ShipmentOrder struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Courier struct {
		WaybillID  string `json:"waybill_id"`
		TrackingID string `json:"tracking_id"`
		Company    string `json:"company"`
	} `json:"courier"`
}

type orderResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	ShipmentOrder
}

// Tracking is the provider-side tracking history
type Tracking struct {
	Status  string `json:"status"`
	Courier struct {
		Company   string `json:"company"`
		WaybillID string `json:"waybill_id"`
	} `json:"courier"`
	History []TrackingEvent `json:"history"`
}

type TrackingEvent struct {
	Note      string `json:"note"`
	Status    string `json:"status"`
	UpdatedAt string `json:"updated_at"`
}

type trackingResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Tracking
}

// GetRates returns courier+service pricing options for a shipment
func (c *Client) GetRates(ctx context.Context, req RatesRequest) ([]Rate, error) {
	var resp ratesResponse
	if err := c.do(ctx, http.MethodPost, "/v1/rates/couriers", req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success && resp.Error != "" {
		return nil, fmt.Errorf("biteship rates error: %s", resp.Error)
	}
	return resp.Pricing, nil
}

// CreateOrder submits a shipment order to the aggregator
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*ShipmentOrder, error) {
	var resp orderResponse
	if err := c.do(ctx, http.MethodPost, "/v1/orders", req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success && resp.Error != "" {
		return nil, fmt.Errorf("biteship order error: %s", resp.Error)
	}
	return &resp.ShipmentOrder, nil
}

// CancelOrder cancels a shipment order. "Not found" and "already cancelled"
// provider responses count as success so cancellation stays idempotent.
func (c *Client) CancelOrder(ctx context.Context, orderID, reason string) error {
	payload := map[string]string{"cancellation_reason": reason}
	var resp orderResponse
	err := c.do(ctx, http.MethodDelete, "/v1/orders/"+orderID, payload, &resp)
	if err != nil {
		if isAlreadyCancelled(err.Error()) {
			c.logger.Info("Biteship cancel treated as success", zap.String("order_id", orderID), zap.String("reason", err.Error()))
			return nil
		}
		return err
	}
	if !resp.Success && resp.Error != "" {
		if isAlreadyCancelled(resp.Error) {
			return nil
		}
		return fmt.Errorf("biteship cancel error: %s", resp.Error)
	}
	return nil
}

// Track returns the shipment history for a waybill or tracking id
func (c *Client) Track(ctx context.Context, trackingID string) (*Tracking, error) {
	var resp trackingResponse
	if err := c.do(ctx, http.MethodGet, "/v1/trackings/"+trackingID, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success && resp.Error != "" {
		return nil, fmt.Errorf("biteship tracking error: %s", resp.Error)
	}
	return &resp.Tracking, nil
}

func isAlreadyCancelled(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "not found") ||
		strings.Contains(m, "status 404") ||
		strings.Contains(m, "already cancelled") ||
		strings.Contains(m, "has been cancelled")
}

func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var bodyReader io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.apiKey)

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
		return fmt.Errorf("biteship API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w, body: %s", err, string(body))
	}

	return nil
}
