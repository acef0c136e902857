package xendit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"

	"github.com/fakturly/fakturly/internal/billing/application"
	"github.com/fakturly/fakturly/internal/billing/domain"
)

// Client talks to the Xendit invoice API. Calls go through a circuit
// breaker so a gateway outage fails fast instead of piling up requests.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*invoiceResponse]
	logger     *slog.Logger
}

// Config carries the gateway connection settings.
type Config struct {
	BaseURL   string
	SecretKey string
	Timeout   time.Duration
}

// NewClient creates a Xendit API client.
func NewClient(config Config, logger *slog.Logger) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        "xendit",
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("payment gateway circuit breaker state changed",
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	}

	return &Client{
		baseURL:    config.BaseURL,
		secretKey:  config.SecretKey,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    gobreaker.NewCircuitBreaker[*invoiceResponse](settings),
		logger:     logger,
	}
}

// invoiceResponse is the wire shape of a Xendit invoice.
type invoiceResponse struct {
	ID         string  `json:"id"`
	ExternalID string  `json:"external_id"`
	InvoiceURL string  `json:"invoice_url"`
	Status     string  `json:"status"`
	Amount     float64 `json:"amount"`
	PaidAt     string  `json:"paid_at"`
}

type createInvoiceRequest struct {
	ExternalID         string `json:"external_id"`
	Amount             int64  `json:"amount"`
	PayerEmail         string `json:"payer_email,omitempty"`
	Description        string `json:"description,omitempty"`
	SuccessRedirectURL string `json:"success_redirect_url,omitempty"`
	FailureRedirectURL string `json:"failure_redirect_url,omitempty"`
}

// CreateInvoice creates a checkout invoice at the gateway.
func (c *Client) CreateInvoice(ctx context.Context, req application.CreateGatewayInvoiceRequest) (*application.GatewayInvoice, error) {
	payload := createInvoiceRequest{
		ExternalID:         req.ExternalID,
		Amount:             req.Amount.IntPart(),
		PayerEmail:         req.PayerEmail,
		Description:        req.Description,
		SuccessRedirectURL: req.SuccessURL,
		FailureRedirectURL: req.FailureURL,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	resp, err := c.breaker.Execute(func() (*invoiceResponse, error) {
		return c.do(ctx, http.MethodPost, "/v2/invoices", bytes.NewReader(body))
	})
	if err != nil {
		return nil, fmt.Errorf("creating gateway invoice: %w", err)
	}
	return toGatewayInvoice(resp), nil
}

// GetInvoice fetches the current state of a gateway invoice.
func (c *Client) GetInvoice(ctx context.Context, gatewayInvoiceID string) (*application.GatewayInvoice, error) {
	path := "/v2/invoices/" + url.PathEscape(gatewayInvoiceID)
	resp, err := c.breaker.Execute(func() (*invoiceResponse, error) {
		return c.do(ctx, http.MethodGet, path, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("fetching gateway invoice: %w", err)
	}
	return toGatewayInvoice(resp), nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*invoiceResponse, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	// Xendit authenticates with the secret key as the basic auth user.
	req.SetBasicAuth(c.secretKey, "")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("gateway returned %d: %s", resp.StatusCode, data)
	}

	var invoice invoiceResponse
	if err := json.NewDecoder(resp.Body).Decode(&invoice); err != nil {
		return nil, fmt.Errorf("decoding gateway response: %w", err)
	}
	return &invoice, nil
}

func toGatewayInvoice(resp *invoiceResponse) *application.GatewayInvoice {
	var paidAt *time.Time
	if resp.PaidAt != "" {
		if t, err := time.Parse(time.RFC3339, resp.PaidAt); err == nil {
			paidAt = &t
		}
	}
	return &application.GatewayInvoice{
		ID:         resp.ID,
		ExternalID: resp.ExternalID,
		InvoiceURL: resp.InvoiceURL,
		Status:     domain.PaymentStatus(resp.Status),
		Amount:     decimal.NewFromFloat(resp.Amount),
		PaidAt:     paidAt,
	}
}
