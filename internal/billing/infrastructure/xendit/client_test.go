package xendit

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fakturly/fakturly/internal/billing/application"
	"github.com/fakturly/fakturly/internal/billing/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{BaseURL: server.URL, SecretKey: "xnd-secret"}, slog.New(slog.DiscardHandler))
}

func TestCreateInvoice(t *testing.T) {
	var gotAuthUser string
	var gotBody createInvoiceRequest

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/invoices", r.URL.Path)
		gotAuthUser, _, _ = r.BasicAuth()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		json.NewEncoder(w).Encode(map[string]any{
			"id":          "xnd-inv-1",
			"external_id": gotBody.ExternalID,
			"invoice_url": "https://checkout.xendit.co/xnd-inv-1",
			"status":      "PENDING",
			"amount":      50000,
		})
	})

	invoice, err := client.CreateInvoice(context.Background(), application.CreateGatewayInvoiceRequest{
		ExternalID:  "upgrade_user_1750000000",
		Amount:      decimal.NewFromInt(50000),
		PayerEmail:  "budi@example.com",
		Description: "Fakturly premium upgrade",
	})
	require.NoError(t, err)

	assert.Equal(t, "xnd-secret", gotAuthUser)
	assert.Equal(t, int64(50000), gotBody.Amount)
	assert.Equal(t, "budi@example.com", gotBody.PayerEmail)

	assert.Equal(t, "xnd-inv-1", invoice.ID)
	assert.Equal(t, "upgrade_user_1750000000", invoice.ExternalID)
	assert.Equal(t, "https://checkout.xendit.co/xnd-inv-1", invoice.InvoiceURL)
	assert.Equal(t, domain.PaymentStatusPending, invoice.Status)
	assert.Equal(t, "50000", invoice.Amount.String())
	assert.Nil(t, invoice.PaidAt)
}

func TestGetInvoice(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v2/invoices/xnd-inv-1", r.URL.Path)

		json.NewEncoder(w).Encode(map[string]any{
			"id":          "xnd-inv-1",
			"external_id": "upgrade_user_1750000000",
			"status":      "SETTLED",
			"amount":      50000,
			"paid_at":     "2025-06-15T10:30:00Z",
		})
	})

	invoice, err := client.GetInvoice(context.Background(), "xnd-inv-1")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusSettled, invoice.Status)
	require.NotNil(t, invoice.PaidAt)
	assert.Equal(t, "2025-06-15T10:30:00Z", invoice.PaidAt.Format("2006-01-02T15:04:05Z07:00"))
}

func TestGetInvoice_GatewayError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error_code":"INVOICE_NOT_FOUND"}`, http.StatusNotFound)
	})

	_, err := client.GetInvoice(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})

	for i := 0; i < 5; i++ {
		_, err := client.GetInvoice(context.Background(), "xnd-inv-1")
		require.Error(t, err)
	}

	_, err := client.GetInvoice(context.Background(), "xnd-inv-1")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}
