package api

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fakturly/fakturly/internal/billing/application"
	"github.com/fakturly/fakturly/internal/billing/domain"
)

// BillingHandler handles premium upgrade and payment API requests.
type BillingHandler struct {
	service       *application.Service
	callbackToken string
	logger        *slog.Logger
}

// BillingHandlerConfig holds dependencies for the billing handler.
type BillingHandlerConfig struct {
	Service *application.Service
	// CallbackToken authenticates gateway webhooks via the
	// x-callback-token header.
	CallbackToken string
	Logger        *slog.Logger
}

// NewBillingHandler creates a new billing handler.
func NewBillingHandler(cfg BillingHandlerConfig) *BillingHandler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &BillingHandler{
		service:       cfg.Service,
		callbackToken: cfg.CallbackToken,
		logger:        cfg.Logger,
	}
}

type paymentView struct {
	ExternalID string     `json:"external_id"`
	InvoiceURL string     `json:"invoice_url,omitempty"`
	Amount     string     `json:"amount"`
	Status     string     `json:"status"`
	PaidAt     *time.Time `json:"paid_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func newPaymentView(payment *domain.Payment) paymentView {
	return paymentView{
		ExternalID: payment.ExternalID(),
		InvoiceURL: payment.GatewayInvoiceURL(),
		Amount:     payment.Amount().StringFixed(2),
		Status:     string(payment.Status()),
		PaidAt:     payment.PaidAt(),
		CreatedAt:  payment.CreatedAt(),
	}
}

// CreateUpgradeCheckout handles POST /api/v1/billing/upgrade
func (h *BillingHandler) CreateUpgradeCheckout(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	result, err := h.service.CreateUpgradeCheckout(r.Context(), user.ID(), user.Email().String())
	if err != nil {
		h.logger.Error("failed to create upgrade checkout", "error", err)
		writeError(w, http.StatusBadGateway, "Payment gateway is unavailable, try again later")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"external_id": result.ExternalID,
		"invoice_url": result.InvoiceURL,
		"amount":      result.Amount.StringFixed(2),
	})
}

// VerifyPayment handles POST /api/v1/billing/verify
func (h *BillingHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ExternalID string `json:"external_id"`
	}
	if err := decodeJSON(r, &req); err != nil || req.ExternalID == "" {
		writeError(w, http.StatusBadRequest, "Missing external_id")
		return
	}

	result, err := h.service.VerifyPayment(r.Context(), currentUser(r).ID(), req.ExternalID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPaymentNotFound),
			errors.Is(err, application.ErrPaymentOwnership):
			writeError(w, http.StatusNotFound, "Payment not found")
		default:
			h.logger.Error("payment verification failed", "error", err)
			writeError(w, http.StatusBadGateway, "Payment verification failed, try again later")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  string(result.Status),
		"outcome": string(result.Outcome),
	})
}

// ListPayments handles GET /api/v1/billing/payments
func (h *BillingHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.service.ListUserPayments(r.Context(), currentUser(r).ID())
	if err != nil {
		h.logger.Error("failed to list payments", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list payments")
		return
	}

	views := make([]paymentView, 0, len(payments))
	for _, payment := range payments {
		views = append(views, newPaymentView(payment))
	}
	writeJSON(w, http.StatusOK, map[string]any{"payments": views})
}

// Webhook handles POST /api/v1/webhooks/xendit. The gateway retries
// deliveries, so a processed confirmation must answer 200 every time.
func (h *BillingHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	if h.callbackToken == "" ||
		subtle.ConstantTimeCompare([]byte(r.Header.Get("x-callback-token")), []byte(h.callbackToken)) != 1 {
		writeError(w, http.StatusUnauthorized, "Invalid callback token")
		return
	}

	var req struct {
		ExternalID string          `json:"external_id"`
		Status     string          `json:"status"`
		Amount     decimal.Decimal `json:"amount"`
	}
	if err := decodeJSON(r, &req); err != nil || req.ExternalID == "" || req.Status == "" {
		writeError(w, http.StatusBadRequest, "Invalid webhook payload")
		return
	}

	result, err := h.service.HandleWebhook(r.Context(), req.ExternalID, domain.PaymentStatus(req.Status), req.Amount)
	if err != nil {
		if errors.Is(err, application.ErrMalformedExternalID) {
			// Not one of ours; acknowledge so the gateway stops retrying.
			writeJSON(w, http.StatusOK, map[string]string{"outcome": "ignored"})
			return
		}
		h.logger.Error("webhook processing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Webhook processing failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  string(result.Status),
		"outcome": string(result.Outcome),
	})
}
