package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	billingApplication "github.com/fakturly/fakturly/internal/billing/application"
	"github.com/fakturly/fakturly/internal/invoicing/application/commands"
	"github.com/fakturly/fakturly/internal/invoicing/application/queries"
	"github.com/fakturly/fakturly/internal/invoicing/domain"
)

// InvoiceHandler handles invoice API requests.
type InvoiceHandler struct {
	createInvoice *commands.CreateInvoiceHandler
	updateInvoice *commands.UpdateInvoiceHandler
	deleteInvoice *commands.DeleteInvoiceHandler
	getInvoice    *queries.GetInvoiceHandler
	listInvoices  *queries.ListInvoicesHandler
	logger        *slog.Logger
}

// InvoiceHandlerConfig holds dependencies for the invoice handler.
type InvoiceHandlerConfig struct {
	CreateInvoice *commands.CreateInvoiceHandler
	UpdateInvoice *commands.UpdateInvoiceHandler
	DeleteInvoice *commands.DeleteInvoiceHandler
	GetInvoice    *queries.GetInvoiceHandler
	ListInvoices  *queries.ListInvoicesHandler
	Logger        *slog.Logger
}

// NewInvoiceHandler creates a new invoice handler.
func NewInvoiceHandler(cfg InvoiceHandlerConfig) *InvoiceHandler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &InvoiceHandler{
		createInvoice: cfg.CreateInvoice,
		updateInvoice: cfg.UpdateInvoice,
		deleteInvoice: cfg.DeleteInvoice,
		getInvoice:    cfg.GetInvoice,
		listInvoices:  cfg.ListInvoices,
		logger:        cfg.Logger,
	}
}

type partyRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

func (p partyRequest) toInput() commands.PartyInput {
	return commands.PartyInput{Name: p.Name, Email: p.Email, Phone: p.Phone, Address: p.Address}
}

type lineItemRequest struct {
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	TaxPercent  string `json:"tax_percent"`
}

type invoiceRequest struct {
	Number       string            `json:"number"`
	HeaderTitle  string            `json:"header_title"`
	IssueDate    string            `json:"issue_date"`
	DueDate      string            `json:"due_date"`
	Seller       partyRequest      `json:"seller"`
	Customer     partyRequest      `json:"customer"`
	Items        []lineItemRequest `json:"items"`
	Status       string            `json:"status"`
	Notes        string            `json:"notes"`
	PaymentTerms string            `json:"payment_terms"`
}

// dateLayout is the wire format for invoice dates.
const dateLayout = "2006-01-02"

func (req invoiceRequest) dates() (time.Time, *time.Time, error) {
	issueDate, err := time.Parse(dateLayout, req.IssueDate)
	if err != nil {
		return time.Time{}, nil, err
	}
	var dueDate *time.Time
	if req.DueDate != "" {
		parsed, err := time.Parse(dateLayout, req.DueDate)
		if err != nil {
			return time.Time{}, nil, err
		}
		dueDate = &parsed
	}
	return issueDate, dueDate, nil
}

func (req invoiceRequest) items() []commands.LineItemInput {
	items := make([]commands.LineItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, commands.LineItemInput{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TaxPercent:  item.TaxPercent,
		})
	}
	return items
}

// Create handles POST /api/v1/invoices
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req invoiceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	issueDate, dueDate, err := req.dates()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Dates must use the YYYY-MM-DD format")
		return
	}

	result, err := h.createInvoice.Handle(r.Context(), commands.CreateInvoiceCommand{
		UserID:       currentUser(r).ID(),
		Number:       req.Number,
		HeaderTitle:  req.HeaderTitle,
		IssueDate:    issueDate,
		DueDate:      dueDate,
		Seller:       req.Seller.toInput(),
		Customer:     req.Customer.toInput(),
		Items:        req.items(),
		Status:       req.Status,
		Notes:        req.Notes,
		PaymentTerms: req.PaymentTerms,
	})
	if err != nil {
		h.writeInvoiceError(w, err, "Failed to create invoice")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":     result.InvoiceID,
		"number": result.Number,
		"totals": map[string]string{
			"subtotal":   result.Totals.Subtotal.StringFixed(2),
			"tax_amount": result.Totals.TaxAmount.StringFixed(2),
			"total":      result.Totals.Total.StringFixed(2),
		},
	})
}

// Update handles PUT /api/v1/invoices/{invoiceID}
func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	invoiceID, err := uuid.Parse(r.PathValue("invoiceID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid invoice ID")
		return
	}

	var req invoiceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	issueDate, dueDate, err := req.dates()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Dates must use the YYYY-MM-DD format")
		return
	}

	result, err := h.updateInvoice.Handle(r.Context(), commands.UpdateInvoiceCommand{
		InvoiceID:    invoiceID,
		UserID:       currentUser(r).ID(),
		Number:       req.Number,
		HeaderTitle:  req.HeaderTitle,
		IssueDate:    issueDate,
		DueDate:      dueDate,
		Seller:       req.Seller.toInput(),
		Customer:     req.Customer.toInput(),
		Items:        req.items(),
		Status:       req.Status,
		Notes:        req.Notes,
		PaymentTerms: req.PaymentTerms,
	})
	if err != nil {
		h.writeInvoiceError(w, err, "Failed to update invoice")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"totals": map[string]string{
			"subtotal":   result.Totals.Subtotal.StringFixed(2),
			"tax_amount": result.Totals.TaxAmount.StringFixed(2),
			"total":      result.Totals.Total.StringFixed(2),
		},
	})
}

// Delete handles DELETE /api/v1/invoices/{invoiceID}
func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	invoiceID, err := uuid.Parse(r.PathValue("invoiceID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid invoice ID")
		return
	}

	err = h.deleteInvoice.Handle(r.Context(), commands.DeleteInvoiceCommand{
		InvoiceID: invoiceID,
		UserID:    currentUser(r).ID(),
	})
	if err != nil {
		h.writeInvoiceError(w, err, "Failed to delete invoice")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Get handles GET /api/v1/invoices/{invoiceID}
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	invoiceID, err := uuid.Parse(r.PathValue("invoiceID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid invoice ID")
		return
	}

	view, err := h.getInvoice.Handle(r.Context(), queries.GetInvoiceQuery{
		InvoiceID: invoiceID,
		UserID:    currentUser(r).ID(),
	})
	if err != nil {
		h.writeInvoiceError(w, err, "Failed to load invoice")
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// List handles GET /api/v1/invoices
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	result, err := h.listInvoices.Handle(r.Context(), queries.ListInvoicesQuery{
		UserID: currentUser(r).ID(),
		Limit:  parseIntParam(r, "limit", queries.DefaultPageSize),
		Offset: parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.logger.Error("failed to list invoices", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list invoices")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *InvoiceHandler) writeInvoiceError(w http.ResponseWriter, err error, fallback string) {
	var quotaErr *billingApplication.QuotaExceededError
	switch {
	case errors.As(err, &quotaErr):
		writeJSON(w, http.StatusForbidden, map[string]any{
			"error":   "quota_exceeded",
			"message": quotaErr.Error(),
			"kind":    string(quotaErr.Decision.Kind),
			"limit":   quotaErr.Decision.Limit,
			"used":    quotaErr.Decision.CurrentCount,
		})
	case errors.Is(err, commands.ErrPremiumRequired):
		writeJSON(w, http.StatusForbidden, map[string]string{
			"error":   "premium_required",
			"message": "This field requires a premium plan",
		})
	case errors.Is(err, domain.ErrInvoiceNotFound), errors.Is(err, domain.ErrNotOwner):
		writeError(w, http.StatusNotFound, "Invoice not found")
	case errors.Is(err, domain.ErrEmptyInvoiceNumber), errors.Is(err, domain.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(fallback, "error", err)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

// parseIntParam parses an integer query parameter with a default.
func parseIntParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
