package queries

import (
	"context"

	"github.com/google/uuid"

	"github.com/fakturly/fakturly/internal/invoicing/domain"
	sharedApplication "github.com/fakturly/fakturly/internal/shared/application"
)

// GetInvoiceQuery identifies the invoice to fetch.
type GetInvoiceQuery struct {
	InvoiceID uuid.UUID
	UserID    uuid.UUID
}

// QueryName identifies the query in logs.
func (q GetInvoiceQuery) QueryName() string { return "invoicing.get_invoice" }

var _ sharedApplication.Query = GetInvoiceQuery{}

// GetInvoiceHandler handles the GetInvoiceQuery.
type GetInvoiceHandler struct {
	invoiceRepo domain.InvoiceRepository
}

// NewGetInvoiceHandler creates a new GetInvoiceHandler.
func NewGetInvoiceHandler(invoiceRepo domain.InvoiceRepository) *GetInvoiceHandler {
	return &GetInvoiceHandler{invoiceRepo: invoiceRepo}
}

// Handle executes the GetInvoiceQuery.
func (h *GetInvoiceHandler) Handle(ctx context.Context, query GetInvoiceQuery) (*InvoiceView, error) {
	invoice, err := h.invoiceRepo.FindByID(ctx, query.InvoiceID)
	if err != nil {
		return nil, err
	}
	if !invoice.BelongsTo(query.UserID) {
		return nil, domain.ErrNotOwner
	}

	view := NewInvoiceView(invoice)
	return &view, nil
}
