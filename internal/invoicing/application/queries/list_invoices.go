package queries

import (
	"context"

	"github.com/google/uuid"

	"github.com/fakturly/fakturly/internal/invoicing/domain"
	sharedApplication "github.com/fakturly/fakturly/internal/shared/application"
)

// DefaultPageSize bounds unpaginated listings.
const DefaultPageSize = 20

// MaxPageSize is the largest page a client may request.
const MaxPageSize = 100

// ListInvoicesQuery selects a page of the user's invoices.
type ListInvoicesQuery struct {
	UserID uuid.UUID
	Limit  int
	Offset int
}

// QueryName identifies the query in logs.
func (q ListInvoicesQuery) QueryName() string { return "invoicing.list_invoices" }

var _ sharedApplication.Query = ListInvoicesQuery{}

// ListInvoicesResult is a page of invoices plus the total count.
type ListInvoicesResult struct {
	Invoices []InvoiceView `json:"invoices"`
	Total    int           `json:"total"`
	Limit    int           `json:"limit"`
	Offset   int           `json:"offset"`
}

// ListInvoicesHandler handles the ListInvoicesQuery.
type ListInvoicesHandler struct {
	invoiceRepo domain.InvoiceRepository
}

// NewListInvoicesHandler creates a new ListInvoicesHandler.
func NewListInvoicesHandler(invoiceRepo domain.InvoiceRepository) *ListInvoicesHandler {
	return &ListInvoicesHandler{invoiceRepo: invoiceRepo}
}

// Handle executes the ListInvoicesQuery.
func (h *ListInvoicesHandler) Handle(ctx context.Context, query ListInvoicesQuery) (*ListInvoicesResult, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	offset := query.Offset
	if offset < 0 {
		offset = 0
	}

	invoices, err := h.invoiceRepo.FindByUserID(ctx, query.UserID, limit, offset)
	if err != nil {
		return nil, err
	}

	total, err := h.invoiceRepo.CountByUserID(ctx, query.UserID)
	if err != nil {
		return nil, err
	}

	views := make([]InvoiceView, 0, len(invoices))
	for _, inv := range invoices {
		views = append(views, NewInvoiceView(inv))
	}

	return &ListInvoicesResult{
		Invoices: views,
		Total:    total,
		Limit:    limit,
		Offset:   offset,
	}, nil
}
