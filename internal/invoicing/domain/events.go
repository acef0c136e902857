package domain

import (
	"github.com/google/uuid"

	sharedDomain "github.com/fakturly/fakturly/internal/shared/domain"
)

// Routing keys for invoicing events.
const (
	InvoiceCreatedKey = "invoicing.invoice.created"
	InvoiceUpdatedKey = "invoicing.invoice.updated"
	InvoiceDeletedKey = "invoicing.invoice.deleted"
)

// InvoiceCreated is emitted when an invoice is first persisted.
type InvoiceCreated struct {
	sharedDomain.BaseEvent
	UserID uuid.UUID `json:"user_id"`
	Number string    `json:"number"`
	Total  string    `json:"total"`
	Status Status    `json:"status"`
}

// NewInvoiceCreated creates an InvoiceCreated event.
func NewInvoiceCreated(inv *Invoice) *InvoiceCreated {
	return &InvoiceCreated{
		BaseEvent: sharedDomain.NewBaseEvent(inv.ID(), "invoice", InvoiceCreatedKey),
		UserID:    inv.UserID(),
		Number:    inv.Number(),
		Total:     inv.Totals().Total.String(),
		Status:    inv.Status(),
	}
}

// InvoiceUpdated is emitted on any mutation of an existing invoice.
type InvoiceUpdated struct {
	sharedDomain.BaseEvent
	UserID uuid.UUID `json:"user_id"`
	Number string    `json:"number"`
	Total  string    `json:"total"`
	Status Status    `json:"status"`
}

// NewInvoiceUpdated creates an InvoiceUpdated event.
func NewInvoiceUpdated(inv *Invoice) *InvoiceUpdated {
	return &InvoiceUpdated{
		BaseEvent: sharedDomain.NewBaseEvent(inv.ID(), "invoice", InvoiceUpdatedKey),
		UserID:    inv.UserID(),
		Number:    inv.Number(),
		Total:     inv.Totals().Total.String(),
		Status:    inv.Status(),
	}
}

// InvoiceDeleted is emitted when an invoice is removed.
type InvoiceDeleted struct {
	sharedDomain.BaseEvent
	UserID uuid.UUID `json:"user_id"`
	Number string    `json:"number"`
}

// NewInvoiceDeleted creates an InvoiceDeleted event.
func NewInvoiceDeleted(invoiceID, userID uuid.UUID, number string) *InvoiceDeleted {
	return &InvoiceDeleted{
		BaseEvent: sharedDomain.NewBaseEvent(invoiceID, "invoice", InvoiceDeletedKey),
		UserID:    userID,
		Number:    number,
	}
}
