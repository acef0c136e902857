package commands

import (
	"context"

	"github.com/google/uuid"

	"github.com/fakturly/fakturly/internal/invoicing/domain"
	sharedApplication "github.com/fakturly/fakturly/internal/shared/application"
	sharedDomain "github.com/fakturly/fakturly/internal/shared/domain"
	"github.com/fakturly/fakturly/internal/shared/infrastructure/outbox"
)

// DeleteInvoiceCommand contains the data needed to delete an invoice.
type DeleteInvoiceCommand struct {
	InvoiceID uuid.UUID
	UserID    uuid.UUID
}

// CommandName identifies the command in logs and outbox metadata.
func (c DeleteInvoiceCommand) CommandName() string { return "invoicing.delete_invoice" }

var _ sharedApplication.Command = DeleteInvoiceCommand{}

// DeleteInvoiceHandler handles the DeleteInvoiceCommand.
type DeleteInvoiceHandler struct {
	invoiceRepo domain.InvoiceRepository
	outbox      outbox.Repository
	uow         sharedApplication.UnitOfWork
}

// NewDeleteInvoiceHandler creates a new DeleteInvoiceHandler.
func NewDeleteInvoiceHandler(
	invoiceRepo domain.InvoiceRepository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
) *DeleteInvoiceHandler {
	return &DeleteInvoiceHandler{
		invoiceRepo: invoiceRepo,
		outbox:      outboxRepo,
		uow:         uow,
	}
}

// Handle executes the DeleteInvoiceCommand. Line items cascade with the
// invoice row.
func (h *DeleteInvoiceHandler) Handle(ctx context.Context, cmd DeleteInvoiceCommand) error {
	invoice, err := h.invoiceRepo.FindByID(ctx, cmd.InvoiceID)
	if err != nil {
		return err
	}
	if !invoice.BelongsTo(cmd.UserID) {
		return domain.ErrNotOwner
	}

	return sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		if err := h.invoiceRepo.Delete(txCtx, invoice.ID()); err != nil {
			return err
		}

		event := domain.NewInvoiceDeleted(invoice.ID(), invoice.UserID(), invoice.Number())
		sharedApplication.ApplyEventMetadata([]sharedDomain.DomainEvent{event}, sharedApplication.NewEventMetadata(cmd.UserID))
		msg, err := outbox.NewMessage(event)
		if err != nil {
			return err
		}
		return h.outbox.Save(txCtx, msg)
	})
}
