package commands

import (
	"context"
	"time"

	"github.com/google/uuid"

	billingDomain "github.com/fakturly/fakturly/internal/billing/domain"
	"github.com/fakturly/fakturly/internal/invoicing/domain"
	sharedApplication "github.com/fakturly/fakturly/internal/shared/application"
	"github.com/fakturly/fakturly/internal/shared/infrastructure/outbox"
)

// UpdateInvoiceCommand contains the data needed to update an invoice.
type UpdateInvoiceCommand struct {
	InvoiceID    uuid.UUID
	UserID       uuid.UUID
	Number       string
	HeaderTitle  string
	IssueDate    time.Time
	DueDate      *time.Time
	Seller       PartyInput
	Customer     PartyInput
	Items        []LineItemInput
	Status       string
	Notes        string
	PaymentTerms string
}

// CommandName identifies the command in logs and outbox metadata.
func (c UpdateInvoiceCommand) CommandName() string { return "invoicing.update_invoice" }

var _ sharedApplication.Command = UpdateInvoiceCommand{}

// UpdateInvoiceResult contains the result of updating an invoice.
type UpdateInvoiceResult struct {
	Totals domain.Totals
}

// UpdateInvoiceHandler handles the UpdateInvoiceCommand.
type UpdateInvoiceHandler struct {
	invoiceRepo  domain.InvoiceRepository
	entitlements Entitlements
	outbox       outbox.Repository
	uow          sharedApplication.UnitOfWork
}

// NewUpdateInvoiceHandler creates a new UpdateInvoiceHandler.
func NewUpdateInvoiceHandler(
	invoiceRepo domain.InvoiceRepository,
	entitlements Entitlements,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
) *UpdateInvoiceHandler {
	return &UpdateInvoiceHandler{
		invoiceRepo:  invoiceRepo,
		entitlements: entitlements,
		outbox:       outboxRepo,
		uow:          uow,
	}
}

// Handle executes the UpdateInvoiceCommand.
func (h *UpdateInvoiceHandler) Handle(ctx context.Context, cmd UpdateInvoiceCommand) (*UpdateInvoiceResult, error) {
	invoice, err := h.invoiceRepo.FindByID(ctx, cmd.InvoiceID)
	if err != nil {
		return nil, err
	}
	if !invoice.BelongsTo(cmd.UserID) {
		return nil, domain.ErrNotOwner
	}

	number := invoice.Number()
	if cmd.Number != "" && cmd.Number != invoice.Number() {
		ok, err := h.entitlements.CanEditField(ctx, cmd.UserID, billingDomain.FieldInvoiceNumber)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrPremiumRequired
		}
		number = cmd.Number
	}

	headerTitle := invoice.HeaderTitle()
	if cmd.HeaderTitle != invoice.HeaderTitle() {
		ok, err := h.entitlements.CanEditField(ctx, cmd.UserID, billingDomain.FieldInvoiceHeaderTitle)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrPremiumRequired
		}
		headerTitle = cmd.HeaderTitle
	}

	var result *UpdateInvoiceResult
	err = sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		err := invoice.Update(
			number,
			headerTitle,
			cmd.IssueDate,
			cmd.DueDate,
			cmd.Seller.toParty(),
			cmd.Customer.toParty(),
			toLineItems(cmd.Items),
			domain.Status(cmd.Status),
			cmd.Notes,
			cmd.PaymentTerms,
		)
		if err != nil {
			return err
		}

		if err := h.invoiceRepo.Save(txCtx, invoice); err != nil {
			return err
		}
		sharedApplication.ApplyEventMetadata(invoice.DomainEvents(), sharedApplication.NewEventMetadata(cmd.UserID))
		if err := outbox.StageEvents(txCtx, h.outbox, invoice); err != nil {
			return err
		}

		result = &UpdateInvoiceResult{Totals: invoice.Totals()}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
