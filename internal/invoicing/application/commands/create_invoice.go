package commands

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	billingDomain "github.com/fakturly/fakturly/internal/billing/domain"
	"github.com/fakturly/fakturly/internal/invoicing/domain"
	sharedApplication "github.com/fakturly/fakturly/internal/shared/application"
	"github.com/fakturly/fakturly/internal/shared/infrastructure/outbox"
)

// ErrPremiumRequired is returned when a free-tier user sets a field that
// only premium plans may edit.
var ErrPremiumRequired = errors.New("premium plan required")

// Entitlements is the billing-side authorization the invoicing commands
// consult before writing.
type Entitlements interface {
	AuthorizeCreate(ctx context.Context, userID uuid.UUID, kind billingDomain.ResourceKind) error
	CanEditField(ctx context.Context, userID uuid.UUID, field billingDomain.RestrictedField) (bool, error)
}

// PartyInput is the raw seller or customer snapshot from the request.
type PartyInput struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

func (p PartyInput) toParty() domain.Party {
	return domain.Party{Name: p.Name, Email: p.Email, Phone: p.Phone, Address: p.Address}
}

// LineItemInput is a raw line item from the request. Numeric fields stay
// strings here; parse-or-default-zero happens in the domain.
type LineItemInput struct {
	Description string
	Quantity    string
	UnitPrice   string
	TaxPercent  string
}

func toLineItems(inputs []LineItemInput) []domain.LineItem {
	items := make([]domain.LineItem, 0, len(inputs))
	for _, in := range inputs {
		items = append(items, domain.NewLineItem(in.Description, in.Quantity, in.UnitPrice, in.TaxPercent))
	}
	return items
}

// CreateInvoiceCommand contains the data needed to create an invoice.
type CreateInvoiceCommand struct {
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
func (c CreateInvoiceCommand) CommandName() string { return "invoicing.create_invoice" }

var _ sharedApplication.Command = CreateInvoiceCommand{}

// CreateInvoiceResult contains the result of creating an invoice.
type CreateInvoiceResult struct {
	InvoiceID uuid.UUID
	Number    string
	Totals    domain.Totals
}

// CreateInvoiceHandler handles the CreateInvoiceCommand.
type CreateInvoiceHandler struct {
	invoiceRepo  domain.InvoiceRepository
	entitlements Entitlements
	outbox       outbox.Repository
	uow          sharedApplication.UnitOfWork
}

// NewCreateInvoiceHandler creates a new CreateInvoiceHandler.
func NewCreateInvoiceHandler(
	invoiceRepo domain.InvoiceRepository,
	entitlements Entitlements,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
) *CreateInvoiceHandler {
	return &CreateInvoiceHandler{
		invoiceRepo:  invoiceRepo,
		entitlements: entitlements,
		outbox:       outboxRepo,
		uow:          uow,
	}
}

// Handle executes the CreateInvoiceCommand.
func (h *CreateInvoiceHandler) Handle(ctx context.Context, cmd CreateInvoiceCommand) (*CreateInvoiceResult, error) {
	if err := h.entitlements.AuthorizeCreate(ctx, cmd.UserID, billingDomain.ResourceInvoice); err != nil {
		return nil, err
	}

	number, err := h.resolveNumber(ctx, cmd)
	if err != nil {
		return nil, err
	}

	headerTitle, err := h.resolveHeaderTitle(ctx, cmd)
	if err != nil {
		return nil, err
	}

	var result *CreateInvoiceResult
	err = sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		invoice, err := domain.NewInvoice(
			cmd.UserID,
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

		result = &CreateInvoiceResult{
			InvoiceID: invoice.ID(),
			Number:    invoice.Number(),
			Totals:    invoice.Totals(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// resolveNumber uses the custom number for premium users or assigns the
// next system number for the issue date.
func (h *CreateInvoiceHandler) resolveNumber(ctx context.Context, cmd CreateInvoiceCommand) (string, error) {
	if cmd.Number != "" {
		ok, err := h.entitlements.CanEditField(ctx, cmd.UserID, billingDomain.FieldInvoiceNumber)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", ErrPremiumRequired
		}
		return cmd.Number, nil
	}

	count, err := h.invoiceRepo.CountByUserAndIssueDate(ctx, cmd.UserID, cmd.IssueDate)
	if err != nil {
		return "", err
	}
	return domain.FormatInvoiceNumber(cmd.IssueDate, count+1), nil
}

func (h *CreateInvoiceHandler) resolveHeaderTitle(ctx context.Context, cmd CreateInvoiceCommand) (string, error) {
	if cmd.HeaderTitle == "" {
		return "", nil
	}
	ok, err := h.entitlements.CanEditField(ctx, cmd.UserID, billingDomain.FieldInvoiceHeaderTitle)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrPremiumRequired
	}
	return cmd.HeaderTitle, nil
}
