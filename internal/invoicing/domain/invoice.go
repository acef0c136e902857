package domain

import (
	"time"

	"github.com/google/uuid"

	sharedDomain "github.com/fakturly/fakturly/internal/shared/domain"
)

// Status is the payment lifecycle state of an invoice.
type Status string

const (
	StatusDraft   Status = "draft"
	StatusUnpaid  Status = "unpaid"
	StatusPaid    Status = "paid"
	StatusOverdue Status = "overdue"
)

// IsValid returns true for known statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusUnpaid, StatusPaid, StatusOverdue:
		return true
	default:
		return false
	}
}

// Party is a point-in-time snapshot of one side of an invoice. Editing a
// contact later must not rewrite invoices that were already issued.
type Party struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

// Invoice is an issued invoice owned by a single user.
type Invoice struct {
	sharedDomain.BaseAggregateRoot
	userID       uuid.UUID
	number       string
	headerTitle  string
	issueDate    time.Time
	dueDate      *time.Time
	seller       Party
	customer     Party
	items        []LineItem
	status       Status
	notes        string
	paymentTerms string
}

// NewInvoice creates an invoice. Totals are derived from the items on
// demand, so the constructor only validates the status.
func NewInvoice(
	userID uuid.UUID,
	number, headerTitle string,
	issueDate time.Time,
	dueDate *time.Time,
	seller, customer Party,
	items []LineItem,
	status Status,
	notes, paymentTerms string,
) (*Invoice, error) {
	if number == "" {
		return nil, ErrEmptyInvoiceNumber
	}
	if !status.IsValid() {
		status = StatusDraft
	}

	inv := &Invoice{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(),
		userID:            userID,
		number:            number,
		headerTitle:       headerTitle,
		issueDate:         issueDate,
		dueDate:           dueDate,
		seller:            seller,
		customer:          customer,
		items:             items,
		status:            status,
		notes:             notes,
		paymentTerms:      paymentTerms,
	}
	inv.AddDomainEvent(NewInvoiceCreated(inv))
	return inv, nil
}

// RehydrateInvoice reconstructs an invoice from storage.
func RehydrateInvoice(
	id uuid.UUID,
	userID uuid.UUID,
	number, headerTitle string,
	issueDate time.Time,
	dueDate *time.Time,
	seller, customer Party,
	items []LineItem,
	status Status,
	notes, paymentTerms string,
	createdAt, updatedAt time.Time,
) *Invoice {
	return &Invoice{
		BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot(
			sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt),
		),
		userID:       userID,
		number:       number,
		headerTitle:  headerTitle,
		issueDate:    issueDate,
		dueDate:      dueDate,
		seller:       seller,
		customer:     customer,
		items:        items,
		status:       status,
		notes:        notes,
		paymentTerms: paymentTerms,
	}
}

func (i *Invoice) UserID() uuid.UUID   { return i.userID }
func (i *Invoice) Number() string      { return i.number }
func (i *Invoice) HeaderTitle() string { return i.headerTitle }
func (i *Invoice) IssueDate() time.Time { return i.issueDate }
func (i *Invoice) DueDate() *time.Time { return i.dueDate }
func (i *Invoice) Seller() Party       { return i.seller }
func (i *Invoice) Customer() Party     { return i.customer }
func (i *Invoice) Status() Status      { return i.status }
func (i *Invoice) Notes() string       { return i.notes }
func (i *Invoice) PaymentTerms() string { return i.paymentTerms }

// Items returns a copy of the line items.
func (i *Invoice) Items() []LineItem {
	items := make([]LineItem, len(i.items))
	copy(items, i.items)
	return items
}

// Totals recomputes the financial summary from the current items.
func (i *Invoice) Totals() Totals {
	return ComputeTotals(i.items)
}

// Update replaces the mutable fields of the invoice. Number and header
// title changes are authorized by the caller before this is reached.
func (i *Invoice) Update(
	number, headerTitle string,
	issueDate time.Time,
	dueDate *time.Time,
	seller, customer Party,
	items []LineItem,
	status Status,
	notes, paymentTerms string,
) error {
	if number == "" {
		return ErrEmptyInvoiceNumber
	}
	if !status.IsValid() {
		return ErrInvalidStatus
	}

	i.number = number
	i.headerTitle = headerTitle
	i.issueDate = issueDate
	i.dueDate = dueDate
	i.seller = seller
	i.customer = customer
	i.items = items
	i.status = status
	i.notes = notes
	i.paymentTerms = paymentTerms
	i.Touch()
	i.AddDomainEvent(NewInvoiceUpdated(i))
	return nil
}

// MarkStatus transitions the invoice to a new status.
func (i *Invoice) MarkStatus(status Status) error {
	if !status.IsValid() {
		return ErrInvalidStatus
	}
	if i.status == status {
		return nil
	}
	i.status = status
	i.Touch()
	i.AddDomainEvent(NewInvoiceUpdated(i))
	return nil
}

// BelongsTo reports whether the invoice is owned by the given user.
func (i *Invoice) BelongsTo(userID uuid.UUID) bool {
	return i.userID == userID
}
