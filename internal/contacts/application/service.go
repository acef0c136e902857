package application

import (
	"context"

	"github.com/google/uuid"

	billingDomain "github.com/fakturly/fakturly/internal/billing/domain"
	"github.com/fakturly/fakturly/internal/contacts/domain"
	sharedApplication "github.com/fakturly/fakturly/internal/shared/application"
	"github.com/fakturly/fakturly/internal/shared/infrastructure/outbox"
)

// Entitlements is the authorization surface the contact service needs
// from the billing context.
type Entitlements interface {
	AuthorizeCreate(ctx context.Context, userID uuid.UUID, kind billingDomain.ResourceKind) error
}

// CreateContactInput carries the fields of a new contact.
type CreateContactInput struct {
	UserID  uuid.UUID
	Kind    domain.Kind
	Name    string
	Email   string
	Phone   string
	Address string
}

// UpdateContactInput carries replacement details for a contact. The
// kind is fixed at creation and cannot change.
type UpdateContactInput struct {
	ContactID uuid.UUID
	UserID    uuid.UUID
	Name      string
	Email     string
	Phone     string
	Address   string
}

// Service manages the user's seller and customer address books.
type Service struct {
	contacts     domain.ContactRepository
	entitlements Entitlements
	outbox       outbox.Repository
	uow          sharedApplication.UnitOfWork
}

// NewService creates a contact Service.
func NewService(
	contacts domain.ContactRepository,
	entitlements Entitlements,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
) *Service {
	return &Service{
		contacts:     contacts,
		entitlements: entitlements,
		outbox:       outboxRepo,
		uow:          uow,
	}
}

// resourceKindFor maps an address book to its billing resource kind.
func resourceKindFor(kind domain.Kind) billingDomain.ResourceKind {
	if kind == domain.KindSeller {
		return billingDomain.ResourceSellerContact
	}
	return billingDomain.ResourceCustomerContact
}

// Create adds a contact to the given address book, enforcing the
// caller's plan quota for that kind.
func (s *Service) Create(ctx context.Context, input CreateContactInput) (*domain.Contact, error) {
	if !input.Kind.IsValid() {
		return nil, domain.ErrInvalidKind
	}
	if err := s.entitlements.AuthorizeCreate(ctx, input.UserID, resourceKindFor(input.Kind)); err != nil {
		return nil, err
	}

	contact, err := domain.NewContact(input.UserID, input.Kind, input.Name, input.Email, input.Phone, input.Address)
	if err != nil {
		return nil, err
	}

	err = sharedApplication.WithUnitOfWork(ctx, s.uow, func(txCtx context.Context) error {
		if err := s.contacts.Save(txCtx, contact); err != nil {
			return err
		}
		return outbox.StageEvents(txCtx, s.outbox, contact)
	})
	if err != nil {
		return nil, err
	}
	return contact, nil
}

// Update replaces a contact's details. Existing invoices keep their
// snapshots and are not rewritten.
func (s *Service) Update(ctx context.Context, input UpdateContactInput) (*domain.Contact, error) {
	contact, err := s.contacts.FindByID(ctx, input.ContactID)
	if err != nil {
		return nil, err
	}
	if !contact.BelongsTo(input.UserID) {
		return nil, domain.ErrNotOwner
	}

	err = sharedApplication.WithUnitOfWork(ctx, s.uow, func(txCtx context.Context) error {
		if err := contact.Update(input.Name, input.Email, input.Phone, input.Address); err != nil {
			return err
		}
		if err := s.contacts.Save(txCtx, contact); err != nil {
			return err
		}
		return outbox.StageEvents(txCtx, s.outbox, contact)
	})
	if err != nil {
		return nil, err
	}
	return contact, nil
}

// Delete removes a contact from the user's address book.
func (s *Service) Delete(ctx context.Context, contactID, userID uuid.UUID) error {
	contact, err := s.contacts.FindByID(ctx, contactID)
	if err != nil {
		return err
	}
	if !contact.BelongsTo(userID) {
		return domain.ErrNotOwner
	}

	return sharedApplication.WithUnitOfWork(ctx, s.uow, func(txCtx context.Context) error {
		if err := s.contacts.Delete(txCtx, contact.ID()); err != nil {
			return err
		}
		event := domain.NewContactDeleted(contact.ID(), contact.UserID(), contact.Kind())
		msg, err := outbox.NewMessage(event)
		if err != nil {
			return err
		}
		return s.outbox.Save(txCtx, msg)
	})
}

// List returns the contacts of one address book.
func (s *Service) List(ctx context.Context, userID uuid.UUID, kind domain.Kind) ([]*domain.Contact, error) {
	if !kind.IsValid() {
		return nil, domain.ErrInvalidKind
	}
	return s.contacts.FindByUserAndKind(ctx, userID, kind)
}

// Get returns a single contact, checking ownership.
func (s *Service) Get(ctx context.Context, contactID, userID uuid.UUID) (*domain.Contact, error) {
	contact, err := s.contacts.FindByID(ctx, contactID)
	if err != nil {
		return nil, err
	}
	if !contact.BelongsTo(userID) {
		return nil, domain.ErrNotOwner
	}
	return contact, nil
}
