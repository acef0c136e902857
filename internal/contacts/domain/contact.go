package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"

	sharedDomain "github.com/fakturly/fakturly/internal/shared/domain"
)

var (
	// ErrContactNotFound is returned when a contact lookup finds nothing.
	ErrContactNotFound = errors.New("contact not found")
	// ErrInvalidKind is returned for unknown contact kinds.
	ErrInvalidKind = errors.New("invalid contact kind")
	// ErrEmptyName is returned when a contact has no name.
	ErrEmptyName = errors.New("contact name must not be empty")
	// ErrNotOwner is returned when a user touches a contact they do not own.
	ErrNotOwner = errors.New("contact does not belong to user")
)

// Kind distinguishes the two address books a user keeps.
type Kind string

const (
	KindSeller   Kind = "seller"
	KindCustomer Kind = "customer"
)

// IsValid returns true for known kinds.
func (k Kind) IsValid() bool {
	return k == KindSeller || k == KindCustomer
}

// Contact is a reusable seller or customer party owned by a user.
// Invoices snapshot contact data at issue time, so editing a contact
// never rewrites existing invoices.
type Contact struct {
	sharedDomain.BaseAggregateRoot
	userID  uuid.UUID
	kind    Kind
	name    string
	email   string
	phone   string
	address string
}

// NewContact creates a contact.
func NewContact(userID uuid.UUID, kind Kind, name, email, phone, address string) (*Contact, error) {
	if !kind.IsValid() {
		return nil, ErrInvalidKind
	}
	if name == "" {
		return nil, ErrEmptyName
	}

	c := &Contact{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(),
		userID:            userID,
		kind:              kind,
		name:              name,
		email:             email,
		phone:             phone,
		address:           address,
	}
	c.AddDomainEvent(NewContactCreated(c))
	return c, nil
}

// RehydrateContact reconstructs a contact from storage.
func RehydrateContact(id, userID uuid.UUID, kind Kind, name, email, phone, address string, createdAt, updatedAt time.Time) *Contact {
	return &Contact{
		BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot(
			sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt),
		),
		userID:  userID,
		kind:    kind,
		name:    name,
		email:   email,
		phone:   phone,
		address: address,
	}
}

func (c *Contact) UserID() uuid.UUID { return c.userID }
func (c *Contact) Kind() Kind        { return c.kind }
func (c *Contact) Name() string      { return c.name }
func (c *Contact) Email() string     { return c.email }
func (c *Contact) Phone() string     { return c.phone }
func (c *Contact) Address() string   { return c.address }

// Update replaces the contact's details. The kind is fixed for the
// lifetime of the contact.
func (c *Contact) Update(name, email, phone, address string) error {
	if name == "" {
		return ErrEmptyName
	}
	c.name = name
	c.email = email
	c.phone = phone
	c.address = address
	c.Touch()
	c.AddDomainEvent(NewContactUpdated(c))
	return nil
}

// BelongsTo reports whether the contact is owned by the given user.
func (c *Contact) BelongsTo(userID uuid.UUID) bool {
	return c.userID == userID
}
