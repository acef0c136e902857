package domain

import (
	"github.com/google/uuid"

	sharedDomain "github.com/fakturly/fakturly/internal/shared/domain"
)

// Routing keys for contact events.
const (
	ContactCreatedKey = "contacts.contact.created"
	ContactUpdatedKey = "contacts.contact.updated"
	ContactDeletedKey = "contacts.contact.deleted"
)

// ContactCreated is emitted when a contact is added to an address book.
type ContactCreated struct {
	sharedDomain.BaseEvent
	UserID uuid.UUID `json:"user_id"`
	Kind   Kind      `json:"kind"`
	Name   string    `json:"name"`
}

// NewContactCreated creates a ContactCreated event.
func NewContactCreated(c *Contact) *ContactCreated {
	return &ContactCreated{
		BaseEvent: sharedDomain.NewBaseEvent(c.ID(), "contact", ContactCreatedKey),
		UserID:    c.UserID(),
		Kind:      c.Kind(),
		Name:      c.Name(),
	}
}

// ContactUpdated is emitted when a contact's details change.
type ContactUpdated struct {
	sharedDomain.BaseEvent
	UserID uuid.UUID `json:"user_id"`
	Kind   Kind      `json:"kind"`
	Name   string    `json:"name"`
}

// NewContactUpdated creates a ContactUpdated event.
func NewContactUpdated(c *Contact) *ContactUpdated {
	return &ContactUpdated{
		BaseEvent: sharedDomain.NewBaseEvent(c.ID(), "contact", ContactUpdatedKey),
		UserID:    c.UserID(),
		Kind:      c.Kind(),
		Name:      c.Name(),
	}
}

// ContactDeleted is emitted when a contact is removed.
type ContactDeleted struct {
	sharedDomain.BaseEvent
	UserID uuid.UUID `json:"user_id"`
	Kind   Kind      `json:"kind"`
}

// NewContactDeleted creates a ContactDeleted event.
func NewContactDeleted(contactID, userID uuid.UUID, kind Kind) *ContactDeleted {
	return &ContactDeleted{
		BaseEvent: sharedDomain.NewBaseEvent(contactID, "contact", ContactDeletedKey),
		UserID:    userID,
		Kind:      kind,
	}
}
