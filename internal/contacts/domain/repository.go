package domain

import (
	"context"

	"github.com/google/uuid"
)

// ContactRepository persists contacts.
type ContactRepository interface {
	Save(ctx context.Context, contact *Contact) error
	FindByID(ctx context.Context, id uuid.UUID) (*Contact, error)
	FindByUserAndKind(ctx context.Context, userID uuid.UUID, kind Kind) ([]*Contact, error)
	CountByUserAndKind(ctx context.Context, userID uuid.UUID, kind Kind) (int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
