package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// InvoiceRepository persists invoices together with their line items.
// Deleting an invoice cascades to its items.
type InvoiceRepository interface {
	Save(ctx context.Context, invoice *Invoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	FindByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Invoice, error)
	CountByUserID(ctx context.Context, userID uuid.UUID) (int, error)
	CountByUserAndIssueDate(ctx context.Context, userID uuid.UUID, issueDate time.Time) (int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
