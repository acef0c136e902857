package domain

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrPaymentNotFound is returned when a payment lookup finds nothing.
var ErrPaymentNotFound = errors.New("payment not found")

// PaymentRepository persists payments. Save upserts by external ID so
// webhook redeliveries update in place instead of duplicating.
type PaymentRepository interface {
	Save(ctx context.Context, payment *Payment) error
	FindByExternalID(ctx context.Context, externalID string) (*Payment, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]*Payment, error)
	List(ctx context.Context, limit, offset int) ([]*Payment, error)
}
