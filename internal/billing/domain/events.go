package domain

import (
	"time"

	"github.com/google/uuid"

	sharedDomain "github.com/fakturly/fakturly/internal/shared/domain"
)

// Routing keys for billing events.
const (
	PaymentRecordedKey        = "billing.payment.recorded"
	PaymentStatusChangedKey   = "billing.payment.status_changed"
	SubscriptionUpgradedKey   = "billing.subscription.upgraded"
	SubscriptionDowngradedKey = "billing.subscription.downgraded"
)

// PaymentRecorded is emitted when a checkout payment is first created.
type PaymentRecorded struct {
	sharedDomain.BaseEvent
	UserID     uuid.UUID     `json:"user_id"`
	ExternalID string        `json:"external_id"`
	Amount     string        `json:"amount"`
	Status     PaymentStatus `json:"status"`
}

// NewPaymentRecorded creates a PaymentRecorded event.
func NewPaymentRecorded(p *Payment) *PaymentRecorded {
	return &PaymentRecorded{
		BaseEvent:  sharedDomain.NewBaseEvent(p.ID(), "payment", PaymentRecordedKey),
		UserID:     p.UserID(),
		ExternalID: p.ExternalID(),
		Amount:     p.Amount().String(),
		Status:     p.Status(),
	}
}

// PaymentStatusChanged is emitted when the gateway reports a new status.
type PaymentStatusChanged struct {
	sharedDomain.BaseEvent
	UserID     uuid.UUID     `json:"user_id"`
	ExternalID string        `json:"external_id"`
	Status     PaymentStatus `json:"status"`
	PaidAt     *time.Time    `json:"paid_at,omitempty"`
}

// NewPaymentStatusChanged creates a PaymentStatusChanged event.
func NewPaymentStatusChanged(p *Payment) *PaymentStatusChanged {
	return &PaymentStatusChanged{
		BaseEvent:  sharedDomain.NewBaseEvent(p.ID(), "payment", PaymentStatusChangedKey),
		UserID:     p.UserID(),
		ExternalID: p.ExternalID(),
		Status:     p.Status(),
		PaidAt:     p.PaidAt(),
	}
}

// SubscriptionUpgraded is emitted when a confirmed payment moves a user
// to the premium plan.
type SubscriptionUpgraded struct {
	sharedDomain.BaseEvent
	UserID    uuid.UUID `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewSubscriptionUpgraded creates a SubscriptionUpgraded event.
func NewSubscriptionUpgraded(userID uuid.UUID, expiresAt time.Time) *SubscriptionUpgraded {
	return &SubscriptionUpgraded{
		BaseEvent: sharedDomain.NewBaseEvent(userID, "user", SubscriptionUpgradedKey),
		UserID:    userID,
		ExpiresAt: expiresAt,
	}
}

// SubscriptionDowngraded is emitted when an expired premium plan is
// lazily downgraded to free.
type SubscriptionDowngraded struct {
	sharedDomain.BaseEvent
	UserID uuid.UUID `json:"user_id"`
}

// NewSubscriptionDowngraded creates a SubscriptionDowngraded event.
func NewSubscriptionDowngraded(userID uuid.UUID) *SubscriptionDowngraded {
	return &SubscriptionDowngraded{
		BaseEvent: sharedDomain.NewBaseEvent(userID, "user", SubscriptionDowngradedKey),
		UserID:    userID,
	}
}
