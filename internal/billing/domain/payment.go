package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	sharedDomain "github.com/fakturly/fakturly/internal/shared/domain"
)

// PremiumDuration is how long a single payment confirmation extends
// premium access.
const PremiumDuration = 30 * 24 * time.Hour

// PaymentStatus mirrors the gateway's invoice status vocabulary.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusSettled PaymentStatus = "SETTLED"
	PaymentStatusExpired PaymentStatus = "EXPIRED"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

// IsSettled returns true for statuses that count as money received.
func (s PaymentStatus) IsSettled() bool {
	return s == PaymentStatusPaid || s == PaymentStatusSettled
}

// Payment is a gateway payment attempt tracked for a user's upgrade.
// The external ID is unique; webhook redeliveries update the existing
// record instead of creating a new one.
type Payment struct {
	sharedDomain.BaseAggregateRoot
	userID            uuid.UUID
	externalID        string
	gatewayInvoiceID  string
	gatewayInvoiceURL string
	amount            decimal.Decimal
	status            PaymentStatus
	paidAt            *time.Time
}

// NewPayment creates a pending payment for a checkout session.
func NewPayment(userID uuid.UUID, externalID, gatewayInvoiceID, gatewayInvoiceURL string, amount decimal.Decimal) *Payment {
	p := &Payment{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(),
		userID:            userID,
		externalID:        externalID,
		gatewayInvoiceID:  gatewayInvoiceID,
		gatewayInvoiceURL: gatewayInvoiceURL,
		amount:            amount,
		status:            PaymentStatusPending,
	}
	p.AddDomainEvent(NewPaymentRecorded(p))
	return p
}

// RehydratePayment reconstructs a payment from storage.
func RehydratePayment(
	id uuid.UUID,
	userID uuid.UUID,
	externalID, gatewayInvoiceID, gatewayInvoiceURL string,
	amount decimal.Decimal,
	status PaymentStatus,
	paidAt *time.Time,
	createdAt, updatedAt time.Time,
) *Payment {
	return &Payment{
		BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot(
			sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt),
		),
		userID:            userID,
		externalID:        externalID,
		gatewayInvoiceID:  gatewayInvoiceID,
		gatewayInvoiceURL: gatewayInvoiceURL,
		amount:            amount,
		status:            status,
		paidAt:            paidAt,
	}
}

func (p *Payment) UserID() uuid.UUID         { return p.userID }
func (p *Payment) ExternalID() string        { return p.externalID }
func (p *Payment) GatewayInvoiceID() string  { return p.gatewayInvoiceID }
func (p *Payment) GatewayInvoiceURL() string { return p.gatewayInvoiceURL }
func (p *Payment) Amount() decimal.Decimal   { return p.amount }
func (p *Payment) Status() PaymentStatus     { return p.status }
func (p *Payment) PaidAt() *time.Time        { return p.paidAt }

// UpdateStatus records a gateway status transition. Moving into a settled
// status stamps paidAt once; later redeliveries keep the original stamp.
func (p *Payment) UpdateStatus(status PaymentStatus, now time.Time) {
	if p.status == status {
		return
	}
	p.status = status
	if status.IsSettled() && p.paidAt == nil {
		paidAt := now
		p.paidAt = &paidAt
	}
	p.Touch()
	p.AddDomainEvent(NewPaymentStatusChanged(p))
}

// ConfirmationOutcome classifies what applying a payment confirmation did.
type ConfirmationOutcome string

const (
	ConfirmationApplied               ConfirmationOutcome = "applied"
	ConfirmationIgnoredAlreadyPremium ConfirmationOutcome = "ignored_already_premium"
	ConfirmationIgnoredNotPaid        ConfirmationOutcome = "ignored_not_paid"
)

// SubscriptionChange is the plan update a confirmation produced. The caller
// persists it; this function never writes.
type SubscriptionChange struct {
	Outcome   ConfirmationOutcome
	Plan      Plan
	ExpiresAt *time.Time
}

// ApplyPaymentConfirmation decides the plan change for a payment
// confirmation. Only settled statuses upgrade; a user who is already
// effectively premium keeps their current expiry, so redelivered
// confirmations never compound.
func ApplyPaymentConfirmation(plan Plan, subscriptionExpiresAt *time.Time, status PaymentStatus, now time.Time) SubscriptionChange {
	if !status.IsSettled() {
		return SubscriptionChange{
			Outcome:   ConfirmationIgnoredNotPaid,
			Plan:      plan,
			ExpiresAt: subscriptionExpiresAt,
		}
	}

	effective := ResolveEffectivePlan(plan, subscriptionExpiresAt, now)
	if effective.Plan == PlanPremium {
		return SubscriptionChange{
			Outcome:   ConfirmationIgnoredAlreadyPremium,
			Plan:      PlanPremium,
			ExpiresAt: subscriptionExpiresAt,
		}
	}

	expiresAt := now.Add(PremiumDuration)
	return SubscriptionChange{
		Outcome:   ConfirmationApplied,
		Plan:      PlanPremium,
		ExpiresAt: &expiresAt,
	}
}
