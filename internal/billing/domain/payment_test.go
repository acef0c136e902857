package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPayment_StartsPendingAndEmitsEvent(t *testing.T) {
	userID := uuid.New()
	payment := NewPayment(userID, "upgrade_abc_1718000000", "inv-123", "https://checkout.example/inv-123", decimal.NewFromInt(50000))

	assert.Equal(t, userID, payment.UserID())
	assert.Equal(t, PaymentStatusPending, payment.Status())
	assert.Nil(t, payment.PaidAt())

	events := payment.DomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, PaymentRecordedKey, events[0].RoutingKey())
}

func TestPayment_UpdateStatusStampsPaidAtOnce(t *testing.T) {
	payment := NewPayment(uuid.New(), "ext-1", "inv-1", "", decimal.NewFromInt(50000))
	payment.ClearDomainEvents()

	first := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	payment.UpdateStatus(PaymentStatusPaid, first)
	require.NotNil(t, payment.PaidAt())
	assert.Equal(t, first, *payment.PaidAt())

	// Redelivered settlement keeps the original stamp.
	later := first.Add(time.Hour)
	payment.UpdateStatus(PaymentStatusSettled, later)
	assert.Equal(t, first, *payment.PaidAt())
}

func TestPayment_UpdateStatusSameStatusIsNoop(t *testing.T) {
	payment := NewPayment(uuid.New(), "ext-1", "inv-1", "", decimal.NewFromInt(50000))
	payment.ClearDomainEvents()

	payment.UpdateStatus(PaymentStatusPending, time.Now())
	assert.Empty(t, payment.DomainEvents())
}

func TestPaymentStatus_IsSettled(t *testing.T) {
	assert.True(t, PaymentStatusPaid.IsSettled())
	assert.True(t, PaymentStatusSettled.IsSettled())
	assert.False(t, PaymentStatusPending.IsSettled())
	assert.False(t, PaymentStatusExpired.IsSettled())
	assert.False(t, PaymentStatusFailed.IsSettled())
}

func TestApplyPaymentConfirmation(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	t.Run("paid status upgrades a free user", func(t *testing.T) {
		change := ApplyPaymentConfirmation(PlanFree, nil, PaymentStatusPaid, now)
		assert.Equal(t, ConfirmationApplied, change.Outcome)
		assert.Equal(t, PlanPremium, change.Plan)
		require.NotNil(t, change.ExpiresAt)
		assert.Equal(t, now.Add(PremiumDuration), *change.ExpiresAt)
	})

	t.Run("settled status also upgrades", func(t *testing.T) {
		change := ApplyPaymentConfirmation(PlanFree, nil, PaymentStatusSettled, now)
		assert.Equal(t, ConfirmationApplied, change.Outcome)
	})

	t.Run("pending status is ignored", func(t *testing.T) {
		change := ApplyPaymentConfirmation(PlanFree, nil, PaymentStatusPending, now)
		assert.Equal(t, ConfirmationIgnoredNotPaid, change.Outcome)
		assert.Equal(t, PlanFree, change.Plan)
		assert.Nil(t, change.ExpiresAt)
	})

	t.Run("already premium keeps current expiry", func(t *testing.T) {
		existing := now.Add(20 * 24 * time.Hour)
		change := ApplyPaymentConfirmation(PlanPremium, &existing, PaymentStatusPaid, now)
		assert.Equal(t, ConfirmationIgnoredAlreadyPremium, change.Outcome)
		assert.Equal(t, PlanPremium, change.Plan)
		require.NotNil(t, change.ExpiresAt)
		assert.Equal(t, existing, *change.ExpiresAt)
	})

	t.Run("expired premium is treated as free and re-upgraded", func(t *testing.T) {
		expired := now.Add(-24 * time.Hour)
		change := ApplyPaymentConfirmation(PlanPremium, &expired, PaymentStatusPaid, now)
		assert.Equal(t, ConfirmationApplied, change.Outcome)
		assert.Equal(t, PlanPremium, change.Plan)
		require.NotNil(t, change.ExpiresAt)
		assert.Equal(t, now.Add(PremiumDuration), *change.ExpiresAt)
	})

	t.Run("applying twice does not compound expiry", func(t *testing.T) {
		first := ApplyPaymentConfirmation(PlanFree, nil, PaymentStatusPaid, now)
		require.Equal(t, ConfirmationApplied, first.Outcome)

		second := ApplyPaymentConfirmation(first.Plan, first.ExpiresAt, PaymentStatusPaid, now.Add(time.Minute))
		assert.Equal(t, ConfirmationIgnoredAlreadyPremium, second.Outcome)
		assert.Equal(t, *first.ExpiresAt, *second.ExpiresAt)
	})
}
