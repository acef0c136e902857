package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	billingDomain "github.com/fakturly/fakturly/internal/billing/domain"
)

func mustEmail(t *testing.T, s string) Email {
	t.Helper()
	email, err := NewEmail(s)
	require.NoError(t, err)
	return email
}

func mustName(t *testing.T, s string) Name {
	t.Helper()
	name, err := NewName(s)
	require.NoError(t, err)
	return name
}

func newTestUser(t *testing.T) *User {
	t.Helper()
	return NewUser(mustEmail(t, "user@example.com"), mustName(t, "Test User"), "hashed")
}

func TestNewUser_StartsFreeAndUnverified(t *testing.T) {
	u := newTestUser(t)

	assert.Equal(t, billingDomain.PlanFree, u.Plan())
	assert.Equal(t, RoleUser, u.Role())
	assert.False(t, u.IsVerified())
	assert.False(t, u.IsAdmin())
	assert.Nil(t, u.SubscriptionExpiresAt())

	events := u.DomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, UserRegisteredKey, events[0].RoutingKey())
}

func TestNewOAuthUser_StartsVerified(t *testing.T) {
	now := time.Now()
	u := NewOAuthUser(mustEmail(t, "user@example.com"), mustName(t, "Test User"), "google", now)

	assert.True(t, u.IsVerified())
	assert.Equal(t, "google", u.OAuthProvider())
	assert.Empty(t, u.PasswordHash())
}

func TestUser_VerifyEmailIsIdempotent(t *testing.T) {
	u := newTestUser(t)
	u.ClearDomainEvents()

	first := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	u.VerifyEmail(first)
	require.NotNil(t, u.EmailVerifiedAt())
	assert.Equal(t, first, *u.EmailVerifiedAt())

	u.VerifyEmail(first.Add(time.Hour))
	assert.Equal(t, first, *u.EmailVerifiedAt())
}

func TestUser_UpgradeAndDowngrade(t *testing.T) {
	u := newTestUser(t)
	u.ClearDomainEvents()

	expiresAt := time.Now().Add(30 * 24 * time.Hour)
	u.Upgrade(expiresAt)

	assert.Equal(t, billingDomain.PlanPremium, u.Plan())
	require.NotNil(t, u.SubscriptionExpiresAt())
	assert.Equal(t, expiresAt, *u.SubscriptionExpiresAt())

	u.Downgrade()
	assert.Equal(t, billingDomain.PlanFree, u.Plan())
	assert.Nil(t, u.SubscriptionExpiresAt())

	events := u.DomainEvents()
	require.Len(t, events, 2)
	assert.Equal(t, billingDomain.SubscriptionUpgradedKey, events[0].RoutingKey())
	assert.Equal(t, billingDomain.SubscriptionDowngradedKey, events[1].RoutingKey())
}

func TestUser_DowngradeWhenAlreadyFreeIsNoop(t *testing.T) {
	u := newTestUser(t)
	u.ClearDomainEvents()

	u.Downgrade()
	assert.Empty(t, u.DomainEvents())
}

func TestUser_EffectivePlan(t *testing.T) {
	u := newTestUser(t)
	now := time.Now()

	expired := now.Add(-time.Hour)
	u.Upgrade(expired)

	effective := u.EffectivePlan(now)
	assert.Equal(t, billingDomain.PlanFree, effective.Plan)
	assert.True(t, effective.Downgraded)

	// The resolution itself must not mutate the stored plan.
	assert.Equal(t, billingDomain.PlanPremium, u.Plan())
}

func TestUser_ApplySubscriptionChange(t *testing.T) {
	now := time.Now()

	t.Run("applied change upgrades", func(t *testing.T) {
		u := newTestUser(t)
		change := billingDomain.ApplyPaymentConfirmation(u.Plan(), u.SubscriptionExpiresAt(), billingDomain.PaymentStatusPaid, now)
		require.Equal(t, billingDomain.ConfirmationApplied, change.Outcome)

		u.ApplySubscriptionChange(change)
		assert.Equal(t, billingDomain.PlanPremium, u.Plan())
	})

	t.Run("ignored change leaves user untouched", func(t *testing.T) {
		u := newTestUser(t)
		change := billingDomain.ApplyPaymentConfirmation(u.Plan(), u.SubscriptionExpiresAt(), billingDomain.PaymentStatusPending, now)
		require.Equal(t, billingDomain.ConfirmationIgnoredNotPaid, change.Outcome)

		u.ApplySubscriptionChange(change)
		assert.Equal(t, billingDomain.PlanFree, u.Plan())
	})
}

func TestUser_ChangePassword(t *testing.T) {
	u := newTestUser(t)
	u.ClearDomainEvents()

	u.ChangePassword("new-hash")
	assert.Equal(t, "new-hash", u.PasswordHash())

	events := u.DomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, UserPasswordChangedKey, events[0].RoutingKey())
}

func TestToken(t *testing.T) {
	now := time.Now()
	u := newTestUser(t)

	token, err := NewToken(u.ID(), TokenKindAPI, time.Hour, now)
	require.NoError(t, err)
	assert.Len(t, token.Value, 64)
	assert.False(t, token.IsExpired(now))
	assert.True(t, token.IsExpired(now.Add(2*time.Hour)))

	permanent, err := NewToken(u.ID(), TokenKindAPI, 0, now)
	require.NoError(t, err)
	assert.Nil(t, permanent.ExpiresAt)
	assert.False(t, permanent.IsExpired(now.Add(100*24*time.Hour)))

	// Two tokens never collide.
	other, err := NewToken(u.ID(), TokenKindReset, time.Hour, now)
	require.NoError(t, err)
	assert.NotEqual(t, token.Value, other.Value)
}

func TestSettings_HeaderTitleHistory(t *testing.T) {
	u := newTestUser(t)
	s := NewSettings(u.ID())

	s.SetInvoiceHeaderTitle("INVOICE")
	assert.Equal(t, "INVOICE", s.InvoiceHeaderTitle())
	assert.Empty(t, s.PreviousHeaderTitles())

	s.SetInvoiceHeaderTitle("FAKTUR")
	assert.Equal(t, "FAKTUR", s.InvoiceHeaderTitle())
	assert.Equal(t, []string{"INVOICE"}, s.PreviousHeaderTitles())

	// Same title again is a no-op.
	s.SetInvoiceHeaderTitle("FAKTUR")
	assert.Equal(t, []string{"INVOICE"}, s.PreviousHeaderTitles())
}

func TestSettings_HeaderTitleHistoryIsBounded(t *testing.T) {
	u := newTestUser(t)
	s := NewSettings(u.ID())

	for i := 0; i < MaxHeaderTitleHistory+5; i++ {
		s.SetInvoiceHeaderTitle(string(rune('A' + i)))
	}

	assert.Len(t, s.PreviousHeaderTitles(), MaxHeaderTitleHistory)
}

func TestValidatePassword(t *testing.T) {
	assert.ErrorIs(t, ValidatePassword("short"), ErrPasswordTooWeak)
	assert.NoError(t, ValidatePassword("long enough password"))
}
