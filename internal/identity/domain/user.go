package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"

	billingDomain "github.com/fakturly/fakturly/internal/billing/domain"
	sharedDomain "github.com/fakturly/fakturly/internal/shared/domain"
)

var (
	// ErrUserNotFound is returned when a user lookup finds nothing.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when registering an address that exists.
	ErrEmailTaken = errors.New("email address already registered")
	// ErrInvalidCredentials is returned for failed logins.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailNotVerified is returned when logging in before verification.
	ErrEmailNotVerified = errors.New("email address not verified")
)

// Role controls access to the admin surface.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User represents a user account in the system.
type User struct {
	sharedDomain.BaseAggregateRoot
	email                 Email
	name                  Name
	passwordHash          string
	role                  Role
	plan                  billingDomain.Plan
	subscriptionExpiresAt *time.Time
	emailVerifiedAt       *time.Time
	oauthProvider         string
}

// NewUser creates a new unverified account on the free plan.
func NewUser(email Email, name Name, passwordHash string) *User {
	u := &User{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(),
		email:             email,
		name:              name,
		passwordHash:      passwordHash,
		role:              RoleUser,
		plan:              billingDomain.PlanFree,
	}
	u.AddDomainEvent(NewUserRegistered(u))
	return u
}

// NewOAuthUser creates an account from an OAuth sign-in. The provider has
// already verified the address, so the account starts verified.
func NewOAuthUser(email Email, name Name, provider string, now time.Time) *User {
	u := &User{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(),
		email:             email,
		name:              name,
		role:              RoleUser,
		plan:              billingDomain.PlanFree,
		emailVerifiedAt:   &now,
		oauthProvider:     provider,
	}
	u.AddDomainEvent(NewUserRegistered(u))
	return u
}

// RehydrateUser reconstructs a user from storage.
func RehydrateUser(
	id uuid.UUID,
	email Email,
	name Name,
	passwordHash string,
	role Role,
	plan billingDomain.Plan,
	subscriptionExpiresAt, emailVerifiedAt *time.Time,
	oauthProvider string,
	createdAt, updatedAt time.Time,
) *User {
	return &User{
		BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot(
			sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt),
		),
		email:                 email,
		name:                  name,
		passwordHash:          passwordHash,
		role:                  role,
		plan:                  plan,
		subscriptionExpiresAt: subscriptionExpiresAt,
		emailVerifiedAt:       emailVerifiedAt,
		oauthProvider:         oauthProvider,
	}
}

func (u *User) Email() Email                      { return u.email }
func (u *User) Name() Name                        { return u.name }
func (u *User) PasswordHash() string              { return u.passwordHash }
func (u *User) Role() Role                        { return u.role }
func (u *User) Plan() billingDomain.Plan          { return u.plan }
func (u *User) SubscriptionExpiresAt() *time.Time { return u.subscriptionExpiresAt }
func (u *User) EmailVerifiedAt() *time.Time       { return u.emailVerifiedAt }
func (u *User) OAuthProvider() string             { return u.oauthProvider }

// IsAdmin reports whether the user may access the admin surface.
func (u *User) IsAdmin() bool {
	return u.role == RoleAdmin
}

// IsVerified reports whether the email address has been confirmed.
func (u *User) IsVerified() bool {
	return u.emailVerifiedAt != nil
}

// EffectivePlan resolves the stored plan against the clock without
// mutating the user.
func (u *User) EffectivePlan(now time.Time) billingDomain.EffectivePlan {
	return billingDomain.ResolveEffectivePlan(u.plan, u.subscriptionExpiresAt, now)
}

// VerifyEmail marks the address as confirmed.
func (u *User) VerifyEmail(now time.Time) {
	if u.emailVerifiedAt != nil {
		return
	}
	u.emailVerifiedAt = &now
	u.Touch()
	u.AddDomainEvent(NewUserVerified(u.ID()))
}

// UpdateName changes the user's display name.
func (u *User) UpdateName(name Name) {
	if u.name.Equals(name) {
		return
	}
	u.name = name
	u.Touch()
	u.AddDomainEvent(NewUserProfileUpdated(u.ID(), name.String()))
}

// ChangePassword replaces the stored hash.
func (u *User) ChangePassword(passwordHash string) {
	u.passwordHash = passwordHash
	u.Touch()
	u.AddDomainEvent(NewUserPasswordChanged(u.ID()))
}

// PromoteToAdmin grants the admin role.
func (u *User) PromoteToAdmin() {
	if u.role == RoleAdmin {
		return
	}
	u.role = RoleAdmin
	u.Touch()
}

// Upgrade moves the user to premium until expiresAt.
func (u *User) Upgrade(expiresAt time.Time) {
	u.plan = billingDomain.PlanPremium
	u.subscriptionExpiresAt = &expiresAt
	u.Touch()
	u.AddDomainEvent(billingDomain.NewSubscriptionUpgraded(u.ID(), expiresAt))
}

// Downgrade moves the user back to free and clears the expiry.
func (u *User) Downgrade() {
	if u.plan == billingDomain.PlanFree && u.subscriptionExpiresAt == nil {
		return
	}
	u.plan = billingDomain.PlanFree
	u.subscriptionExpiresAt = nil
	u.Touch()
	u.AddDomainEvent(billingDomain.NewSubscriptionDowngraded(u.ID()))
}

// ApplySubscriptionChange persists the outcome of a payment confirmation
// decided by the billing rules.
func (u *User) ApplySubscriptionChange(change billingDomain.SubscriptionChange) {
	if change.Outcome != billingDomain.ConfirmationApplied {
		return
	}
	u.Upgrade(*change.ExpiresAt)
}
