package domain

import (
	"github.com/google/uuid"

	sharedDomain "github.com/fakturly/fakturly/internal/shared/domain"
)

// Routing keys for identity events.
const (
	UserRegisteredKey      = "identity.user.registered"
	UserVerifiedKey        = "identity.user.verified"
	UserProfileUpdatedKey  = "identity.user.profile_updated"
	UserPasswordChangedKey = "identity.user.password_changed"
)

// UserRegistered is emitted when a new account is created.
type UserRegistered struct {
	sharedDomain.BaseEvent
	Email string `json:"email"`
	Name  string `json:"name"`
}

// NewUserRegistered creates a UserRegistered event.
func NewUserRegistered(u *User) *UserRegistered {
	return &UserRegistered{
		BaseEvent: sharedDomain.NewBaseEvent(u.ID(), "user", UserRegisteredKey),
		Email:     u.Email().String(),
		Name:      u.Name().String(),
	}
}

// UserVerified is emitted when an email address is confirmed.
type UserVerified struct {
	sharedDomain.BaseEvent
}

// NewUserVerified creates a UserVerified event.
func NewUserVerified(userID uuid.UUID) *UserVerified {
	return &UserVerified{
		BaseEvent: sharedDomain.NewBaseEvent(userID, "user", UserVerifiedKey),
	}
}

// UserProfileUpdated is emitted when profile details change.
type UserProfileUpdated struct {
	sharedDomain.BaseEvent
	Name string `json:"name"`
}

// NewUserProfileUpdated creates a UserProfileUpdated event.
func NewUserProfileUpdated(userID uuid.UUID, name string) *UserProfileUpdated {
	return &UserProfileUpdated{
		BaseEvent: sharedDomain.NewBaseEvent(userID, "user", UserProfileUpdatedKey),
		Name:      name,
	}
}

// UserPasswordChanged is emitted when the password hash is replaced.
type UserPasswordChanged struct {
	sharedDomain.BaseEvent
}

// NewUserPasswordChanged creates a UserPasswordChanged event.
func NewUserPasswordChanged(userID uuid.UUID) *UserPasswordChanged {
	return &UserPasswordChanged{
		BaseEvent: sharedDomain.NewBaseEvent(userID, "user", UserPasswordChangedKey),
	}
}
