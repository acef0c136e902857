package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserSearchFilter narrows admin user listings.
type UserSearchFilter struct {
	Query  string
	Plan   string
	Limit  int
	Offset int
}

// UserRepository persists user accounts.
type UserRepository interface {
	Save(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, email Email) (*User, error)
	Search(ctx context.Context, filter UserSearchFilter) ([]*User, int, error)
	CountAll(ctx context.Context) (int, error)
	CountByPlan(ctx context.Context, plan string) (int, error)
	CountActiveSince(ctx context.Context, since time.Time) (int, error)
}

// TokenRepository persists bearer tokens.
type TokenRepository interface {
	Save(ctx context.Context, token *Token) error
	FindByValue(ctx context.Context, value string) (*Token, error)
	Delete(ctx context.Context, value string) error
	DeleteByUserAndKind(ctx context.Context, userID uuid.UUID, kind TokenKind) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// SettingsRepository persists per-user invoice settings.
type SettingsRepository interface {
	Save(ctx context.Context, settings *Settings) error
	FindByUserID(ctx context.Context, userID uuid.UUID) (*Settings, error)
}
